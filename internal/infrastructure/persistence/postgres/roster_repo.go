package postgres

import (
	"context"
	"fmt"

	"github.com/moyeostudy/moyeo-hub/internal/domain/roster"
	"github.com/moyeostudy/moyeo-hub/internal/domain/shared"
	"github.com/moyeostudy/moyeo-hub/pkg/retry"
)

// RosterRepository implements roster.Repository backed by PostgreSQL.
// Reads retry on transient failures; writes run once because a retried
// write after an ambiguous failure could double-apply.
type RosterRepository struct {
	conn    *Connection
	retrier *retry.Retrier
}

// NewRosterRepository creates a new roster repository.
func NewRosterRepository(conn *Connection) *RosterRepository {
	return &RosterRepository{
		conn:    conn,
		retrier: retry.DatabaseRetrier(),
	}
}

// Create inserts a new participant.
func (r *RosterRepository) Create(ctx context.Context, p *roster.Participant) error {
	if err := p.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO participants (id, name, color, icon, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.conn.Exec(ctx, query, p.ID, p.Name, p.Color, p.Icon, p.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrParticipantExists
		}
		return fmt.Errorf("failed to create participant: %w", err)
	}

	return nil
}

// GetByID finds a participant by ID.
func (r *RosterRepository) GetByID(ctx context.Context, id string) (*roster.Participant, error) {
	query := `
		SELECT id, name, color, icon, created_at
		FROM participants
		WHERE id = $1
	`

	var p roster.Participant
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		err := r.conn.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Color, &p.Icon, &p.CreatedAt)
		if err != nil {
			if IsNoRows(err) {
				return shared.ErrParticipantNotFound
			}
			return retry.Retryable(fmt.Errorf("failed to get participant: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// GetAll returns every participant, ordered by creation time.
func (r *RosterRepository) GetAll(ctx context.Context) ([]*roster.Participant, error) {
	query := `
		SELECT id, name, color, icon, created_at
		FROM participants
		ORDER BY created_at, id
	`

	var members []*roster.Participant
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		rows, err := r.conn.Query(ctx, query)
		if err != nil {
			return retry.Retryable(fmt.Errorf("failed to list participants: %w", err))
		}
		defer rows.Close()

		members = members[:0]
		for rows.Next() {
			var p roster.Participant
			if err := rows.Scan(&p.ID, &p.Name, &p.Color, &p.Icon, &p.CreatedAt); err != nil {
				return retry.Retryable(fmt.Errorf("failed to scan participant: %w", err))
			}
			members = append(members, &p)
		}
		if err := rows.Err(); err != nil {
			return retry.Retryable(fmt.Errorf("failed to read participants: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return members, nil
}

// Update rewrites a participant's display attributes.
func (r *RosterRepository) Update(ctx context.Context, p *roster.Participant) error {
	if err := p.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE participants
		SET name = $2, color = $3, icon = $4
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query, p.ID, p.Name, p.Color, p.Icon)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrParticipantExists
		}
		return fmt.Errorf("failed to update participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrParticipantNotFound
	}

	return nil
}

// Delete removes a participant.
func (r *RosterRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM participants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrParticipantNotFound
	}

	return nil
}

// Count returns the roster size.
func (r *RosterRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM participants`).Scan(&count); err != nil {
			return retry.Retryable(fmt.Errorf("failed to count participants: %w", err))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}
