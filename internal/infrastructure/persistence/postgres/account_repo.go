package postgres

import (
	"context"
	"fmt"

	"github.com/moyeostudy/moyeo-hub/internal/auth"
	"github.com/moyeostudy/moyeo-hub/internal/domain/shared"
)

// AccountRepository implements auth.AccountStore backed by PostgreSQL.
type AccountRepository struct {
	conn *Connection
}

// NewAccountRepository creates a new account repository.
func NewAccountRepository(conn *Connection) *AccountRepository {
	return &AccountRepository{conn: conn}
}

// SaveAccount stores a new account.
func (r *AccountRepository) SaveAccount(ctx context.Context, username, passwordHash string) error {
	query := `
		INSERT INTO accounts (username, password_hash)
		VALUES ($1, $2)
	`

	_, err := r.conn.Exec(ctx, query, username, passwordHash)
	if err != nil {
		if IsUniqueViolation(err) {
			return auth.ErrAccountExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// PasswordHash returns the stored bcrypt hash for the username.
func (r *AccountRepository) PasswordHash(ctx context.Context, username string) (string, error) {
	var hash string
	err := r.conn.QueryRow(ctx,
		`SELECT password_hash FROM accounts WHERE username = $1`, username,
	).Scan(&hash)
	if err != nil {
		if IsNoRows(err) {
			return "", shared.NewDomainError("auth", "PasswordHash", shared.ErrNotFound, "account not found")
		}
		return "", fmt.Errorf("failed to load account: %w", err)
	}

	return hash, nil
}
