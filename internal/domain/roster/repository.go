package roster

import (
	"context"
)

// Repository defines the durable storage contract for the roster.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// Create stores a new participant.
	// Returns ErrParticipantExists if the ID is already taken.
	Create(ctx context.Context, p *Participant) error

	// GetByID returns a participant by ID.
	// Returns ErrParticipantNotFound if no such participant exists.
	GetByID(ctx context.Context, id string) (*Participant, error)

	// GetAll returns every participant in insertion order.
	GetAll(ctx context.Context) ([]*Participant, error)

	// Update replaces a participant's display fields.
	// Returns ErrParticipantNotFound if no such participant exists.
	Update(ctx context.Context, p *Participant) error

	// Delete removes a participant from the roster.
	// Returns ErrParticipantNotFound if no such participant exists.
	Delete(ctx context.Context, id string) error

	// Count returns the number of participants.
	Count(ctx context.Context) (int, error)
}
