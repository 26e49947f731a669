// Package roster holds the participant roster, the identity source of truth
// for the study group. Every other record kind references participants by ID
// and never owns them.
package roster

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/moyeostudy/moyeo-hub/internal/domain/shared"
)

// Participant is one member of the study group.
type Participant struct {
	// ID is the document identity of the roster record.
	ID string `json:"id"`

	// Name is the display name shown in calendar and statistics views.
	Name string `json:"name"`

	// Color is an optional display color (hex or named).
	Color string `json:"color,omitempty"`

	// Icon is an optional avatar/emoji identifier.
	Icon string `json:"icon,omitempty"`

	// CreatedAt is when the participant joined the roster.
	CreatedAt time.Time `json:"created_at"`
}

// NewParticipant creates a participant with a fresh ID.
// Returns ErrEmptyName when the trimmed name is empty.
func NewParticipant(name, color, icon string) (*Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.ErrEmptyName
	}

	return &Participant{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     color,
		Icon:      icon,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Validate checks participant invariants.
func (p *Participant) Validate() error {
	if p.ID == "" {
		return shared.NewDomainError("roster", "Validate", shared.ErrInvalidID, "participant ID cannot be empty")
	}
	if strings.TrimSpace(p.Name) == "" {
		return shared.ErrEmptyName
	}
	return nil
}

// Roster is the current set of known participants, keyed by ID.
type Roster map[string]*Participant

// Contains reports whether the roster knows the given participant ID.
func (r Roster) Contains(id string) bool {
	_, ok := r[id]
	return ok
}

// IDs returns the participant IDs in no particular order.
func (r Roster) IDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	return ids
}
