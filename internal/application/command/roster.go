package command

import (
	"context"

	"github.com/moyeostudy/moyeo-hub/internal/domain/record"
	"github.com/moyeostudy/moyeo-hub/internal/domain/roster"
	"github.com/moyeostudy/moyeo-hub/internal/infrastructure/notify"
	"github.com/moyeostudy/moyeo-hub/internal/merge"
	"github.com/moyeostudy/moyeo-hub/pkg/logger"
)

// AddParticipantCommand adds a member to the roster.
type AddParticipantCommand struct {
	Name  string
	Color string
	Icon  string
}

// RemoveParticipantCommand removes a member from the roster.
type RemoveParticipantCommand struct {
	ID string
}

// RosterHandler executes roster commands. The roster is the identity source
// of truth: adding a participant immediately opens their record
// subscriptions, removing one closes the subscriptions, purges merged
// state, and deletes their remote documents.
type RosterHandler struct {
	repo   roster.Repository
	store  record.Store
	merger *merge.Merger
	writer *remoteWriter
	log    *logger.Logger
}

// NewRosterHandler creates the handler.
func NewRosterHandler(repo roster.Repository, store record.Store, merger *merge.Merger, notifier notify.Notifier, policy WritePolicy, log *logger.Logger) *RosterHandler {
	if log == nil {
		log = logger.Default()
	}
	return &RosterHandler{
		repo:   repo,
		store:  store,
		merger: merger,
		writer: newRemoteWriter(policy, notifier, log),
		log:    log,
	}
}

// HandleAdd creates the participant and starts tracking their records.
func (h *RosterHandler) HandleAdd(ctx context.Context, cmd AddParticipantCommand) (*roster.Participant, error) {
	p, err := roster.NewParticipant(cmd.Name, cmd.Color, cmd.Icon)
	if err != nil {
		return nil, err
	}

	if err := h.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	if err := h.merger.TrackParticipant(ctx, p.ID); err != nil {
		h.log.Error("failed to open subscriptions for new participant",
			logger.ParticipantID(p.ID),
			logger.Err(err),
		)
		return nil, err
	}

	h.log.Info("participant added", logger.ParticipantID(p.ID), logger.String("name", p.Name))
	return p, nil
}

// HandleRemove deletes the participant, stops tracking, and purges their
// remote documents.
func (h *RosterHandler) HandleRemove(ctx context.Context, cmd RemoveParticipantCommand) error {
	if err := h.repo.Delete(ctx, cmd.ID); err != nil {
		return err
	}

	// Close subscriptions before purging so the delete-snapshot from the
	// purge cannot race a still-open subscription.
	h.merger.UntrackParticipant(cmd.ID)

	if err := h.writer.write(ctx, "roster", "PurgeUser", func(ctx context.Context) error {
		return h.store.PurgeUser(ctx, cmd.ID)
	}); err != nil {
		return err
	}

	h.log.Info("participant removed", logger.ParticipantID(cmd.ID))
	return nil
}

// TrackAll opens subscriptions for every roster member. Called on startup
// to rebuild merged state from the durable roster.
func (h *RosterHandler) TrackAll(ctx context.Context) error {
	members, err := h.repo.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, p := range members {
		if err := h.merger.TrackParticipant(ctx, p.ID); err != nil {
			return err
		}
	}
	return nil
}
