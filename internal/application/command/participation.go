package command

import (
	"context"

	"github.com/moyeostudy/moyeo-hub/internal/domain/record"
	"github.com/moyeostudy/moyeo-hub/internal/domain/shared"
	"github.com/moyeostudy/moyeo-hub/internal/domain/timeslot"
	"github.com/moyeostudy/moyeo-hub/internal/infrastructure/notify"
	"github.com/moyeostudy/moyeo-hub/internal/merge"
	"github.com/moyeostudy/moyeo-hub/pkg/logger"
)

// SetParticipationCommand records one user's attendance detail for one date.
type SetParticipationCommand struct {
	UserID string
	Date   string
	Detail record.DayDetail
}

// Validate checks command parameters.
func (c *SetParticipationCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("participation", "SetParticipation", shared.ErrInvalidID, "user ID is required")
	}
	if c.Date == "" {
		return shared.NewDomainError("participation", "SetParticipation", shared.ErrInvalidInput, "date is required")
	}
	return nil
}

// RemoveParticipationCommand removes one user's entry for one date.
type RemoveParticipationCommand struct {
	UserID string
	Date   string
}

// SetStudyHoursCommand records one user's manually-entered duration for one
// date.
type SetStudyHoursCommand struct {
	UserID string
	Date   string
	Hours  record.StudyHours
}

// Validate checks command parameters.
func (c *SetStudyHoursCommand) Validate() error {
	if c.UserID == "" || c.Date == "" {
		return shared.NewDomainError("study_hours", "SetStudyHours", shared.ErrInvalidInput, "user ID and date are required")
	}
	if c.Hours.Hours < 0 || c.Hours.Minutes < 0 || c.Hours.Minutes > 59 {
		return shared.NewDomainError("study_hours", "SetStudyHours", shared.ErrValidation, "hours must be non-negative and minutes 0-59")
	}
	return nil
}

// ParticipationHandler executes participation and study-hours commands.
type ParticipationHandler struct {
	store    record.Store
	merger   *merge.Merger
	engine   *timeslot.Engine
	notifier notify.Notifier
	writer   *remoteWriter
	log      *logger.Logger

	// syncStudyHours gates the legacy backfill of the study-hours record
	// from attendance slots.
	syncStudyHours bool
}

// NewParticipationHandler creates the handler.
func NewParticipationHandler(
	store record.Store,
	merger *merge.Merger,
	engine *timeslot.Engine,
	notifier notify.Notifier,
	policy WritePolicy,
	log *logger.Logger,
	syncStudyHours bool,
) *ParticipationHandler {
	if log == nil {
		log = logger.Default()
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(log)
	}
	return &ParticipationHandler{
		store:          store,
		merger:         merger,
		engine:         engine,
		notifier:       notifier,
		writer:         newRemoteWriter(policy, notifier, log),
		log:            log,
		syncStudyHours: syncStudyHours,
	}
}

// HandleSet validates the time slots, applies the optimistic local update,
// and merge-writes the detail to the remote store. An invalid slot set
// suppresses the write entirely and leaves in-memory state unchanged.
func (h *ParticipationHandler) HandleSet(ctx context.Context, cmd SetParticipationCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	detail := cmd.Detail.Clone()
	if detail.Present && len(detail.TimeSlots) > 0 {
		result := h.engine.ValidateSlots(detail.TimeSlots)
		if !result.IsValid {
			h.notifier.Warn(result.Message)
			return shared.NewDomainError("participation", "SetParticipation", shared.ErrValidation, result.Message)
		}
		detail.TimeSlots = result.ValidSlots
	}

	h.merger.ApplyLocalParticipation(cmd.UserID, cmd.Date, detail)

	if err := h.writer.write(ctx, "participation", "SetParticipation", func(ctx context.Context) error {
		return h.store.SetParticipation(ctx, cmd.UserID, cmd.Date, detail)
	}); err != nil {
		return err
	}

	if h.syncStudyHours {
		h.backfillStudyHours(ctx, cmd.UserID, cmd.Date, detail)
	}
	return nil
}

// HandleRemove removes one user's entry for one date, locally first and
// then remotely via a field-level delete.
func (h *ParticipationHandler) HandleRemove(ctx context.Context, cmd RemoveParticipationCommand) error {
	if cmd.UserID == "" || cmd.Date == "" {
		return shared.NewDomainError("participation", "RemoveParticipation", shared.ErrInvalidInput, "user ID and date are required")
	}

	h.merger.RemoveLocalParticipation(cmd.UserID, cmd.Date)

	return h.writer.write(ctx, "participation", "RemoveParticipation", func(ctx context.Context) error {
		return h.store.RemoveParticipationForDate(ctx, cmd.UserID, cmd.Date)
	})
}

// HandleSetStudyHours writes a manually-entered duration entry.
func (h *ParticipationHandler) HandleSetStudyHours(ctx context.Context, cmd SetStudyHoursCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	h.merger.ApplyLocalStudyHours(cmd.UserID, cmd.Date, cmd.Hours)

	return h.writer.write(ctx, "study_hours", "SetStudyHours", func(ctx context.Context) error {
		return h.store.SetStudyHours(ctx, cmd.UserID, cmd.Date, cmd.Hours)
	})
}

// backfillStudyHours mirrors the attendance slot total into the
// study-hours record. Legacy behavior kept behind a feature flag: the
// statistics path never reads the study-hours record, so this duplication
// exists only for older consumers of that document.
func (h *ParticipationHandler) backfillStudyHours(ctx context.Context, userID, date string, detail record.DayDetail) {
	if !detail.Present {
		return
	}

	total := h.engine.TotalDuration(detail.TimeSlots)
	hours := record.StudyHours{Hours: total / 60, Minutes: total % 60}

	h.merger.ApplyLocalStudyHours(userID, date, hours)
	if err := h.writer.write(ctx, "study_hours", "BackfillStudyHours", func(ctx context.Context) error {
		return h.store.SetStudyHours(ctx, userID, date, hours)
	}); err != nil {
		h.log.Warn("study-hours backfill failed",
			logger.ParticipantID(userID),
			logger.DateKey(date),
			logger.Err(err),
		)
	}
}
