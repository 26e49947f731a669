package command

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/moyeostudy/moyeo-hub/internal/domain/record"
	"github.com/moyeostudy/moyeo-hub/internal/domain/shared"
	"github.com/moyeostudy/moyeo-hub/internal/infrastructure/notify"
	"github.com/moyeostudy/moyeo-hub/internal/merge"
	"github.com/moyeostudy/moyeo-hub/pkg/logger"
	"github.com/moyeostudy/moyeo-hub/pkg/timeutil"
)

// AddScheduleCommand appends an ad-hoc note to one date.
type AddScheduleCommand struct {
	Date    string
	Content string
}

// UpdateScheduleCommand rewrites one note's content.
type UpdateScheduleCommand struct {
	Date    string
	ItemID  string
	Content string
}

// RemoveScheduleCommand deletes one note.
type RemoveScheduleCommand struct {
	Date   string
	ItemID string
}

// ScheduleHandler executes schedule commands. The remote document is a
// per-date list maintained by read-modify-write; insertion order is display
// order.
type ScheduleHandler struct {
	store     record.Store
	schedules *merge.ScheduleStore
	writer    *remoteWriter
}

// NewScheduleHandler creates the handler.
func NewScheduleHandler(store record.Store, schedules *merge.ScheduleStore, notifier notify.Notifier, policy WritePolicy, log *logger.Logger) *ScheduleHandler {
	if log == nil {
		log = logger.Default()
	}
	return &ScheduleHandler{
		store:     store,
		schedules: schedules,
		writer:    newRemoteWriter(policy, notifier, log),
	}
}

// HandleAdd appends a new note.
func (h *ScheduleHandler) HandleAdd(ctx context.Context, cmd AddScheduleCommand) error {
	content := strings.TrimSpace(cmd.Content)
	if cmd.Date == "" || content == "" {
		return shared.NewDomainError("schedule", "AddSchedule", shared.ErrInvalidInput, "date and content are required")
	}

	item := record.ScheduleItem{
		ID:        uuid.NewString(),
		Content:   content,
		CreatedAt: timeutil.EpochMillis(timeutil.Now()),
	}

	h.schedules.ApplyLocalAdd(cmd.Date, item)

	return h.writer.write(ctx, "schedule", "AddSchedule", func(ctx context.Context) error {
		return h.store.AddSchedule(ctx, cmd.Date, item)
	})
}

// HandleUpdate rewrites one note's content.
func (h *ScheduleHandler) HandleUpdate(ctx context.Context, cmd UpdateScheduleCommand) error {
	content := strings.TrimSpace(cmd.Content)
	if cmd.Date == "" || cmd.ItemID == "" || content == "" {
		return shared.NewDomainError("schedule", "UpdateSchedule", shared.ErrInvalidInput, "date, item ID and content are required")
	}

	h.schedules.ApplyLocalUpdate(cmd.Date, cmd.ItemID, content)

	return h.writer.write(ctx, "schedule", "UpdateSchedule", func(ctx context.Context) error {
		return h.store.UpdateSchedule(ctx, cmd.Date, cmd.ItemID, content)
	})
}

// HandleRemove deletes one note. Deleting the last note removes the date
// bucket.
func (h *ScheduleHandler) HandleRemove(ctx context.Context, cmd RemoveScheduleCommand) error {
	if cmd.Date == "" || cmd.ItemID == "" {
		return shared.NewDomainError("schedule", "RemoveSchedule", shared.ErrInvalidInput, "date and item ID are required")
	}

	h.schedules.ApplyLocalRemove(cmd.Date, cmd.ItemID)

	return h.writer.write(ctx, "schedule", "RemoveSchedule", func(ctx context.Context) error {
		return h.store.RemoveSchedule(ctx, cmd.Date, cmd.ItemID)
	})
}
