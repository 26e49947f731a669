package command

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/moyeostudy/moyeo-hub/internal/domain/record"
	"github.com/moyeostudy/moyeo-hub/internal/domain/shared"
	"github.com/moyeostudy/moyeo-hub/internal/infrastructure/notify"
	"github.com/moyeostudy/moyeo-hub/internal/merge"
	"github.com/moyeostudy/moyeo-hub/pkg/logger"
)

// AddGoalCommand creates a new goal for a user.
type AddGoalCommand struct {
	UserID  string
	Content string
}

// UpdateGoalCommand rewrites a goal's content.
type UpdateGoalCommand struct {
	UserID  string
	GoalID  string
	Content string
}

// ToggleGoalCommand flips a goal's completed state.
type ToggleGoalCommand struct {
	UserID string
	GoalID string
}

// DeleteGoalCommand removes a goal.
type DeleteGoalCommand struct {
	UserID string
	GoalID string
}

// GoalHandler executes goal commands. Goals have no ordering invariant
// beyond stable insertion; optimistic updates rewrite the user's whole
// collection since that is also how snapshots arrive.
type GoalHandler struct {
	store  record.Store
	merger *merge.Merger
	writer *remoteWriter
	log    *logger.Logger
}

// NewGoalHandler creates the handler.
func NewGoalHandler(store record.Store, merger *merge.Merger, notifier notify.Notifier, policy WritePolicy, log *logger.Logger) *GoalHandler {
	if log == nil {
		log = logger.Default()
	}
	return &GoalHandler{
		store:  store,
		merger: merger,
		writer: newRemoteWriter(policy, notifier, log),
		log:    log,
	}
}

// HandleAdd appends a new goal.
func (h *GoalHandler) HandleAdd(ctx context.Context, cmd AddGoalCommand) error {
	content := strings.TrimSpace(cmd.Content)
	if cmd.UserID == "" || content == "" {
		return shared.NewDomainError("goal", "AddGoal", shared.ErrInvalidInput, "user ID and content are required")
	}

	goal := record.Goal{
		ID:        uuid.NewString(),
		UserID:    cmd.UserID,
		Content:   content,
		Completed: false,
		CreatedAt: time.Now().UTC(),
	}

	goals := append(h.merger.GoalsFor(cmd.UserID), goal)
	h.merger.ApplyLocalGoals(cmd.UserID, goals)

	return h.writer.write(ctx, "goal", "AddGoal", func(ctx context.Context) error {
		return h.store.AddGoal(ctx, goal)
	})
}

// HandleUpdate rewrites a goal's content.
func (h *GoalHandler) HandleUpdate(ctx context.Context, cmd UpdateGoalCommand) error {
	content := strings.TrimSpace(cmd.Content)
	if cmd.UserID == "" || cmd.GoalID == "" || content == "" {
		return shared.NewDomainError("goal", "UpdateGoal", shared.ErrInvalidInput, "user ID, goal ID and content are required")
	}

	goals, found := h.mutateGoal(cmd.UserID, cmd.GoalID, func(g *record.Goal) {
		g.Content = content
	})
	if !found {
		return shared.ErrGoalNotFound
	}
	h.merger.ApplyLocalGoals(cmd.UserID, goals)

	return h.writer.write(ctx, "goal", "UpdateGoal", func(ctx context.Context) error {
		return h.store.UpdateGoal(ctx, cmd.UserID, cmd.GoalID, content)
	})
}

// HandleToggle flips a goal's completed state.
func (h *GoalHandler) HandleToggle(ctx context.Context, cmd ToggleGoalCommand) error {
	if cmd.UserID == "" || cmd.GoalID == "" {
		return shared.NewDomainError("goal", "ToggleGoal", shared.ErrInvalidInput, "user ID and goal ID are required")
	}

	goals, found := h.mutateGoal(cmd.UserID, cmd.GoalID, func(g *record.Goal) {
		g.Completed = !g.Completed
	})
	if !found {
		return shared.ErrGoalNotFound
	}
	h.merger.ApplyLocalGoals(cmd.UserID, goals)

	return h.writer.write(ctx, "goal", "ToggleGoal", func(ctx context.Context) error {
		return h.store.ToggleGoal(ctx, cmd.UserID, cmd.GoalID)
	})
}

// HandleDelete removes a goal.
func (h *GoalHandler) HandleDelete(ctx context.Context, cmd DeleteGoalCommand) error {
	if cmd.UserID == "" || cmd.GoalID == "" {
		return shared.NewDomainError("goal", "DeleteGoal", shared.ErrInvalidInput, "user ID and goal ID are required")
	}

	goals := h.merger.GoalsFor(cmd.UserID)
	kept := goals[:0]
	found := false
	for _, g := range goals {
		if g.ID == cmd.GoalID {
			found = true
			continue
		}
		kept = append(kept, g)
	}
	if !found {
		return shared.ErrGoalNotFound
	}
	h.merger.ApplyLocalGoals(cmd.UserID, kept)

	return h.writer.write(ctx, "goal", "DeleteGoal", func(ctx context.Context) error {
		return h.store.DeleteGoal(ctx, cmd.UserID, cmd.GoalID)
	})
}

// mutateGoal copies the user's collection and applies fn to the matching
// goal.
func (h *GoalHandler) mutateGoal(userID, goalID string, fn func(*record.Goal)) (record.GoalsDoc, bool) {
	goals := h.merger.GoalsFor(userID)
	for i := range goals {
		if goals[i].ID == goalID {
			fn(&goals[i])
			return goals, true
		}
	}
	return goals, false
}
