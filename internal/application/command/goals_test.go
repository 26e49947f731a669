package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyeostudy/moyeo-hub/internal/domain/shared"
	"github.com/moyeostudy/moyeo-hub/internal/infrastructure/notify"
	"github.com/moyeostudy/moyeo-hub/internal/infrastructure/remote/memstore"
	"github.com/moyeostudy/moyeo-hub/internal/merge"
)

type goalFixture struct {
	store    *memstore.Store
	merger   *merge.Merger
	recorder *notify.Recorder
	handler  *GoalHandler
}

func newGoalFixture(t *testing.T) *goalFixture {
	t.Helper()
	log := quietLogger()
	store := memstore.New()
	merger := merge.NewMerger(store, nil, log)
	recorder := notify.NewRecorder()
	return &goalFixture{
		store:    store,
		merger:   merger,
		recorder: recorder,
		handler:  NewGoalHandler(store, merger, recorder, fastWritePolicy(), log),
	}
}

func TestGoalHandleAdd(t *testing.T) {
	f := newGoalFixture(t)

	err := f.handler.HandleAdd(context.Background(), AddGoalCommand{
		UserID:  "alice",
		Content: "  finish chapter 3  ",
	})
	require.NoError(t, err)

	goals := f.merger.GoalsFor("alice")
	require.Len(t, goals, 1)
	assert.Equal(t, "finish chapter 3", goals[0].Content)
	assert.NotEmpty(t, goals[0].ID)
	assert.False(t, goals[0].Completed)
}

func TestGoalHandleAdd_RequiresContent(t *testing.T) {
	f := newGoalFixture(t)

	err := f.handler.HandleAdd(context.Background(), AddGoalCommand{UserID: "alice", Content: "   "})
	assert.True(t, shared.IsValidation(err))
	assert.Empty(t, f.merger.GoalsFor("alice"))
}

func TestGoalHandleUpdate(t *testing.T) {
	f := newGoalFixture(t)

	require.NoError(t, f.handler.HandleAdd(context.Background(), AddGoalCommand{UserID: "alice", Content: "draft"}))
	goalID := f.merger.GoalsFor("alice")[0].ID

	err := f.handler.HandleUpdate(context.Background(), UpdateGoalCommand{
		UserID:  "alice",
		GoalID:  goalID,
		Content: "final",
	})
	require.NoError(t, err)
	assert.Equal(t, "final", f.merger.GoalsFor("alice")[0].Content)
}

func TestGoalHandleUpdate_UnknownGoal(t *testing.T) {
	f := newGoalFixture(t)

	err := f.handler.HandleUpdate(context.Background(), UpdateGoalCommand{
		UserID:  "alice",
		GoalID:  "missing",
		Content: "anything",
	})
	assert.ErrorIs(t, err, shared.ErrGoalNotFound)
}

func TestGoalHandleToggle(t *testing.T) {
	f := newGoalFixture(t)

	require.NoError(t, f.handler.HandleAdd(context.Background(), AddGoalCommand{UserID: "alice", Content: "read"}))
	goalID := f.merger.GoalsFor("alice")[0].ID

	require.NoError(t, f.handler.HandleToggle(context.Background(), ToggleGoalCommand{UserID: "alice", GoalID: goalID}))
	assert.True(t, f.merger.GoalsFor("alice")[0].Completed)

	require.NoError(t, f.handler.HandleToggle(context.Background(), ToggleGoalCommand{UserID: "alice", GoalID: goalID}))
	assert.False(t, f.merger.GoalsFor("alice")[0].Completed)
}

func TestGoalHandleDelete(t *testing.T) {
	f := newGoalFixture(t)

	require.NoError(t, f.handler.HandleAdd(context.Background(), AddGoalCommand{UserID: "alice", Content: "one"}))
	require.NoError(t, f.handler.HandleAdd(context.Background(), AddGoalCommand{UserID: "alice", Content: "two"}))
	goalID := f.merger.GoalsFor("alice")[0].ID

	require.NoError(t, f.handler.HandleDelete(context.Background(), DeleteGoalCommand{UserID: "alice", GoalID: goalID}))

	goals := f.merger.GoalsFor("alice")
	require.Len(t, goals, 1)
	assert.Equal(t, "two", goals[0].Content)

	err := f.handler.HandleDelete(context.Background(), DeleteGoalCommand{UserID: "alice", GoalID: goalID})
	assert.ErrorIs(t, err, shared.ErrGoalNotFound)
}

func TestGoalHandleAdd_RemoteFailureKeepsLocalGoal(t *testing.T) {
	f := newGoalFixture(t)
	f.store.SetWriteError(errors.New("connection refused"))

	err := f.handler.HandleAdd(context.Background(), AddGoalCommand{UserID: "alice", Content: "read"})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrRemoteWrite)

	// Local collection keeps the goal; the user is told the save failed.
	assert.Len(t, f.merger.GoalsFor("alice"), 1)

	msgs := f.recorder.Drain()
	require.Len(t, msgs, 1)
	assert.Equal(t, notify.SeverityError, msgs[0].Severity)
	assert.Equal(t, "failed to save goal change, local view may be out of date", msgs[0].Message)
}
