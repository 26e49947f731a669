package command

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyeostudy/moyeo-hub/internal/domain/record"
	"github.com/moyeostudy/moyeo-hub/internal/domain/roster"
	"github.com/moyeostudy/moyeo-hub/internal/domain/shared"
	"github.com/moyeostudy/moyeo-hub/internal/infrastructure/notify"
	"github.com/moyeostudy/moyeo-hub/internal/infrastructure/remote/memstore"
	"github.com/moyeostudy/moyeo-hub/internal/merge"
)

// memRosterRepo is an in-memory roster.Repository for handler tests.
type memRosterRepo struct {
	mu      sync.Mutex
	members []*roster.Participant
}

func newMemRosterRepo() *memRosterRepo {
	return &memRosterRepo{}
}

func (r *memRosterRepo) Create(_ context.Context, p *roster.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.ID == p.ID || m.Name == p.Name {
			return shared.ErrParticipantExists
		}
	}
	clone := *p
	r.members = append(r.members, &clone)
	return nil
}

func (r *memRosterRepo) GetByID(_ context.Context, id string) (*roster.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.ID == id {
			clone := *m
			return &clone, nil
		}
	}
	return nil, shared.ErrParticipantNotFound
}

func (r *memRosterRepo) GetAll(_ context.Context) ([]*roster.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*roster.Participant, 0, len(r.members))
	for _, m := range r.members {
		clone := *m
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memRosterRepo) Update(_ context.Context, p *roster.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.members {
		if m.ID == p.ID {
			clone := *p
			r.members[i] = &clone
			return nil
		}
	}
	return shared.ErrParticipantNotFound
}

func (r *memRosterRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.members {
		if m.ID == id {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return nil
		}
	}
	return shared.ErrParticipantNotFound
}

func (r *memRosterRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members), nil
}

type rosterFixture struct {
	repo    *memRosterRepo
	store   *memstore.Store
	merger  *merge.Merger
	handler *RosterHandler
}

func newRosterFixture(t *testing.T) *rosterFixture {
	t.Helper()
	log := quietLogger()
	repo := newMemRosterRepo()
	store := memstore.New()
	merger := merge.NewMerger(store, nil, log)
	t.Cleanup(merger.Close)
	return &rosterFixture{
		repo:    repo,
		store:   store,
		merger:  merger,
		handler: NewRosterHandler(repo, store, merger, notify.NewRecorder(), fastWritePolicy(), log),
	}
}

func TestRosterHandleAdd_TracksParticipant(t *testing.T) {
	f := newRosterFixture(t)

	p, err := f.handler.HandleAdd(context.Background(), AddParticipantCommand{
		Name:  "Alice",
		Color: "#ff0000",
		Icon:  "owl",
	})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.NotEmpty(t, p.ID)

	assert.Equal(t, []string{p.ID}, f.merger.Tracked())

	// A live write for the new participant reaches merged state.
	require.NoError(t, f.store.SetParticipation(context.Background(), p.ID, "2026-08-24", record.DayDetail{Present: true}))
	_, ok := f.merger.DetailFor(p.ID, "2026-08-24")
	assert.True(t, ok)
}

func TestRosterHandleAdd_RejectsEmptyName(t *testing.T) {
	f := newRosterFixture(t)

	_, err := f.handler.HandleAdd(context.Background(), AddParticipantCommand{Name: "   "})
	assert.ErrorIs(t, err, shared.ErrEmptyName)
	assert.Empty(t, f.merger.Tracked())
}

func TestRosterHandleAdd_RejectsDuplicateName(t *testing.T) {
	f := newRosterFixture(t)

	_, err := f.handler.HandleAdd(context.Background(), AddParticipantCommand{Name: "Alice"})
	require.NoError(t, err)

	_, err = f.handler.HandleAdd(context.Background(), AddParticipantCommand{Name: "Alice"})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	assert.Len(t, f.merger.Tracked(), 1)
}

func TestRosterHandleRemove_UntracksAndPurges(t *testing.T) {
	f := newRosterFixture(t)

	p, err := f.handler.HandleAdd(context.Background(), AddParticipantCommand{Name: "Alice"})
	require.NoError(t, err)
	require.NoError(t, f.store.SetParticipation(context.Background(), p.ID, "2026-08-24", record.DayDetail{Present: true}))

	require.NoError(t, f.handler.HandleRemove(context.Background(), RemoveParticipantCommand{ID: p.ID}))

	assert.Empty(t, f.merger.Tracked())
	_, ok := f.merger.DetailFor(p.ID, "2026-08-24")
	assert.False(t, ok)

	count, _ := f.repo.Count(context.Background())
	assert.Zero(t, count)
}

func TestRosterHandleRemove_UnknownParticipant(t *testing.T) {
	f := newRosterFixture(t)

	err := f.handler.HandleRemove(context.Background(), RemoveParticipantCommand{ID: "missing"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRosterTrackAll(t *testing.T) {
	f := newRosterFixture(t)

	a, _ := roster.NewParticipant("Alice", "", "")
	b, _ := roster.NewParticipant("Bob", "", "")
	require.NoError(t, f.repo.Create(context.Background(), a))
	require.NoError(t, f.repo.Create(context.Background(), b))

	require.NoError(t, f.handler.TrackAll(context.Background()))
	assert.ElementsMatch(t, []string{a.ID, b.ID}, f.merger.Tracked())
}
