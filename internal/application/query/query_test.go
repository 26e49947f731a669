package query

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/moyeostudy/moyeo-hub/internal/domain/roster"
	"github.com/moyeostudy/moyeo-hub/internal/domain/shared"
	"github.com/moyeostudy/moyeo-hub/internal/domain/timeslot"
	"github.com/moyeostudy/moyeo-hub/internal/infrastructure/remote/memstore"
	"github.com/moyeostudy/moyeo-hub/internal/merge"
	"github.com/moyeostudy/moyeo-hub/internal/stats"
	"github.com/moyeostudy/moyeo-hub/pkg/logger"
)

// fakeRosterRepo is a fixed in-memory roster for query tests.
type fakeRosterRepo struct {
	mu      sync.Mutex
	members []*roster.Participant
}

func (r *fakeRosterRepo) add(id, name, color, icon string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = append(r.members, &roster.Participant{ID: id, Name: name, Color: color, Icon: icon})
}

func (r *fakeRosterRepo) Create(_ context.Context, p *roster.Participant) error {
	r.add(p.ID, p.Name, p.Color, p.Icon)
	return nil
}

func (r *fakeRosterRepo) GetByID(_ context.Context, id string) (*roster.Participant, error) {
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

func (r *fakeRosterRepo) GetAll(_ context.Context) ([]*roster.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*roster.Participant, 0, len(r.members))
	for _, m := range r.members {
		clone := *m
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeRosterRepo) Update(_ context.Context, _ *roster.Participant) error {
	return shared.ErrParticipantNotFound
}

func (r *fakeRosterRepo) Delete(_ context.Context, _ string) error {
	return shared.ErrParticipantNotFound
}

func (r *fakeRosterRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members), nil
}

type queryFixture struct {
	repo       *fakeRosterRepo
	merger     *merge.Merger
	schedules  *merge.ScheduleStore
	aggregator *stats.Aggregator
}

func newQueryFixture(t *testing.T) *queryFixture {
	t.Helper()
	log := logger.New(logger.Options{Output: io.Discard})
	store := memstore.New()
	merger := merge.NewMerger(store, nil, log)
	return &queryFixture{
		repo:       &fakeRosterRepo{},
		merger:     merger,
		schedules:  merge.NewScheduleStore(store, nil, log),
		aggregator: stats.NewAggregator(merger, timeslot.NewEngine(log)),
	}
}
