// Package query contains read operations (CQRS - Queries). Queries read
// merged state as immutable snapshots and never mutate it.
package query

import (
	"context"
	"time"

	"github.com/moyeostudy/moyeo-hub/internal/domain/record"
	"github.com/moyeostudy/moyeo-hub/internal/domain/roster"
	"github.com/moyeostudy/moyeo-hub/internal/domain/shared"
	"github.com/moyeostudy/moyeo-hub/internal/merge"
	"github.com/moyeostudy/moyeo-hub/internal/stats"
	"github.com/moyeostudy/moyeo-hub/pkg/timeutil"
)

// GetStatisticsQuery requests one participant's period rollups.
type GetStatisticsQuery struct {
	// UserID identifies the participant.
	UserID string

	// Now anchors the period windows (zero = current time in Seoul).
	Now time.Time
}

// Validate checks and defaults the query parameters.
func (q *GetStatisticsQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("query", "GetStatistics", shared.ErrInvalidID, "user ID is required")
	}
	if q.Now.IsZero() {
		q.Now = timeutil.Now()
	}
	return nil
}

// PeriodDTO is one period's rollup with its period-over-period change.
type PeriodDTO struct {
	Minutes int          `json:"minutes"`
	Change  stats.Change `json:"change"`
}

// StatisticsDTO is the full statistics view for one participant.
type StatisticsDTO struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`

	Today PeriodDTO `json:"today"`
	Week  PeriodDTO `json:"week"`
	Month PeriodDTO `json:"month"`

	// TotalMinutes covers every known date.
	TotalMinutes int `json:"total_minutes"`

	// Goal completion for the user's full goal collection.
	GoalsTotal         int     `json:"goals_total"`
	GoalsCompleted     int     `json:"goals_completed"`
	GoalCompletionRate float64 `json:"goal_completion_rate"`

	// Group holds the whole-group rollup. Nil when group rollups are
	// disabled.
	Group *GroupDTO `json:"group,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// GroupDTO is the whole-group rollup shown alongside the per-member view.
type GroupDTO struct {
	TodayMinutes       int     `json:"today_minutes"`
	GoalsTotal         int     `json:"goals_total"`
	GoalsCompleted     int     `json:"goals_completed"`
	GoalCompletionRate float64 `json:"goal_completion_rate"`
}

// GetStatisticsHandler computes statistics views.
type GetStatisticsHandler struct {
	rosterRepo   roster.Repository
	merger       *merge.Merger
	aggregator   *stats.Aggregator
	groupRollups bool
}

// NewGetStatisticsHandler creates the handler. groupRollups controls whether
// the whole-group section is computed.
func NewGetStatisticsHandler(rosterRepo roster.Repository, merger *merge.Merger, aggregator *stats.Aggregator, groupRollups bool) *GetStatisticsHandler {
	return &GetStatisticsHandler{
		rosterRepo:   rosterRepo,
		merger:       merger,
		aggregator:   aggregator,
		groupRollups: groupRollups,
	}
}

// Handle executes the query.
func (h *GetStatisticsHandler) Handle(ctx context.Context, query GetStatisticsQuery) (*StatisticsDTO, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	p, err := h.rosterRepo.GetByID(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	goals := h.merger.GoalsFor(query.UserID)
	completed := 0
	for _, g := range goals {
		if g.Completed {
			completed++
		}
	}

	dto := &StatisticsDTO{
		UserID:      p.ID,
		DisplayName: p.Name,
		Today: PeriodDTO{
			Minutes: h.aggregator.TodayMinutes(query.UserID, query.Now),
			Change:  h.aggregator.DayChange(query.UserID, query.Now),
		},
		Week: PeriodDTO{
			Minutes: h.aggregator.WeekMinutes(query.UserID, query.Now),
			Change:  h.aggregator.WeekChange(query.UserID, query.Now),
		},
		Month: PeriodDTO{
			Minutes: h.aggregator.MonthMinutes(query.UserID, query.Now),
			Change:  h.aggregator.MonthChange(query.UserID, query.Now),
		},
		TotalMinutes:       h.aggregator.TotalMinutes(query.UserID),
		GoalsTotal:         len(goals),
		GoalsCompleted:     completed,
		GoalCompletionRate: stats.GoalCompletionRate(goals),
		GeneratedAt:        time.Now().UTC(),
	}

	if h.groupRollups {
		group, err := h.groupRollup(ctx, query.Now)
		if err != nil {
			return nil, err
		}
		dto.Group = group
	}

	return dto, nil
}

// groupRollup sums today's minutes and goal completion across the whole
// roster. Merged entries for users no longer in the roster are skipped.
func (h *GetStatisticsHandler) groupRollup(ctx context.Context, now time.Time) (*GroupDTO, error) {
	members, err := h.rosterRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(members))
	for _, p := range members {
		ids = append(ids, p.ID)
	}

	var allGoals record.GoalsDoc
	goalState := h.merger.Goals()
	for _, id := range ids {
		allGoals = append(allGoals, goalState[id]...)
	}
	completed := 0
	for _, g := range allGoals {
		if g.Completed {
			completed++
		}
	}

	return &GroupDTO{
		TodayMinutes:       h.aggregator.GroupMinutes(ids, timeutil.DateKey(now)),
		GoalsTotal:         len(allGoals),
		GoalsCompleted:     completed,
		GoalCompletionRate: stats.GoalCompletionRate(allGoals),
	}, nil
}
