package stats

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moyeostudy/moyeo-hub/internal/domain/record"
	"github.com/moyeostudy/moyeo-hub/internal/domain/timeslot"
	"github.com/moyeostudy/moyeo-hub/internal/infrastructure/remote/memstore"
	"github.com/moyeostudy/moyeo-hub/internal/merge"
	"github.com/moyeostudy/moyeo-hub/pkg/logger"
	"github.com/moyeostudy/moyeo-hub/pkg/timeutil"
)

func newAggregator(t *testing.T) (*Aggregator, *merge.Merger) {
	t.Helper()
	log := logger.New(logger.Options{Output: io.Discard})
	merger := merge.NewMerger(memstore.New(), nil, log)
	return NewAggregator(merger, timeslot.NewEngine(log)), merger
}

func TestChangeRate(t *testing.T) {
	tests := []struct {
		current, previous int
		wantRate          float64
		wantTrend         Trend
	}{
		{0, 0, 0, TrendNeutral},
		{90, 0, 0, TrendUp},    // rendered as "new", not a percentage
		{0, 90, 100, TrendDown},
		{120, 60, 100, TrendUp},
		{60, 120, 50, TrendDown},
		{60, 60, 0, TrendNeutral},
		{90, 60, 50, TrendUp},
	}

	for _, tt := range tests {
		got := ChangeRate(tt.current, tt.previous)
		assert.InDelta(t, tt.wantRate, got.Rate, 0.001, "current=%d previous=%d", tt.current, tt.previous)
		assert.Equal(t, tt.wantTrend, got.Trend, "current=%d previous=%d", tt.current, tt.previous)
	}
}

func TestGoalCompletionRate(t *testing.T) {
	assert.Equal(t, 0.0, GoalCompletionRate(nil))
	assert.Equal(t, 0.0, GoalCompletionRate(record.GoalsDoc{}))

	goals := record.GoalsDoc{
		{ID: "a", Completed: true},
		{ID: "b", Completed: false},
		{ID: "c", Completed: true},
		{ID: "d", Completed: false},
	}
	assert.InDelta(t, 50.0, GoalCompletionRate(goals), 0.001)
}

func TestHeatLevel(t *testing.T) {
	tests := []struct {
		minutes int
		want    int
	}{
		{0, 0},
		{-10, 0},
		{1, 1},
		{59, 1},
		{60, 2},
		{179, 2},
		{180, 3},
		{299, 3},
		{300, 4},
		{600, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HeatLevel(tt.minutes), "minutes=%d", tt.minutes)
	}
}

func TestStudyMinutes_TwoSlotDay(t *testing.T) {
	agg, merger := newAggregator(t)

	// Morning 9-11 plus afternoon 1:00-2:30 totals 210 minutes.
	merger.ApplyLocalParticipation("alice", "2026-08-24", record.DayDetail{
		Present: true,
		TimeSlots: []record.TimeSlot{
			{Start: "9:00 AM", End: "11:00 AM"},
			{Start: "1:00 PM", End: "2:30 PM"},
		},
	})

	assert.Equal(t, 210, agg.StudyMinutes("alice", "2026-08-24"))
}

func TestStudyMinutes_AbsentContributesNothing(t *testing.T) {
	agg, merger := newAggregator(t)

	// Slots recorded but present is false: the day counts as zero.
	merger.ApplyLocalParticipation("alice", "2026-08-24", record.DayDetail{
		Present:   false,
		TimeSlots: []record.TimeSlot{{Start: "9:00 AM", End: "11:00 AM"}},
	})

	assert.Equal(t, 0, agg.StudyMinutes("alice", "2026-08-24"))
	assert.Equal(t, 0, agg.StudyMinutes("alice", "2026-08-25"))
}

func TestStudyMinutes_IgnoresStudyHoursRecord(t *testing.T) {
	agg, merger := newAggregator(t)

	// A manually-entered duration alone does not feed the statistics path.
	merger.ApplyLocalStudyHours("alice", "2026-08-24", record.StudyHours{Hours: 5})

	assert.Equal(t, 0, agg.StudyMinutes("alice", "2026-08-24"))
}

func TestWeekMinutes_SundayWindow(t *testing.T) {
	agg, merger := newAggregator(t)

	oneHour := []record.TimeSlot{{Start: "9:00 AM", End: "10:00 AM"}}

	// Week of Sunday 2026-08-23 .. Saturday 2026-08-29.
	merger.ApplyLocalParticipation("alice", "2026-08-23", record.DayDetail{Present: true, TimeSlots: oneHour})
	merger.ApplyLocalParticipation("alice", "2026-08-29", record.DayDetail{Present: true, TimeSlots: oneHour})
	// Outside the window on both sides.
	merger.ApplyLocalParticipation("alice", "2026-08-22", record.DayDetail{Present: true, TimeSlots: oneHour})
	merger.ApplyLocalParticipation("alice", "2026-08-30", record.DayDetail{Present: true, TimeSlots: oneHour})

	now := timeutil.Date(2026, 8, 26) // Wednesday
	assert.Equal(t, 120, agg.WeekMinutes("alice", now))
}

func TestPeriodChanges(t *testing.T) {
	agg, merger := newAggregator(t)

	oneHour := []record.TimeSlot{{Start: "9:00 AM", End: "10:00 AM"}}
	twoHours := []record.TimeSlot{{Start: "9:00 AM", End: "11:00 AM"}}

	merger.ApplyLocalParticipation("alice", "2026-08-25", record.DayDetail{Present: true, TimeSlots: oneHour})
	merger.ApplyLocalParticipation("alice", "2026-08-26", record.DayDetail{Present: true, TimeSlots: twoHours})

	now := timeutil.Date(2026, 8, 26)

	day := agg.DayChange("alice", now)
	assert.Equal(t, TrendUp, day.Trend)
	assert.InDelta(t, 100.0, day.Rate, 0.001)

	// Previous week is empty: "new" case.
	week := agg.WeekChange("alice", now)
	assert.Equal(t, TrendUp, week.Trend)
	assert.InDelta(t, 0.0, week.Rate, 0.001)

	// Previous month empty as well.
	month := agg.MonthChange("alice", now)
	assert.Equal(t, TrendUp, month.Trend)
}

func TestTotalAndGroupMinutes(t *testing.T) {
	agg, merger := newAggregator(t)

	oneHour := []record.TimeSlot{{Start: "9:00 AM", End: "10:00 AM"}}

	merger.ApplyLocalParticipation("alice", "2026-07-01", record.DayDetail{Present: true, TimeSlots: oneHour})
	merger.ApplyLocalParticipation("alice", "2026-08-24", record.DayDetail{Present: true, TimeSlots: oneHour})
	merger.ApplyLocalParticipation("bob", "2026-08-24", record.DayDetail{Present: true, TimeSlots: oneHour})

	assert.Equal(t, 120, agg.TotalMinutes("alice"))
	assert.Equal(t, 120, agg.GroupMinutes([]string{"alice", "bob"}, "2026-08-24"))
	assert.Equal(t, 60, agg.GroupMinutes([]string{"alice", "ghost"}, "2026-08-24"))
}

func TestDailyHeatLevels(t *testing.T) {
	agg, merger := newAggregator(t)

	merger.ApplyLocalParticipation("alice", "2026-08-24", record.DayDetail{
		Present:   true,
		TimeSlots: []record.TimeSlot{{Start: "9:00 AM", End: "2:00 PM"}}, // 300 min
	})

	levels := agg.DailyHeatLevels("alice", timeutil.Date(2026, 8, 24), timeutil.Date(2026, 8, 25))
	assert.Equal(t, 4, levels["2026-08-24"])
	assert.Equal(t, 0, levels["2026-08-25"])
}
