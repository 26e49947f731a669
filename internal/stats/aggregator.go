// Package stats derives time-series statistics from the merged state:
// period rollups (day/week/month/total), period-over-period trends, goal
// completion rates, and calendar heat-map levels.
package stats

import (
	"math"
	"time"

	"github.com/moyeostudy/moyeo-hub/internal/domain/record"
	"github.com/moyeostudy/moyeo-hub/internal/domain/timeslot"
	"github.com/moyeostudy/moyeo-hub/internal/merge"
	"github.com/moyeostudy/moyeo-hub/pkg/timeutil"
)

// Trend is the direction of a period-over-period change.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

// Change is a period-over-period comparison. When the previous period is
// zero and the current is not, Rate is 0 with TrendUp: the caller renders
// that case as "new" rather than a percentage.
type Change struct {
	Rate  float64 `json:"rate"`
	Trend Trend   `json:"trend"`
}

// ChangeRate compares the current period against the previous one.
func ChangeRate(current, previous int) Change {
	switch {
	case previous == 0 && current == 0:
		return Change{Rate: 0, Trend: TrendNeutral}
	case previous == 0:
		return Change{Rate: 0, Trend: TrendUp}
	case current == 0:
		return Change{Rate: 100, Trend: TrendDown}
	}

	rate := math.Abs(float64(current-previous) / float64(previous) * 100)
	trend := TrendNeutral
	if current > previous {
		trend = TrendUp
	} else if current < previous {
		trend = TrendDown
	}
	return Change{Rate: rate, Trend: trend}
}

// GoalCompletionRate returns completed/total as a percentage, 0 when there
// are no goals.
func GoalCompletionRate(goals record.GoalsDoc) float64 {
	if len(goals) == 0 {
		return 0
	}

	completed := 0
	for _, g := range goals {
		if g.Completed {
			completed++
		}
	}
	return float64(completed) / float64(len(goals)) * 100
}

// Heat-map bucket thresholds in minutes. Consumers rely on these exact
// boundaries when rendering calendar cells.
const (
	heatLow    = 60
	heatMid    = 180
	heatHigh   = 300
	HeatLevels = 5
)

// HeatLevel buckets a day's study minutes into 0..4 for the calendar
// heat map.
func HeatLevel(minutes int) int {
	switch {
	case minutes <= 0:
		return 0
	case minutes < heatLow:
		return 1
	case minutes < heatMid:
		return 2
	case minutes < heatHigh:
		return 3
	default:
		return 4
	}
}

// Aggregator computes rollups over the merged participation state.
type Aggregator struct {
	merger *merge.Merger
	engine *timeslot.Engine
}

// NewAggregator creates an aggregator reading from the given merger.
func NewAggregator(merger *merge.Merger, engine *timeslot.Engine) *Aggregator {
	return &Aggregator{merger: merger, engine: engine}
}

// StudyMinutes returns one user's duration contribution for one date.
// Only participation time slots with present == true count; the separate
// study-hours record is not consulted on this path.
func (a *Aggregator) StudyMinutes(userID, date string) int {
	detail, ok := a.merger.DetailFor(userID, date)
	if !ok || !detail.Present {
		return 0
	}
	return a.engine.TotalDuration(detail.TimeSlots)
}

// PeriodMinutes sums StudyMinutes over every date in [start, end]
// inclusive.
func (a *Aggregator) PeriodMinutes(userID string, start, end time.Time) int {
	total := 0
	for _, date := range timeutil.DateKeysBetween(start, end) {
		total += a.StudyMinutes(userID, date)
	}
	return total
}

// TodayMinutes returns the rollup for the single date containing now.
func (a *Aggregator) TodayMinutes(userID string, now time.Time) int {
	return a.StudyMinutes(userID, timeutil.DateKey(now))
}

// WeekMinutes returns the rollup for the Sunday-start week containing now.
func (a *Aggregator) WeekMinutes(userID string, now time.Time) int {
	return a.PeriodMinutes(userID, timeutil.StartOfWeek(now), timeutil.EndOfWeek(now))
}

// MonthMinutes returns the rollup for the calendar month containing now.
func (a *Aggregator) MonthMinutes(userID string, now time.Time) int {
	return a.PeriodMinutes(userID, timeutil.StartOfMonth(now), timeutil.EndOfMonth(now))
}

// TotalMinutes sums every known date for the user. It walks the merged map
// directly rather than a date range, since "total" covers all dates that
// exist.
func (a *Aggregator) TotalMinutes(userID string) int {
	total := 0
	for date := range a.merger.Participation() {
		total += a.StudyMinutes(userID, date)
	}
	return total
}

// ─────────────────────────────────────────────────────────────────────────
// Period-over-period comparisons
// ─────────────────────────────────────────────────────────────────────────

// DayChange compares today against yesterday.
func (a *Aggregator) DayChange(userID string, now time.Time) Change {
	current := a.TodayMinutes(userID, now)
	previous := a.StudyMinutes(userID, timeutil.DateKey(now.AddDate(0, 0, -1)))
	return ChangeRate(current, previous)
}

// WeekChange compares this week against the previous Sunday-start week.
func (a *Aggregator) WeekChange(userID string, now time.Time) Change {
	current := a.WeekMinutes(userID, now)
	prevStart := timeutil.StartOfWeek(now).AddDate(0, 0, -7)
	previous := a.PeriodMinutes(userID, prevStart, prevStart.AddDate(0, 0, 6))
	return ChangeRate(current, previous)
}

// MonthChange compares this calendar month against the previous one.
func (a *Aggregator) MonthChange(userID string, now time.Time) Change {
	current := a.MonthMinutes(userID, now)
	prevStart := timeutil.StartOfMonth(now).AddDate(0, -1, 0)
	previous := a.PeriodMinutes(userID, prevStart, timeutil.EndOfMonth(prevStart))
	return ChangeRate(current, previous)
}

// GroupMinutes sums StudyMinutes for every given user over one date.
// Entries for users absent from the given roster IDs are skipped silently;
// merged state may briefly reference participants already removed from the
// roster.
func (a *Aggregator) GroupMinutes(userIDs []string, date string) int {
	total := 0
	for _, id := range userIDs {
		total += a.StudyMinutes(id, date)
	}
	return total
}

// DailyHeatLevels returns the heat level for every date in [start, end]
// for one user, keyed by date.
func (a *Aggregator) DailyHeatLevels(userID string, start, end time.Time) map[string]int {
	out := make(map[string]int)
	for _, date := range timeutil.DateKeysBetween(start, end) {
		out[date] = HeatLevel(a.StudyMinutes(userID, date))
	}
	return out
}
