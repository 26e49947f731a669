package query

import (
	"context"
	"sort"
	"time"

	"github.com/moyeostudy/moyeo-hub/internal/domain/record"
	"github.com/moyeostudy/moyeo-hub/internal/domain/roster"
	"github.com/moyeostudy/moyeo-hub/internal/merge"
	"github.com/moyeostudy/moyeo-hub/internal/stats"
	"github.com/moyeostudy/moyeo-hub/pkg/timeutil"
)

// GetCalendarQuery requests the month view combining merged participation,
// schedule notes, and heat-map levels.
type GetCalendarQuery struct {
	// Month is any time within the requested calendar month
	// (zero = current month).
	Month time.Time

	// UserID focuses the heat map on one participant. Empty means the heat
	// level reflects the whole group's summed minutes.
	UserID string
}

// Validate defaults the query parameters.
func (q *GetCalendarQuery) Validate() error {
	if q.Month.IsZero() {
		q.Month = timeutil.Now()
	}
	return nil
}

// ParticipantDayDTO is one participant's entry on one calendar day.
type ParticipantDayDTO struct {
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Color   string `json:"color,omitempty"`
	Icon    string `json:"icon,omitempty"`
	Present bool   `json:"present"`
	Minutes int    `json:"minutes"`
}

// CalendarDayDTO is one day cell of the month view.
type CalendarDayDTO struct {
	Date      string                `json:"date"`
	Weekday   time.Weekday          `json:"weekday"`
	Entries   []ParticipantDayDTO   `json:"entries,omitempty"`
	Schedules []record.ScheduleItem `json:"schedules,omitempty"`
	HeatLevel int                   `json:"heat_level"`
}

// CalendarDTO is the whole month view.
type CalendarDTO struct {
	Year  int              `json:"year"`
	Month time.Month       `json:"month"`
	Days  []CalendarDayDTO `json:"days"`
}

// GetCalendarHandler builds month views from merged state.
type GetCalendarHandler struct {
	rosterRepo roster.Repository
	merger     *merge.Merger
	schedules  *merge.ScheduleStore
	aggregator *stats.Aggregator
	heatMap    bool
}

// NewGetCalendarHandler creates the handler. heatMap controls whether day
// cells carry heat levels; disabled cells stay at level zero.
func NewGetCalendarHandler(
	rosterRepo roster.Repository,
	merger *merge.Merger,
	schedules *merge.ScheduleStore,
	aggregator *stats.Aggregator,
	heatMap bool,
) *GetCalendarHandler {
	return &GetCalendarHandler{
		rosterRepo: rosterRepo,
		merger:     merger,
		schedules:  schedules,
		aggregator: aggregator,
		heatMap:    heatMap,
	}
}

// Handle executes the query. Merged entries that reference participants no
// longer in the roster are skipped silently; merged state may briefly lag
// a roster removal.
func (h *GetCalendarHandler) Handle(ctx context.Context, query GetCalendarQuery) (*CalendarDTO, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	members, err := h.rosterRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(roster.Roster, len(members))
	for _, p := range members {
		byID[p.ID] = p
	}

	anchor := timeutil.ToSeoul(query.Month)
	dto := &CalendarDTO{
		Year:  anchor.Year(),
		Month: anchor.Month(),
	}

	for _, date := range timeutil.MonthKeys(anchor) {
		day, err := timeutil.ParseDateKey(date)
		if err != nil {
			continue
		}

		cell := CalendarDayDTO{
			Date:      date,
			Weekday:   day.Weekday(),
			Schedules: h.schedules.ForDate(date),
		}

		groupMinutes := 0
		for userID, detail := range h.merger.ParticipationForDate(date) {
			p, known := byID[userID]
			if !known {
				continue
			}
			minutes := h.aggregator.StudyMinutes(userID, date)
			groupMinutes += minutes
			cell.Entries = append(cell.Entries, ParticipantDayDTO{
				UserID:  userID,
				Name:    p.Name,
				Color:   p.Color,
				Icon:    p.Icon,
				Present: detail.Present,
				Minutes: minutes,
			})
		}
		sort.Slice(cell.Entries, func(i, j int) bool {
			return cell.Entries[i].Name < cell.Entries[j].Name
		})

		if h.heatMap {
			if query.UserID != "" {
				cell.HeatLevel = stats.HeatLevel(h.aggregator.StudyMinutes(query.UserID, date))
			} else {
				cell.HeatLevel = stats.HeatLevel(groupMinutes)
			}
		}

		dto.Days = append(dto.Days, cell)
	}

	return dto, nil
}
