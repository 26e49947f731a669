// Package record defines the document schemas shared between the remote
// document store and the in-memory merged state, plus the subscription and
// write contract the rest of the application consumes.
//
// Every remote document is delivered as a whole-document snapshot (not a
// delta). Schema types are explicit so the merger never sees malformed
// shapes: adapters coerce raw documents into these structs on ingress.
package record

import (
	"time"
)

// Kind identifies one of the per-user record document kinds.
type Kind string

const (
	// KindParticipation is the per-user attendance document:
	// date -> {present, timeSlots}.
	KindParticipation Kind = "participation"

	// KindStudyHours is the per-user manually-entered duration document:
	// date -> {hours, minutes}. Independently writable from participation
	// time slots; the statistics path does not read it.
	KindStudyHours Kind = "study_hours"

	// KindGoals is the per-user goal collection.
	KindGoals Kind = "goals"

	// KindSchedule is the per-date shared schedule note document.
	KindSchedule Kind = "schedule"
)

// Kinds lists the per-user kinds the merger tracks for every roster member.
// KindSchedule is per-date, not per-user, and is handled by its own store.
var Kinds = []Kind{KindParticipation, KindStudyHours, KindGoals}

// TimeSlot is one contiguous study interval within a day. Both endpoints
// are human-entered 12-hour clock strings ("H:MM AM|PM", hour 1-12, no
// leading zero required). Multiple slots per user per day are summed.
type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
	ID    string `json:"id,omitempty"`
}

// DayDetail is one user's attendance entry for one date.
type DayDetail struct {
	Present   bool       `json:"present"`
	TimeSlots []TimeSlot `json:"timeSlots,omitempty"`
}

// Clone returns a deep copy of the detail.
func (d DayDetail) Clone() DayDetail {
	out := DayDetail{Present: d.Present}
	if len(d.TimeSlots) > 0 {
		out.TimeSlots = make([]TimeSlot, len(d.TimeSlots))
		copy(out.TimeSlots, d.TimeSlots)
	}
	return out
}

// ParticipationDoc is one user's whole participation document,
// keyed by date ("YYYY-MM-DD").
type ParticipationDoc map[string]DayDetail

// Clone returns a deep copy of the document.
func (doc ParticipationDoc) Clone() ParticipationDoc {
	out := make(ParticipationDoc, len(doc))
	for date, detail := range doc {
		out[date] = detail.Clone()
	}
	return out
}

// StudyHours is a manually-entered duration for one date.
type StudyHours struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// TotalMinutes returns the entry as minutes.
func (h StudyHours) TotalMinutes() int {
	return h.Hours*60 + h.Minutes
}

// StudyHoursDoc is one user's whole study-hours document, keyed by date.
type StudyHoursDoc map[string]StudyHours

// Clone returns a copy of the document.
func (doc StudyHoursDoc) Clone() StudyHoursDoc {
	out := make(StudyHoursDoc, len(doc))
	for date, hours := range doc {
		out[date] = hours
	}
	return out
}

// Goal is one study goal owned by a participant. No ordering invariant
// beyond stable insertion.
type Goal struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// GoalsDoc is one user's goal collection in insertion order.
type GoalsDoc []Goal

// Clone returns a copy of the document.
func (doc GoalsDoc) Clone() GoalsDoc {
	if doc == nil {
		return nil
	}
	out := make(GoalsDoc, len(doc))
	copy(out, doc)
	return out
}

// ScheduleItem is one ad-hoc schedule note. Insertion order is display
// order.
type ScheduleItem struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"` // epoch milliseconds
}

// ScheduleDoc is the shared per-date schedule document.
type ScheduleDoc struct {
	Items []ScheduleItem `json:"items"`
}

// Clone returns a deep copy of the document.
func (doc ScheduleDoc) Clone() ScheduleDoc {
	out := ScheduleDoc{}
	if len(doc.Items) > 0 {
		out.Items = make([]ScheduleItem, len(doc.Items))
		copy(out.Items, doc.Items)
	}
	return out
}

// Snapshot is a full replacement view of one participant's remote document.
// Version is a monotonic sequence assigned by the store on every write;
// the merger drops snapshots whose version is older than the last one
// applied for the same user, which closes the same-user reordering race.
type Snapshot struct {
	Kind    Kind
	UserID  string
	Version int64

	// Exactly one of the following is populated, matching Kind.
	Participation ParticipationDoc
	StudyHours    StudyHoursDoc
	Goals         GoalsDoc
}

// ScheduleSnapshot is a full replacement view of one date's schedule
// document.
type ScheduleSnapshot struct {
	Date    string
	Version int64
	Doc     ScheduleDoc
}

// Normalize drops structurally invalid content so downstream code never
// sees malformed shapes: entries with empty date keys, goals with no ID.
// Time-slot strings are kept as entered; duration math treats malformed
// strings as zero.
func (s *Snapshot) Normalize() {
	switch s.Kind {
	case KindParticipation:
		for date := range s.Participation {
			if date == "" {
				delete(s.Participation, date)
			}
		}
	case KindStudyHours:
		for date, h := range s.StudyHours {
			if date == "" || h.Hours < 0 || h.Minutes < 0 {
				delete(s.StudyHours, date)
			}
		}
	case KindGoals:
		kept := s.Goals[:0]
		for _, g := range s.Goals {
			if g.ID == "" {
				continue
			}
			kept = append(kept, g)
		}
		s.Goals = kept
	}
}
