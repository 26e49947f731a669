// Package timeslot parses and validates human-entered 12-hour time strings
// and computes per-slot and per-day study durations.
//
// Time strings look like "9:00 AM" or "11:30 PM". The Korean period markers
// 오전 (AM) and 오후 (PM) are accepted as synonyms, in either position
// ("오전 9:00" or "9:00 오전"). Hours are 1-12 with no leading zero required.
package timeslot

import (
	"strconv"
	"strings"

	"github.com/moyeostudy/moyeo-hub/internal/domain/record"
	"github.com/moyeostudy/moyeo-hub/pkg/logger"
)

// MinutesPerDay is the number of minutes in one day.
const MinutesPerDay = 24 * 60

// Validation messages surfaced to the user.
const (
	MsgNoValidSlot = "at least one valid slot required"
	MsgSlotOrder   = "end time must be later than start time"
)

// Engine parses time strings and computes durations. Parse failures are
// recovered locally: malformed input counts as zero minutes and is logged
// as a non-fatal warning, never returned as an error.
type Engine struct {
	log *logger.Logger
}

// NewEngine creates an engine logging through the given logger.
func NewEngine(log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Default()
	}
	return &Engine{log: log.With(logger.Component("timeslot"))}
}

// ParseTimeToMinutes converts "H:MM AM|PM" to minutes since midnight.
// 12 AM maps to 0 and 12 PM stays 12; PM adds twelve hours to 1-11.
// Malformed input yields 0.
func (e *Engine) ParseTimeToMinutes(s string) int {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		e.warnParse(raw, "empty time string")
		return 0
	}

	// Korean period markers are synonyms for AM/PM and may appear on
	// either side of the clock digits.
	s = strings.ReplaceAll(s, "오전", "AM")
	s = strings.ReplaceAll(s, "오후", "PM")

	fields := strings.Fields(s)
	if len(fields) != 2 {
		e.warnParse(raw, "expected time and period")
		return 0
	}

	clock, period := fields[0], strings.ToUpper(fields[1])
	if period != "AM" && period != "PM" {
		// Marker-first form: "AM 9:00".
		clock, period = fields[1], strings.ToUpper(fields[0])
	}
	if period != "AM" && period != "PM" {
		e.warnParse(raw, "missing AM/PM marker")
		return 0
	}

	hm := strings.SplitN(clock, ":", 2)
	if len(hm) != 2 {
		e.warnParse(raw, "expected H:MM")
		return 0
	}

	hour, err := strconv.Atoi(hm[0])
	if err != nil || hour < 1 || hour > 12 {
		e.warnParse(raw, "hour out of range")
		return 0
	}
	minute, err := strconv.Atoi(hm[1])
	if err != nil || minute < 0 || minute > 59 {
		e.warnParse(raw, "minute out of range")
		return 0
	}

	if hour == 12 {
		hour = 0 // 12 AM is midnight; PM below restores 12
	}
	if period == "PM" {
		hour += 12
	}

	return hour*60 + minute
}

// SlotDuration returns the slot length in minutes. A slot whose end is
// earlier than its start is interpreted as crossing midnight. Slots missing
// either endpoint contribute 0.
func (e *Engine) SlotDuration(slot record.TimeSlot) int {
	if slot.Start == "" || slot.End == "" {
		return 0
	}

	start := e.ParseTimeToMinutes(slot.Start)
	end := e.ParseTimeToMinutes(slot.End)

	if end < start {
		return (MinutesPerDay - start) + end
	}
	return end - start
}

// TotalDuration sums the durations of all valid slots.
func (e *Engine) TotalDuration(slots []record.TimeSlot) int {
	total := 0
	for _, slot := range slots {
		total += e.SlotDuration(slot)
	}
	return total
}

// ValidationResult reports the outcome of validating a slot set.
type ValidationResult struct {
	// IsValid is false when the whole set must be rejected.
	IsValid bool

	// ValidSlots is the set with incomplete slots filtered out.
	ValidSlots []record.TimeSlot

	// Message is the user-facing warning when IsValid is false.
	Message string
}

// ValidateSlots filters out slots missing start or end, then checks slot
// ordering. The whole set is rejected when nothing remains after filtering,
// or when any remaining same-day slot ends at or before its start.
// Wraparound slots (start hour later than end hour) are valid.
func (e *Engine) ValidateSlots(slots []record.TimeSlot) ValidationResult {
	valid := make([]record.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		if slot.Start == "" || slot.End == "" {
			continue
		}
		valid = append(valid, slot)
	}

	if len(valid) == 0 {
		return ValidationResult{IsValid: false, Message: MsgNoValidSlot}
	}

	for _, slot := range valid {
		if !e.slotOrdered(slot) {
			return ValidationResult{IsValid: false, ValidSlots: valid, Message: MsgSlotOrder}
		}
	}

	return ValidationResult{IsValid: true, ValidSlots: valid}
}

// ValidateEdit checks a single slot while it is being edited. Validation
// runs on every field change, not just on save; an edit that would make the
// end equal to or earlier than the start on the same day is rejected.
// Incomplete slots (one endpoint still empty) pass so the user can keep
// typing.
func (e *Engine) ValidateEdit(slot record.TimeSlot) ValidationResult {
	if slot.Start == "" || slot.End == "" {
		return ValidationResult{IsValid: true, ValidSlots: []record.TimeSlot{slot}}
	}
	if !e.slotOrdered(slot) {
		return ValidationResult{IsValid: false, Message: MsgSlotOrder}
	}
	return ValidationResult{IsValid: true, ValidSlots: []record.TimeSlot{slot}}
}

// slotOrdered reports whether a complete slot is acceptable: strictly
// increasing on the same day, or a midnight wraparound where the start hour
// is later than the end hour.
func (e *Engine) slotOrdered(slot record.TimeSlot) bool {
	start := e.ParseTimeToMinutes(slot.Start)
	end := e.ParseTimeToMinutes(slot.End)

	if end > start {
		return true
	}
	// Same hour cannot wrap; equal times are never valid.
	return start/60 > end/60
}

func (e *Engine) warnParse(input, reason string) {
	e.log.Warn("failed to parse time string",
		logger.String("input", input),
		logger.String("reason", reason),
	)
}
