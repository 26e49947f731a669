package timeslot

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moyeostudy/moyeo-hub/internal/domain/record"
	"github.com/moyeostudy/moyeo-hub/pkg/logger"
)

func quietEngine() *Engine {
	return NewEngine(logger.New(logger.Options{Output: io.Discard}))
}

func TestParseTimeToMinutes(t *testing.T) {
	e := quietEngine()

	tests := []struct {
		input string
		want  int
	}{
		{"9:00 AM", 540},
		{"12:00 AM", 0},    // midnight
		{"12:00 PM", 720},  // noon
		{"12:30 AM", 30},
		{"1:00 PM", 780},
		{"11:30 PM", 1410},
		{"11:00 PM", 1380},
		{"2:30 PM", 870},
		{"9:00 am", 540},   // case-insensitive marker
		{" 9:00 AM ", 540}, // surrounding whitespace
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, e.ParseTimeToMinutes(tt.input), "input %q", tt.input)
	}
}

func TestParseTimeToMinutes_KoreanMarkers(t *testing.T) {
	e := quietEngine()

	assert.Equal(t, 540, e.ParseTimeToMinutes("오전 9:00"))
	assert.Equal(t, 540, e.ParseTimeToMinutes("9:00 오전"))
	assert.Equal(t, 780, e.ParseTimeToMinutes("오후 1:00"))
	assert.Equal(t, 0, e.ParseTimeToMinutes("오전 12:00"))
	assert.Equal(t, 720, e.ParseTimeToMinutes("오후 12:00"))
}

func TestParseTimeToMinutes_MalformedYieldsZero(t *testing.T) {
	e := quietEngine()

	malformed := []string{
		"",
		"9:00",       // missing marker
		"25:00 AM",   // hour out of range
		"0:30 AM",    // hour below 1
		"9:75 PM",    // minute out of range
		"900 AM",     // no colon
		"nine AM",    // not numeric
		"9:00 XM",    // unknown marker
		"9:00 AM PM", // trailing junk
	}

	for _, input := range malformed {
		assert.Equal(t, 0, e.ParseTimeToMinutes(input), "input %q", input)
	}
}

func TestSlotDuration(t *testing.T) {
	e := quietEngine()

	tests := []struct {
		name string
		slot record.TimeSlot
		want int
	}{
		{"two hours", record.TimeSlot{Start: "9:00 AM", End: "11:00 AM"}, 120},
		{"ninety minutes", record.TimeSlot{Start: "1:00 PM", End: "2:30 PM"}, 90},
		{"overnight", record.TimeSlot{Start: "11:00 PM", End: "1:00 AM"}, 120},
		{"across noon", record.TimeSlot{Start: "11:30 AM", End: "1:00 PM"}, 90},
		{"missing start", record.TimeSlot{End: "1:00 PM"}, 0},
		{"missing end", record.TimeSlot{Start: "9:00 AM"}, 0},
		{"zero length", record.TimeSlot{Start: "9:00 AM", End: "9:00 AM"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.SlotDuration(tt.slot))
		})
	}
}

func TestTotalDuration(t *testing.T) {
	e := quietEngine()

	// Morning session plus afternoon session: 120 + 90 = 210.
	slots := []record.TimeSlot{
		{Start: "9:00 AM", End: "11:00 AM"},
		{Start: "1:00 PM", End: "2:30 PM"},
	}
	assert.Equal(t, 210, e.TotalDuration(slots))

	assert.Equal(t, 0, e.TotalDuration(nil))
}

func TestValidateSlots(t *testing.T) {
	e := quietEngine()

	t.Run("empty set rejected", func(t *testing.T) {
		result := e.ValidateSlots(nil)
		assert.False(t, result.IsValid)
		assert.Equal(t, MsgNoValidSlot, result.Message)
	})

	t.Run("only incomplete slots rejected", func(t *testing.T) {
		result := e.ValidateSlots([]record.TimeSlot{
			{Start: "9:00 AM"},
			{End: "1:00 PM"},
		})
		assert.False(t, result.IsValid)
		assert.Equal(t, MsgNoValidSlot, result.Message)
	})

	t.Run("incomplete slots filtered out", func(t *testing.T) {
		result := e.ValidateSlots([]record.TimeSlot{
			{Start: "9:00 AM", End: "11:00 AM"},
			{Start: "1:00 PM"},
		})
		assert.True(t, result.IsValid)
		assert.Len(t, result.ValidSlots, 1)
	})

	t.Run("end equal to start rejected", func(t *testing.T) {
		result := e.ValidateSlots([]record.TimeSlot{
			{Start: "9:00 AM", End: "9:00 AM"},
		})
		assert.False(t, result.IsValid)
		assert.Equal(t, MsgSlotOrder, result.Message)
	})

	t.Run("end earlier within same hour rejected", func(t *testing.T) {
		result := e.ValidateSlots([]record.TimeSlot{
			{Start: "9:30 AM", End: "9:10 AM"},
		})
		assert.False(t, result.IsValid)
		assert.Equal(t, MsgSlotOrder, result.Message)
	})

	t.Run("overnight wraparound accepted", func(t *testing.T) {
		result := e.ValidateSlots([]record.TimeSlot{
			{Start: "11:00 PM", End: "1:00 AM"},
		})
		assert.True(t, result.IsValid)
	})
}

func TestValidateEdit(t *testing.T) {
	e := quietEngine()

	// Incomplete slots pass so the user can keep typing.
	assert.True(t, e.ValidateEdit(record.TimeSlot{Start: "9:00 AM"}).IsValid)
	assert.True(t, e.ValidateEdit(record.TimeSlot{}).IsValid)

	assert.False(t, e.ValidateEdit(record.TimeSlot{Start: "9:00 AM", End: "9:00 AM"}).IsValid)
	assert.False(t, e.ValidateEdit(record.TimeSlot{Start: "9:30 AM", End: "9:10 AM"}).IsValid)
	assert.True(t, e.ValidateEdit(record.TimeSlot{Start: "9:00 AM", End: "10:00 AM"}).IsValid)
	assert.True(t, e.ValidateEdit(record.TimeSlot{Start: "11:00 PM", End: "1:00 AM"}).IsValid)
}
