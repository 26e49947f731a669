package merge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyeostudy/moyeo-hub/internal/domain/record"
	"github.com/moyeostudy/moyeo-hub/internal/infrastructure/remote/memstore"
)

func scheduleSnap(date string, version int64, items ...record.ScheduleItem) record.ScheduleSnapshot {
	return record.ScheduleSnapshot{Date: date, Version: version, Doc: record.ScheduleDoc{Items: items}}
}

func TestScheduleStore_ApplySnapshot(t *testing.T) {
	s := NewScheduleStore(memstore.New(), nil, quietLogger())

	s.ApplySnapshot(scheduleSnap("2026-08-24", 1,
		record.ScheduleItem{ID: "a", Content: "group review"},
		record.ScheduleItem{ID: "b", Content: "mock exam"},
	))

	items := s.ForDate("2026-08-24")
	require.Len(t, items, 2)
	assert.Equal(t, "group review", items[0].Content)
	assert.Equal(t, []string{"2026-08-24"}, s.Dates())
}

func TestScheduleStore_EmptySnapshotRemovesBucket(t *testing.T) {
	s := NewScheduleStore(memstore.New(), nil, quietLogger())

	s.ApplySnapshot(scheduleSnap("2026-08-24", 1, record.ScheduleItem{ID: "a", Content: "review"}))
	s.ApplySnapshot(scheduleSnap("2026-08-24", 2))

	assert.Nil(t, s.ForDate("2026-08-24"))
	assert.Empty(t, s.Dates())
	assert.Empty(t, s.All())
}

func TestScheduleStore_DropsStaleVersions(t *testing.T) {
	s := NewScheduleStore(memstore.New(), nil, quietLogger())

	s.ApplySnapshot(scheduleSnap("2026-08-24", 2, record.ScheduleItem{ID: "a", Content: "new"}))
	s.ApplySnapshot(scheduleSnap("2026-08-24", 1, record.ScheduleItem{ID: "a", Content: "old"}))

	items := s.ForDate("2026-08-24")
	require.Len(t, items, 1)
	assert.Equal(t, "new", items[0].Content)
}

func TestScheduleStore_LocalMutation(t *testing.T) {
	s := NewScheduleStore(memstore.New(), nil, quietLogger())

	s.ApplyLocalAdd("2026-08-24", record.ScheduleItem{ID: "a", Content: "review"})
	s.ApplyLocalAdd("2026-08-24", record.ScheduleItem{ID: "b", Content: "exam"})
	require.Len(t, s.ForDate("2026-08-24"), 2)

	s.ApplyLocalUpdate("2026-08-24", "a", "final review")
	assert.Equal(t, "final review", s.ForDate("2026-08-24")[0].Content)

	s.ApplyLocalRemove("2026-08-24", "a")
	require.Len(t, s.ForDate("2026-08-24"), 1)

	// Removing the last item removes the date bucket itself.
	s.ApplyLocalRemove("2026-08-24", "b")
	assert.Empty(t, s.Dates())
}

func TestScheduleStore_StartDeliversExistingDocuments(t *testing.T) {
	store := memstore.New()
	require.NoError(t, store.AddSchedule(context.Background(), "2026-08-24",
		record.ScheduleItem{ID: "a", Content: "review"}))

	s := NewScheduleStore(store, nil, quietLogger())
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	require.Len(t, s.ForDate("2026-08-24"), 1)

	// Live write propagates.
	require.NoError(t, store.AddSchedule(context.Background(), "2026-08-25",
		record.ScheduleItem{ID: "b", Content: "exam"}))
	assert.Equal(t, []string{"2026-08-24", "2026-08-25"}, s.Dates())

	// Close is idempotent and stops delivery.
	s.Close()
	s.Close()
	require.NoError(t, store.AddSchedule(context.Background(), "2026-08-26",
		record.ScheduleItem{ID: "c", Content: "retro"}))
	assert.NotContains(t, s.Dates(), "2026-08-26")
}
