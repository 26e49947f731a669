package merge

import (
	"context"
	"sort"
	"sync"

	"github.com/moyeostudy/moyeo-hub/internal/domain/record"
	"github.com/moyeostudy/moyeo-hub/internal/infrastructure/messaging"
	"github.com/moyeostudy/moyeo-hub/pkg/logger"
)

// ScheduleStore holds the merged per-date schedule notes. Unlike the
// per-user record kinds it is a simple per-date list structure, but it
// follows the same merge discipline: whole-document snapshots, single
// writer, date buckets removed when the last item goes.
type ScheduleStore struct {
	store record.Store
	bus   *messaging.Bus
	log   *logger.Logger

	mu       sync.RWMutex
	byDate   map[string]record.ScheduleDoc
	versions map[string]int64
	sub      record.Subscription
}

// NewScheduleStore creates a schedule store over the given remote store.
func NewScheduleStore(store record.Store, bus *messaging.Bus, log *logger.Logger) *ScheduleStore {
	if log == nil {
		log = logger.Default()
	}
	return &ScheduleStore{
		store:    store,
		bus:      bus,
		log:      log.With(logger.Component("schedule")),
		byDate:   make(map[string]record.ScheduleDoc),
		versions: make(map[string]int64),
	}
}

// Start opens the live subscription to all per-date schedule documents.
func (s *ScheduleStore) Start(ctx context.Context) error {
	sub, err := s.store.SubscribeSchedules(ctx, s.ApplySnapshot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
	return nil
}

// Close cancels the schedule subscription. Idempotent.
func (s *ScheduleStore) Close() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}

// ApplySnapshot folds one date's whole schedule document into merged state.
// An empty item list removes the date bucket. Stale versions are dropped.
func (s *ScheduleStore) ApplySnapshot(snap record.ScheduleSnapshot) {
	if snap.Date == "" {
		return
	}

	s.mu.Lock()
	if snap.Version != 0 && snap.Version <= s.versions[snap.Date] {
		s.mu.Unlock()
		s.log.Debug("dropping stale schedule snapshot", logger.DateKey(snap.Date))
		return
	}
	s.versions[snap.Date] = snap.Version

	if len(snap.Doc.Items) == 0 {
		delete(s.byDate, snap.Date)
	} else {
		s.byDate[snap.Date] = snap.Doc.Clone()
	}
	s.mu.Unlock()

	s.publish(snap.Date)
}

// ─────────────────────────────────────────────────────────────────────────
// Optimistic local mutation
// ─────────────────────────────────────────────────────────────────────────

// ApplyLocalAdd appends an item to one date's list.
func (s *ScheduleStore) ApplyLocalAdd(date string, item record.ScheduleItem) {
	s.mu.Lock()
	doc := s.byDate[date]
	doc.Items = append(doc.Items, item)
	s.byDate[date] = doc
	s.mu.Unlock()

	s.publish(date)
}

// ApplyLocalUpdate rewrites the content of one item.
func (s *ScheduleStore) ApplyLocalUpdate(date, itemID, content string) {
	s.mu.Lock()
	doc := s.byDate[date]
	for i := range doc.Items {
		if doc.Items[i].ID == itemID {
			doc.Items[i].Content = content
			break
		}
	}
	s.byDate[date] = doc
	s.mu.Unlock()

	s.publish(date)
}

// ApplyLocalRemove deletes one item; deleting the last item removes the
// date bucket itself.
func (s *ScheduleStore) ApplyLocalRemove(date, itemID string) {
	s.mu.Lock()
	doc, ok := s.byDate[date]
	if ok {
		kept := doc.Items[:0]
		for _, item := range doc.Items {
			if item.ID != itemID {
				kept = append(kept, item)
			}
		}
		doc.Items = kept
		if len(doc.Items) == 0 {
			delete(s.byDate, date)
		} else {
			s.byDate[date] = doc
		}
	}
	s.mu.Unlock()

	s.publish(date)
}

// ─────────────────────────────────────────────────────────────────────────
// Read accessors
// ─────────────────────────────────────────────────────────────────────────

// ForDate returns the items for one date in insertion order.
func (s *ScheduleStore) ForDate(date string) []record.ScheduleItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.byDate[date]
	if !ok {
		return nil
	}
	return doc.Clone().Items
}

// Dates returns every date that currently has schedule items, sorted.
func (s *ScheduleStore) Dates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dates := make([]string, 0, len(s.byDate))
	for date := range s.byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// All returns a copy of the whole merged schedule state.
func (s *ScheduleStore) All() map[string]record.ScheduleDoc {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]record.ScheduleDoc, len(s.byDate))
	for date, doc := range s.byDate {
		out[date] = doc.Clone()
	}
	return out
}

func (s *ScheduleStore) publish(date string) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(messaging.Event{Type: messaging.EventScheduleMerged, Date: date}); err != nil {
		s.log.Warn("failed to publish schedule event", logger.Err(err))
	}
}
