// Package memstore implements the remote document store contract fully
// in memory. It backs development runs without Redis and the test suites:
// snapshots are delivered synchronously on the writer's goroutine, which
// makes write-then-assert sequences deterministic.
package memstore

import (
	"context"
	"sync"

	"github.com/moyeostudy/moyeo-hub/internal/domain/record"
	"github.com/moyeostudy/moyeo-hub/internal/domain/shared"
)

type subscriberKey struct {
	kind   record.Kind
	userID string
}

// Store is the in-memory implementation of record.Store.
type Store struct {
	mu sync.Mutex

	participation map[string]record.ParticipationDoc
	studyHours    map[string]record.StudyHoursDoc
	goals         map[string]record.GoalsDoc
	schedules     map[string]record.ScheduleDoc

	// versions is keyed by kind plus owner (userID, or date for schedules).
	versions map[subscriberKey]int64

	subs         map[subscriberKey]map[int]record.SnapshotFunc
	scheduleSubs map[int]record.ScheduleSnapshotFunc
	nextSubID    int

	// writeErr, when set, makes every write fail. Used to exercise the
	// remote-failure paths.
	writeErr error
}

// New creates an empty store.
func New() *Store {
	return &Store{
		participation: make(map[string]record.ParticipationDoc),
		studyHours:    make(map[string]record.StudyHoursDoc),
		goals:         make(map[string]record.GoalsDoc),
		schedules:     make(map[string]record.ScheduleDoc),
		versions:      make(map[subscriberKey]int64),
		subs:          make(map[subscriberKey]map[int]record.SnapshotFunc),
		scheduleSubs:  make(map[int]record.ScheduleSnapshotFunc),
	}
}

// SetWriteError makes every subsequent write fail with err (nil restores
// normal operation). Reads and subscriptions are unaffected.
func (s *Store) SetWriteError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// Close releases all subscriptions.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = make(map[subscriberKey]map[int]record.SnapshotFunc)
	s.scheduleSubs = make(map[int]record.ScheduleSnapshotFunc)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────
// Subscriptions
// ─────────────────────────────────────────────────────────────────────────

type subscription struct {
	once   sync.Once
	cancel func()
}

func (s *subscription) Close() {
	s.once.Do(s.cancel)
}

// SubscribeParticipation opens a live subscription to one user's
// participation document.
func (s *Store) SubscribeParticipation(_ context.Context, userID string, fn record.SnapshotFunc) (record.Subscription, error) {
	return s.subscribe(record.KindParticipation, userID, fn)
}

// SubscribeStudyHours opens a live subscription to one user's study-hours
// document.
func (s *Store) SubscribeStudyHours(_ context.Context, userID string, fn record.SnapshotFunc) (record.Subscription, error) {
	return s.subscribe(record.KindStudyHours, userID, fn)
}

// SubscribeGoals opens a live subscription to one user's goal collection.
func (s *Store) SubscribeGoals(_ context.Context, userID string, fn record.SnapshotFunc) (record.Subscription, error) {
	return s.subscribe(record.KindGoals, userID, fn)
}

func (s *Store) subscribe(kind record.Kind, userID string, fn record.SnapshotFunc) (record.Subscription, error) {
	key := subscriberKey{kind: kind, userID: userID}

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	if s.subs[key] == nil {
		s.subs[key] = make(map[int]record.SnapshotFunc)
	}
	s.subs[key][id] = fn
	snap := s.snapshotLocked(kind, userID)
	s.mu.Unlock()

	// Initial snapshot: the current document state.
	fn(snap)

	return &subscription{cancel: func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[key], id)
	}}, nil
}

// SubscribeSchedules opens a live subscription to every per-date schedule
// document. The current state of every date is delivered first.
func (s *Store) SubscribeSchedules(_ context.Context, fn record.ScheduleSnapshotFunc) (record.Subscription, error) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.scheduleSubs[id] = fn

	initial := make([]record.ScheduleSnapshot, 0, len(s.schedules))
	for date, doc := range s.schedules {
		initial = append(initial, record.ScheduleSnapshot{
			Date:    date,
			Version: s.versions[subscriberKey{kind: record.KindSchedule, userID: date}],
			Doc:     doc.Clone(),
		})
	}
	s.mu.Unlock()

	for _, snap := range initial {
		fn(snap)
	}

	return &subscription{cancel: func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.scheduleSubs, id)
	}}, nil
}

func (s *Store) snapshotLocked(kind record.Kind, userID string) record.Snapshot {
	snap := record.Snapshot{
		Kind:    kind,
		UserID:  userID,
		Version: s.versions[subscriberKey{kind: kind, userID: userID}],
	}
	switch kind {
	case record.KindParticipation:
		snap.Participation = s.participation[userID].Clone()
		if snap.Participation == nil {
			snap.Participation = record.ParticipationDoc{}
		}
	case record.KindStudyHours:
		snap.StudyHours = s.studyHours[userID].Clone()
		if snap.StudyHours == nil {
			snap.StudyHours = record.StudyHoursDoc{}
		}
	case record.KindGoals:
		snap.Goals = s.goals[userID].Clone()
	}
	return snap
}

// bumpAndNotify increments the document version and delivers the new
// snapshot to every subscriber of that document. Caller must hold the lock;
// delivery happens after it is released.
func (s *Store) bumpAndNotify(kind record.Kind, userID string) {
	key := subscriberKey{kind: kind, userID: userID}
	s.versions[key]++
	snap := s.snapshotLocked(kind, userID)
	fns := make([]record.SnapshotFunc, 0, len(s.subs[key]))
	for _, fn := range s.subs[key] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
	s.mu.Lock()
}

func (s *Store) bumpAndNotifySchedule(date string) {
	key := subscriberKey{kind: record.KindSchedule, userID: date}
	s.versions[key]++
	snap := record.ScheduleSnapshot{
		Date:    date,
		Version: s.versions[key],
		Doc:     s.schedules[date].Clone(),
	}
	fns := make([]record.ScheduleSnapshotFunc, 0, len(s.scheduleSubs))
	for _, fn := range s.scheduleSubs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
	s.mu.Lock()
}

// ─────────────────────────────────────────────────────────────────────────
// Writes
// ─────────────────────────────────────────────────────────────────────────

// SetParticipation merge-writes one date's detail.
func (s *Store) SetParticipation(_ context.Context, userID, date string, detail record.DayDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}

	doc := s.participation[userID]
	if doc == nil {
		doc = make(record.ParticipationDoc)
		s.participation[userID] = doc
	}
	doc[date] = detail.Clone()
	s.bumpAndNotify(record.KindParticipation, userID)
	return nil
}

// RemoveParticipationForDate deletes one date key.
func (s *Store) RemoveParticipationForDate(_ context.Context, userID, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}

	delete(s.participation[userID], date)
	s.bumpAndNotify(record.KindParticipation, userID)
	return nil
}

// SetStudyHours merge-writes one date's duration entry.
func (s *Store) SetStudyHours(_ context.Context, userID, date string, hours record.StudyHours) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}

	doc := s.studyHours[userID]
	if doc == nil {
		doc = make(record.StudyHoursDoc)
		s.studyHours[userID] = doc
	}
	doc[date] = hours
	s.bumpAndNotify(record.KindStudyHours, userID)
	return nil
}

// AddGoal stores a new goal.
func (s *Store) AddGoal(_ context.Context, goal record.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}

	s.goals[goal.UserID] = append(s.goals[goal.UserID], goal)
	s.bumpAndNotify(record.KindGoals, goal.UserID)
	return nil
}

// UpdateGoal rewrites a goal's content.
func (s *Store) UpdateGoal(_ context.Context, userID, goalID, content string) error {
	return s.mutateGoal(userID, goalID, func(g *record.Goal) {
		g.Content = content
	})
}

// ToggleGoal flips a goal's completed state.
func (s *Store) ToggleGoal(_ context.Context, userID, goalID string) error {
	return s.mutateGoal(userID, goalID, func(g *record.Goal) {
		g.Completed = !g.Completed
	})
}

// DeleteGoal removes one goal.
func (s *Store) DeleteGoal(_ context.Context, userID, goalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}

	goals := s.goals[userID]
	kept := goals[:0]
	found := false
	for _, g := range goals {
		if g.ID == goalID {
			found = true
			continue
		}
		kept = append(kept, g)
	}
	if !found {
		return shared.ErrGoalNotFound
	}
	s.goals[userID] = kept
	s.bumpAndNotify(record.KindGoals, userID)
	return nil
}

func (s *Store) mutateGoal(userID, goalID string, fn func(*record.Goal)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}

	goals := s.goals[userID]
	for i := range goals {
		if goals[i].ID == goalID {
			fn(&goals[i])
			s.bumpAndNotify(record.KindGoals, userID)
			return nil
		}
	}
	return shared.ErrGoalNotFound
}

// AddSchedule appends an item to one date's list.
func (s *Store) AddSchedule(_ context.Context, date string, item record.ScheduleItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}

	doc := s.schedules[date]
	doc.Items = append(doc.Items, item)
	s.schedules[date] = doc
	s.bumpAndNotifySchedule(date)
	return nil
}

// UpdateSchedule rewrites one item's content.
func (s *Store) UpdateSchedule(_ context.Context, date, itemID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}

	doc := s.schedules[date]
	for i := range doc.Items {
		if doc.Items[i].ID == itemID {
			doc.Items[i].Content = content
			s.schedules[date] = doc
			s.bumpAndNotifySchedule(date)
			return nil
		}
	}
	return shared.ErrScheduleNotFound
}

// RemoveSchedule deletes one item; removing the last item deletes the date
// document.
func (s *Store) RemoveSchedule(_ context.Context, date, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}

	doc := s.schedules[date]
	kept := doc.Items[:0]
	for _, item := range doc.Items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	doc.Items = kept
	if len(doc.Items) == 0 {
		delete(s.schedules, date)
	} else {
		s.schedules[date] = doc
	}
	s.bumpAndNotifySchedule(date)
	return nil
}

// PurgeUser removes every document owned by the given user.
func (s *Store) PurgeUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}

	delete(s.participation, userID)
	delete(s.studyHours, userID)
	delete(s.goals, userID)
	for _, kind := range record.Kinds {
		s.bumpAndNotify(kind, userID)
	}
	return nil
}
