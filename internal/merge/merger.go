// Package merge owns the merged, date-indexed in-memory state built from
// every participant's live document subscriptions.
//
// The merged maps are a derived, rebuildable cache; the remote per-user
// documents stay the durable owners. All mutation funnels through a single
// writer guarded by one mutex per store, so snapshot delivery goroutines and
// optimistic local edits never interleave mid-merge. Everything handed out
// by the read accessors is a deep copy.
package merge

import (
	"context"
	"sync"

	"github.com/moyeostudy/moyeo-hub/internal/domain/record"
	"github.com/moyeostudy/moyeo-hub/internal/infrastructure/messaging"
	"github.com/moyeostudy/moyeo-hub/pkg/logger"
)

// ParticipationState is the merged participation view:
// date -> userID -> detail.
type ParticipationState map[string]map[string]record.DayDetail

// StudyHoursState is the merged study-hours view: date -> userID -> entry.
type StudyHoursState map[string]map[string]record.StudyHours

// GoalsState is the merged goal view: userID -> goals in insertion order.
type GoalsState map[string]record.GoalsDoc

// subscriptionSet holds the open handles for one tracked participant,
// indexed by record kind.
type subscriptionSet map[record.Kind]record.Subscription

func (s subscriptionSet) closeAll() {
	for _, sub := range s {
		sub.Close()
	}
}

// Merger tracks one subscription per participant per record kind and folds
// each incoming whole-document snapshot into shared merged state.
//
// The merge is last-writer-wins per (date, user) pair: snapshots from
// different users never touch each other's sub-keys, so merging is
// commutative across users and safe under out-of-order delivery between
// users. Snapshots from the same user carry a monotonic version and are
// dropped when older than the last applied one.
type Merger struct {
	store record.Store
	bus   *messaging.Bus
	log   *logger.Logger

	mu            sync.RWMutex
	participation ParticipationState
	studyHours    StudyHoursState
	goals         GoalsState

	// versions holds the last applied snapshot version per kind per user.
	versions map[record.Kind]map[string]int64

	// subs is the registry of cancellable subscription handles, indexed by
	// participant ID.
	subs map[string]subscriptionSet
}

// NewMerger creates a merger over the given store. The bus may be nil when
// no listeners need change notifications (tests).
func NewMerger(store record.Store, bus *messaging.Bus, log *logger.Logger) *Merger {
	if log == nil {
		log = logger.Default()
	}
	return &Merger{
		store:         store,
		bus:           bus,
		log:           log.With(logger.Component("merger")),
		participation: make(ParticipationState),
		studyHours:    make(StudyHoursState),
		goals:         make(GoalsState),
		versions: map[record.Kind]map[string]int64{
			record.KindParticipation: {},
			record.KindStudyHours:    {},
			record.KindGoals:         {},
		},
		subs: make(map[string]subscriptionSet),
	}
}

// ─────────────────────────────────────────────────────────────────────────
// Roster tracking
// ─────────────────────────────────────────────────────────────────────────

// TrackParticipant opens one subscription per tracked record kind for the
// given participant. Until the first snapshot arrives the participant
// simply has no merged entries; callers must not assume completeness until
// every subscription has delivered at least once.
//
// Tracking an already-tracked participant is a no-op.
func (m *Merger) TrackParticipant(ctx context.Context, userID string) error {
	m.mu.Lock()
	if _, ok := m.subs[userID]; ok {
		m.mu.Unlock()
		return nil
	}
	// Reserve the slot so concurrent Track calls for the same user bail out
	// above while we subscribe outside the lock.
	m.subs[userID] = subscriptionSet{}
	m.mu.Unlock()

	opened := subscriptionSet{}
	type subscribeFn func(context.Context, string, record.SnapshotFunc) (record.Subscription, error)
	kinds := map[record.Kind]subscribeFn{
		record.KindParticipation: m.store.SubscribeParticipation,
		record.KindStudyHours:    m.store.SubscribeStudyHours,
		record.KindGoals:         m.store.SubscribeGoals,
	}

	for kind, subscribe := range kinds {
		sub, err := subscribe(ctx, userID, m.ApplyUserSnapshot)
		if err != nil {
			opened.closeAll()
			m.mu.Lock()
			delete(m.subs, userID)
			m.mu.Unlock()
			return err
		}
		opened[kind] = sub
	}

	m.mu.Lock()
	if _, reserved := m.subs[userID]; !reserved {
		// Untracked while we were subscribing; the untrack wins, so the
		// fresh subscriptions must not be installed.
		m.mu.Unlock()
		opened.closeAll()
		return nil
	}
	m.subs[userID] = opened
	m.mu.Unlock()

	m.log.Info("tracking participant", logger.ParticipantID(userID))
	m.publish(messaging.Event{Type: messaging.EventRosterChanged, UserID: userID})
	return nil
}

// UntrackParticipant closes all of the participant's subscriptions and
// purges their entries from merged state. Safe to call for unknown or
// already-untracked participants.
func (m *Merger) UntrackParticipant(userID string) {
	m.mu.Lock()
	set, ok := m.subs[userID]
	delete(m.subs, userID)

	for date, users := range m.participation {
		delete(users, userID)
		if len(users) == 0 {
			delete(m.participation, date)
		}
	}
	for date, users := range m.studyHours {
		delete(users, userID)
		if len(users) == 0 {
			delete(m.studyHours, date)
		}
	}
	delete(m.goals, userID)
	for _, byUser := range m.versions {
		delete(byUser, userID)
	}
	m.mu.Unlock()

	if ok {
		set.closeAll()
		m.log.Info("untracked participant", logger.ParticipantID(userID))
	}
	m.publish(messaging.Event{Type: messaging.EventRosterChanged, UserID: userID})
}

// Tracked returns the IDs of currently tracked participants.
func (m *Merger) Tracked() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	return ids
}

// Close untracks every participant and closes all subscriptions.
func (m *Merger) Close() {
	m.mu.Lock()
	sets := make([]subscriptionSet, 0, len(m.subs))
	for _, set := range m.subs {
		sets = append(sets, set)
	}
	m.subs = make(map[string]subscriptionSet)
	m.mu.Unlock()

	for _, set := range sets {
		set.closeAll()
	}
}

// ─────────────────────────────────────────────────────────────────────────
// Snapshot merging (sole remote mutation entry point)
// ─────────────────────────────────────────────────────────────────────────

// ApplyUserSnapshot folds one whole-document snapshot into merged state.
// For every date present in the snapshot the user's entry is replaced; any
// date previously attributed to the user but absent from the snapshot is
// removed, and date buckets that become empty disappear entirely.
//
// Snapshots whose version is not newer than the last applied one for the
// same user are dropped.
func (m *Merger) ApplyUserSnapshot(snap record.Snapshot) {
	snap.Normalize()

	m.mu.Lock()

	byUser, ok := m.versions[snap.Kind]
	if !ok {
		m.mu.Unlock()
		m.log.Warn("snapshot for untracked record kind",
			logger.RecordKind(string(snap.Kind)),
			logger.ParticipantID(snap.UserID),
		)
		return
	}
	if snap.Version != 0 && snap.Version <= byUser[snap.UserID] {
		m.mu.Unlock()
		m.log.Debug("dropping stale snapshot",
			logger.RecordKind(string(snap.Kind)),
			logger.ParticipantID(snap.UserID),
			logger.Int64("version", snap.Version),
		)
		return
	}
	byUser[snap.UserID] = snap.Version

	var event messaging.EventType
	switch snap.Kind {
	case record.KindParticipation:
		m.mergeParticipationLocked(snap.UserID, snap.Participation)
		event = messaging.EventParticipationMerged
	case record.KindStudyHours:
		m.mergeStudyHoursLocked(snap.UserID, snap.StudyHours)
		event = messaging.EventStudyHoursMerged
	case record.KindGoals:
		m.goals[snap.UserID] = snap.Goals.Clone()
		event = messaging.EventGoalsMerged
	}
	m.mu.Unlock()

	m.publish(messaging.Event{Type: event, UserID: snap.UserID})
}

func (m *Merger) mergeParticipationLocked(userID string, doc record.ParticipationDoc) {
	for date, detail := range doc {
		users, ok := m.participation[date]
		if !ok {
			users = make(map[string]record.DayDetail)
			m.participation[date] = users
		}
		users[userID] = detail.Clone()
	}

	// Dates previously attributed to this user but absent from the new
	// snapshot were deleted remotely.
	for date, users := range m.participation {
		if _, inSnap := doc[date]; inSnap {
			continue
		}
		if _, had := users[userID]; !had {
			continue
		}
		delete(users, userID)
		if len(users) == 0 {
			delete(m.participation, date)
		}
	}
}

func (m *Merger) mergeStudyHoursLocked(userID string, doc record.StudyHoursDoc) {
	for date, hours := range doc {
		users, ok := m.studyHours[date]
		if !ok {
			users = make(map[string]record.StudyHours)
			m.studyHours[date] = users
		}
		users[userID] = hours
	}

	for date, users := range m.studyHours {
		if _, inSnap := doc[date]; inSnap {
			continue
		}
		if _, had := users[userID]; !had {
			continue
		}
		delete(users, userID)
		if len(users) == 0 {
			delete(m.studyHours, date)
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────
// Optimistic local mutation (applied before the remote write resolves)
// ─────────────────────────────────────────────────────────────────────────

// ApplyLocalParticipation sets one user's detail for one date in merged
// state without waiting for the remote snapshot.
func (m *Merger) ApplyLocalParticipation(userID, date string, detail record.DayDetail) {
	m.mu.Lock()
	users, ok := m.participation[date]
	if !ok {
		users = make(map[string]record.DayDetail)
		m.participation[date] = users
	}
	users[userID] = detail.Clone()
	m.mu.Unlock()

	m.publish(messaging.Event{Type: messaging.EventParticipationMerged, UserID: userID, Date: date})
}

// RemoveLocalParticipation removes one user's entry for one date. The date
// bucket disappears when the last entry goes.
func (m *Merger) RemoveLocalParticipation(userID, date string) {
	m.mu.Lock()
	if users, ok := m.participation[date]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(m.participation, date)
		}
	}
	m.mu.Unlock()

	m.publish(messaging.Event{Type: messaging.EventParticipationMerged, UserID: userID, Date: date})
}

// ApplyLocalStudyHours sets one user's study-hours entry for one date.
func (m *Merger) ApplyLocalStudyHours(userID, date string, hours record.StudyHours) {
	m.mu.Lock()
	users, ok := m.studyHours[date]
	if !ok {
		users = make(map[string]record.StudyHours)
		m.studyHours[date] = users
	}
	users[userID] = hours
	m.mu.Unlock()

	m.publish(messaging.Event{Type: messaging.EventStudyHoursMerged, UserID: userID, Date: date})
}

// ApplyLocalGoals replaces one user's goal collection.
func (m *Merger) ApplyLocalGoals(userID string, goals record.GoalsDoc) {
	m.mu.Lock()
	m.goals[userID] = goals.Clone()
	m.mu.Unlock()

	m.publish(messaging.Event{Type: messaging.EventGoalsMerged, UserID: userID})
}

// ─────────────────────────────────────────────────────────────────────────
// Read accessors (deep copies; callers treat results as snapshots)
// ─────────────────────────────────────────────────────────────────────────

// Participation returns a copy of the whole merged participation state.
func (m *Merger) Participation() ParticipationState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(ParticipationState, len(m.participation))
	for date, users := range m.participation {
		copied := make(map[string]record.DayDetail, len(users))
		for id, detail := range users {
			copied[id] = detail.Clone()
		}
		out[date] = copied
	}
	return out
}

// ParticipationForDate returns every user's detail for one date.
func (m *Merger) ParticipationForDate(date string) map[string]record.DayDetail {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users, ok := m.participation[date]
	if !ok {
		return nil
	}
	out := make(map[string]record.DayDetail, len(users))
	for id, detail := range users {
		out[id] = detail.Clone()
	}
	return out
}

// DetailFor returns one user's detail for one date.
func (m *Merger) DetailFor(userID, date string) (record.DayDetail, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users, ok := m.participation[date]
	if !ok {
		return record.DayDetail{}, false
	}
	detail, ok := users[userID]
	if !ok {
		return record.DayDetail{}, false
	}
	return detail.Clone(), true
}

// StudyHours returns a copy of the whole merged study-hours state.
func (m *Merger) StudyHours() StudyHoursState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(StudyHoursState, len(m.studyHours))
	for date, users := range m.studyHours {
		copied := make(map[string]record.StudyHours, len(users))
		for id, hours := range users {
			copied[id] = hours
		}
		out[date] = copied
	}
	return out
}

// StudyHoursFor returns one user's entry for one date.
func (m *Merger) StudyHoursFor(userID, date string) (record.StudyHours, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users, ok := m.studyHours[date]
	if !ok {
		return record.StudyHours{}, false
	}
	hours, ok := users[userID]
	return hours, ok
}

// GoalsFor returns one user's goals in insertion order.
func (m *Merger) GoalsFor(userID string) record.GoalsDoc {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.goals[userID].Clone()
}

// Goals returns a copy of every user's goal collection.
func (m *Merger) Goals() GoalsState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(GoalsState, len(m.goals))
	for id, doc := range m.goals {
		out[id] = doc.Clone()
	}
	return out
}

func (m *Merger) publish(event messaging.Event) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(event); err != nil {
		m.log.Warn("failed to publish merge event", logger.Err(err))
	}
}
