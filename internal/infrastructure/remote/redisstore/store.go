// Package redisstore implements the remote document store contract on
// Redis: per-user documents in hashes, live push subscriptions over Redis
// Pub/Sub. Each write bumps a per-document version counter and publishes a
// change notification; subscribers reload the whole document and deliver it
// as a snapshot, which matches the whole-document-replacement contract.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/moyeostudy/moyeo-hub/internal/domain/record"
	"github.com/moyeostudy/moyeo-hub/internal/domain/shared"
	"github.com/moyeostudy/moyeo-hub/pkg/logger"
)

// Key layout.
const (
	prefixDoc     = "record:"     // record:<kind>:<userID> -> hash
	prefixVersion = "record:ver:" // record:ver:<kind>:<id> -> counter
	prefixEvents  = "record:events:"

	// scheduleEventsChannel carries date keys for changed schedule
	// documents. Schedule docs are per-date, so one channel serves all
	// subscribers.
	scheduleEventsChannel = prefixEvents + "schedule"
)

// Config holds Redis connection configuration.
type Config struct {
	// Addr is the Redis server address in "host:port" format.
	Addr string

	// Password is the Redis authentication password (empty if no auth).
	Password string

	// DB is the Redis database number.
	DB int

	// PoolSize is the maximum number of socket connections.
	PoolSize int

	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration

	// ReadTimeout is the timeout for socket reads.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for socket writes.
	WriteTimeout time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Store is the Redis-backed implementation of record.Store.
type Store struct {
	client *redis.Client
	log    *logger.Logger
}

// New connects to Redis and verifies the connection.
func New(cfg Config, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisstore: failed to ping: %w", err)
	}

	return &Store{
		client: client,
		log:    log.With(logger.Component("redisstore")),
	}, nil
}

// NewWithClient wraps an existing client (tests, shared pools).
func NewWithClient(client *redis.Client, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Default()
	}
	return &Store{client: client, log: log.With(logger.Component("redisstore"))}
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func docKey(kind record.Kind, id string) string {
	return prefixDoc + string(kind) + ":" + id
}

func versionKey(kind record.Kind, id string) string {
	return prefixVersion + string(kind) + ":" + id
}

func eventsChannel(kind record.Kind, userID string) string {
	return prefixEvents + string(kind) + ":" + userID
}

// ─────────────────────────────────────────────────────────────────────────
// Subscriptions
// ─────────────────────────────────────────────────────────────────────────

// subscription is a live pub/sub listener for one document.
type subscription struct {
	cancel context.CancelFunc
	pubsub *redis.PubSub
	wg     sync.WaitGroup
	once   sync.Once
}

// Close cancels the subscription. Synchronous and idempotent: after the
// first call returns, no further snapshot is delivered.
func (s *subscription) Close() {
	s.once.Do(func() {
		s.cancel()
		_ = s.pubsub.Close()
		s.wg.Wait()
	})
}

// SubscribeParticipation opens a live subscription to one user's
// participation document.
func (s *Store) SubscribeParticipation(ctx context.Context, userID string, fn record.SnapshotFunc) (record.Subscription, error) {
	return s.subscribeUser(ctx, record.KindParticipation, userID, fn)
}

// SubscribeStudyHours opens a live subscription to one user's study-hours
// document.
func (s *Store) SubscribeStudyHours(ctx context.Context, userID string, fn record.SnapshotFunc) (record.Subscription, error) {
	return s.subscribeUser(ctx, record.KindStudyHours, userID, fn)
}

// SubscribeGoals opens a live subscription to one user's goal collection.
func (s *Store) SubscribeGoals(ctx context.Context, userID string, fn record.SnapshotFunc) (record.Subscription, error) {
	return s.subscribeUser(ctx, record.KindGoals, userID, fn)
}

func (s *Store) subscribeUser(ctx context.Context, kind record.Kind, userID string, fn record.SnapshotFunc) (record.Subscription, error) {
	subCtx, cancel := context.WithCancel(context.Background())

	pubsub := s.client.Subscribe(subCtx, eventsChannel(kind, userID))
	// Force the subscription onto the wire before the initial load, so a
	// write between load and listen still produces a notification.
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("redisstore: subscribe %s/%s: %w", kind, userID, err)
	}

	sub := &subscription{cancel: cancel, pubsub: pubsub}

	// Initial snapshot: the current document state.
	snap, err := s.loadSnapshot(ctx, kind, userID)
	if err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, err
	}
	fn(snap)

	sub.wg.Add(1)
	go func() {
		defer sub.wg.Done()
		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				snap, err := s.loadSnapshot(subCtx, kind, userID)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						s.log.Warn("failed to reload document after change",
							logger.RecordKind(string(kind)),
							logger.ParticipantID(userID),
							logger.Err(err),
						)
					}
					continue
				}
				fn(snap)
			}
		}
	}()

	return sub, nil
}

// SubscribeSchedules opens a live subscription to every per-date schedule
// document. The current state of every date is delivered first.
func (s *Store) SubscribeSchedules(ctx context.Context, fn record.ScheduleSnapshotFunc) (record.Subscription, error) {
	subCtx, cancel := context.WithCancel(context.Background())

	pubsub := s.client.Subscribe(subCtx, scheduleEventsChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("redisstore: subscribe schedules: %w", err)
	}

	sub := &subscription{cancel: cancel, pubsub: pubsub}

	// Initial snapshots: one per existing date document.
	dates, err := s.scanScheduleDates(ctx)
	if err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, err
	}
	for _, date := range dates {
		snap, err := s.loadScheduleSnapshot(ctx, date)
		if err != nil {
			s.log.Warn("failed to load schedule document", logger.DateKey(date), logger.Err(err))
			continue
		}
		fn(snap)
	}

	sub.wg.Add(1)
	go func() {
		defer sub.wg.Done()
		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				date := msg.Payload
				snap, err := s.loadScheduleSnapshot(subCtx, date)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						s.log.Warn("failed to reload schedule document", logger.DateKey(date), logger.Err(err))
					}
					continue
				}
				fn(snap)
			}
		}
	}()

	return sub, nil
}

// ─────────────────────────────────────────────────────────────────────────
// Document loading (coercion boundary)
// ─────────────────────────────────────────────────────────────────────────

func (s *Store) loadSnapshot(ctx context.Context, kind record.Kind, userID string) (record.Snapshot, error) {
	snap := record.Snapshot{Kind: kind, UserID: userID}

	version, err := s.client.Get(ctx, versionKey(kind, userID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return snap, fmt.Errorf("redisstore: load version: %w", err)
	}
	snap.Version = version

	fields, err := s.client.HGetAll(ctx, docKey(kind, userID)).Result()
	if err != nil {
		return snap, fmt.Errorf("redisstore: load %s/%s: %w", kind, userID, err)
	}

	switch kind {
	case record.KindParticipation:
		doc := make(record.ParticipationDoc, len(fields))
		for date, raw := range fields {
			var detail record.DayDetail
			if err := json.Unmarshal([]byte(raw), &detail); err != nil {
				s.log.Warn("skipping malformed participation entry", logger.DateKey(date), logger.Err(err))
				continue
			}
			doc[date] = detail
		}
		snap.Participation = doc

	case record.KindStudyHours:
		doc := make(record.StudyHoursDoc, len(fields))
		for date, raw := range fields {
			var hours record.StudyHours
			if err := json.Unmarshal([]byte(raw), &hours); err != nil {
				s.log.Warn("skipping malformed study-hours entry", logger.DateKey(date), logger.Err(err))
				continue
			}
			doc[date] = hours
		}
		snap.StudyHours = doc

	case record.KindGoals:
		doc := make(record.GoalsDoc, 0, len(fields))
		for id, raw := range fields {
			var goal record.Goal
			if err := json.Unmarshal([]byte(raw), &goal); err != nil {
				s.log.Warn("skipping malformed goal", logger.GoalID(id), logger.Err(err))
				continue
			}
			doc = append(doc, goal)
		}
		// Hash fields carry no order; insertion order is recovered from
		// creation timestamps.
		sort.Slice(doc, func(i, j int) bool {
			return doc[i].CreatedAt.Before(doc[j].CreatedAt)
		})
		snap.Goals = doc
	}

	snap.Normalize()
	return snap, nil
}

func (s *Store) loadScheduleSnapshot(ctx context.Context, date string) (record.ScheduleSnapshot, error) {
	snap := record.ScheduleSnapshot{Date: date}

	version, err := s.client.Get(ctx, versionKey(record.KindSchedule, date)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return snap, fmt.Errorf("redisstore: load schedule version: %w", err)
	}
	snap.Version = version

	raw, err := s.client.Get(ctx, docKey(record.KindSchedule, date)).Result()
	if errors.Is(err, redis.Nil) {
		return snap, nil // deleted date, empty snapshot removes the bucket
	}
	if err != nil {
		return snap, fmt.Errorf("redisstore: load schedule %s: %w", date, err)
	}

	if err := json.Unmarshal([]byte(raw), &snap.Doc); err != nil {
		s.log.Warn("skipping malformed schedule document", logger.DateKey(date), logger.Err(err))
		snap.Doc = record.ScheduleDoc{}
	}
	return snap, nil
}

func (s *Store) scanScheduleDates(ctx context.Context) ([]string, error) {
	var dates []string
	iter := s.client.Scan(ctx, 0, docKey(record.KindSchedule, "*"), 100).Iterator()
	prefix := docKey(record.KindSchedule, "")
	for iter.Next(ctx) {
		dates = append(dates, iter.Val()[len(prefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redisstore: scan schedules: %w", err)
	}
	sort.Strings(dates)
	return dates, nil
}

// ─────────────────────────────────────────────────────────────────────────
// Writes (partial merges and field-level deletes)
// ─────────────────────────────────────────────────────────────────────────

// notify bumps the document version and publishes the change.
func (s *Store) notify(ctx context.Context, kind record.Kind, id, channel string) error {
	if err := s.client.Incr(ctx, versionKey(kind, id)).Err(); err != nil {
		return fmt.Errorf("redisstore: bump version: %w", err)
	}
	if err := s.client.Publish(ctx, channel, id).Err(); err != nil {
		return fmt.Errorf("redisstore: publish change: %w", err)
	}
	return nil
}

// SetParticipation merge-writes one date's detail without touching sibling
// dates.
func (s *Store) SetParticipation(ctx context.Context, userID, date string, detail record.DayDetail) error {
	data, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("redisstore: marshal detail: %w", err)
	}
	if err := s.client.HSet(ctx, docKey(record.KindParticipation, userID), date, data).Err(); err != nil {
		return fmt.Errorf("redisstore: set participation: %w", err)
	}
	return s.notify(ctx, record.KindParticipation, userID, eventsChannel(record.KindParticipation, userID))
}

// RemoveParticipationForDate deletes one date key (field-level delete).
func (s *Store) RemoveParticipationForDate(ctx context.Context, userID, date string) error {
	if err := s.client.HDel(ctx, docKey(record.KindParticipation, userID), date).Err(); err != nil {
		return fmt.Errorf("redisstore: remove participation: %w", err)
	}
	return s.notify(ctx, record.KindParticipation, userID, eventsChannel(record.KindParticipation, userID))
}

// SetStudyHours merge-writes one date's duration entry.
func (s *Store) SetStudyHours(ctx context.Context, userID, date string, hours record.StudyHours) error {
	data, err := json.Marshal(hours)
	if err != nil {
		return fmt.Errorf("redisstore: marshal hours: %w", err)
	}
	if err := s.client.HSet(ctx, docKey(record.KindStudyHours, userID), date, data).Err(); err != nil {
		return fmt.Errorf("redisstore: set study hours: %w", err)
	}
	return s.notify(ctx, record.KindStudyHours, userID, eventsChannel(record.KindStudyHours, userID))
}

// AddGoal stores a new goal document.
func (s *Store) AddGoal(ctx context.Context, goal record.Goal) error {
	data, err := json.Marshal(goal)
	if err != nil {
		return fmt.Errorf("redisstore: marshal goal: %w", err)
	}
	if err := s.client.HSet(ctx, docKey(record.KindGoals, goal.UserID), goal.ID, data).Err(); err != nil {
		return fmt.Errorf("redisstore: add goal: %w", err)
	}
	return s.notify(ctx, record.KindGoals, goal.UserID, eventsChannel(record.KindGoals, goal.UserID))
}

// UpdateGoal rewrites a goal's content.
func (s *Store) UpdateGoal(ctx context.Context, userID, goalID, content string) error {
	return s.mutateGoal(ctx, userID, goalID, func(g *record.Goal) {
		g.Content = content
	})
}

// ToggleGoal flips a goal's completed state.
func (s *Store) ToggleGoal(ctx context.Context, userID, goalID string) error {
	return s.mutateGoal(ctx, userID, goalID, func(g *record.Goal) {
		g.Completed = !g.Completed
	})
}

// DeleteGoal removes one goal document.
func (s *Store) DeleteGoal(ctx context.Context, userID, goalID string) error {
	if err := s.client.HDel(ctx, docKey(record.KindGoals, userID), goalID).Err(); err != nil {
		return fmt.Errorf("redisstore: delete goal: %w", err)
	}
	return s.notify(ctx, record.KindGoals, userID, eventsChannel(record.KindGoals, userID))
}

func (s *Store) mutateGoal(ctx context.Context, userID, goalID string, fn func(*record.Goal)) error {
	key := docKey(record.KindGoals, userID)
	raw, err := s.client.HGet(ctx, key, goalID).Result()
	if errors.Is(err, redis.Nil) {
		return shared.ErrGoalNotFound
	}
	if err != nil {
		return fmt.Errorf("redisstore: load goal: %w", err)
	}

	var goal record.Goal
	if err := json.Unmarshal([]byte(raw), &goal); err != nil {
		return fmt.Errorf("redisstore: unmarshal goal: %w", err)
	}
	fn(&goal)

	data, err := json.Marshal(goal)
	if err != nil {
		return fmt.Errorf("redisstore: marshal goal: %w", err)
	}
	if err := s.client.HSet(ctx, key, goalID, data).Err(); err != nil {
		return fmt.Errorf("redisstore: store goal: %w", err)
	}
	return s.notify(ctx, record.KindGoals, userID, eventsChannel(record.KindGoals, userID))
}

// AddSchedule appends an item to one date's list (read-modify-write).
func (s *Store) AddSchedule(ctx context.Context, date string, item record.ScheduleItem) error {
	return s.mutateSchedule(ctx, date, func(doc *record.ScheduleDoc) {
		doc.Items = append(doc.Items, item)
	})
}

// UpdateSchedule rewrites one item's content.
func (s *Store) UpdateSchedule(ctx context.Context, date, itemID, content string) error {
	return s.mutateSchedule(ctx, date, func(doc *record.ScheduleDoc) {
		for i := range doc.Items {
			if doc.Items[i].ID == itemID {
				doc.Items[i].Content = content
				return
			}
		}
	})
}

// RemoveSchedule deletes one item; removing the last item deletes the date
// document itself.
func (s *Store) RemoveSchedule(ctx context.Context, date, itemID string) error {
	return s.mutateSchedule(ctx, date, func(doc *record.ScheduleDoc) {
		kept := doc.Items[:0]
		for _, item := range doc.Items {
			if item.ID != itemID {
				kept = append(kept, item)
			}
		}
		doc.Items = kept
	})
}

func (s *Store) mutateSchedule(ctx context.Context, date string, fn func(*record.ScheduleDoc)) error {
	key := docKey(record.KindSchedule, date)

	var doc record.ScheduleDoc
	raw, err := s.client.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redisstore: load schedule: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			s.log.Warn("replacing malformed schedule document", logger.DateKey(date), logger.Err(err))
			doc = record.ScheduleDoc{}
		}
	}

	fn(&doc)

	if len(doc.Items) == 0 {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redisstore: delete schedule: %w", err)
		}
	} else {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("redisstore: marshal schedule: %w", err)
		}
		if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
			return fmt.Errorf("redisstore: store schedule: %w", err)
		}
	}

	if err := s.client.Incr(ctx, versionKey(record.KindSchedule, date)).Err(); err != nil {
		return fmt.Errorf("redisstore: bump schedule version: %w", err)
	}
	if err := s.client.Publish(ctx, scheduleEventsChannel, date).Err(); err != nil {
		return fmt.Errorf("redisstore: publish schedule change: %w", err)
	}
	return nil
}

// PurgeUser removes every document owned by the given user and notifies
// any remaining subscribers.
func (s *Store) PurgeUser(ctx context.Context, userID string) error {
	for _, kind := range record.Kinds {
		if err := s.client.Del(ctx, docKey(kind, userID)).Err(); err != nil {
			return fmt.Errorf("redisstore: purge %s/%s: %w", kind, userID, err)
		}
		if err := s.notify(ctx, kind, userID, eventsChannel(kind, userID)); err != nil {
			return err
		}
	}
	return nil
}
