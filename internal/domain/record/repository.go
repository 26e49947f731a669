package record

import (
	"context"
)

// SnapshotFunc receives whole-document snapshots for one user and kind.
// Within a single subscription snapshots arrive in write order; across
// different users there is no ordering guarantee and none is needed,
// because merges are keyed per (date, user).
type SnapshotFunc func(snap Snapshot)

// ScheduleSnapshotFunc receives whole-document snapshots for one date's
// schedule document.
type ScheduleSnapshotFunc func(snap ScheduleSnapshot)

// Subscription is a live push subscription handle.
type Subscription interface {
	// Close cancels the subscription. It is synchronous and idempotent:
	// safe to call multiple times, and no snapshot is delivered after it
	// returns. Required to support rapid roster churn.
	Close()
}

// Store is the remote document store contract. The core treats the store as
// an opaque push-subscription source: one live subscription per participant
// per record kind, whole-document snapshots, partial merge-writes.
//
// Implementations live in infrastructure/remote.
type Store interface {
	// ─── Live subscriptions ───

	// SubscribeParticipation opens a live subscription to one user's
	// participation document. The current document is delivered as the
	// first snapshot.
	SubscribeParticipation(ctx context.Context, userID string, fn SnapshotFunc) (Subscription, error)

	// SubscribeStudyHours opens a live subscription to one user's
	// study-hours document.
	SubscribeStudyHours(ctx context.Context, userID string, fn SnapshotFunc) (Subscription, error)

	// SubscribeGoals opens a live subscription to one user's goal
	// collection.
	SubscribeGoals(ctx context.Context, userID string, fn SnapshotFunc) (Subscription, error)

	// SubscribeSchedules opens a live subscription to every per-date
	// schedule document.
	SubscribeSchedules(ctx context.Context, fn ScheduleSnapshotFunc) (Subscription, error)

	// ─── Participation writes ───

	// SetParticipation merge-writes one user's detail for one date without
	// clearing unrelated dates.
	SetParticipation(ctx context.Context, userID, date string, detail DayDetail) error

	// RemoveParticipationForDate deletes one date key from one user's
	// participation document (field-level delete, not a whole-document
	// replacement).
	RemoveParticipationForDate(ctx context.Context, userID, date string) error

	// ─── Study-hours writes ───

	// SetStudyHours merge-writes one user's duration entry for one date.
	SetStudyHours(ctx context.Context, userID, date string, hours StudyHours) error

	// ─── Goal writes ───

	AddGoal(ctx context.Context, goal Goal) error
	UpdateGoal(ctx context.Context, userID, goalID, content string) error
	ToggleGoal(ctx context.Context, userID, goalID string) error
	DeleteGoal(ctx context.Context, userID, goalID string) error

	// ─── Schedule writes (list read-modify-write keyed by date) ───

	AddSchedule(ctx context.Context, date string, item ScheduleItem) error
	UpdateSchedule(ctx context.Context, date, itemID, content string) error
	RemoveSchedule(ctx context.Context, date, itemID string) error

	// PurgeUser removes every document owned by the given user. Called when
	// a participant leaves the roster.
	PurgeUser(ctx context.Context, userID string) error
}
