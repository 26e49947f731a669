// Package command contains write operations (CQRS - Commands).
//
// Every command follows the same discipline: validate, apply the optimistic
// local update to merged state, then issue the remote write. Remote write
// failures are caught, surfaced through the Notifier as a user-visible
// error, and returned; the optimistic local state is NOT rolled back, so
// local and remote may diverge until the next snapshot arrives.
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/moyeostudy/moyeo-hub/internal/domain/shared"
	"github.com/moyeostudy/moyeo-hub/internal/infrastructure/notify"
	"github.com/moyeostudy/moyeo-hub/pkg/logger"
	"github.com/moyeostudy/moyeo-hub/pkg/retry"
)

// WritePolicy is the retry budget shared by every handler's remote writes.
// The zero value falls back to the default remote-store retrier.
type WritePolicy struct {
	// MaxAttempts is the total attempt count, including the first write.
	MaxAttempts int

	// BaseDelay and MaxDelay bound the exponential backoff between attempts.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// Timeout caps one whole write, retries included. Zero means no cap
	// beyond the caller's context.
	Timeout time.Duration
}

func (p WritePolicy) retrier() *retry.Retrier {
	if p.MaxAttempts <= 0 {
		return retry.RemoteStoreRetrier()
	}
	return retry.New(
		retry.WithMaxAttempts(p.MaxAttempts),
		retry.WithInitialDelay(p.BaseDelay),
		retry.WithMaxDelay(p.MaxDelay),
	)
}

// remoteWriter wraps remote store writes with retry and error surfacing.
type remoteWriter struct {
	retrier  *retry.Retrier
	timeout  time.Duration
	notifier notify.Notifier
	log      *logger.Logger
}

func newRemoteWriter(policy WritePolicy, notifier notify.Notifier, log *logger.Logger) *remoteWriter {
	if notifier == nil {
		notifier = notify.NewLogNotifier(log)
	}
	return &remoteWriter{
		retrier:  policy.retrier(),
		timeout:  policy.Timeout,
		notifier: notifier,
		log:      log,
	}
}

// write runs one remote write with retries. On final failure it surfaces a
// user-visible error notification and returns a RemoteWrite domain error.
// The caller's optimistic local update stays in place either way.
func (w *remoteWriter) write(ctx context.Context, domain, op string, fn func(ctx context.Context) error) error {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	err := w.retrier.Do(ctx, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return retry.Retryable(err)
		}
		return nil
	})
	if err == nil {
		return nil
	}

	w.log.Error("remote write failed",
		logger.Component(domain),
		logger.Operation(op),
		logger.Err(err),
	)
	w.notifier.Error(fmt.Sprintf("failed to save %s change, local view may be out of date", domain))
	return shared.WrapError(domain, op, shared.ErrRemoteWrite, "remote write failed", err)
}
