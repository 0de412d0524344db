// Package profile loads the extended account record, tolerating the
// backend's provisioning lag after signup.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"mindspend/internal/platform/metrics"
	dErrors "mindspend/pkg/domain-errors"
)

// Store defines the persistence interface for profile rows.
// Error Contract: ProfileByID returns a CodeNotFound domain error when
// the row doesn't exist, and a CodeStoreUnavailable error when the
// query itself failed.
type Store interface {
	ProfileByID(ctx context.Context, userID uuid.UUID) (*Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, patch Patch) (*Profile, error)
}

// Loader fetches profiles with optional bounded retry. Concurrent
// fetches for the same user are collapsed into one remote query.
type Loader struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	group   singleflight.Group
}

// Option configures the loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithMetrics enables fetch metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Loader) {
		l.metrics = m
	}
}

// NewLoader constructs a Loader over store.
func NewLoader(store Store, opts ...Option) *Loader {
	l := &Loader{store: store}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// FetchOnce makes a single fetch attempt. A missing row returns
// (nil, nil): absence is a valid transient state, not an error. A
// failed query propagates as a CodeStoreUnavailable error.
func (l *Loader) FetchOnce(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	l.countAttempt()

	v, err, _ := l.group.Do(userID.String(), func() (any, error) {
		return l.store.ProfileByID(ctx, userID)
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			l.countMiss()
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "profile fetch failed")
	}
	return v.(*Profile), nil
}

// FetchWithRetry repeats FetchOnce up to maxAttempts times with a
// fixed delay between attempts, returning on the first hit. Exhausting
// all attempts returns (nil, nil): "no profile yet" is never fatal.
// A store failure during an attempt counts as that attempt and the
// loop continues; bridging flaky moments is the point of the loop.
func (l *Loader) FetchWithRetry(ctx context.Context, userID uuid.UUID, maxAttempts int, delay time.Duration) (*Profile, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		p, err := l.FetchOnce(ctx, userID)
		if err != nil {
			l.logger.WarnContext(ctx, "profile fetch attempt failed",
				"user_id", userID.String(),
				"attempt", attempt,
				"error", err,
			)
		} else if p != nil {
			return p, nil
		}

		if attempt == maxAttempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("profile retry aborted: %w", ctx.Err())
		}
	}

	l.logger.InfoContext(ctx, "profile not present after retries",
		"user_id", userID.String(),
		"attempts", maxAttempts,
	)
	return nil, nil
}

// Update persists a profile patch and returns the updated record.
func (l *Loader) Update(ctx context.Context, userID uuid.UUID, patch Patch) (*Profile, error) {
	p, err := l.store.UpdateProfile(ctx, userID, patch)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "profile update failed")
	}
	return p, nil
}

func (l *Loader) countAttempt() {
	if l.metrics != nil {
		l.metrics.ProfileFetchAttempts.Inc()
	}
}

func (l *Loader) countMiss() {
	if l.metrics != nil {
		l.metrics.ProfileFetchMisses.Inc()
	}
}
