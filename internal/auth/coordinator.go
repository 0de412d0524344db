// Package auth composes the session mirror and the profile loader
// into one observable auth state.
//
// Every provider event and the initial session request funnel into the
// same reconciliation routine, executed by a single goroutine so a
// stale event can never overwrite a newer one mid-pass.
package auth

//go:generate mockgen -source=coordinator.go -destination=mocks/coordinator_mock.go -package=mocks SessionSource,ProfileLoader,FlagStore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mindspend/internal/backend/provider"
	"mindspend/internal/flags"
	"mindspend/internal/platform/metrics"
	"mindspend/internal/profile"
)

// State is the aggregate auth state. Loading=false means a
// determination attempt has completed for the current session; it does
// not guarantee Profile is non-nil.
type State struct {
	User    *provider.User
	Session *provider.Session
	Profile *profile.Profile
	Loading bool
}

// SessionSource mirrors provider session events. *session.Store
// satisfies it.
type SessionSource interface {
	Subscribe(handler provider.Handler) (cancel func())
	Current() *provider.Session
}

// ProfileLoader fetches extended profile records.
type ProfileLoader interface {
	FetchOnce(ctx context.Context, userID uuid.UUID) (*profile.Profile, error)
	FetchWithRetry(ctx context.Context, userID uuid.UUID, maxAttempts int, delay time.Duration) (*profile.Profile, error)
}

// FlagStore persists the local flags consulted during reconciliation.
// *flags.Store satisfies it.
type FlagStore interface {
	Get() flags.Flags
	SetHasVisited(bool) error
	SetUserSignedOut(bool) error
	SetAccountDeleted(bool) error
}

const (
	defaultRetryAttempts = 3
	defaultRetryDelay    = 500 * time.Millisecond
)

type pass struct {
	kind    provider.EventKind
	session *provider.Session
}

// Coordinator owns the process-wide auth state. Only the coordinator
// writes it; consumers observe it through Subscribe or CurrentState.
type Coordinator struct {
	sessions      SessionSource
	loader        ProfileLoader
	flags         FlagStore
	provider      Provider
	mailer        Mailer
	logger        *slog.Logger
	metrics       *metrics.Metrics
	retryAttempts int
	retryDelay    time.Duration

	mu          sync.Mutex
	state       State
	watchers    map[int]func(State)
	nextWatcher int
	closed      bool

	passes   chan pass
	recovery chan struct{}
	done     chan struct{}
	stopped  chan struct{}
	detach   func()
}

// Option configures the coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithMetrics enables reconciliation metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithRetryPolicy tunes the provisioning-lag retry used on sign-in.
func WithRetryPolicy(attempts int, delay time.Duration) Option {
	return func(c *Coordinator) {
		if attempts > 0 {
			c.retryAttempts = attempts
		}
		if delay > 0 {
			c.retryDelay = delay
		}
	}
}

// New constructs the coordinator and starts reconciling. The current
// session is requested immediately; provider events are subscribed in
// parallel. Both paths feed the same serialized pass queue.
func New(sessions SessionSource, loader ProfileLoader, flagStore FlagStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		sessions:      sessions,
		loader:        loader,
		flags:         flagStore,
		retryAttempts: defaultRetryAttempts,
		retryDelay:    defaultRetryDelay,
		state:         State{Loading: true},
		watchers:      make(map[int]func(State)),
		passes:        make(chan pass, 16),
		recovery:      make(chan struct{}, 1),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	go c.run()
	c.detach = sessions.Subscribe(func(kind provider.EventKind, sess *provider.Session) {
		c.enqueue(pass{kind: kind, session: sess})
	})
	c.enqueue(pass{kind: provider.EventInitialSession, session: sessions.Current()})

	if err := flagStore.SetHasVisited(true); err != nil {
		c.logger.Warn("visited flag not persisted", "error", err)
	}
	return c
}

// CurrentState returns the latest published state.
func (c *Coordinator) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers a watcher, immediately invoked with the current
// state, then on every subsequent publication. The returned func
// removes the watcher.
func (c *Coordinator) Subscribe(watcher func(State)) (cancel func()) {
	c.mu.Lock()
	id := c.nextWatcher
	c.nextWatcher++
	c.watchers[id] = watcher
	current := c.state
	c.mu.Unlock()

	watcher(current)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.watchers, id)
	}
}

// Recovery signals a password-recovery flow in progress. It is a side
// channel, not part of State, so the recovery routing never leaks into
// auth-state consumers.
func (c *Coordinator) Recovery() <-chan struct{} {
	return c.recovery
}

// Close stops the reconcile loop and detaches from the session source.
// In-flight passes stop publishing.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	detach := c.detach
	c.mu.Unlock()

	if detach != nil {
		detach()
	}
	close(c.done)
	<-c.stopped
}

func (c *Coordinator) enqueue(p pass) {
	select {
	case c.passes <- p:
	case <-c.done:
	}
}

func (c *Coordinator) run() {
	defer close(c.stopped)
	for {
		select {
		case p := <-c.passes:
			c.reconcile(p)
		case <-c.done:
			return
		}
	}
}

// reconcile is one complete pass over a session event. It always
// concludes by publishing a state with Loading=false: a failed profile
// fetch degrades to a nil profile, never to a stuck loading flag.
func (c *Coordinator) reconcile(p pass) {
	ctx := context.Background()
	c.countPass(p.kind)

	local := c.flags.Get()

	if p.session == nil || local.AccountDeleted ||
		(p.kind == provider.EventInitialSession && local.UserSignedOut) {
		c.publish(State{})
		return
	}

	if p.kind == provider.EventPasswordRecovery {
		select {
		case c.recovery <- struct{}{}:
		default:
		}
	}

	prof := c.loadProfile(ctx, p)
	c.publish(State{
		User:    &p.session.User,
		Session: p.session,
		Profile: prof,
	})
}

func (c *Coordinator) loadProfile(ctx context.Context, p pass) *profile.Profile {
	userID := p.session.User.ID

	prof, err := c.loader.FetchOnce(ctx, userID)
	if err != nil {
		c.logger.WarnContext(ctx, "profile fetch failed during reconciliation",
			"user_id", userID.String(),
			"event", string(p.kind),
			"error", err,
		)
	}
	if prof != nil {
		return prof
	}

	// Fresh sign-ins are where provisioning lag bites: the profile row
	// of a brand-new account may not exist yet. Other events imply an
	// established account, so a missing row there is published as-is.
	if p.kind != provider.EventSignedIn {
		return nil
	}

	prof, err = c.loader.FetchWithRetry(ctx, userID, c.retryAttempts, c.retryDelay)
	if err != nil {
		c.logger.WarnContext(ctx, "profile retry aborted",
			"user_id", userID.String(),
			"error", err,
		)
		return nil
	}
	return prof
}

func (c *Coordinator) publish(s State) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state = s
	watchers := make([]func(State), 0, len(c.watchers))
	for _, w := range c.watchers {
		watchers = append(watchers, w)
	}
	c.mu.Unlock()

	for _, w := range watchers {
		w(s)
	}
}

func (c *Coordinator) countPass(kind provider.EventKind) {
	if c.metrics != nil {
		c.metrics.ReconcilePasses.WithLabelValues(string(kind)).Inc()
	}
}
