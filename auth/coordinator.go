package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultRefreshTimeout bounds a single refresh call. Waiters parked behind
// a refresh that exceeds it are failed rather than stranded.
const DefaultRefreshTimeout = 15 * time.Second

// Tokens is the view of the token store the coordinator and transport need.
type Tokens interface {
	AccessToken() (string, error)
	RefreshToken() (string, error)
	SetTokens(access, refresh string) error
	Clear() error
}

// State is the refresh coordinator state.
type State int

const (
	Idle State = iota
	Refreshing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Refreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Waiter is a parked request continuation. Exactly one of Resume or Fail is
// called, once.
type Waiter struct {
	Resume func(accessToken string)
	Fail   func(err error)
}

// Stats are cumulative coordinator counters. Refreshes counts refresh
// attempts, including those abandoned for lack of a refresh token.
type Stats struct {
	Refreshes       uint64
	RefreshFailures uint64
	WaitersResumed  uint64
	WaitersFailed   uint64
	Expirations     uint64
}

// Coordinator serializes token refreshes. While a refresh is in flight every
// further 401 is parked in a FIFO queue and settled with the outcome of that
// single refresh.
type Coordinator struct {
	tokens    Tokens
	refresher Refresher
	timeout   time.Duration
	logger    *slog.Logger

	mu        sync.Mutex
	state     State
	queue     []Waiter
	listeners map[int]func(error)
	nextID    int
	stats     Stats
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRefreshTimeout overrides DefaultRefreshTimeout. Non-positive values
// are ignored.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for refresh lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCoordinator returns an idle coordinator.
func NewCoordinator(tokens Tokens, refresher Refresher, opts ...Option) *Coordinator {
	c := &Coordinator{
		tokens:    tokens,
		refresher: refresher,
		timeout:   DefaultRefreshTimeout,
		logger:    slog.Default(),
		listeners: make(map[int]func(error)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "auth")
	return c
}

// State reports whether a refresh is in flight.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns the number of parked waiters.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Stats returns a snapshot of the counters.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// OnExpired registers fn to be called once per session expiry with the
// terminal error. The returned func unregisters it.
//
// Listeners run after the coordinator is back to Idle and before the request
// that led the failed refresh returns, so fn may issue requests of its own.
// A refresh that fails while no token was stored ends no session and
// notifies nobody; a listener's own 401 therefore cannot trigger it again.
func (c *Coordinator) OnExpired(fn func(error)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Handle settles w with the outcome of a token refresh and returns at once.
// If no refresh is in flight w becomes the leader: a refresh is started in
// the background, and once it settles every waiter parked meanwhile is
// settled in arrival order, followed by w. Otherwise w is queued.
//
// The refresh runs detached from ctx cancellation so a caller that gives up
// cannot strand the others; it is bounded by the refresh timeout instead.
// Callers wait for their own settlement and may abandon it when their
// context is done.
func (c *Coordinator) Handle(ctx context.Context, w Waiter) {
	c.mu.Lock()
	if c.state == Refreshing {
		c.queue = append(c.queue, w)
		c.mu.Unlock()
		return
	}
	c.state = Refreshing
	c.stats.Refreshes++
	c.mu.Unlock()

	go c.lead(context.WithoutCancel(ctx), w)
}

func (c *Coordinator) lead(ctx context.Context, w Waiter) {
	held := c.holdsSession()
	access, err := c.refresh(ctx)
	if err != nil {
		c.expire(ctx, w, err, held)
		return
	}

	resumed := c.drain(func(q Waiter) { q.Resume(access) })
	c.mu.Lock()
	c.stats.WaitersResumed += uint64(resumed) + 1
	c.mu.Unlock()
	c.logger.LogAttrs(ctx, slog.LevelInfo, "session refreshed",
		slog.Int("waiters", resumed),
	)
	w.Resume(access)
}

// holdsSession reports whether any token is stored. Read errors count as a
// session so that its teardown is still announced.
func (c *Coordinator) holdsSession() bool {
	access, err := c.tokens.AccessToken()
	if err != nil || access != "" {
		return true
	}
	rt, err := c.tokens.RefreshToken()
	return err != nil || rt != ""
}

// refresh reads the refresh token, calls the refresher and stores the new
// pair. The stored pair is visible before any waiter is resumed.
func (c *Coordinator) refresh(ctx context.Context) (string, error) {
	rt, err := c.tokens.RefreshToken()
	if err != nil {
		return "", &RefreshError{Err: fmt.Errorf("reading refresh token: %w", err)}
	}
	if rt == "" {
		return "", ErrNoRefreshToken
	}

	c.logger.LogAttrs(ctx, slog.LevelDebug, "refresh started")
	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	pair, err := c.refresher.Refresh(rctx, rt)
	if err != nil {
		return "", &RefreshError{Err: err}
	}
	if pair.AccessToken == "" {
		return "", &RefreshError{Err: ErrEmptyAccessToken}
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = rt
	}
	if err := c.tokens.SetTokens(pair.AccessToken, pair.RefreshToken); err != nil {
		return "", &RefreshError{Err: fmt.Errorf("storing refreshed tokens: %w", err)}
	}
	return pair.AccessToken, nil
}

// expire tears the session down after a terminal refresh outcome. Tokens are
// cleared before any waiter observes the failure. Queued waiters fail first,
// then the coordinator returns to Idle, then listeners are notified if a
// session was held, and the leader fails last.
func (c *Coordinator) expire(ctx context.Context, leader Waiter, cause error, held bool) {
	if err := c.tokens.Clear(); err != nil {
		c.logger.LogAttrs(ctx, slog.LevelError, "clearing tokens after failed refresh",
			slog.String("error", err.Error()),
		)
	}

	failed := c.drain(func(q Waiter) { q.Fail(cause) })

	c.mu.Lock()
	c.stats.RefreshFailures++
	c.stats.Expirations++
	c.stats.WaitersFailed += uint64(failed) + 1
	var listeners []func(error)
	if held {
		listeners = make([]func(error), 0, len(c.listeners))
		for _, fn := range c.listeners {
			listeners = append(listeners, fn)
		}
	}
	c.mu.Unlock()
	c.logger.LogAttrs(ctx, slog.LevelWarn, "session refresh failed",
		slog.String("error", cause.Error()),
		slog.Int("waiters", failed),
		slog.Bool("session_ended", held),
	)

	for _, fn := range listeners {
		fn(cause)
	}
	leader.Fail(cause)
}

// drain settles queued waiters in arrival order and returns to Idle once the
// queue is empty. Waiters enqueued during the drain are settled by it too,
// so the queue is never left non-empty while Idle.
func (c *Coordinator) drain(settle func(Waiter)) int {
	n := 0
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.queue = nil
			c.state = Idle
			c.mu.Unlock()
			return n
		}
		next := c.queue[0]
		c.queue[0] = Waiter{}
		c.queue = c.queue[1:]
		c.mu.Unlock()

		settle(next)
		n++
	}
}
