package auth_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/optiva/auth"
)

type memTokens struct {
	mu      sync.Mutex
	access  string
	refresh string
	clears  int
}

func (m *memTokens) AccessToken() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access, nil
}

func (m *memTokens) RefreshToken() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh, nil
}

func (m *memTokens) SetTokens(access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh = access, refresh
	return nil
}

func (m *memTokens) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh = "", ""
	m.clears++
	return nil
}

// gatedRefresher blocks every call until release is closed.
type gatedRefresher struct {
	calls   atomic.Int32
	release chan struct{}
	pair    auth.Pair
	err     error
}

func newGatedRefresher(pair auth.Pair, err error) *gatedRefresher {
	return &gatedRefresher{release: make(chan struct{}), pair: pair, err: err}
}

func (g *gatedRefresher) Refresh(ctx context.Context, _ string) (auth.Pair, error) {
	g.calls.Add(1)
	select {
	case <-g.release:
	case <-ctx.Done():
		return auth.Pair{}, ctx.Err()
	}
	return g.pair, g.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder collects waiter outcomes in settlement order.
type recorder struct {
	mu     sync.Mutex
	order  []string
	tokens map[string]string
	errs   map[string]error
	wg     sync.WaitGroup
}

func newRecorder() *recorder {
	return &recorder{tokens: map[string]string{}, errs: map[string]error{}}
}

func (r *recorder) waiter(name string) auth.Waiter {
	r.wg.Add(1)
	return auth.Waiter{
		Resume: func(tok string) {
			r.mu.Lock()
			r.order = append(r.order, name)
			r.tokens[name] = tok
			r.mu.Unlock()
			r.wg.Done()
		},
		Fail: func(err error) {
			r.mu.Lock()
			r.order = append(r.order, name)
			r.errs[name] = err
			r.mu.Unlock()
			r.wg.Done()
		},
	}
}

// wait blocks until every waiter handed out by r is settled, or fails the
// test after d.
func (r *recorder) wait(t *testing.T, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("waiters not settled")
	}
}

// startLeader hands w to the coordinator and checks that it started a
// refresh without blocking the caller.
func startLeader(t *testing.T, c *auth.Coordinator, w auth.Waiter) {
	t.Helper()
	c.Handle(context.Background(), w)
	require.Equal(t, auth.Refreshing, c.State())
}

func TestSingleRefreshFIFOResume(t *testing.T) {
	tokens := &memTokens{access: "T1", refresh: "R1"}
	ref := newGatedRefresher(auth.Pair{AccessToken: "T2", RefreshToken: "R2"}, nil)
	c := auth.NewCoordinator(tokens, ref, auth.WithLogger(quietLogger()))
	rec := newRecorder()

	// Every resumed waiter must already see the new pair in the store.
	var storedAtResume sync.Map
	leader := rec.waiter("leader")
	leaderResume := leader.Resume
	leader.Resume = func(tok string) {
		a, _ := tokens.AccessToken()
		storedAtResume.Store("leader", a)
		leaderResume(tok)
	}
	startLeader(t, c, leader)

	const n = 10
	for i := range n {
		w := rec.waiter(fmt.Sprintf("w%d", i))
		resume := w.Resume
		name := fmt.Sprintf("w%d", i)
		w.Resume = func(tok string) {
			a, _ := tokens.AccessToken()
			storedAtResume.Store(name, a)
			resume(tok)
		}
		c.Handle(context.Background(), w)
	}
	assert.Equal(t, n, c.Pending())

	close(ref.release)
	rec.wait(t, 5*time.Second)

	assert.Equal(t, int32(1), ref.calls.Load())
	want := make([]string, 0, n+1)
	for i := range n {
		want = append(want, fmt.Sprintf("w%d", i))
	}
	want = append(want, "leader")
	assert.Equal(t, want, rec.order)
	for name, tok := range rec.tokens {
		assert.Equal(t, "T2", tok, name)
	}
	storedAtResume.Range(func(k, v any) bool {
		assert.Equal(t, "T2", v, k)
		return true
	})

	refresh, _ := tokens.RefreshToken()
	assert.Equal(t, "R2", refresh)
	assert.Equal(t, auth.Idle, c.State())
	assert.Zero(t, c.Pending())

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Refreshes)
	assert.Equal(t, uint64(n+1), stats.WaitersResumed)
	assert.Zero(t, stats.RefreshFailures)
}

func TestRefreshFailureFailsEveryone(t *testing.T) {
	tokens := &memTokens{access: "T1", refresh: "R1"}
	cause := errors.New("refresh token revoked")
	ref := newGatedRefresher(auth.Pair{}, cause)
	c := auth.NewCoordinator(tokens, ref, auth.WithLogger(quietLogger()))
	rec := newRecorder()

	var expired atomic.Int32
	c.OnExpired(func(err error) {
		expired.Add(1)
		// Listeners run after tokens are cleared.
		a, _ := tokens.AccessToken()
		assert.Empty(t, a)
	})

	startLeader(t, c, rec.waiter("leader"))
	for i := range 3 {
		c.Handle(context.Background(), rec.waiter(fmt.Sprintf("w%d", i)))
	}
	close(ref.release)
	rec.wait(t, 5*time.Second)

	assert.Equal(t, []string{"w0", "w1", "w2", "leader"}, rec.order)
	for name, err := range rec.errs {
		assert.ErrorIs(t, err, cause, name)
		assert.ErrorIs(t, err, auth.ErrSessionExpired, name)
		_, ok := errors.AsType[*auth.RefreshError](err)
		assert.True(t, ok, name)
	}
	assert.Len(t, rec.errs, 4)

	a, _ := tokens.AccessToken()
	r, _ := tokens.RefreshToken()
	assert.Empty(t, a)
	assert.Empty(t, r)
	assert.Equal(t, int32(1), expired.Load())
	assert.Equal(t, int32(1), ref.calls.Load())

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.RefreshFailures)
	assert.Equal(t, uint64(4), stats.WaitersFailed)
	assert.Equal(t, uint64(1), stats.Expirations)
}

func TestMissingRefreshTokenShortCircuits(t *testing.T) {
	tokens := &memTokens{access: "T1"}
	ref := newGatedRefresher(auth.Pair{AccessToken: "never"}, nil)
	c := auth.NewCoordinator(tokens, ref, auth.WithLogger(quietLogger()))

	var expired []error
	c.OnExpired(func(err error) { expired = append(expired, err) })

	rec := newRecorder()
	c.Handle(context.Background(), rec.waiter("leader"))
	rec.wg.Wait()

	assert.Zero(t, ref.calls.Load())
	assert.ErrorIs(t, rec.errs["leader"], auth.ErrNoRefreshToken)
	assert.ErrorIs(t, rec.errs["leader"], auth.ErrSessionExpired)
	require.Len(t, expired, 1)
	assert.Equal(t, 1, tokens.clears)
	a, _ := tokens.AccessToken()
	assert.Empty(t, a)
	assert.Equal(t, auth.Idle, c.State())
}

func TestRefreshTimeoutFailsWaiters(t *testing.T) {
	tokens := &memTokens{access: "T1", refresh: "R1"}
	ref := newGatedRefresher(auth.Pair{AccessToken: "T2"}, nil) // never released
	c := auth.NewCoordinator(tokens, ref,
		auth.WithLogger(quietLogger()),
		auth.WithRefreshTimeout(30*time.Millisecond),
	)
	rec := newRecorder()

	startLeader(t, c, rec.waiter("leader"))
	c.Handle(context.Background(), rec.waiter("w0"))

	rec.wait(t, 5*time.Second)
	assert.ErrorIs(t, rec.errs["w0"], context.DeadlineExceeded)
	assert.ErrorIs(t, rec.errs["leader"], context.DeadlineExceeded)
	assert.Equal(t, auth.Idle, c.State())
}

func TestRefreshIgnoresLeaderCancellation(t *testing.T) {
	tokens := &memTokens{access: "T1", refresh: "R1"}
	ref := auth.RefreshFunc(func(ctx context.Context, rt string) (auth.Pair, error) {
		if err := ctx.Err(); err != nil {
			return auth.Pair{}, err
		}
		return auth.Pair{AccessToken: "T2", RefreshToken: "R2"}, nil
	})
	c := auth.NewCoordinator(tokens, ref, auth.WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := newRecorder()
	c.Handle(ctx, rec.waiter("leader"))
	rec.wg.Wait()
	assert.Equal(t, "T2", rec.tokens["leader"])
}

func TestRefreshKeepsUnrotatedRefreshToken(t *testing.T) {
	tokens := &memTokens{access: "T1", refresh: "R1"}
	ref := auth.RefreshFunc(func(context.Context, string) (auth.Pair, error) {
		return auth.Pair{AccessToken: "T2"}, nil
	})
	c := auth.NewCoordinator(tokens, ref, auth.WithLogger(quietLogger()))

	rec := newRecorder()
	c.Handle(context.Background(), rec.waiter("leader"))
	rec.wg.Wait()

	r, _ := tokens.RefreshToken()
	assert.Equal(t, "R1", r)
	a, _ := tokens.AccessToken()
	assert.Equal(t, "T2", a)
}

func TestEmptyAccessTokenIsFailure(t *testing.T) {
	tokens := &memTokens{access: "T1", refresh: "R1"}
	ref := auth.RefreshFunc(func(context.Context, string) (auth.Pair, error) {
		return auth.Pair{}, nil
	})
	c := auth.NewCoordinator(tokens, ref, auth.WithLogger(quietLogger()))

	rec := newRecorder()
	c.Handle(context.Background(), rec.waiter("leader"))
	rec.wg.Wait()
	assert.ErrorIs(t, rec.errs["leader"], auth.ErrEmptyAccessToken)
	r, _ := tokens.RefreshToken()
	assert.Empty(t, r)
}

func TestWaiterEnqueuedDuringDrainIsSettled(t *testing.T) {
	tokens := &memTokens{access: "T1", refresh: "R1"}
	ref := newGatedRefresher(auth.Pair{AccessToken: "T2", RefreshToken: "R2"}, nil)
	c := auth.NewCoordinator(tokens, ref, auth.WithLogger(quietLogger()))
	rec := newRecorder()

	startLeader(t, c, rec.waiter("leader"))

	late := rec.waiter("late")
	first := rec.waiter("first")
	firstResume := first.Resume
	first.Resume = func(tok string) {
		firstResume(tok)
		// Still Refreshing: this must join the current drain, not start a
		// second refresh.
		c.Handle(context.Background(), late)
	}
	c.Handle(context.Background(), first)

	close(ref.release)
	rec.wait(t, 5*time.Second)

	assert.Equal(t, []string{"first", "late", "leader"}, rec.order)
	assert.Equal(t, int32(1), ref.calls.Load())
}

func TestOnExpiredUnsubscribe(t *testing.T) {
	tokens := &memTokens{access: "T1"}
	c := auth.NewCoordinator(tokens, auth.RefreshFunc(func(context.Context, string) (auth.Pair, error) {
		return auth.Pair{}, errors.New("unused")
	}), auth.WithLogger(quietLogger()))

	var calls atomic.Int32
	unsubscribe := c.OnExpired(func(error) { calls.Add(1) })

	rec := newRecorder()
	c.Handle(context.Background(), rec.waiter("a"))
	rec.wait(t, 5*time.Second)
	unsubscribe()

	require.NoError(t, tokens.SetTokens("T2", ""))
	c.Handle(context.Background(), rec.waiter("b"))
	rec.wait(t, 5*time.Second)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint64(2), c.Stats().Expirations)
}

func TestHandleDoesNotBlockLeader(t *testing.T) {
	tokens := &memTokens{access: "T1", refresh: "R1"}
	ref := newGatedRefresher(auth.Pair{AccessToken: "T2", RefreshToken: "R2"}, nil)
	c := auth.NewCoordinator(tokens, ref, auth.WithLogger(quietLogger()))
	rec := newRecorder()

	returned := make(chan struct{})
	go func() {
		c.Handle(context.Background(), rec.waiter("leader"))
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Handle blocked on the refresh")
	}
	assert.Equal(t, auth.Refreshing, c.State())

	close(ref.release)
	rec.wait(t, 5*time.Second)
	assert.Equal(t, "T2", rec.tokens["leader"])
}

func TestExpiryWithoutSessionNotifiesNobody(t *testing.T) {
	tokens := &memTokens{}
	c := auth.NewCoordinator(tokens, auth.RefreshFunc(func(context.Context, string) (auth.Pair, error) {
		return auth.Pair{}, errors.New("unused")
	}), auth.WithLogger(quietLogger()))

	var calls atomic.Int32
	c.OnExpired(func(error) { calls.Add(1) })

	rec := newRecorder()
	c.Handle(context.Background(), rec.waiter("a"))
	rec.wait(t, 5*time.Second)

	assert.ErrorIs(t, rec.errs["a"], auth.ErrNoRefreshToken)
	assert.Zero(t, calls.Load())
	assert.Equal(t, uint64(1), c.Stats().Expirations)
}

func TestListenerMayUseCoordinator(t *testing.T) {
	tokens := &memTokens{access: "T1", refresh: "R1"}
	cause := errors.New("refresh token revoked")
	c := auth.NewCoordinator(tokens, auth.RefreshFunc(func(context.Context, string) (auth.Pair, error) {
		return auth.Pair{}, cause
	}), auth.WithLogger(quietLogger()))

	inner := newRecorder()
	var calls atomic.Int32
	c.OnExpired(func(error) {
		calls.Add(1)
		// Back to Idle: this starts a fresh attempt that finds no session.
		assert.Equal(t, auth.Idle, c.State())
		c.Handle(context.Background(), inner.waiter("inner"))
		inner.wait(t, 5*time.Second)
	})

	rec := newRecorder()
	c.Handle(context.Background(), rec.waiter("leader"))
	rec.wait(t, 5*time.Second)

	assert.ErrorIs(t, rec.errs["leader"], cause)
	assert.ErrorIs(t, inner.errs["inner"], auth.ErrNoRefreshToken)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, auth.Idle, c.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", auth.Idle.String())
	assert.Equal(t, "refreshing", auth.Refreshing.String())
	assert.Equal(t, "State(7)", auth.State(7).String())
}
