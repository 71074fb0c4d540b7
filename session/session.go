// Package session exposes login, registration, logout and startup restore
// on top of the token store, the refresh coordinator and the API client.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmcleod/optiva/api"
	"github.com/jmcleod/optiva/auth"
	"github.com/jmcleod/optiva/token"
)

// Manager owns the lifecycle of one profile's session. All methods are safe
// for concurrent use.
type Manager struct {
	tokens *token.Store
	public *api.Client
	authed *api.Client
	coord  *auth.Coordinator
	audit  *auditLogger

	invalidators []func()
	onExpired    []func(error)
	unsubscribe  func()

	mu   sync.RWMutex
	user *token.User
}

// New returns a Manager. public must not route through auth.Transport: it
// carries login, register, logout and refresh calls, none of which may
// trigger a token refresh. authed is used for endpoints that need a bearer
// token. Both clients' caches are invalidated on every session change.
func New(tokens *token.Store, public, authed *api.Client, opts ...Option) *Manager {
	o := newOptions(opts)
	m := &Manager{
		tokens:       tokens,
		public:       public,
		authed:       authed,
		coord:        o.coordinator,
		audit:        newAuditLogger(o.logger, tokens.Profile()),
		invalidators: append([]func(){public.Invalidate, authed.Invalidate}, o.invalidators...),
		onExpired:    o.onExpired,
	}
	if m.coord != nil {
		m.unsubscribe = m.coord.OnExpired(m.expired)
	}
	return m
}

// Close detaches the Manager from the coordinator's expiry events.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// API returns the authenticated API client.
func (m *Manager) API() *api.Client { return m.authed }

// Coordinator returns the refresh coordinator, or nil if none was wired.
func (m *Manager) Coordinator() *auth.Coordinator { return m.coord }

// User returns the signed-in identity, or nil when logged out.
func (m *Manager) User() *token.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// IsAuthenticated reports whether a user is signed in.
func (m *Manager) IsAuthenticated() bool {
	return m.User() != nil
}

func (m *Manager) setUser(u *token.User) *token.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.user
	m.user = u
	return prev
}

// Login authenticates with email and password and persists the session.
// Backend errors are returned untouched.
func (m *Manager) Login(ctx context.Context, req api.LoginRequest) (*token.User, error) {
	resp, err := m.public.Login(ctx, req)
	if err != nil {
		m.audit.failure(ctx, EventLoginFailure, err)
		return nil, err
	}
	u, err := m.establish(resp)
	if err != nil {
		return nil, err
	}
	m.audit.event(ctx, EventLogin, u.UserID)
	return u, nil
}

// Register creates an account and signs it in.
func (m *Manager) Register(ctx context.Context, req api.RegisterRequest) (*token.User, error) {
	resp, err := m.public.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	u, err := m.establish(resp)
	if err != nil {
		return nil, err
	}
	m.audit.event(ctx, EventRegister, u.UserID)
	return u, nil
}

func (m *Manager) establish(resp *api.AuthResponse) (*token.User, error) {
	if resp.AccessToken == "" {
		return nil, auth.ErrEmptyAccessToken
	}
	u := &token.User{
		UserID:    resp.UserID,
		Email:     resp.Email,
		FirstName: resp.FirstName,
		LastName:  resp.LastName,
	}
	if err := m.tokens.SetSession(resp.AccessToken, resp.RefreshToken, u); err != nil {
		return nil, err
	}
	m.setUser(u)
	m.invalidate()
	return m.User(), nil
}

// Logout revokes the refresh token on the server if one is stored, then
// clears the local session. The server call is best effort: its failure is
// logged and never returned. Calling Logout while logged out is a no-op
// apart from clearing storage again.
func (m *Manager) Logout(ctx context.Context) error {
	rt, err := m.tokens.RefreshToken()
	switch {
	case err != nil:
		m.audit.failure(ctx, EventLogout, fmt.Errorf("reading refresh token: %w", err))
	case rt != "":
		if err := m.public.Logout(ctx, rt); err != nil {
			m.audit.failure(ctx, EventLogout, err, slog.String("stage", "server"))
		}
	}
	return m.teardown(ctx, EventLogout)
}

// LogoutAll revokes every refresh token of the user on the server, then
// clears the local session. The server call is best effort.
func (m *Manager) LogoutAll(ctx context.Context) error {
	access, err := m.tokens.AccessToken()
	if err == nil && access != "" {
		if err := m.authed.LogoutAll(ctx); err != nil {
			m.audit.failure(ctx, EventLogoutAll, err, slog.String("stage", "server"))
		}
	}
	return m.teardown(ctx, EventLogoutAll)
}

func (m *Manager) teardown(ctx context.Context, event Event) error {
	err := m.tokens.Reset()
	prev := m.setUser(nil)
	m.invalidate()

	userID := ""
	if prev != nil {
		userID = prev.UserID
	}
	m.audit.event(ctx, event, userID)
	if err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// Restore resumes a persisted session without a network round trip. It
// reports true when both the access token and the user identity are stored.
// A corrupt identity clears storage and leaves the session logged out.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	access, err := m.tokens.AccessToken()
	if err != nil {
		return false, fmt.Errorf("reading access token: %w", err)
	}
	u, err := m.tokens.User()
	if errors.Is(err, token.ErrCorruptUser) {
		m.audit.failure(ctx, EventRestoreCorrupt, err)
		m.setUser(nil)
		if rerr := m.tokens.Reset(); rerr != nil {
			return false, fmt.Errorf("clearing corrupt session: %w", rerr)
		}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading user: %w", err)
	}
	if access == "" || u == nil {
		m.setUser(nil)
		return false, nil
	}
	m.setUser(u)
	m.audit.event(ctx, EventRestore, u.UserID)
	return true, nil
}

// expired runs when the coordinator gives up on the session. The tokens are
// already cleared; the identity and cached data go with them.
func (m *Manager) expired(cause error) {
	ctx := context.Background()
	if err := m.tokens.ClearUser(); err != nil {
		m.audit.failure(ctx, EventExpired, fmt.Errorf("clearing user: %w", err))
	}
	prev := m.setUser(nil)
	m.invalidate()

	userID := ""
	if prev != nil {
		userID = prev.UserID
	}
	m.audit.log(ctx, slog.LevelWarn, EventExpired,
		slog.String("user_id", userID),
		slog.String("reason", cause.Error()),
	)
	for _, fn := range m.onExpired {
		fn(cause)
	}
}

func (m *Manager) invalidate() {
	for _, fn := range m.invalidators {
		fn()
	}
}
