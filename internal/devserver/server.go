// Package devserver is an in-process stand-in for the Optiva backend. It
// implements the auth contract (register, login, refresh with rotation,
// logout) and generic per-user CRUD collections, and exposes hooks that let
// tests observe and steer the refresh endpoint.
package devserver

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/jmcleod/optiva/internal/util"
)

//go:embed openapi.yaml
var openapiSpec []byte

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// collections served under /{name} with CRUD, /paged and /{id}.
var collections = []string{
	"weight", "journal", "habits", "smoking", "alcohol",
	"meal-plans", "workout-plans", "programs",
}

// Server holds the fake backend state. The zero value is not usable; call New.
type Server struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	kdf        util.Argon2idParams
	audit      *auditLogger
	alertFn    AlertFunc
	limiter    *loginRateLimiter

	mu       sync.Mutex
	accounts map[string]*account // by normalised email
	byID     map[string]*account
	grants   map[string]refreshGrant
	records  map[string]map[string][]record // collection -> user -> records
	profiles map[string]map[string]any

	// generation is embedded in access tokens; bumping it invalidates every
	// access token issued before.
	generation atomic.Int64

	refreshCalls atomic.Int64
	hooksMu      sync.Mutex
	refreshGate  chan struct{}
	refreshFail  int
	always401    bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.audit = newAuditLogger(logger)
	}
}

// WithAlertFunc registers a callback for login failure spikes and refresh
// storms.
func WithAlertFunc(fn AlertFunc) Option {
	return func(s *Server) { s.alertFn = fn }
}

// WithAccessTTL sets the lifetime of issued access tokens.
func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) { s.accessTTL = d }
}

// WithSecret sets the HS256 signing secret. A random one is generated
// otherwise.
func WithSecret(secret []byte) Option {
	return func(s *Server) { s.secret = util.CopyBytes(secret) }
}

// New returns a Server with no accounts.
func New(opts ...Option) *Server {
	s := &Server{
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		kdf: util.Argon2idParams{
			Time:        1,
			MemoryKiB:   8 * 1024,
			Parallelism: 1,
			KeyLen:      32,
		},
		limiter:  newLoginRateLimiter(),
		accounts: make(map[string]*account),
		byID:     make(map[string]*account),
		grants:   make(map[string]refreshGrant),
		records:  make(map[string]map[string][]record),
		profiles: make(map[string]map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.audit == nil {
		s.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	s.audit.metrics = newMetricsCollector(s.alertFn)
	if len(s.secret) == 0 {
		secret, err := util.RandomBytes(32)
		if err != nil {
			panic("devserver: generating signing secret: " + err.Error())
		}
		s.secret = secret
	}
	return s
}

// Router returns a chi.Router with all routes mounted at the root.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(SecurityHeaders)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})
	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/openapi.yaml",
		Path:    "docs",
	}, nil))
	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/openapi.yaml",
		Path:    "redoc",
	}, nil))

	r.Post("/auth/register", s.Register)
	r.Post("/auth/login", s.Login)
	r.Post("/auth/refresh", s.Refresh)
	r.Post("/auth/logout", s.Logout)
	r.With(s.AuthMiddleware).Post("/auth/logout-all", s.LogoutAll)

	r.Group(func(r chi.Router) {
		r.Use(s.AuthMiddleware)
		r.Get("/profile", s.GetProfile)
		r.Put("/profile", s.UpdateProfile)
		for _, name := range collections {
			r.Route("/"+name, func(r chi.Router) {
				r.Post("/", s.createRecord(name))
				r.Get("/", s.listRecords(name))
				r.Get("/paged", s.pagedRecords(name))
				if name == "weight" {
					r.Get("/stats", s.WeightStats)
				}
				r.Get("/{id}", s.getRecord(name))
				r.Put("/{id}", s.updateRecord(name))
				r.Delete("/{id}", s.deleteRecord(name))
			})
		}
	})
	return r
}

// RefreshCalls returns how many requests reached the refresh endpoint.
func (s *Server) RefreshCalls() int {
	return int(s.refreshCalls.Load())
}

// ExpireAccessTokens invalidates every access token issued so far. Refresh
// tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.generation.Add(1)
}

// HoldRefresh makes the refresh endpoint block until the returned func is
// called. Used to line concurrent 401s up behind one refresh.
func (s *Server) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	s.hooksMu.Lock()
	s.refreshGate = gate
	s.hooksMu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.hooksMu.Lock()
			if s.refreshGate == gate {
				s.refreshGate = nil
			}
			s.hooksMu.Unlock()
			close(gate)
		})
	}
}

// FailRefresh makes the next n refresh calls answer 401.
func (s *Server) FailRefresh(n int) {
	s.hooksMu.Lock()
	s.refreshFail = n
	s.hooksMu.Unlock()
}

// RejectAll makes every authenticated endpoint answer 401 regardless of the
// presented token.
func (s *Server) RejectAll(on bool) {
	s.hooksMu.Lock()
	s.always401 = on
	s.hooksMu.Unlock()
}

func (s *Server) rejectingAll() bool {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	return s.always401
}
