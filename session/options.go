package session

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jmcleod/optiva/auth"
)

type options struct {
	logger         *slog.Logger
	coordinator    *auth.Coordinator
	invalidators   []func()
	onExpired      []func(error)
	base           http.RoundTripper
	refreshTimeout time.Duration
	cacheTTL       time.Duration
	hasCacheTTL    bool
}

func newOptions(opts []Option) *options {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures New and Dial.
type Option func(*options)

// WithLogger sets the logger for audit events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCoordinator subscribes the Manager to the coordinator's expiry
// events. Dial wires its own coordinator and ignores this option.
func WithCoordinator(c *auth.Coordinator) Option {
	return func(o *options) { o.coordinator = c }
}

// WithInvalidator registers an extra cache to drop on every session change.
func WithInvalidator(fn func()) Option {
	return func(o *options) {
		if fn != nil {
			o.invalidators = append(o.invalidators, fn)
		}
	}
}

// OnExpired registers fn to run after an expired session has been torn
// down locally. It replaces a forced redirect to the login screen. fn may
// call the API; requests made before signing in again get a plain 401.
func OnExpired(fn func(error)) Option {
	return func(o *options) {
		if fn != nil {
			o.onExpired = append(o.onExpired, fn)
		}
	}
}

// WithBaseTransport sets the round tripper under auth.Transport and the
// refresh call. Defaults to http.DefaultTransport.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

// WithRefreshTimeout bounds each token refresh.
func WithRefreshTimeout(d time.Duration) Option {
	return func(o *options) { o.refreshTimeout = d }
}

// WithCacheTTL sets the GET cache lifetime of the API clients. Zero
// disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.cacheTTL = ttl
		o.hasCacheTTL = true
	}
}
