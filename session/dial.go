package session

import (
	"net/http"

	"github.com/jmcleod/optiva/api"
	"github.com/jmcleod/optiva/auth"
	"github.com/jmcleod/optiva/token"
)

// Dial wires a complete client stack for baseURL: a public API client for
// the unauthenticated auth endpoints, a refresh coordinator over tokens and
// an authenticated API client whose transport attaches and refreshes the
// bearer token.
func Dial(baseURL string, tokens *token.Store, opts ...Option) (*Manager, error) {
	o := newOptions(opts)
	base := o.base
	if base == nil {
		base = http.DefaultTransport
	}
	plain := &http.Client{Transport: base}

	apiOpts := []api.Option{api.WithLogger(o.logger)}
	if o.hasCacheTTL {
		apiOpts = append(apiOpts, api.WithCacheTTL(o.cacheTTL))
	}

	public, err := api.New(baseURL, append(apiOpts, api.WithHTTPClient(plain))...)
	if err != nil {
		return nil, err
	}

	coord := auth.NewCoordinator(tokens,
		&auth.HTTPRefresher{BaseURL: public.BaseURL(), Client: plain},
		auth.WithLogger(o.logger),
		auth.WithRefreshTimeout(o.refreshTimeout),
	)
	authed, err := api.New(baseURL, append(apiOpts,
		api.WithHTTPClient(&http.Client{Transport: auth.NewTransport(base, tokens, coord)}),
	)...)
	if err != nil {
		return nil, err
	}

	return New(tokens, public, authed, append(opts, WithCoordinator(coord))...), nil
}
