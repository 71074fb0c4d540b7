package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jmcleod/optiva/internal/uuid"
)

// RequestIDHeader correlates a logical call and its replay in server logs.
const RequestIDHeader = "X-Request-ID"

// AccessTokenSource supplies the bearer token for outbound requests.
type AccessTokenSource interface {
	AccessToken() (string, error)
}

// Transport attaches the stored access token to every request and, on a 401,
// hands the request to the Coordinator and replays it once with the
// refreshed token.
type Transport struct {
	// Base performs the actual round trips. Defaults to http.DefaultTransport.
	Base        http.RoundTripper
	Tokens      AccessTokenSource
	Coordinator *Coordinator
}

// NewTransport wires a Transport over base.
func NewTransport(base http.RoundTripper, tokens AccessTokenSource, coord *Coordinator) *Transport {
	return &Transport{Base: base, Tokens: tokens, Coordinator: coord}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

type outcome struct {
	token string
	err   error
}

// RoundTrip implements http.RoundTripper. The caller's request is never
// mutated; each attempt is sent as a fresh clone.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	getBody, err := replayableBody(req)
	if err != nil {
		return nil, err
	}
	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.New()
	}

	token, err := t.Tokens.AccessToken()
	if err != nil {
		return nil, fmt.Errorf("reading access token: %w", err)
	}
	resp, err := t.send(req, getBody, token, requestID)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// A refresh that completed while this attempt was in flight already
	// produced a newer token; replay with it instead of refreshing again.
	if current, err := t.Tokens.AccessToken(); err == nil && current != "" && current != token {
		discard(resp)
		return t.send(req, getBody, current, requestID)
	}

	fresh, err := t.await(req.Context())
	if err != nil {
		// Without a refresh token there is nothing to retry; the caller sees
		// the server's own 401.
		if errors.Is(err, ErrNoRefreshToken) {
			return resp, nil
		}
		discard(resp)
		return nil, err
	}
	discard(resp)

	// The replay is the attempt's single retry; its 401, if any, is final.
	return t.send(req, getBody, fresh, requestID)
}

// await parks the caller on the coordinator until the refresh settles or
// ctx is done. This holds for the caller that started the refresh too. A
// cancelled caller leaves its waiter behind; the buffered channel lets the
// coordinator settle it without blocking.
func (t *Transport) await(ctx context.Context) (string, error) {
	ch := make(chan outcome, 1)
	t.Coordinator.Handle(ctx, Waiter{
		Resume: func(tok string) { ch <- outcome{token: tok} },
		Fail:   func(err error) { ch <- outcome{err: err} },
	})
	select {
	case o := <-ch:
		return o.token, o.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (t *Transport) send(orig *http.Request, getBody func() (io.ReadCloser, error), token, requestID string) (*http.Response, error) {
	r := orig.Clone(orig.Context())
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, fmt.Errorf("rewinding request body: %w", err)
		}
		r.Body = body
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	r.Header.Set(RequestIDHeader, requestID)
	return t.base().RoundTrip(r)
}

// replayableBody returns a func yielding a fresh copy of the request body
// for every attempt. A body without GetBody is read once and buffered.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		req.Body.Close()
		return req.GetBody, nil
	}
	buf, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffering request body: %w", err)
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}, nil
}

func discard(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
