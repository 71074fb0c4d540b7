package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// RefreshPath is the backend endpoint that exchanges a refresh token for a
// new token pair.
const RefreshPath = "/auth/refresh"

// Pair is the token pair returned by a successful refresh. An empty
// RefreshToken means the server did not rotate it.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Refresher exchanges a refresh token for a new token pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Pair, error)
}

// RefreshFunc adapts a function to the Refresher interface.
type RefreshFunc func(ctx context.Context, refreshToken string) (Pair, error)

func (f RefreshFunc) Refresh(ctx context.Context, refreshToken string) (Pair, error) {
	return f(ctx, refreshToken)
}

// HTTPRefresher posts {refreshToken} to BaseURL+RefreshPath. Client must not
// route through Transport, otherwise a 401 from the refresh endpoint would
// re-enter the coordinator.
type HTTPRefresher struct {
	BaseURL string
	Client  *http.Client
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Refresh performs the refresh call.
func (h *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) (Pair, error) {
	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return Pair{}, fmt.Errorf("encoding refresh request: %w", err)
	}
	url := strings.TrimRight(h.BaseURL, "/") + RefreshPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Pair{}, fmt.Errorf("building refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Pair{}, fmt.Errorf("calling refresh endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &eb) == nil && eb.Message == "" {
			eb.Message = eb.Error
		}
		return Pair{}, &StatusError{StatusCode: resp.StatusCode, Message: eb.Message}
	}

	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Pair{}, fmt.Errorf("decoding refresh response: %w", err)
	}
	if out.AccessToken == "" {
		return Pair{}, ErrEmptyAccessToken
	}
	return Pair{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}, nil
}
