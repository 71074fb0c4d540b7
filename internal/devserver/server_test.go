package devserver_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/optiva/internal/devserver"
)

func setupServer(t *testing.T) (*devserver.Server, *httptest.Server) {
	t.Helper()
	s := devserver.New(devserver.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return s, srv
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}
	req, err := http.NewRequestWithContext(t.Context(), method, url, &reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func register(t *testing.T, baseURL string) devserver.AuthResponse {
	t.Helper()
	resp := doJSON(t, http.MethodPost, baseURL+"/auth/register", "", devserver.RegisterRequest{
		Email:     "A@B.com",
		Password:  "correct horse",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[devserver.AuthResponse](t, resp)
}

func TestRegisterAndLogin(t *testing.T) {
	_, srv := setupServer(t)

	reg := register(t, srv.URL)
	assert.NotEmpty(t, reg.UserID)
	assert.Equal(t, "a@b.com", reg.Email)
	assert.Equal(t, "Bearer", reg.TokenType)
	assert.NotEmpty(t, reg.AccessToken)
	assert.NotEmpty(t, reg.RefreshToken)
	assert.Positive(t, reg.ExpiresIn)

	resp := doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", devserver.LoginRequest{
		Email: "a@b.com", Password: "correct horse",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode[devserver.AuthResponse](t, resp)
	assert.Equal(t, reg.UserID, login.UserID)
	assert.NotEqual(t, reg.RefreshToken, login.RefreshToken)
}

func TestRegisterValidation(t *testing.T) {
	_, srv := setupServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/auth/register", "", devserver.RegisterRequest{
		Email: "nope", Password: "short",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[devserver.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusBadRequest, body.Status)
	assert.Equal(t, "/auth/register", body.Path)
	assert.Contains(t, body.FieldErrors, "email")
	assert.Contains(t, body.FieldErrors, "password")

	register(t, srv.URL)
	resp = doJSON(t, http.MethodPost, srv.URL+"/auth/register", "", devserver.RegisterRequest{
		Email: "a@b.com", Password: "another password",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Email is already registered", decode[devserver.ErrorResponse](t, resp).Message)
}

func TestLoginWrongPassword(t *testing.T) {
	_, srv := setupServer(t)
	register(t, srv.URL)

	resp := doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", devserver.LoginRequest{
		Email: "a@b.com", Password: "wrong password",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid email or password", decode[devserver.ErrorResponse](t, resp).Message)
}

func TestLoginRateLimited(t *testing.T) {
	_, srv := setupServer(t)
	register(t, srv.URL)

	for range 5 {
		resp := doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", devserver.LoginRequest{
			Email: "a@b.com", Password: "wrong password",
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp := doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", devserver.LoginRequest{
		Email: "a@b.com", Password: "correct horse",
	})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestRefreshRotates(t *testing.T) {
	s, srv := setupServer(t)
	reg := register(t, srv.URL)

	resp := doJSON(t, http.MethodPost, srv.URL+"/auth/refresh", "", devserver.RefreshTokenRequest{RefreshToken: reg.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rotated := decode[devserver.AuthResponse](t, resp)
	assert.NotEqual(t, reg.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, 1, s.RefreshCalls())

	// The old refresh token is spent.
	resp = doJSON(t, http.MethodPost, srv.URL+"/auth/refresh", "", devserver.RefreshTokenRequest{RefreshToken: reg.RefreshToken})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 2, s.RefreshCalls())
}

func TestRefreshHooks(t *testing.T) {
	s, srv := setupServer(t)
	reg := register(t, srv.URL)

	s.FailRefresh(1)
	resp := doJSON(t, http.MethodPost, srv.URL+"/auth/refresh", "", devserver.RefreshTokenRequest{RefreshToken: reg.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	release := s.HoldRefresh()
	done := make(chan int, 1)
	body, err := json.Marshal(devserver.RefreshTokenRequest{RefreshToken: reg.RefreshToken})
	require.NoError(t, err)
	go func() {
		resp, err := http.Post(srv.URL+"/auth/refresh", "application/json", bytes.NewReader(body))
		if err != nil {
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()
	select {
	case <-done:
		t.Fatal("refresh returned while held")
	case <-time.After(50 * time.Millisecond):
	}
	release()
	select {
	case code := <-done:
		assert.Equal(t, http.StatusOK, code)
	case <-time.After(5 * time.Second):
		t.Fatal("refresh did not complete after release")
	}
}

func TestAuthMiddleware(t *testing.T) {
	s, srv := setupServer(t)
	reg := register(t, srv.URL)

	resp := doJSON(t, http.MethodGet, srv.URL+"/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/profile", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/profile", reg.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := decode[map[string]any](t, resp)
	assert.Equal(t, reg.UserID, profile["userId"])

	s.ExpireAccessTokens()
	resp = doJSON(t, http.MethodGet, srv.URL+"/profile", reg.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	s.RejectAll(true)
	fresh := doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", devserver.LoginRequest{Email: "a@b.com", Password: "correct horse"})
	require.Equal(t, http.StatusOK, fresh.StatusCode)
	login := decode[devserver.AuthResponse](t, fresh)
	resp = doJSON(t, http.MethodGet, srv.URL+"/profile", login.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestExpiredAccessToken(t *testing.T) {
	s := devserver.New(
		devserver.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		devserver.WithAccessTTL(-time.Minute),
	)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	reg := register(t, srv.URL)
	resp := doJSON(t, http.MethodGet, srv.URL+"/profile", reg.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	_, srv := setupServer(t)
	reg := register(t, srv.URL)

	resp := doJSON(t, http.MethodPost, srv.URL+"/auth/logout", "", devserver.RefreshTokenRequest{RefreshToken: reg.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decode[devserver.MessageResponse](t, resp).Message)

	resp = doJSON(t, http.MethodPost, srv.URL+"/auth/refresh", "", devserver.RefreshTokenRequest{RefreshToken: reg.RefreshToken})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogoutAll(t *testing.T) {
	_, srv := setupServer(t)
	reg := register(t, srv.URL)
	second := doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", devserver.LoginRequest{Email: "a@b.com", Password: "correct horse"})
	other := decode[devserver.AuthResponse](t, second)

	resp := doJSON(t, http.MethodPost, srv.URL+"/auth/logout-all", reg.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, rt := range []string{reg.RefreshToken, other.RefreshToken} {
		resp = doJSON(t, http.MethodPost, srv.URL+"/auth/refresh", "", devserver.RefreshTokenRequest{RefreshToken: rt})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}
}

func TestCollectionCRUD(t *testing.T) {
	_, srv := setupServer(t)
	tok := register(t, srv.URL).AccessToken

	resp := doJSON(t, http.MethodPost, srv.URL+"/weight", tok, map[string]any{"date": "2026-01-01", "weightKg": 80.5})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[map[string]any](t, resp)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	resp = doJSON(t, http.MethodGet, srv.URL+"/weight/"+id, tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 80.5, decode[map[string]any](t, resp)["weightKg"], 0.001)

	resp = doJSON(t, http.MethodPut, srv.URL+"/weight/"+id, tok, map[string]any{"date": "2026-01-01", "weightKg": 79.0, "id": "hijack"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[map[string]any](t, resp)
	assert.Equal(t, id, updated["id"])
	assert.InDelta(t, 79.0, updated["weightKg"], 0.001)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/weight/"+id, tok, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = doJSON(t, http.MethodGet, srv.URL+"/weight/"+id, tok, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPagedAndStats(t *testing.T) {
	_, srv := setupServer(t)
	tok := register(t, srv.URL).AccessToken

	for i, w := range []float64{90, 89, 88, 87, 86} {
		date := time.Date(2026, 1, i+1, 0, 0, 0, 0, time.UTC).Format(time.DateOnly)
		resp := doJSON(t, http.MethodPost, srv.URL+"/weight", tok, map[string]any{"date": date, "weightKg": w})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/weight/paged?page=1&size=2&sortDir=asc", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[devserver.PageResponse](t, resp)
	assert.Equal(t, 5, page.TotalElements)
	assert.Equal(t, 3, page.TotalPages)
	assert.False(t, page.First)
	assert.False(t, page.Last)
	require.Len(t, page.Content, 2)
	assert.Equal(t, "2026-01-03", page.Content[0]["date"])

	resp = doJSON(t, http.MethodGet, srv.URL+"/weight/paged?dateFrom=2026-01-04", tok, nil)
	page = decode[devserver.PageResponse](t, resp)
	assert.Equal(t, 2, page.TotalElements)
	assert.Equal(t, "2026-01-05", page.Content[0]["date"])

	resp = doJSON(t, http.MethodGet, srv.URL+"/weight/stats", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[devserver.WeightStatsResponse](t, resp)
	assert.InDelta(t, 90, stats.StartingWeight, 0.001)
	assert.InDelta(t, 86, stats.CurrentWeight, 0.001)
	assert.InDelta(t, -4, stats.TotalChange, 0.001)
	assert.InDelta(t, 88, stats.RollingAvg7Day, 0.001)
	assert.Equal(t, "2026-01-05", stats.CurrentWeightDate)
}

func TestCollectionsAreScopedPerUser(t *testing.T) {
	_, srv := setupServer(t)
	first := register(t, srv.URL).AccessToken
	resp := doJSON(t, http.MethodPost, srv.URL+"/auth/register", "", devserver.RegisterRequest{Email: "c@d.com", Password: "another password"})
	second := decode[devserver.AuthResponse](t, resp).AccessToken

	resp = doJSON(t, http.MethodPost, srv.URL+"/journal", first, map[string]any{"date": "2026-02-01", "notes": "private"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/journal", second, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]map[string]any](t, resp))
}
