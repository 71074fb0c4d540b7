package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/optiva/internal/devserver"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestCLISessionFlow(t *testing.T) {
	s := devserver.New(devserver.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	common := []string{"--api-url", srv.URL, "--data-dir", t.TempDir(), "--log-level", "error"}
	run := func(stdin string, args ...string) (string, error) {
		return runCLI(t, stdin, append(args, common...)...)
	}

	out, err := run("", "whoami")
	require.Error(t, err)
	assert.Empty(t, out)

	out, err = run("password1\n", "register", "--email", "cli@b.com", "--first-name", "Cli")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered Cli <cli@b.com>")

	out, err = run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "cli@b.com")

	// The stored session survives an expired access token.
	s.ExpireAccessTokens()
	out, err = run("", "weight", "add", "--kg", "80.5", "--date", "2026-04-01")
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entry))
	assert.InDelta(t, 80.5, entry["weightKg"], 0.001)
	assert.Equal(t, 1, s.RefreshCalls())

	out, err = run("", "get", "/weight/paged", "-q", "size=5", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "totalElements: 1")

	out, err = run("", "logout", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")

	_, err = run("", "whoami")
	require.Error(t, err)
}

func TestVersionPrintsBanner(t *testing.T) {
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}
