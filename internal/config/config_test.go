package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPTIVA_DATA_DIR", t.TempDir())
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.Profile)
	assert.Equal(t, StoreBolt, cfg.Store)
	assert.Equal(t, 15*time.Second, cfg.RefreshTimeout)
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_url: https://api.example.test
store: redis
redis:
  addr: cache:6379
  db: 2
refresh_timeout: 5s
log_format: json
`), 0o600))
	t.Setenv("OPTIVA_PROFILE", "work")
	t.Setenv("OPTIVA_REDIS_DB", "3")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.test", cfg.APIURL)
	assert.Equal(t, "work", cfg.Profile)
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 5*time.Second, cfg.RefreshTimeout)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{Profile: "p", Store: StoreMemory, RefreshTimeout: time.Second, LogLevel: "info", LogFormat: "text"}
	}

	c := base()
	require.NoError(t, c.Validate())

	c = base()
	c.Store = "sqlite"
	assert.ErrorContains(t, c.Validate(), "unknown store")

	c = base()
	c.Store = StorePostgres
	assert.ErrorContains(t, c.Validate(), "postgres.dsn")

	c = base()
	c.RefreshTimeout = 0
	assert.Error(t, c.Validate())

	c = base()
	c.LogLevel = "loud"
	assert.ErrorContains(t, c.Validate(), "log_level")

	c = base()
	c.LogFormat = "xml"
	assert.ErrorContains(t, c.Validate(), "log_format")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	c := Config{LogLevel: "debug", LogFormat: "json"}
	c.NewLogger(&buf).Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	c = Config{LogLevel: "error", LogFormat: "text"}
	c.NewLogger(&buf).Info("hidden")
	assert.Empty(t, buf.String())
}
