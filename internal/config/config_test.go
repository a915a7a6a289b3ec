package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cyp0633/librecur/recurrence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recur.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// chdir moves into dir for the test so Load sees no stray .env file
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, recurrence.DefaultEngineConfig, cfg.EngineConfig())
}

func TestLoad_File(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeFile(t, `
listen: 127.0.0.1:9000
shutdown_timeout: 3s
storage:
  driver: sqlite
  path: /var/lib/recur/recur.db
log:
  level: debug
  format: json
engine:
  preset: low_memory
  horizon_days: 90
auth:
  users:
    - name: alice
      password: secret
      tokens: [alice-token]
    - name: viewer
      password: view
      read_only: true
cors:
  origins: ["https://app.example.com"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Listen)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, StorageConfig{Driver: DriverSQLite, Path: "/var/lib/recur/recur.db"}, cfg.Storage)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
	assert.Equal(t, "librecur", cfg.Auth.Realm, "unset keys keep their defaults")
	require.Len(t, cfg.Auth.Users, 2)
	assert.Equal(t, []string{"alice-token"}, cfg.Auth.Users[0].Tokens)
	assert.True(t, cfg.Auth.Users[1].ReadOnly)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORS.Origins)

	ec := cfg.EngineConfig()
	assert.Equal(t, 90, ec.HorizonDays)
	assert.Equal(t, recurrence.LowMemoryConfig.CacheConfig, ec.CacheConfig)
}

func TestLoad_Errors(t *testing.T) {
	chdir(t, t.TempDir())
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "listen: :80\nbogus: 1\n"},
		{"bad yaml", "listen: [\n"},
		{"sqlite without path", "storage:\n  driver: sqlite\n"},
		{"bad preset", "engine:\n  preset: turbo\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EmptyFile(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default().Listen, cfg.Listen)
}

func TestLoad_DotEnv(t *testing.T) {
	chdir(t, t.TempDir())
	require.NoError(t, os.WriteFile(".env", []byte("RECUR_LISTEN=:7070\nRECUR_LOG_LEVEL=warn\n"), 0o600))
	t.Setenv("RECUR_LISTEN", "")
	os.Unsetenv("RECUR_LISTEN")
	t.Setenv("RECUR_LOG_LEVEL", "error")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Listen)
	assert.Equal(t, "error", cfg.Log.Level, "process environment wins over .env")
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(env(map[string]string{
		"RECUR_LISTEN":           ":9090",
		"RECUR_STORAGE_DRIVER":   "sqlite",
		"RECUR_STORAGE_PATH":     "recur.db",
		"RECUR_LOG_FORMAT":       "json",
		"RECUR_HORIZON_DAYS":     "30",
		"RECUR_CACHE_ENABLED":    "false",
		"RECUR_SHUTDOWN_TIMEOUT": "1m",
		"RECUR_CORS_ORIGINS":     "https://a.example, ,https://b.example",
		"RECUR_LOG_LEVEL":        "",
	}))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "recur.db", cfg.Storage.Path)
	assert.Equal(t, "info", cfg.Log.Level, "empty values are ignored")
	assert.Equal(t, time.Minute, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.Origins)

	ec := cfg.EngineConfig()
	assert.False(t, ec.CacheEnabled)
	assert.Equal(t, 30, ec.HorizonDays)
}

func TestApplyEnv_Errors(t *testing.T) {
	for _, key := range []string{"RECUR_HORIZON_DAYS", "RECUR_CACHE_ENABLED", "RECUR_SHUTDOWN_TIMEOUT"} {
		t.Run(key, func(t *testing.T) {
			err := Default().applyEnv(env(map[string]string{key: "soon"}))
			assert.ErrorContains(t, err, key)
		})
	}
}

func TestEngineConfig_CacheReenabled(t *testing.T) {
	on := true
	cfg := Default()
	cfg.Engine = EngineConfig{Preset: PresetDisabled, CacheEnabled: &on}

	ec := cfg.EngineConfig()
	assert.True(t, ec.CacheEnabled)
	assert.Equal(t, recurrence.DefaultCacheConfig, ec.CacheConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"no listen", func(c *Config) { c.Listen = "" }, "listen address"},
		{"driver", func(c *Config) { c.Storage.Driver = "postgres" }, `unknown storage driver "postgres"`},
		{"level", func(c *Config) { c.Log.Level = "loud" }, `unknown log level "loud"`},
		{"format", func(c *Config) { c.Log.Format = "xml" }, `unknown log format "xml"`},
		{"horizon", func(c *Config) { c.Engine.HorizonDays = -1 }, "horizon_days"},
		{"horizon too large", func(c *Config) { c.Engine.HorizonDays = 200000 }, "horizon_days must not exceed 100000"},
		{"nameless user", func(c *Config) { c.Auth.Users = []UserConfig{{Password: "x"}} }, "name is required"},
		{"duplicate user", func(c *Config) {
			c.Auth.Users = []UserConfig{{Name: "a", Password: "x"}, {Name: "a", Password: "y"}}
		}, `duplicate user "a"`},
		{"no secret", func(c *Config) { c.Auth.Users = []UserConfig{{Name: "a"}} }, "needs a password or a token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestLogConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "id", "x")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	logger, err = LogConfig{Level: "DEBUG", Format: "text"}.NewLogger(&buf)
	require.NoError(t, err)
	logger.Debug("detail")
	assert.Contains(t, buf.String(), "msg=detail")

	_, err = LogConfig{Level: "info", Format: "xml"}.NewLogger(&buf)
	assert.Error(t, err)
}
