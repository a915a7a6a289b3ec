// Package config loads the recur service configuration.
//
// Values come from, in increasing precedence: built-in defaults, an
// optional YAML file, a .env file, and RECUR_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cyp0633/librecur/recurrence"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Engine presets, mapped onto the recurrence package's configs
const (
	PresetDefault         = "default"
	PresetHighPerformance = "high_performance"
	PresetLowMemory       = "low_memory"
	PresetDisabled        = "disabled"
)

// Config is the full service configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Engine  EngineConfig  `yaml:"engine"`
	Auth    AuthConfig    `yaml:"auth"`
	CORS    CORSConfig    `yaml:"cors"`
}

// StorageConfig selects the schedule store.
type StorageConfig struct {
	// Driver is "memory" or "sqlite".
	Driver string `yaml:"driver"`

	// Path is the SQLite database file. Required for sqlite.
	Path string `yaml:"path"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// EngineConfig tunes expansion and caching.
type EngineConfig struct {
	// Preset is the starting point: default, high_performance, low_memory
	// or disabled.
	Preset string `yaml:"preset"`

	// HorizonDays overrides the preset's look-ahead when positive.
	HorizonDays int `yaml:"horizon_days"`

	// CacheEnabled overrides the preset when set.
	CacheEnabled *bool `yaml:"cache_enabled,omitempty"`
}

// AuthConfig lists the principals the server accepts. No users means
// authentication is off.
type AuthConfig struct {
	Realm string       `yaml:"realm"`
	Users []UserConfig `yaml:"users"`
}

// UserConfig is one principal and its bearer tokens.
type UserConfig struct {
	Name     string   `yaml:"name"`
	Password string   `yaml:"password"`
	ReadOnly bool     `yaml:"read_only"`
	Tokens   []string `yaml:"tokens"`
}

// CORSConfig lists allowed browser origins. Empty disables CORS.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Listen:          ":8080",
		ShutdownTimeout: 10 * time.Second,
		Storage:         StorageConfig{Driver: DriverMemory},
		Log:             LogConfig{Level: "info", Format: "text"},
		Engine:          EngineConfig{Preset: PresetDefault},
		Auth:            AuthConfig{Realm: "librecur"},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply. A missing .env file is ignored.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode merges YAML over the current values and rejects unknown keys.
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overrides fields from RECUR_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("RECUR_LISTEN", &c.Listen)
	str("RECUR_STORAGE_DRIVER", &c.Storage.Driver)
	str("RECUR_STORAGE_PATH", &c.Storage.Path)
	str("RECUR_LOG_LEVEL", &c.Log.Level)
	str("RECUR_LOG_FORMAT", &c.Log.Format)
	str("RECUR_ENGINE_PRESET", &c.Engine.Preset)

	if v, ok := lookup("RECUR_HORIZON_DAYS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RECUR_HORIZON_DAYS: %w", err)
		}
		c.Engine.HorizonDays = n
	}
	if v, ok := lookup("RECUR_CACHE_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RECUR_CACHE_ENABLED: %w", err)
		}
		c.Engine.CacheEnabled = &b
	}
	if v, ok := lookup("RECUR_SHUTDOWN_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RECUR_SHUTDOWN_TIMEOUT: %w", err)
		}
		c.ShutdownTimeout = d
	}
	if v, ok := lookup("RECUR_CORS_ORIGINS"); ok && v != "" {
		c.CORS.Origins = splitList(v)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("shutdown_timeout must not be negative"))
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	if _, ok := presets[c.Engine.Preset]; !ok {
		errs = append(errs, fmt.Errorf("unknown engine preset %q", c.Engine.Preset))
	}
	if c.Engine.HorizonDays < 0 {
		errs = append(errs, errors.New("engine.horizon_days must not be negative"))
	}
	if c.Engine.HorizonDays > recurrence.MaxHorizonDays {
		errs = append(errs, fmt.Errorf("engine.horizon_days must not exceed %d", recurrence.MaxHorizonDays))
	}

	seen := make(map[string]bool)
	for i, u := range c.Auth.Users {
		if u.Name == "" {
			errs = append(errs, fmt.Errorf("auth.users[%d]: name is required", i))
			continue
		}
		if seen[u.Name] {
			errs = append(errs, fmt.Errorf("auth.users[%d]: duplicate user %q", i, u.Name))
		}
		seen[u.Name] = true
		if u.Password == "" && len(u.Tokens) == 0 {
			errs = append(errs, fmt.Errorf("auth.users[%d]: %q needs a password or a token", i, u.Name))
		}
	}

	return errors.Join(errs...)
}

var presets = map[string]recurrence.EngineConfig{
	PresetDefault:         recurrence.DefaultEngineConfig,
	PresetHighPerformance: recurrence.HighPerformanceConfig,
	PresetLowMemory:       recurrence.LowMemoryConfig,
	PresetDisabled:        recurrence.DisabledCacheConfig,
}

// EngineConfig resolves the preset and overrides into an engine config.
func (c *Config) EngineConfig() recurrence.EngineConfig {
	ec, ok := presets[c.Engine.Preset]
	if !ok {
		ec = recurrence.DefaultEngineConfig
	}
	if c.Engine.HorizonDays > 0 {
		ec.HorizonDays = c.Engine.HorizonDays
	}
	if c.Engine.CacheEnabled != nil {
		ec.CacheEnabled = *c.Engine.CacheEnabled
		if ec.CacheEnabled && ec.CacheConfig.MaxEntries == 0 {
			ec.CacheConfig = recurrence.DefaultCacheConfig
		}
	}
	return ec
}
