/*
   Copyright 2025 The DIRPX Authors

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Token store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

const (
	defaultStaleAfter    = 30 * time.Second
	defaultSweepInterval = 60 * time.Second
	defaultRefreshTO     = 10 * time.Second
	defaultRedirectDelay = 1500 * time.Millisecond
	defaultLoginPath     = "/login"
	defaultRefreshPath   = "/auth/refresh"
	defaultSQLitePath    = "~/.local/share/reqflow/credentials.db"
)

// Duration is a time.Duration read from strings such as "1.5s".
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config is the resolved client configuration.
type Config struct {
	Environment string        `toml:"environment" validate:"oneof=development production test"`
	Log         LogConfig     `toml:"log"`
	API         APIConfig     `toml:"api"`
	Dedup       DedupConfig   `toml:"dedup"`
	Refresh     RefreshConfig `toml:"refresh"`
	Auth        AuthConfig    `toml:"auth"`
	Store       StoreConfig   `toml:"store"`
}

type LogConfig struct {
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" validate:"oneof=text json"`
}

type APIConfig struct {
	BaseURL     string `toml:"base_url" validate:"omitempty,url"`
	RefreshPath string `toml:"refresh_path" validate:"required,startswith=/"`
}

type DedupConfig struct {
	StaleAfter    Duration    `toml:"stale_after" validate:"gt=0"`
	SweepInterval Duration    `toml:"sweep_interval" validate:"gt=0"`
	Routes        []RouteRule `toml:"routes" validate:"dive"`
}

// RouteRule overrides the default tracking decision for a path prefix.
type RouteRule struct {
	Prefix string `toml:"prefix" validate:"required"`
	Policy string `toml:"policy" validate:"oneof=track bypass"`
}

type RefreshConfig struct {
	Timeout Duration `toml:"timeout" validate:"gt=0"`
}

type AuthConfig struct {
	LoginPath     string   `toml:"login_path" validate:"required,startswith=/"`
	RedirectDelay Duration `toml:"redirect_delay" validate:"gte=0"`
}

type StoreConfig struct {
	Driver string `toml:"driver" validate:"oneof=memory sqlite"`
	Path   string `toml:"path" validate:"required_if=Driver sqlite"`
}

// Development reports whether development diagnostics are enabled.
func (c Config) Development() bool { return c.Environment == EnvDevelopment }

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Environment: EnvProduction,
		Log:         LogConfig{Level: "info", Format: "text"},
		API:         APIConfig{RefreshPath: defaultRefreshPath},
		Dedup: DedupConfig{
			StaleAfter:    Duration(defaultStaleAfter),
			SweepInterval: Duration(defaultSweepInterval),
		},
		Refresh: RefreshConfig{Timeout: Duration(defaultRefreshTO)},
		Auth: AuthConfig{
			LoginPath:     defaultLoginPath,
			RedirectDelay: Duration(defaultRedirectDelay),
		},
		Store: StoreConfig{Driver: DriverMemory, Path: defaultSQLitePath},
	}
}

var validate = validator.New()

// Load reads the TOML file at path, applies REQFLOW_* environment
// overrides and validates the result. A missing file, or an empty path,
// yields the defaults.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

// LoadWithDotEnv is Load with the variables of envFile as a fallback for
// the process environment. Process variables win. A missing envFile is
// ignored.
func LoadWithDotEnv(path, envFile string) (Config, error) {
	vars, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read env file: %w", err)
	}
	return load(path, func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	})
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		if err := readFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	normalize(&cfg)

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Store.Driver == DriverSQLite {
		p, err := expandPath(cfg.Store.Path)
		if err != nil {
			return Config{}, fmt.Errorf("store path: %w", err)
		}
		cfg.Store.Path = p
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	resolved, err := expandPath(path)
	if err != nil {
		return err
	}
	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	b, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// envBindings maps REQFLOW_* variables onto config fields.
var envBindings = []struct {
	key string
	set func(*Config, string) error
}{
	{"REQFLOW_ENV", func(c *Config, v string) error { c.Environment = v; return nil }},
	{"REQFLOW_LOG_LEVEL", func(c *Config, v string) error { c.Log.Level = v; return nil }},
	{"REQFLOW_LOG_FORMAT", func(c *Config, v string) error { c.Log.Format = v; return nil }},
	{"REQFLOW_API_BASE_URL", func(c *Config, v string) error { c.API.BaseURL = v; return nil }},
	{"REQFLOW_REFRESH_PATH", func(c *Config, v string) error { c.API.RefreshPath = v; return nil }},
	{"REQFLOW_DEDUP_STALE_AFTER", func(c *Config, v string) error { return c.Dedup.StaleAfter.UnmarshalText([]byte(v)) }},
	{"REQFLOW_DEDUP_SWEEP_INTERVAL", func(c *Config, v string) error { return c.Dedup.SweepInterval.UnmarshalText([]byte(v)) }},
	{"REQFLOW_REFRESH_TIMEOUT", func(c *Config, v string) error { return c.Refresh.Timeout.UnmarshalText([]byte(v)) }},
	{"REQFLOW_LOGIN_PATH", func(c *Config, v string) error { c.Auth.LoginPath = v; return nil }},
	{"REQFLOW_REDIRECT_DELAY", func(c *Config, v string) error { return c.Auth.RedirectDelay.UnmarshalText([]byte(v)) }},
	{"REQFLOW_STORE_DRIVER", func(c *Config, v string) error { c.Store.Driver = v; return nil }},
	{"REQFLOW_STORE_PATH", func(c *Config, v string) error { c.Store.Path = v; return nil }},
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		v, ok := lookup(b.key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := b.set(cfg, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%s: %w", b.key, err)
		}
	}
	return nil
}

func normalize(cfg *Config) {
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	for i := range cfg.Dedup.Routes {
		cfg.Dedup.Routes[i].Policy = strings.ToLower(strings.TrimSpace(cfg.Dedup.Routes[i].Policy))
	}
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

// Encode renders cfg as TOML.
func Encode(w io.Writer, cfg Config) error {
	enc := toml.NewEncoder(w)
	return enc.Encode(cfg)
}
