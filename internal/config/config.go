// Package config loads FitSmart settings from YAML, .env and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/juanrdzmb/fitsmartv3/internal/gateway"
	"github.com/juanrdzmb/fitsmartv3/internal/intake"
	"github.com/juanrdzmb/fitsmartv3/internal/report"
	"github.com/juanrdzmb/fitsmartv3/internal/session"
)

// ErrMissingAPIKey is returned when no engine key is configured.
var ErrMissingAPIKey = errors.New("gemini.api_key is required (or GEMINI_API_KEY)")

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Limits    intake.Limits   `yaml:"limits"`
	Sessions  session.Config  `yaml:"sessions"`
	Report    report.Options  `yaml:"report"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	// StateDir holds the CLI's SQLite run log. Defaults to ~/.fitsmart.
	StateDir string `yaml:"state_dir"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type GeminiConfig struct {
	APIKey            string         `yaml:"api_key"`
	RequestsPerSecond int            `yaml:"requests_per_second"`
	Stages            gateway.Stages `yaml:"stages"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// Enabled reports whether a PostgreSQL run log is configured.
func (d DatabaseConfig) Enabled() bool { return d.Host != "" }

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Addr returns the plain HTTP listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads config from a YAML file, then .env, then environment variable
// overrides. An empty path skips the file. Env vars use the prefix
// FITSMART_ and underscore-separated paths:
//
//	FITSMART_SERVER_HOST, FITSMART_SERVER_PORT,
//	FITSMART_DB_HOST, FITSMART_DB_PORT, FITSMART_DB_NAME,
//	FITSMART_DB_USER, FITSMART_DB_PASSWORD, FITSMART_DB_SSLMODE,
//	FITSMART_AUTH_API_KEY, FITSMART_GEMINI_API_KEY (or GEMINI_API_KEY),
//	FITSMART_GEMINI_RPS, FITSMART_STATE_DIR,
//	FITSMART_TAILSCALE_ENABLED, FITSMART_TAILSCALE_HOSTNAME
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// StateDir resolves the local state directory without validating the rest
// of the config, for commands that never call the engine. A non-empty
// override wins over the file and the environment.
func StateDir(path, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	cfg, err := read(path)
	if err != nil {
		return "", err
	}
	return cfg.StateDir, nil
}

func read(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// A missing .env is normal outside development.
	_ = godotenv.Load()
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FITSMART_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("FITSMART_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FITSMART_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("FITSMART_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("FITSMART_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("FITSMART_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("FITSMART_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("FITSMART_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("FITSMART_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("FITSMART_GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	} else if v := os.Getenv("GEMINI_API_KEY"); v != "" && cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("FITSMART_GEMINI_RPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Gemini.RequestsPerSecond = n
		}
	}
	if v := os.Getenv("FITSMART_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if v := os.Getenv("FITSMART_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	if v := os.Getenv("FITSMART_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Gemini.RequestsPerSecond <= 0 {
		cfg.Gemini.RequestsPerSecond = 2
	}
	if cfg.StateDir == "" {
		cfg.StateDir = DefaultStateDir()
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "fitsmart"
	}
}

// DefaultStateDir is ~/.fitsmart, or .fitsmart when there is no home.
func DefaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fitsmart"
	}
	return filepath.Join(home, ".fitsmart")
}

func (c *Config) validate() error {
	if c.Gemini.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Database.Enabled() {
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	}
	return nil
}

// RequireServer checks the settings only the HTTP server needs.
func (c *Config) RequireServer() error {
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	return nil
}
