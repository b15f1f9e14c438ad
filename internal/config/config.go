package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Front ends the server binary can start.
const (
	FrontendWeb      = "web"
	FrontendTerminal = "terminal"
	FrontendBoth     = "both"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Files     FilesConfig     `yaml:"files"`
	Execution ExecutionConfig `yaml:"execution"`
	UI        UIConfig        `yaml:"ui"`
	Database  DatabaseConfig  `yaml:"database"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Security  SecurityConfig  `yaml:"security"`
	TLS       TLSConfig       `yaml:"tls"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBody  int64         `yaml:"max_request_body_bytes"`
}

type FilesConfig struct {
	Root    string `yaml:"root"`    // default location for requests that omit one
	Confine bool   `yaml:"confine"` // reject paths resolving outside root
}

type ExecutionConfig struct {
	Timeout         time.Duration `yaml:"timeout"` // 0 disables
	MaxOutputBytes  int           `yaml:"max_output_bytes"`
	TempDir         string        `yaml:"temp_dir"`
	StrictFilenames bool          `yaml:"strict_filenames"`
}

type UIConfig struct {
	Frontend      string `yaml:"frontend"` // "web" (default), "terminal", or "both"
	KnownFilesCap int    `yaml:"known_files_cap"`
}

type DatabaseConfig struct {
	DSN           string `yaml:"dsn"`
	MaxConns      int32  `yaml:"max_conns"`
	HistoryBuffer int    `yaml:"history_buffer"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type SecurityConfig struct {
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// TLSConfig controls HTTPS/TLS termination.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// LoggingConfig controls the global logger. File is used instead of stderr
// when set, and is needed when the terminal UI owns the console.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- path comes from env or hardcoded default
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns sensible defaults for all configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    65 * time.Second, // > execution timeout + overhead
			ShutdownTimeout: 30 * time.Second,
			MaxRequestBody:  1 << 20, // 1MB
		},
		Files: FilesConfig{
			Root: ".",
		},
		Execution: ExecutionConfig{
			Timeout:        30 * time.Second,
			MaxOutputBytes: 8192,
		},
		UI: UIConfig{
			Frontend:      FrontendWeb,
			KnownFilesCap: 100,
		},
		Database: DatabaseConfig{
			MaxConns:      10,
			HistoryBuffer: 1000,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Security: SecurityConfig{
			RateLimitRPS:   100,
			RateLimitBurst: 200,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ApplyEnv overrides settings from PORT and NEXUS_FRONTEND.
func (c *Config) ApplyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("PORT must be a number, got %q", port)
		}
		c.Server.Port = p
	}
	if fe := os.Getenv("NEXUS_FRONTEND"); fe != "" {
		c.UI.Frontend = strings.ToLower(fe)
	}
	return c.Validate()
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Execution.Timeout < 0 {
		return fmt.Errorf("execution.timeout must be >= 0, got %s", c.Execution.Timeout)
	}
	if c.Execution.MaxOutputBytes < 1 {
		return fmt.Errorf("execution.max_output_bytes must be >= 1")
	}
	switch c.UI.Frontend {
	case FrontendWeb, FrontendTerminal, FrontendBoth:
	default:
		return fmt.Errorf("ui.frontend must be web, terminal, or both, got %q", c.UI.Frontend)
	}
	if c.UI.KnownFilesCap < 1 {
		return fmt.Errorf("ui.known_files_cap must be >= 1")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}
	if c.TLS.Enabled {
		if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
			return fmt.Errorf("tls.cert_file and tls.key_file are required when TLS is enabled")
		}
	}
	if c.Logging.Level != "" {
		if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
			return fmt.Errorf("logging.level: %w", err)
		}
	}
	if c.Execution.Timeout > 0 && c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= c.Execution.Timeout {
		log.Warn().
			Dur("write_timeout", c.Server.WriteTimeout).
			Dur("execution_timeout", c.Execution.Timeout).
			Msg("server.write_timeout does not exceed execution.timeout; long executions will lose their response")
	}
	if c.Database.DSN != "" && strings.Contains(c.Database.DSN, "sslmode=disable") {
		log.Warn().Msg("database DSN has sslmode=disable, connections to Postgres are unencrypted")
	}
	return nil
}

// Address returns the listen address string.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// TerminalEnabled reports whether the terminal UI should run.
func (c *Config) TerminalEnabled() bool {
	return c.UI.Frontend == FrontendTerminal || c.UI.Frontend == FrontendBoth
}

// WebEnabled reports whether the HTTP server should run.
func (c *Config) WebEnabled() bool {
	return c.UI.Frontend == FrontendWeb || c.UI.Frontend == FrontendBoth
}
