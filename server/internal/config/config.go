package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fractalscope/fractalscope/pkg/fractal"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort        = 8080
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMaxLiveClients  = 256
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket hub and metrics listen on.
	HTTPPort int `yaml:"http_port"`

	// UIDir, when set, is a directory of static UI files served at "/".
	UIDir string `yaml:"ui_dir"`

	// ShutdownTimeout bounds graceful shutdown of the HTTP server.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Estimator configures the slope classifier. Hot-reloadable.
	Estimator fractal.Config `yaml:"estimator"`

	// Live configures the WebSocket calculator.
	Live LiveConfig `yaml:"live"`
}

// LiveConfig controls the /ws/estimate endpoint.
type LiveConfig struct {
	Enabled bool `yaml:"enabled"`

	// MaxClients caps concurrent connections. Zero means no cap.
	MaxClients int `yaml:"max_clients"`
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse is Load for an in-memory document.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config pre-populated with default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        DefaultHTTPPort,
			ShutdownTimeout: DefaultShutdownTimeout,
			Estimator:       fractal.DefaultConfig(),
			Live: LiveConfig{
				Enabled:    true,
				MaxClients: DefaultMaxLiveClients,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	if cfg.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must not be negative")
	}
	th := cfg.Server.Estimator.Threshold
	if math.IsNaN(th) || math.IsInf(th, 0) {
		return fmt.Errorf("server.estimator.threshold must be a finite number")
	}
	if cfg.Server.Live.MaxClients < 0 {
		return fmt.Errorf("server.live.max_clients must not be negative")
	}
	if cfg.Server.UIDir != "" {
		fi, err := os.Stat(cfg.Server.UIDir)
		if err != nil {
			return fmt.Errorf("server.ui_dir: %w", err)
		}
		if !fi.IsDir() {
			return fmt.Errorf("server.ui_dir %q is not a directory", cfg.Server.UIDir)
		}
	}
	return nil
}
