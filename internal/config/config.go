package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/develotters/wiretap/internal/logging"
)

// CurrentVersion is the only config file version this build understands.
const CurrentVersion = 1

// Defaults applied when neither the config file nor a flag sets a value.
const (
	DefaultPort           = 8080
	DefaultReadTimeout    = 10 * time.Second
	DefaultConnectTimeout = 3 * time.Second
	DefaultLogLevel       = "info"
)

// Mode selects which listener is started.
type Mode string

const (
	// ModeTCP accepts raw byte streams and discards them.
	ModeTCP Mode = "tcp"
	// ModeHTTP serves "ok" on every route and echoes WebSocket frames on /ws.
	ModeHTTP Mode = "http"
)

// Config is the on-disk configuration file.
type Config struct {
	Version   int             `yaml:"version"`
	Server    ServerConfig    `yaml:"server"`
	Limits    LimitsConfig    `yaml:"limits,omitempty"`
	Capture   CaptureConfig   `yaml:"capture,omitempty"`
	Advertise AdvertiseConfig `yaml:"advertise,omitempty"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig describes the listener.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Mode           Mode          `yaml:"mode"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`    // read-idle timeout, 0 disables
	ConnectTimeout time.Duration `yaml:"connect_timeout"` // HTTP header read and WebSocket upgrade budget
	Wiretap        bool          `yaml:"wiretap"`
	WSPingInterval time.Duration `yaml:"ws_ping_interval,omitempty"`
}

// LimitsConfig holds optional accept limits. Zero means unlimited.
type LimitsConfig struct {
	MaxConnections int     `yaml:"max_connections,omitempty"`
	AcceptRate     float64 `yaml:"accept_rate,omitempty"` // accepts per second
	AcceptBurst    int     `yaml:"accept_burst,omitempty"`
}

// CaptureConfig enables payload capture. Empty values disable the sink.
type CaptureConfig struct {
	Dir string `yaml:"dir,omitempty"` // JSONL capture directory (must exist)
	DB  string `yaml:"db,omitempty"`  // SQLite database file
}

// AdvertiseConfig controls mDNS registration of the listener.
type AdvertiseConfig struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	Instance string `yaml:"instance,omitempty"`
}

// LogConfig holds logging options.
type LogConfig struct {
	Level string `yaml:"level"`
}

// fileMutex serializes Save calls within the process.
var fileMutex sync.Mutex

// Default returns the built-in configuration: TCP on port 8080 with a
// 10 second read-idle timeout and wiretap logging enabled.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Server: ServerConfig{
			Port:           DefaultPort,
			Mode:           ModeTCP,
			ReadTimeout:    DefaultReadTimeout,
			ConnectTimeout: DefaultConnectTimeout,
			Wiretap:        true,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

// Addr returns the host:port the listener binds to.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Load reads a config file. Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", cfg.Version, CurrentVersion)
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but returns Default() when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d out of range (0-65535)", c.Server.Port)
	}
	switch c.Server.Mode {
	case ModeTCP, ModeHTTP:
	default:
		return fmt.Errorf("server.mode: unknown mode %q (expected tcp or http)", c.Server.Mode)
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server.read_timeout: must not be negative")
	}
	if c.Server.ConnectTimeout < 0 {
		return fmt.Errorf("server.connect_timeout: must not be negative")
	}
	if c.Server.WSPingInterval < 0 {
		return fmt.Errorf("server.ws_ping_interval: must not be negative")
	}
	if c.Limits.MaxConnections < 0 {
		return fmt.Errorf("limits.max_connections: must not be negative")
	}
	if c.Limits.AcceptRate < 0 {
		return fmt.Errorf("limits.accept_rate: must not be negative")
	}
	if c.Limits.AcceptBurst < 0 {
		return fmt.Errorf("limits.accept_burst: must not be negative")
	}
	if c.Log.Level != "" {
		if _, err := logging.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Save writes the configuration to path atomically (temp file + rename).
func (c *Config) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	header := []byte("# wiretap configuration\n" +
		"# Flags given on the command line override these values.\n" +
		"#\n" +
		"# Location: " + path + "\n\n")
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}
