package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Version != CurrentVersion {
		t.Errorf("Default().Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Default().Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Mode != ModeTCP {
		t.Errorf("Default().Server.Mode = %q, want tcp", cfg.Server.Mode)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("Default().Server.ReadTimeout = %v, want 10s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.ConnectTimeout != 3*time.Second {
		t.Errorf("Default().Server.ConnectTimeout = %v, want 3s", cfg.Server.ConnectTimeout)
	}
	if !cfg.Server.Wiretap {
		t.Error("Default().Server.Wiretap should be true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestServerAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"", 8080, ":8080"},
		{"127.0.0.1", 9000, "127.0.0.1:9000"},
		{"::1", 80, "[::1]:80"},
	}
	for _, tt := range tests {
		got := ServerConfig{Host: tt.host, Port: tt.port}.Addr()
		if got != tt.want {
			t.Errorf("Addr(%q, %d) = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `version: 1
server:
  port: 9000
  mode: http
  read_timeout: 5s
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.Mode != ModeHTTP {
		t.Errorf("Mode = %q, want http", cfg.Server.Mode)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("ConnectTimeout = %v, want default %v", cfg.Server.ConnectTimeout, DefaultConnectTimeout)
	}
	if !cfg.Server.Wiretap {
		t.Error("Wiretap should keep its default of true")
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, DefaultLogLevel)
	}
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("version: 2\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() should reject version 2")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on malformed YAML")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Server.Port = 9100
	cfg.Server.Mode = ModeHTTP
	cfg.Server.WSPingInterval = 20 * time.Second
	cfg.Limits.MaxConnections = 64
	cfg.Capture.Dir = "/tmp/captures"
	cfg.Advertise.Enabled = true
	cfg.Advertise.Instance = "lab"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after Save")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.HasPrefix(string(raw), "# wiretap configuration") {
		t.Error("saved file should start with the header comment")
	}
	if !strings.Contains(string(raw), "read_timeout: 10s") {
		t.Errorf("durations should be written in human form, got:\n%s", raw)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Server != cfg.Server {
		t.Errorf("Server = %+v, want %+v", loaded.Server, cfg.Server)
	}
	if loaded.Limits != cfg.Limits {
		t.Errorf("Limits = %+v, want %+v", loaded.Limits, cfg.Limits)
	}
	if loaded.Capture != cfg.Capture {
		t.Errorf("Capture = %+v, want %+v", loaded.Capture, cfg.Capture)
	}
	if loaded.Advertise != cfg.Advertise {
		t.Errorf("Advertise = %+v, want %+v", loaded.Advertise, cfg.Advertise)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ephemeral port", func(c *Config) { c.Server.Port = 0 }, ""},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"negative port", func(c *Config) { c.Server.Port = -1 }, "server.port"},
		{"unknown mode", func(c *Config) { c.Server.Mode = "udp" }, "server.mode"},
		{"negative read timeout", func(c *Config) { c.Server.ReadTimeout = -time.Second }, "server.read_timeout"},
		{"negative connect timeout", func(c *Config) { c.Server.ConnectTimeout = -time.Second }, "server.connect_timeout"},
		{"negative ping interval", func(c *Config) { c.Server.WSPingInterval = -time.Second }, "server.ws_ping_interval"},
		{"negative max connections", func(c *Config) { c.Limits.MaxConnections = -1 }, "limits.max_connections"},
		{"negative accept rate", func(c *Config) { c.Limits.AcceptRate = -1 }, "limits.accept_rate"},
		{"negative accept burst", func(c *Config) { c.Limits.AcceptBurst = -1 }, "limits.accept_burst"},
		{"bad log level", func(c *Config) { c.Log.Level = "chatty" }, "log.level"},
		{"empty log level", func(c *Config) { c.Log.Level = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG lookup only applies on linux")
	}
	t.Setenv("XDG_CONFIG_HOME", "/xdg")

	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error = %v", err)
	}
	if dir != filepath.Join("/xdg", "wiretap") {
		t.Errorf("Dir() = %q, want /xdg/wiretap", dir)
	}

	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath() error = %v", err)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("DefaultPath() = %q, should end with config.yaml", path)
	}
}
