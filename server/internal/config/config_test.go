package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	// Other top-level sections are ignored by the server.
	p := writeConfig(t, `cli:
  output: json
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Server.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("shutdown_timeout: got %v, want %v", cfg.Server.ShutdownTimeout, DefaultShutdownTimeout)
	}
	if cfg.Server.Estimator.Threshold != 1.5 {
		t.Errorf("estimator.threshold: got %v, want 1.5", cfg.Server.Estimator.Threshold)
	}
	if !cfg.Server.Live.Enabled {
		t.Error("live.enabled: got false, want true")
	}
	if cfg.Server.Live.MaxClients != DefaultMaxLiveClients {
		t.Errorf("live.max_clients: got %d, want %d", cfg.Server.Live.MaxClients, DefaultMaxLiveClients)
	}
}

func TestLoad_FullServer(t *testing.T) {
	uiDir := t.TempDir()
	p := writeConfig(t, `server:
  http_port: 9091
  ui_dir: `+uiDir+`
  shutdown_timeout: 3s
  estimator:
    threshold: 1.75
  live:
    enabled: false
    max_clients: 4
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != 9091 {
		t.Errorf("http_port: got %d, want 9091", cfg.Server.HTTPPort)
	}
	if cfg.Server.UIDir != uiDir {
		t.Errorf("ui_dir: got %q, want %q", cfg.Server.UIDir, uiDir)
	}
	if cfg.Server.ShutdownTimeout != 3*time.Second {
		t.Errorf("shutdown_timeout: got %v, want 3s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.Estimator.Threshold != 1.75 {
		t.Errorf("estimator.threshold: got %v, want 1.75", cfg.Server.Estimator.Threshold)
	}
	if cfg.Server.Live.Enabled {
		t.Error("live.enabled: got true, want false")
	}
	if cfg.Server.Live.MaxClients != 4 {
		t.Errorf("live.max_clients: got %d, want 4", cfg.Server.Live.MaxClients)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"port zero", "server:\n  http_port: 0\n"},
		{"port too high", "server:\n  http_port: 70000\n"},
		{"negative shutdown", "server:\n  shutdown_timeout: -1s\n"},
		{"nan threshold", "server:\n  estimator:\n    threshold: .nan\n"},
		{"inf threshold", "server:\n  estimator:\n    threshold: .inf\n"},
		{"negative max clients", "server:\n  live:\n    max_clients: -1\n"},
		{"missing ui dir", "server:\n  ui_dir: /nonexistent/ui/dist\n"},
		{"bad yaml", "server: [unclosed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.yaml)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_UIDirIsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(f, []byte("<html></html>"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(writeConfig(t, "server:\n  ui_dir: "+f+"\n")); err == nil {
		t.Fatal("expected error for ui_dir pointing at a file, got nil")
	}
}

func TestLoad_NegativeThresholdAllowed(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  estimator:\n    threshold: -0.5\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Estimator.Threshold != -0.5 {
		t.Errorf("estimator.threshold: got %v, want -0.5", cfg.Server.Estimator.Threshold)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
