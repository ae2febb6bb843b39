package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	_, err := Load("/nonexistent/path/contactdb.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}
	// Load with empty path uses default search (may use defaults if no config file)
	chdir(t, t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("default addr: got %s", cfg.Server.Addr)
	}
	if cfg.Server.TCPAddr != ":9090" {
		t.Errorf("default tcp_addr: got %s", cfg.Server.TCPAddr)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("default driver: got %s", cfg.Storage.Driver)
	}
	if cfg.Storage.Path != "contact_data" {
		t.Errorf("default path: got %s", cfg.Storage.Path)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("default log: got %+v", cfg.Log)
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("PORT", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	content := `
server:
  addr: ":9000"
storage:
  driver: "badger"
  path: "test_data"
log:
  level: "debug"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("addr: got %s", cfg.Server.Addr)
	}
	if cfg.Server.TCPAddr != ":9090" {
		t.Errorf("tcp_addr should keep its default: got %s", cfg.Server.TCPAddr)
	}
	if cfg.Storage.Driver != "badger" {
		t.Errorf("driver: got %s", cfg.Storage.Driver)
	}
	if cfg.Storage.Path != "test_data" {
		t.Errorf("path: got %s", cfg.Storage.Path)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("level: got %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("format should keep its default: got %s", cfg.Log.Format)
	}
}

func TestSearchPathAndPortOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "configs"), 0755); err != nil {
		t.Fatal(err)
	}
	content := "storage:\n  driver: memory\n"
	if err := os.WriteFile(filepath.Join(dir, "configs", "contactdb.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)
	t.Setenv("PORT", "5000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("driver from configs/contactdb.yaml: got %s", cfg.Storage.Driver)
	}
	if cfg.Server.Addr != ":5000" {
		t.Errorf("PORT override: got %s", cfg.Server.Addr)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
