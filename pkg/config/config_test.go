package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("store", "file", "")
	fs.String("book", "loanbook.yaml", "")
	fs.String("today", "", "")
	fs.String("log-level", "info", "")
	return fs
}

func TestBuildDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Build("", nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if cfg.Store != "file" || cfg.Book != "loanbook.yaml" || cfg.Redis.Prefix != "loanbook" || cfg.HTTP.Addr != "0.0.0.0:3000" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.LogLevel() != log.InfoLevel {
		t.Errorf("expected info level, got %v", cfg.LogLevel())
	}
}

func TestBuildPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `store: redis
book: from-file.yaml
redis:
  addr: cache:6379
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOANBOOK_REDIS_PREFIX", "from-env")
	t.Setenv("LOANBOOK_LOG_LEVEL", "warn")

	fs := testFlags()
	if err := fs.Parse([]string{"--book", "from-flag.yaml", "--today", "2024-01-01"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Build(path, fs)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if cfg.Store != "redis" || cfg.Redis.Addr != "cache:6379" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Redis.Prefix != "from-env" || cfg.LogLevel() != log.WarnLevel {
		t.Errorf("env values not applied: %+v", cfg)
	}
	if cfg.Book != "from-flag.yaml" || cfg.Today != "2024-01-01" {
		t.Errorf("flag values not applied: %+v", cfg)
	}
}

func TestBuildErrors(t *testing.T) {
	if _, err := Build(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Errorf("expected error for missing explicit config file")
	}

	t.Chdir(t.TempDir())
	t.Setenv("LOANBOOK_STORE", "sqlite")
	if _, err := Build("", nil); err == nil {
		t.Errorf("expected error for unknown store")
	}
}
