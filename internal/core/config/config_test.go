package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"explicitexports/internal/core/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "explicitexports.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
transform_assign_expr = true
workers = 2

[languages.typescript]
extensions = [".ts"]

[paths]
include = ["src/*.ts"]
exclude_dirs = ["vendor"]
exclude_files = []

[output]
mode = "OUT_DIR"
out_dir = "build/explicit"
report = "yaml"

[watch]
debounce = "1s"
rate_limit = 2.5
burst = 1

[history]
enabled = true

[log]
level = "debug"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !cfg.TransformAssignExpr {
		t.Error("Expected transform_assign_expr to be true")
	}
	if cfg.Workers != 2 {
		t.Errorf("Expected 2 workers, got %d", cfg.Workers)
	}
	if len(cfg.Paths.Include) != 1 || cfg.Paths.Include[0] != "src/*.ts" {
		t.Errorf("Unexpected include: %v", cfg.Paths.Include)
	}
	if len(cfg.Paths.ExcludeFiles) != 0 {
		t.Errorf("Expected explicit empty exclude_files to be kept, got %v", cfg.Paths.ExcludeFiles)
	}
	if cfg.Output.Mode != OutputDir {
		t.Errorf("Expected mode out_dir, got %q", cfg.Output.Mode)
	}
	if cfg.Output.Report != "yaml" {
		t.Errorf("Expected yaml report, got %q", cfg.Output.Report)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("Expected debounce 1s, got %v", cfg.Watch.Debounce)
	}
	if cfg.Watch.RateLimit != 2.5 || cfg.Watch.Burst != 1 {
		t.Errorf("Unexpected watch limits: %+v", cfg.Watch)
	}
	if cfg.History.Path != ".explicitexports/history.db" {
		t.Errorf("Expected default history path, got %q", cfg.History.Path)
	}
	if got := cfg.LanguageOverrides()["typescript"].Extensions; len(got) != 1 {
		t.Errorf("Unexpected typescript override: %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("Expected NOT_FOUND, got %v", err)
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "workers = [\n"))
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("Expected VALIDATION_ERROR, got %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config must be valid: %v", err)
	}
	if cfg.TransformAssignExpr {
		t.Error("Assignment rewriting must be off by default")
	}
	if cfg.Output.Mode != OutputStdout {
		t.Errorf("Expected stdout mode, got %q", cfg.Output.Mode)
	}
	if cfg.Watch.Debounce != 300*time.Millisecond {
		t.Errorf("Expected 300ms debounce, got %v", cfg.Watch.Debounce)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 0
	cfg.Output.Mode = OutputDir
	cfg.Output.Report = "xml"
	cfg.Paths.Include = []string{"src/[a"}
	cfg.Log.Level = "trace"
	cfg.Languages = map[string]Language{"cobol": {}}

	err := cfg.Validate()
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("Expected VALIDATION_ERROR, got %v", err)
	}
	for _, want := range []string{
		"workers must be between 1 and 256",
		"output.out_dir must be set",
		"output.report must be one of",
		`paths.include[0] "src/[a" is not a valid glob`,
		"log.level must be one of",
		`unknown language override "cobol"`,
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q in %v", want, err)
		}
	}
}

func TestValidateStdoutReportNeedsPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Report = "json"

	err := cfg.Validate()
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("Expected VALIDATION_ERROR, got %v", err)
	}
	if !strings.Contains(err.Error(), "output.report_path must be set") {
		t.Errorf("Expected report_path error, got %v", err)
	}

	cfg.Output.ReportPath = "report.json"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	cfg.Output.ReportPath = ""
	cfg.Output.Mode = OutputWrite
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected report on stdout to be valid in write mode, got %v", err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("EXPLICITEXPORTS_TRANSFORM_ASSIGN_EXPR", "true")
	t.Setenv("EXPLICITEXPORTS_WATCH_DEBOUNCE", "2s")
	t.Setenv("EXPLICITEXPORTS_WORKERS", "not-a-number")

	cfg := DefaultConfig()
	ApplyEnvOverrides(cfg)
	if !cfg.TransformAssignExpr {
		t.Error("Expected env override of transform_assign_expr")
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("Expected 2s debounce, got %v", cfg.Watch.Debounce)
	}
	if cfg.Workers != 4 {
		t.Errorf("Invalid env values must be ignored, got %d workers", cfg.Workers)
	}
}

func TestResolvePaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.OutDir = "out"
	cfg.Log.File = "/var/log/x.log"
	ResolvePaths(cfg, "/project")

	if cfg.History.Path != filepath.Join("/project", ".explicitexports", "history.db") {
		t.Errorf("Unexpected history path %q", cfg.History.Path)
	}
	if cfg.Output.OutDir != filepath.Join("/project", "out") {
		t.Errorf("Unexpected out dir %q", cfg.Output.OutDir)
	}
	if cfg.Log.File != "/var/log/x.log" {
		t.Errorf("Absolute paths must be kept, got %q", cfg.Log.File)
	}
	if cfg.Output.ReportPath != "" {
		t.Errorf("Empty paths must stay empty, got %q", cfg.Output.ReportPath)
	}
}

func TestWatcherReloads(t *testing.T) {
	path := writeConfig(t, "workers = 1\n")

	reloaded := make(chan *Config, 1)
	w := NewWatcher(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("workers = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Workers != 3 {
			t.Errorf("Expected reloaded workers 3, got %d", cfg.Workers)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for config reload")
	}
}
