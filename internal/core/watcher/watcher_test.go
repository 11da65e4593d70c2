package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"explicitexports/internal/shared/util"
)

func newTestWatcher(t *testing.T, debounce time.Duration, excludeDirs, excludeFiles []string) (*Watcher, chan []string) {
	t.Helper()
	changedFiles := make(chan []string, 16)
	w, err := NewWatcher(debounce, excludeDirs, excludeFiles, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w, changedFiles
}

func waitFor(t *testing.T, changedFiles chan []string, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case paths := <-changedFiles:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func expectQuiet(t *testing.T, changedFiles chan []string, wait time.Duration) {
	t.Helper()
	select {
	case paths := <-changedFiles:
		t.Errorf("unexpected change batch %v", paths)
	case <-time.After(wait):
	}
}

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, "node_modules"), 0o755); err != nil {
		t.Fatal(err)
	}

	w, changedFiles := newTestWatcher(t, 50*time.Millisecond, []string{"node_modules"}, []string{"*.min.js"})
	w.SetExtensions([]string{".js", ".ts"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Watch(ctx, []string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	testFile := filepath.Join(tmpDir, "index.js")
	if err := os.WriteFile(testFile, []byte("export const a = 1;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, testFile, 2*time.Second)

	// Excluded names, directories and extensions never surface.
	for _, path := range []string{
		filepath.Join(tmpDir, "bundle.min.js"),
		filepath.Join(tmpDir, "readme.md"),
		filepath.Join(tmpDir, "node_modules", "dep.js"),
	} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	expectQuiet(t, changedFiles, 300*time.Millisecond)

	// New directories are watched recursively.
	subdir := filepath.Join(tmpDir, "lib")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	subFile := filepath.Join(subdir, "nested.ts")
	if err := os.WriteFile(subFile, []byte("export const n = 1;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, subFile, 2*time.Second)
}

func TestWatcher_IdenticalContentIsIgnored(t *testing.T) {
	tmpDir := t.TempDir()
	w, changedFiles := newTestWatcher(t, 50*time.Millisecond, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Watch(ctx, []string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	testFile := filepath.Join(tmpDir, "a.js")
	content := []byte("export function f() {}\n")
	if err := os.WriteFile(testFile, content, 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, testFile, time.Second)

	if err := os.WriteFile(testFile, content, 0o644); err != nil {
		t.Fatal(err)
	}
	expectQuiet(t, changedFiles, 300*time.Millisecond)

	// A remembered write is treated as already seen.
	rewritten := []byte("export function f() {}\nmodule.exports.f();\n")
	w.Remember(testFile, rewritten)
	if err := os.WriteFile(testFile, rewritten, 0o644); err != nil {
		t.Fatal(err)
	}
	expectQuiet(t, changedFiles, 300*time.Millisecond)

	if err := os.WriteFile(testFile, []byte("export function g() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, testFile, time.Second)
}

func TestWatcher_RenameTriggersChange(t *testing.T) {
	tmpDir := t.TempDir()
	w, changedFiles := newTestWatcher(t, 100*time.Millisecond, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Watch(ctx, []string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	oldPath := filepath.Join(tmpDir, "old.js")
	newPath := filepath.Join(tmpDir, "new.js")
	if err := os.WriteFile(oldPath, []byte("export const a = 1;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, newPath, 2*time.Second)
}

func TestWatcher_LimiterDelaysBatches(t *testing.T) {
	w, changedFiles := newTestWatcher(t, time.Millisecond, nil, nil)
	w.SetLimiter(util.NewLimiter(1000, 1))

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "a.js")
	if err := os.WriteFile(path, []byte("1"), 0o644); err != nil {
		t.Fatal(err)
	}

	w.scheduleChange(path)
	waitFor(t, changedFiles, path, time.Second)

	if err := os.WriteFile(path, []byte("2"), 0o644); err != nil {
		t.Fatal(err)
	}
	w.scheduleChange(path)
	waitFor(t, changedFiles, path, time.Second)
}

func TestWatcher_ExtensionFilters(t *testing.T) {
	w, _ := newTestWatcher(t, 10*time.Millisecond, nil, []string{"*.d.ts"})
	w.SetExtensions([]string{".TS", " .js "})

	if !w.shouldExcludeFile("main.py") {
		t.Fatal("expected .py to be excluded")
	}
	if w.shouldExcludeFile("src/Main.TS") {
		t.Fatal("expected extension match to ignore case")
	}
	if !w.shouldExcludeFile("types.d.ts") {
		t.Fatal("expected declaration files to be excluded by glob")
	}
}
