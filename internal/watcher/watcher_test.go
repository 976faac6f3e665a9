package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatch(t *testing.T, path string, reload ReloadFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, 20*time.Millisecond, quietLogger(), reload) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Watch: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	time.Sleep(100 * time.Millisecond)
}

func TestWatch_WriteTriggersReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.json")
	_ = os.WriteFile(path, []byte("[]"), 0o644)

	var calls atomic.Int32
	startWatch(t, path, func(context.Context) (bool, error) {
		calls.Add(1)
		return true, nil
	})

	_ = os.WriteFile(path, []byte(`[{"title": "A"}]`), 0o644)

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "write to notes file did not trigger reload")
}

func TestWatch_AtomicRenameTriggersReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.json")
	_ = os.WriteFile(path, []byte("[]"), 0o644)

	var calls atomic.Int32
	startWatch(t, path, func(context.Context) (bool, error) {
		calls.Add(1)
		return true, nil
	})

	tmp := filepath.Join(dir, ".notes.json.tmp")
	_ = os.WriteFile(tmp, []byte(`[{"title": "B"}]`), 0o644)
	_ = os.Rename(tmp, path)

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "rename over notes file did not trigger reload")
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.json")
	_ = os.WriteFile(path, []byte("[]"), 0o644)

	var calls atomic.Int32
	startWatch(t, path, func(context.Context) (bool, error) {
		calls.Add(1)
		return true, nil
	})

	_ = os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644)
	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("reload called %d times for unrelated file", n)
	}
}

func TestWatch_ReloadErrorKeepsWatching(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.json")
	_ = os.WriteFile(path, []byte("[]"), 0o644)

	var calls atomic.Int32
	startWatch(t, path, func(context.Context) (bool, error) {
		calls.Add(1)
		return false, errors.New("bad file")
	})

	_ = os.WriteFile(path, []byte("{"), 0o644)
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "first write not seen")

	time.Sleep(100 * time.Millisecond)
	before := calls.Load()
	_ = os.WriteFile(path, []byte("[]"), 0o644)
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return calls.Load() > before
	}, "watcher stopped after a failed reload")
}

func TestWatch_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone", "notes.json")
	err := Watch(context.Background(), path, 0, quietLogger(), func(context.Context) (bool, error) {
		return false, nil
	})
	if err == nil {
		t.Error("expected error for missing directory")
	}
}
