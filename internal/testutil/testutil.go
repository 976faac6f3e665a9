// Package testutil provides shared test helpers for setting up note files,
// services and databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/notewiki/internal/index"
	"github.com/starford/notewiki/internal/noteservice"
	"github.com/starford/notewiki/internal/storage"
	"github.com/starford/notewiki/internal/store"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// NotesFile writes content to notes.json in a temp dir and returns its path.
// An empty content leaves the file absent.
func NotesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.json")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

// TestService opens a service over a notes file holding content.
func TestService(t *testing.T, content string, opts ...noteservice.Option) (*noteservice.Service, string) {
	t.Helper()
	path := NotesFile(t, content)
	file, err := storage.NewFile(path)
	if err != nil {
		t.Fatal(err)
	}
	logger := Logger()
	opts = append([]noteservice.Option{noteservice.WithLogger(logger)}, opts...)
	return noteservice.New(store.Open(path, logger), file, opts...), path
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
