package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/calendar-slots/internal/persistence"
	"github.com/example/calendar-slots/internal/persistence/memory"
	"github.com/example/calendar-slots/internal/persistence/sqlite"
)

// NewSQLiteStore opens a migrated SQLite store in a temporary directory. The
// store is closed when the test finishes.
func NewSQLiteStore(tb testing.TB) *sqlite.Store {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "calendar.db")
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	store, err := sqlite.Open(context.Background(), sqlite.DefaultConfig(path), logger)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}
	return store
}

// StoreFactory names a way of building a fresh store for a test.
type StoreFactory struct {
	Name string
	New  func(tb testing.TB) persistence.Store
}

// StoreFactories lists every store implementation so behavioural tests can
// run against each of them.
func StoreFactories() []StoreFactory {
	return []StoreFactory{
		{Name: "memory", New: func(testing.TB) persistence.Store { return memory.New() }},
		{Name: "sqlite", New: func(tb testing.TB) persistence.Store { return NewSQLiteStore(tb) }},
	}
}
