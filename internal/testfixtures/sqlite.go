package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/reminder-bot/internal/persistence"
	"github.com/example/reminder-bot/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Users     persistence.UserRepository
	Templates persistence.TemplateRepository
	Instances persistence.InstanceRepository
	Messages  persistence.MessageRepository

	Pool *sqlite.ConnectionPool

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that
// is migrated automatically. The harness registers its own cleanup with
// the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "reminderbot.db")

	pool, err := sqlite.NewConnectionPool(sqlite.TestConfig(path))
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate database: %v", err)
	}

	harness := &SQLiteHarness{
		Users:     sqlite.NewUserRepository(pool),
		Templates: sqlite.NewTemplateRepository(pool),
		Instances: sqlite.NewInstanceRepository(pool),
		Messages:  sqlite.NewMessageRepository(pool),
		Pool:      pool,
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
