package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Migration is a versioned set of DDL statements applied exactly once.
type Migration struct {
	Version    int
	Name       string
	Statements []string
}

// migrations are applied in ascending version order. Never edit an entry
// after it has shipped; append a new version instead.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create users",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				first_name TEXT NOT NULL,
				last_name TEXT NOT NULL DEFAULT '',
				phone TEXT NOT NULL UNIQUE,
				timezone TEXT NOT NULL,
				language TEXT NOT NULL DEFAULT 'en',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
		},
	},
	{
		Version: 2,
		Name:    "create templates",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS templates (
				id TEXT PRIMARY KEY,
				owner_id TEXT NOT NULL REFERENCES users(id),
				description TEXT NOT NULL,
				anchor_time TEXT NOT NULL,
				frequency TEXT NOT NULL CHECK (frequency IN ('daily', 'weekly', 'monthly', 'yearly')),
				interval INTEGER NOT NULL DEFAULT 1,
				weekdays TEXT NOT NULL DEFAULT '',
				ends_on TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_templates_owner ON templates(owner_id)`,
		},
	},
	{
		Version: 3,
		Name:    "create instances",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS instances (
				id TEXT PRIMARY KEY,
				owner_id TEXT NOT NULL REFERENCES users(id),
				template_id TEXT REFERENCES templates(id) ON DELETE CASCADE,
				description TEXT NOT NULL,
				event_time TEXT NOT NULL,
				is_message_sent INTEGER NOT NULL DEFAULT 0,
				is_confirmed INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL
			)`,
			// The unique pair makes re-materializing a window idempotent.
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_instances_template_event
				ON instances(template_id, event_time) WHERE template_id IS NOT NULL`,
			`CREATE INDEX IF NOT EXISTS idx_instances_owner_event ON instances(owner_id, event_time)`,
			`CREATE INDEX IF NOT EXISTS idx_instances_pending ON instances(event_time)
				WHERE is_confirmed = 0`,
		},
	},
	{
		Version: 4,
		Name:    "create messages",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS messages (
				id TEXT PRIMARY KEY,
				owner_id TEXT NOT NULL REFERENCES users(id),
				sent_by TEXT NOT NULL CHECK (sent_by IN ('user', 'ai')),
				text TEXT NOT NULL,
				instance_id TEXT REFERENCES instances(id) ON DELETE SET NULL,
				required_follow_up INTEGER NOT NULL DEFAULT 0,
				timestamp TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_messages_owner_ts ON messages(owner_id, timestamp)`,
			`CREATE INDEX IF NOT EXISTS idx_messages_instance ON messages(instance_id)`,
		},
	},
}

// Migrate brings the schema up to date, applying any missing migrations in
// version order. Each migration runs in its own transaction.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	_, err := pool.DB().ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied := map[int]bool{}
	rows, err := pool.DB().QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan schema_migrations: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	rows.Close()

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}

		err := pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, statement := range migration.Statements {
				if _, err := tx.Exec(statement); err != nil {
					return fmt.Errorf("migration %d (%s): %w", migration.Version, migration.Name, err)
				}
			}
			_, err := tx.Exec(
				`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
				migration.Version,
				migration.Name,
				time.Now().UTC().Format(time.RFC3339),
			)
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}
