package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/reminder-bot/internal/persistence"
)

// InstanceRepository implements persistence.InstanceRepository using SQLite.
type InstanceRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewInstanceRepository creates a new SQLite instance repository.
func NewInstanceRepository(pool *ConnectionPool) *InstanceRepository {
	return &InstanceRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const instanceColumns = `id, owner_id, template_id, description, event_time, is_message_sent, is_confirmed, created_at`

// CreateInstances inserts a batch inside one transaction. Rows whose
// (template_id, event_time) pair already exists are skipped rather than
// rejected, so re-running a materialization window is safe. Returns the
// number of rows actually inserted.
func (r *InstanceRepository) CreateInstances(ctx context.Context, instances []persistence.Instance) (int, error) {
	if len(instances) == 0 {
		return 0, nil
	}

	// The conflict target must restate the partial index predicate or
	// SQLite rejects the statement at prepare time.
	query := `
		INSERT INTO instances (` + instanceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (template_id, event_time) WHERE template_id IS NOT NULL DO NOTHING
	`

	inserted := 0
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, instance := range instances {
			if instance.ID == "" || instance.OwnerID == "" {
				return persistence.ErrConstraintViolation
			}
			createdAt := instance.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now().UTC()
			}

			result, err := r.helper.ExecTx(tx, query,
				instance.ID,
				instance.OwnerID,
				nullableString(instance.TemplateID),
				instance.Description,
				formatWallClock(instance.EventTime),
				instance.MessageSent,
				instance.Confirmed,
				createdAt.Format(time.RFC3339),
			)
			if err != nil {
				return r.mapper.MapError(err)
			}

			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			inserted += int(rowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

// GetInstance retrieves an instance by ID.
func (r *InstanceRepository) GetInstance(ctx context.Context, id string) (persistence.Instance, error) {
	if id == "" {
		return persistence.Instance{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `
		SELECT `+instanceColumns+`
		FROM instances
		WHERE id = ?
	`, id)

	instance, err := scanInstance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Instance{}, persistence.ErrNotFound
		}
		return persistence.Instance{}, r.mapper.MapError(err)
	}
	return instance, nil
}

// ListInstances returns instances matching the filter ordered by event time
// ascending then ID.
func (r *InstanceRepository) ListInstances(ctx context.Context, filter persistence.InstanceFilter) ([]persistence.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances WHERE 1 = 1`
	var args []any

	if filter.OwnerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, filter.OwnerID)
	}
	if filter.MessageSent != nil {
		query += ` AND is_message_sent = ?`
		args = append(args, *filter.MessageSent)
	}
	if filter.Confirmed != nil {
		query += ` AND is_confirmed = ?`
		args = append(args, *filter.Confirmed)
	}
	if filter.Templated != nil {
		if *filter.Templated {
			query += ` AND template_id IS NOT NULL`
		} else {
			query += ` AND template_id IS NULL`
		}
	}
	if filter.From != nil {
		query += ` AND event_time >= ?`
		args = append(args, formatWallClock(*filter.From))
	}
	if filter.Until != nil {
		query += ` AND event_time <= ?`
		args = append(args, formatWallClock(*filter.Until))
	}

	query += ` ORDER BY event_time ASC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var instances []persistence.Instance
	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		instances = append(instances, instance)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return instances, nil
}

// MarkMessageSent flips the sent flag only if it is still unset. The
// returned bool reports whether this call performed the flip, which lets
// concurrent sweeps agree on a single sender.
func (r *InstanceRepository) MarkMessageSent(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE instances
		SET is_message_sent = 1
		WHERE id = ? AND is_message_sent = 0
	`, id)
	if err != nil {
		return false, r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return true, nil
	}

	// Distinguish an already-sent instance from a missing one.
	var exists int
	err = r.helper.QueryRow(ctx, `SELECT COUNT(*) FROM instances WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	if exists == 0 {
		return false, persistence.ErrNotFound
	}
	return false, nil
}

// Confirm marks an instance confirmed. Confirming twice is a no-op.
func (r *InstanceRepository) Confirm(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE instances
		SET is_confirmed = 1
		WHERE id = ?
	`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

// DeleteFutureInstances removes every occurrence of a template at or
// after the cutoff. Past occurrences keep their history; the messages
// table is unaffected (its instance reference nulls out via the FK).
func (r *InstanceRepository) DeleteFutureInstances(ctx context.Context, templateID string, cutoff time.Time) error {
	if templateID == "" {
		return persistence.ErrNotFound
	}

	_, err := r.helper.Exec(ctx, `
		DELETE FROM instances
		WHERE template_id = ? AND event_time >= ?
	`, templateID, formatWallClock(cutoff))
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

func scanInstance(row rowScanner) (persistence.Instance, error) {
	var instance persistence.Instance
	var templateID sql.NullString
	var eventTimeStr, createdAtStr string

	err := row.Scan(
		&instance.ID,
		&instance.OwnerID,
		&templateID,
		&instance.Description,
		&eventTimeStr,
		&instance.MessageSent,
		&instance.Confirmed,
		&createdAtStr,
	)
	if err != nil {
		return persistence.Instance{}, err
	}

	if templateID.Valid {
		instance.TemplateID = &templateID.String
	}
	if instance.EventTime, err = parseWallClock(eventTimeStr); err != nil {
		return persistence.Instance{}, err
	}
	if instance.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Instance{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return instance, nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
