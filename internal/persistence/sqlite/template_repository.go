package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/reminder-bot/internal/persistence"
)

// TemplateRepository implements persistence.TemplateRepository using SQLite.
type TemplateRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewTemplateRepository creates a new SQLite template repository.
func NewTemplateRepository(pool *ConnectionPool) *TemplateRepository {
	return &TemplateRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const templateColumns = `id, owner_id, description, anchor_time, frequency, interval, weekdays, ends_on, created_at, updated_at`

// CreateTemplate inserts a new recurring event definition.
func (r *TemplateRepository) CreateTemplate(ctx context.Context, template persistence.Template) error {
	if template.ID == "" || template.OwnerID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	template.CreatedAt = now
	template.UpdatedAt = now

	query := `
		INSERT INTO templates (` + templateColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		template.ID,
		template.OwnerID,
		template.Description,
		formatWallClock(template.AnchorTime),
		template.Frequency,
		template.Interval,
		encodeWeekdays(template.Weekdays),
		nullableWallClock(template.EndsOn),
		template.CreatedAt.Format(time.RFC3339),
		template.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// UpdateTemplate rewrites a definition in place. Re-materializing the
// affected window is the caller's responsibility.
func (r *TemplateRepository) UpdateTemplate(ctx context.Context, template persistence.Template) error {
	if template.ID == "" {
		return persistence.ErrConstraintViolation
	}

	template.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE templates
		SET description = ?, anchor_time = ?, frequency = ?, interval = ?, weekdays = ?, ends_on = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.helper.Exec(ctx, query,
		template.Description,
		formatWallClock(template.AnchorTime),
		template.Frequency,
		template.Interval,
		encodeWeekdays(template.Weekdays),
		nullableWallClock(template.EndsOn),
		template.UpdatedAt.Format(time.RFC3339),
		template.ID,
	)
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

// GetTemplate retrieves a template by ID.
func (r *TemplateRepository) GetTemplate(ctx context.Context, id string) (persistence.Template, error) {
	if id == "" {
		return persistence.Template{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `
		SELECT `+templateColumns+`
		FROM templates
		WHERE id = ?
	`, id)

	template, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Template{}, persistence.ErrNotFound
		}
		return persistence.Template{}, r.mapper.MapError(err)
	}
	return template, nil
}

// ListTemplatesForOwner returns an owner's templates, newest anchor first.
func (r *TemplateRepository) ListTemplatesForOwner(ctx context.Context, ownerID string) ([]persistence.Template, error) {
	return r.list(ctx, `
		SELECT `+templateColumns+`
		FROM templates
		WHERE owner_id = ?
		ORDER BY anchor_time DESC, id ASC
	`, ownerID)
}

// ListActiveTemplates returns templates whose end date is unset or not
// before the reference date.
func (r *TemplateRepository) ListActiveTemplates(ctx context.Context, reference time.Time) ([]persistence.Template, error) {
	return r.list(ctx, `
		SELECT `+templateColumns+`
		FROM templates
		WHERE ends_on IS NULL OR ends_on >= ?
		ORDER BY owner_id ASC, id ASC
	`, formatWallClock(reference))
}

// DeleteTemplate removes a template. Its instances go with it.
func (r *TemplateRepository) DeleteTemplate(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM templates WHERE id = ?`, id)
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

func (r *TemplateRepository) list(ctx context.Context, query string, args ...any) ([]persistence.Template, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var templates []persistence.Template
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		templates = append(templates, template)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return templates, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (persistence.Template, error) {
	var template persistence.Template
	var anchorStr, weekdaysStr, createdAtStr, updatedAtStr string
	var endsOnStr sql.NullString

	err := row.Scan(
		&template.ID,
		&template.OwnerID,
		&template.Description,
		&anchorStr,
		&template.Frequency,
		&template.Interval,
		&weekdaysStr,
		&endsOnStr,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Template{}, err
	}

	if template.AnchorTime, err = parseWallClock(anchorStr); err != nil {
		return persistence.Template{}, err
	}
	if template.Weekdays, err = decodeWeekdays(weekdaysStr); err != nil {
		return persistence.Template{}, err
	}
	if endsOnStr.Valid {
		endsOn, err := parseWallClock(endsOnStr.String)
		if err != nil {
			return persistence.Template{}, err
		}
		template.EndsOn = &endsOn
	}
	if template.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Template{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if template.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Template{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return template, nil
}

func nullableWallClock(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatWallClock(*t)
}
