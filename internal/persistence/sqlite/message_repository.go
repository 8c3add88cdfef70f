package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/reminder-bot/internal/persistence"
)

// MessageRepository implements persistence.MessageRepository using SQLite.
// The log is append-only; there are no update or delete operations.
type MessageRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewMessageRepository creates a new SQLite message repository.
func NewMessageRepository(pool *ConnectionPool) *MessageRepository {
	return &MessageRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const messageColumns = `id, owner_id, sent_by, text, instance_id, required_follow_up, timestamp`

// CreateMessage appends one conversation turn.
func (r *MessageRepository) CreateMessage(ctx context.Context, message persistence.Message) error {
	if message.ID == "" || message.OwnerID == "" {
		return persistence.ErrConstraintViolation
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO messages (` + messageColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		message.ID,
		message.OwnerID,
		message.SentBy,
		message.Text,
		nullableString(message.InstanceID),
		message.RequiredFollowUp,
		message.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// ListRecentMessages returns the newest limit messages for an owner in
// chronological order, oldest first.
func (r *MessageRepository) ListRecentMessages(ctx context.Context, ownerID string, limit int) ([]persistence.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.helper.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE owner_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, ownerID, limit)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var messages []persistence.Message
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	// The query walks newest-first to apply the limit; callers want oldest
	// first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// CountForInstance counts messages a given sender attached to an instance.
func (r *MessageRepository) CountForInstance(ctx context.Context, instanceID string, sentBy string) (int, error) {
	var count int
	err := r.helper.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM messages
		WHERE instance_id = ? AND sent_by = ?
	`, instanceID, sentBy).Scan(&count)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

// LatestForInstance returns the newest message a given sender attached to
// an instance.
func (r *MessageRepository) LatestForInstance(ctx context.Context, instanceID string, sentBy string) (persistence.Message, error) {
	row := r.helper.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE instance_id = ? AND sent_by = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, instanceID, sentBy)

	message, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Message{}, persistence.ErrNotFound
		}
		return persistence.Message{}, r.mapper.MapError(err)
	}
	return message, nil
}

func scanMessage(row rowScanner) (persistence.Message, error) {
	var message persistence.Message
	var instanceID sql.NullString
	var timestampStr string

	err := row.Scan(
		&message.ID,
		&message.OwnerID,
		&message.SentBy,
		&message.Text,
		&instanceID,
		&message.RequiredFollowUp,
		&timestampStr,
	)
	if err != nil {
		return persistence.Message{}, err
	}

	if instanceID.Valid {
		message.InstanceID = &instanceID.String
	}
	if message.Timestamp, err = time.Parse(time.RFC3339, timestampStr); err != nil {
		return persistence.Message{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}

	return message, nil
}
