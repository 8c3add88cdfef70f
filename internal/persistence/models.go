package persistence

import "time"

// User represents a registered WhatsApp contact.
type User struct {
	ID        string
	FirstName string
	LastName  string
	Phone     string
	Timezone  string
	Language  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Template represents a recurring event definition. Concrete occurrences
// are materialized into Instance rows ahead of time.
type Template struct {
	ID          string
	OwnerID     string
	Description string
	AnchorTime  time.Time
	Frequency   string
	Interval    int
	Weekdays    []time.Weekday
	EndsOn      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Instance represents a single dated occurrence. TemplateID is nil for
// one-time events created directly. EventTime is a wall-clock value in
// the owner's timezone.
type Instance struct {
	ID          string
	OwnerID     string
	TemplateID  *string
	Description string
	EventTime   time.Time
	MessageSent bool
	Confirmed   bool
	CreatedAt   time.Time
}

// Message represents one turn of a WhatsApp conversation. The log is
// append-only.
type Message struct {
	ID               string
	OwnerID          string
	SentBy           string
	Text             string
	InstanceID       *string
	RequiredFollowUp bool
	Timestamp        time.Time
}

// Sender labels for Message.SentBy.
const (
	SentByUser = "user"
	SentByAI   = "ai"
)
