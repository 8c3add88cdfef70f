package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByPhone(ctx context.Context, phone string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// TemplateRepository stores recurring event definitions.
type TemplateRepository interface {
	CreateTemplate(ctx context.Context, template Template) error
	UpdateTemplate(ctx context.Context, template Template) error
	GetTemplate(ctx context.Context, id string) (Template, error)
	ListTemplatesForOwner(ctx context.Context, ownerID string) ([]Template, error)
	// ListActiveTemplates returns templates whose end date is unset or not
	// before the reference date.
	ListActiveTemplates(ctx context.Context, reference time.Time) ([]Template, error)
	DeleteTemplate(ctx context.Context, id string) error
}

// InstanceFilter narrows instance queries. Nil pointer fields are not
// applied. From and Until bound EventTime inclusively.
type InstanceFilter struct {
	OwnerID     string
	MessageSent *bool
	Confirmed   *bool
	Templated   *bool
	From        *time.Time
	Until       *time.Time
	Limit       int
}

// InstanceRepository stores materialized occurrences.
type InstanceRepository interface {
	// CreateInstances inserts a batch, silently skipping rows that collide
	// with an existing (template, event time) pair. It returns the number
	// of rows actually inserted.
	CreateInstances(ctx context.Context, instances []Instance) (int, error)
	GetInstance(ctx context.Context, id string) (Instance, error)
	ListInstances(ctx context.Context, filter InstanceFilter) ([]Instance, error)
	// MarkMessageSent flips the sent flag if it is still unset and reports
	// whether this call won the update.
	MarkMessageSent(ctx context.Context, id string) (bool, error)
	Confirm(ctx context.Context, id string) error
	// DeleteFutureInstances removes unsent occurrences of a template at or
	// after the cutoff.
	DeleteFutureInstances(ctx context.Context, templateID string, cutoff time.Time) error
}

// MessageRepository stores the append-only conversation log.
type MessageRepository interface {
	CreateMessage(ctx context.Context, message Message) error
	// ListRecentMessages returns the newest messages for an owner in
	// chronological order, oldest first.
	ListRecentMessages(ctx context.Context, ownerID string, limit int) ([]Message, error)
	CountForInstance(ctx context.Context, instanceID string, sentBy string) (int, error)
	// LatestForInstance returns the newest message a given sender attached
	// to an instance, or ErrNotFound.
	LatestForInstance(ctx context.Context, instanceID string, sentBy string) (Message, error)
}
