package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/reminder-bot/internal/persistence"
)

var (
	userCounter     uint64
	templateCounter uint64
	instanceCounter uint64
	messageCounter  uint64
)

var referenceTime = time.Date(2026, time.September, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic user record that can be
// materialised for application or persistence tests.
type UserFixture struct {
	ID        string
	FirstName string
	LastName  string
	Phone     string
	Timezone  string
	Language  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:        id,
		FirstName: fmt.Sprintf("First%03d", idx),
		LastName:  fmt.Sprintf("Last%03d", idx),
		Phone:     fmt.Sprintf("1555%07d", idx),
		Timezone:  "UTC",
		Language:  "en",
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserPhone overrides the generated phone number.
func WithUserPhone(phone string) UserOption {
	return func(f *UserFixture) {
		f.Phone = phone
	}
}

// WithUserTimezone overrides the IANA timezone.
func WithUserTimezone(tz string) UserOption {
	return func(f *UserFixture) {
		f.Timezone = tz
	}
}

// WithUserLanguage overrides the preferred language tag.
func WithUserLanguage(lang string) UserOption {
	return func(f *UserFixture) {
		f.Language = lang
	}
}

// Persistence converts the fixture into the persistence model.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:        f.ID,
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Phone:     f.Phone,
		Timezone:  f.Timezone,
		Language:  f.Language,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// --------------------------- Template fixtures ---------------------------

// TemplateFixture represents a deterministic recurring reminder record.
type TemplateFixture struct {
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

// TemplateOption configures the generated template fixture.
type TemplateOption func(*TemplateFixture)

// NewTemplateFixture returns a deterministic daily template with optional
// overrides.
func NewTemplateFixture(ownerID string, opts ...TemplateOption) TemplateFixture {
	idx := atomic.AddUint64(&templateCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := TemplateFixture{
		ID:          fmt.Sprintf("template-%03d", idx),
		OwnerID:     ownerID,
		Description: fmt.Sprintf("Recurring task %03d", idx),
		AnchorTime:  time.Date(2026, time.September, 2, 9, 0, 0, 0, time.UTC),
		Frequency:   "daily",
		Interval:    1,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithTemplateID overrides the generated template ID.
func WithTemplateID(id string) TemplateOption {
	return func(f *TemplateFixture) {
		f.ID = id
	}
}

// WithTemplateDescription overrides the description.
func WithTemplateDescription(description string) TemplateOption {
	return func(f *TemplateFixture) {
		f.Description = description
	}
}

// WithTemplateAnchor overrides the anchor wall-clock time.
func WithTemplateAnchor(anchor time.Time) TemplateOption {
	return func(f *TemplateFixture) {
		f.AnchorTime = anchor
	}
}

// WithTemplateRecurrence overrides frequency and interval together.
func WithTemplateRecurrence(frequency string, interval int) TemplateOption {
	return func(f *TemplateFixture) {
		f.Frequency = frequency
		f.Interval = interval
	}
}

// WithTemplateWeekdays sets the weekday selection for weekly templates.
func WithTemplateWeekdays(weekdays ...time.Weekday) TemplateOption {
	return func(f *TemplateFixture) {
		f.Weekdays = weekdays
	}
}

// WithTemplateEndsOn sets the recurrence end bound.
func WithTemplateEndsOn(endsOn time.Time) TemplateOption {
	return func(f *TemplateFixture) {
		f.EndsOn = &endsOn
	}
}

// Persistence converts the fixture into the persistence model.
func (f TemplateFixture) Persistence() persistence.Template {
	return persistence.Template{
		ID:          f.ID,
		OwnerID:     f.OwnerID,
		Description: f.Description,
		AnchorTime:  f.AnchorTime,
		Frequency:   f.Frequency,
		Interval:    f.Interval,
		Weekdays:    f.Weekdays,
		EndsOn:      f.EndsOn,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// --------------------------- Instance fixtures ---------------------------

// InstanceFixture represents a single reminder occurrence.
type InstanceFixture struct {
	ID          string
	OwnerID     string
	TemplateID  *string
	Description string
	EventTime   time.Time
	MessageSent bool
	Confirmed   bool
	CreatedAt   time.Time
}

// InstanceOption configures the generated instance fixture.
type InstanceOption func(*InstanceFixture)

// NewInstanceFixture returns a deterministic occurrence with optional
// overrides. By default it is untemplated, unsent and unconfirmed.
func NewInstanceFixture(ownerID string, opts ...InstanceOption) InstanceFixture {
	idx := atomic.AddUint64(&instanceCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := InstanceFixture{
		ID:          fmt.Sprintf("instance-%03d", idx),
		OwnerID:     ownerID,
		Description: fmt.Sprintf("Task %03d", idx),
		EventTime:   time.Date(2026, time.September, 2, 18, 0, 0, 0, time.UTC).Add(time.Duration(idx) * time.Hour),
		CreatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithInstanceID overrides the generated instance ID.
func WithInstanceID(id string) InstanceOption {
	return func(f *InstanceFixture) {
		f.ID = id
	}
}

// WithInstanceTemplate attaches the occurrence to a template.
func WithInstanceTemplate(templateID string) InstanceOption {
	return func(f *InstanceFixture) {
		f.TemplateID = &templateID
	}
}

// WithInstanceEventTime overrides the wall-clock event time.
func WithInstanceEventTime(eventTime time.Time) InstanceOption {
	return func(f *InstanceFixture) {
		f.EventTime = eventTime
	}
}

// WithInstanceMessageSent marks the occurrence as already reminded.
func WithInstanceMessageSent() InstanceOption {
	return func(f *InstanceFixture) {
		f.MessageSent = true
	}
}

// WithInstanceConfirmed marks the occurrence as confirmed.
func WithInstanceConfirmed() InstanceOption {
	return func(f *InstanceFixture) {
		f.Confirmed = true
	}
}

// Persistence converts the fixture into the persistence model.
func (f InstanceFixture) Persistence() persistence.Instance {
	return persistence.Instance{
		ID:          f.ID,
		OwnerID:     f.OwnerID,
		TemplateID:  f.TemplateID,
		Description: f.Description,
		EventTime:   f.EventTime,
		MessageSent: f.MessageSent,
		Confirmed:   f.Confirmed,
		CreatedAt:   f.CreatedAt,
	}
}

// ---------------------------- Message fixtures ---------------------------

// MessageFixture represents one entry in the conversation log.
type MessageFixture struct {
	ID               string
	OwnerID          string
	SentBy           string
	Text             string
	InstanceID       *string
	RequiredFollowUp bool
	Timestamp        time.Time
}

// MessageOption configures the generated message fixture.
type MessageOption func(*MessageFixture)

// NewMessageFixture returns a deterministic user-sent message with optional
// overrides.
func NewMessageFixture(ownerID string, opts ...MessageOption) MessageFixture {
	idx := atomic.AddUint64(&messageCounter, 1)
	fixture := MessageFixture{
		ID:        fmt.Sprintf("message-%03d", idx),
		OwnerID:   ownerID,
		SentBy:    persistence.SentByUser,
		Text:      fmt.Sprintf("message body %03d", idx),
		Timestamp: referenceTime.Add(time.Duration(idx) * time.Second),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMessageSentBy overrides the author.
func WithMessageSentBy(sentBy string) MessageOption {
	return func(f *MessageFixture) {
		f.SentBy = sentBy
	}
}

// WithMessageText overrides the message body.
func WithMessageText(text string) MessageOption {
	return func(f *MessageFixture) {
		f.Text = text
	}
}

// WithMessageInstance tags the message with an occurrence.
func WithMessageInstance(instanceID string) MessageOption {
	return func(f *MessageFixture) {
		f.InstanceID = &instanceID
	}
}

// WithMessageFollowUp marks the message as awaiting a follow-up.
func WithMessageFollowUp() MessageOption {
	return func(f *MessageFixture) {
		f.RequiredFollowUp = true
	}
}

// WithMessageTimestamp overrides the timestamp.
func WithMessageTimestamp(ts time.Time) MessageOption {
	return func(f *MessageFixture) {
		f.Timestamp = ts
	}
}

// Persistence converts the fixture into the persistence model.
func (f MessageFixture) Persistence() persistence.Message {
	return persistence.Message{
		ID:               f.ID,
		OwnerID:          f.OwnerID,
		SentBy:           f.SentBy,
		Text:             f.Text,
		InstanceID:       f.InstanceID,
		RequiredFollowUp: f.RequiredFollowUp,
		Timestamp:        f.Timestamp,
	}
}
