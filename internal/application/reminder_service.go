package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/reminder-bot/internal/persistence"
	"github.com/example/reminder-bot/internal/recurrence"
)

// pendingLookback and pendingLookahead bound the window PendingFor scans:
// events up to a day in the past are still worth confirming, and events
// about to be reminded are included.
const (
	pendingLookback  = 24 * time.Hour
	pendingLookahead = 30 * time.Minute
)

// ReminderService manages one-time events and recurring templates on
// behalf of a user conversation.
type ReminderService struct {
	users        persistence.UserRepository
	templates    persistence.TemplateRepository
	instances    persistence.InstanceRepository
	materializer *Materializer
	idGenerator  func() string
	now          func() time.Time
	horizonDays  int
	logger       *slog.Logger
}

// NewReminderService wires dependencies for the reminder service.
func NewReminderService(
	users persistence.UserRepository,
	templates persistence.TemplateRepository,
	instances persistence.InstanceRepository,
	materializer *Materializer,
	idGenerator func() string,
	now func() time.Time,
	horizonDays int,
	logger *slog.Logger,
) *ReminderService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if horizonDays <= 0 {
		horizonDays = 30
	}
	return &ReminderService{
		users:        users,
		templates:    templates,
		instances:    instances,
		materializer: materializer,
		idGenerator:  idGenerator,
		now:          now,
		horizonDays:  horizonDays,
		logger:       defaultLogger(logger),
	}
}

// OneTimeParams describes a standalone event.
type OneTimeParams struct {
	OwnerID     string
	Description string
	// EventTime is a wall-clock value in the owner's timezone.
	EventTime time.Time
}

// CreateOneTime stores a standalone event with no template behind it.
func (s *ReminderService) CreateOneTime(ctx context.Context, params OneTimeParams) (persistence.Instance, error) {
	if s == nil {
		return persistence.Instance{}, fmt.Errorf("ReminderService is nil")
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(params.Description) == "" {
		vErr.add("description", "description is required")
	}
	if params.EventTime.IsZero() {
		vErr.add("event_time", "event time is required")
	}
	if vErr.HasErrors() {
		return persistence.Instance{}, vErr
	}

	instance := persistence.Instance{
		ID:          s.idGenerator(),
		OwnerID:     params.OwnerID,
		Description: strings.TrimSpace(params.Description),
		EventTime:   params.EventTime,
		CreatedAt:   s.now().UTC(),
	}

	if _, err := s.instances.CreateInstances(ctx, []persistence.Instance{instance}); err != nil {
		serviceLogger(ctx, s.logger, "reminder", "create_one_time", "owner_id", params.OwnerID).
			Error("failed to create event", "error", err, "kind", ErrorKind(err))
		return persistence.Instance{}, err
	}

	return instance, nil
}

// RecurringParams describes a recurring event definition.
type RecurringParams struct {
	OwnerID     string
	Description string
	AnchorTime  time.Time
	Frequency   string
	Interval    int
	Weekdays    []time.Weekday
	EndsOn      *time.Time
}

// CreateRecurring stores a template and materializes its first horizon of
// instances.
func (s *ReminderService) CreateRecurring(ctx context.Context, params RecurringParams) (persistence.Template, error) {
	if s == nil {
		return persistence.Template{}, fmt.Errorf("ReminderService is nil")
	}

	normalized, vErr := normalizeRecurringParams(params)
	if vErr.HasErrors() {
		return persistence.Template{}, vErr
	}

	now := s.now().UTC()
	template := persistence.Template{
		ID:          s.idGenerator(),
		OwnerID:     normalized.OwnerID,
		Description: normalized.Description,
		AnchorTime:  normalized.AnchorTime,
		Frequency:   normalized.Frequency,
		Interval:    normalized.Interval,
		Weekdays:    normalized.Weekdays,
		EndsOn:      normalized.EndsOn,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	logger := serviceLogger(ctx, s.logger, "reminder", "create_recurring", "owner_id", params.OwnerID)

	if err := s.templates.CreateTemplate(ctx, template); err != nil {
		logger.Error("failed to create template", "error", err, "kind", ErrorKind(err))
		return persistence.Template{}, err
	}

	owner, err := s.users.GetUser(ctx, template.OwnerID)
	if err != nil {
		logger.Error("failed to load owner for materialization", "error", err)
		return template, nil
	}

	windowStart := ownerWallClock(s.now(), owner)
	created, err := s.materializer.MaterializeTemplate(ctx, template.ID, windowStart, windowStart.AddDate(0, 0, s.horizonDays))
	if err != nil {
		logger.Error("failed to materialize new template", "template_id", template.ID, "error", err)
		return template, nil
	}

	logger.Info("template created", "template_id", template.ID, "instances", created)
	return template, nil
}

// UpdateTemplateParams rewrites an existing definition.
type UpdateTemplateParams struct {
	TemplateID  string
	Description string
	AnchorTime  time.Time
	Frequency   string
	Interval    int
	Weekdays    []time.Weekday
	EndsOn      *time.Time
}

// UpdateTemplate rewrites a template destructively: every future
// instance is deleted and regenerated from the new definition, while
// past instances stay untouched.
func (s *ReminderService) UpdateTemplate(ctx context.Context, params UpdateTemplateParams) (persistence.Template, error) {
	if s == nil {
		return persistence.Template{}, fmt.Errorf("ReminderService is nil")
	}

	existing, err := s.templates.GetTemplate(ctx, params.TemplateID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Template{}, ErrNotFound
		}
		return persistence.Template{}, err
	}

	normalized, vErr := normalizeRecurringParams(RecurringParams{
		OwnerID:     existing.OwnerID,
		Description: params.Description,
		AnchorTime:  params.AnchorTime,
		Frequency:   params.Frequency,
		Interval:    params.Interval,
		Weekdays:    params.Weekdays,
		EndsOn:      params.EndsOn,
	})
	if vErr.HasErrors() {
		return persistence.Template{}, vErr
	}

	owner, err := s.users.GetUser(ctx, existing.OwnerID)
	if err != nil {
		return persistence.Template{}, err
	}
	cutoff := ownerWallClock(s.now(), owner)

	logger := serviceLogger(ctx, s.logger, "reminder", "update_template", "template_id", existing.ID)

	if err := s.instances.DeleteFutureInstances(ctx, existing.ID, cutoff); err != nil {
		logger.Error("failed to delete future instances", "error", err)
		return persistence.Template{}, err
	}

	updated := existing
	updated.Description = normalized.Description
	updated.AnchorTime = normalized.AnchorTime
	updated.Frequency = normalized.Frequency
	updated.Interval = normalized.Interval
	updated.Weekdays = normalized.Weekdays
	updated.EndsOn = normalized.EndsOn
	updated.UpdatedAt = s.now().UTC()

	if err := s.templates.UpdateTemplate(ctx, updated); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Template{}, ErrNotFound
		}
		return persistence.Template{}, err
	}

	if _, err := s.materializer.MaterializeTemplate(ctx, updated.ID, cutoff, cutoff.AddDate(0, 0, s.horizonDays)); err != nil {
		logger.Error("failed to rematerialize template", "error", err)
	}

	return updated, nil
}

// DeleteTemplate removes a recurring definition and its instances.
func (s *ReminderService) DeleteTemplate(ctx context.Context, templateID string) error {
	if s == nil {
		return fmt.Errorf("ReminderService is nil")
	}

	if err := s.templates.DeleteTemplate(ctx, templateID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// ListTemplates returns an owner's recurring definitions.
func (s *ReminderService) ListTemplates(ctx context.Context, ownerID string) ([]persistence.Template, error) {
	if s == nil {
		return nil, fmt.Errorf("ReminderService is nil")
	}
	return s.templates.ListTemplatesForOwner(ctx, ownerID)
}

// ListUpcoming returns an owner's events over the next given number of
// days, soonest first. Both materialized and one-time events appear;
// templates themselves never do.
func (s *ReminderService) ListUpcoming(ctx context.Context, ownerID string, days int) ([]persistence.Instance, error) {
	if s == nil {
		return nil, fmt.Errorf("ReminderService is nil")
	}
	if days <= 0 {
		days = 7
	}

	owner, err := s.users.GetUser(ctx, ownerID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	from := ownerWallClock(s.now(), owner)
	until := from.AddDate(0, 0, days)
	return s.instances.ListInstances(ctx, persistence.InstanceFilter{
		OwnerID: ownerID,
		From:    &from,
		Until:   &until,
	})
}

// Confirm marks an instance as acknowledged by its owner. Confirming an
// already-confirmed instance is a successful no-op.
func (s *ReminderService) Confirm(ctx context.Context, instanceID string) (persistence.Instance, error) {
	if s == nil {
		return persistence.Instance{}, fmt.Errorf("ReminderService is nil")
	}

	if err := s.instances.Confirm(ctx, instanceID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Instance{}, ErrNotFound
		}
		return persistence.Instance{}, err
	}

	instance, err := s.instances.GetInstance(ctx, instanceID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Instance{}, ErrNotFound
		}
		return persistence.Instance{}, err
	}

	serviceLogger(ctx, s.logger, "reminder", "confirm").Info("instance confirmed", "instance_id", instanceID)
	return instance, nil
}

// PendingFor returns the reminded, unconfirmed instances an owner might be
// replying about, most recent event time first.
func (s *ReminderService) PendingFor(ctx context.Context, ownerID string) ([]persistence.Instance, error) {
	if s == nil {
		return nil, fmt.Errorf("ReminderService is nil")
	}

	owner, err := s.users.GetUser(ctx, ownerID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	ownerNow := ownerWallClock(s.now(), owner)
	from := ownerNow.Add(-pendingLookback)
	until := ownerNow.Add(pendingLookahead)
	sent := true
	confirmed := false
	templated := true

	pending, err := s.instances.ListInstances(ctx, persistence.InstanceFilter{
		OwnerID:     ownerID,
		MessageSent: &sent,
		Confirmed:   &confirmed,
		Templated:   &templated,
		From:        &from,
		Until:       &until,
	})
	if err != nil {
		return nil, err
	}

	// Repository order is ascending; callers want the most recent first.
	for i, j := 0, len(pending)-1; i < j; i, j = i+1, j-1 {
		pending[i], pending[j] = pending[j], pending[i]
	}
	return pending, nil
}

func normalizeRecurringParams(params RecurringParams) (RecurringParams, *ValidationError) {
	vErr := &ValidationError{}

	normalized := params
	normalized.Description = strings.TrimSpace(params.Description)
	normalized.Frequency = strings.ToLower(strings.TrimSpace(params.Frequency))
	if normalized.Interval == 0 {
		normalized.Interval = 1
	}

	if normalized.Description == "" {
		vErr.add("description", "description is required")
	}
	if normalized.AnchorTime.IsZero() {
		vErr.add("anchor_time", "anchor time is required")
	}
	if !recurrence.Frequency(normalized.Frequency).Valid() {
		vErr.add("frequency", "frequency must be daily, weekly, monthly or yearly")
	}
	if normalized.Interval < 1 {
		vErr.add("interval", "interval must be at least 1")
	}
	if len(normalized.Weekdays) > 0 && normalized.Frequency != string(recurrence.FrequencyWeekly) {
		vErr.add("weekdays", "weekdays apply to weekly events only")
	}
	if normalized.EndsOn != nil && normalized.EndsOn.Before(normalized.AnchorTime) {
		vErr.add("ends_on", "end date must not precede the anchor time")
	}

	return normalized, vErr
}
