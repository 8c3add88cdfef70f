package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/reminder-bot/internal/persistence"
	"github.com/example/reminder-bot/internal/recurrence"
)

// Materializer expands recurring event templates into concrete instance
// rows ahead of time so the reminder sweeps can work off plain dated
// records.
type Materializer struct {
	templates   persistence.TemplateRepository
	instances   persistence.InstanceRepository
	users       persistence.UserRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMaterializer wires dependencies for the materializer.
func NewMaterializer(
	templates persistence.TemplateRepository,
	instances persistence.InstanceRepository,
	users persistence.UserRepository,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
) *Materializer {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &Materializer{
		templates:   templates,
		instances:   instances,
		users:       users,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// MaterializeTemplate generates instances for one template over the given
// wall-clock window and inserts them in a single transaction. Occurrences
// that already exist are skipped via the unique (template, event time)
// pair, so repeating a window never duplicates rows. Returns the number of
// instances actually created.
func (m *Materializer) MaterializeTemplate(ctx context.Context, templateID string, windowStart, windowEnd time.Time) (int, error) {
	if m == nil {
		return 0, fmt.Errorf("Materializer is nil")
	}

	template, err := m.templates.GetTemplate(ctx, templateID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	return m.materialize(ctx, template, windowStart, windowEnd)
}

func (m *Materializer) materialize(ctx context.Context, template persistence.Template, windowStart, windowEnd time.Time) (int, error) {
	rule := recurrence.Rule{
		Anchor:    template.AnchorTime,
		Frequency: recurrence.Frequency(template.Frequency),
		Interval:  template.Interval,
		Weekdays:  template.Weekdays,
		EndsOn:    template.EndsOn,
	}

	occurrences, err := recurrence.Enumerate(rule, windowStart, windowEnd)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if len(occurrences) == 0 {
		return 0, nil
	}

	templateID := template.ID
	createdAt := m.now().UTC()
	instances := make([]persistence.Instance, 0, len(occurrences))
	for _, occurrence := range occurrences {
		instances = append(instances, persistence.Instance{
			ID:          m.idGenerator(),
			OwnerID:     template.OwnerID,
			TemplateID:  &templateID,
			Description: template.Description,
			EventTime:   occurrence,
			CreatedAt:   createdAt,
		})
	}

	created, err := m.instances.CreateInstances(ctx, instances)
	if err != nil {
		return 0, err
	}
	return created, nil
}

// MaterializeAll expands every active template over a horizon of the given
// number of days, anchored at each owner's local wall clock. Failures on
// one template are logged and do not abort the run.
func (m *Materializer) MaterializeAll(ctx context.Context, horizonDays int) (MaterializeReport, error) {
	if m == nil {
		return MaterializeReport{}, fmt.Errorf("Materializer is nil")
	}
	if horizonDays <= 0 {
		horizonDays = 30
	}

	now := m.now()

	// A day of slack on the reference keeps templates visible across zone
	// offsets; Enumerate applies the exact end date.
	reference := wallClock(now.UTC()).AddDate(0, 0, -1)
	templates, err := m.templates.ListActiveTemplates(ctx, reference)
	if err != nil {
		return MaterializeReport{}, err
	}

	logger := serviceLogger(ctx, m.logger, "materializer", "materialize_all")

	report := MaterializeReport{}
	owners := map[string]persistence.User{}
	for _, template := range templates {
		report.Templates++

		owner, ok := owners[template.OwnerID]
		if !ok {
			owner, err = m.users.GetUser(ctx, template.OwnerID)
			if err != nil {
				logger.Error("failed to load template owner", "template_id", template.ID, "error", err)
				continue
			}
			owners[template.OwnerID] = owner
		}

		windowStart := ownerWallClock(now, owner)
		windowEnd := windowStart.AddDate(0, 0, horizonDays)

		created, err := m.materialize(ctx, template, windowStart, windowEnd)
		if err != nil {
			logger.Error("failed to materialize template",
				"template_id", template.ID, "error", err, "kind", ErrorKind(err))
			continue
		}
		report.Created += created
	}

	logger.Info("materialization finished", "templates", report.Templates, "created", report.Created)
	return report, nil
}
