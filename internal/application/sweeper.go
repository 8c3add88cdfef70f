package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/reminder-bot/internal/persistence"
)

const (
	// initialLeadTime is how far ahead of the event the first reminder
	// goes out.
	initialLeadTime = 30 * time.Minute
	// escalationWindow is how long after the event the bot keeps nagging.
	escalationWindow = 3 * time.Hour
	// escalationSpacing is the minimum gap between consecutive reminders
	// for the same instance.
	escalationSpacing = 30 * time.Minute
	// maxRemindersPerInstance caps the total number of reminder messages.
	maxRemindersPerInstance = 5

	// coarseBound pads the SQL wall-clock scan so every UTC offset is
	// covered; the precise owner-local check happens in Go.
	coarseBound = 18 * time.Hour
)

// escalationTones maps the reminder sequence number to the requested mood.
var escalationTones = map[int]string{
	2: "slightly annoyed",
	3: "getting frustrated",
	4: "pretty angry now",
	5: "absolutely livid (but still funny)",
}

// Sweeper runs the periodic reminder passes: the initial reminder shortly
// before an event, and escalating follow-ups after it until the owner
// confirms.
type Sweeper struct {
	users       persistence.UserRepository
	instances   persistence.InstanceRepository
	messages    persistence.MessageRepository
	agent       ChatAgent
	gateway     MessageGateway
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSweeper wires dependencies for the sweeper.
func NewSweeper(
	users persistence.UserRepository,
	instances persistence.InstanceRepository,
	messages persistence.MessageRepository,
	agent ChatAgent,
	gateway MessageGateway,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
) *Sweeper {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		users:       users,
		instances:   instances,
		messages:    messages,
		agent:       agent,
		gateway:     gateway,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// RunInitial sends the first reminder for unconfirmed, unreminded
// instances whose owner-local event time falls within the next half hour.
// The window is open at now and closed at now+30m, so an event exactly at
// now is not selected. Failures on one instance never abort the sweep.
func (s *Sweeper) RunInitial(ctx context.Context) (SweepReport, error) {
	if s == nil {
		return SweepReport{}, fmt.Errorf("Sweeper is nil")
	}

	now := s.now()
	logger := serviceLogger(ctx, s.logger, "sweeper", "initial")

	notSent := false
	unconfirmed := false
	templated := true
	coarseFrom := wallClock(now.UTC()).Add(-coarseBound)
	coarseUntil := wallClock(now.UTC()).Add(coarseBound)

	candidates, err := s.instances.ListInstances(ctx, persistence.InstanceFilter{
		MessageSent: &notSent,
		Confirmed:   &unconfirmed,
		Templated:   &templated,
		From:        &coarseFrom,
		Until:       &coarseUntil,
	})
	if err != nil {
		return SweepReport{}, err
	}

	report := SweepReport{}
	owners := map[string]persistence.User{}
	for _, instance := range candidates {
		owner, ok := s.owner(ctx, owners, instance.OwnerID, logger)
		if !ok {
			continue
		}

		ownerNow := ownerWallClock(now, owner)
		due := instance.EventTime.After(ownerNow) && !instance.EventTime.After(ownerNow.Add(initialLeadTime))
		if !due {
			continue
		}
		report.Processed++

		// Claim the instance before delivering. The conditional update
		// makes sure only one sweep sends the first reminder; if delivery
		// then fails, the escalation pass picks the instance up once the
		// event is overdue.
		won, err := s.instances.MarkMessageSent(ctx, instance.ID)
		if err != nil {
			logger.Error("failed to mark reminder sent", "instance_id", instance.ID, "error", err)
			continue
		}
		if !won {
			continue
		}

		minutes := int(instance.EventTime.Sub(ownerNow).Minutes())
		instruction := initialReminderInstruction(instance, owner, minutes)
		if s.remind(ctx, logger, instance, owner, instruction) {
			report.Sent++
		}
	}

	logger.Info("initial sweep finished", "processed", report.Processed, "sent", report.Sent)
	return report, nil
}

// RunEscalation re-reminds about unconfirmed instances whose owner-local
// event time passed within the last three hours, with rising irritation.
// An instance is skipped once it has received the maximum number of
// reminders or when the latest one is under thirty minutes old.
func (s *Sweeper) RunEscalation(ctx context.Context) (SweepReport, error) {
	if s == nil {
		return SweepReport{}, fmt.Errorf("Sweeper is nil")
	}

	now := s.now()
	logger := serviceLogger(ctx, s.logger, "sweeper", "escalation")

	sent := true
	unconfirmed := false
	templated := true
	coarseFrom := wallClock(now.UTC()).Add(-coarseBound)
	coarseUntil := wallClock(now.UTC()).Add(coarseBound)

	candidates, err := s.instances.ListInstances(ctx, persistence.InstanceFilter{
		MessageSent: &sent,
		Confirmed:   &unconfirmed,
		Templated:   &templated,
		From:        &coarseFrom,
		Until:       &coarseUntil,
	})
	if err != nil {
		return SweepReport{}, err
	}

	report := SweepReport{}
	owners := map[string]persistence.User{}
	for _, instance := range candidates {
		owner, ok := s.owner(ctx, owners, instance.OwnerID, logger)
		if !ok {
			continue
		}

		ownerNow := ownerWallClock(now, owner)
		overdue := !instance.EventTime.After(ownerNow) && !instance.EventTime.Before(ownerNow.Add(-escalationWindow))
		if !overdue {
			continue
		}
		report.Processed++

		count, err := s.messages.CountForInstance(ctx, instance.ID, persistence.SentByAI)
		if err != nil {
			logger.Error("failed to count reminders", "instance_id", instance.ID, "error", err)
			continue
		}
		if count >= maxRemindersPerInstance {
			continue
		}

		latest, err := s.messages.LatestForInstance(ctx, instance.ID, persistence.SentByAI)
		switch {
		case errors.Is(err, persistence.ErrNotFound):
			// No prior reminder on record; escalate anyway.
		case err != nil:
			logger.Error("failed to load latest reminder", "instance_id", instance.ID, "error", err)
			continue
		case now.UTC().Sub(latest.Timestamp) < escalationSpacing:
			continue
		}

		n := count + 1
		minutesLate := int(ownerNow.Sub(instance.EventTime).Minutes())
		instruction := escalationInstruction(instance, owner, n, minutesLate)
		if s.remind(ctx, logger, instance, owner, instruction) {
			report.Sent++
		}
	}

	logger.Info("escalation sweep finished", "processed", report.Processed, "sent", report.Sent)
	return report, nil
}

// remind generates one reminder, delivers it, and appends the 'ai' message
// record. Returns false, leaving all state untouched, when any step fails.
func (s *Sweeper) remind(ctx context.Context, logger *slog.Logger, instance persistence.Instance, owner persistence.User, instruction string) bool {
	text, err := s.agent.Reply(ctx, AgentRequest{
		Registered:  true,
		User:        owner,
		Phone:       owner.Phone,
		Instruction: instruction,
		CurrentTime: s.now(),
	})
	if err != nil {
		logger.Error("failed to generate reminder", "instance_id", instance.ID, "error", err, "kind", ErrorKind(err))
		return false
	}

	if err := s.gateway.SendMessage(ctx, owner.Phone, text); err != nil {
		logger.Error("failed to deliver reminder", "instance_id", instance.ID, "error", err, "kind", ErrorKind(err))
		return false
	}

	instanceID := instance.ID
	message := persistence.Message{
		ID:               s.idGenerator(),
		OwnerID:          owner.ID,
		SentBy:           persistence.SentByAI,
		Text:             text,
		InstanceID:       &instanceID,
		RequiredFollowUp: true,
		Timestamp:        s.now().UTC(),
	}
	if err := s.messages.CreateMessage(ctx, message); err != nil {
		logger.Error("failed to record reminder", "instance_id", instance.ID, "error", err)
		return false
	}

	return true
}

func (s *Sweeper) owner(ctx context.Context, cache map[string]persistence.User, ownerID string, logger *slog.Logger) (persistence.User, bool) {
	if owner, ok := cache[ownerID]; ok {
		return owner, true
	}
	owner, err := s.users.GetUser(ctx, ownerID)
	if err != nil {
		logger.Error("failed to load instance owner", "owner_id", ownerID, "error", err)
		return persistence.User{}, false
	}
	cache[ownerID] = owner
	return owner, true
}

func initialReminderInstruction(instance persistence.Instance, owner persistence.User, minutesUntil int) string {
	return fmt.Sprintf(
		"Write a short, friendly WhatsApp reminder for %s: %q starts in %d minutes. "+
			"Ask them to confirm once it is done. Reply in language %q. [Event ID: %s]",
		owner.FirstName, instance.Description, minutesUntil, owner.Language, instance.ID,
	)
}

func escalationInstruction(instance persistence.Instance, owner persistence.User, n, minutesLate int) string {
	tone := escalationTones[n]
	if tone == "" {
		tone = escalationTones[maxRemindersPerInstance]
	}
	return fmt.Sprintf(
		"This is reminder number %d for %s about %q, which was due %d minutes ago and is still "+
			"unconfirmed. Write it %s, but keep it short and in language %q. [Event ID: %s]",
		n, owner.FirstName, instance.Description, minutesLate, tone, owner.Language, instance.ID,
	)
}
