package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/reminder-bot/internal/persistence"
)

// historyLimit is how many recent messages accompany each agent request.
const historyLimit = 10

// apologyReply is sent when the agent cannot produce an answer.
const apologyReply = "Sorry, I'm having trouble thinking straight right now. Please try again in a moment."

// confirmationPhrases are short replies treated as acknowledging the most
// recent pending reminder without a round-trip through the chat model.
var confirmationPhrases = map[string]bool{
	"done":      true,
	"ok":        true,
	"confirm":   true,
	"confirmed": true,
	"did it":    true,
	"✅":         true,
}

// ConversationService turns inbound WhatsApp messages into replies,
// keeping the append-only conversation log as agent context.
type ConversationService struct {
	userService *UserService
	reminders   *ReminderService
	messages    persistence.MessageRepository
	agent       ChatAgent
	gateway     MessageGateway
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewConversationService wires dependencies for the conversation service.
func NewConversationService(
	userService *UserService,
	reminders *ReminderService,
	messages persistence.MessageRepository,
	agent ChatAgent,
	gateway MessageGateway,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
) *ConversationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ConversationService{
		userService: userService,
		reminders:   reminders,
		messages:    messages,
		agent:       agent,
		gateway:     gateway,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// HandleInbound processes one incoming message and sends the reply back
// through the gateway. The returned string is the reply text.
func (s *ConversationService) HandleInbound(ctx context.Context, phone, text string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("ConversationService is nil")
	}

	logger := serviceLogger(ctx, s.logger, "conversation", "handle_inbound")

	user, err := s.userService.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return s.handleUnregistered(ctx, logger, phone, text)
		}
		return "", err
	}

	// A bare acknowledgement resolves the newest pending reminder directly.
	if instance, ok := s.resolveConfirmation(ctx, logger, user, text); ok {
		return s.acknowledgeConfirmation(ctx, logger, user, instance, text)
	}

	s.record(ctx, logger, user.ID, persistence.SentByUser, text, nil)

	reply := s.generateReply(ctx, logger, AgentRequest{
		Registered:  true,
		User:        user,
		Phone:       phone,
		History:     s.history(ctx, logger, user.ID),
		CurrentTime: s.now(),
	})

	s.record(ctx, logger, user.ID, persistence.SentByAI, reply, nil)

	if err := s.gateway.SendMessage(ctx, phone, reply); err != nil {
		logger.Error("failed to deliver reply", "error", err, "kind", ErrorKind(err))
		return reply, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	return reply, nil
}

// handleUnregistered runs the registration persona. A structured message
// of the form "register <first> [last] [timezone] [language]" creates the
// account; anything else gets the registration prompt.
func (s *ConversationService) handleUnregistered(ctx context.Context, logger *slog.Logger, phone, text string) (string, error) {
	if params, ok := parseRegistration(phone, text); ok {
		user, err := s.userService.Register(ctx, params)
		if err != nil {
			var vErr *ValidationError
			if errors.As(err, &vErr) {
				reply := "That didn't quite work. Try: register <first name> [last name] [timezone] [language]"
				_ = s.gateway.SendMessage(ctx, phone, reply)
				return reply, nil
			}
			return "", err
		}
		reply := fmt.Sprintf("Welcome aboard, %s! Tell me what you'd like to be reminded about.", user.FirstName)
		if err := s.gateway.SendMessage(ctx, phone, reply); err != nil {
			return reply, fmt.Errorf("%w: %v", ErrExternalService, err)
		}
		return reply, nil
	}

	reply := s.generateReply(ctx, logger, AgentRequest{
		Registered:  false,
		Phone:       phone,
		CurrentTime: s.now(),
	})
	if err := s.gateway.SendMessage(ctx, phone, reply); err != nil {
		logger.Error("failed to deliver registration prompt", "error", err)
		return reply, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	return reply, nil
}

func (s *ConversationService) resolveConfirmation(ctx context.Context, logger *slog.Logger, user persistence.User, text string) (persistence.Instance, bool) {
	if !confirmationPhrases[strings.ToLower(strings.TrimSpace(text))] {
		return persistence.Instance{}, false
	}

	pending, err := s.reminders.PendingFor(ctx, user.ID)
	if err != nil {
		logger.Error("failed to list pending reminders", "error", err)
		return persistence.Instance{}, false
	}
	if len(pending) == 0 {
		return persistence.Instance{}, false
	}

	confirmed, err := s.reminders.Confirm(ctx, pending[0].ID)
	if err != nil {
		logger.Error("failed to confirm instance", "instance_id", pending[0].ID, "error", err)
		return persistence.Instance{}, false
	}
	return confirmed, true
}

func (s *ConversationService) acknowledgeConfirmation(ctx context.Context, logger *slog.Logger, user persistence.User, instance persistence.Instance, text string) (string, error) {
	instanceID := instance.ID
	s.record(ctx, logger, user.ID, persistence.SentByUser, text, &instanceID)

	reply := fmt.Sprintf("Nice work! %q is marked as done. ✅", instance.Description)
	s.record(ctx, logger, user.ID, persistence.SentByAI, reply, &instanceID)

	if err := s.gateway.SendMessage(ctx, user.Phone, reply); err != nil {
		logger.Error("failed to deliver confirmation reply", "error", err)
		return reply, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	return reply, nil
}

func (s *ConversationService) generateReply(ctx context.Context, logger *slog.Logger, req AgentRequest) string {
	reply, err := s.agent.Reply(ctx, req)
	if err != nil {
		logger.Error("agent failed to reply", "error", err, "kind", ErrorKind(err))
		return apologyReply
	}
	return reply
}

func (s *ConversationService) history(ctx context.Context, logger *slog.Logger, ownerID string) []ChatTurn {
	messages, err := s.messages.ListRecentMessages(ctx, ownerID, historyLimit)
	if err != nil {
		logger.Error("failed to load conversation history", "error", err)
		return nil
	}

	turns := make([]ChatTurn, 0, len(messages))
	for _, message := range messages {
		turns = append(turns, ChatTurn{
			Role:       message.SentBy,
			Text:       message.Text,
			InstanceID: message.InstanceID,
			Timestamp:  message.Timestamp,
		})
	}
	return turns
}

func (s *ConversationService) record(ctx context.Context, logger *slog.Logger, ownerID, sentBy, text string, instanceID *string) {
	message := persistence.Message{
		ID:         s.idGenerator(),
		OwnerID:    ownerID,
		SentBy:     sentBy,
		Text:       text,
		InstanceID: instanceID,
		Timestamp:  s.now().UTC(),
	}
	if err := s.messages.CreateMessage(ctx, message); err != nil {
		logger.Error("failed to record message", "error", err)
	}
}

// parseRegistration accepts "register <first> [last] [timezone] [language]".
// A token containing '/' is treated as the timezone; a trailing short token
// as the language.
func parseRegistration(phone, text string) (RegisterParams, bool) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) < 2 || !strings.EqualFold(fields[0], "register") {
		return RegisterParams{}, false
	}

	params := RegisterParams{Phone: phone}
	rest := fields[1:]

	// Peel language then timezone off the tail; what remains is the name.
	if len(rest) > 1 && params.Language == "" && looksLikeLanguage(rest[len(rest)-1]) {
		params.Language = rest[len(rest)-1]
		rest = rest[:len(rest)-1]
	}
	if len(rest) > 1 && strings.Contains(rest[len(rest)-1], "/") {
		params.Timezone = rest[len(rest)-1]
		rest = rest[:len(rest)-1]
	}

	if len(rest) == 0 {
		return RegisterParams{}, false
	}
	params.FirstName = rest[0]
	if len(rest) > 1 {
		params.LastName = strings.Join(rest[1:], " ")
	}
	return params, true
}

func looksLikeLanguage(token string) bool {
	if len(token) != 2 && len(token) != 5 {
		return false
	}
	for i, r := range token {
		if i == 2 {
			if r != '-' && r != '_' {
				return false
			}
			continue
		}
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
