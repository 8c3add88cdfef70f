package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/reminder-bot/internal/application"
)

// ChatMessage is one turn in the chat-completions wire format.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatModel generates a completion for a sequence of chat messages.
type ChatModel interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// Agent adapts a chat model into the reply interface the application layer
// expects, choosing the persona and assembling the context window.
type Agent struct {
	model ChatModel
}

// New creates an agent backed by the given chat model.
func New(model ChatModel) *Agent {
	return &Agent{model: model}
}

// Reply produces one reply for the request. Model failures surface as
// external-service errors.
func (a *Agent) Reply(ctx context.Context, req application.AgentRequest) (string, error) {
	if a == nil || a.model == nil {
		return "", fmt.Errorf("%w: chat model not configured", application.ErrExternalService)
	}

	messages := a.assemble(req)
	reply, err := a.model.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %v", application.ErrExternalService, err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("%w: model returned an empty reply", application.ErrExternalService)
	}
	return reply, nil
}

func (a *Agent) assemble(req application.AgentRequest) []ChatMessage {
	persona := systemPrompt
	if !req.Registered {
		persona = registrationPrompt
	}

	var system strings.Builder
	system.WriteString(persona)
	if req.Registered {
		name := strings.TrimSpace(req.User.FirstName + " " + req.User.LastName)
		fmt.Fprintf(&system, "\n\nThe user is %s (timezone %s, language %s).",
			name, req.User.Timezone, req.User.Language)
	}
	if !req.CurrentTime.IsZero() {
		fmt.Fprintf(&system, "\nThe current time is %s.", req.CurrentTime.Format(time.RFC1123))
	}

	messages := []ChatMessage{{Role: "system", Content: system.String()}}

	for _, turn := range req.History {
		role := "user"
		if turn.Role == "ai" {
			role = "assistant"
		}
		content := turn.Text
		if turn.InstanceID != nil {
			content = fmt.Sprintf("[Event ID: %s] %s", *turn.InstanceID, content)
		}
		messages = append(messages, ChatMessage{Role: role, Content: content})
	}

	if req.Instruction != "" {
		messages = append(messages, ChatMessage{Role: "user", Content: req.Instruction})
	}

	return messages
}
