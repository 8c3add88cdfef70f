package application

import (
	"context"
	"time"

	"github.com/example/reminder-bot/internal/persistence"
)

// ChatTurn is one entry of the conversation history handed to the agent.
type ChatTurn struct {
	Role       string
	Text       string
	InstanceID *string
	Timestamp  time.Time
}

// AgentRequest carries everything the chat agent needs to produce a reply
// in the bot's voice.
type AgentRequest struct {
	// Registered is false when the phone number has no account yet, which
	// switches the agent to its registration persona.
	Registered bool
	User       persistence.User
	Phone      string
	History    []ChatTurn
	// Instruction is an optional system-side nudge, used by the reminder
	// sweeps to request a specific kind of message.
	Instruction string
	CurrentTime time.Time
}

// ChatAgent produces conversational replies.
type ChatAgent interface {
	Reply(ctx context.Context, req AgentRequest) (string, error)
}

// MessageGateway delivers outbound messages to a phone number.
type MessageGateway interface {
	SendMessage(ctx context.Context, phone, text string) error
}

// MaterializeReport summarizes one materialization run.
type MaterializeReport struct {
	Templates int
	Created   int
}

// SweepReport summarizes one reminder sweep.
type SweepReport struct {
	Processed int
	Sent      int
}

// ownerLocation resolves a user's IANA timezone, falling back to UTC when
// it is unset or invalid.
func ownerLocation(user persistence.User) *time.Location {
	if user.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// wallClock strips the zone from an instant, producing the naive wall-clock
// value used for stored event times. The instant must already be expressed
// in the owner's location.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// ownerWallClock is the owner-local wall-clock reading of an instant.
func ownerWallClock(t time.Time, user persistence.User) time.Time {
	return wallClock(t.In(ownerLocation(user)))
}
