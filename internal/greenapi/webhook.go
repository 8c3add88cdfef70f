package greenapi

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Incoming is one inbound text message extracted from a webhook
// notification.
type Incoming struct {
	Phone     string
	Text      string
	Timestamp int64
}

type webhookPayload struct {
	TypeWebhook string `json:"typeWebhook"`
	Timestamp   int64  `json:"timestamp"`
	SenderData  struct {
		ChatID string `json:"chatId"`
		Sender string `json:"sender"`
	} `json:"senderData"`
	MessageData struct {
		TypeMessage     string `json:"typeMessage"`
		TextMessageData struct {
			TextMessage string `json:"textMessage"`
		} `json:"textMessageData"`
		ExtendedTextMessageData struct {
			Text string `json:"text"`
		} `json:"extendedTextMessageData"`
	} `json:"messageData"`
}

// ParseIncoming extracts an inbound text message from a webhook body. The
// second return is false for notifications the bot ignores: delivery
// receipts, state changes, media messages, group chats.
func ParseIncoming(body []byte) (Incoming, bool, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Incoming{}, false, fmt.Errorf("greenapi: failed to decode webhook payload: %w", err)
	}

	if payload.TypeWebhook != "incomingMessageReceived" {
		return Incoming{}, false, nil
	}

	chatID := payload.SenderData.ChatID
	if !strings.HasSuffix(chatID, "@c.us") {
		// Group and broadcast chats use other suffixes.
		return Incoming{}, false, nil
	}

	var text string
	switch payload.MessageData.TypeMessage {
	case "textMessage":
		text = payload.MessageData.TextMessageData.TextMessage
	case "extendedTextMessage":
		text = payload.MessageData.ExtendedTextMessageData.Text
	default:
		return Incoming{}, false, nil
	}
	if strings.TrimSpace(text) == "" {
		return Incoming{}, false, nil
	}

	return Incoming{
		Phone:     strings.TrimSuffix(chatID, "@c.us"),
		Text:      text,
		Timestamp: payload.Timestamp,
	}, true, nil
}
