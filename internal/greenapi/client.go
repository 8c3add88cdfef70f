package greenapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// defaultTimeout bounds every Green API call.
const defaultTimeout = 10 * time.Second

// DefaultBaseURL is the hosted Green API endpoint.
const DefaultBaseURL = "https://api.green-api.com"

// Client calls the Green API WhatsApp gateway for one bot instance.
type Client struct {
	baseURL    string
	instanceID string
	token      string
	httpClient *http.Client
}

// NewClient creates a gateway client. An empty baseURL selects the hosted
// endpoint.
func NewClient(baseURL, instanceID, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		instanceID: instanceID,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// ChatID converts a phone number to the WhatsApp chat identifier, keeping
// only digits: "+1 (555) 010-0001" becomes "15550100001@c.us".
func ChatID(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return digits.String() + "@c.us"
}

// SendMessage delivers a text message to a phone number.
func (c *Client) SendMessage(ctx context.Context, phone, text string) error {
	payload := map[string]string{
		"chatId":  ChatID(phone),
		"message": text,
	}
	var response struct {
		IDMessage string `json:"idMessage"`
	}
	return c.post(ctx, "SendMessage", payload, &response)
}

// GetStateInstance reports the authorization state of the bot instance,
// e.g. "authorized".
func (c *Client) GetStateInstance(ctx context.Context) (string, error) {
	var response struct {
		StateInstance string `json:"stateInstance"`
	}
	if err := c.get(ctx, "getStateInstance", &response); err != nil {
		return "", err
	}
	return response.StateInstance, nil
}

// Settings is the subset of instance settings the bot manages.
type Settings struct {
	WebhookURL        string `json:"webhookUrl,omitempty"`
	WebhookURLToken   string `json:"webhookUrlToken,omitempty"`
	IncomingWebhook   string `json:"incomingWebhook,omitempty"`
	OutgoingWebhook   string `json:"outgoingWebhook,omitempty"`
	StateWebhook      string `json:"stateWebhook,omitempty"`
	DelaySendMessages int    `json:"delaySendMessagesMilliseconds,omitempty"`
}

// GetSettings reads the current instance settings.
func (c *Client) GetSettings(ctx context.Context) (Settings, error) {
	var settings Settings
	if err := c.get(ctx, "getSettings", &settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// SetSettings updates instance settings. Green API applies them within a
// few minutes.
func (c *Client) SetSettings(ctx context.Context, settings Settings) error {
	var response struct {
		SaveSettings bool `json:"saveSettings"`
	}
	if err := c.post(ctx, "setSettings", settings, &response); err != nil {
		return err
	}
	if !response.SaveSettings {
		return fmt.Errorf("greenapi: settings were not saved")
	}
	return nil
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/waInstance%s/%s/%s", c.baseURL, c.instanceID, method, c.token)
}

func (c *Client) get(ctx context.Context, method string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.methodURL(method), nil)
	if err != nil {
		return fmt.Errorf("greenapi: failed to build %s request: %w", method, err)
	}
	return c.do(req, method, out)
}

func (c *Client) post(ctx context.Context, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("greenapi: failed to encode %s payload: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("greenapi: failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, method, out)
}

func (c *Client) do(req *http.Request, method string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("greenapi: %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("greenapi: failed to read %s response: %w", method, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("greenapi: %s returned %d: %s", method, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("greenapi: failed to decode %s response: %w", method, err)
		}
	}
	return nil
}
