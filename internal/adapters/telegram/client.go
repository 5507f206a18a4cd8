package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"persodash/internal/observability"
)

const defaultAPIBase = "https://api.telegram.org"

// Client sends plain text messages to one Telegram chat. A client
// without both token and chat id is permanently disabled and every
// Send is a silent no-op.
type Client struct {
	apiBase    string
	botToken   string
	chatID     string
	httpClient *http.Client
	logger     *log.Logger
}

func NewClient(botToken, chatID string, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = log.Default()
	}
	client := &Client{
		apiBase:    defaultAPIBase,
		botToken:   botToken,
		chatID:     chatID,
		httpClient: httpClient,
		logger:     logger,
	}
	if !client.Enabled() {
		logger.Printf("telegram not configured (bot token or chat id missing), chat delivery disabled")
	}
	return client
}

func (c *Client) Enabled() bool {
	return c.botToken != "" && c.chatID != ""
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Send delivers text to the configured chat. Delivery is best-effort;
// errors are returned so the caller can log them but nothing here is
// fatal.
func (c *Client) Send(ctx context.Context, text string) error {
	if !c.Enabled() {
		return nil
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    c.chatID,
		Text:      text,
		ParseMode: "Markdown",
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, c.botToken)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		observability.CaptureError(err, map[string]string{
			"component": "telegram",
			"operation": "send_message",
		}, nil)
		return fmt.Errorf("telegram send: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return fmt.Errorf("telegram send: status %d: %s", response.StatusCode, detail)
	}
	return nil
}
