// Package telegram is a minimal Bot API client covering the outbound
// surface this service needs: rich-text messages with inline keyboards.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/demyz/dou-jobs-feed/internal/logging"
)

// WebAppInfo points an inline button at the companion web mini-app
type WebAppInfo struct {
	URL string `json:"url"`
}

// InlineKeyboardButton is one button of an inline keyboard. Exactly one
// of URL or WebApp should be set.
type InlineKeyboardButton struct {
	Text   string      `json:"text"`
	URL    string      `json:"url,omitempty"`
	WebApp *WebAppInfo `json:"web_app,omitempty"`
}

// InlineKeyboardMarkup is a grid of inline buttons attached to a message
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// linkPreviewOptions controls link preview generation
type linkPreviewOptions struct {
	IsDisabled bool `json:"is_disabled"`
}

// sendMessageRequest is the wire payload for the sendMessage method
type sendMessageRequest struct {
	ChatID             int64                 `json:"chat_id"`
	Text               string                `json:"text"`
	ParseMode          string                `json:"parse_mode,omitempty"`
	ReplyMarkup        *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
	LinkPreviewOptions *linkPreviewOptions   `json:"link_preview_options,omitempty"`
}

// apiResponse is the envelope every Bot API method responds with
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// ClientConfig holds configuration for the bot client
type ClientConfig struct {
	BotToken   string
	APIBaseURL string
	Timeout    time.Duration
}

// Client sends messages through the Telegram Bot API
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  logging.Logger
}

// NewClient creates a new bot client
func NewClient(config ClientConfig, logger logging.Logger) (*Client, error) {
	if config.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	baseURL := config.APIBaseURL
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		token:   config.BotToken,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// SendMessage sends an HTML-formatted message with an optional inline
// keyboard to the given chat. Link previews are suppressed so the
// posting link stays compact.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, keyboard *InlineKeyboardMarkup) error {
	payload := sendMessageRequest{
		ChatID:             chatID,
		Text:               text,
		ParseMode:          "HTML",
		ReplyMarkup:        keyboard,
		LinkPreviewOptions: &linkPreviewOptions{IsDisabled: true},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sendMessage payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message to chat %d: %w", chatID, err)
	}
	defer resp.Body.Close()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode sendMessage response: %w", err)
	}

	if !result.OK {
		return fmt.Errorf("telegram API error %d: %s", result.ErrorCode, result.Description)
	}

	return nil
}
