package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// Client talks to the Telegram Bot API.
type Client struct {
	token      string
	apiBase    string
	httpClient *http.Client
}

// NewClient creates a Bot API client.
func NewClient(token string) *Client {
	return NewClientWithBaseURL(token, defaultAPIBase)
}

// NewClientWithBaseURL creates a client against a custom API base,
// used by tests.
func NewClientWithBaseURL(token, apiBase string) *Client {
	return &Client{
		token:   token,
		apiBase: apiBase,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendMessage sends a text reply to a chat. replyTo of 0 sends a plain
// message.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, replyTo int64) error {
	params := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if replyTo != 0 {
		params["reply_to_message_id"] = replyTo
	}
	return c.call(ctx, "sendMessage", params)
}

// SendChatAction shows an activity indicator (e.g. "typing") in a chat.
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	return c.call(ctx, "sendChatAction", map[string]any{
		"chat_id": chatID,
		"action":  action,
	})
}

func (c *Client) call(ctx context.Context, method string, params map[string]any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	return decodeAPIResponse(method, resp)
}

// SendVoice uploads a voice note reply. The Bot API requires multipart
// for binary payloads.
func (c *Client) SendVoice(ctx context.Context, chatID int64, voice []byte, replyTo int64) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return fmt.Errorf("write field: %w", err)
	}
	if replyTo != 0 {
		if err := w.WriteField("reply_to_message_id", strconv.FormatInt(replyTo, 10)); err != nil {
			return fmt.Errorf("write field: %w", err)
		}
	}
	part, err := w.CreateFormFile("voice", "reply.ogg")
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(voice); err != nil {
		return fmt.Errorf("write voice payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.methodURL("sendVoice"), &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sendVoice: %w", err)
	}
	defer resp.Body.Close()

	return decodeAPIResponse("sendVoice", resp)
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)
}

func decodeAPIResponse(method string, resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var api apiResponse
	if err := json.Unmarshal(body, &api); err != nil {
		return fmt.Errorf("%s returned status %d: %s", method, resp.StatusCode, snippet(body))
	}
	if !api.OK {
		return fmt.Errorf("%s failed: %s", method, api.Description)
	}
	return nil
}

func snippet(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
