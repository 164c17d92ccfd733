package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openbridge/relay/internal/core/domain"
)

// Config holds the remote runner connection settings.
type Config struct {
	URL             string `yaml:"url"`
	SharedSecret    string `yaml:"shared_secret"`
	CallbackBaseURL string `yaml:"callback_base_url"`
}

// Client submits tasks to the remote code-execution runner. The runner
// reports results asynchronously on the task's callback URL.
type Client struct {
	endpoint   string
	secret     string
	httpClient *http.Client
}

// NewClient creates a runner client.
func NewClient(cfg Config) *Client {
	return &Client{
		endpoint: cfg.URL,
		secret:   cfg.SharedSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Submit hands a task to the runner. The context deadline is propagated
// into the outbound call so a dispatcher timeout cancels it.
func (c *Client) Submit(ctx context.Context, task domain.AgentTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("X-Callback-Secret", c.secret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submit task: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("runner returned status %d: %s", resp.StatusCode, snippet)
	}
	return nil
}
