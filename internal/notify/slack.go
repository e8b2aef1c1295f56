package notify

import (
	"context"
	"fmt"
	"io"

	"github.com/wonny/sales-etl/pkg/httputil"
)

// SlackChannel posts alerts to an incoming webhook
type SlackChannel struct {
	webhookURL string
	client     *httputil.Client
}

// NewSlackChannel creates a webhook channel. An empty URL disables it.
func NewSlackChannel(webhookURL string, client *httputil.Client) *SlackChannel {
	return &SlackChannel{webhookURL: webhookURL, client: client}
}

func (c *SlackChannel) Name() string  { return "slack" }
func (c *SlackChannel) Enabled() bool { return c.webhookURL != "" }

// Send posts {"text": message}
func (c *SlackChannel) Send(ctx context.Context, message string) error {
	resp, err := c.client.PostJSON(ctx, c.webhookURL, map[string]string{"text": message})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, body)
	}
	return nil
}
