package tickets

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/carlmjohnson/requests"

	"github.com/oceanops/fleetwatch/pkg/config"
)

// SlackNotifier posts approval requests to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	http       *http.Client
}

// NewSlackNotifier builds a notifier from the approval configuration.
func NewSlackNotifier(cfg *config.ApprovalConfig) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: cfg.SlackWebhookURL,
		channel:    cfg.Channel,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify posts the message. A missing webhook URL disables delivery.
func (n *SlackNotifier) Notify(ctx context.Context, message string) error {
	if n.webhookURL == "" {
		return nil
	}

	payload := map[string]string{"text": message}
	if n.channel != "" {
		payload["channel"] = n.channel
	}

	err := requests.URL(n.webhookURL).
		Client(n.http).
		BodyJSON(&payload).
		Fetch(ctx)
	if err != nil {
		return fmt.Errorf("slack notification failed: %w", err)
	}

	return nil
}
