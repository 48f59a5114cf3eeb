// Package mattermost posts rendered reports to Mattermost via Incoming Webhooks.
package mattermost

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bissquit/scorecard-report/internal/pkg/ctxlog"
	"github.com/bissquit/scorecard-report/internal/pkg/httputil"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultUsername = "Scorecard Report"
)

// ErrMissingWebhook is returned when the publisher has no webhook URL.
var ErrMissingWebhook = errors.New("mattermost: webhook URL is required")

// Config holds Mattermost publisher configuration.
type Config struct {
	WebhookURL string
	Username   string        // display name, default "Scorecard Report"
	IconURL    string        // optional
	Channel    string        // overrides the webhook's default channel
	Timeout    time.Duration // request timeout
}

// Publisher posts reports to a single Mattermost incoming webhook.
type Publisher struct {
	config     Config
	httpClient *http.Client
}

// NewPublisher creates a new Mattermost publisher.
func NewPublisher(config Config) (*Publisher, error) {
	if config.WebhookURL == "" {
		return nil, ErrMissingWebhook
	}
	if config.Username == "" {
		config.Username = defaultUsername
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &Publisher{
		config:     config,
		httpClient: httputil.NewClient("mattermost", config.Timeout),
	}, nil
}

type webhookPayload struct {
	Text     string `json:"text"`
	Username string `json:"username,omitempty"`
	IconURL  string `json:"icon_url,omitempty"`
	Channel  string `json:"channel,omitempty"`
}

// Publish posts the rendered report. The report is wrapped in a code block so
// its column alignment survives Markdown rendering.
func (p *Publisher) Publish(ctx context.Context, title, body string) error {
	payload := webhookPayload{
		Text:     formatMessage(title, body),
		Username: p.config.Username,
		IconURL:  p.config.IconURL,
		Channel:  p.config.Channel,
	}

	if err := httputil.PostJSON(ctx, p.httpClient, "post report", p.config.WebhookURL, payload); err != nil {
		return describe(err)
	}

	ctxlog.FromContext(ctx).Debug("report posted to mattermost",
		"webhook", maskWebhookURL(p.config.WebhookURL),
		"bytes", len(payload.Text),
	)
	return nil
}

func formatMessage(title, body string) string {
	if title == "" {
		return "```\n" + body + "```"
	}
	return fmt.Sprintf("### %s\n\n```\n%s```", title, body)
}

func describe(err error) error {
	switch {
	case httputil.HasStatusCode(err, http.StatusUnauthorized), httputil.HasStatusCode(err, http.StatusForbidden):
		return fmt.Errorf("mattermost: invalid or expired webhook: %w", err)
	case httputil.IsNotFound(err):
		return fmt.Errorf("mattermost: webhook not found: %w", err)
	default:
		return fmt.Errorf("mattermost: %w", err)
	}
}

// maskWebhookURL hides the webhook key for logging.
func maskWebhookURL(url string) string {
	if len(url) > 40 {
		return url[:20] + "..." + url[len(url)-10:]
	}
	return url
}
