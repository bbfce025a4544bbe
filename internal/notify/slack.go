package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/pkg/logging"
)

const (
	slackTimeout = 5 * time.Second
	// slackBurst bounds how many notifications may go out back to back
	// before the per-minute rate takes over.
	slackBurst = 3
)

// Slack forwards notifications at or above a minimum level to an incoming
// webhook. Sends beyond the configured rate are dropped, not queued.
type Slack struct {
	webhookURL string
	channel    string
	minLevel   Level
	limiter    *rate.Limiter
	http       *retryablehttp.Client
}

// NewSlack builds a webhook sink. perMinute <= 0 disables rate limiting.
func NewSlack(webhookURL, channel string, minLevel Level, perMinute float64) *Slack {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = slackTimeout
	rc.Logger = nil

	var limiter *rate.Limiter
	if perMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(perMinute/60), slackBurst)
	}

	return &Slack{
		webhookURL: webhookURL,
		channel:    channel,
		minLevel:   minLevel,
		limiter:    limiter,
		http:       rc,
	}
}

type slackPayload struct {
	Text    string `json:"text"`
	Channel string `json:"channel,omitempty"`
}

// Send posts the notification to the webhook. Messages below the minimum
// level and messages over the rate limit are silently dropped.
func (s *Slack) Send(ctx context.Context, n Notification) error {
	if n.Level.severity() < s.minLevel.severity() {
		return nil
	}
	if s.limiter != nil && !s.limiter.Allow() {
		logging.Warn(subsystem, "Dropping notification %q: rate limit reached", n.Title)
		return nil
	}

	icon, _ := consoleLook(n.Level)
	text := icon + " *" + n.Title + "*"
	if n.Body != "" {
		text += "\n" + n.Body
	}

	body, err := json.Marshal(slackPayload{Text: text, Channel: s.channel})
	if err != nil {
		return fmt.Errorf("failed to encode slack payload: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, body)
	if err != nil {
		return fmt.Errorf("failed to build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("slack webhook responded with status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// Ping validates the webhook URL shape without posting anything.
func (s *Slack) Ping(_ context.Context) error {
	parsed, err := url.Parse(s.webhookURL)
	if err != nil {
		return fmt.Errorf("invalid slack webhook url: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("invalid slack webhook url scheme %q", parsed.Scheme)
	}
	return nil
}
