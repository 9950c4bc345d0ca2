package pushover

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"weback-home/internal/infra"
)

const (
	defaultAPIURL = "https://api.pushover.net/1/messages.json"

	// DefaultCooldown is how long an identical message is held back after
	// it was delivered.
	DefaultCooldown = 30 * time.Minute
)

// Client pushes login failures and outage notices to a phone. It is a
// no-op until both token and user key are set.
type Client struct {
	token      string
	userKey    string
	apiURL     string
	httpClient *http.Client
	retry      infra.RetryConfig
	cooldown   time.Duration
	logger     *slog.Logger
	now        func() time.Time

	mu   sync.Mutex
	sent map[string]time.Time
}

func NewClient(token, userKey string, logger *slog.Logger) *Client {
	return NewClientWithURL(token, userKey, defaultAPIURL, logger)
}

func NewClientWithURL(token, userKey, apiURL string, logger *slog.Logger) *Client {
	return &Client{
		token:      token,
		userKey:    userKey,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry:      infra.DefaultRetryConfig(),
		cooldown:   DefaultCooldown,
		logger:     logger,
		now:        time.Now,
		sent:       make(map[string]time.Time),
	}
}

// WithCooldown overrides DefaultCooldown. Zero disables suppression.
func (c *Client) WithCooldown(d time.Duration) *Client {
	c.cooldown = d
	return c
}

func (c *Client) Notify(ctx context.Context, message string) error {
	if c.token == "" || c.userKey == "" {
		return nil
	}
	if c.suppressed(message) {
		c.logger.Debug("pushover notification suppressed", "message", message)
		return nil
	}

	form := url.Values{}
	form.Set("token", c.token)
	form.Set("user", c.userKey)
	form.Set("title", "WeBack")
	form.Set("message", message)

	err := infra.WithRetry(ctx, c.retry, func() error {
		return c.send(ctx, form)
	})
	if err != nil {
		return err
	}

	c.markSent(message)
	return nil
}

func (c *Client) send(ctx context.Context, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return infra.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case infra.IsRetryableHTTPStatus(resp.StatusCode):
		return fmt.Errorf("pushover error: %s", resp.Status)
	default:
		return infra.Permanent(fmt.Errorf("pushover rejected notification: %s", resp.Status))
	}
}

func (c *Client) suppressed(message string) bool {
	if c.cooldown <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.sent[message]
	return ok && c.now().Sub(last) < c.cooldown
}

func (c *Client) markSent(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for msg, at := range c.sent {
		if now.Sub(at) >= c.cooldown {
			delete(c.sent, msg)
		}
	}
	c.sent[message] = now
}
