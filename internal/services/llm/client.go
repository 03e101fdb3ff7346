package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"subforge/internal/logging"
)

const (
	defaultEndpoint    = "https://api.openai.com/v1/chat/completions"
	defaultHTTPTimeout = 120 * time.Second
)

// Roles accepted by the chat completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Config captures the connection settings for one endpoint.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Organization   string
	Temperature    float64
	TimeoutSeconds int
}

// Message is one chat turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	cfg    Config
	http   *http.Client
	retry  retryPolicy
	logger *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithRetryMaxAttempts sets how many requests one call may make. Values
// below one mean a single attempt.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retry.attempts = attempts
	}
}

// WithRetryBackoff sets the first backoff delay and the cap.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retry.baseDelay = baseDelay
		c.retry.maxDelay = maxDelay
	}
}

// WithSleeper replaces the timer used between attempts.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.retry.sleep = sleeper
	}
}

// WithLogger receives a warning for every retried request.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a client for cfg. An empty BaseURL targets the OpenAI
// chat completions endpoint.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Organization = strings.TrimSpace(cfg.Organization)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultEndpoint
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	client := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		retry:  defaultRetryPolicy(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Model reports the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Complete sends messages as one chat completion at the configured
// temperature and returns the first non-empty reply.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("llm complete: at least one message required")
	}
	for i, msg := range messages {
		if strings.TrimSpace(msg.Role) == "" {
			return "", fmt.Errorf("llm complete: message %d has no role", i)
		}
		if strings.TrimSpace(msg.Content) == "" {
			return "", fmt.Errorf("llm complete: message %d has no content", i)
		}
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("llm complete: api key required")
	}
	return c.call(ctx, "llm complete", chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
	})
}

// HealthCheck asks the model for a fixed JSON object, which proves the key,
// the endpoint and the model name are all usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("llm health: api key required")
	}
	reply, err := c.call(ctx, "llm health", chatRequest{
		Model: c.cfg.Model,
		Messages: []Message{
			{Role: RoleSystem, Content: "You must respond with JSON only."},
			{Role: RoleUser, Content: `Respond with {"ok":true}`},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := decodeJSONReply(reply, &parsed); err != nil {
		return fmt.Errorf("llm health: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

// call performs req, retrying transient failures per the retry policy.
func (c *Client) call(ctx context.Context, op string, req chatRequest) (string, error) {
	for attempt := 1; ; attempt++ {
		reply, err := c.send(ctx, req)
		if err == nil {
			return reply, nil
		}
		err = fmt.Errorf("%s: %w", op, err)

		delay, again := c.retry.next(ctx, err, attempt)
		if !again {
			if attempt > 1 {
				return "", fmt.Errorf("%s: gave up after %d attempts: %w", op, attempt, err)
			}
			return "", err
		}
		logging.WarnWithContext(ctx, c.logger, "llm request failed; retrying", "llm_retry",
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.String("model", c.cfg.Model),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the endpoint status or raise llm.timeout_seconds"),
			logging.String(logging.FieldImpact, "request will be retried"),
		)
		if err := c.retry.wait(ctx, delay); err != nil {
			return "", err
		}
	}
}
