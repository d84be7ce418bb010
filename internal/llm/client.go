// Package llm wraps an OpenAI-compatible chat completion API behind a small
// Completer interface, adding per-request timeouts, client-side rate limiting,
// retries and metrics.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/vc-portfolio-digest/internal/metrics"
)

// ErrEmptyCompletion is returned when the API answers without choices.
var ErrEmptyCompletion = errors.New("completion returned no choices")

// Defaults applied by New.
const (
	DefaultModel          = openai.GPT3Dot5Turbo
	DefaultRequestTimeout = 30 * time.Second
)

// Request is a single system+user chat completion.
type Request struct {
	// Purpose labels metrics and logs, e.g. "long_summary".
	Purpose   string
	System    string
	User      string
	MaxTokens int
}

// Completer produces a completion for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config controls the client.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	RequestTimeout time.Duration
	// RPS caps requests per second; zero disables client-side limiting.
	RPS         float64
	Burst       int
	MaxAttempts int
	RetryBase   time.Duration
	RetryMax    time.Duration
}

// Client implements Completer with go-openai.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	retry   RetryPolicy
	logger  *zap.Logger
}

// New builds a Client.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm api key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return &Client{
		api:     openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.RequestTimeout,
		limiter: limiter,
		retry:   NewExponentialRetryPolicy(cfg.MaxAttempts, cfg.RetryBase, cfg.RetryMax),
		logger:  logger,
	}, nil
}

// Complete sends req, retrying transient failures, and returns the trimmed
// content of the first choice.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	for attempt := 1; ; attempt++ {
		content, err := c.completeOnce(ctx, req)
		if err == nil {
			return content, nil
		}
		if !c.retry.ShouldRetry(err, attempt) {
			return "", err
		}
		wait := c.retry.Backoff(attempt)
		c.logger.Warn("llm request failed; retrying",
			zap.String("purpose", req.Purpose),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", fmt.Errorf("llm retry wait: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

func (c *Client) completeOnce(ctx context.Context, req Request) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("llm rate limit wait: %w", err)
		}
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		metrics.ObserveLLMRequest(req.Purpose, "error", time.Since(start))
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		metrics.ObserveLLMRequest(req.Purpose, "empty", time.Since(start))
		return "", ErrEmptyCompletion
	}
	metrics.ObserveLLMRequest(req.Purpose, "ok", time.Since(start))
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
