// Package openai implements the generation.Generator interface against
// an OpenAI-compatible chat-completions endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"

	"github.com/cardsplit/cardsplit/internal/config"
	"github.com/cardsplit/cardsplit/internal/generation"
)

// retryJitter bounds the random spread added to each backoff step.
const retryJitter = 250 * time.Millisecond

// chatRequest is the chat-completions request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the subset of the chat-completions response we read.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client sends generation payloads to a chat-completions endpoint.
type Client struct {
	logger      *slog.Logger
	http        *resty.Client
	url         string
	model       string
	apiKeyEnv   string
	apiKey      string
	temperature float64
	maxTokens   int
	maxRetries  int
	retryBase   time.Duration
	timeout     time.Duration
}

// New creates an OpenAI-backed generator from the backend configuration.
// The API key is resolved from the configured environment variable here,
// so a missing credential fails the run before any candidate is touched.
func New(logger *slog.Logger, cfg config.BackendConfig) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	p := cfg.OpenAI
	if p.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	if p.APIBase == "" {
		return nil, fmt.Errorf("%w: API base URL cannot be empty", generation.ErrInvalidConfig)
	}

	apiKey, err := resolveKey(p.APIKeyEnv)
	if err != nil {
		return nil, err
	}

	return &Client{
		logger:      logger,
		http:        resty.New(),
		url:         p.APIBase,
		model:       p.Model,
		apiKeyEnv:   p.APIKeyEnv,
		apiKey:      apiKey,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
		maxRetries:  cfg.MaxRetries,
		retryBase:   cfg.RetryBaseDelay,
		timeout:     cfg.RequestTimeout,
	}, nil
}

// resolveKey reads and trims the named environment variable, failing
// with a user-actionable error when the key is absent.
func resolveKey(envName string) (string, error) {
	if envName == "" {
		return "", fmt.Errorf("%w: no API key environment variable configured",
			generation.ErrCredentialMissing)
	}

	key := strings.TrimSpace(os.Getenv(envName))
	if key == "" {
		return "", fmt.Errorf("%w: set environment variable %q",
			generation.ErrCredentialMissing, envName)
	}

	return key, nil
}

// Name identifies the backend in logs and reports.
func (c *Client) Name() string {
	return "openai"
}

// Generate sends the payload and returns the raw completion text.
// Transient failures (transport errors, 429, 5xx) are retried with
// exponential backoff and jitter up to the configured attempt bound;
// other 4xx responses fail immediately with ErrBackendRejected.
func (c *Client) Generate(ctx context.Context, p generation.Payload) (string, error) {
	// Defensive re-check: the key was resolved at construction, but a
	// cleared environment between runs must still surface precisely.
	if _, err := resolveKey(c.apiKeyEnv); err != nil {
		return "", err
	}

	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.Prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	backoff := retry.WithMaxRetries(uint64(c.maxRetries),
		retry.WithJitter(retryJitter, retry.NewExponential(c.retryBase)))

	attempt := 0
	var out chatResponse

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		c.logger.DebugContext(ctx, "calling chat-completions endpoint",
			"attempt", attempt,
			"max_attempts", c.maxRetries+1,
			"model", c.model)

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		out = chatResponse{}
		resp, err := c.http.R().
			SetContext(callCtx).
			SetHeader("Content-Type", "application/json").
			SetHeader("Authorization", "Bearer "+c.apiKey).
			SetBody(body).
			SetResult(&out).
			Post(c.url)
		if err != nil {
			c.logger.WarnContext(ctx, "chat-completions transport error",
				"attempt", attempt, "error", err)
			return retry.RetryableError(fmt.Errorf("%w: %v", generation.ErrBackendUnavailable, err))
		}

		return classifyStatus(resp)
	})
	if err != nil {
		return "", err
	}

	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: response contained no choices", generation.ErrMalformedResponse)
	}

	return out.Choices[0].Message.Content, nil
}

// classifyStatus maps an HTTP response to the failure taxonomy:
// 429 and 5xx are retryable, any other non-2xx is a terminal rejection.
func classifyStatus(resp *resty.Response) error {
	code := resp.StatusCode()
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests || code >= 500:
		return retry.RetryableError(fmt.Errorf("%w: HTTP %d from provider",
			generation.ErrBackendUnavailable, code))
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: invalid credential (HTTP %d)",
			generation.ErrBackendRejected, code)
	default:
		return fmt.Errorf("%w: HTTP %d: %s",
			generation.ErrBackendRejected, code, snippet(resp.String()))
	}
}

// snippet truncates a provider error body for log-sized messages.
func snippet(s string) string {
	const max = 200
	s = strings.TrimSpace(s)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
