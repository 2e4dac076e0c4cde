// Package gemini implements the generation.Generator interface using
// Google's Gemini API via the genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"google.golang.org/genai"

	"github.com/cardsplit/cardsplit/internal/config"
	"github.com/cardsplit/cardsplit/internal/generation"
)

// retryJitter bounds the random spread added to each backoff step.
const retryJitter = 250 * time.Millisecond

// Client sends generation payloads to the Gemini API.
type Client struct {
	logger      *slog.Logger
	client      *genai.Client
	model       string
	apiKeyEnv   string
	temperature float64
	maxTokens   int
	maxRetries  int
	retryBase   time.Duration
	timeout     time.Duration
}

// New creates a Gemini-backed generator from the backend configuration.
// The API key is resolved from the configured environment variable here,
// so a missing credential fails the run before any candidate is touched.
func New(ctx context.Context, logger *slog.Logger, cfg config.BackendConfig) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	p := cfg.Gemini
	if p.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	apiKey, err := resolveKey(p.APIKeyEnv)
	if err != nil {
		return nil, err
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if p.APIBase != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: p.APIBase}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &Client{
		logger:      logger,
		client:      client,
		model:       p.Model,
		apiKeyEnv:   p.APIKeyEnv,
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
	return "gemini"
}

// Generate sends the payload and returns the raw response text.
// Transient API failures are retried with exponential backoff and
// jitter; safety blocks and credential rejections fail immediately.
func (c *Client) Generate(ctx context.Context, p generation.Payload) (string, error) {
	if _, err := resolveKey(c.apiKeyEnv); err != nil {
		return "", err
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(c.temperature)),
		MaxOutputTokens:   int32(c.maxTokens),
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
	}

	backoff := retry.WithMaxRetries(uint64(c.maxRetries),
		retry.WithJitter(retryJitter, retry.NewExponential(c.retryBase)))

	attempt := 0
	var text string

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		c.logger.DebugContext(ctx, "calling Gemini API",
			"attempt", attempt,
			"max_attempts", c.maxRetries+1,
			"model", c.model)

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.Models.GenerateContent(callCtx, c.model, genai.Text(p.Prompt), genConfig)
		if err != nil {
			return classifyCallError(err)
		}

		text, err = responseText(resp)
		return err
	})
	if err != nil {
		return "", err
	}

	return text, nil
}

// classifyCallError maps SDK call errors to the failure taxonomy:
// 429 and 5xx are retryable, 401/403 a credential rejection, other API
// errors terminal rejections, and anything else (transport, timeout) is
// treated as transient.
func classifyCallError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
			return retry.RetryableError(fmt.Errorf("%w: HTTP %d from provider",
				generation.ErrBackendUnavailable, apiErr.Code))
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: invalid credential (HTTP %d)",
				generation.ErrBackendRejected, apiErr.Code)
		default:
			return fmt.Errorf("%w: HTTP %d: %s",
				generation.ErrBackendRejected, apiErr.Code, apiErr.Message)
		}
	}

	return retry.RetryableError(fmt.Errorf("%w: %v", generation.ErrBackendUnavailable, err))
}

// responseText extracts the concatenated text parts from a response,
// rejecting safety blocks and empty candidates.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", generation.ErrMalformedResponse)
	}

	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", generation.ErrBackendRejected)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty text in response", generation.ErrMalformedResponse)
	}

	return text, nil
}
