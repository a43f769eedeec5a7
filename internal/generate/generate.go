// Package generate sends compiled prompts to a text-completion service.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v4"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DefaultModel      = "gpt-4o"
	DefaultMaxRetries = 3
	DefaultTimeout    = 120 * time.Second
	defaultRetryDelay = time.Second

	systemMessage = "You write psychiatric clinical documentation. Respond with the note text only."
)

// ErrEmptyCompletion is returned when the service answers without text.
var ErrEmptyCompletion = errors.New("generate: empty completion")

// Completer turns a prompt into generated note text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config configures the OpenAI-compatible client.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string        // optional, for compatible gateways and tests
	MaxRetries int           // attempts after the first
	RetryDelay time.Duration // base backoff delay
	Timeout    time.Duration // per-request HTTP timeout
	HTTPClient *http.Client  // optional
	Logger     *slog.Logger
}

// OpenAI implements Completer with the chat completions API.
type OpenAI struct {
	client     openai.Client
	model      string
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewOpenAI creates a client. Retries are handled here rather than by the
// SDK so that every attempt is logged.
func NewOpenAI(cfg Config) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAI{
		client:     openai.NewClient(opts...),
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
	}
}

// Model returns the configured model name.
func (c *OpenAI) Model() string { return c.model }

// Complete sends prompt as a single user message and returns the first
// choice's text. Rate limits and server errors are retried with backoff.
func (c *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemMessage),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0),
	}

	text, err := retry.DoWithData(
		func() (string, error) {
			resp, err := c.client.Chat.Completions.New(ctx, params)
			if err != nil {
				return "", err
			}
			if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
				return "", ErrEmptyCompletion
			}
			return resp.Choices[0].Message.Content, nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries+1)),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("generate: retrying completion",
				slog.Int("attempt", int(n)+1),
				slog.String("error", err.Error()),
			)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("generate: complete: %w", mapError(err))
	}
	return text, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
	}
	return !errors.Is(err, ErrEmptyCompletion)
}

func mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return fmt.Errorf("status %d: %s: %w", apiErr.StatusCode, apiErr.Message, err)
		}
		return fmt.Errorf("status %d: %w", apiErr.StatusCode, err)
	}
	return err
}
