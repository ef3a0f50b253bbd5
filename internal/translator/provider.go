// Package translator talks to the chat-completions translation provider and
// holds the per-language prompt catalog.
package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

var (
	// ErrNotConfigured is returned when no provider API key was provided.
	ErrNotConfigured = errors.New("translation provider not configured")
	// ErrEmptyCompletion is returned when the provider answered without text.
	ErrEmptyCompletion = errors.New("translation provider returned no text")
)

// Completion is one provider answer.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// TotalTokens is the billed token count of the call.
func (c Completion) TotalTokens() int {
	return c.PromptTokens + c.CompletionTokens
}

// Provider translates one text per call.
type Provider interface {
	Translate(ctx context.Context, systemPrompt, userMessage string, temperature float64) (Completion, error)
}

// ProviderError is a non-2xx answer from the provider.
type ProviderError struct {
	Message    string
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("translation provider error (status %d): %s", e.StatusCode, e.Message)
}

// Options configures the chat-completions client.
type Options struct {
	BaseURL        string
	APIKey         string
	Model          string
	Timeout        time.Duration
	RequestsPerSec float64
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type chatClient struct {
	client  *resty.Client
	limiter *rate.Limiter
	model   string
}

// NewProvider creates a chat-completions provider paced by a token bucket.
// A non-positive RequestsPerSec disables pacing.
func NewProvider(opts Options) (Provider, error) {
	if opts.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Model == "" {
		opts.Model = "sonar"
	}

	limit := rate.Inf
	if opts.RequestsPerSec > 0 {
		limit = rate.Limit(opts.RequestsPerSec)
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	client.SetTimeout(opts.Timeout)
	client.SetAuthToken(opts.APIKey)
	client.SetHeader("Content-Type", "application/json")

	return &chatClient{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		model:   opts.Model,
	}, nil
}

func (c *chatClient) Translate(ctx context.Context, systemPrompt, userMessage string, temperature float64) (Completion, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Completion{}, fmt.Errorf("translation rate limiter: %w", err)
	}

	var (
		out    chatResponse
		errOut chatErrorResponse
	)
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: userMessage},
			},
			Temperature: temperature,
		}).
		SetResult(&out).
		SetError(&errOut).
		Post("/chat/completions")
	if err != nil {
		return Completion{}, fmt.Errorf("failed to call translation provider: %w", err)
	}
	if resp.IsError() {
		msg := errOut.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return Completion{}, &ProviderError{Message: msg, StatusCode: resp.StatusCode()}
	}

	if len(out.Choices) == 0 {
		return Completion{}, ErrEmptyCompletion
	}
	text := StripCodeFences(out.Choices[0].Message.Content)
	if text == "" {
		return Completion{}, ErrEmptyCompletion
	}

	return Completion{
		Text:             text,
		PromptTokens:     out.Usage.PromptTokens,
		CompletionTokens: out.Usage.CompletionTokens,
	}, nil
}
