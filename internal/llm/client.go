// Package llm wraps an OpenAI-compatible chat completion endpoint (Groq, OpenAI,
// or any gateway speaking the same protocol) behind a single-call interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"nutribyte/fitness-app/internal/config"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request defines a completion request.
type Request struct {
	// Messages is the ordered chat history sent to the provider.
	Messages []Message

	// Temperature controls randomness. nil uses the client default.
	Temperature *float64

	// MaxTokens limits response length. 0 uses the client default.
	MaxTokens int
}

// TokenUsage represents token consumption for one call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response contains the completion result.
type Response struct {
	// RequestID correlates log lines of one call.
	RequestID    string
	Content      string
	Model        string
	FinishReason string
	Usage        TokenUsage
}

// Completer is the single operation the generator needs from a provider.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Client is a Completer backed by go-openai.
type Client struct {
	api         *openai.Client
	model       string
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient builds a provider client from configuration. The HTTP client timeout
// is a backstop; callers bound each call with their own context deadline.
func NewClient(cfg config.LLMConfig, opts ...ClientOption) *Client {
	oaCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oaCfg.BaseURL = cfg.BaseURL
	}
	oaCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout + 5*time.Second}

	c := &Client{
		api:         openai.NewClientWithConfig(oaCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends one chat completion request. No retries are performed.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, NewFatalError(errors.New("at least one message is required"))
	}

	requestID := uuid.New().String()
	startedAt := time.Now()

	temperature := c.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	c.logger.Debug("Sending LLM request",
		"request_id", requestID,
		"model", c.model,
		"messages", len(messages),
		"max_tokens", maxTokens)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32(temperature),
		MaxTokens:   maxTokens,
	})
	if err != nil {
		c.logger.Warn("LLM request failed",
			"request_id", requestID,
			"duration_ms", time.Since(startedAt).Milliseconds(),
			"error", err)
		return nil, classifyError(ctx, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, NewTransientError(ErrEmptyCompletion)
	}

	out := &Response{
		RequestID:    requestID,
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		FinishReason: string(resp.Choices[0].FinishReason),
		Usage: TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}

	c.logger.Info("LLM request completed",
		"request_id", requestID,
		"model", out.Model,
		"finish_reason", out.FinishReason,
		"total_tokens", out.Usage.TotalTokens,
		"duration_ms", time.Since(startedAt).Milliseconds())

	return out, nil
}

// classifyError determines if a provider error is transient or fatal.
func classifyError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return NewTransientError(fmt.Errorf("provider call cancelled: %w", err))
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		// Transport failures carry no status and are transient.
		return NewTransientError(fmt.Errorf("provider request failed: %w", err))
	}

	wrapped := fmt.Errorf("provider error (status %d): %w", status, err)
	switch {
	case status == http.StatusTooManyRequests, status >= 500, status == 0:
		return NewTransientError(wrapped)
	default:
		return NewFatalError(wrapped)
	}
}
