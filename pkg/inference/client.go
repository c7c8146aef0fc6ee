package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/teslashibe/go-callflow/internal/httpc"
)

const providerClient = "client"

// Client is the chat provider for any OpenAI-compatible API (OpenAI,
// Ollama, vLLM, Together, Groq, etc.).
type Client struct {
	api    *openai.Client
	config *Config
}

// NewClient creates a new inference client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.Logger = cfg.Logger.With("component", "inference.client")

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	oc.HTTPClient = cfg.HTTPClient
	if oc.HTTPClient == nil {
		oc.HTTPClient = httpc.NewClient(0)
	}

	return &Client{
		api:    openai.NewClientWithConfig(oc),
		config: cfg,
	}, nil
}

// Chat generates a chat completion.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	apiReq := c.buildRequest(req)

	var (
		resp    openai.ChatCompletionResponse
		lastErr error
	)
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay * time.Duration(attempt)):
			}
		}

		var err error
		resp, err = c.once(ctx, apiReq)
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = convertError(err)

		var apiErr *APIError
		if errors.As(lastErr, &apiErr) && !apiErr.IsRetryable() {
			return nil, lastErr
		}
		if ctx.Err() != nil {
			return nil, lastErr
		}
		c.config.Logger.Warn("request failed, retrying",
			"attempt", attempt+1,
			"error", lastErr,
		)
	}
	if lastErr != nil {
		return nil, lastErr
	}

	if len(resp.Choices) == 0 {
		return nil, WrapError(providerClient, ErrEmptyResponse)
	}
	choice := resp.Choices[0]

	return &ChatResponse{
		Message:      NewAssistantMessage(choice.Message.Content),
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Model:     resp.Model,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// once performs a single bounded request.
func (c *Client) once(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}
	return c.api.CreateChatCompletion(ctx, req)
}

// Health checks API connectivity.
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return convertError(err)
	}
	return nil
}

// Close releases resources.
func (c *Client) Close() error {
	return nil
}

// buildRequest maps a ChatRequest onto the API payload.
func (c *Client) buildRequest(req *ChatRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}

	model := req.Model
	if model == "" {
		model = c.config.Model
	}
	out := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		Stop:     req.Stop,
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}
	if maxTokens > 0 {
		out.MaxTokens = maxTokens
	}

	temp := req.Temperature
	if temp == 0 {
		temp = c.config.Temperature
	}
	if temp > 0 {
		out.Temperature = float32(temp)
	}
	return out
}

// convertError maps go-openai errors onto APIError.
func convertError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if apiErr.Code != nil {
			code = fmt.Sprint(apiErr.Code)
		}
		return &APIError{
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Code:       code,
			Provider:   providerClient,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &APIError{
			StatusCode: reqErr.HTTPStatusCode,
			Message:    reqErr.Error(),
			Provider:   providerClient,
		}
	}
	return WrapError(providerClient, err)
}

// Verify Client implements Provider at compile time.
var _ Provider = (*Client)(nil)
