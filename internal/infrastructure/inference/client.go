package inference

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"modelarena/internal/domain/dispatch"
)

// Client adapts one OpenAI-compatible endpoint to the dispatcher's
// completion contract. One instance is bound to the endpoint and
// credential snapshotted at dispatch time.
type Client struct {
	api     *openai.Client
	timeout time.Duration
}

// NewClient builds a client for the given endpoint. baseURL points at the
// OpenAI-compatible root, e.g. "https://host/v1".
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		api:     openai.NewClientWithConfig(cfg),
		timeout: timeout,
	}
}

// Factory returns a dispatch.ClientFactory producing Clients with the
// given per-call timeout.
func Factory(timeout time.Duration) dispatch.ClientFactory {
	return func(baseURL, apiKey string) dispatch.ModelClient {
		return NewClient(baseURL, apiKey, timeout)
	}
}

// Complete performs a single non-streaming chat completion. The returned
// error carries the upstream failure message when one is available.
func (c *Client) Complete(ctx context.Context, userContent, systemPrompt, modelID string) (*dispatch.Completion, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userContent,
	})

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    modelID,
		Messages: messages,
	})
	if err != nil {
		return nil, normalizeError(err)
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}

	return &dispatch.Completion{
		Text:       text,
		TokenCount: resp.Usage.TotalTokens,
		ElapsedMS:  time.Since(start).Milliseconds(),
	}, nil
}

// normalizeError strips SDK wrapping down to the upstream message so the
// slot shows the reason, not the transport scaffolding.
func normalizeError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return errors.New(apiErr.Message)
	}
	return err
}
