package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultGatewayURL is the OpenAI-compatible AI gateway used when none is configured
	DefaultGatewayURL = "https://ai.gateway.lovable.dev/v1"
	// DefaultGatewayModel is the vision-capable model requested from the gateway
	DefaultGatewayModel = "google/gemini-2.5-flash"
)

// Gateway implements the Provider interface against an OpenAI-compatible chat completions endpoint
type Gateway struct {
	client *openai.Client
	model  string
}

// NewGateway creates a new Gateway provider. The API key is sent as a bearer token.
func NewGateway(baseURL, apiKey, model string, timeout time.Duration) (*Gateway, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gateway api key is required")
	}
	if baseURL == "" {
		baseURL = DefaultGatewayURL
	}
	if model == "" {
		model = DefaultGatewayModel
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Gateway{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Complete issues a single chat completion carrying the system prompt, the user instruction and the image
func (g *Gateway) Complete(ctx context.Context, prompt Prompt) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: prompt.System,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prompt.User,
					},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: prompt.Image.URL},
					},
				},
			},
		},
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
			return "", &StatusError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
			return "", &StatusError{StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
		}
		return "", fmt.Errorf("calling gateway: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}

// Name identifies the gateway engine
func (g *Gateway) Name() string {
	return "gateway:" + g.model
}

// Close is a no-op for the HTTP client
func (g *Gateway) Close() error {
	return nil
}
