package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Gemini implements the Provider interface using Google Gemini
type Gemini struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

// NewGemini creates a new Gemini Provider instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client:    client,
		model:     client.GenerativeModel(modelName),
		modelName: modelName,
	}, nil
}

// Complete sends the image together with both instructions and returns the concatenated text parts
func (g *Gemini) Complete(ctx context.Context, prompt Prompt) (string, error) {
	mimeType, data, err := DecodeDataURI(prompt.Image.URL)
	if err != nil {
		return "", fmt.Errorf("decoding image payload: %w", err)
	}

	// genai.ImageData expects just the format suffix (e.g. "png"), not the full MIME type
	format := strings.TrimPrefix(mimeType, "image/")
	if format == "" {
		format = "jpeg"
	}

	parts := []genai.Part{
		genai.Text(prompt.System),
		genai.ImageData(format, data),
		genai.Text(prompt.User),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", geminiError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	if text.Len() == 0 {
		return "", ErrEmptyResponse
	}

	return text.String(), nil
}

// geminiError turns a Google API status into a *StatusError so quota and rate limits are recognised
func geminiError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return &StatusError{StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	return fmt.Errorf("generating content: %w", err)
}

// Name identifies the Gemini engine
func (g *Gemini) Name() string {
	return "gemini:" + g.modelName
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
