package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when the provider answered successfully but produced no content.
var ErrEmptyResponse = errors.New("provider returned no content")

// Prompt is the instruction payload sent to a provider for a single document
type Prompt struct {
	System string
	User   string
	Image  Image
}

// Provider defines the interface for vision inference backends
type Provider interface {
	// Complete sends the prompt with its embedded image and returns the raw text completion
	Complete(ctx context.Context, prompt Prompt) (string, error)
	// Name identifies the engine in result metadata
	Name() string
	// Close releases any resources held by the provider
	Close() error
}

// StatusError reports a non-success HTTP status returned by the provider
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}
