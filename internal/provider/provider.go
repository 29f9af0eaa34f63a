package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotConfigured is returned when a call is made without endpoint or credential
	ErrNotConfigured = errors.New("model endpoint is not configured")
	// ErrImageNotInline is returned by providers that only accept data URIs
	ErrImageNotInline = errors.New("image must be supplied as a data URI")
)

// RawModelResponse is the unparsed body returned by the model endpoint
type RawModelResponse []byte

// ImageURL points at an image by URL or data URI
type ImageURL struct {
	URL string `json:"url"`
}

// ContentPart is one element of a multimodal message
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

const (
	PartTypeText     = "text"
	PartTypeImageURL = "image_url"
)

// Message is a chat message with multimodal content
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// Payload is the provider-neutral request body
type Payload struct {
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float32   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

// ModelCall carries everything needed for a single model invocation
type ModelCall struct {
	Endpoint   string
	Credential string
	Model      string
	Payload    Payload
	Timeout    time.Duration
}

// ModelCaller sends one multimodal request and returns the raw response.
// Non-2xx replies are reported as *StatusError.
type ModelCaller interface {
	CallModel(ctx context.Context, call ModelCall) (RawModelResponse, error)
}

// StatusError means the endpoint answered with a non-2xx status
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("model endpoint returned status %d: %s", e.StatusCode, e.Message)
}

// withTimeout bounds ctx by timeout when it is positive
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
