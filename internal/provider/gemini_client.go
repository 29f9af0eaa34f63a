package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go-product-similarity/internal/logger"
	"go-product-similarity/pkg/validation"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiClient calls Google Gemini through the generative-ai-go SDK.
// Images must be inlined as data URIs. The reply is re-encoded as
// {"text": ..., "usage": {"total_tokens": N}}.
type GeminiClient struct {
	opts []option.ClientOption
}

// NewGeminiClient appends opts after the API key option
func NewGeminiClient(opts ...option.ClientOption) *GeminiClient {
	return &GeminiClient{opts: opts}
}

type geminiReply struct {
	Text  string      `json:"text"`
	Usage geminiUsage `json:"usage"`
}

type geminiUsage struct {
	TotalTokens int `json:"total_tokens"`
}

func (c *GeminiClient) CallModel(ctx context.Context, call ModelCall) (RawModelResponse, error) {
	if strings.TrimSpace(call.Credential) == "" {
		return nil, ErrNotConfigured
	}

	parts, err := toGeminiParts(call.Payload.Messages)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, call.Timeout)
	defer cancel()

	opts := append([]option.ClientOption{option.WithAPIKey(call.Credential)}, c.opts...)
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %w", ErrNotConfigured, err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(strings.TrimSpace(call.Model))
	m.SetTemperature(call.Payload.Temperature)
	if call.Payload.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(call.Payload.MaxTokens))
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			// A blocked reply is still a reply; the text is simply empty
			logger.WithError(err).Warn("Gemini blocked the request")
			return encodeGeminiReply(geminiReply{})
		}
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code != 0 {
			return nil, &StatusError{StatusCode: apiErr.Code, Message: apiErr.Message}
		}
		return nil, eris.Wrap(err, "gemini generate content")
	}

	reply := geminiReply{Text: firstText(resp)}
	if resp.UsageMetadata != nil {
		reply.Usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return encodeGeminiReply(reply)
}

func encodeGeminiReply(reply geminiReply) (RawModelResponse, error) {
	raw, err := json.Marshal(reply)
	if err != nil {
		return nil, eris.Wrap(err, "failed to encode gemini reply")
	}
	return RawModelResponse(raw), nil
}

func toGeminiParts(messages []Message) ([]genai.Part, error) {
	var parts []genai.Part
	for _, m := range messages {
		for _, part := range m.Content {
			switch part.Type {
			case PartTypeText:
				parts = append(parts, genai.Text(part.Text))
			case PartTypeImageURL:
				if part.ImageURL == nil {
					continue
				}
				data, mime, err := validation.DecodeDataURI(part.ImageURL.URL)
				if err != nil {
					return nil, fmt.Errorf("%w: %w", ErrImageNotInline, err)
				}
				parts = append(parts, genai.Blob{MIMEType: mime, Data: data})
			}
		}
	}
	return parts, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		if sb.Len() > 0 {
			break
		}
	}
	return sb.String()
}
