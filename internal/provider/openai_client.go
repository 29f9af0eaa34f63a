package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sashabaranov/go-openai"
)

// OpenAIClient calls chat completions through the go-openai SDK.
// The endpoint may be a full .../chat/completions URL or a base URL.
type OpenAIClient struct {
	httpClient *http.Client
}

func NewOpenAIClient(httpClient *http.Client) *OpenAIClient {
	return &OpenAIClient{httpClient: httpClient}
}

func (c *OpenAIClient) CallModel(ctx context.Context, call ModelCall) (RawModelResponse, error) {
	if strings.TrimSpace(call.Endpoint) == "" || strings.TrimSpace(call.Credential) == "" {
		return nil, ErrNotConfigured
	}

	ctx, cancel := withTimeout(ctx, call.Timeout)
	defer cancel()

	cfg := openai.DefaultConfig(call.Credential)
	cfg.BaseURL = baseURL(call.Endpoint)
	if c.httpClient != nil {
		cfg.HTTPClient = c.httpClient
	}
	client := openai.NewClientWithConfig(cfg)

	req := openai.ChatCompletionRequest{
		Model:       call.Model,
		Messages:    toOpenAIMessages(call.Payload.Messages),
		Temperature: call.Payload.Temperature,
		Stream:      false,
	}
	// Reasoning models reject max_tokens
	if isReasoningModel(call.Model) {
		req.MaxCompletionTokens = call.Payload.MaxTokens
	} else {
		req.MaxTokens = call.Payload.MaxTokens
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
			return nil, &StatusError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
			return nil, &StatusError{StatusCode: reqErr.HTTPStatusCode, Message: upstreamMessage(reqErr.Body, reqErr.HTTPStatus)}
		}
		return nil, eris.Wrap(err, "failed to create chat completion")
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, eris.Wrap(err, "failed to encode chat completion")
	}
	return RawModelResponse(raw), nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{Role: m.Role}
		for _, part := range m.Content {
			switch part.Type {
			case PartTypeText:
				msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: part.Text,
				})
			case PartTypeImageURL:
				if part.ImageURL == nil {
					continue
				}
				msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    part.ImageURL.URL,
						Detail: openai.ImageURLDetailAuto,
					},
				})
			}
		}
		out = append(out, msg)
	}
	return out
}

// baseURL strips the chat completions path go-openai appends itself
func baseURL(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	return strings.TrimSuffix(endpoint, "/chat/completions")
}

func isReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}
