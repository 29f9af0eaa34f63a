package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go-product-similarity/internal/logger"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// maxResponseSize caps how much of a model reply is read
const maxResponseSize = 10 * 1024 * 1024

// CompatibleClient calls OpenAI-compatible chat completion endpoints
// such as DashScope compatible mode over plain HTTP
type CompatibleClient struct {
	httpClient *http.Client
}

// NewCompatibleClient uses httpClient, or a default client when nil.
// Deadlines come from ModelCall.Timeout.
func NewCompatibleClient(httpClient *http.Client) *CompatibleClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &CompatibleClient{httpClient: httpClient}
}

type compatibleRequest struct {
	Model string `json:"model"`
	Payload
}

func (c *CompatibleClient) CallModel(ctx context.Context, call ModelCall) (RawModelResponse, error) {
	if strings.TrimSpace(call.Endpoint) == "" || strings.TrimSpace(call.Credential) == "" {
		return nil, ErrNotConfigured
	}

	ctx, cancel := withTimeout(ctx, call.Timeout)
	defer cancel()

	body, err := json.Marshal(compatibleRequest{Model: call.Model, Payload: call.Payload})
	if err != nil {
		return nil, eris.Wrap(err, "failed to encode model request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, call.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotConfigured, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+call.Credential)
	req.Header.Set("X-DashScope-SSE", "disable")

	logger.WithFields(logrus.Fields{
		"endpoint":     call.Endpoint,
		"model":        call.Model,
		"request_size": len(body),
	}).Debug("Sending model request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "model request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, eris.Wrap(err, "failed to read model response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(data, resp.Status),
		}
	}

	return RawModelResponse(data), nil
}

// upstreamMessage pulls a readable message out of an error body
func upstreamMessage(body []byte, status string) string {
	var envelope struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		switch e := envelope.Error.(type) {
		case map[string]any:
			if msg, ok := e["message"].(string); ok && msg != "" {
				return msg
			}
		case string:
			if e != "" {
				return e
			}
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return status
	}
	if len(text) > 512 {
		text = strings.ToValidUTF8(text[:512], "")
	}
	return text
}
