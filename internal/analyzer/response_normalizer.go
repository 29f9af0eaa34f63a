package analyzer

import (
	"encoding/json"
	"strings"

	"go-product-similarity/internal/logger"

	"github.com/sirupsen/logrus"
)

// UnparsedNarrative is returned when no known envelope shape yields text
const UnparsedNarrative = "收到了AI分析结果，但格式解析存在问题。"

// EnvelopeKind identifies which response shape produced the narrative
type EnvelopeKind int

const (
	EnvelopeUnrecognized EnvelopeKind = iota
	// EnvelopeChatChoices is choices[0].message.content or choices[0].text
	EnvelopeChatChoices
	// EnvelopeOutput is output.text or output.choices[0].message.content
	EnvelopeOutput
	// EnvelopeContent is a top-level content field
	EnvelopeContent
	// EnvelopeText is a top-level text field
	EnvelopeText
)

func (k EnvelopeKind) String() string {
	switch k {
	case EnvelopeChatChoices:
		return "chat_choices"
	case EnvelopeOutput:
		return "output"
	case EnvelopeContent:
		return "content"
	case EnvelopeText:
		return "text"
	default:
		return "unrecognized"
	}
}

// Envelope is the normalized view of a raw model response
type Envelope struct {
	Kind       EnvelopeKind
	Narrative  string
	TokensUsed int
}

type envelopeProbe struct {
	kind  EnvelopeKind
	probe func(root map[string]any) string
}

// ResponseNormalizer maps arbitrary response bodies to a narrative.
// Normalize never fails.
type ResponseNormalizer struct {
	probes []envelopeProbe
}

func NewResponseNormalizer() *ResponseNormalizer {
	return &ResponseNormalizer{
		probes: []envelopeProbe{
			{EnvelopeChatChoices, probeChoices},
			{EnvelopeOutput, probeOutput},
			{EnvelopeContent, func(root map[string]any) string { return textOf(root["content"]) }},
			{EnvelopeText, func(root map[string]any) string { return textOf(root["text"]) }},
		},
	}
}

// Normalize classifies raw into the first matching envelope
func (n *ResponseNormalizer) Normalize(raw []byte) Envelope {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		logger.WithFields(logrus.Fields{
			"error":     err.Error(),
			"body_size": len(raw),
		}).Warn("Model response is not valid JSON")
		return Envelope{Kind: EnvelopeUnrecognized, Narrative: UnparsedNarrative}
	}

	root, ok := decoded.(map[string]any)
	if !ok {
		logger.WithField("body_size", len(raw)).Warn("Model response is not a JSON object")
		return Envelope{Kind: EnvelopeUnrecognized, Narrative: UnparsedNarrative}
	}

	tokens := tokensOf(root["usage"])
	for _, p := range n.probes {
		if text := p.probe(root); text != "" {
			return Envelope{Kind: p.kind, Narrative: text, TokensUsed: tokens}
		}
	}

	logger.WithFields(logrus.Fields{
		"keys":      keysOf(root),
		"body_size": len(raw),
	}).Warn("Model response shape not recognized")
	return Envelope{Kind: EnvelopeUnrecognized, Narrative: UnparsedNarrative, TokensUsed: tokens}
}

func probeChoices(root map[string]any) string {
	choices, ok := root["choices"].([]any)
	if !ok || len(choices) == 0 {
		return ""
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return ""
	}
	if msg, ok := first["message"].(map[string]any); ok {
		if text := textOf(msg["content"]); text != "" {
			return text
		}
	}
	return textOf(first["text"])
}

// probeOutput handles the DashScope native envelope
func probeOutput(root map[string]any) string {
	output, ok := root["output"].(map[string]any)
	if !ok {
		return ""
	}
	if text := textOf(output["text"]); text != "" {
		return text
	}
	return probeChoices(output)
}

// textOf returns trimmed text from a string or an array of text parts
func textOf(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case []any:
		var parts []string
		for _, item := range value {
			switch part := item.(type) {
			case string:
				if s := strings.TrimSpace(part); s != "" {
					parts = append(parts, s)
				}
			case map[string]any:
				if s, ok := part["text"].(string); ok && strings.TrimSpace(s) != "" {
					parts = append(parts, strings.TrimSpace(s))
				}
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

func tokensOf(v any) int {
	usage, ok := v.(map[string]any)
	if !ok {
		return 0
	}
	if total, ok := numberOf(usage["total_tokens"]); ok {
		return total
	}
	for _, pair := range [][2]string{
		{"input_tokens", "output_tokens"},
		{"prompt_tokens", "completion_tokens"},
	} {
		in, okIn := numberOf(usage[pair[0]])
		out, okOut := numberOf(usage[pair[1]])
		if okIn || okOut {
			return in + out
		}
	}
	return 0
}

func numberOf(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f < 0 {
		return 0, false
	}
	return int(f), true
}

func keysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
