package analyzer

import (
	"strings"
	"time"

	"go-product-similarity/pkg/models"
)

// DefaultScore is used when neither an explicit nor a semantic score is found
const DefaultScore = 50

// Interpretation is a score together with how it was obtained
type Interpretation struct {
	Score  int
	Source models.ScoreSource
}

// ResultMeta describes the call a narrative belongs to
type ResultMeta struct {
	Model        string
	TokensUsed   int
	Mode         models.AnalysisMode
	AnalyzedAt   time.Time
	ImageAName   string
	ImageBName   string
	PromptLength int
}

// ResultBuilder combines the scorers into one AnalysisResult
type ResultBuilder struct {
	normalizer Normalizer
	explicit   ExplicitScorer
	fallback   FallbackScorer
}

func NewResultBuilder(normalizer Normalizer, explicit ExplicitScorer, fallback FallbackScorer) *ResultBuilder {
	return &ResultBuilder{
		normalizer: normalizer,
		explicit:   explicit,
		fallback:   fallback,
	}
}

// NewDefaultResultBuilder wires the standard normalizer and scorers
func NewDefaultResultBuilder() *ResultBuilder {
	return NewResultBuilder(NewResponseNormalizer(), NewScoreExtractor(), NewSemanticClassifier())
}

// Interpret applies explicit > semantic > default precedence
func (b *ResultBuilder) Interpret(narrative string) Interpretation {
	if score, ok := b.explicit.Extract(narrative); ok {
		return Interpretation{Score: score, Source: models.ScoreExplicit}
	}
	if score, ok := b.fallback.Classify(narrative); ok {
		return Interpretation{Score: score, Source: models.ScoreSemantic}
	}
	return Interpretation{Score: DefaultScore, Source: models.ScoreDefault}
}

// FromResponse normalizes raw and builds the result. Usage reported in the
// response takes precedence over meta.TokensUsed.
func (b *ResultBuilder) FromResponse(raw []byte, meta ResultMeta) models.AnalysisResult {
	envelope := b.normalizer.Normalize(raw)
	if envelope.TokensUsed > 0 {
		meta.TokensUsed = envelope.TokensUsed
	}
	return b.Build(envelope.Narrative, meta)
}

// Build never fails; any narrative, including the placeholder, yields a result
func (b *ResultBuilder) Build(narrative string, meta ResultMeta) models.AnalysisResult {
	text := strings.TrimSpace(narrative)
	interpretation := b.Interpret(text)

	tokens := meta.TokensUsed
	if tokens < 0 {
		tokens = 0
	}

	return models.AnalysisResult{
		SimilarityScore: interpretation.Score,
		AnalysisText:    text,
		ModelUsed:       meta.Model,
		TokensUsed:      tokens,
		IsMock:          meta.Mode == models.ModeMock,
		Metadata: models.AnalysisMetadata{
			AnalyzedAt:   meta.AnalyzedAt.UTC().Format(time.RFC3339Nano),
			ImageAName:   meta.ImageAName,
			ImageBName:   meta.ImageBName,
			PromptLength: meta.PromptLength,
			AnalysisMode: meta.Mode,
			ScoreSource:  interpretation.Source,
		},
	}
}
