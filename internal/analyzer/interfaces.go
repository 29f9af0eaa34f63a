package analyzer

// ExplicitScorer finds a score the model stated directly
type ExplicitScorer interface {
	Extract(narrative string) (int, bool)
}

// FallbackScorer infers a score from qualitative wording
type FallbackScorer interface {
	Classify(narrative string) (int, bool)
}

// Normalizer turns a raw model response into a narrative
type Normalizer interface {
	Normalize(raw []byte) Envelope
}
