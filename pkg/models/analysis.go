package models

// ImageInput is one side of a comparison.
// Data carries either a data URI, an http(s) URL or an azblob:// reference.
type ImageInput struct {
	Name        string `json:"name"`
	Data        string `json:"data"`
	Description string `json:"description,omitempty"`
}

// AnalysisRequest is the inbound similarity request
type AnalysisRequest struct {
	ImageA    ImageInput `json:"imageA"`
	ImageB    ImageInput `json:"imageB"`
	Prompt    string     `json:"prompt"`
	Timestamp string     `json:"timestamp,omitempty"`
}

// AnalysisMode tells whether a result came from the model or the mock generator
type AnalysisMode string

const (
	ModeReal AnalysisMode = "real"
	ModeMock AnalysisMode = "mock"
)

// ScoreSource records how the similarity score was derived
type ScoreSource string

const (
	// ScoreExplicit means the model stated the score in its narrative
	ScoreExplicit ScoreSource = "explicit"
	// ScoreSemantic means the score was inferred from qualitative wording
	ScoreSemantic ScoreSource = "semantic"
	// ScoreDefault means nothing usable was found and the neutral default applied
	ScoreDefault ScoreSource = "default"
)

// AnalysisResult is the outcome of one comparison.
// It is built once per call and never mutated afterwards.
type AnalysisResult struct {
	SimilarityScore int              `json:"similarity_score"`
	AnalysisText    string           `json:"analysis_text"`
	ModelUsed       string           `json:"model_used"`
	TokensUsed      int              `json:"tokens_used"`
	IsMock          bool             `json:"is_mock"`
	Metadata        AnalysisMetadata `json:"metadata"`
}

// AnalysisMetadata describes the circumstances of an analysis
type AnalysisMetadata struct {
	AnalyzedAt   string       `json:"analyzed_at"`
	ImageAName   string       `json:"image_a_name"`
	ImageBName   string       `json:"image_b_name"`
	PromptLength int          `json:"prompt_length"`
	AnalysisMode AnalysisMode `json:"analysis_mode"`
	ScoreSource  ScoreSource  `json:"score_source"`
}
