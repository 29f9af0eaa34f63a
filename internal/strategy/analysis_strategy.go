package strategy

import (
	"context"
	"time"

	"go-product-similarity/internal/analyzer"
	"go-product-similarity/internal/provider"
	"go-product-similarity/pkg/models"
)

// PreparedRequest is a request with defaults applied and images resolved
type PreparedRequest struct {
	Request      models.AnalysisRequest
	AnalyzedAt   time.Time
	PromptLength int
}

func (p PreparedRequest) meta(model string, mode models.AnalysisMode) analyzer.ResultMeta {
	return analyzer.ResultMeta{
		Model:        model,
		Mode:         mode,
		AnalyzedAt:   p.AnalyzedAt,
		ImageAName:   p.Request.ImageA.Name,
		ImageBName:   p.Request.ImageB.Name,
		PromptLength: p.PromptLength,
	}
}

// AnalysisStrategy defines the interface for different analysis strategies
type AnalysisStrategy interface {
	Analyze(ctx context.Context, req PreparedRequest) (*models.AnalysisResult, error)
	GetStrategyName() string
	Mode() models.AnalysisMode
}

// ModelSettings identifies the model endpoint and generation options
type ModelSettings struct {
	Endpoint   string
	Credential string
	Model      string
	Timeout    time.Duration
	Options    PayloadOptions
}

// ModelStrategy sends the request to a multimodal model
type ModelStrategy struct {
	caller   provider.ModelCaller
	settings ModelSettings
	builder  *analyzer.ResultBuilder
}

// NewModelStrategy creates a new model-backed strategy
func NewModelStrategy(caller provider.ModelCaller, settings ModelSettings, builder *analyzer.ResultBuilder) AnalysisStrategy {
	return &ModelStrategy{
		caller:   caller,
		settings: settings,
		builder:  builder,
	}
}

// Analyze calls the model once; failures are classified, never retried
func (s *ModelStrategy) Analyze(ctx context.Context, req PreparedRequest) (*models.AnalysisResult, error) {
	raw, err := s.caller.CallModel(ctx, provider.ModelCall{
		Endpoint:   s.settings.Endpoint,
		Credential: s.settings.Credential,
		Model:      s.settings.Model,
		Payload:    BuildPayload(req.Request, s.settings.Options),
		Timeout:    s.settings.Timeout,
	})
	if err != nil {
		return nil, ClassifyError(err)
	}

	result := s.builder.FromResponse(raw, req.meta(s.settings.Model, models.ModeReal))
	return &result, nil
}

// GetStrategyName returns the strategy name
func (s *ModelStrategy) GetStrategyName() string {
	return "model_analysis"
}

func (s *ModelStrategy) Mode() models.AnalysisMode {
	return models.ModeReal
}

// MockModelName is reported as model_used for mock results
const MockModelName = "mock"

// MockStrategy produces synthetic results without calling a model
type MockStrategy struct {
	generator *analyzer.MockGenerator
	builder   *analyzer.ResultBuilder
}

// NewMockStrategy creates a new mock strategy
func NewMockStrategy(generator *analyzer.MockGenerator, builder *analyzer.ResultBuilder) AnalysisStrategy {
	return &MockStrategy{
		generator: generator,
		builder:   builder,
	}
}

// Analyze renders a mock narrative and scores it like a model reply
func (s *MockStrategy) Analyze(ctx context.Context, req PreparedRequest) (*models.AnalysisResult, error) {
	mock := s.generator.Generate(req.Request.ImageA, req.Request.ImageB)
	result := s.builder.Build(mock.Narrative, req.meta(MockModelName, models.ModeMock))
	return &result, nil
}

// GetStrategyName returns the strategy name
func (s *MockStrategy) GetStrategyName() string {
	return "mock_analysis"
}

func (s *MockStrategy) Mode() models.AnalysisMode {
	return models.ModeMock
}

// AnalysisContext holds the strategy chosen at startup
type AnalysisContext struct {
	strategy AnalysisStrategy
}

// NewAnalysisContext creates a new analysis context
func NewAnalysisContext(strategy AnalysisStrategy) *AnalysisContext {
	return &AnalysisContext{
		strategy: strategy,
	}
}

// ExecuteAnalysis performs analysis using the current strategy
func (c *AnalysisContext) ExecuteAnalysis(ctx context.Context, req PreparedRequest) (*models.AnalysisResult, error) {
	return c.strategy.Analyze(ctx, req)
}

// GetCurrentStrategy returns the current strategy name
func (c *AnalysisContext) GetCurrentStrategy() string {
	return c.strategy.GetStrategyName()
}

// Mode reports whether the current strategy is real or mock
func (c *AnalysisContext) Mode() models.AnalysisMode {
	return c.strategy.Mode()
}
