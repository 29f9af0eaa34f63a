package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"go-product-similarity/internal/analyzer"
	apperrors "go-product-similarity/internal/errors"
	"go-product-similarity/internal/observer"
	"go-product-similarity/internal/provider"
	"go-product-similarity/internal/repository"
	"go-product-similarity/internal/strategy"
	"go-product-similarity/pkg/models"
)

type fakeRepository struct {
	mu       sync.Mutex
	resolved map[string]string
	errs     map[string]error
	invalid  map[string]error
	seen     []string
}

func (f *fakeRepository) ResolveImage(ctx context.Context, data string) (string, error) {
	f.mu.Lock()
	f.seen = append(f.seen, data)
	f.mu.Unlock()
	if err, ok := f.errs[data]; ok {
		return "", err
	}
	if out, ok := f.resolved[data]; ok {
		return out, nil
	}
	return data, nil
}

func (f *fakeRepository) ValidateImageReference(data string) error {
	return f.invalid[data]
}

type fakeCaller struct {
	raw   string
	err   error
	calls int
	call  provider.ModelCall
}

func (f *fakeCaller) CallModel(ctx context.Context, call provider.ModelCall) (provider.RawModelResponse, error) {
	f.calls++
	f.call = call
	if f.err != nil {
		return nil, f.err
	}
	return provider.RawModelResponse(f.raw), nil
}

var fixedNow = time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC)

func newModelService(caller provider.ModelCaller, repo repository.ImageRepository, events observer.Subject) SimilarityService {
	model := strategy.NewModelStrategy(caller, strategy.ModelSettings{
		Endpoint:   "https://model.example.com/v1/chat/completions",
		Credential: "sk-test",
		Model:      "qwen-vl-max-latest",
		Timeout:    time.Second,
		Options:    strategy.PayloadOptions{MaxTokens: 2000, Temperature: 0.3},
	}, analyzer.NewDefaultResultBuilder())
	return NewSimilarityService(repo, strategy.NewAnalysisContext(model), events,
		WithClock(func() time.Time { return fixedNow }))
}

func sampleRequest() models.AnalysisRequest {
	return models.AnalysisRequest{
		ImageA: models.ImageInput{Name: "shoe-a.jpg", Data: "https://cdn.example.com/a.jpg"},
		ImageB: models.ImageInput{Name: "shoe-b.jpg", Data: "data:image/png;base64,AAAA"},
		Prompt: "比较",
	}
}

func TestAnalyze_RealModeSuccess(t *testing.T) {
	caller := &fakeCaller{raw: `{"choices":[{"message":{"content":"两款鞋子相似度：82%"}}],"usage":{"total_tokens":321}}`}
	repo := &fakeRepository{resolved: map[string]string{
		"https://cdn.example.com/a.jpg": "data:image/jpeg;base64,BBBB",
	}}
	publisher := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	publisher.Subscribe(metrics)

	svc := newModelService(caller, repo, publisher)
	result, err := svc.Analyze(WithRequestID(context.Background(), "req-42"), sampleRequest())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	publisher.Wait()

	if result.SimilarityScore != 82 || result.Metadata.ScoreSource != models.ScoreExplicit {
		t.Errorf("Score = %d (%s), want 82 explicit", result.SimilarityScore, result.Metadata.ScoreSource)
	}
	if result.TokensUsed != 321 || result.IsMock {
		t.Errorf("TokensUsed = %d, IsMock = %v", result.TokensUsed, result.IsMock)
	}
	if result.Metadata.PromptLength != 2 {
		t.Errorf("PromptLength = %d, want 2 runes", result.Metadata.PromptLength)
	}
	if result.Metadata.AnalyzedAt != fixedNow.Format(time.RFC3339Nano) {
		t.Errorf("AnalyzedAt = %s", result.Metadata.AnalyzedAt)
	}

	parts := caller.call.Payload.Messages[0].Content
	if len(parts) != 3 || parts[1].ImageURL.URL != "data:image/jpeg;base64,BBBB" || parts[2].ImageURL.URL != "data:image/png;base64,AAAA" {
		t.Errorf("Resolved images not dispatched in order: %+v", parts)
	}

	got := metrics.GetMetrics()
	if got["total_analyses"] != int64(1) || got["successful_analyses"] != int64(1) {
		t.Errorf("Unexpected metrics: %v", got)
	}
}

func TestAnalyze_AppliesDefaults(t *testing.T) {
	caller := &fakeCaller{raw: `{"choices":[{"message":{"content":"非常相似"}}]}`}
	svc := newModelService(caller, &fakeRepository{}, nil)

	req := sampleRequest()
	req.ImageA.Name = ""
	req.ImageB.Name = "  "
	req.Prompt = ""

	result, err := svc.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Metadata.ImageAName != "imageA" || result.Metadata.ImageBName != "imageB" {
		t.Errorf("Default names not applied: %+v", result.Metadata)
	}
	if !strings.Contains(caller.call.Payload.Messages[0].Content[0].Text, strategy.DefaultPrompt) {
		t.Error("Expected default prompt in instruction text")
	}
	if result.Metadata.ScoreSource != models.ScoreSemantic || result.SimilarityScore != 90 {
		t.Errorf("Score = %d (%s), want 90 semantic", result.SimilarityScore, result.Metadata.ScoreSource)
	}
}

func TestAnalyze_MissingImageData(t *testing.T) {
	caller := &fakeCaller{}
	repo := &fakeRepository{}
	svc := newModelService(caller, repo, nil)

	req := sampleRequest()
	req.ImageB.Data = "   "

	_, err := svc.Analyze(context.Background(), req)
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if caller.calls != 0 || len(repo.seen) != 0 {
		t.Error("Nothing should be resolved or dispatched for an invalid request")
	}
}

func TestAnalyze_UpstreamFailureHasNoResult(t *testing.T) {
	caller := &fakeCaller{err: &provider.StatusError{StatusCode: 500, Message: "Internal Server Error"}}
	publisher := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	publisher.Subscribe(metrics)

	svc := newModelService(caller, &fakeRepository{}, publisher)
	result, err := svc.Analyze(context.Background(), sampleRequest())
	publisher.Wait()

	if result != nil {
		t.Fatalf("Expected no result, got %+v", result)
	}
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Type != apperrors.ErrorTypeUpstreamHTTP || appErr.UpstreamStatus != 500 {
		t.Fatalf("Expected upstream_http with status 500, got %v", err)
	}
	if appErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", appErr.StatusCode)
	}
	failures := metrics.GetMetrics()["failures_by_error_type"].(map[string]int64)
	if failures["upstream_http"] != 1 {
		t.Errorf("failures_by_error_type = %v", failures)
	}
}

func TestAnalyze_ResolveErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType apperrors.ErrorType
	}{
		{"invalid reference", apperrors.NewValidationError("invalid image URL format", nil), apperrors.ErrorTypeValidation},
		{"download failed", fmt.Errorf("%w: %w", repository.ErrImageUnavailable, errors.New("404")), apperrors.ErrorTypeValidation},
		{"download timed out", fmt.Errorf("%w: %w", repository.ErrImageUnavailable, context.DeadlineExceeded), apperrors.ErrorTypeUpstreamUnreachable},
		{"no blob storage", repository.ErrBlobStorageUnavailable, apperrors.ErrorTypeConfiguration},
		{"unexpected", errors.New("disk on fire"), apperrors.ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := &fakeCaller{raw: `{}`}
			repo := &fakeRepository{errs: map[string]error{"https://cdn.example.com/a.jpg": tt.err}}
			svc := newModelService(caller, repo, nil)

			_, err := svc.Analyze(context.Background(), sampleRequest())
			if !apperrors.IsType(err, tt.wantType) {
				t.Errorf("Expected %s, got %v", tt.wantType, err)
			}
			if caller.calls != 0 {
				t.Error("Model must not be called when an image cannot be resolved")
			}
		})
	}
}

func TestAnalyze_ImageDownloadTimeout(t *testing.T) {
	caller := &fakeCaller{raw: `{}`}
	repo := &fakeRepository{errs: map[string]error{
		"https://cdn.example.com/a.jpg": fmt.Errorf("%w: %w", repository.ErrImageUnavailable, context.DeadlineExceeded),
	}}
	svc := newModelService(caller, repo, nil)

	_, err := svc.Analyze(context.Background(), sampleRequest())
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Type != apperrors.ErrorTypeUpstreamUnreachable {
		t.Fatalf("Expected upstream_unreachable, got %v", err)
	}
	if appErr.StatusCode != http.StatusGatewayTimeout {
		t.Errorf("StatusCode = %d, want 504", appErr.StatusCode)
	}
}

func TestAnalyze_InvalidReferenceRejectedBeforeResolving(t *testing.T) {
	caller := &fakeCaller{raw: `{}`}
	repo := &fakeRepository{invalid: map[string]error{
		"data:image/png;base64,AAAA": apperrors.NewValidationError("invalid image data URI", nil),
	}}
	svc := newModelService(caller, repo, nil)

	_, err := svc.Analyze(context.Background(), sampleRequest())
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Type != apperrors.ErrorTypeValidation {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if !strings.HasPrefix(appErr.Message, "imageB:") {
		t.Errorf("Message = %q, want imageB prefix", appErr.Message)
	}
	if len(repo.seen) != 0 || caller.calls != 0 {
		t.Error("Nothing should be resolved or dispatched for an invalid reference")
	}
}

func TestAnalyze_MockMode(t *testing.T) {
	mock := strategy.NewMockStrategy(analyzer.NewMockGenerator(func(int) int { return 3 }), analyzer.NewDefaultResultBuilder())
	svc := NewSimilarityService(&fakeRepository{}, strategy.NewAnalysisContext(mock), nil)

	if svc.Mode() != models.ModeMock {
		t.Fatalf("Mode = %s, want mock", svc.Mode())
	}
	result, err := svc.Analyze(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.IsMock || result.SimilarityScore != 90 || result.ModelUsed != strategy.MockModelName {
		t.Errorf("Unexpected mock result: score=%d mock=%v model=%s", result.SimilarityScore, result.IsMock, result.ModelUsed)
	}
}

func TestRequestIDFrom(t *testing.T) {
	if got := RequestIDFrom(context.Background()); got != "" {
		t.Errorf("Expected empty ID, got %q", got)
	}
	if got := RequestIDFrom(WithRequestID(context.Background(), "abc")); got != "abc" {
		t.Errorf("RequestIDFrom = %q", got)
	}
}
