package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "go-product-similarity/internal/errors"
	"go-product-similarity/internal/observer"
	"go-product-similarity/internal/repository"
	"go-product-similarity/internal/strategy"
	"go-product-similarity/pkg/models"

	"golang.org/x/sync/errgroup"
)

const (
	defaultImageAName = "imageA"
	defaultImageBName = "imageB"
)

// SimilarityService compares two product images
type SimilarityService interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error)
	Mode() models.AnalysisMode
}

type requestIDKey struct{}

// WithRequestID attaches a request ID that is carried into analysis events
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request ID set by WithRequestID, if any
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type similarityService struct {
	imageRepo repository.ImageRepository
	analysis  *strategy.AnalysisContext
	events    observer.Subject
	now       func() time.Time
}

// Option customizes the service
type Option func(*similarityService)

// WithClock replaces the wall clock used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *similarityService) {
		s.now = now
	}
}

// NewSimilarityService creates a new similarity service. events may be nil.
func NewSimilarityService(
	imageRepository repository.ImageRepository,
	analysisContext *strategy.AnalysisContext,
	events observer.Subject,
	opts ...Option,
) SimilarityService {
	s := &similarityService{
		imageRepo: imageRepository,
		analysis:  analysisContext,
		events:    events,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *similarityService) Mode() models.AnalysisMode {
	return s.analysis.Mode()
}

// Analyze validates the request, resolves both images and runs the selected strategy
func (s *similarityService) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	start := s.now()
	mode := string(s.analysis.Mode())
	requestID := RequestIDFrom(ctx)

	s.publish(ctx, observer.AnalysisEvent{
		EventType: observer.AnalysisStarted,
		Timestamp: start,
		RequestID: requestID,
		Mode:      mode,
		Metadata: map[string]interface{}{
			"strategy": s.analysis.GetCurrentStrategy(),
		},
	})

	result, err := s.analyze(ctx, req, start)
	if err != nil {
		appErr, ok := apperrors.AsAppError(err)
		if !ok {
			appErr = apperrors.NewInternalError("analysis failed", err)
		}
		s.publish(ctx, observer.AnalysisEvent{
			EventType:      observer.AnalysisFailed,
			Timestamp:      s.now(),
			RequestID:      requestID,
			Mode:           mode,
			ProcessingTime: s.now().Sub(start),
			ErrorType:      string(appErr.Type),
			ErrorMessage:   appErr.Error(),
		})
		return nil, appErr
	}

	s.publish(ctx, observer.AnalysisEvent{
		EventType:      observer.AnalysisCompleted,
		Timestamp:      s.now(),
		RequestID:      requestID,
		Mode:           mode,
		ProcessingTime: s.now().Sub(start),
		Success:        true,
		Score:          result.SimilarityScore,
		ScoreSource:    string(result.Metadata.ScoreSource),
		Metadata: map[string]interface{}{
			"model":       result.ModelUsed,
			"tokens_used": result.TokensUsed,
		},
	})
	return result, nil
}

func (s *similarityService) analyze(ctx context.Context, req models.AnalysisRequest, start time.Time) (*models.AnalysisResult, error) {
	req = applyDefaults(req, start)
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	resolved, err := s.resolveImages(ctx, req)
	if err != nil {
		return nil, err
	}

	return s.analysis.ExecuteAnalysis(ctx, strategy.PreparedRequest{
		Request:      resolved,
		AnalyzedAt:   start,
		PromptLength: utf8.RuneCountInString(resolved.Prompt),
	})
}

// resolveImages resolves both image references concurrently
func (s *similarityService) resolveImages(ctx context.Context, req models.AnalysisRequest) (models.AnalysisRequest, error) {
	g, gctx := errgroup.WithContext(ctx)

	resolve := func(label string, img *models.ImageInput) func() error {
		return func() error {
			data, err := s.imageRepo.ResolveImage(gctx, img.Data)
			if err != nil {
				s.publish(ctx, observer.AnalysisEvent{
					EventType:    observer.ImageResolveFailed,
					Timestamp:    s.now(),
					RequestID:    RequestIDFrom(ctx),
					ErrorMessage: err.Error(),
					Metadata:     map[string]interface{}{"image": label, "name": img.Name},
				})
				return mapRepositoryError(label, err)
			}
			img.Data = data
			return nil
		}
	}

	g.Go(resolve(defaultImageAName, &req.ImageA))
	g.Go(resolve(defaultImageBName, &req.ImageB))
	if err := g.Wait(); err != nil {
		return req, err
	}

	s.publish(ctx, observer.AnalysisEvent{
		EventType: observer.ImagesResolved,
		Timestamp: s.now(),
		RequestID: RequestIDFrom(ctx),
		Success:   true,
	})
	return req, nil
}

func (s *similarityService) publish(ctx context.Context, event observer.AnalysisEvent) {
	if s.events == nil {
		return
	}
	s.events.NotifyObservers(ctx, event)
}

func applyDefaults(req models.AnalysisRequest, now time.Time) models.AnalysisRequest {
	if strings.TrimSpace(req.ImageA.Name) == "" {
		req.ImageA.Name = defaultImageAName
	}
	if strings.TrimSpace(req.ImageB.Name) == "" {
		req.ImageB.Name = defaultImageBName
	}
	if strings.TrimSpace(req.Prompt) == "" {
		req.Prompt = strategy.DefaultPrompt
	}
	if strings.TrimSpace(req.Timestamp) == "" {
		req.Timestamp = now.UTC().Format(time.RFC3339Nano)
	}
	return req
}

// validateRequest rejects missing or malformed image references before anything is fetched
func (s *similarityService) validateRequest(req models.AnalysisRequest) error {
	if strings.TrimSpace(req.ImageA.Data) == "" || strings.TrimSpace(req.ImageB.Data) == "" {
		return apperrors.NewValidationError("both imageA and imageB data are required", nil)
	}
	if err := s.imageRepo.ValidateImageReference(req.ImageA.Data); err != nil {
		return mapRepositoryError(defaultImageAName, err)
	}
	if err := s.imageRepo.ValidateImageReference(req.ImageB.Data); err != nil {
		return mapRepositoryError(defaultImageBName, err)
	}
	return nil
}

func mapRepositoryError(label string, err error) error {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return apperrors.NewValidationError(fmt.Sprintf("%s: %s", label, appErr.Message), appErr)
	}
	switch {
	case errors.Is(err, repository.ErrBlobStorageUnavailable):
		return apperrors.NewConfigurationError(fmt.Sprintf("%s: azblob references require Azure storage credentials", label), err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewUpstreamTimeoutError(fmt.Sprintf("%s: image resolution timed out", label), err)
	case errors.Is(err, repository.ErrImageUnavailable):
		return apperrors.NewValidationError(fmt.Sprintf("%s: image could not be downloaded", label), err)
	default:
		return apperrors.NewInternalError(fmt.Sprintf("%s: image resolution failed", label), err)
	}
}
