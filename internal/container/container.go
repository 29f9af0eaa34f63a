package container

import (
	"fmt"
	"net/http"

	"go-product-similarity/internal/analyzer"
	"go-product-similarity/internal/config"
	"go-product-similarity/internal/factory"
	"go-product-similarity/internal/logger"
	"go-product-similarity/internal/observer"
	"go-product-similarity/internal/repository"
	"go-product-similarity/internal/service"
	"go-product-similarity/internal/strategy"
	"go-product-similarity/internal/transport"
	"go-product-similarity/pkg/validation"

	"github.com/sirupsen/logrus"
)

// Container holds all application dependencies
type Container struct {
	imageRepository   repository.ImageRepository
	analysisContext   *strategy.AnalysisContext
	events            *observer.EventPublisher
	metrics           *observer.MetricsObserver
	similarityService service.SimilarityService
	handler           http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	logger.Configure(cfg.LogLevel, cfg.LogFormat)

	components := factory.NewComponentFactory(cfg)

	blobs, err := components.StorageFactory.CreateBlobStorage()
	if err != nil {
		return nil, err
	}
	// Gemini takes image bytes only, so remote URLs are always inlined for it
	inline := cfg.Storage.InlineRemoteImages || cfg.AI.Provider == config.ProviderGemini
	imageRepository := repository.NewImageSourceRepository(
		validation.NewImageValidatorWithOptions(cfg.Storage.AllowedSchemes, cfg.Storage.AllowedHosts),
		components.StorageFactory.CreateFetcher(),
		blobs,
		inline,
	)

	analysisStrategy, err := newStrategy(cfg, components.ProviderFactory)
	if err != nil {
		return nil, err
	}
	analysisContext := strategy.NewAnalysisContext(analysisStrategy)

	events := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	similarityService := service.NewSimilarityService(imageRepository, analysisContext, events)
	handler := transport.NewHandler(similarityService, metrics, cfg)

	logger.WithFields(logrus.Fields{
		"provider":      cfg.AI.Provider,
		"model":         cfg.AI.Model,
		"mode":          analysisContext.Mode(),
		"strategy":      analysisContext.GetCurrentStrategy(),
		"ai_configured": cfg.AI.IsConfigured(),
		"inline_images": inline,
		"azure_enabled": cfg.Storage.AzureEnabled(),
		"allowed_hosts": cfg.Storage.AllowedHosts,
	}).Info("Analysis pipeline configured")

	return &Container{
		imageRepository:   imageRepository,
		analysisContext:   analysisContext,
		events:            events,
		metrics:           metrics,
		similarityService: similarityService,
		handler:           handler,
	}, nil
}

// newStrategy selects the model strategy when the endpoint is configured, else mock
func newStrategy(cfg *config.Config, providers factory.ProviderFactory) (strategy.AnalysisStrategy, error) {
	builder := analyzer.NewDefaultResultBuilder()

	if !cfg.AI.UseModel() {
		if !cfg.AI.IsConfigured() {
			logger.Warn("AI model is not configured, mock analysis results will be returned")
		}
		return strategy.NewMockStrategy(analyzer.NewMockGenerator(nil), builder), nil
	}

	caller, err := providers.CreateCaller(cfg.AI.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create model caller: %w", err)
	}
	return strategy.NewModelStrategy(caller, strategy.ModelSettings{
		Endpoint:   cfg.AI.Endpoint,
		Credential: cfg.AI.APIKey,
		Model:      cfg.AI.Model,
		Timeout:    cfg.AI.Timeout,
		Options: strategy.PayloadOptions{
			MaxTokens:   cfg.AI.MaxTokens,
			Temperature: cfg.AI.Temperature,
		},
	}, builder), nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Service returns the similarity service
func (c *Container) Service() service.SimilarityService {
	return c.similarityService
}

// Shutdown waits for pending event notifications
func (c *Container) Shutdown() {
	c.events.Wait()
}
