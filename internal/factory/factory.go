package factory

import (
	"fmt"
	"net/http"

	"go-product-similarity/internal/config"
	"go-product-similarity/internal/provider"
	"go-product-similarity/internal/storage"
)

// ProviderFactory creates model callers
type ProviderFactory interface {
	CreateCaller(providerName string) (provider.ModelCaller, error)
}

// StorageFactory creates image sources
type StorageFactory interface {
	CreateFetcher() storage.ImageFetcher
	// CreateBlobStorage returns nil, nil when Azure is not configured
	CreateBlobStorage() (storage.BlobStorage, error)
}

// providerFactory implements ProviderFactory
type providerFactory struct {
	httpClient *http.Client
}

// NewProviderFactory creates a new provider factory. Per-call deadlines come
// from ModelCall.Timeout, so the shared client carries none.
func NewProviderFactory(httpClient *http.Client) ProviderFactory {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &providerFactory{httpClient: httpClient}
}

// CreateCaller creates a caller based on the configured provider
func (f *providerFactory) CreateCaller(providerName string) (provider.ModelCaller, error) {
	switch providerName {
	case config.ProviderCompatible:
		return provider.NewCompatibleClient(f.httpClient), nil
	case config.ProviderOpenAI:
		return provider.NewOpenAIClient(f.httpClient), nil
	case config.ProviderGemini:
		return provider.NewGeminiClient(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerName)
	}
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg      config.StorageConfig
	maxBytes int64
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg config.StorageConfig, maxBytes int64) StorageFactory {
	return &storageFactory{cfg: cfg, maxBytes: maxBytes}
}

func (f *storageFactory) CreateFetcher() storage.ImageFetcher {
	return storage.NewHTTPImageFetcher(f.maxBytes)
}

func (f *storageFactory) CreateBlobStorage() (storage.BlobStorage, error) {
	if !f.cfg.AzureEnabled() {
		return nil, nil
	}
	blobs, err := storage.NewAzureStorage(f.cfg.AzureAccountName, f.cfg.AzureAccountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure storage: %w", err)
	}
	return blobs, nil
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	ProviderFactory ProviderFactory
	StorageFactory  StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		ProviderFactory: NewProviderFactory(nil),
		StorageFactory:  NewStorageFactory(cfg.Storage, cfg.MaxRequestBodySize),
	}
}
