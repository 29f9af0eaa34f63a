package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-product-similarity/internal/config"
	apperrors "go-product-similarity/internal/errors"
	"go-product-similarity/pkg/models"

	"github.com/gin-gonic/gin"
)

func baseConfig() *config.Config {
	return &config.Config{
		Host:               "127.0.0.1",
		Port:               "3000",
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1 << 20,
		CORSAllowedOrigins: []string{"*"},
		LogLevel:           "error",
		LogFormat:          "json",
		AI: config.AIConfig{
			Provider:    config.ProviderCompatible,
			Endpoint:    config.DefaultEndpoint,
			Model:       config.DefaultModel,
			Timeout:     time.Second,
			MaxTokens:   2000,
			Temperature: 0.3,
		},
	}
}

func TestNewContainer_ModeSelection(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		mutate   func(*config.Config)
		wantMode models.AnalysisMode
	}{
		{"no credential", func(*config.Config) {}, models.ModeMock},
		{"configured", func(c *config.Config) { c.AI.APIKey = "sk-test" }, models.ModeReal},
		{"forced mock", func(c *config.Config) { c.AI.APIKey = "sk-test"; c.AI.ForceMock = true }, models.ModeMock},
		{"gemini", func(c *config.Config) { c.AI.APIKey = "key"; c.AI.Provider = config.ProviderGemini }, models.ModeReal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(cfg)

			c, err := NewContainer(cfg)
			if err != nil {
				t.Fatalf("NewContainer failed: %v", err)
			}
			defer c.Shutdown()

			if got := c.Service().Mode(); got != tt.wantMode {
				t.Errorf("Mode = %s, want %s", got, tt.wantMode)
			}
		})
	}
}

func TestNewContainer_MockEndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, err := NewContainer(baseConfig())
	if err != nil {
		t.Fatalf("NewContainer failed: %v", err)
	}
	defer c.Shutdown()

	result, err := c.Service().Analyze(context.Background(), models.AnalysisRequest{
		ImageA: models.ImageInput{Name: "a.png", Data: "data:image/png;base64,AAAA"},
		ImageB: models.ImageInput{Name: "b.png", Data: "https://cdn.example.com/b.png"},
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !result.IsMock || result.Metadata.AnalysisMode != models.ModeMock {
		t.Errorf("Expected mock result, got %+v", result.Metadata)
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Health status = %d", rec.Code)
	}
}

func TestNewContainer_AllowedHosts(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := baseConfig()
	cfg.Storage.AllowedHosts = []string{"cdn.example.com"}
	c, err := NewContainer(cfg)
	if err != nil {
		t.Fatalf("NewContainer failed: %v", err)
	}
	defer c.Shutdown()

	req := models.AnalysisRequest{
		ImageA: models.ImageInput{Data: "https://cdn.example.com/a.png"},
		ImageB: models.ImageInput{Data: "http://169.254.169.254/latest/meta-data"},
	}
	if _, err := c.Service().Analyze(context.Background(), req); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected unlisted host to be rejected, got %v", err)
	}

	req.ImageB.Data = "https://cdn.example.com/b.png"
	if _, err := c.Service().Analyze(context.Background(), req); err != nil {
		t.Errorf("Expected listed hosts to pass, got %v", err)
	}
}
