package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultEndpoint is the DashScope OpenAI-compatible chat completions URL
	DefaultEndpoint = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	DefaultModel    = "qwen-vl-max-latest"

	DefaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"
	DefaultOpenAIModel    = "gpt-4o"
	// The Gemini SDK picks its own host; the endpoint only marks the provider as configured
	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel    = "gemini-1.5-flash"

	ProviderCompatible = "compatible"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	CORSAllowedOrigins []string
	LogLevel           string
	LogFormat          string

	AI      AIConfig
	Storage StorageConfig
}

// AIConfig holds the model endpoint settings. It is read-only after LoadFromEnv.
type AIConfig struct {
	Provider    string
	Endpoint    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float32
	// ForceMock disables the model even when it is configured
	ForceMock bool
}

// StorageConfig controls how image references are resolved before dispatch
type StorageConfig struct {
	InlineRemoteImages bool
	// AllowedSchemes and AllowedHosts restrict http(s) image URLs; empty hosts allows any
	AllowedSchemes     []string
	AllowedHosts       []string
	AzureAccountName   string
	AzureAccountKey    string
}

// settingsFile mirrors the optional local settings file (JSON or YAML)
type settingsFile struct {
	APIURL   string `yaml:"apiUrl"`
	APIKey   string `yaml:"apiKey"`
	Model    string `yaml:"model"`
	Provider string `yaml:"provider"`
}

// IsConfigured reports whether both endpoint and credential are present
func (c AIConfig) IsConfigured() bool {
	return strings.TrimSpace(c.Endpoint) != "" && strings.TrimSpace(c.APIKey) != ""
}

// UseModel reports whether analyses should go to the real model
func (c AIConfig) UseModel() bool {
	return c.IsConfigured() && !c.ForceMock
}

// AzureEnabled reports whether azblob:// references can be resolved
func (c StorageConfig) AzureEnabled() bool {
	return c.AzureAccountName != "" && c.AzureAccountKey != ""
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

func LoadFromEnv() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "3000"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 90*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 50*1024*1024), // 50MB
		CORSAllowedOrigins: parseListOrDefault("CORS_ALLOWED_ORIGINS", []string{"*"}),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvOrDefault("LOG_FORMAT", "json"),
		AI: AIConfig{
			Provider:    strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderCompatible)),
			Endpoint:    firstEnv("DASHSCOPE_URL", "AI_API_URL"),
			APIKey:      firstEnv("DASHSCOPE_API_KEY", "AI_API_KEY"),
			Model:       firstEnv("DASHSCOPE_MODEL", "AI_MODEL"),
			Timeout:     parseDurationOrDefault("AI_TIMEOUT", 60*time.Second),
			MaxTokens:   int(parseIntOrDefault("AI_MAX_TOKENS", 2000)),
			Temperature: float32(parseFloatOrDefault("AI_TEMPERATURE", 0.3)),
			ForceMock:   parseBoolOrDefault("MOCK_MODE", false),
		},
		Storage: StorageConfig{
			InlineRemoteImages: parseBoolOrDefault("INLINE_REMOTE_IMAGES", false),
			AllowedSchemes:     parseListOrDefault("IMAGE_ALLOWED_SCHEMES", []string{"http", "https"}),
			AllowedHosts:       parseListOrDefault("IMAGE_ALLOWED_HOSTS", nil),
			AzureAccountName:   os.Getenv("AZURE_STORAGE_ACCOUNT"),
			AzureAccountKey:    os.Getenv("AZURE_STORAGE_KEY"),
		},
	}

	// Environment wins; the settings file only fills what is missing
	if cfg.AI.Endpoint == "" || cfg.AI.APIKey == "" {
		path := getEnvOrDefault("CONFIG_PATH", "config.json")
		if err := applySettingsFile(&cfg.AI, path); err != nil {
			return nil, err
		}
	}
	endpoint, model := providerDefaults(cfg.AI.Provider)
	if cfg.AI.Endpoint == "" {
		cfg.AI.Endpoint = endpoint
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = model
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// providerDefaults returns the endpoint and model used when none are configured
func providerDefaults(provider string) (endpoint, model string) {
	switch provider {
	case ProviderOpenAI:
		return DefaultOpenAIEndpoint, DefaultOpenAIModel
	case ProviderGemini:
		return DefaultGeminiEndpoint, DefaultGeminiModel
	default:
		return DefaultEndpoint, DefaultModel
	}
}

// applySettingsFile merges the local settings file into ai.
// A missing file is not an error.
func applySettingsFile(ai *AIConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	var s settingsFile
	if err := yaml.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	if ai.Endpoint == "" {
		ai.Endpoint = strings.TrimSpace(s.APIURL)
	}
	if ai.APIKey == "" {
		ai.APIKey = strings.TrimSpace(s.APIKey)
	}
	if ai.Model == "" {
		ai.Model = strings.TrimSpace(s.Model)
	}
	if s.Provider != "" && os.Getenv("AI_PROVIDER") == "" {
		ai.Provider = strings.ToLower(strings.TrimSpace(s.Provider))
	}
	return nil
}

func (c *Config) validate() error {
	var errs []error

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT: %q", c.Port))
	}
	if c.MaxRequestBodySize <= 0 {
		errs = append(errs, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize))
	}
	if c.RequestTimeout <= 0 || c.AI.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeouts must be > 0 (got request=%s, ai=%s)", c.RequestTimeout, c.AI.Timeout))
	}
	switch c.AI.Provider {
	case ProviderCompatible, ProviderOpenAI, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("AI_PROVIDER must be one of: compatible, openai, gemini (got: %s)", c.AI.Provider))
	}
	if c.AI.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("AI_MAX_TOKENS must be > 0 (got %d)", c.AI.MaxTokens))
	}
	for _, scheme := range c.Storage.AllowedSchemes {
		if s := strings.ToLower(scheme); s != "http" && s != "https" {
			errs = append(errs, fmt.Errorf("IMAGE_ALLOWED_SCHEMES may only contain http and https (got: %s)", scheme))
		}
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		errs = append(errs, fmt.Errorf("AI_TEMPERATURE must be within [0, 2] (got %v)", c.AI.Temperature))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%w", errors.Join(errs...))
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// firstEnv returns the first non-empty value among keys
func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
