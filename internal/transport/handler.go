package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go-product-similarity/internal/config"
	apperrors "go-product-similarity/internal/errors"
	"go-product-similarity/internal/logger"
	"go-product-similarity/internal/service"
	"go-product-similarity/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// RequestIDHeader carries the per-request correlation ID
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// StatsProvider exposes a metrics snapshot
type StatsProvider interface {
	GetMetrics() map[string]interface{}
}

func NewHandler(svc service.SimilarityService, stats StatsProvider, cfg *config.Config) http.Handler {
	r := gin.New()

	// Add middleware
	r.Use(
		gin.Recovery(),
		requestID(),
		accessLog(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	api := r.Group("/api")
	api.GET("/health", healthCheck(cfg))
	api.POST("/analyze", analyzeSimilarity(svc, cfg))
	api.GET("/stats", statsHandler(stats))

	r.NoRoute(func(c *gin.Context) {
		notFound := apperrors.NewNotFoundError(fmt.Sprintf("找不到接口: %s %s", c.Request.Method, c.Request.URL.Path), nil)
		respondError(c, notFound.StatusCode, "接口不存在", notFound)
	})

	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(r)
}

func analyzeSimilarity(svc service.SimilarityService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()
		ctx = service.WithRequestID(ctx, c.GetString(requestIDKey))

		var req models.AnalysisRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(c, http.StatusRequestEntityTooLarge, "请求体过大",
					apperrors.NewValidationError(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), err))
				return
			}
			respondError(c, http.StatusBadRequest, "请求格式无效",
				apperrors.NewValidationError("invalid request format", err))
			return
		}

		logger.WithFields(logrus.Fields{
			"request_id":    c.GetString(requestIDKey),
			"image_a":       req.ImageA.Name,
			"image_b":       req.ImageB.Name,
			"prompt_length": len([]rune(req.Prompt)),
			"mode":          svc.Mode(),
		}).Info("Processing similarity analysis request")

		result, err := svc.Analyze(ctx, req)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "分析失败", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"request_id":         c.GetString(requestIDKey),
			"processing_time_ms": time.Since(startTime).Milliseconds(),
			"similarity_score":   result.SimilarityScore,
			"score_source":       result.Metadata.ScoreSource,
			"mode":               result.Metadata.AnalysisMode,
		}).Info("Similarity analysis completed successfully")

		c.JSON(http.StatusOK, result)
	}
}

func healthCheck(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       "ok",
			Version:      Version,
			Timestamp:    now(),
			AIConfigured: cfg.AI.IsConfigured(),
			Provider:     cfg.AI.Provider,
		})
	}
}

func statsHandler(stats StatsProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		if stats == nil {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		c.JSON(http.StatusOK, stats.GetMetrics())
	}
}

// Middleware and helper functions
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"request_id":  c.GetString(requestIDKey),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}).Debug("Request handled")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last().Err
			respondError(c, determineStatusCode(err), "请求处理失败", err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, title string, err error) {
	resp := models.ErrorResponse{
		Error:     title,
		Message:   err.Error(),
		Type:      string(apperrors.ErrorTypeInternal),
		Timestamp: now(),
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		resp.Message = appErr.Message
		resp.Type = string(appErr.Type)
		resp.UpstreamStatus = appErr.UpstreamStatus
	}

	entry := logger.WithError(err).WithFields(logrus.Fields{
		"request_id":  c.GetString(requestIDKey),
		"status_code": code,
		"error_type":  resp.Type,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	c.AbortWithStatusJSON(code, resp)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
