package strategy

import (
	"context"
	"errors"

	apperrors "go-product-similarity/internal/errors"
	"go-product-similarity/internal/provider"
)

// ClassifyError maps a model call failure onto the upstream error taxonomy.
// Every failure is surfaced; none is turned into a mock result.
func ClassifyError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	var statusErr *provider.StatusError
	switch {
	case errors.As(err, &statusErr):
		return apperrors.NewUpstreamHTTPError(statusErr.StatusCode, statusErr.Message, err)
	case errors.Is(err, provider.ErrNotConfigured), errors.Is(err, provider.ErrImageNotInline):
		return apperrors.NewConfigurationError("model endpoint is misconfigured", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewUpstreamTimeoutError("model call timed out", err)
	case errors.Is(err, context.Canceled):
		return apperrors.NewUpstreamUnreachableError("model call was cancelled", err)
	default:
		return apperrors.NewUpstreamUnreachableError("model endpoint unreachable", err)
	}
}
