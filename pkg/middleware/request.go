package middleware

import (
	"context"
	"net/http"

	apperrors "clinicq/pkg/errors"
	"clinicq/pkg/logger"
)

type contextKey string

const (
	RequestIDKey     contextKey = "request_id"
	RequestIDHeader             = "X-Request-ID"
	SessionIDHeader             = "X-Session-ID"
	IdempotencyHeader           = "Idempotency-Key"
)

// RequestID returns the id RequestLogging attached to ctx, or "".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func reject(w http.ResponseWriter, log *logger.Logger, r *http.Request, appErr *apperrors.AppError, attrs ...any) {
	log.Warn(appErr.Message, append([]any{
		"request_id", RequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	}, attrs...)...)

	if err := apperrors.WriteError(w, appErr); err != nil {
		log.Error("failed to write error response", "error", err)
	}
}
