package middleware

import (
	"net/http"
	"runtime/debug"

	apperrors "clinicq/pkg/errors"
	"clinicq/pkg/logger"
)

func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				log.Error("Panic recovered",
					"request_id", RequestID(r.Context()),
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				if err := apperrors.WriteError(w, apperrors.Internal("Internal server error", nil)); err != nil {
					log.Error("failed to write error response", "error", err)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
