package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/reelpay/internal/application"
	"github.com/viralforge/reelpay/internal/domain"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeyActor     ctxKey = "actor"
)

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, reqID)))
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				httpLogger().ErrorContext(r.Context(), "panic recovered",
					"operation", r.Method+" "+r.URL.Path,
					"outcome", "failure",
					"request_id", requestIDFromContext(r.Context()),
					"panic", rec,
				)
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", requestIDFromContext(r.Context()))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		httpLogger().DebugContext(r.Context(), "http request",
			"operation", r.Method+" "+r.URL.Path,
			"status_code", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", requestIDFromContext(r.Context()),
		)
	})
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid or missing credentials", requestIDFromContext(r.Context()))
			return
		}
		claims, err := h.verifier.Verify(r.Context(), raw)
		if err != nil || !claims.Valid {
			logHTTPOperationError(r.Context(), "authenticate", http.StatusUnauthorized, "UNAUTHENTICATED", "token rejected", err)
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid or missing credentials", requestIDFromContext(r.Context()))
			return
		}
		actor := application.Actor{Account: claims.Account, RequestID: requestIDFromContext(r.Context())}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyActor, actor)))
	})
}

func bearerTokenFromHeader(header string) (string, error) {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", domain.ErrUnauthorized
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", domain.ErrUnauthorized
	}
	return token, nil
}

func actorFromContext(ctx context.Context) application.Actor {
	if a, ok := ctx.Value(ctxKeyActor).(application.Actor); ok {
		return a
	}
	return application.Actor{}
}

func requestIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return s
	}
	return ""
}
