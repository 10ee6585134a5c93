package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/MyBusinesspace/MBP-sub007/internal/apperrors"
	"github.com/MyBusinesspace/MBP-sub007/internal/auth"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestInfo is filled in by inner handlers for the access log.
type requestInfo struct {
	actorID string
}

type requestInfoKey struct{}

// accessLog writes one line per request.
func accessLog(log zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		info := &requestInfo{}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info)))

		ev := log.Info()
		if rec.status >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Str("actor_id", info.actorID).
			Msg("request")
	})
}

type actorHandler func(w http.ResponseWriter, r *http.Request, caller auth.Actor)

// authenticated resolves the caller before running next.
func (h *Handler) authenticated(next actorHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := h.resolver.Resolve(r)
		if err != nil {
			msg := "authentication required"
			if errors.Is(err, auth.ErrInvalidToken) {
				msg = "invalid bearer token"
			}
			writeError(w, apperrors.Wrap(apperrors.CodeUnauthenticated, msg, err))
			return
		}
		if info, ok := r.Context().Value(requestInfoKey{}).(*requestInfo); ok {
			info.actorID = caller.ID
		}
		next(w, r.WithContext(auth.WithActor(r.Context(), caller)), caller)
	}
}
