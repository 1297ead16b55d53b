package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/calendar-slots/internal/logging"
)

// OrganizerHeader names the acting organizer on event and slot routes.
const OrganizerHeader = "X-Organizer-ID"

var errMissingOrganizer = errors.New(OrganizerHeader + " ヘッダーを指定してください")

// RequireOrganizer rejects requests without an organizer header and stores
// the organizer in the request context otherwise.
func RequireOrganizer(logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder("RequireOrganizer", logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			organizerID := strings.TrimSpace(r.Header.Get(OrganizerHeader))
			if organizerID == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingOrganizer)
				return
			}

			ctx := ContextWithOrganizerID(r.Context(), organizerID)
			if logger := logging.FromContext(ctx); logger != nil {
				ctx = logging.ContextWithLogger(ctx, logger.With("organizer_id", organizerID))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger attaches a per-request logger to the context and logs request
// start and completion.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := logging.ContextWithLogger(r.Context(), logger)
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			logger.DebugContext(ctx, "request started")
			next.ServeHTTP(recorder, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "status", recorder.status, "duration", time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
