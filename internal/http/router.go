package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker reports whether the service can serve requests.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Events  *EventHandler
	Slots   *SlotHandler
	Metrics http.Handler
	Health  HealthChecker
	Logger  *slog.Logger
	// Middleware wraps every route, outermost first.
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	organizer := RequireOrganizer(cfg.Logger)
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, organizer(fn))
	}

	if cfg.Events != nil {
		route("POST /events", cfg.Events.Create)
		route("GET /events/{id}", cfg.Events.Get)
		route("PATCH /events/{id}", cfg.Events.Update)
		route("DELETE /events/{id}", cfg.Events.Delete)
		route("GET /events/{id}/slots", cfg.Events.ListSlots)
	}

	if cfg.Slots != nil {
		route("GET /slots", cfg.Slots.List)
		route("POST /slots/{id}/guests", cfg.Slots.InviteGuests)
	}

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	mux.HandleFunc("GET /healthz", healthHandler(cfg.Health, newResponder("HealthCheck", cfg.Logger)))

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

func healthHandler(checker HealthChecker, responder responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := checker.Ping(ctx); err != nil {
				responder.writeError(r.Context(), w, http.StatusServiceUnavailable, err)
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
