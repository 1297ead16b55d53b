package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/calendar-slots/internal/logging"
	"github.com/example/calendar-slots/internal/notification"
	"github.com/example/calendar-slots/internal/recurrence"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// serviceLogger tags the scoped logger with the service and operation names.
func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, base, "service", serviceName, append([]any{"operation", operation}, attrs...)...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, notification.ErrTransientDispatch):
		return "dispatch"
	case errors.Is(err, recurrence.ErrInvalidRule), errors.Is(err, recurrence.ErrInvalidSpan):
		return "validation"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
