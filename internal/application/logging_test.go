package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/example/calendar-slots/internal/logging"
	"github.com/example/calendar-slots/internal/notification"
	"github.com/example/calendar-slots/internal/recurrence"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestServiceLoggerPrefersContextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctxLogger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := logging.ContextWithLogger(context.Background(), ctxLogger)

	base := slog.New(slog.NewJSONHandler(io.Discard, nil))
	serviceLogger(ctx, base, "EventService", "UpdateEvent", "event_id", "event-1").Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log entry: %v", err)
	}
	for key, want := range map[string]string{"service": "EventService", "operation": "UpdateEvent", "event_id": "event-1"} {
		if entry[key] != want {
			t.Fatalf("expected %s=%q, got %v", key, want, entry[key])
		}
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrNotFound, "not_found"},
		{fmt.Errorf("wrapped: %w", ErrNotFound), "not_found"},
		{ErrConflict, "conflict"},
		{&ValidationError{FieldErrors: map[string]string{"title": "required"}}, "validation"},
		{fmt.Errorf("%w: step", recurrence.ErrInvalidRule), "validation"},
		{fmt.Errorf("%w: smtp", notification.ErrTransientDispatch), "dispatch"},
		{errors.New("boom"), "unexpected"},
	}
	for _, tc := range tests {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
