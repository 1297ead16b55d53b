package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestContextWithLogger(t *testing.T) {
	t.Parallel()

	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("expected no logger in empty context")
	}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := ContextWithLogger(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Fatalf("expected logger to round trip through context")
	}

	if got := ContextWithLogger(ctx, nil); got != ctx {
		t.Fatalf("expected nil logger to leave context unchanged")
	}
}

func TestNewHandler(t *testing.T) {
	t.Parallel()

	t.Run("json honours level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(NewHandler(&buf, "json", slog.LevelWarn))
		logger.Info("hidden")
		logger.Warn("shown", "slot_id", "slot-1")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 1 {
			t.Fatalf("expected one entry, got %q", buf.String())
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
			t.Fatalf("failed to decode entry: %v", err)
		}
		if entry["msg"] != "shown" || entry["slot_id"] != "slot-1" {
			t.Fatalf("unexpected entry %v", entry)
		}
	})

	t.Run("text is human readable", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(NewHandler(&buf, "text", slog.LevelDebug))
		logger.Debug("sweep finished", "matched", 3)

		out := buf.String()
		if !strings.Contains(out, "sweep finished") || !strings.Contains(out, "matched") {
			t.Fatalf("unexpected output %q", out)
		}
		if json.Valid([]byte(strings.TrimSpace(out))) {
			t.Fatalf("expected console output rather than JSON")
		}
	})
}

func TestScopedFallsBackInOrder(t *testing.T) {
	t.Parallel()

	var ctxBuf, fallbackBuf bytes.Buffer
	ctxLogger := slog.New(slog.NewJSONHandler(&ctxBuf, nil))
	fallback := slog.New(slog.NewJSONHandler(&fallbackBuf, nil))

	Scoped(context.Background(), fallback, "service", "ReminderService", "job", "time_reminders").Info("sweep")
	var entry map[string]any
	if err := json.Unmarshal(fallbackBuf.Bytes(), &entry); err != nil {
		t.Fatalf("expected fallback logger to be used: %v", err)
	}
	if entry["service"] != "ReminderService" || entry["job"] != "time_reminders" {
		t.Fatalf("unexpected attributes %v", entry)
	}

	ctx := ContextWithLogger(context.Background(), ctxLogger)
	Scoped(ctx, fallback, "handler", "SlotHandler").Info("listed")
	if ctxBuf.Len() == 0 || strings.Count(fallbackBuf.String(), "\n") != 1 {
		t.Fatalf("expected context logger to win over fallback")
	}

	if Scoped(context.TODO(), nil, "service", "EventService") == nil {
		t.Fatalf("expected default logger when nothing is available")
	}
}
