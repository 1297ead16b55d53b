package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, c *Collectors) string {
	t.Helper()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics handler, got %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("failed to read metrics body: %v", err)
	}
	return string(body)
}

func TestCollectorsExposeRecordedValues(t *testing.T) {
	t.Parallel()

	c := New()
	c.SweepCompleted("time_reminders", 3, nil, 20*time.Millisecond)
	c.SweepCompleted("time_reminders", 0, errors.New("query failed"), time.Millisecond)
	c.Dispatched("reminder", "sent")
	c.Dispatched("reminder", "sent")
	c.Dispatched("invitation", "dropped")
	c.SlotsMaterialized(4)
	c.SlotsMaterialized(2)

	body := scrape(t, c)
	for _, line := range []string{
		`calendar_sweep_runs_total{job="time_reminders",outcome="ok"} 1`,
		`calendar_sweep_runs_total{job="time_reminders",outcome="error"} 1`,
		`calendar_sweep_matched_slots_total{job="time_reminders"} 3`,
		`calendar_sweep_duration_seconds_count{job="time_reminders"} 2`,
		`calendar_notifications_total{kind="reminder",outcome="sent"} 2`,
		`calendar_notifications_total{kind="invitation",outcome="dropped"} 1`,
		`calendar_slots_materialized_total 6`,
	} {
		if !strings.Contains(body, line) {
			t.Fatalf("expected %q in metrics output:\n%s", line, body)
		}
	}
}

func TestCollectorsUseSeparateRegistries(t *testing.T) {
	t.Parallel()

	first, second := New(), New()
	first.SlotsMaterialized(5)

	if !strings.Contains(scrape(t, second), "calendar_slots_materialized_total 0") {
		t.Fatalf("expected independent registries")
	}
	if !strings.Contains(scrape(t, first), "go_goroutines") {
		t.Fatalf("expected runtime collectors to be registered")
	}
}
