package application_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/example/calendar-slots/internal/application"
	"github.com/example/calendar-slots/internal/persistence"
	"github.com/example/calendar-slots/internal/persistence/memory"
	fx "github.com/example/calendar-slots/internal/testfixtures"
)

func TestTimeReminderTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2024, 5, 1, 13, 30, 0, 0, time.UTC), time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)},
		{time.Date(2024, 5, 1, 13, 30, 2, 0, time.UTC), time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)},
		{time.Date(2024, 5, 1, 13, 29, 58, 0, time.UTC), time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)},
		{time.Date(2024, 5, 1, 23, 30, 0, 0, time.FixedZone("JST", 9*3600)), time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		if got := application.TimeReminderTarget(tc.now); !got.Equal(tc.want) {
			t.Fatalf("TimeReminderTarget(%v) = %v, want %v", tc.now, got, tc.want)
		}
	}
}

type reminderHarness struct {
	factory   *fx.ServiceFactory
	events    *application.EventService
	reminders *application.ReminderService
}

func newReminderHarness(store persistence.Store, reference *time.Location) *reminderHarness {
	factory := fx.NewServiceFactory()
	return &reminderHarness{
		factory:   factory,
		events:    factory.NewEventService(fx.EventServiceDeps{Store: store}),
		reminders: factory.NewReminderService(fx.ReminderServiceDeps{Store: store, Reference: reference}),
	}
}

func TestNotifyTimeEventsMatchesOnlyTheAlignedSweep(t *testing.T) {
	for _, factory := range fx.StoreFactories() {
		factory := factory
		t.Run(factory.Name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			h := newReminderHarness(factory.New(t), nil)

			// 15:00 London summer time is 14:00 UTC.
			if _, err := h.events.CreateEvent(ctx, organizer, fx.TimeEventInput(fx.Wall(2024, 7, 1, 15, 0), time.Hour, "Europe/London",
				fx.WithGuests("guest@example.com"))); err != nil {
				t.Fatalf("CreateEvent returned error: %v", err)
			}

			// Aligned triggers at 13:00, 13:30 and 14:00 UTC.
			h.factory.Clock.Set(time.Date(2024, 7, 1, 12, 50, 0, 0, time.UTC))
			for _, want := range []int{0, 1, 0} {
				now := h.factory.Clock.NextTick(30 * time.Minute)
				matched, err := h.reminders.NotifyTimeEvents(ctx, now)
				if err != nil {
					t.Fatalf("NotifyTimeEvents returned error: %v", err)
				}
				if matched != want {
					t.Fatalf("sweep at %v: expected %d matches, got %d", now, want, matched)
				}
			}

			reminders := h.factory.Notifier.Reminders()
			if len(reminders) != 1 {
				t.Fatalf("expected one reminder, got %d", len(reminders))
			}
			got := reminders[0]
			if !got.ScheduledFor.Equal(time.Date(2024, 7, 1, 14, 0, 0, 0, time.UTC)) {
				t.Fatalf("unexpected scheduled instant %v", got.ScheduledFor)
			}
			if !slices.Equal(got.Recipients, []string{"guest@example.com", "organizer@example.com"}) {
				t.Fatalf("unexpected recipients %v", got.Recipients)
			}
			if got.AllDay || got.StartZone != "Europe/London" {
				t.Fatalf("unexpected reminder %+v", got)
			}
		})
	}
}

func TestNotifyDayEventsUsesReferenceZoneForTomorrow(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}

	ctx := context.Background()
	h := newReminderHarness(memory.New(), tokyo)

	id, err := h.events.CreateEvent(ctx, organizer, fx.DayEventInput(fx.Date(2024, 10, 12), fx.WithRecurrence(fx.Daily(2))))
	if err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}

	// Midnight of the 11th in Tokyo is still the 10th in UTC; tomorrow is the 12th.
	h.factory.Clock.Set(time.Date(2024, 10, 10, 12, 0, 0, 0, time.UTC))
	now := h.factory.Clock.NextMidnight(tokyo)
	if !now.Equal(time.Date(2024, 10, 10, 15, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected trigger instant %v", now)
	}
	matched, err := h.reminders.NotifyDayEvents(ctx, now)
	if err != nil {
		t.Fatalf("NotifyDayEvents returned error: %v", err)
	}
	if matched != 1 {
		t.Fatalf("expected one match, got %d", matched)
	}

	reminders := h.factory.Notifier.Reminders()
	if len(reminders) != 1 || reminders[0].EventID != id || !reminders[0].AllDay {
		t.Fatalf("unexpected reminders %+v", reminders)
	}
	if !reminders[0].Start.Equal(fx.Date(2024, 10, 12)) {
		t.Fatalf("expected reminder for the 12th, got %v", reminders[0].Start)
	}
}

func TestNotifyDayEventsIgnoresTimeSlots(t *testing.T) {
	ctx := context.Background()
	h := newReminderHarness(memory.New(), nil)

	if _, err := h.events.CreateEvent(ctx, organizer, fx.TimeEventInput(fx.Wall(2024, 10, 11, 9, 0), time.Hour, "UTC")); err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}
	matched, err := h.reminders.NotifyDayEvents(ctx, time.Date(2024, 10, 10, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NotifyDayEvents returned error: %v", err)
	}
	if matched != 0 {
		t.Fatalf("expected time slots to be ignored, got %d matches", matched)
	}
}

type failingReminderStore struct {
	application.ReminderStore
}

func (failingReminderStore) ListTimeSlotsStartingBetween(ctx context.Context, from, to time.Time) ([]persistence.Slot, error) {
	return nil, errors.New("database is locked")
}

type sweepRecorder struct {
	jobs []string
	errs []error
}

func (r *sweepRecorder) SweepCompleted(job string, matched int, err error, elapsed time.Duration) {
	r.jobs = append(r.jobs, job)
	r.errs = append(r.errs, err)
}

func TestNotifyTimeEventsQueryFailureAbortsSweep(t *testing.T) {
	factory := fx.NewServiceFactory()
	recorder := &sweepRecorder{}
	svc := factory.NewReminderService(fx.ReminderServiceDeps{Store: failingReminderStore{}}).WithObserver(recorder)

	if _, err := svc.NotifyTimeEvents(context.Background(), fx.ReferenceTime()); err == nil {
		t.Fatalf("expected query failure to be reported")
	}
	if len(factory.Notifier.Reminders()) != 0 {
		t.Fatalf("expected no reminders after a failed query")
	}
	if len(recorder.jobs) != 1 || recorder.jobs[0] != application.JobTimeReminders || recorder.errs[0] == nil {
		t.Fatalf("unexpected observer calls %+v", recorder)
	}
}

type missingEventStore struct {
	slots []persistence.Slot
}

func (s missingEventStore) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if id == "gone" {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return persistence.Event{ID: id, OrganizerEmail: "owner@example.com"}, nil
}

func (s missingEventStore) ListDaySlotsStartingOn(ctx context.Context, date time.Time) ([]persistence.Slot, error) {
	return s.slots, nil
}

func (s missingEventStore) ListTimeSlotsStartingBetween(ctx context.Context, from, to time.Time) ([]persistence.Slot, error) {
	return nil, nil
}

func TestNotifyDayEventsSkipsSlotsWithoutEvent(t *testing.T) {
	tomorrow := fx.Date(2024, 10, 11)
	store := missingEventStore{slots: []persistence.Slot{
		{ID: "slot-1", EventID: "gone", Span: persistence.Span{Kind: persistence.KindDay, StartDate: tomorrow, EndDate: tomorrow}},
		{ID: "slot-2", EventID: "event-2", GuestEmails: []string{"g@example.com"}, Span: persistence.Span{Kind: persistence.KindDay, StartDate: tomorrow, EndDate: tomorrow}},
		{ID: "slot-3", EventID: "event-2", Span: persistence.Span{Kind: persistence.KindDay, StartDate: tomorrow, EndDate: tomorrow}},
	}}

	factory := fx.NewServiceFactory()
	svc := factory.NewReminderService(fx.ReminderServiceDeps{Store: store})

	matched, err := svc.NotifyDayEvents(context.Background(), fx.ReferenceTime())
	if err != nil {
		t.Fatalf("NotifyDayEvents returned error: %v", err)
	}
	if matched != 3 {
		t.Fatalf("expected 3 matched slots, got %d", matched)
	}

	reminders := factory.Notifier.Reminders()
	if len(reminders) != 2 {
		t.Fatalf("expected reminders for the two slots with an event, got %d", len(reminders))
	}
	if !slices.Equal(reminders[0].Recipients, []string{"g@example.com", "owner@example.com"}) {
		t.Fatalf("unexpected recipients %v", reminders[0].Recipients)
	}
	if !slices.Equal(reminders[1].Recipients, []string{"owner@example.com"}) {
		t.Fatalf("unexpected recipients %v", reminders[1].Recipients)
	}
}
