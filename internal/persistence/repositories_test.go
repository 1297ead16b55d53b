package persistence_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/example/calendar-slots/internal/persistence"
	"github.com/example/calendar-slots/internal/recurrence"
	"github.com/example/calendar-slots/internal/testfixtures"
)

var created = testfixtures.ReferenceTime()

func dayEvent(id, organizerID string, date time.Time) persistence.Event {
	return persistence.Event{
		ID:             id,
		OrganizerID:    organizerID,
		OrganizerEmail: organizerID + "@example.com",
		Title:          "Planning",
		Location:       "Room 1",
		GuestEmails:    []string{"a@example.com", "b@example.com"},
		Span:           persistence.Span{Kind: persistence.KindDay, StartDate: date, EndDate: date},
		Rule:           recurrence.Never(),
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

func daySlot(id, eventID string, date time.Time, guests ...string) persistence.Slot {
	return persistence.Slot{
		ID:          id,
		EventID:     eventID,
		Title:       "Planning",
		Location:    "Room 1",
		GuestEmails: guests,
		Span:        persistence.Span{Kind: persistence.KindDay, StartDate: date, EndDate: date},
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func timeSlot(id, eventID string, start time.Time) persistence.Slot {
	return persistence.Slot{
		ID:      id,
		EventID: eventID,
		Title:   "Standup",
		Span: persistence.Span{
			Kind:      persistence.KindTime,
			StartDate: recurrence.CivilDate(start),
			EndDate:   recurrence.CivilDate(start),
			StartTime: start,
			EndTime:   start.Add(15 * time.Minute),
			StartZone: "UTC",
			EndZone:   "UTC",
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func ids(slots []persistence.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slot.ID)
	}
	return out
}

func forEachStore(t *testing.T, fn func(t *testing.T, store persistence.Store)) {
	t.Helper()
	for _, factory := range testfixtures.StoreFactories() {
		factory := factory
		t.Run(factory.Name, func(t *testing.T) {
			t.Parallel()
			fn(t, factory.New(t))
		})
	}
}

func mustCreateEvent(t *testing.T, store persistence.Store, event persistence.Event) {
	t.Helper()
	if err := store.CreateEvent(context.Background(), event); err != nil {
		t.Fatalf("CreateEvent(%s) returned error: %v", event.ID, err)
	}
}

func mustCreateSlots(t *testing.T, store persistence.Store, slots ...persistence.Slot) {
	t.Helper()
	if err := store.CreateSlots(context.Background(), slots); err != nil {
		t.Fatalf("CreateSlots returned error: %v", err)
	}
}

func TestEventRepository(t *testing.T) {
	t.Parallel()

	forEachStore(t, func(t *testing.T, store persistence.Store) {
		ctx := context.Background()
		end := testfixtures.Date(2024, 12, 31)
		event := dayEvent("event-1", "organizer-1", testfixtures.Date(2024, 10, 11))
		event.Rule = recurrence.Rule{
			Frequency:  recurrence.FrequencyWeekly,
			Step:       2,
			WeeklyDays: []time.Weekday{time.Monday, time.Friday},
			Duration:   recurrence.DurationUntilDate,
			EndDate:    &end,
		}
		mustCreateEvent(t, store, event)

		got, err := store.GetEvent(ctx, "event-1")
		if err != nil {
			t.Fatalf("GetEvent returned error: %v", err)
		}
		if !got.Rule.Equal(event.Rule) {
			t.Fatalf("rule did not round trip: %+v", got.Rule)
		}
		if !slices.Equal(got.GuestEmails, event.GuestEmails) {
			t.Fatalf("guests did not round trip: %v", got.GuestEmails)
		}
		if !got.Span.StartDate.Equal(event.Span.StartDate) || !got.CreatedAt.Equal(created) {
			t.Fatalf("unexpected event %+v", got)
		}

		if err := store.CreateEvent(ctx, event); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}

		update := got
		update.Title = "Renamed"
		update.OrganizerID = "someone-else"
		update.GuestEmails = []string{"c@example.com"}
		update.Rule = recurrence.Never()
		update.UpdatedAt = created.Add(time.Hour)
		if err := store.UpdateEvent(ctx, update); err != nil {
			t.Fatalf("UpdateEvent returned error: %v", err)
		}

		got, err = store.GetEvent(ctx, "event-1")
		if err != nil {
			t.Fatalf("GetEvent returned error: %v", err)
		}
		if got.Title != "Renamed" || got.OrganizerID != "organizer-1" {
			t.Fatalf("expected title change with organizer kept, got %+v", got)
		}
		if got.Rule.Repeats() || !slices.Equal(got.GuestEmails, []string{"c@example.com"}) {
			t.Fatalf("unexpected updated event %+v", got)
		}

		if err := store.UpdateEvent(ctx, dayEvent("missing", "organizer-1", testfixtures.Date(2024, 10, 11))); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for missing event, got %v", err)
		}
		if _, err := store.GetEvent(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSlotRepository(t *testing.T) {
	t.Parallel()

	forEachStore(t, func(t *testing.T, store persistence.Store) {
		ctx := context.Background()
		mustCreateEvent(t, store, dayEvent("event-1", "organizer-1", testfixtures.Date(2024, 10, 11)))
		mustCreateSlots(t, store,
			daySlot("slot-b", "event-1", testfixtures.Date(2024, 10, 14), "a@example.com"),
			daySlot("slot-a", "event-1", testfixtures.Date(2024, 10, 11), "a@example.com"),
		)

		slots, err := store.ListSlotsForEvent(ctx, "event-1")
		if err != nil {
			t.Fatalf("ListSlotsForEvent returned error: %v", err)
		}
		if !slices.Equal(ids(slots), []string{"slot-a", "slot-b"}) {
			t.Fatalf("expected slots ordered by start, got %v", ids(slots))
		}

		title := "Renamed"
		guests := []string{"x@example.com", "y@example.com"}
		n, err := store.PatchSlotsForEvent(ctx, "event-1", persistence.SlotPatch{Title: &title, GuestEmails: &guests, UpdatedAt: created.Add(time.Hour)})
		if err != nil {
			t.Fatalf("PatchSlotsForEvent returned error: %v", err)
		}
		if n != 2 {
			t.Fatalf("expected 2 patched slots, got %d", n)
		}

		slot, err := store.GetSlot(ctx, "slot-a")
		if err != nil {
			t.Fatalf("GetSlot returned error: %v", err)
		}
		if slot.Title != "Renamed" || slot.Location != "Room 1" || !slices.Equal(slot.GuestEmails, guests) {
			t.Fatalf("unexpected patched slot %+v", slot)
		}
		if !slot.UpdatedAt.Equal(created.Add(time.Hour)) {
			t.Fatalf("expected patched timestamp, got %v", slot.UpdatedAt)
		}

		if err := store.UpdateSlotGuests(ctx, "slot-b", []string{"z@example.com"}, created.Add(2*time.Hour)); err != nil {
			t.Fatalf("UpdateSlotGuests returned error: %v", err)
		}
		slot, _ = store.GetSlot(ctx, "slot-b")
		if !slices.Equal(slot.GuestEmails, []string{"z@example.com"}) {
			t.Fatalf("unexpected guests %v", slot.GuestEmails)
		}
		slot, _ = store.GetSlot(ctx, "slot-a")
		if !slices.Equal(slot.GuestEmails, guests) {
			t.Fatalf("expected sibling guests untouched, got %v", slot.GuestEmails)
		}

		if err := store.UpdateSlotGuests(ctx, "missing", nil, created); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := store.CreateSlots(ctx, []persistence.Slot{daySlot("slot-x", "no-event", testfixtures.Date(2024, 10, 11))}); !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
		}

		if err := store.DeleteSlotsForEvent(ctx, "event-1"); err != nil {
			t.Fatalf("DeleteSlotsForEvent returned error: %v", err)
		}
		if slots, _ := store.ListSlotsForEvent(ctx, "event-1"); len(slots) != 0 {
			t.Fatalf("expected no slots, got %v", ids(slots))
		}
	})
}

func TestCreateSlotsIsAllOrNothing(t *testing.T) {
	t.Parallel()

	forEachStore(t, func(t *testing.T, store persistence.Store) {
		ctx := context.Background()
		mustCreateEvent(t, store, dayEvent("event-1", "organizer-1", testfixtures.Date(2024, 10, 11)))

		err := store.CreateSlots(ctx, []persistence.Slot{
			daySlot("slot-1", "event-1", testfixtures.Date(2024, 10, 11)),
			daySlot("slot-1", "event-1", testfixtures.Date(2024, 10, 12)),
		})
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
		if slots, _ := store.ListSlotsForEvent(ctx, "event-1"); len(slots) != 0 {
			t.Fatalf("expected no slots after failed batch, got %v", ids(slots))
		}
	})
}

func TestDeleteEventCascades(t *testing.T) {
	t.Parallel()

	forEachStore(t, func(t *testing.T, store persistence.Store) {
		ctx := context.Background()
		mustCreateEvent(t, store, dayEvent("event-1", "organizer-1", testfixtures.Date(2024, 10, 11)))
		mustCreateSlots(t, store, daySlot("slot-1", "event-1", testfixtures.Date(2024, 10, 11), "a@example.com"))

		if err := store.DeleteEvent(ctx, "event-1"); err != nil {
			t.Fatalf("DeleteEvent returned error: %v", err)
		}
		if _, err := store.GetSlot(ctx, "slot-1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected slot to be deleted with its event, got %v", err)
		}
		if err := store.DeleteEvent(ctx, "event-1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestSlotQueries(t *testing.T) {
	t.Parallel()

	forEachStore(t, func(t *testing.T, store persistence.Store) {
		ctx := context.Background()
		mustCreateEvent(t, store, dayEvent("event-1", "organizer-1", testfixtures.Date(2024, 10, 11)))
		mustCreateEvent(t, store, dayEvent("event-2", "organizer-2", testfixtures.Date(2024, 10, 11)))

		base := time.Date(2024, 10, 11, 14, 0, 0, 0, time.UTC)
		mustCreateSlots(t, store,
			daySlot("day-1", "event-1", testfixtures.Date(2024, 10, 11)),
			daySlot("day-2", "event-1", testfixtures.Date(2024, 10, 12)),
			daySlot("day-3", "event-2", testfixtures.Date(2024, 10, 12)),
			timeSlot("time-1", "event-1", base.Add(-time.Minute)),
			timeSlot("time-2", "event-1", base),
			timeSlot("time-3", "event-2", base.Add(29*time.Minute)),
			timeSlot("time-4", "event-1", base.Add(30*time.Minute)),
		)

		days, err := store.ListDaySlotsStartingOn(ctx, testfixtures.Date(2024, 10, 12))
		if err != nil {
			t.Fatalf("ListDaySlotsStartingOn returned error: %v", err)
		}
		if !slices.Equal(ids(days), []string{"day-2", "day-3"}) {
			t.Fatalf("unexpected day slots %v", ids(days))
		}

		window, err := store.ListTimeSlotsStartingBetween(ctx, base, base.Add(30*time.Minute))
		if err != nil {
			t.Fatalf("ListTimeSlotsStartingBetween returned error: %v", err)
		}
		if !slices.Equal(ids(window), []string{"time-2", "time-3"}) {
			t.Fatalf("expected half-open window, got %v", ids(window))
		}

		owned, err := store.ListSlotsForOrganizer(ctx, "organizer-1", testfixtures.Date(2024, 10, 11), testfixtures.Date(2024, 10, 11))
		if err != nil {
			t.Fatalf("ListSlotsForOrganizer returned error: %v", err)
		}
		if !slices.Equal(ids(owned), []string{"day-1", "time-1", "time-2", "time-4"}) {
			t.Fatalf("unexpected organizer slots %v", ids(owned))
		}
	})
}

func TestWithinTransactionRollsBack(t *testing.T) {
	t.Parallel()

	forEachStore(t, func(t *testing.T, store persistence.Store) {
		ctx := context.Background()
		mustCreateEvent(t, store, dayEvent("event-1", "organizer-1", testfixtures.Date(2024, 10, 11)))
		mustCreateSlots(t, store, daySlot("slot-1", "event-1", testfixtures.Date(2024, 10, 11)))

		boom := errors.New("boom")
		err := store.WithinTransaction(ctx, func(tx persistence.Store) error {
			if err := tx.DeleteSlotsForEvent(ctx, "event-1"); err != nil {
				return err
			}
			if err := tx.CreateSlots(ctx, []persistence.Slot{daySlot("slot-2", "event-1", testfixtures.Date(2024, 10, 12))}); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected callback error, got %v", err)
		}

		slots, err := store.ListSlotsForEvent(ctx, "event-1")
		if err != nil {
			t.Fatalf("ListSlotsForEvent returned error: %v", err)
		}
		if !slices.Equal(ids(slots), []string{"slot-1"}) {
			t.Fatalf("expected original slot set after rollback, got %v", ids(slots))
		}

		err = store.WithinTransaction(ctx, func(tx persistence.Store) error {
			if err := tx.DeleteSlotsForEvent(ctx, "event-1"); err != nil {
				return err
			}
			return tx.CreateSlots(ctx, []persistence.Slot{daySlot("slot-3", "event-1", testfixtures.Date(2024, 10, 13))})
		})
		if err != nil {
			t.Fatalf("WithinTransaction returned error: %v", err)
		}
		slots, _ = store.ListSlotsForEvent(ctx, "event-1")
		if !slices.Equal(ids(slots), []string{"slot-3"}) {
			t.Fatalf("expected committed slot set, got %v", ids(slots))
		}
	})
}
