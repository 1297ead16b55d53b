package persistence

import (
	"context"
	"time"
)

// EventRepository stores event series definitions.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	UpdateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// SlotRepository stores materialized occurrences.
type SlotRepository interface {
	// CreateSlots inserts the batch; either every slot is stored or none is.
	CreateSlots(ctx context.Context, slots []Slot) error
	DeleteSlotsForEvent(ctx context.Context, eventID string) error
	// PatchSlotsForEvent applies the patch to every slot of the event and
	// returns the number of slots updated.
	PatchSlotsForEvent(ctx context.Context, eventID string, patch SlotPatch) (int, error)
	UpdateSlotGuests(ctx context.Context, slotID string, guests []string, updatedAt time.Time) error
	GetSlot(ctx context.Context, id string) (Slot, error)
	ListSlotsForEvent(ctx context.Context, eventID string) ([]Slot, error)
	// ListSlotsForOrganizer returns the organizer's slots whose start date lies
	// in the inclusive civil date range [from, to].
	ListSlotsForOrganizer(ctx context.Context, organizerID string, from, to time.Time) ([]Slot, error)
	// ListDaySlotsStartingOn returns day slots whose start date equals date.
	ListDaySlotsStartingOn(ctx context.Context, date time.Time) ([]Slot, error)
	// ListTimeSlotsStartingBetween returns time slots whose UTC start instant
	// lies in the half-open window [from, to).
	ListTimeSlotsStartingBetween(ctx context.Context, from, to time.Time) ([]Slot, error)
}

// Store combines the repositories with a transaction boundary. Repositories
// reached through the Store passed to fn observe and commit as one unit.
type Store interface {
	EventRepository
	SlotRepository
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error
}
