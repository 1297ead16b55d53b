// Package memory provides an in-process persistence.Store used by tests and
// by the "memory" storage driver.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/example/calendar-slots/internal/persistence"
)

type dataset struct {
	events map[string]persistence.Event
	slots  map[string]persistence.Slot
}

func (d *dataset) clone() *dataset {
	out := &dataset{
		events: make(map[string]persistence.Event, len(d.events)),
		slots:  make(map[string]persistence.Slot, len(d.slots)),
	}
	for id, event := range d.events {
		out.events[id] = cloneEvent(event)
	}
	for id, slot := range d.slots {
		out.slots[id] = cloneSlot(slot)
	}
	return out
}

// Store keeps events and slots in maps guarded by a single mutex. A
// transaction holds the mutex for its whole duration and restores a snapshot
// when the callback fails.
type Store struct {
	mu   *sync.Mutex
	data *dataset
	inTx bool
}

var _ persistence.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		mu: &sync.Mutex{},
		data: &dataset{
			events: make(map[string]persistence.Event),
			slots:  make(map[string]persistence.Slot),
		},
	}
}

// Close releases resources held by the store. No-op for the in-memory implementation.
func (s *Store) Close() error {
	return nil
}

// Migrate prepares the schema. No-op for the in-memory implementation.
func (s *Store) Migrate(context.Context) error {
	return nil
}

// Ping reports store health.
func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithinTransaction runs fn against a view that commits atomically.
func (s *Store) WithinTransaction(ctx context.Context, fn func(tx persistence.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	tx := &Store{mu: s.mu, data: s.data, inTx: true}

	committed := false
	defer func() {
		if !committed {
			s.data.events, s.data.slots = snapshot.events, snapshot.slots
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	committed = true
	return nil
}

// --- EventRepository implementation ---

// CreateEvent stores a new event.
func (s *Store) CreateEvent(ctx context.Context, event persistence.Event) error {
	defer s.lock()()

	if event.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.data.events[event.ID]; ok {
		return fmt.Errorf("memory: event %s: %w", event.ID, persistence.ErrDuplicate)
	}
	s.data.events[event.ID] = cloneEvent(event)
	return nil
}

// UpdateEvent replaces an existing event.
func (s *Store) UpdateEvent(ctx context.Context, event persistence.Event) error {
	defer s.lock()()

	current, ok := s.data.events[event.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	event.OrganizerID = current.OrganizerID
	event.CreatedAt = current.CreatedAt
	s.data.events[event.ID] = cloneEvent(event)
	return nil
}

// GetEvent retrieves an event by ID.
func (s *Store) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	defer s.lock()()

	event, ok := s.data.events[id]
	if !ok {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return cloneEvent(event), nil
}

// DeleteEvent removes an event together with its slots.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	defer s.lock()()

	if _, ok := s.data.events[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.data.events, id)
	for slotID, slot := range s.data.slots {
		if slot.EventID == id {
			delete(s.data.slots, slotID)
		}
	}
	return nil
}

// --- SlotRepository implementation ---

// CreateSlots stores the batch or nothing.
func (s *Store) CreateSlots(ctx context.Context, slots []persistence.Slot) error {
	defer s.lock()()

	seen := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		if slot.ID == "" {
			return persistence.ErrConstraintViolation
		}
		if _, ok := s.data.events[slot.EventID]; !ok {
			return fmt.Errorf("memory: slot %s references event %s: %w", slot.ID, slot.EventID, persistence.ErrForeignKeyViolation)
		}
		if _, ok := s.data.slots[slot.ID]; ok {
			return fmt.Errorf("memory: slot %s: %w", slot.ID, persistence.ErrDuplicate)
		}
		if _, ok := seen[slot.ID]; ok {
			return fmt.Errorf("memory: slot %s: %w", slot.ID, persistence.ErrDuplicate)
		}
		seen[slot.ID] = struct{}{}
	}
	for _, slot := range slots {
		s.data.slots[slot.ID] = cloneSlot(slot)
	}
	return nil
}

// DeleteSlotsForEvent removes every slot of the event.
func (s *Store) DeleteSlotsForEvent(ctx context.Context, eventID string) error {
	defer s.lock()()

	for id, slot := range s.data.slots {
		if slot.EventID == eventID {
			delete(s.data.slots, id)
		}
	}
	return nil
}

// PatchSlotsForEvent overwrites the patched cosmetic fields on every slot of the event.
func (s *Store) PatchSlotsForEvent(ctx context.Context, eventID string, patch persistence.SlotPatch) (int, error) {
	defer s.lock()()

	updated := 0
	for id, slot := range s.data.slots {
		if slot.EventID != eventID {
			continue
		}
		if patch.Title != nil {
			slot.Title = *patch.Title
		}
		if patch.Location != nil {
			slot.Location = *patch.Location
		}
		if patch.Description != nil {
			slot.Description = *patch.Description
		}
		if patch.GuestEmails != nil {
			slot.GuestEmails = slices.Clone(*patch.GuestEmails)
		}
		slot.UpdatedAt = patch.UpdatedAt
		s.data.slots[id] = slot
		updated++
	}
	return updated, nil
}

// UpdateSlotGuests replaces the guest set of one slot.
func (s *Store) UpdateSlotGuests(ctx context.Context, slotID string, guests []string, updatedAt time.Time) error {
	defer s.lock()()

	slot, ok := s.data.slots[slotID]
	if !ok {
		return persistence.ErrNotFound
	}
	slot.GuestEmails = slices.Clone(guests)
	slot.UpdatedAt = updatedAt
	s.data.slots[slotID] = slot
	return nil
}

// GetSlot retrieves a slot by ID.
func (s *Store) GetSlot(ctx context.Context, id string) (persistence.Slot, error) {
	defer s.lock()()

	slot, ok := s.data.slots[id]
	if !ok {
		return persistence.Slot{}, persistence.ErrNotFound
	}
	return cloneSlot(slot), nil
}

// ListSlotsForEvent returns the event's slots ordered by start.
func (s *Store) ListSlotsForEvent(ctx context.Context, eventID string) ([]persistence.Slot, error) {
	defer s.lock()()

	return s.filterSlots(func(slot persistence.Slot) bool {
		return slot.EventID == eventID
	}), nil
}

// ListSlotsForOrganizer returns the organizer's slots starting within [from, to].
func (s *Store) ListSlotsForOrganizer(ctx context.Context, organizerID string, from, to time.Time) ([]persistence.Slot, error) {
	defer s.lock()()

	return s.filterSlots(func(slot persistence.Slot) bool {
		event, ok := s.data.events[slot.EventID]
		if !ok || event.OrganizerID != organizerID {
			return false
		}
		return !slot.Span.StartDate.Before(from) && !slot.Span.StartDate.After(to)
	}), nil
}

// ListDaySlotsStartingOn returns day slots starting on date.
func (s *Store) ListDaySlotsStartingOn(ctx context.Context, date time.Time) ([]persistence.Slot, error) {
	defer s.lock()()

	return s.filterSlots(func(slot persistence.Slot) bool {
		return slot.Span.Kind == persistence.KindDay && slot.Span.StartDate.Equal(date)
	}), nil
}

// ListTimeSlotsStartingBetween returns time slots starting within [from, to).
func (s *Store) ListTimeSlotsStartingBetween(ctx context.Context, from, to time.Time) ([]persistence.Slot, error) {
	defer s.lock()()

	return s.filterSlots(func(slot persistence.Slot) bool {
		if slot.Span.Kind != persistence.KindTime {
			return false
		}
		return !slot.Span.StartTime.Before(from) && slot.Span.StartTime.Before(to)
	}), nil
}

func (s *Store) filterSlots(keep func(persistence.Slot) bool) []persistence.Slot {
	out := make([]persistence.Slot, 0)
	for _, slot := range s.data.slots {
		if keep(slot) {
			out = append(out, cloneSlot(slot))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Span.StartInstant(), out[j].Span.StartInstant()
		if a.Equal(b) {
			return out[i].ID < out[j].ID
		}
		return a.Before(b)
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

func cloneEvent(event persistence.Event) persistence.Event {
	event.GuestEmails = slices.Clone(event.GuestEmails)
	event.Rule.WeeklyDays = slices.Clone(event.Rule.WeeklyDays)
	if event.Rule.EndDate != nil {
		end := *event.Rule.EndDate
		event.Rule.EndDate = &end
	}
	return event
}

func cloneSlot(slot persistence.Slot) persistence.Slot {
	slot.GuestEmails = slices.Clone(slot.GuestEmails)
	return slot
}
