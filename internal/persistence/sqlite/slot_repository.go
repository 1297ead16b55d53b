package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/example/calendar-slots/internal/persistence"
)

const slotColumns = "s.id, s.event_id, s.title, s.location, s.description, s.kind, s.start_date, s.end_date, s.start_time, s.end_time, s.start_zone, s.end_zone, s.created_at, s.updated_at"

// Day slots sort at midnight UTC of their start date, matching
// persistence.Span.StartInstant.
const slotOrder = "ORDER BY COALESCE(s.start_time, s.start_date || 'T00:00:00.000000000Z'), s.id"

// CreateSlots inserts the batch in one transaction.
func (s *Store) CreateSlots(ctx context.Context, slots []persistence.Slot) error {
	if len(slots) == 0 {
		return nil
	}
	for _, slot := range slots {
		if slot.ID == "" {
			return persistence.ErrConstraintViolation
		}
	}

	return s.atomically(ctx, func(q querier) error {
		slotStmt, err := q.PrepareContext(ctx, `
			INSERT INTO slots (id, event_id, title, location, description, `+spanColumns+`, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return s.mapper.MapError(err)
		}
		defer slotStmt.Close()

		guestStmt, err := q.PrepareContext(ctx, "INSERT INTO slot_guests (slot_id, position, email) VALUES (?, ?, ?)")
		if err != nil {
			return s.mapper.MapError(err)
		}
		defer guestStmt.Close()

		for _, slot := range slots {
			args := []any{slot.ID, slot.EventID, slot.Title, slot.Location, slot.Description}
			args = append(args, spanArgs(slot.Span)...)
			args = append(args, formatInstant(slot.CreatedAt), formatInstant(slot.UpdatedAt))
			if _, err := slotStmt.ExecContext(ctx, args...); err != nil {
				return s.mapper.MapError(err)
			}
			for i, email := range slot.GuestEmails {
				if _, err := guestStmt.ExecContext(ctx, slot.ID, i, email); err != nil {
					return s.mapper.MapError(err)
				}
			}
		}
		return nil
	})
}

// DeleteSlotsForEvent removes every slot of the event.
func (s *Store) DeleteSlotsForEvent(ctx context.Context, eventID string) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM slots WHERE event_id = ?", eventID)
	return s.mapper.MapError(err)
}

// PatchSlotsForEvent overwrites the patched cosmetic fields on every slot of
// the event.
func (s *Store) PatchSlotsForEvent(ctx context.Context, eventID string, patch persistence.SlotPatch) (int, error) {
	sets := []string{"updated_at = ?"}
	args := []any{formatInstant(patch.UpdatedAt)}
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Location != nil {
		sets = append(sets, "location = ?")
		args = append(args, *patch.Location)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	args = append(args, eventID)

	var updated int
	err := s.atomically(ctx, func(q querier) error {
		result, err := q.ExecContext(ctx, "UPDATE slots SET "+strings.Join(sets, ", ")+" WHERE event_id = ?", args...)
		if err != nil {
			return s.mapper.MapError(err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		updated = int(n)

		if patch.GuestEmails == nil {
			return nil
		}
		if _, err := q.ExecContext(ctx, "DELETE FROM slot_guests WHERE slot_id IN (SELECT id FROM slots WHERE event_id = ?)", eventID); err != nil {
			return s.mapper.MapError(err)
		}
		for i, email := range *patch.GuestEmails {
			if _, err := q.ExecContext(ctx,
				"INSERT INTO slot_guests (slot_id, position, email) SELECT id, ?, ? FROM slots WHERE event_id = ?",
				i, email, eventID,
			); err != nil {
				return s.mapper.MapError(err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// UpdateSlotGuests replaces the guest list of one slot.
func (s *Store) UpdateSlotGuests(ctx context.Context, slotID string, guests []string, updatedAt time.Time) error {
	return s.atomically(ctx, func(q querier) error {
		result, err := q.ExecContext(ctx, "UPDATE slots SET updated_at = ? WHERE id = ?", formatInstant(updatedAt), slotID)
		if err != nil {
			return s.mapper.MapError(err)
		}
		if err := requireAffected(result); err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, "DELETE FROM slot_guests WHERE slot_id = ?", slotID); err != nil {
			return s.mapper.MapError(err)
		}
		return s.mapper.MapError(insertGuests(ctx, q, "slot_guests", "slot_id", slotID, guests))
	})
}

// GetSlot retrieves a slot by ID.
func (s *Store) GetSlot(ctx context.Context, id string) (persistence.Slot, error) {
	slots, err := s.listSlots(ctx, "s.id = ?", id)
	if err != nil {
		return persistence.Slot{}, err
	}
	if len(slots) == 0 {
		return persistence.Slot{}, persistence.ErrNotFound
	}
	return slots[0], nil
}

// ListSlotsForEvent returns the event's slots ordered by start.
func (s *Store) ListSlotsForEvent(ctx context.Context, eventID string) ([]persistence.Slot, error) {
	return s.listSlots(ctx, "s.event_id = ?", eventID)
}

// ListSlotsForOrganizer returns the organizer's slots whose start date lies in [from, to].
func (s *Store) ListSlotsForOrganizer(ctx context.Context, organizerID string, from, to time.Time) ([]persistence.Slot, error) {
	return s.listSlots(ctx,
		"s.event_id IN (SELECT id FROM events WHERE organizer_id = ?) AND s.start_date >= ? AND s.start_date <= ?",
		organizerID, formatDate(from), formatDate(to),
	)
}

// ListDaySlotsStartingOn returns day slots starting on date.
func (s *Store) ListDaySlotsStartingOn(ctx context.Context, date time.Time) ([]persistence.Slot, error) {
	return s.listSlots(ctx, "s.kind = 'day' AND s.start_date = ?", formatDate(date))
}

// ListTimeSlotsStartingBetween returns time slots starting within [from, to).
func (s *Store) ListTimeSlotsStartingBetween(ctx context.Context, from, to time.Time) ([]persistence.Slot, error) {
	return s.listSlots(ctx, "s.kind = 'time' AND s.start_time >= ? AND s.start_time < ?", formatInstant(from), formatInstant(to))
}

// listSlots loads the slots matching where, then their guests with a second
// query over the same filter. The first result set is closed before the second
// query runs so a single-connection pool never waits on itself.
func (s *Store) listSlots(ctx context.Context, where string, args ...any) ([]persistence.Slot, error) {
	slots, err := s.querySlots(ctx, where, args...)
	if err != nil || len(slots) == 0 {
		return nil, err
	}
	if err := s.attachSlotGuests(ctx, slots, where, args...); err != nil {
		return nil, err
	}
	return slots, nil
}

func (s *Store) querySlots(ctx context.Context, where string, args ...any) ([]persistence.Slot, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT "+slotColumns+" FROM slots s WHERE "+where+" "+slotOrder, args...)
	if err != nil {
		return nil, s.mapper.MapError(err)
	}
	defer rows.Close()

	var slots []persistence.Slot
	for rows.Next() {
		var (
			slot                 persistence.Slot
			span                 spanRow
			createdAt, updatedAt string
		)
		targets := []any{&slot.ID, &slot.EventID, &slot.Title, &slot.Location, &slot.Description}
		targets = append(targets, span.targets()...)
		targets = append(targets, &createdAt, &updatedAt)
		if err := rows.Scan(targets...); err != nil {
			return nil, s.mapper.MapError(err)
		}
		if slot.Span, err = span.span(); err != nil {
			return nil, err
		}
		if slot.CreatedAt, err = parseInstant(createdAt); err != nil {
			return nil, err
		}
		if slot.UpdatedAt, err = parseInstant(updatedAt); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, s.mapper.MapError(rows.Err())
}

func (s *Store) attachSlotGuests(ctx context.Context, slots []persistence.Slot, where string, args ...any) error {
	index := make(map[string]int, len(slots))
	for i, slot := range slots {
		index[slot.ID] = i
	}

	rows, err := s.q.QueryContext(ctx,
		"SELECT g.slot_id, g.email FROM slot_guests g JOIN slots s ON s.id = g.slot_id WHERE "+where+" ORDER BY g.slot_id, g.position",
		args...,
	)
	if err != nil {
		return s.mapper.MapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var slotID, email string
		if err := rows.Scan(&slotID, &email); err != nil {
			return s.mapper.MapError(err)
		}
		if i, ok := index[slotID]; ok {
			slots[i].GuestEmails = append(slots[i].GuestEmails, email)
		}
	}
	return s.mapper.MapError(rows.Err())
}
