package application

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/example/calendar-slots/internal/persistence"
)

// sharedFields are the cosmetic fields copied into every slot of a series.
type sharedFields struct {
	Title       string
	Location    string
	Description string
	GuestEmails []string
}

func sharedFieldsOf(event Event) sharedFields {
	return sharedFields{
		Title:       event.Title,
		Location:    event.Location,
		Description: event.Description,
		GuestEmails: event.GuestEmails,
	}
}

// slotMaterializer turns occurrences into persisted slots. It always writes
// through the transaction it is handed, so a batch is stored completely or
// not at all.
type slotMaterializer struct {
	idGenerator func() string
	now         func() time.Time
}

// createSlots persists one slot per occurrence with identical shared fields.
func (m slotMaterializer) createSlots(ctx context.Context, tx persistence.SlotRepository, eventID string, occurrences []Span, fields sharedFields) ([]Slot, error) {
	if len(occurrences) == 0 {
		return nil, fmt.Errorf("application: event %s expands to no occurrences", eventID)
	}

	now := m.now()
	slots := make([]Slot, 0, len(occurrences))
	records := make([]persistence.Slot, 0, len(occurrences))
	for _, span := range occurrences {
		slot := Slot{
			ID:          m.idGenerator(),
			EventID:     eventID,
			Title:       fields.Title,
			Location:    fields.Location,
			Description: fields.Description,
			GuestEmails: slices.Clone(fields.GuestEmails),
			Span:        span,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		slots = append(slots, slot)
		records = append(records, toSlotRecord(slot))
	}

	if err := tx.CreateSlots(ctx, records); err != nil {
		return nil, err
	}
	return slots, nil
}

// deleteAllSlots removes every slot of the event.
func (m slotMaterializer) deleteAllSlots(ctx context.Context, tx persistence.SlotRepository, eventID string) error {
	return tx.DeleteSlotsForEvent(ctx, eventID)
}
