package persistence

import (
	"time"

	"github.com/example/calendar-slots/internal/recurrence"
)

// Kind distinguishes day events, which span whole civil dates, from time
// events, which span zoned instants.
type Kind string

const (
	KindDay  Kind = "day"
	KindTime Kind = "time"
)

// Span is the stored occurrence window shared by events and slots.
//
// StartDate and EndDate are civil dates at midnight UTC for both kinds; for
// time events they hold the local date in the respective zone. StartTime and
// EndTime are UTC instants and are zero for day events.
type Span struct {
	Kind      Kind
	StartDate time.Time
	EndDate   time.Time
	StartTime time.Time
	EndTime   time.Time
	StartZone string
	EndZone   string
}

// Event is the stored series definition: anchor span, recurrence rule and the
// cosmetic fields slots were created from.
type Event struct {
	ID             string
	OrganizerID    string
	OrganizerEmail string
	Title          string
	Location       string
	Description    string
	GuestEmails    []string
	Span           Span
	Rule           recurrence.Rule
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Slot is one materialized occurrence of an event.
type Slot struct {
	ID          string
	EventID     string
	Title       string
	Location    string
	Description string
	GuestEmails []string
	Span        Span
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SlotPatch lists the cosmetic fields to overwrite on every slot of an event.
// Nil fields are left untouched.
type SlotPatch struct {
	Title       *string
	Location    *string
	Description *string
	GuestEmails *[]string
	UpdatedAt   time.Time
}

// Empty reports whether the patch would change nothing.
func (p SlotPatch) Empty() bool {
	return p.Title == nil && p.Location == nil && p.Description == nil && p.GuestEmails == nil
}

// StartInstant orders spans of either kind on one timeline.
func (s Span) StartInstant() time.Time {
	if s.Kind == KindTime {
		return s.StartTime
	}
	return s.StartDate
}
