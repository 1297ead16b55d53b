package application

import (
	"time"

	"github.com/example/calendar-slots/internal/recurrence"
)

// EventKind distinguishes whole-day events from zoned time events.
type EventKind string

const (
	// KindDay events span inclusive civil dates.
	KindDay EventKind = "day"
	// KindTime events span instants anchored to IANA zones.
	KindTime EventKind = "time"
)

// Valid reports whether k is a supported kind.
func (k EventKind) Valid() bool {
	return k == KindDay || k == KindTime
}

// DaySpan holds inclusive civil dates at midnight UTC.
type DaySpan struct {
	StartDate time.Time
	EndDate   time.Time
}

// TimeSpan holds UTC instants together with the zones they were expressed in.
type TimeSpan struct {
	Start     time.Time
	End       time.Time
	StartZone string
	EndZone   string
}

// Span is the occurrence window of an event or slot. Exactly one of Day and
// Time is meaningful, selected by Kind.
type Span struct {
	Kind EventKind
	Day  DaySpan
	Time TimeSpan
}

// Event is a single or recurring series owned by an organizer.
type Event struct {
	ID             string
	OrganizerID    string
	OrganizerEmail string
	Title          string
	Location       string
	Description    string
	GuestEmails    []string
	Span           Span
	Recurrence     recurrence.Rule
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

// SpanInput captures caller provided span fields.
//
// Day events use StartDate and EndDate; only their calendar date is read.
// Time events use StartTime and EndTime as wall-clock values in StartZone and
// EndZone respectively; the location carried by the time.Time is ignored.
// EndZone defaults to StartZone.
type SpanInput struct {
	Kind      EventKind
	StartDate *time.Time
	EndDate   *time.Time
	StartTime *time.Time
	EndTime   *time.Time
	StartZone *string
	EndZone   *string
}

// RecurrenceInput captures caller provided recurrence fields before
// normalization. An empty Frequency means NEVER.
type RecurrenceInput struct {
	Frequency string
	Step      *int
	// WeeklyDays accepts full English weekday names or two-letter
	// abbreviations, case-insensitively.
	WeeklyDays      []string
	MonthlyType     string
	Duration        string
	EndDate         *time.Time
	OccurrenceCount *int
}

// CreateEventInput captures caller provided event fields.
type CreateEventInput struct {
	OrganizerEmail string
	Title          string
	Location       string
	Description    string
	GuestEmails    []string
	Span           SpanInput
	Recurrence     *RecurrenceInput
}

// UpdateEventInput lists the fields to change. Nil fields keep their current
// value. A non-nil Recurrence replaces the whole rule.
type UpdateEventInput struct {
	Title       *string
	Location    *string
	Description *string
	GuestEmails *[]string
	Span        *SpanInput
	Recurrence  *RecurrenceInput
}
