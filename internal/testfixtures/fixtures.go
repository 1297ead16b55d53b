package testfixtures

import (
	"time"

	"github.com/example/calendar-slots/internal/application"
)

var referenceTime = time.Date(2024, time.October, 10, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Date returns the civil date at midnight UTC.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Wall returns a wall-clock value; the location is ignored by span inputs.
func Wall(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// EventOption configures a generated event input.
type EventOption func(*application.CreateEventInput)

// DayEventInput returns a non-repeating one-day event on the given date.
func DayEventInput(date time.Time, opts ...EventOption) application.CreateEventInput {
	input := application.CreateEventInput{
		OrganizerEmail: "organizer@example.com",
		Title:          "Planning",
		Location:       "Room 1",
		Span: application.SpanInput{
			Kind:      application.KindDay,
			StartDate: Ptr(date),
			EndDate:   Ptr(date),
		},
	}
	for _, opt := range opts {
		opt(&input)
	}
	return input
}

// TimeEventInput returns a non-repeating event from start for length, with
// start read as a wall clock in zone.
func TimeEventInput(start time.Time, length time.Duration, zone string, opts ...EventOption) application.CreateEventInput {
	input := application.CreateEventInput{
		OrganizerEmail: "organizer@example.com",
		Title:          "Standup",
		Location:       "Room 2",
		Span: application.SpanInput{
			Kind:      application.KindTime,
			StartTime: Ptr(start),
			EndTime:   Ptr(start.Add(length)),
			StartZone: Ptr(zone),
		},
	}
	for _, opt := range opts {
		opt(&input)
	}
	return input
}

// WithTitle overrides the title.
func WithTitle(title string) EventOption {
	return func(in *application.CreateEventInput) {
		in.Title = title
	}
}

// WithGuests sets the guest e-mails.
func WithGuests(emails ...string) EventOption {
	return func(in *application.CreateEventInput) {
		in.GuestEmails = emails
	}
}

// WithOrganizerEmail overrides the organizer address; empty removes it.
func WithOrganizerEmail(email string) EventOption {
	return func(in *application.CreateEventInput) {
		in.OrganizerEmail = email
	}
}

// WithEndDate extends a day event to end on date.
func WithEndDate(date time.Time) EventOption {
	return func(in *application.CreateEventInput) {
		in.Span.EndDate = Ptr(date)
	}
}

// WithRecurrence attaches a recurrence block.
func WithRecurrence(rec application.RecurrenceInput) EventOption {
	return func(in *application.CreateEventInput) {
		in.Recurrence = &rec
	}
}

// Weekly returns a weekly recurrence on days that stops after count occurrences.
func Weekly(count int, days ...string) application.RecurrenceInput {
	return application.RecurrenceInput{
		Frequency:       "WEEKLY",
		WeeklyDays:      days,
		OccurrenceCount: Ptr(count),
	}
}

// Daily returns a daily recurrence that stops after count occurrences.
func Daily(count int) application.RecurrenceInput {
	return application.RecurrenceInput{
		Frequency:       "DAILY",
		OccurrenceCount: Ptr(count),
	}
}

// MonthlySameDay returns a monthly recurrence keeping the day of month.
func MonthlySameDay(count int) application.RecurrenceInput {
	return application.RecurrenceInput{
		Frequency:       "MONTHLY",
		MonthlyType:     "SAME_DAY",
		OccurrenceCount: Ptr(count),
	}
}
