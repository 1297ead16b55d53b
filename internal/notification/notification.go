// Package notification delivers invitations and reminders to guests. Callers
// hand messages to a Dispatcher, which delivers them through a Notifier on a
// bounded worker pool so that slow transports never block the caller.
package notification

import (
	"context"
	"errors"
	"time"
)

// ErrTransientDispatch marks a delivery failure that was logged and dropped.
var ErrTransientDispatch = errors.New("notification: transient dispatch failure")

// Invitation announces an event series, or a single slot when SlotID is set,
// to its guests.
type Invitation struct {
	EventID        string
	SlotID         string
	OrganizerEmail string
	Recipients     []string
	Title          string
	Location       string
	Description    string
	// AllDay invitations carry civil dates at midnight UTC in Start and End
	// (End inclusive); otherwise Start and End are instants.
	AllDay    bool
	Start     time.Time
	End       time.Time
	StartZone string
	// Recurrence is an RRULE value without the "RRULE:" prefix; empty for a
	// single occurrence.
	Recurrence string
	// RecurrenceDates are additional series starts sent as RDATE values.
	RecurrenceDates []time.Time
	Occurrences     int
	SentAt          time.Time
}

// Reminder announces one upcoming slot.
type Reminder struct {
	SlotID      string
	EventID     string
	Recipients  []string
	Title       string
	Location    string
	Description string
	AllDay      bool
	Start       time.Time
	End         time.Time
	StartZone   string
	// ScheduledFor is the sweep target the reminder belongs to. Together with
	// SlotID it identifies a reminder for de-duplication.
	ScheduledFor time.Time
}

// Notifier delivers messages over a transport. Implementations report
// per-recipient failures joined into one error.
type Notifier interface {
	NotifyInvitation(ctx context.Context, invitation Invitation) error
	NotifyReminder(ctx context.Context, reminder Reminder) error
}
