package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/calendar-slots/internal/notification"
	"github.com/example/calendar-slots/internal/persistence"
	"github.com/example/calendar-slots/internal/recurrence"
)

// Sweep job names reported to a SweepObserver.
const (
	JobDayReminders  = "day_reminders"
	JobTimeReminders = "time_reminders"
)

// TimeReminderLead is both the lead time of time-event reminders and the
// cadence of the time sweep.
const TimeReminderLead = 30 * time.Minute

// ReminderStore is the read side the sweeps need.
type ReminderStore interface {
	GetEvent(ctx context.Context, id string) (persistence.Event, error)
	ListDaySlotsStartingOn(ctx context.Context, date time.Time) ([]persistence.Slot, error)
	ListTimeSlotsStartingBetween(ctx context.Context, from, to time.Time) ([]persistence.Slot, error)
}

// SweepObserver is told about every completed sweep.
type SweepObserver interface {
	SweepCompleted(job string, matched int, err error, elapsed time.Duration)
}

// ReminderService finds slots that start soon and hands one reminder per
// slot to the notifier. Sweeps take the current instant as a parameter.
type ReminderService struct {
	store     ReminderStore
	notifier  Notifier
	reference *time.Location
	logger    *slog.Logger
	observer  SweepObserver
}

// NewReminderService constructs a reminder service. reference is the zone in
// which "tomorrow" is evaluated for day events; nil means UTC.
func NewReminderService(store ReminderStore, notifier Notifier, reference *time.Location) *ReminderService {
	return NewReminderServiceWithLogger(store, notifier, reference, nil)
}

// NewReminderServiceWithLogger constructs a reminder service with a specified logger.
func NewReminderServiceWithLogger(store ReminderStore, notifier Notifier, reference *time.Location, logger *slog.Logger) *ReminderService {
	if reference == nil {
		reference = time.UTC
	}
	return &ReminderService{
		store:     store,
		notifier:  notifier,
		reference: reference,
		logger:    defaultLogger(logger),
	}
}

// WithObserver registers a sweep observer and returns the service.
func (s *ReminderService) WithObserver(observer SweepObserver) *ReminderService {
	s.observer = observer
	return s
}

func (s *ReminderService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReminderService", operation, attrs...)
}

// NotifyDayEvents reminds about day slots starting tomorrow, judged by the
// reference zone's calendar at now. It returns the number of slots matched.
func (s *ReminderService) NotifyDayEvents(ctx context.Context, now time.Time) (int, error) {
	tomorrow := recurrence.CivilDate(now.In(s.reference)).AddDate(0, 0, 1)
	logger := s.loggerWith(ctx, "NotifyDayEvents", "date", tomorrow.Format(time.DateOnly))

	return s.sweep(ctx, logger, JobDayReminders, func() ([]persistence.Slot, error) {
		return s.store.ListDaySlotsStartingOn(ctx, tomorrow)
	})
}

// TimeReminderTarget returns the slot start instant a time sweep at now
// looks for: now rounded to the nearest half hour, plus the lead time.
func TimeReminderTarget(now time.Time) time.Time {
	return now.UTC().Round(TimeReminderLead).Add(TimeReminderLead)
}

// NotifyTimeEvents reminds about time slots whose UTC start lies in
// [target, target+30m), target being TimeReminderTarget(now). Consecutive
// sweeps therefore cover disjoint windows.
func (s *ReminderService) NotifyTimeEvents(ctx context.Context, now time.Time) (int, error) {
	from := TimeReminderTarget(now)
	to := from.Add(TimeReminderLead)
	logger := s.loggerWith(ctx, "NotifyTimeEvents", "from", from, "to", to)

	return s.sweep(ctx, logger, JobTimeReminders, func() ([]persistence.Slot, error) {
		return s.store.ListTimeSlotsStartingBetween(ctx, from, to)
	})
}

// sweep runs the query and dispatches reminders. A query failure aborts the
// sweep; a problem with one slot only skips that slot.
func (s *ReminderService) sweep(ctx context.Context, logger *slog.Logger, job string, query func() ([]persistence.Slot, error)) (matched int, err error) {
	started := time.Now()
	defer func() {
		if s.observer != nil {
			s.observer.SweepCompleted(job, matched, err, time.Since(started))
		}
		if err != nil {
			logger.ErrorContext(ctx, "reminder sweep failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("matched", matched).InfoContext(ctx, "reminder sweep completed")
	}()

	if s.store == nil {
		err = fmt.Errorf("reminder store not configured")
		return
	}

	var records []persistence.Slot
	records, err = query()
	if err != nil {
		err = fmt.Errorf("query slots: %w", mapEventRepoError(err))
		return
	}
	matched = len(records)

	events := make(map[string]*persistence.Event)
	for _, record := range records {
		event, ok := events[record.EventID]
		if !ok {
			loaded, lookupErr := s.store.GetEvent(ctx, record.EventID)
			if lookupErr != nil {
				logger.WarnContext(ctx, "skipping slot without event", "slot_id", record.ID, "error", lookupErr)
			} else {
				event = &loaded
			}
			events[record.EventID] = event
		}
		if event == nil {
			continue
		}
		s.remind(ctx, fromSlotRecord(record), event.OrganizerEmail)
	}
	return
}

func (s *ReminderService) remind(ctx context.Context, slot Slot, organizerEmail string) {
	if s.notifier == nil {
		return
	}
	reminder := notification.Reminder{
		SlotID:       slot.ID,
		EventID:      slot.EventID,
		Recipients:   recipientsFor(organizerEmail, slot.GuestEmails),
		Title:        slot.Title,
		Location:     slot.Location,
		Description:  slot.Description,
		ScheduledFor: slot.Span.Start(),
	}
	if slot.Span.Kind == KindDay {
		reminder.AllDay = true
		reminder.Start = slot.Span.Day.StartDate
		reminder.End = slot.Span.Day.EndDate
	} else {
		reminder.Start = slot.Span.Time.Start
		reminder.End = slot.Span.Time.End
		reminder.StartZone = slot.Span.Time.StartZone
	}
	s.notifier.SendReminder(ctx, reminder)
}
