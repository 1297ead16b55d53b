package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/calendar-slots/internal/notification"
	"github.com/example/calendar-slots/internal/persistence"
	"github.com/example/calendar-slots/internal/recurrence"
)

// Notifier hands messages to the notification collaborator. Calls return
// immediately; delivery outcomes are not reported back.
type Notifier interface {
	SendInvitation(ctx context.Context, invitation notification.Invitation)
	SendReminder(ctx context.Context, reminder notification.Reminder)
}

// SlotObserver is told how many slots each materialization produced.
type SlotObserver interface {
	SlotsMaterialized(count int)
}

// EventService creates, reconciles and deletes events together with their
// materialized slots.
type EventService struct {
	store        persistence.Store
	notifier     Notifier
	materializer slotMaterializer
	now          func() time.Time
	logger       *slog.Logger
	observer     SlotObserver
}

// NewEventService constructs an event service with the provided dependencies.
func NewEventService(store persistence.Store, notifier Notifier, idGenerator func() string, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(store, notifier, idGenerator, now, nil)
}

// NewEventServiceWithLogger constructs an event service with a specified logger.
func NewEventServiceWithLogger(store persistence.Store, notifier Notifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		store:        store,
		notifier:     notifier,
		materializer: slotMaterializer{idGenerator: idGenerator, now: now},
		now:          now,
		logger:       defaultLogger(logger),
	}
}

// WithObserver registers an observer for slot materialization and returns the service.
func (s *EventService) WithObserver(observer SlotObserver) *EventService {
	s.observer = observer
	return s
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// CreateEvent validates the request, expands the recurrence and stores the
// event with all of its slots in one transaction. Guests receive a single
// invitation describing the whole series.
func (s *EventService) CreateEvent(ctx context.Context, organizerID string, input CreateEventInput) (eventID string, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("event store not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateEvent", "organizer_id", organizerID)
	var slotCount int
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("event_id", eventID, "slot_count", slotCount).InfoContext(ctx, "event created")
	}()

	if organizerID == "" {
		vErr := &ValidationError{}
		vErr.add("organizer_id", "organizer is required")
		err = vErr
		return
	}

	var draft eventDraft
	draft, err = normalizeCreate(input)
	if err != nil {
		return
	}

	var occurrences []Span
	occurrences, err = expandOccurrences(draft.Span, draft.Rule)
	if err != nil {
		err = ruleValidationError(err)
		return
	}

	now := s.now()
	event := Event{
		ID:             s.materializer.idGenerator(),
		OrganizerID:    organizerID,
		OrganizerEmail: draft.OrganizerEmail,
		Title:          draft.Title,
		Location:       draft.Location,
		Description:    draft.Description,
		GuestEmails:    draft.GuestEmails,
		Span:           draft.Span,
		Recurrence:     draft.Rule,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.store.WithinTransaction(ctx, func(tx persistence.Store) error {
		if err := tx.CreateEvent(ctx, toEventRecord(event)); err != nil {
			return err
		}
		slots, err := s.materializer.createSlots(ctx, tx, event.ID, occurrences, sharedFieldsOf(event))
		slotCount = len(slots)
		return err
	})
	if err != nil {
		err = mapEventRepoError(err)
		return
	}

	eventID = event.ID
	s.observeSlots(slotCount)
	s.inviteToSeries(ctx, logger, event, event.GuestEmails, slotCount)
	return
}

// UpdateEvent merges the request onto the stored event. When the anchor span
// or recurrence changes the slots are regenerated from scratch; otherwise the
// cosmetic fields present in the request are written onto every existing slot
// and slot ids are kept.
func (s *EventService) UpdateEvent(ctx context.Context, organizerID, eventID string, input UpdateEventInput) (err error) {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if s.store == nil {
		return fmt.Errorf("event store not configured")
	}

	logger := s.loggerWith(ctx, "UpdateEvent", "organizer_id", organizerID, "event_id", eventID)
	var (
		updated     Event
		regenerated bool
		slotCount   int
		newGuests   []string
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("regenerated", regenerated, "slot_count", slotCount).InfoContext(ctx, "event updated")
	}()

	err = s.store.WithinTransaction(ctx, func(tx persistence.Store) error {
		current, err := loadOwnedEvent(ctx, tx, organizerID, eventID)
		if err != nil {
			return err
		}

		draft, err := normalizeUpdate(current, input)
		if err != nil {
			return err
		}

		updated = current
		updated.Title = draft.Title
		updated.Location = draft.Location
		updated.Description = draft.Description
		updated.GuestEmails = draft.GuestEmails
		updated.Span = draft.Span
		updated.Recurrence = draft.Rule
		updated.UpdatedAt = s.now()

		regenerated = shapeChanged(current, updated)
		if !regenerated {
			if input.GuestEmails != nil {
				newGuests = addedGuests(current.GuestEmails, updated.GuestEmails)
			}
			slotCount, err = s.applyCosmetic(ctx, tx, updated, input)
			return err
		}

		occurrences, err := expandOccurrences(updated.Span, updated.Recurrence)
		if err != nil {
			return ruleValidationError(err)
		}
		if err := tx.UpdateEvent(ctx, toEventRecord(updated)); err != nil {
			return err
		}
		if err := s.materializer.deleteAllSlots(ctx, tx, eventID); err != nil {
			return err
		}
		slots, err := s.materializer.createSlots(ctx, tx, eventID, occurrences, sharedFieldsOf(updated))
		slotCount = len(slots)
		return err
	})
	if err != nil {
		err = mapEventRepoError(err)
		return
	}

	if regenerated {
		s.observeSlots(slotCount)
		s.inviteToSeries(ctx, logger, updated, updated.GuestEmails, slotCount)
		return
	}
	s.inviteToSeries(ctx, logger, updated, newGuests, slotCount)
	return
}

// applyCosmetic stores the event metadata and overwrites the requested
// cosmetic fields on every slot, leaving spans and ids untouched.
func (s *EventService) applyCosmetic(ctx context.Context, tx persistence.Store, event Event, input UpdateEventInput) (int, error) {
	if err := tx.UpdateEvent(ctx, toEventRecord(event)); err != nil {
		return 0, err
	}

	patch := persistence.SlotPatch{UpdatedAt: event.UpdatedAt}
	if input.Title != nil {
		patch.Title = &event.Title
	}
	if input.Location != nil {
		patch.Location = &event.Location
	}
	if input.Description != nil {
		patch.Description = &event.Description
	}
	if input.GuestEmails != nil {
		guests := event.GuestEmails
		patch.GuestEmails = &guests
	}
	if patch.Empty() {
		slots, err := tx.ListSlotsForEvent(ctx, event.ID)
		return len(slots), err
	}
	return tx.PatchSlotsForEvent(ctx, event.ID, patch)
}

// DeleteEvent removes the event and every slot it owns.
func (s *EventService) DeleteEvent(ctx context.Context, organizerID, eventID string) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if s.store == nil {
		return fmt.Errorf("event store not configured")
	}

	logger := s.loggerWith(ctx, "DeleteEvent", "organizer_id", organizerID, "event_id", eventID)

	err := s.store.WithinTransaction(ctx, func(tx persistence.Store) error {
		if _, err := loadOwnedEvent(ctx, tx, organizerID, eventID); err != nil {
			return err
		}
		if err := s.materializer.deleteAllSlots(ctx, tx, eventID); err != nil {
			return err
		}
		return tx.DeleteEvent(ctx, eventID)
	})
	if err != nil {
		err = mapEventRepoError(err)
		logger.ErrorContext(ctx, "failed to delete event", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "event deleted")
	return nil
}

// InviteGuestsToSlot adds guests to a single slot without touching its
// siblings. Only addresses that were not already invited receive an
// invitation. The updated slot is returned.
func (s *EventService) InviteGuestsToSlot(ctx context.Context, organizerID, slotID string, emails []string) (slot Slot, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("event store not configured")
		return
	}

	logger := s.loggerWith(ctx, "InviteGuestsToSlot", "organizer_id", organizerID, "slot_id", slotID)
	var (
		event Event
		added []string
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to invite guests", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("added", len(added)).InfoContext(ctx, "guests invited")
	}()

	vErr := &ValidationError{}
	incoming := normalizeGuests(emails, "emails", vErr)
	if len(emails) == 0 {
		vErr.add("emails", "at least one e-mail is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	err = s.store.WithinTransaction(ctx, func(tx persistence.Store) error {
		record, err := tx.GetSlot(ctx, slotID)
		if err != nil {
			return err
		}
		slot = fromSlotRecord(record)

		event, err = loadOwnedEvent(ctx, tx, organizerID, slot.EventID)
		if err != nil {
			return err
		}

		var merged []string
		merged, added = unionGuests(slot.GuestEmails, incoming)
		if len(added) == 0 {
			return nil
		}
		slot.GuestEmails = merged
		slot.UpdatedAt = s.now()
		return tx.UpdateSlotGuests(ctx, slot.ID, merged, slot.UpdatedAt)
	})
	if err != nil {
		err = mapEventRepoError(err)
		slot = Slot{}
		return
	}

	if len(added) > 0 && s.notifier != nil {
		s.notifier.SendInvitation(ctx, slotInvitation(event, slot, added, s.now()))
	}
	return
}

// GetEvent returns the event when it is owned by the organizer.
func (s *EventService) GetEvent(ctx context.Context, organizerID, eventID string) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	if s.store == nil {
		return Event{}, ErrNotFound
	}

	event, err := loadOwnedEvent(ctx, s.store, organizerID, eventID)
	if err != nil {
		err = mapEventRepoError(err)
		s.loggerWith(ctx, "GetEvent", "organizer_id", organizerID, "event_id", eventID).
			DebugContext(ctx, "event lookup failed", "error", err, "error_kind", ErrorKind(err))
		return Event{}, err
	}
	return event, nil
}

// FindSlotsByEvent returns the event's slots ordered by start.
func (s *EventService) FindSlotsByEvent(ctx context.Context, eventID string) ([]Slot, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}
	if s.store == nil {
		return nil, nil
	}

	records, err := s.store.ListSlotsForEvent(ctx, eventID)
	if err != nil {
		err = mapEventRepoError(err)
		s.loggerWith(ctx, "FindSlotsByEvent", "event_id", eventID).
			ErrorContext(ctx, "failed to list slots", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return fromSlotRecords(records), nil
}

// FindSlotsByOrganizerInRange returns the organizer's slots whose start date
// lies within the inclusive civil date range [from, to].
func (s *EventService) FindSlotsByOrganizerInRange(ctx context.Context, organizerID string, from, to time.Time) ([]Slot, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}
	if s.store == nil {
		return nil, nil
	}

	from, to = recurrence.CivilDate(from), recurrence.CivilDate(to)
	if to.Before(from) {
		vErr := &ValidationError{}
		vErr.add("to", "range end must not be before range start")
		return nil, vErr
	}

	records, err := s.store.ListSlotsForOrganizer(ctx, organizerID, from, to)
	if err != nil {
		err = mapEventRepoError(err)
		s.loggerWith(ctx, "FindSlotsByOrganizerInRange", "organizer_id", organizerID).
			ErrorContext(ctx, "failed to list slots", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return fromSlotRecords(records), nil
}

func (s *EventService) observeSlots(count int) {
	if s.observer != nil {
		s.observer.SlotsMaterialized(count)
	}
}

func (s *EventService) inviteToSeries(ctx context.Context, logger *slog.Logger, event Event, recipients []string, occurrences int) {
	if s.notifier == nil || len(recipients) == 0 {
		return
	}
	description, err := recurrence.Describe(event.Recurrence, anchorStartOf(event.Span))
	if err != nil {
		logger.WarnContext(ctx, "failed to describe recurrence", "error", err)
	}
	invitation := eventInvitation(event, recipients, s.now())
	invitation.Recurrence = description.RRule
	invitation.RecurrenceDates = description.ExtraDates
	invitation.Occurrences = occurrences
	s.notifier.SendInvitation(ctx, invitation)
}

// loadOwnedEvent hides events owned by someone else behind ErrNotFound.
func loadOwnedEvent(ctx context.Context, repo persistence.EventRepository, organizerID, eventID string) (Event, error) {
	record, err := repo.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, err
	}
	if record.OrganizerID != organizerID {
		return Event{}, ErrNotFound
	}
	return fromEventRecord(record), nil
}

// shapeChanged reports whether the occurrence sequence may differ.
func shapeChanged(before, after Event) bool {
	return !before.Span.Equal(after.Span) || !before.Recurrence.Equal(after.Recurrence)
}

func eventInvitation(event Event, recipients []string, now time.Time) notification.Invitation {
	invitation := notification.Invitation{
		EventID:        event.ID,
		OrganizerEmail: event.OrganizerEmail,
		Recipients:     recipients,
		Title:          event.Title,
		Location:       event.Location,
		Description:    event.Description,
		SentAt:         now,
	}
	setInvitationSpan(&invitation, event.Span)
	return invitation
}

func slotInvitation(event Event, slot Slot, recipients []string, now time.Time) notification.Invitation {
	invitation := notification.Invitation{
		EventID:        event.ID,
		SlotID:         slot.ID,
		OrganizerEmail: event.OrganizerEmail,
		Recipients:     recipients,
		Title:          slot.Title,
		Location:       slot.Location,
		Description:    slot.Description,
		Occurrences:    1,
		SentAt:         now,
	}
	setInvitationSpan(&invitation, slot.Span)
	return invitation
}

func setInvitationSpan(invitation *notification.Invitation, span Span) {
	if span.Kind == KindDay {
		invitation.AllDay = true
		invitation.Start = span.Day.StartDate
		invitation.End = span.Day.EndDate
		return
	}
	invitation.Start = span.Time.Start
	invitation.End = span.Time.End
	invitation.StartZone = span.Time.StartZone
}

// ruleValidationError reports a generator rejection as a field error.
func ruleValidationError(err error) error {
	if errors.Is(err, recurrence.ErrInvalidRule) || errors.Is(err, recurrence.ErrInvalidSpan) {
		vErr := &ValidationError{}
		vErr.add("recurrence", ruleErrorMessage(err))
		return vErr
	}
	return err
}

func mapEventRepoError(err error) error {
	if err == nil {
		return nil
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrNotFound
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("event", "stored data violates a constraint")
		return vErr
	}
	return err
}
