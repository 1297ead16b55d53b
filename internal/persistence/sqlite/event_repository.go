package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/calendar-slots/internal/persistence"
	"github.com/example/calendar-slots/internal/recurrence"
)

// CreateEvent inserts the event and its guest list.
func (s *Store) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return s.atomically(ctx, func(q querier) error {
		query := `
			INSERT INTO events (
				id, organizer_id, organizer_email, title, location, description,
				` + spanColumns + `,
				frequency, step, weekly_days, monthly_type, duration, until_date, occurrence_count,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		args := []any{event.ID, event.OrganizerID, event.OrganizerEmail, event.Title, event.Location, event.Description}
		args = append(args, spanArgs(event.Span)...)
		args = append(args, ruleArgs(event.Rule)...)
		args = append(args, formatInstant(event.CreatedAt), formatInstant(event.UpdatedAt))

		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return s.mapper.MapError(err)
		}
		return s.mapper.MapError(insertGuests(ctx, q, "event_guests", "event_id", event.ID, event.GuestEmails))
	})
}

// UpdateEvent rewrites every mutable column and the guest list. The organizer
// and creation time are preserved.
func (s *Store) UpdateEvent(ctx context.Context, event persistence.Event) error {
	return s.atomically(ctx, func(q querier) error {
		query := `
			UPDATE events SET
				organizer_email = ?, title = ?, location = ?, description = ?,
				kind = ?, start_date = ?, end_date = ?, start_time = ?, end_time = ?, start_zone = ?, end_zone = ?,
				frequency = ?, step = ?, weekly_days = ?, monthly_type = ?, duration = ?, until_date = ?, occurrence_count = ?,
				updated_at = ?
			WHERE id = ?
		`
		args := []any{event.OrganizerEmail, event.Title, event.Location, event.Description}
		args = append(args, spanArgs(event.Span)...)
		args = append(args, ruleArgs(event.Rule)...)
		args = append(args, formatInstant(event.UpdatedAt), event.ID)

		result, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return s.mapper.MapError(err)
		}
		if err := requireAffected(result); err != nil {
			return err
		}

		if _, err := q.ExecContext(ctx, "DELETE FROM event_guests WHERE event_id = ?", event.ID); err != nil {
			return s.mapper.MapError(err)
		}
		return s.mapper.MapError(insertGuests(ctx, q, "event_guests", "event_id", event.ID, event.GuestEmails))
	})
}

// GetEvent retrieves an event with its guest list.
func (s *Store) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	query := `
		SELECT
			id, organizer_id, organizer_email, title, location, description,
			` + spanColumns + `,
			frequency, step, weekly_days, monthly_type, duration, until_date, occurrence_count,
			created_at, updated_at
		FROM events
		WHERE id = ?
	`

	var (
		event                                        persistence.Event
		span                                         spanRow
		frequency, weeklyDays, monthlyType, duration string
		untilDate                                    sql.NullString
		createdAt, updatedAt                         string
	)
	targets := []any{&event.ID, &event.OrganizerID, &event.OrganizerEmail, &event.Title, &event.Location, &event.Description}
	targets = append(targets, span.targets()...)
	targets = append(targets, &frequency, &event.Rule.Step, &weeklyDays, &monthlyType, &duration, &untilDate, &event.Rule.OccurrenceCount)
	targets = append(targets, &createdAt, &updatedAt)

	if err := s.q.QueryRowContext(ctx, query, id).Scan(targets...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Event{}, persistence.ErrNotFound
		}
		return persistence.Event{}, s.mapper.MapError(err)
	}

	var err error
	if event.Span, err = span.span(); err != nil {
		return persistence.Event{}, err
	}
	event.Rule.Frequency = recurrence.Frequency(frequency)
	event.Rule.MonthlyType = recurrence.MonthlyType(monthlyType)
	event.Rule.Duration = recurrence.Duration(duration)
	if event.Rule.WeeklyDays, err = decodeWeekdays(weeklyDays); err != nil {
		return persistence.Event{}, err
	}
	if untilDate.Valid {
		end, err := parseDate(untilDate.String)
		if err != nil {
			return persistence.Event{}, err
		}
		event.Rule.EndDate = &end
	}
	if event.CreatedAt, err = parseInstant(createdAt); err != nil {
		return persistence.Event{}, err
	}
	if event.UpdatedAt, err = parseInstant(updatedAt); err != nil {
		return persistence.Event{}, err
	}

	event.GuestEmails, err = s.eventGuests(ctx, id)
	if err != nil {
		return persistence.Event{}, err
	}
	return event, nil
}

// DeleteEvent removes the event; its slots and guest rows go with it through
// ON DELETE CASCADE.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return s.mapper.MapError(err)
	}
	return requireAffected(result)
}

func (s *Store) eventGuests(ctx context.Context, eventID string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT email FROM event_guests WHERE event_id = ? ORDER BY position", eventID)
	if err != nil {
		return nil, s.mapper.MapError(err)
	}
	defer rows.Close()

	var guests []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, s.mapper.MapError(err)
		}
		guests = append(guests, email)
	}
	return guests, s.mapper.MapError(rows.Err())
}

func ruleArgs(rule recurrence.Rule) []any {
	var until sql.NullString
	if rule.EndDate != nil {
		until = sql.NullString{String: formatDate(recurrence.CivilDate(*rule.EndDate)), Valid: true}
	}
	frequency := rule.Frequency
	if frequency == "" {
		frequency = recurrence.FrequencyNever
	}
	return []any{
		string(frequency),
		rule.Step,
		encodeWeekdays(rule.WeeklyDays),
		string(rule.MonthlyType),
		string(rule.Duration),
		until,
		rule.OccurrenceCount,
	}
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
