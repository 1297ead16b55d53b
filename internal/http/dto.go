package http

import (
	"strings"
	"time"

	"github.com/example/calendar-slots/internal/application"
	"github.com/example/calendar-slots/internal/recurrence"
)

const (
	dateLayout = "2006-01-02"
	// Wall-clock values carry no offset; the zone comes from start_zone/end_zone.
	wallLayout      = "2006-01-02T15:04:05"
	shortWallLayout = "2006-01-02T15:04"
)

// fieldParser collects per-field parse failures.
type fieldParser struct {
	errors map[string]string
}

func (p *fieldParser) fail(field, message string) {
	if p.errors == nil {
		p.errors = make(map[string]string)
	}
	if _, ok := p.errors[field]; !ok {
		p.errors[field] = message
	}
}

func (p *fieldParser) date(field string, value *string) *time.Time {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(*value))
	if err != nil {
		p.fail(field, "must be a date in YYYY-MM-DD format")
		return nil
	}
	return &t
}

func (p *fieldParser) wallClock(field string, value *string) *time.Time {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	for _, layout := range []string{wallLayout, shortWallLayout} {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return &t
		}
	}
	p.fail(field, "must be a local date-time in YYYY-MM-DDTHH:MM[:SS] format")
	return nil
}

type spanRequest struct {
	Kind      string  `json:"kind"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Start     *string `json:"start"`
	End       *string `json:"end"`
	StartZone *string `json:"start_zone"`
	EndZone   *string `json:"end_zone"`
}

func (r spanRequest) toInput(p *fieldParser) application.SpanInput {
	return application.SpanInput{
		Kind:      application.EventKind(strings.ToLower(strings.TrimSpace(r.Kind))),
		StartDate: p.date("span.start_date", r.StartDate),
		EndDate:   p.date("span.end_date", r.EndDate),
		StartTime: p.wallClock("span.start_time", r.Start),
		EndTime:   p.wallClock("span.end_time", r.End),
		StartZone: r.StartZone,
		EndZone:   r.EndZone,
	}
}

type recurrenceRequest struct {
	Frequency       string   `json:"frequency"`
	Step            *int     `json:"step"`
	WeeklyDays      []string `json:"weekly_days"`
	MonthlyType     string   `json:"monthly_type"`
	Duration        string   `json:"duration"`
	EndDate         *string  `json:"end_date"`
	OccurrenceCount *int     `json:"occurrence_count"`
}

func (r *recurrenceRequest) toInput(p *fieldParser) *application.RecurrenceInput {
	if r == nil {
		return nil
	}
	return &application.RecurrenceInput{
		Frequency:       r.Frequency,
		Step:            r.Step,
		WeeklyDays:      append([]string(nil), r.WeeklyDays...),
		MonthlyType:     r.MonthlyType,
		Duration:        r.Duration,
		EndDate:         p.date("recurrence.end_date", r.EndDate),
		OccurrenceCount: r.OccurrenceCount,
	}
}

type spanDTO struct {
	Kind      string `json:"kind"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Start     string `json:"start,omitempty"`
	End       string `json:"end,omitempty"`
	StartZone string `json:"start_zone,omitempty"`
	EndZone   string `json:"end_zone,omitempty"`
}

func toSpanDTO(span application.Span) spanDTO {
	if span.Kind == application.KindDay {
		return spanDTO{
			Kind:      string(span.Kind),
			StartDate: span.Day.StartDate.Format(dateLayout),
			EndDate:   span.Day.EndDate.Format(dateLayout),
		}
	}

	dto := spanDTO{
		Kind:      string(span.Kind),
		Start:     span.Time.Start.UTC().Format(time.RFC3339),
		End:       span.Time.End.UTC().Format(time.RFC3339),
		StartZone: span.Time.StartZone,
		EndZone:   span.Time.EndZone,
	}
	dto.StartDate = localDate(span.Time.Start, span.Time.StartZone)
	dto.EndDate = localDate(span.Time.End, span.Time.EndZone)
	return dto
}

func localDate(instant time.Time, zone string) string {
	if location, err := time.LoadLocation(zone); err == nil {
		instant = instant.In(location)
	}
	return instant.Format(dateLayout)
}

type recurrenceDTO struct {
	Frequency       string   `json:"frequency"`
	Step            int      `json:"step,omitempty"`
	WeeklyDays      []string `json:"weekly_days,omitempty"`
	MonthlyType     string   `json:"monthly_type,omitempty"`
	Duration        string   `json:"duration,omitempty"`
	EndDate         string   `json:"end_date,omitempty"`
	OccurrenceCount int      `json:"occurrence_count,omitempty"`
}

var weekdayCodes = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

func toRecurrenceDTO(rule recurrence.Rule) recurrenceDTO {
	if !rule.Repeats() {
		return recurrenceDTO{Frequency: string(recurrence.FrequencyNever)}
	}

	dto := recurrenceDTO{
		Frequency:       string(rule.Frequency),
		Step:            rule.Step,
		MonthlyType:     string(rule.MonthlyType),
		Duration:        string(rule.Duration),
		OccurrenceCount: rule.OccurrenceCount,
	}
	for _, day := range recurrence.SortedWeekdays(rule.WeeklyDays) {
		dto.WeeklyDays = append(dto.WeeklyDays, weekdayCodes[day])
	}
	if rule.EndDate != nil {
		dto.EndDate = rule.EndDate.Format(dateLayout)
	}
	return dto
}

type eventDTO struct {
	ID             string        `json:"id"`
	OrganizerID    string        `json:"organizer_id"`
	OrganizerEmail string        `json:"organizer_email,omitempty"`
	Title          string        `json:"title"`
	Location       string        `json:"location"`
	Description    string        `json:"description"`
	GuestEmails    []string      `json:"guest_emails"`
	Span           spanDTO       `json:"span"`
	Recurrence     recurrenceDTO `json:"recurrence"`
	CreatedAt      string        `json:"created_at"`
	UpdatedAt      string        `json:"updated_at"`
}

func toEventDTO(event application.Event) eventDTO {
	return eventDTO{
		ID:             event.ID,
		OrganizerID:    event.OrganizerID,
		OrganizerEmail: event.OrganizerEmail,
		Title:          event.Title,
		Location:       event.Location,
		Description:    event.Description,
		GuestEmails:    nonNil(event.GuestEmails),
		Span:           toSpanDTO(event.Span),
		Recurrence:     toRecurrenceDTO(event.Recurrence),
		CreatedAt:      event.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      event.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type slotDTO struct {
	ID          string   `json:"id"`
	EventID     string   `json:"event_id"`
	Title       string   `json:"title"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	GuestEmails []string `json:"guest_emails"`
	Span        spanDTO  `json:"span"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

func toSlotDTO(slot application.Slot) slotDTO {
	return slotDTO{
		ID:          slot.ID,
		EventID:     slot.EventID,
		Title:       slot.Title,
		Location:    slot.Location,
		Description: slot.Description,
		GuestEmails: nonNil(slot.GuestEmails),
		Span:        toSpanDTO(slot.Span),
		CreatedAt:   slot.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   slot.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toSlotDTOs(slots []application.Slot) []slotDTO {
	out := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		out = append(out, toSlotDTO(slot))
	}
	return out
}

type slotListResponse struct {
	Slots []slotDTO `json:"slots"`
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
