package application

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/example/calendar-slots/internal/persistence"
	"github.com/example/calendar-slots/internal/recurrence"
)

var errEmptyZone = errors.New("empty time zone")

func loadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errEmptyZone
	}
	return time.LoadLocation(name)
}

// zoneOrUTC resolves a zone that already passed validation.
func zoneOrUTC(name string) *time.Location {
	loc, err := loadZone(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Equal reports whether two spans describe the same window.
func (s Span) Equal(other Span) bool {
	if s.Kind != other.Kind {
		return false
	}
	if s.Kind == KindDay {
		return s.Day.StartDate.Equal(other.Day.StartDate) && s.Day.EndDate.Equal(other.Day.EndDate)
	}
	return s.Time.Start.Equal(other.Time.Start) &&
		s.Time.End.Equal(other.Time.End) &&
		s.Time.StartZone == other.Time.StartZone &&
		s.Time.EndZone == other.Time.EndZone
}

// Start returns the first instant of the span. Day spans start at midnight UTC
// of their start date.
func (s Span) Start() time.Time {
	if s.Kind == KindTime {
		return s.Time.Start
	}
	return s.Day.StartDate
}

// anchorStartOf returns the span start in the wall clock the generator steps
// in: UTC civil midnight for day spans, the start zone for time spans.
func anchorStartOf(span Span) time.Time {
	if span.Kind == KindTime {
		return span.Time.Start.In(zoneOrUTC(span.Time.StartZone))
	}
	return span.Day.StartDate
}

func generatorSpan(span Span) recurrence.Span {
	if span.Kind == KindTime {
		loc := zoneOrUTC(span.Time.StartZone)
		return recurrence.Span{Start: span.Time.Start.In(loc), End: span.Time.End.In(loc)}
	}
	return recurrence.Span{Start: span.Day.StartDate, End: span.Day.EndDate}
}

// expandOccurrences runs the generator over the anchor and converts the
// occurrences back into spans of the anchor's kind and zones.
func expandOccurrences(anchor Span, rule recurrence.Rule) ([]Span, error) {
	occurrences, err := recurrence.Generate(generatorSpan(anchor), rule)
	if err != nil {
		return nil, err
	}
	out := make([]Span, 0, len(occurrences))
	for _, occ := range occurrences {
		span := Span{Kind: anchor.Kind}
		if anchor.Kind == KindTime {
			span.Time = TimeSpan{
				Start:     occ.Start.UTC(),
				End:       occ.End.UTC(),
				StartZone: anchor.Time.StartZone,
				EndZone:   anchor.Time.EndZone,
			}
		} else {
			span.Day = DaySpan{
				StartDate: recurrence.CivilDate(occ.Start),
				EndDate:   recurrence.CivilDate(occ.End),
			}
		}
		out = append(out, span)
	}
	return out, nil
}

func toRecordSpan(span Span) persistence.Span {
	if span.Kind == KindTime {
		return persistence.Span{
			Kind:      persistence.KindTime,
			StartDate: recurrence.CivilDate(span.Time.Start.In(zoneOrUTC(span.Time.StartZone))),
			EndDate:   recurrence.CivilDate(span.Time.End.In(zoneOrUTC(span.Time.EndZone))),
			StartTime: span.Time.Start.UTC(),
			EndTime:   span.Time.End.UTC(),
			StartZone: span.Time.StartZone,
			EndZone:   span.Time.EndZone,
		}
	}
	return persistence.Span{
		Kind:      persistence.KindDay,
		StartDate: span.Day.StartDate,
		EndDate:   span.Day.EndDate,
	}
}

func fromRecordSpan(record persistence.Span) Span {
	if record.Kind == persistence.KindTime {
		return Span{Kind: KindTime, Time: TimeSpan{
			Start:     record.StartTime.UTC(),
			End:       record.EndTime.UTC(),
			StartZone: record.StartZone,
			EndZone:   record.EndZone,
		}}
	}
	return Span{Kind: KindDay, Day: DaySpan{
		StartDate: recurrence.CivilDate(record.StartDate),
		EndDate:   recurrence.CivilDate(record.EndDate),
	}}
}

func toEventRecord(event Event) persistence.Event {
	return persistence.Event{
		ID:             event.ID,
		OrganizerID:    event.OrganizerID,
		OrganizerEmail: event.OrganizerEmail,
		Title:          event.Title,
		Location:       event.Location,
		Description:    event.Description,
		GuestEmails:    slices.Clone(event.GuestEmails),
		Span:           toRecordSpan(event.Span),
		Rule:           event.Recurrence,
		CreatedAt:      event.CreatedAt,
		UpdatedAt:      event.UpdatedAt,
	}
}

func fromEventRecord(record persistence.Event) Event {
	rule := record.Rule
	if !rule.Repeats() {
		rule = recurrence.Never()
	}
	return Event{
		ID:             record.ID,
		OrganizerID:    record.OrganizerID,
		OrganizerEmail: record.OrganizerEmail,
		Title:          record.Title,
		Location:       record.Location,
		Description:    record.Description,
		GuestEmails:    sortedGuests(record.GuestEmails),
		Span:           fromRecordSpan(record.Span),
		Recurrence:     rule,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}
}

func toSlotRecord(slot Slot) persistence.Slot {
	return persistence.Slot{
		ID:          slot.ID,
		EventID:     slot.EventID,
		Title:       slot.Title,
		Location:    slot.Location,
		Description: slot.Description,
		GuestEmails: slices.Clone(slot.GuestEmails),
		Span:        toRecordSpan(slot.Span),
		CreatedAt:   slot.CreatedAt,
		UpdatedAt:   slot.UpdatedAt,
	}
}

func fromSlotRecord(record persistence.Slot) Slot {
	return Slot{
		ID:          record.ID,
		EventID:     record.EventID,
		Title:       record.Title,
		Location:    record.Location,
		Description: record.Description,
		GuestEmails: sortedGuests(record.GuestEmails),
		Span:        fromRecordSpan(record.Span),
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func fromSlotRecords(records []persistence.Slot) []Slot {
	if len(records) == 0 {
		return nil
	}
	out := make([]Slot, 0, len(records))
	for _, record := range records {
		out = append(out, fromSlotRecord(record))
	}
	return out
}
