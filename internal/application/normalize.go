package application

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/calendar-slots/internal/recurrence"
)

// eventDraft is the normalized, validated state an event is about to take.
type eventDraft struct {
	OrganizerEmail string
	Title          string
	Location       string
	Description    string
	GuestEmails    []string
	Span           Span
	Rule           recurrence.Rule
}

// normalizeCreate turns a creation request into a draft. It never mutates
// the input.
func normalizeCreate(input CreateEventInput) (eventDraft, error) {
	vErr := &ValidationError{}

	draft := eventDraft{
		OrganizerEmail: strings.TrimSpace(input.OrganizerEmail),
		Title:          strings.TrimSpace(input.Title),
		Location:       strings.TrimSpace(input.Location),
		Description:    input.Description,
	}
	if draft.Title == "" {
		vErr.add("title", "title is required")
	}
	draft.GuestEmails = normalizeGuests(input.GuestEmails, "guest_emails", vErr)

	span, ok := normalizeSpan(input.Span, vErr)
	if ok {
		draft.Span = span
		draft.Rule = normalizeRecurrence(input.Recurrence, span, vErr)
	}

	if err := vErr.orNil(); err != nil {
		return eventDraft{}, err
	}
	return draft, nil
}

// normalizeUpdate merges the request onto the current event. Absent fields
// keep their current value; a present recurrence block is normalized as a
// whole against the merged anchor.
func normalizeUpdate(current Event, input UpdateEventInput) (eventDraft, error) {
	vErr := &ValidationError{}

	draft := eventDraft{
		OrganizerEmail: current.OrganizerEmail,
		Title:          current.Title,
		Location:       current.Location,
		Description:    current.Description,
		GuestEmails:    current.GuestEmails,
		Span:           current.Span,
		Rule:           current.Recurrence,
	}
	if input.Title != nil {
		draft.Title = strings.TrimSpace(*input.Title)
		if draft.Title == "" {
			vErr.add("title", "title is required")
		}
	}
	if input.Location != nil {
		draft.Location = strings.TrimSpace(*input.Location)
	}
	if input.Description != nil {
		draft.Description = *input.Description
	}
	if input.GuestEmails != nil {
		draft.GuestEmails = normalizeGuests(*input.GuestEmails, "guest_emails", vErr)
	}

	spanOK := true
	if input.Span != nil {
		draft.Span, spanOK = mergeSpan(current.Span, *input.Span, vErr)
	}
	if spanOK {
		if input.Recurrence != nil {
			draft.Rule = normalizeRecurrence(input.Recurrence, draft.Span, vErr)
		} else {
			checkRuleAgainstAnchor(draft.Rule, draft.Span, vErr)
		}
	}

	if err := vErr.orNil(); err != nil {
		return eventDraft{}, err
	}
	return draft, nil
}

func normalizeSpan(in SpanInput, vErr *ValidationError) (Span, bool) {
	switch in.Kind {
	case KindDay:
		if in.StartDate == nil {
			vErr.add("span.start_date", "start date is required")
		}
		if in.EndDate == nil {
			vErr.add("span.end_date", "end date is required")
		}
		if in.StartDate == nil || in.EndDate == nil {
			return Span{}, false
		}
		return checkDaySpan(DaySpan{
			StartDate: recurrence.CivilDate(*in.StartDate),
			EndDate:   recurrence.CivilDate(*in.EndDate),
		}, vErr)
	case KindTime:
		missing := false
		if in.StartTime == nil {
			vErr.add("span.start_time", "start time is required")
			missing = true
		}
		if in.EndTime == nil {
			vErr.add("span.end_time", "end time is required")
			missing = true
		}
		if in.StartZone == nil || strings.TrimSpace(*in.StartZone) == "" {
			vErr.add("span.start_zone", "start zone is required")
			missing = true
		}
		if missing {
			return Span{}, false
		}
		endZone := in.StartZone
		if in.EndZone != nil && strings.TrimSpace(*in.EndZone) != "" {
			endZone = in.EndZone
		}
		return buildTimeSpan(*in.StartTime, *in.EndTime, *in.StartZone, *endZone, vErr)
	case "":
		vErr.add("span.kind", "kind is required")
	default:
		vErr.add("span.kind", fmt.Sprintf("unsupported kind %q", in.Kind))
	}
	return Span{}, false
}

func mergeSpan(current Span, in SpanInput, vErr *ValidationError) (Span, bool) {
	if in.Kind != "" && in.Kind != current.Kind {
		vErr.add("span.kind", "kind cannot change")
		return Span{}, false
	}

	switch current.Kind {
	case KindDay:
		day := current.Day
		if in.StartDate != nil {
			day.StartDate = recurrence.CivilDate(*in.StartDate)
		}
		if in.EndDate != nil {
			day.EndDate = recurrence.CivilDate(*in.EndDate)
		}
		return checkDaySpan(day, vErr)
	case KindTime:
		startZone, endZone := current.Time.StartZone, current.Time.EndZone
		if in.StartZone != nil {
			startZone = strings.TrimSpace(*in.StartZone)
		}
		if in.EndZone != nil {
			endZone = strings.TrimSpace(*in.EndZone)
		}
		// Unchanged times keep their wall clock in the zone they were
		// entered in, so a zone change moves the instant.
		start := current.Time.Start.In(zoneOrUTC(current.Time.StartZone))
		end := current.Time.End.In(zoneOrUTC(current.Time.EndZone))
		if in.StartTime != nil {
			start = *in.StartTime
		}
		if in.EndTime != nil {
			end = *in.EndTime
		}
		return buildTimeSpan(start, end, startZone, endZone, vErr)
	}
	vErr.add("span.kind", fmt.Sprintf("unsupported kind %q", current.Kind))
	return Span{}, false
}

func checkDaySpan(day DaySpan, vErr *ValidationError) (Span, bool) {
	if day.EndDate.Before(day.StartDate) {
		vErr.add("span.end_date", "end date must not be before start date")
		return Span{}, false
	}
	return Span{Kind: KindDay, Day: day}, true
}

func buildTimeSpan(startWall, endWall time.Time, startZone, endZone string, vErr *ValidationError) (Span, bool) {
	startLoc, startErr := loadZone(startZone)
	if startErr != nil {
		vErr.add("span.start_zone", fmt.Sprintf("unknown time zone %q", startZone))
	}
	endLoc, endErr := loadZone(endZone)
	if endErr != nil {
		vErr.add("span.end_zone", fmt.Sprintf("unknown time zone %q", endZone))
	}
	if startErr != nil || endErr != nil {
		return Span{}, false
	}

	start := wallClockIn(startWall, startLoc).UTC()
	end := wallClockIn(endWall, endLoc).UTC()
	if !end.After(start) {
		vErr.add("span.end_time", "end time must be after start time")
		return Span{}, false
	}
	return Span{Kind: KindTime, Time: TimeSpan{
		Start:     start,
		End:       end,
		StartZone: startLoc.String(),
		EndZone:   endLoc.String(),
	}}, true
}

// wallClockIn reinterprets the wall clock of t in loc.
func wallClockIn(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// normalizeRecurrence applies creation defaults and validates the result.
// A nil block, an empty frequency and NEVER all yield the non-repeating rule
// whatever the other fields hold.
func normalizeRecurrence(in *RecurrenceInput, anchor Span, vErr *ValidationError) recurrence.Rule {
	if in == nil {
		return recurrence.Never()
	}
	frequency := recurrence.Frequency(strings.ToUpper(strings.TrimSpace(in.Frequency)))
	if frequency == "" || frequency == recurrence.FrequencyNever {
		return recurrence.Never()
	}

	local := &ValidationError{}
	if !frequency.Valid() {
		local.add("recurrence.frequency", fmt.Sprintf("unsupported frequency %q", in.Frequency))
		vErr.merge(local)
		return recurrence.Rule{}
	}

	rule := recurrence.Rule{Frequency: frequency, Step: 1}
	if in.Step != nil {
		rule.Step = *in.Step
		if rule.Step < 1 {
			local.add("recurrence.step", "step must be at least 1")
		}
	}

	anchorStart := anchorStartOf(anchor)

	if frequency == recurrence.FrequencyWeekly {
		if len(in.WeeklyDays) == 0 {
			rule.WeeklyDays = []time.Weekday{anchorStart.Weekday()}
		}
		for _, name := range in.WeeklyDays {
			day, ok := parseWeekday(name)
			if !ok {
				local.add("recurrence.weekly_days", fmt.Sprintf("unknown weekday %q", name))
				continue
			}
			rule.WeeklyDays = append(rule.WeeklyDays, day)
		}
		rule.WeeklyDays = recurrence.SortedWeekdays(rule.WeeklyDays)
	} else if len(in.WeeklyDays) > 0 {
		local.add("recurrence.weekly_days", "weekly days are only allowed for WEEKLY events")
	}

	monthlyType := recurrence.MonthlyType(strings.ToUpper(strings.TrimSpace(in.MonthlyType)))
	if frequency == recurrence.FrequencyMonthly {
		if monthlyType == "" {
			monthlyType = recurrence.MonthlySameDay
		}
		if !monthlyType.Valid() {
			local.add("recurrence.monthly_type", fmt.Sprintf("unsupported monthly type %q", in.MonthlyType))
		}
		rule.MonthlyType = monthlyType
	} else if monthlyType != "" {
		local.add("recurrence.monthly_type", "monthly type is only allowed for MONTHLY events")
	}

	if in.EndDate != nil && in.OccurrenceCount != nil {
		local.add("recurrence.duration", "end date and occurrence count are mutually exclusive")
	}
	duration := recurrence.Duration(strings.ToUpper(strings.TrimSpace(in.Duration)))
	if duration == "" {
		switch {
		case in.EndDate != nil:
			duration = recurrence.DurationUntilDate
		case in.OccurrenceCount != nil:
			duration = recurrence.DurationOccurrences
		default:
			duration = recurrence.DurationForever
		}
	}
	rule.Duration = duration
	if in.EndDate != nil {
		end := recurrence.CivilDate(*in.EndDate)
		rule.EndDate = &end
	}
	if in.OccurrenceCount != nil {
		rule.OccurrenceCount = *in.OccurrenceCount
	}

	if !local.HasErrors() {
		if err := rule.Validate(); err != nil {
			local.add(ruleErrorField(rule), ruleErrorMessage(err))
		}
	}
	if !local.HasErrors() {
		checkRuleAgainstAnchor(rule, anchor, local)
	}

	vErr.merge(local)
	return rule
}

// checkRuleAgainstAnchor rejects end dates that would exclude the anchor
// itself, since every event has at least its first occurrence.
func checkRuleAgainstAnchor(rule recurrence.Rule, anchor Span, vErr *ValidationError) {
	if rule.Duration != recurrence.DurationUntilDate || rule.EndDate == nil {
		return
	}
	if rule.EndDate.Before(recurrence.CivilDate(anchorStartOf(anchor))) {
		vErr.add("recurrence.end_date", "end date must not be before the event start")
	}
}

// ruleErrorField names the field behind a rule that passed the per-field
// checks above but failed Validate; only termination combinations remain.
func ruleErrorField(rule recurrence.Rule) string {
	switch rule.Duration {
	case recurrence.DurationUntilDate:
		return "recurrence.end_date"
	case recurrence.DurationOccurrences:
		return "recurrence.occurrence_count"
	}
	return "recurrence.duration"
}

func ruleErrorMessage(err error) string {
	msg := err.Error()
	if errors.Is(err, recurrence.ErrInvalidRule) {
		msg = strings.TrimPrefix(msg, recurrence.ErrInvalidRule.Error()+": ")
	}
	return msg
}

var weekdayNames = map[string]time.Weekday{
	"SUNDAY": time.Sunday, "SU": time.Sunday,
	"MONDAY": time.Monday, "MO": time.Monday,
	"TUESDAY": time.Tuesday, "TU": time.Tuesday,
	"WEDNESDAY": time.Wednesday, "WE": time.Wednesday,
	"THURSDAY": time.Thursday, "TH": time.Thursday,
	"FRIDAY": time.Friday, "FR": time.Friday,
	"SATURDAY": time.Saturday, "SA": time.Saturday,
}

func parseWeekday(name string) (time.Weekday, bool) {
	day, ok := weekdayNames[strings.ToUpper(strings.TrimSpace(name))]
	return day, ok
}
