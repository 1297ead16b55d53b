package recurrence

import (
	"fmt"
	"time"
)

// Span is a start/end pair. Day spans carry midnight UTC values; time spans
// carry instants located in the zone whose wall clock drives the stepping.
type Span struct {
	Start time.Time
	End   time.Time
}

// Length returns End - Start.
func (s Span) Length() time.Duration {
	return s.End.Sub(s.Start)
}

// Shift returns a span starting at start with the same length as s.
func (s Span) Shift(start time.Time) Span {
	return Span{Start: start, End: start.Add(s.Length())}
}

// Generate expands the rule from the anchor span into an ordered sequence of
// occurrence spans.
//
// Each occurrence is computed from the anchor directly rather than from the
// previous occurrence, so month-end clamping never drifts. Stepping happens in
// the wall clock of anchor.Start's location; every occurrence keeps the
// anchor's length. The anchor is always the first occurrence.
//
// A non-repeating rule yields the anchor alone whatever its other fields hold.
func Generate(anchor Span, rule Rule) ([]Span, error) {
	if anchor.End.Before(anchor.Start) {
		return nil, ErrInvalidSpan
	}
	if rule.Frequency == FrequencyNever {
		return []Span{anchor}, nil
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	b := newBound(anchor.Start, rule)

	if rule.Frequency == FrequencyWeekly {
		return generateWeekly(anchor, rule, b), nil
	}

	var nth func(k int) time.Time
	switch rule.Frequency {
	case FrequencyDaily:
		nth = func(k int) time.Time { return anchor.Start.AddDate(0, 0, k*rule.Step) }
	case FrequencyMonthly:
		if rule.MonthlyType == MonthlySameWeekday {
			nth = func(k int) time.Time { return sameWeekdayInMonth(anchor.Start, k*rule.Step) }
		} else {
			nth = func(k int) time.Time { return sameDayInMonth(anchor.Start, k*rule.Step) }
		}
	case FrequencyAnnually:
		nth = func(k int) time.Time { return sameDayInMonth(anchor.Start, 12*k*rule.Step) }
	default:
		return nil, fmt.Errorf("%w: unsupported frequency %q", ErrInvalidRule, rule.Frequency)
	}

	out := make([]Span, 0, b.capacityHint())
	for k := 0; ; k++ {
		start := nth(k)
		if !b.admits(start, len(out)) {
			break
		}
		out = append(out, anchor.Shift(start))
	}
	return out, nil
}

func generateWeekly(anchor Span, rule Rule, b bound) []Span {
	out := make([]Span, 0, b.capacityHint())
	if !b.admits(anchor.Start, 0) {
		return out
	}
	out = append(out, anchor)

	days := SortedWeekdays(rule.WeeklyDays)
	anchorDate := CivilDate(anchor.Start)
	monday := anchorDate.AddDate(0, 0, -mondayOffset(anchor.Start.Weekday()))

	for window := 0; ; window++ {
		weekStart := monday.AddDate(0, 0, 7*rule.Step*window)
		for _, day := range days {
			date := weekStart.AddDate(0, 0, mondayOffset(day))
			if !date.After(anchorDate) {
				continue
			}
			start := atDate(anchor.Start, date)
			if !b.admits(start, len(out)) {
				return out
			}
			out = append(out, anchor.Shift(start))
		}
	}
}

// bound decides whether another occurrence may be emitted.
type bound struct {
	until   time.Time
	count   int
	horizon time.Time
}

func newBound(anchorStart time.Time, rule Rule) bound {
	b := bound{horizon: CivilDate(anchorStart).AddDate(HorizonYears, 0, 0)}
	switch rule.Duration {
	case DurationUntilDate:
		b.until = CivilDate(*rule.EndDate)
	case DurationOccurrences:
		b.count = rule.OccurrenceCount
	}
	return b
}

// admits checks the candidate start against the termination condition given
// the number of occurrences already emitted. Candidates arrive in ascending
// order, so the first rejection ends the sequence.
func (b bound) admits(start time.Time, emitted int) bool {
	date := CivilDate(start)
	if date.After(b.horizon) {
		return false
	}
	if b.count > 0 && emitted >= b.count {
		return false
	}
	if !b.until.IsZero() && date.After(b.until) {
		return false
	}
	return true
}

func (b bound) capacityHint() int {
	if b.count > 0 {
		return b.count
	}
	return 16
}

func sameDayInMonth(anchor time.Time, months int) time.Time {
	year, month := addMonths(anchor.Year(), anchor.Month(), months)
	day := min(anchor.Day(), daysIn(year, month))
	return time.Date(year, month, day, anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), anchor.Location())
}

// sameWeekdayInMonth keeps the anchor's ordinal weekday. A fifth weekday that
// does not exist in the target month falls back to the month's last such weekday.
func sameWeekdayInMonth(anchor time.Time, months int) time.Time {
	year, month := addMonths(anchor.Year(), anchor.Month(), months)
	ordinal := (anchor.Day()-1)/7 + 1

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(anchor.Weekday()) - int(first.Weekday()) + 7) % 7
	day := 1 + offset + (ordinal-1)*7
	if day > daysIn(year, month) {
		day -= 7
	}
	return time.Date(year, month, day, anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), anchor.Location())
}

func addMonths(year int, month time.Month, months int) (int, time.Month) {
	total := int(month) - 1 + months
	year += total / 12
	total %= 12
	if total < 0 {
		total += 12
		year--
	}
	return year, time.Month(total + 1)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func mondayOffset(day time.Weekday) int {
	return (int(day) + 6) % 7
}

// atDate places the wall-clock time of template on the given civil date.
func atDate(template, date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), template.Hour(), template.Minute(), template.Second(), template.Nanosecond(), template.Location())
}
