package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// Frequency represents supported recurrence intervals.
type Frequency string

const (
	// FrequencyNever marks a single, non-repeating occurrence.
	FrequencyNever Frequency = "NEVER"
	// FrequencyDaily repeats every Step days.
	FrequencyDaily Frequency = "DAILY"
	// FrequencyWeekly repeats on the selected weekdays every Step weeks.
	FrequencyWeekly Frequency = "WEEKLY"
	// FrequencyMonthly repeats every Step months.
	FrequencyMonthly Frequency = "MONTHLY"
	// FrequencyAnnually repeats every Step years.
	FrequencyAnnually Frequency = "ANNUALLY"
)

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyNever, FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyAnnually:
		return true
	}
	return false
}

// MonthlyType selects how monthly occurrences are placed within the month.
type MonthlyType string

const (
	// MonthlySameDay keeps the anchor's day-of-month, clamped to the month's last day.
	MonthlySameDay MonthlyType = "SAME_DAY"
	// MonthlySameWeekday keeps the anchor's ordinal weekday, e.g. the 3rd Thursday.
	MonthlySameWeekday MonthlyType = "SAME_WEEKDAY"
)

// Valid reports whether t is a supported monthly type.
func (t MonthlyType) Valid() bool {
	return t == MonthlySameDay || t == MonthlySameWeekday
}

// Duration describes how a recurring sequence terminates.
type Duration string

const (
	// DurationForever repeats up to HorizonYears after the anchor.
	DurationForever Duration = "FOREVER"
	// DurationUntilDate repeats while the occurrence start date is on or before EndDate.
	DurationUntilDate Duration = "UNTIL_DATE"
	// DurationOccurrences emits exactly OccurrenceCount occurrences.
	DurationOccurrences Duration = "N_OCCURRENCES"
)

// Valid reports whether d is a supported duration.
func (d Duration) Valid() bool {
	switch d {
	case DurationForever, DurationUntilDate, DurationOccurrences:
		return true
	}
	return false
}

// HorizonYears bounds FOREVER sequences so they stay finite.
const HorizonYears = 100

// ErrInvalidRule indicates the rule violates the field combination invariant.
var ErrInvalidRule = errors.New("recurrence: invalid rule")

// ErrInvalidSpan indicates the anchor span ends before it starts.
var ErrInvalidSpan = errors.New("recurrence: span end precedes start")

// Rule describes how an event repeats.
//
// EndDate is a civil date; only its year, month and day are significant.
type Rule struct {
	Frequency       Frequency
	Step            int
	WeeklyDays      []time.Weekday
	MonthlyType     MonthlyType
	Duration        Duration
	EndDate         *time.Time
	OccurrenceCount int
}

// Never returns the non-repeating rule.
func Never() Rule {
	return Rule{Frequency: FrequencyNever}
}

// Repeats reports whether the rule produces more than the anchor occurrence.
func (r Rule) Repeats() bool {
	return r.Frequency != FrequencyNever && r.Frequency != ""
}

// Validate checks the field combination invariant:
// all recurrence fields are empty for NEVER, weekdays only for WEEKLY,
// monthly type only for MONTHLY, and exactly the termination field that
// the duration requires.
func (r Rule) Validate() error {
	if !r.Frequency.Valid() {
		return fmt.Errorf("%w: unsupported frequency %q", ErrInvalidRule, r.Frequency)
	}

	if r.Frequency == FrequencyNever {
		switch {
		case r.Step != 0:
			return fmt.Errorf("%w: step set on a non-repeating rule", ErrInvalidRule)
		case len(r.WeeklyDays) > 0:
			return fmt.Errorf("%w: weekly days set on a non-repeating rule", ErrInvalidRule)
		case r.MonthlyType != "":
			return fmt.Errorf("%w: monthly type set on a non-repeating rule", ErrInvalidRule)
		case r.Duration != "":
			return fmt.Errorf("%w: duration set on a non-repeating rule", ErrInvalidRule)
		case r.EndDate != nil:
			return fmt.Errorf("%w: end date set on a non-repeating rule", ErrInvalidRule)
		case r.OccurrenceCount != 0:
			return fmt.Errorf("%w: occurrence count set on a non-repeating rule", ErrInvalidRule)
		}
		return nil
	}

	if r.Step < 1 {
		return fmt.Errorf("%w: step must be positive, got %d", ErrInvalidRule, r.Step)
	}

	if r.Frequency == FrequencyWeekly {
		if len(r.WeeklyDays) == 0 {
			return fmt.Errorf("%w: weekly rule without weekdays", ErrInvalidRule)
		}
		for _, day := range r.WeeklyDays {
			if day < time.Sunday || day > time.Saturday {
				return fmt.Errorf("%w: invalid weekday %d", ErrInvalidRule, day)
			}
		}
	} else if len(r.WeeklyDays) > 0 {
		return fmt.Errorf("%w: weekly days set on a %s rule", ErrInvalidRule, r.Frequency)
	}

	if r.Frequency == FrequencyMonthly {
		if !r.MonthlyType.Valid() {
			return fmt.Errorf("%w: unsupported monthly type %q", ErrInvalidRule, r.MonthlyType)
		}
	} else if r.MonthlyType != "" {
		return fmt.Errorf("%w: monthly type set on a %s rule", ErrInvalidRule, r.Frequency)
	}

	switch r.Duration {
	case DurationForever:
		if r.EndDate != nil || r.OccurrenceCount != 0 {
			return fmt.Errorf("%w: FOREVER rule with a termination value", ErrInvalidRule)
		}
	case DurationUntilDate:
		if r.EndDate == nil {
			return fmt.Errorf("%w: UNTIL_DATE rule without end date", ErrInvalidRule)
		}
		if r.OccurrenceCount != 0 {
			return fmt.Errorf("%w: UNTIL_DATE rule with occurrence count", ErrInvalidRule)
		}
	case DurationOccurrences:
		if r.OccurrenceCount < 1 {
			return fmt.Errorf("%w: occurrence count must be positive, got %d", ErrInvalidRule, r.OccurrenceCount)
		}
		if r.EndDate != nil {
			return fmt.Errorf("%w: N_OCCURRENCES rule with end date", ErrInvalidRule)
		}
	default:
		return fmt.Errorf("%w: unsupported duration %q", ErrInvalidRule, r.Duration)
	}

	return nil
}

// Equal reports whether two rules describe the same sequence shape.
// Weekdays compare as sets and end dates compare by civil date.
func (r Rule) Equal(other Rule) bool {
	if r.Frequency != other.Frequency ||
		r.Step != other.Step ||
		r.MonthlyType != other.MonthlyType ||
		r.Duration != other.Duration ||
		r.OccurrenceCount != other.OccurrenceCount {
		return false
	}
	if weekdayMask(r.WeeklyDays) != weekdayMask(other.WeeklyDays) {
		return false
	}
	switch {
	case r.EndDate == nil && other.EndDate == nil:
		return true
	case r.EndDate == nil || other.EndDate == nil:
		return false
	}
	return CivilDate(*r.EndDate).Equal(CivilDate(*other.EndDate))
}

// SortedWeekdays returns the distinct weekdays ordered Monday first.
func SortedWeekdays(days []time.Weekday) []time.Weekday {
	mask := weekdayMask(days)
	out := make([]time.Weekday, 0, len(days))
	for i := 0; i < 7; i++ {
		day := time.Weekday((i + 1) % 7)
		if mask&(1<<uint(day)) != 0 {
			out = append(out, day)
		}
	}
	return out
}

func weekdayMask(days []time.Weekday) uint8 {
	var mask uint8
	for _, day := range days {
		mask |= 1 << uint(day)
	}
	return mask
}

// CivilDate truncates t to midnight UTC of its own wall-clock date.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
