package recurrence

import (
	"time"

	"github.com/teambition/rrule-go"
)

// Description is a rule rendered for calendar clients.
type Description struct {
	// RRule is an RFC 5545 RRULE value without the "RRULE:" prefix. Empty
	// when nothing repeats past the anchor.
	RRule string
	// ExtraDates are series starts outside RRule's pattern, to be sent as
	// RDATE values next to DTSTART.
	ExtraDates []time.Time
}

// Describe renders the rule anchored at anchorStart so that expanding
// DTSTART, RRULE and RDATE yields the same starts as Generate. A
// non-repeating rule yields the zero Description.
//
// Month-end clamping is expressed with BYSETPOS=-1 over the candidate days.
// A weekly anchor on a day outside WeeklyDays is not part of the RRULE
// pattern, so it is carried as an extra date and counted out of COUNT.
func Describe(rule Rule, anchorStart time.Time) (Description, error) {
	if !rule.Repeats() {
		return Description{}, nil
	}
	if err := rule.Validate(); err != nil {
		return Description{}, err
	}

	var desc Description
	count := rule.OccurrenceCount
	if rule.Frequency == FrequencyWeekly && weekdayMask(rule.WeeklyDays)&(1<<uint(anchorStart.Weekday())) == 0 {
		desc.ExtraDates = []time.Time{anchorStart}
		if rule.Duration == DurationOccurrences {
			count--
			if count == 0 {
				return Description{}, nil
			}
		}
	}

	opt := rrule.ROption{
		Interval: rule.Step,
		Wkst:     rrule.MO,
	}

	switch rule.Frequency {
	case FrequencyDaily:
		opt.Freq = rrule.DAILY
	case FrequencyWeekly:
		opt.Freq = rrule.WEEKLY
		for _, day := range SortedWeekdays(rule.WeeklyDays) {
			opt.Byweekday = append(opt.Byweekday, toRRuleWeekday(day))
		}
	case FrequencyMonthly:
		opt.Freq = rrule.MONTHLY
		if rule.MonthlyType == MonthlySameWeekday {
			ordinal := (anchorStart.Day()-1)/7 + 1
			if ordinal == 5 {
				ordinal = -1
			}
			weekday := toRRuleWeekday(anchorStart.Weekday())
			opt.Byweekday = []rrule.Weekday{weekday.Nth(ordinal)}
		} else {
			opt.Bymonthday, opt.Bysetpos = clampedMonthDays(anchorStart.Day())
		}
	case FrequencyAnnually:
		opt.Freq = rrule.YEARLY
		opt.Bymonth = []int{int(anchorStart.Month())}
		if anchorStart.Month() == time.February && anchorStart.Day() == 29 {
			opt.Bymonthday, opt.Bysetpos = clampedMonthDays(29)
		} else {
			opt.Bymonthday = []int{anchorStart.Day()}
		}
	}

	switch rule.Duration {
	case DurationOccurrences:
		opt.Count = count
	case DurationUntilDate:
		end := CivilDate(*rule.EndDate)
		opt.Until = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, anchorStart.Location()).UTC()
	}

	desc.RRule = opt.RRuleString()
	return desc, nil
}

// clampedMonthDays selects day, or the latest existing day in 28..day when the
// month is shorter.
func clampedMonthDays(day int) ([]int, []int) {
	if day <= 28 {
		return []int{day}, nil
	}
	days := make([]int, 0, day-27)
	for d := 28; d <= day; d++ {
		days = append(days, d)
	}
	return days, []int{-1}
}

func toRRuleWeekday(day time.Weekday) rrule.Weekday {
	switch day {
	case time.Monday:
		return rrule.MO
	case time.Tuesday:
		return rrule.TU
	case time.Wednesday:
		return rrule.WE
	case time.Thursday:
		return rrule.TH
	case time.Friday:
		return rrule.FR
	case time.Saturday:
		return rrule.SA
	default:
		return rrule.SU
	}
}
