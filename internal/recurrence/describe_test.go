package recurrence

import (
	"strings"
	"testing"
	"time"

	"github.com/teambition/rrule-go"
)

func TestDescribe_NeverIsEmpty(t *testing.T) {
	t.Parallel()

	got, err := Describe(Never(), day(2024, time.May, 1))
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if got.RRule != "" || got.ExtraDates != nil {
		t.Fatalf("expected empty description, got %+v", got)
	}
}

func TestDescribe_RendersRRuleParts(t *testing.T) {
	t.Parallel()

	got, err := Describe(Rule{
		Frequency:       FrequencyWeekly,
		Step:            2,
		WeeklyDays:      []time.Weekday{time.Friday, time.Monday},
		Duration:        DurationOccurrences,
		OccurrenceCount: 6,
	}, day(2024, time.October, 11))
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	for _, part := range []string{"FREQ=WEEKLY", "INTERVAL=2", "COUNT=6", "BYDAY=MO,FR"} {
		if !strings.Contains(got.RRule, part) {
			t.Fatalf("expected %q in %q", part, got.RRule)
		}
	}
	if got.ExtraDates != nil {
		t.Fatalf("expected no extra dates for an anchor on a listed weekday, got %v", got.ExtraDates)
	}
}

func TestDescribe_AnchorOutsideWeeklyDays(t *testing.T) {
	t.Parallel()

	anchor := day(2024, time.October, 9) // Wednesday
	got, err := Describe(Rule{
		Frequency:       FrequencyWeekly,
		Step:            1,
		WeeklyDays:      []time.Weekday{time.Monday},
		Duration:        DurationOccurrences,
		OccurrenceCount: 3,
	}, anchor)
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if !strings.Contains(got.RRule, "COUNT=2") {
		t.Fatalf("expected the anchor to be counted out of COUNT, got %q", got.RRule)
	}
	if len(got.ExtraDates) != 1 || !got.ExtraDates[0].Equal(anchor) {
		t.Fatalf("expected the anchor as the only extra date, got %v", got.ExtraDates)
	}

	single, err := Describe(Rule{
		Frequency:       FrequencyWeekly,
		Step:            1,
		WeeklyDays:      []time.Weekday{time.Monday},
		Duration:        DurationOccurrences,
		OccurrenceCount: 1,
	}, anchor)
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if single.RRule != "" || single.ExtraDates != nil {
		t.Fatalf("expected a lone anchor to need no recurrence, got %+v", single)
	}
}

// expand evaluates DTSTART, RRULE and RDATE the way a calendar client does.
func expand(t *testing.T, desc Description, anchorStart time.Time) []time.Time {
	t.Helper()

	var set rrule.Set
	set.DTStart(anchorStart)
	if desc.RRule == "" {
		set.RDate(anchorStart)
	} else {
		opt, err := rrule.StrToROption(desc.RRule)
		if err != nil {
			t.Fatalf("rrule-go rejected %q: %v", desc.RRule, err)
		}
		opt.Dtstart = anchorStart
		rule, err := rrule.NewRRule(*opt)
		if err != nil {
			t.Fatalf("NewRRule(%q) returned error: %v", desc.RRule, err)
		}
		set.RRule(rule)
	}
	for _, date := range desc.ExtraDates {
		set.RDate(date)
	}
	return set.All()
}

// Expanding the rendered description with rrule-go must reproduce Generate.
func TestDescribe_MatchesGenerate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		anchor Span
		rule   Rule
	}{
		{
			name:   "daily every third day",
			anchor: Span{Start: time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC), End: time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC)},
			rule:   Rule{Frequency: FrequencyDaily, Step: 3, Duration: DurationOccurrences, OccurrenceCount: 10},
		},
		{
			name:   "weekly on selected days",
			anchor: daySpan(2024, time.October, 11),
			rule:   Rule{Frequency: FrequencyWeekly, Step: 1, WeeklyDays: []time.Weekday{time.Monday, time.Friday}, Duration: DurationOccurrences, OccurrenceCount: 9},
		},
		{
			name:   "biweekly until a date",
			anchor: daySpan(2024, time.January, 2),
			rule:   Rule{Frequency: FrequencyWeekly, Step: 2, WeeklyDays: []time.Weekday{time.Tuesday, time.Thursday}, Duration: DurationUntilDate, EndDate: ptr(day(2024, time.March, 31))},
		},
		{
			name:   "monthly month end",
			anchor: daySpan(2024, time.January, 31),
			rule:   Rule{Frequency: FrequencyMonthly, Step: 1, MonthlyType: MonthlySameDay, Duration: DurationOccurrences, OccurrenceCount: 12},
		},
		{
			name:   "monthly fifth thursday",
			anchor: daySpan(2024, time.October, 31),
			rule:   Rule{Frequency: FrequencyMonthly, Step: 1, MonthlyType: MonthlySameWeekday, Duration: DurationOccurrences, OccurrenceCount: 8},
		},
		{
			name:   "weekly anchor outside the listed days",
			anchor: daySpan(2024, time.October, 9),
			rule:   Rule{Frequency: FrequencyWeekly, Step: 1, WeeklyDays: []time.Weekday{time.Monday}, Duration: DurationOccurrences, OccurrenceCount: 3},
		},
		{
			name:   "biweekly anchor outside the listed days until a date",
			anchor: Span{Start: time.Date(2024, time.October, 9, 9, 0, 0, 0, time.UTC), End: time.Date(2024, time.October, 9, 10, 0, 0, 0, time.UTC)},
			rule:   Rule{Frequency: FrequencyWeekly, Step: 2, WeeklyDays: []time.Weekday{time.Monday, time.Friday}, Duration: DurationUntilDate, EndDate: ptr(day(2024, time.December, 1))},
		},
		{
			name:   "weekly anchor outside the listed days occurring once",
			anchor: daySpan(2024, time.October, 9),
			rule:   Rule{Frequency: FrequencyWeekly, Step: 1, WeeklyDays: []time.Weekday{time.Monday}, Duration: DurationOccurrences, OccurrenceCount: 1},
		},
		{
			name:   "annual leap day",
			anchor: daySpan(2024, time.February, 29),
			rule:   Rule{Frequency: FrequencyAnnually, Step: 1, Duration: DurationOccurrences, OccurrenceCount: 5},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			want, err := Generate(tc.anchor, tc.rule)
			if err != nil {
				t.Fatalf("Generate returned error: %v", err)
			}

			desc, err := Describe(tc.rule, tc.anchor.Start)
			if err != nil {
				t.Fatalf("Describe returned error: %v", err)
			}
			got := expand(t, desc, tc.anchor.Start)
			if len(got) != len(want) {
				t.Fatalf("%+v: expected %d occurrences, rrule-go produced %d", desc, len(want), len(got))
			}
			for i := range want {
				if !got[i].Equal(want[i].Start) {
					t.Fatalf("%+v: occurrence %d: Generate %v, rrule-go %v", desc, i, want[i].Start, got[i])
				}
			}
		})
	}
}
