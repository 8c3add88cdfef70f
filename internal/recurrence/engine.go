package recurrence

import (
	"errors"
	"time"
)

// Frequency identifies the recurrence cadence of a reminder template.
// The values match the strings persisted with templates.
type Frequency string

const (
	// FrequencyDaily matches every interval-th day inside the window.
	FrequencyDaily Frequency = "daily"
	// FrequencyWeekly matches the selected weekdays (or the anchor's weekday).
	FrequencyWeekly Frequency = "weekly"
	// FrequencyMonthly matches the anchor's day-of-month.
	FrequencyMonthly Frequency = "monthly"
	// FrequencyYearly matches the anchor's month and day.
	FrequencyYearly Frequency = "yearly"
)

// Valid reports whether f is one of the supported cadences.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// Rule describes the recurrence configuration of a reminder template.
// All times are naive wall-clock values; only their calendar fields are
// meaningful, the Location they carry is not interpreted.
type Rule struct {
	// Anchor supplies the time of day for every occurrence and, for
	// monthly and yearly rules, the day-of-month and month to match.
	// For weekly rules without an explicit weekday set it supplies the
	// weekday to match.
	Anchor time.Time
	// Frequency selects the cadence.
	Frequency Frequency
	// Interval is the step in days between candidates. It applies to
	// daily rules only; weekly rules always advance one day at a time
	// and monthly/yearly rules step one calendar unit. Values below 1
	// are treated as 1.
	Interval int
	// Weekdays restricts weekly rules to the listed days. Empty means
	// the anchor's weekday.
	Weekdays []time.Weekday
	// EndsOn, when set, is an inclusive upper bound on the occurrence
	// date. Occurrences past it are never produced.
	EndsOn *time.Time
}

// ErrInvalidFrequency indicates the rule's frequency is not supported.
var ErrInvalidFrequency = errors.New("recurrence: invalid frequency")

// Enumerate expands rule into the ordered wall-clock occurrence times whose
// calendar date falls inside [windowStart, windowEnd], both inclusive and
// compared at date granularity. The result is a pure function of the inputs:
// no deduplication against previously generated occurrences happens here, so
// overlapping windows yield overlapping output and callers must reconcile.
func Enumerate(rule Rule, windowStart, windowEnd time.Time) ([]time.Time, error) {
	if !rule.Frequency.Valid() {
		return nil, ErrInvalidFrequency
	}

	first := dateOf(windowStart)
	last := dateOf(windowEnd)
	if rule.EndsOn != nil {
		if end := dateOf(*rule.EndsOn); end.Before(last) {
			last = end
		}
	}
	if first.After(last) {
		return nil, nil
	}

	switch rule.Frequency {
	case FrequencyDaily:
		return enumerateDaily(rule, first, last), nil
	case FrequencyWeekly:
		return enumerateWeekly(rule, first, last), nil
	case FrequencyMonthly:
		return enumerateMonthly(rule, first, last), nil
	case FrequencyYearly:
		return enumerateYearly(rule, first, last), nil
	}
	return nil, ErrInvalidFrequency
}

func enumerateDaily(rule Rule, first, last time.Time) []time.Time {
	step := rule.Interval
	if step < 1 {
		step = 1
	}

	// The step grid is anchored at the window start, not at the rule's
	// anchor date. Reference behavior, recorded in DESIGN.md.
	out := make([]time.Time, 0)
	for cursor := first; !cursor.After(last); cursor = cursor.AddDate(0, 0, step) {
		out = append(out, at(cursor, rule.Anchor))
	}
	return out
}

func enumerateWeekly(rule Rule, first, last time.Time) []time.Time {
	// Weekly rules intentionally ignore Interval: the cursor advances a
	// day at a time and the weekday set alone decides matches, even
	// though daily honors the interval. Reference behavior, preserved.
	want := make(map[time.Weekday]struct{}, len(rule.Weekdays))
	for _, day := range rule.Weekdays {
		want[day] = struct{}{}
	}
	if len(want) == 0 {
		want[rule.Anchor.Weekday()] = struct{}{}
	}

	out := make([]time.Time, 0)
	for cursor := first; !cursor.After(last); cursor = cursor.AddDate(0, 0, 1) {
		if _, ok := want[cursor.Weekday()]; ok {
			out = append(out, at(cursor, rule.Anchor))
		}
	}
	return out
}

func enumerateMonthly(rule Rule, first, last time.Time) []time.Time {
	day := rule.Anchor.Day()

	out := make([]time.Time, 0)
	for month := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC); !month.After(last); month = month.AddDate(0, 1, 0) {
		candidate := time.Date(month.Year(), month.Month(), day, 0, 0, 0, 0, time.UTC)
		if candidate.Month() != month.Month() {
			// The month has no such day (the 31st in February, say).
			// It produces no occurrence; there is no clamping to the
			// end of the month.
			continue
		}
		if candidate.Before(first) || candidate.After(last) {
			continue
		}
		out = append(out, at(candidate, rule.Anchor))
	}
	return out
}

func enumerateYearly(rule Rule, first, last time.Time) []time.Time {
	month := rule.Anchor.Month()
	day := rule.Anchor.Day()

	out := make([]time.Time, 0)
	for year := first.Year(); year <= last.Year(); year++ {
		candidate := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if candidate.Month() != month {
			// February 29th outside a leap year.
			continue
		}
		if candidate.Before(first) || candidate.After(last) {
			continue
		}
		out = append(out, at(candidate, rule.Anchor))
	}
	return out
}

// dateOf truncates t to its calendar date, discarding the time of day and
// any Location it carried.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// at combines a calendar date with the anchor's time of day.
func at(date, anchor time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), anchor.Hour(), anchor.Minute(), anchor.Second(), 0, time.UTC)
}
