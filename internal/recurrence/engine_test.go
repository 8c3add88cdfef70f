package recurrence

import (
	"testing"
	"time"
)

func wall(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

func TestEnumerateDaily(t *testing.T) {
	t.Parallel()

	anchor := wall(2026, time.September, 2, 7, 30)

	t.Run("every day in window", func(t *testing.T) {
		t.Parallel()

		rule := Rule{Anchor: anchor, Frequency: FrequencyDaily, Interval: 1}
		got, err := Enumerate(rule, wall(2026, time.September, 2, 12, 0), wall(2026, time.September, 5, 12, 0))
		if err != nil {
			t.Fatalf("Enumerate returned error: %v", err)
		}
		if len(got) != 4 {
			t.Fatalf("expected 4 occurrences, got %d: %v", len(got), got)
		}
		for i, occ := range got {
			want := wall(2026, time.September, 2+i, 7, 30)
			if !occ.Equal(want) {
				t.Errorf("occurrence %d = %v, want %v", i, occ, want)
			}
		}
	})

	t.Run("interval steps from the window start", func(t *testing.T) {
		t.Parallel()

		rule := Rule{Anchor: anchor, Frequency: FrequencyDaily, Interval: 3}
		got, err := Enumerate(rule, wall(2026, time.September, 1, 0, 0), wall(2026, time.September, 10, 0, 0))
		if err != nil {
			t.Fatalf("Enumerate returned error: %v", err)
		}
		wantDays := []int{1, 4, 7, 10}
		if len(got) != len(wantDays) {
			t.Fatalf("expected %d occurrences, got %d: %v", len(wantDays), len(got), got)
		}
		for i, day := range wantDays {
			want := wall(2026, time.September, day, 7, 30)
			if !got[i].Equal(want) {
				t.Errorf("occurrence %d = %v, want %v", i, got[i], want)
			}
		}
	})

	t.Run("zero interval behaves as one", func(t *testing.T) {
		t.Parallel()

		rule := Rule{Anchor: anchor, Frequency: FrequencyDaily}
		got, err := Enumerate(rule, wall(2026, time.September, 1, 0, 0), wall(2026, time.September, 3, 0, 0))
		if err != nil {
			t.Fatalf("Enumerate returned error: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 occurrences, got %d", len(got))
		}
	})

	t.Run("honors the end date bound", func(t *testing.T) {
		t.Parallel()

		ends := wall(2026, time.September, 4, 23, 59)
		rule := Rule{Anchor: anchor, Frequency: FrequencyDaily, Interval: 1, EndsOn: &ends}
		got, err := Enumerate(rule, wall(2026, time.September, 1, 0, 0), wall(2026, time.September, 30, 0, 0))
		if err != nil {
			t.Fatalf("Enumerate returned error: %v", err)
		}
		if len(got) != 4 {
			t.Fatalf("expected 4 occurrences up to the end date, got %d: %v", len(got), got)
		}
		if last := got[len(got)-1]; !last.Equal(wall(2026, time.September, 4, 7, 30)) {
			t.Errorf("last occurrence = %v, want %v", last, wall(2026, time.September, 4, 7, 30))
		}
	})
}

func TestEnumerateWeekly(t *testing.T) {
	t.Parallel()

	// 2026-09-02 is a Wednesday.
	anchor := wall(2026, time.September, 2, 18, 0)

	t.Run("weekday set over two weeks", func(t *testing.T) {
		t.Parallel()

		rule := Rule{
			Anchor:    anchor,
			Frequency: FrequencyWeekly,
			Weekdays:  []time.Weekday{time.Monday, time.Saturday},
		}
		got, err := Enumerate(rule, wall(2026, time.September, 2, 0, 0), wall(2026, time.September, 15, 0, 0))
		if err != nil {
			t.Fatalf("Enumerate returned error: %v", err)
		}

		want := []time.Time{
			wall(2026, time.September, 5, 18, 0),  // Saturday
			wall(2026, time.September, 7, 18, 0),  // Monday
			wall(2026, time.September, 12, 18, 0), // Saturday
			wall(2026, time.September, 14, 18, 0), // Monday
		}
		if len(got) != len(want) {
			t.Fatalf("expected %d occurrences, got %d: %v", len(want), len(got), got)
		}
		for i := range want {
			if !got[i].Equal(want[i]) {
				t.Errorf("occurrence %d = %v, want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("defaults to the anchor weekday", func(t *testing.T) {
		t.Parallel()

		rule := Rule{Anchor: anchor, Frequency: FrequencyWeekly}
		got, err := Enumerate(rule, wall(2026, time.September, 2, 0, 0), wall(2026, time.September, 15, 0, 0))
		if err != nil {
			t.Fatalf("Enumerate returned error: %v", err)
		}
		want := []time.Time{
			wall(2026, time.September, 2, 18, 0),
			wall(2026, time.September, 9, 18, 0),
		}
		if len(got) != len(want) {
			t.Fatalf("expected %d occurrences, got %d: %v", len(want), len(got), got)
		}
		for i := range want {
			if !got[i].Equal(want[i]) {
				t.Errorf("occurrence %d = %v, want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("interval is ignored for weekly rules", func(t *testing.T) {
		t.Parallel()

		with := Rule{Anchor: anchor, Frequency: FrequencyWeekly, Interval: 2, Weekdays: []time.Weekday{time.Monday}}
		without := Rule{Anchor: anchor, Frequency: FrequencyWeekly, Interval: 1, Weekdays: []time.Weekday{time.Monday}}

		a, err := Enumerate(with, wall(2026, time.September, 1, 0, 0), wall(2026, time.September, 30, 0, 0))
		if err != nil {
			t.Fatalf("Enumerate returned error: %v", err)
		}
		b, err := Enumerate(without, wall(2026, time.September, 1, 0, 0), wall(2026, time.September, 30, 0, 0))
		if err != nil {
			t.Fatalf("Enumerate returned error: %v", err)
		}
		if len(a) != len(b) {
			t.Fatalf("interval changed weekly output: %d vs %d occurrences", len(a), len(b))
		}
	})
}

func TestEnumerateMonthly(t *testing.T) {
	t.Parallel()

	t.Run("matches the anchor day of month", func(t *testing.T) {
		t.Parallel()

		rule := Rule{Anchor: wall(2026, time.January, 15, 9, 0), Frequency: FrequencyMonthly}
		got, err := Enumerate(rule, wall(2026, time.January, 1, 0, 0), wall(2026, time.April, 30, 0, 0))
		if err != nil {
			t.Fatalf("Enumerate returned error: %v", err)
		}
		want := []time.Time{
			wall(2026, time.January, 15, 9, 0),
			wall(2026, time.February, 15, 9, 0),
			wall(2026, time.March, 15, 9, 0),
			wall(2026, time.April, 15, 9, 0),
		}
		if len(got) != len(want) {
			t.Fatalf("expected %d occurrences, got %d: %v", len(want), len(got), got)
		}
		for i := range want {
			if !got[i].Equal(want[i]) {
				t.Errorf("occurrence %d = %v, want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("short months are skipped, never clamped", func(t *testing.T) {
		t.Parallel()

		rule := Rule{Anchor: wall(2026, time.January, 31, 8, 0), Frequency: FrequencyMonthly}
		got, err := Enumerate(rule, wall(2026, time.January, 1, 0, 0), wall(2026, time.May, 31, 0, 0))
		if err != nil {
			t.Fatalf("Enumerate returned error: %v", err)
		}
		want := []time.Time{
			wall(2026, time.January, 31, 8, 0),
			wall(2026, time.March, 31, 8, 0),
			wall(2026, time.May, 31, 8, 0),
		}
		if len(got) != len(want) {
			t.Fatalf("expected %d occurrences (February and April skipped), got %d: %v", len(want), len(got), got)
		}
		for i := range want {
			if !got[i].Equal(want[i]) {
				t.Errorf("occurrence %d = %v, want %v", i, got[i], want[i])
			}
		}
	})
}

func TestEnumerateYearly(t *testing.T) {
	t.Parallel()

	t.Run("matches month and day each year", func(t *testing.T) {
		t.Parallel()

		rule := Rule{Anchor: wall(2026, time.March, 14, 10, 0), Frequency: FrequencyYearly}
		got, err := Enumerate(rule, wall(2026, time.January, 1, 0, 0), wall(2028, time.December, 31, 0, 0))
		if err != nil {
			t.Fatalf("Enumerate returned error: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 occurrences, got %d: %v", len(got), got)
		}
	})

	t.Run("leap day only exists in leap years", func(t *testing.T) {
		t.Parallel()

		rule := Rule{Anchor: wall(2024, time.February, 29, 12, 0), Frequency: FrequencyYearly}
		got, err := Enumerate(rule, wall(2025, time.January, 1, 0, 0), wall(2028, time.December, 31, 0, 0))
		if err != nil {
			t.Fatalf("Enumerate returned error: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected only the 2028 leap day, got %d: %v", len(got), got)
		}
		if !got[0].Equal(wall(2028, time.February, 29, 12, 0)) {
			t.Errorf("occurrence = %v, want %v", got[0], wall(2028, time.February, 29, 12, 0))
		}
	})
}

func TestEnumerateWindows(t *testing.T) {
	t.Parallel()

	t.Run("contiguous windows neither gap nor double count", func(t *testing.T) {
		t.Parallel()

		rules := []Rule{
			{Anchor: wall(2026, time.September, 2, 7, 0), Frequency: FrequencyDaily, Interval: 1},
			{Anchor: wall(2026, time.September, 2, 7, 0), Frequency: FrequencyWeekly, Weekdays: []time.Weekday{time.Monday, time.Saturday}},
			{Anchor: wall(2026, time.August, 31, 7, 0), Frequency: FrequencyMonthly},
		}

		for _, rule := range rules {
			whole, err := Enumerate(rule, wall(2026, time.September, 1, 0, 0), wall(2026, time.October, 31, 0, 0))
			if err != nil {
				t.Fatalf("Enumerate returned error: %v", err)
			}
			left, err := Enumerate(rule, wall(2026, time.September, 1, 0, 0), wall(2026, time.September, 30, 0, 0))
			if err != nil {
				t.Fatalf("Enumerate returned error: %v", err)
			}
			right, err := Enumerate(rule, wall(2026, time.October, 1, 0, 0), wall(2026, time.October, 31, 0, 0))
			if err != nil {
				t.Fatalf("Enumerate returned error: %v", err)
			}

			combined := append(append([]time.Time{}, left...), right...)
			if len(combined) != len(whole) {
				t.Fatalf("frequency %s: split windows produced %d occurrences, whole window %d", rule.Frequency, len(combined), len(whole))
			}
			for i := range whole {
				if !combined[i].Equal(whole[i]) {
					t.Errorf("frequency %s: occurrence %d = %v, want %v", rule.Frequency, i, combined[i], whole[i])
				}
			}
		}
	})

	t.Run("inverted window yields nothing", func(t *testing.T) {
		t.Parallel()

		rule := Rule{Anchor: wall(2026, time.September, 2, 7, 0), Frequency: FrequencyDaily, Interval: 1}
		got, err := Enumerate(rule, wall(2026, time.September, 10, 0, 0), wall(2026, time.September, 1, 0, 0))
		if err != nil {
			t.Fatalf("Enumerate returned error: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("expected no occurrences, got %v", got)
		}
	})

	t.Run("rejects unknown frequencies", func(t *testing.T) {
		t.Parallel()

		rule := Rule{Anchor: wall(2026, time.September, 2, 7, 0), Frequency: "hourly"}
		if _, err := Enumerate(rule, wall(2026, time.September, 1, 0, 0), wall(2026, time.September, 2, 0, 0)); err != ErrInvalidFrequency {
			t.Fatalf("expected ErrInvalidFrequency, got %v", err)
		}
	})
}
