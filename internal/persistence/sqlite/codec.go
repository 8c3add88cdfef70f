package sqlite

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// wallClockLayout stores event and anchor times without a zone. The owner's
// timezone is applied when the value is interpreted, not when it is stored.
const wallClockLayout = "2006-01-02 15:04:05"

func formatWallClock(t time.Time) string {
	return t.Format(wallClockLayout)
}

func parseWallClock(s string) (time.Time, error) {
	t, err := time.ParseInLocation(wallClockLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse wall-clock time %q: %w", s, err)
	}
	return t, nil
}

// Weekdays persist as comma-separated integers with Monday as 0 and Sunday
// as 6, e.g. "0,5" for Monday and Saturday.
func encodeWeekdays(weekdays []time.Weekday) string {
	if len(weekdays) == 0 {
		return ""
	}
	parts := make([]string, 0, len(weekdays))
	for _, wd := range weekdays {
		parts = append(parts, strconv.Itoa((int(wd)+6)%7))
	}
	return strings.Join(parts, ",")
}

func decodeWeekdays(s string) ([]time.Weekday, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	weekdays := make([]time.Weekday, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid weekday value %q", part)
		}
		weekdays = append(weekdays, time.Weekday((n+1)%7))
	}
	return weekdays, nil
}
