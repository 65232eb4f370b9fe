package timeutils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LocalOffset is the fixed UTC offset of the publishing timezone (+05:30).
// All "local" times in this package are represented as time.Time values in
// the UTC location whose wall clock reads local time. Keeping a single
// representation avoids double-applying the host machine's timezone.
const LocalOffset = 5*time.Hour + 30*time.Minute

// ToLocal shifts a UTC instant into the fixed local representation.
func ToLocal(utc time.Time) time.Time {
	return utc.UTC().Add(LocalOffset)
}

// ToUTC is the inverse of ToLocal.
func ToUTC(local time.Time) time.Time {
	return local.Add(-LocalOffset).UTC()
}

// LocalNow returns the current time in the fixed local representation.
// The system clock is normalized to UTC first, then shifted.
func LocalNow() time.Time {
	return ToLocal(time.Now().UTC())
}

// DayWindow is the half-open UTC interval [StartUTC, EndUTC) covering one
// local calendar day.
type DayWindow struct {
	StartUTC time.Time
	EndUTC   time.Time
}

// DayBounds returns the UTC instants of local midnight of the given local
// instant's day and local midnight of the next day.
func DayBounds(local time.Time) DayWindow {
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	return DayWindow{
		StartUTC: ToUTC(start),
		EndUTC:   ToUTC(start.Add(24 * time.Hour)),
	}
}

// ParseClock parses an "HH:MM" local-time string.
func ParseClock(clock string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time format %q, expected HH:MM", clock)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", clock)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", clock)
	}
	return hour, minute, nil
}

// AtClock returns the local instant at hour:minute on the same local day as
// the given local instant.
func AtClock(local time.Time, hour, minute int) time.Time {
	return time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, time.UTC)
}

// NextOccurrence finds the next local instant at hour:minute, strictly after
// the given local reference, whose weekday is in days (0 = Sunday). The
// search starts at least one day forward and scans at most seven days.
func NextOccurrence(days []int, hour, minute int, from time.Time) (time.Time, error) {
	if len(days) == 0 {
		return time.Time{}, fmt.Errorf("no weekdays configured")
	}
	set := make(map[int]bool, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			return time.Time{}, fmt.Errorf("weekday %d out of range [0,6]", d)
		}
		set[d] = true
	}

	candidate := AtClock(from, hour, minute).Add(24 * time.Hour)
	for i := 0; i < 7; i++ {
		if set[int(candidate.Weekday())] {
			return candidate, nil
		}
		candidate = candidate.Add(24 * time.Hour)
	}
	return time.Time{}, fmt.Errorf("no occurrence of %v within 7 days", days)
}

// NormalizeWeekdays accepts weekday entries decoded from JSON, which may be
// numbers or numeric strings, and returns them as ints. Invalid entries are
// dropped.
func NormalizeWeekdays(raw []any) []int {
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		switch t := v.(type) {
		case float64:
			out = append(out, int(t))
		case int:
			out = append(out, t)
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
				out = append(out, n)
			}
		}
	}
	return out
}
