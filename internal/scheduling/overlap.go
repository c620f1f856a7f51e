package scheduling

import (
	"errors"
	"regexp"
)

var timeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidateTimeRange checks "HH:MM" formatting and that start precedes end.
func ValidateTimeRange(start, end string) error {
	if !timeRe.MatchString(start) || !timeRe.MatchString(end) {
		return errors.New("times must be formatted HH:MM")
	}
	if start >= end {
		return errors.New("start_time must be before end_time")
	}
	return nil
}

// Overlaps reports whether two half-open time ranges intersect. Times are
// "HH:MM" strings, which compare correctly as plain strings. Back-to-back
// slots (aEnd == bStart) do not conflict.
func Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	return aStart < bEnd && aEnd > bStart
}
