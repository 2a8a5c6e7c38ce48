package util

import (
	"fmt"
	"time"
)

// ParseClock parses a wall-clock time in "HH:MM" notation and returns
// the minutes since midnight.
func ParseClock(value string) (int, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q, expected HH:MM: %w", value, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}
