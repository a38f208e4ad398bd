package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ParsePeriod converts a compact lookback string like "30d", "2w", "6m", or
// "1y" into the start time that far back from ref. The unit suffix is one of
// d (days), w (weeks), m (calendar months), y (calendar years).
func ParsePeriod(s string, ref time.Time) (time.Time, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid period %q: want <count><d|w|m|y>", s)
	}

	unit := s[len(s)-1]
	digits := s[:len(s)-1]
	for _, r := range digits {
		if !unicode.IsDigit(r) {
			return time.Time{}, fmt.Errorf("invalid period %q: count must be numeric", s)
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("invalid period %q: count must be positive", s)
	}

	switch unit {
	case 'd':
		return ref.AddDate(0, 0, -n), nil
	case 'w':
		return ref.AddDate(0, 0, -7*n), nil
	case 'm':
		return ref.AddDate(0, -n, 0), nil
	case 'y':
		return ref.AddDate(-n, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("invalid period %q: unknown unit %q", s, string(unit))
	}
}
