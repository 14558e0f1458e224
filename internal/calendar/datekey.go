package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/tartampluch/go-moodgrid/internal/config"
)

// DateKey identifies a calendar day as YYYY-MM-DD in local time.
// Plain string comparison orders keys chronologically.
type DateKey string

// KeyOf formats the local calendar day of t.
func KeyOf(t time.Time) DateKey {
	return DateKey(t.Format(config.DateKeyLayout))
}

// ParseDateKey parses a canonical YYYY-MM-DD string into local midnight of that day.
// Strings that do not format back to themselves (2024-2-3, 2023-02-29) are rejected.
func ParseDateKey(s string) (time.Time, error) {
	t, err := time.ParseInLocation(config.DateKeyLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", config.ErrInvalidDateKey, err)
	}
	if t.Format(config.DateKeyLayout) != s {
		return time.Time{}, errors.New(config.ErrInvalidDateKey)
	}
	return t, nil
}

// Time returns local midnight of the day identified by k.
func (k DateKey) Time() (time.Time, error) {
	return ParseDateKey(string(k))
}

// Valid reports whether k is a canonical date key.
func (k DateKey) Valid() bool {
	_, err := ParseDateKey(string(k))
	return err == nil
}

// Year returns the year component, or 0 for a malformed key.
func (k DateKey) Year() int {
	t, err := k.Time()
	if err != nil {
		return 0
	}
	return t.Year()
}

func (k DateKey) String() string {
	return string(k)
}

// IsLeapYear applies the Gregorian rule.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInYear returns 365 or 366.
func DaysInYear(year int) int {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}
