// Package timefmt renders API time values the way the booking screens show
// them: 12-hour clock strings and long-form en-US dates.
package timefmt

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidTimeFormat = errors.New("invalid 24-hour time")
	ErrInvalidDateFormat = errors.New("invalid date")
)

// Time12h converts an HH:MM (or HH:MM:SS, as the API sends slot times) string
// into a 12-hour clock string such as "9:00 AM".
func Time12h(time24h string) (string, error) {
	t, err := time.Parse("15:04", time24h)
	if err != nil {
		t, err = time.Parse("15:04:05", time24h)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, time24h)
	}
	return t.Format("3:04 PM"), nil
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ReadableDate converts an ISO-style date string into a long localized date
// such as "January 15, 2024".
func ReadableDate(dateString string) (string, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, dateString); err == nil {
			return t.Format("January 2, 2006"), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDateFormat, dateString)
}
