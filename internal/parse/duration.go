package parse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidDuration is returned when a duration string is not in HH:MM form.
var ErrInvalidDuration = errors.New("duration must be in HH:MM format (00:01-23:59)")

var durationRe = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// ParseDuration converts an "HH:MM" string into a number of seconds.
// "00:00" is accepted here; callers enforce the minimum duration.
func ParseDuration(text string) (int64, error) {
	m := durationRe.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, text)
	}
	hours, _ := strconv.ParseInt(m[1], 10, 64)
	minutes, _ := strconv.ParseInt(m[2], 10, 64)
	return hours*3600 + minutes*60, nil
}

// FormatHM renders a whole number of seconds as "HH:MM", dropping any seconds.
func FormatHM(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/3600, (seconds%3600)/60)
}

// FormatHMS renders a seconds count as "HH:MM:SS". Fractions are truncated and
// negative values clamp to zero; hours are not wrapped at 24.
func FormatHMS(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// FormatClock converts t into the named IANA zone and renders its wall clock as "HH:MM:SS".
func FormatClock(t time.Time, tz string) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("failed to load timezone %q: %w", tz, err)
	}
	return t.In(loc).Format("15:04:05"), nil
}
