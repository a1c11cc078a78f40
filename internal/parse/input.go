package parse

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	_ "time/tzdata"
)

// MaxTitleLength is the longest assignment title accepted, counted in characters after trimming.
const MaxTitleLength = 50

var (
	ErrTitleEmpty   = errors.New("assignment title is required")
	ErrTitleTooLong = errors.New("assignment title is too long")
	ErrTimezone     = errors.New("unknown timezone")
)

// Title trims surrounding whitespace and checks the length bounds.
func Title(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(s)
	switch {
	case n == 0:
		return "", ErrTitleEmpty
	case n > MaxTitleLength:
		return "", fmt.Errorf("%w (%d characters), use at most %d", ErrTitleTooLong, n, MaxTitleLength)
	}
	return s, nil
}

// Timezone checks that tz names a loadable IANA location.
// The empty string and "Local" are refused since they depend on the server host.
func Timezone(tz string) (string, error) {
	s := strings.TrimSpace(tz)
	if s == "" || s == "Local" || len(s) > 100 {
		return "", fmt.Errorf("%w: %q", ErrTimezone, tz)
	}
	if _, err := time.LoadLocation(s); err != nil {
		return "", fmt.Errorf("%w: %q", ErrTimezone, tz)
	}
	return s, nil
}
