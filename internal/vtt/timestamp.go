package vtt

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTimestamp decodes HH:MM:SS.mmm or MM:SS.mmm. A comma is accepted in
// place of the period so SRT timings parse too.
func ParseTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("%w: empty timestamp", ErrMalformedTimestamp)
	}
	value = strings.ReplaceAll(value, ",", ".")
	clock, fraction, ok := strings.Cut(value, ".")
	if !ok || len(fraction) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, value)
	}
	parts := strings.Split(clock, ":")
	var hours, minutes, seconds int
	var err error
	switch len(parts) {
	case 3:
		if hours, err = parseField(parts[0], -1); err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, value)
		}
		parts = parts[1:]
	case 2:
	default:
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, value)
	}
	if minutes, err = parseField(parts[0], 59); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, value)
	}
	if seconds, err = parseField(parts[1], 59); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, value)
	}
	millis, err := parseField(fraction, 999)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, value)
	}
	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
	return total, nil
}

func parseField(text string, max int) (int, error) {
	if text == "" {
		return 0, fmt.Errorf("empty field")
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-digit %q", r)
		}
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, err
	}
	if max >= 0 && n > max {
		return 0, fmt.Errorf("field %d out of range", n)
	}
	return n, nil
}

// FormatTimestamp renders d as HH:MM:SS.mmm. Negative values clamp to zero.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	hours := ms / 3_600_000
	ms -= hours * 3_600_000
	minutes := ms / 60_000
	ms -= minutes * 60_000
	seconds := ms / 1000
	ms -= seconds * 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, ms)
}
