package timing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidClock is returned when a time of day does not parse.
var ErrInvalidClock = errors.New("invalid time of day")

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
)

// Clock is a wall-clock time of day without a date, stored as seconds
// since midnight. The zero value is 00:00.
type Clock struct {
	sec int
}

// At builds a Clock from hour and minute, wrapping out-of-range values.
func At(hour, minute int) Clock {
	return Clock{}.add(hour*secondsPerHour + minute*secondsPerMinute)
}

// ParseClock parses strict 24-hour "HH:MM": both fields zero padded,
// hour 00-23, minute 00-59.
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' {
		return Clock{}, fmt.Errorf("%w: %q (want HH:MM)", ErrInvalidClock, s)
	}
	h, okH := twoDigits(s[0:2])
	m, okM := twoDigits(s[3:5])
	if !okH || !okM || h > 23 || m > 59 {
		return Clock{}, fmt.Errorf("%w: %q (want HH:MM)", ErrInvalidClock, s)
	}
	return Clock{sec: h*secondsPerHour + m*secondsPerMinute}, nil
}

// parseStored accepts the file form: "HH:MM" or "HH:MM:SS", with an
// optional fractional second that is ignored.
func parseStored(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	if len(s) == 5 {
		return ParseClock(s)
	}
	if len(s) < 8 || s[5] != ':' {
		return Clock{}, fmt.Errorf("%w: %q (want HH:MM or HH:MM:SS)", ErrInvalidClock, s)
	}
	c, err := ParseClock(s[:5])
	if err != nil {
		return Clock{}, err
	}
	sec, ok := twoDigits(s[6:8])
	if !ok || sec > 59 {
		return Clock{}, fmt.Errorf("%w: %q (bad seconds)", ErrInvalidClock, s)
	}
	if rest := s[8:]; rest != "" {
		if rest[0] != '.' || len(rest) == 1 {
			return Clock{}, fmt.Errorf("%w: %q (bad fraction)", ErrInvalidClock, s)
		}
		if _, err := strconv.ParseUint(rest[1:], 10, 64); err != nil {
			return Clock{}, fmt.Errorf("%w: %q (bad fraction)", ErrInvalidClock, s)
		}
	}
	c.sec += sec
	return c, nil
}

func twoDigits(s string) (int, bool) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

// Hour returns 0-23.
func (c Clock) Hour() int { return c.sec / secondsPerHour }

// Minute returns 0-59.
func (c Clock) Minute() int { return c.sec % secondsPerHour / secondsPerMinute }

// Second returns 0-59.
func (c Clock) Second() int { return c.sec % secondsPerMinute }

// AddMinutes moves the clock by a signed number of minutes, wrapping
// around midnight in either direction.
func (c Clock) AddMinutes(minutes int) Clock {
	return c.add(minutes * secondsPerMinute)
}

func (c Clock) add(seconds int) Clock {
	s := (c.sec + seconds) % secondsPerDay
	if s < 0 {
		s += secondsPerDay
	}
	return Clock{sec: s}
}

// String formats as zero-padded 24-hour "HH:MM"; seconds are dropped.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// UnmarshalYAML reads "HH:MM" or "HH:MM:SS".
func (c *Clock) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: expected a scalar", ErrInvalidClock, n.Line)
	}
	parsed, err := parseStored(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*c = parsed
	return nil
}

// MarshalYAML writes "HH:MM:SS".
func (c Clock) MarshalYAML() (any, error) {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour(), c.Minute(), c.Second()), nil
}
