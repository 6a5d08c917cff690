package schedule

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jpetree331/continuum/errors"
)

// ParseInterval parses interval text of the form "<N><unit>" where N is a
// positive integer and unit is s, m, or h ("30s", "5m", "2h").
//
// Parsing fails closed: anything else returns ErrMalformedSpec, and a
// directive carrying such a spec never fires.
func ParseInterval(spec string) (time.Duration, error) {
	s := strings.TrimSpace(spec)
	if len(s) < 2 {
		return 0, errors.Wrapf(errors.ErrMalformedSpec, "interval %q", spec)
	}

	magnitude := s[:len(s)-1]
	n, err := strconv.Atoi(magnitude)
	if err != nil || n <= 0 {
		return 0, errors.Wrapf(errors.ErrMalformedSpec, "interval %q", spec)
	}

	var unit time.Duration
	switch s[len(s)-1] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	default:
		return 0, errors.Wrapf(errors.ErrMalformedSpec, "interval %q", spec)
	}

	// A magnitude large enough to overflow the duration would wrap negative
	// and make the directive due on every tick; reject it instead.
	if int64(n) > math.MaxInt64/int64(unit) {
		return 0, errors.Wrapf(errors.ErrMalformedSpec, "interval %q", spec)
	}
	return time.Duration(n) * unit, nil
}

// ParseClock parses a 24-hour "HH:MM" wall-clock time
func ParseClock(hhmm string) (hour, minute int, err error) {
	parts := strings.Split(hhmm, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, 0, errors.Wrapf(errors.ErrMalformedSpec, "clock time %q", hhmm)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, errors.Wrapf(errors.ErrMalformedSpec, "clock time %q", hhmm)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, errors.Wrapf(errors.ErrMalformedSpec, "clock time %q", hhmm)
	}
	return hour, minute, nil
}

// ValidateWeekdays checks a weekday set (0=Sunday..6=Saturday)
func ValidateWeekdays(days []int) error {
	if len(days) == 0 {
		return errors.Wrap(errors.ErrMalformedSpec, "empty weekday set")
	}
	for _, d := range days {
		if d < 0 || d > 6 {
			return errors.Wrapf(errors.ErrMalformedSpec, "weekday %d out of range", d)
		}
	}
	return nil
}

func containsWeekday(days []int, wd time.Weekday) bool {
	for _, d := range days {
		if time.Weekday(d) == wd {
			return true
		}
	}
	return false
}
