package schedule

import "time"

// DefaultDebounce is the minimum gap between firings of a specific-time
// directive. It must exceed the tick cadence so a directive fires once per
// matching minute, not once per tick.
const DefaultDebounce = time.Minute

// Verdict is the evaluation of a single directive at one instant.
//
// NextEligibleAt is the earliest future instant the directive could become
// due, or zero when it contributes nothing to wake planning (due now,
// malformed, disabled, or waiting on a wall-clock match).
type Verdict struct {
	Due            bool
	NextEligibleAt time.Time
}

// DueSet is the evaluation of a whole directive set at one instant
type DueSet struct {
	Due        []*Directive // due directives, in store order
	NextWakeAt time.Time    // earliest known future eligibility, zero if none
}

// Evaluate computes which directives are due at now. It is a pure function
// of its inputs: no stamping, no claiming, no side effects.
func Evaluate(now time.Time, directives []*Directive, debounce time.Duration) DueSet {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	var ds DueSet
	for _, d := range directives {
		v := evaluate(now, d, debounce)
		if v.Due {
			ds.Due = append(ds.Due, d)
			continue
		}
		if !v.NextEligibleAt.IsZero() && (ds.NextWakeAt.IsZero() || v.NextEligibleAt.Before(ds.NextWakeAt)) {
			ds.NextWakeAt = v.NextEligibleAt
		}
	}
	return ds
}

func evaluate(now time.Time, d *Directive, debounce time.Duration) Verdict {
	if !d.Enabled {
		return Verdict{}
	}
	switch d.Mode {
	case ModeInterval:
		return evaluateInterval(now, d)
	case ModeSpecific:
		return evaluateSpecific(now, d, debounce)
	default:
		return Verdict{}
	}
}

// evaluateInterval: due when the full interval has elapsed since the last
// firing (inclusive), immediately when never fired, never when malformed.
func evaluateInterval(now time.Time, d *Directive) Verdict {
	period, err := ParseInterval(d.Every)
	if err != nil {
		// Fail closed: a malformed spec never fires
		return Verdict{}
	}
	if d.LastFiredAt.IsZero() {
		return Verdict{Due: true}
	}
	if now.Sub(d.LastFiredAt) >= period {
		return Verdict{Due: true}
	}
	return Verdict{NextEligibleAt: d.LastFiredAt.Add(period)}
}

// evaluateSpecific: due when the local weekday is in the directive's set,
// the wall clock reads exactly the configured minute, and more than the
// debounce window has passed since the last firing.
//
// A non-matching minute yields no next-eligibility estimate: wall-clock
// matching is re-checked every tick rather than precomputed across DST
// transitions.
func evaluateSpecific(now time.Time, d *Directive, debounce time.Duration) Verdict {
	if !containsWeekday(d.OnDays, now.Weekday()) {
		return Verdict{}
	}
	if now.Format("15:04") != d.AtTime {
		return Verdict{}
	}
	if !d.LastFiredAt.IsZero() && now.Sub(d.LastFiredAt) <= debounce {
		return Verdict{}
	}
	return Verdict{Due: true}
}
