// Package schedule owns recurring directives: their definitions, due-time
// evaluation, and the claim/fire coordination that guarantees at most one
// in-flight delivery per directive.
package schedule

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jpetree331/continuum/errors"
)

// Mode selects how a directive recurs
type Mode string

// Recurrence modes
const (
	// ModeInterval fires every fixed elapsed interval (e.g. "5m")
	ModeInterval Mode = "interval"
	// ModeSpecific fires at a wall-clock time on selected weekdays
	ModeSpecific Mode = "specific"
)

// Directive is a recurring instruction: a prompt delivered to a target
// conversation on a schedule.
//
// LastFiredAt is mutated only through the store, and only by the
// coordinator's claim path. A zero LastFiredAt means never fired.
type Directive struct {
	ID      string
	Name    string
	Mode    Mode
	Every   string // interval text like "30s", "5m", "2h" (ModeInterval)
	AtTime  string // wall-clock "HH:MM", 24-hour local (ModeSpecific)
	OnDays  []int  // weekdays 0=Sunday..6=Saturday (ModeSpecific)
	Prompt  string
	Target  string // destination conversation id, or the simulate sentinel
	Enabled bool

	LastFiredAt time.Time
}

// NewDirective creates an enabled directive with a fresh id
func NewDirective(name string, mode Mode) *Directive {
	return &Directive{
		ID:      uuid.NewString(),
		Name:    name,
		Mode:    mode,
		Enabled: true,
	}
}

// Validate checks structural consistency. It deliberately does NOT reject a
// malformed interval spec: that is a warning condition, and the evaluator
// fails closed on it. Use CheckSpec for the warning.
func (d *Directive) Validate() error {
	if d.ID == "" {
		return errors.New("directive missing id")
	}
	switch d.Mode {
	case ModeInterval:
		if d.Every == "" {
			return errors.Newf("interval directive %s has no interval", d.ID)
		}
	case ModeSpecific:
		if _, _, err := ParseClock(d.AtTime); err != nil {
			return errors.Wrapf(err, "directive %s", d.ID)
		}
		if err := ValidateWeekdays(d.OnDays); err != nil {
			return errors.Wrapf(err, "directive %s", d.ID)
		}
	default:
		return errors.Newf("directive %s has unknown mode %q", d.ID, d.Mode)
	}
	return nil
}

// CheckSpec reports the non-fatal spec problem, if any. An interval directive
// with unparseable interval text is storable but will never fire.
func (d *Directive) CheckSpec() error {
	if d.Mode != ModeInterval {
		return nil
	}
	_, err := ParseInterval(d.Every)
	return err
}

// directiveJSON is the wire shape shared with the relay and the local
// persistence records. lastRun travels as epoch milliseconds; zero means
// never fired.
type directiveJSON struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Mode      Mode   `json:"type"`
	Every     string `json:"cron,omitempty"`
	AtTime    string `json:"time,omitempty"`
	OnDays    []int  `json:"days,omitempty"`
	Prompt    string `json:"prompt"`
	Target    string `json:"targetChatId"`
	Enabled   bool   `json:"enabled"`
	LastRunMS int64  `json:"lastRun,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (d *Directive) MarshalJSON() ([]byte, error) {
	w := directiveJSON{
		ID:      d.ID,
		Name:    d.Name,
		Mode:    d.Mode,
		Every:   d.Every,
		AtTime:  d.AtTime,
		OnDays:  d.OnDays,
		Prompt:  d.Prompt,
		Target:  d.Target,
		Enabled: d.Enabled,
	}
	if !d.LastFiredAt.IsZero() {
		w.LastRunMS = d.LastFiredAt.UnixMilli()
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Directive) UnmarshalJSON(data []byte) error {
	var w directiveJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	d.ID = w.ID
	d.Name = w.Name
	d.Mode = w.Mode
	d.Every = w.Every
	d.AtTime = w.AtTime
	d.OnDays = w.OnDays
	d.Prompt = w.Prompt
	d.Target = w.Target
	d.Enabled = w.Enabled
	if w.LastRunMS > 0 {
		d.LastFiredAt = time.UnixMilli(w.LastRunMS)
	} else {
		d.LastFiredAt = time.Time{}
	}
	return nil
}

func (d *Directive) clone() *Directive {
	c := *d
	if d.OnDays != nil {
		c.OnDays = append([]int(nil), d.OnDays...)
	}
	return &c
}
