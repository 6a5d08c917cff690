package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intervalDirective(id, every string, lastFired time.Time) *Directive {
	return &Directive{
		ID:          id,
		Name:        id,
		Mode:        ModeInterval,
		Every:       every,
		Prompt:      "p",
		Enabled:     true,
		LastFiredAt: lastFired,
	}
}

func specificDirective(id, at string, days []int, lastFired time.Time) *Directive {
	return &Directive{
		ID:          id,
		Name:        id,
		Mode:        ModeSpecific,
		AtTime:      at,
		OnDays:      days,
		Prompt:      "p",
		Enabled:     true,
		LastFiredAt: lastFired,
	}
}

func TestIntervalNeverFiredIsDue(t *testing.T) {
	ds := Evaluate(time.Now(), []*Directive{intervalDirective("d", "1h", time.Time{})}, 0)
	require.Len(t, ds.Due, 1)
}

func TestIntervalElapsedBoundary(t *testing.T) {
	fired := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	d := intervalDirective("d", "60s", fired)

	// One millisecond short of the interval: not due
	ds := Evaluate(fired.Add(59999*time.Millisecond), []*Directive{d}, 0)
	assert.Empty(t, ds.Due)
	assert.Equal(t, fired.Add(time.Minute), ds.NextWakeAt)

	// Exactly the interval: due (inclusive comparison)
	ds = Evaluate(fired.Add(60000*time.Millisecond), []*Directive{d}, 0)
	assert.Len(t, ds.Due, 1)
}

func TestIntervalMalformedNeverFires(t *testing.T) {
	d := intervalDirective("d", "10x", time.Time{})
	ds := Evaluate(time.Now(), []*Directive{d}, 0)
	assert.Empty(t, ds.Due)
	assert.True(t, ds.NextWakeAt.IsZero())
}

func TestIntervalOverflowingMagnitudeNeverFires(t *testing.T) {
	fired := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	d := intervalDirective("d", "9223372036854775807s", fired)

	ds := Evaluate(fired.Add(time.Second), []*Directive{d}, 0)
	assert.Empty(t, ds.Due)
	assert.True(t, ds.NextWakeAt.IsZero())
}

func TestDisabledNeverFires(t *testing.T) {
	d := intervalDirective("d", "1s", time.Time{})
	d.Enabled = false
	ds := Evaluate(time.Now(), []*Directive{d}, 0)
	assert.Empty(t, ds.Due)
}

func TestSpecificTimeMatchLifecycle(t *testing.T) {
	// 2026-03-03 is a Tuesday
	tuesday := time.Date(2026, 3, 3, 8, 59, 30, 0, time.UTC)
	d := specificDirective("d", "09:00", []int{2}, time.Time{})

	// 08:59: wrong minute
	ds := Evaluate(tuesday, []*Directive{d}, time.Minute)
	assert.Empty(t, ds.Due)

	// 09:00: due
	nine := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	ds = Evaluate(nine, []*Directive{d}, time.Minute)
	require.Len(t, ds.Due, 1)

	// 09:00:30, thirty seconds after firing: debounced
	d.LastFiredAt = nine
	ds = Evaluate(nine.Add(30*time.Second), []*Directive{d}, time.Minute)
	assert.Empty(t, ds.Due)

	// Wednesday 09:00: not in the weekday set
	wednesday := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	ds = Evaluate(wednesday, []*Directive{d}, time.Minute)
	assert.Empty(t, ds.Due)

	// Next Tuesday 09:00: due again
	nextTuesday := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ds = Evaluate(nextTuesday, []*Directive{d}, time.Minute)
	assert.Len(t, ds.Due, 1)
}

func TestSpecificTimeDebounceIsStrict(t *testing.T) {
	nine := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	d := specificDirective("d", "09:00", []int{2}, nine)

	// Exactly the debounce window since last firing: still suppressed
	ds := Evaluate(nine.Add(time.Minute), []*Directive{d}, time.Minute)
	assert.Empty(t, ds.Due)
}

func TestSpecificTimeContributesNoWakeEstimate(t *testing.T) {
	monday := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	d := specificDirective("d", "09:00", []int{2}, time.Time{})

	ds := Evaluate(monday, []*Directive{d}, time.Minute)
	assert.Empty(t, ds.Due)
	assert.True(t, ds.NextWakeAt.IsZero())
}

func TestNextWakeIsEarliestEligibility(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	near := intervalDirective("near", "5m", now.Add(-4*time.Minute))
	far := intervalDirective("far", "1h", now.Add(-10*time.Minute))

	ds := Evaluate(now, []*Directive{far, near}, 0)
	assert.Empty(t, ds.Due)
	assert.Equal(t, now.Add(time.Minute), ds.NextWakeAt)
}

func TestDueSetKeepsStoreOrder(t *testing.T) {
	a := intervalDirective("a", "1s", time.Time{})
	b := intervalDirective("b", "1s", time.Time{})
	ds := Evaluate(time.Now(), []*Directive{a, b}, 0)
	require.Len(t, ds.Due, 2)
	assert.Equal(t, "a", ds.Due[0].ID)
	assert.Equal(t, "b", ds.Due[1].ID)
}
