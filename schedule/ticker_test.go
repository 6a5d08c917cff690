package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jpetree331/continuum/delivery"
	"github.com/jpetree331/continuum/journal"
)

func TestNewTickerValidation(t *testing.T) {
	log := zap.NewNop().Sugar()
	store := NewStore(log)
	c := NewCoordinator(store, journal.NewLedger(log), &gatedDeliverer{}, nil, log)

	_, err := NewTicker(store, c, TickerConfig{Interval: 0}, log)
	require.Error(t, err)

	// The cadence must stay within the debounce window
	_, err = NewTicker(store, c, TickerConfig{Interval: 2 * time.Minute, Debounce: time.Minute}, log)
	require.Error(t, err)

	_, err = NewTicker(store, c, DefaultTickerConfig(), log)
	require.NoError(t, err)
}

func TestTickerFiresDueDirective(t *testing.T) {
	log := zap.NewNop().Sugar()
	store := NewStore(log)
	ledger := journal.NewLedger(log)
	chain := &gatedDeliverer{result: delivery.Result{Text: "ok"}}
	coord := NewCoordinator(store, ledger, chain, nil, log)

	d := NewDirective("fast", ModeInterval)
	d.Every = "1s"
	d.Prompt = "p"
	require.NoError(t, store.Add(d))

	ticker, err := NewTicker(store, coord, TickerConfig{Interval: 5 * time.Millisecond, Debounce: time.Minute}, log)
	require.NoError(t, err)

	ticker.Start(context.Background())
	defer ticker.Stop()

	// Never-fired interval directives fire on the first evaluating tick
	require.Eventually(t, func() bool {
		return ledger.Len() >= 1
	}, time.Second, 5*time.Millisecond)

	coord.Wait()
	entries, _ := ledger.Query(journal.Filter{DirectiveID: d.ID, Limit: 1})
	require.Len(t, entries, 1)
	assert.Equal(t, journal.StatusSuccess, entries[0].Status)
}

func TestTickerIsolatesFailures(t *testing.T) {
	log := zap.NewNop().Sugar()
	store := NewStore(log)
	ledger := journal.NewLedger(log)
	chain := &gatedDeliverer{panics: true}
	coord := NewCoordinator(store, ledger, chain, nil, log)

	a := NewDirective("a", ModeInterval)
	a.Every = "1s"
	require.NoError(t, store.Add(a))
	b := NewDirective("b", ModeInterval)
	b.Every = "1s"
	require.NoError(t, store.Add(b))

	ticker, err := NewTicker(store, coord, TickerConfig{Interval: 5 * time.Millisecond, Debounce: time.Minute}, log)
	require.NoError(t, err)

	ticker.Start(context.Background())
	defer ticker.Stop()

	// Both directives fire despite every delivery panicking
	require.Eventually(t, func() bool {
		return ledger.Len() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestTickerStartStopIdempotent(t *testing.T) {
	log := zap.NewNop().Sugar()
	store := NewStore(log)
	coord := NewCoordinator(store, journal.NewLedger(log), &gatedDeliverer{}, nil, log)

	ticker, err := NewTicker(store, coord, DefaultTickerConfig(), log)
	require.NoError(t, err)

	ticker.Start(context.Background())
	ticker.Start(context.Background())
	ticker.Stop()
	ticker.Stop()

	stats := ticker.Stats()
	assert.Equal(t, false, stats["running"])
}
