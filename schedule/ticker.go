package schedule

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jpetree331/continuum/errors"
)

// TickerConfig configures the scheduler loop
type TickerConfig struct {
	Interval time.Duration // tick cadence, the firing-latency upper bound
	Debounce time.Duration // minimum gap between specific-time firings
}

// DefaultTickerConfig returns the standard 1s cadence with a one-minute
// debounce window.
func DefaultTickerConfig() TickerConfig {
	return TickerConfig{
		Interval: time.Second,
		Debounce: DefaultDebounce,
	}
}

// Ticker drives the scheduler: on every tick it evaluates the directive set
// and hands each due directive to the coordinator. A failure on one
// directive never prevents the others from firing.
type Ticker struct {
	store       *Store
	coordinator *Coordinator
	interval    time.Duration
	debounce    time.Duration
	log         *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	running    bool
	lastTickAt time.Time
	tickCount  int64
	nextWakeAt time.Time
}

// NewTicker creates a ticker. The config's Interval must not exceed its
// Debounce, or a specific-time directive could fire twice in one minute.
func NewTicker(store *Store, coordinator *Coordinator, cfg TickerConfig, log *zap.SugaredLogger) (*Ticker, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("tick interval must be positive")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Interval > cfg.Debounce {
		return nil, errors.Newf("tick interval %s exceeds debounce window %s", cfg.Interval, cfg.Debounce)
	}
	return &Ticker{
		store:       store,
		coordinator: coordinator,
		interval:    cfg.Interval,
		debounce:    cfg.Debounce,
		log:         log,
	}, nil
}

// Start launches the scheduler loop. It is idempotent.
func (t *Ticker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.ctx, t.cancel = context.WithCancel(ctx)
	t.mu.Unlock()

	t.log.Infow("Scheduler started", "interval", t.interval, "debounce", t.debounce)

	t.wg.Add(1)
	go t.run()
}

// Stop halts the loop and waits for it to exit. In-flight deliveries are not
// cancelled; use the coordinator's Wait to drain them.
func (t *Ticker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	cancel := t.cancel
	t.mu.Unlock()

	cancel()
	t.wg.Wait()
	t.log.Info("Scheduler stopped")
}

func (t *Ticker) run() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case now := <-ticker.C:
			t.tick(now)
		}
	}
}

func (t *Ticker) tick(now time.Time) {
	ds := Evaluate(now, t.store.List(), t.debounce)

	t.mu.Lock()
	t.lastTickAt = now
	t.tickCount++
	wakeChanged := !ds.NextWakeAt.Equal(t.nextWakeAt)
	t.nextWakeAt = ds.NextWakeAt
	t.mu.Unlock()

	if wakeChanged && !ds.NextWakeAt.IsZero() {
		t.log.Debugw("Next firing scheduled",
			"next_wake_at", ds.NextWakeAt,
			"in", ds.NextWakeAt.Sub(now).Round(time.Second))
	}

	for _, d := range ds.Due {
		select {
		case <-t.ctx.Done():
			return
		default:
		}

		if _, err := t.coordinator.ClaimAndFire(t.ctx, d.ID); err != nil {
			if errors.IsAlreadyInFlight(err) {
				t.log.Debugw("Directive still in flight, skipping",
					"directive_id", d.ID,
					"name", d.Name)
				continue
			}
			t.log.Errorw("Failed to fire directive",
				"directive_id", d.ID,
				"name", d.Name,
				"error", err)
		}
	}
}

// Stats returns scheduler loop statistics
func (t *Ticker) Stats() map[string]interface{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return map[string]interface{}{
		"running":      t.running,
		"interval":     t.interval.String(),
		"tick_count":   t.tickCount,
		"last_tick_at": t.lastTickAt,
		"next_wake_at": t.nextWakeAt,
	}
}
