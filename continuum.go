// Package continuum is the scheduling and dispatch core for recurring
// directives: prompts delivered to an AI agent on fixed intervals or at
// wall-clock times, with every firing recorded in an append-only journal.
package continuum

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jpetree331/continuum/agent"
	"github.com/jpetree331/continuum/bridge"
	"github.com/jpetree331/continuum/config"
	"github.com/jpetree331/continuum/db"
	"github.com/jpetree331/continuum/delivery"
	"github.com/jpetree331/continuum/errors"
	"github.com/jpetree331/continuum/journal"
	"github.com/jpetree331/continuum/persist"
	"github.com/jpetree331/continuum/schedule"
)

// Core wires the scheduler, journal, delivery chain, and persistence into
// one runnable unit. Create it with New, then Start it.
type Core struct {
	cfg    *config.Config
	log    *zap.SugaredLogger
	conn   *sql.DB
	store  *schedule.Store
	ledger *journal.Ledger

	coordinator *schedule.Coordinator
	ticker      *schedule.Ticker
	bridge      *bridge.Client
	agent       *agent.Client
	strategy    persist.Strategy
	saver       *persist.Saver

	settingsMu sync.RWMutex
	settings   config.Settings

	memoryMu sync.RWMutex
	memories []persist.Memory

	started bool
}

// New assembles a Core from configuration. The persistence strategy is
// chosen here, once; it does not change for the life of the process.
func New(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, broadcaster schedule.Broadcaster) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	conn, err := db.Open(cfg.Database.Path, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn, log); err != nil {
		conn.Close()
		return nil, err
	}

	c := &Core{
		cfg:    cfg,
		log:    log,
		conn:   conn,
		store:  schedule.NewStore(log),
		ledger: journal.NewLedger(log),
	}

	if cfg.Bridge.Configured() {
		c.bridge = bridge.NewClient(cfg.Bridge, cfg.Delivery.Timeout(), log)
	}

	local := persist.NewLocal(conn, cfg.Delivery.JournalRetention, log)
	strategy, state, err := persist.Choose(ctx, c.bridge, local, log)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "loading persisted state")
	}
	c.strategy = strategy
	c.store.Restore(state.Directives)
	c.ledger.Restore(state.Journal)
	c.memories = state.Memories
	c.settings = state.Settings

	// Persisted settings win over file config for the agent endpoint, so an
	// operator can repoint the agent without a restart-and-edit cycle.
	agentCfg := cfg.Agent
	if state.Settings.Agent.Configured() {
		agentCfg = state.Settings.Agent
	}
	if agentCfg.Configured() {
		c.agent = agent.NewClient(agentCfg, cfg.Delivery.Timeout(), log)
	}

	chain := delivery.NewChain(
		relayOrNil(c.bridge),
		agentOrNil(c.agent),
		c.contextBlock,
		delivery.ChainConfig{
			Timeout:           cfg.Delivery.Timeout(),
			SimulationEnabled: cfg.Delivery.SimulationEnabled,
		},
		log,
	)

	c.coordinator = schedule.NewCoordinator(c.store, c.ledger, chain, broadcaster, log)

	c.saver = persist.NewSaver(strategy, persist.Sources{
		Directives: c.store.Snapshot,
		Journal:    c.ledger.Snapshot,
		Memories:   c.Memories,
		Settings:   c.Settings,
	}, time.Second, log)
	c.coordinator.SetHooks(c.saver.MarkDirectivesDirty, c.saver.MarkJournalDirty)

	ticker, err := schedule.NewTicker(c.store, c.coordinator, schedule.TickerConfig{
		Interval: cfg.Scheduler.TickInterval(),
		Debounce: cfg.Scheduler.Debounce(),
	}, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	c.ticker = ticker

	log.Infow("Continuum core assembled",
		"persistence", strategy.Name(),
		"directives", c.store.Len(),
		"journal_entries", c.ledger.Len(),
		"relay_configured", c.bridge != nil,
		"agent_configured", c.agent != nil)
	return c, nil
}

// relayOrNil avoids a typed-nil interface when no bridge is configured
func relayOrNil(b *bridge.Client) delivery.Relay {
	if b == nil {
		return nil
	}
	return b
}

func agentOrNil(a *agent.Client) delivery.Agent {
	if a == nil {
		return nil
	}
	return a
}

// Start launches the scheduler loop and the background saver
func (c *Core) Start(ctx context.Context) {
	if c.started {
		return
	}
	c.started = true
	c.saver.Start(ctx)
	c.ticker.Start(ctx)
}

// Stop halts the scheduler, waits for in-flight deliveries to settle,
// flushes persistence, and closes the database.
//
// The saver flush runs even for a core that was never started: callers that
// only mutate state (CRUD, manual fires) must not lose it on teardown.
func (c *Core) Stop() {
	if c.started {
		c.ticker.Stop()
		c.started = false
	}
	c.coordinator.Wait()
	c.saver.Stop()
	c.conn.Close()
	c.log.Info("Continuum core stopped")
}

// AddDirective registers a new directive
func (c *Core) AddDirective(d *schedule.Directive) error {
	if err := c.store.Add(d); err != nil {
		return err
	}
	c.saver.MarkDirectivesDirty()
	return nil
}

// UpdateDirective replaces a directive's definition, preserving its firing
// history.
func (c *Core) UpdateDirective(d *schedule.Directive) error {
	if err := c.store.Update(d); err != nil {
		return err
	}
	c.saver.MarkDirectivesDirty()
	return nil
}

// RemoveDirective deletes a directive. Its journal entries remain.
func (c *Core) RemoveDirective(id string) error {
	if err := c.store.Delete(id); err != nil {
		return err
	}
	c.saver.MarkDirectivesDirty()
	return nil
}

// SetDirectiveEnabled toggles a directive
func (c *Core) SetDirectiveEnabled(id string, enabled bool) error {
	if err := c.store.SetEnabled(id, enabled); err != nil {
		return err
	}
	c.saver.MarkDirectivesDirty()
	return nil
}

// Directives lists all directives in insertion order
func (c *Core) Directives() []*schedule.Directive {
	return c.store.List()
}

// FireNow manually triggers a directive through the same claim path the
// scheduler uses, returning the pending journal entry id.
func (c *Core) FireNow(ctx context.Context, id string) (string, error) {
	return c.coordinator.FireNow(ctx, id)
}

// Journal queries the local journal, newest first
func (c *Core) Journal(f journal.Filter) ([]journal.Entry, bool) {
	return c.ledger.Query(f)
}

// JournalEntry fetches a single journal entry
func (c *Core) JournalEntry(id string) (journal.Entry, bool) {
	return c.ledger.Get(id)
}

// ArchiveEntries queries the bridge-side archive of relayed firings
func (c *Core) ArchiveEntries(ctx context.Context, q bridge.ArchiveQuery) (bridge.ArchivePage, error) {
	if c.bridge == nil {
		return bridge.ArchivePage{}, errors.WithStack(errors.ErrNoBackendConfigured)
	}
	return c.bridge.ArchiveEntries(ctx, q)
}

// Threads lists conversations available as directive targets, preferring the
// bridge's view and falling back to the direct agent channel.
func (c *Core) Threads(ctx context.Context) ([]bridge.Thread, error) {
	if c.bridge != nil {
		return c.bridge.Threads(ctx, 0, 0)
	}
	if c.agent != nil {
		targets, err := c.agent.ListTargets(ctx)
		if err != nil {
			return nil, err
		}
		threads := make([]bridge.Thread, len(targets))
		for i, t := range targets {
			threads[i] = bridge.Thread{ID: t.ID, Title: t.Title}
		}
		return threads, nil
	}
	return nil, errors.WithStack(errors.ErrNoBackendConfigured)
}

// Settings returns the current runtime settings
func (c *Core) Settings() config.Settings {
	c.settingsMu.RLock()
	defer c.settingsMu.RUnlock()
	return c.settings
}

// UpdateSettings replaces the runtime settings and persists them
func (c *Core) UpdateSettings(settings config.Settings) {
	c.settingsMu.Lock()
	c.settings = settings
	c.settingsMu.Unlock()
	c.saver.MarkSettingsDirty()
}

// Memories returns a copy of the memory set
func (c *Core) Memories() []persist.Memory {
	c.memoryMu.RLock()
	defer c.memoryMu.RUnlock()
	return append([]persist.Memory(nil), c.memories...)
}

// AddMemory stores a new memory fact
func (c *Core) AddMemory(key, value string, importance int) persist.Memory {
	m := persist.NewMemory(key, value, importance, time.Now())
	c.memoryMu.Lock()
	c.memories = append(c.memories, m)
	c.memoryMu.Unlock()
	c.saver.MarkMemoriesDirty()
	return m
}

// RemoveMemory deletes a memory by id
func (c *Core) RemoveMemory(id string) error {
	c.memoryMu.Lock()
	defer c.memoryMu.Unlock()
	for i, m := range c.memories {
		if m.ID == id {
			c.memories = append(c.memories[:i], c.memories[i+1:]...)
			c.saver.MarkMemoriesDirty()
			return nil
		}
	}
	return errors.Newf("memory %s not found", id)
}

// SchedulerStats returns scheduler loop statistics
func (c *Core) SchedulerStats() map[string]interface{} {
	return c.ticker.Stats()
}

// contextBlock flattens the current time and memory set into the system
// context preamble for direct agent deliveries. Memories are ordered by
// importance, highest first.
func (c *Core) contextBlock(now time.Time) string {
	c.memoryMu.RLock()
	memories := append([]persist.Memory(nil), c.memories...)
	c.memoryMu.RUnlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Current Time: %s", now.Format(time.RFC1123))

	if len(memories) > 0 {
		sort.SliceStable(memories, func(i, j int) bool {
			return memories[i].Importance > memories[j].Importance
		})
		pairs := make([]string, len(memories))
		for i, m := range memories {
			pairs[i] = fmt.Sprintf("[%s: %s]", m.Key, m.Value)
		}
		fmt.Fprintf(&b, "\nAvailable Memories: %s", strings.Join(pairs, ", "))
	}

	b.WriteString("\nInstruction: Respond to the prompt.")
	return b.String()
}
