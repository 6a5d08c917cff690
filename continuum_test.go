package continuum

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jpetree331/continuum/bridge"
	"github.com/jpetree331/continuum/config"
	"github.com/jpetree331/continuum/journal"
	"github.com/jpetree331/continuum/schedule"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Database:  config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "continuum.db")},
		Scheduler: config.SchedulerConfig{TickIntervalSeconds: 1, DebounceSeconds: 60},
		Delivery: config.DeliveryConfig{
			TimeoutSeconds:    5,
			SimulationEnabled: true,
			JournalRetention:  100,
		},
	}
}

func newTestCore(t *testing.T, cfg *config.Config) *Core {
	t.Helper()
	core, err := New(context.Background(), cfg, zap.NewNop().Sugar(), nil)
	require.NoError(t, err)
	t.Cleanup(core.Stop)
	return core
}

func addTestDirective(t *testing.T, core *Core) *schedule.Directive {
	t.Helper()
	d := schedule.NewDirective("hourly check-in", schedule.ModeInterval)
	d.Every = "1h"
	d.Prompt = "how are things going?"
	require.NoError(t, core.AddDirective(d))
	return d
}

func waitForSettle(t *testing.T, core *Core, entryID string) journal.Entry {
	t.Helper()
	var entry journal.Entry
	require.Eventually(t, func() bool {
		e, ok := core.JournalEntry(entryID)
		if !ok {
			return false
		}
		entry = e
		return e.Status.Terminal()
	}, 5*time.Second, 20*time.Millisecond)
	return entry
}

func TestFireNowSimulatedDelivery(t *testing.T) {
	core := newTestCore(t, testConfig(t))
	d := addTestDirective(t, core)

	entryID, err := core.FireNow(context.Background(), d.ID)
	require.NoError(t, err)

	// Entry is pending while the simulated delivery runs
	entry, ok := core.JournalEntry(entryID)
	require.True(t, ok)
	assert.Equal(t, journal.StatusPending, entry.Status)

	entry = waitForSettle(t, core, entryID)
	assert.Equal(t, journal.StatusSuccess, entry.Status)
	assert.Contains(t, entry.Response, "[SIMULATION MODE]")
	assert.Contains(t, entry.Response, "how are things going?")
	assert.False(t, entry.Archived)
}

func TestStatePersistsAcrossRestart(t *testing.T) {
	cfg := testConfig(t)

	core, err := New(context.Background(), cfg, zap.NewNop().Sugar(), nil)
	require.NoError(t, err)
	d := addTestDirective(t, core)

	entryID, err := core.FireNow(context.Background(), d.ID)
	require.NoError(t, err)
	waitForSettle(t, core, entryID)
	core.Stop()

	reopened := newTestCore(t, cfg)
	directives := reopened.Directives()
	require.Len(t, directives, 1)
	assert.Equal(t, d.ID, directives[0].ID)
	assert.False(t, directives[0].LastFiredAt.IsZero())

	entry, ok := reopened.JournalEntry(entryID)
	require.True(t, ok)
	assert.Equal(t, journal.StatusSuccess, entry.Status)
}

func TestUnstartedCorePersistsOnStop(t *testing.T) {
	cfg := testConfig(t)

	// CRUD-only usage, the way one-shot commands drive the core: no Start
	core, err := New(context.Background(), cfg, zap.NewNop().Sugar(), nil)
	require.NoError(t, err)
	d := addTestDirective(t, core)
	core.Stop()

	reopened := newTestCore(t, cfg)
	directives := reopened.Directives()
	require.Len(t, directives, 1)
	assert.Equal(t, d.ID, directives[0].ID)
}

func TestDirectiveCRUD(t *testing.T) {
	core := newTestCore(t, testConfig(t))
	d := addTestDirective(t, core)

	edit, _ := core.store.Get(d.ID)
	edit.Every = "2h"
	require.NoError(t, core.UpdateDirective(&edit))

	require.NoError(t, core.SetDirectiveEnabled(d.ID, false))
	got, _ := core.store.Get(d.ID)
	assert.Equal(t, "2h", got.Every)
	assert.False(t, got.Enabled)

	_, err := core.FireNow(context.Background(), d.ID)
	require.Error(t, err)

	require.NoError(t, core.RemoveDirective(d.ID))
	assert.Empty(t, core.Directives())
}

func TestBridgeBackedDelivery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/continuum/schedules":
			w.Write([]byte(`[]`))
		case "/continuum/settings":
			w.Write([]byte(`{}`))
		case "/continuum/journal/trigger":
			json.NewEncoder(w).Encode(map[string]string{"response": "relayed answer"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Bridge = config.BridgeConfig{URL: srv.URL, APIKey: "k"}
	core := newTestCore(t, cfg)

	d := schedule.NewDirective("relayed", schedule.ModeInterval)
	d.Every = "1h"
	d.Prompt = "p"
	d.Target = "thread-1"
	require.NoError(t, core.AddDirective(d))

	entryID, err := core.FireNow(context.Background(), d.ID)
	require.NoError(t, err)

	entry := waitForSettle(t, core, entryID)
	assert.Equal(t, journal.StatusSuccess, entry.Status)
	assert.Equal(t, "relayed answer", entry.Response)
	assert.True(t, entry.Archived)
}

func TestArchiveEntriesRequiresBridge(t *testing.T) {
	core := newTestCore(t, testConfig(t))
	_, err := core.ArchiveEntries(context.Background(), bridge.ArchiveQuery{})
	require.Error(t, err)
}

func TestMemoriesFlowIntoContextBlock(t *testing.T) {
	core := newTestCore(t, testConfig(t))
	core.AddMemory("owner", "prefers short answers", 1)
	core.AddMemory("project", "shipping friday", 5)

	block := core.contextBlock(time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC))
	assert.Contains(t, block, "Current Time:")
	assert.Contains(t, block, "[project: shipping friday], [owner: prefers short answers]")

	m := core.Memories()
	require.Len(t, m, 2)
	require.NoError(t, core.RemoveMemory(m[0].ID))
	assert.Len(t, core.Memories(), 1)
}

func TestSettingsUpdate(t *testing.T) {
	core := newTestCore(t, testConfig(t))
	core.UpdateSettings(config.Settings{
		Agent: config.AgentConfig{BaseURL: "http://localhost:9090"},
	})
	assert.True(t, core.Settings().Agent.Configured())
}

func TestSchedulerFiresIntervalDirective(t *testing.T) {
	cfg := testConfig(t)
	core := newTestCore(t, cfg)

	d := schedule.NewDirective("fast", schedule.ModeInterval)
	d.Every = "1s"
	d.Prompt = "tick"
	require.NoError(t, core.AddDirective(d))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	core.Start(ctx)

	require.Eventually(t, func() bool {
		entries, _ := core.Journal(journal.Filter{DirectiveID: d.ID})
		return len(entries) >= 1
	}, 5*time.Second, 50*time.Millisecond)
}
