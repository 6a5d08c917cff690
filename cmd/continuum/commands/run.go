package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpetree331/continuum"
	"github.com/jpetree331/continuum/config"
	"github.com/jpetree331/continuum/logger"
)

// RunCmd starts the scheduler daemon
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Continuum scheduler daemon",
	Long: `Start the scheduler daemon in foreground mode.

The daemon evaluates the directive set once per tick, fires due directives
through the delivery chain (relay, direct agent channel, simulation), and
persists state in the background. It runs until interrupted; on shutdown it
waits for in-flight deliveries to settle and flushes persistence.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		core, err := continuum.New(ctx, cfg, logger.Named("core"), nil)
		if err != nil {
			return fmt.Errorf("failed to assemble core: %w", err)
		}
		defer core.Stop()

		core.Start(ctx)

		if watcher := startConfigWatcher(); watcher != nil {
			defer watcher.Stop()
		}

		fmt.Printf("Continuum running with %d directive(s). Ctrl+C to stop.\n", len(core.Directives()))

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Logger.Info("Shutdown signal received, settling in-flight deliveries")
		return nil
	},
}

// startConfigWatcher watches continuum.toml when present. Endpoint changes
// take effect on the next restart; the watcher logs what changed so the
// operator knows a restart is pending.
func startConfigWatcher() *config.Watcher {
	const path = "continuum.toml"
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	watcher, err := config.NewWatcher(path)
	if err != nil {
		logger.Logger.Warnw("Config watcher unavailable", "error", err)
		return nil
	}
	watcher.OnReload(func(cfg *config.Config) error {
		logger.Logger.Infow("Config file changed; backend endpoints apply on restart",
			"bridge_configured", cfg.Bridge.Configured(),
			"agent_configured", cfg.Agent.Configured())
		return nil
	})
	watcher.Start()
	return watcher
}
