package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpetree331/continuum/cmd/continuum/commands"
	"github.com/jpetree331/continuum/config"
	"github.com/jpetree331/continuum/logger"
)

var rootCmd = &cobra.Command{
	Use:   "continuum",
	Short: "Continuum - recurring directive scheduler for AI agents",
	Long: `Continuum - scheduling and dispatch core for recurring directives.

Directives are prompts delivered to an AI agent on a fixed interval or at a
wall-clock time on selected weekdays. Every firing is recorded in an
append-only journal.

Examples:
  continuum run                              # Start the scheduler daemon
  continuum directive ls                     # List directives
  continuum directive fire <id>              # Trigger a directive now
  continuum journal ls                       # Show recent firings`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := logger.Initialize(cfg.Log.JSON); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.DirectiveCmd)
	rootCmd.AddCommand(commands.JournalCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
