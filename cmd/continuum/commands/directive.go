package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpetree331/continuum"
	"github.com/jpetree331/continuum/config"
	"github.com/jpetree331/continuum/journal"
	"github.com/jpetree331/continuum/logger"
	"github.com/jpetree331/continuum/schedule"
)

// DirectiveCmd groups directive management subcommands
var DirectiveCmd = &cobra.Command{
	Use:   "directive",
	Short: "Manage recurring directives",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var directiveLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List directives",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCore(func(ctx context.Context, core *continuum.Core) error {
			directives := core.Directives()
			if len(directives) == 0 {
				fmt.Println("No directives.")
				return nil
			}
			for _, d := range directives {
				state := "enabled"
				if !d.Enabled {
					state = "disabled"
				}
				lastRun := "never"
				if !d.LastFiredAt.IsZero() {
					lastRun = d.LastFiredAt.Format("2006-01-02 15:04:05")
				}
				fmt.Printf("%s  %-24s %-8s %-10s last=%s\n",
					d.ID, d.Name, describeRecurrence(d), state, lastRun)
			}
			return nil
		})
	},
}

var directiveAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a directive",
	Long: `Add a directive.

Interval mode:
  continuum directive add standup --every 24h --prompt "post the standup" --target thread-1

Specific-time mode (weekdays are 0=Sunday..6=Saturday):
  continuum directive add report --at 17:30 --days 1,2,3,4,5 --prompt "summarize the day"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		every, _ := cmd.Flags().GetString("every")
		at, _ := cmd.Flags().GetString("at")
		daysFlag, _ := cmd.Flags().GetString("days")
		prompt, _ := cmd.Flags().GetString("prompt")
		target, _ := cmd.Flags().GetString("target")

		var d *schedule.Directive
		switch {
		case every != "":
			d = schedule.NewDirective(args[0], schedule.ModeInterval)
			d.Every = every
		case at != "":
			d = schedule.NewDirective(args[0], schedule.ModeSpecific)
			d.AtTime = at
			days, err := parseDays(daysFlag)
			if err != nil {
				return err
			}
			d.OnDays = days
		default:
			return fmt.Errorf("one of --every or --at is required")
		}
		d.Prompt = prompt
		d.Target = target

		return withCore(func(ctx context.Context, core *continuum.Core) error {
			if err := core.AddDirective(d); err != nil {
				return err
			}
			fmt.Printf("Added directive %s\n", d.ID)
			return nil
		})
	},
}

var directiveRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a directive (its journal entries remain)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCore(func(ctx context.Context, core *continuum.Core) error {
			return core.RemoveDirective(args[0])
		})
	},
}

var directiveEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a directive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCore(func(ctx context.Context, core *continuum.Core) error {
			return core.SetDirectiveEnabled(args[0], true)
		})
	},
}

var directiveDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a directive (does not cancel an in-flight delivery)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCore(func(ctx context.Context, core *continuum.Core) error {
			return core.SetDirectiveEnabled(args[0], false)
		})
	},
}

var directiveFireCmd = &cobra.Command{
	Use:   "fire <id>",
	Short: "Trigger a directive immediately",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCore(func(ctx context.Context, core *continuum.Core) error {
			entryID, err := core.FireNow(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Fired; journal entry %s\n", entryID)

			// Block until the delivery settles so the outcome is visible
			for {
				entry, ok := core.JournalEntry(entryID)
				if ok && entry.Status != journal.StatusPending {
					fmt.Printf("%s: %s\n", entry.Status, entry.Response)
					return nil
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(50 * time.Millisecond):
				}
			}
		})
	},
}

func init() {
	directiveAddCmd.Flags().String("every", "", "interval like 30s, 5m, 2h")
	directiveAddCmd.Flags().String("at", "", "wall-clock time HH:MM (24h)")
	directiveAddCmd.Flags().String("days", "", "comma-separated weekdays 0-6")
	directiveAddCmd.Flags().String("prompt", "", "prompt text to deliver")
	directiveAddCmd.Flags().String("target", "", "target conversation id (empty = simulate)")

	DirectiveCmd.AddCommand(directiveLsCmd)
	DirectiveCmd.AddCommand(directiveAddCmd)
	DirectiveCmd.AddCommand(directiveRmCmd)
	DirectiveCmd.AddCommand(directiveEnableCmd)
	DirectiveCmd.AddCommand(directiveDisableCmd)
	DirectiveCmd.AddCommand(directiveFireCmd)
}

// withCore assembles a core, runs fn, and tears the core down
func withCore(fn func(context.Context, *continuum.Core) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()
	core, err := continuum.New(ctx, cfg, logger.Named("core"), nil)
	if err != nil {
		return fmt.Errorf("failed to assemble core: %w", err)
	}
	defer core.Stop()

	return fn(ctx, core)
}

func describeRecurrence(d *schedule.Directive) string {
	if d.Mode == schedule.ModeInterval {
		return "every " + d.Every
	}
	return fmt.Sprintf("%s on %s", d.AtTime, formatDays(d.OnDays))
}

func parseDays(flag string) ([]int, error) {
	if flag == "" {
		return nil, fmt.Errorf("--days is required with --at")
	}
	var days []int
	for _, part := range strings.Split(flag, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid weekday %q", part)
		}
		days = append(days, n)
	}
	return days, nil
}

func formatDays(days []int) string {
	names := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	parts := make([]string, 0, len(days))
	for _, d := range days {
		if d >= 0 && d < len(names) {
			parts = append(parts, names[d])
		}
	}
	return strings.Join(parts, ",")
}
