package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpetree331/continuum"
	"github.com/jpetree331/continuum/journal"
)

// JournalCmd groups journal subcommands
var JournalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the firing journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var journalLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List journal entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		directiveID, _ := cmd.Flags().GetString("directive")

		return withCore(func(ctx context.Context, core *continuum.Core) error {
			entries, hasMore := core.Journal(journal.Filter{
				DirectiveID: directiveID,
				Limit:       limit,
			})
			if len(entries) == 0 {
				fmt.Println("No journal entries.")
				return nil
			}
			for _, e := range entries {
				marker := " "
				if e.Archived {
					marker = "*"
				}
				fmt.Printf("%s %s%s [%s] %s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"),
					marker,
					e.ID,
					e.Status,
					truncate(e.Response, 80))
			}
			if hasMore {
				fmt.Println("... more entries; raise --limit to see them")
			}
			return nil
		})
	},
}

func init() {
	journalLsCmd.Flags().Int("limit", 20, "maximum entries to show")
	journalLsCmd.Flags().String("directive", "", "filter by directive id")
	JournalCmd.AddCommand(journalLsCmd)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
