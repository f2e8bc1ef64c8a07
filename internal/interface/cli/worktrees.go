package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neilberkman/agentrider/internal/core/worktree"
)

var worktreesUnmatched bool

var worktreesCmd = &cobra.Command{
	Use:   "worktrees <dir>...",
	Short: "Group sessions by worktree directory",
	Long: `Assign each session to the most specific of the given directories that
contains its working directory, and show the branch checked out there.

Examples:
  agentrider worktrees ~/src/app ~/src/app-wt/feature-login
  agentrider worktrees ~/src/app/.worktrees/* --unmatched`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWorktrees,
}

func init() {
	rootCmd.AddCommand(worktreesCmd)
	worktreesCmd.Flags().BoolVar(&worktreesUnmatched, "unmatched", false, "Also list sessions outside every directory")
}

func runWorktrees(cmd *cobra.Command, args []string) error {
	records, err := listRecords(cmd.Context(), "", listTimeout)
	if err != nil {
		return err
	}

	matches, unmatched := worktree.Correlate(records, args)
	worktree.AnnotateBranches(matches)

	out := cmd.OutOrStdout()
	for _, m := range matches {
		header := m.Dir
		if m.Branch != "" {
			header += " " + metaStyle.Render("["+m.Branch+"]")
		}
		_, _ = fmt.Fprintln(out, titleStyle.Render(header))
		if len(m.Sessions) == 0 {
			_, _ = fmt.Fprintln(out, metaStyle.Render("  no sessions"))
		}
		for _, rec := range m.Sessions {
			_, _ = fmt.Fprintf(out, "  %s %s  %s  %s\n",
				providerStyle.Render(rec.Provider), rec.ID,
				metaStyle.Render(formatTimestamp(rec.LastTimestamp)),
				truncate(rec.FirstUserMessage, 60))
		}
		_, _ = fmt.Fprintln(out)
	}

	if worktreesUnmatched && len(unmatched) > 0 {
		_, _ = fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Outside these directories (%d)", len(unmatched))))
		for _, rec := range unmatched {
			_, _ = fmt.Fprintf(out, "  %s %s  %s\n", providerStyle.Render(rec.Provider), rec.ID, rec.WorkingDir)
		}
	}
	return nil
}
