package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/neilberkman/agentrider/pkg/agentsessions"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session's details",
	Long: `Show a session record: provider, working directory, instructions and
every user message. The id may be a unique prefix.

Examples:
  agentrider show 0ccfddc4
  agentrider show rollout-2025-01-02 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the record as JSON")
}

func runShow(cmd *cobra.Command, args []string) error {
	rec, err := registry.FindSession(args[0])
	if err != nil {
		return err
	}
	if showJSON {
		return writeJSON(cmd.OutOrStdout(), rec)
	}
	printRecord(cmd.OutOrStdout(), rec)
	return nil
}

func printRecord(out io.Writer, rec agentsessions.SessionRecord) {
	_, _ = fmt.Fprintln(out, titleStyle.Render("Session "+rec.ID))
	_, _ = fmt.Fprintf(out, "Provider:   %s\n", providerStyle.Render(rec.Provider))
	if rec.WorkingDir != "" {
		_, _ = fmt.Fprintf(out, "Project:    %s\n", rec.WorkingDir)
	}
	if rec.Originator != "" {
		_, _ = fmt.Fprintf(out, "Originator: %s\n", rec.Originator)
	}
	if !rec.LastTimestamp.IsZero() {
		_, _ = fmt.Fprintf(out, "Updated:    %s (%s)\n",
			rec.LastTimestamp.Local().Format("Jan 2, 2006 15:04"), formatTimestamp(rec.LastTimestamp))
	}
	_, _ = fmt.Fprintf(out, "File:       %s\n", rec.FilePath)

	if rec.Instructions != "" {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, systemStyle.Render("Instructions"))
		_, _ = fmt.Fprintln(out, truncate(rec.Instructions, 400))
	}

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, userStyle.Render(fmt.Sprintf("User messages (%d)", len(rec.UserMessages))))
	for i, msg := range rec.UserMessages {
		_, _ = fmt.Fprintf(out, "%3d. %s\n", i+1, truncate(msg, 160))
	}
}
