package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neilberkman/agentrider/pkg/agentsessions"
)

var (
	eventsMode string
	eventsRaw  bool
	eventsJSON bool
)

var eventsCmd = &cobra.Command{
	Use:   "events <session-id>",
	Short: "Print a session's normalized events",
	Long: `Replay a session transcript as normalized events.

Modes:
  full          every event, including tool calls and metadata (default)
  conversation  user and assistant turns only
  user          the user messages only

Examples:
  agentrider events 0ccfddc4
  agentrider events 0ccfddc4 --mode conversation
  agentrider events 0ccfddc4 --json --raw`,
	Args: cobra.ExactArgs(1),
	RunE: runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().StringVar(&eventsMode, "mode", "full", "full, conversation or user")
	eventsCmd.Flags().BoolVar(&eventsRaw, "raw", false, "Attach each source line (JSON output only)")
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "Print events as JSON")
}

func runEvents(cmd *cobra.Command, args []string) error {
	mode, err := agentsessions.ParseLoadMode(eventsMode)
	if err != nil {
		return err
	}
	rec, err := registry.FindSession(args[0])
	if err != nil {
		return err
	}
	events, err := registry.LoadSessionEvents(rec, mode, eventsRaw || cfg.IncludeRaw)
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}

	if eventsJSON {
		if events == nil {
			events = []agentsessions.SessionEvent{}
		}
		return writeJSON(cmd.OutOrStdout(), events)
	}
	printEvents(cmd.OutOrStdout(), events)
	return nil
}

func printEvents(out io.Writer, events []agentsessions.SessionEvent) {
	for _, ev := range events {
		header := labelStyle(ev).Render(ev.Label)
		if !ev.Timestamp.IsZero() {
			header += " " + metaStyle.Render(ev.Timestamp.Local().Format("15:04:05"))
		}
		_, _ = fmt.Fprintln(out, header)
		if text := strings.TrimRight(ev.Text, "\n"); text != "" {
			_, _ = fmt.Fprintln(out, text)
		}
		_, _ = fmt.Fprintln(out)
	}
}
