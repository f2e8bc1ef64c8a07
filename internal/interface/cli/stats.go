package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Long: `Display statistics about the session index.

Shows session and event counts per provider, tool usage, activity range
and storage size. Run 'agentrider sync' first to populate the index.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	database, err := openIndex()
	if err != nil {
		return err
	}
	defer func() {
		_ = database.Close()
	}()

	stats, err := database.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, titleStyle.Render("Index Statistics"))
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintf(out, "Total Sessions:    %s\n", humanize.Comma(int64(stats.TotalSessions)))
	_, _ = fmt.Fprintf(out, "Total Events:      %s\n", humanize.Comma(int64(stats.TotalEvents)))
	_, _ = fmt.Fprintf(out, "Total Tool Uses:   %s\n", humanize.Comma(int64(stats.TotalToolUses)))

	if stats.TotalSessions > 0 {
		_, _ = fmt.Fprintln(out)
		names := make([]string, 0, len(stats.SessionsByProvider))
		for name := range stats.SessionsByProvider {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			_, _ = fmt.Fprintf(out, "  %-16s %d\n", providerStyle.Render(name), stats.SessionsByProvider[name])
		}

		_, _ = fmt.Fprintln(out)
		if !stats.OldestActivity.IsZero() {
			_, _ = fmt.Fprintf(out, "Oldest Session:    %s\n", stats.OldestActivity.Local().Format("Jan 2, 2006 3:04 PM"))
		}
		if !stats.NewestActivity.IsZero() {
			_, _ = fmt.Fprintf(out, "Newest Session:    %s\n", stats.NewestActivity.Local().Format("Jan 2, 2006 3:04 PM"))
		}
		if stats.MostActiveProject != "" {
			_, _ = fmt.Fprintln(out)
			_, _ = fmt.Fprintf(out, "Most Active Project:\n")
			_, _ = fmt.Fprintf(out, "  Path:     %s\n", stats.MostActiveProject)
			_, _ = fmt.Fprintf(out, "  Sessions: %d\n", stats.MostActiveProjectCount)
		}
	}

	_, _ = fmt.Fprintln(out)
	fileInfo, err := os.Stat(dbPath)
	if err != nil {
		return fmt.Errorf("failed to stat database file: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Database Location: %s\n", dbPath)
	_, _ = fmt.Fprintf(out, "Database Size:     %s\n", humanize.Bytes(uint64(fileInfo.Size())))
	return nil
}
