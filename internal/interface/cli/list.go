package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/neilberkman/agentrider/internal/core/logging"
	"github.com/neilberkman/agentrider/pkg/agentsessions"
)

var (
	listProvider string
	listLimit    int
	listProject  string
	listSince    string
	listUntil    string
	listJSON     bool
	listTimeout  time.Duration
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions from every provider",
	Long: `List sessions found in the Claude Code, Codex and Kimi transcript
directories, most recent first.

Examples:
  agentrider list
  agentrider list --provider codex --limit 10
  agentrider list --project ~/src/app --since "last week"
  agentrider list --json`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listProvider, "provider", "", "Only list sessions from this provider")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of sessions to display (0 for all)")
	listCmd.Flags().StringVar(&listProject, "project", "", "Only sessions whose working directory is inside this path")
	listCmd.Flags().StringVar(&listSince, "since", "", "Only sessions active after this date (e.g. yesterday, 2025-01-02)")
	listCmd.Flags().StringVar(&listUntil, "until", "", "Only sessions active before this date")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print records as JSON")
	listCmd.Flags().DurationVar(&listTimeout, "timeout", 30*time.Second, "Give up scanning after this long")
}

// recordFilter narrows a listing; zero values match everything.
type recordFilter struct {
	Project string
	Since   time.Time
	Until   time.Time
	Limit   int
}

func (f recordFilter) apply(records []agentsessions.SessionRecord) []agentsessions.SessionRecord {
	var out []agentsessions.SessionRecord
	for _, rec := range records {
		if f.Project != "" && !agentsessions.WithinDir(f.Project, rec.WorkingDir) {
			continue
		}
		if !f.Since.IsZero() && (rec.LastTimestamp.IsZero() || rec.LastTimestamp.Before(f.Since)) {
			continue
		}
		if !f.Until.IsZero() && (rec.LastTimestamp.IsZero() || rec.LastTimestamp.After(f.Until)) {
			continue
		}
		out = append(out, rec)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// listRecords scans providers in the background so a stuck filesystem
// cannot hang the command past timeout.
func listRecords(ctx context.Context, provider string, timeout time.Duration) ([]agentsessions.SessionRecord, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		records []agentsessions.SessionRecord
		err     error
	}
	done := make(chan result, 1)
	go func() {
		var r result
		if provider != "" {
			r.records, r.err = registry.ListProvider(provider)
		} else {
			r.records, r.err = registry.ListSessions()
		}
		done <- r
	}()

	select {
	case r := <-done:
		if provider != "" && r.err != nil && len(r.records) == 0 {
			return nil, r.err
		}
		logging.ProviderFailures(logger, r.err)
		agentsessions.SortByRecent(r.records)
		return r.records, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("listing sessions: %w", ctx.Err())
	}
}

func runList(cmd *cobra.Command, args []string) error {
	filter := recordFilter{Project: listProject, Limit: listLimit}
	now := time.Now()
	if listSince != "" {
		t, err := parseDate(listSince, now)
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		filter.Since = t
	}
	if listUntil != "" {
		t, err := parseDate(listUntil, now)
		if err != nil {
			return fmt.Errorf("invalid --until: %w", err)
		}
		filter.Until = t
	}

	records, err := listRecords(cmd.Context(), listProvider, listTimeout)
	if err != nil {
		return err
	}
	records = filter.apply(records)

	out := cmd.OutOrStdout()
	if listJSON {
		if records == nil {
			records = []agentsessions.SessionRecord{}
		}
		return writeJSON(out, records)
	}

	if len(records) == 0 {
		_, _ = fmt.Fprintln(out, "No sessions found.")
		return nil
	}

	_, _ = fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Showing %d session(s)", len(records))))
	_, _ = fmt.Fprintln(out)
	for i, rec := range records {
		_, _ = fmt.Fprintf(out, "[%d] %s %s\n", i+1, providerStyle.Render(rec.Provider), rec.ID)
		if rec.FirstUserMessage != "" {
			_, _ = fmt.Fprintf(out, "    First:    %s\n", truncate(rec.FirstUserMessage, 80))
		}
		if rec.WorkingDir != "" {
			_, _ = fmt.Fprintf(out, "    Project:  %s\n", rec.WorkingDir)
		}
		_, _ = fmt.Fprintf(out, "    Messages: %d\n", len(rec.UserMessages))
		_, _ = fmt.Fprintf(out, "    Updated:  %s\n", metaStyle.Render(formatTimestamp(rec.LastTimestamp)))
		_, _ = fmt.Fprintln(out)
	}
	return nil
}
