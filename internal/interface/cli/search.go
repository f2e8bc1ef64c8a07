package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neilberkman/agentrider/internal/core/importer"
	"github.com/neilberkman/agentrider/internal/core/search"
)

var (
	searchLimit    int
	searchCode     bool
	searchProvider string
	searchSync     bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed sessions using full-text search",
	Long: `Search through every indexed session event.

Uses FTS5 full-text search with porter stemming for natural language, or an
unstemmed index with --code. Queries containing characters such as - _ / .
fall back to substring matching.

Examples:
  agentrider search "authentication implementation"
  agentrider search "ENA-7030"
  agentrider search getUserById --code
  agentrider search "error handling" --limit 10`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchLimit, "limit", 50, "Maximum number of matches to show")
	searchCmd.Flags().BoolVar(&searchCode, "code", false, "Search without stemming (identifiers, symbols)")
	searchCmd.Flags().StringVar(&searchProvider, "provider", "", "Only search this provider's sessions")
	searchCmd.Flags().BoolVar(&searchSync, "sync", true, "Update the index before searching")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	database, err := openIndex()
	if err != nil {
		return err
	}
	defer func() {
		_ = database.Close()
	}()

	if searchSync {
		if _, err := importer.New(database, registry, logger).Sync(nil); err != nil {
			logger.Warn("index update failed", "error", err)
		}
	}

	results, err := search.SearchWith(database, query, search.Options{
		Provider: searchProvider,
		Limit:    searchLimit,
		Code:     searchCode,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		_, _ = fmt.Fprintf(out, "No results found for: %s\n", query)
		return nil
	}

	_, _ = fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Found %d match(es) for: %s", len(results), query)))
	_, _ = fmt.Fprintln(out)

	for _, r := range results {
		_, _ = fmt.Fprintf(out, "%s %s #%d %s\n", providerStyle.Render(r.Provider), r.SessionID, r.Seq, metaStyle.Render(r.Label))
		if r.WorkingDir != "" {
			_, _ = fmt.Fprintf(out, "  Project: %s\n", r.WorkingDir)
		}
		_, _ = fmt.Fprintf(out, "  %s\n\n", truncate(r.Snippet, 200))
	}
	return nil
}
