package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/neilberkman/agentrider/internal/core/db"
	"github.com/neilberkman/agentrider/internal/core/importer"
)

var syncQuiet bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Index sessions for full-text search",
	Long: `Index every provider's sessions and events into the SQLite database
used by search and stats.

Performs incremental sync - only files whose size or modification time
changed are re-read. Sessions whose transcript disappeared are removed,
unless a provider could not be scanned.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolVarP(&syncQuiet, "quiet", "q", false, "Do not draw a progress bar")
}

// openIndex opens the index database, creating its directory first.
func openIndex() (*db.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}
	database, err := db.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	database, err := openIndex()
	if err != nil {
		return err
	}
	defer func() {
		_ = database.Close()
	}()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Database: %s\n\n", dbPath)

	var progress func(int) importer.ProgressCallback
	if !syncQuiet {
		progress = func(total int) importer.ProgressCallback {
			return importer.NewProgressReporter(cmd.ErrOrStderr(), total)
		}
	}

	imp := importer.New(database, registry, logger)
	res, err := imp.Sync(progress)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	_, _ = fmt.Fprintf(out, "Indexed %d, unchanged %d, failed %d, removed %d\n",
		res.Indexed, res.Unchanged, res.Failed, res.Pruned)
	return nil
}
