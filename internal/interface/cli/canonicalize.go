package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neilberkman/agentrider/pkg/agentsessions"
)

var canonicalizeCmd = &cobra.Command{
	Use:   "canonicalize <path>...",
	Short: "Print the canonical form of paths",
	Long: `Resolve each path to the absolute, symlink-free form used to match
session working directories. Unresolvable paths are printed unchanged and
reported on stderr.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCanonicalize,
}

func init() {
	rootCmd.AddCommand(canonicalizeCmd)
}

func runCanonicalize(cmd *cobra.Command, args []string) error {
	for _, path := range args {
		canonical, ok := agentsessions.Canonicalize(path)
		if !ok {
			logger.Warn("path could not be resolved", "path", path)
			canonical = path
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), canonical)
	}
	return nil
}
