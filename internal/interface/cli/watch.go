package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/neilberkman/agentrider/internal/core/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print sessions as they start or change",
	Long: `Watch every provider's transcript directory and print sessions that are
created, updated or removed. Press Ctrl-C to stop.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Wait this long for writes to settle")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := watch.New(registry, logger)
	w.SetDebounce(watchDebounce)

	out := cmd.OutOrStdout()
	logger.Info("watching for session changes", "providers", registry.Names())
	err := w.Run(ctx, func(changes []watch.Change) {
		for _, c := range changes {
			rec := c.Record
			_, _ = fmt.Fprintf(out, "%s %-7s %s %s\n",
				metaStyle.Render(time.Now().Format("15:04:05")),
				c.Kind, providerStyle.Render(rec.Provider), rec.ID)
			if c.Kind != watch.Removed && rec.LastUserMessage != "" {
				_, _ = fmt.Fprintf(out, "         %s\n", truncate(rec.LastUserMessage, 100))
			}
		}
	})
	if err != nil && ctx.Err() != context.Canceled {
		return err
	}
	return nil
}
