package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/cbroglie/mustache"
	"github.com/spf13/cobra"

	"github.com/neilberkman/agentrider/pkg/agentsessions"
)

var (
	exportOutput string
	exportCopy   bool
	exportMode   string
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session to markdown",
	Long: `Export a session to a markdown file rendered from a mustache template.

By default exports to current directory as session-<id>.md. The template can
be replaced with export_template in config.toml or an export_template.md
next to it.

Examples:
  agentrider export 0ccfddc4
  agentrider export 0ccfddc4 --output ~/exported-session.md
  agentrider export 0ccfddc4 --mode conversation --copy`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: session-<id>.md in current directory)")
	exportCmd.Flags().BoolVar(&exportCopy, "copy", false, "Copy the markdown to the clipboard instead of writing a file")
	exportCmd.Flags().StringVar(&exportMode, "mode", "conversation", "full, conversation or user")
}

func runExport(cmd *cobra.Command, args []string) error {
	mode, err := agentsessions.ParseLoadMode(exportMode)
	if err != nil {
		return err
	}
	rec, err := registry.FindSession(args[0])
	if err != nil {
		return err
	}
	events, err := registry.LoadSessionEvents(rec, mode, false)
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}

	markdown, err := renderExport(cfg.ExportTemplate, rec, events)
	if err != nil {
		return err
	}

	if exportCopy {
		if err := clipboard.WriteAll(markdown); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Copied session %s to clipboard\n", rec.ID)
		return nil
	}

	outputPath, err := exportPath(exportOutput, rec.ID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, []byte(markdown), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported session to: %s\n", outputPath)
	return nil
}

// exportPath resolves the destination file, defaulting to session-<id>.md in
// the current directory. The whole id is kept: Codex ids share a long prefix.
func exportPath(output, id string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	if output == "" {
		name := strings.NewReplacer("/", "_", `\`, "_").Replace(id)
		return filepath.Join(cwd, fmt.Sprintf("session-%s.md", name)), nil
	}
	if !filepath.IsAbs(output) {
		return filepath.Join(cwd, output), nil
	}
	return output, nil
}

func renderExport(tmpl string, rec agentsessions.SessionRecord, events []agentsessions.SessionEvent) (string, error) {
	out, err := mustache.Render(tmpl, exportData(rec, events))
	if err != nil {
		return "", fmt.Errorf("failed to render export template: %w", err)
	}
	return out, nil
}

func exportData(rec agentsessions.SessionRecord, events []agentsessions.SessionEvent) map[string]any {
	evs := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		evs = append(evs, map[string]any{
			"label":     ev.Label,
			"actor":     ev.Actor,
			"category":  ev.Category,
			"timestamp": exportTime(ev.Timestamp),
			"text":      ev.Text,
		})
	}
	return map[string]any{
		"id":                 rec.ID,
		"provider":           rec.Provider,
		"working_dir":        rec.WorkingDir,
		"originator":         rec.Originator,
		"instructions":       rec.Instructions,
		"first_user_message": rec.FirstUserMessage,
		"last_activity":      exportTime(rec.LastTimestamp),
		"file_path":          rec.FilePath,
		"message_count":      len(rec.UserMessages),
		"events":             evs,
	}
}

func exportTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 02, 2006 15:04:05")
}
