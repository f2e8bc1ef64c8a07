package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neilberkman/agentrider/cmd/agentrider/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Start MCP server for agent integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio that lets an
agent list sessions, replay their events and canonicalize paths.

Configure in Claude Desktop's config file (~/.config/claude/config.json):
  {
    "mcpServers": {
      "agentrider": {
        "command": "agentrider",
        "args": ["serve-mcp"]
      }
    }
  }
`,
	Aliases: []string{"mcp"},
	RunE:    runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	if err := mcp.StartServer(registry, logger, versionInfo); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
