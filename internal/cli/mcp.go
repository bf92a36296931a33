package cli

import (
	"fmt"

	"github.com/mvp-joe/ruumba/internal/logger"
	"github.com/mvp-joe/ruumba/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for template extraction",
	Long: `Start the Model Context Protocol (MCP) server so coding assistants can
project ERB templates and merge corrected Ruby back into them.

Tools:
  ruumba_extract   template -> Ruby projection (direct or marked)
  ruumba_regions   template -> embedded code regions with line/column
  ruumba_replace   corrected marked projection -> template

The server communicates via stdio. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("log-level") || cmd.Flags().Changed("log-json") {
		logger.SetupLogger(logLevelFlag, logJSONFlag, false)
	}

	s := mcp.NewServer(Version, logger.GetDefault())
	if err := s.Serve(cmd.Context()); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
