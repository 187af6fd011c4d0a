package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the clickup-mcp application
var rootCmd = &cobra.Command{
	Use:   "clickup-mcp",
	Short: "MCP server exposing the ClickUp API to AI assistants",
	Long: `clickup-mcp is a Model Context Protocol (MCP) server that exposes
ClickUp tasks, comments, custom fields and documents as tools for AI
assistants.

Each tool call is a thin pass-through: arguments are validated, a single
ClickUp API request is issued, and the JSON response is relayed back.
Authentication uses either a static API token or the ClickUp OAuth2 flow
with encrypted token storage.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "clickup-mcp version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
