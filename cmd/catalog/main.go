package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const service = "catalog"

var rootCmd = &cobra.Command{
	Use:   "catalog",
	Short: "File-backed item catalog service",
	Long: `catalog serves a product catalog kept in a single JSON file.

COMMANDS:
  serve     Run the HTTP API (default)
  inspect   Print item count and cache validators of a data file

Configuration is read from the environment (CATALOG_*), optionally
seeded from a .env file in the working directory.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
