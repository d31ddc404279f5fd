package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/reflow/cmd/reflow/commands"
	"github.com/teranos/reflow/config"
	"github.com/teranos/reflow/logger"
)

var rootCmd = &cobra.Command{
	Use:   "reflow",
	Short: "reflow - expression-driven property engine for document graphs",
	Long: `reflow binds formulas to document object properties and keeps them
consistent: it builds the dependency graph over all bindings, rejects
cycles, computes a deterministic evaluation order and writes results back.

Available commands:
  eval    - Evaluate all expression bindings in a document file
  check   - Validate a document file's bindings without evaluating
  version - Show version information

Examples:
  reflow eval bracket.yaml          # Evaluate and print property values
  reflow check bracket.yaml         # Report the first invalid binding
  reflow eval -v bracket.yaml       # With progress logging`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.InitializeWithVerbosity(verbosity, jsonLogs || cfg.Log.JSON); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit structured JSON logs")

	rootCmd.AddCommand(commands.EvalCmd)
	rootCmd.AddCommand(commands.CheckCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
