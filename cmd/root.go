// Package cmd provides the command-line interface for Pipelab.
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pipelab",
	Short: "Pipelab is a teaching simulator of a classic 5-stage pipeline.",
	Long: `Pipelab steps an instruction sequence through a classic 5-stage ` +
		`pipeline (fetch, decode, execute, memory, write-back) one cycle at a ` +
		`time, explaining the data, control, and structural hazards that arise ` +
		`between overlapping instructions. It does not execute instruction ` +
		`semantics; it tracks where instructions are and what would happen.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	// A .env file can provide defaults such as PIPELAB_MONITOR_PORT.
	_ = godotenv.Load()

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
