// Command updater is the operator CLI: run the automation once, inspect the
// schedule, print the config schema, or move a single ticket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "updater",
	Short: "Operate the Jira status updater",
	Long: `updater runs and inspects the Jira status automation outside the worker.

Examples:
  updater run                          # One automation run, summary to stdout
  updater next-run                     # When the next explicit run is due
  updater schema > config.schema.json  # JSON schema of the config file
  updater transition PAY-12 "In Review"`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the automation config file (default $CONFIG_FILE or config.json)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(nextRunCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(transitionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		stop()
		os.Exit(1)
	}
}
