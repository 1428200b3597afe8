package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/core/config"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/scheduler"
)

var nextRunCmd = &cobra.Command{
	Use:   "next-run",
	Short: "Print when the next explicit run is due",
	Long: `Print the next explicit run time from run_times. Without valid run
times the next run is an hour from now. Only the config file is read.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		fc, err := config.LoadFile(fileConfigPath())
		if err != nil {
			return err
		}
		now := time.Now()
		next := scheduler.NextRun(fc.RunTimes, now)
		fmt.Printf("%s (in %s)\n", next.Format(time.DateTime), next.Sub(now).Round(time.Second))
		if fc.RunOnInterval {
			fmt.Printf("interval runs every %s\n", fc.Interval())
		}
		return nil
	},
}
