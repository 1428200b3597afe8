package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/automation"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service/integration"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service/issue_tracker"
)

var (
	runJSON   bool
	runTicket string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the status automation once",
	Long: `Run the status automation once over every candidate ticket, or over a
single ticket with --ticket. Status changes are posted to the status-change
channel when a Slack token is configured.

Examples:
  updater run
  updater run --ticket PAY-12
  updater run --json`,
	RunE: runAutomation,
}

func init() {
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the summary as JSON")
	runCmd.Flags().StringVar(&runTicket, "ticket", "", "Process only this ticket")
}

func runAutomation(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tracker := issue_tracker.NewJiraService(cfg.Jira, cfg.Automation.EndDateField)
	repos, err := integration.NewRepositorySource(cfg.VCS)
	if err != nil {
		return err
	}

	runner := automation.NewRunner(automation.Config{
		Repositories:    cfg.Automation.Repositories,
		Queries:         cfg.Automation.Automation.Queries,
		Concurrency:     cfg.Automation.Automation.Concurrency,
		ParentTimeout:   cfg.Automation.Automation.ParentTimeout,
		StatusChannelID: cfg.Slack.StatusChangeChannelID,
	}, tracker, repos, newPublisher(cfg), nil)

	if runTicket != "" {
		issue, err := tracker.FetchIssue(ctx, runTicket)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", runTicket, err)
		}
		changed, err := runner.Process(ctx, *issue, cfg.Automation.Repositories)
		if err != nil {
			return err
		}
		fmt.Printf("%s: changed=%t\n", issue.Key, changed)
		return nil
	}

	sum, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "run finished", "candidates", sum.Candidates)

	if runJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}

	fmt.Printf("candidates: %d  changed: %d  failed: %d\n", sum.Candidates, sum.Changed, sum.Failed)
	for _, c := range sum.Changes {
		fmt.Printf("  %s (%s): %s -> %s\n", c.Key, c.Type, c.From, c.To)
	}
	return nil
}
