package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service/issue_tracker"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/workflow"
)

var transitionDryRun bool

var transitionCmd = &cobra.Command{
	Use:   "transition KEY STATUS",
	Short: "Move one ticket to a status along its workflow",
	Long: `Resolve the path from the ticket's current status to STATUS using its
type's workflow graph and apply each step.

Examples:
  updater transition PAY-12 "In Review"
  updater transition PAY-12 Done --dry-run`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		key, err := service.NormalizeTicketKey(args[0])
		if err != nil {
			return err
		}
		target := args[1]

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tracker := issue_tracker.NewJiraService(cfg.Jira, cfg.Automation.EndDateField)

		issue, err := tracker.FetchIssue(ctx, key)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", key, err)
		}

		if transitionDryRun {
			path, ok := workflow.Resolve(issue.Status, target, workflow.GraphForType(issue.Type))
			if !ok {
				return fmt.Errorf("no path from %q to %q for %s", issue.Status, target, issue.Type)
			}
			fmt.Printf("%s: %s -> %s via [%s]\n", key, issue.Status, target, strings.Join(path.Actions(), ", "))
			return nil
		}

		out, err := workflow.NewExecutor(tracker).Transition(ctx, *issue, target)
		if err != nil {
			return err
		}
		switch out.Kind {
		case workflow.OutcomeNoPath:
			return fmt.Errorf("no path from %q to %q for %s", issue.Status, target, issue.Type)
		case workflow.OutcomeAlreadyAtTarget:
			fmt.Printf("%s is already %s\n", key, issue.Status)
		default:
			fmt.Printf("%s: %s -> %s (%d steps)\n", key, issue.Status, out.Status, out.Applied)
		}
		return nil
	},
}

func init() {
	transitionCmd.Flags().BoolVar(&transitionDryRun, "dry-run", false, "Print the path without applying it")
}
