package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/core/config"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the config file",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(config.Schema())
	},
}
