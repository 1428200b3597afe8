package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/tools/linters/enumvalidator"
)

func main() {
	singlechecker.Main(enumvalidator.Analyzer)
}
