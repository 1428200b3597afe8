package main

import (
	"golang.org/x/tools/go/analysis"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/tools/linters/enumvalidator"
)

// AnalyzerPlugin exposes the module's analyzers to golangci-lint.
type AnalyzerPlugin struct{}

func (*AnalyzerPlugin) GetAnalyzers() []*analysis.Analyzer {
	return []*analysis.Analyzer{
		enumvalidator.Analyzer,
	}
}

func New(conf any) ([]*analysis.Analyzer, error) {
	return []*analysis.Analyzer{enumvalidator.Analyzer}, nil
}

// main is required for `go build ./...`; the package is loaded as a plugin.
func main() {}
