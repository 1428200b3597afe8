package integration

import (
	"context"
	"fmt"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/core/config"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
)

// RepositorySource finds the version-control activity for a ticket key.
// Lookups match the key anywhere in branch names and merge request titles.
type RepositorySource interface {
	// FindBranch returns the first branch whose name contains key.
	FindBranch(ctx context.Context, repo, key string) (string, bool, error)
	// FindMergeRequests returns open and merged requests whose title contains key.
	FindMergeRequests(ctx context.Context, repo, key string) ([]model.MergeRequest, error)
}

// NewRepositorySource builds the provider selected by VCS_PROVIDER.
func NewRepositorySource(cfg config.VCSConfig) (RepositorySource, error) {
	switch cfg.Provider {
	case config.VCSProviderBitbucket:
		if !cfg.Bitbucket.Enabled() {
			return nil, fmt.Errorf("bitbucket requires BITBUCKET_TOKEN and BITBUCKET_WORKSPACE")
		}
		return NewBitbucketSource(cfg.Bitbucket), nil
	case config.VCSProviderGitLab:
		if !cfg.GitLab.Enabled() {
			return nil, fmt.Errorf("gitlab requires GITLAB_TOKEN")
		}
		return NewGitLabSource(cfg.GitLab)
	default:
		return nil, fmt.Errorf("unknown VCS provider %q", cfg.Provider)
	}
}
