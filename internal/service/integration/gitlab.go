package integration

import (
	"context"
	"fmt"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/core/config"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
)

type gitLabSource struct {
	client *gitlab.Client
	group  string
}

// NewGitLabSource resolves bare repository names against the configured
// group, so "web" becomes "acme/web".
func NewGitLabSource(cfg config.GitLabConfig) (RepositorySource, error) {
	client, err := newGitLabClient(cfg.URL, cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	return &gitLabSource{client: client, group: strings.Trim(cfg.Group, "/")}, nil
}

func newGitLabClient(instanceURL, token string) (*gitlab.Client, error) {
	baseURL := strings.TrimSuffix(instanceURL, "/") + "/api/v4"
	return gitlab.NewClient(
		token,
		gitlab.WithBaseURL(baseURL),
	)
}

func (s *gitLabSource) project(repo string) string {
	if s.group == "" || strings.Contains(repo, "/") {
		return repo
	}
	return s.group + "/" + repo
}

func (s *gitLabSource) FindBranch(ctx context.Context, repo, key string) (string, bool, error) {
	branches, _, err := s.client.Branches.ListBranches(s.project(repo), &gitlab.ListBranchesOptions{
		ListOptions: gitlab.ListOptions{Page: 1, PerPage: 20},
		Search:      gitlab.Ptr(key),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return "", false, fmt.Errorf("finding branch for %s in %s: %w", key, repo, err)
	}

	// GitLab search is case-insensitive; keep the first branch that really
	// carries the key.
	for _, b := range branches {
		if strings.Contains(strings.ToUpper(b.Name), strings.ToUpper(key)) {
			return b.Name, true, nil
		}
	}
	return "", false, nil
}

func (s *gitLabSource) FindMergeRequests(ctx context.Context, repo, key string) ([]model.MergeRequest, error) {
	opts := &gitlab.ListProjectMergeRequestsOptions{
		ListOptions: gitlab.ListOptions{Page: 1, PerPage: 50},
		Search:      gitlab.Ptr(key),
	}

	var mrs []model.MergeRequest
	for {
		page, resp, err := s.client.MergeRequests.ListProjectMergeRequests(s.project(repo), opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("finding merge requests for %s in %s: %w", key, repo, err)
		}

		for _, mr := range page {
			state := gitLabState(mr.State)
			if state == model.MergeRequestStateDeclined {
				continue
			}
			mrs = append(mrs, model.MergeRequest{
				Repository: repo,
				Title:      mr.Title,
				State:      state,
				Link:       mr.WebURL,
			})
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return mrs, nil
}

func gitLabState(s string) model.MergeRequestState {
	switch s {
	case "merged":
		return model.MergeRequestStateMerged
	case "closed", "locked":
		return model.MergeRequestStateDeclined
	default:
		return model.MergeRequestStateOpen
	}
}
