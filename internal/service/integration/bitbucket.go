package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/core/config"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
)

const (
	bitbucketMaxPages   = 5
	bitbucketMaxElapsed = 20 * time.Second
)

type bitbucketSource struct {
	baseURL    string
	username   string
	token      string
	workspace  string
	http       *http.Client
	newBackOff func() backoff.BackOff
}

// NewBitbucketSource talks to Bitbucket Cloud REST 2.0 with an app password
// or API token.
func NewBitbucketSource(cfg config.BitbucketConfig) RepositorySource {
	return newBitbucketSource(cfg, func() backoff.BackOff {
		bo := backoff.NewExponentialBackOff()
		bo.MaxElapsedTime = bitbucketMaxElapsed
		return bo
	})
}

func newBitbucketSource(cfg config.BitbucketConfig, newBackOff func() backoff.BackOff) *bitbucketSource {
	return &bitbucketSource{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		username:   cfg.Username,
		token:      cfg.Token,
		workspace:  cfg.Workspace,
		http:       &http.Client{Timeout: 15 * time.Second},
		newBackOff: newBackOff,
	}
}

type bitbucketPage[T any] struct {
	Values []T    `json:"values"`
	Next   string `json:"next"`
}

type bitbucketBranch struct {
	Name string `json:"name"`
}

type bitbucketPullRequest struct {
	Title string `json:"title"`
	State string `json:"state"`
	Links struct {
		HTML struct {
			Href string `json:"href"`
		} `json:"html"`
	} `json:"links"`
}

func (s *bitbucketSource) FindBranch(ctx context.Context, repo, key string) (string, bool, error) {
	params := url.Values{"q": {fmt.Sprintf("name ~ %q", key)}}
	apiURL := fmt.Sprintf("%s/repositories/%s/%s/refs/branches?%s",
		s.baseURL, url.PathEscape(s.workspace), url.PathEscape(repo), params.Encode())

	var page bitbucketPage[bitbucketBranch]
	if err := s.getJSON(ctx, apiURL, &page); err != nil {
		return "", false, fmt.Errorf("finding branch for %s in %s: %w", key, repo, err)
	}
	if len(page.Values) == 0 {
		return "", false, nil
	}
	return page.Values[0].Name, true, nil
}

// FindMergeRequests asks for OPEN and MERGED explicitly; without a state
// filter Bitbucket only returns open pull requests.
func (s *bitbucketSource) FindMergeRequests(ctx context.Context, repo, key string) ([]model.MergeRequest, error) {
	params := url.Values{
		"q":     {fmt.Sprintf("title ~ %q", key)},
		"state": {"OPEN", "MERGED"},
	}
	next := fmt.Sprintf("%s/repositories/%s/%s/pullrequests?%s",
		s.baseURL, url.PathEscape(s.workspace), url.PathEscape(repo), params.Encode())

	var mrs []model.MergeRequest
	for pages := 0; next != "" && pages < bitbucketMaxPages; pages++ {
		var page bitbucketPage[bitbucketPullRequest]
		if err := s.getJSON(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("finding pull requests for %s in %s: %w", key, repo, err)
		}
		for _, pr := range page.Values {
			mrs = append(mrs, model.MergeRequest{
				Repository: repo,
				Title:      pr.Title,
				State:      bitbucketState(pr.State),
				Link:       pr.Links.HTML.Href,
			})
		}
		next = page.Next
	}
	return mrs, nil
}

func bitbucketState(s string) model.MergeRequestState {
	switch strings.ToUpper(s) {
	case "MERGED":
		return model.MergeRequestStateMerged
	case "DECLINED", "SUPERSEDED":
		return model.MergeRequestStateDeclined
	default:
		return model.MergeRequestStateOpen
	}
}

func (s *bitbucketSource) getJSON(ctx context.Context, apiURL string, out any) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.SetBasicAuth(s.username, s.token)
		req.Header.Set("Accept", "application/json")

		resp, err := s.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			slog.WarnContext(ctx, "bitbucket request failed, retrying", "status", resp.StatusCode)
			return fmt.Errorf("bitbucket API returned %d", resp.StatusCode)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return backoff.Permanent(fmt.Errorf("bitbucket API returned %d: %s", resp.StatusCode, string(body)))
		}

		if err := json.Unmarshal(body, out); err != nil {
			return backoff.Permanent(fmt.Errorf("parsing response: %w", err))
		}
		return nil
	}

	return backoff.Retry(op, backoff.WithContext(s.newBackOff(), ctx))
}
