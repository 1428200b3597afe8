package issue_tracker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
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
	searchPageSize  = 100
	retryMaxElapsed = 30 * time.Second
)

// APIError is a non-success response from Jira.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jira API returned %d: %s", e.StatusCode, e.Body)
}

type JiraOption func(*jiraService)

// WithHTTPClient replaces the default client, whose timeout comes from config.
func WithHTTPClient(c *http.Client) JiraOption {
	return func(s *jiraService) { s.http = c }
}

// WithBackOff sets the retry policy for rate-limited and 5xx responses.
// BackOff implementations are stateful, so this takes a constructor.
func WithBackOff(newBackOff func() backoff.BackOff) JiraOption {
	return func(s *jiraService) { s.newBackOff = newBackOff }
}

type jiraService struct {
	baseURL      string
	email        string
	token        string
	endDateField string
	http         *http.Client
	newBackOff   func() backoff.BackOff
}

func NewJiraService(cfg config.JiraConfig, endDateField string, opts ...JiraOption) IssueTrackerService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s := &jiraService{
		baseURL:      strings.TrimSuffix(cfg.URL, "/"),
		email:        cfg.Email,
		token:        cfg.Token,
		endDateField: endDateField,
		http:         &http.Client{Timeout: timeout},
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.MaxElapsedTime = retryMaxElapsed
			return bo
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *jiraService) fields() string {
	f := "summary,description,status,issuetype,assignee,updated,parent,priority"
	if s.endDateField != "" {
		f += "," + s.endDateField
	}
	return f
}

func (s *jiraService) FetchIssue(ctx context.Context, key string) (*model.Issue, error) {
	path := fmt.Sprintf("/rest/api/3/issue/%s?fields=%s", url.PathEscape(key), url.QueryEscape(s.fields()))

	body, err := s.doRequest(ctx, http.MethodGet, path, nil)
	if isNotFound(err) {
		return nil, fmt.Errorf("fetching issue %s: %w", key, ErrIssueNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching issue %s: %w", key, err)
	}

	var raw jiraIssue
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing issue %s: %w", key, err)
	}

	issue, err := s.toIssue(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing issue %s: %w", key, err)
	}
	return issue, nil
}

// SearchIssues runs a JQL query and follows nextPageToken until the last page.
func (s *jiraService) SearchIssues(ctx context.Context, jql string) ([]model.Issue, error) {
	var issues []model.Issue
	pageToken := ""

	for {
		params := url.Values{
			"jql":        {jql},
			"fields":     {s.fields()},
			"maxResults": {fmt.Sprintf("%d", searchPageSize)},
		}
		if pageToken != "" {
			params.Set("nextPageToken", pageToken)
		}

		body, err := s.doRequest(ctx, http.MethodGet, "/rest/api/3/search/jql?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("searching issues: %w", err)
		}

		var page struct {
			Issues        []jiraIssue `json:"issues"`
			NextPageToken string      `json:"nextPageToken"`
			IsLast        bool        `json:"isLast"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("parsing search response: %w", err)
		}

		for _, raw := range page.Issues {
			issue, err := s.toIssue(raw)
			if err != nil {
				slog.WarnContext(ctx, "skipping unparseable issue", "key", raw.Key, "error", err)
				continue
			}
			issues = append(issues, *issue)
		}

		if page.IsLast || page.NextPageToken == "" || len(page.Issues) == 0 {
			break
		}
		pageToken = page.NextPageToken
	}

	return issues, nil
}

func (s *jiraService) ListTransitions(ctx context.Context, key string) ([]model.Transition, error) {
	body, err := s.doRequest(ctx, http.MethodGet, fmt.Sprintf("/rest/api/3/issue/%s/transitions", url.PathEscape(key)), nil)
	if err != nil {
		return nil, fmt.Errorf("listing transitions for %s: %w", key, err)
	}

	var resp struct {
		Transitions []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			To   *struct {
				Name string `json:"name"`
			} `json:"to"`
		} `json:"transitions"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing transitions for %s: %w", key, err)
	}

	transitions := make([]model.Transition, 0, len(resp.Transitions))
	for _, t := range resp.Transitions {
		tr := model.Transition{ID: t.ID, Name: t.Name}
		if t.To != nil {
			tr.To = t.To.Name
		}
		transitions = append(transitions, tr)
	}
	return transitions, nil
}

func (s *jiraService) ApplyTransition(ctx context.Context, key, transitionID string) error {
	payload := map[string]any{"transition": map[string]string{"id": transitionID}}
	if _, err := s.doRequest(ctx, http.MethodPost, fmt.Sprintf("/rest/api/3/issue/%s/transitions", url.PathEscape(key)), payload); err != nil {
		return fmt.Errorf("applying transition %s to %s: %w", transitionID, key, err)
	}
	return nil
}

func (s *jiraService) FetchParent(ctx context.Context, issue model.Issue) (*model.Issue, error) {
	if !issue.HasParent() {
		return nil, nil
	}
	return s.FetchIssue(ctx, issue.ParentKey)
}

func (s *jiraService) BrowseURL(key string) string {
	return fmt.Sprintf("%s/browse/%s", s.baseURL, key)
}

// doRequest sends an authenticated request, retrying 429 and 5xx responses
// and transport errors. Other failures, 404 included, come back as *APIError.
func (s *jiraService) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
	}

	var out []byte
	op := func() error {
		body, status, err := s.send(ctx, method, s.baseURL+path, data)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}

		switch {
		case status == http.StatusTooManyRequests || status >= 500:
			slog.WarnContext(ctx, "jira request failed, retrying", "method", method, "path", path, "status", status)
			return &APIError{StatusCode: status, Body: string(body)}
		case status < 200 || status >= 300:
			return backoff.Permanent(&APIError{StatusCode: status, Body: string(body)})
		}

		out = body
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(s.newBackOff(), ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

// isNotFound reports a 404 from the issue endpoint. Only FetchIssue treats it
// as a missing ticket; elsewhere it can mean a bad path or missing permission.
func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func (s *jiraService) send(ctx context.Context, method, apiURL string, data []byte) ([]byte, int, error) {
	var bodyReader io.Reader
	if data != nil {
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}

	s.setAuth(req)
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// setAuth uses Basic auth when an account email is configured (Jira Cloud)
// and a bearer personal access token otherwise (Jira Data Center).
func (s *jiraService) setAuth(req *http.Request) {
	if s.email != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(s.email + ":" + s.token))
		req.Header.Set("Authorization", "Basic "+auth)
		return
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
}
