package issue_tracker

import (
	"encoding/json"
	"strings"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
)

type jiraIssue struct {
	Key    string          `json:"key"`
	Fields json.RawMessage `json:"fields"`
}

type jiraNamed struct {
	Name string `json:"name"`
}

type jiraFields struct {
	Summary     string          `json:"summary"`
	Description json.RawMessage `json:"description"`
	Status      *jiraNamed      `json:"status"`
	IssueType   *jiraNamed      `json:"issuetype"`
	Priority    *jiraNamed      `json:"priority"`
	Assignee    *struct {
		DisplayName string `json:"displayName"`
	} `json:"assignee"`
	Updated string `json:"updated"`
	Parent  *struct {
		Key string `json:"key"`
	} `json:"parent"`
}

func (s *jiraService) toIssue(raw jiraIssue) (*model.Issue, error) {
	var f jiraFields
	if len(raw.Fields) > 0 {
		if err := json.Unmarshal(raw.Fields, &f); err != nil {
			return nil, err
		}
	}

	issue := &model.Issue{
		Key:          raw.Key,
		Summary:      f.Summary,
		LastModified: f.Updated,
	}
	if f.Status != nil {
		issue.Status = f.Status.Name
	}
	if f.IssueType != nil {
		issue.Type = f.IssueType.Name
	}
	if f.Priority != nil {
		issue.Priority = f.Priority.Name
	}
	if f.Assignee != nil && f.Assignee.DisplayName != "" {
		name := f.Assignee.DisplayName
		issue.Assignee = &name
	}
	if f.Parent != nil {
		issue.ParentKey = f.Parent.Key
	}
	if text := DescriptionToPlainText(f.Description); text != "" {
		issue.Description = &text
	}

	if s.endDateField != "" && len(raw.Fields) > 0 {
		var all map[string]json.RawMessage
		if err := json.Unmarshal(raw.Fields, &all); err == nil {
			var end string
			if v, ok := all[s.endDateField]; ok && json.Unmarshal(v, &end) == nil && end != "" {
				issue.EndDate = &end
			}
		}
	}

	return issue, nil
}

// DescriptionToPlainText flattens an Atlassian Document Format body into
// text, one line per block. Plain string descriptions pass through.
func DescriptionToPlainText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var doc adfNode
	if err := json.Unmarshal(raw, &doc); err != nil || doc.Type != "doc" {
		return string(raw)
	}

	var lines []string
	for _, block := range doc.Content {
		if line := strings.TrimSpace(block.text()); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
}

func (n adfNode) text() string {
	if n.Type == "hardBreak" {
		return "\n"
	}
	if len(n.Content) == 0 {
		return n.Text
	}
	var sb strings.Builder
	for i, c := range n.Content {
		// Nested blocks (list items, table cells) go on their own lines.
		if i > 0 && (c.Type == "listItem" || c.Type == "paragraph" || c.Type == "tableRow") {
			sb.WriteString("\n")
		}
		sb.WriteString(c.text())
	}
	return sb.String()
}
