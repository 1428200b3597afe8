package model

// Issue is the projection of an issue-tracker ticket used by automation and watching.
type Issue struct {
	Key          string  `json:"key"`
	Type         string  `json:"type"`
	Status       string  `json:"status"`
	Summary      string  `json:"summary"`
	Description  *string `json:"description,omitempty"`
	Assignee     *string `json:"assignee,omitempty"`
	LastModified string  `json:"last_modified"`
	ParentKey    string  `json:"parent_key,omitempty"`
	EndDate      *string `json:"end_date,omitempty"`
	Priority     string  `json:"priority,omitempty"`
}

// HasParent reports whether the issue is a sub-task of another issue.
func (i Issue) HasParent() bool {
	return i.ParentKey != ""
}

// Transition is an action offered by the issue tracker for an issue in its current status.
type Transition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	To   string `json:"to,omitempty"`
}
