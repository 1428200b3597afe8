package model

type MergeRequestState string

const (
	MergeRequestStateOpen     MergeRequestState = "open"
	MergeRequestStateMerged   MergeRequestState = "merged"
	MergeRequestStateDeclined MergeRequestState = "declined"
)

// MergeRequest is a pull/merge request found for a ticket in one repository.
type MergeRequest struct {
	Repository string            `json:"repository"`
	Title      string            `json:"title"`
	State      MergeRequestState `json:"state"`
	Link       string            `json:"link"`
}

func (m MergeRequest) IsMerged() bool {
	return m.State == MergeRequestStateMerged
}
