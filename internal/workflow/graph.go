package workflow

import "strings"

// Canonical status names shared by the graphs and the automation decision table.
const (
	StatusOpen                 = "Open"
	StatusBacklog              = "Backlog"
	StatusHandshakeDone        = "Handshake Done"
	StatusInProgress           = "In Progress"
	StatusInReview             = "In Review"
	StatusDevTesting           = "Dev Testing"
	StatusPerformingDevTesting = "Performing DevTesting"
	StatusResolved             = "Resolved"
	StatusDone                 = "Done"
)

// IssueClass selects the transition graph for an issue type.
type IssueClass int

const (
	ClassGeneric IssueClass = iota
	ClassDefect
	ClassStory
)

func (c IssueClass) String() string {
	switch c {
	case ClassDefect:
		return "defect"
	case ClassStory:
		return "story"
	default:
		return "generic"
	}
}

// Classify maps an issue type name to its class. Unknown types are generic.
func Classify(typeName string) IssueClass {
	switch strings.ToLower(strings.TrimSpace(typeName)) {
	case "bug", "implementation bug":
		return ClassDefect
	case "story":
		return ClassStory
	default:
		return ClassGeneric
	}
}

// Edge is a named transition from one status to another.
type Edge struct {
	From   string
	Action string
	To     string
}

// Graph is an ordered, read-only list of edges. Declaration order matters:
// the resolver takes the first edge leaving a status.
type Graph struct {
	class IssueClass
	edges []Edge
}

func (g Graph) Class() IssueClass {
	return g.class
}

// Edges returns a copy so callers cannot mutate the shared graph.
func (g Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

func (g Graph) Len() int {
	return len(g.edges)
}

func (g Graph) next(status string) (Edge, bool) {
	for _, e := range g.edges {
		if strings.EqualFold(e.From, status) {
			return e, true
		}
	}
	return Edge{}, false
}

var (
	defectGraph = Graph{class: ClassDefect, edges: []Edge{
		{From: StatusOpen, Action: "Move to Back Log", To: StatusBacklog},
		{From: StatusBacklog, Action: "Start Development", To: StatusInProgress},
		{From: StatusInProgress, Action: "Move for code review", To: StatusInReview},
		{From: StatusInReview, Action: "Code review submission", To: StatusPerformingDevTesting},
		{From: StatusPerformingDevTesting, Action: "Moved for QA", To: StatusResolved},
	}}

	storyGraph = Graph{class: ClassStory, edges: []Edge{
		{From: StatusHandshakeDone, Action: "Start Progress", To: StatusInProgress},
		{From: StatusInProgress, Action: "Developer level testing", To: StatusDevTesting},
		{From: StatusDevTesting, Action: "Resolve Issue", To: StatusResolved},
	}}

	genericGraph = Graph{class: ClassGeneric, edges: []Edge{
		{From: StatusOpen, Action: "Select for Development", To: StatusHandshakeDone},
		{From: StatusHandshakeDone, Action: "Start Progress", To: StatusInProgress},
		{From: StatusInProgress, Action: "Move for code review", To: StatusInReview},
		{From: StatusInReview, Action: "Developer Testing", To: StatusDevTesting},
		{From: StatusDevTesting, Action: "Move to Done", To: StatusDone},
		// Reopen. Never taken by the forward walk because the edge above wins.
		{From: StatusDevTesting, Action: "Developer level testing - Reopen", To: StatusInProgress},
	}}
)

// GraphFor returns the transition graph for a class.
func GraphFor(class IssueClass) Graph {
	switch class {
	case ClassDefect:
		return defectGraph
	case ClassStory:
		return storyGraph
	default:
		return genericGraph
	}
}

// GraphForType is GraphFor(Classify(typeName)).
func GraphForType(typeName string) Graph {
	return GraphFor(Classify(typeName))
}
