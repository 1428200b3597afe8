package workflow

import "strings"

// Path is an ordered list of edges to apply.
type Path []Edge

func (p Path) Actions() []string {
	actions := make([]string, len(p))
	for i, e := range p {
		actions[i] = e.Action
	}
	return actions
}

// Resolve walks the graph forward from current, always taking the first edge
// declared for the status, until it reaches target.
//
// The returned bool is false when there is no path: the walk hits a status
// with no outgoing edge, or exceeds one step per edge in the graph.
// Equal statuses (case-insensitive) resolve to an empty path.
func Resolve(current, target string, g Graph) (Path, bool) {
	if strings.EqualFold(current, target) {
		return Path{}, true
	}

	path := make(Path, 0, g.Len())
	status := current
	for range g.Len() {
		edge, ok := g.next(status)
		if !ok {
			return nil, false
		}
		path = append(path, edge)
		status = edge.To
		if strings.EqualFold(status, target) {
			return path, true
		}
	}

	return nil, false
}
