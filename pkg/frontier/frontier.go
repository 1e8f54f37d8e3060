// Package frontier computes the antichain of a set of log entries: the
// entries no other entry in the set causally supersedes.
//
// Entry b supersedes entry a when b lists a's hash in its next pointers.
// The frontier of a set is what a replica holding exactly that set would
// report as its heads. Entries outside the set are not consulted, so a
// caller that knows more of the graph must filter first.
package frontier

import "github.com/daviddao/merklelog/pkg/entry"

// Compute returns the entries of set that no other entry of set lists in
// its next pointers. Duplicates (by hash) collapse to their first
// occurrence; input order is otherwise preserved.
func Compute(set []*entry.Entry) []*entry.Entry {
	superseded := make(map[string]bool)
	for _, e := range set {
		for _, h := range e.Next {
			superseded[h] = true
		}
	}

	seen := make(map[string]bool, len(set))
	var front []*entry.Entry
	for _, e := range set {
		if seen[e.Hash] || superseded[e.Hash] {
			continue
		}
		seen[e.Hash] = true
		front = append(front, e)
	}
	return front
}

// Status describes where a single entry stands relative to a set.
type Status struct {
	Head         bool     `json:"head"`
	SupersededBy []string `json:"superseded_by,omitempty"`
}

// ComputeStatus reports whether hash would be a head of set, and which
// entries of set list it as a predecessor.
func ComputeStatus(hash string, set []*entry.Entry) Status {
	var st Status
	present := false
	for _, e := range set {
		if e.Hash == hash {
			present = true
		}
		for _, n := range e.Next {
			if n == hash {
				st.SupersededBy = append(st.SupersededBy, e.Hash)
				break
			}
		}
	}
	st.Head = present && len(st.SupersededBy) == 0
	return st
}
