// Package access decides which entries may be written to a log.
package access

import (
	"github.com/daviddao/merklelog/pkg/entry"
	"github.com/daviddao/merklelog/pkg/identity"
)

// Wildcard in a write list admits every verified identity.
const Wildcard = "*"

// Controller is consulted before an entry is appended or joined.
type Controller interface {
	CanAppend(e *entry.Entry) bool
}

// ControllerFunc adapts a function to a Controller.
type ControllerFunc func(e *entry.Entry) bool

// CanAppend calls f(e).
func (f ControllerFunc) CanAppend(e *entry.Entry) bool { return f(e) }

type allowAll struct{}

func (allowAll) CanAppend(*entry.Entry) bool { return true }

// AllowAll admits every entry.
var AllowAll Controller = allowAll{}

// Resolver looks up and checks identity records.
type Resolver interface {
	GetIdentity(hash string) (*identity.Identity, error)
	VerifyIdentity(i *identity.Identity) bool
}

// WriteList admits entries whose writer identity id is listed, or any
// writer when the list contains Wildcard. The identity record must resolve
// and verify.
type WriteList struct {
	resolver Resolver
	write    map[string]bool
}

// NewWriteList returns a controller over the given identity ids.
func NewWriteList(r Resolver, write []string) *WriteList {
	w := &WriteList{resolver: r, write: make(map[string]bool, len(write))}
	for _, id := range write {
		w.write[id] = true
	}
	return w
}

// Grant adds id to the write list.
func (w *WriteList) Grant(id string) { w.write[id] = true }

// Write returns the listed identity ids.
func (w *WriteList) Write() []string {
	out := make([]string, 0, len(w.write))
	for id := range w.write {
		out = append(out, id)
	}
	return out
}

// CanAppend implements Controller.
func (w *WriteList) CanAppend(e *entry.Entry) bool {
	if e == nil {
		return false
	}
	id, err := w.resolver.GetIdentity(e.Identity)
	if err != nil {
		return false
	}
	if !w.write[id.ID] && !w.write[Wildcard] {
		return false
	}
	return w.resolver.VerifyIdentity(id)
}
