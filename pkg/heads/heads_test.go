package heads

import (
	"path/filepath"
	"testing"

	"github.com/daviddao/merklelog/pkg/clock"
	"github.com/daviddao/merklelog/pkg/entry"
	"github.com/daviddao/merklelog/pkg/storage"
)

func mk(t *testing.T, writer string, time uint64, next ...*entry.Entry) *entry.Entry {
	t.Helper()
	e := entry.Build("A", []byte(writer), clock.Clock{ID: writer, Time: time}, entry.Hashes(next), nil)
	if err := entry.Seal(e, writer, "ident", "sig"); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	return e
}

func mustHashes(t *testing.T, h *Heads) []string {
	t.Helper()
	hs, err := h.Hashes()
	if err != nil {
		t.Fatalf("Hashes: %v", err)
	}
	return hs
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAddPrunesSuperseded(t *testing.T) {
	h, err := New(nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a := mk(t, "a", 1)
	b := mk(t, "b", 1)
	if err := h.Add(a); err != nil {
		t.Fatal(err)
	}
	if err := h.Add(b); err != nil {
		t.Fatal(err)
	}
	// concurrent heads, most recent first: equal time, "b" > "a"
	if got := mustHashes(t, h); !equal(got, []string{b.Hash, a.Hash}) {
		t.Fatalf("got %v", got)
	}

	c := mk(t, "a", 2, a, b)
	if err := h.Add(c); err != nil {
		t.Fatal(err)
	}
	if got := mustHashes(t, h); !equal(got, []string{c.Hash}) {
		t.Fatalf("after merge: got %v", got)
	}
}

func TestSetKeepsFrontier(t *testing.T) {
	a := mk(t, "a", 1)
	b := mk(t, "a", 2, a)
	c := mk(t, "b", 2, a)
	h, err := New(nil, nil, a, b, c, b)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := mustHashes(t, h); !equal(got, []string{c.Hash, b.Hash}) {
		t.Fatalf("got %v", got)
	}

	if err := h.Set([]*entry.Entry{a}); err != nil {
		t.Fatal(err)
	}
	if got := mustHashes(t, h); !equal(got, []string{a.Hash}) {
		t.Fatalf("Set must replace: got %v", got)
	}

	if err := h.Set([]*entry.Entry{nil}); err == nil {
		t.Fatal("Set(nil entry) should fail")
	}
}

func TestRemoveAndClear(t *testing.T) {
	a, b := mk(t, "a", 1), mk(t, "b", 1)
	h, err := New(nil, nil, a, b)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Remove(a.Hash, "absent"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := h.Has(a.Hash); ok {
		t.Fatal("a should be removed")
	}
	if ok, _ := h.Has(b.Hash); !ok {
		t.Fatal("b should remain")
	}
	if err := h.Clear(); err != nil {
		t.Fatal(err)
	}
	if n, _ := h.Len(); n != 0 {
		t.Fatalf("after Clear: %d heads", n)
	}
}

func TestPersistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heads")
	s, err := storage.NewLevel(path)
	if err != nil {
		t.Fatal(err)
	}
	a := mk(t, "a", 1)
	h, err := New(s, nil, a)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = storage.NewLevel(path)
	if err != nil {
		t.Fatal(err)
	}
	h, err = New(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	if got := mustHashes(t, h); !equal(got, []string{a.Hash}) {
		t.Fatalf("reopened: got %v", got)
	}
}
