// Package sorting holds the ordering policies used to rank log entries.
//
// A SortFn returns a negative number when a is older than b, positive when
// a is newer, and zero only when the two cannot be told apart. Every policy
// used by a log must be total, deterministic and independent of the replica
// it runs on.
package sorting

import (
	"sort"
	"strings"

	"github.com/daviddao/merklelog/pkg/clock"
	"github.com/daviddao/merklelog/pkg/entry"
)

// SortFn orders two entries, older first.
type SortFn func(a, b *entry.Entry) int

// First resolves every conflict in favor of a.
func First(a, b *entry.Entry) int { return 1 }

// SortByClocks compares clock times and defers to resolve on a tie.
func SortByClocks(a, b *entry.Entry, resolve SortFn) int {
	if d := clock.Compare(a.Clock, b.Clock); d != 0 {
		return d
	}
	return resolve(a, b)
}

// SortByClockID compares clock ids and defers to resolve when they match.
func SortByClockID(a, b *entry.Entry, resolve SortFn) int {
	if a.Clock.ID == b.Clock.ID {
		return resolve(a, b)
	}
	if a.Clock.ID < b.Clock.ID {
		return -1
	}
	return 1
}

// LastWriteWins orders by clock time, then by writer id. Two entries with
// the same clock are left to First, so wrap it in NoZeroes before use.
func LastWriteWins(a, b *entry.Entry) int {
	switch {
	case clock.TotalOrderLess(a.Clock, b.Clock):
		return -1
	case clock.TotalOrderLess(b.Clock, a.Clock):
		return 1
	}
	return First(a, b)
}

// NoZeroes wraps fn so that distinct entries never compare equal: when fn
// cannot order them, or orders them only by argument position, the content
// hashes decide. Entries with the same hash compare 0.
func NoZeroes(fn SortFn) SortFn {
	return func(a, b *entry.Entry) int {
		if a.Hash == b.Hash {
			return 0
		}
		r := fn(a, b)
		if r != 0 && sign(r) != -sign(fn(b, a)) {
			r = 0
		}
		if r == 0 {
			return strings.Compare(a.Hash, b.Hash)
		}
		return r
	}
}

// Default is the policy a log uses unless configured otherwise.
var Default = NoZeroes(LastWriteWins)

// Sort orders entries in place, oldest first.
func Sort(entries []*entry.Entry, fn SortFn) {
	sort.SliceStable(entries, func(i, j int) bool {
		return fn(entries[i], entries[j]) < 0
	})
}

// Reverse reverses entries in place.
func Reverse(entries []*entry.Entry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
