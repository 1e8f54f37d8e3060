// Package clock implements the Lamport logical clock carried by every log
// entry.
//
// From Lamport (1978), two implementation rules govern the clock:
//
//	IR1 (internal event): Before any internal event, increment the clock.
//	IR2 (message receipt): On receiving a message with timestamp t,
//	     set the clock to max(own, t) + 1.
//
// A Clock is a value: Tick and Merge return new clocks and never mutate the
// receiver. The clock ID is the writer's public key, so two clocks with the
// same Time from different writers are concurrent. TotalOrderLess breaks
// the tie by ID; sorting.LastWriteWins ranks entries with it.
package clock

// Clock is a (writer, counter) pair.
type Clock struct {
	ID   string `json:"id"`
	Time uint64 `json:"time"`
}

// New returns a clock for id at time 0.
func New(id string) Clock {
	return Clock{ID: id}
}

// Tick implements IR1: it returns a clock with the same ID and Time+1.
func (c Clock) Tick() Clock {
	return Clock{ID: c.ID, Time: c.Time + 1}
}

// Merge implements the max half of IR2: the result keeps c's ID and takes
// the larger of the two times. Callers Tick the result before writing.
func (c Clock) Merge(received Clock) Clock {
	if received.Time > c.Time {
		return Clock{ID: c.ID, Time: received.Time}
	}
	return c
}

// Compare returns the sign of a.Time - b.Time. The ID is not consulted;
// ordering policies layer their own tie-break on top.
func Compare(a, b Clock) int {
	switch {
	case a.Time < b.Time:
		return -1
	case a.Time > b.Time:
		return 1
	}
	return 0
}

// TotalOrderLess defines a deterministic total order over clocks. Clock a
// is "less" (older) than b if:
//
//	a.Time < b.Time, or
//	a.Time == b.Time and a.ID < b.ID (lexicographic)
//
// This is the standard Lamport total order.
func TotalOrderLess(a, b Clock) bool {
	if a.Time != b.Time {
		return a.Time < b.Time
	}
	return a.ID < b.ID
}
