package oplog

import "github.com/daviddao/merklelog/pkg/entry"

// EventKind says what happened to a log.
type EventKind int

const (
	// EventAppend follows a successful local append.
	EventAppend EventKind = iota + 1
	// EventJoin follows every remote entry that became part of the log.
	EventJoin
	// EventClose follows Close.
	EventClose
)

func (k EventKind) String() string {
	switch k {
	case EventAppend:
		return "append"
	case EventJoin:
		return "join"
	case EventClose:
		return "close"
	}
	return "unknown"
}

// Event is delivered to observers. Entry is nil for EventClose.
type Event struct {
	Kind  EventKind
	LogID string
	Entry *entry.Entry
}

// Observer receives log events. Notify runs on the goroutine that caused
// the event, after the log's lock has been released, so it may call back
// into the log.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(Event)

// Notify calls f(ev).
func (f ObserverFunc) Notify(ev Event) { f(ev) }

func (l *Log) notify(kind EventKind, entries ...*entry.Entry) {
	if len(l.observers) == 0 {
		return
	}
	if kind == EventClose {
		entries = []*entry.Entry{nil}
	}
	for _, e := range entries {
		ev := Event{Kind: kind, LogID: l.id, Entry: e}
		for _, obs := range l.observers {
			obs.Notify(ev)
		}
	}
}
