package reflector

import "context"

// logEntry is one node in the append-only event chain. A node starts out
// empty; append fills event and next, then closes ready to publish both.
// Closing the channel is the happens-before edge that lets observers read
// event and next without holding the Reflector's lock.
type logEntry[T Object] struct {
	event Event[T]
	next  *logEntry[T]
	ready chan struct{}
}

func newLogEntry[T Object]() *logEntry[T] {
	return &logEntry[T]{ready: make(chan struct{})}
}

// wait blocks until the entry has been filled by an append, or ctx ends.
func (e *logEntry[T]) wait(ctx context.Context) error {
	select {
	case <-e.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// eventLog is a forward-only linked chain of events. The log retains only
// the unfilled tail node; observers retain pointers to their cursor nodes.
// An entry stays alive exactly as long as some cursor is still behind it,
// so retention is plain reachability and there is no trim or compaction
// step: once every observer has advanced past a node, the collector
// reclaims it.
//
// All writes go through the owning Reflector's mutex; the chain itself
// carries no locking.
type eventLog[T Object] struct {
	tail *logEntry[T]
}

func newEventLog[T Object]() *eventLog[T] {
	return &eventLog[T]{tail: newLogEntry[T]()}
}

// append fills the current tail with ev, links a fresh empty node behind
// it, and wakes every observer blocked on the filled node. Caller must
// hold the writer lock.
func (l *eventLog[T]) append(ev Event[T]) {
	e := l.tail
	e.event = ev
	e.next = newLogEntry[T]()
	l.tail = e.next
	close(e.ready)
}

// cursor returns the current tail: the position from which a new observer
// sees everything appended after its snapshot. Caller must hold at least
// the read lock.
func (l *eventLog[T]) cursor() *logEntry[T] {
	return l.tail
}
