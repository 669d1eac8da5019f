// Package gpio abstracts the Linux GPIO character device behind small
// interfaces so the reader and door logic can be exercised against a fake
// chip in tests.  The real implementation lives in chardev.go.
package gpio

import "time"

// Event is a single qualifying edge observed on an input line.
// Timestamp is monotonic with an arbitrary origin; only differences
// between timestamps are meaningful.
type Event struct {
	Offset    int
	Timestamp time.Duration
}

// EventHandler receives edge events.  It is invoked from the chip's event
// delivery goroutine and must return quickly without blocking.
type EventHandler func(Event)

// Line is a claimed input line subscription.
type Line interface {
	Close() error
}

// OutputLine is a claimed output line.
type OutputLine interface {
	SetValue(value int) error
	Value() (int, error)
	Close() error
}

// Chip is an open GPIO chip handle.
type Chip interface {
	// RequestFallingEdges claims offset as a pulled-up input and delivers
	// falling edges to fn until the returned Line is closed.
	RequestFallingEdges(offset int, fn EventHandler) (Line, error)

	// RequestOutput claims offset as an output driven to the given
	// initial level.
	RequestOutput(offset int, initial int) (OutputLine, error)

	// Probe performs a cheap liveness check against the chip using the
	// given line offset.
	Probe(offset int) error

	Close() error
}
