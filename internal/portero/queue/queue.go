// Package queue provides the bounded mailbox between the Wiegand frame
// assembler (producer) and the access decision engine (consumer).
package queue

import (
	"log"

	"github.com/portero-acs/portero/internal/metrics"
)

// CredentialQueue is a bounded FIFO of decoded credential UIDs.  Both ends
// are non-blocking: a full queue drops the new item (freshness over
// completeness — a reader swipe is worthless seconds later), an empty queue
// reports empty.
type CredentialQueue struct {
	ch      chan string
	logger  *log.Logger
	metrics *metrics.Metrics
}

func New(capacity int, logger *log.Logger, m *metrics.Metrics) *CredentialQueue {
	if capacity <= 0 {
		capacity = 64
	}
	return &CredentialQueue{
		ch:      make(chan string, capacity),
		logger:  logger,
		metrics: m,
	}
}

// TryEnqueue adds uid without blocking.  On a full queue the item is
// dropped, logged, counted, and false is returned.
func (q *CredentialQueue) TryEnqueue(uid string) bool {
	select {
	case q.ch <- uid:
		return true
	default:
		q.logger.Printf("credential queue full, dropping uid=%s", uid)
		q.metrics.QueueDropped()
		return false
	}
}

// TryDequeue removes the oldest item without blocking.  ok is false when
// the queue is empty.
func (q *CredentialQueue) TryDequeue() (uid string, ok bool) {
	select {
	case uid = <-q.ch:
		return uid, true
	default:
		return "", false
	}
}

// Len reports the number of queued items.  Approximate under concurrency;
// used for status reporting only.
func (q *CredentialQueue) Len() int { return len(q.ch) }

// Cap reports the queue capacity.
func (q *CredentialQueue) Cap() int { return cap(q.ch) }
