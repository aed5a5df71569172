// Package queue implements the at-least-once in-process work queue of
// spec §4.I/§4.L: a channel-based mailbox with idempotency keyed by
// (task_kind, region, scheduled_minute) so a scheduler tick that fires
// twice for the same minute does not double-enqueue.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/valstan/setka/internal/core"
)

// Kind is one of the task kinds the Work Dispatcher schedules.
type Kind string

const (
	KindScanNextRegion    Kind = "scan_next_region"
	KindValidateTokens    Kind = "validate_tokens"
	KindOptimizeFrequency Kind = "optimize_frequency"
	KindStatus            Kind = "status"
)

// ScanJob is the Payload of a KindScanNextRegion message: the Carousel
// Scheduler's region/credential pairing, carried through to executeScan
// so the scan actually runs under the selected credential.
type ScanJob struct {
	Region     core.Region
	Credential core.Credential
}

// Message is one unit of work on the queue. DedupKey distinguishes
// messages that would otherwise collide on (Kind, RegionID, scheduled
// minute) — e.g. one validate_tokens message per credential, all sharing
// RegionID 0 — so they aren't mistaken for duplicates of each other.
type Message struct {
	Kind        Kind
	RegionID    int64
	DedupKey    string
	Payload     interface{}
	Attempt     int
	ScheduledAt time.Time
}

func idempotencyKey(kind Kind, regionID int64, dedupKey string, scheduledAt time.Time) string {
	return fmt.Sprintf("%s:%d:%s:%d", kind, regionID, dedupKey, scheduledAt.Truncate(time.Minute).Unix())
}

const dedupRetention = 2 * time.Minute

// Queue is a bounded, in-process, at-least-once mailbox. Enqueue dedupes
// fresh schedules; Nack redelivers a message that failed processing by
// pushing it back with Attempt incremented, bypassing the dedup check
// since it is a retry of work already admitted.
type Queue struct {
	ch     chan Message
	logger core.Logger

	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

// New builds a Queue with the given channel capacity.
func New(capacity int, logger core.Logger) *Queue {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Queue{
		ch:     make(chan Message, capacity),
		logger: logger,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// Enqueue admits msg unless an equivalent (kind, region, scheduled minute)
// message was already enqueued within the dedup retention window. Returns
// false when the message was skipped as a duplicate.
func (q *Queue) Enqueue(ctx context.Context, msg Message) (bool, error) {
	key := idempotencyKey(msg.Kind, msg.RegionID, msg.DedupKey, msg.ScheduledAt)

	q.mu.Lock()
	q.pruneLocked()
	if _, dup := q.seen[key]; dup {
		q.mu.Unlock()
		return false, nil
	}
	q.seen[key] = q.now()
	q.mu.Unlock()

	select {
	case q.ch <- msg:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (q *Queue) pruneLocked() {
	cutoff := q.now().Add(-dedupRetention)
	for k, at := range q.seen {
		if at.Before(cutoff) {
			delete(q.seen, k)
		}
	}
}

// Dequeue blocks until a message is available or ctx is cancelled.
func (q *Queue) Dequeue(ctx context.Context) (Message, bool) {
	select {
	case msg := <-q.ch:
		return msg, true
	case <-ctx.Done():
		return Message{}, false
	}
}

// Nack redelivers msg with Attempt incremented, implementing the at-least-
// once guarantee: a failed task is retried rather than dropped.
func (q *Queue) Nack(ctx context.Context, msg Message) error {
	msg.Attempt++
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len reports the number of messages currently buffered.
func (q *Queue) Len() int {
	return len(q.ch)
}
