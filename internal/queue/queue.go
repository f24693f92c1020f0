package queue

import (
	"errors"
)

// ErrDuplicate is returned when a spec's dedup key is already queued or
// held by an active job.
var ErrDuplicate = errors.New("job for this image is already queued or running")

// Queue is a FIFO of pending specs with a uniqueness invariant: across
// pending specs and popped-but-unreleased (active) specs, every dedup key
// appears at most once. Popping keeps the key reserved until Release, so
// the invariant holds for the queued set and the active set together,
// including with more than one active slot.
type Queue struct {
	pending  []Spec
	reserved map[string]struct{}
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{reserved: make(map[string]struct{})}
}

// Enqueue appends a spec, or returns ErrDuplicate when its dedup key is
// already reserved. Duplicates are rejected, never merged.
func (q *Queue) Enqueue(spec Spec) error {
	if spec.DedupKey == "" {
		spec.DedupKey = spec.Image
	}
	if _, dup := q.reserved[spec.DedupKey]; dup {
		return ErrDuplicate
	}
	q.reserved[spec.DedupKey] = struct{}{}
	q.pending = append(q.pending, spec)
	return nil
}

// Next pops the head of the queue. The spec's dedup key stays reserved
// until Release is called with it.
func (q *Queue) Next() (Spec, bool) {
	if len(q.pending) == 0 {
		return Spec{}, false
	}
	head := q.pending[0]
	q.pending = q.pending[1:]
	return head, true
}

// Release frees a dedup key after its job reached a terminal status,
// allowing the same image to be queued again.
func (q *Queue) Release(dedupKey string) {
	delete(q.reserved, dedupKey)
}

// Has reports whether a dedup key is currently reserved.
func (q *Queue) Has(dedupKey string) bool {
	_, ok := q.reserved[dedupKey]
	return ok
}

// Len returns the number of pending specs.
func (q *Queue) Len() int {
	return len(q.pending)
}

// Pending returns a copy of the pending specs in order.
func (q *Queue) Pending() []Spec {
	return append([]Spec{}, q.pending...)
}
