package message

import (
	"sort"
	"sync"

	"golang.org/x/xerrors"
)

// ErrNotScalar is returned by summing queues when a message that does not
// implement Scalar is enqueued.
var ErrNotScalar = xerrors.New("message does not carry a scalar value")

// Sum is the combined message emitted by a summing queue.
type Sum float64

// Type implements Message.
func (Sum) Type() string { return "sum" }

// Value implements Scalar.
func (s Sum) Value() float64 { return float64(s) }

// sumQueue combines all enqueued Scalar messages into a single Sum message.
//
// The individual terms are kept until they are handed over to an iterator
// and are then added up in ascending order. The combined value therefore
// depends only on the multiset of enqueued values and not on the order in
// which concurrent senders acquired the lock.
type sumQueue struct {
	mu    sync.Mutex
	terms []float64
}

// NewSumQueue creates a queue that combines incoming Scalar messages by
// summation. Zero-valued messages are the identity of the combiner and are
// dropped so that they neither show up as pending nor wake up a halted
// vertex. This function can serve as a QueueFactory.
func NewSumQueue() Queue {
	return new(sumQueue)
}

func (q *sumQueue) Enqueue(msg Message) error {
	s, ok := msg.(Scalar)
	if !ok {
		return xerrors.Errorf("enqueue %q message: %w", msg.Type(), ErrNotScalar)
	}

	v := s.Value()
	if v == 0 {
		return nil
	}

	q.mu.Lock()
	q.terms = append(q.terms, v)
	q.mu.Unlock()
	return nil
}

func (q *sumQueue) PendingMessages() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.terms) != 0
}

// Messages collapses the pending terms into at most one Sum message.
func (q *sumQueue) Messages() Iterator {
	q.mu.Lock()
	terms := q.terms
	q.terms = nil
	q.mu.Unlock()

	if len(terms) == 0 {
		return new(sliceIterator)
	}

	sort.Float64s(terms)
	var total float64
	for _, v := range terms {
		total += v
	}
	return &sliceIterator{msgs: []Message{Sum(total)}}
}

func (q *sumQueue) DiscardMessages() error {
	q.mu.Lock()
	q.terms = nil
	q.mu.Unlock()
	return nil
}

func (q *sumQueue) Close() error { return q.DiscardMessages() }
