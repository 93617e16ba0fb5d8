package message

import "sync"

// inMemoryQueue keeps the enqueued messages in arrival order.
type inMemoryQueue struct {
	mu   sync.Mutex
	msgs []Message
}

// NewInMemoryQueue returns a Queue that delivers messages in the order they
// were enqueued. It can serve as a QueueFactory.
func NewInMemoryQueue() Queue {
	return new(inMemoryQueue)
}

func (q *inMemoryQueue) Enqueue(msg Message) error {
	q.mu.Lock()
	q.msgs = append(q.msgs, msg)
	q.mu.Unlock()
	return nil
}

func (q *inMemoryQueue) PendingMessages() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs) != 0
}

func (q *inMemoryQueue) Messages() Iterator {
	q.mu.Lock()
	msgs := q.msgs
	q.msgs = nil
	q.mu.Unlock()
	return &sliceIterator{msgs: msgs}
}

func (q *inMemoryQueue) DiscardMessages() error {
	q.mu.Lock()
	q.msgs = nil
	q.mu.Unlock()
	return nil
}

func (q *inMemoryQueue) Close() error { return q.DiscardMessages() }
