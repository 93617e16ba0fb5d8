// Package message defines the messages that vertices exchange and the queues
// that buffer them between supersteps.
package message

// Message is a payload that can be delivered to a vertex.
type Message interface {
	// Type identifies the kind of message.
	Type() string
}

// Scalar is a message that carries a single real value. Combining queues
// such as the one returned by NewSumQueue only accept Scalar messages.
type Scalar interface {
	Message

	// Value returns the carried value.
	Value() float64
}

// Queue buffers the messages addressed to a single vertex.
type Queue interface {
	// Enqueue adds msg to the queue. It may be called concurrently.
	Enqueue(msg Message) error

	// PendingMessages reports whether the queue holds undelivered
	// messages.
	PendingMessages() bool

	// Messages hands the pending messages over to the returned iterator.
	// Once Messages returns, the queue no longer reports them as pending.
	Messages() Iterator

	// DiscardMessages drops all pending messages.
	DiscardMessages() error

	// Close releases the resources held by the queue.
	Close() error
}

// Iterator walks over a batch of messages. Iterators are not safe for
// concurrent use.
type Iterator interface {
	// Next advances to the following message and reports whether one was
	// available.
	Next() bool

	// Message returns the message that Next advanced to.
	Message() Message

	// Error returns the error, if any, that stopped the iteration.
	Error() error
}

// QueueFactory creates empty queues.
type QueueFactory func() Queue

// sliceIterator yields the messages of a slice that it owns.
type sliceIterator struct {
	msgs []Message
	cur  Message
}

func (it *sliceIterator) Next() bool {
	if len(it.msgs) == 0 {
		it.cur = nil
		return false
	}
	it.cur, it.msgs = it.msgs[0], it.msgs[1:]
	return true
}

func (it *sliceIterator) Message() Message { return it.cur }

func (*sliceIterator) Error() error { return nil }
