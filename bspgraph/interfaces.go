package bspgraph

import (
	"github.com/pregelrank/pregelrank/bspgraph/message"
)

// Aggregator accumulates a value that is shared by all vertices of a graph.
// Implementations must be safe for concurrent use.
type Aggregator interface {
	// Type identifies the aggregator implementation.
	Type() string

	// Set overwrites the current value.
	Set(val interface{})

	// Get returns the current value.
	Get() interface{}

	// Aggregate folds val into the current value.
	Aggregate(val interface{})

	// Delta returns how much the value changed since the previous Delta
	// call. At the end of each superstep the graph folds the delta of
	// every partition's partial aggregator into the graph-wide one, in
	// partition order.
	Delta() interface{}
}

// AggregatorFactory returns a new zero-valued Aggregator. It is called once
// for the graph-wide value and once per partition and superstep for the
// partial values.
type AggregatorFactory func() Aggregator

// Relayer forwards messages addressed to vertices that the local graph does
// not own.
type Relayer interface {
	// Relay delivers msg to the remote vertex dst. It returns
	// ErrDestinationIsLocal if dst is not a remote vertex either.
	Relay(dst string, msg message.Message) error
}

// RelayerFunc adapts a plain function to the Relayer interface.
type RelayerFunc func(string, message.Message) error

// Relay calls f(dst, msg).
func (f RelayerFunc) Relay(dst string, msg message.Message) error {
	return f(dst, msg)
}

// ComputeFunc runs the vertex program for v. The Partition is the view of
// the graph owned by the worker processing v; messages and aggregator
// updates must go through it.
type ComputeFunc func(p *Partition, v *Vertex, msgIt message.Iterator) error
