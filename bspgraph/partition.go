package bspgraph

import (
	"github.com/pregelrank/pregelrank/bspgraph/message"
)

// Partition is the slice of the graph vertices that a single compute worker
// processes during a superstep. Compute functions receive the partition that
// owns the vertex they are invoked for and use it to exchange messages and to
// contribute to aggregators.
type Partition struct {
	g        *Graph
	index    int
	vertices []*Vertex

	views        map[string]*partialView
	activeInStep int
	err          error
}

// Index returns the position of this partition in the ID-sorted vertex list.
func (p *Partition) Index() int { return p.index }

// NumVertices returns the total number of vertices in the graph.
func (p *Partition) NumVertices() int { return len(p.g.vertices) }

// Superstep returns the current superstep value.
func (p *Partition) Superstep() int { return p.g.superstep }

// Aggregator returns a view of the aggregator with the specified name or nil
// if the aggregator does not exist.
//
// Calls to Get on the returned view observe the graph-wide value as it stood
// when the superstep started. Calls to Aggregate and Delta operate on the
// partial value of this partition which the graph reduces into the
// graph-wide value at the end of the superstep.
//
// Set discards the contributions this partition made so far and overwrites
// the graph-wide value at the barrier. When several partitions call Set, the
// one with the highest index wins. Contributions aggregated after a Set, by
// any partition, are folded on top of the new value.
func (p *Partition) Aggregator(name string) Aggregator {
	if view, exists := p.views[name]; exists {
		return view
	}
	return nil
}

// SendMessage queues a message for delivery to the vertex with the specified
// destination ID in the next superstep.
func (p *Partition) SendMessage(dstID string, msg message.Message) error {
	return p.g.SendMessage(dstID, msg)
}

// BroadcastToNeighbors queues a copy of msg for delivery to each neighbor of
// v in the next superstep.
func (p *Partition) BroadcastToNeighbors(v *Vertex, msg message.Message) error {
	return p.g.BroadcastToNeighbors(v, msg)
}

// prepare allocates fresh partial aggregators for the upcoming superstep.
func (p *Partition) prepare(registered map[string]*registeredAggregator) {
	p.activeInStep = 0
	p.err = nil
	p.views = make(map[string]*partialView, len(registered))
	for name, reg := range registered {
		p.views[name] = &partialView{global: reg.global, partial: reg.factory()}
	}
}

// partialView routes reads to the graph-wide aggregator and writes to the
// partition-local partial aggregator.
// A view is only used by the worker that owns its partition.
type partialView struct {
	global  Aggregator
	partial Aggregator

	// Set by the last Set call; applied to the global at the barrier.
	hasSet bool
	setVal interface{}
}

func (v *partialView) Type() string              { return v.global.Type() }
func (v *partialView) Get() interface{}          { return v.global.Get() }
func (v *partialView) Aggregate(val interface{}) { v.partial.Aggregate(val) }
func (v *partialView) Delta() interface{}        { return v.partial.Delta() }

func (v *partialView) Set(val interface{}) {
	v.hasSet, v.setVal = true, val
	v.partial.Set(val)
}
