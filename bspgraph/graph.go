// Package bspgraph implements a vertex-centric graph processor that follows
// the bulk synchronous parallel model of Pregel.
package bspgraph

import (
	"github.com/pregelrank/pregelrank/bspgraph/message"
	"golang.org/x/xerrors"
)

var (
	// ErrUnknownEdgeSource is returned by AddEdge when the source vertex
	// has not been added to the graph.
	ErrUnknownEdgeSource = xerrors.New("source vertex is not part of the graph")

	// ErrDestinationIsLocal is returned by a Relayer when asked to relay a
	// message to a destination that is not remote.
	ErrDestinationIsLocal = xerrors.New("message destination is assigned to the local graph")

	// ErrInvalidMessageDestination is returned when a message is sent to an
	// ID that neither the graph nor its Relayer can resolve.
	ErrInvalidMessageDestination = xerrors.New("invalid message destination")
)

// Graph runs a ComputeFunc over its vertices in supersteps.
//
// Before each superstep the vertices, sorted by ID, are split into one
// contiguous Partition per compute worker. A worker visits its partition in
// ID order and writes to partition-local partial aggregators. Once every
// worker reaches the barrier, the partials are folded into the graph-wide
// aggregators in partition order. The outcome of a superstep therefore does
// not depend on goroutine scheduling.
//
// Messages sent during superstep t are buffered in the queue with index
// (t+1)%2 of their target and are delivered at superstep t+1.
type Graph struct {
	superstep int

	vertices    map[string]*Vertex
	aggregators map[string]*registeredAggregator
	partitions  []*Partition

	computeFn       ComputeFunc
	computeInactive bool
	queueFactory    message.QueueFactory
	relayer         Relayer

	pool *workerPool
}

type registeredAggregator struct {
	global  Aggregator
	factory AggregatorFactory
}

// NewGraph creates a graph with the provided configuration. Callers must
// Close the graph once they are done with it.
func NewGraph(cfg GraphConfig) (*Graph, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("graph config validation failed: %w", err)
	}

	g := &Graph{
		vertices:        make(map[string]*Vertex),
		aggregators:     make(map[string]*registeredAggregator),
		computeFn:       cfg.ComputeFn,
		computeInactive: cfg.ComputeInactive,
		queueFactory:    cfg.QueueFactory,
	}
	g.pool = newWorkerPool(cfg.ComputeWorkers, g.computePartition)
	return g, nil
}

// Close stops the compute workers and releases the vertex message queues.
func (g *Graph) Close() error {
	g.pool.stop()
	return g.Reset()
}

// Reset removes all vertices and aggregators and rewinds the superstep
// counter so the graph can be loaded again.
func (g *Graph) Reset() error {
	for _, v := range g.vertices {
		if err := v.closeQueues(); err != nil {
			return err
		}
	}

	g.superstep = 0
	g.vertices = make(map[string]*Vertex)
	g.aggregators = make(map[string]*registeredAggregator)
	g.partitions = nil
	return nil
}

// Superstep returns the index of the superstep that is currently executing,
// or that will execute next when called between supersteps.
func (g *Graph) Superstep() int { return g.superstep }

// Vertices returns the graph vertices keyed by ID.
func (g *Graph) Vertices() map[string]*Vertex { return g.vertices }

// NumVertices returns the number of vertices in the graph.
func (g *Graph) NumVertices() int { return len(g.vertices) }

// AddVertex adds a vertex with the provided initial value. Adding an existing
// ID only overwrites the vertex value.
func (g *Graph) AddVertex(id string, initValue interface{}) {
	if v, exists := g.vertices[id]; exists {
		v.SetValue(initValue)
		return
	}

	g.vertices[id] = &Vertex{
		id:       id,
		value:    initValue,
		active:   true,
		msgQueue: [2]message.Queue{g.queueFactory(), g.queueFactory()},
	}

	// The vertex set changed; partitions are rebuilt before the next step.
	g.partitions = nil
}

// AddEdge adds a directed edge from srcID to dstID. The source must be a
// local vertex while the destination may also be a remote vertex reachable
// through the Relayer. Parallel edges and self-loops are allowed.
func (g *Graph) AddEdge(srcID, dstID string, initValue interface{}) error {
	src, exists := g.vertices[srcID]
	if !exists {
		return xerrors.Errorf("create edge from %q to %q: %w", srcID, dstID, ErrUnknownEdgeSource)
	}

	src.edges = append(src.edges, &Edge{dstID: dstID, value: initValue})
	return nil
}

// RegisterAggregator registers an aggregator under name. The factory creates
// the graph-wide instance now and a partial instance for every partition at
// the start of each superstep.
func (g *Graph) RegisterAggregator(name string, factory AggregatorFactory) {
	g.aggregators[name] = &registeredAggregator{global: factory(), factory: factory}
}

// Aggregator returns the graph-wide aggregator registered under name or nil.
func (g *Graph) Aggregator(name string) Aggregator {
	reg, exists := g.aggregators[name]
	if !exists {
		return nil
	}
	return reg.global
}

// Aggregators returns all graph-wide aggregators keyed by name.
func (g *Graph) Aggregators() map[string]Aggregator {
	out := make(map[string]Aggregator, len(g.aggregators))
	for name, reg := range g.aggregators {
		out[name] = reg.global
	}
	return out
}

// RegisterRelayer installs a Relayer for messages whose destination is not a
// local vertex.
func (g *Graph) RegisterRelayer(relayer Relayer) { g.relayer = relayer }

// BroadcastToNeighbors sends msg along every outgoing edge of v. The copies
// are delivered in the next superstep.
func (g *Graph) BroadcastToNeighbors(v *Vertex, msg message.Message) error {
	for _, e := range v.edges {
		if err := g.SendMessage(e.dstID, msg); err != nil {
			return err
		}
	}
	return nil
}

// SendMessage queues msg for delivery to dstID in the next superstep.
//
// Unknown destinations are handed to the Relayer, if one is installed. The
// message is rejected with ErrInvalidMessageDestination when there is no
// Relayer or the Relayer answers with ErrDestinationIsLocal.
func (g *Graph) SendMessage(dstID string, msg message.Message) error {
	if dst, exists := g.vertices[dstID]; exists {
		return dst.msgQueue[(g.superstep+1)%2].Enqueue(msg)
	}

	if g.relayer != nil {
		err := g.relayer.Relay(dstID, msg)
		if !xerrors.Is(err, ErrDestinationIsLocal) {
			return err
		}
	}

	return xerrors.Errorf("message cannot be delivered to %q: %w", dstID, ErrInvalidMessageDestination)
}
