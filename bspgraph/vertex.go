package bspgraph

import (
	"github.com/pregelrank/pregelrank/bspgraph/message"
	"golang.org/x/xerrors"
)

// Vertex is a graph vertex together with its outgoing edges and the two
// message buffers it alternates between supersteps.
type Vertex struct {
	id       string
	value    interface{}
	active   bool
	msgQueue [2]message.Queue
	edges    []*Edge
}

// ID returns the vertex ID.
func (v *Vertex) ID() string { return v.id }

// Edges returns the outgoing edges of the vertex.
func (v *Vertex) Edges() []*Edge { return v.edges }

// Freeze votes to halt. A halted vertex is skipped in the following
// supersteps until a message addressed to it arrives.
func (v *Vertex) Freeze() { v.active = false }

// Active reports whether the vertex has not voted to halt.
func (v *Vertex) Active() bool { return v.active }

// Value returns the vertex value.
func (v *Vertex) Value() interface{} { return v.value }

// SetValue replaces the vertex value.
func (v *Vertex) SetValue(val interface{}) { v.value = val }

// closeQueues releases both message buffers.
func (v *Vertex) closeQueues() error {
	for i, q := range v.msgQueue {
		if err := q.Close(); err != nil {
			return xerrors.Errorf("close message queue #%d of vertex %q: %w", i, v.id, err)
		}
	}
	return nil
}

// Edge is a directed edge. Edges are owned by their source vertex.
type Edge struct {
	value interface{}
	dstID string
}

// DstID returns the ID of the edge target.
func (e *Edge) DstID() string { return e.dstID }

// Value returns the edge value.
func (e *Edge) Value() interface{} { return e.value }

// SetValue replaces the edge value.
func (e *Edge) SetValue(val interface{}) { e.value = val }
