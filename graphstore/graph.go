// Package graphstore holds the immutable directed graphs that the PageRank
// solvers operate on.
package graphstore

import (
	"sort"
	"unicode"
	"unicode/utf8"

	"golang.org/x/xerrors"
)

// DeclarationMode controls which IDs a Builder treats as declared vertices.
type DeclarationMode uint8

const (
	// Implicit declares every ID that appears either as an edge source or
	// as an edge destination.
	Implicit DeclarationMode = iota

	// Strict only declares IDs that have been explicitly added as
	// vertices. Edges pointing anywhere else cause Build to fail with
	// ErrDanglingReference.
	Strict
)

// String implements fmt.Stringer.
func (m DeclarationMode) String() string {
	switch m {
	case Implicit:
		return "implicit"
	case Strict:
		return "strict"
	default:
		return "unknown"
	}
}

// ParseDeclarationMode maps the output of DeclarationMode.String back to a
// DeclarationMode value. An empty string maps to Implicit.
func ParseDeclarationMode(s string) (DeclarationMode, error) {
	switch s {
	case "", "implicit":
		return Implicit, nil
	case "strict":
		return Strict, nil
	default:
		return Implicit, xerrors.Errorf("unsupported declaration mode %q", s)
	}
}

// Graph is an immutable directed graph. Vertices are identified by opaque
// string IDs; edges are unweighted and owned by their source vertex. Parallel
// edges and self-loops are permitted.
type Graph struct {
	ids      []string
	index    map[string]int
	edges    [][]string
	numEdges int
}

// NumVertices returns the number of vertices in the graph.
func (g *Graph) NumVertices() int { return len(g.ids) }

// NumEdges returns the number of edges in the graph.
func (g *Graph) NumEdges() int { return g.numEdges }

// VertexIDs returns the IDs of all graph vertices in ascending order. The
// returned slice is a copy and can be freely modified by the caller.
func (g *Graph) VertexIDs() []string {
	return append([]string(nil), g.ids...)
}

// HasVertex returns true if id is a vertex of the graph.
func (g *Graph) HasVertex(id string) bool {
	_, exists := g.index[id]
	return exists
}

// OutEdges returns the destination IDs of the edges that originate from id,
// in insertion order. It returns nil if id is not a vertex of the graph.
func (g *Graph) OutEdges(id string) []string {
	idx, exists := g.index[id]
	if !exists {
		return nil
	}
	return append([]string(nil), g.edges[idx]...)
}

// OutDegree returns the number of edges that originate from id.
func (g *Graph) OutDegree(id string) int {
	idx, exists := g.index[id]
	if !exists {
		return 0
	}
	return len(g.edges[idx])
}

// DanglingIDs returns the IDs of the vertices with no outgoing edges in
// ascending order.
func (g *Graph) DanglingIDs() []string {
	var dangling []string
	for idx, id := range g.ids {
		if len(g.edges[idx]) == 0 {
			dangling = append(dangling, id)
		}
	}
	return dangling
}

// Builder incrementally assembles a Graph.
type Builder struct {
	mode     DeclarationMode
	declared map[string]bool
	srcOrder []string
	edges    map[string][]string
	pending  []edge
}

type edge struct {
	src, dst string
}

// NewBuilder returns a Builder that uses the specified declaration mode.
func NewBuilder(mode DeclarationMode) *Builder {
	return &Builder{
		mode:     mode,
		declared: make(map[string]bool),
		edges:    make(map[string][]string),
	}
}

// AddVertex declares a vertex. Declaring the same ID more than once is a
// no-op.
func (b *Builder) AddVertex(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	b.declare(id)
	return nil
}

// AddEdge inserts a directed edge from src to dst. The source vertex is
// declared if needed; the destination is declared only in Implicit mode.
func (b *Builder) AddEdge(src, dst string) error {
	if err := validateID(src); err != nil {
		return err
	} else if err = validateID(dst); err != nil {
		return err
	}

	b.declare(src)
	if b.mode == Implicit {
		b.declare(dst)
	}

	b.edges[src] = append(b.edges[src], dst)
	b.pending = append(b.pending, edge{src: src, dst: dst})
	return nil
}

func (b *Builder) declare(id string) {
	if b.declared[id] {
		return
	}
	b.declared[id] = true
	b.srcOrder = append(b.srcOrder, id)
}

// Build validates that every edge destination has been declared and returns
// the assembled graph. The first undeclared destination, in edge insertion
// order, is reported as a *ReferenceError.
func (b *Builder) Build() (*Graph, error) {
	for _, e := range b.pending {
		if !b.declared[e.dst] {
			return nil, &ReferenceError{Src: e.src, Dst: e.dst}
		}
	}

	ids := append([]string(nil), b.srcOrder...)
	sort.Strings(ids)

	g := &Graph{
		ids:      ids,
		index:    make(map[string]int, len(ids)),
		edges:    make([][]string, len(ids)),
		numEdges: len(b.pending),
	}
	for idx, id := range ids {
		g.index[id] = idx
		g.edges[idx] = append([]string(nil), b.edges[id]...)
	}

	return g, nil
}

func validateID(id string) error {
	if id == "" {
		return xerrors.Errorf("empty ID: %w", ErrInvalidVertexID)
	}
	if !utf8.ValidString(id) {
		return xerrors.Errorf("%q is not valid UTF-8: %w", id, ErrInvalidVertexID)
	}
	for _, r := range id {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return xerrors.Errorf("%q: %w", id, ErrInvalidVertexID)
		}
	}
	return nil
}
