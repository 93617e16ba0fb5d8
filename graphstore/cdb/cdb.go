// Package cdb loads graphs from a CockroachDB (or any Postgres-compatible)
// database.
package cdb

import (
	"context"
	"database/sql"

	// Register the postgres driver with database/sql.
	_ "github.com/lib/pq"
	"github.com/pregelrank/pregelrank/graphstore"
	"golang.org/x/xerrors"
)

var (
	createSchemaQueries = []string{
		`CREATE TABLE IF NOT EXISTS vertices (id STRING PRIMARY KEY)`,
		`CREATE TABLE IF NOT EXISTS edges (
	seq SERIAL PRIMARY KEY,
	src STRING NOT NULL REFERENCES vertices(id) ON DELETE CASCADE,
	dst STRING NOT NULL
)`,
	}

	insertVertexQuery = "INSERT INTO vertices (id) VALUES ($1) ON CONFLICT (id) DO NOTHING"
	insertEdgeQuery   = "INSERT INTO edges (src, dst) VALUES ($1, $2)"
	vertexListQuery   = "SELECT id FROM vertices ORDER BY id"
	edgeListQuery     = "SELECT src, dst FROM edges ORDER BY seq"
)

// Source loads graphs from the vertices and edges tables of a database.
//
// Rows in the vertices table declare vertices; each row in the edges table
// adds one directed edge. In graphstore.Strict mode every edge destination
// must also appear in the vertices table.
type Source struct {
	db   *sql.DB
	mode graphstore.DeclarationMode
}

// NewSource returns a Source that connects to the database instance specified
// by dsn.
func NewSource(dsn string, mode graphstore.DeclarationMode) (*Source, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	return &Source{db: db, mode: mode}, nil
}

// Close terminates the connection to the backing database.
func (s *Source) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the vertices and edges tables if they do not exist.
func (s *Source) EnsureSchema(ctx context.Context) error {
	for _, q := range createSchemaQueries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return xerrors.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Save persists the vertices and edges of g in a single transaction.
func (s *Source) Save(ctx context.Context, g *graphstore.Graph) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return xerrors.Errorf("save graph: %w", err)
	}

	if err = saveGraph(ctx, tx, g); err != nil {
		_ = tx.Rollback()
		return xerrors.Errorf("save graph: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return xerrors.Errorf("save graph: %w", err)
	}
	return nil
}

func saveGraph(ctx context.Context, tx *sql.Tx, g *graphstore.Graph) error {
	ids := g.VertexIDs()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, insertVertexQuery, id); err != nil {
			return err
		}
	}
	for _, id := range ids {
		for _, dst := range g.OutEdges(id) {
			if _, err := tx.ExecContext(ctx, insertEdgeQuery, id, dst); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load reads the vertices and edges tables and returns the graph they
// describe.
func (s *Source) Load(ctx context.Context) (*graphstore.Graph, error) {
	b := graphstore.NewBuilder(s.mode)

	vertexIt, err := s.vertices(ctx)
	if err != nil {
		return nil, err
	}
	for vertexIt.Next() {
		if err = b.AddVertex(vertexIt.ID()); err != nil {
			_ = vertexIt.Close()
			return nil, xerrors.Errorf("load vertices: %v: %w", err, graphstore.ErrMalformedInput)
		}
	}
	if err = closeIterator(vertexIt); err != nil {
		return nil, xerrors.Errorf("load vertices: %w", err)
	}

	edgeIt, err := s.edges(ctx)
	if err != nil {
		return nil, err
	}
	for edgeIt.Next() {
		src, dst := edgeIt.Edge()
		if err = b.AddEdge(src, dst); err != nil {
			_ = edgeIt.Close()
			return nil, xerrors.Errorf("load edges: %v: %w", err, graphstore.ErrMalformedInput)
		}
	}
	if err = closeIterator(edgeIt); err != nil {
		return nil, xerrors.Errorf("load edges: %w", err)
	}

	g, err := b.Build()
	if err != nil {
		return nil, xerrors.Errorf("load graph: %w", err)
	}
	return g, nil
}

func (s *Source) vertices(ctx context.Context) (*vertexIterator, error) {
	rows, err := s.db.QueryContext(ctx, vertexListQuery)
	if err != nil {
		return nil, xerrors.Errorf("vertices: %w", err)
	}
	return &vertexIterator{rows: rows}, nil
}

func (s *Source) edges(ctx context.Context) (*edgeIterator, error) {
	rows, err := s.db.QueryContext(ctx, edgeListQuery)
	if err != nil {
		return nil, xerrors.Errorf("edges: %w", err)
	}
	return &edgeIterator{rows: rows}, nil
}

type iterator interface {
	Error() error
	Close() error
}

func closeIterator(it iterator) error {
	if err := it.Error(); err != nil {
		_ = it.Close()
		return err
	}
	return it.Close()
}
