package pagerank

import (
	"context"

	"github.com/google/uuid"
	"github.com/pregelrank/pregelrank/graphstore"
)

// Solver is implemented by types that can compute the PageRank scores of a
// graph.
type Solver interface {
	// Solve computes the PageRank scores of the vertices in g.
	Solve(ctx context.Context, g *graphstore.Graph) (*Result, error)
}

// Compile-time checks for ensuring that the solvers implement Solver.
var (
	_ Solver = (*Calculator)(nil)
	_ Solver = (*IterativeSolver)(nil)
)

// Result describes the outcome of a PageRank run.
type Result struct {
	// A unique identifier for the run.
	RunID uuid.UUID

	// The final score for each vertex. The scores are exposed as computed
	// and are not renormalized.
	Scores map[string]float64

	// The number of score update iterations that were executed.
	Iterations int

	// The terminal state of the run; either StateConverged or
	// StateExhausted.
	State State

	// The sum of absolute score differences observed during the last
	// iteration.
	Residual float64
}

// Converged returns true if the run terminated because a tolerance test
// passed.
func (r *Result) Converged() bool { return r.State == StateConverged }
