package pagerank

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/pregelrank/pregelrank/graphstore"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// IterativeSolver computes PageRank scores by repeatedly applying the
// update rule to the whole score vector. It serves as the reference that
// the vertex-centric Calculator is validated against.
//
// It shares the Calculator's termination rules: the run converges when the
// sum of absolute score differences drops below Config.Tolerance or when
// every vertex changes by less than Config.PerVertexTolerance, and it is
// exhausted after Config.MaxIterations iterations.
type IterativeSolver struct {
	cfg Config
}

// NewIterativeSolver returns a new IterativeSolver using the provided config
// options. ComputeWorkers is ignored.
func NewIterativeSolver(cfg Config) (*IterativeSolver, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("PageRank solver config validation failed: %w", err)
	}
	return &IterativeSolver{cfg: cfg}, nil
}

// Solve implements Solver.
func (s *IterativeSolver) Solve(ctx context.Context, g *graphstore.Graph) (*Result, error) {
	var (
		runID  = uuid.New()
		start  = s.cfg.Clock.Now()
		ids    = g.VertexIDs()
		n      = len(ids)
		d      = s.cfg.DampingFactor
		res    = &Result{RunID: runID, Scores: make(map[string]float64, n), State: StateConverged}
		logger = s.cfg.Logger.WithField("run_id", runID.String())
	)
	if n == 0 {
		return res, nil
	}

	index := make(map[string]int, n)
	for i, id := range ids {
		index[id] = i
	}

	// inbound[v] lists the source index of every edge pointing to v.
	inbound := make([][]int, n)
	outDegree := make([]int, n)
	for src, id := range ids {
		dsts := g.OutEdges(id)
		outDegree[src] = len(dsts)
		for _, dst := range dsts {
			inbound[index[dst]] = append(inbound[index[dst]], src)
		}
	}

	var (
		old     = make([]float64, n)
		cur     = make([]float64, n)
		nf      = float64(n)
		terms   = make([]float64, 0, 16)
		stepEnd = start
	)
	for i := range old {
		old[i] = 1.0 / nf
	}

	res.State = StateExhausted
	for iter := 1; iter <= s.cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, xerrors.Errorf("PageRank run %s: %w", runID, err)
		}

		var danglingMass float64
		for i, deg := range outDegree {
			if deg == 0 {
				danglingMass += old[i]
			}
		}

		var (
			residual float64
			maxDelta float64
			halted   int
		)
		for v := range cur {
			// Contributions are added up in ascending order so the
			// result does not depend on edge insertion order.
			terms = terms[:0]
			for _, u := range inbound[v] {
				terms = append(terms, old[u]/float64(outDegree[u]))
			}
			cur[v] = (1.0-d)/nf + d*(sortedSum(terms)+danglingMass/nf)

			delta := math.Abs(cur[v] - old[v])
			residual += delta
			maxDelta = math.Max(maxDelta, delta)
			if delta < s.cfg.PerVertexTolerance {
				halted++
			}
		}
		old, cur = cur, old

		res.Iterations = iter
		res.Residual = residual
		if s.cfg.StepObserver != nil {
			now := s.cfg.Clock.Now()
			s.cfg.StepObserver(StepStats{
				Superstep:      iter,
				Residual:       residual,
				ActiveVertices: n - halted,
				HaltedVertices: halted,
				DanglingMass:   danglingMass,
				Duration:       now.Sub(stepEnd),
			})
			stepEnd = now
		}

		if (s.cfg.Tolerance > 0 && residual < s.cfg.Tolerance) ||
			(s.cfg.PerVertexTolerance > 0 && maxDelta < s.cfg.PerVertexTolerance) {
			res.State = StateConverged
			break
		}
	}

	for i, id := range ids {
		res.Scores[id] = old[i]
	}

	logger.WithFields(logrus.Fields{
		"vertices":   n,
		"edges":      g.NumEdges(),
		"iterations": res.Iterations,
		"state":      res.State.String(),
		"residual":   res.Residual,
		"took":       s.cfg.Clock.Now().Sub(start).String(),
	}).Info("reference PageRank run completed")

	return res, nil
}
