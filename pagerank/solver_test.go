package pagerank_test

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/pregelrank/pregelrank/graphstore"
	"github.com/pregelrank/pregelrank/pagerank"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(SolverTestSuite))

type SolverTestSuite struct {
	calcs []*pagerank.Calculator
}

func (s *SolverTestSuite) TestSingleVertex(c *gc.C) {
	g := mustLoad(c, "A\n")
	for name, solver := range s.solvers(c, pagerank.Config{}) {
		res, err := solver.Solve(context.TODO(), g)
		c.Assert(err, gc.IsNil)
		c.Assert(math.Abs(res.Scores["A"]-1.0) < 1e-12, gc.Equals, true, gc.Commentf("%s: got %v", name, res.Scores["A"]))
	}
}

func (s *SolverTestSuite) TestFourCycle(c *gc.C) {
	g := mustLoad(c, "A: B\nB: C\nC: D\nD: A\n")
	cfg := pagerank.Config{MaxIterations: 50, Tolerance: 1e-9}
	for name, solver := range s.solvers(c, cfg) {
		res, err := solver.Solve(context.TODO(), g)
		c.Assert(err, gc.IsNil)
		c.Assert(res.State, gc.Equals, pagerank.StateConverged, gc.Commentf("%s", name))
		c.Assert(res.Iterations <= 50, gc.Equals, true, gc.Commentf("%s", name))
		for id, score := range res.Scores {
			c.Assert(math.Abs(score-0.25) < 1e-5, gc.Equals, true, gc.Commentf("%s: score for %s is %v", name, id, score))
		}
	}
}

func (s *SolverTestSuite) TestStarGraph(c *gc.C) {
	g := mustLoad(c, "L1: H\nL2: H\nL3: H\nL4: H\nL5: H\nH:\n")
	cfg := pagerank.Config{MaxIterations: 100}
	for name, solver := range s.solvers(c, cfg) {
		res, err := solver.Solve(context.TODO(), g)
		c.Assert(err, gc.IsNil)
		c.Assert(res.State, gc.Equals, pagerank.StateExhausted, gc.Commentf("%s", name))
		c.Assert(res.Iterations, gc.Equals, 100, gc.Commentf("%s", name))

		hub := res.Scores["H"]
		for id, score := range res.Scores {
			if id != "H" {
				c.Assert(hub > score, gc.Equals, true, gc.Commentf("%s: hub %v <= leaf %s %v", name, hub, id, score))
			}
		}
		sum := pagerank.Sum(res.Scores)
		c.Assert(sum >= 1.0-1e-5, gc.Equals, true, gc.Commentf("%s: mass decayed to %v", name, sum))
	}
}

func (s *SolverTestSuite) TestEquivalenceWithReference(c *gc.C) {
	g := s.loadTestdata(c)
	cfg := pagerank.Config{MaxIterations: 100}

	ref, err := pagerank.NewIterativeSolver(cfg)
	c.Assert(err, gc.IsNil)
	exp, err := ref.Solve(context.TODO(), g)
	c.Assert(err, gc.IsNil)

	for _, workers := range []int{1, 3, 8} {
		cfg.ComputeWorkers = workers
		calc, err := pagerank.NewCalculator(cfg)
		c.Assert(err, gc.IsNil)

		got, err := calc.Solve(context.TODO(), g)
		c.Assert(err, gc.IsNil)
		c.Assert(calc.Close(), gc.IsNil)

		cmp := pagerank.Compare(exp.Scores, got.Scores, 1e-5)
		c.Assert(cmp.Err(), gc.IsNil, gc.Commentf("workers=%d\n%s", workers, cmp))
		c.Assert(got.Iterations, gc.Equals, exp.Iterations)
		c.Assert(got.State, gc.Equals, exp.State)

		expRanking, gotRanking := pagerank.Ranking(exp.Scores), pagerank.Ranking(got.Scores)
		for pos := range expRanking {
			c.Assert(gotRanking[pos].ID, gc.Equals, expRanking[pos].ID, gc.Commentf("workers=%d, position %d", workers, pos))
		}
	}
}

func (s *SolverTestSuite) TestSingleWorkerMatchesReferenceExactly(c *gc.C) {
	g := s.loadTestdata(c)
	cfg := pagerank.Config{MaxIterations: 40}

	ref, err := pagerank.NewIterativeSolver(cfg)
	c.Assert(err, gc.IsNil)
	exp, err := ref.Solve(context.TODO(), g)
	c.Assert(err, gc.IsNil)

	calc, err := pagerank.NewCalculator(cfg)
	c.Assert(err, gc.IsNil)
	defer func() { _ = calc.Close() }()
	got, err := calc.Solve(context.TODO(), g)
	c.Assert(err, gc.IsNil)

	for id, score := range exp.Scores {
		c.Assert(math.Float64bits(got.Scores[id]), gc.Equals, math.Float64bits(score), gc.Commentf("vertex %s: %v != %v", id, got.Scores[id], score))
	}
}

func (s *SolverTestSuite) TestIdempotence(c *gc.C) {
	g := s.loadTestdata(c)
	cfg := pagerank.Config{ComputeWorkers: 4, MaxIterations: 60}

	calc, err := pagerank.NewCalculator(cfg)
	c.Assert(err, gc.IsNil)
	defer func() { _ = calc.Close() }()

	first, err := calc.Solve(context.TODO(), g)
	c.Assert(err, gc.IsNil)

	// Re-running on the same calculator and on a fresh one must yield
	// bit-identical scores.
	second, err := calc.Solve(context.TODO(), g)
	c.Assert(err, gc.IsNil)

	other, err := pagerank.NewCalculator(cfg)
	c.Assert(err, gc.IsNil)
	defer func() { _ = other.Close() }()
	third, err := other.Solve(context.TODO(), g)
	c.Assert(err, gc.IsNil)

	c.Assert(first.RunID, gc.Not(gc.Equals), second.RunID)
	for id, score := range first.Scores {
		c.Assert(math.Float64bits(second.Scores[id]), gc.Equals, math.Float64bits(score), gc.Commentf("vertex %s", id))
		c.Assert(math.Float64bits(third.Scores[id]), gc.Equals, math.Float64bits(score), gc.Commentf("vertex %s", id))
	}
	c.Assert(math.Float64bits(second.Residual), gc.Equals, math.Float64bits(first.Residual))
}

func (s *SolverTestSuite) TestDanglingMassConservation(c *gc.C) {
	g := mustLoad(c, "A: B C D\nB: E\nC: E\nD:\nE:\nF: D\n")
	c.Assert(g.DanglingIDs(), gc.DeepEquals, []string{"D", "E"})

	for name, solver := range s.solvers(c, pagerank.Config{MaxIterations: 200, ComputeWorkers: 3}) {
		res, err := solver.Solve(context.TODO(), g)
		c.Assert(err, gc.IsNil)
		sum := pagerank.Sum(res.Scores)
		c.Assert(math.Abs(1.0-sum) <= 1e-5, gc.Equals, true, gc.Commentf("%s: scores add up to %v", name, sum))
	}
}

func (s *SolverTestSuite) TestToleranceConvergence(c *gc.C) {
	g := s.loadTestdata(c)
	for name, solver := range s.solvers(c, pagerank.Config{MaxIterations: 500, Tolerance: 1e-10}) {
		res, err := solver.Solve(context.TODO(), g)
		c.Assert(err, gc.IsNil)
		c.Assert(res.State, gc.Equals, pagerank.StateConverged, gc.Commentf("%s", name))
		c.Assert(res.Converged(), gc.Equals, true, gc.Commentf("%s", name))
		c.Assert(res.Iterations < 500, gc.Equals, true, gc.Commentf("%s", name))
		c.Assert(res.Residual < 1e-10, gc.Equals, true, gc.Commentf("%s: residual %v", name, res.Residual))
	}
}

func (s *SolverTestSuite) TestPerVertexHalting(c *gc.C) {
	g := s.loadTestdata(c)

	var last pagerank.StepStats
	cfg := pagerank.Config{
		MaxIterations:      500,
		PerVertexTolerance: 1e-9,
		ComputeWorkers:     2,
		StepObserver:       func(st pagerank.StepStats) { last = st },
	}

	ref, err := pagerank.NewIterativeSolver(pagerank.Config{MaxIterations: 500, PerVertexTolerance: 1e-9})
	c.Assert(err, gc.IsNil)
	exp, err := ref.Solve(context.TODO(), g)
	c.Assert(err, gc.IsNil)
	c.Assert(exp.State, gc.Equals, pagerank.StateConverged)

	calc, err := pagerank.NewCalculator(cfg)
	c.Assert(err, gc.IsNil)
	defer func() { _ = calc.Close() }()
	got, err := calc.Solve(context.TODO(), g)
	c.Assert(err, gc.IsNil)
	c.Assert(got.State, gc.Equals, pagerank.StateConverged)
	c.Assert(last.HaltedVertices, gc.Equals, g.NumVertices())

	cmp := pagerank.Compare(exp.Scores, got.Scores, 1e-5)
	c.Assert(cmp.Err(), gc.IsNil, gc.Commentf("\n%s", cmp))
}

func (s *SolverTestSuite) TestExhaustion(c *gc.C) {
	g := s.loadTestdata(c)
	for name, solver := range s.solvers(c, pagerank.Config{MaxIterations: 3, Tolerance: 1e-12}) {
		res, err := solver.Solve(context.TODO(), g)
		c.Assert(err, gc.IsNil)
		c.Assert(res.State, gc.Equals, pagerank.StateExhausted, gc.Commentf("%s", name))
		c.Assert(res.Iterations, gc.Equals, 3, gc.Commentf("%s", name))
	}
}

func (s *SolverTestSuite) TestEmptyGraph(c *gc.C) {
	g := mustLoad(c, "# no vertices\n")
	for name, solver := range s.solvers(c, pagerank.Config{}) {
		res, err := solver.Solve(context.TODO(), g)
		c.Assert(err, gc.IsNil)
		c.Assert(res.Scores, gc.HasLen, 0, gc.Commentf("%s", name))
		c.Assert(res.State, gc.Equals, pagerank.StateConverged, gc.Commentf("%s", name))
		c.Assert(res.Iterations, gc.Equals, 0, gc.Commentf("%s", name))
	}
}

func (s *SolverTestSuite) TestMultiEdges(c *gc.C) {
	// A links to B twice and to C once, so B gets two thirds of A's score.
	g := mustLoad(c, "A: B B C\nB: A\nC: A\n")
	cfg := pagerank.Config{MaxIterations: 200, Tolerance: 1e-12}

	ref, err := pagerank.NewIterativeSolver(cfg)
	c.Assert(err, gc.IsNil)
	exp, err := ref.Solve(context.TODO(), g)
	c.Assert(err, gc.IsNil)
	c.Assert(exp.Scores["B"] > exp.Scores["C"], gc.Equals, true)

	calc, err := pagerank.NewCalculator(cfg)
	c.Assert(err, gc.IsNil)
	defer func() { _ = calc.Close() }()
	got, err := calc.Solve(context.TODO(), g)
	c.Assert(err, gc.IsNil)

	cmp := pagerank.Compare(exp.Scores, got.Scores, 1e-5)
	c.Assert(cmp.Err(), gc.IsNil, gc.Commentf("\n%s", cmp))
}

func (s *SolverTestSuite) TestCalculatorStateAfterSolve(c *gc.C) {
	calc, err := pagerank.NewCalculator(pagerank.Config{})
	c.Assert(err, gc.IsNil)
	defer func() { _ = calc.Close() }()

	_, err = calc.Solve(context.TODO(), mustLoad(c, "A: B\nB: A\n"))
	c.Assert(err, gc.IsNil)
	c.Assert(calc.State(), gc.Equals, pagerank.StateDone)
}

func (s *SolverTestSuite) TestContextCancellation(c *gc.C) {
	ctx, cancelFn := context.WithCancel(context.TODO())
	cancelFn()

	g := s.loadTestdata(c)
	for name, solver := range s.solvers(c, pagerank.Config{}) {
		res, err := solver.Solve(ctx, g)
		c.Assert(xerrors.Is(err, context.Canceled), gc.Equals, true, gc.Commentf("%s: %v", name, err))
		c.Assert(res, gc.IsNil)
	}
}

func (s *SolverTestSuite) TestStepObserver(c *gc.C) {
	var (
		clk   = testclock.NewClock(time.Now())
		steps []pagerank.StepStats
	)

	calc, err := pagerank.NewCalculator(pagerank.Config{
		MaxIterations: 4,
		Clock:         clk,
		StepObserver:  func(st pagerank.StepStats) { steps = append(steps, st) },
	})
	c.Assert(err, gc.IsNil)
	defer func() { _ = calc.Close() }()

	g := mustLoad(c, "A: B\nB:\n")
	res, err := calc.Solve(context.TODO(), g)
	c.Assert(err, gc.IsNil)
	c.Assert(res.Iterations, gc.Equals, 4)

	c.Assert(steps, gc.HasLen, 5)
	for i, st := range steps {
		c.Assert(st.Superstep, gc.Equals, i)
		c.Assert(st.ActiveVertices, gc.Equals, 2)
		c.Assert(st.Duration, gc.Equals, time.Duration(0))
	}

	// Superstep 0 only assigns the initial scores.
	c.Assert(steps[0].DanglingMass, gc.Equals, 0.5)
	c.Assert(steps[0].Residual, gc.Equals, 0.0)

	// The mass collected during the last step is the final score of the
	// only dangling vertex.
	c.Assert(steps[4].DanglingMass, gc.Equals, res.Scores["B"])
	c.Assert(steps[4].Residual, gc.Equals, res.Residual)
}

func (s *SolverTestSuite) TestConfigValidation(c *gc.C) {
	specs := []struct {
		descr string
		cfg   pagerank.Config
	}{
		{descr: "damping factor above 1", cfg: pagerank.Config{DampingFactor: 1.5}},
		{descr: "damping factor equal to 1", cfg: pagerank.Config{DampingFactor: 1.0}},
		{descr: "negative damping factor", cfg: pagerank.Config{DampingFactor: -0.1}},
		{descr: "NaN damping factor", cfg: pagerank.Config{DampingFactor: math.NaN()}},
		{descr: "negative iteration cap", cfg: pagerank.Config{MaxIterations: -1}},
		{descr: "negative tolerance", cfg: pagerank.Config{Tolerance: -1e-3}},
		{descr: "negative per-vertex tolerance", cfg: pagerank.Config{PerVertexTolerance: -1e-3}},
	}

	for specIndex, spec := range specs {
		c.Logf("[spec %d] %s", specIndex, spec.descr)
		_, err := pagerank.NewCalculator(spec.cfg)
		c.Assert(xerrors.Is(err, pagerank.ErrConfiguration), gc.Equals, true, gc.Commentf("err: %v", err))

		_, err = pagerank.NewIterativeSolver(spec.cfg)
		c.Assert(xerrors.Is(err, pagerank.ErrConfiguration), gc.Equals, true, gc.Commentf("err: %v", err))
	}
}

func (s *SolverTestSuite) TestConfigValidationReportsAllProblems(c *gc.C) {
	_, err := pagerank.NewIterativeSolver(pagerank.Config{DampingFactor: 2, MaxIterations: -5})
	c.Assert(err, gc.ErrorMatches, "(?s).*2 errors occurred.*DampingFactor.*MaxIterations.*")
}

func (s *SolverTestSuite) solvers(c *gc.C, cfg pagerank.Config) map[string]pagerank.Solver {
	ref, err := pagerank.NewIterativeSolver(cfg)
	c.Assert(err, gc.IsNil)

	calc, err := pagerank.NewCalculator(cfg)
	c.Assert(err, gc.IsNil)
	s.calcs = append(s.calcs, calc)

	return map[string]pagerank.Solver{
		"reference":  ref,
		"bsp-engine": calc,
	}
}

func (s *SolverTestSuite) TearDownTest(c *gc.C) {
	for _, calc := range s.calcs {
		c.Check(calc.Close(), gc.IsNil)
	}
	s.calcs = nil
}

func (s *SolverTestSuite) loadTestdata(c *gc.C) *graphstore.Graph {
	g, err := graphstore.LoadFile(filepath.Join("testdata", "pagerank.txt"), graphstore.Implicit)
	c.Assert(err, gc.IsNil)
	return g
}

func mustLoad(c *gc.C, input string) *graphstore.Graph {
	g, err := graphstore.Load(strings.NewReader(input), graphstore.Implicit)
	c.Assert(err, gc.IsNil)
	return g
}
