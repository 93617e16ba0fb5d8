package pagerank

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pregelrank/pregelrank/bspgraph"
	"github.com/pregelrank/pregelrank/bspgraph/aggregator"
	"github.com/pregelrank/pregelrank/bspgraph/message"
	"github.com/pregelrank/pregelrank/graphstore"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

const (
	sadAccName    = "SAD"
	haltedAccName = "halted"
)

// Calculator executes the vertex-centric version of the PageRank algorithm
// on a graph until the desired level of convergence is reached or the
// iteration budget is exhausted.
//
// Superstep 0 assigns the initial 1/N score to each vertex; each following
// superstep performs one score update iteration. Calculator instances are
// not safe for concurrent use.
type Calculator struct {
	g   *bspgraph.Graph
	cfg Config

	executorFactory bspgraph.ExecutorFactory

	state     State
	residual  float64
	stepStart time.Time
}

// NewCalculator returns a new Calculator instance using the provided config
// options.
func NewCalculator(cfg Config) (*Calculator, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("PageRank calculator config validation failed: %w", err)
	}

	g, err := bspgraph.NewGraph(bspgraph.GraphConfig{
		ComputeWorkers:  cfg.ComputeWorkers,
		ComputeFn:       makeComputeFunc(cfg.DampingFactor, cfg.PerVertexTolerance),
		ComputeInactive: true,
		QueueFactory:    message.NewSumQueue,
	})
	if err != nil {
		return nil, err
	}

	return &Calculator{
		cfg:             cfg,
		g:               g,
		executorFactory: bspgraph.NewExecutor,
	}, nil
}

// Close releases any resources allocated by this PageRank calculator instance.
func (c *Calculator) Close() error {
	return c.g.Close()
}

// SetExecutorFactory configures the calculator to use the a custom executor
// factory when the Executor method is invoked.
func (c *Calculator) SetExecutorFactory(factory bspgraph.ExecutorFactory) {
	c.executorFactory = factory
}

// AddVertex inserts a new vertex to the graph with the given id.
func (c *Calculator) AddVertex(id string) {
	c.g.AddVertex(id, 0.0)
}

// AddEdge inserts a directed edge from src to dst. Self-links and parallel
// edges are allowed; each one carries its own share of the source score.
func (c *Calculator) AddEdge(src, dst string) error {
	return c.g.AddEdge(src, dst, nil)
}

// Graph returns the underlying bspgraph.Graph instance.
func (c *Calculator) Graph() *bspgraph.Graph {
	return c.g
}

// State returns the state of the most recent run.
func (c *Calculator) State() State {
	return c.state
}

// Residual returns the sum of absolute score differences that was observed
// during the last completed superstep.
func (c *Calculator) Residual() float64 {
	return c.residual
}

// Executor creates and return a bspgraph.Executor for running the PageRank
// algorithm once the graph layout has been properly set up.
func (c *Calculator) Executor() *bspgraph.Executor {
	c.registerAggregators()
	c.state = StateInit
	c.residual = 0

	cb := bspgraph.ExecutorCallbacks{
		PreStep: func(_ context.Context, g *bspgraph.Graph) error {
			c.stepStart = c.cfg.Clock.Now()

			// Reset the per-step aggregators and the dangling mass
			// accumulator that this step writes to. The accumulator
			// populated by the previous step is read during this step.
			g.Aggregator(sadAccName).Set(0.0)
			g.Aggregator(haltedAccName).Set(0)
			g.Aggregator(danglingOutputAccName(g.Superstep())).Set(0.0)
			return nil
		},
		PostStep: func(_ context.Context, g *bspgraph.Graph, res bspgraph.StepResult) error {
			stats := StepStats{
				Superstep:      res.Superstep,
				Residual:       g.Aggregator(sadAccName).Get().(float64),
				ActiveVertices: res.ActiveVertices,
				HaltedVertices: g.Aggregator(haltedAccName).Get().(int),
				DanglingMass:   g.Aggregator(danglingOutputAccName(res.Superstep)).Get().(float64),
				Duration:       c.cfg.Clock.Now().Sub(c.stepStart),
			}
			c.residual = stats.Residual

			c.cfg.Logger.WithFields(logrus.Fields{
				"superstep":     stats.Superstep,
				"residual":      stats.Residual,
				"active":        stats.ActiveVertices,
				"halted":        stats.HaltedVertices,
				"dangling_mass": stats.DanglingMass,
				"took":          stats.Duration.String(),
			}).Debug("completed superstep")

			if c.cfg.StepObserver != nil {
				c.cfg.StepObserver(stats)
			}
			return nil
		},
		PostStepKeepRunning: func(_ context.Context, g *bspgraph.Graph, res bspgraph.StepResult) (bool, error) {
			c.state = c.nextState(g, res.Superstep)
			return c.state == StateRunning, nil
		},
	}

	return c.executorFactory(c.g, cb)
}

// nextState evaluates the termination predicates once a superstep has
// completed.
func (c *Calculator) nextState(g *bspgraph.Graph, superstep int) State {
	// Superstep 0 is part of the algorithm initialization; the predicates
	// should only be evaluated for supersteps > 0.
	if superstep == 0 {
		return StateRunning
	}

	if c.cfg.Tolerance > 0 && c.residual < c.cfg.Tolerance {
		return StateConverged
	}
	if c.cfg.PerVertexTolerance > 0 && g.Aggregator(haltedAccName).Get().(int) == g.NumVertices() {
		return StateConverged
	}
	if superstep >= c.cfg.MaxIterations {
		return StateExhausted
	}
	return StateRunning
}

// registerAggregators creates and registers the aggregator instances that we
// need to run the PageRank calculation algorithm.
func (c *Calculator) registerAggregators() {
	c.g.RegisterAggregator("dangling_0", newFloat64Accumulator)
	c.g.RegisterAggregator("dangling_1", newFloat64Accumulator)
	c.g.RegisterAggregator(sadAccName, newFloat64Accumulator)
	c.g.RegisterAggregator(haltedAccName, func() bspgraph.Aggregator { return new(aggregator.IntAccumulator) })
}

func newFloat64Accumulator() bspgraph.Aggregator { return new(aggregator.Float64Accumulator) }

// Scores invokes the provided visitor function for each vertex in the graph.
func (c *Calculator) Scores(visitFn func(id string, score float64) error) error {
	for id, v := range c.g.Vertices() {
		if err := visitFn(id, v.Value().(float64)); err != nil {
			return err
		}
	}

	return nil
}

// Solve loads g into the calculator, replacing any previously added vertices
// and edges, and runs the algorithm to completion.
func (c *Calculator) Solve(ctx context.Context, g *graphstore.Graph) (*Result, error) {
	var (
		runID  = uuid.New()
		start  = c.cfg.Clock.Now()
		logger = c.cfg.Logger.WithField("run_id", runID.String())
	)

	if err := c.g.Reset(); err != nil {
		return nil, xerrors.Errorf("reset graph: %w", err)
	}
	ids := g.VertexIDs()
	for _, id := range ids {
		c.AddVertex(id)
	}
	for _, id := range ids {
		for _, dst := range g.OutEdges(id) {
			if err := c.AddEdge(id, dst); err != nil {
				return nil, err
			}
		}
	}

	res := &Result{RunID: runID, Scores: make(map[string]float64, len(ids))}
	if len(ids) == 0 {
		c.state = StateDone
		res.State = StateConverged
		return res, nil
	}

	ex := c.Executor()
	if err := ex.RunToCompletion(ctx); err != nil {
		c.state = StateInit
		return nil, xerrors.Errorf("PageRank run %s: %w", runID, err)
	}

	res.State = c.state
	res.Iterations = ex.Superstep() - 1
	res.Residual = c.residual
	if err := c.Scores(func(id string, score float64) error {
		res.Scores[id] = score
		return nil
	}); err != nil {
		return nil, err
	}
	c.state = StateDone

	logger.WithFields(logrus.Fields{
		"vertices":   len(ids),
		"edges":      g.NumEdges(),
		"supersteps": ex.Superstep(),
		"state":      res.State.String(),
		"residual":   res.Residual,
		"took":       c.cfg.Clock.Now().Sub(start).String(),
	}).Info("PageRank run completed")

	return res, nil
}

// danglingOutputAccName returns the name of the accumulator where the mass
// of the dangling vertices for the specified superstep is to be written to.
func danglingOutputAccName(superstep int) string {
	if superstep%2 == 0 {
		return "dangling_0"
	}
	return "dangling_1"
}

// danglingInputAccName returns the name of the accumulator where the mass
// of the dangling vertices for the specified superstep is to be read from.
func danglingInputAccName(superstep int) string {
	if (superstep+1)%2 == 0 {
		return "dangling_0"
	}
	return "dangling_1"
}
