package bspgraph

import "context"

// StepResult describes a superstep that has just been completed.
type StepResult struct {
	// The index of the completed superstep.
	Superstep int

	// The number of vertices that were active during the superstep.
	ActiveVertices int
}

// ExecutorCallbacks groups the optional hooks that an Executor invokes around
// each superstep. Hooks that are left nil are skipped.
type ExecutorCallbacks struct {
	// PreStep runs before a superstep starts. Graph.Superstep reports the
	// index of the superstep about to run, which makes this the place for
	// resetting per-step aggregators.
	PreStep func(ctx context.Context, g *Graph) error

	// PostStep runs once all messages sent during the superstep have been
	// committed and the partial aggregator values have been reduced.
	PostStep func(ctx context.Context, g *Graph, res StepResult) error

	// PostStepKeepRunning decides whether another superstep should be
	// executed. When nil, the executor keeps going until the step budget
	// passed to RunSteps is used up or the context expires.
	PostStepKeepRunning func(ctx context.Context, g *Graph, res StepResult) (bool, error)
}

// ExecutorFactory is a function that creates new Executor instances.
type ExecutorFactory func(*Graph, ExecutorCallbacks) *Executor

// Executor drives a Graph through a sequence of supersteps.
type Executor struct {
	g    *Graph
	cb   ExecutorCallbacks
	last StepResult
}

// NewExecutor returns an Executor for graph g that invokes the provided
// callbacks around every superstep. The graph's superstep counter is reset.
func NewExecutor(g *Graph, cb ExecutorCallbacks) *Executor {
	g.superstep = 0
	return &Executor{g: g, cb: cb}
}

// RunToCompletion executes supersteps until the context expires, an error
// occurs or PostStepKeepRunning returns false.
func (ex *Executor) RunToCompletion(ctx context.Context) error {
	for {
		keepRunning, err := ex.runStep(ctx)
		if err != nil || !keepRunning {
			return err
		}
	}
}

// RunSteps works like RunToCompletion but executes at most numSteps
// supersteps.
func (ex *Executor) RunSteps(ctx context.Context, numSteps int) error {
	for ; numSteps > 0; numSteps-- {
		keepRunning, err := ex.runStep(ctx)
		if err != nil || !keepRunning {
			return err
		}
	}
	return nil
}

// Graph returns the graph instance associated with this executor.
func (ex *Executor) Graph() *Graph { return ex.g }

// Superstep returns the number of completed supersteps, which is also the
// index of the next superstep to be executed.
func (ex *Executor) Superstep() int { return ex.g.Superstep() }

// LastStep returns the result of the most recently completed superstep.
func (ex *Executor) LastStep() StepResult { return ex.last }

// runStep executes a single superstep along with its callbacks. The
// superstep counter only advances once the step has fully completed.
func (ex *Executor) runStep(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if ex.cb.PreStep != nil {
		if err := ex.cb.PreStep(ctx, ex.g); err != nil {
			return false, err
		}
	}

	active, err := ex.g.step()
	if err != nil {
		return false, err
	}
	res := StepResult{Superstep: ex.g.superstep, ActiveVertices: active}

	if ex.cb.PostStep != nil {
		if err = ex.cb.PostStep(ctx, ex.g, res); err != nil {
			return false, err
		}
	}

	keepRunning := true
	if ex.cb.PostStepKeepRunning != nil {
		keepRunning, err = ex.cb.PostStepKeepRunning(ctx, ex.g, res)
	}

	ex.last = res
	ex.g.superstep++
	return keepRunning && err == nil, err
}
