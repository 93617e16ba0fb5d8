package bspgraph

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pregelrank/pregelrank/bspgraph/message"
	"golang.org/x/xerrors"
)

// GraphConfig holds the options for creating a Graph.
type GraphConfig struct {
	// ComputeFn is invoked for each vertex at every superstep. It is
	// the only required field.
	ComputeFn ComputeFunc

	// QueueFactory creates the per-vertex message queues. Defaults to
	// message.NewInMemoryQueue.
	QueueFactory message.QueueFactory

	// ComputeWorkers is the number of goroutines that execute ComputeFn.
	// The id-sorted vertex list is split into one contiguous partition per
	// worker, so the assignment of vertices to workers does not depend on
	// scheduling. Defaults to 1.
	ComputeWorkers int

	// ComputeInactive makes the graph invoke ComputeFn for halted vertices
	// that did not receive any messages. Such invocations neither
	// reactivate the vertex nor count towards the active vertices of the
	// step.
	ComputeInactive bool
}

func (cfg *GraphConfig) validate() error {
	var err error
	if cfg.ComputeFn == nil {
		err = multierror.Append(err, xerrors.New("compute function not specified"))
	}
	if cfg.ComputeWorkers < 0 {
		err = multierror.Append(err, xerrors.Errorf("invalid number of compute workers: %d", cfg.ComputeWorkers))
	} else if cfg.ComputeWorkers == 0 {
		cfg.ComputeWorkers = 1
	}
	if cfg.QueueFactory == nil {
		cfg.QueueFactory = message.NewInMemoryQueue
	}
	return err
}
