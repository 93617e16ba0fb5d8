package bspgraph

import (
	"sort"
	"sync"

	"github.com/pregelrank/pregelrank/bspgraph/partition"
	"golang.org/x/xerrors"
)

// workerPool runs a fixed set of goroutines that process the partitions of
// a superstep.
type workerPool struct {
	numWorkers int
	partCh     chan *Partition
	run        func(*Partition) error
	workers    sync.WaitGroup
	pending    sync.WaitGroup
	stopOnce   sync.Once
}

func newWorkerPool(numWorkers int, run func(*Partition) error) *workerPool {
	wp := &workerPool{
		numWorkers: numWorkers,
		partCh:     make(chan *Partition),
		run:        run,
	}

	wp.workers.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go wp.worker()
	}
	return wp
}

func (wp *workerPool) worker() {
	defer wp.workers.Done()
	for p := range wp.partCh {
		p.err = wp.run(p)
		wp.pending.Done()
	}
}

// execute hands out parts to the workers and blocks until all of them have
// been processed. Errors are recorded on each partition.
func (wp *workerPool) execute(parts []*Partition) {
	wp.pending.Add(len(parts))
	for _, p := range parts {
		wp.partCh <- p
	}
	wp.pending.Wait()
}

func (wp *workerPool) size() int { return wp.numWorkers }

// stop terminates the workers. It is safe to call more than once.
func (wp *workerPool) stop() {
	wp.stopOnce.Do(func() { close(wp.partCh) })
	wp.workers.Wait()
}

// step executes the current superstep and returns the number of vertices
// that were active during it. If several partitions fail, the error of the
// lowest-indexed partition is returned.
func (g *Graph) step() (int, error) {
	if len(g.vertices) == 0 {
		return 0, nil
	}

	parts, err := g.partitionVertices()
	if err != nil {
		return 0, err
	}
	for _, p := range parts {
		p.prepare(g.aggregators)
	}

	g.pool.execute(parts)

	// Barrier: apply overwrites first, then fold the partials into the
	// graph-wide aggregators in partition order.
	var active int
	for _, p := range parts {
		if p.err != nil && err == nil {
			err = p.err
		}
		active += p.activeInStep
		for _, view := range p.views {
			if view.hasSet {
				view.global.Set(view.setVal)
			}
		}
	}
	for _, p := range parts {
		for _, view := range p.views {
			view.global.Aggregate(view.partial.Delta())
		}
	}
	return active, err
}

// partitionVertices splits the ID-sorted vertex list into one partition per
// compute worker. The split is cached until the vertex set changes.
func (g *Graph) partitionVertices() ([]*Partition, error) {
	if g.partitions != nil {
		return g.partitions, nil
	}

	ids := make([]string, 0, len(g.vertices))
	for id := range g.vertices {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	r, err := partition.NewRange(len(ids), g.pool.size())
	if err != nil {
		return nil, xerrors.Errorf("partition vertices: %w", err)
	}

	parts := make([]*Partition, r.NumPartitions())
	for i := range parts {
		from, to, err := r.PartitionExtents(i)
		if err != nil {
			return nil, xerrors.Errorf("partition vertices: %w", err)
		}

		p := &Partition{g: g, index: i, vertices: make([]*Vertex, 0, to-from)}
		for _, id := range ids[from:to] {
			p.vertices = append(p.vertices, g.vertices[id])
		}
		parts[i] = p
	}

	g.partitions = parts
	return parts, nil
}

// computePartition runs the compute function for the vertices of p.
func (g *Graph) computePartition(p *Partition) error {
	buffer := g.superstep % 2
	for _, v := range p.vertices {
		queue := v.msgQueue[buffer]

		// Incoming messages wake up a halted vertex.
		if queue.PendingMessages() {
			v.active = true
		}

		if v.active {
			p.activeInStep++
		} else if !g.computeInactive {
			continue
		}

		if err := g.computeFn(p, v, queue.Messages()); err != nil {
			return xerrors.Errorf("running compute function for vertex %q failed: %w", v.ID(), err)
		}
		if err := queue.DiscardMessages(); err != nil {
			return xerrors.Errorf("discarding unprocessed messages for vertex %q failed: %w", v.ID(), err)
		}
	}
	return nil
}
