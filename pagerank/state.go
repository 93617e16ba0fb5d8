package pagerank

// State describes the lifecycle stage of a PageRank run.
type State uint8

const (
	// StateInit is the state before the first superstep completes.
	StateInit State = iota

	// StateRunning indicates that score update iterations are in progress.
	StateRunning

	// StateConverged indicates that the run stopped because a tolerance
	// test passed.
	StateConverged

	// StateExhausted indicates that the run stopped because the iteration
	// budget was spent before any tolerance test passed. This is not an
	// error; callers decide whether the scores are usable.
	StateExhausted

	// StateDone indicates that the final scores have been collected.
	StateDone
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRunning:
		return "RUNNING"
	case StateConverged:
		return "CONVERGED"
	case StateExhausted:
		return "EXHAUSTED"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}
