package pagerank

import (
	"io/ioutil"
	"math"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

const (
	// DefaultDampingFactor is used when Config.DampingFactor is not set.
	DefaultDampingFactor = 0.85

	// DefaultMaxIterations is used when Config.MaxIterations is not set.
	DefaultMaxIterations = 30
)

// ErrConfiguration is matched (via xerrors.Is) by all errors caused by an
// invalid solver configuration.
var ErrConfiguration = xerrors.New("invalid configuration")

// ConfigError wraps the list of problems detected while validating a Config.
type ConfigError struct {
	Err error
}

// Error implements error.
func (e *ConfigError) Error() string { return ErrConfiguration.Error() + ": " + e.Err.Error() }

// Unwrap returns the underlying validation error.
func (e *ConfigError) Unwrap() error { return e.Err }

// Is returns true if target is ErrConfiguration.
func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// StepStats describes the outcome of a single iteration of a solver.
type StepStats struct {
	// The superstep (Calculator) or iteration (IterativeSolver) number.
	Superstep int

	// The sum of absolute score differences for all vertices.
	Residual float64

	// The number of vertices that were active during the step.
	ActiveVertices int

	// The number of vertices that voted to halt during the step.
	HaltedVertices int

	// The probability mass held by dangling vertices at the end of the
	// step. It is redistributed to all vertices in the next step.
	DanglingMass float64

	// The time it took to execute the step.
	Duration time.Duration
}

// Config encapsulates the required parameters for creating a new PageRank
// solver instance.
type Config struct {
	// DampingFactor is the probability that a random surfer will click on
	// one of the outgoing links on the page they are currently visiting
	// instead of visiting (teleporting to) a random page in the graph.
	//
	// If not specified, a default value of 0.85 will be used instead.
	DampingFactor float64

	// MaxIterations caps the number of score update iterations. When the
	// cap is reached before the tolerance test passes, the run terminates
	// in the StateExhausted state.
	//
	// If not specified, a default value of 30 will be used instead.
	MaxIterations int

	// At each iteration an aggregator tracks the sum of absolute
	// differences (SAD) of the PageRank scores for each vertex in the
	// graph. The run converges as soon as the SAD becomes less than
	// Tolerance. A zero value disables this test.
	Tolerance float64

	// Each vertex votes to halt when its score changes by less than
	// PerVertexTolerance. The run converges once every vertex votes to
	// halt in the same iteration. A zero value disables this test.
	PerVertexTolerance float64

	// The number of workers to spin up for computing PageRank scores. If
	// not specified, a default value of 1 will be used instead.
	ComputeWorkers int

	// A clock instance for measuring step durations. If not specified,
	// the default wall-clock will be used instead.
	Clock clock.Clock

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry

	// StepObserver, if defined, is invoked after each completed step.
	StepObserver func(StepStats)
}

// validate checks whether the PageRank solver configuration is valid and
// sets the default values where required.
func (c *Config) validate() error {
	var err error
	switch {
	case math.IsNaN(c.DampingFactor) || c.DampingFactor < 0 || c.DampingFactor >= 1.0:
		err = multierror.Append(err, xerrors.New("DampingFactor must be in the range (0, 1)"))
	case c.DampingFactor == 0:
		c.DampingFactor = DefaultDampingFactor
	}

	if c.MaxIterations < 0 {
		err = multierror.Append(err, xerrors.New("MaxIterations must be positive"))
	} else if c.MaxIterations == 0 {
		c.MaxIterations = DefaultMaxIterations
	}

	if math.IsNaN(c.Tolerance) || c.Tolerance < 0 {
		err = multierror.Append(err, xerrors.New("Tolerance must not be negative"))
	}
	if math.IsNaN(c.PerVertexTolerance) || c.PerVertexTolerance < 0 {
		err = multierror.Append(err, xerrors.New("PerVertexTolerance must not be negative"))
	}

	if c.ComputeWorkers <= 0 {
		c.ComputeWorkers = 1
	}
	if c.Clock == nil {
		c.Clock = clock.WallClock
	}
	if c.Logger == nil {
		c.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}

	if err != nil {
		return &ConfigError{Err: err}
	}
	return nil
}
