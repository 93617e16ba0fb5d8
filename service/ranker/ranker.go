// Package ranker implements a service that periodically recomputes the
// PageRank scores of a graph and publishes them.
package ranker

import (
	"context"
	"io/ioutil"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/pregelrank/pregelrank/graphstore"
	"github.com/pregelrank/pregelrank/pagerank"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go github.com/pregelrank/pregelrank/service/ranker GraphSource,ScoreSink

// GraphSource is implemented by types that can load the graph to be ranked.
type GraphSource interface {
	Load(ctx context.Context) (*graphstore.Graph, error)
}

// ScoreSink is implemented by types that consume the outcome of a ranking
// pass.
type ScoreSink interface {
	Publish(ctx context.Context, res *pagerank.Result) error
}

// Config encapsulates the settings for configuring the ranker service.
type Config struct {
	// The source for the graph to be ranked. The graph is reloaded at the
	// beginning of each pass.
	GraphSource GraphSource

	// The sink where the results of each pass are published to.
	ScoreSink ScoreSink

	// The settings for the PageRank calculator. The Clock and Logger
	// fields are populated from the service settings if left empty.
	PageRank pagerank.Config

	// A clock instance for generating time-related events. If not specified,
	// the default wall-clock will be used instead.
	Clock clock.Clock

	// The time between subsequent ranking passes.
	UpdateInterval time.Duration

	// If set, the first pass runs as soon as the service starts instead
	// of after the first UpdateInterval.
	RunOnStart bool

	// The registry for the service metrics. If not specified, metrics are
	// registered with a private registry.
	Registerer prometheus.Registerer

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.GraphSource == nil {
		err = multierror.Append(err, xerrors.Errorf("graph source has not been provided"))
	}
	if cfg.ScoreSink == nil {
		err = multierror.Append(err, xerrors.Errorf("score sink has not been provided"))
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.UpdateInterval <= 0 {
		err = multierror.Append(err, xerrors.Errorf("invalid value for update interval"))
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// Service periodically loads a graph, ranks its vertices and publishes the
// scores.
type Service struct {
	cfg        Config
	calculator *pagerank.Calculator
	metrics    *metrics
}

// NewService creates a new ranker service instance with the specified config.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("ranker service: config validation failed: %w", err)
	}

	m := newMetrics(cfg.Registerer)
	prCfg := cfg.PageRank
	if prCfg.Clock == nil {
		prCfg.Clock = cfg.Clock
	}
	if prCfg.Logger == nil {
		prCfg.Logger = cfg.Logger
	}
	userObserver := prCfg.StepObserver
	prCfg.StepObserver = func(st pagerank.StepStats) {
		m.observeStep(st)
		if userObserver != nil {
			userObserver(st)
		}
	}

	calculator, err := pagerank.NewCalculator(prCfg)
	if err != nil {
		return nil, xerrors.Errorf("ranker service: %w", err)
	}

	return &Service{
		cfg:        cfg,
		calculator: calculator,
		metrics:    m,
	}, nil
}

// Name implements service.Service
func (svc *Service) Name() string { return "ranker" }

// Close releases the resources held by the PageRank calculator.
func (svc *Service) Close() error { return svc.calculator.Close() }

// Run implements service.Service. Failed passes are logged and retried at
// the next interval; Run only returns once the context gets cancelled.
func (svc *Service) Run(ctx context.Context) error {
	svc.cfg.Logger.WithField("update_interval", svc.cfg.UpdateInterval.String()).Info("starting service")
	defer svc.cfg.Logger.Info("stopped service")

	if svc.cfg.RunOnStart {
		svc.runPass(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-svc.cfg.Clock.After(svc.cfg.UpdateInterval):
			svc.runPass(ctx)
		}
	}
}

func (svc *Service) runPass(ctx context.Context) {
	if err := svc.updateScores(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		svc.metrics.passes.WithLabelValues("failed").Inc()
		svc.cfg.Logger.WithField("err", err).Error("PageRank update pass failed")
	}
}

// RunOnce executes a single ranking pass.
func (svc *Service) RunOnce(ctx context.Context) error {
	return svc.updateScores(ctx)
}

func (svc *Service) updateScores(ctx context.Context) error {
	svc.cfg.Logger.Info("starting PageRank update pass")
	startAt := svc.cfg.Clock.Now()

	tick := startAt
	g, err := svc.cfg.GraphSource.Load(ctx)
	if err != nil {
		return xerrors.Errorf("load graph: %w", err)
	}
	graphLoadTime := svc.cfg.Clock.Now().Sub(tick)

	tick = svc.cfg.Clock.Now()
	res, err := svc.calculator.Solve(ctx, g)
	if err != nil {
		return err
	}
	scoreCalculationTime := svc.cfg.Clock.Now().Sub(tick)

	tick = svc.cfg.Clock.Now()
	if err = svc.cfg.ScoreSink.Publish(ctx, res); err != nil {
		return xerrors.Errorf("publish scores: %w", err)
	}
	scorePublishTime := svc.cfg.Clock.Now().Sub(tick)

	endAt := svc.cfg.Clock.Now()
	svc.metrics.passes.WithLabelValues(res.State.String()).Inc()
	svc.metrics.vertices.Set(float64(g.NumVertices()))
	svc.metrics.passDuration.Set(endAt.Sub(startAt).Seconds())
	svc.metrics.lastSuccess.Set(float64(endAt.Unix()))

	svc.cfg.Logger.WithFields(logrus.Fields{
		"run_id":                 res.RunID.String(),
		"processed_vertices":     g.NumVertices(),
		"iterations":             res.Iterations,
		"state":                  res.State.String(),
		"graph_load_time":        graphLoadTime.String(),
		"score_calculation_time": scoreCalculationTime.String(),
		"score_publish_time":     scorePublishTime.String(),
		"total_pass_time":        endAt.Sub(startAt).String(),
	}).Info("completed PageRank update pass")
	return nil
}
