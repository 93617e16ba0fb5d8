package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pregelrank/pregelrank/pagerank"
	"github.com/pregelrank/pregelrank/service"
	"github.com/pregelrank/pregelrank/service/api"
	"github.com/pregelrank/pregelrank/service/ranker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"golang.org/x/xerrors"
)

var (
	appName = "pagerank"
	appSha  = "populated-at-link-time"
	logger  *logrus.Entry
)

func main() {
	host, _ := os.Hostname()
	rootLogger := logrus.New()
	rootLogger.SetFormatter(new(logrus.JSONFormatter))
	logger = rootLogger.WithFields(logrus.Fields{
		"app":  appName,
		"sha":  appSha,
		"host": host,
	})

	if err := makeApp(rootLogger).Run(os.Args); err != nil {
		logger.WithField("err", err).Error("shutting down due to error")
		_ = os.Stderr.Sync()
		os.Exit(1)
	}
}

func makeApp(rootLogger *logrus.Logger) *cli.App {
	app := cli.NewApp()
	app.Name = appName
	app.Usage = "compute PageRank scores with a vertex-centric engine"
	app.Version = appSha
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config",
			EnvVar: "RUN_CONFIG",
			Usage:  "An HCL run configuration file",
		},
		cli.Float64Flag{
			Name:   "damping",
			Value:  pagerank.DefaultDampingFactor,
			EnvVar: "DAMPING_FACTOR",
			Usage:  "The damping factor; must be in the range (0, 1)",
		},
		cli.IntFlag{
			Name:   "max-iterations",
			Value:  pagerank.DefaultMaxIterations,
			EnvVar: "MAX_ITERATIONS",
			Usage:  "The maximum number of score update iterations",
		},
		cli.Float64Flag{
			Name:   "tolerance",
			EnvVar: "TOLERANCE",
			Usage:  "Stop once the sum of absolute score changes drops below this value; 0 disables the test",
		},
		cli.Float64Flag{
			Name:   "per-vertex-tolerance",
			EnvVar: "PER_VERTEX_TOLERANCE",
			Usage:  "Stop once every score changes by less than this value; 0 disables the test",
		},
		cli.IntFlag{
			Name:   "num-workers",
			Value:  1,
			EnvVar: "NUM_WORKERS",
			Usage:  "The number of workers to use for calculating PageRank scores",
		},
		cli.StringFlag{
			Name:   "mode",
			Value:  "implicit",
			EnvVar: "DECLARATION_MODE",
			Usage:  "The vertex declaration mode for loading graphs; one of 'implicit' or 'strict'",
		},
		cli.StringFlag{
			Name:   "dsn",
			EnvVar: "CDB_DSN",
			Usage:  "Load the graph from a CockroachDB/PostgreSQL database instead of a file",
		},
		cli.StringFlag{
			Name:   "log-level",
			Value:  "info",
			EnvVar: "LOG_LEVEL",
			Usage:  "The log level; one of 'debug', 'info', 'warn' or 'error'",
		},
	}
	app.Before = func(appCtx *cli.Context) error {
		level, err := logrus.ParseLevel(appCtx.GlobalString("log-level"))
		if err != nil {
			return err
		}
		rootLogger.SetLevel(level)
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:      "run",
			Usage:     "rank the vertices of a graph and print the results",
			ArgsUsage: "[graph-file]",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "reference",
					Usage: "Use the sequential reference solver instead of the vertex-centric engine",
				},
				cli.IntFlag{
					Name:  "top",
					Usage: "Only print the N highest ranked vertices; 0 prints all of them",
				},
				cli.BoolFlag{
					Name:  "json",
					Usage: "Print the result as a JSON document",
				},
			},
			Action: runCmd,
		},
		{
			Name:      "compare",
			Usage:     "run the engine and the reference solver and compare their scores",
			ArgsUsage: "[graph-file]",
			Flags: []cli.Flag{
				cli.Float64Flag{
					Name:  "epsilon",
					Value: 1e-5,
					Usage: "The maximum allowed per-vertex score difference",
				},
				cli.BoolFlag{
					Name:  "dump",
					Usage: "Dump both score sets",
				},
			},
			Action: compareCmd,
		},
		{
			Name:      "serve",
			Usage:     "periodically rank a graph and serve the scores over HTTP",
			ArgsUsage: "[graph-file]",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:   "listen",
					Value:  ":8080",
					EnvVar: "LISTEN_ADDR",
					Usage:  "The address for the HTTP API",
				},
				cli.DurationFlag{
					Name:   "update-interval",
					Value:  5 * time.Minute,
					EnvVar: "UPDATE_INTERVAL",
					Usage:  "The time between subsequent PageRank score updates",
				},
				cli.BoolFlag{
					Name:  "run-on-start",
					Usage: "Rank the graph as soon as the service starts",
				},
			},
			Action: serveCmd,
		},
	}
	return app
}

func runCmd(appCtx *cli.Context) error {
	opts, err := loadOptions(appCtx)
	if err != nil {
		return err
	}
	ctx, cancelFn := signalContext()
	defer cancelFn()

	var solver pagerank.Solver
	if appCtx.Bool("reference") {
		if solver, err = pagerank.NewIterativeSolver(opts.pageRank); err != nil {
			return err
		}
	} else {
		calc, err := pagerank.NewCalculator(opts.pageRank)
		if err != nil {
			return err
		}
		defer func() { _ = calc.Close() }()
		solver = calc
	}

	res, err := solve(ctx, opts, solver)
	if err != nil {
		return err
	}

	ranking := pagerank.Ranking(res.Scores)
	if top := appCtx.Int("top"); top > 0 && top < len(ranking) {
		ranking = ranking[:top]
	}
	if appCtx.Bool("json") {
		enc := json.NewEncoder(appCtx.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"run_id":     res.RunID.String(),
			"state":      res.State.String(),
			"iterations": res.Iterations,
			"residual":   res.Residual,
			"ranking":    ranking,
		})
	}
	return printRanking(appCtx.App.Writer, res, ranking)
}

func compareCmd(appCtx *cli.Context) error {
	opts, err := loadOptions(appCtx)
	if err != nil {
		return err
	}
	ctx, cancelFn := signalContext()
	defer cancelFn()

	ref, err := pagerank.NewIterativeSolver(opts.pageRank)
	if err != nil {
		return err
	}
	calc, err := pagerank.NewCalculator(opts.pageRank)
	if err != nil {
		return err
	}
	defer func() { _ = calc.Close() }()

	expected, err := solve(ctx, opts, ref)
	if err != nil {
		return err
	}
	actual, err := solve(ctx, opts, calc)
	if err != nil {
		return err
	}

	cmp := pagerank.Compare(expected.Scores, actual.Scores, appCtx.Float64("epsilon"))
	if appCtx.Bool("dump") || !cmp.Equivalent() {
		if err = cmp.Dump(appCtx.App.Writer); err != nil {
			return err
		}
	}
	if err = cmp.Err(); err != nil {
		return err
	}

	_, err = fmt.Fprintf(appCtx.App.Writer, "OK: %d vertices, reference %s after %d iterations, engine %s after %d iterations\n",
		len(expected.Scores), expected.State, expected.Iterations, actual.State, actual.Iterations)
	return err
}

func serveCmd(appCtx *cli.Context) error {
	opts, err := loadOptions(appCtx)
	if err != nil {
		return err
	}

	src, closeSrc, err := opts.graphSource()
	if err != nil {
		return err
	}
	defer closeSrc()

	listenAddr := appCtx.String("listen")
	if v := opts.file.ListenAddr(); v != "" && !appCtx.IsSet("listen") {
		listenAddr = v
	}
	updateInterval := appCtx.Duration("update-interval")
	if v := opts.file.UpdateInterval(); v != 0 && !appCtx.IsSet("update-interval") {
		updateInterval = v
	}
	runOnStart := appCtx.Bool("run-on-start") || opts.file.RunOnStart()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	store := api.NewStore(nil)

	rankerSvc, err := ranker.NewService(ranker.Config{
		GraphSource:    src,
		ScoreSink:      store,
		PageRank:       opts.pageRank,
		UpdateInterval: updateInterval,
		RunOnStart:     runOnStart,
		Registerer:     reg,
		Logger:         logger.WithField("service", "ranker"),
	})
	if err != nil {
		return err
	}
	defer func() { _ = rankerSvc.Close() }()

	apiSvc, err := api.NewService(api.Config{
		Store:      store,
		ListenAddr: listenAddr,
		Gatherer:   reg,
		Logger:     logger.WithField("service", "api"),
	})
	if err != nil {
		return err
	}

	ctx, cancelFn := signalContext()
	defer cancelFn()
	return service.Group{rankerSvc, apiSvc}.Run(ctx)
}

func solve(ctx context.Context, opts *options, solver pagerank.Solver) (*pagerank.Result, error) {
	src, closeSrc, err := opts.graphSource()
	if err != nil {
		return nil, err
	}
	defer closeSrc()

	g, err := src.Load(ctx)
	if err != nil {
		return nil, xerrors.Errorf("load graph: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"vertices": g.NumVertices(),
		"edges":    g.NumEdges(),
		"dangling": len(g.DanglingIDs()),
	}).Info("loaded graph")

	return solver.Solve(ctx, g)
}

func printRanking(w io.Writer, res *pagerank.Result, ranking []pagerank.Score) error {
	if _, err := fmt.Fprintf(w, "# run %s: %s after %d iterations (residual %g)\n",
		res.RunID, res.State, res.Iterations, res.Residual); err != nil {
		return err
	}
	for _, entry := range ranking {
		if _, err := fmt.Fprintf(w, "%10s : %1.20f\n", entry.ID, entry.Score); err != nil {
			return err
		}
	}
	return nil
}

// signalContext returns a context that gets cancelled when the process
// receives SIGINT or SIGHUP.
func signalContext() (context.Context, func()) {
	ctx, cancelFn := context.WithCancel(context.Background())
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGHUP)
		defer signal.Stop(sigCh)
		select {
		case s := <-sigCh:
			logger.WithField("signal", s.String()).Infof("shutting down due to signal")
			cancelFn()
		case <-ctx.Done():
		}
	}()
	return ctx, cancelFn
}
