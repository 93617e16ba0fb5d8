package main

import (
	"os"
	"strings"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pregelrank/pregelrank/graphstore"
	"github.com/pregelrank/pregelrank/graphstore/cdb"
	"github.com/pregelrank/pregelrank/pagerank"
	"github.com/pregelrank/pregelrank/runconfig"
	"github.com/pregelrank/pregelrank/service/ranker"
	"github.com/urfave/cli"
	"golang.org/x/xerrors"
)

// options collects the settings shared by all commands. Values from the run
// config file are applied first and explicitly set flags take precedence.
type options struct {
	pageRank  pagerank.Config
	inputPath string
	inputDSN  string
	mode      graphstore.DeclarationMode
	file      *runconfig.File
}

func loadOptions(appCtx *cli.Context) (*options, error) {
	opts := &options{
		mode: graphstore.Implicit,
		file: new(runconfig.File),
	}

	if path := appCtx.GlobalString("config"); path != "" {
		f, err := runconfig.LoadFile(path, environ())
		if err != nil {
			return nil, err
		}
		opts.file = f
		f.Apply(&opts.pageRank)
		opts.inputPath = f.InputPath()
		opts.inputDSN = f.InputDSN()
		opts.mode = f.InputMode()
	}

	if err := applyFlags(appCtx, &opts.pageRank); err != nil {
		return nil, err
	}
	if appCtx.GlobalIsSet("mode") {
		mode, err := graphstore.ParseDeclarationMode(appCtx.GlobalString("mode"))
		if err != nil {
			return nil, err
		}
		opts.mode = mode
	}
	if appCtx.GlobalIsSet("dsn") {
		opts.inputDSN = appCtx.GlobalString("dsn")
	}
	if path := appCtx.Args().First(); path != "" {
		opts.inputPath = path
	}

	opts.pageRank.Logger = logger
	return opts, nil
}

// applyFlags copies the explicitly set solver flags into cfg. Zero values
// mean "use the default" to pagerank.Config, so out-of-range flag values are
// rejected here instead of being silently replaced.
func applyFlags(appCtx *cli.Context, cfg *pagerank.Config) error {
	var err error
	if appCtx.GlobalIsSet("damping") {
		if cfg.DampingFactor = appCtx.GlobalFloat64("damping"); !(cfg.DampingFactor > 0 && cfg.DampingFactor < 1) {
			err = multierror.Append(err, xerrors.Errorf("--damping must be in the range (0, 1); got %v", cfg.DampingFactor))
		}
	}
	if appCtx.GlobalIsSet("max-iterations") {
		if cfg.MaxIterations = appCtx.GlobalInt("max-iterations"); cfg.MaxIterations <= 0 {
			err = multierror.Append(err, xerrors.Errorf("--max-iterations must be positive; got %d", cfg.MaxIterations))
		}
	}
	if appCtx.GlobalIsSet("tolerance") {
		cfg.Tolerance = appCtx.GlobalFloat64("tolerance")
	}
	if appCtx.GlobalIsSet("per-vertex-tolerance") {
		cfg.PerVertexTolerance = appCtx.GlobalFloat64("per-vertex-tolerance")
	}
	if appCtx.GlobalIsSet("num-workers") {
		if cfg.ComputeWorkers = appCtx.GlobalInt("num-workers"); cfg.ComputeWorkers <= 0 {
			err = multierror.Append(err, xerrors.Errorf("--num-workers must be positive; got %d", cfg.ComputeWorkers))
		}
	}

	if err != nil {
		return &pagerank.ConfigError{Err: err}
	}
	return nil
}

// graphSource returns a source for the graph to be ranked along with a
// function for releasing its resources. A graph file takes precedence over
// a database DSN.
func (opts *options) graphSource() (ranker.GraphSource, func(), error) {
	switch {
	case opts.inputPath != "":
		return graphstore.FileSource{Path: opts.inputPath, Mode: opts.mode}, func() {}, nil
	case opts.inputDSN != "":
		src, err := cdb.NewSource(opts.inputDSN, opts.mode)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { _ = src.Close() }, nil
	default:
		return nil, nil, xerrors.Errorf("a graph file or a database DSN (--dsn) must be specified")
	}
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if idx := strings.IndexByte(kv, '='); idx > 0 {
			env[kv[:idx]] = kv[idx+1:]
		}
	}
	return env
}
