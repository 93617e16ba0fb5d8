// Package runconfig decodes HCL run configuration files for the pagerank
// tool.
//
// A run configuration file looks like this:
//
//	input {
//	  path = "graph.txt"
//	  mode = "strict"
//	}
//
//	pagerank {
//	  damping_factor = 0.85
//	  max_iterations = 50
//	  tolerance      = 1e-6
//	  workers        = 4
//	}
//
//	service {
//	  listen          = ":8080"
//	  update_interval = "5m"
//	}
//
// All attributes are optional. Expressions may refer to environment
// variables through the env object, e.g. dsn = env.CDB_DSN.
package runconfig

import (
	"io/ioutil"
	"math"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pregelrank/pregelrank/graphstore"
	"github.com/pregelrank/pregelrank/pagerank"
	"github.com/zclconf/go-cty/cty"
	"golang.org/x/xerrors"
)

// File is the decoded contents of a run configuration file.
type File struct {
	Input    *Input    `hcl:"input,block"`
	PageRank *PageRank `hcl:"pagerank,block"`
	Service  *Service  `hcl:"service,block"`
}

// Input describes where the graph is loaded from.
type Input struct {
	Path *string `hcl:"path,optional"`
	Mode *string `hcl:"mode,optional"`
	DSN  *string `hcl:"dsn,optional"`
}

// PageRank holds the calculator settings.
type PageRank struct {
	DampingFactor      *float64 `hcl:"damping_factor,optional"`
	MaxIterations      *int     `hcl:"max_iterations,optional"`
	Tolerance          *float64 `hcl:"tolerance,optional"`
	PerVertexTolerance *float64 `hcl:"per_vertex_tolerance,optional"`
	Workers            *int     `hcl:"workers,optional"`
}

// Service holds the settings of the long-running ranking service.
type Service struct {
	Listen         *string `hcl:"listen,optional"`
	UpdateInterval *string `hcl:"update_interval,optional"`
	RunOnStart     *bool   `hcl:"run_on_start,optional"`
}

// LoadFile parses and decodes the run configuration at path. The entries of
// env are exposed to expressions through the env object.
func LoadFile(path string, env map[string]string) (*File, error) {
	src, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("read run config: %w", err)
	}
	return Parse(src, path, env)
}

// Parse decodes a run configuration from src. The filename is only used in
// diagnostics.
func Parse(src []byte, filename string, env map[string]string) (*File, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, xerrors.Errorf("parse run config %s: %s", filename, diags.Error())
	}

	var cfg File
	if diags = gohcl.DecodeBody(file.Body, evalContext(env), &cfg); diags.HasErrors() {
		return nil, xerrors.Errorf("decode run config %s: %s", filename, diags.Error())
	}

	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("run config %s: %w", filename, err)
	}
	return &cfg, nil
}

func evalContext(env map[string]string) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(env))
	for k, v := range env {
		vars[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
	}
}

func (f *File) validate() error {
	var err error
	if f.Input != nil && f.Input.Mode != nil {
		if _, perr := graphstore.ParseDeclarationMode(*f.Input.Mode); perr != nil {
			err = multierror.Append(err, perr)
		}
	}
	if pr := f.PageRank; pr != nil {
		if pr.DampingFactor != nil && (math.IsNaN(*pr.DampingFactor) || *pr.DampingFactor <= 0 || *pr.DampingFactor >= 1) {
			err = multierror.Append(err, xerrors.Errorf("damping_factor must be in the range (0, 1)"))
		}
		if pr.MaxIterations != nil && *pr.MaxIterations <= 0 {
			err = multierror.Append(err, xerrors.Errorf("max_iterations must be positive"))
		}
		if pr.Tolerance != nil && *pr.Tolerance < 0 {
			err = multierror.Append(err, xerrors.Errorf("tolerance must not be negative"))
		}
		if pr.PerVertexTolerance != nil && *pr.PerVertexTolerance < 0 {
			err = multierror.Append(err, xerrors.Errorf("per_vertex_tolerance must not be negative"))
		}
		if pr.Workers != nil && *pr.Workers <= 0 {
			err = multierror.Append(err, xerrors.Errorf("workers must be positive"))
		}
	}
	if f.Service != nil && f.Service.UpdateInterval != nil {
		if d, perr := time.ParseDuration(*f.Service.UpdateInterval); perr != nil || d <= 0 {
			err = multierror.Append(err, xerrors.Errorf("invalid update_interval %q", *f.Service.UpdateInterval))
		}
	}
	return err
}

// Apply overwrites the fields of cfg that are set in the pagerank block.
func (f *File) Apply(cfg *pagerank.Config) {
	pr := f.PageRank
	if pr == nil {
		return
	}
	if pr.DampingFactor != nil {
		cfg.DampingFactor = *pr.DampingFactor
	}
	if pr.MaxIterations != nil {
		cfg.MaxIterations = *pr.MaxIterations
	}
	if pr.Tolerance != nil {
		cfg.Tolerance = *pr.Tolerance
	}
	if pr.PerVertexTolerance != nil {
		cfg.PerVertexTolerance = *pr.PerVertexTolerance
	}
	if pr.Workers != nil {
		cfg.ComputeWorkers = *pr.Workers
	}
}

// InputPath returns the configured graph file path or the empty string.
func (f *File) InputPath() string {
	if f.Input == nil || f.Input.Path == nil {
		return ""
	}
	return *f.Input.Path
}

// InputDSN returns the configured database DSN or the empty string.
func (f *File) InputDSN() string {
	if f.Input == nil || f.Input.DSN == nil {
		return ""
	}
	return *f.Input.DSN
}

// InputMode returns the configured declaration mode. Implicit is returned
// if the mode is not set.
func (f *File) InputMode() graphstore.DeclarationMode {
	if f.Input == nil || f.Input.Mode == nil {
		return graphstore.Implicit
	}
	// The mode has already been checked by validate.
	mode, _ := graphstore.ParseDeclarationMode(*f.Input.Mode)
	return mode
}

// ListenAddr returns the configured API listen address or the empty string.
func (f *File) ListenAddr() string {
	if f.Service == nil || f.Service.Listen == nil {
		return ""
	}
	return *f.Service.Listen
}

// UpdateInterval returns the configured update interval or zero if it is
// not set.
func (f *File) UpdateInterval() time.Duration {
	if f.Service == nil || f.Service.UpdateInterval == nil {
		return 0
	}
	d, _ := time.ParseDuration(*f.Service.UpdateInterval)
	return d
}

// RunOnStart reports whether the service should rank the graph as soon as
// it starts.
func (f *File) RunOnStart() bool {
	return f.Service != nil && f.Service.RunOnStart != nil && *f.Service.RunOnStart
}
