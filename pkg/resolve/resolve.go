// Package resolve runs the whole pipeline: load units, build the target
// table and dependency graph, then run the settings and source passes.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sloanyang/gyp/pkg/graph"
	"github.com/sloanyang/gyp/pkg/loader"
	"github.com/sloanyang/gyp/pkg/logging"
	"github.com/sloanyang/gyp/pkg/model"
	"github.com/sloanyang/gyp/pkg/settings"
	"github.com/sloanyang/gyp/pkg/sources"
)

// ErrNoUnits is returned when Resolve is called without root units
var ErrNoUnits = errors.New("no unit files given")

// Options configures one resolution run
type Options struct {
	Units      []string           // root unit paths
	Variables  loader.Variables   // active condition tokens
	Reader     loader.FileReader  // defaults to the local filesystem
	ParseCache *loader.ParseCache // optional, shared across runs
}

// Result is the resolved target model handed to a generator
type Result struct {
	RunID   string
	Order   []string // qualified names, dependencies first
	Targets *model.TargetTable
	Units   []*model.Unit // load order
	Graph   *graph.Graph
	Files   []string // every file read, for watching
}

// Unit returns the loaded unit at path
func (r *Result) Unit(path string) (*model.Unit, bool) {
	path = model.Normalize(path)
	for _, u := range r.Units {
		if u.Path == path {
			return u, true
		}
	}
	return nil, false
}

type stage struct {
	name string
	run  func() error
}

// Resolve runs every stage in sequence. Any error aborts the run and no
// partial result is returned. ctx is checked between stages.
func Resolve(ctx context.Context, opts Options) (*Result, error) {
	if len(opts.Units) == 0 {
		return nil, ErrNoUnits
	}

	runID := logging.GetRunID(ctx)
	if runID == "" {
		runID = logging.NewRunID()
		ctx = logging.WithRunID(ctx, runID)
	}
	start := time.Now()
	logging.InfoContext(ctx, "resolving", "units", len(opts.Units), "variables", opts.Variables.Sorted())

	var loaderOpts []loader.Option
	if opts.Reader != nil {
		loaderOpts = append(loaderOpts, loader.WithReader(opts.Reader))
	}
	if opts.ParseCache != nil {
		loaderOpts = append(loaderOpts, loader.WithParseCache(opts.ParseCache))
	}
	l := loader.New(opts.Variables, loaderOpts...)

	// the cache lives exactly as long as this run
	cache := loader.NewCache()
	res := &Result{RunID: runID}

	stages := []stage{
		{"load", func() error {
			for _, path := range opts.Units {
				if err := l.Load(ctx, path, cache); err != nil {
					return err
				}
			}
			res.Units = cache.Units()
			return nil
		}},
		{"target table", func() (err error) {
			res.Targets, err = model.BuildTargetTable(res.Units)
			return err
		}},
		{"dependency graph", func() (err error) {
			res.Graph, err = graph.Build(res.Targets)
			return err
		}},
		{"flatten", func() (err error) {
			res.Order, err = res.Graph.Flatten()
			return err
		}},
		{"file settings", func() error {
			return settings.ApplyFileSettings(res.Units, res.Targets)
		}},
		{"dependent settings", func() error {
			return settings.ApplyDependentSettings(res.Order, res.Targets)
		}},
		{"static libraries", func() error {
			return settings.FlattenStaticLibraries(res.Order, res.Targets, res.Graph)
		}},
		{"sources", func() error {
			return sources.Process(res.Order, res.Targets)
		}},
	}

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stageStart := time.Now()
		if err := s.run(); err != nil {
			// keep the file list so a watcher can still follow a broken run
			return nil, &Error{Stage: s.name, Files: cache.Files(), Err: err}
		}
		logging.DebugContext(ctx, "stage done", "stage", s.name, "durationMs", time.Since(stageStart).Milliseconds())
	}
	res.Files = cache.Files()

	logging.InfoContext(ctx, "resolved",
		"units", len(res.Units),
		"targets", res.Targets.Len(),
		"durationMs", time.Since(start).Milliseconds())
	return res, nil
}

// Error wraps a failure with the stage it happened in
type Error struct {
	Stage string
	Files []string // files read before the failure
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// FilesOf returns the files a failed or successful run read, if known
func FilesOf(res *Result, err error) []string {
	if res != nil {
		return res.Files
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Files
	}
	return nil
}
