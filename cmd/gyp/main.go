package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/sloanyang/gyp/pkg/config"
	"github.com/sloanyang/gyp/pkg/finder"
	"github.com/sloanyang/gyp/pkg/generator"
	"github.com/sloanyang/gyp/pkg/loader"
	"github.com/sloanyang/gyp/pkg/logging"
	"github.com/sloanyang/gyp/pkg/resolve"
	"github.com/sloanyang/gyp/pkg/watcher"
	"github.com/sloanyang/gyp/pkg/web"
)

// app holds what stays fixed across resolution runs
type app struct {
	cfg    *config.Config
	gen    generator.Generator
	units  []string
	vars   loader.Variables
	server *web.Server
	parses *loader.ParseCache
}

const parseCacheSize = 1024

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("gyp", pflag.ContinueOnError)
	config.RegisterFlags(flags)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: gyp [flags] [unit.gyp ...]\n\nformats: %v\n\n", generator.Names())
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if cfg.LogJSON {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}

	units := flags.Args()
	if len(units) == 0 {
		units, err = finder.FindUnitFiles(".", cfg.Extension)
		if err != nil {
			logging.Error("failed to search for unit files", "error", err)
			return 1
		}
	}
	if len(units) == 0 {
		flags.Usage()
		return 1
	}

	gen, err := generator.Lookup(cfg.Format)
	if err != nil {
		logging.Error("invalid format", "error", err)
		return 1
	}

	a := &app{
		cfg:   cfg,
		gen:   gen,
		units: units,
		vars:  loader.NewVariables(append(gen.Variables(), cfg.Variables...)...),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.Watch && !cfg.Serve {
		if _, err := a.resolveOnce(ctx); err != nil {
			logging.Error("resolution failed", "error", err)
			return 1
		}
		return 0
	}
	if err := a.serveAndWatch(ctx); err != nil {
		logging.Error("stopped", "error", err)
		return 1
	}
	return 0
}

// resolveOnce runs the pipeline and writes the generator's output. The
// output file is only replaced when generation succeeds.
func (a *app) resolveOnce(ctx context.Context) (*resolve.Result, error) {
	runID := logging.NewRunID()
	ctx = logging.WithRunID(ctx, runID)
	if a.server != nil {
		a.server.SetResolving(runID)
	}

	res, err := resolve.Resolve(ctx, resolve.Options{
		Units:      a.units,
		Variables:  a.vars,
		ParseCache: a.parses,
	})
	if err != nil {
		if a.server != nil {
			a.server.SetError(runID, err)
		}
		return nil, err
	}
	if a.server != nil {
		a.server.SetResult(res)
	}

	if a.cfg.Output == "" {
		if err := a.gen.GenerateOutput(ctx, res, os.Stdout); err != nil {
			return res, fmt.Errorf("generating %s output: %w", a.gen.Name(), err)
		}
		return res, nil
	}

	var buf bytes.Buffer
	if err := a.gen.GenerateOutput(ctx, res, &buf); err != nil {
		return res, fmt.Errorf("generating %s output: %w", a.gen.Name(), err)
	}
	if err := os.WriteFile(a.cfg.Output, buf.Bytes(), 0o644); err != nil {
		return res, fmt.Errorf("writing %s: %w", a.cfg.Output, err)
	}
	logging.InfoContext(ctx, "wrote output", "path", a.cfg.Output, "format", a.gen.Name())
	return res, nil
}

// serveAndWatch keeps the resolution current until ctx is done. Failed
// runs are logged and the last good result stays served.
func (a *app) serveAndWatch(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.cfg.Serve {
		a.server = web.NewServer()
		g.Go(func() error { return a.server.Start(ctx, a.cfg.Port) })
	}

	if a.cfg.Watch {
		parses, err := loader.NewParseCache(parseCacheSize)
		if err != nil {
			return err
		}
		a.parses = parses
	}

	res, err := a.resolveOnce(ctx)
	if err != nil {
		logging.Error("resolution failed", "error", err)
	}

	if a.cfg.Watch {
		files := resolve.FilesOf(res, err)
		g.Go(func() error { return a.watch(ctx, files) })
	}
	return g.Wait()
}

// watch re-resolves after every debounced batch of changes to files
func (a *app) watch(ctx context.Context, files []string) error {
	fw, err := watcher.NewFileWatcher()
	if err != nil {
		return err
	}
	fw.SetFiles(files)
	fw.Start(ctx)

	debouncer := watcher.NewDebouncer(fw.Events(), 300*time.Millisecond, 2*time.Second)
	debouncer.Start(ctx)
	logging.Info("watching for changes", "units", len(a.units))

	for ev := range debouncer.Output() {
		logging.Info("change detected", "paths", ev.Paths)
		res, err := a.resolveOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logging.Error("resolution failed", "error", err)
		}
		if files := resolve.FilesOf(res, err); files != nil {
			fw.SetFiles(files)
		}
		logging.Debug("parse cache", "entries", a.parses.Len())
	}
	return nil
}
