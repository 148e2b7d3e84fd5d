package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/vk/assetgrid/internal/components"
	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/copier"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/dag"
	"github.com/vk/assetgrid/internal/fcache"
	"github.com/vk/assetgrid/internal/fsutil"
	"github.com/vk/assetgrid/internal/metrics"
	"github.com/vk/assetgrid/internal/plugin"
	"github.com/vk/assetgrid/internal/registry"
)

// Options tune a Pipeline. Zero values select defaults.
type Options struct {
	// Root is the project directory; relative paths in the config resolve
	// against it. Defaults to ".".
	Root string
	// Workers bounds concurrent tasks. Defaults to runtime.NumCPU().
	Workers int
	// CacheSize bounds the compiled-source cache.
	CacheSize int
	// Copier copies assets. Defaults to a new scheduler.
	Copier *copier.CopyScheduler
}

// Result summarizes a successful build.
type Result struct {
	// Outputs are the written join outputs, relative to the public path.
	Outputs []string
	// Assets are the copied assets, relative to the public path.
	Assets   []string
	Duration time.Duration
}

// Pipeline builds one project. A Pipeline may run many builds; compiled
// sources are cached between them.
type Pipeline struct {
	root    string
	cfg     *config.Model
	reg     *registry.Registry
	copier  *copier.CopyScheduler
	cache   *fcache.Cache[compiled]
	workers int
}

// New creates a pipeline for cfg using the plugins in reg.
func New(cfg *config.Model, reg *registry.Registry, opts Options) (*Pipeline, error) {
	if opts.Root == "" {
		opts.Root = "."
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Copier == nil {
		opts.Copier = copier.NewScheduler()
	}
	cache, err := fcache.New[compiled](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create source cache: %w", err)
	}
	return &Pipeline{
		root:    opts.Root,
		cfg:     cfg,
		reg:     reg,
		copier:  opts.Copier,
		cache:   cache,
		workers: opts.Workers,
	}, nil
}

// Invalidate drops cached results for the given project-relative paths.
func (p *Pipeline) Invalidate(paths ...string) {
	p.cache.Invalidate(paths...)
}

// TypeOf returns the output type a source path compiles to.
func (p *Pipeline) TypeOf(rel string) (plugin.Type, bool) {
	if _, d, ok := p.reg.CompilerFor(rel); ok {
		return d.Type, true
	}
	return plugin.TypeOfPath(rel)
}

// buildState collects task results. Tasks write to it concurrently.
type buildState struct {
	mu       sync.Mutex
	compiled map[string]plugin.Output
	outputs  []string
	assets   []string
}

func (b *buildState) setCompiled(rel string, out plugin.Output) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.compiled[rel] = out
}

func (b *buildState) getCompiled(rel string) plugin.Output {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.compiled[rel]
}

func (b *buildState) addOutput(rel string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outputs = append(b.outputs, rel)
}

func (b *buildState) addAsset(rel string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.assets = append(b.assets, rel)
}

// Build runs one full build.
func (p *Pipeline) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	logger := ctxlog.FromContext(ctx)
	logger.Info("🔨 Build started.", "root", p.root)

	res, err := p.build(ctx)
	elapsed := time.Since(start)
	metrics.BuildDuration.Observe(elapsed.Seconds())
	if err != nil {
		metrics.BuildsTotal.WithLabelValues("failed").Inc()
		logger.Error("❌ Build failed.", "duration", elapsed, "error", err)
		return nil, err
	}
	metrics.BuildsTotal.WithLabelValues("ok").Inc()
	res.Duration = elapsed
	logger.Info("✅ Build finished.", "outputs", len(res.Outputs), "assets", len(res.Assets), "duration", elapsed)
	return res, nil
}

func (p *Pipeline) build(ctx context.Context) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := p.discover()
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	logger.Debug("Files discovered.", "sources", len(files.sources), "assets", len(files.assets), "ignored", files.ignored)

	pkgs, err := p.Packages(ctx)
	if err != nil {
		return nil, err
	}
	pkgFiles, err := p.packageFiles(pkgs)
	if err != nil {
		return nil, err
	}

	sources := files.sources
	for _, f := range pkgFiles {
		if _, found := slices.BinarySearch(sources, f); !found {
			sources = append(sources, f)
			slices.Sort(sources)
		}
	}

	plan := p.plan(ctx, sources, pkgFiles)

	g := dag.New()
	runs := make(map[string]func(context.Context) error)
	state := &buildState{compiled: make(map[string]plugin.Output)}

	for _, src := range plan.sources {
		id := "compile:" + src
		g.AddNode(id)
		runs[id] = func(ctx context.Context) error { return p.compile(ctx, src, state) }
	}
	for _, j := range plan.joins {
		id := "join:" + j.output
		g.AddNode(id)
		runs[id] = func(ctx context.Context) error { return p.writeJoin(ctx, j, state) }
		for _, in := range j.inputs {
			if err := g.AddEdge("compile:"+in, id); err != nil {
				return nil, err
			}
		}
	}
	for _, asset := range files.assets {
		id := "copy:" + asset
		g.AddNode(id)
		runs[id] = func(ctx context.Context) error { return p.copyAsset(ctx, asset, state) }
	}

	exec, err := newExecutor(g, runs, p.workers)
	if err != nil {
		return nil, err
	}
	if err := exec.Run(ctx); err != nil {
		return nil, err
	}

	slices.Sort(state.outputs)
	slices.Sort(state.assets)
	return &Result{Outputs: state.outputs, Assets: state.assets}, nil
}

// Packages reads every configured package kind. A kind whose root manifest
// is absent contributes nothing. The result is in dependency order.
func (p *Pipeline) Packages(ctx context.Context) ([]*components.Package, error) {
	logger := ctxlog.FromContext(ctx)
	var all []*components.Package
	for _, kind := range p.cfg.Packages {
		pkgs, err := components.Read(ctx, p.root, kind)
		if err != nil {
			if errors.Is(err, components.ErrManifestMissing) && !errors.Is(err, components.ErrUnresolvedDependency) {
				logger.Debug("No root manifest, skipping package kind.", "kind", kind)
				continue
			}
			return nil, fmt.Errorf("failed to read %s packages: %w", kind, err)
		}
		logger.Debug("Packages resolved.", "kind", kind, "count", len(pkgs))
		all = append(all, components.DependencyOrder(pkgs)...)
	}
	return all, nil
}

// packageFiles returns package files as project-relative slash paths,
// dependencies first.
func (p *Pipeline) packageFiles(pkgs []*components.Package) ([]string, error) {
	var out []string
	for _, f := range components.Files(pkgs) {
		rel, err := fsutil.Rel(p.root, f)
		if err != nil {
			return nil, err
		}
		out = append(out, path.Clean(rel))
	}
	return out, nil
}
