package components

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/dag"
	"golang.org/x/sync/errgroup"
)

// reader holds the state of a single Read call. Nothing here outlives it.
type reader struct {
	kind      Kind
	dir       string
	overrides map[string]map[string]json.RawMessage
	packages  map[string]*Package
}

// Read loads the root manifest in root, discovers every transitive
// dependency depth by depth and returns the packages sorted by descending
// SortingLevel. A missing root manifest yields ErrManifestMissing, which
// callers usually treat as "no packages".
func Read(ctx context.Context, root string, kind Kind) ([]*Package, error) {
	logger := ctxlog.FromContext(ctx).With("kind", string(kind), "root", root)
	logger.Debug("Reading package tree.")

	rootPath := filepath.Join(root, kind.manifestName())
	rootManifest, err := readManifest(rootPath, nil)
	if err != nil {
		return nil, err
	}

	dir, err := packagesDir(root, kind)
	if err != nil {
		return nil, err
	}
	logger.Debug("Resolved packages directory.", "dir", dir)

	r := &reader{
		kind:      kind,
		dir:       dir,
		overrides: make(map[string]map[string]json.RawMessage),
		packages:  make(map[string]*Package),
	}
	for name, fields := range rootManifest.Overrides {
		r.overrides[NormalizeName(name)] = fields
	}

	pending := (&Package{Dependencies: rootManifest.Dependencies}).DependencyIDs()
	for depth := 1; len(pending) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Debug("Discovering packages.", "depth", depth, "count", len(pending), "ids", pending)

		discovered, err := r.discover(ctx, pending)
		if err != nil {
			return nil, err
		}
		pending = r.undiscovered(discovered)
	}

	if err := r.checkCycles(); err != nil {
		return nil, err
	}
	if err := r.assignLevels(); err != nil {
		return nil, err
	}

	sorted := slices.Collect(maps.Values(r.packages))
	slices.SortStableFunc(sorted, func(a, b *Package) int {
		if a.SortingLevel != b.SortingLevel {
			return b.SortingLevel - a.SortingLevel
		}
		return strings.Compare(a.ID, b.ID)
	})

	logger.Debug("Package tree resolved.", "count", len(sorted))
	return sorted, nil
}

// discover reads every package in ids concurrently and joins before
// returning. The first failure cancels the rest of the batch.
func (r *reader) discover(ctx context.Context, ids []string) ([]*Package, error) {
	known := r.knownNames()
	results := make([]*Package, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			pkg, err := r.readPackage(gctx, id)
			if err != nil {
				if errors.Is(err, ErrManifestMissing) {
					return &Error{Kind: ErrUnresolvedDependency, Name: id, Known: known, Err: err}
				}
				return err
			}
			results[i] = pkg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, pkg := range results {
		r.packages[pkg.ID] = pkg
	}
	return results, nil
}

// readPackage loads a single dependency from its directory.
func (r *reader) readPackage(ctx context.Context, id string) (*Package, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Join(r.dir, id)
	path := manifestPath(dir, r.kind)
	m, err := readManifest(path, r.overrides[id])
	if err != nil {
		return nil, err
	}
	if r.kind == Bower && len(m.Main) == 0 {
		return nil, &Error{Kind: ErrMissingRequiredField, Path: path, Name: "main"}
	}

	files := m.files()
	for i, f := range files {
		files[i] = filepath.Join(dir, filepath.FromSlash(f))
	}

	name := m.Name
	if name == "" {
		name = id
	}
	deps := m.Dependencies
	if deps == nil {
		deps = map[string]string{}
	}

	ctxlog.FromContext(ctx).Debug("Package manifest read.", "id", id, "manifest", path, "files", len(files), "dependencies", len(deps))
	return &Package{
		ID:           id,
		Name:         name,
		Version:      m.Version,
		Path:         dir,
		Dependencies: deps,
		Files:        files,
		SortingLevel: m.SortingLevel,
	}, nil
}

// undiscovered returns dependency IDs of batch that have not been read yet.
func (r *reader) undiscovered(batch []*Package) []string {
	next := make(map[string]struct{})
	for _, pkg := range batch {
		for _, id := range pkg.DependencyIDs() {
			if _, ok := r.packages[id]; !ok {
				next[id] = struct{}{}
			}
		}
	}
	return slices.Sorted(maps.Keys(next))
}

func (r *reader) knownNames() []string {
	names := make([]string, 0, len(r.packages))
	for _, pkg := range r.packages {
		names = append(names, pkg.Name)
	}
	slices.Sort(names)
	return names
}

// checkCycles builds the dependency graph and rejects cycles, which would
// make levels unbounded.
func (r *reader) checkCycles() error {
	g := dag.New()
	for id := range r.packages {
		g.AddNode(id)
	}
	for id, pkg := range r.packages {
		for _, dep := range pkg.DependencyIDs() {
			if !g.Has(dep) {
				return &Error{Kind: ErrUnresolvedDependency, Name: dep, Known: r.knownNames()}
			}
			if err := g.AddEdge(dep, id); err != nil {
				return &Error{Kind: ErrDependencyCycle, Name: id, Err: err}
			}
		}
	}
	if err := g.DetectCycles(); err != nil {
		return &Error{Kind: ErrDependencyCycle, Err: err}
	}
	return nil
}

// assignLevels computes level = max(pinned, 1 + max(dependency levels))
// for every package, starting from each package independently.
func (r *reader) assignLevels() error {
	done := make(map[string]bool, len(r.packages))

	var level func(id string) (int, error)
	level = func(id string) (int, error) {
		pkg, ok := r.packages[id]
		if !ok {
			return 0, &Error{Kind: ErrUnresolvedDependency, Name: id, Known: r.knownNames()}
		}
		if done[id] {
			return pkg.SortingLevel, nil
		}
		lvl := max(pkg.SortingLevel, 1)
		for _, dep := range pkg.DependencyIDs() {
			depLevel, err := level(dep)
			if err != nil {
				return 0, err
			}
			lvl = max(lvl, depLevel+1)
		}
		pkg.SortingLevel = lvl
		done[id] = true
		return lvl, nil
	}

	for _, id := range slices.Sorted(maps.Keys(r.packages)) {
		if _, err := level(id); err != nil {
			return err
		}
	}
	return nil
}

// Files flattens the files of pkgs in the given order.
func Files(pkgs []*Package) []string {
	var out []string
	for _, p := range pkgs {
		out = append(out, p.Files...)
	}
	return out
}

// DependencyOrder returns pkgs by ascending level, so every package appears
// after all of its dependencies. Bundles concatenate in this order.
func DependencyOrder(pkgs []*Package) []*Package {
	out := slices.Clone(pkgs)
	slices.SortStableFunc(out, func(a, b *Package) int {
		if a.SortingLevel != b.SortingLevel {
			return a.SortingLevel - b.SortingLevel
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// String implements fmt.Stringer for log output.
func (p *Package) String() string {
	return fmt.Sprintf("%s@%s(level %d)", p.Name, p.Version, p.SortingLevel)
}
