package pipeline

import (
	"context"
	"path/filepath"
	"slices"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/fsutil"
	"github.com/vk/assetgrid/internal/match"
	"github.com/vk/assetgrid/internal/plugin"
	"github.com/vk/assetgrid/internal/sorter"
)

type discovered struct {
	sources []string
	assets  []string
	ignored int
}

// discover walks the watched paths, skipping the public directory, and
// classifies each file. Ignored wins over asset, asset over source.
func (p *Pipeline) discover() (*discovered, error) {
	public := filepath.ToSlash(filepath.Clean(p.cfg.Paths.Public))
	all, err := fsutil.FindFiles(p.root, p.cfg.Paths.Watched, func(rel string) bool {
		return fsutil.Within(rel, public)
	})
	if err != nil {
		return nil, err
	}

	d := &discovered{}
	for _, rel := range all {
		switch {
		case fsutil.Within(rel, public):
			continue
		case match.Matches(p.cfg.Conventions.Ignored, rel):
			d.ignored++
		case match.Matches(p.cfg.Conventions.Assets, rel):
			d.assets = append(d.assets, rel)
		default:
			d.sources = append(d.sources, rel)
		}
	}
	return d, nil
}

type joinPlan struct {
	output string
	typ    plugin.Type
	// inputs in concatenation order
	inputs []string
}

type buildPlan struct {
	// sources collected by at least one join, sorted
	sources []string
	joins   []*joinPlan
}

// plan assigns sources to joins and orders every join.
func (p *Pipeline) plan(ctx context.Context, sources, pkgFiles []string) *buildPlan {
	logger := ctxlog.FromContext(ctx)

	byType := make(map[plugin.Type][]string)
	for _, src := range sources {
		t, ok := p.TypeOf(src)
		if !ok {
			logger.Debug("Source has no compiler and no known type, skipping.", "path", src)
			continue
		}
		byType[t] = append(byType[t], src)
	}

	used := make(map[string]struct{})
	bp := &buildPlan{}
	for _, fs := range p.cfg.Files {
		groups := p.cfg.OrderGroups(fs, pkgFiles)
		for _, j := range fs.Joins {
			inputs := sorter.Grouped(j.Select(byType[fs.Type]), groups, nil)
			for _, in := range inputs {
				used[in] = struct{}{}
			}
			logger.Debug("Join planned.", "output", j.Output, "type", fs.Type, "inputs", len(inputs))
			bp.joins = append(bp.joins, &joinPlan{output: j.Output, typ: fs.Type, inputs: inputs})
		}
	}

	for _, src := range sources {
		if _, ok := used[src]; ok {
			bp.sources = append(bp.sources, src)
		} else {
			logger.Debug("Source not collected by any join.", "path", src)
		}
	}
	slices.Sort(bp.sources)
	return bp
}
