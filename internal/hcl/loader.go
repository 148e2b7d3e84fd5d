package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/assetgrid/internal/components"
	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/match"
	"github.com/vk/assetgrid/internal/plugin"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file found under paths, merges them in order and
// returns the defaulted, validated model. Scalars from later files win;
// files and plugin blocks accumulate.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(hclFiles) == 0 {
		return nil, fmt.Errorf("no .hcl configuration found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	evalCtx := newEvalContext()
	model := &config.Model{}

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		if err := l.merge(ctx, model, &root, evalCtx); err != nil {
			return nil, fmt.Errorf("in %s: %w", file, err)
		}
	}

	model.ApplyDefaults()
	if err := model.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("HCL loading complete.", "files", len(model.Files), "plugins", len(model.Plugins), "optimize", model.Optimize)
	return model, nil
}

// merge translates one decoded file into model.
func (l *Loader) merge(ctx context.Context, model *config.Model, root *fileRoot, evalCtx *hcl.EvalContext) error {
	if p := root.Paths; p != nil {
		if p.Watched != nil {
			model.Paths.Watched = p.Watched
		}
		if p.Public != "" {
			model.Paths.Public = p.Public
		}
	}

	if c := root.Conventions; c != nil {
		for _, conv := range []struct {
			name   string
			expr   hcl.Expression
			target *[]match.Criterion
		}{
			{"assets", c.Assets, &model.Conventions.Assets},
			{"vendor", c.Vendor, &model.Conventions.Vendor},
			{"ignored", c.Ignored, &model.Conventions.Ignored},
		} {
			criteria, err := decodeCriteria(ctx, conv.expr, evalCtx, "conventions."+conv.name)
			if err != nil {
				return err
			}
			if criteria != nil {
				*conv.target = criteria
			}
		}
	}

	for _, fb := range root.Files {
		fs, err := l.translateFiles(ctx, fb, evalCtx)
		if err != nil {
			return err
		}
		model.Files = append(model.Files, fs)
	}

	for _, pb := range root.Plugins {
		p, err := l.translatePlugin(ctx, pb, evalCtx)
		if err != nil {
			return err
		}
		model.Plugins = append(model.Plugins, p)
	}

	if root.Packages != nil {
		kinds := make([]components.Kind, 0, len(*root.Packages))
		for _, s := range *root.Packages {
			k, err := components.ParseKind(s)
			if err != nil {
				return err
			}
			kinds = append(kinds, k)
		}
		model.Packages = kinds
	}

	if root.Optimize != nil {
		model.Optimize = *root.Optimize
	}
	return nil
}

// translateFiles converts a files block into the agnostic model.
func (l *Loader) translateFiles(ctx context.Context, fb *filesBlock, evalCtx *hcl.EvalContext) (*config.FileSet, error) {
	t, err := config.ParseFileSetLabel(fb.Label)
	if err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx).With("files", fb.Label)
	logger.Debug("Translating HCL files block to internal config model.", "joins", len(fb.Joins))

	fs := &config.FileSet{Type: t}
	for _, jb := range fb.Joins {
		sources, err := decodeCriteria(ctx, jb.Sources, evalCtx, fmt.Sprintf("files %q join %q sources", fb.Label, jb.Output))
		if err != nil {
			return nil, err
		}
		fs.Joins = append(fs.Joins, &config.Join{Output: jb.Output, Sources: sources})
	}

	if fb.Order != nil {
		if fs.Order.Before, err = decodeCriteria(ctx, fb.Order.Before, evalCtx, fmt.Sprintf("files %q order.before", fb.Label)); err != nil {
			return nil, err
		}
		if fs.Order.After, err = decodeCriteria(ctx, fb.Order.After, evalCtx, fmt.Sprintf("files %q order.after", fb.Label)); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

// translatePlugin converts a plugin block into the agnostic model.
func (l *Loader) translatePlugin(ctx context.Context, pb *pluginBlock, evalCtx *hcl.EvalContext) (*config.Plugin, error) {
	p := &config.Plugin{
		Name:      pb.Name,
		Command:   pb.Command,
		Extension: pb.Extension,
	}
	role, err := config.ParseRole(pb.Role)
	if err != nil {
		return nil, fmt.Errorf("plugin '%s': %w", pb.Name, err)
	}
	p.Role = role
	if pb.Type != "" {
		t, err := plugin.ParseType(pb.Type)
		if err != nil {
			return nil, fmt.Errorf("plugin '%s': %w", pb.Name, err)
		}
		p.Type = t
	}
	if pb.Pattern != "" {
		re, err := regexp.Compile(pb.Pattern)
		if err != nil {
			return nil, fmt.Errorf("plugin '%s': invalid pattern: %w", pb.Name, err)
		}
		p.Pattern = re
	}
	ignore, err := decodeCriteria(ctx, pb.Ignore, evalCtx, fmt.Sprintf("plugin %q ignore", pb.Name))
	if err != nil {
		return nil, err
	}
	p.Ignore = ignore
	return p, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && filepath.Ext(p) == ".hcl" {
					if _, wasSeen := seen[p]; !wasSeen {
						allFiles = append(allFiles, p)
						seen[p] = struct{}{}
					}
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if filepath.Ext(path) == ".hcl" {
			if _, wasSeen := seen[path]; !wasSeen {
				allFiles = append(allFiles, path)
				seen[path] = struct{}{}
			}
		}
	}
	return allFiles, nil
}
