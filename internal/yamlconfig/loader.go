package yamlconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/vk/assetgrid/internal/components"
	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/plugin"
	"gopkg.in/yaml.v3"
)

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load decodes every path in order and merges them the same way the HCL
// loader does: scalars from later files win, lists of blocks accumulate.
// Directories are not walked; each path must be a file.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path_count", len(paths))

	model := &config.Model{}
	loaded := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		var doc document
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode YAML file %s: %w", path, err)
		}
		if err := merge(model, &doc); err != nil {
			return nil, fmt.Errorf("in %s: %w", path, err)
		}
		loaded++
		logger.Debug("YAML file merged.", "path", filepath.Base(path))
	}
	if loaded == 0 {
		return nil, fmt.Errorf("no YAML configuration found in %v", paths)
	}

	model.ApplyDefaults()
	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("YAML loading complete.", "files", len(model.Files), "plugins", len(model.Plugins), "optimize", model.Optimize)
	return model, nil
}

func merge(model *config.Model, doc *document) error {
	if p := doc.Paths; p != nil {
		if p.Watched != nil {
			model.Paths.Watched = p.Watched
		}
		if p.Public != "" {
			model.Paths.Public = p.Public
		}
	}

	if c := doc.Conventions; c != nil {
		if c.Assets != nil {
			model.Conventions.Assets = c.Assets
		}
		if c.Vendor != nil {
			model.Conventions.Vendor = c.Vendor
		}
		if c.Ignored != nil {
			model.Conventions.Ignored = c.Ignored
		}
	}

	for _, fd := range doc.Files {
		t, err := config.ParseFileSetLabel(fd.Type)
		if err != nil {
			return err
		}
		fs := &config.FileSet{
			Type:  t,
			Order: config.Order{Before: fd.Order.Before, After: fd.Order.After},
		}
		for _, jd := range fd.Joins {
			fs.Joins = append(fs.Joins, &config.Join{Output: jd.Output, Sources: jd.Sources})
		}
		model.Files = append(model.Files, fs)
	}

	for _, pd := range doc.Plugins {
		p := &config.Plugin{
			Name:      pd.Name,
			Command:   pd.Command,
			Extension: pd.Extension,
			Ignore:    pd.Ignore,
		}
		if pd.Name == "" {
			return errors.New("plugin entry without a name")
		}
		role, err := config.ParseRole(pd.Role)
		if err != nil {
			return fmt.Errorf("plugin '%s': %w", pd.Name, err)
		}
		p.Role = role
		if pd.Type != "" {
			t, err := plugin.ParseType(pd.Type)
			if err != nil {
				return fmt.Errorf("plugin '%s': %w", pd.Name, err)
			}
			p.Type = t
		}
		if pd.Pattern != "" {
			re, err := regexp.Compile(pd.Pattern)
			if err != nil {
				return fmt.Errorf("plugin '%s': invalid pattern: %w", pd.Name, err)
			}
			p.Pattern = re
		}
		model.Plugins = append(model.Plugins, p)
	}

	if doc.Packages != nil {
		kinds := make([]components.Kind, 0, len(*doc.Packages))
		for _, s := range *doc.Packages {
			k, err := components.ParseKind(s)
			if err != nil {
				return err
			}
			kinds = append(kinds, k)
		}
		model.Packages = kinds
	}

	if doc.Optimize != nil {
		model.Optimize = *doc.Optimize
	}
	return nil
}
