package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/hcl"
	"github.com/vk/assetgrid/internal/yamlconfig"
)

// configCandidates are looked up in the project root, in order, when no
// config path is given.
var configCandidates = []string{"assetgrid.hcl", "assetgrid.yaml", "assetgrid.yml"}

// loaderFor picks the loader matching a config path's format. Directories
// are read as HCL.
func loaderFor(path string) config.Loader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlconfig.NewLoader()
	default:
		return hcl.NewLoader()
	}
}

// loadConfig loads the project configuration. Without an explicit path or a
// config file in the root, defaults are used.
func loadConfig(ctx context.Context, cfg *Config) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	path := cfg.ConfigPath
	if path == "" {
		for _, name := range configCandidates {
			candidate := filepath.Join(cfg.Root, name)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			} else if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("error accessing path %s: %w", candidate, err)
			}
		}
	}
	if path == "" {
		logger.Info("No project configuration found; using defaults.", "root", cfg.Root)
		return config.Default(), nil
	}

	logger.Debug("Loading project configuration.", "path", path)
	return loaderFor(path).Load(ctx, path)
}
