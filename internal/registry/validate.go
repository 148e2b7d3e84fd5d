package registry

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/vk/assetgrid/internal/ctxlog"
)

// Validate checks that every configured plugin is registered and that every
// compiler can claim files.
func (r *Registry) Validate(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, name := range slices.Sorted(maps.Keys(r.settings)) {
		if !r.Has(name) {
			errs = append(errs, fmt.Sprintf("plugin '%s' is configured but not registered", name))
		}
	}

	for _, c := range r.compilers {
		d := c.Describe()
		if d.Extension == "" && d.Pattern == nil {
			errs = append(errs, fmt.Sprintf("compiler '%s' declares neither an extension nor a pattern", d.Name))
		}
		if d.Type == "" {
			errs = append(errs, fmt.Sprintf("compiler '%s' declares no output type", d.Name))
		}
	}

	if len(r.compilers) == 0 {
		logger.Warn("No compilers registered; sources will be concatenated as-is.")
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
