package app

import (
	"context"
	"fmt"

	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/modules/exec"
	"github.com/vk/assetgrid/modules/javascript"
	"github.com/vk/assetgrid/modules/stylesheet"
)

// coreModules is the definitive list of all modules that are compiled into
// the assetgrid binary.
var coreModules = []registry.Module{
	&javascript.Module{},
	&stylesheet.Module{},
}

// newRegistry registers the built-in modules, wraps external plugins from
// the config in exec compilers or optimizers and applies settings to the
// rest.
func newRegistry(ctx context.Context, model *config.Model, modules []registry.Module) (reg *registry.Registry, err error) {
	logger := ctxlog.FromContext(ctx)

	// Duplicate plugin names panic inside the registry.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to register plugins: %v", r)
		}
	}()

	reg = registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}

	external := &exec.Module{}
	for _, p := range model.Plugins {
		if p.External() {
			external.Specs = append(external.Specs, exec.Spec{
				Name:      p.Name,
				Command:   p.Command,
				Optimizer: p.Optimizer(),
				Type:      p.Type,
				Extension: p.Extension,
				Pattern:   p.Pattern,
				Ignore:    p.Ignore,
			})
			continue
		}
		reg.Configure(p.Name, registry.Settings{Ignore: p.Ignore})
	}

	// External plugins come first so they can claim extensions the
	// built-in modules would otherwise handle. External optimizers run
	// before the built-in minifiers.
	external.Register(reg)
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules), "external", len(external.Specs))

	if err := reg.Validate(ctx); err != nil {
		return nil, err
	}
	return reg, nil
}
