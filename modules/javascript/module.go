// Package javascript provides the built-in plain JavaScript compiler and its
// optimizer.
package javascript

import (
	"context"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"
	"github.com/vk/assetgrid/internal/match"
	"github.com/vk/assetgrid/internal/plugin"
	"github.com/vk/assetgrid/internal/registry"
)

// Name is the registry name of both plugins in this module.
const Name = "javascript"

const mediaType = "application/javascript"

// DefaultIgnore keeps third-party code away from the compiler.
var DefaultIgnore = []match.Criterion{match.MustRegex(`^(bower_components|vendor)/`)}

var minifier = func() *minify.M {
	m := minify.New()
	m.AddFunc(mediaType, js.Minify)
	return m
}()

// Module implements the registry.Module interface for this package.
type Module struct{}

// Compiler passes JavaScript through, making sure every file ends with a
// newline so that joined files cannot run into each other.
type Compiler struct{}

// Describe implements plugin.Plugin.
func (Compiler) Describe() plugin.Descriptor {
	return plugin.Descriptor{
		Name:      Name,
		Type:      plugin.JavaScript,
		Extension: "js",
		Ignore:    DefaultIgnore,
	}
}

// Compile implements plugin.Compiler.
func (Compiler) Compile(_ context.Context, in plugin.Input) (plugin.Output, error) {
	data := in.Data
	if data != "" && !strings.HasSuffix(data, "\n") {
		data += "\n"
	}
	return plugin.Output{Data: data, Map: in.Map}, nil
}

// Optimizer drops source map comments from joined output and minifies the
// rest. Syntax errors fail the optimization.
type Optimizer struct{}

// Describe implements plugin.Plugin.
func (Optimizer) Describe() plugin.Descriptor {
	return plugin.Descriptor{Name: Name, Type: plugin.JavaScript}
}

// Optimize implements plugin.Optimizer.
func (Optimizer) Optimize(_ context.Context, in plugin.Input) (plugin.Output, error) {
	data, err := minifier.String(mediaType, stripSourceMaps(in.Data))
	if err != nil {
		return plugin.Output{}, err
	}
	return plugin.Output{Data: data}, nil
}

func stripSourceMaps(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//# sourceMappingURL=") || strings.HasPrefix(trimmed, "//@ sourceMappingURL=") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// Register registers the compiler and optimizer.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterCompiler(Compiler{})
	r.RegisterOptimizer(Optimizer{})
}
