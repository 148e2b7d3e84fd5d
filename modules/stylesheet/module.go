// Package stylesheet provides the built-in CSS compiler and a minifying
// optimizer.
package stylesheet

import (
	"context"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/vk/assetgrid/internal/plugin"
	"github.com/vk/assetgrid/internal/registry"
)

// Name is the registry name of both plugins in this module.
const Name = "stylesheet"

const mediaType = "text/css"

var minifier = func() *minify.M {
	m := minify.New()
	m.AddFunc(mediaType, css.Minify)
	return m
}()

// Module implements the registry.Module interface for this package.
type Module struct{}

// Compiler passes plain CSS through with a guaranteed trailing newline.
type Compiler struct{}

// Describe implements plugin.Plugin.
func (Compiler) Describe() plugin.Descriptor {
	return plugin.Descriptor{Name: Name, Type: plugin.Stylesheet, Extension: "css"}
}

// Compile implements plugin.Compiler.
func (Compiler) Compile(_ context.Context, in plugin.Input) (plugin.Output, error) {
	data := in.Data
	if data != "" && !strings.HasSuffix(data, "\n") {
		data += "\n"
	}
	return plugin.Output{Data: data, Map: in.Map}, nil
}

// Optimizer removes comments and insignificant whitespace.
type Optimizer struct{}

// Describe implements plugin.Plugin.
func (Optimizer) Describe() plugin.Descriptor {
	return plugin.Descriptor{Name: Name, Type: plugin.Stylesheet}
}

// Optimize implements plugin.Optimizer.
func (Optimizer) Optimize(_ context.Context, in plugin.Input) (plugin.Output, error) {
	data, err := Minify(in.Data)
	if err != nil {
		return plugin.Output{}, err
	}
	return plugin.Output{Data: data}, nil
}

// Register registers the compiler and optimizer.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterCompiler(Compiler{})
	r.RegisterOptimizer(Optimizer{})
}

// Minify strips comments and whitespace and drops the last semicolon of
// each block.
func Minify(s string) (string, error) {
	return minifier.String(mediaType, s)
}
