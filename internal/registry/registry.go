package registry

import (
	"fmt"
	"log/slog"

	"github.com/vk/assetgrid/internal/match"
	"github.com/vk/assetgrid/internal/plugin"
)

// Module is the interface that all plugin modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Settings are per-plugin overrides from the project configuration.
type Settings struct {
	// Ignore replaces the plugin's default ignore criteria when non-nil.
	Ignore []match.Criterion
}

// Registry holds all the registered plugins for a single application instance.
type Registry struct {
	compilers  []plugin.Compiler
	optimizers []plugin.Optimizer
	names      map[string]struct{}
	settings   map[string]Settings
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		names:    make(map[string]struct{}),
		settings: make(map[string]Settings),
	}
}

// RegisterCompiler adds a compiler. Names must be unique across compilers.
func (r *Registry) RegisterCompiler(c plugin.Compiler) {
	name := c.Describe().Name
	key := "compiler/" + name
	if _, exists := r.names[key]; exists {
		panic(fmt.Sprintf("compiler with name '%s' already registered", name))
	}
	slog.Debug("Registering compiler.", "name", name, "type", c.Describe().Type)
	r.names[key] = struct{}{}
	r.compilers = append(r.compilers, c)
}

// RegisterOptimizer adds an optimizer. Names must be unique across optimizers.
func (r *Registry) RegisterOptimizer(o plugin.Optimizer) {
	name := o.Describe().Name
	key := "optimizer/" + name
	if _, exists := r.names[key]; exists {
		panic(fmt.Sprintf("optimizer with name '%s' already registered", name))
	}
	slog.Debug("Registering optimizer.", "name", name, "type", o.Describe().Type)
	r.names[key] = struct{}{}
	r.optimizers = append(r.optimizers, o)
}

// Configure stores settings for the plugin called name.
func (r *Registry) Configure(name string, s Settings) {
	r.settings[name] = s
}

// Describe returns p's descriptor with configured settings applied.
func (r *Registry) Describe(p plugin.Plugin) plugin.Descriptor {
	d := p.Describe()
	if s, ok := r.settings[d.Name]; ok && s.Ignore != nil {
		d.Ignore = s.Ignore
	}
	return d
}

// CompilerFor returns the first registered compiler claiming path.
func (r *Registry) CompilerFor(path string) (plugin.Compiler, plugin.Descriptor, bool) {
	for _, c := range r.compilers {
		d := r.Describe(c)
		if d.Claims(path) {
			return c, d, true
		}
	}
	return nil, plugin.Descriptor{}, false
}

// Optimizers returns every optimizer producing t, in registration order.
func (r *Registry) Optimizers(t plugin.Type) []plugin.Optimizer {
	var out []plugin.Optimizer
	for _, o := range r.optimizers {
		if o.Describe().Type == t {
			out = append(out, o)
		}
	}
	return out
}

// Compilers returns every registered compiler in registration order.
func (r *Registry) Compilers() []plugin.Compiler {
	return append([]plugin.Compiler(nil), r.compilers...)
}

// Has reports whether any plugin called name is registered.
func (r *Registry) Has(name string) bool {
	_, c := r.names["compiler/"+name]
	_, o := r.names["optimizer/"+name]
	return c || o
}
