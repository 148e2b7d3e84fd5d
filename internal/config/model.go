package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vk/assetgrid/internal/components"
	"github.com/vk/assetgrid/internal/match"
	"github.com/vk/assetgrid/internal/plugin"
)

// Model is the unified, format-agnostic representation of a project
// configuration.
type Model struct {
	Paths       Paths
	Conventions Conventions
	// Files holds one entry per output type, in declaration order.
	Files    []*FileSet
	Plugins  []*Plugin
	Packages []components.Kind
	Optimize bool
}

// Paths locates the project's inputs and output.
type Paths struct {
	// Watched directories are scanned for sources and assets.
	Watched []string
	// Public is the output directory.
	Public string
}

// Conventions classify files found under the watched paths.
type Conventions struct {
	// Assets are copied verbatim into Public.
	Assets []match.Criterion
	// Vendor files are ordered after regular sources in a join.
	Vendor []match.Criterion
	// Ignored files are neither compiled nor copied.
	Ignored []match.Criterion
}

// FileSet configures the joined outputs of one type.
type FileSet struct {
	Type  plugin.Type
	Joins []*Join
	Order Order
}

// Join maps an output path (relative to Public) to the sources it collects.
type Join struct {
	Output  string
	Sources []match.Criterion
}

// Order pins files to the start or end of every join of a FileSet.
type Order struct {
	Before []match.Criterion
	After  []match.Criterion
}

// Plugin configures a plugin by name. With a Command it declares an
// external compiler; without one it overrides settings of a built-in.
type Plugin struct {
	Name      string
	Command   []string
	Role      Role
	Type      plugin.Type
	Extension string
	Pattern   *regexp.Regexp
	// Ignore replaces the plugin's ignore criteria when non-nil.
	Ignore []match.Criterion
}

// External reports whether p declares an external command.
func (p *Plugin) External() bool {
	return len(p.Command) > 0
}

// Role says which pipeline stage an external command serves.
type Role string

const (
	RoleCompiler  Role = "compiler"
	RoleOptimizer Role = "optimizer"
)

// ParseRole accepts "compiler" or "optimizer". The empty string means compiler.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "", RoleCompiler:
		return RoleCompiler, nil
	case RoleOptimizer:
		return RoleOptimizer, nil
	}
	return "", fmt.Errorf("unknown plugin role %q, expected %q or %q", s, RoleCompiler, RoleOptimizer)
}

// Optimizer reports whether p is an external optimizer.
func (p *Plugin) Optimizer() bool {
	return p.External() && p.Role == RoleOptimizer
}

// FileSet returns the entry for t, or nil.
func (m *Model) FileSet(t plugin.Type) *FileSet {
	for _, fs := range m.Files {
		if fs.Type == t {
			return fs
		}
	}
	return nil
}

// FileSetLabel is the inverse of ParseFileSetLabel: the plural block label
// for t.
func FileSetLabel(t plugin.Type) string {
	return string(t) + "s"
}

// ParseFileSetLabel maps a "files" block label such as "javascripts" to its
// output type. Singular labels are accepted too.
func ParseFileSetLabel(label string) (plugin.Type, error) {
	switch strings.ToLower(label) {
	case "javascripts", "javascript":
		return plugin.JavaScript, nil
	case "stylesheets", "stylesheet":
		return plugin.Stylesheet, nil
	case "templates", "template":
		return plugin.Template, nil
	default:
		return "", fmt.Errorf("unknown files block %q, expected javascripts, stylesheets or templates", label)
	}
}
