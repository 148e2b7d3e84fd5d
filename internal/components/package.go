// Package components reads bower and component package trees from disk,
// resolves their transitive dependencies and orders them by dependency level.
package components

import (
	"fmt"
	"slices"
	"strings"
)

// Kind selects the package manager layout.
type Kind string

const (
	Bower     Kind = "bower"
	Component Kind = "component"
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case Bower, Component:
		return k, nil
	default:
		return "", fmt.Errorf("unknown package kind %q", s)
	}
}

func (k Kind) manifestName() string {
	if k == Component {
		return "component.json"
	}
	return "bower.json"
}

// Package is one resolved node of the dependency graph.
type Package struct {
	// ID is the normalized dependency key used to locate the package.
	ID string
	// Name is the manifest's declared name, falling back to ID.
	Name    string
	Version string
	// Path is the package directory.
	Path string
	// Dependencies maps declared dependency keys to versions.
	Dependencies map[string]string
	// Files are the package's main, scripts and styles entries joined to Path.
	Files []string
	// SortingLevel is 1 for a leaf and exceeds every dependency's level.
	SortingLevel int
}

// DependencyIDs returns the normalized dependency keys in ascending order.
func (p *Package) DependencyIDs() []string {
	ids := make([]string, 0, len(p.Dependencies))
	seen := make(map[string]struct{}, len(p.Dependencies))
	for dep := range p.Dependencies {
		id := NormalizeName(dep)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// NormalizeName canonicalizes a dependency key into a directory-safe slug.
// Single-segment names are returned unchanged; otherwise the last two
// non-empty path segments are joined with "-", so "component/emitter" and
// "https://github.com/component/emitter" both become "component-emitter".
func NormalizeName(name string) string {
	var segments []string
	for _, s := range strings.Split(name, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	switch len(segments) {
	case 0:
		return name
	case 1:
		return segments[0]
	default:
		return segments[len(segments)-2] + "-" + segments[len(segments)-1]
	}
}
