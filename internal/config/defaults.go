package config

import (
	"github.com/vk/assetgrid/internal/components"
	"github.com/vk/assetgrid/internal/match"
)

// Default values for unset fields.
var (
	DefaultWatched  = []string{"app", "test", "vendor"}
	DefaultPublic   = "public"
	DefaultPackages = []components.Kind{components.Bower, components.Component}
)

// DefaultConventions returns fresh copies of the default conventions.
func DefaultConventions() Conventions {
	return Conventions{
		Assets:  []match.Criterion{match.MustRegex(`(^|/)assets/`)},
		Vendor:  []match.Criterion{match.MustRegex(`^(bower_components|vendor)/`)},
		Ignored: []match.Criterion{match.MustRegex(`(^|/)_`)},
	}
}

// Default returns a model with every default applied and no outputs.
func Default() *Model {
	m := &Model{}
	m.ApplyDefaults()
	return m
}

// ApplyDefaults fills unset fields. A convention explicitly set to an empty
// list stays empty.
func (m *Model) ApplyDefaults() {
	if len(m.Paths.Watched) == 0 {
		m.Paths.Watched = append([]string(nil), DefaultWatched...)
	}
	if m.Paths.Public == "" {
		m.Paths.Public = DefaultPublic
	}
	def := DefaultConventions()
	if m.Conventions.Assets == nil {
		m.Conventions.Assets = def.Assets
	}
	if m.Conventions.Vendor == nil {
		m.Conventions.Vendor = def.Vendor
	}
	if m.Conventions.Ignored == nil {
		m.Conventions.Ignored = def.Ignored
	}
	if m.Packages == nil {
		m.Packages = append([]components.Kind(nil), DefaultPackages...)
	}
}
