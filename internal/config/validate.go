package config

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/vk/assetgrid/internal/components"
	"github.com/vk/assetgrid/internal/plugin"
)

// Validate checks the model for structural problems and reports all of them
// at once.
func (m *Model) Validate() error {
	var errs []string
	addf := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if len(m.Paths.Watched) == 0 {
		addf("paths.watched must not be empty")
	}
	seenWatched := make(map[string]struct{})
	for _, w := range m.Paths.Watched {
		clean := filepath.ToSlash(filepath.Clean(w))
		if !isLocal(clean) {
			addf("watched path '%s' must be relative to the project root", w)
		}
		if _, dup := seenWatched[clean]; dup {
			addf("watched path '%s' is listed twice", w)
		}
		seenWatched[clean] = struct{}{}
	}
	if m.Paths.Public == "" {
		addf("paths.public must not be empty")
	} else {
		public := filepath.ToSlash(filepath.Clean(m.Paths.Public))
		for w := range seenWatched {
			if public == w || strings.HasPrefix(public, w+"/") || strings.HasPrefix(w, public+"/") {
				addf("public path '%s' overlaps watched path '%s'", m.Paths.Public, w)
			}
		}
	}

	seenTypes := make(map[plugin.Type]struct{})
	seenOutputs := make(map[string]struct{})
	for _, fs := range m.Files {
		if _, dup := seenTypes[fs.Type]; dup {
			addf("files block for '%s' is declared twice", fs.Type)
		}
		seenTypes[fs.Type] = struct{}{}

		for _, j := range fs.Joins {
			out := path.Clean(j.Output)
			if j.Output == "" || !isLocal(out) {
				addf("join output '%s' must be a relative path inside public", j.Output)
			}
			if _, dup := seenOutputs[out]; dup {
				addf("join output '%s' is declared twice", j.Output)
			}
			seenOutputs[out] = struct{}{}
			if len(j.Sources) == 0 {
				addf("join '%s' has no sources", j.Output)
			}
		}
	}

	seenPlugins := make(map[string]struct{})
	for _, p := range m.Plugins {
		if _, dup := seenPlugins[p.Name]; dup {
			addf("plugin '%s' is declared twice", p.Name)
		}
		seenPlugins[p.Name] = struct{}{}
		if !p.External() {
			continue
		}
		if p.Type == "" {
			addf("plugin '%s' declares a command but no type", p.Name)
		}
		if p.Optimizer() {
			if p.Extension != "" || p.Pattern != nil {
				addf("optimizer plugin '%s' cannot declare an extension or a pattern", p.Name)
			}
			continue
		}
		if p.Extension == "" && p.Pattern == nil {
			addf("plugin '%s' declares a command but neither an extension nor a pattern", p.Name)
		}
	}

	seenKinds := make(map[components.Kind]struct{})
	for _, k := range m.Packages {
		if _, dup := seenKinds[k]; dup {
			addf("package kind '%s' is listed twice", k)
		}
		seenKinds[k] = struct{}{}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func isLocal(p string) bool {
	return p != "" && !path.IsAbs(p) && p != ".." && !strings.HasPrefix(p, "../")
}
