// Package plugin defines the contract every compiler and optimizer satisfies
// so the pipeline can treat them interchangeably. A plugin describes which
// files it claims (by extension or pattern) and which it ignores, and
// transforms {path, data, map} into {data, map}.
package plugin

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/vk/assetgrid/internal/match"
)

// Type is the media type a plugin produces.
type Type string

const (
	JavaScript Type = "javascript"
	Stylesheet Type = "stylesheet"
	Template   Type = "template"
)

// ParseType validates a type name.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(s)); t {
	case JavaScript, Stylesheet, Template:
		return t, nil
	default:
		return "", fmt.Errorf("unknown plugin type %q", s)
	}
}

// TypeOfPath infers the output type of a file that no compiler claims.
func TypeOfPath(p string) (Type, bool) {
	switch strings.ToLower(path.Ext(p)) {
	case ".js":
		return JavaScript, true
	case ".css":
		return Stylesheet, true
	case ".html", ".tmpl":
		return Template, true
	default:
		return "", false
	}
}

// Input is what a plugin receives. Map is an optional source map in JSON.
type Input struct {
	Path string
	Data string
	Map  string
}

// Output is what a plugin returns.
type Output struct {
	Data string
	Map  string
}

// Descriptor declares a plugin's identity and routing.
type Descriptor struct {
	Name string
	Type Type
	// Extension claims files ending in "."+Extension.
	Extension string
	// Pattern claims matching files; it takes precedence over Extension.
	Pattern *regexp.Regexp
	// Ignore lists files the plugin passes through untouched.
	Ignore []match.Criterion
}

// Claims reports whether the plugin should handle p.
func (d Descriptor) Claims(p string) bool {
	if d.Pattern != nil {
		return d.Pattern.MatchString(p)
	}
	if d.Extension == "" {
		return false
	}
	return strings.HasSuffix(p, "."+strings.TrimPrefix(d.Extension, "."))
}

// Ignores reports whether p is excluded by the ignore criteria.
func (d Descriptor) Ignores(p string) bool {
	return match.Matches(d.Ignore, p)
}

// Plugin is the common part of compilers and optimizers.
type Plugin interface {
	Describe() Descriptor
}

// Compiler transforms source into the plugin's output type.
type Compiler interface {
	Plugin
	Compile(ctx context.Context, in Input) (Output, error)
}

// Optimizer minifies already compiled output of the plugin's type.
type Optimizer interface {
	Plugin
	Optimize(ctx context.Context, in Input) (Output, error)
}

// Error reports a plugin failure for one file.
type Error struct {
	Plugin    string
	Operation string
	Path      string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s failed for %s: %v", e.Plugin, e.Operation, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
