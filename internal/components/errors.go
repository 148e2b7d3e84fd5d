package components

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds. Match them with errors.Is.
var (
	ErrManifestMissing      = errors.New("manifest missing")
	ErrMalformedManifest    = errors.New("malformed manifest")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrUnresolvedDependency = errors.New("unresolved dependency")
	ErrDependencyCycle      = errors.New("dependency cycle")
)

// Error describes a failed package read.
type Error struct {
	Kind error
	// Path is the manifest involved, when there is one.
	Path string
	// Name is the package or dependency the error is about.
	Name string
	// Known lists the package names discovered so far, for diagnostics.
	Known []string
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	switch {
	case e.Kind == ErrUnresolvedDependency:
		fmt.Fprintf(&b, ": %q is not present in the list of packages [%s]", e.Name, strings.Join(e.Known, ", "))
	case e.Kind == ErrMissingRequiredField:
		fmt.Fprintf(&b, ": %s must declare %q", e.Path, e.Name)
	case e.Path != "":
		fmt.Fprintf(&b, ": %s", e.Path)
	case e.Name != "":
		fmt.Fprintf(&b, ": %s", e.Name)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
