package match

import (
	"fmt"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
)

// Kind identifies the variant held by a Criterion.
type Kind int

const (
	// KindNone is the zero value. A Criterion of this kind never matches.
	KindNone Kind = iota
	// KindString matches on exact equality or, failing that, as a glob.
	KindString
	// KindExact matches on exact equality only.
	KindExact
	// KindGlob matches as a doublestar glob only.
	KindGlob
	// KindRegex matches when the expression finds a match in the candidate.
	KindRegex
	// KindPredicate matches when the function returns true.
	KindPredicate
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindExact:
		return "exact"
	case KindGlob:
		return "glob"
	case KindRegex:
		return "regex"
	case KindPredicate:
		return "predicate"
	default:
		return "none"
	}
}

// Criterion is a single matching rule. Construct it with String, Exact,
// Glob, Regex, MustRegex or Func; the zero value matches nothing.
type Criterion struct {
	kind    Kind
	pattern string
	re      *regexp.Regexp
	fn      func(string) bool
}

// String returns a criterion that matches a candidate equal to s, or a
// candidate matched by s interpreted as a glob pattern.
func String(s string) Criterion {
	return Criterion{kind: KindString, pattern: s}
}

// Exact returns a criterion that matches only a candidate equal to s.
func Exact(s string) Criterion {
	return Criterion{kind: KindExact, pattern: s}
}

// Glob returns a criterion that matches candidates against a doublestar
// pattern. Malformed patterns never match.
func Glob(pattern string) Criterion {
	return Criterion{kind: KindGlob, pattern: pattern}
}

// Regex returns a criterion backed by a compiled expression.
func Regex(re *regexp.Regexp) Criterion {
	if re == nil {
		return Criterion{}
	}
	return Criterion{kind: KindRegex, pattern: re.String(), re: re}
}

// CompileRegex compiles expr and wraps it in a criterion.
func CompileRegex(expr string) (Criterion, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Criterion{}, fmt.Errorf("invalid regex criterion %q: %w", expr, err)
	}
	return Regex(re), nil
}

// MustRegex is like CompileRegex but panics on an invalid expression.
func MustRegex(expr string) Criterion {
	return Regex(regexp.MustCompile(expr))
}

// Func returns a criterion that delegates to fn.
func Func(fn func(string) bool) Criterion {
	if fn == nil {
		return Criterion{}
	}
	return Criterion{kind: KindPredicate, fn: fn}
}

// Kind reports the variant of the criterion.
func (c Criterion) Kind() Kind {
	return c.kind
}

// Pattern returns the textual form of string, glob and regex criteria.
func (c Criterion) Pattern() string {
	return c.pattern
}

// Match reports whether candidate satisfies the criterion.
func (c Criterion) Match(candidate string) bool {
	switch c.kind {
	case KindString:
		return c.pattern == candidate || globMatch(c.pattern, candidate)
	case KindExact:
		return c.pattern == candidate
	case KindGlob:
		return globMatch(c.pattern, candidate)
	case KindRegex:
		return c.re.MatchString(candidate)
	case KindPredicate:
		return c.fn(candidate)
	default:
		return false
	}
}

// String renders the criterion for logs and error messages.
func (c Criterion) String() string {
	switch c.kind {
	case KindRegex:
		return "/" + c.pattern + "/"
	case KindPredicate:
		return "func"
	case KindNone:
		return "<none>"
	default:
		return fmt.Sprintf("%s(%q)", c.kind, c.pattern)
	}
}

func globMatch(pattern, candidate string) bool {
	ok, err := doublestar.Match(pattern, candidate)
	return err == nil && ok
}
