// Package match decides whether a path-like string satisfies an ordered list
// of criteria, and at which priority index. Criteria are a closed set of
// kinds: literal-or-glob strings, exact strings, glob patterns, regular
// expressions and predicate functions.
package match
