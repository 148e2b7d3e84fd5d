// Package sorter orders path lists by prioritized match criteria. It is the
// ordering engine behind bundle concatenation: earlier criteria win, later
// criteria break ties, and byte-order comparison settles the rest.
package sorter

import (
	"slices"
	"strings"

	"github.com/vk/assetgrid/internal/match"
)

// Compare orders a before b (-1), after b (1) or equal (0) according to
// criteria. An item matching any criterion sorts before one that matches
// none; between two matching items the lower index wins; equal indexes are
// resolved by the criteria that follow the shared index; anything else
// falls back to byte-order comparison.
func Compare(a, b string, criteria []match.Criterion) int {
	ia := match.Index(criteria, a)
	ib := match.Index(criteria, b)

	switch {
	case ia != -1 && ib == -1:
		return -1
	case ia == -1 && ib != -1:
		return 1
	case ia < ib:
		return -1
	case ia > ib:
		return 1
	case ia != -1 && ia < len(criteria)-1:
		return Compare(a, b, criteria[ia+1:])
	}
	return strings.Compare(a, b)
}

// Comparator returns Compare with fixed criteria, suitable for slices.SortFunc.
func Comparator(criteria ...match.Criterion) func(a, b string) int {
	fixed := slices.Clone(criteria)
	return func(a, b string) int {
		return Compare(a, b, fixed)
	}
}

// Sort returns a sorted copy of items.
func Sort(items []string, criteria ...match.Criterion) []string {
	out := slices.Clone(items)
	slices.SortStableFunc(out, Comparator(criteria...))
	return out
}

// SpliceResult is the outcome of Splice. Sorted is always Matched followed
// by Unmatched.
type SpliceResult struct {
	Matched   []string
	Unmatched []string
	Sorted    []string
}

// Splice partitions items into those matching any of criteria and the rest.
// Matched items are ordered by criteria followed by every tie-breaker list;
// unmatched items are ordered by bytes.
func Splice(items []string, criteria []match.Criterion, tieBreakers ...[]match.Criterion) SpliceResult {
	var matched, unmatched []string
	for _, item := range items {
		if match.Matches(criteria, item) {
			matched = append(matched, item)
		} else {
			unmatched = append(unmatched, item)
		}
	}

	extended := slices.Clone(criteria)
	for _, tb := range tieBreakers {
		extended = append(extended, tb...)
	}
	slices.SortStableFunc(matched, Comparator(extended...))
	slices.Sort(unmatched)

	sorted := make([]string, 0, len(items))
	sorted = append(sorted, matched...)
	sorted = append(sorted, unmatched...)

	return SpliceResult{Matched: matched, Unmatched: unmatched, Sorted: sorted}
}
