package sorter

import (
	"slices"

	"github.com/vk/assetgrid/internal/match"
)

// Group is one bucket of a grouped sort: either a criteria list or the
// Unmatched marker.
type Group struct {
	Criteria  []match.Criterion
	unmatched bool
}

// Unmatched marks where items matching no group are placed.
var Unmatched = Group{unmatched: true}

// Criteria builds a group from a criteria list.
func Criteria(c ...match.Criterion) Group {
	return Group{Criteria: c}
}

// IsUnmatched reports whether g is the Unmatched marker.
func (g Group) IsUnmatched() bool {
	return g.unmatched
}

// Grouped sorts items into groups. Each group, in turn, claims the items
// still unclaimed that match its criteria and orders them using every later
// group as a tie-breaker. Items claimed by no group land at the Unmatched
// marker, or at the end when there is no marker.
//
// order, when non-empty, lists group positions in emission order. The
// Unmatched bucket occupies the marker's position, or len(groups) without
// one. Positions that are out of range or repeated are ignored, and
// positions missing from order are emitted afterwards in their natural
// sequence so no item is ever dropped.
func Grouped(items []string, groups []Group, order []int) []string {
	marker := slices.IndexFunc(groups, Group.IsUnmatched)

	slots := len(groups)
	if marker == -1 {
		slots++
	}
	buckets := make([][]string, slots)
	remaining := slices.Clone(items)

	for i, g := range groups {
		if g.unmatched {
			continue
		}
		var tieBreakers [][]match.Criterion
		for _, later := range groups[i+1:] {
			if later.unmatched {
				continue
			}
			tieBreakers = append(tieBreakers, later.Criteria)
		}
		spliced := Splice(remaining, g.Criteria, tieBreakers...)
		buckets[i] = spliced.Matched
		remaining = spliced.Unmatched
	}

	if marker == -1 {
		marker = slots - 1
	}
	// Already sorted when any group ran; a marker-only list leaves it raw.
	slices.Sort(remaining)
	buckets[marker] = remaining

	out := make([]string, 0, len(items))
	for _, pos := range emissionOrder(order, slots) {
		out = append(out, buckets[pos]...)
	}
	return out
}

// emissionOrder normalizes a caller-provided position list into a
// permutation of [0, slots).
func emissionOrder(order []int, slots int) []int {
	seen := make([]bool, slots)
	positions := make([]int, 0, slots)
	for _, pos := range order {
		if pos < 0 || pos >= slots || seen[pos] {
			continue
		}
		seen[pos] = true
		positions = append(positions, pos)
	}
	for pos := range slots {
		if !seen[pos] {
			positions = append(positions, pos)
		}
	}
	return positions
}
