package config

import (
	"github.com/vk/assetgrid/internal/match"
	"github.com/vk/assetgrid/internal/sorter"
)

// Positions of the groups returned by OrderGroups.
const (
	GroupBefore = iota
	GroupPackages
	GroupVendor
	GroupUnmatched
	GroupAfter
)

// OrderGroups returns the sort groups shared by every join of fs. Package
// files must already be in dependency order.
func (m *Model) OrderGroups(fs *FileSet, packageFiles []string) []sorter.Group {
	pkgs := make([]match.Criterion, len(packageFiles))
	for i, f := range packageFiles {
		pkgs[i] = match.Exact(f)
	}

	var order Order
	if fs != nil {
		order = fs.Order
	}
	return []sorter.Group{
		GroupBefore:    sorter.Criteria(order.Before...),
		GroupPackages:  sorter.Criteria(pkgs...),
		GroupVendor:    sorter.Criteria(m.Conventions.Vendor...),
		GroupUnmatched: sorter.Unmatched,
		GroupAfter:     sorter.Criteria(order.After...),
	}
}

// Select returns the items j collects, preserving their input order.
func (j *Join) Select(items []string) []string {
	var out []string
	for _, it := range items {
		if match.Matches(j.Sources, it) {
			out = append(out, it)
		}
	}
	return out
}

// JoinFor returns the first join of fs whose sources match path.
func (fs *FileSet) JoinFor(path string) *Join {
	for _, j := range fs.Joins {
		if match.Matches(j.Sources, path) {
			return j
		}
	}
	return nil
}
