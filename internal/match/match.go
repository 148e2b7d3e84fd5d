package match

// Matches reports whether any criterion matches candidate.
func Matches(criteria []Criterion, candidate string) bool {
	return Index(criteria, candidate) != -1
}

// Index returns the index of the first criterion that matches candidate,
// or -1 if none does.
func Index(criteria []Criterion, candidate string) int {
	return IndexRange(criteria, candidate, 0, len(criteria))
}

// IndexRange evaluates criteria[start:end] in order and returns the absolute
// index of the first match, or -1. Bounds are clamped to the list.
func IndexRange(criteria []Criterion, candidate string, start, end int) int {
	if start < 0 {
		start = 0
	}
	if end > len(criteria) {
		end = len(criteria)
	}
	for i := start; i < end; i++ {
		if criteria[i].Match(candidate) {
			return i
		}
	}
	return -1
}

// Matcher fixes the criteria and returns a predicate over candidates.
func Matcher(criteria ...Criterion) func(string) bool {
	fixed := append([]Criterion(nil), criteria...)
	return func(candidate string) bool {
		return Matches(fixed, candidate)
	}
}

// IndexMatcher is the curried form of Index.
func IndexMatcher(criteria ...Criterion) func(string) int {
	fixed := append([]Criterion(nil), criteria...)
	return func(candidate string) int {
		return Index(fixed, candidate)
	}
}
