package dag

import "sync"

// Graph is a collection of nodes and their dependencies.
// All operations on the graph are concurrency-safe.
type Graph struct {
	// mutex protects the nodes map during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[string]*node
}

// node is a single vertex. It is un-exported so callers interact with the
// graph through string IDs only.
type node struct {
	id string
	// deps holds the nodes this node depends on.
	deps map[string]*node
	// dependents holds the nodes that depend on this node.
	dependents map[string]*node
}

// CycleError reports a dependency cycle. Path starts and ends with the same ID.
type CycleError struct {
	Path []string
}
