package dag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	g := New()
	require.NotNil(t, g)
	assert.NotNil(t, g.nodes)
	assert.Zero(t, g.Len())
	assert.Empty(t, g.IDs())
}

func TestAddNode(t *testing.T) {
	g := New()

	g.AddNode("jquery")
	assert.Equal(t, 1, g.Len())
	assert.True(t, g.Has("jquery"))

	g.AddNode("jquery") // idempotent
	assert.Equal(t, 1, g.Len())

	g.AddNode("backbone")
	g.AddNode("underscore")
	assert.Equal(t, []string{"backbone", "jquery", "underscore"}, g.IDs())
	assert.False(t, g.Has("lodash"))
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := New()
		g.AddNode("jquery")
		g.AddNode("backbone")
		g.AddNode("underscore")

		// backbone depends on jquery and underscore
		require.NoError(t, g.AddEdge("underscore", "backbone"))
		require.NoError(t, g.AddEdge("jquery", "backbone"))

		deps, err := g.Dependencies("backbone")
		require.NoError(t, err)
		assert.Equal(t, []string{"jquery", "underscore"}, deps)

		dependents, err := g.Dependents("jquery")
		require.NoError(t, err)
		assert.Equal(t, []string{"backbone"}, dependents)
	})

	t.Run("error cases", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")

		err := g.AddEdge("dne", "a")
		assert.ErrorContains(t, err, "source node not found")

		err = g.AddEdge("a", "dne")
		assert.ErrorContains(t, err, "destination node not found")

		err = g.AddEdge("a", "a")
		assert.ErrorContains(t, err, "self-referential edge")

		_, err = g.Dependencies("dne")
		assert.ErrorContains(t, err, "node not found")
		_, err = g.Dependents("dne")
		assert.ErrorContains(t, err, "node not found")
	})
}

func TestDetectCycles(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		assert.NoError(t, New().DetectCycles())
	})

	t.Run("valid dag has no cycles", func(t *testing.T) {
		g := New()
		for _, id := range []string{"a", "b", "c", "d"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "c"))
		require.NoError(t, g.AddEdge("a", "c")) // transitive edge
		require.NoError(t, g.AddEdge("c", "d"))
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("direct cycle reports its path", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "a"))

		err := g.DetectCycles()
		require.Error(t, err)
		assert.ErrorContains(t, err, "cycle detected")

		var cycleErr *CycleError
		require.True(t, errors.As(err, &cycleErr))
		assert.Equal(t, []string{"a", "b", "a"}, cycleErr.Path)
	})

	t.Run("cycle in a disjoint component is detected", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddEdge("a", "b"))

		g.AddNode("x")
		g.AddNode("y")
		g.AddNode("z")
		require.NoError(t, g.AddEdge("x", "y"))
		require.NoError(t, g.AddEdge("y", "z"))
		require.NoError(t, g.AddEdge("z", "y"))

		var cycleErr *CycleError
		require.ErrorAs(t, g.DetectCycles(), &cycleErr)
		assert.Equal(t, []string{"y", "z", "y"}, cycleErr.Path)
	})
}
