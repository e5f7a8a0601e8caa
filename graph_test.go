package compose

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependencyGraph_TopologicalSort_Simple(t *testing.T) {
	g := newDependencyGraph()
	g.addNode("a", "A", nil)
	g.addNode("b", "B", []string{"a"})
	g.addNode("c", "C", []string{"b"})

	result, err := g.topologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, result)
}

func TestDependencyGraph_TopologicalSort_Complex(t *testing.T) {
	g := newDependencyGraph()
	g.addNode("d", "D", []string{"b", "c"})
	g.addNode("a", "A", nil)
	g.addNode("b", "B", []string{"a"})
	g.addNode("c", "C", []string{"a"})

	result, err := g.topologicalSort()
	require.NoError(t, err)

	idx := func(s string) int { return slices.Index(result, s) }
	assert.Less(t, idx("a"), idx("b"))
	assert.Less(t, idx("a"), idx("c"))
	assert.Less(t, idx("b"), idx("d"))
	assert.Less(t, idx("c"), idx("d"))
}

func TestDependencyGraph_TopologicalSort_CircularDependency(t *testing.T) {
	g := newDependencyGraph()
	g.addNode("x", "X", nil)
	g.addNode("a", "A", []string{"b"})
	g.addNode("b", "B", []string{"c"})
	g.addNode("c", "C", []string{"a"})

	_, err := g.topologicalSort()
	var cyclic *CyclicDependencyError
	require.True(t, errors.As(err, &cyclic))
	assert.Equal(t, []string{"A", "B", "C", "A"}, cyclic.Chain)
}

func TestDependencyGraph_TopologicalSort_SelfReference(t *testing.T) {
	g := newDependencyGraph()
	g.addNode("a", "A", []string{"a"})

	_, err := g.topologicalSort()
	var cyclic *CyclicDependencyError
	require.True(t, errors.As(err, &cyclic))
	assert.Equal(t, []string{"A", "A"}, cyclic.Chain)
}

func TestDependencyGraph_MissingNodesAreSkipped(t *testing.T) {
	g := newDependencyGraph()
	g.addNode("a", "A", []string{"instance"})

	result, err := g.topologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, result)
}
