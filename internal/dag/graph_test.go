package dag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlk/flowver/internal/interval"
)

func TestAddNode(t *testing.T) {
	g := New()

	g.AddNode("a.lua")
	assert.Equal(t, 1, g.Len())

	g.AddNode("a.lua") // idempotent
	assert.Equal(t, 1, g.Len())

	// Fresh nodes are unbounded so a pure re-export file never constrains
	// its dependents.
	iv, ok := g.Resolved("a.lua")
	require.True(t, ok)
	assert.True(t, iv.Equal(interval.Unbounded()))
}

func TestAddDependency(t *testing.T) {
	g := New()
	g.AddNode("a.lua")
	g.AddNode("b.lua")

	require.NoError(t, g.AddDependency("a.lua", "b.lua"))
	deps, err := g.Dependencies("a.lua")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.lua"}, deps)

	// Duplicate edges collapse to one.
	require.NoError(t, g.AddDependency("a.lua", "b.lua"))
	deps, err = g.Dependencies("a.lua")
	require.NoError(t, err)
	assert.Len(t, deps, 1)

	assert.ErrorContains(t, g.AddDependency("a.lua", "a.lua"), "require itself")
	assert.ErrorContains(t, g.AddDependency("a.lua", "dne.lua"), "not found")
	assert.ErrorContains(t, g.AddDependency("dne.lua", "a.lua"), "not found")
}

func TestDetectCycles(t *testing.T) {
	t.Run("valid dag passes", func(t *testing.T) {
		g := New()
		for _, id := range []string{"a", "b", "c", "d"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddDependency("a", "b"))
		require.NoError(t, g.AddDependency("b", "c"))
		require.NoError(t, g.AddDependency("a", "c"))
		require.NoError(t, g.AddDependency("c", "d"))
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("two-node cycle reports its members", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddDependency("a", "b"))
		require.NoError(t, g.AddDependency("b", "a"))

		var cycle *CycleError
		require.ErrorAs(t, g.DetectCycles(), &cycle)
		assert.Equal(t, []string{"a", "b", "a"}, cycle.Members)
	})

	t.Run("cycle in a disjoint component is found", func(t *testing.T) {
		g := New()
		for _, id := range []string{"a", "b", "x", "y", "z"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddDependency("a", "b"))
		require.NoError(t, g.AddDependency("x", "y"))
		require.NoError(t, g.AddDependency("y", "z"))
		require.NoError(t, g.AddDependency("z", "y"))

		var cycle *CycleError
		require.ErrorAs(t, g.DetectCycles(), &cycle)
		assert.Equal(t, []string{"y", "z", "y"}, cycle.Members)
	})
}

func TestTopoSort(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(id)
	}
	require.NoError(t, g.AddDependency("a", "b"))
	require.NoError(t, g.AddDependency("b", "c"))

	order := g.TopoSort()
	require.Len(t, order, 3)
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	assert.Less(t, pos["c"], pos["b"])
	assert.Less(t, pos["b"], pos["a"])
}

func TestAggregate(t *testing.T) {
	ctx := context.Background()

	t.Run("intersects own interval with dependencies", func(t *testing.T) {
		g := New()
		for _, id := range []string{"top", "mid", "leaf"} {
			g.AddNode(id)
		}
		require.NoError(t, g.SetOwn("top", interval.AtLeast(5)))
		require.NoError(t, g.SetOwn("mid", interval.Between(1, 30)))
		require.NoError(t, g.SetOwn("leaf", interval.Between(10, 20)))
		require.NoError(t, g.AddDependency("top", "mid"))
		require.NoError(t, g.AddDependency("mid", "leaf"))
		require.NoError(t, g.MarkTop("top"))

		require.NoError(t, g.Aggregate(ctx))

		got, ok := g.Resolved("top")
		require.True(t, ok)
		assert.True(t, got.Equal(interval.Between(10, 20)))

		tops := g.TopNodes()
		require.Len(t, tops, 1)
		assert.True(t, tops["top"].Equal(interval.Between(10, 20)))
	})

	t.Run("empty intersection reports the dependency chain", func(t *testing.T) {
		// A -> B -> C with own intervals [5,∞), [10,∞), [1,8]: B's own
		// minimum cannot coexist with C's ceiling.
		g := New()
		for _, id := range []string{"a", "b", "c"} {
			g.AddNode(id)
		}
		require.NoError(t, g.SetOwn("a", interval.AtLeast(5)))
		require.NoError(t, g.SetOwn("b", interval.AtLeast(10)))
		require.NoError(t, g.SetOwn("c", interval.Between(1, 8)))
		require.NoError(t, g.AddDependency("a", "b"))
		require.NoError(t, g.AddDependency("b", "c"))

		var conflict *ConflictError
		require.ErrorAs(t, g.Aggregate(ctx), &conflict)
		assert.Equal(t, []string{"b", "c"}, conflict.Chain)
	})

	t.Run("conflict bound carried through a transitive dependency", func(t *testing.T) {
		g := New()
		for _, id := range []string{"a", "b", "c"} {
			g.AddNode(id)
		}
		require.NoError(t, g.SetOwn("a", interval.Between(1, 9)))
		require.NoError(t, g.SetOwn("b", interval.Unbounded()))
		require.NoError(t, g.SetOwn("c", interval.AtLeast(10)))
		require.NoError(t, g.AddDependency("a", "b"))
		require.NoError(t, g.AddDependency("b", "c"))

		// b itself allows everything; the minimum that clashes with a's
		// ceiling originates in c, and the chain must say so.
		var conflict *ConflictError
		require.ErrorAs(t, g.Aggregate(ctx), &conflict)
		assert.Equal(t, []string{"a", "b", "c"}, conflict.Chain)
	})

	t.Run("shared dependency is applied to every dependent", func(t *testing.T) {
		g := New()
		for _, id := range []string{"x", "y", "shared"} {
			g.AddNode(id)
		}
		require.NoError(t, g.SetOwn("x", interval.Unbounded()))
		require.NoError(t, g.SetOwn("y", interval.Unbounded()))
		require.NoError(t, g.SetOwn("shared", interval.AtLeast(12)))
		require.NoError(t, g.AddDependency("x", "shared"))
		require.NoError(t, g.AddDependency("y", "shared"))

		require.NoError(t, g.Aggregate(ctx))
		for _, id := range []string{"x", "y"} {
			got, ok := g.Resolved(id)
			require.True(t, ok)
			assert.Equal(t, uint64(12), got.Min, id)
		}
	})

	t.Run("result is independent of insertion order", func(t *testing.T) {
		build := func(ids []string) *Graph {
			g := New()
			for _, id := range ids {
				g.AddNode(id)
			}
			require.NoError(t, g.SetOwn("a", interval.AtLeast(5)))
			require.NoError(t, g.SetOwn("b", interval.Between(1, 25)))
			require.NoError(t, g.SetOwn("c", interval.Between(10, 30)))
			require.NoError(t, g.AddDependency("a", "b"))
			require.NoError(t, g.AddDependency("a", "c"))
			require.NoError(t, g.AddDependency("b", "c"))
			require.NoError(t, g.Aggregate(ctx))
			return g
		}

		first := build([]string{"a", "b", "c"})
		second := build([]string{"c", "b", "a"})

		for _, id := range []string{"a", "b", "c"} {
			iv1, ok := first.Resolved(id)
			require.True(t, ok)
			iv2, ok := second.Resolved(id)
			require.True(t, ok)
			assert.True(t, iv1.Equal(iv2), id)
		}
	})
}
