package gc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aislang/aisl/lang/gc"
)

type node struct {
	gc.Header
	refs []gc.Object
}

func (n *node) Trace(visit func(gc.Object)) {
	for _, r := range n.refs {
		visit(r)
	}
}

func (n *node) Size() uintptr { return 32 }

type fixedRoots struct{ objs []gc.Object }

func (r *fixedRoots) Roots() []gc.Object { return r.objs }

func TestCollectFreesUnreachable(t *testing.T) {
	roots := &fixedRoots{}
	h := gc.NewHeap(roots)

	kept := &node{}
	h.Register(kept)
	garbage := &node{}
	h.Register(garbage)

	roots.objs = []gc.Object{kept}
	freed := h.Collect()
	require.Equal(t, 1, freed)
	require.Equal(t, 1, h.StatsSnapshot().ObjectCount)
}

func TestCollectKeepsTransitiveReferences(t *testing.T) {
	roots := &fixedRoots{}
	h := gc.NewHeap(roots)

	child := &node{}
	h.Register(child)
	parent := &node{refs: []gc.Object{child}}
	h.Register(parent)

	roots.objs = []gc.Object{parent}
	freed := h.Collect()
	require.Equal(t, 0, freed)
	require.Equal(t, 2, h.StatsSnapshot().ObjectCount)
}

func TestCollectHandlesCycles(t *testing.T) {
	roots := &fixedRoots{}
	h := gc.NewHeap(roots)

	a := &node{}
	b := &node{}
	a.refs = []gc.Object{b}
	b.refs = []gc.Object{a}
	h.Register(a)
	h.Register(b)

	// neither a nor b is rooted: both should be collected despite the cycle.
	freed := h.Collect()
	require.Equal(t, 2, freed)
	require.Equal(t, 0, h.StatsSnapshot().ObjectCount)
}

func TestShouldCollectPacing(t *testing.T) {
	roots := &fixedRoots{}
	h := gc.NewHeap(roots)
	require.False(t, h.ShouldCollect())

	for i := 0; i < 40000; i++ {
		h.Register(&node{})
	}
	require.True(t, h.ShouldCollect())

	roots.objs = nil
	h.Collect()
	require.False(t, h.ShouldCollect())
}
