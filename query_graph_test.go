package xref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodeDepths(g *CallGraph) map[string]int {
	out := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		out[n.Symbol.USR] = n.Depth
	}
	return out
}

// =============================================================================
// TransitiveCallers
// =============================================================================

func TestTransitiveCallers(t *testing.T) {
	t.Parallel()
	q := newShapesQuery(t)

	g, err := q.TransitiveCallers(usrShapeArea, 5)
	require.NoError(t, err)
	require.NotNil(t, g)

	assert.Equal(t, usrShapeArea, g.Root)
	assert.Equal(t, usrShapeArea, g.Nodes[0].Symbol.USR, "root first")
	assert.Equal(t, map[string]int{usrShapeArea: 0, usrTotal: 1, usrTwice: 2}, nodeDepths(g))
	assert.Equal(t, 2, g.Depth)

	// total -> area once, twice -> total at two call sites.
	require.Len(t, g.Edges, 3)
	for _, e := range g.Edges {
		switch e.Callee {
		case usrShapeArea:
			assert.Equal(t, usrTotal, e.Caller)
		case usrTotal:
			assert.Equal(t, usrTwice, e.Caller)
			assert.Equal(t, 23, e.At.Line)
		default:
			t.Errorf("unexpected edge %s -> %s", e.Caller, e.Callee)
		}
	}
}

func TestTransitiveCallers_DepthLimit(t *testing.T) {
	t.Parallel()
	q := newShapesQuery(t)

	g, err := q.TransitiveCallers(usrShapeArea, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{usrShapeArea: 0, usrTotal: 1}, nodeDepths(g))
	require.Len(t, g.Edges, 1)
	assert.Equal(t, 1, g.Depth)

	g, err = q.TransitiveCallers(usrShapeArea, 0)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)
	assert.Zero(t, g.Depth)
}

func TestTransitiveCallers_Errors(t *testing.T) {
	t.Parallel()
	q := newShapesQuery(t)

	_, err := q.TransitiveCallers(usrTotal, -1)
	require.Error(t, err)

	g, err := q.TransitiveCallers("c:@F@nope#", 3)
	require.NoError(t, err)
	assert.Nil(t, g)
}

// =============================================================================
// TransitiveCallees
// =============================================================================

func TestTransitiveCallees(t *testing.T) {
	t.Parallel()
	q := newShapesQuery(t)

	g, err := q.TransitiveCallees(usrTwice, 10)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{usrTwice: 0, usrTotal: 1, usrShapeArea: 2}, nodeDepths(g))
	require.Len(t, g.Edges, 3)
	assert.Equal(t, CallGraphEdge{
		Caller: usrTwice,
		Callee: usrTotal,
		At:     Location{File: "shapes.cc", Line: 23, Col: 10, Interesting: true},
	}, g.Edges[0])

	g, err = q.TransitiveCallees(usrTwice, 1)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 2, "edges to unvisited nodes are left out")

	_, err = q.TransitiveCallees(usrTwice, -2)
	require.Error(t, err)
}

func TestTransitiveCallees_Cycle(t *testing.T) {
	t.Parallel()
	e := New()
	u, err := e.IndexSource(t.Context(), "cycle.c", []byte(`void pong(int n);
void ping(int n) { if (n) pong(n - 1); }
void pong(int n) { if (n) ping(n - 1); }
`))
	require.NoError(t, err)

	g, err := e.Query(u).TransitiveCallees("c:@F@ping#", 200)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 2, "each function is visited once")
	assert.Len(t, g.Edges, 2)
	assert.Equal(t, 1, g.Depth)
}
