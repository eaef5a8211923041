package xref

import (
	"fmt"

	"github.com/jward/xref/internal/index"
)

// maxGraphDepth caps transitive traversals.
const maxGraphDepth = 100

// CallGraph represents a transitive call graph rooted at a function.
type CallGraph struct {
	Root  string          // USR of the starting function
	Nodes []CallGraphNode // all functions reachable within depth, root first
	Edges []CallGraphEdge // all edges between nodes, one per call site
	Depth int             // actual max depth reached (may be < maxDepth if graph is shallow)
}

// CallGraphNode is a function in the call graph with its distance from the
// root.
type CallGraphNode struct {
	Symbol SymbolResult
	Depth  int // BFS depth from root (0 = root itself)
}

// CallGraphEdge is a single caller-callee relationship in the call graph.
type CallGraphEdge struct {
	Caller string
	Callee string
	At     Location
}

// TransitiveCallers returns all transitive callers of usr up to maxDepth,
// walking caller edges breadth first. maxDepth of 0 returns only the root
// node; negative returns an error. Capped at 100. Returns nil, nil if usr is
// not a function of the unit.
func (q *QueryBuilder) TransitiveCallers(usr string, maxDepth int) (*CallGraph, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("transitive callers: maxDepth must be non-negative, got %d", maxDepth)
	}
	return q.walkCalls(usr, maxDepth, func(f *index.FuncDef) []index.FuncRef { return f.Callers }, true), nil
}

// TransitiveCallees returns all transitive callees of usr up to maxDepth.
// Same rules as TransitiveCallers.
func (q *QueryBuilder) TransitiveCallees(usr string, maxDepth int) (*CallGraph, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("transitive callees: maxDepth must be non-negative, got %d", maxDepth)
	}
	return q.walkCalls(usr, maxDepth, func(f *index.FuncDef) []index.FuncRef { return f.Callees }, false), nil
}

// walkCalls runs the BFS. next yields the neighbours of a function; reverse
// says they are callers, which flips edge direction.
func (q *QueryBuilder) walkCalls(usr string, maxDepth int, next func(*index.FuncDef) []index.FuncRef, reverse bool) *CallGraph {
	rootID, ok := q.unit.LookupFunc(usr)
	if !ok {
		return nil
	}
	maxDepth = min(maxDepth, maxGraphDepth)

	funcs := q.unit.Funcs()
	root := rootID.Raw()
	result := &CallGraph{
		Root:  usr,
		Nodes: []CallGraphNode{{Symbol: q.result(symbolRef{index.KindFunc, root}), Depth: 0}},
		Edges: []CallGraphEdge{},
	}
	if maxDepth == 0 {
		return result
	}

	visited := map[int]int{root: 0} // func id -> depth
	type bfsEntry struct {
		id    int
		depth int
	}
	queue := []bfsEntry{{id: root, depth: 0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		// Don't explore further if at maxDepth
		if current.depth >= maxDepth {
			continue
		}

		for _, ref := range next(&funcs[current.id]) {
			id := ref.ID.Raw()
			if _, seen := visited[id]; seen {
				continue
			}
			newDepth := current.depth + 1
			visited[id] = newDepth
			result.Depth = max(result.Depth, newDepth)
			result.Nodes = append(result.Nodes, CallGraphNode{
				Symbol: q.result(symbolRef{index.KindFunc, id}),
				Depth:  newDepth,
			})
			queue = append(queue, bfsEntry{id: id, depth: newDepth})
		}
	}

	// Edges between visited nodes, in node order then call-site order.
	for _, n := range result.Nodes {
		id := n.Symbol.ID
		for _, ref := range next(&funcs[id]) {
			if _, ok := visited[ref.ID.Raw()]; !ok {
				continue
			}
			caller, callee := funcs[id].USR, funcs[ref.ID.Raw()].USR
			if reverse {
				caller, callee = callee, caller
			}
			result.Edges = append(result.Edges, CallGraphEdge{Caller: caller, Callee: callee, At: q.resolve(ref.Loc)})
		}
	}
	return result
}
