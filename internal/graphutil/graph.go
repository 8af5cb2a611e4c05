// Package graphutil adapts the dependence graph (and its call-binding
// structure) to the generic graph algorithms of gonum.org/v1/gonum/graph and
// github.com/yourbasic/graph, and provides a generic Tarjan SCC. The
// pointer subgraph has no adapter here.
package graphutil

import (
	"sort"

	"gonum.org/v1/gonum/graph"

	"github.com/dgcore/slicer/dg"
)

// DepNode wraps a *dg.DGNode so it satisfies gonum's graph.Node.
type DepNode struct {
	N *dg.DGNode
}

// ID returns the node's dg.Key as a gonum node id.
func (d DepNode) ID() int64 { return int64(d.N.Key()) }

func (d DepNode) String() string { return d.N.String() }

// DepGraph is a gonum graph.Graph view over a set of dg.DGNodes, with edges
// following the union of data-dependence, control-dependence and use edges.
// Edge direction follows each edge's natural forward direction (producer ->
// consumer for data/use, controller -> controlled for control); callers
// that need the reverse view for backward traversal should use To.
type DepGraph struct {
	nodes   map[int64]DepNode
	forward map[int64]map[int64]bool
	reverse map[int64]map[int64]bool
}

// NewDepGraph builds a DepGraph over nodes, reading each node's current
// DataDepsOut/CtrlDepsOut/UsesOut to populate edges.
func NewDepGraph(nodes []*dg.DGNode) *DepGraph {
	g := &DepGraph{
		nodes:   make(map[int64]DepNode, len(nodes)),
		forward: make(map[int64]map[int64]bool, len(nodes)),
		reverse: make(map[int64]map[int64]bool, len(nodes)),
	}
	for _, n := range nodes {
		id := int64(n.Key())
		g.nodes[id] = DepNode{n}
		if g.forward[id] == nil {
			g.forward[id] = map[int64]bool{}
		}
	}
	addEdge := func(from, to int64) {
		g.forward[from][to] = true
		if g.reverse[to] == nil {
			g.reverse[to] = map[int64]bool{}
		}
		g.reverse[to][from] = true
	}
	for _, n := range nodes {
		id := int64(n.Key())
		for m := range n.DataDepsOut() {
			addEdge(id, int64(m.Key()))
		}
		for m := range n.CtrlDepsOut() {
			addEdge(id, int64(m.Key()))
		}
		for m := range n.UsesOut() {
			addEdge(id, int64(m.Key()))
		}
	}
	return g
}

// NewCallGraph builds a DepGraph over a set of call sites and their owning
// procedures' entry nodes, with two edge kinds: an entry -> call edge for
// every call site belonging to that procedure, and a call -> entry edge
// following CallBinding into the callee. The combination makes a cycle
// through two procedures' entries show up as a single strongly connected
// component, which is what RecursiveFunctions looks for.
func NewCallGraph(calls []*dg.DGNode) *DepGraph {
	g := &DepGraph{
		nodes:   map[int64]DepNode{},
		forward: map[int64]map[int64]bool{},
		reverse: map[int64]map[int64]bool{},
	}
	ensure := func(n *dg.DGNode) {
		id := int64(n.Key())
		if _, ok := g.nodes[id]; ok {
			return
		}
		g.nodes[id] = DepNode{n}
		g.forward[id] = map[int64]bool{}
	}
	addEdge := func(from, to int64) {
		g.forward[from][to] = true
		if g.reverse[to] == nil {
			g.reverse[to] = map[int64]bool{}
		}
		g.reverse[to][from] = true
	}

	for _, n := range calls {
		ensure(n)
		if owner := n.DG(); owner != nil && owner.Entry() != nil {
			ensure(owner.Entry())
			addEdge(int64(owner.Entry().Key()), int64(n.Key()))
		}
		if n.CallBinding != nil {
			ensure(n.CallBinding)
			addEdge(int64(n.Key()), int64(n.CallBinding.Key()))
		}
	}
	return g
}

// Node implements graph.Graph.
func (g *DepGraph) Node(id int64) graph.Node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	return nil
}

// Nodes implements graph.Graph.
func (g *DepGraph) Nodes() graph.Nodes {
	ids := make([]int64, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return &NodeIterator{graph: g, ids: ids, cur: -1}
}

// From implements graph.Graph: the nodes reachable by one forward edge.
func (g *DepGraph) From(id int64) graph.Nodes {
	var ids []int64
	for to := range g.forward[id] {
		ids = append(ids, to)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return &NodeIterator{graph: g, ids: ids, cur: -1}
}

// To returns the nodes with a forward edge into id — the predecessors.
func (g *DepGraph) To(id int64) graph.Nodes {
	var ids []int64
	for from := range g.reverse[id] {
		ids = append(ids, from)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return &NodeIterator{graph: g, ids: ids, cur: -1}
}

// HasEdgeBetween implements graph.Graph.
func (g *DepGraph) HasEdgeBetween(xid, yid int64) bool {
	return g.forward[xid][yid] || g.forward[yid][xid]
}

// Edge implements graph.Graph.
func (g *DepGraph) Edge(uid, vid int64) graph.Edge {
	if !g.forward[uid][vid] {
		return nil
	}
	return DepEdge{from: g.nodes[uid], to: g.nodes[vid]}
}

// Order implements the yourbasic/graph.Iterator interface. Visit numbers
// vertices by dg.Key, while yourbasic/graph expects vertices 0..Order()-1,
// so a DepGraph gives correct results there only when its keys are exactly
// that range; RecursiveFunctions re-indexes into a yourbasic graph instead.
func (g *DepGraph) Order() int { return len(g.nodes) }

// Visit implements the yourbasic/graph.Iterator interface, with vertex v
// standing for the node whose key is v.
func (g *DepGraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	id := int64(v)
	if _, ok := g.nodes[id]; !ok {
		return false
	}
	for to := range g.forward[id] {
		if do(int(to), 1) {
			return true
		}
	}
	return false
}

// NodeIterator implements gonum's graph.Nodes.
type NodeIterator struct {
	graph *DepGraph
	ids   []int64
	cur   int
}

// Next implements graph.Nodes.
func (it *NodeIterator) Next() bool {
	if it.cur+1 < len(it.ids) {
		it.cur++
		return true
	}
	return false
}

// Len implements graph.Nodes.
func (it *NodeIterator) Len() int { return len(it.ids) - (it.cur + 1) }

// Reset implements graph.Nodes.
func (it *NodeIterator) Reset() { it.cur = -1 }

// Node implements graph.Nodes.
func (it *NodeIterator) Node() graph.Node { return it.graph.nodes[it.ids[it.cur]] }

// DepEdge implements gonum's graph.Edge.
type DepEdge struct{ from, to DepNode }

// From implements graph.Edge.
func (e DepEdge) From() graph.Node { return e.from }

// To implements graph.Edge.
func (e DepEdge) To() graph.Node { return e.to }

// ReversedEdge implements graph.Edge.
func (e DepEdge) ReversedEdge() graph.Edge { return DepEdge{from: e.to, to: e.from} }
