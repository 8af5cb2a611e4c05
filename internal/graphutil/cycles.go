package graphutil

import (
	ybgraph "github.com/yourbasic/graph"

	"github.com/dgcore/slicer/dg"
)

// RecursiveFunctions reports, for a call graph expressed as a DepGraph whose
// nodes are call-site or entry DGNodes, the sets of mutually recursive
// functions: every strongly connected component of size greater than one,
// plus any node that calls itself directly.
//
// It runs yourbasic/graph's StrongComponents rather than re-deriving SCCs
// with the generic Tarjan walk in scc.go. g's edges are first copied into a
// yourbasic graph whose vertices are numbered 0..n-1, since the library
// expects that dense numbering and g's ids are dg keys.
func RecursiveFunctions(g *DepGraph) [][]*dg.DGNode {
	idxToID := make(map[int]int64, len(g.nodes))
	idByID := make(map[int64]int, len(g.nodes))
	idxToNode := make(map[int]*dg.DGNode, len(g.nodes))
	i := 0
	for id, n := range g.nodes {
		idxToID[i] = id
		idByID[id] = i
		idxToNode[i] = n.N
		i++
	}

	fg := ybgraph.New(len(g.nodes))
	for id := range g.nodes {
		for to := range g.forward[id] {
			fg.AddCost(idByID[id], idByID[to], 1)
		}
	}

	components := ybgraph.StrongComponents(fg)
	var out [][]*dg.DGNode
	for _, comp := range components {
		if len(comp) > 1 {
			nodes := make([]*dg.DGNode, len(comp))
			for j, v := range comp {
				nodes[j] = idxToNode[v]
			}
			out = append(out, nodes)
			continue
		}
		v := comp[0]
		id := idxToID[v]
		if g.forward[id][id] {
			out = append(out, []*dg.DGNode{idxToNode[v]})
		}
	}
	return out
}
