// Package rda computes Reaching-Definitions: for every program point, the
// set of STORE statements whose written value may still be live there. It
// is the dataflow half of def-use linking; package defuse resolves a LOAD's
// reaching definitions against the points-to analysis to add the actual
// data-dependence edges.
//
// The analysis is a standard monotone forward dataflow problem: meet is set
// union, and a store only kills a previous definition when it is a
// must-alias singleton write to a concrete offset — every other store is a
// may-def that is added to, never subtracted from, the running set.
package rda

import (
	"github.com/dgcore/slicer/dg"
	"github.com/dgcore/slicer/internal/funcutil"
	"github.com/dgcore/slicer/offset"
	"github.com/dgcore/slicer/pta"
)

// Def names one reaching definition: a STORE dg node that wrote through
// Object at Offset.
type Def struct {
	Store  *dg.DGNode
	Object *pta.MemoryObject
	Offset offset.Offset
}

// DefSet is a set of Defs.
type DefSet map[Def]struct{}

func (s DefSet) clone() DefSet {
	out := make(DefSet, len(s))
	for d := range s {
		out[d] = struct{}{}
	}
	return out
}

func (s DefSet) union(other DefSet) DefSet {
	funcutil.Merge(s, other, func(struct{}, struct{}) struct{} { return struct{}{} })
	return s
}

// Analysis runs reaching-definitions over a procedure's basic blocks.
// PSNodeOf maps a STORE dg node to its PSNode so the analysis can read the
// destination operand's points-to set; Resolve is the same ObjectResolver
// the points-to engine used to produce that points-to information.
type Analysis struct {
	Blocks   []*dg.BasicBlock
	PSNodeOf func(*dg.DGNode) *pta.PSNode
	Resolve  pta.ObjectResolver

	in, out map[*dg.BasicBlock]DefSet
	before  map[*dg.DGNode]DefSet
}

// NewAnalysis builds an Analysis ready to Run over blocks.
func NewAnalysis(blocks []*dg.BasicBlock, psNodeOf func(*dg.DGNode) *pta.PSNode, resolve pta.ObjectResolver) *Analysis {
	return &Analysis{
		Blocks:   blocks,
		PSNodeOf: psNodeOf,
		Resolve:  resolve,
		in:       map[*dg.BasicBlock]DefSet{},
		out:      map[*dg.BasicBlock]DefSet{},
		before:   map[*dg.DGNode]DefSet{},
	}
}

// Run iterates the forward dataflow to a fixpoint, recording the reaching
// set immediately before every node along the way so ReachingAt is O(1)
// afterward.
func (a *Analysis) Run() {
	for _, b := range a.Blocks {
		a.in[b] = DefSet{}
		a.out[b] = DefSet{}
	}

	changed := true
	for changed {
		changed = false
		for _, b := range a.Blocks {
			merged := DefSet{}
			for _, pred := range b.Predecessors {
				merged.union(a.out[pred])
			}
			a.in[b] = merged

			result := a.transferBlock(b, merged)
			if !setEqual(result, a.out[b]) {
				a.out[b] = result
				changed = true
			}
		}
	}
}

// transferBlock runs the per-node transfer function across b's nodes in
// order, recording the before-snapshot of each node as it goes.
func (a *Analysis) transferBlock(b *dg.BasicBlock, entry DefSet) DefSet {
	cur := entry.clone()
	for _, n := range b.Nodes {
		a.before[n] = cur.clone()
		cur = a.transferNode(n, cur)
	}
	return cur
}

func (a *Analysis) transferNode(n *dg.DGNode, in DefSet) DefSet {
	if n.Kind() != dg.KindStmt {
		return in
	}
	ps := a.PSNodeOf(n)
	if ps == nil || ps.Kind() != pta.Store {
		return in
	}
	dst := ps.Operands[1]
	pts := dst.PointsTo()

	if len(pts) == 1 {
		for p := range pts {
			if p.Offset.IsUnknown() {
				break
			}
			objs := a.Resolve(ps, p)
			if len(objs) == 1 {
				out := DefSet{}
				for d := range in {
					if d.Object == objs[0] && d.Offset == p.Offset {
						continue
					}
					out[d] = struct{}{}
				}
				out[Def{Store: n, Object: objs[0], Offset: p.Offset}] = struct{}{}
				return out
			}
		}
	}

	out := in.clone()
	for p := range pts {
		for _, o := range a.Resolve(ps, p) {
			out[Def{Store: n, Object: o, Offset: p.Offset}] = struct{}{}
		}
	}
	return out
}

// ReachingAt returns the definitions reaching n, i.e. the state immediately
// before n executes. Run must have completed first.
func (a *Analysis) ReachingAt(n *dg.DGNode) DefSet {
	return a.before[n]
}

func setEqual(a, b DefSet) bool {
	if len(a) != len(b) {
		return false
	}
	for d := range a {
		if _, ok := b[d]; !ok {
			return false
		}
	}
	return true
}
