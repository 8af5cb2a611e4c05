// Package defuse links LOAD dg nodes to the STORE dg nodes that may have
// produced the value they read, turning the reaching-definitions dataflow
// (package rda) and the points-to analysis (package pta) into concrete
// data-dependence edges on the dependence graph (package dg).
//
// A LOAD's candidate defs are the intersection of two independent sources
// of truth: RDA says which STOREs are live at that program point at all;
// PTA says which memory object the LOAD is actually reading through. Only a
// def that agrees with both is wired in, which is what keeps the resulting
// slice precise instead of degenerating to "every store before every load".
package defuse

import (
	"github.com/dgcore/slicer/dg"
	"github.com/dgcore/slicer/offset"
	"github.com/dgcore/slicer/pta"
	"github.com/dgcore/slicer/rda"
)

// Linker wires STORE -> LOAD data-dependence edges from a completed RDA run
// and the same PSNodeOf/Resolve pair RDA used.
type Linker struct {
	RDA      *rda.Analysis
	PSNodeOf func(*dg.DGNode) *pta.PSNode
	Resolve  pta.ObjectResolver
}

// Run links every LOAD in nodes to its reaching defs, and returns the
// number of data-dependence edges added.
func (l *Linker) Run(nodes []*dg.DGNode) int {
	added := 0
	for _, n := range nodes {
		ps := l.PSNodeOf(n)
		if ps == nil || ps.Kind() != pta.Load {
			continue
		}
		added += l.linkLoad(n, ps)
	}
	return added
}

func (l *Linker) linkLoad(loadStmt *dg.DGNode, loadPS *pta.PSNode) int {
	op := loadPS.Operands[0]
	reaching := l.RDA.ReachingAt(loadStmt)
	added := 0

	for p := range op.PointsTo() {
		if !p.IsValid() || p.IsInvalidated() {
			continue
		}
		objs := l.Resolve(loadPS, p)
		for _, obj := range objs {
			for d := range reaching {
				if d.Object != obj {
					continue
				}
				if !overlaps(d.Offset, p.Offset) {
					continue
				}
				if d.Store.AddDataDep(loadStmt) {
					added++
				}
			}
		}
	}
	return added
}

// overlaps reports whether a STORE at offset a and a LOAD at offset b may
// name the same location: their offsets are equal, or either is Unknown.
// An Unknown offset on either side can mean any offset, so it is treated as
// a potential match rather than a mismatch.
func overlaps(a, b offset.Offset) bool {
	if a.IsUnknown() || b.IsUnknown() {
		return true
	}
	return a.Eq(b)
}

// LinkActualToFormal adds a data-dependence edge from each actual argument
// node to the corresponding formal-in parameter node of the callee, in
// argument order. It is the call-boundary counterpart of linkLoad: a
// formal-in parameter is always "defined" by its actual at the call site,
// with no points-to test needed since the binding is positional.
func LinkActualToFormal(actuals []*dg.DGNode, formals []*dg.DGNode) int {
	added := 0
	n := len(actuals)
	if len(formals) < n {
		n = len(formals)
	}
	for i := 0; i < n; i++ {
		if actuals[i].AddDataDep(formals[i]) {
			added++
		}
	}
	return added
}

// LinkFormalToActual adds a data-dependence edge from each formal-out
// (named/aliased return) parameter node to the call site's corresponding
// actual-out node, the return-side mirror of LinkActualToFormal.
func LinkFormalToActual(formalOuts []*dg.DGNode, actualOuts []*dg.DGNode) int {
	added := 0
	n := len(formalOuts)
	if len(actualOuts) < n {
		n = len(actualOuts)
	}
	for i := 0; i < n; i++ {
		if formalOuts[i].AddDataDep(actualOuts[i]) {
			added++
		}
	}
	return added
}
