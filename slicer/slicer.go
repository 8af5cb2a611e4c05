// Package slicer computes a program slice over a dependence graph built by
// package dg: Mark performs a backward closure from one or more criteria,
// crossing procedure boundaries through call-binding edges and caller
// sets, and Slice prunes everything Mark did not reach.
package slicer

import (
	"fmt"

	"github.com/dgcore/slicer/dg"
)

// Slicer drives one Mark/Slice pass. A Slicer is single-use per slice id:
// construct a new one (or call Mark again with a fresh id) for each slice.
type Slicer struct {
	untouched map[string]bool

	totalBefore int
	removed     int
}

// New returns a Slicer with no functions marked untouched.
func New() *Slicer {
	return &Slicer{untouched: map[string]bool{}}
}

// KeepFunctionUntouched excludes every node of the named procedure from
// pruning: Slice skips that procedure's graph entirely, regardless of which
// of its nodes Mark reached. Used to protect exported API surface or
// functions named on the command line from being gutted by the slice.
func (s *Slicer) KeepFunctionUntouched(name string) {
	s.untouched[name] = true
}

// IsUntouched reports whether name was passed to KeepFunctionUntouched.
func (s *Slicer) IsUntouched(name string) bool {
	return s.untouched[name]
}

// Mark performs the backward closure from criteria, tagging every node (and
// every node's owning graph) it reaches with sid. Nodes already tagged sid
// are not revisited, so Mark may be called repeatedly with the same sid to
// add more criteria to one slice before calling Slice.
//
// Three kinds of edge are followed backward: the three intraprocedural
// edge sets on DGNode (data, control, use — already bidirectional, so the
// *In accessors give the reverse edges directly); the call-binding edge
// from a call site down into the callee's entry, so a reachable call pulls
// in the procedure it calls; and a procedure's caller set, so reaching a
// procedure's entry pulls in every call site that can invoke it.
func (s *Slicer) Mark(criteria []*dg.DGNode, sid uint64) uint64 {
	queue := make([]*dg.DGNode, 0, len(criteria))
	queue = append(queue, criteria...)

	for len(queue) > 0 {
		n := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		if n.SliceID == sid {
			continue
		}
		n.SliceID = sid
		if g := n.DG(); g != nil {
			g.SetSlice(sid)
		}

		for m := range n.DataDepsIn() {
			queue = append(queue, m)
		}
		for m := range n.CtrlDepsIn() {
			queue = append(queue, m)
		}
		for m := range n.UsesIn() {
			queue = append(queue, m)
		}
		if n.CallBinding != nil {
			queue = append(queue, n.CallBinding)
		}
		if n.Kind() == dg.KindEntry {
			if g := n.DG(); g != nil {
				for caller := range g.Callers() {
					queue = append(queue, caller)
				}
			}
		}
	}
	return sid
}

// ResolveCriterion maps a textual slicing criterion to a dg node. The
// literal name "ret" is special: it resolves to entryProc's exit node,
// letting a user request "the slice that determines the return value of
// main" without naming an internal dg key. Any other name is looked up in
// nodesByName, which the caller supplies; cmd/slicer maps each function's
// name to that function's entry node.
func ResolveCriterion(name string, nodesByName map[string]*dg.DGNode, entryProc *dg.DependenceGraph) (*dg.DGNode, error) {
	if name == "ret" {
		if entryProc == nil || entryProc.Exit() == nil {
			return nil, fmt.Errorf("slicer: %q criterion requires an entry procedure with an exit node", name)
		}
		return entryProc.Exit(), nil
	}
	if n, ok := nodesByName[name]; ok {
		return n, nil
	}
	return nil, fmt.Errorf("slicer: no node found for criterion %q", name)
}

// Slice prunes g down to the nodes Mark tagged with sid, then re-stitches
// blocks' CFG around any basic block left empty by the pruning. It is a
// no-op, keeping the whole procedure, if g's name was passed to
// KeepFunctionUntouched. Slice must be called once per procedure graph
// after all criteria have been Marked. It returns the live blocks (dead
// ones, now fully bypassed, are dropped from the returned slice); callers
// that still need post-dominance information afterward must re-run
// dg.ComputePostDominators on the result.
func (s *Slicer) Slice(g *dg.DependenceGraph, blocks []*dg.BasicBlock, sid uint64) []*dg.BasicBlock {
	if s.untouched[g.Name] {
		s.totalBefore += g.Size()
		return blocks
	}

	var toDelete []dg.Key
	for key, n := range g.Nodes() {
		s.totalBefore++
		if n.SliceID != sid {
			toDelete = append(toDelete, key)
		}
	}
	for _, key := range toDelete {
		if g.DeleteNode(key) {
			s.removed++
		}
	}

	return pruneBlocks(blocks, sid)
}

// pruneBlocks drops pruned nodes from every block's Nodes slice, then
// removes any block left empty by splicing its predecessors directly to
// its successors, so the CFG stays connected for whatever runs next
// (typically a fresh ComputePostDominators/AddControlDependencies pass).
func pruneBlocks(blocks []*dg.BasicBlock, sid uint64) []*dg.BasicBlock {
	for _, b := range blocks {
		kept := b.Nodes[:0]
		for _, n := range b.Nodes {
			if n.SliceID == sid {
				kept = append(kept, n)
			}
		}
		b.Nodes = kept
	}

	var live []*dg.BasicBlock
	for _, b := range blocks {
		if len(b.Nodes) == 0 {
			bypassEmptyBlock(b)
			continue
		}
		live = append(live, b)
	}
	return live
}

// bypassEmptyBlock removes b from the CFG by linking every predecessor of b
// directly to every successor of b, then detaching b on both sides.
func bypassEmptyBlock(b *dg.BasicBlock) {
	for _, pred := range b.Predecessors {
		pred.Successors = removeBlock(pred.Successors, b)
		for _, succ := range b.Successors {
			if succ == b {
				continue
			}
			pred.Successors = addBlockOnce(pred.Successors, succ)
			succ.Predecessors = addBlockOnce(succ.Predecessors, pred)
		}
	}
	for _, succ := range b.Successors {
		succ.Predecessors = removeBlock(succ.Predecessors, b)
	}
	b.Successors, b.Predecessors = nil, nil
}

func removeBlock(list []*dg.BasicBlock, target *dg.BasicBlock) []*dg.BasicBlock {
	out := list[:0]
	for _, b := range list {
		if b != target {
			out = append(out, b)
		}
	}
	return out
}

func addBlockOnce(list []*dg.BasicBlock, b *dg.BasicBlock) []*dg.BasicBlock {
	for _, existing := range list {
		if existing == b {
			return list
		}
	}
	return append(list, b)
}

// GetStatistics returns the total node count observed across every Slice
// call so far, and how many of those were removed.
func (s *Slicer) GetStatistics() (total, removed int) {
	return s.totalBefore, s.removed
}

// Ratio returns the fraction of nodes the slice kept, in [0, 1]. A Slicer
// that has not sliced anything yet reports a ratio of 1 (nothing removed of
// nothing).
func (s *Slicer) Ratio() float64 {
	if s.totalBefore == 0 {
		return 1
	}
	return float64(s.totalBefore-s.removed) / float64(s.totalBefore)
}
