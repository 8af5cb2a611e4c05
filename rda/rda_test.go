package rda

import (
	"testing"

	"github.com/dgcore/slicer/dg"
	"github.com/dgcore/slicer/offset"
	"github.com/dgcore/slicer/pta"
)

// buildStore creates a STORE PSNode writing through a pointer that points,
// as a must-alias singleton, at alloc+off, plus the dg.DGNode that carries
// it. value is the PSNode whose points-to set flows into the destination.
func buildStore(alloc *pta.PSNode, off offset.Offset, value *pta.PSNode, key dg.Key) (*dg.DGNode, *pta.PSNode) {
	dst := pta.NewNode(pta.Gep)
	dst.AddPointsTo(pta.Pointer{Target: alloc, Offset: off})

	store := pta.NewNode(pta.Store)
	store.Operands = []*pta.PSNode{value, dst}

	n := dg.NewNode(key, dg.KindStmt)
	return n, store
}

func buildLoad(alloc *pta.PSNode, off offset.Offset, key dg.Key) (*dg.DGNode, *pta.PSNode) {
	src := pta.NewNode(pta.Gep)
	src.AddPointsTo(pta.Pointer{Target: alloc, Offset: off})

	load := pta.NewNode(pta.Load)
	load.Operands = []*pta.PSNode{src}

	n := dg.NewNode(key, dg.KindStmt)
	return n, load
}

func TestMustAliasStoreKillsPriorDefAtSameOffset(t *testing.T) {
	alloc := pta.NewAllocNode(pta.Alloc, offset.Offset(8), false)
	obj := pta.NewMemoryObject(alloc)
	resolve := pta.FlowInsensitiveResolver(map[*pta.PSNode]*pta.MemoryObject{alloc: obj})

	v1 := pta.NewNode(pta.Constant)
	v1.AddPointsTo(pta.PointerNull)
	v2 := pta.NewNode(pta.Constant)
	v2.AddPointsTo(pta.PointerNull)

	s1, ps1 := buildStore(alloc, 0, v1, 1)
	s2, ps2 := buildStore(alloc, 0, v2, 2)
	load, psLoad := buildLoad(alloc, 0, 3)

	byPS := map[*dg.DGNode]*pta.PSNode{s1: ps1, s2: ps2, load: psLoad}
	psNodeOf := func(n *dg.DGNode) *pta.PSNode { return byPS[n] }

	b := dg.NewBasicBlock(0)
	b.Nodes = []*dg.DGNode{s1, s2, load}

	a := NewAnalysis([]*dg.BasicBlock{b}, psNodeOf, resolve)
	a.Run()

	reaching := a.ReachingAt(load)
	if len(reaching) != 1 {
		t.Fatalf("expected exactly one reaching def at the load, got %d", len(reaching))
	}
	for d := range reaching {
		if d.Store != s2 {
			t.Fatalf("expected s2 to have killed s1's def at the same offset, reaching def is from %v", d.Store)
		}
	}
}

func TestMayDefsFromBothBranchesReachTheJoin(t *testing.T) {
	alloc := pta.NewAllocNode(pta.Alloc, offset.Offset(8), false)
	obj := pta.NewMemoryObject(alloc)
	resolve := pta.FlowInsensitiveResolver(map[*pta.PSNode]*pta.MemoryObject{alloc: obj})

	v1 := pta.NewNode(pta.Constant)
	v1.AddPointsTo(pta.PointerNull)
	v2 := pta.NewNode(pta.Constant)
	v2.AddPointsTo(pta.PointerNull)

	s1, ps1 := buildStore(alloc, 0, v1, 1)
	s2, ps2 := buildStore(alloc, 0, v2, 2)
	load, psLoad := buildLoad(alloc, 0, 3)

	byPS := map[*dg.DGNode]*pta.PSNode{s1: ps1, s2: ps2, load: psLoad}
	psNodeOf := func(n *dg.DGNode) *pta.PSNode { return byPS[n] }

	thenB := dg.NewBasicBlock(0)
	thenB.Nodes = []*dg.DGNode{s1}
	elseB := dg.NewBasicBlock(1)
	elseB.Nodes = []*dg.DGNode{s2}
	join := dg.NewBasicBlock(2)
	join.Nodes = []*dg.DGNode{load}

	dg.AddSuccessor(thenB, join)
	dg.AddSuccessor(elseB, join)

	a := NewAnalysis([]*dg.BasicBlock{thenB, elseB, join}, psNodeOf, resolve)
	a.Run()

	reaching := a.ReachingAt(load)
	if len(reaching) != 2 {
		t.Fatalf("expected both branch stores to reach the join, got %d defs", len(reaching))
	}
}
