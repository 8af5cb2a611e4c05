package defuse

import (
	"testing"

	"github.com/dgcore/slicer/dg"
	"github.com/dgcore/slicer/offset"
	"github.com/dgcore/slicer/pta"
	"github.com/dgcore/slicer/rda"
)

func buildStore(alloc *pta.PSNode, off offset.Offset, key dg.Key) (*dg.DGNode, *pta.PSNode) {
	value := pta.NewNode(pta.Constant)
	value.AddPointsTo(pta.PointerNull)

	dst := pta.NewNode(pta.Gep)
	dst.AddPointsTo(pta.Pointer{Target: alloc, Offset: off})

	store := pta.NewNode(pta.Store)
	store.Operands = []*pta.PSNode{value, dst}

	return dg.NewNode(key, dg.KindStmt), store
}

func buildLoad(alloc *pta.PSNode, off offset.Offset, key dg.Key) (*dg.DGNode, *pta.PSNode) {
	src := pta.NewNode(pta.Gep)
	src.AddPointsTo(pta.Pointer{Target: alloc, Offset: off})

	load := pta.NewNode(pta.Load)
	load.Operands = []*pta.PSNode{src}

	return dg.NewNode(key, dg.KindStmt), load
}

func TestLinkerAddsDataDepFromStoreToLoad(t *testing.T) {
	alloc := pta.NewAllocNode(pta.Alloc, offset.Offset(8), false)
	obj := pta.NewMemoryObject(alloc)
	resolve := pta.FlowInsensitiveResolver(map[*pta.PSNode]*pta.MemoryObject{alloc: obj})

	store, psStore := buildStore(alloc, 0, 1)
	load, psLoad := buildLoad(alloc, 0, 2)

	byPS := map[*dg.DGNode]*pta.PSNode{store: psStore, load: psLoad}
	psNodeOf := func(n *dg.DGNode) *pta.PSNode { return byPS[n] }

	b := dg.NewBasicBlock(0)
	b.Nodes = []*dg.DGNode{store, load}

	a := rda.NewAnalysis([]*dg.BasicBlock{b}, psNodeOf, resolve)
	a.Run()

	linker := &Linker{RDA: a, PSNodeOf: psNodeOf, Resolve: resolve}
	added := linker.Run([]*dg.DGNode{store, load})

	if added != 1 {
		t.Fatalf("expected exactly one data-dependence edge, got %d", added)
	}
	if _, ok := store.DataDepsOut()[load]; !ok {
		t.Fatalf("expected a data-dependence edge from the store to the load")
	}
}

func TestLinkerSkipsLoadFromDisjointOffset(t *testing.T) {
	alloc := pta.NewAllocNode(pta.Alloc, offset.Offset(8), false)
	obj := pta.NewMemoryObject(alloc)
	resolve := pta.FlowInsensitiveResolver(map[*pta.PSNode]*pta.MemoryObject{alloc: obj})

	store, psStore := buildStore(alloc, 0, 1)
	load, psLoad := buildLoad(alloc, 4, 2)

	byPS := map[*dg.DGNode]*pta.PSNode{store: psStore, load: psLoad}
	psNodeOf := func(n *dg.DGNode) *pta.PSNode { return byPS[n] }

	b := dg.NewBasicBlock(0)
	b.Nodes = []*dg.DGNode{store, load}

	a := rda.NewAnalysis([]*dg.BasicBlock{b}, psNodeOf, resolve)
	a.Run()

	linker := &Linker{RDA: a, PSNodeOf: psNodeOf, Resolve: resolve}
	added := linker.Run([]*dg.DGNode{store, load})

	if added != 0 {
		t.Fatalf("expected no edge for a load at a disjoint offset, got %d", added)
	}
}

func TestLinkActualToFormalIsPositional(t *testing.T) {
	a1, a2 := dg.NewNode(1, dg.KindStmt), dg.NewNode(2, dg.KindStmt)
	f1, f2 := dg.NewNode(10, dg.KindFormalIn), dg.NewNode(11, dg.KindFormalIn)

	added := LinkActualToFormal([]*dg.DGNode{a1, a2}, []*dg.DGNode{f1, f2})
	if added != 2 {
		t.Fatalf("expected 2 edges, got %d", added)
	}
	if _, ok := a1.DataDepsOut()[f1]; !ok {
		t.Fatalf("expected a1 -> f1")
	}
	if _, ok := a2.DataDepsOut()[f2]; !ok {
		t.Fatalf("expected a2 -> f2")
	}
}
