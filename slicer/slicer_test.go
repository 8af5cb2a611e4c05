package slicer

import (
	"testing"

	"github.com/dgcore/slicer/dg"
)

func TestMarkCrossesCallBindingIntoCallee(t *testing.T) {
	caller := dg.NewGraph("caller")
	callee := dg.NewGraph("callee")

	call := dg.NewNode(1, dg.KindCall)
	caller.AddNode(1, call)

	entry := dg.NewNode(1, dg.KindEntry)
	callee.AddNode(1, entry)
	callee.SetEntry(entry)
	call.CallBinding = entry

	s := New()
	s.Mark([]*dg.DGNode{call}, 7)

	if entry.SliceID != 7 {
		t.Fatalf("expected marking the call to pull in the callee's entry via CallBinding")
	}
}

func TestMarkAscendsFromEntryToCallers(t *testing.T) {
	caller := dg.NewGraph("caller")
	callee := dg.NewGraph("callee")

	call := dg.NewNode(1, dg.KindCall)
	caller.AddNode(1, call)

	entry := dg.NewNode(1, dg.KindEntry)
	callee.AddNode(1, entry)
	callee.SetEntry(entry)
	callee.AddCaller(call)

	s := New()
	s.Mark([]*dg.DGNode{entry}, 9)

	if call.SliceID != 9 {
		t.Fatalf("expected marking the callee's entry to pull in its call sites via Callers()")
	}
}

func TestMarkFollowsDataAndControlEdgesBackward(t *testing.T) {
	g := dg.NewGraph("f")
	a := dg.NewNode(1, dg.KindStmt)
	b := dg.NewNode(2, dg.KindStmt)
	c := dg.NewNode(3, dg.KindStmt)
	g.AddNode(1, a)
	g.AddNode(2, b)
	g.AddNode(3, c)
	a.AddDataDep(b)
	b.AddCtrlDep(c)

	s := New()
	s.Mark([]*dg.DGNode{c}, 1)

	if a.SliceID != 1 || b.SliceID != 1 || c.SliceID != 1 {
		t.Fatalf("expected the backward closure from c to reach a and b through data/control edges")
	}
}

func TestSliceRemovesUnmarkedNodes(t *testing.T) {
	g := dg.NewGraph("f")
	a := dg.NewNode(1, dg.KindStmt)
	b := dg.NewNode(2, dg.KindStmt)
	g.AddNode(1, a)
	g.AddNode(2, b)

	s := New()
	s.Mark([]*dg.DGNode{a}, 5)

	block := dg.NewBasicBlock(0)
	block.Nodes = []*dg.DGNode{a, b}

	s.Slice(g, []*dg.BasicBlock{block}, 5)

	if g.GetNode(1) == nil {
		t.Fatalf("expected the marked node a to survive")
	}
	if g.GetNode(2) != nil {
		t.Fatalf("expected the unmarked node b to be deleted")
	}
	total, removed := s.GetStatistics()
	if total != 2 || removed != 1 {
		t.Fatalf("expected total=2 removed=1, got total=%d removed=%d", total, removed)
	}
}

func TestKeepFunctionUntouchedSkipsSlicing(t *testing.T) {
	g := dg.NewGraph("keepme")
	a := dg.NewNode(1, dg.KindStmt)
	b := dg.NewNode(2, dg.KindStmt)
	g.AddNode(1, a)
	g.AddNode(2, b)

	s := New()
	s.KeepFunctionUntouched("keepme")
	// nothing marked at all, every node would otherwise be removed
	s.Slice(g, nil, 42)

	if g.Size() != 2 {
		t.Fatalf("expected an untouched function to keep all its nodes, got size %d", g.Size())
	}
}

func TestResolveCriterionRet(t *testing.T) {
	g := dg.NewGraph("main")
	exit := dg.NewNode(1, dg.KindExit)
	g.AddNode(1, exit)
	g.SetExit(exit)

	n, err := ResolveCriterion("ret", nil, g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != exit {
		t.Fatalf("expected \"ret\" to resolve to the entry procedure's exit node")
	}
}

func TestPruneBlocksBypassesEmptyBlock(t *testing.T) {
	a := dg.NewBasicBlock(0)
	b := dg.NewBasicBlock(1)
	c := dg.NewBasicBlock(2)
	aNode := dg.NewNode(1, dg.KindStmt)
	bNode := dg.NewNode(2, dg.KindStmt)
	cNode := dg.NewNode(3, dg.KindStmt)
	a.Nodes = []*dg.DGNode{aNode}
	b.Nodes = []*dg.DGNode{bNode}
	c.Nodes = []*dg.DGNode{cNode}
	dg.AddSuccessor(a, b)
	dg.AddSuccessor(b, c)

	aNode.SliceID = 1
	cNode.SliceID = 1
	// bNode left at slice id 0: pruned

	live := pruneBlocks([]*dg.BasicBlock{a, b, c}, 1)

	if len(live) != 2 {
		t.Fatalf("expected the empty block to be dropped, got %d live blocks", len(live))
	}
	found := false
	for _, succ := range a.Successors {
		if succ == c {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a to be re-linked directly to c after b was bypassed")
	}
	for _, pred := range c.Predecessors {
		if pred == b {
			t.Fatalf("expected b to be fully detached from c's predecessors")
		}
	}
}
