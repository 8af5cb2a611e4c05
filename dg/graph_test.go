package dg

import "testing"

func TestAddNodeRejectsDuplicateKey(t *testing.T) {
	g := NewGraph("f")
	n1 := NewNode(1, KindStmt)
	n2 := NewNode(1, KindStmt)
	if !g.AddNode(1, n1) {
		t.Fatalf("first AddNode should succeed")
	}
	if g.AddNode(1, n2) {
		t.Fatalf("AddNode with a duplicate key must fail silently, not overwrite")
	}
	if g.GetNode(1) != n1 {
		t.Fatalf("duplicate AddNode must not have replaced the original node")
	}
}

func TestGetNodeFallsThroughToFormalsThenGlobals(t *testing.T) {
	g := NewGraph("f")
	formal := NewNode(10, KindFormalIn)
	g.AddFormal(10, formal)
	global := NewNode(20, KindGlobal)
	g.AddGlobalNode(20, global)

	if g.GetNode(10) != formal {
		t.Fatalf("expected GetNode to find the formal parameter")
	}
	if g.GetNode(20) != global {
		t.Fatalf("expected GetNode to fall through to the global container")
	}
	if g.GetNode(99) != nil {
		t.Fatalf("expected nil for an unknown key")
	}
}

func TestAddGlobalNodeOnNonOwningEmptyContainerPanics(t *testing.T) {
	owner := NewGraph("owner")
	owner.AddGlobalNode(1, NewNode(1, KindGlobal))

	other := NewGraph("other")
	other.SetGlobalNodes(owner)
	if other.OwnsGlobalNodes() {
		t.Fatalf("other must not own a shared container it did not create")
	}
	// shared container is non-empty, so this must succeed without panicking
	other.AddGlobalNode(2, NewNode(2, KindGlobal))
	if !owner.OwnsGlobalNodes() {
		t.Fatalf("owner must still be the owner after other adds to the shared container")
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected AddGlobalNode to panic on a non-owning, empty shared container")
		}
	}()
	empty := NewGraph("empty")
	empty.global = &globalNodes{nodes: map[Key]*DGNode{}, owner: owner}
	empty.AddGlobalNode(3, NewNode(3, KindGlobal))
}

func TestRemoveNodeIsolatesEdgesButDoesNotDestroy(t *testing.T) {
	g := NewGraph("f")
	a := NewNode(1, KindStmt)
	b := NewNode(2, KindStmt)
	g.AddNode(1, a)
	g.AddNode(2, b)
	a.AddDataDep(b)

	removed := g.RemoveNode(1)
	if removed != a {
		t.Fatalf("expected RemoveNode to return the removed node")
	}
	if len(b.DataDepsIn()) != 0 {
		t.Fatalf("expected b's incoming data edge from a to be severed")
	}
	if g.GetNode(1) != nil {
		t.Fatalf("expected the node to be gone from the graph")
	}
}

func TestRefUnrefLifecycle(t *testing.T) {
	g := NewGraph("callee")
	if g.RefCount() != 1 {
		t.Fatalf("expected initial refcount 1, got %d", g.RefCount())
	}
	g.Ref()
	if g.RefCount() != 2 {
		t.Fatalf("expected refcount 2 after Ref, got %d", g.RefCount())
	}
	if g.Unref() {
		t.Fatalf("Unref from 2 must not report zero")
	}
	if !g.Unref() {
		t.Fatalf("Unref from 1 must report zero")
	}
}
