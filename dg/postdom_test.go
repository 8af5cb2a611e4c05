package dg

import "testing"

// buildDiamond builds:
//
//	entry -> (then | else) -> join -> exit
//
// entry has two successors (the branch), both merge at join.
func buildDiamond() (entry, thenB, elseB, join, exit *BasicBlock) {
	entry = NewBasicBlock(0)
	thenB = NewBasicBlock(1)
	elseB = NewBasicBlock(2)
	join = NewBasicBlock(3)
	exit = NewBasicBlock(4)

	entry.Nodes = []*DGNode{NewNode(0, KindStmt)}
	thenB.Nodes = []*DGNode{NewNode(1, KindStmt)}
	elseB.Nodes = []*DGNode{NewNode(2, KindStmt)}
	join.Nodes = []*DGNode{NewNode(3, KindStmt)}
	exit.Nodes = []*DGNode{NewNode(4, KindExit)}

	AddSuccessor(entry, thenB)
	AddSuccessor(entry, elseB)
	AddSuccessor(thenB, join)
	AddSuccessor(elseB, join)
	AddSuccessor(join, exit)
	return
}

func TestPostDominatorTreeOnDiamond(t *testing.T) {
	entry, thenB, elseB, join, exit := buildDiamond()
	blocks := []*BasicBlock{entry, thenB, elseB, join, exit}

	root := ComputePostDominators(blocks)
	if root != exit {
		t.Fatalf("expected the unique exit block to be the post-dominator tree root")
	}
	if thenB.PostDom != join || elseB.PostDom != join {
		t.Fatalf("expected both branches to be post-dominated by join")
	}
	if join.PostDom != exit {
		t.Fatalf("expected join to be post-dominated by exit")
	}
	if entry.PostDom != join {
		t.Fatalf("expected entry's nearest post-dominator to be join (skipping the branch), got %v", entry.PostDom)
	}
}

func TestControlDependenceOnDiamondBranches(t *testing.T) {
	entry, thenB, elseB, join, exit := buildDiamond()
	blocks := []*BasicBlock{entry, thenB, elseB, join, exit}

	ComputePostDominators(blocks)
	ComputePDFrontier(blocks)
	AddControlDependencies(blocks)

	entryTerm := entry.Terminator()
	if _, ok := thenB.Nodes[0].CtrlDepsIn()[entryTerm]; !ok {
		t.Fatalf("expected thenB's node to be control-dependent on entry's terminator")
	}
	if _, ok := elseB.Nodes[0].CtrlDepsIn()[entryTerm]; !ok {
		t.Fatalf("expected elseB's node to be control-dependent on entry's terminator")
	}
	if _, ok := join.Nodes[0].CtrlDepsIn()[entryTerm]; ok {
		t.Fatalf("join post-dominates entry's branch targets, so it must not be control-dependent on entry")
	}
}

func TestSyntheticSinkForMultipleExits(t *testing.T) {
	a := NewBasicBlock(0)
	b := NewBasicBlock(1)
	a.Nodes = []*DGNode{NewNode(0, KindStmt)}
	b.Nodes = []*DGNode{NewNode(1, KindStmt)}
	// two independent exit blocks, no shared successor
	root := ComputePostDominators([]*BasicBlock{a, b})
	if root == a || root == b {
		t.Fatalf("expected a synthetic sink to be synthesized as the root for multiple exits")
	}
}
