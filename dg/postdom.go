package dg

// ComputePostDominators builds the post-dominator tree for blocks by
// iterative dataflow on the reverse CFG (Cooper, Harvey & Kennedy's
// engineered algorithm, run successor-wise instead of predecessor-wise). If
// blocks has more than one block with no successors, a synthetic sink is
// added and linked from all of them, exactly as the source requires a
// unique exit. The sink is not appended to blocks; it is reachable only as
// the returned root and as the successor of the former exit blocks.
//
// Returns the tree root (the block with no post-dominator, i.e. the unique
// exit or the synthetic sink).
func ComputePostDominators(blocks []*BasicBlock) *BasicBlock {
	exit := uniqueExit(blocks)

	order := reversePostorder(exit)
	rpoIndex := make(map[*BasicBlock]int, len(order))
	for i, b := range order {
		rpoIndex[b] = i
	}

	exit.PostDom = nil
	changed := true
	for changed {
		changed = false
		for i := len(order) - 1; i >= 0; i-- {
			b := order[i]
			if b == exit {
				continue
			}
			var newIdom *BasicBlock
			for _, succ := range b.Successors {
				if _, ok := rpoIndex[succ]; !ok {
					continue
				}
				if succ.PostDom == nil && succ != exit {
					continue
				}
				if newIdom == nil {
					newIdom = succ
					continue
				}
				newIdom = intersectPostDom(newIdom, succ, rpoIndex)
			}
			if newIdom != nil && b.PostDom != newIdom {
				b.PostDom = newIdom
				changed = true
			}
		}
	}
	return exit
}

func intersectPostDom(a, b *BasicBlock, rpoIndex map[*BasicBlock]int) *BasicBlock {
	for a != b {
		for rpoIndex[a] > rpoIndex[b] {
			a = a.PostDom
			if a == nil {
				return b
			}
		}
		for rpoIndex[b] > rpoIndex[a] {
			b = b.PostDom
			if b == nil {
				return a
			}
		}
	}
	return a
}

// uniqueExit returns the sole no-successor block, or synthesizes and returns
// a sink linked from every no-successor block if there is more than one.
func uniqueExit(blocks []*BasicBlock) *BasicBlock {
	var exits []*BasicBlock
	for _, b := range blocks {
		if len(b.Successors) == 0 {
			exits = append(exits, b)
		}
	}
	if len(exits) == 1 {
		return exits[0]
	}
	sink := NewBasicBlock(-1)
	for _, b := range exits {
		AddSuccessor(b, sink)
	}
	return sink
}

// reversePostorder walks the reverse CFG (successors of exit are its
// predecessors in the forward CFG) and returns blocks in reverse-postorder,
// the order the post-dominator fixpoint needs for fast convergence.
func reversePostorder(exit *BasicBlock) []*BasicBlock {
	var order []*BasicBlock
	visited := map[*BasicBlock]struct{}{}
	var visit func(b *BasicBlock)
	visit = func(b *BasicBlock) {
		if _, ok := visited[b]; ok {
			return
		}
		visited[b] = struct{}{}
		for _, pred := range b.Predecessors {
			visit(pred)
		}
		order = append(order, b)
	}
	visit(exit)
	reversed := make([]*BasicBlock, len(order))
	for i, b := range order {
		reversed[len(order)-1-i] = b
	}
	return reversed
}

// ComputePDFrontier computes the standard Cytron-style post-dominance
// frontier for every block already assigned a PostDom by
// ComputePostDominators: for each b, PDF(b) is the set of blocks x such that
// b post-dominates some successor of x but does not strictly post-dominate x
// itself.
func ComputePDFrontier(blocks []*BasicBlock) {
	for _, b := range blocks {
		b.Frontier = map[*BasicBlock]struct{}{}
	}
	for _, x := range blocks {
		if len(x.Successors) < 2 {
			continue
		}
		for _, succ := range x.Successors {
			runner := succ
			for runner != nil && runner != x.PostDom {
				runner.Frontier[x] = struct{}{}
				runner = runner.PostDom
			}
		}
	}
}

// AddControlDependencies inserts a control-dependence edge from v's
// terminator to u for every u in a block in v's post-dominance frontier,
// i.e. node u is control-dependent on v iff v ∈ PDF(block(u)).
// ComputePDFrontier must have already run.
func AddControlDependencies(blocks []*BasicBlock) {
	for _, u := range blocks {
		for v := range u.Frontier {
			term := v.Terminator()
			for _, n := range u.Nodes {
				term.AddCtrlDep(n)
			}
		}
	}
}
