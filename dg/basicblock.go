package dg

// BasicBlock groups an ordered run of DGNodes belonging to one procedure. It
// is built by the frontend, not by this package; ComputePostDominators and
// AddControlDependencies consume the Successors/Predecessors links the
// frontend populates.
type BasicBlock struct {
	ID    int
	Nodes []*DGNode

	Successors   []*BasicBlock
	Predecessors []*BasicBlock

	// PostDom is the block's parent in the post-dominator tree, nil for the
	// tree root (the synthetic or unique exit block).
	PostDom *BasicBlock
	// Frontier is the post-dominance frontier computed by ComputePDFrontier.
	Frontier map[*BasicBlock]struct{}
}

// NewBasicBlock allocates an empty block.
func NewBasicBlock(id int) *BasicBlock {
	return &BasicBlock{ID: id, Frontier: map[*BasicBlock]struct{}{}}
}

// AddSuccessor links from as a predecessor of to.
func AddSuccessor(from, to *BasicBlock) {
	from.Successors = append(from.Successors, to)
	to.Predecessors = append(to.Predecessors, from)
}

// Terminator returns the block's last node, which carries the condition (if
// any) control-dependent nodes depend on. Panics on an empty block, which
// the frontend must never construct.
func (b *BasicBlock) Terminator() *DGNode {
	if len(b.Nodes) == 0 {
		panic("dg: empty basic block has no terminator")
	}
	return b.Nodes[len(b.Nodes)-1]
}
