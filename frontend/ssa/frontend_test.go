package ssa

import (
	"testing"

	"github.com/dgcore/slicer/pta"
)

func TestAllocSelfPointerSatisfiesInvariant(t *testing.T) {
	ps := pta.NewNode(pta.Alloc)
	allocSelfPointer(ps)

	pts := ps.PointsTo()
	if _, ok := pts[pta.Pointer{Target: ps, Offset: 0}]; !ok {
		t.Fatalf("allocSelfPointer did not add (self, 0), got %v", pts)
	}
}

func TestLinkOperandIsBidirectional(t *testing.T) {
	dst := pta.NewNode(pta.Phi)
	src := pta.NewNode(pta.Alloc)

	linkOperand(dst, src)

	if len(dst.Operands) != 1 || dst.Operands[0] != src {
		t.Fatalf("linkOperand did not append to Operands: %v", dst.Operands)
	}
	if len(src.Successors) != 1 || src.Successors[0] != dst {
		t.Fatalf("linkOperand did not add the reverse Successors link: %v", src.Successors)
	}
}

func TestLinkOperandsLinksEveryOperand(t *testing.T) {
	dst := pta.NewNode(pta.Phi)
	a, b, c := pta.NewNode(pta.Alloc), pta.NewNode(pta.Alloc), pta.NewNode(pta.Alloc)

	linkOperands(dst, a, b, c)

	if len(dst.Operands) != 3 {
		t.Fatalf("Operands = %v, want 3 entries", dst.Operands)
	}
	for _, op := range []*pta.PSNode{a, b, c} {
		if len(op.Successors) != 1 || op.Successors[0] != dst {
			t.Fatalf("operand %v missing reverse Successors link: %v", op, op.Successors)
		}
	}
}

func TestFrontendKeyIsMonotonicAndUnique(t *testing.T) {
	f := &Frontend{}
	seen := map[uint64]bool{}
	var prev uint64
	for i := 0; i < 5; i++ {
		k := f.key()
		if seen[uint64(k)] {
			t.Fatalf("key() repeated %d", k)
		}
		if i > 0 && uint64(k) <= prev {
			t.Fatalf("key() = %d after %d, want strictly increasing", k, prev)
		}
		seen[uint64(k)] = true
		prev = uint64(k)
	}
}
