package pta

import (
	"fmt"
	"sync/atomic"

	"github.com/dgcore/slicer/offset"
)

// Kind identifies the role a PSNode plays in the pointer subgraph.
type Kind int

const (
	NullAddr Kind = iota
	UnknownMem
	Invalidated
	Alloc
	DynAlloc
	Function
	Load
	Store
	Gep
	Cast
	Phi
	Call
	CallFuncPtr
	CallReturn
	Return
	Memcpy
	Constant
	Entry
	Noop
	Free
	InvalidateLocals
)

func (k Kind) String() string {
	switch k {
	case NullAddr:
		return "null-addr"
	case UnknownMem:
		return "unknown-mem"
	case Invalidated:
		return "invalidated"
	case Alloc:
		return "alloc"
	case DynAlloc:
		return "dyn-alloc"
	case Function:
		return "function"
	case Load:
		return "load"
	case Store:
		return "store"
	case Gep:
		return "gep"
	case Cast:
		return "cast"
	case Phi:
		return "phi"
	case Call:
		return "call"
	case CallFuncPtr:
		return "call-funcptr"
	case CallReturn:
		return "call-return"
	case Return:
		return "return"
	case Memcpy:
		return "memcpy"
	case Constant:
		return "constant"
	case Entry:
		return "entry"
	case Noop:
		return "noop"
	case Free:
		return "free"
	case InvalidateLocals:
		return "invalidate-locals"
	default:
		return "?"
	}
}

var nextNodeID uint64

// Subgraph groups the PSNodes belonging to one procedure instance.
type Subgraph struct {
	Name  string
	Entry *PSNode
	Nodes []*PSNode
}

// PSNode is a tagged node of the pointer subgraph. Its fields are a union
// over everything the different kinds need; only the fields relevant to
// Kind are meaningful for a given node.
type PSNode struct {
	id       uint64
	kind     Kind
	Operands []*PSNode
	pointsTo PointsToSet

	Parent      *Subgraph
	Successors  []*PSNode

	// Gep
	GepOffset offset.Offset

	// Memcpy
	MemcpySource *PSNode
	MemcpyDest   *PSNode
	MemcpyLen    offset.Offset

	// Alloc / DynAlloc
	AllocSize     offset.Offset
	AllocZeroInit bool
	Global        bool

	// Function
	Owned *Subgraph

	Name string
}

// NewNode allocates a plain PSNode of the given kind with a fresh id.
func NewNode(kind Kind) *PSNode {
	return &PSNode{id: atomic.AddUint64(&nextNodeID, 1), kind: kind, pointsTo: NewPointsToSet()}
}

// NewAllocNode allocates an ALLOC/DYN_ALLOC/FUNCTION node and pre-populates
// its self pointer, as required by the ALLOC|DYN_ALLOC|FUNCTION invariant.
func NewAllocNode(kind Kind, size offset.Offset, zeroInit bool) *PSNode {
	n := NewNode(kind)
	n.AllocSize = size
	n.AllocZeroInit = zeroInit
	n.pointsTo.Insert(Pointer{Target: n, Offset: 0})
	return n
}

// ID returns the node's unique identifier.
func (n *PSNode) ID() uint64 { return n.id }

// Kind returns the node's kind tag.
func (n *PSNode) Kind() Kind { return n.kind }

// IsHeap reports whether the node is a dynamic (heap) allocation.
func (n *PSNode) IsHeap() bool { return n.kind == DynAlloc }

// PointsTo returns the node's points-to set. Callers must not mutate the
// returned set directly; use AddPointsTo.
func (n *PSNode) PointsTo() PointsToSet { return n.pointsTo }

// AddPointsTo inserts p into the node's points-to set, returning whether it
// changed.
func (n *PSNode) AddPointsTo(p Pointer) bool {
	if n.pointsTo == nil {
		n.pointsTo = NewPointsToSet()
	}
	return n.pointsTo.Insert(p)
}

// AddPointsToUnknownOffset replaces every pointer to target at a concrete
// offset with a single pointer to target at Offset.Unknown.
func (n *PSNode) AddPointsToUnknownOffset(target *PSNode) bool {
	changed := false
	for p := range n.pointsTo {
		if p.Target == target && !p.Offset.IsUnknown() {
			delete(n.pointsTo, p)
			changed = true
		}
	}
	if n.AddPointsTo(Pointer{Target: target, Offset: offset.Unknown}) {
		changed = true
	}
	return changed
}

// SingleSuccessor returns the node's only successor, panicking if there is
// not exactly one. Used by INVALIDATE_LOCALS' parent-fixup transfer.
func (n *PSNode) SingleSuccessor() *PSNode {
	if len(n.Successors) != 1 {
		panic(&AssertViolation{Node: n, Msg: fmt.Sprintf("expected exactly one successor, got %d", len(n.Successors))})
	}
	return n.Successors[0]
}

func (n *PSNode) String() string {
	if n.Name != "" {
		return fmt.Sprintf("%s[%d]", n.Name, n.id)
	}
	return fmt.Sprintf("%s[%d]", n.kind, n.id)
}
