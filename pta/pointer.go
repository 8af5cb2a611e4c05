// Package pta implements the pointer subgraph and the flow-sensitive,
// field-sensitive, inclusion-based points-to analysis that runs over it.
//
// The package mirrors the "pta" namespace of the dependence-graph analysis
// this tool is built around: pointers, memory objects and pointer-subgraph
// nodes are kept together because the fixpoint engine (Run) is tightly
// coupled to all three.
package pta

import "github.com/dgcore/slicer/offset"

// NullPtrNode, UnknownMemoryNode and InvalidatedNode are the three
// process-wide sentinel locations. They are created once, never destroyed,
// and compared by identity everywhere in this package.
var (
	NullPtrNode      = &PSNode{id: sentinelID, kind: NullAddr}
	UnknownMemoryNode = &PSNode{id: sentinelID, kind: UnknownMem}
	InvalidatedNode   = &PSNode{id: sentinelID, kind: Invalidated}
)

const sentinelID = ^uint64(0)

// PointerNull and PointerUnknown are the canonical pointer values for the
// null and unknown-memory sentinels.
var (
	PointerNull    = Pointer{Target: NullPtrNode, Offset: 0}
	PointerUnknown = Pointer{Target: UnknownMemoryNode, Offset: offset.Unknown}
)

// PointerInvalidated returns the canonical "invalidated" pointer value.
func PointerInvalidated() Pointer {
	return Pointer{Target: InvalidatedNode, Offset: offset.Unknown}
}

// Pointer is a (target, offset) pair naming a location inside the memory
// object associated with a PSNode allocation site.
type Pointer struct {
	Target *PSNode
	Offset offset.Offset
}

// NewPointer builds a pointer to the given target at the given offset.
func NewPointer(target *PSNode, off offset.Offset) Pointer {
	return Pointer{Target: target, Offset: off}
}

// IsNull reports whether p points at the NULLPTR sentinel.
func (p Pointer) IsNull() bool { return p.Target == NullPtrNode }

// IsUnknown reports whether p points at the UNKNOWN_MEMORY sentinel.
func (p Pointer) IsUnknown() bool { return p.Target == UnknownMemoryNode }

// IsInvalidated reports whether p points at the INVALIDATED sentinel.
func (p Pointer) IsInvalidated() bool { return p.Target == InvalidatedNode }

// IsValid reports whether p can be dereferenced at all: it is not the
// unknown-memory sentinel and it has a target. Note that a null pointer and
// an invalidated pointer are both "valid" under this definition; callers
// that must treat them specially check IsNull/IsInvalidated explicitly.
func (p Pointer) IsValid() bool { return !p.IsUnknown() && p.Target != nil }

// PointsToSet is a set of pointers with set-insert semantics.
type PointsToSet map[Pointer]struct{}

// NewPointsToSet returns an empty points-to set.
func NewPointsToSet() PointsToSet { return make(PointsToSet) }

// Insert adds p to the set and reports whether the set changed.
func (s PointsToSet) Insert(p Pointer) bool {
	if _, ok := s[p]; ok {
		return false
	}
	s[p] = struct{}{}
	return true
}

// Remove deletes p from the set and reports whether it was present.
func (s PointsToSet) Remove(p Pointer) bool {
	if _, ok := s[p]; !ok {
		return false
	}
	delete(s, p)
	return true
}

// Has reports whether p is in the set.
func (s PointsToSet) Has(p Pointer) bool {
	_, ok := s[p]
	return ok
}
