package pta

import "github.com/dgcore/slicer/offset"

// MemoryObject holds the offset-indexed points-to information for one
// allocation site. It is created one-to-one with an ALLOC, DYN_ALLOC or
// FUNCTION PSNode.
type MemoryObject struct {
	Alloc   *PSNode
	offsets map[offset.Offset]PointsToSet
}

// NewMemoryObject creates an (initially empty) memory object for alloc.
func NewMemoryObject(alloc *PSNode) *MemoryObject {
	return &MemoryObject{Alloc: alloc, offsets: map[offset.Offset]PointsToSet{}}
}

// AddPointsTo records that the location at off may point to p, returning
// whether anything changed.
func (m *MemoryObject) AddPointsTo(off offset.Offset, p Pointer) bool {
	set, ok := m.offsets[off]
	if !ok {
		set = NewPointsToSet()
		m.offsets[off] = set
	}
	return set.Insert(p)
}

// PointsTo returns the points-to set stored at off, and whether an entry
// exists at all (an object can legitimately have no entry at a queried
// offset, which is not the same as an empty set once one was created).
func (m *MemoryObject) PointsTo(off offset.Offset) (PointsToSet, bool) {
	set, ok := m.offsets[off]
	return set, ok
}

// Offsets returns the full offset -> points-to-set map. Used by MEMCPY and
// by LOAD when the queried offset is itself Unknown.
func (m *MemoryObject) Offsets() map[offset.Offset]PointsToSet {
	return m.offsets
}

// IsEmpty reports whether the object has no recorded offsets at all.
func (m *MemoryObject) IsEmpty() bool { return len(m.offsets) == 0 }
