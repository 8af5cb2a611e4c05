// Package offset implements the saturating offset algebra used by the
// points-to engine to represent structural offsets into memory objects.
package offset

import "fmt"

// Offset is a non-negative byte offset into a memory object, or the
// distinguished value Unknown. It is represented as a plain uint64 with all
// bits set standing for Unknown, mirroring how the analysis this package is
// modeled on represents "no concrete offset known".
type Offset uint64

// Unknown is the top element of the offset lattice: "some offset, but we
// don't know which one". It absorbs every arithmetic operation it touches.
const Unknown Offset = ^Offset(0)

// DefaultMaxOffset is the default saturation ceiling for offset arithmetic:
// additions that would land at or above this value become Unknown instead
// of wrapping. Callers analyzing programs with larger flat objects should
// raise it explicitly.
const DefaultMaxOffset Offset = 1<<32 - 1

// IsUnknown reports whether o is the Unknown sentinel.
func (o Offset) IsUnknown() bool { return o == Unknown }

// Eq implements offset equality under the lattice rule that Unknown is
// incomparable to anything but itself.
func (o Offset) Eq(other Offset) bool {
	if o.IsUnknown() || other.IsUnknown() {
		return o.IsUnknown() && other.IsUnknown()
	}
	return o == other
}

// Le reports whether o <= other. Any comparison involving Unknown is false,
// except Unknown.Le(Unknown), which falls under the "equal to itself" case.
func (o Offset) Le(other Offset) bool {
	if o.IsUnknown() || other.IsUnknown() {
		return o.Eq(other)
	}
	return o <= other
}

// Add computes o + other, saturating to Unknown if either operand is
// Unknown, if the addition overflows a uint64, or if the result would be
// at or beyond ceiling.
func (o Offset) Add(other Offset, ceiling Offset) Offset {
	if o.IsUnknown() || other.IsUnknown() {
		return Unknown
	}
	sum := uint64(o) + uint64(other)
	if sum < uint64(o) { // wrapped
		return Unknown
	}
	if !ceiling.IsUnknown() && sum >= uint64(ceiling) {
		return Unknown
	}
	return Offset(sum)
}

// Sub computes o - other. Sub(Unknown, _) and Sub(_, Unknown) are Unknown,
// as is any subtraction that would go negative.
func (o Offset) Sub(other Offset) Offset {
	if o.IsUnknown() || other.IsUnknown() {
		return Unknown
	}
	if other > o {
		return Unknown
	}
	return o - other
}

func (o Offset) String() string {
	if o.IsUnknown() {
		return "?"
	}
	return fmt.Sprintf("%d", uint64(o))
}
