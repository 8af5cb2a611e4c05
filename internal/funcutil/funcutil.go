// Package funcutil is a small generics toolkit used throughout the engine
// for set and option plumbing: Optional[T] for "maybe absent" results,
// Merge/Union for combining map-represented sets, and a handful of slice
// helpers. None of it is engine-specific; it exists so the rest of the
// module doesn't hand-roll the same three lines of generic code repeatedly.
package funcutil

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// Optional holds a value or none.
type Optional[T any] interface {
	// ValueOr returns the value if present, otherwise defaultVal.
	ValueOr(defaultVal T) T
	// Value returns the value, panicking if none.
	Value() T
	// IsSome reports whether the optional holds a value.
	IsSome() bool
	// IsNone reports whether the optional holds no value.
	IsNone() bool
}

type some[T any] struct{ value T }

func (s some[T]) ValueOr(T) T      { return s.value }
func (s some[T]) Value() T         { return s.value }
func (s some[T]) IsSome() bool     { return true }
func (s some[T]) IsNone() bool     { return false }
func (s some[T]) String() string   { return fmt.Sprintf("%v", s.value) }

type none[T any] struct{}

func (n none[T]) ValueOr(defaultVal T) T { return defaultVal }
func (n none[T]) Value() T               { panic(n) }
func (n none[T]) IsSome() bool           { return false }
func (n none[T]) IsNone() bool           { return true }
func (n none[T]) String() string         { return "none" }

// Some wraps a value as a present Optional.
func Some[T any](x T) Optional[T] { return some[T]{x} }

// None returns an absent Optional.
func None[T any]() Optional[T] { return none[T]{} }

// Merge merges b into a: keys only in b are copied over; keys in both are
// combined with both. Mutates a.
func Merge[T comparable, S any](a map[T]S, b map[T]S, both func(x, y S) S) {
	for k, vb := range b {
		if va, ok := a[k]; ok {
			a[k] = both(va, vb)
		} else {
			a[k] = vb
		}
	}
}

// Union returns the union of the two map-represented sets, mutating a.
func Union[T comparable](a, b map[T]bool) map[T]bool {
	Merge(a, b, func(x, y bool) bool { return x || y })
	return a
}

// SetToOrderedSlice returns the keys of set sorted ascending.
func SetToOrderedSlice[T constraints.Ordered](set map[T]bool) []T {
	out := make([]T, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	insertionSort(out)
	return out
}

func insertionSort[T constraints.Ordered](a []T) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j-1] > a[j]; j-- {
			a[j-1], a[j] = a[j], a[j-1]
		}
	}
}

// Map returns a new slice b with b[i] = f(a[i]).
func Map[T, S any](a []T, f func(T) S) []S {
	b := make([]S, len(a))
	for i, x := range a {
		b[i] = f(x)
	}
	return b
}

// Filter returns the elements of a for which keep returns true.
func Filter[T any](a []T, keep func(T) bool) []T {
	var out []T
	for _, x := range a {
		if keep(x) {
			out = append(out, x)
		}
	}
	return out
}

// Reverse reverses a in place.
func Reverse[T any](a []T) {
	for i, j := 0, len(a)-1; i < j; i, j = i+1, j-1 {
		a[i], a[j] = a[j], a[i]
	}
}
