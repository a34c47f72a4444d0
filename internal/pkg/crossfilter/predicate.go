package crossfilter

import (
	"cmp"
	"slices"
)

type predicateKind uint8

const (
	acceptAll predicateKind = iota
	acceptRange
	acceptKeys
)

// Predicate selects the keys of a dimension.
//
// The zero value accepts all keys.
type Predicate[K cmp.Ordered] struct {
	kind predicateKind
	lo   K
	hi   K
	keys []K
}

// All yields a [Predicate] accepting every key.
func All[K cmp.Ordered]() Predicate[K] {
	return Predicate[K]{}
}

// Range yields a [Predicate] accepting keys in the half-open interval [lo, hi).
//
// Bounds given in reverse order are swapped.
func Range[K cmp.Ordered](lo, hi K) Predicate[K] {
	if hi < lo {
		lo, hi = hi, lo
	}

	return Predicate[K]{
		kind: acceptRange,
		lo:   lo,
		hi:   hi,
	}
}

// Exact yields a [Predicate] accepting only the given keys.
func Exact[K cmp.Ordered](keys ...K) Predicate[K] {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)

	return Predicate[K]{
		kind: acceptKeys,
		keys: slices.Compact(sorted),
	}
}

// IsAll reports whether the predicate accepts every key.
func (p Predicate[K]) IsAll() bool {
	return p.kind == acceptAll
}

// Bounds yields the bounds of a range predicate.
func (p Predicate[K]) Bounds() (lo, hi K, ok bool) {
	if p.kind != acceptRange {
		return lo, hi, false
	}

	return p.lo, p.hi, true
}

// Keys yields the accepted keys of an exact predicate, in ascending order.
func (p Predicate[K]) Keys() ([]K, bool) {
	if p.kind != acceptKeys {
		return nil, false
	}

	return slices.Clone(p.keys), true
}

// Accepts reports whether a key passes the predicate.
func (p Predicate[K]) Accepts(key K) bool {
	switch p.kind {
	case acceptRange:
		return key >= p.lo && key < p.hi
	case acceptKeys:
		_, found := slices.BinarySearch(p.keys, key)

		return found
	default:
		return true
	}
}

// Equal reports whether two predicates select the same keys by construction.
func (p Predicate[K]) Equal(other Predicate[K]) bool {
	if p.kind != other.kind {
		return false
	}

	switch p.kind {
	case acceptRange:
		return p.lo == other.lo && p.hi == other.hi
	case acceptKeys:
		return slices.Equal(p.keys, other.keys)
	default:
		return true
	}
}
