package crossfilter

import (
	"cmp"
	"fmt"
	"slices"
	"sort"
)

// Dimension indexes the records of a [Filter] by a key derived from each record.
//
// Keys are derived once when a record is added and cached: the key function must be pure.
//
// The index keeps record ids sorted by key (ties in insertion order) for range lookups, and
// a key to records map for exact lookups.
type Dimension[T any, K cmp.Ordered] struct {
	f         *Filter[T]
	name      string
	bit       uint64
	keyOf     func(T) K
	keys      []K
	order     []int
	buckets   map[K][]int
	predicate Predicate[K]
}

// NewDimension registers a new dimension on a [Filter], keyed by keyOf.
//
// Records already held by the filter are indexed immediately.
func NewDimension[T any, K cmp.Ordered](f *Filter[T], name string, keyOf func(T) K) (*Dimension[T, K], error) {
	d := &Dimension[T, K]{
		f:       f,
		name:    name,
		keyOf:   keyOf,
		buckets: make(map[K][]int),
	}

	bit, err := f.register(d)
	if err != nil {
		return nil, err
	}

	d.bit = bit
	d.insert(0)

	return d, nil
}

// SetFilter applies a predicate to the named dimension of a [Filter].
//
// It reports whether the selection changed.
func SetFilter[T any, K cmp.Ordered](f *Filter[T], name string, p Predicate[K]) (bool, error) {
	dim, err := f.Dimension(name)
	if err != nil {
		return false, err
	}

	d, ok := dim.(*Dimension[T, K])
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrKeyType, name)
	}

	return d.Filter(p), nil
}

// Name of the dimension.
func (d *Dimension[T, K]) Name() string {
	return d.name
}

// Predicate currently applied.
func (d *Dimension[T, K]) Predicate() Predicate[K] {
	return d.predicate
}

// IsFiltered reports whether the dimension has an active filter.
func (d *Dimension[T, K]) IsFiltered() bool {
	return !d.predicate.IsAll()
}

// Filter replaces the predicate of this dimension.
//
// Only the records whose acceptance changes are visited, and their membership is
// propagated to the groups of all other dimensions. Applying an equal predicate is a no-op.
//
// It reports whether the predicate changed.
func (d *Dimension[T, K]) Filter(p Predicate[K]) bool {
	previous := d.predicate
	if previous.Equal(p) {
		return false
	}

	d.predicate = p

	var exited, entered []int
	d.each(previous, func(id int) {
		if !p.Accepts(d.keys[id]) {
			exited = append(exited, id)
		}
	})
	d.each(p, func(id int) {
		if !previous.Accepts(d.keys[id]) {
			entered = append(entered, id)
		}
	})

	d.f.toggle(d.bit, exited, entered)

	return true
}

// FilterRange keeps the records with a key in [lo, hi).
func (d *Dimension[T, K]) FilterRange(lo, hi K) bool {
	return d.Filter(Range(lo, hi))
}

// FilterExact keeps the records with one of the given keys.
func (d *Dimension[T, K]) FilterExact(keys ...K) bool {
	return d.Filter(Exact(keys...))
}

// FilterAll removes the filter of this dimension.
func (d *Dimension[T, K]) FilterAll() bool {
	return d.Filter(All[K]())
}

// Bottom returns at most n selected records with the lowest keys.
//
// Records with equal keys are returned in insertion order.
func (d *Dimension[T, K]) Bottom(n int) []T {
	result := make([]T, 0, n)
	for _, id := range d.order {
		if len(result) >= n {
			break
		}

		if d.f.masks[id] == 0 {
			result = append(result, d.f.records[id])
		}
	}

	return result
}

// Top returns at most n selected records with the highest keys.
func (d *Dimension[T, K]) Top(n int) []T {
	result := make([]T, 0, n)
	for i := len(d.order) - 1; i >= 0 && len(result) < n; i-- {
		id := d.order[i]
		if d.f.masks[id] == 0 {
			result = append(result, d.f.records[id])
		}
	}

	return result
}

// Keys returns the distinct keys present among all records held, in ascending order.
func (d *Dimension[T, K]) Keys() []K {
	keys := make([]K, 0, len(d.buckets))
	for key := range d.buckets {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	return keys
}

// each visits the records accepted by p.
func (d *Dimension[T, K]) each(p Predicate[K], visit func(id int)) {
	switch p.kind {
	case acceptRange:
		lo := sort.Search(len(d.order), func(i int) bool { return d.keys[d.order[i]] >= p.lo })
		hi := sort.Search(len(d.order), func(i int) bool { return d.keys[d.order[i]] >= p.hi })
		for _, id := range d.order[lo:hi] {
			visit(id)
		}
	case acceptKeys:
		for _, key := range p.keys {
			for _, id := range d.buckets[key] {
				visit(id)
			}
		}
	default:
		for _, id := range d.order {
			visit(id)
		}
	}
}

func (d *Dimension[T, K]) keyOfID(id int) K {
	return d.keys[id]
}

func (d *Dimension[T, K]) insert(from int) {
	records := d.f.records
	for id := from; id < len(records); id++ {
		key := d.keyOf(records[id])
		d.keys = append(d.keys, key)
		d.order = append(d.order, id)
		d.buckets[key] = append(d.buckets[key], id)

		if !d.predicate.Accepts(key) {
			d.f.masks[id] |= d.bit
		}
	}

	slices.SortStableFunc(d.order, func(a, b int) int {
		return cmp.Compare(d.keys[a], d.keys[b])
	})
}

func (d *Dimension[T, K]) reset() {
	d.keys = d.keys[:0]
	d.order = d.order[:0]
	clear(d.buckets)
}
