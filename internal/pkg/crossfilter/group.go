package crossfilter

import (
	"cmp"
	"slices"
)

// Reducer defines how records fold into an aggregate value.
//
// Remove must be the inverse of Add: groups subtract records rather than recompute.
type Reducer[T, V any] struct {
	Init   func() V
	Add    func(V, T) V
	Remove func(V, T) V
}

// Count yields a [Reducer] counting records.
func Count[T any]() Reducer[T, int] {
	return Reducer[T, int]{
		Init:   func() int { return 0 },
		Add:    func(n int, _ T) int { return n + 1 },
		Remove: func(n int, _ T) int { return n - 1 },
	}
}

// Entry is a (key, aggregate) pair of a group table.
type Entry[K cmp.Ordered, V any] struct {
	Key   K `json:"key"`
	Value V `json:"value"`
}

type slot[V any] struct {
	value   V
	members int
}

// Group maintains one aggregate per bucket of a [Dimension].
//
// The records aggregated are those matching the filters of all other dimensions.
// Adding or removing a record costs one map lookup and one reducer call.
type Group[T any, K cmp.Ordered, V any] struct {
	dim     *Dimension[T, K]
	bucket  func(K) K
	reducer Reducer[T, V]
	slots   map[K]*slot[V]
}

// NewGroup registers a group on a dimension.
//
// The bucket function maps a dimension key to a group key; nil groups by the key itself.
func NewGroup[T any, K cmp.Ordered, V any](dim *Dimension[T, K], bucket func(K) K, reducer Reducer[T, V]) *Group[T, K, V] {
	if bucket == nil {
		bucket = func(k K) K { return k }
	}

	g := &Group[T, K, V]{
		dim:     dim,
		bucket:  bucket,
		reducer: reducer,
		slots:   make(map[K]*slot[V]),
	}
	dim.f.attach(g)

	return g
}

// All returns the group table: one entry per bucket holding at least one selected record,
// sorted by key.
//
// The returned slice is a fresh copy.
func (g *Group[T, K, V]) All() []Entry[K, V] {
	table := make([]Entry[K, V], 0, len(g.slots))
	for key, s := range g.slots {
		table = append(table, Entry[K, V]{Key: key, Value: s.value})
	}

	slices.SortFunc(table, func(a, b Entry[K, V]) int {
		return cmp.Compare(a.Key, b.Key)
	})

	return table
}

// Get the aggregate of a bucket.
func (g *Group[T, K, V]) Get(key K) (V, bool) {
	s, ok := g.slots[key]
	if !ok {
		var zero V

		return zero, false
	}

	return s.value, true
}

// Size yields the number of buckets holding at least one selected record.
func (g *Group[T, K, V]) Size() int {
	return len(g.slots)
}

func (g *Group[T, K, V]) ignored() uint64 {
	return g.dim.bit
}

func (g *Group[T, K, V]) add(id int) {
	key := g.bucket(g.dim.keyOfID(id))
	s, ok := g.slots[key]
	if !ok {
		s = &slot[V]{value: g.reducer.Init()}
		g.slots[key] = s
	}

	s.value = g.reducer.Add(s.value, g.dim.f.records[id])
	s.members++
}

func (g *Group[T, K, V]) remove(id int) {
	key := g.bucket(g.dim.keyOfID(id))
	s, ok := g.slots[key]
	if !ok {
		return
	}

	s.members--
	if s.members <= 0 {
		delete(g.slots, key)

		return
	}

	s.value = g.reducer.Remove(s.value, g.dim.f.records[id])
}

// GroupAll maintains a single aggregate over the records matching every filter.
type GroupAll[T, V any] struct {
	f       *Filter[T]
	reducer Reducer[T, V]
	value   V
	members int
}

// NewGroupAll registers a global aggregate on a [Filter].
func NewGroupAll[T, V any](f *Filter[T], reducer Reducer[T, V]) *GroupAll[T, V] {
	g := &GroupAll[T, V]{
		f:       f,
		reducer: reducer,
		value:   reducer.Init(),
	}
	f.attach(g)

	return g
}

// Value of the aggregate.
func (g *GroupAll[T, V]) Value() V {
	return g.value
}

func (*GroupAll[T, V]) ignored() uint64 {
	return 0
}

func (g *GroupAll[T, V]) add(id int) {
	g.value = g.reducer.Add(g.value, g.f.records[id])
	g.members++
}

func (g *GroupAll[T, V]) remove(id int) {
	g.members--
	if g.members <= 0 {
		g.members = 0
		g.value = g.reducer.Init()

		return
	}

	g.value = g.reducer.Remove(g.value, g.f.records[id])
}
