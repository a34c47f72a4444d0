// Package crossfilter indexes a set of records along several dimensions and maintains
// grouped aggregates incrementally while filters are applied or removed.
//
// The selection seen by a group is the conjunction of the filters of every dimension
// except the one the group belongs to: a chart never filters against its own brush.
//
// A [Filter] is not safe for concurrent use: callers serialize mutations.
package crossfilter

import (
	"errors"
	"fmt"
)

// maxDimensions is the number of filter bits available in a record mask.
const maxDimensions = 64

var (
	// ErrUnknownDimension is returned when a dimension name is not registered on a [Filter].
	ErrUnknownDimension = errors.New("unknown dimension")

	// ErrDuplicateDimension is returned when registering a dimension name twice.
	ErrDuplicateDimension = errors.New("duplicate dimension")

	// ErrTooManyDimensions is returned when more than 64 dimensions are registered.
	ErrTooManyDimensions = errors.New("too many dimensions")

	// ErrKeyType is returned when a predicate does not match the key type of a dimension.
	ErrKeyType = errors.New("predicate key type does not match dimension")
)

// Dimensioner is the key-agnostic view of a [Dimension].
type Dimensioner interface {
	Name() string
	IsFiltered() bool
	FilterAll() bool
}

type index interface {
	Dimensioner

	insert(from int)
	reset()
}

type aggregator interface {
	ignored() uint64
	add(id int)
	remove(id int)
}

// Filter holds the current set of records and the dimensions indexing them.
//
// Each record carries a mask with one bit per dimension, set when the record is
// rejected by that dimension's filter. A record is selected when its mask is zero.
type Filter[T any] struct {
	records  []T
	masks    []uint64
	selected int

	dims   []index
	byName map[string]index
	groups []aggregator
}

// New builds an empty [Filter].
func New[T any]() *Filter[T] {
	return &Filter[T]{
		byName: make(map[string]index),
	}
}

// Size yields the number of records held.
func (f *Filter[T]) Size() int {
	return len(f.records)
}

// SelectedSize yields the number of records matching every active filter.
func (f *Filter[T]) SelectedSize() int {
	return f.selected
}

// Selected returns the records matching every active filter, in insertion order.
func (f *Filter[T]) Selected() []T {
	selected := make([]T, 0, f.selected)
	for id, mask := range f.masks {
		if mask == 0 {
			selected = append(selected, f.records[id])
		}
	}

	return selected
}

// IsFiltered reports whether any dimension has an active filter.
func (f *Filter[T]) IsFiltered() bool {
	for _, d := range f.dims {
		if d.IsFiltered() {
			return true
		}
	}

	return false
}

// Dimension looks up a dimension by name.
func (f *Filter[T]) Dimension(name string) (Dimensioner, error) {
	d, ok := f.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDimension, name)
	}

	return d, nil
}

// Dimensions returns the names of the registered dimensions, in registration order.
func (f *Filter[T]) Dimensions() []string {
	names := make([]string, 0, len(f.dims))
	for _, d := range f.dims {
		names = append(names, d.Name())
	}

	return names
}

// ClearFilter removes the filter of a named dimension.
//
// It reports whether the selection changed.
func (f *Filter[T]) ClearFilter(name string) (bool, error) {
	d, err := f.Dimension(name)
	if err != nil {
		return false, err
	}

	return d.FilterAll(), nil
}

// FilterAll removes the filters of all dimensions.
//
// It reports whether the selection changed.
func (f *Filter[T]) FilterAll() bool {
	var changed bool
	for _, d := range f.dims {
		changed = d.FilterAll() || changed
	}

	return changed
}

// Add records to the filter.
//
// New records are evaluated against the active filters and added to every group whose selection they match.
func (f *Filter[T]) Add(records ...T) {
	if len(records) == 0 {
		return
	}

	from := len(f.records)
	f.records = append(f.records, records...)
	f.masks = append(f.masks, make([]uint64, len(records))...)

	for _, d := range f.dims {
		d.insert(from)
	}

	for id := from; id < len(f.records); id++ {
		mask := f.masks[id]
		if mask == 0 {
			f.selected++
		}

		for _, g := range f.groups {
			if mask&^g.ignored() == 0 {
				g.add(id)
			}
		}
	}
}

// RemoveAll removes every record held, whether selected or not.
//
// Active filters are retained and apply to records added later on.
func (f *Filter[T]) RemoveAll() {
	for id, mask := range f.masks {
		for _, g := range f.groups {
			if mask&^g.ignored() == 0 {
				g.remove(id)
			}
		}
	}

	clear(f.records)
	f.records = f.records[:0]
	f.masks = f.masks[:0]
	f.selected = 0

	for _, d := range f.dims {
		d.reset()
	}
}

// ReplaceAll substitutes the whole record set.
func (f *Filter[T]) ReplaceAll(records []T) {
	f.RemoveAll()
	f.Add(records...)
}

func (f *Filter[T]) register(d index) (uint64, error) {
	if _, exists := f.byName[d.Name()]; exists {
		return 0, fmt.Errorf("%w: %q", ErrDuplicateDimension, d.Name())
	}

	if len(f.dims) >= maxDimensions {
		return 0, fmt.Errorf("%w: at most %d dimensions are supported", ErrTooManyDimensions, maxDimensions)
	}

	bit := uint64(1) << len(f.dims)
	f.dims = append(f.dims, d)
	f.byName[d.Name()] = d

	return bit, nil
}

func (f *Filter[T]) attach(g aggregator) {
	f.groups = append(f.groups, g)

	for id, mask := range f.masks {
		if mask&^g.ignored() == 0 {
			g.add(id)
		}
	}
}

// toggle sets the filter bit of the exited records and clears it for the entered ones,
// then propagates the change to the groups.
func (f *Filter[T]) toggle(bit uint64, exited, entered []int) {
	for _, id := range exited {
		f.update(id, f.masks[id]|bit)
	}

	for _, id := range entered {
		f.update(id, f.masks[id]&^bit)
	}
}

func (f *Filter[T]) update(id int, after uint64) {
	before := f.masks[id]
	if before == after {
		return
	}

	f.masks[id] = after

	switch {
	case before == 0:
		f.selected--
	case after == 0:
		f.selected++
	}

	for _, g := range f.groups {
		ignored := g.ignored()
		was := before&^ignored == 0
		is := after&^ignored == 0

		switch {
		case was && !is:
			g.remove(id)
		case !was && is:
			g.add(id)
		}
	}
}
