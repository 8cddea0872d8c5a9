package resultlist

import (
	"fmt"
	"iter"
)

// nextFunc yields rows one by one and reports false once past the end
type nextFunc[T any] func() (T, bool, error)

// list implements the read-only surface of a view over two primitives: at
// resolves one index and from opens a cursor at an index. Index-addressable
// strategies supply at and derive from; cursor-addressable ones do the
// reverse. The algorithms below only see the primitives.
type list[T any] struct {
	*core[T]
	readOnly[T]

	at     func(index int) (slot[T], error)
	from   func(index int) nextFunc[T]
	sizeOf func() (int, error)

	// sub optionally serves SubRange without going through at
	sub func(start, end int) (View[T], bool)
}

// indexed builds a list whose cursors call at with increasing indices.
func indexed[T any](c *core[T], at func(int) (slot[T], error), sizeOf func() (int, error)) list[T] {
	return list[T]{
		core:   c,
		at:     at,
		from:   func(index int) nextFunc[T] { return indexCursor(at, index) },
		sizeOf: sizeOf,
	}
}

// sequential builds a list whose indexed reads open a cursor at the index.
// at may be nil, or a faster way to resolve a single index.
func sequential[T any](c *core[T], from func(int) nextFunc[T], at func(int) (slot[T], error), sizeOf func() (int, error)) list[T] {
	if at == nil {
		at = func(index int) (slot[T], error) { return firstSlot(from(index)) }
	}
	return list[T]{
		core:   c,
		at:     at,
		from:   from,
		sizeOf: sizeOf,
	}
}

func indexCursor[T any](at func(int) (slot[T], error), index int) nextFunc[T] {
	return func() (T, bool, error) {
		s, err := at(index)
		if err != nil || !s.ok() {
			var zero T
			return zero, false, err
		}
		index++
		return s.row, true, nil
	}
}

func firstSlot[T any](next nextFunc[T]) (slot[T], error) {
	row, ok, err := next()
	if err != nil || !ok {
		return pastEndSlot[T](), err
	}
	return valueSlot(row), nil
}

// countSlots scans at from zero until the first past-end slot.
func countSlots[T any](at func(int) (slot[T], error)) (int, error) {
	for i := 0; ; i++ {
		s, err := at(i)
		if err != nil {
			return 0, err
		}
		if !s.ok() {
			return i, nil
		}
	}
}

// search returns the first (or last) index whose row matches, or -1.
func search[T any](next nextFunc[T], match func(T) bool, last bool) (int, error) {
	found := -1
	for i := 0; ; i++ {
		row, ok, err := next()
		if err != nil {
			return -1, err
		}
		if !ok {
			return found, nil
		}
		if match(row) {
			found = i
			if !last {
				return found, nil
			}
		}
	}
}

func collect[T any](next nextFunc[T]) ([]T, error) {
	rows := []T{}
	for {
		row, ok, err := next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

func (l *list[T]) Get(index int) (T, error) {
	var zero T
	if err := l.checkOpen(); err != nil {
		return zero, err
	}
	if index < 0 {
		return zero, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	s, err := l.at(index)
	if err != nil {
		return zero, err
	}
	if !s.ok() {
		return zero, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return s.row, nil
}

func (l *list[T]) Size() (int, error) {
	if err := l.checkOpen(); err != nil {
		return 0, err
	}
	if l.size >= 0 {
		return l.size, nil
	}

	n, err := l.sizeOf()
	if err != nil {
		return 0, err
	}
	l.size = n
	return n, nil
}

func (l *list[T]) Contains(row T) (bool, error) {
	i, err := l.IndexOf(row)
	return i >= 0, err
}

func (l *list[T]) IndexOf(row T) (int, error) {
	if err := l.checkOpen(); err != nil {
		return -1, err
	}
	return search(l.from(0), func(candidate T) bool { return l.equal(candidate, row) }, false)
}

func (l *list[T]) LastIndexOf(row T) (int, error) {
	if err := l.checkOpen(); err != nil {
		return -1, err
	}
	return search(l.from(0), func(candidate T) bool { return l.equal(candidate, row) }, true)
}

func (l *list[T]) Iter() *Iterator[T] {
	return l.IterFrom(0)
}

func (l *list[T]) IterFrom(index int) *Iterator[T] {
	if index < 0 {
		return failedIterator[T](l, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index))
	}
	return newIterator(l, index, l.from(index))
}

func (l *list[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		it := l.Iter()
		for it.Next() {
			if !yield(it.Value(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			var zero T
			yield(zero, err)
		}
	}
}

func (l *list[T]) Materialize() ([]T, error) {
	if err := l.checkOpen(); err != nil {
		return nil, err
	}
	return collect(l.from(0))
}

func (l *list[T]) SubRange(start, end int) (View[T], error) {
	if err := l.checkOpen(); err != nil {
		return nil, err
	}
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: [%d, %d)", ErrIndexOutOfRange, start, end)
	}
	if n, ok := l.LenIfKnown(); ok && end > n {
		return nil, fmt.Errorf("%w: [%d, %d) of %d rows", ErrIndexOutOfRange, start, end, n)
	}

	if l.sub != nil {
		if view, ok := l.sub(start, end); ok {
			return view, nil
		}
	}
	return newSubRange(l, start, end, l.at), nil
}
