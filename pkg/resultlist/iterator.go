package resultlist

// Iterator walks a view from a starting index. It shares state with the view
// it came from: once the view is closed, Next reports false even in the
// middle of an iteration.
//
//	it := view.Iter()
//	for it.Next() {
//		use(it.Value())
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
type Iterator[T any] struct {
	owner interface{ IsClosed() bool }
	next  nextFunc[T]

	index int
	value T
	err   error
	done  bool
}

func newIterator[T any](owner interface{ IsClosed() bool }, start int, next nextFunc[T]) *Iterator[T] {
	return &Iterator[T]{owner: owner, next: next, index: start - 1}
}

func failedIterator[T any](owner interface{ IsClosed() bool }, err error) *Iterator[T] {
	return &Iterator[T]{owner: owner, err: err, done: true, index: -1}
}

// Next advances to the next row. It returns false at the end, after an
// error, or once the owning view is closed.
func (it *Iterator[T]) Next() bool {
	if it.done {
		return false
	}
	if it.owner.IsClosed() {
		it.finish()
		return false
	}

	row, ok, err := it.next()
	if err != nil {
		it.err = err
		it.finish()
		return false
	}
	if !ok {
		it.finish()
		return false
	}

	it.index++
	it.value = row
	return true
}

func (it *Iterator[T]) finish() {
	it.done = true
	var zero T
	it.value = zero
}

// Value returns the row Next moved to
func (it *Iterator[T]) Value() T {
	return it.value
}

// Index returns the position of Value in the view
func (it *Iterator[T]) Index() int {
	return it.index
}

// Err returns the error that ended the iteration, if any
func (it *Iterator[T]) Err() error {
	return it.err
}
