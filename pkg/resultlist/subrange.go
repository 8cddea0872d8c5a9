package resultlist

// subRange is a view of rows [start, end) of a parent view. It has its own
// closed flag but also reports closed once the parent is; closing it never
// touches the parent's provider.
type subRange[T any] struct {
	list[T]
	start, end int
}

func newSubRange[T any](parent *list[T], start, end int, at func(int) (slot[T], error)) *subRange[T] {
	c := &core[T]{
		strategy: parent.strategy,
		parent:   parent,
		size:     -1,
		equal:    parent.equal,
		ctx:      parent.ctx,
		logger:   parent.logger,
		metrics:  parent.metrics,
	}

	if n, ok := parent.LenIfKnown(); ok {
		c.size = max(0, min(end, n)-start)
	}

	s := &subRange[T]{start: start, end: end}
	s.list = indexed(c, s.slotAt(at), s.sizeOf(parent, at))
	return s
}

func (s *subRange[T]) slotAt(at func(int) (slot[T], error)) func(int) (slot[T], error) {
	return func(index int) (slot[T], error) {
		if index >= s.end-s.start {
			return pastEndSlot[T](), nil
		}
		return at(s.start + index)
	}
}

// sizeOf probes the last index of the range and only scans the range when
// the parent ends inside it. The parent is never sized.
func (s *subRange[T]) sizeOf(parent *list[T], at func(int) (slot[T], error)) func() (int, error) {
	return func() (int, error) {
		if n, ok := parent.LenIfKnown(); ok {
			return max(0, min(s.end, n)-s.start), nil
		}
		if s.end == s.start {
			return 0, nil
		}

		last, err := at(s.end - 1)
		if err != nil {
			return 0, err
		}
		if last.ok() {
			return s.end - s.start, nil
		}
		return countSlots(s.slotAt(at))
	}
}

// Bounds returns the parent indices the sub-range covers
func (s *subRange[T]) Bounds() (start, end int) {
	return s.start, s.end
}
