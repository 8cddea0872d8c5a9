package resultlist

import (
	"github.com/KevoDB/rowcursor/pkg/config"
	"github.com/KevoDB/rowcursor/pkg/provider"
)

// ForwardCaching reads its provider sequentially and appends every row to a
// buffer, so each row is fetched once. The provider is freed when it runs
// out of rows.
type ForwardCaching[T any] struct {
	list[T]
	buffer    []T
	exhausted bool
}

// NewForwardCaching builds a ForwardCaching view over p. Random access of p
// is never used.
func NewForwardCaching[T any](p provider.RowProvider[T], opts ...Option) (*ForwardCaching[T], error) {
	o := buildOptions(config.StrategyForward, opts)
	c := newCore(config.StrategyForward, p, o)
	if err := c.open(); err != nil {
		return nil, err
	}

	f := &ForwardCaching[T]{}
	f.list = sequential(c, f.cursorFrom, f.slotAt, f.countRows)
	f.sub = f.bufferRange
	return f, nil
}

// fill pulls rows until index is buffered or the provider is exhausted
func (f *ForwardCaching[T]) fill(index int) error {
	for len(f.buffer) <= index && !f.exhausted {
		s, err := f.fetch()
		if err != nil {
			return err
		}
		if !s.ok() {
			f.exhausted = true
			f.size = len(f.buffer)
			f.free("exhausted")
			return nil
		}
		f.buffer = append(f.buffer, s.row)
	}
	return nil
}

// slotAt serves buffered rows directly and pulls exactly one row when index
// is the next one to be read.
func (f *ForwardCaching[T]) slotAt(index int) (slot[T], error) {
	if index < len(f.buffer) {
		f.hit(true)
		return valueSlot(f.buffer[index]), nil
	}
	f.hit(false)

	if err := f.fill(index); err != nil {
		return slot[T]{}, err
	}
	if index < len(f.buffer) {
		return valueSlot(f.buffer[index]), nil
	}
	return pastEndSlot[T](), nil
}

func (f *ForwardCaching[T]) cursorFrom(index int) nextFunc[T] {
	return func() (T, bool, error) {
		s, err := f.slotAt(index)
		if err != nil || !s.ok() {
			var zero T
			return zero, false, err
		}
		index++
		return s.row, true, nil
	}
}

func (f *ForwardCaching[T]) countRows() (int, error) {
	n, known, err := f.knownSize()
	if err != nil || known {
		return n, err
	}
	if err := f.fill(provider.Unbounded - 1); err != nil {
		return 0, err
	}
	return len(f.buffer), nil
}

// bufferRange slices the buffer when the range is already cached
func (f *ForwardCaching[T]) bufferRange(start, end int) (View[T], bool) {
	if end > len(f.buffer) {
		return nil, false
	}
	rows := f.buffer[start:end:end]
	at := func(index int) (slot[T], error) {
		if index < len(rows) {
			return valueSlot(rows[index]), nil
		}
		return pastEndSlot[T](), nil
	}
	sub := newSubRange(&f.list, 0, end-start, at)
	sub.size = end - start
	return sub, true
}

// Buffered returns the number of rows read so far
func (f *ForwardCaching[T]) Buffered() int {
	return len(f.buffer)
}
