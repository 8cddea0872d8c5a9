// Package bounded provides a provider decorator restricted to an index range.
package bounded

import (
	"fmt"

	"github.com/KevoDB/rowcursor/pkg/provider"
)

// RangeProvider wraps a provider and exposes only its rows [start, end).
// An end of provider.Unbounded means no upper limit.
type RangeProvider[T any] struct {
	delegate provider.RowProvider[T]
	start    int
	end      int

	// pos is the local index of the current row, -1 before the first
	pos int
	// positioned is set once the delegate cursor is aligned with pos
	positioned bool
	// done is set once Next returned false
	done bool
}

// NewRangeProvider creates a range over delegate. It fails with
// provider.ErrInvalidRange for a negative start or an end before start.
func NewRangeProvider[T any](delegate provider.RowProvider[T], start, end int) (*RangeProvider[T], error) {
	if start < 0 {
		return nil, fmt.Errorf("%w: negative start %d", provider.ErrInvalidRange, start)
	}
	if end < start {
		return nil, fmt.Errorf("%w: end %d before start %d", provider.ErrInvalidRange, end, start)
	}

	return &RangeProvider[T]{
		delegate: delegate,
		start:    start,
		end:      end,
		pos:      -1,
	}, nil
}

// Bounds returns the range limits
func (r *RangeProvider[T]) Bounds() (start, end int) {
	return r.start, r.end
}

func (r *RangeProvider[T]) SupportsRandomAccess() bool {
	return r.delegate.SupportsRandomAccess()
}

func (r *RangeProvider[T]) Open() error {
	return provider.Translate(r.delegate, provider.OpOpen, r.delegate.Open())
}

// limit returns the number of local rows the range may expose
func (r *RangeProvider[T]) limit() int {
	if r.end == provider.Unbounded {
		return provider.Unbounded
	}
	return r.end - r.start
}

// skipToStart moves the delegate to just before start. It returns false if
// the delegate ends first.
func (r *RangeProvider[T]) skipToStart() (bool, error) {
	if r.start == 0 {
		return true, nil
	}

	if r.delegate.SupportsRandomAccess() {
		ok, err := r.delegate.Absolute(r.start - 1)
		return ok, provider.Translate(r.delegate, provider.OpAbsolute, err)
	}

	for i := 0; i < r.start; i++ {
		ok, err := r.delegate.Next()
		if err != nil {
			return false, provider.Translate(r.delegate, provider.OpNext, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (r *RangeProvider[T]) Next() (bool, error) {
	if r.done {
		return false, nil
	}

	if !r.positioned {
		r.positioned = true
		ok, err := r.skipToStart()
		if err != nil {
			return false, err
		}
		if !ok {
			r.done = true
			return false, nil
		}
	}

	if r.pos+1 >= r.limit() {
		r.done = true
		return false, nil
	}

	ok, err := r.delegate.Next()
	if err != nil {
		return false, provider.Translate(r.delegate, provider.OpNext, err)
	}
	if !ok {
		r.done = true
		return false, nil
	}

	r.pos++
	return true, nil
}

func (r *RangeProvider[T]) Absolute(pos int) (bool, error) {
	if pos < 0 || pos >= r.limit() || pos > provider.Unbounded-r.start {
		r.positioned = true
		r.done = true
		return false, nil
	}

	ok, err := r.delegate.Absolute(pos + r.start)
	if err != nil {
		return false, provider.Translate(r.delegate, provider.OpAbsolute, err)
	}

	r.positioned = true
	r.done = !ok
	if ok {
		r.pos = pos
	}
	return ok, nil
}

func (r *RangeProvider[T]) Current() (T, error) {
	if r.done {
		var zero T
		return zero, provider.ErrNoCurrentRow
	}
	row, err := r.delegate.Current()
	return row, provider.Translate(r.delegate, provider.OpCurrent, err)
}

// Size is max(0, min(end, delegate size) - start), or Unbounded when both the
// delegate size and end are unbounded.
func (r *RangeProvider[T]) Size() (int, error) {
	n, err := r.delegate.Size()
	if err != nil {
		return 0, provider.Translate(r.delegate, provider.OpSize, err)
	}

	if n == provider.Unbounded && r.end == provider.Unbounded {
		return provider.Unbounded, nil
	}

	return max(0, min(r.end, n)-r.start), nil
}

func (r *RangeProvider[T]) Reset() error {
	if err := r.delegate.Reset(); err != nil {
		return provider.Translate(r.delegate, provider.OpReset, err)
	}
	r.pos = -1
	r.positioned = false
	r.done = false
	return nil
}

func (r *RangeProvider[T]) Close() error {
	return provider.Translate(r.delegate, provider.OpClose, r.delegate.Close())
}
