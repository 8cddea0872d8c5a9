package resultlist

import (
	"fmt"

	"github.com/KevoDB/rowcursor/pkg/config"
	"github.com/KevoDB/rowcursor/pkg/provider"
)

// Windowed keeps a fixed number of contiguous rows around the last index
// read. Reads outside the window refill it: forward reads continue from the
// provider position, backward reads rewind with Reset, or jump with Absolute
// when the provider supports it.
//
// If the window starting at row 0 reaches the end of the rows, the whole
// result fits and the provider is freed.
type Windowed[T any] struct {
	list[T]
	window []slot[T]

	// start is the index of window[0], or -1 while the window is empty
	start int

	// pos is the index the provider was last moved to, -1 before the first row
	pos int
}

// NewWindowed builds a Windowed view over p
func NewWindowed[T any](p provider.RowProvider[T], opts ...Option) (*Windowed[T], error) {
	o := buildOptions(config.StrategyWindow, opts)
	c := newCore(config.StrategyWindow, p, o)
	if o.windowSize <= 0 {
		return nil, c.abandon(fmt.Errorf("%w: window size must be positive, got %d", config.ErrInvalidConfig, o.windowSize))
	}
	if err := c.open(); err != nil {
		return nil, err
	}

	w := &Windowed[T]{
		window: make([]slot[T], o.windowSize),
		start:  -1,
		pos:    -1,
	}
	w.list = indexed(c, w.slotAt, w.countRows)
	return w, nil
}

// WindowSize returns the window capacity
func (w *Windowed[T]) WindowSize() int {
	return len(w.window)
}

// WindowStart returns the index of the first windowed row, or -1
func (w *Windowed[T]) WindowStart() int {
	return w.start
}

func (w *Windowed[T]) inWindow(index int) bool {
	return w.start >= 0 && index >= w.start && index < w.start+len(w.window)
}

func (w *Windowed[T]) slotAt(index int) (slot[T], error) {
	if w.inWindow(index) {
		w.hit(true)
		return w.window[index-w.start], nil
	}
	if n, ok := w.LenIfKnown(); ok && index >= n {
		return pastEndSlot[T](), nil
	}
	w.hit(false)

	reached, err := w.seek(index)
	if err != nil {
		return slot[T]{}, err
	}
	if !reached {
		// the provider ended before index
		return pastEndSlot[T](), nil
	}
	if err := w.refill(index); err != nil {
		return slot[T]{}, err
	}
	return w.window[0], nil
}

// seek moves the provider just before index. It reports false if the rows
// end before that.
func (w *Windowed[T]) seek(index int) (bool, error) {
	if w.pos == index-1 {
		return true, nil
	}

	if w.randomAccess() && index > 0 {
		ok, err := w.absolute(index - 1)
		if err != nil {
			return false, err
		}
		if !ok {
			w.pos = provider.Unbounded
			return false, nil
		}
		w.pos = index - 1
		return true, nil
	}

	if w.pos >= index {
		w.start = -1
		if err := w.reset(); err != nil {
			return false, err
		}
		w.pos = -1
	}

	for w.pos < index-1 {
		ok, err := w.next()
		if err != nil {
			return false, err
		}
		w.pos++
		if !ok {
			w.size = w.pos
			return false, nil
		}
	}
	return true, nil
}

// refill reads the window starting at index, marking slots past the last
// row. It records the exact size when it sees the end.
func (w *Windowed[T]) refill(index int) error {
	w.start = -1
	ended := false

	for k := range w.window {
		if ended {
			w.window[k] = pastEndSlot[T]()
			continue
		}

		s, err := w.fetch()
		if err != nil {
			return err
		}
		w.pos = index + k
		if !s.ok() {
			ended = true
			w.size = index + k
		}
		w.window[k] = s
	}
	w.start = index

	if ended && index == 0 {
		w.free("window covers result")
	}
	return nil
}

func (w *Windowed[T]) randomAccess() bool {
	return w.p.SupportsRandomAccess()
}

func (w *Windowed[T]) countRows() (int, error) {
	n, known, err := w.knownSize()
	if err != nil || known {
		return n, err
	}
	return countSlots(w.slotAt)
}
