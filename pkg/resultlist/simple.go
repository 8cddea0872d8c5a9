package resultlist

import (
	"github.com/KevoDB/rowcursor/pkg/config"
	"github.com/KevoDB/rowcursor/pkg/provider"
)

// SimpleRandomAccess positions its provider on every read and keeps nothing
// but the size. It needs a provider that supports random access and holds it
// until Close.
type SimpleRandomAccess[T any] struct {
	list[T]
}

// NewSimpleRandomAccess builds a SimpleRandomAccess view over p
func NewSimpleRandomAccess[T any](p provider.RowProvider[T], opts ...Option) (*SimpleRandomAccess[T], error) {
	o := buildOptions(config.StrategySimple, opts)
	c := newCore(config.StrategySimple, p, o)
	if p != nil && !p.SupportsRandomAccess() {
		return nil, c.abandon(provider.ErrRandomAccessUnsupported)
	}
	if err := c.open(); err != nil {
		return nil, err
	}

	s := &SimpleRandomAccess[T]{}
	s.list = indexed(c, s.slotAt, s.countRows)
	return s, nil
}

func (s *SimpleRandomAccess[T]) slotAt(index int) (slot[T], error) {
	n, known, err := s.knownSize()
	if err != nil {
		return slot[T]{}, err
	}
	if known && index >= n {
		return pastEndSlot[T](), nil
	}

	ok, err := s.absolute(index)
	if err != nil || !ok {
		return pastEndSlot[T](), err
	}
	row, err := s.current()
	if err != nil {
		return slot[T]{}, err
	}
	return valueSlot(row), nil
}

func (s *SimpleRandomAccess[T]) countRows() (int, error) {
	n, known, err := s.knownSize()
	if err != nil || known {
		return n, err
	}
	return countSlots(s.slotAt)
}
