package resultlist

import (
	"github.com/KevoDB/rowcursor/pkg/config"
	"github.com/KevoDB/rowcursor/pkg/provider"
)

// Eager drains its provider when it is built and serves every read from
// memory. The provider is closed as soon as draining ends.
type Eager[T any] struct {
	list[T]
	rows []T
}

// NewEager builds an Eager view over p
func NewEager[T any](p provider.RowProvider[T], opts ...Option) (*Eager[T], error) {
	o := buildOptions(config.StrategyEager, opts)
	c := newCore(config.StrategyEager, p, o)
	if err := c.open(); err != nil {
		return nil, err
	}

	e := &Eager[T]{}
	for {
		s, err := c.fetch()
		if err != nil {
			return nil, err
		}
		if !s.ok() {
			break
		}
		e.rows = append(e.rows, s.row)
	}

	c.size = len(e.rows)
	c.free("drained")

	e.list = indexed(c, e.slotAt, e.countRows)
	return e, nil
}

func (e *Eager[T]) slotAt(index int) (slot[T], error) {
	if index < len(e.rows) {
		return valueSlot(e.rows[index]), nil
	}
	return pastEndSlot[T](), nil
}

func (e *Eager[T]) countRows() (int, error) {
	return len(e.rows), nil
}
