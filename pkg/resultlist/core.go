package resultlist

import (
	"context"
	"errors"
	"time"

	"github.com/KevoDB/rowcursor/pkg/common/log"
	"github.com/KevoDB/rowcursor/pkg/config"
	"github.com/KevoDB/rowcursor/pkg/provider"
)

// closer is the part of a view a sub-range needs to share its lifecycle
type closer interface {
	IsClosed() bool
	IsProviderOpen() bool
}

// core holds the state every view shares: the provider it owns, the
// lifecycle flags and the memoized size. All provider calls go through core
// so that a failure always releases the provider and closes the view.
type core[T any] struct {
	strategy config.Strategy
	p        provider.RowProvider[T]

	providerOpen bool
	closed       bool
	parent       closer

	// size is -1 until the exact row count is known
	size      int
	sizeAsked bool

	userValue any
	equal     func(a, b T) bool

	ctx     context.Context
	logger  log.Logger
	metrics ViewMetrics
}

func newCore[T any](strategy config.Strategy, p provider.RowProvider[T], o *options) *core[T] {
	return &core[T]{
		strategy: strategy,
		p:        p,
		size:     -1,
		equal:    equalFor[T](o),
		ctx:      context.Background(),
		logger:   o.logger,
		metrics:  o.metrics,
	}
}

// open opens the provider. On failure the provider is closed.
func (c *core[T]) open() error {
	if c.p == nil {
		return errors.New("result list needs a row provider")
	}

	start := time.Now()
	err := c.p.Open()
	c.metrics.RecordProviderCall(c.ctx, string(c.strategy), provider.OpOpen, time.Since(start), err)
	if err != nil {
		c.providerOpen = true
		return c.fail(provider.Translate(c.p, provider.OpOpen, err))
	}

	c.providerOpen = true
	return nil
}

// abandon closes a provider the view refused to open.
func (c *core[T]) abandon(err error) error {
	if c.p == nil {
		return err
	}
	c.providerOpen = true
	return c.fail(err)
}

// fail releases the provider, closes the view and returns err. A secondary
// close failure is logged and dropped.
func (c *core[T]) fail(err error) error {
	if c.providerOpen {
		c.providerOpen = false
		if cerr := c.p.Close(); cerr != nil {
			c.logger.Warn("closing provider after failure: %v", cerr)
		}
	}
	c.closed = true
	return err
}

func (c *core[T]) record(op provider.Op, start time.Time, err error) {
	c.metrics.RecordProviderCall(c.ctx, string(c.strategy), op, time.Since(start), err)
}

func (c *core[T]) next() (bool, error) {
	start := time.Now()
	ok, err := c.p.Next()
	c.record(provider.OpNext, start, err)
	if err != nil {
		return false, c.fail(provider.Translate(c.p, provider.OpNext, err))
	}
	return ok, nil
}

func (c *core[T]) absolute(pos int) (bool, error) {
	start := time.Now()
	ok, err := c.p.Absolute(pos)
	c.record(provider.OpAbsolute, start, err)
	if err != nil {
		return false, c.fail(provider.Translate(c.p, provider.OpAbsolute, err))
	}
	return ok, nil
}

func (c *core[T]) current() (T, error) {
	start := time.Now()
	row, err := c.p.Current()
	c.record(provider.OpCurrent, start, err)
	if err != nil {
		return row, c.fail(provider.Translate(c.p, provider.OpCurrent, err))
	}
	return row, nil
}

func (c *core[T]) reset() error {
	start := time.Now()
	err := c.p.Reset()
	c.record(provider.OpReset, start, err)
	if err != nil {
		return c.fail(provider.Translate(c.p, provider.OpReset, err))
	}
	return nil
}

// fetch advances the provider and reads the row it lands on
func (c *core[T]) fetch() (slot[T], error) {
	ok, err := c.next()
	if err != nil || !ok {
		return pastEndSlot[T](), err
	}
	row, err := c.current()
	if err != nil {
		return pastEndSlot[T](), err
	}
	return valueSlot(row), nil
}

// knownSize returns the exact size if it is memoized or the provider can
// report it. The provider is asked at most once.
func (c *core[T]) knownSize() (int, bool, error) {
	if c.size >= 0 {
		return c.size, true, nil
	}
	if c.sizeAsked || !c.providerOpen {
		return 0, false, nil
	}
	c.sizeAsked = true

	start := time.Now()
	n, err := c.p.Size()
	c.record(provider.OpSize, start, err)
	if err != nil {
		return 0, false, c.fail(provider.Translate(c.p, provider.OpSize, err))
	}
	if n == provider.Unbounded {
		return 0, false, nil
	}

	c.size = n
	return n, true, nil
}

// free releases the provider once the view no longer needs it.
func (c *core[T]) free(reason string) {
	if !c.providerOpen {
		return
	}
	c.providerOpen = false

	start := time.Now()
	err := c.p.Close()
	c.record(provider.OpClose, start, err)
	if err != nil {
		c.logger.Warn("freeing provider (%s): %v", reason, err)
	}
	c.logger.Debug("provider freed: %s", reason)
	c.metrics.RecordProviderFreed(c.ctx, string(c.strategy), reason)
}

func (c *core[T]) hit(ok bool) {
	c.metrics.RecordCacheHit(c.ctx, string(c.strategy), ok)
}

func (c *core[T]) checkOpen() error {
	if c.IsClosed() {
		return ErrSequenceClosed
	}
	return nil
}

func (c *core[T]) Strategy() config.Strategy {
	return c.strategy
}

func (c *core[T]) LenIfKnown() (int, bool) {
	if c.size >= 0 {
		return c.size, true
	}
	return 0, false
}

// Close frees the provider if it is still held. Only the first call can fail.
func (c *core[T]) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	if !c.providerOpen {
		return nil
	}
	c.providerOpen = false

	start := time.Now()
	err := c.p.Close()
	c.record(provider.OpClose, start, err)
	return provider.Translate(c.p, provider.OpClose, err)
}

func (c *core[T]) IsClosed() bool {
	return c.closed || (c.parent != nil && c.parent.IsClosed())
}

func (c *core[T]) IsProviderOpen() bool {
	if c.parent != nil {
		return c.parent.IsProviderOpen()
	}
	return c.providerOpen
}

func (c *core[T]) UserValue() any {
	return c.userValue
}

func (c *core[T]) SetUserValue(value any) {
	c.userValue = value
}
