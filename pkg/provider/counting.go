package provider

import (
	"time"

	"github.com/KevoDB/rowcursor/pkg/stats"
)

// Counting records every call made to the wrapped provider in a stats
// collector. It is used to observe how much I/O a result list causes.
type Counting[T any] struct {
	delegate  RowProvider[T]
	collector stats.Collector
}

// NewCounting wraps delegate. A nil collector gets a fresh AtomicCollector.
func NewCounting[T any](delegate RowProvider[T], collector stats.Collector) *Counting[T] {
	if collector == nil {
		collector = stats.NewAtomicCollector()
	}
	return &Counting[T]{delegate: delegate, collector: collector}
}

// Stats returns the collector calls are recorded in
func (c *Counting[T]) Stats() stats.Collector {
	return c.collector
}

// Calls returns how many times op was invoked
func (c *Counting[T]) Calls(op Op) uint64 {
	return c.collector.Count(stats.OperationType(op))
}

func (c *Counting[T]) track(op Op, start time.Time, err error) {
	c.collector.TrackOperationWithLatency(stats.OperationType(op), uint64(time.Since(start).Nanoseconds()))
	if err != nil {
		c.collector.TrackError(string(op))
	}
}

func (c *Counting[T]) SupportsRandomAccess() bool {
	return c.delegate.SupportsRandomAccess()
}

func (c *Counting[T]) Open() error {
	start := time.Now()
	err := c.delegate.Open()
	c.track(OpOpen, start, err)
	return err
}

func (c *Counting[T]) Next() (bool, error) {
	start := time.Now()
	ok, err := c.delegate.Next()
	c.track(OpNext, start, err)
	return ok, err
}

func (c *Counting[T]) Absolute(pos int) (bool, error) {
	start := time.Now()
	ok, err := c.delegate.Absolute(pos)
	c.track(OpAbsolute, start, err)
	return ok, err
}

func (c *Counting[T]) Current() (T, error) {
	start := time.Now()
	row, err := c.delegate.Current()
	c.track(OpCurrent, start, err)
	if err == nil {
		c.collector.TrackRows(1)
	}
	return row, err
}

func (c *Counting[T]) Size() (int, error) {
	start := time.Now()
	n, err := c.delegate.Size()
	c.track(OpSize, start, err)
	return n, err
}

func (c *Counting[T]) Reset() error {
	start := time.Now()
	err := c.delegate.Reset()
	c.track(OpReset, start, err)
	return err
}

func (c *Counting[T]) Close() error {
	start := time.Now()
	err := c.delegate.Close()
	c.track(OpClose, start, err)
	return err
}

// HandleCheckedError defers to the wrapped provider
func (c *Counting[T]) HandleCheckedError(op Op, err error) error {
	return Translate(c.delegate, op, err)
}
