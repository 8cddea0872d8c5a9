package resultlist

import (
	"fmt"

	"github.com/KevoDB/rowcursor/pkg/config"
	"github.com/KevoDB/rowcursor/pkg/provider"
	lru "github.com/hashicorp/golang-lru/v2"
)

// rowCache is the sparse index to row cache of RandomAccessCaching
type rowCache[T any] interface {
	Get(index int) (T, bool)
	Peek(index int) (T, bool)
	Add(index int, row T) bool
	Len() int
}

// mapCache keeps every row it is given
type mapCache[T any] map[int]T

func (m mapCache[T]) Get(index int) (T, bool) {
	row, ok := m[index]
	return row, ok
}

func (m mapCache[T]) Peek(index int) (T, bool) {
	return m.Get(index)
}

func (m mapCache[T]) Add(index int, row T) bool {
	m[index] = row
	return false
}

func (m mapCache[T]) Len() int {
	return len(m)
}

// RandomAccessCaching fetches rows by index on demand and caches them. Once
// every row is cached the cache is copied into a dense slice and the
// provider is freed; later reads never reach the provider.
//
// With a cache capacity the sparse cache is an LRU and rows may be evicted,
// in which case promotion only happens if all rows fit at once.
type RandomAccessCaching[T any] struct {
	list[T]
	cache     rowCache[T]
	dense     []T
	promoted  bool
	evictions uint64
}

// NewRandomAccessCaching builds a RandomAccessCaching view over p, which must
// support random access.
func NewRandomAccessCaching[T any](p provider.RowProvider[T], opts ...Option) (*RandomAccessCaching[T], error) {
	o := buildOptions(config.StrategyRandom, opts)
	c := newCore(config.StrategyRandom, p, o)
	if p != nil && !p.SupportsRandomAccess() {
		return nil, c.abandon(provider.ErrRandomAccessUnsupported)
	}
	if o.cacheCapacity < 0 {
		return nil, c.abandon(fmt.Errorf("%w: negative cache capacity %d", config.ErrInvalidConfig, o.cacheCapacity))
	}

	r := &RandomAccessCaching[T]{}
	if o.cacheCapacity == 0 {
		r.cache = mapCache[T]{}
	} else {
		cache, err := lru.NewWithEvict(o.cacheCapacity, r.onEvict)
		if err != nil {
			return nil, c.abandon(err)
		}
		r.cache = cache
	}

	if err := c.open(); err != nil {
		return nil, err
	}

	r.list = indexed(c, r.slotAt, r.countRows)
	return r, nil
}

func (r *RandomAccessCaching[T]) onEvict(index int, row T) {
	r.evictions++
	r.metrics.RecordEviction(r.ctx, string(r.strategy))
}

func (r *RandomAccessCaching[T]) slotAt(index int) (slot[T], error) {
	if r.promoted {
		if index < len(r.dense) {
			return valueSlot(r.dense[index]), nil
		}
		return pastEndSlot[T](), nil
	}

	if n, ok := r.LenIfKnown(); ok && index >= n {
		return pastEndSlot[T](), nil
	}

	if row, ok := r.cache.Get(index); ok {
		r.hit(true)
		return valueSlot(row), nil
	}
	r.hit(false)

	ok, err := r.absolute(index)
	if err != nil {
		return pastEndSlot[T](), err
	}
	if !ok {
		// the cache is left untouched past the end. If it holds index rows
		// they are all of them.
		if r.cache.Len() == index {
			r.size = index
			if err := r.promote(); err != nil {
				return slot[T]{}, err
			}
		}
		return pastEndSlot[T](), nil
	}
	row, err := r.current()
	if err != nil {
		return slot[T]{}, err
	}

	r.cache.Add(index, row)
	if err := r.promote(); err != nil {
		return slot[T]{}, err
	}
	return valueSlot(row), nil
}

// promote copies the cache into a dense slice once it holds every row
func (r *RandomAccessCaching[T]) promote() error {
	n, known, err := r.knownSize()
	if err != nil || !known || r.cache.Len() != n {
		return err
	}

	dense := make([]T, n)
	for i := range dense {
		row, ok := r.cache.Peek(i)
		if !ok {
			return nil
		}
		dense[i] = row
	}

	r.dense = dense
	r.promoted = true
	r.cache = mapCache[T]{}
	r.free("cache complete")
	return nil
}

func (r *RandomAccessCaching[T]) countRows() (int, error) {
	n, known, err := r.knownSize()
	if err != nil || known {
		return n, err
	}

	n, err = countSlots(r.slotAt)
	if err != nil {
		return 0, err
	}
	r.size = n
	return n, r.promote()
}

// Promoted reports whether every row is cached and the provider was freed
func (r *RandomAccessCaching[T]) Promoted() bool {
	return r.promoted
}

// Cached returns the number of rows held by the sparse cache
func (r *RandomAccessCaching[T]) Cached() int {
	if r.promoted {
		return len(r.dense)
	}
	return r.cache.Len()
}

// Evictions returns how many rows the bounded cache has dropped
func (r *RandomAccessCaching[T]) Evictions() uint64 {
	return r.evictions
}
