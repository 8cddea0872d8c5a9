// Package composite provides providers that combine several source providers
// into a single logical cursor.
package composite

import (
	"fmt"

	"github.com/KevoDB/rowcursor/pkg/common/log"
	"github.com/KevoDB/rowcursor/pkg/provider"
)

type sourceState int

const (
	sourceUnopened sourceState = iota
	sourceOpened
	sourceHasValue
	sourceDone
)

// source is one sub-provider with its pending value
type source[T any, K any] struct {
	p     provider.RowProvider[T]
	state sourceState
	value T
	key   K
}

// MergeProvider merges sub-providers. Without a comparator it concatenates
// them in order, opening each lazily. With a comparator it performs a k-way
// merge of sources that are each already sorted by the same key; ties go to
// the source listed first. It does not sort the output of a single source.
type MergeProvider[T any, K any] struct {
	sources []*source[T, K]
	key     func(T) K
	compare func(a, b K) int

	// cursor is the source being drained in concatenation mode
	cursor  int
	current T
	onRow   bool
	closed  bool

	logger log.Logger
}

// NewConcat creates a MergeProvider yielding every row of every provider, in
// list order.
func NewConcat[T any](providers ...provider.RowProvider[T]) (*MergeProvider[T, T], error) {
	return newMerge[T, T](providers, nil, nil)
}

// NewOrdered creates a MergeProvider ordering rows by compare.
func NewOrdered[T any](compare func(a, b T) int, providers ...provider.RowProvider[T]) (*MergeProvider[T, T], error) {
	if compare == nil {
		return nil, fmt.Errorf("%w: ordered merge needs a comparator", provider.ErrInvalidRange)
	}
	return newMerge(providers, func(row T) T { return row }, compare)
}

// NewOrderedByKey creates a MergeProvider ordering rows by compare applied to
// the key derived from each row.
func NewOrderedByKey[T any, K any](key func(T) K, compare func(a, b K) int, providers ...provider.RowProvider[T]) (*MergeProvider[T, K], error) {
	if key == nil || compare == nil {
		return nil, fmt.Errorf("%w: ordered merge needs a key and a comparator", provider.ErrInvalidRange)
	}
	return newMerge(providers, key, compare)
}

func newMerge[T any, K any](providers []provider.RowProvider[T], key func(T) K, compare func(a, b K) int) (*MergeProvider[T, K], error) {
	sources := make([]*source[T, K], len(providers))
	for i, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("%w: nil sub-provider at index %d", provider.ErrInvalidRange, i)
		}
		sources[i] = &source[T, K]{p: p}
	}

	return &MergeProvider[T, K]{
		sources: sources,
		key:     key,
		compare: compare,
		logger:  log.WithField("component", "merge"),
	}, nil
}

// SetLogger replaces the logger used for suppressed close failures
func (m *MergeProvider[T, K]) SetLogger(logger log.Logger) {
	m.logger = logger
}

// Ordered reports whether the provider merges by key
func (m *MergeProvider[T, K]) Ordered() bool {
	return m.compare != nil
}

// NumSources returns the number of sub-providers
func (m *MergeProvider[T, K]) NumSources() int {
	return len(m.sources)
}

func (m *MergeProvider[T, K]) SupportsRandomAccess() bool {
	return false
}

func (m *MergeProvider[T, K]) openSource(s *source[T, K]) error {
	if err := s.p.Open(); err != nil {
		return provider.Translate(s.p, provider.OpOpen, err)
	}
	s.state = sourceOpened
	return nil
}

// Open opens the first source, or every source in ordered mode.
func (m *MergeProvider[T, K]) Open() error {
	if m.closed {
		return provider.ErrClosed
	}

	if !m.Ordered() {
		if len(m.sources) > 0 {
			return m.openSource(m.sources[0])
		}
		return nil
	}

	for _, s := range m.sources {
		if err := m.openSource(s); err != nil {
			return err
		}
	}
	return nil
}

func (m *MergeProvider[T, K]) Next() (bool, error) {
	if m.closed {
		return false, provider.ErrClosed
	}
	m.onRow = false

	if m.Ordered() {
		return m.nextOrdered()
	}
	return m.nextConcat()
}

func (m *MergeProvider[T, K]) nextConcat() (bool, error) {
	for m.cursor < len(m.sources) {
		s := m.sources[m.cursor]

		if s.state == sourceUnopened {
			if err := m.openSource(s); err != nil {
				return false, err
			}
		}

		if s.state != sourceDone {
			ok, err := s.p.Next()
			if err != nil {
				return false, provider.Translate(s.p, provider.OpNext, err)
			}
			if ok {
				row, err := s.p.Current()
				if err != nil {
					return false, provider.Translate(s.p, provider.OpCurrent, err)
				}
				m.current = row
				m.onRow = true
				return true, nil
			}
			s.state = sourceDone
		}

		m.cursor++
	}

	return false, nil
}

// pull fills the pending slot of a source that has none
func (m *MergeProvider[T, K]) pull(s *source[T, K]) error {
	ok, err := s.p.Next()
	if err != nil {
		return provider.Translate(s.p, provider.OpNext, err)
	}
	if !ok {
		s.state = sourceDone
		return nil
	}

	row, err := s.p.Current()
	if err != nil {
		return provider.Translate(s.p, provider.OpCurrent, err)
	}

	s.value = row
	s.key = m.key(row)
	s.state = sourceHasValue
	return nil
}

func (m *MergeProvider[T, K]) nextOrdered() (bool, error) {
	var best *source[T, K]

	for _, s := range m.sources {
		if s.state == sourceOpened {
			if err := m.pull(s); err != nil {
				return false, err
			}
		}

		if s.state != sourceHasValue {
			continue
		}

		// strict comparison keeps the lowest index on ties
		if best == nil || m.compare(s.key, best.key) < 0 {
			best = s
		}
	}

	if best == nil {
		return false, nil
	}

	m.current = best.value
	m.onRow = true

	var zero T
	best.value = zero
	best.state = sourceOpened
	return true, nil
}

func (m *MergeProvider[T, K]) Absolute(pos int) (bool, error) {
	return false, provider.ErrRandomAccessUnsupported
}

func (m *MergeProvider[T, K]) Current() (T, error) {
	if !m.onRow {
		var zero T
		return zero, provider.ErrNoCurrentRow
	}
	return m.current, nil
}

// Size sums the sizes of all sources, opening those not yet opened. It
// returns Unbounded as soon as one source does.
func (m *MergeProvider[T, K]) Size() (int, error) {
	if m.closed {
		return 0, provider.ErrClosed
	}

	total := 0
	for _, s := range m.sources {
		if s.state == sourceUnopened {
			if err := m.openSource(s); err != nil {
				return 0, err
			}
		}

		n, err := s.p.Size()
		if err != nil {
			return 0, provider.Translate(s.p, provider.OpSize, err)
		}
		if n == provider.Unbounded {
			return provider.Unbounded, nil
		}
		total = provider.AddSizes(total, n)
	}
	return total, nil
}

// Reset rewinds every opened source
func (m *MergeProvider[T, K]) Reset() error {
	if m.closed {
		return provider.ErrClosed
	}

	for _, s := range m.sources {
		if s.state == sourceUnopened {
			continue
		}
		if err := s.p.Reset(); err != nil {
			return provider.Translate(s.p, provider.OpReset, err)
		}
		var zero T
		s.value = zero
		s.state = sourceOpened
	}

	m.cursor = 0
	m.onRow = false
	return nil
}

// Close closes every opened source even if some fail, then returns the first
// failure.
func (m *MergeProvider[T, K]) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	m.onRow = false

	var first error
	for i, s := range m.sources {
		if s.state == sourceUnopened {
			continue
		}
		s.state = sourceDone

		err := provider.Translate(s.p, provider.OpClose, s.p.Close())
		if err == nil {
			continue
		}
		if first == nil {
			first = err
			continue
		}
		m.logger.Warn("suppressed close failure of sub-provider %d: %v", i, err)
	}
	return first
}
