package provider

import "iter"

// SeqProvider is a sequential provider over a restartable sequence. Each Open
// and Reset starts a fresh pass by calling the sequence factory again, so a
// factory that re-runs a query gives reset support for free.
type SeqProvider[T any] struct {
	source func() iter.Seq2[T, error]
	size   int

	next    func() (T, error, bool)
	stop    func()
	current T
	onRow   bool
	state   State
}

// NewSeqProvider creates a provider pulling from the sequences made by source.
// Size reports Unbounded unless WithKnownSize is used.
func NewSeqProvider[T any](source func() iter.Seq2[T, error]) *SeqProvider[T] {
	return &SeqProvider[T]{source: source, size: Unbounded}
}

// WithKnownSize sets the value reported by Size.
func (s *SeqProvider[T]) WithKnownSize(n int) *SeqProvider[T] {
	s.size = n
	return s
}

// FromSlice builds a sequential, resettable provider over rows.
func FromSlice[T any](rows []T) *SeqProvider[T] {
	return NewSeqProvider(func() iter.Seq2[T, error] {
		return func(yield func(T, error) bool) {
			for _, row := range rows {
				if !yield(row, nil) {
					return
				}
			}
		}
	}).WithKnownSize(len(rows))
}

func (s *SeqProvider[T]) SupportsRandomAccess() bool {
	return false
}

func (s *SeqProvider[T]) Open() error {
	if err := s.state.CheckOpenable(); err != nil {
		return err
	}
	s.state = StateOpen
	s.start()
	return nil
}

func (s *SeqProvider[T]) start() {
	s.next, s.stop = iter.Pull2(s.source())
	s.onRow = false
}

func (s *SeqProvider[T]) Next() (bool, error) {
	if err := s.state.CheckReadable(); err != nil {
		return false, err
	}

	row, err, ok := s.next()
	if !ok {
		s.onRow = false
		return false, nil
	}
	if err != nil {
		s.onRow = false
		return false, err
	}

	s.current = row
	s.onRow = true
	return true, nil
}

func (s *SeqProvider[T]) Absolute(pos int) (bool, error) {
	return false, ErrRandomAccessUnsupported
}

func (s *SeqProvider[T]) Current() (T, error) {
	if err := s.state.CheckReadable(); err != nil {
		var zero T
		return zero, err
	}
	if !s.onRow {
		var zero T
		return zero, ErrNoCurrentRow
	}
	return s.current, nil
}

func (s *SeqProvider[T]) Size() (int, error) {
	if err := s.state.CheckReadable(); err != nil {
		return 0, err
	}
	return s.size, nil
}

func (s *SeqProvider[T]) Reset() error {
	if err := s.state.CheckReadable(); err != nil {
		return err
	}
	s.stop()
	s.start()
	return nil
}

func (s *SeqProvider[T]) Close() error {
	if s.state == StateOpen {
		s.stop()
	}
	s.state = StateClosed
	return nil
}
