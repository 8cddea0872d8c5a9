package provider

// ListProvider serves rows from an in-memory slice. It supports random access
// and reset, and is the adapter for results that are already materialized.
type ListProvider[T any] struct {
	rows  []T
	pos   int
	state State
}

// NewListProvider creates a provider over rows. The slice is not copied.
func NewListProvider[T any](rows []T) *ListProvider[T] {
	return &ListProvider[T]{rows: rows, pos: -1}
}

func (l *ListProvider[T]) SupportsRandomAccess() bool {
	return true
}

func (l *ListProvider[T]) Open() error {
	if err := l.state.CheckOpenable(); err != nil {
		return err
	}
	l.state = StateOpen
	return nil
}

func (l *ListProvider[T]) Next() (bool, error) {
	if err := l.state.CheckReadable(); err != nil {
		return false, err
	}
	if l.pos >= len(l.rows) {
		return false, nil
	}
	l.pos++
	return l.pos < len(l.rows), nil
}

func (l *ListProvider[T]) Absolute(pos int) (bool, error) {
	if err := l.state.CheckReadable(); err != nil {
		return false, err
	}
	if pos < 0 || pos >= len(l.rows) {
		l.pos = len(l.rows)
		return false, nil
	}
	l.pos = pos
	return true, nil
}

func (l *ListProvider[T]) Current() (T, error) {
	var zero T
	if err := l.state.CheckReadable(); err != nil {
		return zero, err
	}
	if l.pos < 0 || l.pos >= len(l.rows) {
		return zero, ErrNoCurrentRow
	}
	return l.rows[l.pos], nil
}

func (l *ListProvider[T]) Size() (int, error) {
	if err := l.state.CheckReadable(); err != nil {
		return 0, err
	}
	return len(l.rows), nil
}

func (l *ListProvider[T]) Reset() error {
	if err := l.state.CheckReadable(); err != nil {
		return err
	}
	l.pos = -1
	return nil
}

func (l *ListProvider[T]) Close() error {
	l.state = StateClosed
	return nil
}
