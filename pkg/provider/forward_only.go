package provider

// ForwardOnly hides the random access capability of a provider, leaving Next
// and Reset as the only ways to move the cursor.
type ForwardOnly[T any] struct {
	RowProvider[T]
}

// NewForwardOnly wraps delegate
func NewForwardOnly[T any](delegate RowProvider[T]) *ForwardOnly[T] {
	return &ForwardOnly[T]{RowProvider: delegate}
}

func (f *ForwardOnly[T]) SupportsRandomAccess() bool {
	return false
}

func (f *ForwardOnly[T]) Absolute(pos int) (bool, error) {
	return false, ErrRandomAccessUnsupported
}

// HandleCheckedError defers to the wrapped provider
func (f *ForwardOnly[T]) HandleCheckedError(op Op, err error) error {
	return Translate(f.RowProvider, op, err)
}
