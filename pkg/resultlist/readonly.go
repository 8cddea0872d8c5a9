package resultlist

// readOnly rejects every mutation before it can reach a provider.
type readOnly[T any] struct{}

func (readOnly[T]) Insert(index int, row T) error { return ErrUnsupportedMutation }

func (readOnly[T]) Append(row T) error { return ErrUnsupportedMutation }

func (readOnly[T]) Remove(index int) error { return ErrUnsupportedMutation }

func (readOnly[T]) Set(index int, row T) error { return ErrUnsupportedMutation }

func (readOnly[T]) Clear() error { return ErrUnsupportedMutation }
