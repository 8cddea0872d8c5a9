package resultlist

import "errors"

var (
	// ErrUnsupportedMutation is returned by every write operation
	ErrUnsupportedMutation = errors.New("result list is read-only")

	// ErrSequenceClosed is returned when reading a closed result list
	ErrSequenceClosed = errors.New("result list is closed")

	// ErrIndexOutOfRange is returned by Get for an index outside the result
	ErrIndexOutOfRange = errors.New("index out of range")
)
