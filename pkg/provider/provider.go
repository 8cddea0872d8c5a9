// Package provider defines the pull-based cursor contract that result lists are
// built over, together with a few general purpose providers and decorators.
package provider

import "math"

// Unbounded is the size reported by a provider that cannot tell how many rows
// it holds, and the end of a range without an upper limit.
const Unbounded = math.MaxInt

// RowProvider is an opaque, stateful cursor over rows of type T. It owns the
// resource backing the rows (a driver cursor, a statement, a stream).
//
// Open must be called exactly once before Next, Absolute, Current or Size.
// Once Close has been called the provider must not be read again; Close is
// idempotent. A provider is not safe for concurrent use.
type RowProvider[T any] interface {
	// SupportsRandomAccess reports whether Absolute may be used
	SupportsRandomAccess() bool

	// Open acquires the underlying resource
	Open() error

	// Next advances one position and returns false once past the last row
	Next() (bool, error)

	// Absolute positions the cursor on the 0-based row pos. It returns false
	// if pos is out of range. Only valid when SupportsRandomAccess is true.
	Absolute(pos int) (bool, error)

	// Current returns the row under the cursor. Only valid immediately after
	// a successful Next or Absolute.
	Current() (T, error)

	// Size returns the number of rows, or Unbounded if unknown. It may be
	// expensive.
	Size() (int, error)

	// Reset rewinds to before the first row without a new Open
	Reset() error

	// Close releases the underlying resource
	Close() error
}

// CheckedErrorHandler is implemented by providers that translate their
// recoverable failures (see Checked) into errors specific to the call site.
// HandleCheckedError must always return a non-nil error.
type CheckedErrorHandler interface {
	HandleCheckedError(op Op, err error) error
}

// Op names a RowProvider call
type Op string

const (
	OpOpen     Op = "open"
	OpNext     Op = "next"
	OpAbsolute Op = "absolute"
	OpCurrent  Op = "current"
	OpSize     Op = "size"
	OpReset    Op = "reset"
	OpClose    Op = "close"
)

// State is the lifecycle of a provider
type State int

const (
	StateUnopened State = iota
	StateOpen
	StateClosed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CheckReadable returns the error for reading a provider in state s, or nil
// if it is open.
func (s State) CheckReadable() error {
	switch s {
	case StateOpen:
		return nil
	case StateClosed:
		return ErrClosed
	default:
		return ErrNotOpen
	}
}

// CheckOpenable returns the error for opening a provider in state s.
func (s State) CheckOpenable() error {
	switch s {
	case StateUnopened:
		return nil
	case StateClosed:
		return ErrClosed
	default:
		return ErrAlreadyOpen
	}
}

// addSizes sums two sizes, saturating at Unbounded.
func addSizes(a, b int) int {
	if a == Unbounded || b == Unbounded || a > Unbounded-b {
		return Unbounded
	}
	return a + b
}

// AddSizes sums provider sizes, saturating at Unbounded.
func AddSizes(sizes ...int) int {
	total := 0
	for _, n := range sizes {
		total = addSizes(total, n)
	}
	return total
}
