package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOpen is returned when reading a provider before Open
	ErrNotOpen = errors.New("row provider is not open")

	// ErrAlreadyOpen is returned by a second Open
	ErrAlreadyOpen = errors.New("row provider is already open")

	// ErrClosed is returned when using a provider after Close
	ErrClosed = errors.New("row provider is closed")

	// ErrRandomAccessUnsupported is returned by Absolute on sequential providers
	ErrRandomAccessUnsupported = errors.New("row provider does not support random access")

	// ErrResetUnsupported is returned by Reset on providers that cannot rewind
	ErrResetUnsupported = errors.New("row provider does not support reset")

	// ErrNoCurrentRow is returned by Current when the cursor is not on a row
	ErrNoCurrentRow = errors.New("row provider is not positioned on a row")

	// ErrInvalidRange is returned for misuse such as a negative range start
	ErrInvalidRange = errors.New("invalid range")

	// ErrCheckedProviderFailure matches every translated recoverable failure
	ErrCheckedProviderFailure = errors.New("checked provider failure")
)

// checkedError marks a recoverable provider failure that must be translated
// through the provider's CheckedErrorHandler before it leaves a result list.
type checkedError struct {
	err error
}

func (e *checkedError) Error() string { return e.err.Error() }

func (e *checkedError) Unwrap() error { return e.err }

// Checked marks err as a recoverable failure. It returns nil for a nil err.
func Checked(err error) error {
	if err == nil {
		return nil
	}
	if IsChecked(err) {
		return err
	}
	return &checkedError{err: err}
}

// IsChecked reports whether err was marked with Checked and has not been
// translated yet. The search stops at the first ProviderError.
func IsChecked(err error) bool {
	for err != nil {
		switch err.(type) {
		case *checkedError:
			return true
		case *ProviderError:
			return false
		}
		err = errors.Unwrap(err)
	}
	return false
}

// ProviderError is the default translation of a checked failure
type ProviderError struct {
	Op      Op
	Err     error
	Checked bool
}

// Error returns the error string
func (e *ProviderError) Error() string {
	return fmt.Sprintf("row provider %s: %v", e.Op, e.Err)
}

// Unwrap returns the wrapped error
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is matches ErrCheckedProviderFailure for translated checked failures
func (e *ProviderError) Is(target error) bool {
	return e.Checked && target == ErrCheckedProviderFailure
}

// Translate funnels a checked failure returned by p during op through p's
// CheckedErrorHandler, or wraps it in a ProviderError when p has none.
// Unchecked failures are returned unchanged. The result is never nil for a
// non-nil err: a handler that returns nil is a bug and is reported as one.
func Translate(p any, op Op, err error) error {
	if err == nil || !IsChecked(err) {
		return err
	}

	handler, ok := p.(CheckedErrorHandler)
	if !ok {
		return &ProviderError{Op: op, Err: unmark(err), Checked: true}
	}

	translated := handler.HandleCheckedError(op, err)
	if translated == nil {
		return &ProviderError{
			Op:      op,
			Err:     fmt.Errorf("BUG: checked error handler returned nil for %v", unmark(err)),
			Checked: true,
		}
	}
	if IsChecked(translated) {
		return &ProviderError{Op: op, Err: unmark(translated), Checked: true}
	}
	return translated
}

// Cause returns err without the marker added by Checked, for handlers that
// wrap the underlying failure.
func Cause(err error) error {
	return unmark(err)
}

// unmark strips a top-level checked marker.
func unmark(err error) error {
	if ce, ok := err.(*checkedError); ok {
		return ce.err
	}
	return err
}
