// Package filtered provides a provider that skips rows based on a predicate
package filtered

import (
	"fmt"
	"strings"

	"github.com/KevoDB/rowcursor/pkg/provider"
)

// FilterFunc reports whether a row is kept
type FilterFunc[T any] func(row T) bool

// FilteredProvider wraps a provider and serves only the rows passing its
// filter. Positions refer to the filtered sequence, so it is sequential only
// and never knows its size up front.
type FilteredProvider[T any] struct {
	delegate provider.RowProvider[T]
	filter   FilterFunc[T]
	current  T
	onRow    bool
}

// NewFilteredProvider creates a provider over the rows of delegate that pass filter
func NewFilteredProvider[T any](delegate provider.RowProvider[T], filter FilterFunc[T]) (*FilteredProvider[T], error) {
	if delegate == nil || filter == nil {
		return nil, fmt.Errorf("%w: filtered provider needs a delegate and a filter", provider.ErrInvalidRange)
	}
	return &FilteredProvider[T]{delegate: delegate, filter: filter}, nil
}

func (f *FilteredProvider[T]) SupportsRandomAccess() bool {
	return false
}

func (f *FilteredProvider[T]) Open() error {
	return f.delegate.Open()
}

// Next advances to the next row that passes the filter
func (f *FilteredProvider[T]) Next() (bool, error) {
	f.onRow = false
	for {
		ok, err := f.delegate.Next()
		if err != nil || !ok {
			return false, err
		}
		row, err := f.delegate.Current()
		if err != nil {
			return false, err
		}
		if f.filter(row) {
			f.current = row
			f.onRow = true
			return true, nil
		}
	}
}

func (f *FilteredProvider[T]) Absolute(int) (bool, error) {
	return false, provider.ErrRandomAccessUnsupported
}

func (f *FilteredProvider[T]) Current() (T, error) {
	if !f.onRow {
		var zero T
		return zero, provider.ErrNoCurrentRow
	}
	return f.current, nil
}

// Size is unknown until the filtered rows have been counted
func (f *FilteredProvider[T]) Size() (int, error) {
	return provider.Unbounded, nil
}

func (f *FilteredProvider[T]) Reset() error {
	f.onRow = false
	return f.delegate.Reset()
}

func (f *FilteredProvider[T]) Close() error {
	f.onRow = false
	var zero T
	f.current = zero
	return f.delegate.Close()
}

// HandleCheckedError defers to the delegate's handler, if it has one
func (f *FilteredProvider[T]) HandleCheckedError(op provider.Op, err error) error {
	if h, ok := f.delegate.(provider.CheckedErrorHandler); ok {
		return h.HandleCheckedError(op, err)
	}
	return err
}

// PrefixFilter keeps rows whose key starts with prefix
func PrefixFilter[T any](key func(T) string, prefix string) FilterFunc[T] {
	return func(row T) bool {
		return strings.HasPrefix(key(row), prefix)
	}
}

// SuffixFilter keeps rows whose key ends with suffix
func SuffixFilter[T any](key func(T) string, suffix string) FilterFunc[T] {
	return func(row T) bool {
		return strings.HasSuffix(key(row), suffix)
	}
}
