// Package resultlist provides read-only, list-like views over a row provider.
// Each view opens its provider when it is built and picks one materialization
// strategy that trades memory, random access and provider I/O differently.
//
// A view is meant for a single consumer and is not safe for concurrent use.
package resultlist

import (
	"iter"

	"github.com/KevoDB/rowcursor/pkg/config"
)

// View is a read-only, ordered, finite sequence of rows.
//
// Once a view is closed, iteration reports no more rows and indexed reads
// fail with ErrSequenceClosed. Any error coming from the provider closes the
// view; callers should treat it as terminal.
type View[T any] interface {
	// Strategy returns the materialization strategy of the view
	Strategy() config.Strategy

	// LenIfKnown returns the size if it is already known, without provider I/O
	LenIfKnown() (int, bool)

	// Size returns the number of rows, computing and memoizing it if needed
	Size() (int, error)

	// Get returns the row at index
	Get(index int) (T, error)

	Contains(row T) (bool, error)

	// IndexOf returns the first index holding row, or -1
	IndexOf(row T) (int, error)

	// LastIndexOf returns the last index holding row, or -1
	LastIndexOf(row T) (int, error)

	// Iter returns an iterator positioned before the first row
	Iter() *Iterator[T]

	// IterFrom returns an iterator whose first row is at index
	IterFrom(index int) *Iterator[T]

	// All adapts Iter to a range-over-func sequence
	All() iter.Seq2[T, error]

	// Materialize copies every row into a slice
	Materialize() ([]T, error)

	// SubRange returns a view of rows [start, end) sharing this view's state
	SubRange(start, end int) (View[T], error)

	// Close frees the provider if it is still held. It is idempotent.
	Close() error

	IsClosed() bool

	// IsProviderOpen reports whether the view still holds its provider
	IsProviderOpen() bool

	UserValue() any
	SetUserValue(value any)

	// Mutations always fail with ErrUnsupportedMutation
	Insert(index int, row T) error
	Append(row T) error
	Remove(index int) error
	Set(index int, row T) error
	Clear() error
}
