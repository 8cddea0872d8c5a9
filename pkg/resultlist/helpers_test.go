package resultlist

import (
	"errors"
	"fmt"
	"iter"
	"testing"

	"github.com/KevoDB/rowcursor/pkg/common/log"
	"github.com/KevoDB/rowcursor/pkg/config"
	"github.com/KevoDB/rowcursor/pkg/provider"
	"github.com/stretchr/testify/require"
)

var letters = []string{"A", "B", "C", "D", "E"}

// randomAccess returns a counted in-memory provider supporting Absolute
func randomAccess(rows []string) *provider.Counting[string] {
	return provider.NewCounting[string](provider.NewListProvider(rows), nil)
}

// sequentialOnly returns a counted provider that can only move forward
func sequentialOnly(rows []string) *provider.Counting[string] {
	return provider.NewCounting[string](provider.FromSlice(rows), nil)
}

// unknownSize returns a counted sequential provider reporting Unbounded
func unknownSize(rows []string) *provider.Counting[string] {
	return provider.NewCounting[string](provider.FromSlice(rows).WithKnownSize(provider.Unbounded), nil)
}

// strategiesFor lists the strategies a provider kind can back
func strategiesFor(random bool) []config.Strategy {
	if random {
		return config.Strategies
	}
	return []config.Strategy{config.StrategyEager, config.StrategyForward, config.StrategyWindow}
}

func quiet() Option {
	return WithLogger(log.Discard())
}

func newView(t *testing.T, strategy config.Strategy, p provider.RowProvider[string], opts ...Option) View[string] {
	t.Helper()

	view, err := New(strategy, p, append([]Option{quiet()}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = view.Close() })
	return view
}

// forEachView runs fn against every strategy over every provider kind it
// supports.
func forEachView(t *testing.T, rows []string, fn func(t *testing.T, view View[string], p *provider.Counting[string])) {
	kinds := []struct {
		name   string
		random bool
		make   func([]string) *provider.Counting[string]
	}{
		{"random access", true, randomAccess},
		{"sequential", false, sequentialOnly},
	}

	for _, kind := range kinds {
		for _, strategy := range strategiesFor(kind.random) {
			t.Run(kind.name+"/"+string(strategy), func(t *testing.T) {
				p := kind.make(rows)
				fn(t, newView(t, strategy, p), p)
			})
		}
	}
}

// readAt returns the row at each index, or "!" past the end
func readAt(t *testing.T, view View[string], indices []int) []string {
	t.Helper()

	out := make([]string, 0, len(indices))
	for _, i := range indices {
		row, err := view.Get(i)
		if errors.Is(err, ErrIndexOutOfRange) {
			out = append(out, "!")
			continue
		}
		require.NoError(t, err)
		out = append(out, row)
	}
	return out
}

var errBroken = errors.New("cursor broken")

// failingAfter yields rows then fails
func failingAfter(rows []string, err error) *provider.SeqProvider[string] {
	return provider.NewSeqProvider(func() iter.Seq2[string, error] {
		return func(yield func(string, error) bool) {
			for _, row := range rows {
				if !yield(row, nil) {
					return
				}
			}
			yield("", err)
		}
	})
}

// translating maps its checked failures to errQueryFailed
type translating struct {
	*provider.SeqProvider[string]
}

var errQueryFailed = errors.New("query failed")

func (p translating) HandleCheckedError(op provider.Op, err error) error {
	return errors.Join(errQueryFailed, err)
}

// openFailing fails Open and counts Close calls
type openFailing struct {
	*provider.ListProvider[string]
	closes int
}

func (p *openFailing) Open() error {
	return errBroken
}

func (p *openFailing) Close() error {
	p.closes++
	return p.ListProvider.Close()
}

// unsizedList supports Absolute but cannot report its size
type unsizedList struct {
	*provider.ListProvider[string]
}

func (unsizedList) Size() (int, error) {
	return provider.Unbounded, nil
}

// resetFailing is a sequential provider whose Reset fails
type resetFailing struct {
	*provider.SeqProvider[string]
}

func (resetFailing) Reset() error {
	return errBroken
}

// numbered returns n distinct rows
func numbered(n int) []string {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = fmt.Sprintf("row-%d", i)
	}
	return rows
}
