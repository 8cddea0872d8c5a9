package resultlist

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/KevoDB/rowcursor/pkg/config"
	"github.com/KevoDB/rowcursor/pkg/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEager_DrainsAndFrees(t *testing.T) {
	p := sequentialOnly(letters)
	view, err := NewEager[string](p, quiet())
	require.NoError(t, err)
	defer view.Close()

	assert.False(t, view.IsProviderOpen())
	assert.False(t, view.IsClosed())
	assert.Equal(t, uint64(6), p.Calls(provider.OpNext))
	assert.Equal(t, uint64(1), p.Calls(provider.OpClose))

	n, known := view.LenIfKnown()
	assert.True(t, known)
	assert.Equal(t, 5, n)
}

func TestRandomAccessEquivalence(t *testing.T) {
	order := []int{3, 0, 4, 3, 1, 0, 2, 4}
	want := []string{"D", "A", "E", "D", "B", "A", "C", "E"}

	for _, strategy := range []config.Strategy{config.StrategyEager, config.StrategyRandom} {
		t.Run(string(strategy), func(t *testing.T) {
			p := randomAccess(letters)
			view := newView(t, strategy, p)

			assert.Equal(t, want, readAt(t, view, order))
			assert.LessOrEqual(t, p.Calls(provider.OpAbsolute), uint64(len(letters)))
		})
	}
}

func TestRandomAccessCaching_FetchesEachIndexOnce(t *testing.T) {
	p := randomAccess(letters)
	view, err := NewRandomAccessCaching[string](p, quiet())
	require.NoError(t, err)
	defer view.Close()

	assert.Equal(t, []string{"C", "C", "A", "C"}, readAt(t, view, []int{2, 2, 0, 2}))
	assert.Equal(t, uint64(2), p.Calls(provider.OpAbsolute))
	assert.Equal(t, 2, view.Cached())
	assert.False(t, view.Promoted())
}

func TestRandomAccessCaching_PastEndLeavesCacheAlone(t *testing.T) {
	p := randomAccess(letters)
	view, err := NewRandomAccessCaching[string](p, quiet())
	require.NoError(t, err)
	defer view.Close()

	_, err = view.Get(7)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.Zero(t, view.Cached())
}

func TestRandomAccessCaching_CacheCompletion(t *testing.T) {
	p := randomAccess(letters)
	view, err := NewRandomAccessCaching[string](p, quiet())
	require.NoError(t, err)
	defer view.Close()

	assert.Equal(t, []string{"E", "C", "A", "B", "D"}, readAt(t, view, []int{4, 2, 0, 1, 3}))
	assert.True(t, view.Promoted())
	assert.False(t, view.IsProviderOpen())
	assert.Equal(t, uint64(1), p.Calls(provider.OpClose))

	before := p.Stats().GetStats()
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "!"}, readAt(t, view, []int{0, 1, 2, 3, 4, 5}))
	assert.Equal(t, before, p.Stats().GetStats())

	require.NoError(t, view.Close())
	assert.Equal(t, uint64(1), p.Calls(provider.OpClose))
}

func TestRandomAccessCaching_PastEndCompletesUnsizedCache(t *testing.T) {
	p := provider.NewCounting[string](unsizedList{provider.NewListProvider(letters)}, nil)
	view, err := NewRandomAccessCaching[string](p, quiet())
	require.NoError(t, err)
	defer view.Close()

	rows, err := view.Materialize()
	require.NoError(t, err)
	assert.Equal(t, letters, rows)
	assert.True(t, view.Promoted())
	assert.False(t, view.IsProviderOpen())

	n, known := view.LenIfKnown()
	assert.True(t, known)
	assert.Equal(t, 5, n)
}

func TestRandomAccessCaching_SparsePastEndKeepsProvider(t *testing.T) {
	p := provider.NewCounting[string](unsizedList{provider.NewListProvider(letters)}, nil)
	view, err := NewRandomAccessCaching[string](p, quiet())
	require.NoError(t, err)
	defer view.Close()

	assert.Equal(t, []string{"A", "!"}, readAt(t, view, []int{0, 7}))
	assert.False(t, view.Promoted())
	assert.True(t, view.IsProviderOpen())
	_, known := view.LenIfKnown()
	assert.False(t, known)
}

func TestRandomAccessCaching_BoundedCache(t *testing.T) {
	p := randomAccess(letters)
	view, err := NewRandomAccessCaching[string](p, quiet(), WithCacheCapacity(2))
	require.NoError(t, err)
	defer view.Close()

	assert.Equal(t, []string{"A", "B", "C"}, readAt(t, view, []int{0, 1, 2}))
	assert.Equal(t, uint64(1), view.Evictions())
	assert.Equal(t, 2, view.Cached())

	// row 0 was evicted and is fetched again
	assert.Equal(t, []string{"A"}, readAt(t, view, []int{0}))
	assert.Equal(t, uint64(4), p.Calls(provider.OpAbsolute))

	rows, err := view.Materialize()
	require.NoError(t, err)
	assert.Equal(t, letters, rows)
	assert.False(t, view.Promoted())
	assert.True(t, view.IsProviderOpen())
}

func TestRandomAccessCaching_NegativeCapacity(t *testing.T) {
	p := randomAccess(letters)
	_, err := NewRandomAccessCaching[string](p, quiet(), WithCacheCapacity(-1))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Equal(t, uint64(1), p.Calls(provider.OpClose))
}

func TestForwardCaching_ReadsEachRowOnce(t *testing.T) {
	p := sequentialOnly(letters)
	view, err := NewForwardCaching[string](p, quiet())
	require.NoError(t, err)
	defer view.Close()

	assert.Equal(t, []string{"A", "B", "C"}, readAt(t, view, []int{0, 1, 2}))
	assert.Equal(t, uint64(3), p.Calls(provider.OpNext))
	assert.Equal(t, 3, view.Buffered())
	assert.True(t, view.IsProviderOpen())

	// a read behind the buffer never reaches the provider
	assert.Equal(t, []string{"A"}, readAt(t, view, []int{0}))
	assert.Equal(t, uint64(3), p.Calls(provider.OpNext))

	sub, err := view.SubRange(1, 3)
	require.NoError(t, err)
	rows, err := sub.Materialize()
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, rows)
	assert.Equal(t, uint64(3), p.Calls(provider.OpNext))

	assert.Equal(t, []string{"E", "!"}, readAt(t, view, []int{4, 5}))
	assert.False(t, view.IsProviderOpen())
	assert.Equal(t, uint64(6), p.Calls(provider.OpNext))
	assert.Equal(t, uint64(1), p.Calls(provider.OpClose))
}

func TestSimpleRandomAccess_NoMemoization(t *testing.T) {
	p := randomAccess(letters)
	view, err := NewSimpleRandomAccess[string](p, quiet())
	require.NoError(t, err)
	defer view.Close()

	assert.Equal(t, []string{"B", "B", "!"}, readAt(t, view, []int{1, 1, 9}))
	assert.Equal(t, uint64(2), p.Calls(provider.OpAbsolute))
	assert.Equal(t, uint64(1), p.Calls(provider.OpSize))

	n, err := view.Size()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, uint64(1), p.Calls(provider.OpSize))
	assert.True(t, view.IsProviderOpen())
}

func TestRandomAccessRequired(t *testing.T) {
	for _, strategy := range []config.Strategy{config.StrategySimple, config.StrategyRandom} {
		t.Run(string(strategy), func(t *testing.T) {
			p := sequentialOnly(letters)
			_, err := New[string](strategy, p, quiet())
			assert.ErrorIs(t, err, provider.ErrRandomAccessUnsupported)
			assert.Equal(t, uint64(1), p.Calls(provider.OpClose))
		})
	}
}

func TestConstruction_OpenFailureClosesProvider(t *testing.T) {
	for _, strategy := range config.Strategies {
		t.Run(string(strategy), func(t *testing.T) {
			p := &openFailing{ListProvider: provider.NewListProvider(letters)}
			_, err := New[string](strategy, p, quiet())
			assert.ErrorIs(t, err, errBroken)
			assert.Equal(t, 1, p.closes)
		})
	}
}

func TestConstruction_UnknownStrategy(t *testing.T) {
	p := randomAccess(letters)
	_, err := New[string]("sorted", p, quiet())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Equal(t, uint64(1), p.Calls(provider.OpClose))
}

func TestConstruction_AutoStrategy(t *testing.T) {
	view, err := New[string](config.StrategyAuto, randomAccess(letters), quiet())
	require.NoError(t, err)
	defer view.Close()
	assert.Equal(t, config.StrategySimple, view.Strategy())

	view, err = New[string](config.StrategyAuto, sequentialOnly(letters), quiet())
	require.NoError(t, err)
	defer view.Close()
	assert.Equal(t, config.StrategyWindow, view.Strategy())

	got, err := view.Materialize()
	require.NoError(t, err)
	assert.Equal(t, letters, got)
}

func TestEager_DrainFailure(t *testing.T) {
	p := provider.NewCounting[string](failingAfter([]string{"A"}, errBroken), nil)
	_, err := NewEager[string](p, quiet())
	assert.ErrorIs(t, err, errBroken)
	assert.Equal(t, uint64(1), p.Calls(provider.OpClose))
}

func TestProviderFailureClosesView(t *testing.T) {
	for _, strategy := range []config.Strategy{config.StrategyForward, config.StrategyWindow} {
		t.Run(string(strategy), func(t *testing.T) {
			p := provider.NewCounting[string](failingAfter([]string{"A", "B"}, errBroken), nil)
			view := newView(t, strategy, p, WithWindowSize(2))

			row, err := view.Get(0)
			require.NoError(t, err)
			assert.Equal(t, "A", row)

			_, err = view.Get(2)
			assert.ErrorIs(t, err, errBroken)
			assert.True(t, view.IsClosed())
			assert.False(t, view.IsProviderOpen())
			assert.Equal(t, uint64(1), p.Calls(provider.OpClose))

			_, err = view.Get(0)
			assert.ErrorIs(t, err, ErrSequenceClosed)
			require.NoError(t, view.Close())
		})
	}
}

func TestCheckedFailureIsTranslated(t *testing.T) {
	checked := provider.Checked(fmt.Errorf("connection reset"))

	t.Run("with handler", func(t *testing.T) {
		p := translating{failingAfter([]string{"A"}, checked)}
		view := newView(t, config.StrategyForward, p)

		_, err := view.Get(1)
		assert.ErrorIs(t, err, errQueryFailed)
		assert.False(t, provider.IsChecked(err))
		assert.True(t, view.IsClosed())
	})

	t.Run("without handler", func(t *testing.T) {
		view := newView(t, config.StrategyForward, failingAfter(nil, checked))

		_, err := view.Get(0)
		assert.ErrorIs(t, err, provider.ErrCheckedProviderFailure)

		var perr *provider.ProviderError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, provider.OpNext, perr.Op)
	})
}

func TestWindowed_EndToEnd(t *testing.T) {
	for name, build := range map[string]func([]string) *provider.Counting[string]{
		"sequential":    sequentialOnly,
		"random access": randomAccess,
	} {
		t.Run(name, func(t *testing.T) {
			p := build(letters)
			view, err := NewWindowed[string](p, quiet(), WithWindowSize(2))
			require.NoError(t, err)
			defer view.Close()

			assert.Equal(t, []string{"E", "A", "D"}, readAt(t, view, []int{4, 0, 3}))
			assert.LessOrEqual(t, p.Calls(provider.OpNext), uint64(3*len(letters)))
			assert.Equal(t, 3, view.WindowStart())
		})
	}
}

func TestWindowed_MatchesEager(t *testing.T) {
	patterns := map[string][]int{
		"forward":  {0, 1, 2, 3, 4, 5, 6},
		"backward": {6, 5, 4, 3, 2, 1, 0},
		"random":   {3, 0, 6, 1, 1, 5, 2, 4, 0, 6},
		"strided":  {0, 3, 6, 2, 5, 1, 4},
	}
	rows := []string{"a", "b", "c", "d", "e", "f", "g"}

	for _, size := range []int{1, 2, 3, 7, 10} {
		for name, indices := range patterns {
			for kind, build := range map[string]func([]string) *provider.Counting[string]{
				"sequential":    sequentialOnly,
				"random access": randomAccess,
				"unknown size":  unknownSize,
			} {
				t.Run(fmt.Sprintf("w%d/%s/%s", size, name, kind), func(t *testing.T) {
					eager := newView(t, config.StrategyEager, randomAccess(rows))
					windowed := newView(t, config.StrategyWindow, build(rows), WithWindowSize(size))

					indices := append(indices, 9, 7)
					assert.Equal(t, readAt(t, eager, indices), readAt(t, windowed, indices))
				})
			}
		}
	}
}

func TestWindowed_SmallResultFreesProvider(t *testing.T) {
	p := sequentialOnly([]string{"x", "y", "z"})
	view, err := NewWindowed[string](p, quiet())
	require.NoError(t, err)
	defer view.Close()

	row, err := view.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "x", row)

	assert.False(t, view.IsProviderOpen())
	n, known := view.LenIfKnown()
	assert.True(t, known)
	assert.Equal(t, 3, n)

	assert.Equal(t, []string{"z", "x", "!"}, readAt(t, view, []int{2, 0, 3}))
	assert.Equal(t, uint64(4), p.Calls(provider.OpNext))
}

func TestWindowed_RewindDropsWindow(t *testing.T) {
	view, err := NewWindowed[string](resetFailing{provider.FromSlice(letters)}, quiet(), WithWindowSize(2))
	require.NoError(t, err)
	defer view.Close()

	assert.Equal(t, []string{"D"}, readAt(t, view, []int{3}))
	assert.Equal(t, 3, view.WindowStart())

	_, err = view.Get(0)
	assert.ErrorIs(t, err, errBroken)
	assert.Equal(t, -1, view.WindowStart())
	assert.True(t, view.IsClosed())
}

func TestWindowed_InvalidSize(t *testing.T) {
	p := randomAccess(letters)
	_, err := NewWindowed[string](p, quiet(), WithWindowSize(0))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Equal(t, uint64(1), p.Calls(provider.OpClose))
}

// recordingMetrics counts early frees by reason
type recordingMetrics struct {
	freed     map[string]int
	evictions int
	calls     int
	closes    int
}

func (m *recordingMetrics) RecordProviderCall(ctx context.Context, strategy string, op provider.Op, d time.Duration, err error) {
	m.calls++
	if op == provider.OpClose {
		m.closes++
	}
}

func (m *recordingMetrics) RecordCacheHit(ctx context.Context, strategy string, hit bool) {}

func (m *recordingMetrics) RecordEviction(ctx context.Context, strategy string) {
	m.evictions++
}

func (m *recordingMetrics) RecordProviderFreed(ctx context.Context, strategy string, reason string) {
	m.freed[reason]++
}

func (m *recordingMetrics) Close() error { return nil }

func TestViewMetrics(t *testing.T) {
	metrics := &recordingMetrics{freed: map[string]int{}}

	eager := newView(t, config.StrategyEager, randomAccess(letters), WithMetrics(metrics))
	require.NotNil(t, eager)
	assert.Equal(t, 1, metrics.freed["drained"])
	assert.Equal(t, 1, metrics.closes)
	assert.Positive(t, metrics.calls)

	// closing after an early free does not close the provider again
	require.NoError(t, eager.Close())
	assert.Equal(t, 1, metrics.closes)

	windowed := newView(t, config.StrategyWindow, sequentialOnly([]string{"x"}), WithMetrics(metrics))
	_, err := windowed.Get(0)
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.freed["window covers result"])
	assert.Equal(t, 2, metrics.closes)

	random := newView(t, config.StrategyRandom, randomAccess(letters), WithMetrics(metrics), WithCacheCapacity(1))
	_, err = random.Materialize()
	require.NoError(t, err)
	assert.Equal(t, 4, metrics.evictions)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Update(func(c *config.Config) {
		c.Strategy = config.StrategyWindow
		c.WindowSize = 3
		c.LogLevel = "error"
	})

	view, err := NewFromConfig[string](cfg, sequentialOnly(letters))
	require.NoError(t, err)
	defer view.Close()

	windowed, ok := view.(*Windowed[string])
	require.True(t, ok)
	assert.Equal(t, 3, windowed.WindowSize())

	cfg.Update(func(c *config.Config) { c.WindowSize = 0 })
	p := randomAccess(letters)
	_, err = NewFromConfig[string](cfg, p)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Equal(t, uint64(1), p.Calls(provider.OpClose))
}
