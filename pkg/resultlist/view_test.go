package resultlist

import (
	"strings"
	"testing"

	"github.com/KevoDB/rowcursor/pkg/config"
	"github.com/KevoDB/rowcursor/pkg/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestView_ReadsInOrder(t *testing.T) {
	forEachView(t, letters, func(t *testing.T, view View[string], p *provider.Counting[string]) {
		rows, err := view.Materialize()
		require.NoError(t, err)
		assert.Equal(t, letters, rows)

		n, err := view.Size()
		require.NoError(t, err)
		assert.Equal(t, 5, n)

		assert.Equal(t, []string{"C", "A", "E", "!"}, readAt(t, view, []int{2, 0, 4, 5}))

		_, err = view.Get(-1)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	})
}

func TestView_ClosedInvariant(t *testing.T) {
	forEachView(t, letters, func(t *testing.T, view View[string], p *provider.Counting[string]) {
		// touch some state first
		_, err := view.Get(1)
		require.NoError(t, err)

		require.NoError(t, view.Close())
		assert.True(t, view.IsClosed())
		assert.False(t, view.IsProviderOpen())

		it := view.Iter()
		assert.False(t, it.Next())
		assert.NoError(t, it.Err())

		for _, i := range []int{0, 1, 4, 9} {
			_, err := view.Get(i)
			assert.ErrorIs(t, err, ErrSequenceClosed)
		}

		_, err = view.Size()
		assert.ErrorIs(t, err, ErrSequenceClosed)
		_, err = view.IndexOf("A")
		assert.ErrorIs(t, err, ErrSequenceClosed)
		_, err = view.Materialize()
		assert.ErrorIs(t, err, ErrSequenceClosed)
		_, err = view.SubRange(0, 1)
		assert.ErrorIs(t, err, ErrSequenceClosed)
	})
}

func TestView_ReadOnly(t *testing.T) {
	forEachView(t, letters, func(t *testing.T, view View[string], p *provider.Counting[string]) {
		assert.ErrorIs(t, view.Insert(0, "Z"), ErrUnsupportedMutation)
		assert.ErrorIs(t, view.Append("Z"), ErrUnsupportedMutation)
		assert.ErrorIs(t, view.Remove(0), ErrUnsupportedMutation)
		assert.ErrorIs(t, view.Set(1, "Z"), ErrUnsupportedMutation)
		assert.ErrorIs(t, view.Clear(), ErrUnsupportedMutation)

		rows, err := view.Materialize()
		require.NoError(t, err)
		assert.Equal(t, letters, rows)
	})
}

func TestView_IdempotentClose(t *testing.T) {
	forEachView(t, letters, func(t *testing.T, view View[string], p *provider.Counting[string]) {
		require.NoError(t, view.Close())
		require.NoError(t, view.Close())
		assert.Equal(t, uint64(1), p.Calls(provider.OpClose))
	})
}

func TestView_Search(t *testing.T) {
	rows := []string{"a", "b", "a", "c"}

	forEachView(t, rows, func(t *testing.T, view View[string], p *provider.Counting[string]) {
		found, err := view.Contains("c")
		require.NoError(t, err)
		assert.True(t, found)

		found, err = view.Contains("z")
		require.NoError(t, err)
		assert.False(t, found)

		i, err := view.IndexOf("a")
		require.NoError(t, err)
		assert.Equal(t, 0, i)

		i, err = view.LastIndexOf("a")
		require.NoError(t, err)
		assert.Equal(t, 2, i)

		i, err = view.LastIndexOf("z")
		require.NoError(t, err)
		assert.Equal(t, -1, i)
	})
}

func TestView_CustomEquality(t *testing.T) {
	view := newView(t, config.StrategyForward, sequentialOnly(letters),
		WithEqual(strings.EqualFold))

	i, err := view.IndexOf("d")
	require.NoError(t, err)
	assert.Equal(t, 3, i)
}

func TestView_Iterator(t *testing.T) {
	forEachView(t, letters, func(t *testing.T, view View[string], p *provider.Counting[string]) {
		it := view.IterFrom(2)
		var got []string
		var indices []int
		for it.Next() {
			got = append(got, it.Value())
			indices = append(indices, it.Index())
		}
		require.NoError(t, it.Err())
		assert.Equal(t, []string{"C", "D", "E"}, got)
		assert.Equal(t, []int{2, 3, 4}, indices)

		bad := view.IterFrom(-1)
		assert.False(t, bad.Next())
		assert.ErrorIs(t, bad.Err(), ErrIndexOutOfRange)
	})
}

func TestView_IteratorStopsWhenViewCloses(t *testing.T) {
	forEachView(t, letters, func(t *testing.T, view View[string], p *provider.Counting[string]) {
		it := view.Iter()
		require.True(t, it.Next())
		require.True(t, it.Next())
		assert.Equal(t, "B", it.Value())

		require.NoError(t, view.Close())
		assert.False(t, it.Next())
		assert.NoError(t, it.Err())
	})
}

func TestView_All(t *testing.T) {
	forEachView(t, letters, func(t *testing.T, view View[string], p *provider.Counting[string]) {
		var got []string
		for row, err := range view.All() {
			require.NoError(t, err)
			got = append(got, row)
			if row == "C" {
				break
			}
		}
		assert.Equal(t, []string{"A", "B", "C"}, got)
	})
}

func TestView_SubRange(t *testing.T) {
	forEachView(t, letters, func(t *testing.T, view View[string], p *provider.Counting[string]) {
		sub, err := view.SubRange(1, 4)
		require.NoError(t, err)

		rows, err := sub.Materialize()
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "C", "D"}, rows)

		n, err := sub.Size()
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		_, err = sub.Get(3)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)

		i, err := sub.IndexOf("D")
		require.NoError(t, err)
		assert.Equal(t, 2, i)

		_, err = view.SubRange(3, 2)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)

		// closing the sub-range leaves the parent usable
		require.NoError(t, sub.Close())
		assert.True(t, sub.IsClosed())
		row, err := view.Get(0)
		require.NoError(t, err)
		assert.Equal(t, "A", row)

		other, err := view.SubRange(0, 2)
		require.NoError(t, err)
		require.NoError(t, view.Close())
		assert.True(t, other.IsClosed())
		_, err = other.Get(0)
		assert.ErrorIs(t, err, ErrSequenceClosed)
	})
}

func TestView_SubRangeSizeStaysInRange(t *testing.T) {
	rows := numbered(1000)

	t.Run("window", func(t *testing.T) {
		p := unknownSize(rows)
		view := newView(t, config.StrategyWindow, p, WithWindowSize(3))

		sub, err := view.SubRange(0, 3)
		require.NoError(t, err)
		n, err := sub.Size()
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.LessOrEqual(t, p.Calls(provider.OpNext), uint64(5))
		assert.True(t, view.IsProviderOpen())
	})

	t.Run("forward buffered", func(t *testing.T) {
		p := unknownSize(rows)
		view := newView(t, config.StrategyForward, p)
		_, err := view.Get(2)
		require.NoError(t, err)
		before := p.Calls(provider.OpNext)

		sub, err := view.SubRange(0, 3)
		require.NoError(t, err)
		n, err := sub.Size()
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, before, p.Calls(provider.OpNext))
	})

	t.Run("forward unbuffered", func(t *testing.T) {
		p := unknownSize(rows)
		view := newView(t, config.StrategyForward, p)

		sub, err := view.SubRange(10, 20)
		require.NoError(t, err)
		n, err := sub.Size()
		require.NoError(t, err)
		assert.Equal(t, 10, n)
		assert.Equal(t, uint64(20), p.Calls(provider.OpNext))
	})
}

func TestView_SubRangePastEndOfUnknownSize(t *testing.T) {
	for _, strategy := range []config.Strategy{config.StrategyForward, config.StrategyWindow} {
		t.Run(string(strategy), func(t *testing.T) {
			view := newView(t, strategy, unknownSize(letters), WithWindowSize(3))

			sub, err := view.SubRange(3, 8)
			require.NoError(t, err)
			n, err := sub.Size()
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			rows, err := sub.Materialize()
			require.NoError(t, err)
			assert.Equal(t, []string{"D", "E"}, rows)
		})
	}
}

func TestView_UserValue(t *testing.T) {
	view := newView(t, config.StrategyEager, randomAccess(letters))
	assert.Nil(t, view.UserValue())

	view.SetUserValue("page-1")
	assert.Equal(t, "page-1", view.UserValue())
}

func TestView_LenIfKnownNeverTouchesProvider(t *testing.T) {
	p := unknownSize(letters)
	view := newView(t, config.StrategyWindow, p, WithWindowSize(2))

	_, known := view.LenIfKnown()
	assert.False(t, known)
	assert.Zero(t, p.Calls(provider.OpSize))
	assert.Zero(t, p.Calls(provider.OpNext))

	n, err := view.Size()
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, known = view.LenIfKnown()
	assert.True(t, known)
	assert.Equal(t, 5, n)
}

func TestView_UnknownSize(t *testing.T) {
	for _, strategy := range strategiesFor(false) {
		t.Run(string(strategy), func(t *testing.T) {
			view := newView(t, strategy, unknownSize(letters), WithWindowSize(3))

			n, err := view.Size()
			require.NoError(t, err)
			assert.Equal(t, 5, n)
			assert.Equal(t, []string{"E", "A", "!"}, readAt(t, view, []int{4, 0, 5}))
		})
	}
}
