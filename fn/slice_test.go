package fn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllAny(t *testing.T) {
	even := func(n int) bool { return n%2 == 0 }

	require.True(t, All(even, []int{2, 4, 6}))
	require.False(t, All(even, []int{2, 3, 6}))

	require.True(t, Any(even, []int{1, 3, 4}))
	require.False(t, Any(even, []int{1, 3, 5}))
}

func TestFilter(t *testing.T) {
	even := func(n int) bool { return n%2 == 0 }

	require.Equal(t, []int{2, 4}, Filter[int](even, []int{1, 2, 3, 4, 5}))
	require.Empty(t, Filter[int](even, []int{1, 3, 5}))
}

func TestFind(t *testing.T) {
	gt3 := func(n int) bool { return n > 3 }

	got := Find[int](gt3, []int{1, 2, 3, 4, 5})
	require.True(t, got.IsSome())
	require.Equal(t, 4, got.UnwrapOr(0))

	none := Find[int](gt3, []int{1, 2, 3})
	require.True(t, none.IsNone())
}

func TestElem(t *testing.T) {
	require.True(t, Elem(3, []int{1, 2, 3}))
	require.False(t, Elem(9, []int{1, 2, 3}))
}
