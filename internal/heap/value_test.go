package heap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsFalsey(t *testing.T) {
	require.True(t, IsFalsey(Nil))
	require.True(t, IsFalsey(Bool(false)))
	require.False(t, IsFalsey(Bool(true)))
	require.False(t, IsFalsey(Number(0)))
}

func TestEqualNumbersNaN(t *testing.T) {
	a := Number(math.NaN())
	b := Number(math.NaN())
	require.False(t, Equal(a, b), "NaN must not equal NaN")
	require.True(t, Equal(Number(1), Number(1)))
}

func TestEqualHandlesByIdentity(t *testing.T) {
	a := Object(Handle{Kind: KindInstance, Index: 1})
	b := Object(Handle{Kind: KindInstance, Index: 1})
	c := Object(Handle{Kind: KindInstance, Index: 2})
	require.True(t, Equal(a, b))
	require.False(t, Equal(a, c))
}

func TestEqualDifferentKinds(t *testing.T) {
	require.False(t, Equal(Nil, Bool(false)))
	require.False(t, Equal(Number(0), Bool(false)))
}
