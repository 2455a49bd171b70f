package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewStringInterns(t *testing.T) {
	h := New()
	a := h.NewString([]byte("shared"))
	b := h.NewString([]byte("shared"))
	require.Equal(t, a, b)
}

func TestConcatAllocatesInternedResult(t *testing.T) {
	h := New()
	a := h.NewString([]byte("f"))
	b := h.NewString([]byte("oo"))
	concatenated := h.Concat(a, b)
	direct := h.NewString([]byte("foo"))
	require.Equal(t, direct, concatenated, "concatenation must resolve through the same intern table")
}

func TestInitStringIsInit(t *testing.T) {
	h := New()
	require.Equal(t, "init", h.StringValue(h.InitString))
}

func TestReserveChargesLiveBytes(t *testing.T) {
	h := New()
	before := h.LiveBytes
	h.NewFunction(FunctionObject{})
	require.Greater(t, h.LiveBytes, before)
}

func TestGrowThresholdFloorsAtInitial(t *testing.T) {
	h := New()
	h.LiveBytes = 0
	h.GrowThreshold()
	require.Equal(t, initialThreshold, h.Threshold)
}

func TestStressGCTriggersCollectFn(t *testing.T) {
	h := New()
	h.StressGC = true
	calls := 0
	h.CollectFn = func() { calls++ }
	h.NewFunction(FunctionObject{})
	require.Equal(t, 1, calls)
}
