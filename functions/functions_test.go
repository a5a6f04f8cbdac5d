package functions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowquery-go/flowquery/value"
)

func TestCoalesceReturnsFirstNonNull(t *testing.T) {
	r := NewRegistry()
	v, err := r.Call(nil, "coalesce", []value.Value{value.NewNull(), value.NewString("hello"), value.NewString("world")}, false)
	require.NoError(t, err)
	assert.Equal(t, "hello", v.Str())
}

func TestHeadTailLast(t *testing.T) {
	r := NewRegistry()
	list := value.NewList([]value.Value{value.NewInt(1), value.NewInt(2), value.NewInt(3)})

	h, err := r.Call(nil, "head", []value.Value{list}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.Int())

	l, err := r.Call(nil, "last", []value.Value{list}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(3), l.Int())

	tl, err := r.Call(nil, "tail", []value.Value{list}, false)
	require.NoError(t, err)
	assert.Len(t, tl.List(), 2)
	assert.Equal(t, int64(2), tl.List()[0].Int())
}

func TestCountAndSumAggregation(t *testing.T) {
	r := NewRegistry()
	const group = "g1"
	for _, n := range []int64{1, 2, 2, 3} {
		require.NoError(t, r.Reduce(nil, group, "count", []value.Value{value.NewInt(n)}, false))
		require.NoError(t, r.Reduce(nil, group, "sum", []value.Value{value.NewInt(n)}, false))
	}
	count, err := r.ReduceResult(group, "count")
	require.NoError(t, err)
	assert.Equal(t, int64(4), count.Int())

	sum, err := r.ReduceResult(group, "sum")
	require.NoError(t, err)
	assert.Equal(t, int64(8), sum.Int())
}

func TestCountDistinct(t *testing.T) {
	r := NewRegistry()
	const group = "g2"
	for _, n := range []int64{1, 2, 2, 3} {
		require.NoError(t, r.Reduce(nil, group, "count", []value.Value{value.NewInt(n)}, true))
	}
	count, err := r.ReduceResult(group, "count")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count.Int())
}

func TestMinMax(t *testing.T) {
	r := NewRegistry()
	const group = "g3"
	for _, n := range []int64{3, 1, 2} {
		require.NoError(t, r.Reduce(nil, group, "min", []value.Value{value.NewInt(n)}, false))
		require.NoError(t, r.Reduce(nil, group, "max", []value.Value{value.NewInt(n)}, false))
	}
	mn, err := r.ReduceResult(group, "min")
	require.NoError(t, err)
	assert.Equal(t, int64(1), mn.Int())
	mx, err := r.ReduceResult(group, "max")
	require.NoError(t, err)
	assert.Equal(t, int64(3), mx.Int())
}

func TestToFloatToIntegerCoercion(t *testing.T) {
	r := NewRegistry()
	f, err := r.Call(nil, "tofloat", []value.Value{value.NewString("3.14")}, false)
	require.NoError(t, err)
	assert.InDelta(t, 3.14, f.Float(), 0.0001)

	i, err := r.Call(nil, "tointeger", []value.Value{value.NewFloat(3.99)}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(3), i.Int())
}

func TestUnknownFunctionIsEvaluationError(t *testing.T) {
	r := NewRegistry()
	_, err := r.Call(nil, "notAFunction", nil, false)
	assert.Error(t, err)
}

func TestSubstring(t *testing.T) {
	r := NewRegistry()
	v, err := r.Call(nil, "substring", []value.Value{value.NewString("hello"), value.NewInt(1), value.NewInt(3)}, false)
	require.NoError(t, err)
	assert.Equal(t, "ell", v.Str())
}

func TestDurationFromISOString(t *testing.T) {
	r := NewRegistry()
	v, err := r.Call(nil, "duration", []value.Value{value.NewString("P1Y2M3D")}, false)
	require.NoError(t, err)
	years, _ := v.Map().Get("years")
	assert.Equal(t, int64(1), years.Int())
	formatted, _ := v.Map().Get("formatted")
	assert.Equal(t, "P1Y2M3D", formatted.Str())
}
