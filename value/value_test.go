package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddCoercions(t *testing.T) {
	v, err := Add(NewInt(1), NewInt(2))
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.Int())

	v, err = Add(NewString("a"), NewString("b"))
	require.NoError(t, err)
	assert.Equal(t, "ab", v.Str())

	_, err = Add(NewString("a"), NewInt(1))
	assert.Error(t, err)
}

func TestDivisionByZero(t *testing.T) {
	_, err := Div(NewInt(1), NewInt(0))
	assert.Error(t, err)
}

func TestCompareNullLessThanNonNull(t *testing.T) {
	assert.Equal(t, -1, Compare(NewNull(), NewInt(1)))
	assert.Equal(t, 1, Compare(NewInt(1), NewNull()))
	assert.Equal(t, 0, Compare(NewNull(), NewNull()))
}

func TestEqualStructuralLists(t *testing.T) {
	a := NewList([]Value{NewInt(1), NewInt(2)})
	b := NewList([]Value{NewInt(1), NewInt(2)})
	assert.True(t, Equal(a, b))
}

func TestToRecordBooleanNormalisation(t *testing.T) {
	assert.Equal(t, 1, ToRecord(NewBool(true)))
	assert.Equal(t, 0, ToRecord(NewBool(false)))
}

func TestCanonicalJSONStable(t *testing.T) {
	m1 := NewOrderedMap()
	m1.Set("b", NewInt(2))
	m1.Set("a", NewInt(1))

	m2 := NewOrderedMap()
	m2.Set("a", NewInt(1))
	m2.Set("b", NewInt(2))

	assert.Equal(t, CanonicalJSON(NewMap(m1)), CanonicalJSON(NewMap(m2)))
}
