package ast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowquery-go/flowquery/token"
	"github.com/flowquery-go/flowquery/value"
)

// fakeFuncs is a minimal FuncResolver for exercising FuncCall without
// pulling in the functions package: it knows "double" (scalar) and
// "sum" (a tiny reducer), matching what functions_test.go in the
// sibling package exercises against the real registry.
type fakeFuncs struct {
	groups map[string]int64
}

func newFakeFuncs() *fakeFuncs { return &fakeFuncs{groups: map[string]int64{}} }

func (f *fakeFuncs) Call(ctx *EvalContext, name string, args []value.Value, distinct bool) (value.Value, error) {
	if name == "double" {
		return value.NewInt(args[0].Int() * 2), nil
	}
	return value.Value{}, errors.New("unknown function " + name)
}

func (f *fakeFuncs) Reduce(ctx *EvalContext, groupKey, name string, args []value.Value, distinct bool) error {
	f.groups[groupKey] += args[0].Int()
	return nil
}

func (f *fakeFuncs) ReduceResult(groupKey, name string) (value.Value, error) {
	return value.NewInt(f.groups[groupKey]), nil
}

func (f *fakeFuncs) ResetGroup(groupKey string) { delete(f.groups, groupKey) }
func (f *fakeFuncs) IsAggregate(name string) bool { return name == "sum" }
func (f *fakeFuncs) Arity(name string) (int, bool) {
	if name == "double" {
		return 1, true
	}
	return 0, false
}

// fakeMatcher lets PatternExpr tests control Exists without a real
// graph.Matcher.
type fakeMatcher struct{ exists bool }

func (m *fakeMatcher) Exists(ctx *EvalContext, p *Pattern) (bool, error) { return m.exists, nil }

func newCtx(funcs FuncResolver, matcher PatternMatcher) *EvalContext {
	return &EvalContext{Scope: NewScope(nil), Functions: funcs, Matcher: matcher}
}

func TestScopeSetUpdatesIntroducingAncestor(t *testing.T) {
	outer := NewScope(nil)
	outer.Declare("x", value.NewInt(1))
	inner := NewScope(outer)

	inner.Set("x", value.NewInt(2))

	v, ok := outer.Get("x")
	require.True(t, ok)
	assert.Equal(t, int64(2), v.Int())

	_, ok = inner.vars["x"]
	assert.False(t, ok, "Set should not shadow in inner when an ancestor already owns the name")
}

func TestScopeDeclareShadows(t *testing.T) {
	outer := NewScope(nil)
	outer.Declare("x", value.NewInt(1))
	inner := NewScope(outer)
	inner.Declare("x", value.NewInt(99))

	v, _ := inner.Get("x")
	assert.Equal(t, int64(99), v.Int())
	ov, _ := outer.Get("x")
	assert.Equal(t, int64(1), ov.Int())
}

func TestListAndMapLiteralEval(t *testing.T) {
	ctx := newCtx(nil, nil)
	list := NewListLiteral(token.Pos{}, []Expr{NewLiteral(token.Pos{}, value.NewInt(1)), NewLiteral(token.Pos{}, value.NewInt(2))})
	v, err := list.Value(ctx)
	require.NoError(t, err)
	require.Len(t, v.List(), 2)

	m := NewMapLiteral(token.Pos{}, []string{"a"}, []Expr{NewLiteral(token.Pos{}, value.NewString("hi"))})
	mv, err := m.Value(ctx)
	require.NoError(t, err)
	got, ok := mv.Map().Get("a")
	require.True(t, ok)
	assert.Equal(t, "hi", got.Str())
}

func TestReferenceUnboundIsBindingError(t *testing.T) {
	ctx := newCtx(nil, nil)
	ref := NewReference(token.Pos{}, "missing")
	_, err := ref.Value(ctx)
	assert.Error(t, err)
}

func TestLookupOnNullTargetIsNullNotError(t *testing.T) {
	ctx := newCtx(nil, nil)
	l := NewLookup(token.Pos{}, NewLiteral(token.Pos{}, value.NewNull()), NewLiteral(token.Pos{}, value.NewString("k")))
	v, err := l.Value(ctx)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestLookupMissingMapKeyIsNull(t *testing.T) {
	ctx := newCtx(nil, nil)
	om := value.NewOrderedMap()
	om.Set("a", value.NewInt(1))
	l := NewLookup(token.Pos{}, NewLiteral(token.Pos{}, value.NewMap(om)), NewLiteral(token.Pos{}, value.NewString("b")))
	v, err := l.Value(ctx)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestSliceNegativeIndices(t *testing.T) {
	ctx := newCtx(nil, nil)
	items := []Expr{
		NewLiteral(token.Pos{}, value.NewInt(1)),
		NewLiteral(token.Pos{}, value.NewInt(2)),
		NewLiteral(token.Pos{}, value.NewInt(3)),
		NewLiteral(token.Pos{}, value.NewInt(4)),
	}
	list := NewListLiteral(token.Pos{}, items)
	sl := NewSlice(token.Pos{}, list, NewLiteral(token.Pos{}, value.NewInt(-2)), nil)
	v, err := sl.Value(ctx)
	require.NoError(t, err)
	require.Len(t, v.List(), 2)
	assert.Equal(t, int64(3), v.List()[0].Int())
	assert.Equal(t, int64(4), v.List()[1].Int())
}

func TestBinaryExprComparisonAndIn(t *testing.T) {
	ctx := newCtx(nil, nil)
	eq := NewBinaryExpr(token.Pos{}, OpEq, NewLiteral(token.Pos{}, value.NewInt(2)), NewLiteral(token.Pos{}, value.NewInt(2)))
	v, err := eq.Value(ctx)
	require.NoError(t, err)
	assert.True(t, v.Bool())

	list := NewListLiteral(token.Pos{}, []Expr{NewLiteral(token.Pos{}, value.NewInt(1)), NewLiteral(token.Pos{}, value.NewInt(2))})
	in := NewBinaryExpr(token.Pos{}, OpIn, NewLiteral(token.Pos{}, value.NewInt(2)), list)
	v, err = in.Value(ctx)
	require.NoError(t, err)
	assert.True(t, v.Bool())

	notIn := NewBinaryExpr(token.Pos{}, OpNotIn, NewLiteral(token.Pos{}, value.NewInt(3)), list)
	v, err = notIn.Value(ctx)
	require.NoError(t, err)
	assert.True(t, v.Bool())
}

func TestBinaryExprStringOperators(t *testing.T) {
	ctx := newCtx(nil, nil)
	starts := NewBinaryExpr(token.Pos{}, OpStartsWith, NewLiteral(token.Pos{}, value.NewString("hello")), NewLiteral(token.Pos{}, value.NewString("he")))
	v, err := starts.Value(ctx)
	require.NoError(t, err)
	assert.True(t, v.Bool())

	notEnds := NewBinaryExpr(token.Pos{}, OpNotEndsWith, NewLiteral(token.Pos{}, value.NewString("hello")), NewLiteral(token.Pos{}, value.NewString("xx")))
	v, err = notEnds.Value(ctx)
	require.NoError(t, err)
	assert.True(t, v.Bool())
}

func TestBinaryExprShortCircuitsAndOr(t *testing.T) {
	ctx := newCtx(nil, nil)
	// Right side would error if evaluated; short-circuit must skip it.
	boom := NewReference(token.Pos{}, "unbound")

	and := NewBinaryExpr(token.Pos{}, OpAnd, NewLiteral(token.Pos{}, value.NewBool(false)), boom)
	v, err := and.Value(ctx)
	require.NoError(t, err)
	assert.False(t, v.Bool())

	or := NewBinaryExpr(token.Pos{}, OpOr, NewLiteral(token.Pos{}, value.NewBool(true)), boom)
	v, err = or.Value(ctx)
	require.NoError(t, err)
	assert.True(t, v.Bool())
}

func TestUnaryExprNotAndNeg(t *testing.T) {
	ctx := newCtx(nil, nil)
	not := NewUnaryExpr(token.Pos{}, true, NewLiteral(token.Pos{}, value.NewBool(false)))
	v, err := not.Value(ctx)
	require.NoError(t, err)
	assert.True(t, v.Bool())

	neg := NewUnaryExpr(token.Pos{}, false, NewLiteral(token.Pos{}, value.NewInt(5)))
	v, err = neg.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(-5), v.Int())
}

func TestFuncCallScalar(t *testing.T) {
	funcs := newFakeFuncs()
	ctx := newCtx(funcs, nil)
	call := NewFuncCall(token.Pos{}, "double", []Expr{NewLiteral(token.Pos{}, value.NewInt(4))}, false, nil)
	v, err := call.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), v.Int())
}

func TestFuncCallPredicateReducer(t *testing.T) {
	funcs := newFakeFuncs()
	ctx := newCtx(funcs, nil)
	arr := NewListLiteral(token.Pos{}, []Expr{
		NewLiteral(token.Pos{}, value.NewInt(1)),
		NewLiteral(token.Pos{}, value.NewInt(2)),
		NewLiteral(token.Pos{}, value.NewInt(3)),
	})
	comp := NewListComprehension(token.Pos{}, "n", arr,
		NewBinaryExpr(token.Pos{}, OpGt, NewReference(token.Pos{}, "n"), NewLiteral(token.Pos{}, value.NewInt(1))),
		nil)
	call := NewFuncCall(token.Pos{}, "sum", nil, false, comp)
	v, err := call.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.Int()) // 2 + 3
}

func TestCaseExprSearchedForm(t *testing.T) {
	ctx := newCtx(nil, nil)
	c := NewCaseExpr(token.Pos{}, nil,
		[]Expr{NewBinaryExpr(token.Pos{}, OpEq, NewLiteral(token.Pos{}, value.NewInt(1)), NewLiteral(token.Pos{}, value.NewInt(2)))},
		[]Expr{NewLiteral(token.Pos{}, value.NewString("no"))},
		NewLiteral(token.Pos{}, value.NewString("else")))
	v, err := c.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, "else", v.Str())
}

func TestCaseExprSimpleForm(t *testing.T) {
	ctx := newCtx(nil, nil)
	c := NewCaseExpr(token.Pos{}, NewLiteral(token.Pos{}, value.NewInt(2)),
		[]Expr{NewLiteral(token.Pos{}, value.NewInt(1)), NewLiteral(token.Pos{}, value.NewInt(2))},
		[]Expr{NewLiteral(token.Pos{}, value.NewString("one")), NewLiteral(token.Pos{}, value.NewString("two"))},
		nil)
	v, err := c.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, "two", v.Str())
}

func TestFStringExprConcatenates(t *testing.T) {
	ctx := newCtx(nil, nil)
	ctx.Scope.Declare("name", value.NewString("world"))
	fs := NewFStringExpr(token.Pos{}, []string{"hello ", "!"}, []Expr{NewReference(token.Pos{}, "name")})
	v, err := fs.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello world!", v.Str())
}

func TestListComprehensionFiltersAndMaps(t *testing.T) {
	ctx := newCtx(nil, nil)
	arr := NewListLiteral(token.Pos{}, []Expr{
		NewLiteral(token.Pos{}, value.NewInt(1)),
		NewLiteral(token.Pos{}, value.NewInt(2)),
		NewLiteral(token.Pos{}, value.NewInt(3)),
	})
	comp := NewListComprehension(token.Pos{}, "n", arr,
		NewBinaryExpr(token.Pos{}, OpGt, NewReference(token.Pos{}, "n"), NewLiteral(token.Pos{}, value.NewInt(1))),
		NewBinaryExpr(token.Pos{}, OpMul, NewReference(token.Pos{}, "n"), NewLiteral(token.Pos{}, value.NewInt(10))))
	v, err := comp.Value(ctx)
	require.NoError(t, err)
	require.Len(t, v.List(), 2)
	assert.Equal(t, int64(20), v.List()[0].Int())
	assert.Equal(t, int64(30), v.List()[1].Int())
}

func TestParenExprPassesThrough(t *testing.T) {
	ctx := newCtx(nil, nil)
	p := NewParenExpr(token.Pos{}, NewLiteral(token.Pos{}, value.NewInt(7)))
	v, err := p.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.Int())
}

func TestPatternExprNegate(t *testing.T) {
	matcher := &fakeMatcher{exists: true}
	ctx := newCtx(nil, matcher)
	pat := NewPattern(token.Pos{})
	pat.AddNode(NewNode(token.Pos{}, "", "Person"))

	pe := NewPatternExpr(token.Pos{}, pat, true)
	v, err := pe.Value(ctx)
	require.NoError(t, err)
	assert.False(t, v.Bool())
}
