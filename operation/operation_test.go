package operation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowquery-go/flowquery/ast"
	"github.com/flowquery-go/flowquery/functions"
	"github.com/flowquery-go/flowquery/graph"
	"github.com/flowquery-go/flowquery/token"
	"github.com/flowquery-go/flowquery/value"
)

func lit(v value.Value) ast.Expr  { return ast.NewLiteral(token.Pos{}, v) }
func ref(name string) *ast.Reference { return &ast.Reference{Name: name} }

func newCtx(fns ast.FuncResolver) *Context {
	root := ast.NewScope(nil)
	eval := &ast.EvalContext{Scope: root, Functions: fns}
	db := graph.NewDatabase()
	return &Context{Go: context.Background(), Eval: eval, DB: db, Matcher: graph.NewMatcher(db)}
}

// feedRows drives op.Run once per row, declaring each row's bindings
// into a fresh child scope first (mimicking an upstream UNWIND/MATCH).
func feedRows(t *testing.T, ctx *Context, op Operation, rows []map[string]value.Value) {
	t.Helper()
	require.NoError(t, InitializeChain(ctx, op))
	for _, row := range rows {
		inner := ast.NewScope(ctx.Eval.Scope)
		for k, v := range row {
			inner.Declare(k, v)
		}
		require.NoError(t, op.Run(ctx.WithScope(inner)))
	}
	require.NoError(t, FinishChain(ctx, op))
}

func TestReturnDistinctAndLimit(t *testing.T) {
	fns := functions.NewRegistry()
	ctx := newCtx(fns)

	proj := NewProjection([]ProjectionItem{{Alias: "x", Expr: ref("x")}}, true, fns)
	ret := NewReturn(proj)
	ret.Limit = NewLimit(2)

	feedRows(t, ctx, ret, []map[string]value.Value{
		{"x": value.NewInt(1)},
		{"x": value.NewInt(1)},
		{"x": value.NewInt(2)},
		{"x": value.NewInt(3)},
	})

	results := ret.Results()
	require.Len(t, results, 2)
	v0, _ := results[0].Get("x")
	v1, _ := results[1].Get("x")
	assert.Equal(t, int64(1), v0.Int())
	assert.Equal(t, int64(2), v1.Int())
}

func TestReturnOrderByDesc(t *testing.T) {
	fns := functions.NewRegistry()
	ctx := newCtx(fns)

	proj := NewProjection([]ProjectionItem{{Alias: "x", Expr: ref("x")}}, false, fns)
	ret := NewReturn(proj)
	ret.OrderBy = NewOrderBy([]SortField{{Expr: ref("x"), Desc: true}})

	feedRows(t, ctx, ret, []map[string]value.Value{
		{"x": value.NewInt(1)},
		{"x": value.NewInt(3)},
		{"x": value.NewInt(2)},
	})

	results := ret.Results()
	require.Len(t, results, 3)
	v0, _ := results[0].Get("x")
	v1, _ := results[1].Get("x")
	v2, _ := results[2].Get("x")
	assert.Equal(t, int64(3), v0.Int())
	assert.Equal(t, int64(2), v1.Int())
	assert.Equal(t, int64(1), v2.Int())
}

func TestReturnAggregationGroupsByNonAggregateColumns(t *testing.T) {
	fns := functions.NewRegistry()
	ctx := newCtx(fns)

	sumExpr := &ast.FuncCall{Name: "sum", Args: []ast.Expr{ref("n")}}
	proj := NewProjection([]ProjectionItem{
		{Alias: "k", Expr: ref("k")},
		{Alias: "total", Expr: sumExpr},
	}, false, fns)
	ret := NewReturn(proj)
	require.True(t, proj.IsAggregating())

	feedRows(t, ctx, ret, []map[string]value.Value{
		{"k": value.NewString("a"), "n": value.NewInt(1)},
		{"k": value.NewString("a"), "n": value.NewInt(2)},
		{"k": value.NewString("b"), "n": value.NewInt(10)},
	})

	results := ret.Results()
	require.Len(t, results, 2)
	k0, _ := results[0].Get("k")
	total0, _ := results[0].Get("total")
	k1, _ := results[1].Get("k")
	total1, _ := results[1].Get("total")
	assert.Equal(t, "a", k0.Str())
	assert.Equal(t, int64(3), total0.Int())
	assert.Equal(t, "b", k1.Str())
	assert.Equal(t, int64(10), total1.Int())
}

func TestLimitGatesDownstream(t *testing.T) {
	fns := functions.NewRegistry()
	ctx := newCtx(fns)

	proj := NewProjection([]ProjectionItem{{Alias: "x", Expr: ref("x")}}, false, fns)
	ret := NewReturn(proj)
	limit := NewLimit(1)
	limit.SetNext(ret)

	feedRows(t, ctx, limit, []map[string]value.Value{
		{"x": value.NewInt(1)},
		{"x": value.NewInt(2)},
		{"x": value.NewInt(3)},
	})

	assert.Len(t, ret.Results(), 1)
}

func TestWithForwardsRebindThenReturn(t *testing.T) {
	fns := functions.NewRegistry()
	ctx := newCtx(fns)

	withProj := NewProjection([]ProjectionItem{{Alias: "y", Expr: ref("x")}}, false, fns)
	w := NewWith(withProj)

	retProj := NewProjection([]ProjectionItem{{Alias: "y", Expr: ref("y")}}, false, fns)
	ret := NewReturn(retProj)
	w.SetNext(ret)

	feedRows(t, ctx, w, []map[string]value.Value{
		{"x": value.NewInt(5)},
		{"x": value.NewInt(6)},
	})

	results := ret.Results()
	require.Len(t, results, 2)
	v0, _ := results[0].Get("y")
	assert.Equal(t, int64(5), v0.Int())
}

func TestUnwindExpandsListPerElement(t *testing.T) {
	fns := functions.NewRegistry()
	ctx := newCtx(fns)

	list := value.NewList([]value.Value{value.NewInt(1), value.NewInt(2), value.NewInt(3)})
	u := NewUnwind(lit(list), "n")
	proj := NewProjection([]ProjectionItem{{Alias: "n", Expr: ref("n")}}, false, fns)
	ret := NewReturn(proj)
	u.SetNext(ret)

	require.NoError(t, InitializeChain(ctx, u))
	require.NoError(t, u.Run(ctx))
	require.NoError(t, FinishChain(ctx, u))

	results := ret.Results()
	require.Len(t, results, 3)
}

func TestUnionDedupsByStructure(t *testing.T) {
	fns := functions.NewRegistry()
	ctx := newCtx(fns)

	leftProj := NewProjection([]ProjectionItem{{Alias: "x", Expr: lit(value.NewInt(1))}}, false, fns)
	left := NewReturn(leftProj)

	rightProj := NewProjection([]ProjectionItem{{Alias: "x", Expr: lit(value.NewInt(1))}}, false, fns)
	right := NewReturn(rightProj)

	un := NewUnion(left, right, false)

	require.NoError(t, un.Initialize(ctx))
	require.NoError(t, un.Run(ctx))
	assert.Len(t, un.Results(), 1)
}
