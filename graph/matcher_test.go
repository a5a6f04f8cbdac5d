package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowquery-go/flowquery/ast"
	"github.com/flowquery-go/flowquery/token"
	"github.com/flowquery-go/flowquery/value"
)

func rec(kvs ...interface{}) value.Record {
	om := value.NewOrderedMap()
	for i := 0; i < len(kvs); i += 2 {
		k := kvs[i].(string)
		var v value.Value
		switch x := kvs[i+1].(type) {
		case int:
			v = value.NewInt(int64(x))
		case string:
			v = value.NewString(x)
		}
		om.Set(k, v)
	}
	return om
}

type fakeRunner struct{ recs []value.Record }

func (f fakeRunner) Run() ([]value.Record, error) { return f.recs, nil }

func newTestDB() *Database {
	db := NewDatabase()
	db.RegisterNode("P", fakeRunner{recs: []value.Record{
		rec("id", 1), rec("id", 2), rec("id", 3), rec("id", 4),
	}})
	db.RegisterRelationship("K", "P", "P", fakeRunner{recs: []value.Record{
		rec("left_id", 1, "right_id", 2),
		rec("left_id", 2, "right_id", 3),
		rec("left_id", 3, "right_id", 4),
	}})
	return db
}

func varLenPattern(min, max int) *ast.Pattern {
	p := ast.NewPattern(token.Pos{})
	a := ast.NewNode(token.Pos{}, "a", "P")
	b := ast.NewNode(token.Pos{}, "b", "P")
	r := ast.NewRelationship(token.Pos{}, "", []string{"K"}, ast.DirRight, ast.Hops{Min: min, Max: max, Variable: true})
	p.AddNode(a)
	p.AddRelationship(r)
	p.AddNode(b)
	return p
}

func TestVariableLengthTraversalEnumeratesAllPairs(t *testing.T) {
	db := newTestDB()
	matcher := NewMatcher(db)
	p := varLenPattern(1, ast.Unbounded)

	type pair struct{ a, b string }
	var got []pair
	ctx := &ast.EvalContext{Scope: ast.NewScope(nil), Functions: nil, Matcher: matcher}
	err := matcher.TraverseAll(ctx, []*ast.Pattern{p}, func(c *ast.EvalContext) error {
		av, _ := c.Scope.Get("a")
		bv, _ := c.Scope.Get("b")
		aid, _ := av.Map().Get("id")
		bid, _ := bv.Map().Get("id")
		got = append(got, pair{value.ToString(aid), value.ToString(bid)})
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, got, 6) // (1,2)(1,3)(1,4)(2,3)(2,4)(3,4)
}

func TestZeroHopSemantics(t *testing.T) {
	db := newTestDB()
	matcher := NewMatcher(db)
	p := varLenPattern(0, 3)

	count := 0
	zeroHops := 0
	ctx := &ast.EvalContext{Scope: ast.NewScope(nil), Matcher: matcher}
	err := matcher.TraverseAll(ctx, []*ast.Pattern{p}, func(c *ast.EvalContext) error {
		av, _ := c.Scope.Get("a")
		bv, _ := c.Scope.Get("b")
		aid, _ := av.Map().Get("id")
		bid, _ := bv.Map().Get("id")
		count++
		if value.ToString(aid) == value.ToString(bid) {
			zeroHops++
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, zeroHops)
	assert.Equal(t, 10, count)
}

func TestFixedLengthCycleDetectionRaises(t *testing.T) {
	db := NewDatabase()
	db.RegisterNode("P", fakeRunner{recs: []value.Record{rec("id", 1), rec("id", 2)}})
	db.RegisterRelationship("K", "P", "P", fakeRunner{recs: []value.Record{
		rec("left_id", 1, "right_id", 2),
		rec("left_id", 2, "right_id", 1),
	}})
	matcher := NewMatcher(db)

	p := ast.NewPattern(token.Pos{})
	a := ast.NewNode(token.Pos{}, "a", "P")
	b := ast.NewNode(token.Pos{}, "b", "P")
	c := ast.NewNode(token.Pos{}, "c", "P")
	r1 := ast.NewRelationship(token.Pos{}, "", []string{"K"}, ast.DirRight, ast.Hops{Min: 1, Max: 1})
	r2 := ast.NewRelationship(token.Pos{}, "", []string{"K"}, ast.DirRight, ast.Hops{Min: 1, Max: 1})
	p.AddNode(a)
	p.AddRelationship(r1)
	p.AddNode(b)
	p.AddRelationship(r2)
	p.AddNode(c)
	// forces a -> b -> a, a fixed-length revisit of `a`.
	c.Identifier = "a"
	c.IsReference = true

	ctx := &ast.EvalContext{Scope: ast.NewScope(nil), Matcher: matcher}
	err := matcher.TraverseAll(ctx, []*ast.Pattern{p}, func(*ast.EvalContext) error { return nil })
	assert.Error(t, err)
}

func TestNodePropertyConstraintMissingKeyRaises(t *testing.T) {
	db := newTestDB()
	matcher := NewMatcher(db)

	p := ast.NewPattern(token.Pos{})
	a := ast.NewNode(token.Pos{}, "a", "P")
	a.Properties = []ast.PropertyConstraint{{Key: "name", Value: ast.NewLiteral(token.Pos{}, value.NewString("x"))}}
	p.AddNode(a)

	ctx := &ast.EvalContext{Scope: ast.NewScope(nil), Matcher: matcher}
	err := matcher.TraverseAll(ctx, []*ast.Pattern{p}, func(*ast.EvalContext) error { return nil })
	assert.Error(t, err)
}

func TestORTypeRelationshipUnionsAllAlternatives(t *testing.T) {
	db := NewDatabase()
	db.RegisterNode("P", fakeRunner{recs: []value.Record{rec("id", 1), rec("id", 2), rec("id", 3)}})
	db.RegisterRelationship("K1", "P", "P", fakeRunner{recs: []value.Record{
		rec("left_id", 1, "right_id", 2),
	}})
	db.RegisterRelationship("K2", "P", "P", fakeRunner{recs: []value.Record{
		rec("left_id", 1, "right_id", 3),
	}})
	matcher := NewMatcher(db)

	p := ast.NewPattern(token.Pos{})
	a := ast.NewNode(token.Pos{}, "a", "P")
	b := ast.NewNode(token.Pos{}, "b", "P")
	r := ast.NewRelationship(token.Pos{}, "", []string{"K1", "K2"}, ast.DirRight, ast.Hops{Min: 1, Max: 1})
	p.AddNode(a)
	p.AddRelationship(r)
	p.AddNode(b)

	var got []string
	ctx := &ast.EvalContext{Scope: ast.NewScope(nil), Matcher: matcher}
	err := matcher.TraverseAll(ctx, []*ast.Pattern{p}, func(c *ast.EvalContext) error {
		av, _ := c.Scope.Get("a")
		bv, _ := c.Scope.Get("b")
		aid, _ := av.Map().Get("id")
		bid, _ := bv.Map().Get("id")
		got = append(got, value.ToString(aid)+"->"+value.ToString(bid))
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1->2", "1->3"}, got)
}
