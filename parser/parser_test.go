package parser_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowquery-go/flowquery/parser"
	"github.com/flowquery-go/flowquery/session"
)

func TestUnwindTwiceWithSumAggregatesPerOuterGroup(t *testing.T) {
	s := session.New()
	head, err := parser.Parse(`UNWIND [1,1,2,2] AS i UNWIND [1,2,3,4] AS j RETURN i, sum(j) AS s`, s.Functions)
	require.NoError(t, err)
	rows, err := s.Run(context.Background(), head)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	seen := map[int64]int64{}
	for _, r := range rows {
		i, _ := r.Get("i")
		sv, _ := r.Get("s")
		seen[i.Int()] = sv.Int()
	}
	assert.Equal(t, int64(20), seen[1])
	assert.Equal(t, int64(20), seen[2])
}

func TestUnionDeduplicatesRows(t *testing.T) {
	s := session.New()
	head, err := parser.Parse(`WITH 1 AS x RETURN x UNION WITH 1 AS x RETURN x`, s.Functions)
	require.NoError(t, err)
	rows, err := s.Run(context.Background(), head)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, _ := rows[0].Get("x")
	assert.Equal(t, int64(1), v.Int())
}

func TestUnionAllKeepsDuplicates(t *testing.T) {
	s := session.New()
	head, err := parser.Parse(`WITH 1 AS x RETURN x UNION ALL WITH 1 AS x RETURN x`, s.Functions)
	require.NoError(t, err)
	rows, err := s.Run(context.Background(), head)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestPredicateReducerSumWithInlineFilter(t *testing.T) {
	s := session.New()
	head, err := parser.Parse(`RETURN sum(n IN [1,2,3] WHERE n > 1 | n) AS s`, s.Functions)
	require.NoError(t, err)
	rows, err := s.Run(context.Background(), head)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, _ := rows[0].Get("s")
	assert.Equal(t, int64(5), v.Int())
}

func TestCoalesceReturnsFirstNonNull(t *testing.T) {
	s := session.New()
	head, err := parser.Parse(`RETURN coalesce(null, null, 'x') AS v`, s.Functions)
	require.NoError(t, err)
	rows, err := s.Run(context.Background(), head)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, _ := rows[0].Get("v")
	assert.Equal(t, "x", v.Str())
}

func TestUnwindRangeWithFilterAndSum(t *testing.T) {
	s := session.New()
	head, err := parser.Parse(`UNWIND range(1,100) AS n WITH n WHERE n>=20 AND n<=30 RETURN sum(n) AS s`, s.Functions)
	require.NoError(t, err)
	rows, err := s.Run(context.Background(), head)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, _ := rows[0].Get("s")
	assert.Equal(t, int64(275), v.Int())
}

func TestOnlyOneReturnIsAllowed(t *testing.T) {
	s := session.New()
	_, err := parser.Parse(`RETURN 1 AS a RETURN 2 AS b`, s.Functions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Only one RETURN statement is allowed")
}

func TestAggregateFunctionsCannotNest(t *testing.T) {
	s := session.New()
	_, err := parser.Parse(`RETURN sum(count(1)) AS x`, s.Functions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Aggregate functions cannot be nested")
}

func TestFunctionArityMismatchReportsExpectedAndGot(t *testing.T) {
	s := session.New()
	_, err := parser.Parse(`RETURN head(1, 2) AS x`, s.Functions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Function `head` expected 1 parameters, but got 2")
}

func TestUnwindRequiresArrayAndAlias(t *testing.T) {
	s := session.New()
	_, err := parser.Parse(`UNWIND 1 RETURN 1`, s.Functions)
	require.Error(t, err)
}

func TestDistinctReturnDeduplicatesProjectedValues(t *testing.T) {
	s := session.New()
	head, err := parser.Parse(`UNWIND [1,1,2] AS n RETURN DISTINCT n`, s.Functions)
	require.NoError(t, err)
	rows, err := s.Run(context.Background(), head)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestOrderByLimitTrimsAndSortsRows(t *testing.T) {
	s := session.New()
	head, err := parser.Parse(`UNWIND [3,1,2] AS n RETURN n ORDER BY n DESC LIMIT 2`, s.Functions)
	require.NoError(t, err)
	rows, err := s.Run(context.Background(), head)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	v0, _ := rows[0].Get("n")
	v1, _ := rows[1].Get("n")
	assert.Equal(t, int64(3), v0.Int())
	assert.Equal(t, int64(2), v1.Int())
}

func TestCaseWhenExpression(t *testing.T) {
	s := session.New()
	head, err := parser.Parse(`UNWIND [1,2,3] AS n RETURN CASE WHEN n = 2 THEN 'two' ELSE 'other' END AS label`, s.Functions)
	require.NoError(t, err)
	rows, err := s.Run(context.Background(), head)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	v, _ := rows[1].Get("label")
	assert.Equal(t, "two", v.Str())
}

func TestFStringInterpolatesReferences(t *testing.T) {
	s := session.New()
	head, err := parser.Parse("WITH 'world' AS w RETURN f\"hello {w}\" AS greeting", s.Functions)
	require.NoError(t, err)
	rows, err := s.Run(context.Background(), head)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, _ := rows[0].Get("greeting")
	assert.Equal(t, "hello world", v.Str())
}

func TestListComprehensionFiltersAndMaps(t *testing.T) {
	s := session.New()
	head, err := parser.Parse(`RETURN [n IN [1,2,3,4] WHERE n > 2 | n * 10] AS out`, s.Functions)
	require.NoError(t, err)
	rows, err := s.Run(context.Background(), head)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, _ := rows[0].Get("out")
	items := v.List()
	require.Len(t, items, 2)
	assert.Equal(t, int64(30), items[0].Int())
	assert.Equal(t, int64(40), items[1].Int())
}

func TestStartsWithAndEndsWithOperators(t *testing.T) {
	s := session.New()
	head, err := parser.Parse(`RETURN ('hello' STARTS WITH 'he') AS a, ('hello' ENDS WITH 'lo') AS b`, s.Functions)
	require.NoError(t, err)
	rows, err := s.Run(context.Background(), head)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	a, _ := rows[0].Get("a")
	b, _ := rows[0].Get("b")
	assert.True(t, a.Bool())
	assert.True(t, b.Bool())
}

func TestNotStartsWithNegatesOperator(t *testing.T) {
	s := session.New()
	head, err := parser.Parse(`RETURN ('hello' NOT STARTS WITH 'xx') AS a`, s.Functions)
	require.NoError(t, err)
	rows, err := s.Run(context.Background(), head)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	a, _ := rows[0].Get("a")
	assert.True(t, a.Bool())
}

func TestUnaryMinusFoldsIntoSignedLiteral(t *testing.T) {
	s := session.New()
	head, err := parser.Parse(`RETURN -5 AS n`, s.Functions)
	require.NoError(t, err)
	rows, err := s.Run(context.Background(), head)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, _ := rows[0].Get("n")
	assert.Equal(t, int64(-5), v.Int())
}

func TestOrderByAggregatedReturnSortsByProjectedAlias(t *testing.T) {
	s := session.New()
	head, err := parser.Parse(`UNWIND [1,1,2,2] AS i UNWIND [1,2,3,4] AS j RETURN i, sum(j) AS s ORDER BY i DESC`, s.Functions)
	require.NoError(t, err)
	rows, err := s.Run(context.Background(), head)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	v0, _ := rows[0].Get("i")
	assert.Equal(t, int64(2), v0.Int())
}

func TestOrderByAggregatedReturnRejectsUnprojectedIdentifier(t *testing.T) {
	s := session.New()
	_, err := parser.Parse(`UNWIND [1,1,2,2] AS i UNWIND [1,2,3,4] AS j RETURN i, sum(j) AS s ORDER BY j DESC`, s.Functions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"j"`)
}

func TestOrderByAggregatedWithRejectsUnprojectedIdentifier(t *testing.T) {
	s := session.New()
	_, err := parser.Parse(`UNWIND [1,1,2,2] AS i UNWIND [1,2,3,4] AS j WITH i, sum(j) AS s ORDER BY j DESC RETURN i, s`, s.Functions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"j"`)
}
