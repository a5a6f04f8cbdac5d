package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowquery-go/flowquery/ast"
	"github.com/flowquery-go/flowquery/operation"
	"github.com/flowquery-go/flowquery/session"
	"github.com/flowquery-go/flowquery/token"
	"github.com/flowquery-go/flowquery/value"
)

func TestSessionRunsUnwindReturnPipeline(t *testing.T) {
	s := session.New()

	list := value.NewList([]value.Value{value.NewInt(1), value.NewInt(2), value.NewInt(3)})
	u := operation.NewUnwind(ast.NewLiteral(token.Pos{}, list), "n")
	proj := operation.NewProjection([]operation.ProjectionItem{
		{Alias: "n", Expr: &ast.Reference{Name: "n"}},
	}, false, s.Functions)
	ret := operation.NewReturn(proj)
	u.SetNext(ret)

	results, err := s.Run(context.Background(), u)
	require.NoError(t, err)
	require.Len(t, results, 3)
	v, ok := results[0].Get("n")
	require.True(t, ok)
	assert.Equal(t, int64(1), v.Int())
}

func TestProcedureRegistryCallsRegisteredProcedure(t *testing.T) {
	reg := session.NewProcedureRegistry()
	reg.Register("echo", func(ctx context.Context, args []value.Value) ([]value.Record, error) {
		om := value.NewOrderedMap()
		om.Set("arg", args[0])
		return []value.Record{om}, nil
	})

	rows, err := reg.Call(context.Background(), "echo", []value.Value{value.NewString("hi")})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, _ := rows[0].Get("arg")
	assert.Equal(t, "hi", v.Str())
}

func TestProcedureRegistryUnknownProcedure(t *testing.T) {
	reg := session.NewProcedureRegistry()
	_, err := reg.Call(context.Background(), "missing", nil)
	require.Error(t, err)
}
