package operation

import (
	"context"

	"github.com/flowquery-go/flowquery/ast"
	"github.com/flowquery-go/flowquery/value"
)

// ProcedureResolver dispatches a `CALL <name>(...)` target to a
// user-registered generator procedure (spec §5's "user-registered
// async generator functions"); implemented by the session package,
// which owns the procedure registry alongside the function registry.
type ProcedureResolver interface {
	Call(ctx context.Context, name string, args []value.Value) ([]value.Record, error)
}

// Call drives `CALL <func>(...) [YIELD <projection>]` (spec §4.2), not
// grounded on a retrieved call.py (not present in the pack) -- built
// directly against the spec line and the CALL/YIELD keyword pair in
// §6. Every row the procedure yields rebinds Yield's column names (or,
// absent a YIELD clause, every column the procedure returned) into a
// fresh scope and continues the pipeline.
type Call struct {
	Base
	Name  string
	Args  []ast.Expr
	Yield []string // empty means bind every returned column as-is
}

func NewCall(name string, args []ast.Expr, yield []string) *Call {
	return &Call{Name: name, Args: args, Yield: yield}
}

func (c *Call) Initialize(ctx *Context) error { return nil }

func (c *Call) Run(ctx *Context) error {
	args := make([]value.Value, len(c.Args))
	for i, a := range c.Args {
		v, err := a.Value(ctx.Eval)
		if err != nil {
			return err
		}
		args[i] = v
	}
	rows, err := ctx.Procedures.Call(ctx.Go, c.Name, args)
	if err != nil {
		return err
	}
	for _, row := range rows {
		inner := ast.NewScope(ctx.Eval.Scope)
		keys := c.Yield
		if len(keys) == 0 {
			keys = row.Keys()
		}
		for _, k := range keys {
			v, _ := row.Get(k)
			inner.Declare(k, v)
		}
		if err := runNext(ctx.WithScope(inner), c); err != nil {
			return err
		}
	}
	return nil
}

func (c *Call) Finish(ctx *Context) error { return nil }
func (c *Call) Results() []value.Record   { return nil }
