package operation

import (
	"github.com/flowquery-go/flowquery/ast"
	"github.com/flowquery-go/flowquery/value"
)

// Filter implements a WHERE clause that attaches directly to a
// preceding MATCH (spec §4.2: "WHERE <expr> (attaches to preceding
// MATCH or WITH or RETURN)"). WITH/RETURN apply their own attached
// WHERE inline against the row they are about to project (see
// with.go/return.go); a bare MATCH has no row of its own to filter
// before projecting, so its WHERE is a distinct pass-through step
// inserted immediately after the Match in the chain.
type Filter struct {
	Base
	Cond ast.Expr
}

func NewFilter(cond ast.Expr) *Filter { return &Filter{Cond: cond} }

func (f *Filter) Initialize(ctx *Context) error { return nil }

func (f *Filter) Run(ctx *Context) error {
	v, err := f.Cond.Value(ctx.Eval)
	if err != nil {
		return err
	}
	if !v.Truthy() {
		return nil
	}
	return runNext(ctx, f)
}

func (f *Filter) Finish(ctx *Context) error { return nil }
func (f *Filter) Results() []value.Record   { return nil }
