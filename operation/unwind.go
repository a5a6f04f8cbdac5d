package operation

import (
	"github.com/flowquery-go/flowquery/ast"
	"github.com/flowquery-go/flowquery/internal/fqerrors"
	"github.com/flowquery-go/flowquery/value"
)

// Unwind expands a list-valued expression into one bound row per
// element (spec §4.2/§4.4's UNWIND operation; unwind.py was not
// retrieved, built directly against the spec). A null source list
// yields zero rows per Cypher-style UNWIND semantics.
type Unwind struct {
	Base
	Expr  ast.Expr
	Alias string
}

func NewUnwind(expr ast.Expr, alias string) *Unwind { return &Unwind{Expr: expr, Alias: alias} }

func (u *Unwind) Initialize(ctx *Context) error { return nil }

func (u *Unwind) Run(ctx *Context) error {
	v, err := u.Expr.Value(ctx.Eval)
	if err != nil {
		return err
	}
	if v.IsNull() {
		return nil
	}
	if v.Kind != value.List {
		return fqerrors.At(u.Expr.Pos(), fqerrors.Evaluation.New("UNWIND source is not a list"))
	}
	for _, item := range v.List() {
		inner := ast.NewScope(ctx.Eval.Scope)
		inner.Declare(u.Alias, item)
		if err := runNext(ctx.WithScope(inner), u); err != nil {
			return err
		}
	}
	return nil
}

func (u *Unwind) Finish(ctx *Context) error { return nil }
func (u *Unwind) Results() []value.Record   { return nil }
