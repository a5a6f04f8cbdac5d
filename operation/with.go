package operation

import (
	"github.com/flowquery-go/flowquery/ast"
	"github.com/flowquery-go/flowquery/value"
)

// With rebinds a fresh set of `<expr> AS <alias>` variables into scope
// and continues the pipeline (spec §4.4.1/§4.2's WITH operation; no
// with.py was available in the retrieved pack, so this is built
// directly against the spec's grouping/ORDER BY/LIMIT contract shared
// with RETURN via Projection). A plain (non-aggregating, non-ordered)
// WITH forwards each row immediately; an aggregating and/or ordered
// WITH must see every row before it can forward any, so it buffers and
// forwards at Finish instead.
type With struct {
	Base
	Proj    *Projection
	Where   ast.Expr // post-projection WHERE, nil means always true
	Limit   *Limit
	OrderBy *OrderBy

	buffered []value.Record
}

func NewWith(proj *Projection) *With { return &With{Proj: proj} }

func (w *With) needsBuffering() bool { return w.Proj.IsAggregating() || w.OrderBy != nil }

func (w *With) Initialize(ctx *Context) error {
	w.buffered = nil
	w.Proj.Reset()
	return nil
}

func (w *With) Run(ctx *Context) error {
	if w.Proj.IsAggregating() {
		groupKey, err := w.Proj.groupKeyFor(ctx, ctx.Eval.Functions)
		if err != nil {
			return err
		}
		return w.Proj.FeedAggregateRow(ctx, groupKey)
	}

	rec, ok, err := w.Proj.EmitRow(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if w.OrderBy != nil {
		if err := w.OrderBy.CaptureSortKeys(ctx); err != nil {
			return err
		}
		w.buffered = append(w.buffered, rec)
		return nil
	}

	return w.forward(ctx, rec)
}

// forward filters rec through the post-WITH WHERE, honours LIMIT, and
// drives Next() with a fresh scope bound to rec's columns.
func (w *With) forward(ctx *Context, rec value.Record) error {
	childScope := ast.NewScope(ctx.Eval.Scope)
	for _, k := range rec.Keys() {
		v, _ := rec.Get(k)
		childScope.Declare(k, v)
	}
	childCtx := ctx.WithScope(childScope)

	if w.Where != nil {
		v, err := w.Where.Value(childCtx.Eval)
		if err != nil {
			return err
		}
		if !v.Truthy() {
			return nil
		}
	}
	if w.Limit != nil {
		if w.Limit.IsLimitReached() {
			return nil
		}
		w.Limit.Increment()
	}
	return runNext(childCtx, w)
}

func (w *With) Finish(ctx *Context) error {
	if !w.needsBuffering() {
		return nil
	}
	var rows []value.Record
	if w.Proj.IsAggregating() {
		for _, gk := range w.Proj.GroupOrder() {
			rec, err := w.Proj.EmitGroup(ctx, gk)
			if err != nil {
				return err
			}
			rows = append(rows, rec)
		}
	} else {
		rows = w.buffered
	}
	if w.OrderBy != nil {
		rows = w.OrderBy.Sort(rows)
	}
	for _, rec := range rows {
		if err := w.forward(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (w *With) Results() []value.Record { return nil }
