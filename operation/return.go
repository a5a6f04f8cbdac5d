package operation

import (
	"github.com/flowquery-go/flowquery/ast"
	"github.com/flowquery-go/flowquery/value"
)

// Return produces the query's final result rows (spec §4.4.1),
// grounded on return_op.py's WHERE/LIMIT/ORDER BY attachment pattern.
// Aggregated projections (at least one item with a direct aggregate
// call) accumulate per-group reducer state across every Run() and are
// only assembled into rows once, at Finish; non-aggregated projections
// emit (and, absent an ORDER BY, limit) a row per Run().
type Return struct {
	Base
	Proj    *Projection
	Where   ast.Expr // nil means always true
	Limit   *Limit
	OrderBy *OrderBy

	rows      []value.Record
	groupRows []value.Record
}

func NewReturn(proj *Projection) *Return { return &Return{Proj: proj} }

func (r *Return) Initialize(ctx *Context) error {
	r.rows = nil
	r.groupRows = nil
	r.Proj.Reset()
	return nil
}

func (r *Return) Run(ctx *Context) error {
	if r.Where != nil {
		v, err := r.Where.Value(ctx.Eval)
		if err != nil {
			return err
		}
		if !v.Truthy() {
			return nil
		}
	}

	if r.Proj.IsAggregating() {
		groupKey, err := r.Proj.groupKeyFor(ctx, ctx.Eval.Functions)
		if err != nil {
			return err
		}
		return r.Proj.FeedAggregateRow(ctx, groupKey)
	}

	if r.OrderBy == nil && r.Limit != nil && r.Limit.IsLimitReached() {
		return nil
	}
	rec, ok, err := r.Proj.EmitRow(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if r.OrderBy != nil {
		if err := r.OrderBy.CaptureSortKeys(ctx); err != nil {
			return err
		}
	}
	r.rows = append(r.rows, rec)
	if r.OrderBy == nil && r.Limit != nil {
		r.Limit.Increment()
	}
	return nil
}

func (r *Return) Finish(ctx *Context) error {
	if !r.Proj.IsAggregating() {
		return nil
	}
	for _, gk := range r.Proj.GroupOrder() {
		rec, err := r.Proj.EmitGroup(ctx, gk)
		if err != nil {
			return err
		}
		r.groupRows = append(r.groupRows, rec)
	}
	return nil
}

func (r *Return) Results() []value.Record {
	result := r.rows
	if r.Proj.IsAggregating() {
		result = r.groupRows
	}
	if r.OrderBy != nil {
		result = r.OrderBy.Sort(result)
	}
	if r.Limit != nil && (r.Proj.IsAggregating() || r.OrderBy != nil) {
		if r.Limit.Value < len(result) {
			result = result[:r.Limit.Value]
		}
	}
	return result
}
