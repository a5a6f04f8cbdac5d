package operation

import (
	"sort"

	"github.com/flowquery-go/flowquery/ast"
	"github.com/flowquery-go/flowquery/value"
)

// SortField is one `ORDER BY <expr> [ASC|DESC]` term.
type SortField struct {
	Expr ast.Expr
	Desc bool
}

// OrderBy sorts a RETURN's accumulated rows (spec §4.4.2), grounded on
// order_by.py. Sort keys are captured once per row while expression
// bindings are still live (CaptureSortKeys, called from Return.Run),
// so Sort itself only ever compares pre-computed values -- necessary
// because by the time Sort runs the per-row scope is long gone.
type OrderBy struct {
	Base
	Fields   []SortField
	sortKeys [][]value.Value
}

func NewOrderBy(fields []SortField) *OrderBy { return &OrderBy{Fields: fields} }

func (o *OrderBy) Initialize(ctx *Context) error {
	o.sortKeys = nil
	return nil
}

// CaptureSortKeys evaluates every sort field against the row's current
// scope. Must be called once per accumulated row, before the scope that
// produced it goes out of play.
func (o *OrderBy) CaptureSortKeys(ctx *Context) error {
	keys := make([]value.Value, len(o.Fields))
	for i, f := range o.Fields {
		v, err := f.Expr.Value(ctx.Eval)
		if err != nil {
			return err
		}
		keys[i] = v
	}
	o.sortKeys = append(o.sortKeys, keys)
	return nil
}

// Sort orders records by the captured sort keys. When the number of
// captured keys doesn't match len(records) (an aggregated RETURN, whose
// grouped rows are emitted after accumulation rather than one per
// CaptureSortKeys call), falls back to reading a simple reference
// field directly out of each record.
func (o *OrderBy) Sort(records []value.Record) []value.Record {
	useKeys := len(o.sortKeys) == len(records)

	fallback := make([]string, len(o.Fields))
	for i, f := range o.Fields {
		if ref, ok := f.Expr.(*ast.Reference); ok {
			fallback[i] = ref.Name
		}
	}

	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ai, bi := idx[a], idx[b]
		for i, f := range o.Fields {
			var av, bv value.Value
			var have bool
			if useKeys {
				av, bv, have = o.sortKeys[ai][i], o.sortKeys[bi][i], true
			} else if fallback[i] != "" {
				av, _ = records[ai].Get(fallback[i])
				bv, _ = records[bi].Get(fallback[i])
				have = true
			}
			if !have {
				continue
			}
			cmp := compareNullable(av, bv)
			if cmp == 0 {
				continue
			}
			if f.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	out := make([]value.Record, len(records))
	for i, j := range idx {
		out[i] = records[j]
	}
	return out
}

// compareNullable treats null as less than any non-null value, equal to
// another null, matching order_by.py's None-before-everything rule.
func compareNullable(a, b value.Value) int {
	aNull, bNull := a.IsNull(), b.IsNull()
	switch {
	case aNull && bNull:
		return 0
	case aNull:
		return -1
	case bNull:
		return 1
	}
	return value.Compare(a, b)
}

func (o *OrderBy) Run(ctx *Context) error { return runNext(ctx, o) }

func (o *OrderBy) Finish(ctx *Context) error { return nil }

func (o *OrderBy) Results() []value.Record { return nil }
