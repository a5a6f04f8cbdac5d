package operation

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/flowquery-go/flowquery/ast"
	"github.com/flowquery-go/flowquery/value"
)

// ProjectionItem is one `<expr> AS <alias>` entry shared by WITH and
// RETURN (original_source's Projection base class, not retrieved
// whole -- its emit/aggregate split is reconstructed here from spec
// §4.4.1 plus return_op.py's surviving Return subclass).
type ProjectionItem struct {
	Alias string
	Expr  ast.Expr
}

// aggregateCall is one aggregate FuncCall found while walking a
// projection item's expression tree, plus the argument sub-expression
// to evaluate and feed into Reduce each row.
type aggregateCall struct {
	name     string
	distinct bool
	arg      ast.Expr
}

// findAggregateCalls walks e looking for direct aggregate invocations
// (plain `sum(x)`, not the inline predicate-reducer `sum(n IN a | n)`
// form, which self-contains its own reduction in ast.FuncCall). Parse-
// time validation (spec §4.2 rule 2) already guarantees these never
// nest.
func findAggregateCalls(e ast.Expr, fns ast.FuncResolver, out *[]aggregateCall) {
	switch n := e.(type) {
	case *ast.FuncCall:
		if n.Comp != nil {
			return // self-contained; nothing for the projection to feed
		}
		if fns.IsAggregate(n.Name) {
			var arg ast.Expr
			if len(n.Args) > 0 {
				arg = n.Args[0]
			}
			*out = append(*out, aggregateCall{name: n.Name, distinct: n.Distinct, arg: arg})
			return
		}
		for _, a := range n.Args {
			findAggregateCalls(a, fns, out)
		}
	case *ast.BinaryExpr:
		findAggregateCalls(n.Left, fns, out)
		findAggregateCalls(n.Right, fns, out)
	case *ast.UnaryExpr:
		findAggregateCalls(n.Operand, fns, out)
	case *ast.ParenExpr:
		findAggregateCalls(n.Inner, fns, out)
	case *ast.Lookup:
		findAggregateCalls(n.Target, fns, out)
	case *ast.CaseExpr:
		if n.Test != nil {
			findAggregateCalls(n.Test, fns, out)
		}
		for _, w := range n.Whens {
			findAggregateCalls(w, fns, out)
		}
		for _, t := range n.Thens {
			findAggregateCalls(t, fns, out)
		}
		if n.Else != nil {
			findAggregateCalls(n.Else, fns, out)
		}
	}
}

func itemIsAggregating(item ProjectionItem, fns ast.FuncResolver) bool {
	var found []aggregateCall
	findAggregateCalls(item.Expr, fns, &found)
	return len(found) > 0
}

// Projection is the shared accumulation engine for WITH and RETURN
// (spec §4.4.1). It is aggregating when at least one item's expression
// contains a direct aggregate call; the remaining items form the
// grouping key.
type Projection struct {
	Items      []ProjectionItem
	Distinct   bool
	aggregate  bool
	groupOrder []string
	groupScope map[string]*ast.Scope // groupKey -> a representative row's scope
	seenRows   map[string]bool        // for non-aggregating DISTINCT
}

func NewProjection(items []ProjectionItem, distinct bool, fns ast.FuncResolver) *Projection {
	p := &Projection{Items: items, Distinct: distinct}
	for _, it := range items {
		if itemIsAggregating(it, fns) {
			p.aggregate = true
			break
		}
	}
	return p
}

func (p *Projection) IsAggregating() bool { return p.aggregate }

func (p *Projection) Reset() {
	p.groupOrder = nil
	p.groupScope = make(map[string]*ast.Scope)
	p.seenRows = make(map[string]bool)
}

// groupKeyFor evaluates every non-aggregate item (the grouping key) in
// the row's current scope and returns a stable string key, recording
// first-appearance order and a representative scope for the group (the
// scope EmitGroup will later re-evaluate every item against -- safe
// because every non-aggregate item is by definition identical across
// every row sharing this key).
func (p *Projection) groupKeyFor(ctx *Context, fns ast.FuncResolver) (string, error) {
	key := value.NewOrderedMap()
	for _, it := range p.Items {
		if itemIsAggregating(it, fns) {
			continue
		}
		v, err := it.Expr.Value(ctx.Eval)
		if err != nil {
			return "", err
		}
		key.Set(it.Alias, v)
	}
	hash := sha256.Sum256([]byte(value.CanonicalJSON(value.NewMap(key))))
	gk := hex.EncodeToString(hash[:])
	if _, ok := p.groupScope[gk]; !ok {
		p.groupScope[gk] = ctx.Eval.Scope
		p.groupOrder = append(p.groupOrder, gk)
	}
	return gk, nil
}

// FeedAggregateRow evaluates each aggregate item's argument against the
// row's current scope and feeds it to the function registry's reducer
// for this group (spec §4.4.1, one reducer element per aggregate
// function per group).
func (p *Projection) FeedAggregateRow(ctx *Context, groupKey string) error {
	fns := ctx.Eval.Functions
	for _, it := range p.Items {
		var calls []aggregateCall
		findAggregateCalls(it.Expr, fns, &calls)
		for _, c := range calls {
			var arg value.Value
			if c.arg != nil {
				v, err := c.arg.Value(ctx.Eval)
				if err != nil {
					return err
				}
				arg = v
			}
			if err := fns.Reduce(ctx.Eval, groupKey, c.name, []value.Value{arg}, c.distinct); err != nil {
				return err
			}
		}
	}
	return nil
}

// EmitGroup evaluates the full projection for one finished group: the
// grouping-key sub-expressions re-evaluated against the group's
// representative scope,
// aggregate sub-expressions read back through Call (which, for an
// aggregate name, proxies to ReduceResult under ctx.Eval.GroupKey --
// see functions.Registry.Call).
func (p *Projection) EmitGroup(ctx *Context, groupKey string) (value.Record, error) {
	scope := p.groupScope[groupKey]
	if scope == nil {
		scope = ctx.Eval.Scope
	}
	evalCopy := *ctx.Eval
	evalCopy.Scope = scope
	evalCopy.GroupKey = groupKey

	rec := value.NewOrderedMap()
	for _, it := range p.Items {
		v, err := it.Expr.Value(&evalCopy)
		if err != nil {
			return nil, err
		}
		rec.Set(it.Alias, v)
	}
	ctx.Eval.Functions.ResetGroup(groupKey)
	return rec, nil
}

// GroupOrder returns every distinct group key seen so far, in
// first-appearance order (spec §4.4.1 / §5's ordering guarantee).
func (p *Projection) GroupOrder() []string { return p.groupOrder }

// EmitRow evaluates a non-aggregating projection directly against the
// row's live scope, honouring DISTINCT by structural-hash dedup.
func (p *Projection) EmitRow(ctx *Context) (value.Record, bool, error) {
	rec := value.NewOrderedMap()
	for _, it := range p.Items {
		v, err := it.Expr.Value(ctx.Eval)
		if err != nil {
			return nil, false, err
		}
		rec.Set(it.Alias, v)
	}
	if p.Distinct {
		key := value.CanonicalJSON(value.NewMap(rec))
		if p.seenRows[key] {
			return nil, false, nil
		}
		p.seenRows[key] = true
	}
	return rec, true, nil
}
