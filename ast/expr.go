// Package ast defines FlowQuery's abstract syntax: expression nodes
// (spec §3 "Expression"/"AST Node") and the graph pattern nodes
// (Node/Relationship/Pattern, spec §3) that both MATCH and
// PatternExpression walk. Operation (pipeline step) nodes live in the
// sibling operation package; ast only carries the sub-term tree that
// operations evaluate.
//
// Grounded on freeeve/machparse/ast/{node.go,expression.go}: a minimal
// Node/Expr marker interface plus one concrete struct per expression
// shape, each exposing its token.Pos.
package ast

import (
	"fmt"
	"sync/atomic"

	"github.com/flowquery-go/flowquery/token"
	"github.com/flowquery-go/flowquery/value"
)

// Node is the base of every AST element: expression sub-term or graph
// pattern element.
type Node interface {
	Pos() token.Pos
}

// Expr is any node that can be evaluated to a value.Value. Spec §3:
// "Every node exposes value() for evaluation-time expressions."
type Expr interface {
	Node
	Value(ctx *EvalContext) (value.Value, error)
	exprNode()
}

// Scope is the live variable-binding environment during a single row's
// evaluation: WITH/UNWIND/pattern variables and their current value.
// Implemented as a simple parent-chained map rather than an interface
// since nothing outside ast needs a different implementation (spec §9
// "explicit session" design note covers the Database, not per-row
// scope).
type Scope struct {
	vars   map[string]value.Value
	parent *Scope
}

func NewScope(parent *Scope) *Scope {
	return &Scope{vars: make(map[string]value.Value), parent: parent}
}

func (s *Scope) Get(name string) (value.Value, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v, true
		}
	}
	return value.Value{}, false
}

// Set binds name in the scope that already owns it, or in s itself if
// no ancestor does. This matches WITH/UNWIND semantics: reassigning a
// variable updates its introducing scope's slot.
func (s *Scope) Set(name string, v value.Value) {
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.vars[name]; ok {
			sc.vars[name] = v
			return
		}
	}
	s.vars[name] = v
}

// Declare always binds in s itself, even if an ancestor scope already
// has the name (used when entering a nested scope, e.g. list
// comprehension iteration variable, that must shadow rather than leak
// writes outward).
func (s *Scope) Declare(name string, v value.Value) {
	s.vars[name] = v
}

// FuncResolver is the function-registry port expressions call through;
// implemented by functions.Registry.
type FuncResolver interface {
	Call(ctx *EvalContext, name string, args []value.Value, distinct bool) (value.Value, error)
	// Reduce feeds one element to the named aggregate/predicate
	// function's reducer for the current group, used by inline
	// predicate-reducer calls (spec §4.3) and by RETURN/WITH
	// aggregation (spec §4.4.1).
	Reduce(ctx *EvalContext, groupKey string, name string, args []value.Value, distinct bool) error
	ReduceResult(groupKey string, name string) (value.Value, error)
	// ResetGroup discards a group's accumulator state once it is no
	// longer needed (outer grouped aggregation clears it after emitting
	// the group's row; inline predicate-reducer calls clear their
	// scratch group immediately after reading the result).
	ResetGroup(groupKey string)
	IsAggregate(name string) bool
	Arity(name string) (int, bool) // ok=false means variadic/unknown
}

// PatternMatcher is the graph-matcher port a PatternExpr evaluates
// through; implemented by graph.Matcher.
type PatternMatcher interface {
	Exists(ctx *EvalContext, p *Pattern) (bool, error)
}

// EvalContext bundles everything an Expr.Value needs: the live scope
// plus the two runtime ports expressions may call through.
type EvalContext struct {
	Scope     *Scope
	Functions FuncResolver
	Matcher   PatternMatcher
	// GroupKey identifies the current aggregation group, set by the
	// owning WITH/RETURN operation while evaluating an aggregate
	// argument (spec §4.4.1).
	GroupKey string
}

func (c *EvalContext) WithScope(s *Scope) *EvalContext {
	cp := *c
	cp.Scope = s
	return &cp
}

// --- concrete expression nodes ---

type base struct{ pos token.Pos }

func (b base) Pos() token.Pos { return b.pos }
func (base) exprNode()        {}

// Literal is a constant scalar (number, string, boolean, null).
type Literal struct {
	base
	Val value.Value
}

func NewLiteral(pos token.Pos, v value.Value) *Literal { return &Literal{base{pos}, v} }

func (l *Literal) Value(*EvalContext) (value.Value, error) { return l.Val, nil }

// ListLiteral is `[e1, e2, ...]`.
type ListLiteral struct {
	base
	Items []Expr
}

func (l *ListLiteral) Value(ctx *EvalContext) (value.Value, error) {
	items := make([]value.Value, len(l.Items))
	for i, it := range l.Items {
		v, err := it.Value(ctx)
		if err != nil {
			return value.Value{}, err
		}
		items[i] = v
	}
	return value.NewList(items), nil
}

// MapLiteral is `{k: e, ...}`.
type MapLiteral struct {
	base
	Keys   []string
	Values []Expr
}

func (m *MapLiteral) Value(ctx *EvalContext) (value.Value, error) {
	om := value.NewOrderedMap()
	for i, k := range m.Keys {
		v, err := m.Values[i].Value(ctx)
		if err != nil {
			return value.Value{}, err
		}
		om.Set(k, v)
	}
	return value.NewMap(om), nil
}

// Reference reads a bound variable from scope.
type Reference struct {
	base
	Name string
}

func (r *Reference) Value(ctx *EvalContext) (value.Value, error) {
	if v, ok := ctx.Scope.Get(r.Name); ok {
		return v, nil
	}
	return value.Value{}, bindingError(r.pos, r.Name)
}

// Lookup is `x.k` or `x[k]` (and slices are represented by Slice
// below). Missing map key or nil-node property is null, not an error
// (spec §4.3/§7).
type Lookup struct {
	base
	Target Expr
	Key    Expr // evaluates to a string (property) or int (list index)
}

func (l *Lookup) Value(ctx *EvalContext) (value.Value, error) {
	target, err := l.Target.Value(ctx)
	if err != nil {
		return value.Value{}, err
	}
	if target.IsNull() {
		return value.NewNull(), nil
	}
	key, err := l.Key.Value(ctx)
	if err != nil {
		return value.Value{}, err
	}
	switch target.Kind {
	case value.Map:
		v, ok := target.Map().Get(value.ToString(key))
		if !ok {
			return value.NewNull(), nil
		}
		return v, nil
	case value.List, value.Path:
		items := target.List()
		idx := int(key.Int())
		if key.Kind == value.Float {
			idx = int(key.Float())
		}
		if idx < 0 {
			idx += len(items)
		}
		if idx < 0 || idx >= len(items) {
			return value.NewNull(), nil
		}
		return items[idx], nil
	default:
		return value.NewNull(), nil
	}
}

// Slice is `x[lo:hi]`; omitted bounds default to start/end, negative
// indices count from the end (spec §4.3).
type Slice struct {
	base
	Target Expr
	Lo, Hi Expr // nil means omitted
}

func (s *Slice) Value(ctx *EvalContext) (value.Value, error) {
	target, err := s.Target.Value(ctx)
	if err != nil {
		return value.Value{}, err
	}
	if target.Kind != value.List && target.Kind != value.Path {
		return value.Value{}, evalError(s.pos, "slice target is not a list")
	}
	items := target.List()
	n := len(items)
	lo, hi := 0, n
	if s.Lo != nil {
		v, err := s.Lo.Value(ctx)
		if err != nil {
			return value.Value{}, err
		}
		lo = normalizeIndex(int(v.Int()), n)
	}
	if s.Hi != nil {
		v, err := s.Hi.Value(ctx)
		if err != nil {
			return value.Value{}, err
		}
		hi = normalizeIndex(int(v.Int()), n)
	}
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	if lo >= hi {
		return value.NewList(nil), nil
	}
	return value.NewList(append([]value.Value(nil), items[lo:hi]...)), nil
}

func normalizeIndex(i, n int) int {
	if i < 0 {
		return i + n
	}
	return i
}

// BinaryOp enumerates the Shunting-Yard operator set (spec §3).
type BinaryOp int

const (
	OpOr BinaryOp = iota
	OpAnd
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpIsNull
	OpIsNotNull
	OpIn
	OpNotIn
	OpContains
	OpNotContains
	OpStartsWith
	OpNotStartsWith
	OpEndsWith
	OpNotEndsWith
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
)

// BinaryExpr is any two-operand (or, for IS NULL's family, one-operand
// dressed as binary) operator node.
type BinaryExpr struct {
	base
	Op          BinaryOp
	Left, Right Expr // Right is nil for IS [NOT] NULL
}

func (b *BinaryExpr) Value(ctx *EvalContext) (value.Value, error) {
	left, err := b.Left.Value(ctx)
	if err != nil {
		return value.Value{}, err
	}
	switch b.Op {
	case OpIsNull:
		return value.NewBool(left.IsNull()), nil
	case OpIsNotNull:
		return value.NewBool(!left.IsNull()), nil
	case OpAnd:
		if !left.Truthy() {
			return value.NewBool(false), nil
		}
		right, err := b.Right.Value(ctx)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(right.Truthy()), nil
	case OpOr:
		if left.Truthy() {
			return value.NewBool(true), nil
		}
		right, err := b.Right.Value(ctx)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(right.Truthy()), nil
	}

	right, err := b.Right.Value(ctx)
	if err != nil {
		return value.Value{}, err
	}

	switch b.Op {
	case OpEq:
		return value.NewBool(value.Equal(left, right)), nil
	case OpNeq:
		return value.NewBool(!value.Equal(left, right)), nil
	case OpLt:
		return value.NewBool(value.Compare(left, right) < 0), nil
	case OpLte:
		return value.NewBool(value.Compare(left, right) <= 0), nil
	case OpGt:
		return value.NewBool(value.Compare(left, right) > 0), nil
	case OpGte:
		return value.NewBool(value.Compare(left, right) >= 0), nil
	case OpIn, OpNotIn:
		if right.Kind != value.List {
			return value.Value{}, evalError(b.pos, "right-hand side of IN must be a list")
		}
		found := false
		for _, e := range right.List() {
			if value.Equal(left, e) {
				found = true
				break
			}
		}
		if b.Op == OpNotIn {
			found = !found
		}
		return value.NewBool(found), nil
	case OpContains, OpNotContains, OpStartsWith, OpNotStartsWith, OpEndsWith, OpNotEndsWith:
		if left.Kind != value.String || right.Kind != value.String {
			return value.Value{}, evalError(b.pos, "string operator applied to a non-string operand")
		}
		var result bool
		switch b.Op {
		case OpContains, OpNotContains:
			result = containsStr(left.Str(), right.Str())
		case OpStartsWith, OpNotStartsWith:
			result = startsWith(left.Str(), right.Str())
		case OpEndsWith, OpNotEndsWith:
			result = endsWith(left.Str(), right.Str())
		}
		if b.Op == OpNotContains || b.Op == OpNotStartsWith || b.Op == OpNotEndsWith {
			result = !result
		}
		return value.NewBool(result), nil
	case OpAdd:
		return value.Add(left, right)
	case OpSub:
		return value.Sub(left, right)
	case OpMul:
		return value.Mul(left, right)
	case OpDiv:
		return value.Div(left, right)
	case OpMod:
		return value.Mod(left, right)
	case OpPow:
		return value.Pow(left, right)
	}
	return value.Value{}, evalError(b.pos, "unsupported operator")
}

func containsStr(s, sub string) bool { return indexOf(s, sub) >= 0 }
func startsWith(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
func endsWith(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}
func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// UnaryExpr is prefix `NOT` or prefix `-`.
type UnaryExpr struct {
	base
	Not     bool
	Operand Expr
}

func (u *UnaryExpr) Value(ctx *EvalContext) (value.Value, error) {
	v, err := u.Operand.Value(ctx)
	if err != nil {
		return value.Value{}, err
	}
	if u.Not {
		return value.NewBool(!v.Truthy()), nil
	}
	return value.Neg(v)
}

// FuncCall is a scalar/aggregate/predicate function invocation. For
// predicate-reducer form (`sum(n IN arr WHERE cond | expr)`) Comp holds
// the comprehension to drive; otherwise Args holds plain arguments.
type FuncCall struct {
	base
	Name     string
	Args     []Expr
	Distinct bool
	Comp     *ListComprehension // non-nil for predicate-reducer form
}

func (f *FuncCall) Value(ctx *EvalContext) (value.Value, error) {
	if f.Comp != nil {
		return f.evalPredicateReducer(ctx)
	}
	args := make([]value.Value, len(f.Args))
	for i, a := range f.Args {
		v, err := a.Value(ctx)
		if err != nil {
			return value.Value{}, err
		}
		args[i] = v
	}
	return ctx.Functions.Call(ctx, f.Name, args, f.Distinct)
}

// scratchGroupSeq hands out unique reducer keys for inline predicate-
// reducer calls (below), so a `sum(n IN arr | n)` nested inside an
// aggregating RETURN never shares accumulator state with that RETURN's
// own grouped `sum(...)` column (both would otherwise collide on
// ctx.GroupKey + the function name).
var scratchGroupSeq uint64

func (f *FuncCall) evalPredicateReducer(ctx *EvalContext) (value.Value, error) {
	arr, err := f.Comp.Array.Value(ctx)
	if err != nil {
		return value.Value{}, err
	}
	if arr.Kind != value.List {
		return value.Value{}, evalError(f.pos, "predicate-reducer source is not a list")
	}
	groupKey := fmt.Sprintf("scratch:%p:%d", f, atomic.AddUint64(&scratchGroupSeq, 1))
	defer ctx.Functions.ResetGroup(groupKey)

	inner := NewScope(ctx.Scope)
	innerCtx := ctx.WithScope(inner)
	for _, item := range arr.List() {
		inner.Declare(f.Comp.Var, item)
		if f.Comp.Where != nil {
			cond, err := f.Comp.Where.Value(innerCtx)
			if err != nil {
				return value.Value{}, err
			}
			if !cond.Truthy() {
				continue
			}
		}
		var elem value.Value
		if f.Comp.Map != nil {
			elem, err = f.Comp.Map.Value(innerCtx)
			if err != nil {
				return value.Value{}, err
			}
		} else {
			elem = item
		}
		if err := ctx.Functions.Reduce(ctx, groupKey, f.Name, []value.Value{elem}, f.Distinct); err != nil {
			return value.Value{}, err
		}
	}
	return ctx.Functions.ReduceResult(groupKey, f.Name)
}

// CaseExpr is `CASE [test] WHEN w1 THEN t1 ... [ELSE e] END`. If Test
// is non-nil, each When is compared for equality; otherwise each When
// is evaluated as a boolean condition.
type CaseExpr struct {
	base
	Test  Expr // nil for the searched-CASE form
	Whens []Expr
	Thens []Expr
	Else  Expr // nil means null
}

func (c *CaseExpr) Value(ctx *EvalContext) (value.Value, error) {
	var testVal value.Value
	if c.Test != nil {
		v, err := c.Test.Value(ctx)
		if err != nil {
			return value.Value{}, err
		}
		testVal = v
	}
	for i, when := range c.Whens {
		wv, err := when.Value(ctx)
		if err != nil {
			return value.Value{}, err
		}
		match := wv.Truthy()
		if c.Test != nil {
			match = value.Equal(testVal, wv)
		}
		if match {
			return c.Thens[i].Value(ctx)
		}
	}
	if c.Else != nil {
		return c.Else.Value(ctx)
	}
	return value.NewNull(), nil
}

// FStringExpr concatenates literal chunks and interpolated expressions.
type FStringExpr struct {
	base
	Literals []string // len == len(Exprs)+1
	Exprs    []Expr
}

func (f *FStringExpr) Value(ctx *EvalContext) (value.Value, error) {
	var sb []byte
	sb = append(sb, f.Literals[0]...)
	for i, e := range f.Exprs {
		v, err := e.Value(ctx)
		if err != nil {
			return value.Value{}, err
		}
		sb = append(sb, value.ToString(v)...)
		sb = append(sb, f.Literals[i+1]...)
	}
	return value.NewString(string(sb)), nil
}

// ListComprehension is `[v IN arr [WHERE cond] [| map]]`.
type ListComprehension struct {
	base
	Var   string
	Array Expr
	Where Expr // optional
	Map   Expr // optional; nil means "emit the element itself"
}

func (l *ListComprehension) Value(ctx *EvalContext) (value.Value, error) {
	arr, err := l.Array.Value(ctx)
	if err != nil {
		return value.Value{}, err
	}
	if arr.Kind != value.List {
		return value.Value{}, evalError(l.pos, "list comprehension source is not a list")
	}
	inner := NewScope(ctx.Scope)
	innerCtx := ctx.WithScope(inner)
	var out []value.Value
	for _, item := range arr.List() {
		inner.Declare(l.Var, item)
		if l.Where != nil {
			cond, err := l.Where.Value(innerCtx)
			if err != nil {
				return value.Value{}, err
			}
			if !cond.Truthy() {
				continue
			}
		}
		if l.Map != nil {
			mv, err := l.Map.Value(innerCtx)
			if err != nil {
				return value.Value{}, err
			}
			out = append(out, mv)
		} else {
			out = append(out, item)
		}
	}
	return value.NewList(out), nil
}

// ParenExpr is a parenthesised sub-expression kept distinct from a
// node-pattern by the parser's disambiguation rule (spec §4.2).
type ParenExpr struct {
	base
	Inner Expr
}

func (p *ParenExpr) Value(ctx *EvalContext) (value.Value, error) { return p.Inner.Value(ctx) }

// PatternExpr is a graph pattern used as a boolean existence test
// (SPEC_FULL.md §12, grounded on graph/pattern_expression.py).
type PatternExpr struct {
	base
	Pattern *Pattern
	Negate  bool
}

func (p *PatternExpr) Value(ctx *EvalContext) (value.Value, error) {
	exists, err := ctx.Matcher.Exists(ctx, p.Pattern)
	if err != nil {
		return value.Value{}, err
	}
	if p.Negate {
		exists = !exists
	}
	return value.NewBool(exists), nil
}

func bindingError(pos token.Pos, name string) error {
	return posErr(pos, bindingKind, name)
}

func evalError(pos token.Pos, msg string) error {
	return posErr(pos, evaluationKind, msg)
}
