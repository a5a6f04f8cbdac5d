package ast

import "github.com/flowquery-go/flowquery/token"

// Constructors for the expression nodes whose fields the parser must
// fill in from outside the package (base.pos is unexported, so a
// composite literal in another package cannot set it directly).

func NewListLiteral(pos token.Pos, items []Expr) *ListLiteral {
	return &ListLiteral{base: base{pos}, Items: items}
}

func NewMapLiteral(pos token.Pos, keys []string, values []Expr) *MapLiteral {
	return &MapLiteral{base: base{pos}, Keys: keys, Values: values}
}

func NewReference(pos token.Pos, name string) *Reference {
	return &Reference{base: base{pos}, Name: name}
}

func NewLookup(pos token.Pos, target, key Expr) *Lookup {
	return &Lookup{base: base{pos}, Target: target, Key: key}
}

func NewSlice(pos token.Pos, target, lo, hi Expr) *Slice {
	return &Slice{base: base{pos}, Target: target, Lo: lo, Hi: hi}
}

func NewBinaryExpr(pos token.Pos, op BinaryOp, left, right Expr) *BinaryExpr {
	return &BinaryExpr{base: base{pos}, Op: op, Left: left, Right: right}
}

func NewUnaryExpr(pos token.Pos, not bool, operand Expr) *UnaryExpr {
	return &UnaryExpr{base: base{pos}, Not: not, Operand: operand}
}

func NewFuncCall(pos token.Pos, name string, args []Expr, distinct bool, comp *ListComprehension) *FuncCall {
	return &FuncCall{base: base{pos}, Name: name, Args: args, Distinct: distinct, Comp: comp}
}

func NewCaseExpr(pos token.Pos, test Expr, whens, thens []Expr, elseExpr Expr) *CaseExpr {
	return &CaseExpr{base: base{pos}, Test: test, Whens: whens, Thens: thens, Else: elseExpr}
}

func NewFStringExpr(pos token.Pos, literals []string, exprs []Expr) *FStringExpr {
	return &FStringExpr{base: base{pos}, Literals: literals, Exprs: exprs}
}

func NewListComprehension(pos token.Pos, v string, array, where, mapExpr Expr) *ListComprehension {
	return &ListComprehension{base: base{pos}, Var: v, Array: array, Where: where, Map: mapExpr}
}

func NewParenExpr(pos token.Pos, inner Expr) *ParenExpr {
	return &ParenExpr{base: base{pos}, Inner: inner}
}

func NewPatternExpr(pos token.Pos, pattern *Pattern, negate bool) *PatternExpr {
	return &PatternExpr{base: base{pos}, Pattern: pattern, Negate: negate}
}
