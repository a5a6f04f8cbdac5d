package parser

import (
	"strconv"
	"strings"

	"github.com/flowquery-go/flowquery/ast"
	"github.com/flowquery-go/flowquery/token"
	"github.com/flowquery-go/flowquery/value"
)

// Precedence levels, tightest-binds-last ordering used by
// parseExprPrec's climb (spec §3's Shunting-Yard table, folded here
// into freeeve/machparse/parser/expression.go's recursive-descent
// style instead of an explicit operator stack).
const (
	precLowest = iota
	precOr
	precAnd
	precNot
	precComparison
	precAdditive
	precMultiplicative
	precPower
)

func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseExprPrec(precLowest)
}

func (p *Parser) parseExprPrec(minPrec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		op, prec, consumed, ok := p.peekBinaryOp()
		if !ok || prec < minPrec {
			return left, nil
		}
		pos := p.cur.Pos
		for i := 0; i < consumed; i++ {
			p.advance()
		}

		if op == ast.OpIsNull || op == ast.OpIsNotNull {
			left = ast.NewBinaryExpr(pos, op, left, nil)
			continue
		}

		nextMin := prec + 1
		right, err := p.parseExprPrec(nextMin)
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpr(pos, op, left, right)
	}
}

// peekBinaryOp inspects cur (and, for two-word operators, the
// lookahead token) and reports the BinaryOp it spells, its precedence,
// and how many tokens to consume -- without consuming anything itself,
// so the caller can bail out below minPrec.
func (p *Parser) peekBinaryOp() (ast.BinaryOp, int, int, bool) {
	switch {
	case p.curWord("OR"):
		return ast.OpOr, precOr, 1, true
	case p.curWord("AND"):
		return ast.OpAnd, precAnd, 1, true
	case p.curIs(token.Operator, "="):
		return ast.OpEq, precComparison, 1, true
	case p.curIs(token.Operator, "<>"):
		return ast.OpNeq, precComparison, 1, true
	case p.curIs(token.Operator, "<="):
		return ast.OpLte, precComparison, 1, true
	case p.curIs(token.Operator, ">="):
		return ast.OpGte, precComparison, 1, true
	case p.curIs(token.Operator, "<"):
		return ast.OpLt, precComparison, 1, true
	case p.curIs(token.Operator, ">"):
		return ast.OpGt, precComparison, 1, true
	case p.curWord("IS"):
		if p.peek().Value == "NOT" {
			return ast.OpIsNotNull, precComparison, 2, true
		}
		return ast.OpIsNull, precComparison, 1, true
	case p.curWord("IN"):
		return ast.OpIn, precComparison, 1, true
	case p.curWord("CONTAINS"):
		return ast.OpContains, precComparison, 1, true
	case p.curWord("STARTS") && p.peek().Value == "WITH":
		return ast.OpStartsWith, precComparison, 2, true
	case p.curWord("ENDS") && p.peek().Value == "WITH":
		return ast.OpEndsWith, precComparison, 2, true
	case p.curWord("NOT") && p.peek().Value == "IN":
		return ast.OpNotIn, precComparison, 2, true
	case p.curWord("NOT") && p.peek().Value == "CONTAINS":
		return ast.OpNotContains, precComparison, 2, true
	case p.curIs(token.Operator, "+"):
		return ast.OpAdd, precAdditive, 1, true
	case p.curIs(token.Operator, "-"):
		return ast.OpSub, precAdditive, 1, true
	case p.curIs(token.Operator, "*"):
		return ast.OpMul, precMultiplicative, 1, true
	case p.curIs(token.Operator, "/"):
		return ast.OpDiv, precMultiplicative, 1, true
	case p.curIs(token.Operator, "%"):
		return ast.OpMod, precMultiplicative, 1, true
	case p.curIs(token.Operator, "^"):
		return ast.OpPow, precPower, 1, true
	}

	// NOT STARTS/ENDS WITH is three tokens (NOT STARTS WITH); handled
	// separately since peekBinaryOp's two-token lookahead can't see the
	// third.
	if p.curWord("NOT") {
		lx2 := p.lx.Clone()
		second, err := lx2.Next()
		if err == nil && (second.Value == "STARTS" || second.Value == "ENDS") {
			third, err := lx2.Next()
			if err == nil && third.Value == "WITH" {
				if second.Value == "STARTS" {
					return ast.OpNotStartsWith, precComparison, 3, true
				}
				return ast.OpNotEndsWith, precComparison, 3, true
			}
		}
	}

	return 0, 0, 0, false
}

// parseUnary handles prefix NOT and prefix -, then defers to
// parsePostfix for index/lookup suffixes.
func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.curWord("NOT") {
		pos := p.cur.Pos
		p.advance()
		operand, err := p.parseExprPrec(precNot)
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpr(pos, true, operand), nil
	}
	if p.curIs(token.Operator, "-") || p.curIs(token.UnaryOperator, "-") {
		pos := p.cur.Pos
		p.advance()
		operand, err := p.parseExprPrec(precPower)
		if err != nil {
			return nil, err
		}
		if lit, ok := operand.(*ast.Literal); ok {
			switch lit.Val.Kind {
			case value.Int:
				return ast.NewLiteral(pos, value.NewInt(-lit.Val.Int())), nil
			case value.Float:
				return ast.NewLiteral(pos, value.NewFloat(-lit.Val.Float())), nil
			}
		}
		return ast.NewUnaryExpr(pos, false, operand), nil
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary expression followed by any chain of
// `.field`, `[index]` or `[lo:hi]` suffixes.
func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.curIs(token.Symbol, "."):
			pos := p.cur.Pos
			p.advance()
			name, err := p.identName()
			if err != nil {
				return nil, err
			}
			expr = ast.NewLookup(pos, expr, ast.NewLiteral(pos, value.NewString(name)))
		case p.curIs(token.Symbol, "["):
			pos := p.cur.Pos
			p.advance()
			var lo, hi ast.Expr
			isSlice := false
			if !p.curIs(token.Symbol, ":") {
				lo, err = p.parseExpr()
				if err != nil {
					return nil, err
				}
			}
			if p.curIs(token.Symbol, ":") {
				isSlice = true
				p.advance()
				if !p.curIs(token.Symbol, "]") {
					hi, err = p.parseExpr()
					if err != nil {
						return nil, err
					}
				}
			}
			if err := p.expectSymbol("]"); err != nil {
				return nil, err
			}
			if isSlice {
				expr = ast.NewSlice(pos, expr, lo, hi)
			} else {
				expr = ast.NewLookup(pos, expr, lo)
			}
		default:
			return expr, nil
		}
	}
}

// parsePrimary parses a literal, reference, parenthesised expression/
// pattern, list, map, function call, CASE, or bare pattern-as-boolean
// expression.
func (p *Parser) parsePrimary() (ast.Expr, error) {
	pos := p.cur.Pos
	switch {
	case p.cur.Kind == token.Number:
		return p.parseNumberLiteral()
	case p.cur.Kind == token.String, p.cur.Kind == token.BacktickString:
		v := value.NewString(p.cur.CaseSensitiveValue)
		p.advance()
		return ast.NewLiteral(pos, v), nil
	case p.cur.Kind == token.FString:
		return p.parseFString()
	case p.cur.Kind == token.Boolean:
		v := value.NewBool(p.cur.Value == "TRUE" || p.cur.Value == "true")
		p.advance()
		return ast.NewLiteral(pos, v), nil
	case p.curWord("NULL"):
		p.advance()
		return ast.NewLiteral(pos, value.NewNull()), nil
	case p.curWord("CASE"):
		return p.parseCase()
	case p.curIs(token.Symbol, "["):
		return p.parseListOrComprehension()
	case p.curIs(token.Symbol, "{"):
		return p.parseMapLiteral()
	case p.curIs(token.Symbol, "("):
		return p.parseParenOrPattern()
	case p.curWord("NOT") && p.startsPattern(p.peek()):
		p.advance()
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		return ast.NewPatternExpr(pos, pat, true), nil
	case p.cur.Kind == token.Identifier, (p.cur.Kind == token.Keyword || p.cur.Kind == token.Operator) && token.CanBeIdentifier(p.cur.Value):
		return p.parseIdentOrCall()
	}
	return nil, p.fail(pos, "unexpected token %q in expression")
}

func (p *Parser) startsPattern(t token.Token) bool {
	return t.Kind == token.Symbol && t.Value == "("
}

func (p *Parser) parseNumberLiteral() (ast.Expr, error) {
	pos := p.cur.Pos
	text := p.cur.Value
	p.advance()
	if strings.ContainsAny(text, ".eE") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, p.fail(pos, "invalid number literal")
		}
		return ast.NewLiteral(pos, value.NewFloat(f)), nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, p.fail(pos, "invalid number literal")
	}
	return ast.NewLiteral(pos, value.NewInt(i)), nil
}

// parseFString re-parses each embedded expression chunk with a nested
// Parser over its raw source text (the lexer has already split literal
// chunks from expression chunks; it does not parse the expressions
// themselves).
func (p *Parser) parseFString() (ast.Expr, error) {
	pos := p.cur.Pos
	parts := p.cur.FStringParts
	p.advance()

	var literals []string
	var exprs []ast.Expr
	pending := ""
	for _, part := range parts {
		if !part.IsExpr {
			pending += part.Literal
			continue
		}
		literals = append(literals, pending)
		pending = ""
		sub := New(part.Expr, p.funcs)
		e, err := sub.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	literals = append(literals, pending)
	return ast.NewFStringExpr(pos, literals, exprs), nil
}

func (p *Parser) parseCase() (ast.Expr, error) {
	pos := p.cur.Pos
	p.advance() // CASE
	var test ast.Expr
	if !p.curWord("WHEN") {
		t, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		test = t
	}
	var whens, thens []ast.Expr
	for p.curWord("WHEN") {
		p.advance()
		w, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectWord("THEN"); err != nil {
			return nil, err
		}
		t, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		whens = append(whens, w)
		thens = append(thens, t)
	}
	var elseExpr ast.Expr
	if p.curWord("ELSE") {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elseExpr = e
	}
	if err := p.expectWord("END"); err != nil {
		return nil, err
	}
	return ast.NewCaseExpr(pos, test, whens, thens, elseExpr), nil
}

// parseListOrComprehension parses `[e1, e2, ...]` or `[v IN arr [WHERE
// cond] [| map]]`.
func (p *Parser) parseListOrComprehension() (ast.Expr, error) {
	pos := p.cur.Pos
	p.advance() // [

	if p.curIs(token.Symbol, "]") {
		p.advance()
		return ast.NewListLiteral(pos, nil), nil
	}

	// Disambiguate `[v IN arr ...]` from a plain list literal by trying
	// to read an identifier followed immediately by IN.
	if p.cur.Kind == token.Identifier && p.peek().Value == "IN" {
		v := p.cur.Value
		p.advance() // identifier
		p.advance() // IN
		arr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		var where, mapExpr ast.Expr
		if p.curWord("WHERE") {
			p.advance()
			where, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		if p.curIs(token.Symbol, "|") || p.curIs(token.Operator, "|") {
			p.advance()
			mapExpr, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		if err := p.expectSymbol("]"); err != nil {
			return nil, err
		}
		return ast.NewListComprehension(pos, v, arr, where, mapExpr), nil
	}

	var items []ast.Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, e)
		if p.curIs(token.Symbol, ",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectSymbol("]"); err != nil {
		return nil, err
	}
	return ast.NewListLiteral(pos, items), nil
}

func (p *Parser) parseMapLiteral() (ast.Expr, error) {
	pos := p.cur.Pos
	p.advance() // {
	var keys []string
	var vals []ast.Expr
	if !p.curIs(token.Symbol, "}") {
		for {
			k, err := p.identName()
			if err != nil {
				return nil, err
			}
			if err := p.expectSymbol(":"); err != nil {
				return nil, err
			}
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			keys = append(keys, k)
			vals = append(vals, v)
			if p.curIs(token.Symbol, ",") {
				p.advance()
				continue
			}
			break
		}
	}
	if err := p.expectSymbol("}"); err != nil {
		return nil, err
	}
	return ast.NewMapLiteral(pos, keys, vals), nil
}

// parseParenOrPattern disambiguates `(expr)` from a graph pattern used
// as a boolean existence test (spec §4.2's parenthesised-expression-vs-
// pattern rule): a `(` immediately followed by an identifier/`:`/`)`
// combination that only a node pattern can start is parsed as a
// PatternExpr; otherwise as a plain parenthesised sub-expression.
func (p *Parser) parseParenOrPattern() (ast.Expr, error) {
	pos := p.cur.Pos
	if p.looksLikePattern() {
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		return ast.NewPatternExpr(pos, pat, false), nil
	}
	p.advance() // (
	inner, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return ast.NewParenExpr(pos, inner), nil
}

// looksLikePattern peeks past the opening `(` (without consuming
// anything) to see whether it is immediately followed by `)`, `:`, or
// an identifier then one of `)`,`:`,`{` -- the only shapes a node
// pattern can start with, and shapes a bare parenthesised expression
// never does (a bare identifier in parens, e.g. `(x)`, is ambiguous in
// the grammar and is resolved as a single-node pattern per spec §4.2,
// since a lone reference never needs parenthesising).
func (p *Parser) looksLikePattern() bool {
	lx2 := p.lx.Clone()
	first, err := lx2.Next()
	if err != nil {
		return false
	}
	switch {
	case first.Kind == token.Symbol && (first.Value == ")" || first.Value == ":"):
		return true
	case first.Kind == token.Identifier:
		second, err := lx2.Next()
		if err != nil {
			return false
		}
		return second.Kind == token.Symbol && (second.Value == ")" || second.Value == ":" || second.Value == "{")
	}
	return false
}

// parseIdentOrCall parses a bare reference, a `fn(...)` call, or a
// predicate-reducer form `fn(v IN arr [WHERE cond] [| map])`. Function
// names are matched case-insensitively against the lower-cased registry
// (spec §6's function list).
func (p *Parser) parseIdentOrCall() (ast.Expr, error) {
	pos := p.cur.Pos
	name, err := p.identName()
	if err != nil {
		return nil, err
	}
	if !p.curIs(token.Symbol, "(") {
		return ast.NewReference(pos, name), nil
	}
	lower := strings.ToLower(name)
	p.advance() // (

	distinct := false
	if p.curWord("DISTINCT") {
		distinct = true
		p.advance()
	}

	// Predicate-reducer form: `fn(v IN arr [WHERE cond] [| map])`.
	if p.cur.Kind == token.Identifier && p.peek().Value == "IN" {
		if !p.funcs.IsAggregate(lower) {
			return nil, p.fail(pos, "predicate-reducer form requires an aggregate function")
		}
		v := p.cur.Value
		p.advance() // identifier
		p.advance() // IN
		arr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		var where, mapExpr ast.Expr
		if p.curWord("WHERE") {
			p.advance()
			if where, err = p.parseExpr(); err != nil {
				return nil, err
			}
		}
		if p.curIs(token.Symbol, "|") || p.curIs(token.Operator, "|") {
			p.advance()
			if mapExpr, err = p.parseExpr(); err != nil {
				return nil, err
			}
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		comp := ast.NewListComprehension(pos, v, arr, where, mapExpr)
		return ast.NewFuncCall(pos, lower, nil, distinct, comp), nil
	}

	before := p.aggrDepth
	if p.funcs.IsAggregate(lower) {
		if p.aggrDepth > 0 {
			return nil, p.fail(pos, "Aggregate functions cannot be nested")
		}
		p.aggrDepth++
	}

	var args []ast.Expr
	if !p.curIs(token.Symbol, ")") {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.curIs(token.Symbol, ",") {
				p.advance()
				continue
			}
			break
		}
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	p.aggrDepth = before

	if n, ok := p.funcs.Arity(lower); ok && n != len(args) {
		return nil, p.fail(pos, "Function `"+lower+"` expected "+strconv.Itoa(n)+" parameters, but got "+strconv.Itoa(len(args)))
	}

	return ast.NewFuncCall(pos, lower, args, distinct, nil), nil
}
