// Package parser implements FlowQuery's hand-written recursive-descent
// parser (spec §4.2): token stream -> a chain of operation.Operation
// pipeline steps, with identifier binding and these structural rules
// enforced during the parse: single RETURN, no nested aggregates,
// function arity, and UNWIND needs an `AS` alias. A PatternExpression
// is not checked for a bound node reference, and UNWIND's operand is
// not checked for being an array at parse time.
//
// Grounded on freeeve/machparse/parser/parser.go's pooled, single
// current-token recursive-descent shape; the expression grammar
// (expr.go) follows that file's parseExprPrec precedence-climbing
// style, which implements the same left-to-right operator-precedence
// folding as the Shunting-Yard algorithm spec §3/§4.3 describe, just
// without a separately materialised operator stack.
package parser

import (
	"fmt"
	"strconv"

	"github.com/flowquery-go/flowquery/ast"
	"github.com/flowquery-go/flowquery/functions"
	"github.com/flowquery-go/flowquery/internal/fqerrors"
	"github.com/flowquery-go/flowquery/lexer"
	"github.com/flowquery-go/flowquery/operation"
	"github.com/flowquery-go/flowquery/token"
)

// Parser holds the state spec §4.2 calls the "parser state": the
// identifier -> introducing-node binding map, an aggregate-nesting
// depth counter standing in for the context stack (rule 2), and the
// running RETURN count (rule 1).
type Parser struct {
	lx  *lexer.Lexer
	cur token.Token

	funcs ast.FuncResolver

	bound      map[string]bool
	aggrDepth  int
	returnSeen bool

	err error
}

// New builds a Parser over query text, using fns to resolve function
// arity/aggregate-ness during the parse (rules 2 and 4). Pass nil to
// use a fresh functions.NewRegistry().
func New(text string, fns ast.FuncResolver) *Parser {
	if fns == nil {
		fns = functions.NewRegistry()
	}
	p := &Parser{lx: lexer.New(text), funcs: fns, bound: make(map[string]bool)}
	p.advance()
	return p
}

// Parse parses a complete pipeline (including any top-level UNION/
// UNION ALL combinators) and returns its head operation.
func Parse(text string, fns ast.FuncResolver) (operation.Operation, error) {
	p := New(text, fns)
	head, err := p.ParsePipeline()
	if err != nil {
		return nil, err
	}
	if !p.curIs(token.EOF, "") {
		return nil, p.fail(p.cur.Pos, fmt.Sprintf("unexpected token %q after end of query", p.cur.Value))
	}
	return head, nil
}

// --- token plumbing ---

func (p *Parser) advance() {
	if p.err != nil {
		return
	}
	t, err := p.lx.Next()
	if err != nil {
		p.err = err
		p.cur = token.Token{Kind: token.EOF}
		return
	}
	p.cur = t
}

func (p *Parser) peek() token.Token {
	t, err := p.lx.Peek()
	if err != nil {
		return token.Token{Kind: token.EOF}
	}
	return t
}

// curIs reports whether the current token matches kind (if non-zero-
// value check is wanted, pass token.Illegal to skip the kind check)
// and/or upper-case value. Either may be left zero/"" to skip that leg
// of the comparison.
func (p *Parser) curIs(kind token.Kind, value string) bool {
	if kind != token.Illegal && p.cur.Kind != kind {
		return false
	}
	if value != "" && p.cur.Value != value {
		return false
	}
	return true
}

// curWord reports whether cur is a Keyword or Operator token spelling
// word (both WITH and STARTS are tokenized as Operator per
// token.WordOperators, so clause dispatch compares Value, not Kind).
func (p *Parser) curWord(word string) bool {
	return (p.cur.Kind == token.Keyword || p.cur.Kind == token.Operator) && p.cur.Value == word
}

func (p *Parser) fail(pos token.Pos, msg string) error {
	if p.err == nil {
		p.err = fqerrors.At(pos, fqerrors.Parse.New(msg))
	}
	return p.err
}

func (p *Parser) expectWord(word string) error {
	if !p.curWord(word) {
		return p.fail(p.cur.Pos, fmt.Sprintf("expected %s, got %q", word, p.cur.Value))
	}
	p.advance()
	return nil
}

func (p *Parser) expectSymbol(sym string) error {
	if !p.curIs(token.Symbol, sym) {
		return p.fail(p.cur.Pos, fmt.Sprintf("expected %q, got %q", sym, p.cur.Value))
	}
	p.advance()
	return nil
}

// identName consumes an identifier, or a keyword token in a position
// where spec §4.1's can-be-identifier flag allows reuse.
func (p *Parser) identName() (string, error) {
	if p.cur.Kind == token.Identifier {
		name := p.cur.Value
		p.advance()
		return name, nil
	}
	if (p.cur.Kind == token.Keyword || p.cur.Kind == token.Operator) && token.CanBeIdentifier(p.cur.Value) {
		name := p.cur.Value
		p.advance()
		return name, nil
	}
	return "", p.fail(p.cur.Pos, fmt.Sprintf("expected identifier, got %q", p.cur.Value))
}

// --- pipeline ---

// ParsePipeline parses a sequence of clauses, then any UNION/UNION ALL
// continuation at the top level (spec §4.4.3).
func (p *Parser) ParsePipeline() (operation.Operation, error) {
	left, err := p.parseClauses(false)
	if err != nil {
		return nil, err
	}
	for p.curWord("UNION") {
		p.advance()
		all := false
		if p.curWord("ALL") {
			all = true
			p.advance()
		}
		p.returnSeen = false // each UNION arm gets its own RETURN budget
		right, err := p.parseClauses(false)
		if err != nil {
			return nil, err
		}
		if all {
			left = operation.NewUnionAll(left, right)
		} else {
			left = operation.NewUnion(left, right, false)
		}
	}
	return left, nil
}

// parseClauses parses one UNION arm: a sequence of clauses chained by
// Next, stopping at EOF, UNION, or (when inBrace) the closing `}` of a
// CREATE VIRTUAL sub-pipeline.
func (p *Parser) parseClauses(inBrace bool) (operation.Operation, error) {
	var ops []operation.Operation

	atStop := func() bool {
		if p.curIs(token.EOF, "") || p.curWord("UNION") {
			return true
		}
		if inBrace && p.curIs(token.Symbol, "}") {
			return true
		}
		return false
	}

	for !atStop() {
		op, err := p.parseClause(ops)
		if err != nil {
			return nil, err
		}
		if op == nil {
			break
		}
		ops = append(ops, op)
	}
	if len(ops) == 0 {
		return nil, p.fail(p.cur.Pos, "empty pipeline")
	}
	return operation.Chain(ops...), nil
}

// parseClause parses one clause. A WHERE reached here (after a MATCH or
// any clause other than WITH/RETURN) becomes a standalone Filter step;
// WITH/RETURN consume their WHERE directly via their own field, handled
// at their own parse site instead of here.
func (p *Parser) parseClause(prior []operation.Operation) (operation.Operation, error) {
	switch {
	case p.curWord("OPTIONAL"):
		p.advance()
		if err := p.expectWord("MATCH"); err != nil {
			return nil, err
		}
		return p.parseMatch(true)
	case p.curWord("MATCH"):
		p.advance()
		return p.parseMatch(false)
	case p.curWord("WHERE"):
		p.advance()
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return operation.NewFilter(cond), nil
	case p.curWord("UNWIND"):
		p.advance()
		return p.parseUnwind()
	case p.curWord("WITH"):
		p.advance()
		return p.parseWith()
	case p.curWord("RETURN"):
		p.advance()
		return p.parseReturn()
	case p.curWord("LIMIT"):
		p.advance()
		return p.parseLimit()
	case p.curWord("ORDER"):
		p.advance()
		if err := p.expectWord("BY"); err != nil {
			return nil, err
		}
		fields, err := p.parseSortFields()
		if err != nil {
			return nil, err
		}
		return operation.NewOrderBy(fields), nil
	case p.curWord("LOAD"):
		p.advance()
		return p.parseLoad()
	case p.curWord("CALL"):
		p.advance()
		return p.parseCall()
	case p.curWord("CREATE"):
		p.advance()
		if err := p.expectWord("VIRTUAL"); err != nil {
			return nil, err
		}
		return p.parseCreateVirtual()
	case p.curWord("DELETE"):
		p.advance()
		return p.parseDelete()
	default:
		return nil, p.fail(p.cur.Pos, fmt.Sprintf("unexpected token %q at start of clause", p.cur.Value))
	}
}

// --- UNWIND ---

func (p *Parser) parseUnwind() (operation.Operation, error) {
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectWord("AS"); err != nil {
		return nil, err
	}
	alias, err := p.identName()
	if err != nil {
		return nil, err
	}
	p.bound[alias] = true
	return operation.NewUnwind(expr, alias), nil
}

// --- WITH / RETURN projections ---

func (p *Parser) parseWith() (operation.Operation, error) {
	items, distinct, err := p.parseProjection()
	if err != nil {
		return nil, err
	}
	proj := operation.NewProjection(items, distinct, p.funcs)
	w := operation.NewWith(proj)
	if p.curWord("WHERE") {
		p.advance()
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		w.Where = cond
	}
	if p.curWord("ORDER") {
		p.advance()
		if err := p.expectWord("BY"); err != nil {
			return nil, err
		}
		fields, err := p.parseSortFields()
		if err != nil {
			return nil, err
		}
		if proj.IsAggregating() {
			if err := p.checkOrderByAggregation(items, fields); err != nil {
				return nil, err
			}
		}
		w.OrderBy = operation.NewOrderBy(fields)
	}
	if p.curWord("LIMIT") {
		p.advance()
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		w.Limit = operation.NewLimit(n)
	}
	return w, nil
}

// checkOrderByAggregation rejects a sort field that bare-references an
// identifier an aggregating projection never outputs (SPEC_FULL.md §13
// resolution 1): once a RETURN/WITH aggregates, ORDER BY only has the
// projection's own aliases to sort by -- there is no pre-aggregation
// row scope left for it to read from (operation/order_by.go's Sort
// falls back to reading fields straight off the emitted record).
func (p *Parser) checkOrderByAggregation(items []operation.ProjectionItem, fields []operation.SortField) error {
	aliases := make(map[string]bool, len(items))
	for _, it := range items {
		aliases[it.Alias] = true
	}
	for _, f := range fields {
		ref, ok := f.Expr.(*ast.Reference)
		if !ok {
			continue
		}
		if !aliases[ref.Name] {
			return p.fail(ref.Pos(), fmt.Sprintf(
				"ORDER BY references %q, which is not an aggregate, grouping key, or projected alias", ref.Name))
		}
	}
	return nil
}

func (p *Parser) parseReturn() (operation.Operation, error) {
	if p.returnSeen {
		return nil, p.fail(p.cur.Pos, "Only one RETURN statement is allowed")
	}
	p.returnSeen = true

	items, distinct, err := p.parseProjection()
	if err != nil {
		return nil, err
	}
	proj := operation.NewProjection(items, distinct, p.funcs)
	r := operation.NewReturn(proj)
	if p.curWord("WHERE") {
		p.advance()
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		r.Where = cond
	}
	if p.curWord("ORDER") {
		p.advance()
		if err := p.expectWord("BY"); err != nil {
			return nil, err
		}
		fields, err := p.parseSortFields()
		if err != nil {
			return nil, err
		}
		if proj.IsAggregating() {
			if err := p.checkOrderByAggregation(items, fields); err != nil {
				return nil, err
			}
		}
		r.OrderBy = operation.NewOrderBy(fields)
	}
	if p.curWord("LIMIT") {
		p.advance()
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		r.Limit = operation.NewLimit(n)
	}
	return r, nil
}

// parseProjection parses `[DISTINCT] <expr> [AS <alias>] (, <expr> [AS
// <alias>])*`.
func (p *Parser) parseProjection() ([]operation.ProjectionItem, bool, error) {
	distinct := false
	if p.curWord("DISTINCT") {
		distinct = true
		p.advance()
	}

	var items []operation.ProjectionItem
	for {
		before := p.aggrDepth
		expr, err := p.parseExpr()
		if err != nil {
			return nil, false, err
		}
		p.aggrDepth = before

		alias := defaultAlias(expr)
		if p.curWord("AS") {
			p.advance()
			alias, err = p.identName()
			if err != nil {
				return nil, false, err
			}
		}
		p.bound[alias] = true
		items = append(items, operation.ProjectionItem{Alias: alias, Expr: expr})

		if p.curIs(token.Symbol, ",") {
			p.advance()
			continue
		}
		break
	}
	return items, distinct, nil
}

// defaultAlias names an un-aliased projection item after a bare
// reference (`RETURN n`) or, for anything else, a synthetic
// `expr@<line>:<column>` name built from the expression's position.
func defaultAlias(e ast.Expr) string {
	if r, ok := e.(*ast.Reference); ok {
		return r.Name
	}
	return fmt.Sprintf("expr@%s", e.Pos())
}

func (p *Parser) parseSortFields() ([]operation.SortField, error) {
	var fields []operation.SortField
	for {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		desc := false
		if p.curWord("DESC") {
			desc = true
			p.advance()
		} else if p.curWord("ASC") {
			p.advance()
		}
		fields = append(fields, operation.SortField{Expr: expr, Desc: desc})
		if p.curIs(token.Symbol, ",") {
			p.advance()
			continue
		}
		break
	}
	return fields, nil
}

func (p *Parser) parseIntLiteral() (int, error) {
	if p.cur.Kind != token.Number {
		return 0, p.fail(p.cur.Pos, fmt.Sprintf("expected integer, got %q", p.cur.Value))
	}
	n, err := strconv.Atoi(p.cur.Value)
	if err != nil {
		return 0, p.fail(p.cur.Pos, fmt.Sprintf("invalid integer %q", p.cur.Value))
	}
	p.advance()
	return n, nil
}

func (p *Parser) parseLimit() (operation.Operation, error) {
	n, err := p.parseIntLiteral()
	if err != nil {
		return nil, err
	}
	return operation.NewLimit(n), nil
}

// --- MATCH ---

func (p *Parser) parseMatch(optional bool) (operation.Operation, error) {
	var patterns []*ast.Pattern
	for {
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, pat)
		if p.curIs(token.Symbol, ",") {
			p.advance()
			continue
		}
		break
	}
	return operation.NewMatch(patterns, optional), nil
}

// --- LOAD ---

func (p *Parser) parseLoad() (operation.Operation, error) {
	var format string
	switch {
	case p.curWord("JSON"):
		format = "JSON"
	case p.curWord("CSV"):
		format = "CSV"
	case p.curWord("TEXT"):
		format = "TEXT"
	default:
		return nil, p.fail(p.cur.Pos, fmt.Sprintf("expected JSON, CSV or TEXT, got %q", p.cur.Value))
	}
	p.advance()
	if err := p.expectWord("FROM"); err != nil {
		return nil, err
	}
	url, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	var body, headers ast.Expr
	if p.curWord("POST") {
		p.advance()
		if body, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if p.curWord("HEADERS") {
		p.advance()
		if headers, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if err := p.expectWord("AS"); err != nil {
		return nil, err
	}
	alias, err := p.identName()
	if err != nil {
		return nil, err
	}
	p.bound[alias] = true
	return operation.NewLoad(format, url, body, headers, alias), nil
}

// --- CALL ---

func (p *Parser) parseCall() (operation.Operation, error) {
	name, err := p.identName()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
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
	var yield []string
	if p.curWord("YIELD") {
		p.advance()
		for {
			name, err := p.identName()
			if err != nil {
				return nil, err
			}
			yield = append(yield, name)
			p.bound[name] = true
			if p.curIs(token.Symbol, ",") {
				p.advance()
				continue
			}
			break
		}
	}
	return operation.NewCall(name, args, yield), nil
}

// --- CREATE VIRTUAL / DELETE ---

func (p *Parser) parseCreateVirtual() (operation.Operation, error) {
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	if err := p.expectSymbol(":"); err != nil {
		return nil, err
	}
	leftLabel, err := p.identName()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}

	if !p.curIs(token.Operator, "-") {
		// CREATE VIRTUAL (:Label) AS { <pipeline> }
		if err := p.expectWord("AS"); err != nil {
			return nil, err
		}
		sub, err := p.parseBracedPipeline()
		if err != nil {
			return nil, err
		}
		return operation.NewCreateVirtualNode(leftLabel, sub), nil
	}

	// CREATE VIRTUAL (:L1)-[:T]-(:L2) AS { <pipeline> }
	p.advance() // consume the '-'
	if err := p.expectSymbol("["); err != nil {
		return nil, err
	}
	if err := p.expectSymbol(":"); err != nil {
		return nil, err
	}
	relType, err := p.identName()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("]"); err != nil {
		return nil, err
	}
	p.advance() // consume the trailing '-'
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	if err := p.expectSymbol(":"); err != nil {
		return nil, err
	}
	rightLabel, err := p.identName()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	if err := p.expectWord("AS"); err != nil {
		return nil, err
	}
	sub, err := p.parseBracedPipeline()
	if err != nil {
		return nil, err
	}
	return operation.NewCreateVirtualRelationship(relType, leftLabel, rightLabel, sub), nil
}

func (p *Parser) parseBracedPipeline() (operation.Operation, error) {
	if err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	savedReturnSeen := p.returnSeen
	p.returnSeen = false
	sub, err := p.parseClauses(true)
	if err != nil {
		return nil, err
	}
	p.returnSeen = savedReturnSeen
	if err := p.expectSymbol("}"); err != nil {
		return nil, err
	}
	return sub, nil
}

func (p *Parser) parseDelete() (operation.Operation, error) {
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	if err := p.expectSymbol(":"); err != nil {
		return nil, err
	}
	label, err := p.identName()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	if p.curIs(token.Operator, "-") {
		p.advance()
		if err := p.expectSymbol("["); err != nil {
			return nil, err
		}
		if err := p.expectSymbol(":"); err != nil {
			return nil, err
		}
		relType, err := p.identName()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol("]"); err != nil {
			return nil, err
		}
		p.advance()
		if err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		if err := p.expectSymbol(":"); err != nil {
			return nil, err
		}
		if _, err := p.identName(); err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return operation.NewDeleteRelationship(relType), nil
	}
	return operation.NewDeleteNode(label), nil
}
