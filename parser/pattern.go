package parser

import (
	"strconv"

	"github.com/flowquery-go/flowquery/ast"
	"github.com/flowquery-go/flowquery/token"
)

// parsePattern parses one `[alias =] (node) [-[rel]-(node)]*` chain
// (spec §3/§4.2), recording every freshly-introduced node identifier in
// p.bound so a later reuse of the same name parses as a NodeReference
// instead of a fresh binding.
func (p *Parser) parsePattern() (*ast.Pattern, error) {
	pos := p.cur.Pos
	pat := ast.NewPattern(pos)

	if p.cur.Kind == token.Identifier && p.peek().Kind == token.Operator && p.peek().Value == "=" {
		alias := p.cur.Value
		p.advance() // identifier
		p.advance() // =
		pat.PathAlias = alias
	}

	node, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	pat.AddNode(node)

	for p.curIs(token.Operator, "-") || p.curIs(token.Operator, "<-") {
		rel, err := p.parseRelationship()
		if err != nil {
			return nil, err
		}
		pat.AddRelationship(rel)

		node, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		pat.AddNode(node)
	}

	return pat, nil
}

// parseNode parses `(identifier? :Label? {props}?)`.
func (p *Parser) parseNode() (*ast.Node, error) {
	pos := p.cur.Pos
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}

	var identifier, label string
	if p.cur.Kind == token.Identifier {
		identifier = p.cur.Value
		p.advance()
	}
	if p.curIs(token.Symbol, ":") {
		p.advance()
		name, err := p.identName()
		if err != nil {
			return nil, err
		}
		label = name
	}

	node := ast.NewNode(pos, identifier, label)
	if identifier != "" {
		node.IsReference = p.bound[identifier]
		p.bound[identifier] = true
	}

	if p.curIs(token.Symbol, "{") {
		props, err := p.parsePropertyConstraints()
		if err != nil {
			return nil, err
		}
		node.Properties = props
	}

	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return node, nil
}

// parseRelationship parses one `-[ident? :T(|T2)* hops?]-`, optionally
// arrow-headed on either end, between two nodes.
func (p *Parser) parseRelationship() (*ast.Relationship, error) {
	pos := p.cur.Pos

	leftArrow := false
	if p.curIs(token.Operator, "<-") {
		leftArrow = true
		p.advance()
	} else {
		if err := p.expectDash(); err != nil {
			return nil, err
		}
	}

	var identifier string
	var types []string
	hops := ast.Hops{Min: 1, Max: 1}
	if p.curIs(token.Symbol, "[") {
		p.advance()
		if p.cur.Kind == token.Identifier {
			identifier = p.cur.Value
			p.advance()
		}
		if p.curIs(token.Symbol, ":") {
			p.advance()
			for {
				name, err := p.identName()
				if err != nil {
					return nil, err
				}
				types = append(types, name)
				if p.curIs(token.Operator, "|") {
					p.advance()
					continue
				}
				break
			}
		}
		if p.curIs(token.Operator, "*") {
			p.advance()
			h, err := p.parseHops()
			if err != nil {
				return nil, err
			}
			hops = h
		}
		var props []ast.PropertyConstraint
		if p.curIs(token.Symbol, "{") {
			pr, err := p.parsePropertyConstraints()
			if err != nil {
				return nil, err
			}
			props = pr
		}
		if err := p.expectSymbol("]"); err != nil {
			return nil, err
		}
		rightArrow := false
		if p.curIs(token.Operator, "->") {
			rightArrow = true
			p.advance()
		} else if err := p.expectDash(); err != nil {
			return nil, err
		}

		dir := ast.DirRight
		switch {
		case leftArrow && rightArrow:
			dir = ast.DirBoth
		case leftArrow:
			dir = ast.DirLeft
		case rightArrow:
			dir = ast.DirRight
		default:
			dir = ast.DirBoth
		}

		rel := ast.NewRelationship(pos, identifier, types, dir, hops)
		rel.Properties = props
		if identifier != "" {
			rel.IsReference = p.bound[identifier]
			p.bound[identifier] = true
		}
		return rel, nil
	}

	// Bare `--`/`->`/`<-` with no bracketed detail.
	rightArrow := false
	if p.curIs(token.Operator, "->") {
		rightArrow = true
		p.advance()
	} else if err := p.expectDash(); err != nil {
		return nil, err
	}
	dir := ast.DirBoth
	switch {
	case leftArrow && rightArrow:
		dir = ast.DirBoth
	case leftArrow:
		dir = ast.DirLeft
	case rightArrow:
		dir = ast.DirRight
	}
	return ast.NewRelationship(pos, "", nil, dir, hops), nil
}

// expectDash consumes the `-` (or `->`) that opens/closes a
// relationship segment; `-` is tokenized as an Operator, not a Symbol,
// since it doubles as the subtraction operator.
func (p *Parser) expectDash() error {
	if p.curIs(token.Operator, "-") {
		p.advance()
		return nil
	}
	if p.curIs(token.Operator, "->") {
		p.advance()
		return nil
	}
	return p.fail(p.cur.Pos, "expected relationship dash")
}

// parseHops parses the variable-length suffix after `*`: bare (`*`,
// meaning 1..unbounded), `*n`, `*n..`, `*n..m`, `*..m`.
func (p *Parser) parseHops() (ast.Hops, error) {
	h := ast.Hops{Variable: true, Min: 1, Max: ast.Unbounded}

	if p.cur.Kind == token.Number {
		n, err := strconv.Atoi(p.cur.Value)
		if err != nil {
			return h, p.fail(p.cur.Pos, "invalid hop count")
		}
		p.advance()
		h.Min = n
		h.Max = n
	}

	if p.curIs(token.Operator, "..") {
		p.advance()
		h.Max = ast.Unbounded
		if p.cur.Kind == token.Number {
			n, err := strconv.Atoi(p.cur.Value)
			if err != nil {
				return h, p.fail(p.cur.Pos, "invalid hop count")
			}
			p.advance()
			h.Max = n
		}
	}

	return h, nil
}

func (p *Parser) parsePropertyConstraints() ([]ast.PropertyConstraint, error) {
	p.advance() // {
	var props []ast.PropertyConstraint
	if !p.curIs(token.Symbol, "}") {
		for {
			key, err := p.identName()
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
			props = append(props, ast.PropertyConstraint{Key: key, Value: v})
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
	return props, nil
}
