package operation

import (
	"github.com/flowquery-go/flowquery/ast"
	"github.com/flowquery-go/flowquery/value"
)

// Match drives graph pattern traversal (spec §4.4.5), grounded on
// match.py: every pattern chain binding enumerated by the matcher fires
// Next() once. OPTIONAL MATCH continues once with every pattern node's
// identifier bound to null when nothing matched.
type Match struct {
	Base
	Patterns []*ast.Pattern
	Optional bool
}

func NewMatch(patterns []*ast.Pattern, optional bool) *Match {
	return &Match{Patterns: patterns, Optional: optional}
}

func (m *Match) Initialize(ctx *Context) error { return nil }

func (m *Match) Run(ctx *Context) error {
	matched := false
	err := ctx.Matcher.TraverseAll(ctx.Eval, m.Patterns, func(innerEval *ast.EvalContext) error {
		matched = true
		innerCtx := *ctx
		innerCtx.Eval = innerEval
		return runNext(&innerCtx, m)
	})
	if err != nil {
		return err
	}
	if !matched && m.Optional {
		inner := ast.NewScope(ctx.Eval.Scope)
		for _, p := range m.Patterns {
			for _, n := range p.Nodes {
				if n.Identifier != "" {
					inner.Declare(n.Identifier, value.NewNull())
				}
			}
			for _, r := range p.Relationships {
				if r.Identifier != "" {
					inner.Declare(r.Identifier, value.NewNull())
				}
			}
		}
		return runNext(ctx.WithScope(inner), m)
	}
	return nil
}

func (m *Match) Finish(ctx *Context) error { return nil }

// Results is meaningful only for the chain's final operation (spec
// §4.4); Match is never terminal so this is never read.
func (m *Match) Results() []value.Record { return nil }
