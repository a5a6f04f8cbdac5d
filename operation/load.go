package operation

import (
	"context"

	"github.com/flowquery-go/flowquery/ast"
	"github.com/flowquery-go/flowquery/value"
)

// Loader is the opaque HTTP-loader contract of spec §1: "given a URL
// and optional POST body, yield a lazy sequence of records." Concretely
// implemented by the loader package for JSON/CSV/TEXT; wired onto
// Context by session.Session.
type Loader interface {
	Load(ctx context.Context, format, url string, body value.Value, headers value.Value) ([]value.Value, error)
}

// Load drives `LOAD {JSON|CSV|TEXT} FROM <expr> [POST <expr>] [HEADERS
// <expr>] AS <ident>` (spec §4.2/§6). Each item the loader yields binds
// Alias and continues the pipeline; a TEXT load yields one string value
// per line, JSON/CSV one record (map) per element/row.
type Load struct {
	Base
	Format  string
	URL     ast.Expr
	Body    ast.Expr // nil when no POST clause
	Headers ast.Expr // nil when no HEADERS clause
	Alias   string
}

func NewLoad(format string, url, body, headers ast.Expr, alias string) *Load {
	return &Load{Format: format, URL: url, Body: body, Headers: headers, Alias: alias}
}

func (l *Load) Initialize(ctx *Context) error { return nil }

func (l *Load) Run(ctx *Context) error {
	urlVal, err := l.URL.Value(ctx.Eval)
	if err != nil {
		return err
	}
	var bodyVal, headersVal value.Value
	if l.Body != nil {
		if bodyVal, err = l.Body.Value(ctx.Eval); err != nil {
			return err
		}
	}
	if l.Headers != nil {
		if headersVal, err = l.Headers.Value(ctx.Eval); err != nil {
			return err
		}
	}

	items, err := ctx.Loaders.Load(ctx.Go, l.Format, urlVal.Str(), bodyVal, headersVal)
	if err != nil {
		return err
	}
	for _, item := range items {
		inner := ast.NewScope(ctx.Eval.Scope)
		inner.Declare(l.Alias, item)
		if err := runNext(ctx.WithScope(inner), l); err != nil {
			return err
		}
	}
	return nil
}

func (l *Load) Finish(ctx *Context) error { return nil }
func (l *Load) Results() []value.Record   { return nil }
