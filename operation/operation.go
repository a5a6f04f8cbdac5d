// Package operation implements the FlowQuery operation pipeline (spec
// §4.4): a linked list of operation nodes, each of whose run() drives
// the next. Grounded step-for-step on
// original_source/flowquery-py/src/parsing/operations/*.py, translated
// from the coroutine style into synchronous Go calls per spec §5's
// single-threaded cooperative model (suspension points are confined to
// loader/physical-handle I/O, modelled here as ordinary blocking Go
// calls the caller may still wrap in a context for cancellation).
package operation

import (
	"context"

	"github.com/flowquery-go/flowquery/ast"
	"github.com/flowquery-go/flowquery/graph"
	"github.com/flowquery-go/flowquery/value"
)

// Operation is the pipeline-step contract of spec §3/§4.4:
// initialize/run/finish/results, linked by Next.
type Operation interface {
	Initialize(ctx *Context) error
	Run(ctx *Context) error
	Finish(ctx *Context) error
	Results() []value.Record
	Next() Operation
	SetNext(Operation)
}

// Context is the per-query runtime handed through Initialize/Run/Finish.
// It carries the row scope, the Go context (for loader cancellation per
// spec §5), and the evaluation ports (function registry, pattern
// matcher) that ast.Expr.Value needs.
type Context struct {
	Go         context.Context
	Eval       *ast.EvalContext
	DB         *graph.Database
	Matcher    *graph.Matcher
	Loaders    Loader
	Procedures ProcedureResolver
}

// WithScope returns a shallow copy of ctx with its Eval's scope swapped,
// mirroring ast.EvalContext.WithScope for the operation-level wrapper.
func (ctx *Context) WithScope(s *ast.Scope) *Context {
	cp := *ctx
	cp.Eval = ctx.Eval.WithScope(s)
	return &cp
}

// Base is embedded by every concrete operation to provide the Next/
// SetNext plumbing.
type Base struct {
	next Operation
}

func (b *Base) Next() Operation      { return b.next }
func (b *Base) SetNext(o Operation) { b.next = o }

// runNext is a convenience used by every non-terminal operation.
func runNext(ctx *Context, o Operation) error {
	if o.Next() == nil {
		return nil
	}
	return o.Next().Run(ctx)
}

// Chain wires a sequence of operations' Next pointers in order and
// returns the head.
func Chain(ops ...Operation) Operation {
	for i := 0; i < len(ops)-1; i++ {
		ops[i].SetNext(ops[i+1])
	}
	if len(ops) == 0 {
		return nil
	}
	return ops[0]
}

// InitializeChain propagates Initialize top-down (spec §4.4:
// "initialize() is propagated next-ward before a run").
func InitializeChain(ctx *Context, head Operation) error {
	for o := head; o != nil; o = o.Next() {
		if err := o.Initialize(ctx); err != nil {
			return err
		}
	}
	return nil
}

// FinishChain propagates Finish after the last run() returns (spec
// §4.4: "finish() is propagated after the last run() returns").
func FinishChain(ctx *Context, head Operation) error {
	for o := head; o != nil; o = o.Next() {
		if err := o.Finish(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Results returns the last operation in the chain's Results(), the
// only meaningful results per spec §3.
func Results(head Operation) []value.Record {
	var last Operation
	for o := head; o != nil; o = o.Next() {
		last = o
	}
	if last == nil {
		return nil
	}
	return last.Results()
}
