// Package session provides the explicit, per-query runtime FlowQuery
// threads through a pipeline run (spec §9's design note rejecting a
// process-wide global in favor of an explicit session object the
// caller owns and can run concurrently with others). It bridges the
// operation package's ports (operation.Loader, operation.ProcedureResolver)
// to concrete implementations and supplies the ast.FuncResolver/
// graph.Matcher/graph.Database trio every operation.Context needs.
package session

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/flowquery-go/flowquery/ast"
	"github.com/flowquery-go/flowquery/functions"
	"github.com/flowquery-go/flowquery/graph"
	"github.com/flowquery-go/flowquery/internal/fqerrors"
	"github.com/flowquery-go/flowquery/operation"
	"github.com/flowquery-go/flowquery/value"
)

// Procedure is a registered CALL target (spec §4.2/§5: "user-registered
// ... functions" returning rows to YIELD from).
type Procedure func(ctx context.Context, args []value.Value) ([]value.Record, error)

// ProcedureRegistry resolves CALL targets by name and implements
// operation.ProcedureResolver.
type ProcedureRegistry struct {
	procedures map[string]Procedure
}

// NewProcedureRegistry builds an empty registry; register procedures
// with Register before running any query that CALLs them.
func NewProcedureRegistry() *ProcedureRegistry {
	return &ProcedureRegistry{procedures: make(map[string]Procedure)}
}

// Register adds or replaces the procedure bound to name.
func (r *ProcedureRegistry) Register(name string, p Procedure) {
	r.procedures[name] = p
}

// Call implements operation.ProcedureResolver.
func (r *ProcedureRegistry) Call(ctx context.Context, name string, args []value.Value) ([]value.Record, error) {
	p, ok := r.procedures[name]
	if !ok {
		return nil, fqerrors.Evaluation.New(fmt.Sprintf("no such procedure: %s", name))
	}
	return p(ctx, args)
}

// Session is the per-caller runtime: a graph, a function registry, a
// procedure registry, a loader, and a logger. One Session may run many
// queries sequentially; queries against the same Session share the
// same Database (so a CREATE VIRTUAL in one query is visible to MATCH
// in a later one, per spec §4.6's handle-lifetime note) and the same
// function/procedure registries.
type Session struct {
	DB         *graph.Database
	Functions  *functions.Registry
	Procedures *ProcedureRegistry
	Loader     operation.Loader
	Log        *logrus.Logger

	User string
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithLoader overrides the default loader (e.g. for tests, a fake that
// never hits the network).
func WithLoader(l operation.Loader) Option {
	return func(s *Session) { s.Loader = l }
}

// WithLogger overrides the default logrus.Logger.
func WithLogger(l *logrus.Logger) Option {
	return func(s *Session) { s.Log = l }
}

// WithUser tags the session with the authenticated user name, stored in
// Session.User; nothing in this package reads it.
func WithUser(user string) Option {
	return func(s *Session) { s.User = user }
}

// New builds a Session with a fresh Database, function registry and
// procedure registry. Supply WithLoader for a real operation.Loader
// (the loader package's HTTPLoader, typically) since LOAD queries fail
// without one.
func New(opts ...Option) *Session {
	s := &Session{
		DB:         graph.NewDatabase(),
		Functions:  functions.NewRegistry(),
		Procedures: NewProcedureRegistry(),
		Log:        logrus.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewContext builds the operation.Context a freshly-parsed pipeline
// needs to run, rooted at an empty top-level scope.
func (s *Session) NewContext(ctx context.Context) *operation.Context {
	matcher := graph.NewMatcher(s.DB)
	root := ast.NewScope(nil)
	eval := &ast.EvalContext{Scope: root, Functions: s.Functions, Matcher: matcher}
	return &operation.Context{
		Go:         ctx,
		Eval:       eval,
		DB:         s.DB,
		Matcher:    matcher,
		Loaders:    s.Loader,
		Procedures: s.Procedures,
	}
}

// Run drives an already-built operation chain to completion against
// this session and returns its final results (spec §3/§4.4: a single
// top-level initialize/run/finish/results pass).
func (s *Session) Run(ctx context.Context, head operation.Operation) ([]value.Record, error) {
	opCtx := s.NewContext(ctx)
	if err := operation.InitializeChain(opCtx, head); err != nil {
		return nil, err
	}
	if err := head.Run(opCtx); err != nil {
		return nil, err
	}
	if err := operation.FinishChain(opCtx, head); err != nil {
		return nil, err
	}
	return operation.Results(head), nil
}
