package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/flowquery-go/flowquery/auth"
	"github.com/flowquery-go/flowquery/loader"
	"github.com/flowquery-go/flowquery/parser"
	"github.com/flowquery-go/flowquery/session"
	"github.com/flowquery-go/flowquery/value"
)

// Engine is the single top-level FlowQuery entrypoint: one Engine per
// process or test, wrapping a Session, an Auth backend, and a logger.
// Unlike the teacher's sqle.Engine, it owns no catalog and serves no
// wire protocol; a caller embeds an Engine directly and calls Query.
type Engine struct {
	Session *session.Session
	Auth    auth.Auth
	Log     *logrus.Logger
}

// New builds an Engine from a Config: an auth backend, an HTTP loader
// whose client timeout is Config.LoaderTimeout, and a fresh Session
// wired to both.
func New(cfg Config) (*Engine, error) {
	a, err := cfg.buildAuth()
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	audited := auth.NewAudit(a, auth.NewAuditLog(log))

	ld := loader.NewHTTPLoader(log.WithField("component", "loader"))
	ld.Client.Timeout = cfg.LoaderTimeout

	s := session.New(session.WithLoader(ld), session.WithLogger(log))

	return &Engine{Session: s, Auth: audited, Log: log}, nil
}

// Query parses text, checks that user holds the permission the parsed
// pipeline requires, and runs it to completion (spec §9's single
// parse/authorize/run entrypoint).
func (e *Engine) Query(ctx context.Context, user, text string) ([]value.Record, error) {
	start := time.Now()

	head, err := parser.Parse(text, e.Session.Functions)
	if err != nil {
		e.auditQuery(user, text, start, err)
		return nil, err
	}

	if err := e.Auth.Allowed(user, auth.RequiredPermission(head)); err != nil {
		e.auditQuery(user, text, start, err)
		return nil, err
	}

	rows, err := e.Session.Run(ctx, head)
	e.auditQuery(user, text, start, err)
	return rows, err
}

// auditQuery reports the query's outcome if the Auth backend supports
// it (only *auth.Audit does; a bare auth.None/auth.Native does not).
func (e *Engine) auditQuery(user, text string, start time.Time, err error) {
	if a, ok := e.Auth.(*auth.Audit); ok {
		a.Query(user, text, time.Since(start), err)
	}
}
