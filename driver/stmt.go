// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package driver

import (
	"context"
	"database/sql/driver"
	"errors"
)

// ErrParametersUnsupported is returned by Exec/Query when the caller
// supplies positional or named arguments: FlowQuery's grammar has no
// placeholder syntax to bind them into (spec's grammar never mentions
// one; see DESIGN.md).
var ErrParametersUnsupported = errors.New("flowquery: queries do not accept bound parameters")

// Stmt is a prepared statement: just the already-validated query text,
// since FlowQuery has nothing analogous to a SQL query plan to cache
// across executions.
type Stmt struct {
	conn     *Conn
	queryStr string
}

// Close does nothing.
func (s *Stmt) Close() error {
	return nil
}

// NumInput returns -1: FlowQuery has no placeholder syntax to count,
// so argument-count validation is left to Exec/Query themselves
// rather than to database/sql's own pre-check (which only runs when
// NumInput is non-negative).
func (s *Stmt) NumInput() int {
	return -1
}

// Exec executes a query, such as CREATE VIRTUAL or DELETE, that
// mutates the graph rather than returning rows to scan.
func (s *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	if len(args) != 0 {
		return nil, ErrParametersUnsupported
	}
	return s.exec(context.Background())
}

// Query executes a query, such as MATCH/RETURN, that returns rows.
func (s *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	if len(args) != 0 {
		return nil, ErrParametersUnsupported
	}
	return s.query(context.Background())
}

// ExecContext executes a query that doesn't return rows.
func (s *Stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	if len(args) != 0 {
		return nil, ErrParametersUnsupported
	}
	return s.exec(ctx)
}

// QueryContext executes a query that may return rows.
func (s *Stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	if len(args) != 0 {
		return nil, ErrParametersUnsupported
	}
	return s.query(ctx)
}

func (s *Stmt) exec(ctx context.Context) (driver.Result, error) {
	rows, err := s.conn.driver.engine.Query(ctx, s.conn.user, s.queryStr)
	if err != nil {
		return nil, err
	}
	return &Result{rowsAffected: int64(len(rows))}, nil
}

func (s *Stmt) query(ctx context.Context) (driver.Rows, error) {
	rows, err := s.conn.driver.engine.Query(ctx, s.conn.user, s.queryStr)
	if err != nil {
		return nil, err
	}
	return newRows(rows), nil
}
