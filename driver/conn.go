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
	"database/sql/driver"

	"github.com/flowquery-go/flowquery/parser"
)

// Conn is a connection to a database, running every query against the
// Engine its Driver was built with as the resolved user.
type Conn struct {
	driver *Driver
	user   string
	connID uint32
}

// Prepare validates the query and returns a statement. Unlike SQL,
// FlowQuery has no placeholder syntax, so preparing only checks that
// the text parses.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	if _, err := parser.Parse(query, c.driver.engine.Session.Functions); err != nil {
		return nil, err
	}
	return &Stmt{conn: c, queryStr: query}, nil
}

// Close does nothing; the underlying Engine outlives any one Conn.
func (c *Conn) Close() error {
	return nil
}

// Begin returns a fake transaction. FlowQuery pipelines run to
// completion atomically already (spec's Non-goals exclude multi-
// statement transactions), so Commit/Rollback are both no-ops.
func (c *Conn) Begin() (driver.Tx, error) {
	return fakeTransaction{}, nil
}

type fakeTransaction struct{}

func (fakeTransaction) Commit() error   { return nil }
func (fakeTransaction) Rollback() error { return nil }
