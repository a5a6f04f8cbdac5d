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

// Package driver exposes an engine.Engine as a database/sql/driver.Driver,
// so FlowQuery can be registered with the standard library's database/sql
// package (`sql.Open("flowquery", dsn)`) the same way the teacher's MySQL
// catalog is exposed as a stdlib driver.
package driver

import (
	"context"
	"database/sql/driver"

	"github.com/flowquery-go/flowquery/engine"
)

// Driver exposes an Engine as a stdlib SQL driver.
type Driver struct {
	engine   *engine.Engine
	resolver UserResolver
	procs    SimpleProcessManager
}

// New returns a driver backed by engine. Every Conn opened against it
// runs queries through the same Engine, and therefore the same
// session.Session / graph.Database -- a CREATE VIRTUAL handle made on
// one *sql.DB connection is visible to a MATCH on another (spec
// §4.6's handle-lifetime note), matching how the teacher's Driver
// shares one *sqle.Engine/catalog across every Connector it opens.
func New(e *engine.Engine) *Driver {
	return &Driver{engine: e, resolver: DefaultUserResolver{}}
}

// WithUserResolver overrides how a DSN resolves to the user a
// connection authenticates and authorizes queries as.
func (d *Driver) WithUserResolver(r UserResolver) *Driver {
	d.resolver = r
	return d
}

// Open returns a new connection to the database.
func (d *Driver) Open(name string) (driver.Conn, error) {
	conn, err := d.OpenConnector(name)
	if err != nil {
		return nil, err
	}
	return conn.Connect(context.Background())
}

// OpenConnector calls the driver factory and returns a new connector.
func (d *Driver) OpenConnector(dsn string) (driver.Connector, error) {
	user, password, err := d.resolver.Resolve(dsn)
	if err != nil {
		return nil, err
	}

	if err := d.engine.Auth.Authenticate(user, password); err != nil {
		return nil, err
	}

	return &Connector{driver: d, user: user}, nil
}

// A Connector represents a driver in a fixed configuration (here, a
// single authenticated user) and can create any number of equivalent
// Conns for use by multiple goroutines.
type Connector struct {
	driver *Driver
	user   string
}

// Driver returns the driver.
func (c *Connector) Driver() driver.Driver {
	return c.driver
}

// Connect returns a connection to the database.
func (c *Connector) Connect(context.Context) (driver.Conn, error) {
	id := c.driver.procs.NextConnectionID()
	return &Conn{driver: c.driver, user: c.user, connID: id}, nil
}
