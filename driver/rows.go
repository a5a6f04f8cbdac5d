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
	"io"

	"github.com/flowquery-go/flowquery/value"
)

// Rows is an iterator over an executed query's results. FlowQuery's
// Runner (spec §6) already materializes the full result set before
// Engine.Query returns, so unlike the teacher's sql.RowIter-backed
// Rows this one just walks a slice -- there is no streaming cursor to
// wrap.
type Rows struct {
	cols []string
	rows []value.Record
	next int
}

// newRows derives the column list from the first row's keys: every
// row in a FlowQuery result set comes from the same RETURN/WITH
// projection, so every row shares the same columns in the same order
// (spec §4.3).
func newRows(rows []value.Record) *Rows {
	var cols []string
	if len(rows) > 0 {
		cols = rows[0].Keys()
	}
	return &Rows{cols: cols, rows: rows}
}

// Columns returns the names of the columns.
func (r *Rows) Columns() []string {
	return r.cols
}

// Close closes the rows iterator.
func (r *Rows) Close() error {
	r.next = len(r.rows)
	return nil
}

// Next populates dest with the next row's values, converted to one of
// the scalar types database/sql/driver.Value accepts.
func (r *Rows) Next(dest []driver.Value) error {
	if r.next >= len(r.rows) {
		return io.EOF
	}
	rec := r.rows[r.next]
	r.next++

	for i, col := range r.cols {
		v, ok := rec.Get(col)
		if !ok {
			dest[i] = nil
			continue
		}
		dv, err := toDriverValue(v)
		if err != nil {
			return err
		}
		dest[i] = dv
	}
	return nil
}
