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

import "errors"

// Result is the result of a CREATE VIRTUAL or DELETE execution.
type Result struct {
	rowsAffected int64
}

// LastInsertId is not meaningful for FlowQuery: CREATE VIRTUAL assigns
// handle identity from the pattern itself (spec §4.4.4), not from an
// auto-incrementing counter.
func (r *Result) LastInsertId() (int64, error) {
	return 0, errors.New("flowquery: no auto-generated IDs")
}

// RowsAffected returns the number of result rows the statement's
// pipeline produced (the length of Engine.Query's result); CREATE
// VIRTUAL and DELETE produce no result rows, so it is 0 for them.
func (r *Result) RowsAffected() (int64, error) {
	return r.rowsAffected, nil
}
