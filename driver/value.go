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
	"encoding/json"

	"github.com/flowquery-go/flowquery/value"
)

// toDriverValue converts a FlowQuery value into one of the scalar
// types database/sql/driver.Value accepts (int64, float64, bool,
// []byte, string, time.Time, or nil). Lists, paths and maps have no
// direct driver.Value representation, so they're JSON-encoded the way
// the teacher's Rows converts its own JSON-typed columns.
func toDriverValue(v value.Value) (driver.Value, error) {
	switch v.Kind {
	case value.List, value.Path, value.Map:
		b, err := json.Marshal(value.ToRecord(v))
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return value.ToRecord(v), nil
	}
}
