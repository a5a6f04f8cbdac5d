// Copyright 2020-2023 Dolthub, Inc.
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

package main

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/flowquery-go/flowquery/driver"
	"github.com/flowquery-go/flowquery/engine"
)

func main() {
	e, err := engine.New(engine.DefaultConfig())
	must(err)

	sql.Register("flowquery", driver.New(e))

	db, err := sql.Open("flowquery", "flowquery://alice@/")
	must(err)

	_, err = db.Exec(`CREATE VIRTUAL (:Person) AS {
		UNWIND [
			{id: '1', name: 'John Doe', email: 'john@doe.com'},
			{id: '2', name: 'Jane Doe', email: 'jane@doe.com'}
		] AS row
		RETURN row.id AS id, row.name AS name, row.email AS email
	}`)
	must(err)

	rows, err := db.Query(`MATCH (p:Person) RETURN p.name AS name, p.email AS email`)
	must(err)
	dump(rows)
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func dump(rows *sql.Rows) {
	var name, email string
	for rows.Next() {
		must(rows.Scan(&name, &email))
		fmt.Println(name, email)
	}
}
