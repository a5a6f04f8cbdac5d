package driver_test

import (
	"database/sql"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	fqdriver "github.com/flowquery-go/flowquery/driver"
	"github.com/flowquery-go/flowquery/engine"
)

type V = interface{}

// sqlOpen builds a fresh Engine and opens a *sql.DB against it as
// user. Each call gets its own Engine (and therefore its own
// graph.Database), so tests never see each other's CREATE VIRTUAL
// handles.
func sqlOpen(t *testing.T, user string) *sql.DB {
	e, err := engine.New(engine.DefaultConfig())
	require.NoError(t, err)

	drv := fqdriver.New(e)
	conn, err := drv.OpenConnector("flowquery://" + user + "@/")
	require.NoError(t, err)
	return sql.OpenDB(conn)
}

type Pointers []V

func (ptrs Pointers) Values() []V {
	values := make([]V, len(ptrs))
	for i := range values {
		values[i] = reflect.ValueOf(ptrs[i]).Elem().Interface()
	}
	return values
}

type Records [][]V

func (records Records) Rows(rows ...int) Records {
	result := make(Records, len(rows))

	for i := range rows {
		result[i] = records[rows[i]]
	}

	return result
}

func (records Records) Columns(cols ...int) Records {
	result := make(Records, len(records))

	for i := range records {
		result[i] = make([]V, len(cols))
		for j := range cols {
			result[i][j] = records[i][cols[j]]
		}
	}

	return result
}
