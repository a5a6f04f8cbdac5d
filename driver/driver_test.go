package driver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fqdriver "github.com/flowquery-go/flowquery/driver"
)

const createPeople = `CREATE VIRTUAL (:Person) AS {
  UNWIND [
    {id: '1', name: 'John Doe', email: 'john@doe.com'},
    {id: '2', name: 'Jane Doe', email: 'jane@doe.com'}
  ] AS row
  RETURN row.id AS id, row.name AS name, row.email AS email
}`

func TestQueryVirtualNodes(t *testing.T) {
	db := sqlOpen(t, "alice")
	_, err := db.Exec(createPeople)
	require.NoError(t, err)

	rows, err := db.Query(`MATCH (p:Person) RETURN p.name AS name, p.email AS email`)
	require.NoError(t, err)
	defer rows.Close()

	var got Records
	var name, email string
	for rows.Next() {
		require.NoError(t, rows.Scan(&name, &email))
		got = append(got, []V{name, email})
	}
	require.NoError(t, rows.Err())

	assert.ElementsMatch(t, Records{
		{"John Doe", "john@doe.com"},
		{"Jane Doe", "jane@doe.com"},
	}, got)
}

func TestExecReportsRowsAffected(t *testing.T) {
	db := sqlOpen(t, "alice")

	res, err := db.Exec(createPeople)
	require.NoError(t, err)

	// CreateVirtualNode has no terminal Results of its own (spec
	// §4.4.4's handle registration produces no rows itself).
	count, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestDeleteRemovesHandle(t *testing.T) {
	db := sqlOpen(t, "alice")
	_, err := db.Exec(createPeople)
	require.NoError(t, err)

	_, err = db.Exec(`DELETE (:Person)`)
	require.NoError(t, err)

	_, err = db.Query(`MATCH (p:Person) RETURN p.name AS name`)
	assert.Error(t, err)
}

func TestPrepareRejectsMalformedQuery(t *testing.T) {
	db := sqlOpen(t, "alice")
	_, err := db.Prepare(`RETURN 1 AS a RETURN 2 AS b`)
	assert.Error(t, err)
}

func TestQueryRejectsBoundParameters(t *testing.T) {
	db := sqlOpen(t, "alice")
	_, err := db.Query(`RETURN 1 AS x`, 1)
	assert.ErrorIs(t, err, fqdriver.ErrParametersUnsupported)
}

func TestReturnsScalarResult(t *testing.T) {
	db := sqlOpen(t, "alice")
	rows, err := db.Query(`RETURN 1 + 2 AS sum`)
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var sum int64
	require.NoError(t, rows.Scan(&sum))
	assert.EqualValues(t, 3, sum)
}
