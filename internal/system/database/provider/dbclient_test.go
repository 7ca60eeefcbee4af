package provider

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbmodel "github.com/medilink/health-exchange-api/internal/system/database/model"
)

var testQuery = dbmodel.DBQuery{
	ID:    "TEST_QUERY",
	Query: "SELECT RECORD_ID, STATUS FROM HEALTH_RECORD WHERE PATIENT_ID = ?",
}

var testStatement = dbmodel.DBQuery{
	ID:    "TEST_STATEMENT",
	Query: "UPDATE HEALTH_RECORD SET STATUS = ? WHERE RECORD_ID = ?",
}

func newMockClient(t *testing.T) (DBClientInterface, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDBClient(sqlx.NewDb(db, "sqlmock"), "mysql"), mock
}

// TestQuery_MapsRowsAndNormalizesBytes tests that rows come back as maps with
// driver []byte values converted to string
func TestQuery_MapsRowsAndNormalizesBytes(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectQuery(testQuery.Query).
		WithArgs("patient-001").
		WillReturnRows(sqlmock.NewRows([]string{"RECORD_ID", "STATUS"}).
			AddRow([]byte("rec-1"), []byte("ACTIVE")).
			AddRow("rec-2", "ARCHIVED"))

	rows, err := client.Query(testQuery, "patient-001")

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "rec-1", rows[0]["RECORD_ID"])
	assert.Equal(t, "ACTIVE", rows[0]["STATUS"])
	assert.Equal(t, "rec-2", rows[1]["RECORD_ID"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestExecute_ReturnsAffectedRows tests the affected-row count passthrough
func TestExecute_ReturnsAffectedRows(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectExec(testStatement.Query).
		WithArgs("ARCHIVED", "rec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := client.Execute(testStatement, "ARCHIVED", "rec-1")

	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestExecute_WrapsDriverError tests that driver failures carry the query ID
func TestExecute_WrapsDriverError(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectExec(testStatement.Query).
		WillReturnError(assert.AnError)

	_, err := client.Execute(testStatement, "ARCHIVED", "rec-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), testStatement.ID)
}

// TestBeginTx_CommitAndRollback tests the transaction wrapper
func TestBeginTx_CommitAndRollback(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectBegin()
	mock.ExpectExec(testStatement.Query).
		WithArgs("DELETED", "rec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := client.BeginTx()
	require.NoError(t, err)
	_, err = tx.Exec(testStatement.Query, "DELETED", "rec-1")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, err = client.BeginTx()
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}
