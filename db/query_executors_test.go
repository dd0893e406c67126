package db

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/altheris/mysql-data-apis/log"
	"github.com/altheris/mysql-data-apis/types"
)

func newTestDb(t *testing.T) (*Db, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return WrapConn(conn, "testdb", log.NewZapLogger(zap.NewNop())), mock
}

func updateRequest() *types.MutationRequest {
	return &types.MutationRequest{
		Operation: types.OperationUpdate,
		TableName: "jobs",
		Rules: []types.Rule{
			{
				SetValues:          []types.MapEntry{{Key: "status", Value: types.Text("done")}},
				Conditions:         []types.Condition{{Field: "status", Operator: "=", Value: types.Text("pending")}},
				MaxAffectedRecords: 10,
				RequireConditions:  true,
			},
			{
				SetValues:          []types.MapEntry{{Key: "status", Value: types.Text("archived")}},
				Conditions:         []types.Condition{{Field: "status", Operator: "=", Value: types.Text("stale")}},
				MaxAffectedRecords: 10,
				RequireConditions:  true,
			},
		},
		UseTransaction:          true,
		MaxTotalAffectedRecords: 15,
		ReturnDetails:           true,
	}
}

func TestExecuteMutationCommitsTransaction(t *testing.T) {
	db, mock := newTestDb(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `jobs` SET `status` = ? WHERE `status` = ?").
		WithArgs("done", "pending").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("UPDATE `jobs` SET `status` = ? WHERE `status` = ?").
		WithArgs("archived", "stale").
		WillReturnResult(sqlmock.NewResult(0, 6))
	mock.ExpectCommit()

	result, err := db.ExecuteMutation(context.Background(), updateRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(10), result.TotalAffected)
	assert.Equal(t, []int64{4, 6}, result.RuleAffected)
	assert.True(t, result.Committed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteMutationRollsBackOnRuleLimit(t *testing.T) {
	db, mock := newTestDb(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `jobs` SET `status` = ? WHERE `status` = ?").
		WithArgs("done", "pending").
		WillReturnResult(sqlmock.NewResult(0, 11))
	mock.ExpectRollback()

	_, err := db.ExecuteMutation(context.Background(), updateRequest())
	require.Error(t, err)
	var limitErr *SafetyLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.False(t, limitErr.Total)
	assert.Equal(t, int64(11), limitErr.Affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteMutationTotalLimitCheckedAfterAllRules(t *testing.T) {
	db, mock := newTestDb(t)

	// Both rules stay under their own ceilings; only the request total trips.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `jobs` SET `status` = ? WHERE `status` = ?").
		WithArgs("done", "pending").
		WillReturnResult(sqlmock.NewResult(0, 9))
	mock.ExpectExec("UPDATE `jobs` SET `status` = ? WHERE `status` = ?").
		WithArgs("archived", "stale").
		WillReturnResult(sqlmock.NewResult(0, 8))
	mock.ExpectRollback()

	_, err := db.ExecuteMutation(context.Background(), updateRequest())
	require.Error(t, err)
	var limitErr *SafetyLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.True(t, limitErr.Total)
	assert.Equal(t, int64(17), limitErr.Affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteMutationRollsBackOnStatementError(t *testing.T) {
	db, mock := newTestDb(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `jobs` SET `status` = ? WHERE `status` = ?").
		WithArgs("done", "pending").
		WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	_, err := db.ExecuteMutation(context.Background(), updateRequest())
	require.Error(t, err)
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 0, execErr.RuleIndex)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteMutationWithoutTransaction(t *testing.T) {
	db, mock := newTestDb(t)

	req := updateRequest()
	req.UseTransaction = false

	mock.ExpectExec("UPDATE `jobs` SET `status` = ? WHERE `status` = ?").
		WithArgs("done", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `jobs` SET `status` = ? WHERE `status` = ?").
		WithArgs("archived", "stale").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := db.ExecuteMutation(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalAffected)
	assert.True(t, result.Committed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteMutationDryRunCompilesOnly(t *testing.T) {
	db, mock := newTestDb(t)

	req := updateRequest()
	req.DryRun = true

	result, err := db.ExecuteMutation(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.False(t, result.Committed)
	assert.Equal(t, int64(0), result.TotalAffected)
	require.Len(t, result.Previews, 2)
	assert.Equal(t, "UPDATE `jobs` SET `status` = ? WHERE `status` = ?", result.Previews[0].SQL)
	assert.Equal(t, 2, result.Previews[0].ParamCount)
	assert.Contains(t, result.Previews[0].Description, "UPDATE")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteMutationRevalidatesRequest(t *testing.T) {
	db, mock := newTestDb(t)

	req := updateRequest()
	req.TableName = "jobs; DROP TABLE jobs"

	_, err := db.ExecuteMutation(context.Background(), req)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteInsert(t *testing.T) {
	db, mock := newTestDb(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users` (`name`, `age`) VALUES (?, ?), (?, ?)").
		WithArgs("a", 1, "b", 2).
		WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectCommit()

	total, err := db.ExecuteInsert(context.Background(), "users", []string{"name", "age"}, [][]interface{}{
		{"a", 1},
		{"b", 2},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteInsertRollsBackOnError(t *testing.T) {
	db, mock := newTestDb(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users` (`name`) VALUES (?)").
		WithArgs("a").
		WillReturnError(errors.New("duplicate entry"))
	mock.ExpectRollback()

	_, err := db.ExecuteInsert(context.Background(), "users", []string{"name"}, [][]interface{}{{"a"}})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteInsertRejectsRaggedRows(t *testing.T) {
	db, _ := newTestDb(t)

	_, err := db.ExecuteInsert(context.Background(), "users", []string{"name", "age"}, [][]interface{}{{"a"}})
	assert.Error(t, err)
}

func TestExecuteSelect(t *testing.T) {
	db, mock := newTestDb(t)

	rows := sqlmock.NewRows([]string{"id", "name"}).
		AddRow(int64(1), []byte("alice")).
		AddRow(int64(2), []byte("bob"))
	mock.ExpectQuery("SELECT id, name FROM users LIMIT 100").WillReturnRows(rows)

	result, err := db.ExecuteSelect(context.Background(), "SELECT id, name FROM users", 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, result.Columns)
	require.Len(t, result.Values, 2)
	assert.Equal(t, "alice", result.Values[0]["name"])
	assert.Equal(t, int64(1), result.Values[0]["id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteSelectKeepsExistingLimit(t *testing.T) {
	db, mock := newTestDb(t)

	mock.ExpectQuery("SELECT id FROM users LIMIT 5").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := db.ExecuteSelect(context.Background(), "SELECT id FROM users LIMIT 5", 100)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteSelectRejectsNonSelect(t *testing.T) {
	db, _ := newTestDb(t)

	_, err := db.ExecuteSelect(context.Background(), "DELETE FROM users", 100)
	assert.Error(t, err)
	_, err = db.ExecuteSelect(context.Background(), "SELECT * FROM t; DROP TABLE t;", 100)
	assert.Error(t, err)
}

func TestDescribeTable(t *testing.T) {
	db, mock := newTestDb(t)

	rows := sqlmock.NewRows([]string{
		"COLUMN_NAME", "DATA_TYPE", "COLUMN_TYPE", "size", "scale", "IS_NULLABLE", "COLUMN_DEFAULT", "EXTRA", "COLUMN_KEY",
	}).
		AddRow("id", "bigint", "bigint(20)", int64(19), int64(0), "NO", "", "auto_increment", "PRI").
		AddRow("name", "varchar", "varchar(64)", int64(64), int64(0), "YES", "", "", "")
	mock.ExpectQuery(describeColumnsQuery).WithArgs("testdb", "users").WillReturnRows(rows)

	columns, err := db.DescribeTable(context.Background(), "users")
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.Equal(t, "BIGINT", columns[0].DataType)
	assert.True(t, columns[0].AutoIncrement)
	assert.True(t, columns[0].PrimaryKey)
	assert.False(t, columns[0].Nullable)
	assert.Equal(t, "VARCHAR", columns[1].DataType)
	assert.Equal(t, 64, columns[1].Size)
	assert.True(t, columns[1].Nullable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDescribeTableUnknownTable(t *testing.T) {
	db, mock := newTestDb(t)

	mock.ExpectQuery(describeColumnsQuery).WithArgs("testdb", "missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"COLUMN_NAME", "DATA_TYPE", "COLUMN_TYPE", "size", "scale", "IS_NULLABLE", "COLUMN_DEFAULT", "EXTRA", "COLUMN_KEY",
		}))

	_, err := db.DescribeTable(context.Background(), "missing")
	assert.Error(t, err)
}

func TestColumnDomain(t *testing.T) {
	db, mock := newTestDb(t)

	mock.ExpectQuery(columnDomainQuery).WithArgs("testdb", "users", "status").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_TYPE"}).AddRow("enum('active','inactive')"))

	domain, err := db.ColumnDomain(context.Background(), "users", "status")
	require.NoError(t, err)
	assert.Equal(t, "enum('active','inactive')", domain)
}

func TestTables(t *testing.T) {
	db, mock := newTestDb(t)

	mock.ExpectQuery(listTablesQuery).WithArgs("testdb").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "TABLE_COMMENT"}).
			AddRow("orders", "order data").
			AddRow("users", ""))

	tables, err := db.Tables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "orders", tables[0].Name)
}
