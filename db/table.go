package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/altheris/mysql-data-apis/security"
	"github.com/altheris/mysql-data-apis/types"
)

const describeColumnsQuery = `SELECT COLUMN_NAME, DATA_TYPE, COLUMN_TYPE,
	COALESCE(CHARACTER_MAXIMUM_LENGTH, COALESCE(NUMERIC_PRECISION, 0)),
	COALESCE(NUMERIC_SCALE, 0),
	IS_NULLABLE, COALESCE(COLUMN_DEFAULT, ''), EXTRA, COLUMN_KEY
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`

// DescribeTable reads the column catalog of a table in declaration order.
func (db *Db) DescribeTable(ctx context.Context, tableName string) ([]types.ColumnMeta, error) {
	if err := security.ValidateTableName(tableName); err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx, describeColumnsQuery, db.dbName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []types.ColumnMeta
	for rows.Next() {
		var (
			col        types.ColumnMeta
			columnType string
			size       int64
			scale      int64
			nullable   string
			extra      string
			key        string
		)
		if err := rows.Scan(&col.Name, &col.DataType, &columnType, &size, &scale, &nullable, &col.DefaultValue, &extra, &key); err != nil {
			return nil, err
		}
		col.DataType = strings.ToUpper(col.DataType)
		col.Size = int(size)
		col.DecimalDigits = int(scale)
		col.Nullable = strings.EqualFold(nullable, "YES")
		col.AutoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")
		col.PrimaryKey = strings.EqualFold(key, "PRI")
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, &security.ValidationError{Field: "table name", Reason: "table " + tableName + " does not exist or has no columns"}
	}
	return columns, nil
}

const columnDomainQuery = `SELECT COLUMN_TYPE FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND COLUMN_NAME = ?`

// ColumnDomain returns the full COLUMN_TYPE text of one column, for example
// "enum('a','b')" or "varchar(64)". Generators parse ENUM and SET member
// lists out of it.
func (db *Db) ColumnDomain(ctx context.Context, tableName string, columnName string) (string, error) {
	if err := security.ValidateTableName(tableName); err != nil {
		return "", err
	}
	if err := security.ValidateColumnName(columnName); err != nil {
		return "", err
	}

	rows, err := db.conn.QueryContext(ctx, columnDomainQuery, db.dbName, tableName, columnName)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", err
		}
		return "", sql.ErrNoRows
	}
	var columnType string
	if err := rows.Scan(&columnType); err != nil {
		return "", err
	}
	return columnType, rows.Err()
}

const listTablesQuery = `SELECT TABLE_NAME, COALESCE(TABLE_COMMENT, '')
FROM information_schema.TABLES
WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
ORDER BY TABLE_NAME`

// Tables lists the base tables of the connected database.
func (db *Db) Tables(ctx context.Context) ([]types.TableMeta, error) {
	rows, err := db.conn.QueryContext(ctx, listTablesQuery, db.dbName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []types.TableMeta
	for rows.Next() {
		var t types.TableMeta
		if err := rows.Scan(&t.Name, &t.Comment); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}
