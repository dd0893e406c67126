package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/altheris/mysql-data-apis/security"
	"github.com/altheris/mysql-data-apis/types"
)

// ExecuteSelect runs a caller-supplied SELECT after validating it. A LIMIT is
// appended when the statement does not carry one and limit is positive, so an
// unbounded query cannot stream an entire table through the endpoint.
func (db *Db) ExecuteSelect(ctx context.Context, query string, limit int) (*types.QueryResult, error) {
	if err := security.ValidateSelectStatement(query); err != nil {
		return nil, err
	}

	statement := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), ";"))
	if limit > 0 && !strings.Contains(strings.ToUpper(statement), "LIMIT") {
		statement = fmt.Sprintf("%s LIMIT %d", statement, limit)
	}

	rows, err := db.conn.QueryContext(ctx, statement)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &types.QueryResult{Columns: columns}
	holders := make([]interface{}, len(columns))
	for rows.Next() {
		for i := range holders {
			holders[i] = new(interface{})
		}
		if err := rows.Scan(holders...); err != nil {
			return nil, err
		}
		record := make(map[string]interface{}, len(columns))
		for i, column := range columns {
			record[column] = normalizeCell(*holders[i].(*interface{}))
		}
		result.Values = append(result.Values, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	db.logger.Debug("select executed",
		"columns", len(columns),
		"rows", len(result.Values))
	return result, nil
}

// normalizeCell converts driver byte slices into strings so that results
// serialize as text instead of base64.
func normalizeCell(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
