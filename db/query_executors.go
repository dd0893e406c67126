package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/altheris/mysql-data-apis/types"
)

// SafetyLimitError reports a mutation that touched more rows than a
// configured ceiling allows. When raised inside a transaction the whole
// request is rolled back.
type SafetyLimitError struct {
	RuleIndex int
	Affected  int64
	Limit     int64
	Total     bool
}

func (e *SafetyLimitError) Error() string {
	if e.Total {
		return fmt.Sprintf("total affected records %d exceed the request limit of %d", e.Affected, e.Limit)
	}
	return fmt.Sprintf("rule %d affected %d records, exceeding its limit of %d", e.RuleIndex+1, e.Affected, e.Limit)
}

// ExecutionError wraps a statement failure with the rule it belongs to.
type ExecutionError struct {
	RuleIndex int
	SQL       string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("rule %d failed: %v", e.RuleIndex+1, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ExecuteMutation runs every rule of a validated update or delete request in
// order. With useTransaction the rules share one transaction that is rolled
// back on any failure, including limit violations; without it each rule
// commits on its own and earlier rules stay applied when a later one fails.
// Per-rule limits are enforced right after each statement, the request-level
// total only once all rules have run.
func (db *Db) ExecuteMutation(ctx context.Context, req *types.MutationRequest) (*types.MutationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result := &types.MutationResult{
		TableName: req.TableName,
		Operation: req.Operation.String(),
		DryRun:    req.DryRun,
	}

	if req.DryRun {
		for i := range req.Rules {
			rule := &req.Rules[i]
			query, params, err := CompileRule(db.dialect, req.Operation, req.TableName, rule)
			if err != nil {
				return nil, fmt.Errorf("rule %d: %w", i+1, err)
			}
			result.Previews = append(result.Previews, types.RulePreview{
				SQL:         query,
				ParamCount:  len(params),
				Description: rule.Description(req.Operation),
			})
		}
		db.logger.Info("dry run compiled",
			"table", req.TableName,
			"operation", result.Operation,
			"rules", len(req.Rules))
		return result, nil
	}

	var runner execer = db.conn
	var tx *sql.Tx
	if req.UseTransaction {
		var err error
		tx, err = db.conn.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		runner = tx
		defer func() {
			if !result.Committed {
				tx.Rollback()
			}
		}()
	}

	for i := range req.Rules {
		rule := &req.Rules[i]
		query, params, err := CompileRule(db.dialect, req.Operation, req.TableName, rule)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}

		res, err := runner.ExecContext(ctx, query, params...)
		if err != nil {
			return nil, &ExecutionError{RuleIndex: i, SQL: query, Err: err}
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, &ExecutionError{RuleIndex: i, SQL: query, Err: err}
		}

		if affected > rule.MaxAffectedRecords {
			return nil, &SafetyLimitError{RuleIndex: i, Affected: affected, Limit: rule.MaxAffectedRecords}
		}

		result.TotalAffected += affected
		if req.ReturnDetails {
			result.RuleAffected = append(result.RuleAffected, affected)
		}
		db.logger.Debug("rule executed",
			"table", req.TableName,
			"rule", i+1,
			"affected", affected)
	}

	if result.TotalAffected > req.MaxTotalAffectedRecords {
		return nil, &SafetyLimitError{Affected: result.TotalAffected, Limit: req.MaxTotalAffectedRecords, Total: true}
	}

	if tx != nil {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
	}
	result.Committed = true

	db.logger.Info("mutation executed",
		"table", req.TableName,
		"operation", result.Operation,
		"rules", len(req.Rules),
		"totalAffected", result.TotalAffected)
	return result, nil
}

// insertChunkRows bounds the number of rows a single INSERT statement
// carries, keeping placeholder counts within driver limits.
const insertChunkRows = 500

// ExecuteInsert writes the given rows in one transaction, chunked into
// multi-row INSERT statements. Every row must match the column list in length
// and order.
func (db *Db) ExecuteInsert(ctx context.Context, tableName string, columns []string, rows [][]interface{}) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("row %d has %d values for %d columns", i+1, len(row), len(columns))
		}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var total int64
	for start := 0; start < len(rows); start += insertChunkRows {
		end := start + insertChunkRows
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		query, err := CompileInsert(db.dialect, tableName, columns, len(chunk))
		if err != nil {
			return 0, err
		}
		params := make([]interface{}, 0, len(chunk)*len(columns))
		for _, row := range chunk {
			params = append(params, row...)
		}

		res, err := tx.ExecContext(ctx, query, params...)
		if err != nil {
			return 0, fmt.Errorf("insert into %s failed: %w", tableName, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		total += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true

	db.logger.Info("insert executed",
		"table", tableName,
		"rows", total,
		"columns", len(columns))
	return total, nil
}
