package db

import (
	"fmt"
	"strings"

	"github.com/altheris/mysql-data-apis/security"
	"github.com/altheris/mysql-data-apis/types"
)

// CompileUpdate renders one update rule as a parameterized UPDATE statement.
// SET parameters come first in the returned slice, WHERE parameters after,
// matching placeholder order in the statement text.
func CompileUpdate(d Dialect, tableName string, rule *types.Rule) (string, []interface{}, error) {
	if err := security.ValidateTableName(tableName); err != nil {
		return "", nil, err
	}
	if len(rule.SetValues) == 0 {
		return "", nil, &security.ValidationError{Reason: "update rule has no values to set"}
	}

	var sb strings.Builder
	params := make([]interface{}, 0, len(rule.SetValues)+len(rule.Conditions))

	sb.WriteString("UPDATE ")
	sb.WriteString(d.QuoteIdentifier(tableName))
	sb.WriteString(" SET ")
	for i, entry := range rule.SetValues {
		if err := security.ValidateColumnName(entry.Key); err != nil {
			return "", nil, err
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.QuoteIdentifier(entry.Key))
		sb.WriteString(" = ")
		sb.WriteString(d.Placeholder())
		params = append(params, entry.Value.Param())
	}

	where, err := buildWhere(d, rule.Conditions, &params)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString(where)

	return sb.String(), params, nil
}

// CompileDelete renders one delete rule as a parameterized DELETE statement.
func CompileDelete(d Dialect, tableName string, rule *types.Rule) (string, []interface{}, error) {
	if err := security.ValidateTableName(tableName); err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	params := make([]interface{}, 0, len(rule.Conditions))

	sb.WriteString("DELETE FROM ")
	sb.WriteString(d.QuoteIdentifier(tableName))

	where, err := buildWhere(d, rule.Conditions, &params)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString(where)

	return sb.String(), params, nil
}

// CompileRule dispatches on the request operation.
func CompileRule(d Dialect, op types.Operation, tableName string, rule *types.Rule) (string, []interface{}, error) {
	if op == types.OperationDelete {
		return CompileDelete(d, tableName, rule)
	}
	return CompileUpdate(d, tableName, rule)
}

// buildWhere renders the WHERE clause of a rule, appending the bound values to
// params. A rule without conditions yields an empty clause; callers must have
// authorized that through requireConditions beforehand.
func buildWhere(d Dialect, conditions []types.Condition, params *[]interface{}) (string, error) {
	if len(conditions) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(" WHERE ")
	for i := range conditions {
		c := &conditions[i]
		if err := security.ValidateColumnName(c.Field); err != nil {
			return "", err
		}
		op, err := security.NormalizeOperator(c.Operator)
		if err != nil {
			return "", err
		}

		if i > 0 {
			connector := conditions[i-1].Connector
			if connector != types.ConnectorOr {
				connector = types.ConnectorAnd
			}
			sb.WriteString(" " + connector + " ")
		}

		sb.WriteString(d.QuoteIdentifier(c.Field))
		sb.WriteString(" ")
		sb.WriteString(op)

		if c.MultiValued() {
			if len(c.Values) == 0 {
				return "", &security.ValidationError{
					Field:  c.Field,
					Reason: fmt.Sprintf("operator %s requires a non-empty values list", op),
				}
			}
			sb.WriteString(" (")
			for j, v := range c.Values {
				if j > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(d.Placeholder())
				*params = append(*params, v.Param())
			}
			sb.WriteString(")")
		} else {
			sb.WriteString(" ")
			sb.WriteString(d.Placeholder())
			*params = append(*params, c.Value.Param())
		}
	}
	return sb.String(), nil
}

// CompileInsert renders a multi-row INSERT statement for the given columns
// and row count. Values are bound separately, row by row in column order.
func CompileInsert(d Dialect, tableName string, columns []string, rowCount int) (string, error) {
	if err := security.ValidateTableName(tableName); err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", &security.ValidationError{Reason: "insert requires at least one column"}
	}
	if rowCount <= 0 {
		return "", &security.ValidationError{Reason: "insert requires at least one row"}
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(d.QuoteIdentifier(tableName))
	sb.WriteString(" (")
	for i, column := range columns {
		if err := security.ValidateColumnName(column); err != nil {
			return "", err
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.QuoteIdentifier(column))
	}
	sb.WriteString(") VALUES ")

	row := "(" + strings.TrimSuffix(strings.Repeat(d.Placeholder()+", ", len(columns)), ", ") + ")"
	for i := 0; i < rowCount; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(row)
	}

	return sb.String(), nil
}
