package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateIdentifier(t *testing.T) {
	items := []struct {
		name  string
		valid bool
	}{
		{"users", true},
		{"_users", true},
		{"user_accounts2", true},
		{"", false},
		{"   ", false},
		{"1users", false},
		{"user-accounts", false},
		{"users; DROP TABLE x", false},
		{"users`", false},
		{"select", false},
		{"TABLE", false},
		{strings.Repeat("a", 64), true},
		{strings.Repeat("a", 65), false},
	}

	for _, item := range items {
		err := ValidateIdentifier("table name", item.name)
		if item.valid {
			assert.NoError(t, err, "identifier %q", item.name)
		} else {
			assert.Error(t, err, "identifier %q", item.name)
		}
	}
}

func TestValidateIdentifierErrorKind(t *testing.T) {
	err := ValidateTableName("drop")
	assert.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "reserved SQL keyword")
}

func TestEscapeIdentifier(t *testing.T) {
	assert.Equal(t, "`users`", EscapeIdentifier("users", '`'))
	assert.Equal(t, "`us``ers`", EscapeIdentifier("us`ers", '`'))
	assert.Equal(t, `"users"`, EscapeIdentifier("users", '"'))
}

func TestNormalizeOperator(t *testing.T) {
	for _, op := range []string{"=", "!=", ">", "<", ">=", "<=", "IN", "NOT IN", "LIKE", "NOT LIKE"} {
		normalized, err := NormalizeOperator(op)
		assert.NoError(t, err)
		assert.Equal(t, op, normalized)
	}

	normalized, err := NormalizeOperator(" not in ")
	assert.NoError(t, err)
	assert.Equal(t, "NOT IN", normalized)

	_, err = NormalizeOperator("BETWEEN")
	assert.Error(t, err)
	_, err = NormalizeOperator("")
	assert.Error(t, err)
}

func TestContainsInjectionPattern(t *testing.T) {
	items := []struct {
		input     string
		dangerous bool
	}{
		{"plain value", false},
		{"O'Brien", false},
		{"value'; DROP TABLE users", true},
		{"a -- comment", true},
		{"/* block */", true},
		{"1 UNION ALL", true},
		{"union lower case", true},
		{"exec sp_help", true},
		{"", false},
	}

	for _, item := range items {
		assert.Equal(t, item.dangerous, ContainsInjectionPattern(item.input), "input %q", item.input)
	}
}

func TestValidateSelectStatement(t *testing.T) {
	assert.NoError(t, ValidateSelectStatement("SELECT * FROM users"))
	assert.NoError(t, ValidateSelectStatement("  select id, name from users where id > 10"))

	err := ValidateSelectStatement("SELECT * FROM t; DROP TABLE t;")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DROP")

	err = ValidateSelectStatement("UPDATE users SET name = 'x'")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "start with SELECT")

	err = ValidateSelectStatement("SELECT * FROM users WHERE id IN (DELETE FROM users)")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DELETE")

	err = ValidateSelectStatement("SELECT * FROM users -- hidden")
	assert.Error(t, err)

	err = ValidateSelectStatement("")
	assert.Error(t, err)

	// Column names containing forbidden keywords as substrings are fine,
	// only whole words are rejected.
	assert.NoError(t, ValidateSelectStatement("SELECT updated_at, dropped FROM users"))
}
