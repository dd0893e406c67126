// security package contains the pure validation functions that guard every
// SQL text and identifier produced by the engine. Values are never validated
// here for syntax: they are always bound as statement parameters. The checks
// in this package are the defense for the parts that cannot be parameterized,
// that is identifiers and free-form SELECT text.
package security

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError describes a request that was rejected before touching the
// database.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func newValidationError(field string, format string, a ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, a...)}
}

// MaxIdentifierLength is the MySQL identifier length limit.
const MaxIdentifierLength = 64

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedKeywords may not be used as table or column names.
var reservedKeywords = map[string]bool{
	"SELECT": true, "INSERT": true, "UPDATE": true, "DELETE": true,
	"DROP": true, "CREATE": true, "ALTER": true, "TRUNCATE": true,
	"UNION": true, "JOIN": true, "WHERE": true, "ORDER": true,
	"GROUP": true, "HAVING": true, "INDEX": true, "TABLE": true,
	"DATABASE": true, "SCHEMA": true, "VIEW": true, "PROCEDURE": true,
	"FUNCTION": true, "TRIGGER": true, "USER": true, "GRANT": true,
	"REVOKE": true, "COMMIT": true, "ROLLBACK": true, "TRANSACTION": true,
	"LOCK": true, "UNLOCK": true,
}

// injectionPatterns are scanned case-insensitively inside string values and
// free-form SQL text.
var injectionPatterns = []string{
	"';", "--", "/*", "*/", "UNION", "SELECT", "INSERT", "UPDATE",
	"DELETE", "DROP", "EXEC", "EXECUTE", "SP_", "XP_",
}

// forbiddenInSelect are statement keywords that must not appear as whole
// words anywhere inside a SELECT, including subqueries.
var forbiddenInSelect = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE",
	"GRANT", "REVOKE", "EXEC", "EXECUTE", "CALL", "SET", "USE",
}

// dangerousSelectPatterns are substring checks applied to SELECT text on top
// of the whole-word keyword scan.
var dangerousSelectPatterns = []string{
	"';", "/*", "*/", "--", "XP_", "SP_", "OPENROWSET", "OPENDATASOURCE",
}

var validOperators = map[string]bool{
	"=": true, "!=": true, ">": true, "<": true, ">=": true, "<=": true,
	"IN": true, "NOT IN": true, "LIKE": true, "NOT LIKE": true,
}

// ValidateIdentifier checks that a name is usable as a SQL identifier:
// non-empty, at most 64 characters, matching [A-Za-z_][A-Za-z0-9_]* and not a
// reserved keyword.
func ValidateIdentifier(field string, name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return newValidationError(field, "identifier cannot be empty")
	}
	if len(trimmed) > MaxIdentifierLength {
		return newValidationError(field, "identifier %q too long (maximum %d characters)", trimmed, MaxIdentifierLength)
	}
	if !identifierPattern.MatchString(trimmed) {
		return newValidationError(field,
			"identifier %q contains invalid characters (only letters, digits and underscores allowed, must not start with a digit)", trimmed)
	}
	if IsReservedKeyword(trimmed) {
		return newValidationError(field, "identifier %q is a reserved SQL keyword", trimmed)
	}
	return nil
}

// ValidateTableName reports an error if the name cannot be used as a table
// name.
func ValidateTableName(name string) error {
	return ValidateIdentifier("table name", name)
}

// ValidateColumnName reports an error if the name cannot be used as a column
// name.
func ValidateColumnName(name string) error {
	return ValidateIdentifier("column name", name)
}

// IsReservedKeyword reports whether the identifier matches a reserved SQL
// keyword, ignoring case.
func IsReservedKeyword(identifier string) bool {
	return reservedKeywords[strings.ToUpper(identifier)]
}

// ValidOperator reports whether op is one of the supported condition
// operators. The comparison ignores case and surrounding whitespace.
func ValidOperator(op string) bool {
	return validOperators[strings.ToUpper(strings.TrimSpace(op))]
}

// NormalizeOperator returns the canonical upper-case spelling of a condition
// operator, or an error when the operator is not supported.
func NormalizeOperator(op string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(op))
	if !validOperators[normalized] {
		return "", newValidationError("operator",
			"invalid operator %q (valid operators: =, !=, >, <, >=, <=, IN, NOT IN, LIKE, NOT LIKE)", op)
	}
	return normalized, nil
}

// EscapeIdentifier wraps an identifier in the given quote character, doubling
// any embedded quote. Callers must validate the identifier first; escaping is
// not a substitute for validation.
func EscapeIdentifier(name string, quote rune) string {
	q := string(quote)
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// ContainsInjectionPattern scans a string value for substrings commonly used
// in SQL injection. It is applied to string values bound into update and
// delete rules and to free-form SELECT text, never to identifiers that
// already passed ValidateIdentifier.
func ContainsInjectionPattern(input string) bool {
	upper := strings.ToUpper(input)
	for _, pattern := range injectionPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}

// ValidateSelectStatement checks that a free-form statement is a plain SELECT:
// it must start with SELECT, must not contain any forbidden statement keyword
// as a whole word (subquery contents are extracted and re-scanned), and must
// not contain known dangerous patterns.
func ValidateSelectStatement(stmt string) error {
	trimmed := strings.TrimSpace(stmt)
	if trimmed == "" {
		return newValidationError("query", "SQL query cannot be empty")
	}

	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") {
		return newValidationError("query", "only SELECT statements are allowed, query must start with SELECT")
	}

	for _, keyword := range forbiddenInSelect {
		if containsWord(upper, keyword) {
			return newValidationError("query",
				"forbidden operation detected: %s, only SELECT queries are allowed", keyword)
		}
	}

	for _, pattern := range dangerousSelectPatterns {
		if strings.Contains(upper, pattern) {
			return newValidationError("query", "potentially dangerous SQL pattern detected: %s", pattern)
		}
	}

	if strings.ContainsRune(upper, '(') {
		inner := extractParenthesized(upper)
		for _, keyword := range forbiddenInSelect {
			if containsWord(inner, keyword) {
				return newValidationError("query", "forbidden operation in subquery: %s", keyword)
			}
		}
	}

	return nil
}

func containsWord(text string, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		if (start == 0 || !isWordChar(text[start-1])) && (end == len(text) || !isWordChar(text[end])) {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// extractParenthesized concatenates the contents of every parenthesized
// region of the statement so that subqueries can be re-scanned.
func extractParenthesized(text string) string {
	var sb strings.Builder
	inParens := false
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(':
			inParens = true
		case ')':
			inParens = false
		default:
			if inParens {
				sb.WriteByte(text[i])
			}
		}
	}
	return sb.String()
}
