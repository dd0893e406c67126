package db

import (
	"github.com/altheris/mysql-data-apis/security"
)

// Dialect isolates the SQL details that differ between engines: identifier
// quoting and the placeholder style.
type Dialect interface {
	QuoteIdentifier(name string) string
	Placeholder() string
}

// MySQLDialect quotes identifiers with backticks and binds with "?".
type MySQLDialect struct{}

func (MySQLDialect) QuoteIdentifier(name string) string {
	return security.EscapeIdentifier(name, '`')
}

func (MySQLDialect) Placeholder() string {
	return "?"
}
