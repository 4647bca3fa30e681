package pgclient

import "strings"

// QuoteIdentifier safely quotes a PostgreSQL identifier (database, role name)
// by wrapping in double-quotes and doubling any internal double-quotes.
// Handles reserved words, mixed case and hyphens.
//
//	QuoteIdentifier(`my"db`) → `"my""db"`
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// EscapeLiteral safely escapes a PostgreSQL string literal value by doubling
// single-quotes. The result should be placed inside single-quotes in a query.
//
//	"SELECT 1 FROM pg_database WHERE datname='" + EscapeLiteral(name) + "'"
func EscapeLiteral(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}
