// Package sqlguard provides defense-in-depth validation for generated SQL.
//
// The checks are deliberately lightweight pattern matching, not a SQL parser:
// the generation capability is already instructed to emit SELECT-only
// statements, and this package is the enforcement backstop. Keyword detection
// uses raw substring search, so an identifier like "update_count" trips the
// UPDATE check. That over-approximation is accepted; a rejected query is
// surfaced to the user with the itemized errors, never silently dropped.
package sqlguard

import (
	"fmt"
	"strings"
)

// deniedKeywords are statement types that must never reach the warehouse.
var deniedKeywords = []string{
	"DROP", "DELETE", "INSERT", "UPDATE", "ALTER",
	"TRUNCATE", "CREATE", "GRANT", "REVOKE",
}

// Result is the outcome of validating a single statement.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Validate scans a SQL statement for unsafe constructs. It is a pure function
// and must be called on every statement before execution or cost estimation
// is trusted.
func Validate(sql string) Result {
	errs := []string{}
	upper := strings.ToUpper(sql)

	for _, kw := range deniedKeywords {
		if strings.Contains(upper, kw) {
			errs = append(errs, fmt.Sprintf("Dangerous keyword detected: %s", kw))
		}
	}

	if !strings.HasPrefix(strings.TrimSpace(upper), "SELECT") {
		errs = append(errs, "Only SELECT statements are allowed")
	}

	if !strings.Contains(upper, "LIMIT") {
		errs = append(errs, "Query should include LIMIT clause")
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

// HasLimit reports whether the statement already carries a LIMIT clause.
// Shared with the pipeline's LIMIT-injection step so both use the same
// (substring) notion of "has a LIMIT".
func HasLimit(sql string) bool {
	return strings.Contains(strings.ToUpper(sql), "LIMIT")
}

// EnsureLimit appends a default LIMIT clause when the statement has none.
// The clause is inserted immediately before a trailing semicolon if present,
// otherwise appended at the end.
func EnsureLimit(sql string, limit int) string {
	if HasLimit(sql) {
		return sql
	}
	trimmed := strings.TrimRight(sql, " \t\r\n")
	if strings.HasSuffix(trimmed, ";") {
		return fmt.Sprintf("%s LIMIT %d;", strings.TrimRight(trimmed[:len(trimmed)-1], " \t\r\n"), limit)
	}
	return fmt.Sprintf("%s LIMIT %d;", trimmed, limit)
}
