// Package sql validates model-generated SQL before it touches the catalog.
package sql

import (
	"errors"
	"strings"
)

var (
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
)

// ValidationResult contains the normalized SQL and any validation errors.
type ValidationResult struct {
	NormalizedSQL string
	Error         error
}

// ValidateAndNormalize checks SQL for multiple statements and strips the trailing semicolon.
//
// The validation order is:
// 1. Strip trailing semicolon and whitespace (normalize)
// 2. Check for multiple statements (any remaining semicolons outside string literals)
func ValidateAndNormalize(sqlQuery string) ValidationResult {
	sqlQuery = strings.TrimSpace(sqlQuery)

	if sqlQuery == "" {
		return ValidationResult{NormalizedSQL: sqlQuery}
	}

	normalized := stripTrailingSemicolon(sqlQuery)

	// Any semicolon remaining after normalization means a second statement.
	if hasSemicolonOutsideStrings(normalized) {
		return ValidationResult{Error: ErrMultipleStatements}
	}

	return ValidationResult{NormalizedSQL: normalized}
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlQuery {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// Handle both backslash escape (\') and SQL standard escape ('').
			// A doubled quote exits and immediately re-enters on the next
			// quote, which correctly keeps us inside the string.
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}

// stripTrailingSemicolon removes a trailing semicolon and any whitespace around it.
func stripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")

	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimSuffix(sqlQuery, ";")
		sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	}

	return sqlQuery
}
