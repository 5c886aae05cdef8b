package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult contains the result of an injection check on a
// string literal found in a query.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Literal     string // The literal content that failed the check
}

// CheckStringLiterals extracts the contents of single-quoted string
// literals from a query and runs each through libinjection. The query
// structure itself is checked separately by the parser; this catches
// payloads smuggled inside literal values, e.g.
//
//	SELECT * FROM Product WHERE Name_Product = ''; DROP TABLE x --'
//
// Returns nil if every literal is clean.
func CheckStringLiterals(sqlQuery string) *InjectionCheckResult {
	for _, literal := range extractStringLiterals(sqlQuery) {
		if literal == "" {
			continue
		}
		isSQLi, fingerprint := libinjection.IsSQLi(literal)
		if isSQLi {
			return &InjectionCheckResult{
				IsSQLi:      true,
				Fingerprint: string(fingerprint),
				Literal:     literal,
			}
		}
	}
	return nil
}

// extractStringLiterals returns the contents of each single-quoted
// literal, with SQL standard doubled quotes ('') collapsed.
func extractStringLiterals(sqlQuery string) []string {
	var literals []string
	var current []rune
	inString := false

	runes := []rune(sqlQuery)
	for i := 0; i < len(runes); i++ {
		c := runes[i]

		if !inString {
			if c == '\'' {
				inString = true
				current = current[:0]
			}
			continue
		}

		if c == '\'' {
			// Doubled quote is an escaped quote inside the literal.
			if i+1 < len(runes) && runes[i+1] == '\'' {
				current = append(current, '\'')
				i++
				continue
			}
			literals = append(literals, string(current))
			inString = false
			continue
		}

		current = append(current, c)
	}

	return literals
}
