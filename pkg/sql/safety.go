package sql

import (
	"fmt"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/brewline-ai/brewline-engine/pkg/apperrors"
)

// Tier records how a query passed safety validation.
type Tier string

const (
	// TierStrict means the query parsed cleanly as a SELECT.
	TierStrict Tier = "strict"
	// TierLenient means the parser rejected the query but it carries
	// syntax the parser is known to choke on (bracket quoting, LIKE
	// patterns, aliases, joins) while the keyword checks all passed.
	TierLenient Tier = "lenient"
)

// SafetyResult is the outcome of the read-only safety check.
type SafetyResult struct {
	Safe       bool
	Normalized string // Normalized query, set when Safe
	Tier       Tier   // How the query passed, set when Safe
	Reason     string // Why the query was rejected, set when !Safe
}

// Err renders a rejection as an error wrapping apperrors.ErrUnsafeSQL
// so callers can match with errors.Is. Safe results return nil.
func (r SafetyResult) Err() error {
	if r.Safe {
		return nil
	}
	return fmt.Errorf("%w: %s", apperrors.ErrUnsafeSQL, r.Reason)
}

// dangerousKeywords reject a query on plain substring match against the
// uppercased text. Deliberately blunt: a read-only assistant has no
// business producing these words anywhere, even in identifiers.
var dangerousKeywords = []string{
	"DROP",
	"DELETE",
	"UPDATE",
	"INSERT",
	"ALTER",
	"TRUNCATE",
}

// CheckReadOnly validates that a model-generated query is a single safe
// SELECT statement. The checks run cheapest-first:
//
//  1. normalize and reject multiple statements
//  2. reject empty input
//  3. reject dangerous keywords anywhere in the text
//  4. require a SELECT prefix
//  5. scan string literal contents with libinjection
//  6. parse; on parser failure, fall back to lenient syntax markers
func CheckReadOnly(sqlQuery string) SafetyResult {
	res := ValidateAndNormalize(sqlQuery)
	if res.Error != nil {
		return SafetyResult{Reason: res.Error.Error()}
	}

	normalized := res.NormalizedSQL
	if normalized == "" {
		return SafetyResult{Reason: "empty query"}
	}

	upper := strings.ToUpper(normalized)

	for _, keyword := range dangerousKeywords {
		if strings.Contains(upper, keyword) {
			return SafetyResult{Reason: "dangerous keyword " + keyword}
		}
	}

	if !strings.HasPrefix(upper, "SELECT") {
		return SafetyResult{Reason: "only SELECT statements are allowed"}
	}

	if hit := CheckStringLiterals(normalized); hit != nil {
		return SafetyResult{Reason: "injection pattern in string literal (fingerprint " + hit.Fingerprint + ")"}
	}

	if _, err := sqlparser.Parse(normalized); err != nil {
		if hasLenientSyntax(normalized, upper) {
			return SafetyResult{Safe: true, Normalized: normalized, Tier: TierLenient}
		}
		return SafetyResult{Reason: "unparseable query: " + err.Error()}
	}

	return SafetyResult{Safe: true, Normalized: normalized, Tier: TierStrict}
}

// hasLenientSyntax reports whether a parse failure is plausibly the
// parser's fault rather than the query's. Models emit dialect syntax
// (bracket identifiers, odd LIKE patterns) that is fine for the catalog
// but outside the parser's grammar.
func hasLenientSyntax(normalized, upper string) bool {
	if strings.Contains(upper, "LIKE") && strings.Contains(normalized, "%") {
		return true
	}
	if strings.Contains(normalized, "[") || strings.Contains(normalized, "]") {
		return true
	}
	if strings.Contains(normalized, "`") {
		return true
	}
	if strings.Contains(upper, " AS ") {
		return true
	}
	if strings.Contains(upper, "JOIN") {
		return true
	}
	return false
}
