package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength caps how much of a generated SQL query is logged.
	MaxQueryLogLength = 200
	// RedactedText replaces sensitive data in log output.
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx in key/value connection strings
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// api keys passed as key=value
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`)

	// user:pass@host in URL-style DSNs
	dsnCredsPattern = regexp.MustCompile(`://[^:]+:[^@]+@[^/\s]+`)
)

// SanitizeDSN removes credentials from a catalog connection string
// before it is logged.
func SanitizeDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(dsn, "${1}="+RedactedText)
	return dsnCredsPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
}

// SanitizeQuery truncates a SQL query for logging and scrubs
// anything that looks like a credential.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}
	sanitized := query
	if len(sanitized) > MaxQueryLogLength {
		sanitized = sanitized[:MaxQueryLogLength] + "..."
	}
	sanitized = passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	return apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
}
