package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength caps how much of a SQL statement ends up in logs.
	MaxQueryLogLength = 120
	// RedactedText replaces any credential material before logging.
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx inside keyword/value connection strings
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// user:pass@host inside URL-style connection strings
	credURLPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)

	// "password":"x" / "secret":"y" inside a descriptor JSON payload
	descriptorSecretPattern = regexp.MustCompile(`(?i)"(password|secret)"\s*:\s*"[^"]*"`)
)

// SanitizeConnectionString removes credential material from a keyword/value or
// URL-style connection string before it is logged.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	return credURLPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
}

// SanitizeDescriptor removes secret fields from a raw tenant descriptor
// payload so a malformed payload can still be logged for diagnosis.
func SanitizeDescriptor(payload string) string {
	if payload == "" {
		return ""
	}
	return descriptorSecretPattern.ReplaceAllString(payload, `"${1}":"`+RedactedText+`"`)
}

// SanitizeError sanitizes error strings that may echo connection details back
// from the database driver. Use this before logging any datasource error.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = credURLPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	return descriptorSecretPattern.ReplaceAllString(sanitized, `"${1}":"`+RedactedText+`"`)
}

// SanitizeQuery truncates and scrubs a SQL statement for logging.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}
	sanitized := query
	if len(sanitized) > MaxQueryLogLength {
		sanitized = sanitized[:MaxQueryLogLength] + "..."
	}
	return passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
}
