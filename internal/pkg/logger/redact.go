// Package logger holds small logging helpers shared across the service.
//
// Signup emails are PII; every log line that mentions one goes through
// RedactEmail so that server logs can be shipped to third-party aggregators
// without scrubbing.
package logger

import "strings"

// RedactEmail masks the local part of an address for safe logging, keeping
// just enough to correlate log lines: "john.doe@example.com" becomes
// "jo***@example.com". Local parts of two characters or fewer are masked
// entirely, and anything that does not look like an address at all becomes
// "***@***".
func RedactEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "***@***"
	}
	local, host := email[:at], email[at+1:]
	if len(local) <= 2 {
		return "***@" + host
	}
	return local[:2] + "***@" + host
}
