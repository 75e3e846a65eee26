package notify

import "strings"

// MaxMessageLength caps the announcement message derived from an alert body.
// Longer bodies are truncated with an ellipsis; the full text stays on the
// cached alert.
const MaxMessageLength = 280

// formatMessage derives the announcement message from an alert body:
// collapse newlines to spaces and truncate to MaxMessageLength.
func formatMessage(body string) string {
	message := strings.Join(strings.Fields(body), " ")
	return truncate(message, MaxMessageLength)
}

// truncate shortens s to at most maxLen characters, appending "..." when
// anything was cut.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
