package logger

import "strings"

// SanitizedPayload masks a deep-link payload for logging. Redemption
// payloads carry plaintext tokens, so everything after the user id is
// masked; other payloads are already opaque but are still truncated.
func SanitizedPayload(payload string) string {
	if rest, ok := strings.CutPrefix(payload, "verify-"); ok {
		parts := strings.SplitN(rest, "-", 2)
		if len(parts) == 2 {
			return "verify-" + parts[0] + "-***"
		}
		return "verify-***"
	}

	if len(payload) > 12 {
		return payload[:12] + "..."
	}
	return payload
}

// SanitizeQueryString checks if a query string contains sensitive
// parameters and returns true if the whole thing should be redacted
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := []string{
		"token",
		"secret",
		"api_key",
		"apikey",
		"auth",
		"start",
	}

	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
