package logger

import "testing"

func TestSanitizedPayload(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"redemption payload", "verify-42-supersecrettoken", "verify-42-***"},
		{"redemption payload with dashed token", "verify-42-abc-def", "verify-42-***"},
		{"truncated redemption payload", "verify-42", "verify-***"},
		{"short opaque payload", "Z2V0LTEyMw", "Z2V0LTEyMw"},
		{"long opaque payload", "Z2V0LTEyMzQ1Njc4OTAxMjM0NTY", "Z2V0LTEyMzQ1..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizedPayload(tt.input); got != tt.want {
				t.Errorf("SanitizedPayload(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeQueryString(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"start=verify-42-abc", true},
		{"token=abc", true},
		{"page=2&limit=10", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := SanitizeQueryString(tt.query); got != tt.want {
			t.Errorf("SanitizeQueryString(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}
