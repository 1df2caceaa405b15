package authkit

import "testing"

func TestClassifyIdentifier(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		kind identifierKind
	}{
		{"ada@example.com", "ada@example.com", identifierEmail},
		{"  Ada@Example.COM  ", "ada@example.com", identifierEmail},
		{"+15550100123", "+15550100123", identifierMobile},
		{"", "", identifierInvalid},
		{"   ", "", identifierInvalid},
		{"not-an-identifier", "", identifierInvalid},
		{"555-0100", "", identifierInvalid},
		{"@example.com", "", identifierInvalid},
	}

	for _, tt := range tests {
		got, kind := classifyIdentifier(tt.raw)
		if got != tt.want || kind != tt.kind {
			t.Errorf("classifyIdentifier(%q) = (%q, %d), want (%q, %d)",
				tt.raw, got, kind, tt.want, tt.kind)
		}
	}
}
