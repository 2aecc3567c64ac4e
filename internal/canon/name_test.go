package canon

import "testing"

func TestCleanName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"collapses internal whitespace", "Acme   Plumbing   Co", "Acme Plumbing Co"},
		{"trims surrounding whitespace", "  Acme Plumbing  ", "Acme Plumbing"},
		{"rejects bare suffix", "LLC", ""},
		{"rejects bare suffix with punctuation", "Inc.", ""},
		{"rejects single character", "A", ""},
		{"keeps real short name", "AB Plumbing", "AB Plumbing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanName(tt.input); got != tt.want {
				t.Errorf("CleanName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
