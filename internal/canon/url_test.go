package canon

import "testing"

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "fragment stripping",
			input:    "https://example.com/page#section",
			expected: "https://example.com/page",
			wantErr:  false,
		},
		{
			name:     "trailing slash stripping",
			input:    "https://example.com/about/",
			expected: "https://example.com/about",
			wantErr:  false,
		},
		{
			name:     "root path keeps slash",
			input:    "https://example.com/",
			expected: "https://example.com/",
			wantErr:  false,
		},
		{
			name:     "bare host gains root path",
			input:    "https://example.com",
			expected: "https://example.com/",
			wantErr:  false,
		},
		{
			name:     "http upgraded to https",
			input:    "http://example.com/about",
			expected: "https://example.com/about",
			wantErr:  false,
		},
		{
			name:     "scheme-less host defaults to https",
			input:    "example.com/about",
			expected: "https://example.com/about",
			wantErr:  false,
		},
		{
			name:     "host lowercased",
			input:    "HTTPS://Example.Com/Page",
			expected: "https://example.com/Page",
			wantErr:  false,
		},
		{
			name:     "tracking params stripped, others kept",
			input:    "https://example.com/p?utm_source=fb&id=42",
			expected: "https://example.com/p?id=42",
			wantErr:  false,
		},
		{
			name:     "empty string returns error",
			input:    "",
			wantErr:  true,
		},
		{
			name:    "host-less URL returns error",
			input:   "https:///path",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalizeURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CanonicalizeURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.expected {
				t.Errorf("CanonicalizeURL() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCanonicalizeURLIdempotent(t *testing.T) {
	inputs := []string{
		"https://Example.com/About/",
		"http://WWW.Site.org/x?utm_campaign=spring&b=1",
		"example.org",
		"https://example.com/page#frag",
	}
	for _, in := range inputs {
		once, err := CanonicalizeURL(in)
		if err != nil {
			t.Fatalf("CanonicalizeURL(%q) unexpected error: %v", in, err)
		}
		twice, err := CanonicalizeURL(once)
		if err != nil {
			t.Fatalf("CanonicalizeURL(%q) unexpected error on second pass: %v", once, err)
		}
		if once != twice {
			t.Errorf("not idempotent: CanonicalizeURL(%q) = %q, CanonicalizeURL(that) = %q", in, once, twice)
		}
	}
}
