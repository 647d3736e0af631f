package admission

import (
	"errors"
	"net/url"
	"testing"
)

func mustOrigin(t *testing.T, raw string) *url.URL {
	t.Helper()
	base, err := Origin(raw)
	if err != nil {
		t.Fatalf("Origin(%q) failed: %v", raw, err)
	}
	return base
}

func TestNormalize(t *testing.T) {
	base := mustOrigin(t, "http://www.ics.uci.edu/dept/index.html")

	tests := []struct {
		name     string
		raw      string
		base     *url.URL
		expected string
	}{
		{
			name:     "Strips fragment keeps query",
			raw:      "http://a.edu/p?q=1#frag",
			expected: "http://a.edu/p?q=1",
		},
		{
			name:     "No fragment unchanged",
			raw:      "http://a.edu/p?q=1",
			expected: "http://a.edu/p?q=1",
		},
		{
			name:     "Fragment only",
			raw:      "https://a.edu/#top",
			expected: "https://a.edu/",
		},
		{
			name:     "Absolute path resolved against origin",
			raw:      "/about/contact.php#map",
			base:     base,
			expected: "http://www.ics.uci.edu/about/contact.php",
		},
		{
			name:     "Relative path resolved against origin",
			raw:      "people.html",
			base:     base,
			expected: "http://www.ics.uci.edu/people.html",
		},
		{
			name:     "Absolute link ignores base",
			raw:      "https://www.cs.uci.edu/x?y=2",
			base:     base,
			expected: "https://www.cs.uci.edu/x?y=2",
		},
		{
			name:     "Surrounding whitespace trimmed",
			raw:      "  http://a.edu/p  ",
			expected: "http://a.edu/p",
		},
		{
			name:     "Port kept in authority",
			raw:      "http://a.edu:8080/p#x",
			expected: "http://a.edu:8080/p",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw, tt.base)
			if err != nil {
				t.Fatalf("Normalize(%q) returned error: %v", tt.raw, err)
			}
			if got != tt.expected {
				t.Errorf("Normalize(%q) = %q, expected %q", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"http://a.edu/p?q=1#frag",
		"https://www.ics.uci.edu/~user/page.html?x=1&y=2#s",
		"http://a.edu/p?",
		"http://a.edu/path%20with%20space",
		"http://a.edu",
		"HTTP://A.edu/Mixed#Case",
	}

	for _, in := range inputs {
		once, err := Normalize(in, nil)
		if err != nil {
			t.Fatalf("Normalize(%q) failed: %v", in, err)
		}
		twice, err := Normalize(once, nil)
		if err != nil {
			t.Fatalf("Normalize(%q) failed: %v", once, err)
		}
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeMalformed(t *testing.T) {
	inputs := []string{
		"",
		"http://[::1",
		"%zz",
		"/relative/without/base",
		"mailto:someone@uci.edu",
		"javascript:void(0)",
	}

	for _, in := range inputs {
		_, err := Normalize(in, nil)
		if err == nil {
			t.Errorf("Expected error for %q", in)
			continue
		}
		if !errors.Is(err, ErrMalformedURL) {
			t.Errorf("Expected ErrMalformedURL for %q, got %v", in, err)
		}
	}
}

func TestOriginAndAuthority(t *testing.T) {
	origin := mustOrigin(t, "https://Vision.ICS.uci.edu:8443/a/b?c=d#e")
	if got := origin.String(); got != "https://Vision.ICS.uci.edu:8443" {
		t.Errorf("Expected origin 'https://Vision.ICS.uci.edu:8443', got %s", got)
	}

	authority, err := Authority("https://Vision.ICS.uci.edu:8443/a")
	if err != nil {
		t.Fatalf("Authority failed: %v", err)
	}
	if authority != "vision.ics.uci.edu:8443" {
		t.Errorf("Expected authority 'vision.ics.uci.edu:8443', got %s", authority)
	}

	if _, err := Origin("not a url"); !errors.Is(err, ErrMalformedURL) {
		t.Errorf("Expected ErrMalformedURL for origin without scheme, got %v", err)
	}
}
