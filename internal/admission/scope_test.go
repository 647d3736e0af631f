package admission

import "testing"

func TestScopeFilterInScope(t *testing.T) {
	filter := NewScopeFilter(DefaultScopeConfig())

	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{"Allowed subdomain page", "http://x.ics.uci.edu/page", true},
		{"Image extension", "http://x.ics.uci.edu/img.png", false},
		{"Foreign domain", "https://evil.com/x", false},
		{"Blocked host", "http://wiki.ics.uci.edu/x", false},
		{"Blocked host uppercase", "http://WIKI.ICS.UCI.EDU/x", false},
		{"Sub-subdomain", "https://a.b.cs.uci.edu/dir/", true},
		{"Informatics", "https://www.informatics.uci.edu/research", true},
		{"Stat", "http://www.stat.uci.edu/?page_id=1", true},
		{"Uppercase authority", "http://WWW.ICS.UCI.EDU/", true},
		{"Uppercase extension", "http://x.ics.uci.edu/Paper.PDF", false},
		{"Double extension", "http://x.ics.uci.edu/src.tar.gz", false},
		{"Html extension", "http://x.ics.uci.edu/index.html", true},
		{"Php extension", "http://x.ics.uci.edu/index.php?id=3", true},
		{"No extension", "http://x.ics.uci.edu/about", true},
		{"Extension only in query", "http://x.ics.uci.edu/view?file=a.pdf", true},
		{"Extension in directory", "http://x.ics.uci.edu/v1.zip/readme", true},
		{"Ftp scheme", "ftp://x.ics.uci.edu/file", false},
		{"Mailto", "mailto:someone@ics.uci.edu", false},
		{"Malformed", "http://[::1", false},
		{"Empty", "", false},
		{"Domain in path only", "http://evil.com/.ics.uci.edu/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filter.InScope(tt.url); got != tt.expected {
				t.Errorf("InScope(%q) = %v, expected %v", tt.url, got, tt.expected)
			}
		})
	}
}

func TestScopeFilterCustomConfig(t *testing.T) {
	filter := NewScopeFilter(ScopeConfig{
		AllowedDomains:     []string{"  Example.ORG "},
		BlockedHosts:       []string{"trap.example.org"},
		ExcludedExtensions: []string{".XML", "json"},
	})

	tests := []struct {
		url      string
		expected bool
	}{
		{"https://www.example.org/page", true},
		{"https://trap.example.org/page", false},
		{"https://www.example.org/feed.xml", false},
		{"https://www.example.org/data.JSON", false},
		{"https://www.example.org/image.png", true},
		{"https://www.ics.uci.edu/", false},
	}

	for _, tt := range tests {
		if got := filter.InScope(tt.url); got != tt.expected {
			t.Errorf("InScope(%q) = %v, expected %v", tt.url, got, tt.expected)
		}
	}
}

func TestScopeFilterStableOnNormalizedOutput(t *testing.T) {
	filter := NewScopeFilter(DefaultScopeConfig())
	inputs := []string{
		"http://x.ics.uci.edu/page#section",
		"https://www.cs.uci.edu/a/b?c=d#e",
		"http://x.ics.uci.edu/slides.pptx#p2",
	}

	for _, in := range inputs {
		normalized, err := Normalize(in, nil)
		if err != nil {
			t.Fatalf("Normalize(%q) failed: %v", in, err)
		}
		first := filter.InScope(normalized)
		renormalized, err := Normalize(normalized, nil)
		if err != nil {
			t.Fatalf("Normalize(%q) failed: %v", normalized, err)
		}
		if renormalized != normalized {
			t.Errorf("Normalized URL changed on second pass: %q -> %q", normalized, renormalized)
		}
		if second := filter.InScope(renormalized); second != first {
			t.Errorf("InScope unstable for %q: %v then %v", normalized, first, second)
		}
	}
}
