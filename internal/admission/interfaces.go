package admission

// Extractor pulls raw hyperlinks and visible text out of a page body.
type Extractor interface {
	// ExtractLinks returns raw href values, not yet normalized.
	ExtractLinks(body []byte, baseURL string) ([]string, error)
	// ExtractText returns the visible text with markup removed.
	ExtractText(body []byte) (string, error)
}

// StatsSink receives statistics events for admitted pages.
// Implementations must be safe for concurrent use.
type StatsSink interface {
	UniquePageSeen(url string)
	WordCountSample(url string, count int)
	WordTokens(tokens []string)
	SubdomainHit(authority string)
}

// FingerprintIndex stores recorded fingerprints and answers similarity queries.
// Implementations need not be safe for concurrent use; Service serializes access.
type FingerprintIndex interface {
	// Near reports whether any recorded fingerprint has similarity >= threshold with fp.
	Near(fp Fingerprint, threshold float64) bool
	Add(fp Fingerprint)
	Len() int
}

type discardSink struct{}

func (discardSink) UniquePageSeen(string) {}
func (discardSink) WordCountSample(string, int) {}
func (discardSink) WordTokens([]string) {}
func (discardSink) SubdomainHit(string) {}
