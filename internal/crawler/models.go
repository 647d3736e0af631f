package crawler

import "time"

// Page lifecycle states in the frontier
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusAdmitted   = "admitted"
	StatusRejected   = "rejected"
	StatusError      = "error"
)

// URLItem represents an item in the crawl queue
type URLItem struct {
	ID  int    // Queue item ID for tracking
	URL string // URL to be processed
}

// PageRecord is the stored outcome of fetching and admitting one page
type PageRecord struct {
	URL         string    // Queued URL
	FinalURL    string    // URL after redirects
	StatusCode  int       // HTTP status code (0 when the request failed)
	Admitted    bool      // Whether the page passed admission
	Reason      string    // Rejection reason, empty when admitted
	Title       string    // HTML <title> of admitted pages
	WordCount   int       // Tokens in the visible text
	Checksum    string    // Content checksum, hex
	Fingerprint string    // Simhash fingerprint, hex
	LinkCount   int       // Links forwarded to the frontier
	CrawledAt   time.Time // Timestamp when crawled (UTC)
}

// LinkData represents a link forwarded from an admitted page
type LinkData struct {
	SourceURL string    // URL of the page containing the link
	TargetURL string    // Normalized, in-scope target
	CrawledAt time.Time // Timestamp when link was discovered
}

// RobotsRecord is the result of fetching /robots.txt for one host
type RobotsRecord struct {
	Host       string    // Authority the file belongs to
	URL        string    // robots.txt URL
	StatusCode int       // HTTP status code (0 when the request failed)
	Sitemaps   []string  // Sitemap URLs declared in the file
	Error      string    // Fetch or parse error
	FetchedAt  time.Time // Timestamp when fetched (UTC)
}

// QueueStatus counts frontier entries by state
type QueueStatus struct {
	Queued     int
	Processing int
	Admitted   int
	Rejected   int
	Errors     int
}

// Pending reports entries that are queued or in flight.
func (q QueueStatus) Pending() int {
	return q.Queued + q.Processing
}
