package crawler

import (
	"context"
	"time"

	"github.com/masahif/scopecrawl/internal/admission"
)

// Crawler defines the main crawling interface
type Crawler interface {
	Start(ctx context.Context, seedURLs []string) error
	Stop() error
	GetStats() CrawlStats
}

// Admitter decides which fetched pages feed the frontier.
// *admission.Service implements it.
type Admitter interface {
	Admit(res admission.FetchResult) admission.Decision
	Counters() admission.Counters
	Scope() *admission.ScopeFilter
}

// Fetcher retrieves a page for admission
type Fetcher interface {
	Fetch(ctx context.Context, url string) admission.FetchResult
}

// PageProcessor handles individual page processing
type PageProcessor interface {
	Process(ctx context.Context, url string) *PageResult
}

// Storage handles data persistence
type Storage interface {
	// Queue management (using pages table)
	AddToQueue(urls []string) error
	GetNextFromQueue() (*URLItem, error)

	// Page results (updates existing queued entry)
	SaveAdmission(id int, page *PageRecord) error
	SavePageError(id int, errorType, errorMessage string) error

	// Links and robots.txt records (separate tables)
	SaveLinks(links []*LinkData) error
	SaveRobots(record *RobotsRecord) error

	// Queue status
	GetQueueStatus() (QueueStatus, error)
	HasQueuedItems() (bool, error) // Check if queue has any work items (queued or processing)

	// Crawl metadata
	SetMeta(key, value string) error

	// Reset drops all pages, links and robots records from a previous run
	Reset() error

	// Database lifecycle
	Close() error
}

// CrawlStats represents crawling statistics
type CrawlStats struct {
	PagesProcessed int
	PagesAdmitted  int
	ErrorCount     int
	StartTime      time.Time
	Duration       time.Duration
}

// PageResult represents the result of processing a single page
type PageResult struct {
	Record     *PageRecord
	Decision   admission.Decision
	Links      []*LinkData
	FetchError string // Set when the request itself failed
}
