// Package crawler provides the crawl driver: a pool of workers pulling URLs
// from a SQLite-backed frontier, fetching them, and forwarding pages through
// admission before queueing their links.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/masahif/scopecrawl/internal/admission"
	"github.com/masahif/scopecrawl/internal/config"
)

// Crawl metadata keys stored in crawl_meta
const (
	MetaCrawlID   = "crawl_id"
	MetaStartedAt = "started_at"
	MetaSeeds     = "seed_count"
)

// idlePoll is how long a worker waits when the queue is momentarily empty
// while other workers are still processing.
const idlePoll = 50 * time.Millisecond

// statsInterval is the period of the progress log line
const statsInterval = 10 * time.Second

// ErrNoSeeds is returned when no seed URL survives normalization and scope checks
var ErrNoSeeds = errors.New("no seed URL is in scope")

// DefaultCrawler implements the Crawler interface
type DefaultCrawler struct {
	config     *config.CrawlConfig
	storage    Storage
	httpClient *HTTPClient
	processor  PageProcessor
	robots     *RobotsFetcher
	admitter   Admitter
	crawlID    string

	// State
	stats      CrawlStats
	statsMutex sync.RWMutex
	cancelMu   sync.Mutex
	cancel     context.CancelFunc
}

var _ Crawler = (*DefaultCrawler)(nil)

// NewCrawler creates a new crawler instance. The admitter owns all dedup
// state for the crawl; titles may be nil.
func NewCrawler(cfg *config.CrawlConfig, storage Storage, admitter Admitter, titles TitleExtractor) (*DefaultCrawler, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if admitter == nil {
		return nil, fmt.Errorf("admitter is required")
	}

	httpClient := NewHTTPClient(cfg.UserAgent, cfg.RequestTimeout, cfg.MaxBodyBytes)

	var robots *RobotsFetcher
	if cfg.FetchRobots {
		robots = NewRobotsFetcher(httpClient, storage)
	}

	return &DefaultCrawler{
		config:     cfg,
		storage:    storage,
		httpClient: httpClient,
		processor:  NewPageProcessor(httpClient, admitter, titles),
		robots:     robots,
		admitter:   admitter,
		crawlID:    uuid.NewString(),
	}, nil
}

// CrawlID returns the identifier recorded for this crawl.
func (c *DefaultCrawler) CrawlID() string {
	return c.crawlID
}

// Start runs a crawl from seedURLs and blocks until the frontier is drained,
// the admitted-page limit is reached, or ctx is cancelled.
// Startup process:
// 1. Reset storage and record crawl metadata
// 2. Normalize and scope-check seeds, add them to the queue
// 3. Start the configured number of workers
func (c *DefaultCrawler) Start(ctx context.Context, seedURLs []string) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelMu.Lock()
	c.cancel = cancel
	c.cancelMu.Unlock()
	defer cancel()

	c.statsMutex.Lock()
	c.stats = CrawlStats{StartTime: time.Now()}
	c.statsMutex.Unlock()

	if err := c.storage.Reset(); err != nil {
		return fmt.Errorf("failed to reset storage: %w", err)
	}

	seeds := c.admitSeeds(seedURLs)
	if len(seeds) == 0 {
		return ErrNoSeeds
	}

	if err := c.recordMeta(len(seeds)); err != nil {
		return err
	}

	if err := c.storage.AddToQueue(seeds); err != nil {
		return fmt.Errorf("failed to add seed URLs to queue: %w", err)
	}
	slog.Info("Starting crawler", "crawl_id", c.crawlID, "seed_urls", len(seeds), "workers", c.config.Concurrency)

	reporterCtx, stopReporter := context.WithCancel(ctx)
	reporterDone := make(chan struct{})
	go func() {
		defer close(reporterDone)
		c.statsReporter(reporterCtx)
	}()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.config.Concurrency; i++ {
		id := i
		g.Go(func() error {
			return c.worker(gctx, id)
		})
	}
	err := g.Wait()

	stopReporter()
	<-reporterDone

	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		slog.Info("Crawling cancelled", "crawl_id", c.crawlID)
	} else {
		slog.Info("Crawling completed", "crawl_id", c.crawlID)
	}
	c.logStats()
	return nil
}

// Stop stops the crawling process
func (c *DefaultCrawler) Stop() error {
	c.cancelMu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancelMu.Unlock()
	c.httpClient.Close()
	return nil
}

// GetStats returns current crawling statistics
func (c *DefaultCrawler) GetStats() CrawlStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()

	stats := c.stats
	stats.Duration = time.Since(stats.StartTime)
	return stats
}

// admitSeeds normalizes seeds and drops those outside the crawl scope.
func (c *DefaultCrawler) admitSeeds(seedURLs []string) []string {
	scope := c.admitter.Scope()
	seen := make(map[string]struct{}, len(seedURLs))
	seeds := make([]string, 0, len(seedURLs))

	for _, raw := range seedURLs {
		normalized, err := admission.Normalize(raw, nil)
		if err != nil {
			slog.Warn("Skipping malformed seed URL", "url", raw, "error", err)
			continue
		}
		if !scope.InScope(normalized) {
			slog.Warn("Skipping out-of-scope seed URL", "url", normalized)
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		seeds = append(seeds, normalized)
	}
	return seeds
}

func (c *DefaultCrawler) recordMeta(seedCount int) error {
	meta := map[string]string{
		MetaCrawlID:   c.crawlID,
		MetaStartedAt: c.stats.StartTime.UTC().Format(time.RFC3339),
		MetaSeeds:     fmt.Sprintf("%d", seedCount),
	}
	for key, value := range meta {
		if err := c.storage.SetMeta(key, value); err != nil {
			return fmt.Errorf("failed to record crawl metadata: %w", err)
		}
	}
	return nil
}

// worker processes URLs from the queue
// Termination conditions:
// 1. Context cancelled (graceful shutdown)
// 2. Reached configured limit of admitted pages
// 3. Nothing queued and nothing in flight
func (c *DefaultCrawler) worker(ctx context.Context, id int) error {
	slog.Debug("Worker started", "worker_id", id)
	defer slog.Debug("Worker stopped", "worker_id", id)

	for {
		if ctx.Err() != nil {
			return nil
		}
		if c.limitReached() {
			slog.Info("Worker reached limit", "worker_id", id)
			return nil
		}

		item, err := c.storage.GetNextFromQueue()
		if err != nil {
			return fmt.Errorf("worker %d: %w", id, err)
		}

		if item == nil {
			pending, err := c.storage.HasQueuedItems()
			if err != nil {
				return fmt.Errorf("worker %d: %w", id, err)
			}
			if !pending {
				slog.Debug("Worker no more items in queue, exiting", "worker_id", id)
				return nil
			}
			if !sleepCtx(ctx, idlePoll) {
				return nil
			}
			continue
		}

		if err := c.processURLItem(ctx, id, item); err != nil {
			return fmt.Errorf("worker %d: %w", id, err)
		}
	}
}

// processURLItem processes a single URL item from the queue
// processURLItem fetches and admits one frontier entry. It fails only when the
// entry's outcome cannot be stored, since the entry would stay 'processing'.
func (c *DefaultCrawler) processURLItem(ctx context.Context, id int, item *URLItem) error {
	if c.robots != nil {
		c.robots.Visit(ctx, item.URL)
	}

	result := c.processor.Process(ctx, item.URL)
	if result == nil {
		return nil
	}

	// Links go into the frontier before this page leaves 'processing' so that
	// idle workers never observe an empty frontier mid-expansion.
	if len(result.Links) > 0 {
		if err := c.storage.AddToQueue(result.URLs()); err != nil {
			slog.Error("Worker failed to add URLs to queue", "worker_id", id, "error", err)
		}
		if err := c.storage.SaveLinks(result.Links); err != nil {
			slog.Error("Worker failed to save links", "worker_id", id, "url", item.URL, "error", err)
		}
	}

	if result.FetchError != "" {
		slog.Warn("Worker failed to fetch URL", "worker_id", id, "url", item.URL, "error", result.FetchError)
		if err := c.storage.SavePageError(item.ID, "fetch_error", result.FetchError); err != nil {
			return fmt.Errorf("failed to save fetch error for %s: %w", item.URL, err)
		}
	} else if err := c.storage.SaveAdmission(item.ID, result.Record); err != nil {
		return fmt.Errorf("failed to save page %s: %w", item.URL, err)
	}

	c.recordResult(result)
	slog.Info("Worker processed URL",
		"worker_id", id,
		"url", item.URL,
		"status", result.Record.StatusCode,
		"verdict", result.Decision.Verdict.String(),
		"reason", string(result.Decision.Reason),
		"links", len(result.Links),
	)
	return nil
}

func (c *DefaultCrawler) recordResult(result *PageResult) {
	c.statsMutex.Lock()
	defer c.statsMutex.Unlock()
	c.stats.PagesProcessed++
	if result.Decision.IsAdmitted() {
		c.stats.PagesAdmitted++
	}
	if result.FetchError != "" {
		c.stats.ErrorCount++
	}
}

func (c *DefaultCrawler) limitReached() bool {
	if c.config.Limit <= 0 {
		return false
	}
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()
	return c.stats.PagesAdmitted >= c.config.Limit
}

// statsReporter periodically reports crawling statistics
func (c *DefaultCrawler) statsReporter(ctx context.Context) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.logStats()
		}
	}
}

func (c *DefaultCrawler) logStats() {
	status, err := c.storage.GetQueueStatus()
	if err != nil {
		slog.Error("Failed to get queue status", "error", err)
		return
	}

	stats := c.GetStats()
	counters := c.admitter.Counters()
	slog.Info("Crawling stats",
		"processed", stats.PagesProcessed,
		"admitted", counters.Admitted,
		"exact_duplicate", counters.ExactDuplicate,
		"near_duplicate", counters.NearDuplicate,
		"bad_status", counters.BadStatus,
		"out_of_scope", counters.OutOfScope,
		"no_content", counters.NoContent,
		"queued", status.Queued,
		"processing", status.Processing,
		"errors", status.Errors,
		"duration", stats.Duration,
	)
}

// sleepCtx waits for d or until ctx is done; it reports false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
