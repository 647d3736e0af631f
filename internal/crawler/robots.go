package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsFetcher fetches /robots.txt once per host and records its status and
// declared sitemaps. Rules are not enforced.
type RobotsFetcher struct {
	httpClient *HTTPClient
	storage    Storage

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewRobotsFetcher creates a robots.txt fetcher that records into storage
func NewRobotsFetcher(httpClient *HTTPClient, storage Storage) *RobotsFetcher {
	return &RobotsFetcher{
		httpClient: httpClient,
		storage:    storage,
		seen:       make(map[string]struct{}),
	}
}

// Visit fetches robots.txt for the host of pageURL the first time that host
// is seen. It returns the record when a fetch happened, nil otherwise.
func (r *RobotsFetcher) Visit(ctx context.Context, pageURL string) *RobotsRecord {
	parsedURL, err := url.Parse(pageURL)
	if err != nil || parsedURL.Host == "" {
		return nil
	}
	host := strings.ToLower(parsedURL.Host)

	r.mu.Lock()
	if _, ok := r.seen[host]; ok {
		r.mu.Unlock()
		return nil
	}
	r.seen[host] = struct{}{}
	r.mu.Unlock()

	record := r.fetch(ctx, parsedURL.Scheme, host)
	if err := r.storage.SaveRobots(record); err != nil {
		slog.Error("Failed to save robots.txt record", "host", host, "error", err)
	}
	return record
}

func (r *RobotsFetcher) fetch(ctx context.Context, scheme, host string) *RobotsRecord {
	record := &RobotsRecord{
		Host:      host,
		URL:       fmt.Sprintf("%s://%s/robots.txt", scheme, host),
		FetchedAt: time.Now().UTC(),
	}

	resp, err := r.httpClient.Get(ctx, record.URL)
	if err != nil {
		record.Error = err.Error()
		slog.Debug("robots.txt fetch failed", "host", host, "error", err)
		return record
	}
	record.StatusCode = resp.StatusCode

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body)
	if err != nil {
		record.Error = fmt.Sprintf("failed to parse robots.txt: %v", err)
		return record
	}
	record.Sitemaps = data.Sitemaps

	slog.Debug("Recorded robots.txt", "host", host, "status", resp.StatusCode, "sitemaps", len(record.Sitemaps))
	return record
}
