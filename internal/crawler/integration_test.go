package crawler_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/masahif/scopecrawl/internal/admission"
	"github.com/masahif/scopecrawl/internal/config"
	"github.com/masahif/scopecrawl/internal/crawler"
	"github.com/masahif/scopecrawl/internal/parser"
	"github.com/masahif/scopecrawl/internal/stats"
	"github.com/masahif/scopecrawl/internal/storage"
)

func department(name string, n int, links ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s</title></head><body><h1>%s</h1><p>", name, name)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%sword%d ", strings.ToLower(name), i)
	}
	b.WriteString("</p>")
	for _, l := range links {
		fmt.Fprintf(&b, `<a href="%s">link</a>`, l)
	}
	b.WriteString("</body></html>")
	return b.String()
}

// pageStatus reads the frontier status of url through a second connection,
// returning "" when url was never queued.
func pageStatus(t *testing.T, dbPath, url string) string {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	var status string
	err = db.QueryRow("SELECT status FROM pages WHERE url = ?", url).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ""
	}
	if err != nil {
		t.Fatalf("Failed to read page status: %v", err)
	}
	return status
}

func TestStartWithRealStorage(t *testing.T) {
	site := map[string]string{
		"/":         department("Home", 20, "/research", "/people", "/archive/research", "/calendar.ics"),
		"/research": department("Research", 40, "/", "/people"),
		"/people":   department("People", 30, "/research"),
	}
	site["/archive/research"] = site["/research"]

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := site[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	dbPath := filepath.Join(t.TempDir(), "crawl.db")
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer func() { _ = store.Close() }()

	cfg := config.DefaultConfig()
	cfg.SeedURLs = []string{server.URL + "/"}
	cfg.AllowedDomains = []string{"127.0.0.1"}
	cfg.BlockedHosts = nil
	cfg.ExcludedExtensions = []string{"ics"}
	cfg.ContentChecksum = "sha3"
	// A single worker keeps the original ahead of its mirror in the frontier
	cfg.Concurrency = 1
	cfg.FetchRobots = false

	aggregator := stats.NewAggregator(10, nil)
	opts, err := cfg.AdmissionOptions()
	if err != nil {
		t.Fatalf("Failed to build admission options: %v", err)
	}
	opts.Extractor = parser.NewHTMLExtractor()
	opts.Sink = aggregator
	admitter, err := admission.NewService(opts)
	if err != nil {
		t.Fatalf("Failed to create admission service: %v", err)
	}

	c, err := crawler.NewCrawler(cfg, store, admitter, parser.NewHTMLExtractor())
	if err != nil {
		t.Fatalf("Failed to create crawler: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.Start(ctx, cfg.SeedURLs); err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}

	qs, err := store.GetQueueStatus()
	if err != nil {
		t.Fatalf("Failed to get queue status: %v", err)
	}
	if qs.Admitted != 3 || qs.Rejected != 1 || qs.Pending() != 0 {
		t.Errorf("Expected 3 admitted, 1 rejected and nothing pending, got %+v", qs)
	}

	if status := pageStatus(t, dbPath, server.URL+"/archive/research"); status != crawler.StatusRejected {
		t.Errorf("Expected mirrored page to be rejected, got %s", status)
	}
	if status := pageStatus(t, dbPath, server.URL+"/calendar.ics"); status != "" {
		t.Errorf("Expected excluded extension never to be queued")
	}

	crawlID, err := store.GetMeta(crawler.MetaCrawlID)
	if err != nil || crawlID != c.CrawlID() {
		t.Errorf("Expected crawl id %s to be stored, got %q (%v)", c.CrawlID(), crawlID, err)
	}

	summary := aggregator.Summary()
	if summary.UniquePages != 3 {
		t.Errorf("Expected 3 unique pages, got %d", summary.UniquePages)
	}
	if summary.LongestPage.URL != server.URL+"/research" {
		t.Errorf("Expected /research to be the longest page, got %s", summary.LongestPage.URL)
	}
	if len(summary.Subdomains) != 1 || summary.Subdomains[0].Pages != 3 {
		t.Errorf("Expected one authority with 3 pages, got %+v", summary.Subdomains)
	}
}

func TestRestartResetsFrontier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(department("Only", 15)))
	}))
	defer server.Close()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "crawl.db"))
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer func() { _ = store.Close() }()

	cfg := config.DefaultConfig()
	cfg.AllowedDomains = []string{"127.0.0.1"}
	cfg.FetchRobots = false

	var ids []string
	for run := 0; run < 2; run++ {
		opts, err := cfg.AdmissionOptions()
		if err != nil {
			t.Fatalf("Failed to build admission options: %v", err)
		}
		opts.Extractor = parser.NewHTMLExtractor()
		admitter, err := admission.NewService(opts)
		if err != nil {
			t.Fatalf("Failed to create admission service: %v", err)
		}

		c, err := crawler.NewCrawler(cfg, store, admitter, nil)
		if err != nil {
			t.Fatalf("Failed to create crawler: %v", err)
		}
		if err := c.Start(context.Background(), []string{server.URL + "/"}); err != nil {
			t.Fatalf("Run %d failed: %v", run, err)
		}
		if admitter.Counters().Admitted != 1 {
			t.Errorf("Run %d: expected the page to be admitted again, got %+v", run, admitter.Counters())
		}
		ids = append(ids, c.CrawlID())
	}

	if ids[0] == ids[1] {
		t.Errorf("Expected a fresh crawl id per run")
	}
	if stored, _ := store.GetMeta(crawler.MetaCrawlID); stored != ids[1] {
		t.Errorf("Expected latest crawl id %s, got %s", ids[1], stored)
	}
}
