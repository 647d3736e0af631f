package crawler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// TitleExtractor pulls the document title out of an HTML body
type TitleExtractor interface {
	Title(body []byte) string
}

// DefaultPageProcessor fetches a page, runs it through admission and builds
// the records the crawler persists.
type DefaultPageProcessor struct {
	fetcher  Fetcher
	admitter Admitter
	titles   TitleExtractor
}

var _ PageProcessor = (*DefaultPageProcessor)(nil)

// NewPageProcessor creates a new page processor
func NewPageProcessor(fetcher Fetcher, admitter Admitter, titles TitleExtractor) *DefaultPageProcessor {
	return &DefaultPageProcessor{
		fetcher:  fetcher,
		admitter: admitter,
		titles:   titles,
	}
}

// Process handles a single page. It returns nil when ctx was cancelled
// before the page reached admission.
func (p *DefaultPageProcessor) Process(ctx context.Context, url string) *PageResult {
	res := p.fetcher.Fetch(ctx, url)
	if ctx.Err() != nil {
		return nil
	}

	decision := p.admitter.Admit(res)
	now := time.Now().UTC()

	record := &PageRecord{
		URL:        url,
		FinalURL:   decision.URL,
		StatusCode: res.Status,
		Admitted:   decision.IsAdmitted(),
		Reason:     string(decision.Reason),
		WordCount:  decision.WordCount,
		CrawledAt:  now,
	}
	if res.Status == http.StatusOK && len(res.Body) > 0 {
		record.Checksum = decision.Checksum.String()
		record.Fingerprint = decision.Fingerprint.String()
	}

	result := &PageResult{
		Record:     record,
		Decision:   decision,
		Links:      []*LinkData{},
		FetchError: res.Error,
	}

	if !decision.IsAdmitted() {
		slog.Debug("Page rejected", "url", url, "status", res.Status, "reason", decision.Reason)
		return result
	}

	if p.titles != nil {
		record.Title = p.titles.Title(res.Body)
	}
	for _, link := range decision.Links {
		result.Links = append(result.Links, &LinkData{
			SourceURL: decision.URL,
			TargetURL: link,
			CrawledAt: now,
		})
	}
	record.LinkCount = len(result.Links)

	slog.Debug("Page admitted", "url", url, "words", decision.WordCount, "links", record.LinkCount)
	return result
}

// URLs returns the link targets in order.
func (r *PageResult) URLs() []string {
	urls := make([]string, 0, len(r.Links))
	for _, link := range r.Links {
		urls = append(urls, link.TargetURL)
	}
	return urls
}
