package admission

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
)

// Options configures a Service.
type Options struct {
	Scope                  ScopeConfig
	LinkFarmThreshold      int
	NearDuplicateThreshold float64
	FingerprintBits        int
	Checksummer            Checksummer      // Defaults to ByteSum
	Index                  FingerprintIndex // Defaults to a LinearIndex
	Extractor              Extractor
	Sink                   StatsSink // Defaults to a sink that drops events
	Logger                 *slog.Logger
}

// DefaultOptions returns options matching the default crawl scope.
func DefaultOptions() Options {
	return Options{
		Scope:                  DefaultScopeConfig(),
		LinkFarmThreshold:      DefaultLinkFarmThreshold,
		NearDuplicateThreshold: DefaultNearDuplicateThreshold,
		FingerprintBits:        DefaultFingerprintBits,
	}
}

// Service runs fetched pages through the admission pipeline. One Service holds
// the dedup state for one crawl and is safe for concurrent use.
type Service struct {
	scope         *ScopeFilter
	fingerprinter *Fingerprinter
	checksummer   Checksummer
	extractor     Extractor
	sink          StatsSink
	logger        *slog.Logger
	linkFarm      int
	nearThreshold float64

	// mu guards the dedup sets so that check-then-record is atomic.
	mu        sync.Mutex
	checksums *ChecksumSet
	index     FingerprintIndex
	counters  Counters
}

// NewService validates opts and creates a Service.
func NewService(opts Options) (*Service, error) {
	if opts.Extractor == nil {
		return nil, fmt.Errorf("admission: extractor is required")
	}
	if opts.NearDuplicateThreshold <= 0 || opts.NearDuplicateThreshold > 1 {
		return nil, fmt.Errorf("admission: near-duplicate threshold must be in (0, 1], got %v", opts.NearDuplicateThreshold)
	}
	if opts.FingerprintBits == 0 {
		opts.FingerprintBits = DefaultFingerprintBits
	}
	fingerprinter, err := NewFingerprinter(opts.FingerprintBits)
	if err != nil {
		return nil, fmt.Errorf("admission: %w", err)
	}

	if opts.Checksummer == nil {
		opts.Checksummer = ByteSum{}
	}
	if opts.Index == nil {
		opts.Index = NewLinearIndex(opts.FingerprintBits)
	}
	if opts.Sink == nil {
		opts.Sink = discardSink{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Service{
		scope:         NewScopeFilter(opts.Scope),
		fingerprinter: fingerprinter,
		checksummer:   opts.Checksummer,
		extractor:     opts.Extractor,
		sink:          opts.Sink,
		logger:        opts.Logger,
		linkFarm:      opts.LinkFarmThreshold,
		nearThreshold: opts.NearDuplicateThreshold,
		checksums:     NewChecksumSet(),
		index:         opts.Index,
	}, nil
}

// Scope returns the scope filter the service applies to extracted links.
func (s *Service) Scope() *ScopeFilter {
	return s.scope
}

// Counters returns a snapshot of admission outcomes so far.
func (s *Service) Counters() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}

// Admit decides whether a fetched page contributes links to the frontier.
// Rejected pages leave no trace in the dedup state. A page whose redirects
// ended outside the crawl scope is rejected as out_of_scope.
func (s *Service) Admit(res FetchResult) Decision {
	pageURL := res.PageURL()
	decision := Decision{Verdict: Rejected}
	if normalized, err := Normalize(pageURL, nil); err == nil {
		decision.URL = normalized
	} else {
		decision.URL = pageURL
	}

	if res.Status != http.StatusOK {
		s.count(ReasonBadStatus)
		decision.Reason = ReasonBadStatus
		return decision
	}
	if !s.scope.InScope(decision.URL) {
		s.count(ReasonOutOfScope)
		decision.Reason = ReasonOutOfScope
		return decision
	}
	if len(res.Body) == 0 {
		s.count(ReasonNoContent)
		decision.Reason = ReasonNoContent
		return decision
	}

	text, err := s.extractText(res.Body)
	if err != nil {
		s.logger.Debug("Text extraction failed", "url", decision.URL, "error", err)
		text = ""
	}
	tokens := Tokenize(text)
	decision.WordCount = len(tokens)
	decision.Checksum = s.checksummer.Sum(res.Body)
	decision.Fingerprint = s.fingerprinter.Fingerprint(tokens)

	if reason := s.checkAndRecord(decision.Checksum, decision.Fingerprint, len(tokens) > 0); reason != ReasonNone {
		decision.Reason = reason
		return decision
	}

	decision.Verdict = Admitted
	decision.Links = s.admitLinks(res.Body, pageURL)

	s.sink.UniquePageSeen(decision.URL)
	s.sink.WordCountSample(decision.URL, decision.WordCount)
	s.sink.WordTokens(tokens)
	if authority, err := Authority(decision.URL); err == nil {
		s.sink.SubdomainHit(authority)
	}

	return decision
}

// checkAndRecord runs both duplicate checks and records the page when it is new,
// all under one lock. Pages without text have no meaningful fingerprint, so
// they are only checked and recorded by checksum.
func (s *Service) checkAndRecord(sum Checksum, fp Fingerprint, hasText bool) Reason {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checksums.Contains(sum) {
		s.counters.ExactDuplicate++
		return ReasonExactDuplicate
	}
	if hasText && s.index.Near(fp, s.nearThreshold) {
		s.counters.NearDuplicate++
		return ReasonNearDuplicate
	}

	s.checksums.Add(sum)
	if hasText {
		s.index.Add(fp)
	}
	s.counters.Admitted++
	return ReasonNone
}

func (s *Service) count(reason Reason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch reason {
	case ReasonBadStatus:
		s.counters.BadStatus++
	case ReasonOutOfScope:
		s.counters.OutOfScope++
	case ReasonNoContent:
		s.counters.NoContent++
	}
}

// admitLinks extracts, normalizes, scope-filters and link-farm-prunes the
// page's links. Extraction failures yield no links.
func (s *Service) admitLinks(body []byte, pageURL string) []string {
	base, err := Origin(pageURL)
	if err != nil {
		s.logger.Debug("Cannot resolve links without page origin", "url", pageURL, "error", err)
		return []string{}
	}

	raw, err := s.extractLinks(body, base.String())
	if err != nil {
		s.logger.Warn("Link extraction failed", "url", pageURL, "error", err)
		return []string{}
	}

	seen := make(map[string]struct{}, len(raw))
	links := make([]string, 0, len(raw))
	for _, href := range raw {
		normalized, err := Normalize(href, base)
		if err != nil {
			s.logger.Debug("Skipping malformed link", "url", pageURL, "href", href, "error", err)
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		if s.scope.InScope(normalized) {
			links = append(links, normalized)
		}
	}

	kept := FilterLinkFarm(links, s.linkFarm)
	if dropped := len(links) - len(kept); dropped > 0 {
		s.logger.Debug("Dropped link-farm links", "url", pageURL, "dropped", dropped)
	}
	return kept
}

func (s *Service) extractLinks(body []byte, baseURL string) (links []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			links, err = nil, fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return s.extractor.ExtractLinks(body, baseURL)
}

func (s *Service) extractText(body []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return s.extractor.ExtractText(body)
}
