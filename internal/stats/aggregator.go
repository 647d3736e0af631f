// Package stats aggregates crawl statistics from admitted pages.
package stats

import (
	"net"
	"net/url"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// DefaultTopWords is the number of words reported by Summary.
const DefaultTopWords = 50

// PageLength identifies the page with the most words.
type PageLength struct {
	URL   string `json:"url"`
	Words int    `json:"words"`
}

// WordCount is a word and its frequency across admitted pages.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// SubdomainCount is the number of unique pages admitted under one authority.
type SubdomainCount struct {
	Authority string `json:"authority"`
	Pages     int    `json:"pages"`
}

// Summary is a point-in-time snapshot of the aggregator.
type Summary struct {
	UniquePages int              `json:"unique_pages"`
	TotalWords  int              `json:"total_words"`
	LongestPage PageLength       `json:"longest_page"`
	TopWords    []WordCount      `json:"top_words"`
	Subdomains  []SubdomainCount `json:"subdomains"`
}

// Aggregator collects statistics events. It is safe for concurrent use.
type Aggregator struct {
	topN    int
	domains []string

	mu         sync.Mutex
	pages      map[string]struct{}
	unhit      map[string]int // New unique pages per authority awaiting their SubdomainHit
	longest    PageLength
	totalWords int
	words      map[string]int
	subdomains map[string]int
}

// NewAggregator creates an aggregator reporting the topN most frequent words.
// When domains is non-empty, only authorities ending in one of them are
// counted as subdomains.
func NewAggregator(topN int, domains []string) *Aggregator {
	if topN <= 0 {
		topN = DefaultTopWords
	}
	normalized := make([]string, 0, len(domains))
	for _, d := range domains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			normalized = append(normalized, d)
		}
	}
	return &Aggregator{
		topN:       topN,
		domains:    normalized,
		pages:      make(map[string]struct{}),
		unhit:      make(map[string]int),
		words:      make(map[string]int),
		subdomains: make(map[string]int),
	}
}

// UniquePageSeen records an admitted page URL.
func (a *Aggregator) UniquePageSeen(pageURL string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.pages[pageURL]; ok {
		return
	}
	a.pages[pageURL] = struct{}{}
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		a.unhit[strings.ToLower(u.Host)]++
	}
}

// WordCountSample records the word count of a page. On ties the earlier page
// stays the longest.
func (a *Aggregator) WordCountSample(url string, count int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalWords += count
	if a.longest.URL == "" || count > a.longest.Words {
		a.longest = PageLength{URL: url, Words: count}
	}
}

// WordTokens adds lowercase tokens to the word frequencies.
func (a *Aggregator) WordTokens(tokens []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, tok := range tokens {
		if countable(tok) {
			a.words[tok]++
		}
	}
}

// SubdomainHit counts one admitted page under authority. A hit is only
// counted against a URL newly recorded by UniquePageSeen, so a page admitted
// twice under the same URL counts once.
func (a *Aggregator) SubdomainHit(authority string) {
	authority = strings.ToLower(authority)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.unhit[authority] == 0 {
		return
	}
	a.unhit[authority]--
	if a.tracked(authority) {
		a.subdomains[authority]++
	}
}

// Summary returns a snapshot of the collected statistics.
func (a *Aggregator) Summary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	words := make([]WordCount, 0, len(a.words))
	for w, c := range a.words {
		words = append(words, WordCount{Word: w, Count: c})
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].Count != words[j].Count {
			return words[i].Count > words[j].Count
		}
		return words[i].Word < words[j].Word
	})
	if len(words) > a.topN {
		words = words[:a.topN]
	}

	subdomains := make([]SubdomainCount, 0, len(a.subdomains))
	for s, c := range a.subdomains {
		subdomains = append(subdomains, SubdomainCount{Authority: s, Pages: c})
	}
	sort.Slice(subdomains, func(i, j int) bool {
		return subdomains[i].Authority < subdomains[j].Authority
	})

	return Summary{
		UniquePages: len(a.pages),
		TotalWords:  a.totalWords,
		LongestPage: a.longest,
		TopWords:    words,
		Subdomains:  subdomains,
	}
}

func (a *Aggregator) tracked(authority string) bool {
	if len(a.domains) == 0 {
		return true
	}
	host := authority
	if h, _, err := net.SplitHostPort(authority); err == nil {
		host = h
	}
	for _, d := range a.domains {
		if strings.HasSuffix(host, d) {
			return true
		}
	}
	return false
}

// countable excludes stop words, single runes and numbers.
func countable(tok string) bool {
	if utf8.RuneCountInString(tok) < 2 || IsStopWord(tok) {
		return false
	}
	for _, r := range tok {
		if !unicode.IsDigit(r) && r != '-' && r != '\'' {
			return true
		}
	}
	return false
}
