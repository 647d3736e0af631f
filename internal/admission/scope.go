package admission

import (
	"net/url"
	"path"
	"strings"
)

// DefaultAllowedDomains are the authority suffixes a crawl is restricted to.
var DefaultAllowedDomains = []string{
	".ics.uci.edu",
	".cs.uci.edu",
	".informatics.uci.edu",
	".stat.uci.edu",
}

// DefaultBlockedHosts are in-scope hosts known to generate endless trap content.
var DefaultBlockedHosts = []string{
	"wiki.ics.uci.edu",
	"swiki.ics.uci.edu",
	"calendar.ics.uci.edu",
}

// DefaultExcludedExtensions are path extensions that never point at an HTML page.
var DefaultExcludedExtensions = []string{
	"css", "js", "bmp", "gif", "jpeg", "jpg", "ico",
	"png", "tif", "tiff", "mid", "mp2", "mp3", "mp4",
	"wav", "avi", "mov", "mpeg", "ram", "m4v", "mkv", "ogg", "ogv", "pdf",
	"ps", "eps", "tex", "ppt", "pptx", "doc", "docx", "xls", "xlsx", "names",
	"data", "dat", "exe", "bz2", "tar", "msi", "bin", "7z", "psd", "dmg", "iso",
	"epub", "dll", "cnf", "tgz", "sha1",
	"thmx", "mso", "arff", "rtf", "jar", "csv",
	"rm", "smil", "wmv", "swf", "wma", "zip", "rar", "gz",
}

// ScopeConfig configures a ScopeFilter.
type ScopeConfig struct {
	AllowedDomains     []string // Authority must contain one of these (case-insensitive)
	BlockedHosts       []string // Authorities rejected on exact match
	ExcludedExtensions []string // Path extensions rejected, with or without leading dot
}

// DefaultScopeConfig returns the scope used when nothing is configured.
func DefaultScopeConfig() ScopeConfig {
	return ScopeConfig{
		AllowedDomains:     append([]string(nil), DefaultAllowedDomains...),
		BlockedHosts:       append([]string(nil), DefaultBlockedHosts...),
		ExcludedExtensions: append([]string(nil), DefaultExcludedExtensions...),
	}
}

// ScopeFilter decides whether a URL is eligible to ever be crawled.
// It is immutable after construction and safe for concurrent use.
type ScopeFilter struct {
	domains    []string
	blocked    map[string]struct{}
	extensions map[string]struct{}
}

// NewScopeFilter builds a filter from cfg, lowercasing every entry.
func NewScopeFilter(cfg ScopeConfig) *ScopeFilter {
	f := &ScopeFilter{
		blocked:    make(map[string]struct{}, len(cfg.BlockedHosts)),
		extensions: make(map[string]struct{}, len(cfg.ExcludedExtensions)),
	}
	for _, d := range cfg.AllowedDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			f.domains = append(f.domains, d)
		}
	}
	for _, h := range cfg.BlockedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			f.blocked[h] = struct{}{}
		}
	}
	for _, ext := range cfg.ExcludedExtensions {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext != "" {
			f.extensions[ext] = struct{}{}
		}
	}
	return f
}

// InScope reports whether rawURL passes the scheme, domain, blocked-host and
// extension checks. Malformed URLs are out of scope.
func (f *ScopeFilter) InScope(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	authority := strings.ToLower(u.Host)
	if !f.allowedAuthority(authority) {
		return false
	}
	if _, ok := f.blocked[authority]; ok {
		return false
	}

	return !f.excludedPath(u.Path)
}

func (f *ScopeFilter) allowedAuthority(authority string) bool {
	if authority == "" {
		return false
	}
	for _, d := range f.domains {
		if strings.Contains(authority, d) {
			return true
		}
	}
	return false
}

// excludedPath reports whether the final extension of p is in the excluded set.
func (f *ScopeFilter) excludedPath(p string) bool {
	ext := path.Ext(strings.ToLower(p))
	if ext == "" {
		return false
	}
	_, ok := f.extensions[ext[1:]]
	return ok
}
