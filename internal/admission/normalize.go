// Package admission implements the page-admission pipeline of the crawler:
// URL normalization and scope filtering, link-farm pruning, and exact and
// near-duplicate content detection. A Service composes these into a single
// per-page decision and owns all dedup state for one crawl.
package admission

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMalformedURL is returned when a URL cannot be parsed into scheme, authority and path.
var ErrMalformedURL = errors.New("malformed URL")

// Normalize resolves raw against base (when base is non-nil) and strips the
// fragment. The query string, including an explicitly empty one, is preserved.
func Normalize(raw string, base *url.URL) (string, error) {
	u, err := parseNormalized(raw, base)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Origin returns the scheme+authority of rawURL as a base for link resolution.
func Origin(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no scheme or authority", ErrMalformedURL, rawURL)
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host}, nil
}

// Authority returns the host[:port] of an already normalized URL.
func Authority(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q has no authority", ErrMalformedURL, rawURL)
	}
	return strings.ToLower(u.Host), nil
}

func parseNormalized(raw string, base *url.URL) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}

	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}

	if u.Scheme == "" || u.Host == "" || u.Opaque != "" {
		return nil, fmt.Errorf("%w: %q has no scheme or authority", ErrMalformedURL, raw)
	}

	u.Fragment = ""
	u.RawFragment = ""
	return u, nil
}
