package admission

import (
	"net/url"
	"strings"
)

// DefaultLinkFarmThreshold is the maximum number of links one page may point at
// a single authority before all of them are discarded.
const DefaultLinkFarmThreshold = 20

// FilterLinkFarm drops every link whose authority occurs more than threshold
// times within links. Counts are local to this call. Links that cannot be
// parsed count under the empty authority. A threshold <= 0 returns links unchanged.
func FilterLinkFarm(links []string, threshold int) []string {
	if threshold <= 0 {
		return links
	}

	authorities := make([]string, len(links))
	counts := make(map[string]int, len(links))
	for i, link := range links {
		authorities[i] = authorityOf(link)
		counts[authorities[i]]++
	}

	kept := make([]string, 0, len(links))
	for i, link := range links {
		if counts[authorities[i]] <= threshold {
			kept = append(kept, link)
		}
	}
	return kept
}

func authorityOf(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
