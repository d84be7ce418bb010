package discover

import (
	"net/url"
	"strings"
)

// FilterLinks keeps absolute http(s) links whose host is neither excluded nor
// the portfolio page's own host, dropping fragments and duplicates while
// preserving first-seen order.
func FilterLinks(portfolioURL string, links []string, excluded []string) []string {
	blocked := newHostBlocklist(excluded)
	self := ""
	if parsed, err := url.Parse(strings.TrimSpace(portfolioURL)); err == nil {
		self = normalizeHost(parsed.Hostname())
	}

	seen := make(map[string]struct{}, len(links))
	out := make([]string, 0, len(links))
	for _, raw := range links {
		parsed, err := url.Parse(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		scheme := strings.ToLower(parsed.Scheme)
		if (scheme != "http" && scheme != "https") || parsed.Hostname() == "" {
			continue
		}
		host := normalizeHost(parsed.Hostname())
		if blocked.IsBlocked(host) || (self != "" && host == self) {
			continue
		}
		parsed.Fragment = ""
		parsed.RawFragment = ""
		link := parsed.String()
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		out = append(out, link)
	}
	return out
}

func normalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
