package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var invalidFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// CanonicalURL parses raw, requires an http(s) scheme and a host, and drops
// the fragment.
func CanonicalURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("url has no host")
	}
	parsed.Scheme = scheme
	parsed.Fragment = ""
	parsed.RawFragment = ""
	return parsed, nil
}

// ResolveLink resolves href against base. It returns false for empty,
// in-page, and non-http(s) links.
func ResolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if base == nil || href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if abs.Host == "" {
		return "", false
	}
	abs.Fragment = ""
	abs.RawFragment = ""
	return abs.String(), true
}

// DomainScope answers same-domain questions relative to a crawl seed.
type DomainScope struct {
	seed *url.URL
}

// NewDomainScope builds a scope for seed.
func NewDomainScope(seed string) (DomainScope, error) {
	parsed, err := CanonicalURL(seed)
	if err != nil {
		return DomainScope{}, err
	}
	return DomainScope{seed: parsed}, nil
}

// Seed returns the canonical seed URL.
func (s DomainScope) Seed() *url.URL {
	clone := *s.seed
	return &clone
}

// SameDomain compares the network location (host and port) of raw with the
// seed's, ignoring scheme and path.
func (s DomainScope) SameDomain(raw string) bool {
	if s.seed == nil {
		return false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Host, s.seed.Host)
}

// Domain returns the network location of raw with a leading "www." removed.
func Domain(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Host)
	return strings.TrimPrefix(host, "www.")
}

// CompanyName derives a display name from the first label of the domain:
// "www.acme-robotics.io" becomes "Acme Robotics".
func CompanyName(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Hostname() == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	label, _, _ := strings.Cut(host, ".")
	words := strings.Fields(strings.ReplaceAll(label, "-", " "))
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

// CacheFileName names the per-domain scrape cache for raw.
func CacheFileName(raw string) string {
	domain := invalidFilenameChars.ReplaceAllString(Domain(raw), "_")
	return fmt.Sprintf("scraped_data_%s.json", domain)
}

// Truncate cuts s to at most limit characters without splitting a rune.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

func capitalize(word string) string {
	first, size := utf8.DecodeRuneInString(word)
	if first == utf8.RuneError {
		return word
	}
	return string(unicode.ToUpper(first)) + strings.ToLower(word[size:])
}
