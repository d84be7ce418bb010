package discover

import "strings"

// DefaultExcludedDomains are hosts whose links are never company sites.
var DefaultExcludedDomains = []string{
	"linkedin.com",
	"twitter.com",
	"facebook.com",
	"typeform.com",
	"runtime.vc",
}

// hostBlocklist matches a host against configured domains. Every entry
// covers the domain itself and all of its subdomains; "*.x" and ".x" are
// accepted as aliases of "x".
type hostBlocklist struct {
	domains []string
}

func newHostBlocklist(patterns []string) *hostBlocklist {
	b := &hostBlocklist{}
	for _, raw := range patterns {
		value := strings.TrimSpace(strings.ToLower(raw))
		value = strings.TrimPrefix(value, "*.")
		value = strings.TrimPrefix(value, ".")
		if value == "" {
			continue
		}
		b.add(value)
	}
	if len(b.domains) == 0 {
		return nil
	}
	return b
}

func (b *hostBlocklist) add(domain string) {
	for _, existing := range b.domains {
		if existing == domain {
			return
		}
	}
	b.domains = append(b.domains, domain)
}

// IsBlocked reports whether host equals or is a subdomain of a listed domain.
func (b *hostBlocklist) IsBlocked(host string) bool {
	if b == nil {
		return false
	}
	host = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(host)), ".")
	if host == "" {
		return false
	}
	for _, domain := range b.domains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
