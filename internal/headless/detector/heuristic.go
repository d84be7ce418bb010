// Package detector recognises pages that ship an empty client-side
// application shell instead of server-rendered content.
package detector

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/vc-portfolio-digest/internal/crawler"
)

// DefaultVisibleTextThreshold is the visible-text length below which a page
// carrying a mount point counts as a shell.
const DefaultVisibleTextThreshold = 200

// mountSelectors match the root elements common SPA frameworks hydrate into.
var mountSelectors = []string{
	"#__next",
	"#___gatsby",
	"#__nuxt",
	"#root",
	"#app",
	"[data-reactroot]",
	"[ng-version]",
}

// Heuristic flags responses whose markup is mostly script around an empty
// mount point.
type Heuristic struct {
	VisibleTextThreshold int
}

// NewHeuristic creates a detector. A zero threshold selects the default.
func NewHeuristic(threshold int) *Heuristic {
	if threshold <= 0 {
		threshold = DefaultVisibleTextThreshold
	}
	return &Heuristic{VisibleTextThreshold: threshold}
}

// LooksLikeShell implements crawler.ShellDetector.
func (h *Heuristic) LooksLikeShell(resp crawler.FetchResponse) bool {
	if resp.StatusCode != http.StatusOK || len(bytes.TrimSpace(resp.Body)) == 0 {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return false
	}

	scripts := doc.Find("script")
	scriptBytes := 0
	scripts.Each(func(_ int, s *goquery.Selection) {
		scriptBytes += len(s.Text())
		if src, ok := s.Attr("src"); ok {
			scriptBytes += len(src)
		}
	})
	noscript := strings.ToLower(doc.Find("noscript").Text())

	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, template").Remove()
	visible := len(strings.Join(strings.Fields(body.Text()), " "))
	if visible >= h.VisibleTextThreshold {
		return false
	}

	if strings.Contains(noscript, "enable javascript") || strings.Contains(noscript, "javascript enabled") {
		return true
	}
	for _, sel := range mountSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return scripts.Length() > 0 && scriptBytes > 4*max(visible, 1)
}
