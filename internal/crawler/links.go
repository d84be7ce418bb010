package crawler

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractLinks returns the absolute http(s) targets of every a[href] in body,
// resolved against base, in document order and without duplicates.
func ExtractLinks(base *url.URL, body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if resolved, ok := ResolveLink(base, href); ok {
			if parsed, err := url.Parse(resolved); err == nil {
				base = parsed
			}
		}
	}
	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		abs, ok := ResolveLink(base, href)
		if !ok {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	})
	return links, nil
}

func isHTML(headers http.Header) bool {
	raw := headers.Get("Content-Type")
	if raw == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.Contains(strings.ToLower(raw), "html")
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
