package crawler

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ScrapeResult maps visited page URLs to their extracted text, preserving
// visit order. The zero value is empty and ready to use.
type ScrapeResult struct {
	order []string
	pages map[string]string
}

// NewScrapeResult returns an empty result.
func NewScrapeResult() *ScrapeResult {
	return &ScrapeResult{pages: make(map[string]string)}
}

// Add records text for url. Re-adding a URL replaces its text in place.
func (r *ScrapeResult) Add(url, text string) {
	if r.pages == nil {
		r.pages = make(map[string]string)
	}
	if _, ok := r.pages[url]; !ok {
		r.order = append(r.order, url)
	}
	r.pages[url] = text
}

// Get returns the text stored for url.
func (r *ScrapeResult) Get(url string) (string, bool) {
	if r == nil {
		return "", false
	}
	text, ok := r.pages[url]
	return text, ok
}

// Len returns the number of pages.
func (r *ScrapeResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// URLs returns page URLs in visit order.
func (r *ScrapeResult) URLs() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Texts returns page texts in visit order.
func (r *ScrapeResult) Texts() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.order))
	for _, u := range r.order {
		out = append(out, r.pages[u])
	}
	return out
}

// MarshalJSON encodes the result as a JSON object whose keys follow visit order.
func (r *ScrapeResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if r != nil {
		for i, u := range r.order {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONString(&buf, u); err != nil {
				return nil, fmt.Errorf("marshal page url: %w", err)
			}
			buf.WriteByte(':')
			if err := writeJSONString(&buf, r.pages[u]); err != nil {
				return nil, fmt.Errorf("marshal page text: %w", err)
			}
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeJSONString appends s as a JSON string without HTML escaping.
func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1) // Encode appends a newline.
	return nil
}

// UnmarshalJSON decodes a JSON object of url -> text, keeping key order.
func (r *ScrapeResult) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read scrape result: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("scrape result must be a JSON object, got %v", tok)
	}
	fresh := NewScrapeResult()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read page url: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected key token %v", keyTok)
		}
		var text string
		if err := dec.Decode(&text); err != nil {
			return fmt.Errorf("decode text for %s: %w", key, err)
		}
		fresh.Add(key, text)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("close scrape result: %w", err)
	}
	*r = *fresh
	return nil
}
