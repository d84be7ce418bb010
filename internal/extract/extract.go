// Package extract pulls the visible, content-bearing text out of an HTML page.
package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// DefaultMinFragmentChars drops labels and other boilerplate fragments.
const DefaultMinFragmentChars = 20

const strippedSelector = "script, style, nav, header, footer"

// Config tunes the extractor.
type Config struct {
	MinFragmentChars int
	Rules            []RegionRule
	Logger           *zap.Logger
}

// Extractor implements crawler.Extractor.
type Extractor struct {
	minChars int
	rules    []RegionRule
	logger   *zap.Logger
}

// New builds an Extractor, filling unset fields with defaults.
func New(cfg Config) *Extractor {
	if cfg.MinFragmentChars <= 0 {
		cfg.MinFragmentChars = DefaultMinFragmentChars
	}
	if len(cfg.Rules) == 0 {
		cfg.Rules = DefaultRules()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Extractor{minChars: cfg.MinFragmentChars, rules: cfg.Rules, logger: cfg.Logger}
}

// Extract returns the cleaned text of the page's content region joined by
// single spaces. The result is empty when no fragment survives filtering.
func (e *Extractor) Extract(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find(strippedSelector).Remove()

	regions, rule := e.regions(doc)
	e.logger.Debug("content region selected", zap.String("rule", rule), zap.Int("regions", len(regions)))

	var fragments []string
	emitted := make(map[*html.Node]struct{})
	for _, region := range regions {
		walk(region, func(n *html.Node) {
			if n == region || !isFragmentTag(n) {
				return
			}
			if _, dup := emitted[n]; dup {
				return
			}
			emitted[n] = struct{}{}
			raw, ok := element{n: n}.DirectString()
			if !ok {
				return
			}
			text := Clean(raw)
			if utf8.RuneCountInString(text) < e.minChars {
				return
			}
			fragments = append(fragments, text)
		})
	}
	return strings.Join(fragments, " "), nil
}

// FallbackRule names the whole-document region used when no rule matches.
const FallbackRule = "document"

// regions returns the content regions and the name of the rule that chose them.
func (e *Extractor) regions(doc *goquery.Document) ([]*html.Node, string) {
	root := doc.Get(0)
	if root == nil {
		return nil, FallbackRule
	}
	for _, rule := range e.rules {
		var matched []*html.Node
		walk(root, func(n *html.Node) {
			if n.Type != html.ElementNode {
				return
			}
			if !rule.All && len(matched) > 0 {
				return
			}
			if rule.Match(element{n: n}) {
				matched = append(matched, n)
			}
		})
		if len(matched) > 0 {
			return matched, rule.Name
		}
	}
	return []*html.Node{root}, FallbackRule
}

// walk visits n and its descendants in document order.
func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

// Clean keeps letters, digits, whitespace and the punctuation . , ! ? -,
// then collapses whitespace runs to single spaces.
func Clean(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
			b.WriteRune(r)
		case r == '.', r == ',', r == '!', r == '?', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
