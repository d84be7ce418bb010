// Package discover finds portfolio company URLs on a venture firm's
// portfolio page and records them in the company URL list.
package discover

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/vc-portfolio-digest/internal/store"
)

// LinkSource returns every link found on a rendered page.
type LinkSource interface {
	Links(ctx context.Context, pageURL string) ([]string, error)
}

// Discoverer turns a portfolio page into company_urls.txt.
type Discoverer struct {
	source   LinkSource
	list     *store.URLList
	excluded []string
	logger   *zap.Logger
}

// New builds a Discoverer. A nil excluded list uses DefaultExcludedDomains.
func New(source LinkSource, list *store.URLList, excluded []string, logger *zap.Logger) *Discoverer {
	if excluded == nil {
		excluded = DefaultExcludedDomains
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{source: source, list: list, excluded: excluded, logger: logger}
}

// Discover renders portfolioURL, filters its links and writes the URL list.
// The list is only replaced when the page could be rendered.
func (d *Discoverer) Discover(ctx context.Context, portfolioURL string) ([]string, error) {
	links, err := d.source.Links(ctx, portfolioURL)
	if err != nil {
		return nil, fmt.Errorf("discover portfolio links: %w", err)
	}
	companies := FilterLinks(portfolioURL, links, d.excluded)
	if err := d.list.Write(ctx, companies); err != nil {
		return nil, err
	}
	d.logger.Info("portfolio discovery complete",
		zap.String("url", portfolioURL),
		zap.Int("links", len(links)),
		zap.Int("companies", len(companies)),
	)
	return companies, nil
}
