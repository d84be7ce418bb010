package crawler

import (
	"net/http"
	"time"
)

// FetchRequest describes a single page retrieval.
type FetchRequest struct {
	URL string
}

// FetchResponse captures the outcome of a fetch after redirects were followed.
type FetchResponse struct {
	// URL is the final URL the response was served from.
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// StopReason explains why a crawl ended.
type StopReason string

// Crawl stop reasons.
const (
	StopFrontierExhausted StopReason = "frontier_exhausted"
	StopPageBudget        StopReason = "page_budget"
	StopTimeout           StopReason = "timeout"
	StopCanceled          StopReason = "canceled"
)

// Outcome is the result of one bounded crawl.
type Outcome struct {
	Pages    *ScrapeResult
	Reason   StopReason
	Attempts int
	// Shells counts fetched pages that yielded no text and looked like a
	// client-side application shell.
	Shells  int
	Elapsed time.Duration
}

// Cacheable reports whether the outcome is worth persisting to the scrape cache.
func (o Outcome) Cacheable() bool {
	return o.Reason != StopCanceled && o.Pages.Len() > 0
}

// CompanyRecord is the per-company artifact handed to the ledgers.
type CompanyRecord struct {
	Name         string    `json:"company_name"`
	URL          string    `json:"url"`
	LongSummary  string    `json:"long_summary"`
	ShortSummary string    `json:"short_summary"`
	CacheFile    string    `json:"cache_file"`
	ProcessedAt  time.Time `json:"processed_at"`
}
