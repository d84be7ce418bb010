// Package crawler implements the bounded same-domain crawl at the heart of
// portfolio-digest: the frontier, robots.txt policy, URL and domain helpers,
// the ordered scrape result, and the shared interfaces (fetcher, extractor,
// blob store, ledger) that the rest of the pipeline plugs into.
package crawler
