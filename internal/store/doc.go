// Package store holds the repositories the pipeline persists through: the
// per-domain scrape cache, the progress set, the company URL list, and the
// in-memory run status board. File-backed repositories write through a
// crawler.BlobStore; this package must not import concrete storage clients.
package store
