// Package ledger appends processed companies to the human-facing outputs:
// short_summaries.csv and long_summaries.docx. Both ledgers are idempotent
// by company URL.
package ledger
