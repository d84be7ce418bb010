// Package api hosts the optional operator HTTP server that runs alongside a
// digest run. Routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/run for the active run's status board.
//   - GET /v1/companies for the processed-company list.
package api
