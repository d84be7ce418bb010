package api

import (
	"errors"
	"net/http"
	"strconv"
)

const (
	defaultCompanyLimit = 100
	maxCompanyLimit     = 1000
)

// getRun handles GET /v1/run. It returns the status board snapshot, or 404
// before the first run started.
func (s *Server) getRun(w http.ResponseWriter, _ *http.Request) {
	status, ok := s.board.Snapshot()
	if !ok {
		writeError(w, http.StatusNotFound, "no run started")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": status})
}

// listCompanies handles GET /v1/companies?limit=&offset=. It returns
// {"companies": [...], "total": n}, 400 for invalid paging, or 503 when no
// progress set is wired.
func (s *Server) listCompanies(w http.ResponseWriter, r *http.Request) {
	if s.processed == nil {
		writeError(w, http.StatusServiceUnavailable, "progress set unavailable")
		return
	}
	limit, offset, err := parseLimitOffset(r, defaultCompanyLimit, maxCompanyLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	urls := s.processed.URLs()
	total := len(urls)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"companies": urls[offset:end],
		"total":     total,
	})
}

func parseLimitOffset(r *http.Request, def, maxLimit int) (int, int, error) {
	q := r.URL.Query()
	limit := def
	if limStr := q.Get("limit"); limStr != "" {
		val, err := strconv.Atoi(limStr)
		if err != nil || val <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		if val > maxLimit {
			val = maxLimit
		}
		limit = val
	}
	offset := 0
	if offStr := q.Get("offset"); offStr != "" {
		val, err := strconv.Atoi(offStr)
		if err != nil || val < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = val
	}
	return limit, offset, nil
}
