package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/vc-portfolio-digest/internal/store"
)

type fakeProcessed []string

func (f fakeProcessed) URLs() []string { return append([]string(nil), f...) }

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Board == nil {
		opts.Board = store.NewStatusBoard()
	}
	opts.Logger = zap.NewNop()
	srv, err := NewServer(opts)
	require.NoError(t, err)
	return srv
}

func serve(srv *Server, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewServer_RequiresBoard(t *testing.T) {
	t.Parallel()

	_, err := NewServer(Options{})
	require.Error(t, err)
}

func TestServer_Probes(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, Options{})
	rec := serve(srv, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = serve(srv, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	failing := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("db down") }})
	rec = serve(failing, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not ready")
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, Options{})
	serve(srv, http.MethodGet, "/healthz", nil)
	rec := serve(srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestServer_GetRun(t *testing.T) {
	t.Parallel()

	board := store.NewStatusBoard()
	srv := newTestServer(t, Options{Board: board})

	rec := serve(srv, http.MethodGet, "/v1/run", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	board.Start("run-1", "https://vc.example/portfolio", 3, time.Unix(100, 0).UTC())
	board.Begin("https://a.io")
	rec = serve(srv, http.MethodGet, "/v1/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Run store.RunStatus `json:"run"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-1", body.Run.RunID)
	assert.Equal(t, 3, body.Run.Total)
	assert.Equal(t, "https://a.io", body.Run.Current)
}

func TestServer_ListCompanies(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, Options{Processed: fakeProcessed{"https://a.io", "https://b.io", "https://c.io"}})

	cases := []struct {
		name   string
		query  string
		status int
		want   []string
	}{
		{name: "default", query: "", status: http.StatusOK, want: []string{"https://a.io", "https://b.io", "https://c.io"}},
		{name: "paged", query: "?limit=1&offset=1", status: http.StatusOK, want: []string{"https://b.io"}},
		{name: "offset past end", query: "?offset=10", status: http.StatusOK, want: []string{}},
		{name: "bad limit", query: "?limit=0", status: http.StatusBadRequest},
		{name: "bad offset", query: "?offset=-1", status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(srv, http.MethodGet, "/v1/companies"+tc.query, nil)
			require.Equal(t, tc.status, rec.Code)
			if tc.status != http.StatusOK {
				return
			}
			var body struct {
				Companies []string `json:"companies"`
				Total     int      `json:"total"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.want, body.Companies)
			assert.Equal(t, 3, body.Total)
		})
	}

	unwired := newTestServer(t, Options{})
	rec := serve(unwired, http.MethodGet, "/v1/companies", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_APIKey(t *testing.T) {
	t.Parallel()

	board := store.NewStatusBoard()
	board.Start("run-1", "https://vc.example", 0, time.Now())
	srv := newTestServer(t, Options{Board: board, APIKey: "secret"})

	rec := serve(srv, http.MethodGet, "/v1/run", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(srv, http.MethodGet, "/v1/run", http.Header{"X-Api-Key": []string{"secret"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(srv, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code, "probes stay open")
}

func TestServer_RecoverMiddleware(t *testing.T) {
	t.Parallel()

	handler := recoverMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_ListenAndServeShutsDown(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := newTestServer(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
