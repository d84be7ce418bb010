package crawler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/vc-portfolio-digest/internal/crawler"
	"github.com/JakeFAU/vc-portfolio-digest/internal/extract"
	collyfetcher "github.com/JakeFAU/vc-portfolio-digest/internal/fetcher/colly"
	"github.com/JakeFAU/vc-portfolio-digest/internal/headless/detector"
)

// site serves a fixed set of pages and counts hits per path.
type site struct {
	mu    sync.Mutex
	hits  map[string]int
	pages map[string]string
	srv   *httptest.Server
}

func newSite(t *testing.T, pages map[string]string) *site {
	t.Helper()
	s := &site{hits: make(map[string]int), pages: pages}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()
		body, ok := s.pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		switch {
		case strings.HasPrefix(body, "redirect:"):
			http.Redirect(w, r, strings.TrimPrefix(body, "redirect:"), http.StatusFound)
		case strings.HasSuffix(r.URL.Path, ".json"):
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprint(w, body)
		case r.URL.Path == "/robots.txt":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = fmt.Fprint(w, body)
		default:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = fmt.Fprint(w, body)
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *site) URL(path string) string { return s.srv.URL + path }

func (s *site) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func page(text string, links ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><main><p>")
	b.WriteString(text)
	b.WriteString("</p>")
	for _, l := range links {
		fmt.Fprintf(&b, `<a href="%s">link</a>`, l)
	}
	b.WriteString("</main></body></html>")
	return b.String()
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// steppingClock advances by step on every call to Now.
type steppingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

func newCrawler(t *testing.T, cfg crawler.Config, clock crawler.Clock) *crawler.Crawler {
	t.Helper()
	if clock == nil {
		clock = wallClock{}
	}
	fetcher := collyfetcher.New(collyfetcher.Config{Timeout: 2 * time.Second})
	c, err := crawler.New(cfg, fetcher, extract.New(extract.Config{}), nil, clock, nil)
	require.NoError(t, err)
	return c
}

func TestCrawlStopsAtPageBudget(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"/": page("Acme builds warehouse robots for retailers.", "/p0", "/p1", "/p2", "/p3", "/p4", "/p5"),
	}
	for i := 0; i < 6; i++ {
		pages[fmt.Sprintf("/p%d", i)] = page(fmt.Sprintf("Product page number %d with plenty of text.", i))
	}
	s := newSite(t, pages)

	c := newCrawler(t, crawler.Config{MaxPages: 3}, nil)
	out, err := c.Crawl(context.Background(), s.URL("/"))
	require.NoError(t, err)

	assert.Equal(t, crawler.StopPageBudget, out.Reason)
	assert.Equal(t, []string{s.URL("/"), s.URL("/p0"), s.URL("/p1")}, out.Pages.URLs())
	text, ok := out.Pages.Get(s.URL("/"))
	require.True(t, ok)
	assert.Equal(t, "Acme builds warehouse robots for retailers.", text)
	assert.Zero(t, s.Hits("/p2"))
	assert.True(t, out.Cacheable())
}

func TestCrawlNeverFetchesAPageTwice(t *testing.T) {
	t.Parallel()

	s := newSite(t, map[string]string{
		"/":      page("The home page of a company that loops.", "/about", "/about#team", "/team", "/"),
		"/about": page("About us page with a cyclic link back home.", "/", "/team", "/about"),
		"/team":  page("Team page listing the founders of the company.", "/about", "/#top"),
	})

	c := newCrawler(t, crawler.Config{MaxPages: 10}, nil)
	out, err := c.Crawl(context.Background(), s.URL("/"))
	require.NoError(t, err)

	assert.Equal(t, crawler.StopFrontierExhausted, out.Reason)
	assert.Equal(t, 3, out.Pages.Len())
	for _, path := range []string{"/", "/about", "/team"} {
		assert.Equal(t, 1, s.Hits(path), "path %s", path)
	}
	assert.Equal(t, 3, out.Attempts)
}

func TestCrawlHonorsRobotsDisallow(t *testing.T) {
	t.Parallel()

	s := newSite(t, map[string]string{
		"/robots.txt":     "User-agent: *\nDisallow: /private/\n",
		"/":               page("Welcome to a site with a private area.", "/private/secret", "/public"),
		"/private/secret": page("This text must never be fetched by the crawler."),
		"/public":         page("Public information about our products."),
	})

	c := newCrawler(t, crawler.Config{MaxPages: 5, RespectRobots: true}, nil)
	out, err := c.Crawl(context.Background(), s.URL("/"))
	require.NoError(t, err)

	assert.Zero(t, s.Hits("/private/secret"))
	assert.Equal(t, 1, s.Hits("/robots.txt"))
	assert.Equal(t, []string{s.URL("/"), s.URL("/public")}, out.Pages.URLs())
}

func TestCrawlIgnoresRobotsWhenDisabled(t *testing.T) {
	t.Parallel()

	s := newSite(t, map[string]string{
		"/robots.txt": "User-agent: *\nDisallow: /\n",
		"/":           page("Robots would block this page entirely."),
	})

	c := newCrawler(t, crawler.Config{RespectRobots: false}, nil)
	out, err := c.Crawl(context.Background(), s.URL("/"))
	require.NoError(t, err)
	assert.Equal(t, 1, out.Pages.Len())
	assert.Zero(t, s.Hits("/robots.txt"))
}

func TestCrawlSkipsOffDomainRedirect(t *testing.T) {
	t.Parallel()

	other := newSite(t, map[string]string{
		"/landing": page("Someone else's page that must not be recorded."),
	})
	s := newSite(t, map[string]string{
		"/":     page("Home page linking to an outbound redirect.", "/jump"),
		"/jump": "redirect:" + other.URL("/landing"),
	})

	c := newCrawler(t, crawler.Config{MaxPages: 5}, nil)
	out, err := c.Crawl(context.Background(), s.URL("/"))
	require.NoError(t, err)

	assert.Equal(t, []string{s.URL("/")}, out.Pages.URLs())
	for _, text := range out.Pages.Texts() {
		assert.NotContains(t, text, "Someone else")
	}
}

func TestCrawlFollowsSameDomainRedirect(t *testing.T) {
	t.Parallel()

	s := newSite(t, map[string]string{
		"/":    page("Home page linking to an internal redirect.", "/old", "/new"),
		"/old": "redirect:/new",
		"/new": page("The new location of the product overview."),
	})

	c := newCrawler(t, crawler.Config{MaxPages: 5}, nil)
	out, err := c.Crawl(context.Background(), s.URL("/"))
	require.NoError(t, err)

	assert.Equal(t, []string{s.URL("/"), s.URL("/old")}, out.Pages.URLs())
	assert.Equal(t, 1, s.Hits("/new"), "redirect target is claimed and not fetched again")
}

func TestCrawlBadSeedYieldsEmptyResult(t *testing.T) {
	t.Parallel()

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	for name, seed := range map[string]string{
		"malformed":   "not a url",
		"no scheme":   "example.com",
		"ftp":         "ftp://example.com/",
		"unreachable": deadURL,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			c := newCrawler(t, crawler.Config{}, nil)
			out, err := c.Crawl(context.Background(), seed)
			require.NoError(t, err)
			assert.Zero(t, out.Pages.Len())
			assert.False(t, out.Cacheable())
		})
	}
}

func TestCrawlStopsAtTimeout(t *testing.T) {
	t.Parallel()

	s := newSite(t, map[string]string{
		"/":     page("Home page of a slow crawl with links.", "/next"),
		"/next": page("A page the timeout keeps us from reaching."),
	})

	clock := &steppingClock{now: time.Unix(0, 0), step: time.Second}
	c := newCrawler(t, crawler.Config{Timeout: 2 * time.Second}, clock)
	out, err := c.Crawl(context.Background(), s.URL("/"))
	require.NoError(t, err)

	assert.Equal(t, crawler.StopTimeout, out.Reason)
	assert.Equal(t, 1, out.Pages.Len())
	assert.Zero(t, s.Hits("/next"))
	assert.True(t, out.Cacheable(), "a timed-out crawl with pages is cached")
}

func TestCrawlCanceledContext(t *testing.T) {
	t.Parallel()

	s := newSite(t, map[string]string{"/": page("A page nobody will fetch at all.")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newCrawler(t, crawler.Config{}, nil)
	out, err := c.Crawl(ctx, s.URL("/"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, crawler.StopCanceled, out.Reason)
	assert.Zero(t, out.Pages.Len())
	assert.False(t, out.Cacheable())
	assert.Zero(t, s.Hits("/"))
}

func TestCrawlTruncatesPageText(t *testing.T) {
	t.Parallel()

	long := strings.TrimSpace(strings.Repeat("robotics ", 1000))
	s := newSite(t, map[string]string{"/": page(long)})

	c := newCrawler(t, crawler.Config{}, nil)
	out, err := c.Crawl(context.Background(), s.URL("/"))
	require.NoError(t, err)

	text, ok := out.Pages.Get(s.URL("/"))
	require.True(t, ok)
	assert.Equal(t, crawler.DefaultMaxPageChars, utf8.RuneCountInString(text))
}

func TestCrawlSkipsNonHTMLAndEmptyPages(t *testing.T) {
	t.Parallel()

	s := newSite(t, map[string]string{
		"/":          page("Home page linking to data and a sparse page.", "/data.json", "/sparse"),
		"/data.json": `{"note": "structured data that is not a page"}`,
		"/sparse":    `<html><body><p>tiny</p><a href="/deep">more</a></body></html>`,
		"/deep":      page("Reached through a page that had no content."),
	})

	c := newCrawler(t, crawler.Config{MaxPages: 5}, nil)
	out, err := c.Crawl(context.Background(), s.URL("/"))
	require.NoError(t, err)

	assert.Equal(t, []string{s.URL("/"), s.URL("/deep")}, out.Pages.URLs())
	assert.Equal(t, 1, s.Hits("/data.json"))
}

func TestCrawlCountsClientSideShells(t *testing.T) {
	t.Parallel()

	s := newSite(t, map[string]string{
		"/":       `<html><body><div id="root"></div><script src="/bundle.js"></script><a href="/about">About</a></body></html>`,
		"/about":  `<html><body><div id="__next"></div><a href="/sparse">more</a></body></html>`,
		"/sparse": `<html><body><p>tiny</p></body></html>`,
	})

	fetcher := collyfetcher.New(collyfetcher.Config{Timeout: 2 * time.Second})
	c, err := crawler.New(crawler.Config{MaxPages: 5}, fetcher, extract.New(extract.Config{}), nil, wallClock{}, nil,
		crawler.WithShellDetector(detector.NewHeuristic(0)))
	require.NoError(t, err)

	out, err := c.Crawl(context.Background(), s.URL("/"))
	require.NoError(t, err)
	assert.Equal(t, 0, out.Pages.Len())
	assert.Equal(t, 2, out.Shells)
	assert.Equal(t, 3, out.Attempts)
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	fetcher := collyfetcher.New(collyfetcher.Config{})
	ext := extract.New(extract.Config{})

	_, err := crawler.New(crawler.Config{MaxPages: -1}, fetcher, ext, nil, wallClock{}, nil)
	assert.ErrorContains(t, err, "max pages")
	_, err = crawler.New(crawler.Config{}, nil, ext, nil, wallClock{}, nil)
	assert.ErrorContains(t, err, "fetcher is required")
	_, err = crawler.New(crawler.Config{}, fetcher, nil, nil, wallClock{}, nil)
	assert.ErrorContains(t, err, "extractor is required")
	_, err = crawler.New(crawler.Config{}, fetcher, ext, nil, nil, nil)
	assert.ErrorContains(t, err, "clock is required")
}
