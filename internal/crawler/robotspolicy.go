package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// RobotsEnforcer enforces robots.txt directives per host. Each robots.txt is
// fetched at most once for the lifetime of the enforcer; the crawler builds a
// fresh enforcer per crawl.
type RobotsEnforcer struct {
	fetcher   Fetcher
	userAgent string
	logger    *zap.Logger

	mu    sync.Mutex
	cache map[string]*robotstxt.Group
}

// NewRobotsEnforcer builds a RobotsPolicy. When respect is false every URL is
// allowed and no robots.txt is fetched.
func NewRobotsEnforcer(respect bool, fetcher Fetcher, userAgent string, logger *zap.Logger) RobotsPolicy {
	if !respect || fetcher == nil {
		return allowAllPolicy{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RobotsEnforcer{
		fetcher:   fetcher,
		userAgent: userAgent,
		logger:    logger,
		cache:     make(map[string]*robotstxt.Group),
	}
}

// Allowed implements RobotsPolicy. Fetch and parse failures allow access.
func (r *RobotsEnforcer) Allowed(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return true
	}
	group := r.group(ctx, parsed)
	if group == nil {
		return true
	}
	return group.Test(robotsPath(parsed))
}

func (r *RobotsEnforcer) group(ctx context.Context, parsed *url.URL) *robotstxt.Group {
	hostKey := strings.ToLower(parsed.Host)
	r.mu.Lock()
	defer r.mu.Unlock()
	if group, ok := r.cache[hostKey]; ok {
		return group
	}
	group, err := r.load(ctx, parsed)
	if err != nil {
		r.logger.Warn("robots fetch failed; allowing access", zap.String("host", parsed.Host), zap.Error(err))
	}
	r.cache[hostKey] = group
	return group
}

func (r *RobotsEnforcer) load(ctx context.Context, parsed *url.URL) (*robotstxt.Group, error) {
	robotsURL := url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/robots.txt"}
	resp, err := r.fetcher.Fetch(ctx, FetchRequest{URL: robotsURL.String()})
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("robots status %d", resp.StatusCode)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	return data.FindGroup(r.userAgent), nil
}

func robotsPath(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}

type allowAllPolicy struct{}

func (allowAllPolicy) Allowed(context.Context, string) bool { return true }
