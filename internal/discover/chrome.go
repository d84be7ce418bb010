package discover

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ChromeConfig controls the headless browser used to render portfolio pages.
type ChromeConfig struct {
	UserAgent         string
	NavigationTimeout time.Duration
	// ClickTimeout bounds each cookie-banner click attempt.
	ClickTimeout time.Duration
	// SettleDelay is waited after banners are handled and before scrolling.
	SettleDelay    time.Duration
	ViewportWidth  int64
	ViewportHeight int64
	// ExecPath overrides the Chrome binary; empty uses the chromedp lookup.
	ExecPath string
}

// CookieSelectors are clicked in order until one succeeds.
var CookieSelectors = []string{
	`button[id*="accept"]`,
	`button[class*="accept"]`,
	`button[id*="cookie"]`,
	`button[class*="cookie"]`,
	`[id*="accept-cookies"]`,
	`[class*="accept-cookies"]`,
}

// CookieButtonTexts are matched case-insensitively against button text after
// the CSS selectors failed.
var CookieButtonTexts = []string{"Accept", "Accept All", "I Accept", "Allow", "Got it", "OK"}

const scrollScript = `new Promise((resolve) => {
	let total = 0;
	const step = 100;
	const timer = setInterval(() => {
		const height = document.body ? document.body.scrollHeight : 0;
		window.scrollBy(0, step);
		total += step;
		if (total >= height) {
			clearInterval(timer);
			resolve(true);
		}
	}, 100);
})`

const collectScript = `Array.from(document.querySelectorAll('a[href]')).map((a) => a.href)`

// ChromeSource renders a page in headless Chrome and returns every anchor
// target after the page settled and was scrolled to the bottom.
type ChromeSource struct {
	cfg         ChromeConfig
	logger      *zap.Logger
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewChromeSource prepares a browser allocator. Chrome starts lazily on the
// first call to Links.
func NewChromeSource(cfg ChromeConfig, logger *zap.Logger) *ChromeSource {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	if cfg.ClickTimeout <= 0 {
		cfg.ClickTimeout = 2 * time.Second
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 2 * time.Second
	}
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = 1280
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromeSource{
		cfg:         cfg,
		logger:      logger,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}
}

// Close shuts the browser down.
func (s *ChromeSource) Close() {
	s.allocCancel()
}

// Links implements LinkSource.
func (s *ChromeSource) Links(ctx context.Context, pageURL string) ([]string, error) {
	taskCtx, taskCancel := chromedp.NewContext(s.allocator)
	defer taskCancel()
	stop := context.AfterFunc(ctx, taskCancel)
	defer stop()

	if err := chromedp.Run(taskCtx,
		chromedp.EmulateViewport(s.cfg.ViewportWidth, s.cfg.ViewportHeight),
	); err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}

	s.logger.Info("navigating to portfolio page", zap.String("url", pageURL))
	if err := s.navigate(taskCtx, pageURL); err != nil {
		return nil, err
	}

	if selector, ok := s.dismissCookieBanner(taskCtx); ok {
		s.logger.Info("dismissed cookie banner", zap.String("selector", selector))
	}

	var links []string
	if err := chromedp.Run(taskCtx,
		chromedp.Sleep(s.cfg.SettleDelay),
		chromedp.Evaluate(scrollScript, nil, awaitPromise),
		chromedp.Evaluate(collectScript, &links),
	); err != nil {
		return nil, fmt.Errorf("collect portfolio links: %w", err)
	}
	s.logger.Info("collected portfolio links", zap.Int("links", len(links)))
	return links, nil
}

// navigate loads the page under the navigation timeout. Hitting the timeout
// is not fatal: whatever has loaded so far is used.
func (s *ChromeSource) navigate(taskCtx context.Context, pageURL string) error {
	navCtx, cancel := context.WithTimeout(taskCtx, s.cfg.NavigationTimeout)
	defer cancel()
	err := chromedp.Run(navCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded) && taskCtx.Err() == nil:
		s.logger.Warn("portfolio navigation timed out; continuing with partial page",
			zap.String("url", pageURL),
			zap.Duration("timeout", s.cfg.NavigationTimeout),
		)
		return nil
	default:
		return fmt.Errorf("navigate portfolio page: %w", err)
	}
}

// dismissCookieBanner clicks the first visible consent button it finds.
func (s *ChromeSource) dismissCookieBanner(taskCtx context.Context) (string, bool) {
	for _, sel := range CookieSelectors {
		if s.tryClick(taskCtx, sel, chromedp.ByQuery) {
			return sel, true
		}
	}
	for _, text := range CookieButtonTexts {
		sel := buttonTextXPath(text)
		if s.tryClick(taskCtx, sel, chromedp.BySearch) {
			return sel, true
		}
	}
	return "", false
}

func (s *ChromeSource) tryClick(taskCtx context.Context, sel string, by chromedp.QueryOption) bool {
	if taskCtx.Err() != nil {
		return false
	}
	clickCtx, cancel := context.WithTimeout(taskCtx, s.cfg.ClickTimeout)
	defer cancel()
	return chromedp.Run(clickCtx, chromedp.Click(sel, by, chromedp.NodeVisible)) == nil
}

// buttonTextXPath matches buttons whose text contains text, ignoring case.
func buttonTextXPath(text string) string {
	const upper, lower = "ABCDEFGHIJKLMNOPQRSTUVWXYZ", "abcdefghijklmnopqrstuvwxyz"
	return fmt.Sprintf(`//button[contains(translate(normalize-space(.), %q, %q), %q)]`,
		upper, lower, toLowerASCII(text))
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}
