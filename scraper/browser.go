package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PageNavigator drives a single page: load a URL, wait for the network to go
// idle plus a settle delay for client-side rendering, and hand back the fully
// rendered markup.
type PageNavigator interface {
	Navigate(ctx context.Context, url string) (string, error)
	Close() error
}

// SessionFactory opens a fresh browser session. The orchestrator calls it
// once per run and guarantees Close on every exit path.
type SessionFactory func() (PageNavigator, error)

const (
	navigationTimeout = 60 * time.Second
	defaultSettle     = 10 * time.Second
)

// Sandboxing is disabled for container compatibility, GPU for headless.
var chromiumArgs = []string{
	"--disable-extensions",
	"--proxy-server='direct://'",
	"--proxy-bypass-list=*",
	"--disable-gpu",
	"--disable-dev-shm-usage",
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-web-security",
}

// BrowserSession is the playwright-backed PageNavigator. One session owns one
// headless Chromium and one page, reused serially across navigations.
type BrowserSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	settle  time.Duration
}

// NewBrowserSession launches an isolated headless Chromium with a single page.
func NewBrowserSession() (PageNavigator, error) {
	return NewBrowserSessionWithSettle(defaultSettle)
}

// NewBrowserSessionWithSettle launches a session with a custom settle delay.
func NewBrowserSessionWithSettle(settle time.Duration) (PageNavigator, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args:     chromiumArgs,
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	page, err := browser.NewPage()
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("create page: %w", err)
	}

	return &BrowserSession{pw: pw, browser: browser, page: page, settle: settle}, nil
}

// Navigate loads the URL, waits for network idle and the settle delay, and
// returns the rendered markup. Navigation failures surface as ErrPageLoad.
func (s *BrowserSession) Navigate(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrPageLoad{URL: url, Err: err}
	}

	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		Timeout: playwright.Float(float64(navigationTimeout.Milliseconds())),
	})
	if err != nil {
		return "", ErrPageLoad{URL: url, Err: err}
	}

	err = s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	})
	if err != nil {
		return "", ErrPageLoad{URL: url, Err: err}
	}

	s.page.WaitForTimeout(float64(s.settle.Milliseconds()))

	content, err := s.page.Content()
	if err != nil {
		return "", ErrPageLoad{URL: url, Err: err}
	}
	return content, nil
}

// Close tears the session down. Safe to call once per session.
func (s *BrowserSession) Close() error {
	if s.page != nil {
		s.page.Close()
	}
	if s.browser != nil {
		s.browser.Close()
	}
	if s.pw != nil {
		return s.pw.Stop()
	}
	return nil
}
