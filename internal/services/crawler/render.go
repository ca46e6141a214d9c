package crawler

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// jsRenderer renders a page through headless Chrome for single-page-app
// shells a static fetch can't meaningfully parse (spec.md §4.2's
// implicit allowance for "implementer's policy" on dynamic pages;
// grounded on the teacher's ChromeDPPool in
// internal/services/crawler/chromedp_pool.go, trimmed to no pool at
// all since §5 requires the crawl to stay sequential per job). Each
// render call starts its own exec allocator and browser context; no
// allocator is shared across calls.
type jsRenderer struct {
	userAgent string
	waitTime  time.Duration
	logger    arbor.ILogger
}

func newJSRenderer(userAgent string, waitTime time.Duration, logger arbor.ILogger) *jsRenderer {
	if waitTime <= 0 {
		waitTime = 2 * time.Second
	}
	return &jsRenderer{userAgent: userAgent, waitTime: waitTime, logger: logger}
}

// render navigates to rawURL and returns the post-render outer HTML.
func (r *jsRenderer) render(ctx context.Context, rawURL string) (string, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.UserAgent(r.userAgent),
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
		)...,
	)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	// Only the hydrated DOM matters here; media bytes are dead weight
	// for a structural snapshot, so they are blocked at the protocol
	// level before navigation.
	var html string
	err := chromedp.Run(browserCtx,
		network.Enable(),
		network.SetBlockedURLs([]string{"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.woff", "*.woff2", "*.mp4"}),
		chromedp.Navigate(rawURL),
		chromedp.Sleep(r.waitTime),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}

// needsRender is a crude heuristic: pages whose extracted body text is
// implausibly small relative to document byte size are assumed to be
// SPA shells awaiting client-side hydration.
func needsRender(htmlLen, textLen int, minRatio float64) bool {
	if htmlLen == 0 {
		return false
	}
	if textLen == 0 {
		return true
	}
	return float64(textLen)/float64(htmlLen) < minRatio
}
