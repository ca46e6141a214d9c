// Package crawler implements the bounded, same-origin breadth-first
// crawler described in spec.md §4.2.
package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/a11yscan/auditor/internal/common"
	"github.com/a11yscan/auditor/internal/models"
)

// Config bundles the crawler's tunables (spec.md §4.2).
type Config struct {
	MaxPages         int
	RequestTimeout   time.Duration
	TotalBudget      time.Duration
	UserAgent        string
	MaxRedirectDepth int
	EnableJSFallback bool
	JSRenderMinRatio float64
	PerDomainDelay   time.Duration
	Robots           RobotsPolicy // nil means AllowAllRobotsPolicy
}

// Crawler fetches up to MaxPages same-origin pages from a root URL.
type Crawler struct {
	cfg      Config
	client   *http.Client
	limiter  *rateLimiter
	renderer *jsRenderer
	robots   RobotsPolicy
	logger   arbor.ILogger
}

// New constructs a Crawler. logger must not be nil.
func New(cfg Config, logger arbor.ILogger) *Crawler {
	if cfg.MaxRedirectDepth <= 0 {
		cfg.MaxRedirectDepth = 5
	}
	robots := cfg.Robots
	if robots == nil {
		robots = AllowAllRobotsPolicy{}
	}
	client := &http.Client{
		Timeout: cfg.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirectDepth {
				return fmt.Errorf("stopped after %d redirects", cfg.MaxRedirectDepth)
			}
			return nil
		},
	}

	var renderer *jsRenderer
	if cfg.EnableJSFallback {
		renderer = newJSRenderer(cfg.UserAgent, 2*time.Second, logger)
	}

	return &Crawler{
		cfg:      cfg,
		client:   client,
		limiter:  newRateLimiter(cfg.PerDomainDelay),
		renderer: renderer,
		robots:   robots,
		logger:   logger,
	}
}

// Crawl performs the bounded BFS crawl (spec.md §4.2). maxPages, when
// positive, overrides the configured default so each job's plan-bounded
// page cap applies without rebuilding the crawler. A root-page fetch
// failure is fatal (CodeCrawlFatal); any other page's failure is
// recorded against that page and the crawl continues.
func (c *Crawler) Crawl(ctx context.Context, rootURL string, maxPages int) (*models.CrawlResult, error) {
	if maxPages <= 0 {
		maxPages = c.cfg.MaxPages
	}
	if maxPages <= 0 {
		maxPages = models.DefaultMaxPages
	}

	var deadline time.Time
	if c.cfg.TotalBudget > 0 {
		deadline = time.Now().Add(c.cfg.TotalBudget)
	}

	base, err := url.Parse(rootURL)
	if err != nil {
		return nil, common.WrapError(common.CodeCrawlFatal, "invalid root URL", err)
	}

	result := &models.CrawlResult{RootURL: rootURL, StartedAt: time.Now()}

	type queueItem struct {
		url   string
		depth int
	}
	visited := map[string]bool{CanonicalURL(base): true}
	queue := []queueItem{{url: rootURL, depth: 0}}

	for len(queue) > 0 {
		if len(result.Pages) >= maxPages {
			result.Truncated = len(queue) > 0
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			result.Truncated = true
			break
		}

		item := queue[0]
		queue = queue[1:]

		isRoot := len(result.Pages) == 0
		if !isRoot && !c.robots.Allowed(ctx, item.url) {
			continue
		}

		if err := c.limiter.wait(ctx, item.url); err != nil {
			break
		}

		page, links, fetchErr := c.fetchPage(ctx, item.url, base)

		if fetchErr != nil {
			if isRoot {
				return nil, common.WrapError(common.CodeCrawlFatal, "root page unreachable", fetchErr)
			}
			page.Error = fetchErr.Error()
		}

		if isRoot {
			result.RootURL = page.URL
			if fetchErr == nil {
				if finalRoot, parseErr := url.Parse(page.URL); parseErr == nil {
					// The root often redirects (http->https, apex->www); re-seed
					// visited with the post-redirect canonical form so a same-origin
					// self-link back to the home page isn't re-queued as "new" and
					// double-counted against maxPages.
					visited[CanonicalURL(finalRoot)] = true
				}
			}
		}

		result.Pages = append(result.Pages, *page)

		if fetchErr == nil {
			for _, link := range links {
				if !visited[link] {
					visited[link] = true
					queue = append(queue, queueItem{url: link, depth: item.depth + 1})
				}
			}
		}
	}

	result.FinishedAt = time.Now()
	return result, nil
}

// fetchPage fetches one page, applying the JS-render fallback, and
// returns its snapshot plus the same-origin links discovered in it.
func (c *Crawler) fetchPage(ctx context.Context, rawURL string, base *url.URL) (*models.PageSnapshot, []string, error) {
	policy := defaultRetryPolicy()

	var (
		html       string
		statusCode int
		finalURL   = rawURL
		fetchErr   error
		elapsed    time.Duration
	)

	for attempt := 0; attempt < policy.maxAttempts; attempt++ {
		start := time.Now()
		html, statusCode, finalURL, fetchErr = c.doFetch(ctx, rawURL)
		elapsed = time.Since(start)

		if fetchErr == nil && !policy.shouldRetry(attempt, statusCode, nil) {
			break
		}
		if fetchErr != nil && !policy.shouldRetry(attempt, statusCode, fetchErr) {
			break
		}

		select {
		case <-ctx.Done():
			return &models.PageSnapshot{URL: rawURL, FetchedAt: time.Now(), Error: ctx.Err().Error()}, nil, ctx.Err()
		case <-time.After(policy.backoff(attempt)):
		}
	}

	if fetchErr != nil {
		return &models.PageSnapshot{
			URL:       rawURL,
			FetchedAt: time.Now(),
			Elapsed:   elapsed,
			Error:     fetchErr.Error(),
		}, nil, fetchErr
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return &models.PageSnapshot{
			URL: finalURL, StatusCode: statusCode, FetchedAt: time.Now(), Elapsed: elapsed,
			Error: fmt.Sprintf("parsing HTML: %v", err),
		}, nil, err
	}

	rendered := false
	if c.renderer != nil && needsRender(len(html), len(strings.TrimSpace(doc.Text())), c.cfg.JSRenderMinRatio) {
		if renderedHTML, rerr := c.renderer.render(ctx, finalURL); rerr == nil {
			html = renderedHTML
			rendered = true
			if doc, err = goquery.NewDocumentFromReader(strings.NewReader(html)); err != nil {
				rendered = false
			}
		} else {
			c.logger.Debug().Err(rerr).Str("url", finalURL).Msg("JS render fallback failed, keeping static HTML")
		}
	}

	finalParsed, _ := url.Parse(finalURL)
	if finalParsed == nil {
		finalParsed = base
	}
	links := extractSameOriginLinks(doc, finalParsed)

	page := &models.PageSnapshot{
		URL:        finalURL,
		StatusCode: statusCode,
		FetchedAt:  time.Now(),
		Elapsed:    elapsed,
		Title:      strings.TrimSpace(doc.Find("title").First().Text()),
		Language:   htmlLangAttr(doc),
		HTML:       html,
		Rendered:   rendered,
	}

	return page, links, nil
}

func (c *Crawler) doFetch(ctx context.Context, rawURL string) (html string, statusCode int, finalURL string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, rawURL, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, rawURL, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", resp.StatusCode, resp.Request.URL.String(), err
	}

	return string(body), resp.StatusCode, resp.Request.URL.String(), nil
}

func htmlLangAttr(doc *goquery.Document) string {
	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		return lang
	}
	return ""
}
