package models

import "time"

// PageSnapshot is one fetched page in a Crawl Result (spec.md §3).
type PageSnapshot struct {
	URL        string        `json:"url"`
	StatusCode int           `json:"status_code"`
	FetchedAt  time.Time     `json:"fetched_at"`
	Elapsed    time.Duration `json:"elapsed"`
	Title      string        `json:"title"`
	Language   string        `json:"lang"`
	HTML       string        `json:"html"`
	Rendered   bool          `json:"rendered"` // true if the JS-rendering fallback produced this HTML
	Error      string        `json:"error,omitempty"`
}

// Fetched reports whether the page was retrieved (even if the status
// code indicates an HTTP error); Error is set only for transport/fetch
// failures, not for 4xx/5xx the server returned.
func (p *PageSnapshot) Fetched() bool {
	return p.Error == ""
}

// CrawlResult is the ordered list of pages produced by the Crawler
// (spec.md §3, §4.2). Pages[0] is always the root page after redirects.
type CrawlResult struct {
	RootURL    string         `json:"root_url"`
	Pages      []PageSnapshot `json:"pages"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Truncated  bool           `json:"truncated"` // page cap or budget reached before the queue drained
}

// FailedPageCount returns the number of pages recorded with a fetch error.
func (c *CrawlResult) FailedPageCount() int {
	n := 0
	for _, p := range c.Pages {
		if !p.Fetched() {
			n++
		}
	}
	return n
}
