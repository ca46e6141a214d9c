package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func TestCrawlMaxPagesOne(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html lang="en"><head><title>Root</title></head><body><a href="/page2">next</a></body></html>`))
	}))
	defer srv.Close()

	c := New(Config{
		MaxPages:       1,
		RequestTimeout: 5 * time.Second,
		UserAgent:      "test-agent",
	}, testLogger())

	result, err := c.Crawl(t.Context(), srv.URL, 0)
	require.NoError(t, err)
	require.Len(t, result.Pages, 1)
	require.Equal(t, "Root", result.Pages[0].Title)
	require.Equal(t, "en", result.Pages[0].Language)
}

func TestCrawlFollowsSameOriginLinks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="/about">about</a><a href="https://external.example/x">ext</a></body></html>`))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>About</title></head><body>hi</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Config{MaxPages: 5, RequestTimeout: 5 * time.Second, UserAgent: "test-agent"}, testLogger())

	result, err := c.Crawl(t.Context(), srv.URL, 0)
	require.NoError(t, err)
	require.Len(t, result.Pages, 2)
}

func TestCrawlPerJobMaxPagesOverridesConfiguredDefault(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="/a">a</a><a href="/b">b</a></body></html>`))
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>a</body></html>`))
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>b</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Config{MaxPages: 10, RequestTimeout: 5 * time.Second, UserAgent: "test-agent"}, testLogger())

	result, err := c.Crawl(t.Context(), srv.URL, 1)
	require.NoError(t, err)
	require.Len(t, result.Pages, 1, "the per-job cap must win over the configured default")
	require.True(t, result.Truncated)
}

func TestCrawlRootUnreachableIsFatal(t *testing.T) {
	c := New(Config{MaxPages: 5, RequestTimeout: 500 * time.Millisecond, UserAgent: "test-agent"}, testLogger())

	_, err := c.Crawl(t.Context(), "http://127.0.0.1:1", 0)
	require.Error(t, err)
}

// denyAllRobotsPolicy stands in for a policy that parsed a disallow-all
// robots.txt; the root page is always fetched regardless (spec.md §4.2
// treats the submitted URL as the crawl's unconditional entry point).
type denyAllRobotsPolicy struct{}

func (denyAllRobotsPolicy) Allowed(context.Context, string) bool { return false }

func TestCrawlDedupsRootSelfLinkAfterRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Home</title></head><body><a href="/">home</a><a href="/about">about</a></body></html>`))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>About</title></head><body>hi</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Config{MaxPages: 5, RequestTimeout: 5 * time.Second, UserAgent: "test-agent"}, testLogger())

	// The root URL pre-redirects to "/"; the home page also links back to
	// itself post-redirect. Without re-seeding `visited` with the
	// post-redirect canonical form, that self-link would look "new" and the
	// home page would be fetched and appended a second time.
	result, err := c.Crawl(t.Context(), srv.URL+"/old", 0)
	require.NoError(t, err)
	require.Len(t, result.Pages, 2, "home page must not be fetched twice via its own post-redirect self-link")

	seen := map[string]int{}
	for _, p := range result.Pages {
		seen[CanonicalURL(mustParseURL(t, p.URL))]++
	}
	for u, n := range seen {
		require.Equal(t, 1, n, "page %s fetched more than once", u)
	}
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestCrawlConsultsRobotsPolicyForNonRootPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="/about">about</a></body></html>`))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>About</title></head><body>hi</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Config{
		MaxPages:       5,
		RequestTimeout: 5 * time.Second,
		UserAgent:      "test-agent",
		Robots:         denyAllRobotsPolicy{},
	}, testLogger())

	result, err := c.Crawl(t.Context(), srv.URL, 0)
	require.NoError(t, err)
	require.Len(t, result.Pages, 1, "the disallowed /about page must not be fetched")
}
