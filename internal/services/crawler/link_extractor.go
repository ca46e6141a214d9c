package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractSameOriginLinks returns the set of same-origin absolute URLs
// discovered in doc, resolved against base. Only http/https anchor
// targets are considered; fragments, javascript:, mailto: and similar
// pseudo-protocols are skipped (spec.md §4.2).
func extractSameOriginLinks(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]bool)
	var links []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" || shouldSkipHref(href) {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		if resolved.Host != base.Host {
			return
		}
		canon := CanonicalURL(resolved)
		if !seen[canon] {
			seen[canon] = true
			links = append(links, canon)
		}
	})

	return links
}

func shouldSkipHref(href string) bool {
	h := strings.ToLower(strings.TrimSpace(href))
	if h == "" || strings.HasPrefix(h, "#") {
		return true
	}
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "sms:", "data:", "ftp:"} {
		if strings.HasPrefix(h, prefix) {
			return true
		}
	}
	return false
}

// CanonicalURL normalizes a URL to scheme+host+path+sorted-query for
// deduplication (spec.md §4.2 "deduplicate by canonical URL").
func CanonicalURL(u *url.URL) string {
	clone := *u
	clone.Fragment = ""
	q := clone.Query()
	clone.RawQuery = q.Encode() // url.Values.Encode sorts by key
	if clone.Path == "" {
		clone.Path = "/"
	}
	return clone.Scheme + "://" + clone.Host + clone.Path + orQuerySuffix(clone.RawQuery)
}

func orQuerySuffix(q string) string {
	if q == "" {
		return ""
	}
	return "?" + q
}
