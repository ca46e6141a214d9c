package snapshot

import (
	"github.com/a11yscan/auditor/internal/models"
)

// Extractor turns a Crawl Result into the common BaseSnapshot that
// every axis slicer projects over (spec.md §4.3).
type Extractor struct{}

// New constructs an Extractor. It holds no state: every method is a
// pure function of its CrawlResult input, matching the invariant that
// the extractor's output stays plain JSON-serializable.
func New() *Extractor { return &Extractor{} }

// Extract normalizes every fetched page in cr into a BaseSnapshot.
func (e *Extractor) Extract(cr *models.CrawlResult) *models.BaseSnapshot {
	base := &models.BaseSnapshot{
		SiteURL:   cr.RootURL,
		PageCount: len(cr.Pages),
	}

	rawHTML := make(map[string]string, len(cr.Pages))
	for _, page := range cr.Pages {
		if !page.Fetched() {
			continue
		}
		rawHTML[page.URL] = page.HTML
		base.Pages = append(base.Pages, buildPageStructure(page))
	}

	base.DuplicateIDs = detectDuplicateIDs(base.Pages, rawHTML)
	return base
}
