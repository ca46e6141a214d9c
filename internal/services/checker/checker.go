// Package checker implements the Automated Checker (spec.md §4.4): a
// set of deterministic, non-LLM rules run over a BaseSnapshot. Its
// findings are attached to every module's prompt as context.
// reducer.Reduce does not take them, so they do not affect the
// report's score or compliance level.
package checker

import (
	"fmt"

	"github.com/a11yscan/auditor/internal/models"
)

// Checker runs every registered rule over a BaseSnapshot.
type Checker struct {
	rules []rule
}

type rule struct {
	name string
	fn   func(site *models.BaseSnapshot) []models.CheckFinding
}

// New builds a Checker with the full default rule set.
func New() *Checker {
	c := &Checker{}
	c.rules = []rule{
		{name: "missing-lang", fn: checkMissingLang},
		{name: "duplicate-ids", fn: checkDuplicateIDs},
		{name: "image-empty-alt-text", fn: checkImagesMissingAlt},
		{name: "form-missing-label", fn: checkFormsMissingLabel},
		{name: "heading-level-skip", fn: checkHeadingSkips},
		{name: "empty-page-title", fn: checkEmptyTitle},
		{name: "table-missing-headers", fn: checkTablesMissingHeaders},
		{name: "no-skip-link", fn: checkNoSkipLink},
	}
	return c
}

// Run evaluates every rule over site and returns the combined result.
func (c *Checker) Run(jobID string, site *models.BaseSnapshot) *models.AutomatedCheckResult {
	result := &models.AutomatedCheckResult{JobID: jobID}
	for _, r := range c.rules {
		result.Findings = append(result.Findings, r.fn(site)...)
	}
	return result
}

func checkMissingLang(site *models.BaseSnapshot) []models.CheckFinding {
	var out []models.CheckFinding
	for _, p := range site.Pages {
		if p.Language == "" {
			out = append(out, models.CheckFinding{
				Rule: "missing-lang", Severity: models.CheckViolation, PageURL: p.URL,
				Detail: "document has no lang attribute on <html>",
			})
			continue
		}
		out = append(out, models.CheckFinding{
			Rule: "missing-lang", Severity: models.CheckPass, PageURL: p.URL,
			Detail: fmt.Sprintf("lang=%q", p.Language),
		})
	}
	return out
}

func checkDuplicateIDs(site *models.BaseSnapshot) []models.CheckFinding {
	var out []models.CheckFinding
	if len(site.DuplicateIDs) == 0 {
		return out
	}
	for id, urls := range site.DuplicateIDs {
		for _, u := range urls {
			out = append(out, models.CheckFinding{
				Rule: "duplicate-ids", Severity: models.CheckViolation, PageURL: u,
				Detail: fmt.Sprintf("id %q repeated within this page", id),
			})
		}
	}
	return out
}

func checkImagesMissingAlt(site *models.BaseSnapshot) []models.CheckFinding {
	var out []models.CheckFinding
	for _, p := range site.Pages {
		for _, img := range p.Images {
			if img.IsDecorative {
				continue
			}
			if img.Alt == "" && img.AriaLabel == "" {
				out = append(out, models.CheckFinding{
					Rule: "image-empty-alt-text", Severity: models.CheckViolation, PageURL: p.URL,
					Detail: fmt.Sprintf("%s element %q has no accessible name", img.Tag, img.Source),
				})
			}
		}
	}
	return out
}

func checkFormsMissingLabel(site *models.BaseSnapshot) []models.CheckFinding {
	var out []models.CheckFinding
	for _, p := range site.Pages {
		for _, f := range p.Forms {
			if f.Type == "hidden" || f.Type == "submit" || f.Type == "button" {
				continue
			}
			if !f.HasLabel {
				out = append(out, models.CheckFinding{
					Rule: "form-missing-label", Severity: models.CheckViolation, PageURL: p.URL,
					Detail: fmt.Sprintf("%s field %q has no bound label", f.Type, f.Name),
				})
			}
		}
	}
	return out
}

func checkHeadingSkips(site *models.BaseSnapshot) []models.CheckFinding {
	var out []models.CheckFinding
	for _, p := range site.Pages {
		prev := 0
		for _, h := range p.Headings {
			if prev > 0 && h.Level > prev+1 {
				out = append(out, models.CheckFinding{
					Rule: "heading-level-skip", Severity: models.CheckWarning, PageURL: p.URL,
					Detail: fmt.Sprintf("heading level jumps from h%d to h%d", prev, h.Level),
				})
			}
			prev = h.Level
		}
	}
	return out
}

func checkEmptyTitle(site *models.BaseSnapshot) []models.CheckFinding {
	var out []models.CheckFinding
	for _, p := range site.Pages {
		if p.Title == "" {
			out = append(out, models.CheckFinding{
				Rule: "empty-page-title", Severity: models.CheckViolation, PageURL: p.URL,
				Detail: "document has no <title>",
			})
		}
	}
	return out
}

func checkTablesMissingHeaders(site *models.BaseSnapshot) []models.CheckFinding {
	var out []models.CheckFinding
	for _, p := range site.Pages {
		for i, t := range p.Tables {
			if t.Rows <= 1 {
				continue
			}
			if !t.HasHeaderRow && !t.HasScopeAttrs {
				out = append(out, models.CheckFinding{
					Rule: "table-missing-headers", Severity: models.CheckViolation, PageURL: p.URL,
					Detail: fmt.Sprintf("table #%d has no header row or scope attributes", i),
				})
			}
		}
	}
	return out
}

func checkNoSkipLink(site *models.BaseSnapshot) []models.CheckFinding {
	var out []models.CheckFinding
	for _, p := range site.Pages {
		if len(p.Landmarks) == 0 {
			continue
		}
		if len(p.SkipLinks) == 0 {
			out = append(out, models.CheckFinding{
				Rule: "no-skip-link", Severity: models.CheckWarning, PageURL: p.URL,
				Detail: "page has landmark regions but no skip-to-content link",
			})
		}
	}
	return out
}
