package checker

import (
	"testing"

	"github.com/a11yscan/auditor/internal/models"
	"github.com/stretchr/testify/require"
)

func TestCheckerFlagsMissingLangAndAlt(t *testing.T) {
	site := &models.BaseSnapshot{
		Pages: []models.PageStructure{
			{
				URL:   "https://example.com/",
				Title: "Home",
				Images: []models.ImageElement{
					{Tag: "img", Source: "/hero.png"},
				},
			},
		},
	}

	result := New().Run("job_1", site)
	_, _, violations := result.Counts()
	require.Greater(t, violations, 0)

	var sawLang, sawAlt bool
	for _, f := range result.Findings {
		if f.Rule == "missing-lang" && f.Severity == models.CheckViolation {
			sawLang = true
		}
		if f.Rule == "image-empty-alt-text" && f.Severity == models.CheckViolation {
			sawAlt = true
		}
	}
	require.True(t, sawLang)
	require.True(t, sawAlt)
}

func TestCheckerPassesCleanPage(t *testing.T) {
	site := &models.BaseSnapshot{
		Pages: []models.PageStructure{
			{
				URL:      "https://example.com/",
				Title:    "Home",
				Language: "en",
				Images: []models.ImageElement{
					{Tag: "img", Source: "/hero.png", Alt: "Hero banner"},
				},
			},
		},
	}

	result := New().Run("job_1", site)
	for _, f := range result.Findings {
		require.NotEqual(t, models.CheckViolation, f.Severity, f.Detail)
	}
}

func TestCheckerFlagsDuplicateIDs(t *testing.T) {
	site := &models.BaseSnapshot{
		DuplicateIDs: map[string][]string{"main": {"https://example.com/"}},
		Pages: []models.PageStructure{
			{URL: "https://example.com/", Title: "Home", Language: "en"},
		},
	}

	result := New().Run("job_1", site)
	var found bool
	for _, f := range result.Findings {
		if f.Rule == "duplicate-ids" {
			found = true
		}
	}
	require.True(t, found)
}
