package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a11yscan/auditor/internal/models"
)

func sampleSnapshot() *models.BaseSnapshot {
	return &models.BaseSnapshot{
		SiteURL:   "https://example.com",
		PageCount: 2,
		DuplicateIDs: map[string][]string{
			"main-nav": {"https://example.com", "https://example.com/about"},
		},
		Pages: []models.PageStructure{
			{
				URL:      "https://example.com",
				Title:    "Example",
				Language: "en",
				Images:   []models.ImageElement{{Tag: "img", Source: "/logo.png"}},
				Forms:    []models.FormElement{{Type: "email", HasLabel: false}},
				Media:    []models.MediaElement{{Tag: "video", Autoplay: true}},
			},
			{
				URL:      "https://example.com/about",
				Title:    "About",
				Language: "en",
				Headings: []models.Heading{{Level: 1, Text: "About us"}},
			},
		},
	}
}

func TestSliceTextAlternativesSkipsPagesWithNoImages(t *testing.T) {
	base := sampleSnapshot()
	slice := SliceTextAlternatives(base).([]TextAlternativesSlice)
	require.Len(t, slice, 1)
	require.Equal(t, "https://example.com", slice[0].Page.URL)
	require.Len(t, slice[0].Images, 1)
}

func TestSliceSeizuresOnlyIncludesAutoplayingMedia(t *testing.T) {
	base := sampleSnapshot()
	base.Pages[1].Media = []models.MediaElement{{Tag: "audio", Autoplay: false}}
	slice := SliceSeizures(base).([]SeizuresSlice)
	require.Len(t, slice, 1)
	require.Equal(t, "https://example.com", slice[0].Page.URL)
}

func TestSliceInputAssistanceSkipsPagesWithNoForms(t *testing.T) {
	base := sampleSnapshot()
	slice := SliceInputAssistance(base).([]InputAssistanceSlice)
	require.Len(t, slice, 1)
	require.False(t, slice[0].Forms[0].HasLabel)
}

func TestSliceCompatibleCarriesSiteLevelDuplicateIDs(t *testing.T) {
	base := sampleSnapshot()
	site := SliceCompatible(base).(CompatibleSite)
	require.Contains(t, site.DuplicateIDs, "main-nav")
	require.Len(t, site.Pages, 2)
}

func TestSliceAdaptableIncludesEveryPageRegardlessOfContent(t *testing.T) {
	base := sampleSnapshot()
	slice := SliceAdaptable(base).([]AdaptableSlice)
	require.Len(t, slice, 2)
	require.Equal(t, "About us", slice[1].Headings[0].Text)
}
