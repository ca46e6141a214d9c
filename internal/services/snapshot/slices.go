package snapshot

import "github.com/a11yscan/auditor/internal/models"

// Each Slice* function is a per-axis projection over a BaseSnapshot
// (spec.md §4.3 "Slicing policy"). Every slicer returns a plain,
// JSON-serializable value — no goquery/DOM handles ever leave this
// package.

// PageRef scopes a slice entry back to the page it came from.
type PageRef struct {
	URL string `json:"url"`
}

// TextAlternativesSlice is the 1.1 axis slice: every image-like
// element with its accessible-name inputs.
type TextAlternativesSlice struct {
	Page   PageRef               `json:"page"`
	Images []models.ImageElement `json:"images"`
}

func SliceTextAlternatives(base *models.BaseSnapshot) interface{} {
	var out []TextAlternativesSlice
	for _, p := range base.Pages {
		if len(p.Images) == 0 {
			continue
		}
		out = append(out, TextAlternativesSlice{Page: PageRef{URL: p.URL}, Images: p.Images})
	}
	return out
}

// TimeBasedMediaSlice is the 1.2 axis slice.
type TimeBasedMediaSlice struct {
	Page  PageRef               `json:"page"`
	Media []models.MediaElement `json:"media"`
}

func SliceTimeBasedMedia(base *models.BaseSnapshot) interface{} {
	var out []TimeBasedMediaSlice
	for _, p := range base.Pages {
		if len(p.Media) == 0 {
			continue
		}
		out = append(out, TimeBasedMediaSlice{Page: PageRef{URL: p.URL}, Media: p.Media})
	}
	return out
}

// AdaptableSlice is the 1.3 axis slice: structural relationships.
type AdaptableSlice struct {
	Page      PageRef               `json:"page"`
	Headings  []models.Heading      `json:"headings"`
	Lists     []models.ListElement  `json:"lists"`
	Tables    []models.TableElement `json:"tables"`
	Forms     []models.FormElement  `json:"forms"`
	Landmarks []models.Landmark     `json:"landmarks"`
}

func SliceAdaptable(base *models.BaseSnapshot) interface{} {
	var out []AdaptableSlice
	for _, p := range base.Pages {
		out = append(out, AdaptableSlice{
			Page: PageRef{URL: p.URL}, Headings: p.Headings, Lists: p.Lists,
			Tables: p.Tables, Forms: p.Forms, Landmarks: p.Landmarks,
		})
	}
	return out
}

// DistinguishableSlice is the 1.4 axis slice: color/size/focus cues.
type DistinguishableSlice struct {
	Page       PageRef            `json:"page"`
	ColorPairs []models.ColorPair `json:"color_pairs"`
}

func SliceDistinguishable(base *models.BaseSnapshot) interface{} {
	var out []DistinguishableSlice
	for _, p := range base.Pages {
		out = append(out, DistinguishableSlice{Page: PageRef{URL: p.URL}, ColorPairs: p.ColorPairs})
	}
	return out
}

// KeyboardSlice is the 2.1 axis slice: interactive elements relevant
// to keyboard operability (forms and links carry tabbable semantics).
type KeyboardSlice struct {
	Page  PageRef              `json:"page"`
	Forms []models.FormElement `json:"forms"`
	Links []models.LinkElement `json:"links"`
}

func SliceKeyboard(base *models.BaseSnapshot) interface{} {
	var out []KeyboardSlice
	for _, p := range base.Pages {
		out = append(out, KeyboardSlice{Page: PageRef{URL: p.URL}, Forms: p.Forms, Links: p.Links})
	}
	return out
}

// EnoughTimeSlice is the 2.2 axis slice: anything that moves, scrolls
// or expires on its own.
type EnoughTimeSlice struct {
	Page               PageRef  `json:"page"`
	AnimatedOrAutoplay []string `json:"animated_or_autoplay"`
}

func SliceEnoughTime(base *models.BaseSnapshot) interface{} {
	var out []EnoughTimeSlice
	for _, p := range base.Pages {
		out = append(out, EnoughTimeSlice{Page: PageRef{URL: p.URL}, AnimatedOrAutoplay: p.AnimatedOrAutoplay})
	}
	return out
}

// SeizuresSlice is the 2.3 axis slice: flashing/autoplay media.
type SeizuresSlice struct {
	Page  PageRef               `json:"page"`
	Media []models.MediaElement `json:"media"`
}

func SliceSeizures(base *models.BaseSnapshot) interface{} {
	var out []SeizuresSlice
	for _, p := range base.Pages {
		var autoplaying []models.MediaElement
		for _, m := range p.Media {
			if m.Autoplay {
				autoplaying = append(autoplaying, m)
			}
		}
		if len(autoplaying) == 0 {
			continue
		}
		out = append(out, SeizuresSlice{Page: PageRef{URL: p.URL}, Media: autoplaying})
	}
	return out
}

// NavigableSlice is the 2.4 axis slice: headings, link texts,
// landmarks, skip links (spec.md §4.3 example).
type NavigableSlice struct {
	Page      PageRef              `json:"page"`
	Title     string               `json:"title"`
	Headings  []models.Heading     `json:"headings"`
	Links     []models.LinkElement `json:"links"`
	Landmarks []models.Landmark    `json:"landmarks"`
	SkipLinks []models.LinkElement `json:"skip_links"`
}

func SliceNavigable(base *models.BaseSnapshot) interface{} {
	var out []NavigableSlice
	for _, p := range base.Pages {
		out = append(out, NavigableSlice{
			Page: PageRef{URL: p.URL}, Title: p.Title, Headings: p.Headings,
			Links: p.Links, Landmarks: p.Landmarks, SkipLinks: p.SkipLinks,
		})
	}
	return out
}

// ReadableSlice is the 3.1 axis slice: language attributes and
// language switches, plus a markdown digest for prose-level checks.
type ReadableSlice struct {
	Page           PageRef  `json:"page"`
	Language       string   `json:"language"`
	LangSwitches   []string `json:"lang_switches"`
	MarkdownDigest string   `json:"markdown_digest"`
}

func SliceReadable(base *models.BaseSnapshot) interface{} {
	var out []ReadableSlice
	for _, p := range base.Pages {
		out = append(out, ReadableSlice{
			Page: PageRef{URL: p.URL}, Language: p.Language,
			LangSwitches: p.LangSwitches, MarkdownDigest: p.MarkdownDigest,
		})
	}
	return out
}

// PredictableSlice is the 3.2 axis slice: navigation consistency
// signals (landmarks/links repeated structure across pages).
type PredictableSlice struct {
	Page      PageRef              `json:"page"`
	Landmarks []models.Landmark    `json:"landmarks"`
	NavLinks  []models.LinkElement `json:"nav_links"`
}

func SlicePredictable(base *models.BaseSnapshot) interface{} {
	var out []PredictableSlice
	for _, p := range base.Pages {
		out = append(out, PredictableSlice{Page: PageRef{URL: p.URL}, Landmarks: p.Landmarks, NavLinks: p.Links})
	}
	return out
}

// InputAssistanceSlice is the 3.3 axis slice: form error handling.
type InputAssistanceSlice struct {
	Page  PageRef              `json:"page"`
	Forms []models.FormElement `json:"forms"`
}

func SliceInputAssistance(base *models.BaseSnapshot) interface{} {
	var out []InputAssistanceSlice
	for _, p := range base.Pages {
		if len(p.Forms) == 0 {
			continue
		}
		out = append(out, InputAssistanceSlice{Page: PageRef{URL: p.URL}, Forms: p.Forms})
	}
	return out
}

// CompatibleSlice is the 4.1 axis slice: markup validity signals
// (duplicate ids, ARIA role usage) relevant to parsing robustness.
type CompatibleSlice struct {
	Page      PageRef              `json:"page"`
	Landmarks []models.Landmark    `json:"landmarks"`
	Forms     []models.FormElement `json:"forms"`
}

type CompatibleSite struct {
	DuplicateIDs map[string][]string `json:"duplicate_ids"`
	Pages        []CompatibleSlice   `json:"pages"`
}

func SliceCompatible(base *models.BaseSnapshot) interface{} {
	site := CompatibleSite{DuplicateIDs: base.DuplicateIDs}
	for _, p := range base.Pages {
		site.Pages = append(site.Pages, CompatibleSlice{Page: PageRef{URL: p.URL}, Landmarks: p.Landmarks, Forms: p.Forms})
	}
	return site
}
