// Package snapshot implements the Snapshot Extractor (spec.md §4.3):
// it normalizes crawled HTML into a structural/semantic model and
// derives the per-axis slices the Module Dispatcher hands to the LLM.
package snapshot

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/a11yscan/auditor/internal/models"
)

// iconFontClass matches common icon-font naming conventions (spec.md
// §4.3's "icon fonts identifiable by convention").
var iconFontClass = regexp.MustCompile(`(?i)\b(fa|fas|far|fab|material-icons|glyphicon|icon)-?[a-z0-9_-]*\b`)

// captchaMarker matches common CAPTCHA widget identifiers.
var captchaMarker = regexp.MustCompile(`(?i)captcha|recaptcha|hcaptcha`)

// buildPageStructure walks a page's DOM and produces the normalized
// PageStructure consumed by every axis slicer.
func buildPageStructure(page models.PageSnapshot) models.PageStructure {
	ps := models.PageStructure{
		URL:      page.URL,
		Title:    page.Title,
		Language: page.Language,
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return ps
	}

	ps.MarkdownDigest = digest(page.HTML, 4000)
	ps.Headings = extractHeadings(doc)
	ps.Images = extractImages(doc)
	ps.Media = extractMedia(doc)
	ps.Landmarks = extractLandmarks(doc)
	ps.Links, ps.SkipLinks = extractLinks(doc)
	ps.Forms = extractForms(doc)
	ps.Lists = extractLists(doc)
	ps.Tables = extractTables(doc)
	ps.ColorPairs = extractColorPairs(doc)
	ps.LangSwitches = extractLangSwitches(doc)
	ps.AnimatedOrAutoplay = extractAutoplayMarkers(doc)

	return ps
}

func extractHeadings(doc *goquery.Document) []models.Heading {
	var out []models.Heading
	doc.Find("h1,h2,h3,h4,h5,h6").Each(func(_ int, s *goquery.Selection) {
		level, _ := strconv.Atoi(strings.TrimPrefix(goquery.NodeName(s), "h"))
		id, _ := s.Attr("id")
		out = append(out, models.Heading{
			Level: level,
			Text:  strings.TrimSpace(s.Text()),
			ID:    id,
		})
	})
	return out
}

func extractImages(doc *goquery.Document) []models.ImageElement {
	var out []models.ImageElement

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		alt, hasAlt := s.Attr("alt")
		src, _ := s.Attr("src")
		role, _ := s.Attr("role")
		out = append(out, models.ImageElement{
			Tag:             "img",
			Source:          src,
			Alt:             alt,
			Role:            role,
			AriaLabel:       attrOr(s, "aria-label"),
			AriaDescribedBy: attrOr(s, "aria-describedby"),
			SurroundingText: strings.TrimSpace(s.Closest("figure,p,div").Text()),
			IsDecorative:    hasAlt && alt == "" || role == "presentation" || role == "none",
			IsCaptcha:       captchaMarker.MatchString(src) || captchaMarker.MatchString(attrOr(s, "class")),
		})
	})

	doc.Find(`svg[role="img"]`).Each(func(_ int, s *goquery.Selection) {
		out = append(out, models.ImageElement{
			Tag:       "svg",
			Role:      "img",
			AriaLabel: attrOr(s, "aria-label"),
			Alt:       strings.TrimSpace(s.Find("title").First().Text()),
		})
	})

	doc.Find("object").Each(func(_ int, s *goquery.Selection) {
		out = append(out, models.ImageElement{
			Tag:    "object",
			Source: attrOr(s, "data"),
			Alt:    strings.TrimSpace(s.Text()),
		})
	})

	doc.Find("i,span").Each(func(_ int, s *goquery.Selection) {
		class := attrOr(s, "class")
		if iconFontClass.MatchString(class) && strings.TrimSpace(s.Text()) == "" {
			out = append(out, models.ImageElement{
				Tag:          "icon-font",
				Source:       class,
				AriaLabel:    attrOr(s, "aria-label"),
				IsDecorative: attrOr(s, "aria-hidden") == "true",
			})
		}
	})

	return out
}

func extractMedia(doc *goquery.Document) []models.MediaElement {
	var out []models.MediaElement

	doc.Find("video,audio").Each(func(_ int, s *goquery.Selection) {
		var kinds []string
		s.Find("track").Each(func(_ int, t *goquery.Selection) {
			if kind := attrOr(t, "kind"); kind != "" {
				kinds = append(kinds, kind)
			}
		})
		source := attrOr(s, "src")
		if source == "" {
			source = attrOr(s.Find("source").First(), "src")
		}
		out = append(out, models.MediaElement{
			Tag:               goquery.NodeName(s),
			Source:            source,
			TrackKinds:        kinds,
			HasTranscriptLink: hasTranscriptSibling(s),
			Autoplay:          s.Is("[autoplay]"),
		})
	})

	doc.Find("iframe").Each(func(_ int, s *goquery.Selection) {
		src := attrOr(s, "src")
		provider := embedProvider(src)
		if provider == "" {
			return
		}
		out = append(out, models.MediaElement{
			Tag:               "embed",
			Provider:          provider,
			Source:            src,
			HasTranscriptLink: hasTranscriptSibling(s),
		})
	})

	return out
}

func embedProvider(src string) string {
	lower := strings.ToLower(src)
	switch {
	case strings.Contains(lower, "youtube.com"), strings.Contains(lower, "youtu.be"):
		return "youtube"
	case strings.Contains(lower, "vimeo.com"):
		return "vimeo"
	case strings.Contains(lower, "wistia.com"):
		return "wistia"
	default:
		return ""
	}
}

func hasTranscriptSibling(s *goquery.Selection) bool {
	found := false
	s.Parent().Find("a").Each(func(_ int, a *goquery.Selection) {
		if strings.Contains(strings.ToLower(a.Text()), "transcript") {
			found = true
		}
	})
	return found
}

var landmarkTags = map[string]string{
	"header": "banner", "footer": "contentinfo", "nav": "navigation",
	"main": "main", "aside": "complementary", "form": "form",
}

func extractLandmarks(doc *goquery.Document) []models.Landmark {
	var out []models.Landmark
	for tag, role := range landmarkTags {
		doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
			out = append(out, models.Landmark{Role: role, Name: attrOr(s, "aria-label")})
		})
	}
	doc.Find("[role]").Each(func(_ int, s *goquery.Selection) {
		role := attrOr(s, "role")
		switch role {
		case "banner", "contentinfo", "navigation", "main", "complementary", "search", "region":
			out = append(out, models.Landmark{Role: role, Name: attrOr(s, "aria-label")})
		}
	})
	return out
}

func extractLinks(doc *goquery.Document) (links, skip []models.LinkElement) {
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		text := strings.TrimSpace(s.Text())
		if text == "" {
			text = attrOr(s, "aria-label")
		}
		isSkip := strings.HasPrefix(href, "#") && strings.Contains(strings.ToLower(text), "skip")
		le := models.LinkElement{Text: text, Href: href, IsSkip: isSkip}
		links = append(links, le)
		if isSkip {
			skip = append(skip, le)
		}
	})
	return
}

func extractForms(doc *goquery.Document) []models.FormElement {
	var out []models.FormElement
	doc.Find("input,select,textarea").Each(func(_ int, s *goquery.Selection) {
		typ := attrOr(s, "type")
		if typ == "hidden" || typ == "submit" || typ == "button" {
			return
		}
		id := attrOr(s, "id")
		labelText := ""
		hasLabel := false
		if id != "" {
			label := doc.Find(`label[for="` + id + `"]`)
			if label.Length() > 0 {
				hasLabel = true
				labelText = strings.TrimSpace(label.Text())
			}
		}
		if !hasLabel {
			if parentLabel := s.Closest("label"); parentLabel.Length() > 0 {
				hasLabel = true
				labelText = strings.TrimSpace(parentLabel.Text())
			}
		}
		if ariaLabel := attrOr(s, "aria-label"); ariaLabel != "" {
			hasLabel = true
			labelText = ariaLabel
		}
		out = append(out, models.FormElement{
			Type:            goquery.NodeName(s),
			Name:            attrOr(s, "name"),
			LabelText:       labelText,
			HasLabel:        hasLabel,
			AriaDescribedBy: attrOr(s, "aria-describedby"),
			Required:        s.Is("[required]") || attrOr(s, "aria-required") == "true",
			HasErrorText:    attrOr(s, "aria-invalid") == "true" && attrOr(s, "aria-describedby") != "",
		})
	})
	return out
}

func extractLists(doc *goquery.Document) []models.ListElement {
	var out []models.ListElement
	doc.Find("ul,ol,dl").Each(func(_ int, s *goquery.Selection) {
		itemSelector := "li"
		if goquery.NodeName(s) == "dl" {
			itemSelector = "dt,dd"
		}
		out = append(out, models.ListElement{
			Type:  goquery.NodeName(s),
			Items: s.Find(itemSelector).Length(),
		})
	})
	return out
}

func extractTables(doc *goquery.Document) []models.TableElement {
	var out []models.TableElement
	doc.Find("table").Each(func(_ int, s *goquery.Selection) {
		out = append(out, models.TableElement{
			HasCaption:    s.Find("caption").Length() > 0,
			HasHeaderRow:  s.Find("th").Length() > 0,
			HasScopeAttrs: s.Find("th[scope]").Length() > 0,
			Rows:          s.Find("tr").Length(),
		})
	})
	return out
}

func extractColorPairs(doc *goquery.Document) []models.ColorPair {
	var out []models.ColorPair
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style := attrOr(s, "style")
		fg := styleValue(style, "color")
		bg := styleValue(style, "background-color")
		if fg == "" && bg == "" {
			return
		}
		fontSize := 0.0
		if sz := styleValue(style, "font-size"); sz != "" {
			fontSize = parsePx(sz)
		}
		out = append(out, models.ColorPair{
			Selector:   cssSelectorHint(s),
			Foreground: fg,
			Background: bg,
			FontSizePx: fontSize,
			Bold:       strings.Contains(style, "font-weight:bold") || strings.Contains(style, "font-weight: bold"),
		})
	})
	return out
}

func cssSelectorHint(s *goquery.Selection) string {
	if id := attrOr(s, "id"); id != "" {
		return "#" + id
	}
	if class := attrOr(s, "class"); class != "" {
		return "." + strings.Fields(class)[0]
	}
	return goquery.NodeName(s)
}

func styleValue(style, prop string) string {
	for _, decl := range strings.Split(style, ";") {
		parts := strings.SplitN(decl, ":", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.TrimSpace(parts[0]) == prop {
			return strings.TrimSpace(parts[1])
		}
	}
	return ""
}

func parsePx(v string) float64 {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func extractLangSwitches(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	var out []string
	doc.Find("[lang]").Each(func(_ int, s *goquery.Selection) {
		lang := attrOr(s, "lang")
		if lang != "" && !seen[lang] {
			seen[lang] = true
			out = append(out, lang)
		}
	})
	return out
}

func extractAutoplayMarkers(doc *goquery.Document) []string {
	var out []string
	doc.Find("[autoplay]").Each(func(_ int, s *goquery.Selection) {
		out = append(out, goquery.NodeName(s))
	})
	return out
}

func attrOr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return v
}

// detectDuplicateIDs returns, per id value, the URLs of pages where
// that id appears more than once within the same page (spec.md §4.3
// "duplicate-id detection").
func detectDuplicateIDs(pages []models.PageStructure, rawHTML map[string]string) map[string][]string {
	dupes := make(map[string][]string)
	for _, p := range pages {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML[p.URL]))
		if err != nil {
			continue
		}
		counts := make(map[string]int)
		doc.Find("[id]").Each(func(_ int, s *goquery.Selection) {
			counts[attrOr(s, "id")]++
		})
		for id, n := range counts {
			if n > 1 {
				dupes[id] = append(dupes[id], p.URL)
			}
		}
	}
	return dupes
}
