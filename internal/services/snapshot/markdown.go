package snapshot

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// digest renders a short markdown version of a page's HTML so the 3.1
// (Readable) slice can carry a token-light digest instead of raw HTML
// (SPEC_FULL.md §3). The 1.1 slice uses each image's surrounding text
// instead of the digest.
func digest(html string, maxRunes int) string {
	converter := md.NewConverter("", true, nil)
	out, err := converter.ConvertString(html)
	if err != nil || out == "" {
		return ""
	}
	out = strings.TrimSpace(out)
	if maxRunes > 0 {
		r := []rune(out)
		if len(r) > maxRunes {
			out = string(r[:maxRunes])
		}
	}
	return out
}
