package llm

import (
	"regexp"
	"strings"
)

var (
	fenceOpenRegex  = regexp.MustCompile("(?s)^\\s*```(?:json)?\\s*\n?")
	fenceCloseRegex = regexp.MustCompile("(?s)\\s*```\\s*$")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	repeatedCommaRe = regexp.MustCompile(`,\s*,+`)
	controlCharRe   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// repairStep is one fix in the tolerant-repair pipeline.
type repairStep func(string) string

// repairPipeline is the ordered sequence from spec.md §4.5.1. Each step
// is applied in turn; ParseAnalysis re-attempts a strict JSON parse
// after every step and stops at the first success.
var repairPipeline = []repairStep{
	stripFence,
	removeTrailingCommas,
	collapseRepeatedCommas,
	stripControlChars,
	balanceBraces,
	largestBraceSubstring,
}

func stripFence(s string) string {
	s = fenceOpenRegex.ReplaceAllString(s, "")
	s = fenceCloseRegex.ReplaceAllString(s, "")
	return s
}

func removeTrailingCommas(s string) string {
	return trailingCommaRe.ReplaceAllString(s, "$1")
}

func collapseRepeatedCommas(s string) string {
	return repeatedCommaRe.ReplaceAllString(s, ",")
}

func stripControlChars(s string) string {
	return controlCharRe.ReplaceAllString(s, "")
}

// balanceBraces truncates to the last position at which braces and
// brackets are balanced, dropping a truncated trailing token.
func balanceBraces(s string) string {
	depth := 0
	lastBalanced := -1
	inString := false
	escaped := false

	for i, r := range s {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				depth++
			}
		case '}', ']':
			if !inString {
				depth--
				if depth == 0 {
					lastBalanced = i
				}
			}
		}
	}

	if lastBalanced == -1 {
		return s
	}
	return s[:lastBalanced+1]
}

// largestBraceSubstring extracts the text between the first '{' and
// the last '}', the final fallback when nothing else parses.
func largestBraceSubstring(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return s
	}
	return s[start : end+1]
}

// Repair applies the tolerant-repair pipeline to raw, returning the
// candidate string after each step so the caller can retry a strict
// JSON parse against each in turn. The final element is always the
// fully-repaired candidate.
func Repair(raw string) []string {
	candidates := make([]string, 0, len(repairPipeline)+1)
	current := raw
	for _, step := range repairPipeline {
		current = step(current)
		candidates = append(candidates, current)
	}
	return candidates
}
