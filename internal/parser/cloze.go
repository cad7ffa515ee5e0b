package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/conorfennell/recall/internal/domain"
)

// Span is a half-open byte-offset range into a cloze text, brackets
// included.
type Span struct {
	Start int
	End   int
}

// FindClozeRanges returns every bracketed span in the text, earliest
// first. Nested opening brackets are ignored until the pending span
// closes.
func FindClozeRanges(text string) []Span {
	var ranges []Span
	start := -1

	for i, ch := range text {
		switch ch {
		case '[':
			if start < 0 {
				start = i
			}
		case ']':
			if start >= 0 {
				ranges = append(ranges, Span{Start: start, End: i + 1})
				start = -1
			}
		}
	}

	return ranges
}

// MaskClozeText replaces the bracketed span with underscores so the
// hidden portion gives away nothing but a rough length. The placeholder
// is never shorter than three characters. A nil range leaves the text
// unchanged.
func MaskClozeText(text string, r *domain.ClozeRange) string {
	if r == nil {
		return text
	}
	hidden := text[r.Start:r.End]
	core := strings.TrimSuffix(strings.TrimPrefix(hidden, "["), "]")
	width := utf8.RuneCountInString(core)
	if width < 3 {
		width = 3
	}
	placeholder := strings.Repeat("_", width)

	return text[:r.Start] + "[" + placeholder + "]" + text[r.End:]
}
