package slug

import (
	"strconv"
	"strings"
	"unicode"
)

// HeadingIDs hands out GitHub-style heading anchors, deduplicated per document.
type HeadingIDs struct {
	seen map[string]int
}

// NewHeadingIDs returns an empty anchor allocator.
func NewHeadingIDs() *HeadingIDs {
	return &HeadingIDs{seen: make(map[string]int)}
}

// Next returns the anchor for a heading text. Repeated texts get -1, -2 suffixes.
func (h *HeadingIDs) Next(text string) string {
	base := Heading(text)
	n, dup := h.seen[base]
	h.seen[base] = n + 1
	if !dup {
		return base
	}
	for {
		candidate := base + "-" + strconv.Itoa(n)
		if _, taken := h.seen[candidate]; !taken {
			h.seen[candidate] = 1
			return candidate
		}
		n++
	}
}

// Heading lowercases text, drops punctuation and joins words with hyphens.
func Heading(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r), r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte('-')
		}
	}
	return b.String()
}
