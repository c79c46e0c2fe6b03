package transforms

import (
	"context"
	"strings"
	"unicode/utf8"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
	"git.home.luguber.info/inful/vaultsite/internal/markdown"
)

type description struct {
	length int
}

func newDescription(opts config.Options, _ Env) (Transformer, error) {
	return &description{length: opts.Int("description_length", 150)}, nil
}

func (*description) Name() string               { return string(KindDescription) }
func (*description) Stage() Stage               { return StageDerive }
func (*description) Dependencies() Dependencies { return Dependencies{} }

// Transform keeps an explicit front matter description and otherwise
// summarizes the body text.
func (d *description) Transform(_ context.Context, doc *document.Document, _ *Context) error {
	if fm := scalarString(doc.FrontMatter["description"]); fm != "" {
		doc.Description = fm
		return nil
	}
	if doc.AST == nil {
		return nil
	}
	doc.Description = Summarize(markdown.PlainText(doc.AST, doc.Source()), d.length)
	return nil
}

// Summarize shortens text to at most limit runes, preferring whole sentences,
// then whole words followed by an ellipsis.
func Summarize(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}

	var out strings.Builder
	for _, sentence := range splitSentences(text) {
		if utf8.RuneCountInString(out.String())+utf8.RuneCountInString(sentence) > limit {
			break
		}
		out.WriteString(sentence)
	}
	if s := strings.TrimSpace(out.String()); s != "" {
		return s
	}

	out.Reset()
	for _, word := range strings.Fields(text) {
		next := utf8.RuneCountInString(out.String()) + utf8.RuneCountInString(word) + 1
		if next > limit-1 {
			break
		}
		if out.Len() > 0 {
			out.WriteByte(' ')
		}
		out.WriteString(word)
	}
	if out.Len() == 0 {
		return string([]rune(text)[:limit-1]) + "…"
	}
	return out.String() + "…"
}

// splitSentences keeps the terminator and trailing space with each sentence.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' {
				out = append(out, text[start:i+2])
				start = i + 2
			}
		}
	}
	return append(out, text[start:])
}
