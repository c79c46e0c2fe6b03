package transforms

import (
	"context"

	"github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
	"git.home.luguber.info/inful/vaultsite/internal/markdown"
)

// tableOfContents reads headings from the final tree. Depth is relative to the
// shallowest included heading, starting at 0.
type tableOfContents struct {
	maxDepth   int
	minEntries int
}

func newTableOfContents(opts config.Options, _ Env) (Transformer, error) {
	return &tableOfContents{
		maxDepth:   opts.Int("max_depth", 3),
		minEntries: opts.Int("min_entries", 1),
	}, nil
}

func (*tableOfContents) Name() string { return string(KindTableOfContents) }
func (*tableOfContents) Stage() Stage { return StageDerive }
func (*tableOfContents) Dependencies() Dependencies {
	return Dependencies{
		MustRunAfter: []string{string(KindGitHub)},
		Requires:     []string{string(KindGitHub)},
	}
}

func (t *tableOfContents) Transform(_ context.Context, doc *document.Document, _ *Context) error {
	doc.TOC = nil
	if doc.AST == nil {
		return nil
	}
	if v, ok := doc.FrontMatter["enableToc"]; ok && !document.Truthy(v) {
		return nil
	}
	src := doc.Source()
	var entries []document.TOCEntry
	shallowest := 7
	for _, n := range markdown.Collect(doc.AST, markdown.OfKind(ast.KindHeading)) {
		h := n.(*ast.Heading)
		if h.Level > t.maxDepth {
			continue
		}
		id := ""
		if v, ok := h.AttributeString("id"); ok {
			if b, ok := v.([]byte); ok {
				id = string(b)
			}
		}
		entries = append(entries, document.TOCEntry{Depth: h.Level, Text: markdown.PlainText(h, src), ID: id})
		shallowest = min(shallowest, h.Level)
	}
	if len(entries) < t.minEntries || len(entries) == 0 {
		return nil
	}
	for i := range entries {
		entries[i].Depth -= shallowest
	}
	doc.TOC = entries
	return nil
}
