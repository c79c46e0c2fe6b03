package transforms

import (
	"context"

	"github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
	"git.home.luguber.info/inful/vaultsite/internal/markdown"
	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

// gitHub assigns heading ids and optional anchor links. Tables, task lists
// and strikethrough are handled by the goldmark GFM extension at parse time.
type gitHub struct {
	linkHeadings bool
}

func newGitHub(opts config.Options, _ Env) (Transformer, error) {
	return &gitHub{linkHeadings: opts.Bool("link_headings", true)}, nil
}

func (*gitHub) Name() string { return string(KindGitHub) }
func (*gitHub) Stage() Stage { return StageNormalize }
func (*gitHub) Dependencies() Dependencies {
	return Dependencies{MustRunAfter: []string{string(KindObsidian)}}
}

func (g *gitHub) Transform(_ context.Context, doc *document.Document, _ *Context) error {
	if doc.AST == nil {
		return nil
	}
	src := doc.Source()
	ids := slug.NewHeadingIDs()
	for _, n := range markdown.Collect(doc.AST, markdown.OfKind(ast.KindHeading)) {
		h := n.(*ast.Heading)
		id := ids.Next(markdown.PlainText(h, src))
		h.SetAttributeString("id", []byte(id))
		if !g.linkHeadings || hasHeadingAnchor(h) {
			continue
		}
		anchor := ast.NewLink()
		anchor.Destination = []byte("#" + id)
		anchor.SetAttributeString("role", []byte("anchor"))
		anchor.SetAttributeString("aria-hidden", []byte("true"))
		anchor.SetAttributeString("class", []byte("heading-anchor"))
		h.AppendChild(h, anchor)
	}
	return nil
}

func hasHeadingAnchor(h *ast.Heading) bool {
	link, ok := h.LastChild().(*ast.Link)
	return ok && isHeadingAnchor(link)
}

func isHeadingAnchor(link *ast.Link) bool {
	v, ok := link.AttributeString("role")
	if !ok {
		return false
	}
	b, _ := v.([]byte)
	return string(b) == "anchor"
}
