package transforms

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
	"git.home.luguber.info/inful/vaultsite/internal/markdown"
	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

var calloutHeader = regexp.MustCompile(`^\[!([\w-]+)\]([+-]?)[ \t]*(.*)$`)

// calloutAliases folds alternative callout names onto the canonical type.
var calloutAliases = map[string]string{
	"summary":   "abstract",
	"tldr":      "abstract",
	"hint":      "tip",
	"important": "tip",
	"check":     "success",
	"done":      "success",
	"help":      "question",
	"faq":       "question",
	"caution":   "warning",
	"attention": "warning",
	"fail":      "failure",
	"missing":   "failure",
	"error":     "danger",
	"cite":      "quote",
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".svg": true, ".webp": true, ".avif": true,
}

var dimensions = regexp.MustCompile(`^(\d+)(?:x(\d+))?$`)

// obsidian rewrites the raw vault dialect into canonical nodes.
type obsidian struct {
	wikilinks bool
	callouts  bool
	embeds    bool
	parseTags bool
}

func newObsidian(opts config.Options, _ Env) (Transformer, error) {
	return &obsidian{
		wikilinks: opts.Bool("wikilinks", true),
		callouts:  opts.Bool("callouts", true),
		embeds:    opts.Bool("embeds", true),
		parseTags: opts.Bool("parse_tags", true),
	}, nil
}

func (*obsidian) Name() string { return string(KindObsidian) }
func (*obsidian) Stage() Stage { return StageNormalize }
func (*obsidian) Dependencies() Dependencies {
	return Dependencies{MustRunAfter: []string{string(KindFrontMatter)}}
}

func (o *obsidian) Transform(_ context.Context, doc *document.Document, _ *Context) error {
	if doc.AST == nil {
		return nil
	}
	src := doc.Source()
	if o.callouts {
		for _, n := range markdown.Collect(doc.AST, markdown.OfKind(ast.KindBlockquote)) {
			o.rewriteCallout(n.(*ast.Blockquote), src)
		}
	}
	if o.wikilinks {
		for _, n := range markdown.Collect(doc.AST, markdown.OfKind(markdown.KindRawWikiLink)) {
			o.rewriteWikiLink(n.(*markdown.RawWikiLink))
		}
	}
	if o.parseTags {
		for _, n := range markdown.Collect(doc.AST, markdown.OfKind(markdown.KindRawTag)) {
			raw := n.(*markdown.RawTag)
			tag := slug.Tag(raw.Tag)
			if tag == "" {
				continue
			}
			doc.AddTag(tag)
			markdown.Replace(raw, &markdown.TagLink{
				Tag: raw.Tag,
				URL: slug.Relative(doc.Slug, slug.FullSlug("tags/"+tag)),
			})
		}
	}
	return nil
}

func (o *obsidian) rewriteWikiLink(n *markdown.RawWikiLink) {
	anchor := wikiAnchor(n.Anchor)
	if !n.Embed {
		link := ast.NewLink()
		dest := n.Target
		if anchor != "" {
			dest += "#" + anchor
		}
		link.Destination = []byte(dest)
		link.AppendChild(link, ast.NewString([]byte(n.Label())))
		markdown.Replace(n, link)
		return
	}
	if !o.embeds {
		return
	}

	ext := strings.ToLower(path.Ext(n.Target))
	switch {
	case imageExtensions[ext]:
		link := ast.NewLink()
		link.Destination = []byte(n.Target)
		img := ast.NewImage(link)
		alt := n.Alias
		if m := dimensions.FindStringSubmatch(n.Alias); m != nil {
			alt = ""
			img.SetAttributeString("width", []byte(m[1]))
			if m[2] != "" {
				img.SetAttributeString("height", []byte(m[2]))
			}
		}
		if alt != "" {
			img.AppendChild(img, ast.NewString([]byte(alt)))
		}
		markdown.Replace(n, img)
	case ext == "" || ext == ".md":
		tr := &markdown.Transclude{Target: n.Target, Anchor: anchor, Label: n.Label()}
		if p, ok := n.Parent().(*ast.Paragraph); ok && p.ChildCount() == 1 {
			markdown.Replace(p, tr)
			return
		}
		markdown.Replace(n, tr)
	default:
		link := ast.NewLink()
		link.Destination = []byte(n.Target)
		link.SetAttributeString("data-embed", []byte("file"))
		link.AppendChild(link, ast.NewString([]byte(n.Label())))
		markdown.Replace(n, link)
	}
}

// wikiAnchor turns a heading reference into its element id. Block references
// (^id) are kept verbatim.
func wikiAnchor(anchor string) string {
	if anchor == "" || strings.HasPrefix(anchor, "^") {
		return anchor
	}
	return slug.Heading(anchor)
}

func (*obsidian) rewriteCallout(bq *ast.Blockquote, src []byte) {
	para, ok := bq.FirstChild().(*ast.Paragraph)
	if !ok {
		return
	}

	var (
		header    []ast.Node
		firstLine strings.Builder
	)
	for c := para.FirstChild(); c != nil; c = c.NextSibling() {
		header = append(header, c)
		if t, ok := c.(*ast.Text); ok {
			firstLine.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				break
			}
			continue
		}
		firstLine.WriteString(markdown.PlainText(c, src))
	}
	m := calloutHeader.FindStringSubmatch(strings.TrimSpace(firstLine.String()))
	if m == nil {
		return
	}

	kind := strings.ToLower(m[1])
	if alias, ok := calloutAliases[kind]; ok {
		kind = alias
	}
	callout := &markdown.Callout{CalloutType: kind, Fold: m[2], Title: strings.TrimSpace(m[3])}
	if callout.Title == "" {
		callout.Title = cases.Title(language.Und).String(m[1])
	}

	for _, n := range header {
		para.RemoveChild(para, n)
	}
	if para.ChildCount() == 0 {
		bq.RemoveChild(bq, para)
	}
	for c := bq.FirstChild(); c != nil; {
		next := c.NextSibling()
		bq.RemoveChild(bq, c)
		callout.AppendChild(callout, c)
		c = next
	}
	markdown.Replace(bq, callout)
}
