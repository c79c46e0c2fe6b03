package markdown

import (
	"fmt"

	"github.com/yuin/goldmark/ast"
)

// Raw dialect nodes produced by the parser. Transformers replace them with the
// canonical nodes below; whatever is left over renders as the original text.
var (
	KindRawWikiLink  = ast.NewNodeKind("RawWikiLink")
	KindRawTag       = ast.NewNodeKind("RawTag")
	KindRawMath      = ast.NewNodeKind("RawMath")
	KindRawMathBlock = ast.NewNodeKind("RawMathBlock")
)

// Canonical nodes created by transformers.
var (
	KindTransclude      = ast.NewNodeKind("Transclude")
	KindCallout         = ast.NewNodeKind("Callout")
	KindTagLink         = ast.NewNodeKind("TagLink")
	KindMath            = ast.NewNodeKind("Math")
	KindHighlightedCode = ast.NewNodeKind("HighlightedCode")
)

// RawWikiLink is an unprocessed [[target#anchor|alias]] or ![[embed]].
type RawWikiLink struct {
	ast.BaseInline
	Target string
	Anchor string
	Alias  string
	Embed  bool
	// Literal is the exact source text, used when the link is left unprocessed.
	Literal []byte
}

// Kind implements ast.Node.
func (n *RawWikiLink) Kind() ast.NodeKind { return KindRawWikiLink }

// Dump implements ast.Node.
func (n *RawWikiLink) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Target": n.Target, "Anchor": n.Anchor, "Alias": n.Alias, "Embed": fmt.Sprint(n.Embed),
	}, nil)
}

// Label is the visible text of the link.
func (n *RawWikiLink) Label() string {
	switch {
	case n.Alias != "":
		return n.Alias
	case n.Target == "" && n.Anchor != "":
		return n.Anchor
	case n.Anchor != "":
		return n.Target + " > " + n.Anchor
	default:
		return n.Target
	}
}

// RawTag is an unprocessed inline #tag.
type RawTag struct {
	ast.BaseInline
	Tag string
}

// Kind implements ast.Node.
func (n *RawTag) Kind() ast.NodeKind { return KindRawTag }

// Dump implements ast.Node.
func (n *RawTag) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Tag": n.Tag}, nil)
}

// RawMath is unprocessed $inline$ or $$display$$ math inside a paragraph.
type RawMath struct {
	ast.BaseInline
	TeX     string
	Display bool
}

// Kind implements ast.Node.
func (n *RawMath) Kind() ast.NodeKind { return KindRawMath }

// Dump implements ast.Node.
func (n *RawMath) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"TeX": n.TeX}, nil)
}

// RawMathBlock is an unprocessed $$ fenced math block. Its lines hold the TeX.
type RawMathBlock struct {
	ast.BaseBlock
}

// Kind implements ast.Node.
func (n *RawMathBlock) Kind() ast.NodeKind { return KindRawMathBlock }

// IsRaw implements ast.Node.
func (n *RawMathBlock) IsRaw() bool { return true }

// Dump implements ast.Node.
func (n *RawMathBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// TeX returns the block content.
func (n *RawMathBlock) TeX(source []byte) string {
	var out []byte
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, seg.Value(source)...)
	}
	return string(out)
}

// Transclude embeds another document (or one of its sections) in place.
// Emitters expand it once every document has been rendered.
type Transclude struct {
	ast.BaseBlock
	URL    string // relative URL of the embedded page
	Target string // full slug of the embedded page
	Anchor string
	Label  string
}

// Kind implements ast.Node.
func (n *Transclude) Kind() ast.NodeKind { return KindTransclude }

// Dump implements ast.Node.
func (n *Transclude) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Target": n.Target, "Anchor": n.Anchor}, nil)
}

// Callout is an admonition block written as > [!type] Title.
type Callout struct {
	ast.BaseBlock
	CalloutType string
	Title       string
	// Fold is "" (not foldable), "+" (expanded) or "-" (collapsed).
	Fold string
}

// Kind implements ast.Node.
func (n *Callout) Kind() ast.NodeKind { return KindCallout }

// Dump implements ast.Node.
func (n *Callout) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Type": n.CalloutType, "Title": n.Title, "Fold": n.Fold}, nil)
}

// TagLink is an inline tag rewritten into a link to its tag page.
type TagLink struct {
	ast.BaseInline
	Tag string
	URL string
}

// Kind implements ast.Node.
func (n *TagLink) Kind() ast.NodeKind { return KindTagLink }

// Dump implements ast.Node.
func (n *TagLink) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Tag": n.Tag, "URL": n.URL}, nil)
}

// Math is rendered math. When conversion failed MathML is empty and TeX is
// displayed verbatim.
type Math struct {
	ast.BaseInline
	TeX     string
	MathML  string
	Display bool
	Err     string
}

// Kind implements ast.Node.
func (n *Math) Kind() ast.NodeKind { return KindMath }

// Dump implements ast.Node.
func (n *Math) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"TeX": n.TeX, "Err": n.Err}, nil)
}

// HighlightedCode replaces a fenced code block with pre-rendered markup for
// the light and dark palettes.
type HighlightedCode struct {
	ast.BaseBlock
	Language string
	Light    string
	Dark     string
}

// Kind implements ast.Node.
func (n *HighlightedCode) Kind() ast.NodeKind { return KindHighlightedCode }

// Dump implements ast.Node.
func (n *HighlightedCode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Language": n.Language}, nil)
}

// KindMathBlock is the display-math counterpart of KindMath.
var KindMathBlock = ast.NewNodeKind("MathBlock")

// MathBlock is rendered display math replacing a RawMathBlock.
type MathBlock struct {
	ast.BaseBlock
	TeX    string
	MathML string
	Err    string
}

// Kind implements ast.Node.
func (n *MathBlock) Kind() ast.NodeKind { return KindMathBlock }

// Dump implements ast.Node.
func (n *MathBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"TeX": n.TeX, "Err": n.Err}, nil)
}
