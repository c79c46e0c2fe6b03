// Package markdown configures goldmark for the vault dialect: wiki links,
// embeds, inline tags and TeX math are recognized by the parser as raw nodes,
// and the renderer knows how to print both raw and normalized forms.
package markdown

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	xhtml "golang.org/x/net/html"
)

// Dialect is the goldmark extension adding the vault syntax.
type Dialect struct {
	// Unsafe lets raw HTML and javascript: URLs through. Vaults are trusted input.
	Unsafe bool
}

// Extend implements goldmark.Extender.
func (d Dialect) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithInlineParsers(
			util.Prioritized(wikiLinkParser{}, 199),
			util.Prioritized(tagParser{}, 500),
			util.Prioritized(mathInlineParser{}, 500),
		),
		parser.WithBlockParsers(
			util.Prioritized(mathBlockParser{}, 650),
		),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(util.Prioritized(&nodeRenderer{unsafe: d.Unsafe}, 100)),
	)
}

// New returns the goldmark instance used for every document of a build.
// It is safe for concurrent use.
func New() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			Dialect{Unsafe: true},
		),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
}

// Parse parses a markdown body. A panic inside goldmark is returned as an error
// so a single pathological file cannot take the build down.
func Parse(md goldmark.Markdown, source []byte) (root ast.Node, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			root = nil
			err = fmt.Errorf("markdown parser panic: %v", rec)
		}
	}()
	return md.Parser().Parse(text.NewReader(source)), nil
}

// Render renders an AST to an HTML fragment.
func Render(md goldmark.Markdown, source []byte, root ast.Node) (out []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = fmt.Errorf("markdown renderer panic: %v", rec)
		}
	}()
	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, source, root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Collect returns all nodes under root for which match returns true, in
// document order. Callers mutate the tree only after collection finishes.
func Collect(root ast.Node, match func(ast.Node) bool) []ast.Node {
	var out []ast.Node
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && match(n) {
			out = append(out, n)
		}
		return ast.WalkContinue, nil
	})
	return out
}

// OfKind is a Collect matcher for a node kind.
func OfKind(kind ast.NodeKind) func(ast.Node) bool {
	return func(n ast.Node) bool { return n.Kind() == kind }
}

// Replace swaps old for replacement in old's parent.
func Replace(old, replacement ast.Node) {
	if parent := old.Parent(); parent != nil {
		parent.ReplaceChild(parent, old, replacement)
	}
}

var spaceBeforePunct = regexp.MustCompile(` +([.,;:!?])`)

// PlainText extracts the visible text of n. Code blocks and embeds are
// skipped, math contributes the text of its MathML, blocks are separated by a
// single space and runs of whitespace are collapsed.
func PlainText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if node.Type() == ast.TypeBlock {
				b.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *HighlightedCode, *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			b.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		case *ast.AutoLink:
			b.Write(v.Label(source))
		case *RawWikiLink:
			b.WriteString(v.Label())
		case *RawTag:
			b.WriteString("#" + v.Tag)
		case *TagLink:
			b.WriteString("#" + v.Tag)
		case *RawMath:
			b.WriteString(v.TeX)
		case *Math:
			b.WriteString(mathText(v.MathML, v.TeX))
		case *MathBlock:
			b.WriteString(mathText(v.MathML, v.TeX))
		case *Transclude:
			return ast.WalkSkipChildren, nil
		case *Callout:
			b.WriteString(v.Title)
			b.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	return spaceBeforePunct.ReplaceAllString(strings.Join(strings.Fields(b.String()), " "), "$1")
}

// mathText is the character content of rendered MathML, or the TeX source
// when conversion failed.
func mathText(mathML, tex string) string {
	if mathML == "" {
		return tex
	}
	var b strings.Builder
	z := xhtml.NewTokenizer(strings.NewReader(mathML))
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			return b.String()
		case xhtml.TextToken:
			b.Write(z.Text())
		}
	}
}
