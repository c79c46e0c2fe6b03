package markdown

import (
	"fmt"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// nodeRenderer renders the vault dialect nodes and overrides link rendering so
// that classification attributes set by transformers reach the output.
type nodeRenderer struct {
	unsafe bool
}

func (r *nodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindRawWikiLink, r.renderRawWikiLink)
	reg.Register(KindRawTag, r.renderRawTag)
	reg.Register(KindRawMath, r.renderRawMath)
	reg.Register(KindRawMathBlock, r.renderRawMathBlock)
	reg.Register(KindTransclude, r.renderTransclude)
	reg.Register(KindCallout, r.renderCallout)
	reg.Register(KindTagLink, r.renderTagLink)
	reg.Register(KindMath, r.renderMath)
	reg.Register(KindMathBlock, r.renderMathBlock)
	reg.Register(KindHighlightedCode, r.renderHighlightedCode)
	reg.Register(ast.KindLink, r.renderLink)
}

func (r *nodeRenderer) renderRawWikiLink(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.Write(util.EscapeHTML(node.(*RawWikiLink).Literal))
	}
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderRawTag(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("#")
		_, _ = w.Write(util.EscapeHTML([]byte(node.(*RawTag).Tag)))
	}
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderRawMath(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		n := node.(*RawMath)
		delim := "$"
		if n.Display {
			delim = "$$"
		}
		_, _ = w.WriteString(delim)
		_, _ = w.Write(util.EscapeHTML([]byte(n.TeX)))
		_, _ = w.WriteString(delim)
	}
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderRawMathBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("<p>$$")
		_, _ = w.Write(util.EscapeHTML([]byte(node.(*RawMathBlock).TeX(source))))
		_, _ = w.WriteString("$$</p>\n")
	}
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderTransclude(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	n := node.(*Transclude)
	href := n.URL
	block := ""
	if n.Anchor != "" {
		block = "#" + n.Anchor
		href += block
	}
	fmt.Fprintf(w, `<blockquote class="transclude" data-url="%s" data-slug="%s" data-block="%s">`,
		escape(n.URL), escape(n.Target), escape(block))
	fmt.Fprintf(w, `<a href="%s" class="transclude-inner">Transclude of %s</a></blockquote>`+"\n",
		escape(href), escape(n.Label))
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderCallout(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*Callout)
	if !entering {
		_, _ = w.WriteString("</div>\n</blockquote>\n")
		return ast.WalkContinue, nil
	}
	class := "callout " + n.CalloutType
	switch n.Fold {
	case "-":
		class += " is-collapsible is-collapsed"
	case "+":
		class += " is-collapsible"
	}
	fmt.Fprintf(w, `<blockquote class="%s" data-callout="%s"`, escape(class), escape(n.CalloutType))
	if n.Fold != "" {
		fmt.Fprintf(w, ` data-callout-fold="%s"`, escape(n.Fold))
	}
	fmt.Fprintf(w, ">\n"+`<div class="callout-title"><div class="callout-icon"></div><div class="callout-title-inner"><p>%s</p></div>`, escape(n.Title))
	if n.Fold != "" {
		_, _ = w.WriteString(`<div class="fold-callout-icon"></div>`)
	}
	_, _ = w.WriteString("</div>\n" + `<div class="callout-content">` + "\n")
	return ast.WalkContinue, nil
}

func (r *nodeRenderer) renderTagLink(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		n := node.(*TagLink)
		fmt.Fprintf(w, `<a href="%s" class="internal tag-link">#%s</a>`, escape(n.URL), escape(n.Tag))
	}
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderMath(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	n := node.(*Math)
	class := "math math-inline"
	delim := "$"
	if n.Display {
		class = "math math-display"
		delim = "$$"
	}
	writeMath(w, class, delim, n.TeX, n.MathML, n.Err, "span")
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderMathBlock(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		n := node.(*MathBlock)
		writeMath(w, "math math-display", "$$", n.TeX, n.MathML, n.Err, "div")
		_, _ = w.WriteString("\n")
	}
	return ast.WalkSkipChildren, nil
}

func writeMath(w util.BufWriter, class, delim, tex, mathML, errMsg, tag string) {
	if mathML != "" {
		fmt.Fprintf(w, `<%s class="%s">%s</%s>`, tag, class, mathML, tag)
		return
	}
	fmt.Fprintf(w, `<%s class="%s math-error" title="%s">%s%s%s</%s>`,
		tag, class, escape(errMsg), delim, escape(tex), delim, tag)
}

func (r *nodeRenderer) renderHighlightedCode(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	n := node.(*HighlightedCode)
	fmt.Fprintf(w, `<figure class="highlighted-code" data-language="%s">`+"\n", escape(n.Language))
	fmt.Fprintf(w, `<div data-theme="light">%s</div>`+"\n", n.Light)
	fmt.Fprintf(w, `<div data-theme="dark">%s</div>`+"\n", n.Dark)
	_, _ = w.WriteString("</figure>\n")
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderLink(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.Link)
	if !entering {
		_, _ = w.WriteString("</a>")
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString(`<a href="`)
	if r.unsafe || !html.IsDangerousURL(n.Destination) {
		_, _ = w.Write(util.EscapeHTML(util.URLEscape(n.Destination, true)))
	}
	_ = w.WriteByte('"')
	if n.Title != nil {
		_, _ = w.WriteString(` title="`)
		_, _ = w.Write(util.EscapeHTML(n.Title))
		_ = w.WriteByte('"')
	}
	for _, attr := range n.Attributes() {
		var value []byte
		switch v := attr.Value.(type) {
		case []byte:
			value = v
		case string:
			value = []byte(v)
		default:
			value = []byte(fmt.Sprint(v))
		}
		_ = w.WriteByte(' ')
		_, _ = w.Write(attr.Name)
		_, _ = w.WriteString(`="`)
		_, _ = w.Write(util.EscapeHTML(value))
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('>')
	return ast.WalkContinue, nil
}

func escape(s string) []byte {
	return util.EscapeHTML([]byte(s))
}
