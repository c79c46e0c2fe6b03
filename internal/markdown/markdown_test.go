package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark/ast"
)

func parse(t *testing.T, src string) ast.Node {
	t.Helper()
	root, err := Parse(New(), []byte(src))
	require.NoError(t, err)
	return root
}

func render(t *testing.T, src string, root ast.Node) string {
	t.Helper()
	out, err := Render(New(), []byte(src), root)
	require.NoError(t, err)
	return string(out)
}

func TestWikiLinksParseAsRawNodes(t *testing.T) {
	src := "see [[b#sec|Bee]] and ![[img.png]]\n"
	root := parse(t, src)

	nodes := Collect(root, OfKind(KindRawWikiLink))
	require.Len(t, nodes, 2)

	link := nodes[0].(*RawWikiLink)
	assert.Equal(t, "b", link.Target)
	assert.Equal(t, "sec", link.Anchor)
	assert.Equal(t, "Bee", link.Alias)
	assert.False(t, link.Embed)

	embed := nodes[1].(*RawWikiLink)
	assert.Equal(t, "img.png", embed.Target)
	assert.True(t, embed.Embed)

	// Unprocessed wiki links render as their source text.
	assert.Equal(t, "<p>see [[b#sec|Bee]] and ![[img.png]]</p>\n", render(t, src, root))
}

func TestRegularLinksStillParse(t *testing.T) {
	src := "[x](https://example.com) and ![alt](pic.png)\n"
	root := parse(t, src)
	assert.Empty(t, Collect(root, OfKind(KindRawWikiLink)))
	assert.Len(t, Collect(root, OfKind(ast.KindLink)), 1)
	assert.Len(t, Collect(root, OfKind(ast.KindImage)), 1)
}

func TestWikiLinkInTableAcceptsEscapedPipe(t *testing.T) {
	src := "| a | b |\n| - | - |\n| [[note\\|Alias]] | x |\n"
	root := parse(t, src)
	nodes := Collect(root, OfKind(KindRawWikiLink))
	require.Len(t, nodes, 1)
	assert.Equal(t, "note", nodes[0].(*RawWikiLink).Target)
	assert.Equal(t, "Alias", nodes[0].(*RawWikiLink).Alias)
}

func TestParseWikiLinkLabel(t *testing.T) {
	assert.Equal(t, "b", ParseWikiLink("b").Label())
	assert.Equal(t, "b > h", ParseWikiLink("b#h").Label())
	assert.Equal(t, "h", ParseWikiLink("#h").Label())
	assert.Equal(t, "x", ParseWikiLink("b#h|x").Label())
}

func TestInlineTags(t *testing.T) {
	root := parse(t, "hello #tag/sub and a#notag and #123 and #emoji-ok\n")
	var tags []string
	for _, n := range Collect(root, OfKind(KindRawTag)) {
		tags = append(tags, n.(*RawTag).Tag)
	}
	assert.Equal(t, []string{"tag/sub", "emoji-ok"}, tags)
}

func TestHeadingIsNotATag(t *testing.T) {
	root := parse(t, "# Heading\n\n#real\n")
	nodes := Collect(root, OfKind(KindRawTag))
	require.Len(t, nodes, 1)
	assert.Equal(t, "real", nodes[0].(*RawTag).Tag)
	assert.Len(t, Collect(root, OfKind(ast.KindHeading)), 1)
}

func TestInlineMath(t *testing.T) {
	root := parse(t, "energy $E = mc^2$ costs $5 and $10, display $$a+b$$\n")
	nodes := Collect(root, OfKind(KindRawMath))
	require.Len(t, nodes, 2)
	assert.Equal(t, "E = mc^2", nodes[0].(*RawMath).TeX)
	assert.False(t, nodes[0].(*RawMath).Display)
	assert.Equal(t, "a+b", nodes[1].(*RawMath).TeX)
	assert.True(t, nodes[1].(*RawMath).Display)
}

func TestMathBlock(t *testing.T) {
	src := "intro\n\n$$\n\\frac{a}{b}\n$$\n\nafter\n"
	root := parse(t, src)
	nodes := Collect(root, OfKind(KindRawMathBlock))
	require.Len(t, nodes, 1)
	assert.Equal(t, `\frac{a}{b}`, strings.TrimSpace(nodes[0].(*RawMathBlock).TeX([]byte(src))))

	single := "$$x^2$$\n"
	root = parse(t, single)
	nodes = Collect(root, OfKind(KindRawMathBlock))
	require.Len(t, nodes, 1)
	assert.Equal(t, "x^2", nodes[0].(*RawMathBlock).TeX([]byte(single)))
}

func TestLinkRendererWritesAttributes(t *testing.T) {
	src := "[x](https://example.com/a)\n"
	root := parse(t, src)
	links := Collect(root, OfKind(ast.KindLink))
	require.Len(t, links, 1)
	links[0].SetAttributeString("class", []byte("external"))
	links[0].SetAttributeString("data-slug", []byte("a"))

	out := render(t, src, root)
	assert.Equal(t, `<p><a href="https://example.com/a" class="external" data-slug="a">x</a></p>`+"\n", out)
}

func TestCustomNodeRendering(t *testing.T) {
	src := "para\n"
	root := parse(t, src)
	para := root.FirstChild()

	callout := &Callout{CalloutType: "warning", Title: "Careful <now>", Fold: "-"}
	root.InsertBefore(root, para, callout)
	root.RemoveChild(root, para)
	callout.AppendChild(callout, para)

	root.AppendChild(root, &Transclude{URL: "./b", Target: "b", Anchor: "sec", Label: "b"})
	root.AppendChild(root, &MathBlock{TeX: `\bad`, Err: "unknown command"})

	out := render(t, src, root)
	assert.Contains(t, out, `<blockquote class="callout warning is-collapsible is-collapsed" data-callout="warning" data-callout-fold="-">`)
	assert.Contains(t, out, `Careful &lt;now&gt;`)
	assert.Contains(t, out, "<p>para</p>")
	assert.Contains(t, out, `<blockquote class="transclude" data-url="./b" data-slug="b" data-block="#sec">`)
	assert.Contains(t, out, `<div class="math math-display math-error" title="unknown command">$$\bad$$</div>`)
}

func TestPlainText(t *testing.T) {
	src := "# Title\n\nSome *emphasis* and [[b|a link]].\n\n```go\ncode()\n```\n\nLast   line #tag\n"
	root := parse(t, src)
	assert.Equal(t, "Title Some emphasis and a link. Last line #tag", PlainText(root, []byte(src)))
}

func TestMathText(t *testing.T) {
	mathML, err := TeXToMathML(`\alpha + 1`, false)
	require.NoError(t, err)
	assert.Equal(t, "α+1", mathText(mathML, `\alpha + 1`))
	assert.Equal(t, `\bad`, mathText("", `\bad`))
}
