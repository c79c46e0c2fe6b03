package transforms

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
	"git.home.luguber.info/inful/vaultsite/internal/git"
	"git.home.luguber.info/inful/vaultsite/internal/markdown"
	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

func TestFrontMatterCanonicalizesKnownKeys(t *testing.T) {
	doc := parseDoc(t, "notes/a.md", "---\n"+
		"title: Hello\n"+
		"tags: [A B, nested/x, A B]\n"+
		"aliases: old-name\n"+
		"draft: \"true\"\n"+
		"publish: true\n"+
		"cssclass: wide\n"+
		"description: Short\n"+
		"extra: 1\n"+
		"---\nbody\n")
	apply(t, mustNew(t, KindFrontMatter, nil), doc, nil)

	assert.Equal(t, "Hello", doc.Title)
	assert.Equal(t, []string{"A-B", "nested/x"}, doc.Tags)
	assert.Equal(t, []string{"old-name"}, doc.Aliases)
	assert.True(t, doc.Draft)
	require.NotNil(t, doc.Publish)
	assert.True(t, *doc.Publish)
	assert.Equal(t, []string{"wide"}, doc.CSSClasses)
	assert.Equal(t, "Short", doc.Description)
	assert.Equal(t, 1, doc.FrontMatter["extra"], "unknown keys pass through")
}

func TestFrontMatterTitleFallsBackToFileName(t *testing.T) {
	doc := parseDoc(t, "notes/My Note.md", "no front matter\n")
	apply(t, mustNew(t, KindFrontMatter, nil), doc, nil)
	assert.Equal(t, "My Note", doc.Title)
	assert.Equal(t, "notes/My-Note", string(doc.Slug))
}

type fakeDates struct {
	dates git.FileDates
	ok    bool
	err   error
}

func (f fakeDates) Dates(string) (git.FileDates, bool, error) { return f.dates, f.ok, f.err }

func newDatesWith(t *testing.T, src DateSource, priority ...string) Transformer {
	t.Helper()
	opts := config.Options{}
	if len(priority) > 0 {
		list := make([]any, 0, len(priority))
		for _, p := range priority {
			list = append(list, p)
		}
		opts["priority"] = list
	}
	tr, err := newDates(opts, Env{Dates: src})
	require.NoError(t, err)
	return tr
}

func TestDatesFrontMatterBeatsFilesystem(t *testing.T) {
	doc := parseDoc(t, "a.md", "---\ncreated: 2021-03-04\n---\nbody\n")
	doc.ModTime = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	apply(t, newDatesWith(t, nil), doc, nil)

	require.NotNil(t, doc.Dates.Created)
	assert.Equal(t, "2021-03-04", doc.Dates.Created.Format("2006-01-02"))
	require.NotNil(t, doc.Dates.Modified)
	assert.True(t, doc.Dates.Modified.Equal(doc.ModTime), "modified falls through to the filesystem")
	assert.Nil(t, doc.Dates.Published)
}

func TestDatesPriorityOrder(t *testing.T) {
	gitCreated := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	gitModified := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	src := fakeDates{dates: git.FileDates{Created: gitCreated, Modified: gitModified}, ok: true}

	doc := parseDoc(t, "a.md", "---\nmodified: 2023-05-05\n---\nbody\n")
	doc.FilePath = "/vault/a.md"
	apply(t, newDatesWith(t, src, "git", "frontmatter"), doc, nil)
	assert.True(t, doc.Dates.Modified.Equal(gitModified))
	assert.True(t, doc.Dates.Created.Equal(gitCreated))

	doc = parseDoc(t, "a.md", "---\nmodified: 2023-05-05\n---\nbody\n")
	doc.FilePath = "/vault/a.md"
	apply(t, newDatesWith(t, src, "frontmatter", "git"), doc, nil)
	assert.Equal(t, "2023-05-05", doc.Dates.Modified.Format("2006-01-02"))
	assert.True(t, doc.Dates.Created.Equal(gitCreated))
}

func TestDatesEmptyValueFallsThrough(t *testing.T) {
	doc := parseDoc(t, "a.md", "---\ncreated: \"\"\nmodified:\n---\nbody\n")
	doc.ModTime = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	apply(t, newDatesWith(t, nil), doc, nil)
	require.NotNil(t, doc.Dates.Created)
	assert.True(t, doc.Dates.Created.Equal(doc.ModTime))
	assert.Empty(t, doc.Warnings)
}

func TestDatesUnknownStaysUnset(t *testing.T) {
	doc := parseDoc(t, "a.md", "---\ncreated: not a date\n---\nbody\n")
	doc.FilePath = "/vault/a.md"
	apply(t, newDatesWith(t, fakeDates{err: errors.New("boom")}), doc, nil)
	assert.Nil(t, doc.Dates.Created)
	assert.Nil(t, doc.Dates.Modified)
	assert.Nil(t, doc.Dates.Published)
	assert.Len(t, doc.Warnings, 2)
}

func TestDatesRejectsUnknownSource(t *testing.T) {
	_, err := newDates(config.Options{"priority": []any{"frontmatter", "ntp"}}, Env{})
	assert.Error(t, err)
}

func TestObsidianWikiLinksBecomeLinks(t *testing.T) {
	doc := parseDoc(t, "a.md", "see [[Other Note#Some Heading|alias]] and [[b]]\n")
	apply(t, mustNew(t, KindObsidian, nil), doc, nil)

	links := markdown.Collect(doc.AST, markdown.OfKind(ast.KindLink))
	require.Len(t, links, 2)
	assert.Equal(t, "Other Note#some-heading", string(links[0].(*ast.Link).Destination))
	assert.Equal(t, "b", string(links[1].(*ast.Link).Destination))
	assert.Empty(t, markdown.Collect(doc.AST, markdown.OfKind(markdown.KindRawWikiLink)))
}

func TestObsidianCallouts(t *testing.T) {
	doc := parseDoc(t, "a.md", "> [!warning]- Be careful\n> body text\n\n> [!tldr]\n> short\n\n> plain quote\n")
	apply(t, mustNew(t, KindObsidian, nil), doc, nil)

	callouts := markdown.Collect(doc.AST, markdown.OfKind(markdown.KindCallout))
	require.Len(t, callouts, 2)
	first := callouts[0].(*markdown.Callout)
	assert.Equal(t, "warning", first.CalloutType)
	assert.Equal(t, "-", first.Fold)
	assert.Equal(t, "Be careful", first.Title)
	second := callouts[1].(*markdown.Callout)
	assert.Equal(t, "abstract", second.CalloutType)
	assert.Equal(t, "Tldr", second.Title)

	html := renderDoc(t, doc)
	assert.Contains(t, html, `class="callout warning is-collapsible is-collapsed"`)
	assert.Contains(t, html, "body text")
	assert.NotContains(t, html, "[!warning]")
	assert.Contains(t, html, "<blockquote>\n<p>plain quote</p>")
}

func TestObsidianInlineTags(t *testing.T) {
	doc := parseDoc(t, "a.md", "text #project/alpha here\n")
	apply(t, mustNew(t, KindObsidian, nil), doc, nil)
	assert.Equal(t, []string{"project/alpha"}, doc.Tags)
	assert.Contains(t, renderDoc(t, doc), `href="./tags/project/alpha"`)
}

func TestObsidianEmbeds(t *testing.T) {
	doc := parseDoc(t, "a.md", "![[pic.png|100x50]]\n\n![[other]]\n")
	apply(t, mustNew(t, KindObsidian, nil), doc, nil)

	images := markdown.Collect(doc.AST, markdown.OfKind(ast.KindImage))
	require.Len(t, images, 1)
	w, ok := images[0].AttributeString("width")
	require.True(t, ok)
	assert.Equal(t, []byte("100"), w)

	trans := markdown.Collect(doc.AST, markdown.OfKind(markdown.KindTransclude))
	require.Len(t, trans, 1)
	assert.Equal(t, ast.KindDocument, trans[0].Parent().Kind(), "a lone embed replaces its paragraph")
}

func TestObsidianOptionsDisableRewrites(t *testing.T) {
	doc := parseDoc(t, "a.md", "[[b]] #tag\n")
	apply(t, mustNew(t, KindObsidian, config.Options{"wikilinks": false, "parse_tags": false}), doc, nil)
	assert.Len(t, markdown.Collect(doc.AST, markdown.OfKind(markdown.KindRawWikiLink)), 1)
	assert.Empty(t, doc.Tags)
	assert.Equal(t, "<p>[[b]] #tag</p>\n", renderDoc(t, doc))
}

func TestGitHubHeadingIDs(t *testing.T) {
	doc := parseDoc(t, "a.md", "# Title\n\n## Sub Part\n\n## Sub Part\n")
	apply(t, mustNew(t, KindGitHub, nil), doc, nil)
	html := renderDoc(t, doc)
	assert.Contains(t, html, `<h1 id="title">`)
	assert.Contains(t, html, `id="sub-part"`)
	assert.Contains(t, html, `id="sub-part-1"`)
	assert.Contains(t, html, `href="#sub-part-1"`)

	// Running twice adds no second anchor.
	apply(t, mustNew(t, KindGitHub, nil), doc, nil)
	assert.Equal(t, html, renderDoc(t, doc))
}

func TestSyntaxHighlighting(t *testing.T) {
	doc := parseDoc(t, "a.md", "```go\nfunc main() {}\n```\n\n```notalanguage\nx < y\n```\n")
	apply(t, mustNew(t, KindSyntaxHighlight, nil), doc, nil)

	require.Len(t, markdown.Collect(doc.AST, markdown.OfKind(markdown.KindHighlightedCode)), 1)
	html := renderDoc(t, doc)
	assert.Contains(t, html, `data-language="go"`)
	assert.Contains(t, html, `data-theme="dark"`)
	assert.Contains(t, html, `<pre><code class="language-notalanguage">x &lt; y`)
}

func TestSyntaxHighlightingUnknownTheme(t *testing.T) {
	_, err := New(config.PluginConfig{
		Name:    string(KindSyntaxHighlight),
		Options: config.Options{"theme": map[string]any{"light": "no-such-theme"}},
	}, Env{})
	assert.Error(t, err)
}

func TestLatexFallsBackToRawText(t *testing.T) {
	doc := parseDoc(t, "a.md", "Euler $e^{i\\pi}+1=0$ and $\\unknownmacro{x}$\n\n$$\n\\frac{a}{b}\n$$\n")
	apply(t, mustNew(t, KindLatex, nil), doc, nil)

	maths := markdown.Collect(doc.AST, markdown.OfKind(markdown.KindMath))
	require.Len(t, maths, 2)
	assert.NotEmpty(t, maths[0].(*markdown.Math).MathML)
	assert.NotEmpty(t, maths[1].(*markdown.Math).Err)
	require.Len(t, markdown.Collect(doc.AST, markdown.OfKind(markdown.KindMathBlock)), 1)

	html := renderDoc(t, doc)
	assert.Contains(t, html, "<math")
	assert.Contains(t, html, "math-error")
	assert.Contains(t, html, `$\unknownmacro{x}$`)
}

func TestCrawlLinksClassifiesAndResolves(t *testing.T) {
	a := parseDoc(t, "notes/a.md", "[[b]] [[missing]] [ext](https://example.com) [top](#intro) ![[pic.png]] [md](../notes/b.md#part)\n")
	b := parseDoc(t, "archive/b.md", "# B\n")
	runChain(t, []slug.FullSlug{"attachments/pic.png"}, a, b)

	require.Len(t, a.Links, 6)
	byRaw := map[string]document.Link{}
	for _, l := range a.Links {
		byRaw[l.Raw] = l
	}

	bl := byRaw["b"]
	assert.Equal(t, document.LinkInternal, bl.Kind)
	assert.Equal(t, slug.FullSlug("archive/b"), bl.Target)
	assert.True(t, bl.Resolved)

	missing := byRaw["missing"]
	assert.True(t, missing.IsBroken())

	assert.Equal(t, document.LinkExternal, byRaw["https://example.com"].Kind)
	assert.Equal(t, document.LinkAnchor, byRaw["#intro"].Kind)

	pic := byRaw["pic.png"]
	assert.True(t, pic.Asset)
	assert.True(t, pic.Embed)
	assert.Equal(t, slug.FullSlug("attachments/pic.png"), pic.Target)

	md := byRaw["../notes/b.md#part"]
	assert.Equal(t, "part", md.Anchor)
	assert.False(t, md.Resolved, "notes/b does not exist")

	html := renderDoc(t, a)
	assert.Contains(t, html, `href="../archive/b"`)
	assert.Contains(t, html, `class="internal broken"`)
	assert.Contains(t, html, `class="external"`)
	assert.Contains(t, html, `src="../attachments/pic.png"`)
}

func TestCrawlLinksNeedsCorpus(t *testing.T) {
	doc := parseDoc(t, "a.md", "[[b]]\n")
	err := mustNew(t, KindCrawlLinks, nil).Transform(context.Background(), doc, &Context{})
	assert.ErrorIs(t, err, ErrNoCorpus)
}

func TestTableOfContents(t *testing.T) {
	doc := parseDoc(t, "a.md", "## One\n\n### Two\n\n#### Deep\n\n## Three\n")
	runChain(t, nil, doc)
	require.Len(t, doc.TOC, 3)
	assert.Equal(t, document.TOCEntry{Depth: 0, Text: "One", ID: "one"}, doc.TOC[0])
	assert.Equal(t, document.TOCEntry{Depth: 1, Text: "Two", ID: "two"}, doc.TOC[1])
	assert.Equal(t, "three", doc.TOC[2].ID)
}

func TestDescription(t *testing.T) {
	doc := parseDoc(t, "a.md", "---\ndescription: Given.\n---\nBody text.\n")
	runChain(t, nil, doc)
	assert.Equal(t, "Given.", doc.Description)

	doc = parseDoc(t, "b.md", "First sentence here. Second sentence is longer than the limit allows.\n")
	apply(t, mustNew(t, KindDescription, config.Options{"description_length": 30}), doc, nil)
	assert.Equal(t, "First sentence here.", doc.Description)
}

func TestDescriptionSkipsEmbedsAndRendersMath(t *testing.T) {
	doc := parseDoc(t, "c.md", "Links to [[d]] and ![[d]]. Growth is $\\alpha + 1$ per step.\n")
	embedded := parseDoc(t, "d.md", "Embedded body.\n")
	runChain(t, nil, doc, embedded)

	assert.True(t, strings.HasPrefix(doc.Description, "Links to d and. Growth is "), doc.Description)
	assert.Contains(t, doc.Description, "α")
	assert.NotContains(t, doc.Description, `\alpha`)
	assert.NotContains(t, doc.Description, "Embedded")
	assert.True(t, strings.HasSuffix(doc.Description, " per step."), doc.Description)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "short", Summarize("short", 10))
	assert.Equal(t, "one two…", Summarize("one two three four", 10))
	assert.Equal(t, "abcd…", Summarize("abcdefghijkl", 5))
}
