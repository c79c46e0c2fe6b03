package transforms

import (
	"context"
	"strings"

	"github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
	"git.home.luguber.info/inful/vaultsite/internal/markdown"
)

type syntaxHighlighting struct {
	hl *markdown.Highlighter
}

func newSyntaxHighlighting(opts config.Options, _ Env) (Transformer, error) {
	hl, err := HighlighterFromOptions(opts)
	if err != nil {
		return nil, err
	}
	return &syntaxHighlighting{hl: hl}, nil
}

// HighlighterFromOptions builds the highlighter described by the
// syntax_highlighting options (theme.light, theme.dark).
func HighlighterFromOptions(opts config.Options) (*markdown.Highlighter, error) {
	theme := opts.Sub("theme")
	return markdown.NewHighlighter(
		theme.String("light", markdown.DefaultLightTheme),
		theme.String("dark", markdown.DefaultDarkTheme),
	)
}

func (*syntaxHighlighting) Name() string               { return string(KindSyntaxHighlight) }
func (*syntaxHighlighting) Stage() Stage               { return StageMarkup }
func (*syntaxHighlighting) Dependencies() Dependencies { return Dependencies{} }

// Transform replaces fenced code with a known language by highlighted
// markup. Unknown languages are left as plain preformatted text.
func (s *syntaxHighlighting) Transform(_ context.Context, doc *document.Document, _ *Context) error {
	if doc.AST == nil {
		return nil
	}
	src := doc.Source()
	for _, n := range markdown.Collect(doc.AST, markdown.OfKind(ast.KindFencedCodeBlock)) {
		block := n.(*ast.FencedCodeBlock)
		lang := strings.ToLower(string(block.Language(src)))
		if !s.hl.Supports(lang) {
			continue
		}
		var code strings.Builder
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			code.Write(seg.Value(src))
		}
		light, dark, err := s.hl.Highlight(lang, code.String())
		if err != nil {
			doc.Warnf("code block left unhighlighted: %v", err)
			continue
		}
		markdown.Replace(block, &markdown.HighlightedCode{Language: lang, Light: light, Dark: dark})
	}
	return nil
}
