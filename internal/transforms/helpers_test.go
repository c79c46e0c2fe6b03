package transforms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
	"git.home.luguber.info/inful/vaultsite/internal/markdown"
	"git.home.luguber.info/inful/vaultsite/internal/parser"
	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

var testMarkdown = markdown.New()

func parseDoc(t *testing.T, rel, content string) *document.Document {
	t.Helper()
	doc, err := parser.New(testMarkdown).Parse(parser.Input{RelativePath: rel, Content: []byte(content)})
	require.NoError(t, err)
	return doc
}

func renderDoc(t *testing.T, doc *document.Document) string {
	t.Helper()
	out, err := markdown.Render(testMarkdown, doc.Source(), doc.AST)
	require.NoError(t, err)
	return string(out)
}

func apply(t *testing.T, tr Transformer, doc *document.Document, tc *Context) {
	t.Helper()
	if tc == nil {
		tc = &Context{}
	}
	require.NoError(t, tr.Transform(context.Background(), doc, tc))
}

func mustNew(t *testing.T, kind Kind, opts config.Options) Transformer {
	t.Helper()
	tr, err := New(config.PluginConfig{Name: string(kind), Options: opts}, Env{})
	require.NoError(t, err)
	return tr
}

// runChain runs the default chain over docs with both phases and a barrier.
func runChain(t *testing.T, assets []slug.FullSlug, docs ...*document.Document) {
	t.Helper()
	chain, err := NewChain(config.DefaultTransformers(), Env{}, ChainOptions{Strict: true})
	require.NoError(t, err)
	ctx := context.Background()
	for _, d := range docs {
		require.NoError(t, chain.Run(ctx, PhaseDocument, d, &Context{}))
	}
	tc := &Context{Corpus: NewCorpus(docs, assets)}
	for _, d := range docs {
		require.NoError(t, chain.Run(ctx, PhaseCorpus, d, tc))
	}
}
