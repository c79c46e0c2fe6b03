package transforms

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
)

type mockTransformer struct {
	name  string
	stage Stage
	deps  Dependencies
	calls *[]string
}

func (m mockTransformer) Name() string               { return m.name }
func (m mockTransformer) Stage() Stage               { return m.stage }
func (m mockTransformer) Dependencies() Dependencies { return m.deps }
func (m mockTransformer) Transform(context.Context, *document.Document, *Context) error {
	if m.calls != nil {
		*m.calls = append(*m.calls, m.name)
	}
	return nil
}

func plugins(names ...string) []config.PluginConfig {
	out := make([]config.PluginConfig, 0, len(names))
	for _, n := range names {
		out = append(out, config.PluginConfig{Name: n})
	}
	return out
}

func TestDefaultChainIsValidAndOrdered(t *testing.T) {
	chain, err := NewChain(config.DefaultTransformers(), Env{}, ChainOptions{Strict: true})
	require.NoError(t, err)
	assert.False(t, chain.Reordered())
	assert.Equal(t, []string{
		"frontmatter",
		"created_modified_date",
		"obsidian_flavored_markdown",
		"github_flavored_markdown",
		"latex",
		"syntax_highlighting",
		"crawl_links",
		"description",
		"table_of_contents",
	}, chain.Names())

	var corpus []string
	for _, tr := range chain.Phase(PhaseCorpus) {
		corpus = append(corpus, tr.Name())
	}
	assert.Equal(t, []string{"crawl_links", "description", "table_of_contents"}, corpus)
}

func TestUnknownTransformerIsDependencyError(t *testing.T) {
	_, err := NewChain(plugins("frontmatter", "does_not_exist"), Env{}, ChainOptions{})
	var depErr *DependencyError
	require.True(t, errors.As(err, &depErr))
	assert.Equal(t, "does_not_exist", depErr.Transformer)
}

func TestRequiresDisabledTransformer(t *testing.T) {
	_, err := NewChain(plugins("frontmatter", "table_of_contents"), Env{}, ChainOptions{})
	var depErr *DependencyError
	require.True(t, errors.As(err, &depErr))
	assert.Equal(t, "table_of_contents", depErr.Transformer)
	assert.Equal(t, "github_flavored_markdown", depErr.Dependency)
}

func TestMisorderedChain(t *testing.T) {
	cfg := plugins("github_flavored_markdown", "obsidian_flavored_markdown", "frontmatter")

	chain, err := NewChain(cfg, Env{}, ChainOptions{})
	require.NoError(t, err)
	assert.True(t, chain.Reordered())
	assert.Len(t, chain.Warnings(), 1)
	assert.Equal(t, []string{"frontmatter", "obsidian_flavored_markdown", "github_flavored_markdown"}, chain.Names())

	_, err = NewChain(cfg, Env{}, ChainOptions{Strict: true})
	var depErr *DependencyError
	require.True(t, errors.As(err, &depErr))
	assert.Equal(t, "github_flavored_markdown", depErr.Transformer)
}

func TestLaterStageConfiguredFirstIsReordered(t *testing.T) {
	chain, err := NewChain(plugins("crawl_links", "frontmatter"), Env{}, ChainOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"frontmatter", "crawl_links"}, chain.Names())
	assert.True(t, chain.Reordered())
}

func TestCrossStageDependencyRejected(t *testing.T) {
	early := mockTransformer{name: "early", stage: StageParse, deps: Dependencies{MustRunAfter: []string{"late"}}}
	late := mockTransformer{name: "late", stage: StageDerive}
	_, err := BuildChain([]Transformer{early, late}, ChainOptions{})
	var depErr *DependencyError
	require.True(t, errors.As(err, &depErr))
	assert.Equal(t, "early", depErr.Transformer)
	assert.Equal(t, "late", depErr.Dependency)

	before := mockTransformer{name: "before", stage: StageDerive, deps: Dependencies{MustRunBefore: []string{"first"}}}
	first := mockTransformer{name: "first", stage: StageParse}
	_, err = BuildChain([]Transformer{first, before}, ChainOptions{})
	require.True(t, errors.As(err, &depErr))
}

func TestCycleRejected(t *testing.T) {
	a := mockTransformer{name: "a", stage: StageNormalize, deps: Dependencies{MustRunAfter: []string{"b"}}}
	b := mockTransformer{name: "b", stage: StageNormalize, deps: Dependencies{MustRunAfter: []string{"a"}}}
	_, err := BuildChain([]Transformer{a, b}, ChainOptions{})
	var depErr *DependencyError
	require.True(t, errors.As(err, &depErr))
	assert.Contains(t, depErr.Error(), "circular")
}

func TestTopologicalSortWithinStage(t *testing.T) {
	result, err := topologicalSort([]Transformer{
		mockTransformer{name: "d", stage: StageParse, deps: Dependencies{MustRunAfter: []string{"b", "c"}}},
		mockTransformer{name: "c", stage: StageParse, deps: Dependencies{MustRunAfter: []string{"a"}}},
		mockTransformer{name: "b", stage: StageParse, deps: Dependencies{MustRunAfter: []string{"a"}}},
		mockTransformer{name: "a", stage: StageParse, deps: Dependencies{MustRunBefore: []string{"d"}}},
	})
	require.NoError(t, err)
	var names []string
	for _, tr := range result {
		names = append(names, tr.Name())
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, names)
}

func TestRunStopsWhenContextCancelled(t *testing.T) {
	var calls []string
	chain, err := BuildChain([]Transformer{
		mockTransformer{name: "one", stage: StageParse, calls: &calls},
		mockTransformer{name: "two", stage: StageEnrich, calls: &calls},
		mockTransformer{name: "three", stage: StageLinks, calls: &calls},
	}, ChainOptions{})
	require.NoError(t, err)

	require.NoError(t, chain.Run(context.Background(), PhaseDocument, &document.Document{}, &Context{}))
	assert.Equal(t, []string{"one", "two"}, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = chain.Run(ctx, PhaseCorpus, &document.Document{}, &Context{})
	var step *StepError
	require.True(t, errors.As(err, &step))
	assert.Equal(t, "three", step.Transformer)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"one", "two"}, calls)
}

func TestVisualizeFormats(t *testing.T) {
	chain, err := NewChain(config.DefaultTransformers(), Env{}, ChainOptions{})
	require.NoError(t, err)

	text, err := chain.Visualize(FormatText)
	require.NoError(t, err)
	assert.Contains(t, text, "[crawl_links]")
	assert.Contains(t, text, "corpus phase")

	mermaid, err := chain.Visualize(FormatMermaid)
	require.NoError(t, err)
	assert.Contains(t, mermaid, "obsidianflavoredmarkdown --> githubflavoredmarkdown")

	dot, err := chain.Visualize(FormatDOT)
	require.NoError(t, err)
	assert.Contains(t, dot, `"github_flavored_markdown" -> "table_of_contents"`)

	js, err := chain.Visualize(FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, js, `"name": "frontmatter"`)

	_, err = chain.Visualize("svg")
	assert.Error(t, err)
}
