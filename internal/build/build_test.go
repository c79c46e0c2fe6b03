package build

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
	ferrors "git.home.luguber.info/inful/vaultsite/internal/foundation/errors"
	"git.home.luguber.info/inful/vaultsite/internal/graph"
	"git.home.luguber.info/inful/vaultsite/internal/transforms"
)

func newVault(t *testing.T, files map[string]string) *config.Config {
	t.Helper()
	root := t.TempDir()
	content := filepath.Join(root, "content")
	require.NoError(t, os.MkdirAll(content, 0o755))
	for rel, body := range files {
		p := filepath.Join(content, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}

	cfg := config.Default()
	cfg.Site.Title = "Test Vault"
	cfg.Site.BaseURL = "example.com"
	cfg.Paths.Content = content
	cfg.Paths.Output = filepath.Join(root, "public")
	cfg.Paths.Static = filepath.Join(root, "static")
	cfg.Build.Workers = 2
	return cfg
}

func run(t *testing.T, cfg *config.Config, opts BuildOptions, extra ...transforms.Transformer) (*Report, error) {
	t.Helper()
	svc := NewBuildService().WithTransformers(extra...)
	return svc.Run(context.Background(), BuildRequest{Config: cfg, Options: opts})
}

func readOutput(t *testing.T, cfg *config.Config, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.Paths.Output, filepath.FromSlash(rel)))
	require.NoError(t, err, rel)
	return string(data)
}

func outputExists(cfg *config.Config, rel string) bool {
	_, err := os.Stat(filepath.Join(cfg.Paths.Output, filepath.FromSlash(rel)))
	return err == nil
}

func snapshot(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := map[string]string{}
	require.NoError(t, filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, rerr := os.ReadFile(p)
		if rerr != nil {
			return rerr
		}
		rel, _ := filepath.Rel(dir, p)
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	}))
	return out
}

func exitCode(err error) int {
	return ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err)
}

func TestScenarioTaggedDocumentLinkingAnother(t *testing.T) {
	cfg := newVault(t, map[string]string{
		"a.md": "---\ntags: [x]\n---\nSee [[b]].\n",
		"b.md": "Just b.\n",
	})
	cfg.Emitters = []config.PluginConfig{{Name: "content_page"}, {Name: "tag_page"}}

	report, err := run(t, cfg, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, report.Outcome)
	assert.Equal(t, 2, report.Documents)

	files := snapshot(t, cfg.Paths.Output)
	assert.Contains(t, files, "a.html")
	assert.Contains(t, files, "b.html")
	assert.Contains(t, files, "tags/x.html")

	var tagPages []string
	for p := range files {
		if strings.HasPrefix(p, "tags/") && p != "tags/index.html" {
			tagPages = append(tagPages, p)
		}
	}
	assert.Equal(t, []string{"tags/x.html"}, tagPages)

	assert.Contains(t, files["a.html"], `href="./b"`)
	assert.Contains(t, files["b.html"], `<section class="backlinks">`)
	assert.Contains(t, files["b.html"], `href="./a"`)
	assert.Contains(t, files["tags/x.html"], `href="../a"`)
	assert.NotContains(t, files["tags/x.html"], `href="../b"`)
}

func TestDraftIsAbsentFromEveryIndex(t *testing.T) {
	cfg := newVault(t, map[string]string{
		"a.md":      "---\ntags: [x]\n---\nLinks to [[secret]].\n",
		"secret.md": "---\ntitle: Secret Draft\ndraft: true\ntags: [hidden]\n---\nBack to [[a]].\n",
	})

	report, err := run(t, cfg, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Documents)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, SkippedDocument{Slug: "secret", Filter: "remove_drafts"}, report.Skipped[0])

	require.Len(t, report.BrokenLinks, 1)
	assert.Equal(t, graph.ReasonFiltered, report.BrokenLinks[0].Reason)

	assert.False(t, outputExists(cfg, "secret.html"))
	assert.False(t, outputExists(cfg, "tags/hidden.html"))

	page := readOutput(t, cfg, "a.html")
	assert.NotContains(t, page, "Secret Draft")
	assert.NotContains(t, page, `<section class="backlinks">`)

	for _, rel := range []string{"sitemap.xml", "index.xml", "static/contentIndex.json", "tags/index.html", "tags/x.html", "index.html"} {
		body := readOutput(t, cfg, rel)
		assert.NotContains(t, body, "Secret Draft", rel)
		assert.NotContains(t, body, "example.com/secret", rel)
	}

	var index map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(readOutput(t, cfg, "static/contentIndex.json")), &index))
	assert.Contains(t, index, "a")
	assert.NotContains(t, index, "secret")
}

func TestLinkToDraftRendersBroken(t *testing.T) {
	cfg := newVault(t, map[string]string{
		"a.md":      "Links to [[secret]] and ![[secret]].\n",
		"secret.md": "---\ndraft: true\n---\nHidden body.\n",
	})

	report, err := run(t, cfg, BuildOptions{})
	require.NoError(t, err)
	require.Len(t, report.BrokenLinks, 2)
	for _, l := range report.BrokenLinks {
		assert.Equal(t, graph.ReasonFiltered, l.Reason)
	}

	page := readOutput(t, cfg, "a.html")
	assert.Contains(t, page, `data-slug="secret" class="internal broken"`)
	assert.NotContains(t, page, `data-slug="secret" class="internal">`)
	assert.Contains(t, page, `class="transclude broken"`)
	assert.Contains(t, page, `class="transclude-inner internal broken"`)
	assert.NotContains(t, page, "Hidden body")
}

func TestMissingLinkIsWarningAndPageStillEmits(t *testing.T) {
	cfg := newVault(t, map[string]string{
		"a.md": "Points at [[missing]].\n",
	})

	report, err := run(t, cfg, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeWarning, report.Outcome)
	require.Len(t, report.BrokenLinks, 1)
	assert.Equal(t, "a", string(report.BrokenLinks[0].Source))
	assert.Equal(t, graph.ReasonMissing, report.BrokenLinks[0].Reason)

	page := readOutput(t, cfg, "a.html")
	assert.Contains(t, page, `class="internal broken"`)
}

func TestMalformedFrontMatterStillEmitsBody(t *testing.T) {
	cfg := newVault(t, map[string]string{
		"broken.md": "---\ntitle: [unclosed\n---\nBody survives here.\n",
	})

	report, err := run(t, cfg, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeWarning, report.Outcome)
	require.Len(t, report.Degraded, 1)
	assert.Equal(t, "broken.md", report.Degraded[0].Path)
	assert.Empty(t, report.Errored)

	assert.Contains(t, readOutput(t, cfg, "broken.html"), "Body survives here.")
}

func TestRebuildIsByteIdentical(t *testing.T) {
	cfg := newVault(t, map[string]string{
		"index.md":       "---\ntitle: Home\ntags: [start]\n---\nWelcome. See [[notes/one]].\n",
		"notes/one.md":   "---\ndate: 2024-01-12\ntags: [start/sub]\n---\n# One\n\n```go\nfunc main() {}\n```\n",
		"notes/two.md":   "Inline #topic and $x^2$ math, links to [[one]].\n",
		"image.png":      "not really a png",
		"daily/today.md": "> [!note] Callout\n> body\n",
	})

	first, err := run(t, cfg, BuildOptions{})
	require.NoError(t, err)
	require.Greater(t, first.ArtifactsWritten, 0)
	before := snapshot(t, cfg.Paths.Output)

	second, err := run(t, cfg, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.ArtifactsWritten)
	assert.Equal(t, first.ArtifactsWritten, second.ArtifactsUnchanged)
	assert.Equal(t, before, snapshot(t, cfg.Paths.Output))
}

func TestCachedRebuildSkipsAndRemovesStaleArtifacts(t *testing.T) {
	cfg := newVault(t, map[string]string{
		"a.md": "A links [[b]].\n",
		"b.md": "B.\n",
	})
	cfg.Build.CacheFile = filepath.Join(filepath.Dir(cfg.Paths.Output), "cache.db")

	first, err := run(t, cfg, BuildOptions{})
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, first.Outcome)

	second, err := run(t, cfg, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, second.Outcome)
	assert.Equal(t, SkipNoChanges, second.SkipReason)

	forced, err := run(t, cfg, BuildOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 0, forced.ArtifactsWritten)

	require.NoError(t, os.Remove(filepath.Join(cfg.Paths.Content, "b.md")))
	third, err := run(t, cfg, BuildOptions{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, third.ArtifactsRemoved, 1)
	assert.False(t, outputExists(cfg, "b.html"))
	assert.True(t, outputExists(cfg, "a.html"))
}

func TestDuplicateSlugIsFatal(t *testing.T) {
	cfg := newVault(t, map[string]string{
		"notes/a.md":       "one",
		"notes/a.markdown": "two",
	})

	report, err := run(t, cfg, BuildOptions{})
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.Equal(t, ferrors.ExitBuildFatal, exitCode(err))

	var dup *graph.DuplicateSlugError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "notes/a.markdown", dup.First)
	assert.Equal(t, "notes/a.md", dup.Second)
	assert.NoDirExists(t, cfg.Paths.Output)
}

func TestInvalidChainFailsBeforeReadingFiles(t *testing.T) {
	cfg := newVault(t, map[string]string{"a.md": "a"})
	cfg.Transformers = []config.PluginConfig{{Name: "crawl_links"}, {Name: "no_such_transformer"}}

	report, err := run(t, cfg, BuildOptions{})
	require.Error(t, err)
	assert.Equal(t, ferrors.ExitConfig, exitCode(err))
	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.Zero(t, report.Sources)
	assert.NotContains(t, report.StageDurations, string(StageDiscover))
}

// blockingTransformer stalls on one document and ignores its context.
type blockingTransformer struct {
	slug    string
	release chan struct{}
}

func (blockingTransformer) Name() string                          { return "block_on_slug" }
func (blockingTransformer) Stage() transforms.Stage               { return transforms.StageDerive }
func (blockingTransformer) Dependencies() transforms.Dependencies { return transforms.Dependencies{} }

func (b blockingTransformer) Transform(_ context.Context, doc *document.Document, _ *transforms.Context) error {
	if string(doc.Slug) == b.slug {
		<-b.release
	}
	return nil
}

func TestStuckDocumentTimesOutWithoutStallingBuild(t *testing.T) {
	cfg := newVault(t, map[string]string{
		"a.md":    "Fine.\n",
		"slow.md": "Never finishes.\n",
	})
	cfg.Build.DocumentTimeout = 200 * time.Millisecond
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	report, err := run(t, cfg, BuildOptions{}, blockingTransformer{slug: "slow", release: release})
	assert.Less(t, time.Since(start), 10*time.Second)

	require.Error(t, err)
	assert.Equal(t, ferrors.ExitPartialFailure, exitCode(err))
	assert.Equal(t, OutcomePartial, report.Outcome)
	require.Len(t, report.Errored, 1)
	assert.Equal(t, "slow.md", report.Errored[0].Path)
	assert.Contains(t, report.Errored[0].Error, ErrDocumentTimeout.Error())

	assert.True(t, outputExists(cfg, "a.html"))
	assert.False(t, outputExists(cfg, "slow.html"))
}

// cancelingTransformer cancels the build from inside a worker.
type cancelingTransformer struct{ cancel context.CancelFunc }

func (cancelingTransformer) Name() string                          { return "cancel_build" }
func (cancelingTransformer) Stage() transforms.Stage               { return transforms.StageDerive }
func (cancelingTransformer) Dependencies() transforms.Dependencies { return transforms.Dependencies{} }

func (c cancelingTransformer) Transform(ctx context.Context, _ *document.Document, _ *transforms.Context) error {
	c.cancel()
	<-ctx.Done()
	return ctx.Err()
}

func TestCancellationMidStageWritesNothing(t *testing.T) {
	cfg := newVault(t, map[string]string{"a.md": "a", "b.md": "b"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewBuildService().WithTransformers(cancelingTransformer{cancel: cancel})
	report, err := svc.Run(ctx, BuildRequest{Config: cfg})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, OutcomeCanceled, report.Outcome)
	assert.NoDirExists(t, cfg.Paths.Output)
}

func TestCanceledBeforeStart(t *testing.T) {
	cfg := newVault(t, map[string]string{"a.md": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewBuildService().Run(ctx, BuildRequest{Config: cfg})
	require.Error(t, err)
	assert.Equal(t, OutcomeCanceled, report.Outcome)
	assert.Empty(t, report.StageDurations)
}

func TestEmitterFailureIsPartial(t *testing.T) {
	cfg := newVault(t, map[string]string{"a.md": "a"})
	// A directory as favicon source cannot be read.
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Paths.Static, "icons"), 0o755))
	cfg.Emitters = []config.PluginConfig{
		{Name: "content_page"},
		{Name: "favicon", Options: config.Options{"source": "icons"}},
	}

	report, err := run(t, cfg, BuildOptions{})
	require.Error(t, err)
	assert.Equal(t, ferrors.ExitPartialFailure, exitCode(err))
	assert.Equal(t, OutcomePartial, report.Outcome)
	require.Len(t, report.EmitterFailures, 1)
	assert.Equal(t, "favicon", report.EmitterFailures[0].Emitter)
	assert.True(t, outputExists(cfg, "a.html"))
}

func TestReportIsPersisted(t *testing.T) {
	cfg := newVault(t, map[string]string{"a.md": "Points at [[missing]].\n"})
	cfg.Build.ReportFile = filepath.Join(filepath.Dir(cfg.Paths.Output), "build-report.json")

	report, err := run(t, cfg, BuildOptions{BuildID: "test-build"})
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Build.ReportFile)
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "test-build", decoded.BuildID)
	assert.Equal(t, report.Outcome, decoded.Outcome)
	assert.Len(t, decoded.BrokenLinks, 1)
	assert.False(t, outputExists(cfg, "build-report.json"))
}
