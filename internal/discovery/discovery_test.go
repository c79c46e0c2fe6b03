package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o600))
}

func TestDiscoverClassifiesAndIgnores(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.md", "# Home")
	writeFile(t, root, "notes/b.md", "b")
	writeFile(t, root, "notes/a.md", "a")
	writeFile(t, root, "notes/img/pic.png", "png")
	writeFile(t, root, "private/secret.md", "s")
	writeFile(t, root, "templates/daily.md", "t")
	writeFile(t, root, ".obsidian/app.json", "{}")
	writeFile(t, root, "drafts/deep/x.md", "x")

	res, err := New(root, []string{"private", "templates", ".obsidian", "**/deep/**"}).Discover()
	require.NoError(t, err)

	var md []string
	for _, f := range res.Markdown {
		md = append(md, f.RelativePath)
	}
	assert.Equal(t, []string{"index.md", "notes/a.md", "notes/b.md"}, md)

	require.Len(t, res.Assets, 1)
	assert.Equal(t, "notes/img/pic.png", res.Assets[0].RelativePath)
	assert.True(t, res.Assets[0].IsAsset)
	assert.Equal(t, "notes/img/pic.png", string(res.Assets[0].Slug()))

	assert.Contains(t, res.Ignored, "private")
	assert.Contains(t, res.Ignored, ".obsidian")
	assert.Contains(t, res.Ignored, "drafts/deep")
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"), nil).Discover()
	assert.ErrorIs(t, err, ErrContentDirMissing)
}

func TestMatchIgnore(t *testing.T) {
	cases := []struct {
		pattern, rel string
		want         bool
	}{
		{"private", "private", true},
		{"private", "notes/private", true},
		{"private", "notes/private-ish.md", false},
		{"notes/private", "notes/private/x.md", true},
		{"notes/private", "other/notes/private", false},
		{"*.excalidraw", "a/b/drawing.excalidraw", true},
		{"**/drafts/**", "a/drafts/b.md", true},
		{"**/drafts/**", "drafts", true},
		{"**/*.tmp", "x/y/z.tmp", true},
		{"[", "anything", false},
		{"", "a.md", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MatchIgnore(tc.pattern, tc.rel), "%s vs %s", tc.pattern, tc.rel)
	}
}

func TestIsMarkdown(t *testing.T) {
	assert.True(t, IsMarkdown("a.md"))
	assert.True(t, IsMarkdown("A.MARKDOWN"))
	assert.False(t, IsMarkdown("a.png"))
	assert.False(t, IsMarkdown("md"))
}
