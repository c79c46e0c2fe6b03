package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromPath(t *testing.T) {
	cases := map[string]FullSlug{
		"a.md":                     "a",
		"notes/My Note.md":         "notes/My-Note",
		"notes/Q&A.md":             "notes/Q-and-A",
		"100% done?.md":            "100-percent-done",
		"issue #4.md":              "issue-4",
		"folder/index.md":          "folder/index",
		"folder/_index.md":         "folder/index",
		"index.md":                 "index",
		"img/Screen Shot.png":      "img/Screen-Shot.png",
		"/leading/slash.md":        "leading/slash",
		"windows\\path\\file.md":   "windows/path/file",
		"Café.md":            "Café",
		"notes/README.MARKDOWN":    "notes/README",
		"page.html":                "page",
		"no-extension":             "no-extension",
	}
	for in, want := range cases {
		assert.Equal(t, want, FromPath(in), in)
	}
}

func TestSimplifyAndOutputPath(t *testing.T) {
	assert.Equal(t, SimpleSlug("/"), Index.Simplify())
	assert.Equal(t, SimpleSlug("notes/"), FullSlug("notes/index").Simplify())
	assert.Equal(t, SimpleSlug("notes/a"), FullSlug("notes/a").Simplify())

	assert.Equal(t, "notes/a.html", FullSlug("notes/a").OutputPath())
	assert.Equal(t, "img/pic.png", FullSlug("img/pic.png").OutputPath())
	assert.Equal(t, "index.html", Index.OutputPath())
}

func TestRelative(t *testing.T) {
	cases := []struct {
		from, to FullSlug
		want     string
	}{
		{"a", "b", "./b"},
		{"folder/a", "b", "../b"},
		{"a", "folder/index", "./folder/"},
		{"folder/sub/a", "index", "../../"},
		{"a", "index", "./"},
		{"folder/a", "folder/b", "../folder/b"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Relative(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
	assert.Equal(t, "../index.css", RelativeFile("folder/a", "index.css"))
	assert.Equal(t, "./static/contentIndex.json", RelativeFile("a", "/static/contentIndex.json"))
}

func TestRebase(t *testing.T) {
	assert.Equal(t, "../../b", Rebase("../b", "folder/a", "x/y/z"))
	assert.Equal(t, "../b#part", Rebase("./b#part", "a", "folder/c"))
	assert.Equal(t, "../", Rebase("./", "a", "x/c"))
	assert.Equal(t, "#local", Rebase("#local", "a", "x/c"))
	assert.Equal(t, "https://example.com/x", Rebase("https://example.com/x", "a", "x/c"))
}

func TestTag(t *testing.T) {
	assert.Equal(t, "project/alpha", Tag("#project/alpha/"))
	assert.Equal(t, "needs-review", Tag("needs review"))
	assert.Equal(t, []string{"a", "a/b", "a/b/c"}, TagAncestors("a/b/c"))
}

func TestHeadingIDs(t *testing.T) {
	ids := NewHeadingIDs()
	assert.Equal(t, "hello-world", ids.Next("Hello, World!"))
	assert.Equal(t, "hello-world-1", ids.Next("Hello World"))
	assert.Equal(t, "setup", ids.Next("Setup"))
	assert.Equal(t, "setup-1", ids.Next("setup"))
	assert.Equal(t, "snake_case-and-dash-", ids.Next("snake_case and dash-"))
}

func TestJoinAndFolderIndex(t *testing.T) {
	assert.Equal(t, FullSlug("tags/my-tag"), Join("tags", "my tag"))
	assert.Equal(t, Index, Join())
	assert.Equal(t, FullSlug("notes/index"), FolderIndex("notes"))
	assert.Equal(t, Index, FolderIndex(""))
	assert.Equal(t, "notes", FullSlug("notes/index").Folder())
	assert.Equal(t, "", FullSlug("a").Dir())
}
