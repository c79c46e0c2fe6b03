package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestResolver() *Resolver {
	return NewResolver([]FullSlug{
		"index",
		"a",
		"notes/b",
		"notes/dup",
		"archive/dup",
		"projects/index",
		"img/pic.png",
	})
}

func TestResolveShortest(t *testing.T) {
	r := newTestResolver()

	got, ok := r.Resolve("b", "a", Shortest)
	assert.True(t, ok)
	assert.Equal(t, FullSlug("notes/b"), got)

	got, ok = r.Resolve("B.md", "a", Shortest)
	assert.True(t, ok, "resolution is case-insensitive and ignores .md")
	assert.Equal(t, FullSlug("notes/b"), got)

	got, ok = r.Resolve("projects", "a", Shortest)
	assert.True(t, ok)
	assert.Equal(t, FullSlug("projects/index"), got)

	got, ok = r.Resolve("pic.png", "notes/b", Shortest)
	assert.True(t, ok)
	assert.Equal(t, FullSlug("img/pic.png"), got)
}

func TestResolveAmbiguousFallsBackToPath(t *testing.T) {
	r := newTestResolver()

	_, ok := r.Resolve("dup", "a", Shortest)
	assert.False(t, ok, "ambiguous bare names do not resolve without a path")

	got, ok := r.Resolve("archive/dup", "a", Shortest)
	assert.True(t, ok)
	assert.Equal(t, FullSlug("archive/dup"), got)

	got, ok = r.Resolve("dup", "notes/b", RelativeStrategy)
	assert.True(t, ok)
	assert.Equal(t, FullSlug("notes/dup"), got)
}

func TestResolveMissing(t *testing.T) {
	r := newTestResolver()

	got, ok := r.Resolve("missing", "notes/b", Shortest)
	assert.False(t, ok)
	assert.Equal(t, FullSlug("missing"), got)

	got, ok = r.Resolve("../a", "notes/b", Absolute)
	assert.True(t, ok, "explicit relative targets resolve from the linking page")
	assert.Equal(t, FullSlug("a"), got)

	got, ok = r.Resolve("/notes/b", "projects/index", RelativeStrategy)
	assert.True(t, ok)
	assert.Equal(t, FullSlug("notes/b"), got)
}

func TestParseStrategy(t *testing.T) {
	assert.Equal(t, Shortest, ParseStrategy(""))
	assert.Equal(t, RelativeStrategy, ParseStrategy("relative"))
	assert.Equal(t, Absolute, ParseStrategy("ABSOLUTE"))
}
