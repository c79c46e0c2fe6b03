package incremental

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/vaultsite/internal/git"
)

func openCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestDatesRoundTripAndPrune(t *testing.T) {
	c := openCache(t)
	ctx := context.Background()
	d := git.FileDates{
		Created:  time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC),
		Modified: time.Date(2024, 6, 7, 8, 9, 10, 0, time.UTC),
	}

	_, ok := c.GetDates("h1", "notes/a.md")
	assert.False(t, ok)

	c.PutDates("h1", "notes/a.md", d)
	got, ok := c.GetDates("h1", "notes/a.md")
	require.True(t, ok)
	assert.True(t, got.Created.Equal(d.Created))
	assert.True(t, got.Modified.Equal(d.Modified))

	_, ok = c.GetDates("h2", "notes/a.md")
	assert.False(t, ok, "dates are scoped to a HEAD")

	require.NoError(t, c.PruneDates(ctx, "h2"))
	_, ok = c.GetDates("h1", "notes/a.md")
	assert.False(t, ok)
}

func TestCacheSatisfiesDateCache(t *testing.T) {
	var _ git.DateCache = openCache(t)
}

func TestReplaceArtifacts(t *testing.T) {
	c := openCache(t)
	ctx := context.Background()

	require.NoError(t, c.ReplaceArtifacts(ctx, map[string]string{"a.html": Digest([]byte("a")), "b.html": Digest([]byte("b"))}))
	require.NoError(t, c.ReplaceArtifacts(ctx, map[string]string{"a.html": Digest([]byte("a2"))}))

	got, err := c.Artifacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.html": Digest([]byte("a2"))}, got)
	assert.NotEqual(t, Digest([]byte("a")), Digest([]byte("a2")))
	assert.Equal(t, Digest([]byte("same")), Digest([]byte("same")))
}

func TestSignature(t *testing.T) {
	c := openCache(t)
	ctx := context.Background()

	_, ok, err := c.Signature(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	now := time.Now()
	s1 := &BuildSignature{ConfigHash: HashBytes([]byte("cfg")), Files: []InputFile{{Path: "b.md", Size: 1, ModTime: now}, {Path: "a.md", Size: 2, ModTime: now}}}
	s2 := &BuildSignature{ConfigHash: HashBytes([]byte("cfg")), Files: []InputFile{{Path: "a.md", Size: 2, ModTime: now.In(time.FixedZone("x", 3600))}, {Path: "b.md", Size: 1, ModTime: now}}}
	h1, err := s1.Hash()
	require.NoError(t, err)
	h2, err := s2.Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "file order and time zone do not matter")

	s2.Files[0].Size = 3
	h3, err := s2.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)

	require.NoError(t, c.PutSignature(ctx, h1))
	got, ok, err := c.Signature(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, h1, got)
}
