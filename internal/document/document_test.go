package document

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResultStatus(t *testing.T) {
	ok := Result{RelativePath: "a.md", Doc: &Document{Slug: "a"}}
	degraded := Result{RelativePath: "b.md", Doc: &Document{Slug: "b", FrontMatterError: errors.New("bad yaml")}}
	failed := Result{RelativePath: "c.md", Err: errors.New("timeout"), Stage: "transform"}

	assert.Equal(t, StatusOK, ok.Status())
	assert.Equal(t, StatusDegraded, degraded.Status())
	assert.Equal(t, StatusErrored, failed.Status())

	rs := Results{failed, degraded, ok}
	docs := rs.Documents()
	if assert.Len(t, docs, 2) {
		assert.Equal(t, "a", string(docs[0].Slug))
		assert.Equal(t, "b", string(docs[1].Slug))
	}
	assert.Len(t, rs.Failed(), 1)
}

func TestTagsAreDeduplicated(t *testing.T) {
	d := &Document{}
	d.AddTag("x")
	d.AddTag("x")
	d.AddTag("")
	d.AddTag("y")
	assert.Equal(t, []string{"x", "y"}, d.Tags)
	assert.True(t, d.HasTag("y"))
}

func TestDatesGet(t *testing.T) {
	c := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := c.Add(time.Hour)
	d := Dates{Created: &c, Modified: &m}

	assert.Equal(t, &c, d.Get("created"))
	assert.Equal(t, &m, d.Get("modified"))
	assert.Nil(t, d.Get("published"))
}

func TestTruthy(t *testing.T) {
	for _, v := range []any{true, "true", "TRUE", " yes ", "On"} {
		assert.True(t, Truthy(v), "%v", v)
	}
	for _, v := range []any{false, "false", "no", "off", "", 1, nil} {
		assert.False(t, Truthy(v), "%v", v)
	}
}

func TestLinkIsBroken(t *testing.T) {
	assert.True(t, Link{Kind: LinkInternal}.IsBroken())
	assert.False(t, Link{Kind: LinkInternal, Resolved: true}.IsBroken())
	assert.False(t, Link{Kind: LinkExternal}.IsBroken())
}
