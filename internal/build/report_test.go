package build

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/vaultsite/internal/graph"
)

func TestDeriveOutcome(t *testing.T) {
	cases := []struct {
		name string
		mod  func(r *Report)
		want Outcome
	}{
		{"clean", func(*Report) {}, OutcomeSuccess},
		{"broken link", func(r *Report) { r.BrokenLinks = []graph.BrokenLink{{Source: "a", Raw: "x"}} }, OutcomeWarning},
		{"degraded", func(r *Report) { r.Degraded = []DocumentIssue{{Path: "a.md"}} }, OutcomeWarning},
		{"errored document", func(r *Report) { r.Errored = []DocumentIssue{{Path: "a.md"}} }, OutcomePartial},
		{"emitter failure", func(r *Report) { r.EmitterFailures = []EmitterIssue{{Emitter: "favicon"}} }, OutcomePartial},
		{"skip", func(r *Report) { r.SkipReason = SkipNoChanges }, OutcomeSkipped},
		{"fatal wins", func(r *Report) { r.fatal = true; r.Errored = []DocumentIssue{{}} }, OutcomeFailed},
		{"canceled wins", func(r *Report) { r.canceled = true; r.fatal = true }, OutcomeCanceled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newReport("id")
			tc.mod(r)
			r.deriveOutcome()
			assert.Equal(t, tc.want, r.Outcome)
		})
	}
}

func TestWriteTextEnumeratesProblems(t *testing.T) {
	r := newReport("id")
	r.Errored = []DocumentIssue{{Path: "bad.md", Stage: "parse", Error: "boom"}}
	r.Skipped = []SkippedDocument{{Slug: "draft", Filter: "remove_drafts"}}
	r.BrokenLinks = []graph.BrokenLink{{Source: "a", Raw: "missing", Reason: graph.ReasonMissing}}
	r.EmitterFailures = []EmitterIssue{{Emitter: "favicon", Error: "is a directory"}}
	r.finish()
	r.deriveOutcome()

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "outcome=partial")
	assert.Contains(t, out, "errored document bad.md (parse): boom")
	assert.Contains(t, out, "skipped document draft (filter remove_drafts)")
	assert.Contains(t, out, "broken link a -> missing (missing)")
	assert.Contains(t, out, "emitter favicon failed: is a directory")
}

func TestCleanArtifactPath(t *testing.T) {
	for in, want := range map[string]string{
		"a.html":           "a.html",
		"notes/./b.html":   "notes/b.html",
		"tags//x.html":     "tags/x.html",
		"static/x/../y.js": "static/y.js",
	} {
		got, err := cleanArtifactPath(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, bad := range []string{"", ".", "../escape.html", "/etc/passwd", "a/../../b"} {
		_, err := cleanArtifactPath(bad)
		assert.Error(t, err, bad)
	}
}
