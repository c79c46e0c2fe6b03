package build

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/vaultsite/internal/graph"
)

// Outcome is the typed enumeration of final build result states.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning"
	OutcomePartial  Outcome = "partial" // documents or emitters failed, the rest was written
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
	OutcomeSkipped  Outcome = "skipped"
)

// DocumentIssue is a document that errored or degraded.
type DocumentIssue struct {
	Path  string `json:"path"`
	Slug  string `json:"slug,omitempty"`
	Stage string `json:"stage,omitempty"`
	Error string `json:"error"`
}

// SkippedDocument is a document removed by a filter.
type SkippedDocument struct {
	Slug   string `json:"slug"`
	Filter string `json:"filter"`
}

// EmitterIssue is an emitter that produced no artifacts.
type EmitterIssue struct {
	Emitter string `json:"emitter"`
	Error   string `json:"error"`
}

// Report captures what a build did. It is returned for every run, including
// failed and canceled ones.
type Report struct {
	SchemaVersion  int                      `json:"schema_version"`
	BuildID        string                   `json:"build_id"`
	Start          time.Time                `json:"start"`
	End            time.Time                `json:"end"`
	Outcome        Outcome                  `json:"outcome"`
	SkipReason     string                   `json:"skip_reason,omitempty"`
	Error          string                   `json:"error,omitempty"`
	StageDurations map[string]time.Duration `json:"stage_durations"`

	Sources   int `json:"sources"`
	Assets    int `json:"assets"`
	Ignored   int `json:"ignored"`
	Documents int `json:"documents"` // documents in the published graph

	Errored     []DocumentIssue    `json:"errored,omitempty"`
	Degraded    []DocumentIssue    `json:"degraded,omitempty"`
	Skipped     []SkippedDocument  `json:"skipped,omitempty"`
	BrokenLinks []graph.BrokenLink `json:"broken_links,omitempty"`

	EmitterFailures    []EmitterIssue `json:"emitter_failures,omitempty"`
	ArtifactsWritten   int            `json:"artifacts_written"`
	ArtifactsUnchanged int            `json:"artifacts_unchanged"`
	ArtifactsRemoved   int            `json:"artifacts_removed"`
	DuplicateArtifacts []string       `json:"duplicate_artifacts,omitempty"`

	ChainWarnings []string `json:"chain_warnings,omitempty"`

	canceled bool
	fatal    bool
}

func newReport(buildID string) *Report {
	return &Report{
		SchemaVersion:  1,
		BuildID:        buildID,
		Start:          time.Now(),
		StageDurations: make(map[string]time.Duration),
	}
}

func (r *Report) finish() { r.End = time.Now() }

// Duration is the wall time of the build.
func (r *Report) Duration() time.Duration { return r.End.Sub(r.Start) }

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("documents=%d errored=%d degraded=%d skipped=%d broken_links=%d emitter_failures=%d written=%d unchanged=%d removed=%d duration=%s outcome=%s",
		r.Documents, len(r.Errored), len(r.Degraded), len(r.Skipped), len(r.BrokenLinks), len(r.EmitterFailures),
		r.ArtifactsWritten, r.ArtifactsUnchanged, r.ArtifactsRemoved, r.Duration().Truncate(time.Millisecond), r.Outcome)
}

// WriteText writes the summary line followed by every errored, degraded and
// skipped document, broken link and emitter failure.
func (r *Report) WriteText(w io.Writer) error {
	lines := []string{r.Summary()}
	if r.SkipReason != "" {
		lines = append(lines, "skipped build: "+r.SkipReason)
	}
	if r.Error != "" {
		lines = append(lines, "error: "+r.Error)
	}
	for _, d := range r.Errored {
		lines = append(lines, fmt.Sprintf("errored document %s (%s): %s", d.Path, d.Stage, d.Error))
	}
	for _, d := range r.Degraded {
		lines = append(lines, fmt.Sprintf("degraded document %s: %s", d.Path, d.Error))
	}
	for _, s := range r.Skipped {
		lines = append(lines, fmt.Sprintf("skipped document %s (filter %s)", s.Slug, s.Filter))
	}
	for _, l := range r.BrokenLinks {
		lines = append(lines, fmt.Sprintf("broken link %s -> %s (%s)", l.Source, l.Raw, l.Reason))
	}
	for _, e := range r.EmitterFailures {
		lines = append(lines, fmt.Sprintf("emitter %s failed: %s", e.Emitter, e.Error))
	}
	for _, p := range r.DuplicateArtifacts {
		lines = append(lines, "duplicate artifact ignored: "+p)
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

// deriveOutcome sets Outcome from what was recorded.
func (r *Report) deriveOutcome() {
	switch {
	case r.canceled:
		r.Outcome = OutcomeCanceled
	case r.fatal:
		r.Outcome = OutcomeFailed
	case r.SkipReason != "":
		r.Outcome = OutcomeSkipped
	case len(r.Errored) > 0 || len(r.EmitterFailures) > 0:
		r.Outcome = OutcomePartial
	case len(r.Degraded) > 0 || len(r.BrokenLinks) > 0 || len(r.DuplicateArtifacts) > 0 || len(r.ChainWarnings) > 0:
		r.Outcome = OutcomeWarning
	default:
		r.Outcome = OutcomeSuccess
	}
}

// Persist writes the report as JSON to path atomically.
func (r *Report) Persist(path string) error {
	if r.End.IsZero() {
		r.finish()
		r.deriveOutcome()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure report directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename report json: %w", err)
	}
	return nil
}
