package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID     = "build_id"
	KeyStage       = "stage"
	KeyDurationMS  = "duration_ms"
	KeySlug        = "slug"
	KeyPath        = "path"
	KeyTransformer = "transformer"
	KeyFilter      = "filter"
	KeyEmitter     = "emitter"
	KeyArtifact    = "artifact"
	KeyCount       = "count"
	KeyTarget      = "target"
	KeyWorker      = "worker"
	KeyOutcome     = "outcome"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr        { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr        { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr    { return slog.Float64(KeyDurationMS, ms) }
func Slug(s string) slog.Attr            { return slog.String(KeySlug, s) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func Transformer(name string) slog.Attr  { return slog.String(KeyTransformer, name) }
func Filter(name string) slog.Attr       { return slog.String(KeyFilter, name) }
func Emitter(name string) slog.Attr      { return slog.String(KeyEmitter, name) }
func Artifact(path string) slog.Attr     { return slog.String(KeyArtifact, path) }
func Count(n int) slog.Attr              { return slog.Int(KeyCount, n) }
func Target(t string) slog.Attr          { return slog.String(KeyTarget, t) }
func Worker(id int) slog.Attr            { return slog.Int(KeyWorker, id) }
func Outcome(o string) slog.Attr         { return slog.String(KeyOutcome, o) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
