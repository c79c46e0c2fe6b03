package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"

	ferrors "git.home.luguber.info/inful/vaultsite/internal/foundation/errors"
	"git.home.luguber.info/inful/vaultsite/internal/incremental"
	"git.home.luguber.info/inful/vaultsite/internal/logfields"
	"git.home.luguber.info/inful/vaultsite/internal/observability"
)

// artifactWriter writes artifacts below root, leaving files whose content is
// unchanged untouched.
type artifactWriter struct {
	root     string
	previous map[string]string // path -> digest from the last build
	current  map[string]string
}

// write stores content at rel and reports whether the file changed.
func (w *artifactWriter) write(rel string, content []byte) (bool, error) {
	digest := incremental.Digest(content)
	w.current[rel] = digest
	full := filepath.Join(w.root, filepath.FromSlash(rel))

	if prev, ok := w.previous[rel]; ok && prev == digest {
		if _, err := os.Stat(full); err == nil {
			return false, nil
		}
	} else if existing, err := os.ReadFile(full); err == nil && bytes.Equal(existing, content) {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return false, fmt.Errorf("create directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", rel, err)
	}
	return true, nil
}

// cleanArtifactPath normalizes an emitter path and rejects paths that leave
// the output directory.
func cleanArtifactPath(p string) (string, error) {
	clean := path.Clean(p)
	if clean == "." || !filepath.IsLocal(filepath.FromSlash(clean)) {
		return "", fmt.Errorf("artifact path %q escapes the output directory", p)
	}
	return clean, nil
}

// stageWrite writes the artifacts of every successful emitter. When two
// emitters produce the same path, the one configured first wins. Artifacts of
// the previous build that were not produced again are removed.
func stageWrite(ctx context.Context, bs *buildState) error {
	out := bs.cfg.Paths.Output
	if bs.req.Options.Clean {
		if err := os.RemoveAll(out); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "clean output directory").Fatal().Build()
		}
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create output directory").
			WithContext("output", out).Fatal().Build()
	}

	w := &artifactWriter{root: out, current: make(map[string]string)}
	if bs.cache != nil && !bs.req.Options.Clean {
		previous, err := bs.cache.Artifacts(ctx)
		if err != nil {
			observability.WarnContext(ctx, "Failed to read previous artifacts", logfields.Error(err))
		}
		w.previous = previous
	}

	owners := make(map[string]string)
	for _, o := range bs.outputs {
		if o.Err != nil {
			continue
		}
		ectx := observability.WithEmitter(ctx, o.Emitter)
		written, unchanged := 0, 0
		for _, a := range o.Artifacts {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("write interrupted: %w", err)
			}
			rel, err := cleanArtifactPath(a.Path)
			if err != nil {
				bs.report.EmitterFailures = append(bs.report.EmitterFailures, EmitterIssue{Emitter: o.Emitter, Error: err.Error()})
				observability.ErrorContext(ectx, "Rejected artifact", logfields.Error(err))
				continue
			}
			if owner, dup := owners[rel]; dup {
				bs.report.DuplicateArtifacts = append(bs.report.DuplicateArtifacts, fmt.Sprintf("%s from %s (kept %s)", rel, o.Emitter, owner))
				observability.WarnContext(ectx, "Duplicate artifact ignored", logfields.Artifact(rel), slog.String("kept", owner))
				continue
			}
			owners[rel] = o.Emitter

			changed, err := w.write(rel, a.Content)
			if err != nil {
				bs.report.EmitterFailures = append(bs.report.EmitterFailures, EmitterIssue{Emitter: o.Emitter, Error: err.Error()})
				observability.ErrorContext(ectx, "Failed to write artifact", logfields.Artifact(rel),
					logfields.Error(ferrors.WrapError(err, ferrors.CategoryEmit, "write artifact").Build()))
				break
			}
			if changed {
				written++
			} else {
				unchanged++
			}
		}
		bs.report.ArtifactsWritten += written
		bs.report.ArtifactsUnchanged += unchanged
		bs.recorder.AddArtifacts(o.Emitter, written, unchanged)
	}

	complete := len(bs.report.EmitterFailures) == 0
	if complete {
		bs.report.ArtifactsRemoved = removeStale(ctx, out, w.previous, w.current)
	} else {
		// Keep tracking what a failed emitter wrote last time.
		for p, d := range w.previous {
			if _, ok := w.current[p]; !ok {
				w.current[p] = d
			}
		}
	}

	observability.InfoContext(ctx, "Artifacts written",
		logfields.Count(bs.report.ArtifactsWritten),
		slog.Int("unchanged", bs.report.ArtifactsUnchanged),
		slog.Int("removed", bs.report.ArtifactsRemoved))

	if bs.cache == nil {
		return nil
	}
	if err := bs.cache.ReplaceArtifacts(ctx, w.current); err != nil {
		observability.WarnContext(ctx, "Failed to record artifacts", logfields.Error(err))
		return nil
	}
	if complete && len(bs.report.Errored) == 0 && bs.signature != "" {
		if err := bs.cache.PutSignature(ctx, bs.signature); err != nil {
			observability.WarnContext(ctx, "Failed to record build signature", logfields.Error(err))
		}
	}
	return nil
}

// removeStale deletes files recorded by the previous build that this build
// did not produce. It returns the number of removed files.
func removeStale(ctx context.Context, root string, previous, current map[string]string) int {
	stale := make([]string, 0)
	for p := range previous {
		if _, ok := current[p]; !ok {
			stale = append(stale, p)
		}
	}
	sort.Strings(stale)

	removed := 0
	for _, p := range stale {
		if _, err := cleanArtifactPath(p); err != nil {
			continue
		}
		err := os.Remove(filepath.Join(root, filepath.FromSlash(p)))
		switch {
		case err == nil:
			removed++
			observability.DebugContext(ctx, "Removed stale artifact", logfields.Artifact(p))
		case errors.Is(err, os.ErrNotExist):
		default:
			observability.WarnContext(ctx, "Failed to remove stale artifact", logfields.Artifact(p), logfields.Error(err))
		}
	}
	return removed
}
