package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/vaultsite/internal/document"
	ferrors "git.home.luguber.info/inful/vaultsite/internal/foundation/errors"
	"git.home.luguber.info/inful/vaultsite/internal/logfields"
	"git.home.luguber.info/inful/vaultsite/internal/markdown"
	"git.home.luguber.info/inful/vaultsite/internal/metrics"
	"git.home.luguber.info/inful/vaultsite/internal/observability"
	"git.home.luguber.info/inful/vaultsite/internal/parser"
	"git.home.luguber.info/inful/vaultsite/internal/slug"
	"git.home.luguber.info/inful/vaultsite/internal/transforms"
)

// ErrDocumentTimeout marks a document abandoned after the per-document timeout.
var ErrDocumentTimeout = errors.New("document timed out")

// stageParse reads and parses every markdown file and runs the per-document
// transformer phase.
func stageParse(ctx context.Context, bs *buildState) error {
	files := bs.discovered.Markdown
	bs.results = make(document.Results, len(files))
	for i, f := range files {
		bs.results[i].RelativePath = f.RelativePath
	}
	tc := &transforms.Context{Site: bs.cfg.Site}

	return bs.forEachDocument(ctx, StageParse, func(ctx context.Context, i int) (*document.Document, error) {
		f := files[i]
		content, err := f.LoadContent()
		if err != nil {
			return nil, err
		}
		doc, err := bs.parser.Parse(parser.Input{
			RelativePath: f.RelativePath,
			FilePath:     f.Path,
			ModTime:      f.ModTime,
			Content:      content,
		})
		if err != nil {
			return nil, err
		}
		if err := bs.chain.Run(ctx, transforms.PhaseDocument, doc, tc); err != nil {
			return nil, err
		}
		return doc, nil
	})
}

// stageCorpus runs the transformers that need the slug index of every
// surviving document.
func stageCorpus(ctx context.Context, bs *buildState) error {
	assets := make([]slug.FullSlug, 0, len(bs.discovered.Assets))
	for _, a := range bs.discovered.Assets {
		assets = append(assets, a.Slug())
	}
	bs.corpus = transforms.NewCorpus(bs.documents(), assets)
	tc := &transforms.Context{Site: bs.cfg.Site, Corpus: bs.corpus}

	return bs.forEachDocument(ctx, StageCorpus, func(ctx context.Context, i int) (*document.Document, error) {
		doc := bs.results[i].Doc
		if err := bs.chain.Run(ctx, transforms.PhaseCorpus, doc, tc); err != nil {
			return nil, err
		}
		return doc, nil
	})
}

// stageRender turns each final AST into an HTML fragment.
func stageRender(ctx context.Context, bs *buildState) error {
	return bs.forEachDocument(ctx, StageRender, func(_ context.Context, i int) (*document.Document, error) {
		doc := bs.results[i].Doc
		html, err := markdown.Render(bs.parser.Markdown(), doc.Source(), doc.AST)
		if err != nil {
			return nil, err
		}
		doc.HTML = html
		return doc, nil
	})
}

// forEachDocument runs fn for every result that has not errored yet, on a
// pool bounded by the configured worker count. A failure, panic or timeout
// marks that result errored and never stops the others. The call returns
// after every started document has finished or been abandoned.
func (bs *buildState) forEachDocument(ctx context.Context, stage StageName, fn func(ctx context.Context, i int) (*document.Document, error)) error {
	timeout := bs.cfg.Build.DocumentTimeout
	var g errgroup.Group
	g.SetLimit(bs.cfg.Build.EffectiveWorkers())

	for i := range bs.results {
		if bs.results[i].Err != nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r := &bs.results[i]
			doc, err := isolate(ctx, timeout, func(dctx context.Context) (*document.Document, error) {
				return fn(dctx, i)
			})
			if err != nil {
				if ctx.Err() != nil {
					// The build is being canceled; the stage result is discarded.
					return nil
				}
				r.Err = err
				r.Stage = failedStage(stage, err)
				category := ferrors.CategoryParse
				var step *transforms.StepError
				if errors.As(err, &step) {
					category = ferrors.CategoryTransform
				}
				observability.WarnContext(ctx, "Document failed",
					logfields.Path(r.RelativePath),
					logfields.Stage(r.Stage),
					logfields.Error(ferrors.WrapError(err, category, "document excluded").Build()))
				return nil
			}
			r.Doc = doc
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("stage %s interrupted: %w", stage, err)
	}
	return nil
}

// isolate runs fn under a deadline and a panic boundary. When the deadline
// passes, isolate returns without waiting for fn; the abandoned call's result
// is discarded.
func isolate[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Document worker panicked", slog.Any("panic", rec), slog.String("stack", string(debug.Stack())))
				done <- outcome{err: fmt.Errorf("panic: %v", rec)}
			}
		}()
		v, err := fn(dctx)
		done <- outcome{v: v, err: err}
	}()

	select {
	case o := <-done:
		return o.v, o.err
	case <-dctx.Done():
		var zero T
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, fmt.Errorf("%w after %s", ErrDocumentTimeout, timeout)
	}
}

func failedStage(stage StageName, err error) string {
	var step *transforms.StepError
	if errors.As(err, &step) {
		return string(stage) + "/" + step.Transformer
	}
	return string(stage)
}

// recordDocumentResults aggregates the per-document outcomes into the report.
func (bs *buildState) recordDocumentResults(ctx context.Context) {
	for _, r := range bs.results {
		switch r.Status() {
		case document.StatusErrored:
			bs.recorder.IncDocumentResult(metrics.ResultError)
			issue := DocumentIssue{Path: r.RelativePath, Slug: string(slug.FromPath(r.RelativePath)), Stage: r.Stage}
			if r.Err != nil {
				issue.Error = r.Err.Error()
			}
			bs.report.Errored = append(bs.report.Errored, issue)
		case document.StatusDegraded:
			bs.recorder.IncDocumentResult(metrics.ResultWarning)
			bs.report.Degraded = append(bs.report.Degraded, DocumentIssue{
				Path:  r.RelativePath,
				Slug:  string(r.Doc.Slug),
				Error: strings.Join(r.Doc.Warnings, "; "),
			})
			for _, w := range r.Doc.Warnings {
				observability.WarnContext(observability.WithSlug(ctx, string(r.Doc.Slug)), "Document warning",
					logfields.Path(r.RelativePath), slog.String("warning", w))
			}
		default:
			bs.recorder.IncDocumentResult(metrics.ResultSuccess)
		}
	}
}
