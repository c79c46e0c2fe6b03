package build

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/discovery"
	"git.home.luguber.info/inful/vaultsite/internal/emitters"
	"git.home.luguber.info/inful/vaultsite/internal/filters"
	ferrors "git.home.luguber.info/inful/vaultsite/internal/foundation/errors"
	"git.home.luguber.info/inful/vaultsite/internal/git"
	"git.home.luguber.info/inful/vaultsite/internal/graph"
	"git.home.luguber.info/inful/vaultsite/internal/incremental"
	"git.home.luguber.info/inful/vaultsite/internal/logfields"
	"git.home.luguber.info/inful/vaultsite/internal/markdown"
	"git.home.luguber.info/inful/vaultsite/internal/metrics"
	"git.home.luguber.info/inful/vaultsite/internal/observability"
	"git.home.luguber.info/inful/vaultsite/internal/parser"
	"git.home.luguber.info/inful/vaultsite/internal/render"
	"git.home.luguber.info/inful/vaultsite/internal/slug"
	"git.home.luguber.info/inful/vaultsite/internal/transforms"
	"git.home.luguber.info/inful/vaultsite/internal/version"
)

// StageName identifies one step of the pipeline.
type StageName string

const (
	StageConfigure StageName = "configure"
	StageDiscover  StageName = "discover"
	StageParse     StageName = "parse"
	StageCorpus    StageName = "corpus"
	StageRender    StageName = "render"
	StageGraph     StageName = "graph"
	StageFilter    StageName = "filter"
	StageEmit      StageName = "emit"
	StageWrite     StageName = "write"
)

// SkipNoChanges is the skip reason recorded when the inputs match the last
// successful build.
const SkipNoChanges = "no_changes"

type stageDef struct {
	Name StageName
	Fn   func(ctx context.Context, bs *buildState) error
}

func defaultStages() []stageDef {
	return []stageDef{
		{StageConfigure, stageConfigure},
		{StageDiscover, stageDiscover},
		{StageParse, stageParse},
		{StageCorpus, stageCorpus},
		{StageRender, stageRender},
		{StageGraph, stageGraph},
		{StageFilter, stageFilter},
		{StageEmit, stageEmit},
		{StageWrite, stageWrite},
	}
}

// runStages executes stages in order, recording timing and stopping on the
// first error. Cancellation is checked before every stage.
func runStages(ctx context.Context, bs *buildState, stages []stageDef) error {
	for _, st := range stages {
		name := string(st.Name)
		select {
		case <-ctx.Done():
			bs.recorder.IncStageResult(name, metrics.ResultCanceled)
			return fmt.Errorf("canceled before stage %s: %w", name, ctx.Err())
		default:
		}

		sctx := observability.WithStage(ctx, name)
		t0 := time.Now()
		err := st.Fn(sctx, bs)
		dur := time.Since(t0)
		bs.report.StageDurations[name] = dur
		bs.recorder.ObserveStageDuration(name, dur)

		if err != nil {
			result := metrics.ResultFatal
			if ctx.Err() != nil {
				result = metrics.ResultCanceled
			}
			bs.recorder.IncStageResult(name, result)
			observability.ErrorContext(sctx, "Stage failed", logfields.DurationMS(stageDuration(dur)), logfields.Error(err))
			return err
		}
		bs.recorder.IncStageResult(name, metrics.ResultSuccess)
		observability.DebugContext(sctx, "Stage complete", logfields.DurationMS(stageDuration(dur)))

		if bs.skipped {
			observability.InfoContext(sctx, "Inputs unchanged since last build; skipping remaining stages")
			return nil
		}
	}
	return nil
}

// stageConfigure builds every plugin before any file is read, so an invalid
// transformer chain fails the build without touching the vault.
func stageConfigure(ctx context.Context, bs *buildState) error {
	cfg := bs.cfg

	if cfg.Build.CacheFile != "" {
		cache, err := incremental.Open(cfg.Build.CacheFile)
		if err != nil {
			observability.WarnContext(ctx, "Build cache unavailable; continuing without it",
				logfields.Path(cfg.Build.CacheFile), logfields.Error(err))
		} else {
			bs.cache = cache
		}
	}

	dates, err := git.OpenDateSource(cfg.Paths.Content)
	switch {
	case errors.Is(err, git.ErrNotRepository):
		observability.DebugContext(ctx, "Content directory is not under version control")
	case err != nil:
		observability.WarnContext(ctx, "Version-control dates unavailable",
			logfields.Error(ferrors.WrapError(err, ferrors.CategoryGit, "open repository").Warning().Build()))
	default:
		if bs.cache != nil {
			dates = dates.WithCache(bs.cache)
		}
		bs.dates = dates
	}

	env := transforms.Env{Site: cfg.Site}
	if bs.dates != nil {
		env.Dates = bs.dates
	}
	list := make([]transforms.Transformer, 0, len(cfg.Transformers)+len(bs.extra))
	for _, pc := range cfg.Transformers {
		t, terr := transforms.New(pc, env)
		if terr != nil {
			return configError(terr, "invalid transformer", logfields.KeyTransformer, pc.Name)
		}
		list = append(list, t)
	}
	list = append(list, bs.extra...)
	chain, err := transforms.BuildChain(list, transforms.ChainOptions{Strict: cfg.Build.StrictTransformerOrder})
	if err != nil {
		return configError(err, "invalid transformer chain", "transformers", strings.Join(config.Names(cfg.Transformers), ","))
	}
	bs.chain = chain
	for _, w := range chain.Warnings() {
		observability.WarnContext(ctx, "Transformer chain reordered", slog.String("detail", w))
	}
	bs.report.ChainWarnings = chain.Warnings()

	if bs.filters, err = filters.New(cfg.Filters); err != nil {
		return configError(err, "invalid filter", "filters", strings.Join(config.Names(cfg.Filters), ","))
	}
	if bs.emitters, err = emitters.New(cfg.Emitters); err != nil {
		return configError(err, "invalid emitter", "emitters", strings.Join(config.Names(cfg.Emitters), ","))
	}
	if pc, ok := config.Find(cfg.Transformers, string(transforms.KindSyntaxHighlight)); ok {
		if bs.highlighter, err = transforms.HighlighterFromOptions(pc.Options); err != nil {
			return configError(err, "invalid syntax highlighting theme", logfields.KeyTransformer, pc.Name)
		}
	}
	if bs.layout == nil {
		layout, lerr := render.NewDefaultLayout()
		if lerr != nil {
			return ferrors.WrapError(lerr, ferrors.CategoryInternal, "default layout").Fatal().Build()
		}
		bs.layout = layout
	}

	bs.md = markdown.New()
	bs.parser = parser.New(bs.md)

	observability.DebugContext(ctx, "Pipeline configured",
		slog.String("transformers", strings.Join(chain.Names(), ",")),
		logfields.Count(len(bs.emitters)))
	return nil
}

func configError(err error, msg, key, value string) error {
	return ferrors.WrapError(err, ferrors.CategoryConfig, msg).WithContext(key, value).Fatal().Build()
}

// stageDiscover walks the vault. Duplicate slugs are rejected here, before
// any document is parsed, and again by the graph builder.
func stageDiscover(ctx context.Context, bs *buildState) error {
	cfg := bs.cfg
	res, err := discovery.New(cfg.Paths.Content, cfg.Site.IgnorePatterns).Discover()
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "discovery failed").
			WithContext("content", cfg.Paths.Content).Fatal().Build()
	}
	bs.discovered = res
	bs.report.Sources = len(res.Markdown)
	bs.report.Assets = len(res.Assets)
	bs.report.Ignored = len(res.Ignored)

	seen := make(map[slug.FullSlug]string, len(res.Markdown))
	for _, f := range res.Markdown {
		s := f.Slug()
		if prev, dup := seen[s]; dup {
			first, second := prev, f.RelativePath
			if second < first {
				first, second = second, first
			}
			return ferrors.WrapError(&graph.DuplicateSlugError{Slug: s, First: first, Second: second}, ferrors.CategorySlug, "duplicate slug").
				WithContext("slug", string(s)).Fatal().Build()
		}
		seen[s] = f.RelativePath
	}

	observability.InfoContext(ctx, "Vault discovered",
		slog.Int("markdown", len(res.Markdown)),
		slog.Int("assets", len(res.Assets)),
		slog.Int("ignored", len(res.Ignored)))

	if bs.cache == nil {
		return nil
	}
	sig, err := bs.computeSignature()
	if err != nil {
		observability.WarnContext(ctx, "Failed to compute build signature", logfields.Error(err))
		return nil
	}
	bs.signature = sig
	if bs.req.Options.Force {
		return nil
	}
	prev, ok, err := bs.cache.Signature(ctx)
	if err != nil {
		observability.WarnContext(ctx, "Failed to read previous build signature", logfields.Error(err))
		return nil
	}
	if ok && prev == sig && bs.outputIntact(ctx) {
		bs.skipped = true
		bs.report.SkipReason = SkipNoChanges
	}
	return nil
}

// computeSignature digests the configuration, the repository head and the
// size and modification time of every input file.
func (bs *buildState) computeSignature() (string, error) {
	cfgData, err := json.Marshal(bs.cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	sig := incremental.BuildSignature{
		ConfigHash: incremental.HashBytes(cfgData),
		Version:    version.Version,
	}
	if bs.dates != nil {
		sig.Head = bs.dates.Head()
	}
	for _, group := range [][]discovery.File{bs.discovered.Markdown, bs.discovered.Assets} {
		for _, f := range group {
			sig.Files = append(sig.Files, incremental.InputFile{Path: "content/" + f.RelativePath, Size: f.Size, ModTime: f.ModTime})
		}
	}
	static := bs.cfg.Paths.Static
	if info, serr := os.Stat(static); serr == nil && info.IsDir() {
		err = filepath.WalkDir(static, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil || d.IsDir() {
				return walkErr
			}
			info, ierr := d.Info()
			if ierr != nil {
				return ierr
			}
			rel, _ := filepath.Rel(static, p)
			sig.Files = append(sig.Files, incremental.InputFile{Path: "static/" + filepath.ToSlash(rel), Size: info.Size(), ModTime: info.ModTime()})
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("walk static dir: %w", err)
		}
	}
	return sig.Hash()
}

// outputIntact reports whether every artifact of the last build is still on disk.
func (bs *buildState) outputIntact(ctx context.Context) bool {
	previous, err := bs.cache.Artifacts(ctx)
	if err != nil || len(previous) == 0 {
		return false
	}
	for p := range previous {
		if _, err := os.Stat(filepath.Join(bs.cfg.Paths.Output, filepath.FromSlash(p))); err != nil {
			return false
		}
	}
	return true
}

func stageGraph(ctx context.Context, bs *buildState) error {
	bs.recordDocumentResults(ctx)

	g, err := graph.Build(bs.documents())
	if err != nil {
		var dup *graph.DuplicateSlugError
		if errors.As(err, &dup) {
			return ferrors.WrapError(err, ferrors.CategorySlug, "duplicate slug").
				WithContext("slug", string(dup.Slug)).
				WithContext("first", dup.First).
				WithContext("second", dup.Second).
				Fatal().Build()
		}
		return ferrors.WrapError(err, ferrors.CategoryInternal, "graph build failed").Fatal().Build()
	}
	bs.graph = g
	observability.InfoContext(ctx, "Corpus graph built", logfields.Count(g.Len()), slog.Int("tags", len(g.Tags())))
	return nil
}

func stageFilter(ctx context.Context, bs *buildState) error {
	removals, err := filters.Apply(ctx, bs.graph, bs.filters)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return ferrors.WrapError(err, ferrors.CategoryInternal, "filter failed").Fatal().Build()
	}
	for _, r := range removals {
		for _, s := range r.Slugs {
			bs.report.Skipped = append(bs.report.Skipped, SkippedDocument{Slug: string(s), Filter: r.Filter})
		}
		if len(r.Slugs) > 0 {
			observability.InfoContext(ctx, "Documents filtered", logfields.Filter(r.Filter), logfields.Count(len(r.Slugs)))
		}
	}

	bs.graph.Publish()
	bs.report.Documents = bs.graph.Len()
	bs.report.BrokenLinks = bs.graph.BrokenLinks()
	for _, l := range bs.report.BrokenLinks {
		warn := ferrors.LinkWarning("broken link").
			WithContext("target", l.Raw).
			WithContext("reason", string(l.Reason)).
			Build()
		observability.WarnContext(observability.WithSlug(ctx, string(l.Source)), "Broken link",
			logfields.Target(l.Raw), logfields.Error(warn))
	}
	return nil
}

func stageEmit(ctx context.Context, bs *buildState) error {
	in := &emitters.Input{
		Graph:       bs.graph,
		Site:        bs.cfg.Site,
		StaticDir:   bs.cfg.Paths.Static,
		Assets:      bs.discovered.Assets,
		Layout:      bs.layout,
		Resources:   emitters.CollectResources(bs.emitters),
		Highlighter: bs.highlighter,
		Workers:     bs.cfg.Build.EffectiveWorkers(),
	}
	bs.outputs = emitters.Run(ctx, bs.emitters, in)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("emit interrupted: %w", err)
	}

	for _, out := range bs.outputs {
		bs.recorder.ObserveEmitterDuration(out.Emitter, out.Duration, out.Err == nil)
		ectx := observability.WithEmitter(ctx, out.Emitter)
		if out.Err != nil {
			bs.report.EmitterFailures = append(bs.report.EmitterFailures, EmitterIssue{Emitter: out.Emitter, Error: out.Err.Err.Error()})
			observability.ErrorContext(ectx, "Emitter failed",
				logfields.Error(ferrors.WrapError(out.Err, ferrors.CategoryEmit, "emitter failed").Build()))
			continue
		}
		observability.DebugContext(ectx, "Emitter complete",
			logfields.Count(len(out.Artifacts)),
			logfields.DurationMS(stageDuration(out.Duration)))
	}
	return nil
}
