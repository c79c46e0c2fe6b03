package build

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/events"
	ferrors "git.home.luguber.info/inful/vaultsite/internal/foundation/errors"
	"git.home.luguber.info/inful/vaultsite/internal/graph"
	"git.home.luguber.info/inful/vaultsite/internal/logfields"
	"git.home.luguber.info/inful/vaultsite/internal/metrics"
	"git.home.luguber.info/inful/vaultsite/internal/observability"
	"git.home.luguber.info/inful/vaultsite/internal/render"
	"git.home.luguber.info/inful/vaultsite/internal/transforms"
)

// BuildService is the canonical interface for executing vault builds.
type BuildService interface {
	// Run executes the complete pipeline and returns a report. The report is
	// non-nil even when err is set.
	Run(ctx context.Context, req BuildRequest) (*Report, error)
}

// BuildRequest contains all inputs required to execute a build.
type BuildRequest struct {
	// Config is the loaded configuration for this build.
	Config *config.Config

	// Options provides optional build behavior modifiers.
	Options BuildOptions
}

// BuildOptions provides optional configuration for build behavior.
type BuildOptions struct {
	// Force runs the full pipeline even when the inputs are unchanged.
	Force bool

	// Clean removes the output directory before writing.
	Clean bool

	// BuildID overrides the generated build identifier.
	BuildID string
}

// DefaultBuildService is the standard implementation of BuildService.
type DefaultBuildService struct {
	recorder     metrics.Recorder
	publisher    events.Publisher
	layout       render.Layout
	transformers []transforms.Transformer
}

// NewBuildService creates a DefaultBuildService with the default layout and
// no metrics or event publication.
func NewBuildService() *DefaultBuildService {
	return &DefaultBuildService{
		recorder:  metrics.NoopRecorder{},
		publisher: events.NoopPublisher{},
	}
}

// WithRecorder sets the metrics recorder.
func (s *DefaultBuildService) WithRecorder(r metrics.Recorder) *DefaultBuildService {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithPublisher sets the build event publisher.
func (s *DefaultBuildService) WithPublisher(p events.Publisher) *DefaultBuildService {
	if p != nil {
		s.publisher = p
	}
	return s
}

// WithLayout replaces the default page layout.
func (s *DefaultBuildService) WithLayout(l render.Layout) *DefaultBuildService {
	s.layout = l
	return s
}

// WithTransformers adds transformers to the configured chain. They are
// validated and ordered together with the configured ones.
func (s *DefaultBuildService) WithTransformers(t ...transforms.Transformer) *DefaultBuildService {
	s.transformers = append(s.transformers, t...)
	return s
}

// Run executes the complete build pipeline.
func (s *DefaultBuildService) Run(ctx context.Context, req BuildRequest) (*Report, error) {
	buildID := req.Options.BuildID
	if buildID == "" {
		buildID = uuid.NewString()
	}
	report := newReport(buildID)
	ctx = observability.WithBuildID(ctx, buildID)

	if req.Config == nil {
		report.fatal = true
		report.Error = "config required"
		s.finish(ctx, report, nil)
		return report, ferrors.ConfigError("config required").Build()
	}

	bs := newBuildState(req, report, s)
	defer bs.close(ctx)

	observability.InfoContext(ctx, "Starting build",
		logfields.Path(req.Config.Paths.Content),
		slog.String("output", req.Config.Paths.Output))

	err := runStages(ctx, bs, defaultStages())
	if err != nil {
		report.Error = err.Error()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			report.canceled = true
		} else {
			report.fatal = true
		}
	}
	s.finish(ctx, report, bs)

	if err != nil {
		return report, classifyFatal(err)
	}
	return report, partialError(report)
}

// finish derives the outcome and flushes metrics, events and the report file.
func (s *DefaultBuildService) finish(ctx context.Context, report *Report, bs *buildState) {
	report.finish()
	report.deriveOutcome()

	s.recorder.SetBrokenLinks(len(report.BrokenLinks))
	s.recorder.IncBuildOutcome(string(report.Outcome))
	s.recorder.ObserveBuildDuration(report.Duration())

	observability.InfoContext(ctx, "Build finished",
		logfields.Outcome(string(report.Outcome)),
		logfields.DurationMS(float64(report.Duration().Milliseconds())),
		slog.String("summary", report.Summary()))

	if err := s.publisher.PublishBuild(ctx, buildEvent(report)); err != nil {
		observability.WarnContext(ctx, "Failed to publish build event", logfields.Error(err))
	}

	if bs == nil || bs.cfg.Build.ReportFile == "" {
		return
	}
	if err := report.Persist(bs.cfg.Build.ReportFile); err != nil {
		observability.WarnContext(ctx, "Failed to persist build report", logfields.Path(bs.cfg.Build.ReportFile), logfields.Error(err))
	}
}

func buildEvent(r *Report) *events.BuildCompleted {
	ev := &events.BuildCompleted{
		BuildID:          r.BuildID,
		Outcome:          string(r.Outcome),
		Documents:        r.Documents,
		ArtifactsWritten: r.ArtifactsWritten,
		DurationMS:       r.Duration().Milliseconds(),
		Timestamp:        r.End.UTC(),
	}
	for _, d := range r.Errored {
		ev.ErroredDocuments = append(ev.ErroredDocuments, d.Path)
	}
	for _, l := range r.BrokenLinks {
		ev.BrokenLinks = append(ev.BrokenLinks, events.BrokenLink{Source: string(l.Source), Target: l.Raw, Reason: string(l.Reason)})
	}
	for _, e := range r.EmitterFailures {
		ev.EmitterFailures = append(ev.EmitterFailures, e.Emitter)
	}
	return ev
}

// classifyFatal makes sure an aborting error carries a category.
func classifyFatal(err error) error {
	if _, ok := ferrors.AsClassified(err); ok {
		return err
	}
	var dup *graph.DuplicateSlugError
	switch {
	case errors.As(err, &dup):
		return ferrors.WrapError(err, ferrors.CategorySlug, "duplicate slug").Fatal().Build()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "build canceled").Fatal().Build()
	default:
		return ferrors.WrapError(err, ferrors.CategoryInternal, "build failed").Fatal().Build()
	}
}

// partialError reports document or emitter failures as a non-fatal error so
// callers can exit with a partial-failure status.
func partialError(r *Report) error {
	switch {
	case len(r.EmitterFailures) > 0:
		return ferrors.EmitError("one or more emitters failed").
			WithContext("emitters", len(r.EmitterFailures)).
			WithContext("errored_documents", len(r.Errored)).
			Build()
	case len(r.Errored) > 0:
		return ferrors.ParseError("one or more documents failed").
			WithContext("errored_documents", len(r.Errored)).
			Build()
	}
	return nil
}

func stageDuration(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
