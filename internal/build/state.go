package build

import (
	"context"

	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/discovery"
	"git.home.luguber.info/inful/vaultsite/internal/document"
	"git.home.luguber.info/inful/vaultsite/internal/emitters"
	"git.home.luguber.info/inful/vaultsite/internal/filters"
	"git.home.luguber.info/inful/vaultsite/internal/git"
	"git.home.luguber.info/inful/vaultsite/internal/graph"
	"git.home.luguber.info/inful/vaultsite/internal/incremental"
	"git.home.luguber.info/inful/vaultsite/internal/logfields"
	"git.home.luguber.info/inful/vaultsite/internal/markdown"
	"git.home.luguber.info/inful/vaultsite/internal/metrics"
	"git.home.luguber.info/inful/vaultsite/internal/observability"
	"git.home.luguber.info/inful/vaultsite/internal/parser"
	"git.home.luguber.info/inful/vaultsite/internal/render"
	"git.home.luguber.info/inful/vaultsite/internal/transforms"
)

// buildState is the mutable state threaded through the stages of one build.
// Stages run sequentially; per-document workers only write their own slot of
// results.
type buildState struct {
	req      BuildRequest
	cfg      *config.Config
	report   *Report
	recorder metrics.Recorder
	layout   render.Layout
	extra    []transforms.Transformer

	md          goldmark.Markdown
	parser      *parser.Parser
	chain       *transforms.Chain
	filters     []filters.Filter
	emitters    []emitters.Emitter
	highlighter *markdown.Highlighter
	dates       *git.DateSource
	cache       *incremental.Cache

	discovered *discovery.Result
	results    document.Results
	corpus     *transforms.Corpus
	graph      *graph.Graph
	outputs    []emitters.Output

	signature string
	skipped   bool
}

func newBuildState(req BuildRequest, report *Report, s *DefaultBuildService) *buildState {
	return &buildState{
		req:      req,
		cfg:      req.Config,
		report:   report,
		recorder: s.recorder,
		layout:   s.layout,
		extra:    s.transformers,
	}
}

func (bs *buildState) close(ctx context.Context) {
	if bs.cache == nil {
		return
	}
	if err := bs.cache.Close(); err != nil {
		observability.WarnContext(ctx, "Failed to close build cache", logfields.Error(err))
	}
}

// documents returns the documents that survived the per-document stages.
func (bs *buildState) documents() []*document.Document {
	return bs.results.Documents()
}
