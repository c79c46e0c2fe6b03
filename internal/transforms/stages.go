package transforms

import (
	"context"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
)

// Stage is a major step of the chain. Stages execute in StageOrder.
type Stage string

const (
	// StageParse canonicalizes front matter.
	StageParse Stage = "parse"
	// StageEnrich adds metadata from outside the document (dates).
	StageEnrich Stage = "enrich"
	// StageNormalize rewrites dialect nodes into canonical nodes.
	StageNormalize Stage = "normalize"
	// StageMarkup renders code and math.
	StageMarkup Stage = "markup"
	// StageLinks resolves links against the corpus.
	StageLinks Stage = "links"
	// StageDerive computes read-only views of the final tree.
	StageDerive Stage = "derive"
)

// StageOrder defines the execution order of stages.
var StageOrder = []Stage{StageParse, StageEnrich, StageNormalize, StageMarkup, StageLinks, StageDerive}

// Phase separates per-document work from work that needs the whole corpus.
type Phase string

const (
	PhaseDocument Phase = "document"
	PhaseCorpus   Phase = "corpus"
)

// Phase returns the phase the stage belongs to.
func (s Stage) Phase() Phase {
	switch s {
	case StageLinks, StageDerive:
		return PhaseCorpus
	default:
		return PhaseDocument
	}
}

// StageIndex returns the position of stage in StageOrder, or -1.
func StageIndex(stage Stage) int {
	for i, s := range StageOrder {
		if s == stage {
			return i
		}
	}
	return -1
}

// Dependencies declares ordering constraints between transformers.
type Dependencies struct {
	// MustRunAfter lists transformers that must complete first when enabled.
	MustRunAfter []string
	// MustRunBefore lists transformers that must run later when enabled.
	MustRunBefore []string
	// Requires lists transformers that must be enabled for this one to work.
	Requires []string
}

// Transformer enriches or rewrites one document.
type Transformer interface {
	Name() string
	Stage() Stage
	Dependencies() Dependencies
	Transform(ctx context.Context, doc *document.Document, tc *Context) error
}

// Context is what a transformer may read besides its own document.
type Context struct {
	Site config.SiteConfig
	// Corpus is nil during the document phase.
	Corpus *Corpus
}
