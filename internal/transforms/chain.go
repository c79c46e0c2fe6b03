package transforms

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
)

// DependencyError reports a chain that cannot satisfy declared dependencies.
type DependencyError struct {
	Transformer string
	Dependency  string
	Reason      string
}

func (e *DependencyError) Error() string {
	if e.Dependency == "" {
		return fmt.Sprintf("transformer %q: %s", e.Transformer, e.Reason)
	}
	return fmt.Sprintf("transformer %q: %s %q", e.Transformer, e.Reason, e.Dependency)
}

// Chain is a validated, ordered list of transformers.
type Chain struct {
	ordered    []Transformer
	configured []string
	warnings   []string
}

// ChainOptions controls chain construction.
type ChainOptions struct {
	// Strict rejects a configured order that differs from the resolved order
	// instead of reordering.
	Strict bool
}

// NewChain constructs and validates the transformers named in cfgs.
func NewChain(cfgs []config.PluginConfig, env Env, opts ChainOptions) (*Chain, error) {
	transformers := make([]Transformer, 0, len(cfgs))
	for _, cfg := range cfgs {
		t, err := New(cfg, env)
		if err != nil {
			return nil, err
		}
		transformers = append(transformers, t)
	}
	return BuildChain(transformers, opts)
}

// BuildChain validates and orders already constructed transformers.
func BuildChain(transformers []Transformer, opts ChainOptions) (*Chain, error) {
	if err := validateDependencies(transformers); err != nil {
		return nil, err
	}

	byStage := make(map[Stage][]Transformer)
	for _, t := range transformers {
		byStage[t.Stage()] = append(byStage[t.Stage()], t)
	}
	ordered := make([]Transformer, 0, len(transformers))
	for _, stage := range StageOrder {
		sorted, err := topologicalSort(byStage[stage])
		if err != nil {
			return nil, err
		}
		ordered = append(ordered, sorted...)
	}

	c := &Chain{ordered: ordered}
	for _, t := range transformers {
		c.configured = append(c.configured, t.Name())
	}
	if violation := firstViolation(transformers); violation != nil {
		if opts.Strict {
			return nil, violation
		}
		c.warnings = append(c.warnings, fmt.Sprintf("%s; configured order %s reordered to %s",
			violation.Error(), strings.Join(c.configured, " → "), strings.Join(c.Names(), " → ")))
	}
	return c, nil
}

func validateDependencies(transformers []Transformer) error {
	byName := make(map[string]Transformer, len(transformers))
	for _, t := range transformers {
		if StageIndex(t.Stage()) < 0 {
			return &DependencyError{Transformer: t.Name(), Reason: fmt.Sprintf("invalid stage %q", t.Stage())}
		}
		if _, dup := byName[t.Name()]; dup {
			return &DependencyError{Transformer: t.Name(), Reason: "configured more than once"}
		}
		byName[t.Name()] = t
	}

	for _, t := range transformers {
		deps := t.Dependencies()
		for _, req := range deps.Requires {
			if _, ok := byName[req]; !ok {
				return &DependencyError{Transformer: t.Name(), Dependency: req, Reason: "requires disabled transformer"}
			}
		}
		for _, dep := range deps.MustRunAfter {
			other, ok := byName[dep]
			if ok && StageIndex(other.Stage()) > StageIndex(t.Stage()) {
				return &DependencyError{Transformer: t.Name(), Dependency: dep,
					Reason: fmt.Sprintf("must run after later-stage (%s) transformer", other.Stage())}
			}
		}
		for _, after := range deps.MustRunBefore {
			other, ok := byName[after]
			if ok && StageIndex(other.Stage()) < StageIndex(t.Stage()) {
				return &DependencyError{Transformer: t.Name(), Dependency: after,
					Reason: fmt.Sprintf("must run before earlier-stage (%s) transformer", other.Stage())}
			}
		}
	}
	return nil
}

// firstViolation returns the first dependency the configured order breaks.
func firstViolation(configured []Transformer) *DependencyError {
	position := make(map[string]int, len(configured))
	for i, t := range configured {
		position[t.Name()] = i
	}
	for i, t := range configured {
		deps := t.Dependencies()
		for _, dep := range deps.MustRunAfter {
			if j, ok := position[dep]; ok && j > i {
				return &DependencyError{Transformer: t.Name(), Dependency: dep, Reason: "configured before its dependency"}
			}
		}
		for _, after := range deps.MustRunBefore {
			if j, ok := position[after]; ok && j < i {
				return &DependencyError{Transformer: t.Name(), Dependency: after, Reason: "configured after its dependent"}
			}
		}
		for j := 0; j < i; j++ {
			if StageIndex(configured[j].Stage()) > StageIndex(t.Stage()) {
				return &DependencyError{Transformer: t.Name(), Dependency: configured[j].Name(),
					Reason: "configured after a transformer of a later stage"}
			}
		}
	}
	return nil
}

// Names returns the resolved execution order.
func (c *Chain) Names() []string {
	out := make([]string, 0, len(c.ordered))
	for _, t := range c.ordered {
		out = append(out, t.Name())
	}
	return out
}

// Transformers returns the resolved execution order.
func (c *Chain) Transformers() []Transformer { return slices.Clone(c.ordered) }

// Warnings returns messages about reordering performed during construction.
func (c *Chain) Warnings() []string { return c.warnings }

// Reordered reports whether the configured order had to change.
func (c *Chain) Reordered() bool { return len(c.warnings) > 0 }

// Phase returns the transformers belonging to phase, in order.
func (c *Chain) Phase(p Phase) []Transformer {
	var out []Transformer
	for _, t := range c.ordered {
		if t.Stage().Phase() == p {
			out = append(out, t)
		}
	}
	return out
}

// Run applies the transformers of phase p to doc. The context is checked
// before each transformer so a cancelled or timed-out document stops early.
func (c *Chain) Run(ctx context.Context, p Phase, doc *document.Document, tc *Context) error {
	for _, t := range c.Phase(p) {
		if err := ctx.Err(); err != nil {
			return &StepError{Transformer: t.Name(), Err: err}
		}
		if err := t.Transform(ctx, doc, tc); err != nil {
			return &StepError{Transformer: t.Name(), Err: err}
		}
	}
	return nil
}

// StepError wraps a transformer failure with the transformer name.
type StepError struct {
	Transformer string
	Err         error
}

func (e *StepError) Error() string { return fmt.Sprintf("%s: %v", e.Transformer, e.Err) }

func (e *StepError) Unwrap() error { return e.Err }
