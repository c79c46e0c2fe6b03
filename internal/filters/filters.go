// Package filters removes documents from the corpus graph before emission.
package filters

import (
	"context"
	"fmt"
	"sort"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
	"git.home.luguber.info/inful/vaultsite/internal/graph"
	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

// Kind names a filter variant. The values are the config keys.
type Kind string

const (
	KindRemoveDrafts    Kind = "remove_drafts"
	KindExplicitPublish Kind = "explicit_publish"
)

// Filter decides which documents leave the graph.
type Filter interface {
	Name() string
	// Excludes reports whether d must be removed.
	Excludes(d *document.Document) bool
}

type factory func(opts config.Options) (Filter, error)

var registry = map[Kind]factory{
	KindRemoveDrafts:    func(config.Options) (Filter, error) { return removeDrafts{}, nil },
	KindExplicitPublish: func(config.Options) (Filter, error) { return explicitPublish{}, nil },
}

// Kinds returns every registered filter name, sorted.
func Kinds() []Kind {
	out := make([]Kind, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// New constructs the configured filters in order.
func New(cfgs []config.PluginConfig) ([]Filter, error) {
	out := make([]Filter, 0, len(cfgs))
	for _, cfg := range cfgs {
		f, ok := registry[Kind(cfg.Name)]
		if !ok {
			return nil, fmt.Errorf("unknown filter %q", cfg.Name)
		}
		filter, err := f(cfg.Options)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", cfg.Name, err)
		}
		out = append(out, filter)
	}
	return out, nil
}

// Removal records the documents one filter removed.
type Removal struct {
	Filter string          `json:"filter"`
	Slugs  []slug.FullSlug `json:"slugs"`
}

// Apply runs filters in order against g. Each removal re-derives the graph's
// indices, so later filters see backlinks of the reduced corpus.
func Apply(ctx context.Context, g *graph.Graph, filters []Filter) ([]Removal, error) {
	var removals []Removal
	for _, f := range filters {
		if err := ctx.Err(); err != nil {
			return removals, err
		}
		var drop []slug.FullSlug
		for _, d := range g.Documents() {
			if f.Excludes(d) {
				drop = append(drop, d.Slug)
			}
		}
		if len(drop) == 0 {
			continue
		}
		if err := g.Remove(drop...); err != nil {
			return removals, fmt.Errorf("filter %s: %w", f.Name(), err)
		}
		removals = append(removals, Removal{Filter: f.Name(), Slugs: drop})
	}
	return removals, nil
}

type removeDrafts struct{}

func (removeDrafts) Name() string { return string(KindRemoveDrafts) }

// Excludes falls back to the raw front matter so the filter works without the
// frontmatter transformer.
func (removeDrafts) Excludes(d *document.Document) bool {
	return d.Draft || document.Truthy(d.FrontMatter["draft"])
}

type explicitPublish struct{}

func (explicitPublish) Name() string { return string(KindExplicitPublish) }

func (explicitPublish) Excludes(d *document.Document) bool {
	if d.Publish != nil {
		return !*d.Publish
	}
	return !document.Truthy(d.FrontMatter["publish"])
}
