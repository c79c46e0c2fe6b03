// Package graph builds the corpus graph: the slug index of every surviving
// document with its forward links, derived backlinks, broken links, tag index
// and folder tree.
//
// Backlinks are never maintained by hand. Every change to the document set
// re-derives all indices from the documents' outbound links, so the
// invariant "B is a backlink of A iff A is a forward link of B" holds by
// construction.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"git.home.luguber.info/inful/vaultsite/internal/document"
	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

// ErrPublished is returned when mutating a graph that emitters already see.
var ErrPublished = errors.New("graph is published and read-only")

// DuplicateSlugError reports two source files that normalize to one slug.
type DuplicateSlugError struct {
	Slug   slug.FullSlug
	First  string
	Second string
}

func (e *DuplicateSlugError) Error() string {
	return fmt.Sprintf("duplicate slug %q: %s and %s", e.Slug, e.First, e.Second)
}

// BrokenReason says why a link has no live target.
type BrokenReason string

const (
	// ReasonMissing means no document or asset matches the target.
	ReasonMissing BrokenReason = "missing"
	// ReasonFiltered means the target existed but a filter removed it.
	ReasonFiltered BrokenReason = "filtered"
)

// BrokenLink is an internal link whose target is not part of the graph.
type BrokenLink struct {
	Source slug.FullSlug `json:"source"`
	Target slug.FullSlug `json:"target"`
	Raw    string        `json:"raw"`
	Reason BrokenReason  `json:"reason"`
}

type set map[slug.FullSlug]struct{}

func (s set) sorted() []slug.FullSlug {
	out := make([]slug.FullSlug, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Graph is the in-memory model of the corpus.
type Graph struct {
	mu        sync.RWMutex
	published bool

	docs    map[slug.FullSlug]*document.Document
	removed set

	slugs     []slug.FullSlug
	forward   map[slug.FullSlug]set
	backlinks map[slug.FullSlug]set
	broken    []BrokenLink
	tags      map[string]set
	folders   map[string]*Folder
}

// Build indexes docs. Two documents with the same slug fail the build with a
// *DuplicateSlugError naming both source files.
func Build(docs []*document.Document) (*Graph, error) {
	g := &Graph{
		docs:    make(map[slug.FullSlug]*document.Document, len(docs)),
		removed: make(set),
	}
	for _, d := range docs {
		if prev, dup := g.docs[d.Slug]; dup {
			first, second := prev.RelativePath, d.RelativePath
			if second < first {
				first, second = second, first
			}
			return nil, &DuplicateSlugError{Slug: d.Slug, First: first, Second: second}
		}
		g.docs[d.Slug] = d
	}
	g.reindex()
	return g, nil
}

// reindex derives every index from the current document set.
func (g *Graph) reindex() {
	g.slugs = make([]slug.FullSlug, 0, len(g.docs))
	for s := range g.docs {
		g.slugs = append(g.slugs, s)
	}
	sort.Slice(g.slugs, func(i, j int) bool { return g.slugs[i] < g.slugs[j] })

	g.forward = make(map[slug.FullSlug]set, len(g.docs))
	g.broken = nil
	g.tags = make(map[string]set)
	for _, s := range g.slugs {
		d := g.docs[s]
		out := make(set)
		for _, l := range d.Links {
			if l.Kind != document.LinkInternal {
				continue
			}
			switch {
			case !l.Resolved:
				g.broken = append(g.broken, BrokenLink{Source: s, Target: l.Target, Raw: l.Raw, Reason: ReasonMissing})
			case l.Asset:
			case g.docs[l.Target] != nil:
				if l.Target != s {
					out[l.Target] = struct{}{}
				}
			default:
				reason := ReasonMissing
				if _, ok := g.removed[l.Target]; ok {
					reason = ReasonFiltered
				}
				g.broken = append(g.broken, BrokenLink{Source: s, Target: l.Target, Raw: l.Raw, Reason: reason})
			}
		}
		g.forward[s] = out

		for _, tag := range d.Tags {
			for _, t := range slug.TagAncestors(tag) {
				if g.tags[t] == nil {
					g.tags[t] = make(set)
				}
				g.tags[t][s] = struct{}{}
			}
		}
	}

	g.backlinks = make(map[slug.FullSlug]set, len(g.docs))
	for src, targets := range g.forward {
		for dst := range targets {
			if g.backlinks[dst] == nil {
				g.backlinks[dst] = make(set)
			}
			g.backlinks[dst][src] = struct{}{}
		}
	}
	g.folders = buildFolders(g.slugs)
}

// Remove drops documents and re-derives all indices. Links that pointed at a
// removed document are reported as filtered broken links.
func (g *Graph) Remove(slugs ...slug.FullSlug) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.published {
		return ErrPublished
	}
	for _, s := range slugs {
		if _, ok := g.docs[s]; ok {
			delete(g.docs, s)
			g.removed[s] = struct{}{}
		}
	}
	g.reindex()
	return nil
}

// Publish freezes the graph.
func (g *Graph) Publish() {
	g.mu.Lock()
	g.published = true
	g.mu.Unlock()
}

// Published reports whether Publish was called.
func (g *Graph) Published() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.published
}

// Len returns the number of documents.
func (g *Graph) Len() int { return len(g.slugs) }

// Slugs returns every document slug, sorted.
func (g *Graph) Slugs() []slug.FullSlug {
	return append([]slug.FullSlug(nil), g.slugs...)
}

// Document returns the document with slug s.
func (g *Graph) Document(s slug.FullSlug) (*document.Document, bool) {
	d, ok := g.docs[s]
	return d, ok
}

// Documents returns all documents sorted by slug.
func (g *Graph) Documents() []*document.Document {
	out := make([]*document.Document, 0, len(g.slugs))
	for _, s := range g.slugs {
		out = append(out, g.docs[s])
	}
	return out
}

// Removed returns the slugs removed by filters, sorted.
func (g *Graph) Removed() []slug.FullSlug { return g.removed.sorted() }

// ForwardLinks returns the documents s links to, sorted.
func (g *Graph) ForwardLinks(s slug.FullSlug) []slug.FullSlug { return g.forward[s].sorted() }

// Backlinks returns the documents linking to s, sorted.
func (g *Graph) Backlinks(s slug.FullSlug) []slug.FullSlug { return g.backlinks[s].sorted() }

// BrokenLinks returns every broken link ordered by source then target.
func (g *Graph) BrokenLinks() []BrokenLink {
	out := append([]BrokenLink(nil), g.broken...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// Tags returns every tag including hierarchy ancestors, sorted.
func (g *Graph) Tags() []string {
	out := make([]string, 0, len(g.tags))
	for t := range g.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// DocumentsWithTag returns the slugs carrying tag or one of its descendants.
func (g *Graph) DocumentsWithTag(tag string) []slug.FullSlug { return g.tags[tag].sorted() }
