package transforms

import (
	"sort"

	"git.home.luguber.info/inful/vaultsite/internal/document"
	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

// Corpus is the read-only view of all documents available to corpus-phase
// transformers. It is built once at the phase barrier.
type Corpus struct {
	docs     map[slug.FullSlug]*document.Document
	assets   map[slug.FullSlug]struct{}
	slugs    []slug.FullSlug
	resolver *slug.Resolver
}

// NewCorpus indexes documents and asset slugs. When two documents share a
// slug the first one wins here; the graph builder reports the collision.
func NewCorpus(docs []*document.Document, assets []slug.FullSlug) *Corpus {
	c := &Corpus{
		docs:   make(map[slug.FullSlug]*document.Document, len(docs)),
		assets: make(map[slug.FullSlug]struct{}, len(assets)),
	}
	all := make([]slug.FullSlug, 0, len(docs)+len(assets))
	for _, d := range docs {
		if _, dup := c.docs[d.Slug]; dup {
			continue
		}
		c.docs[d.Slug] = d
		c.slugs = append(c.slugs, d.Slug)
		all = append(all, d.Slug)
	}
	for _, a := range assets {
		c.assets[a] = struct{}{}
		all = append(all, a)
	}
	sort.Slice(c.slugs, func(i, j int) bool { return c.slugs[i] < c.slugs[j] })
	c.resolver = slug.NewResolver(all)
	return c
}

// Resolver resolves link targets against documents and assets.
func (c *Corpus) Resolver() *slug.Resolver { return c.resolver }

// Document returns the document with slug s.
func (c *Corpus) Document(s slug.FullSlug) (*document.Document, bool) {
	d, ok := c.docs[s]
	return d, ok
}

// IsAsset reports whether s names a non-markdown vault file.
func (c *Corpus) IsAsset(s slug.FullSlug) bool {
	_, ok := c.assets[s]
	return ok
}

// Slugs returns the document slugs in sorted order.
func (c *Corpus) Slugs() []slug.FullSlug { return c.slugs }
