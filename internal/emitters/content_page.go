package emitters

import (
	"context"
	"fmt"
	"html/template"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
	"git.home.luguber.info/inful/vaultsite/internal/render"
	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

type contentPage struct {
	graphDepth int
}

func newContentPage(opts config.Options) (Emitter, error) {
	return &contentPage{graphDepth: opts.Int("graph_depth", 1)}, nil
}

func (*contentPage) Name() string { return string(KindContentPage) }

// Emit writes one page per document. Folder index documents land at
// <folder>/index.html.
func (c *contentPage) Emit(ctx context.Context, in *Input) ([]Artifact, error) {
	targets := newLinkTargets(in.Graph, in.Assets)
	return forEachDocument(ctx, in.Workers, in.Graph.Documents(), func(d *document.Document) (Artifact, error) {
		page, err := c.page(in, targets, d)
		if err != nil {
			return Artifact{}, err
		}
		out, err := render.Bytes(in.Layout, page)
		if err != nil {
			return Artifact{}, err
		}
		return Artifact{Path: d.Slug.OutputPath(), Content: out}, nil
	})
}

func (c *contentPage) page(in *Input, targets linkTargets, d *document.Document) (*render.Page, error) {
	body, err := resolveFragment(d.HTML, d.Slug, targets)
	if err != nil {
		return nil, fmt.Errorf("resolve links in %s: %w", d.RelativePath, err)
	}

	p := newPage(in, render.KindContent, d.Slug, d.Title)
	p.Description = d.Description
	p.Content = template.HTML(body) //nolint:gosec // rendered by goldmark from vault content
	p.Dates = d.Dates
	p.TOC = d.TOC
	p.CSSClasses = d.CSSClasses
	for _, tag := range d.Tags {
		p.Tags = append(p.Tags, render.Ref{Title: tag, URL: slug.Relative(d.Slug, tagSlug(tag))})
	}
	for _, s := range in.Graph.Backlinks(d.Slug) {
		if b, ok := in.Graph.Document(s); ok {
			p.Backlinks = append(p.Backlinks, documentRef(d.Slug, b, in.Site.DefaultDateType))
		}
	}
	if c.graphDepth != 0 {
		n := in.Graph.Neighborhood(d.Slug, c.graphDepth)
		p.Neighborhood = &n
	}
	return p, nil
}

func tagSlug(tag string) slug.FullSlug {
	return slug.FullSlug("tags/" + tag)
}
