package emitters

import (
	"context"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
	"git.home.luguber.info/inful/vaultsite/internal/render"
	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

const tagIndexSlug slug.FullSlug = "tags/index"

type tagPage struct{}

func newTagPage(config.Options) (Emitter, error) { return tagPage{}, nil }

func (tagPage) Name() string { return string(KindTagPage) }

// Emit writes tags/<tag>.html for every tag, including hierarchy ancestors,
// and tags/index.html listing them all.
func (tagPage) Emit(ctx context.Context, in *Input) ([]Artifact, error) {
	tags := in.Graph.Tags()
	out := make([]Artifact, 0, len(tags)+1)

	index := newPage(in, render.KindTagIndex, tagIndexSlug, "All Tags")
	for _, tag := range tags {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := tagSlug(tag)
		members := in.Graph.DocumentsWithTag(tag)
		index.Listing = append(index.Listing, render.Ref{
			Slug:  s,
			Title: tag,
			URL:   slug.Relative(tagIndexSlug, s),
			Count: len(members),
		})

		p := newPage(in, render.KindTag, s, "Tag: "+tag)
		docs := make([]*document.Document, 0, len(members))
		for _, m := range members {
			if d, ok := in.Graph.Document(m); ok {
				docs = append(docs, d)
			}
		}
		sortByDate(docs, in.Site.DefaultDateType)
		for _, d := range docs {
			p.Listing = append(p.Listing, documentRef(s, d, in.Site.DefaultDateType))
		}
		b, err := render.Bytes(in.Layout, p)
		if err != nil {
			return nil, err
		}
		out = append(out, Artifact{Path: s.OutputPath(), Content: b})
	}

	b, err := render.Bytes(in.Layout, index)
	if err != nil {
		return nil, err
	}
	return append(out, Artifact{Path: tagIndexSlug.OutputPath(), Content: b}), nil
}
