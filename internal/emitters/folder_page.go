package emitters

import (
	"context"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
	"git.home.luguber.info/inful/vaultsite/internal/graph"
	"git.home.luguber.info/inful/vaultsite/internal/render"
	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

type folderPage struct{}

func newFolderPage(config.Options) (Emitter, error) { return folderPage{}, nil }

func (folderPage) Name() string { return string(KindFolderPage) }

// Emit writes a listing for every folder that has no authored index page.
func (folderPage) Emit(ctx context.Context, in *Input) ([]Artifact, error) {
	var out []Artifact
	for _, path := range in.Graph.Folders() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, _ := in.Graph.Folder(path)
		if f.HasIndex() {
			continue
		}
		page := folderListing(in, f)
		b, err := render.Bytes(in.Layout, page)
		if err != nil {
			return nil, err
		}
		out = append(out, Artifact{Path: page.Slug.OutputPath(), Content: b})
	}
	return out, nil
}

func folderListing(in *Input, f *graph.Folder) *render.Page {
	s := slug.FolderIndex(f.Path)
	title := in.Site.Title
	if f.Path != "" {
		title = displayTitle(f.Name(), in.Site.Locale)
	}
	p := newPage(in, render.KindFolder, s, title)

	docs := make([]*document.Document, 0, len(f.Documents))
	for _, ds := range f.Documents {
		if d, ok := in.Graph.Document(ds); ok {
			docs = append(docs, d)
		}
	}
	sortByDate(docs, in.Site.DefaultDateType)
	for _, d := range docs {
		p.Listing = append(p.Listing, documentRef(s, d, in.Site.DefaultDateType))
	}
	for _, sub := range f.Subfolders {
		child, _ := in.Graph.Folder(sub)
		ref := render.Ref{
			Slug:  slug.FolderIndex(sub),
			Title: displayTitle(child.Name(), in.Site.Locale),
			URL:   slug.Relative(s, slug.FolderIndex(sub)),
			Count: countDocuments(in.Graph, sub),
		}
		if child.HasIndex() {
			if d, ok := in.Graph.Document(child.Index); ok {
				ref.Title = d.Title
			}
		}
		p.Subfolders = append(p.Subfolders, ref)
	}
	return p
}

// countDocuments counts pages in folder and all of its subfolders.
func countDocuments(g *graph.Graph, folder string) int {
	f, ok := g.Folder(folder)
	if !ok {
		return 0
	}
	n := len(f.Documents)
	if f.HasIndex() {
		n++
	}
	for _, sub := range f.Subfolders {
		n += countDocuments(g, sub)
	}
	return n
}
