package emitters

import (
	"context"
	"strings"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/render"
)

const notFoundMessage = "<p>Either this page is private or doesn't exist.</p>"

type notFoundPage struct{}

func newNotFoundPage(config.Options) (Emitter, error) { return notFoundPage{}, nil }

func (notFoundPage) Name() string { return string(KindNotFoundPage) }

// Emit writes 404.html. The page is served for arbitrary request paths, so
// resource URLs are rooted at the base URL path instead of being relative.
func (notFoundPage) Emit(_ context.Context, in *Input) ([]Artifact, error) {
	p := newPage(in, render.KindNotFound, "404", "404")
	p.Description = "Not Found"
	p.Content = notFoundMessage
	root := strings.TrimSuffix(basePath(in.Site.BaseURL), "/")
	p.PathToRoot = root
	p.Stylesheets, p.Scripts = nil, nil
	for _, css := range in.Resources.Stylesheets {
		p.Stylesheets = append(p.Stylesheets, root+"/"+css)
	}
	for _, js := range in.Resources.Scripts {
		p.Scripts = append(p.Scripts, root+"/"+js)
	}
	b, err := render.Bytes(in.Layout, p)
	if err != nil {
		return nil, err
	}
	return []Artifact{{Path: "404.html", Content: b}}, nil
}
