package transforms

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
	"git.home.luguber.info/inful/vaultsite/internal/markdown"
	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

// ErrNoCorpus is returned when a corpus-phase transformer runs without one.
var ErrNoCorpus = errors.New("corpus not available in the document phase")

// crawlLinks classifies every outbound reference and rewrites internal ones
// to relative URLs.
type crawlLinks struct {
	strategy slug.Strategy
	newTab   bool
	lazyLoad bool
}

func newCrawlLinks(opts config.Options, _ Env) (Transformer, error) {
	return &crawlLinks{
		strategy: slug.ParseStrategy(opts.String("markdown_link_resolution", string(slug.Shortest))),
		newTab:   opts.Bool("open_links_in_new_tab", false),
		lazyLoad: opts.Bool("lazy_load", false),
	}, nil
}

func (*crawlLinks) Name() string { return string(KindCrawlLinks) }
func (*crawlLinks) Stage() Stage { return StageLinks }
func (*crawlLinks) Dependencies() Dependencies {
	return Dependencies{MustRunAfter: []string{string(KindObsidian), string(KindGitHub)}}
}

func (c *crawlLinks) Transform(_ context.Context, doc *document.Document, tc *Context) error {
	if tc == nil || tc.Corpus == nil {
		return ErrNoCorpus
	}
	if doc.AST == nil {
		return nil
	}
	doc.Links = nil

	nodes := markdown.Collect(doc.AST, func(n ast.Node) bool {
		switch n.Kind() {
		case ast.KindLink, ast.KindImage, ast.KindAutoLink, markdown.KindTransclude:
			return true
		}
		return false
	})
	src := doc.Source()
	for _, n := range nodes {
		switch v := n.(type) {
		case *ast.Link:
			if isHeadingAnchor(v) {
				continue
			}
			link, dest := c.classify(string(v.Destination), doc, tc.Corpus)
			v.Destination = []byte(dest)
			c.decorate(v, link)
			doc.Links = append(doc.Links, link)
		case *ast.Image:
			link, dest := c.classify(string(v.Destination), doc, tc.Corpus)
			link.Embed = true
			v.Destination = []byte(dest)
			if c.lazyLoad {
				v.SetAttributeString("loading", []byte("lazy"))
			}
			doc.Links = append(doc.Links, link)
		case *ast.AutoLink:
			raw := string(v.URL(src))
			if v.AutoLinkType == ast.AutoLinkEmail {
				raw = "mailto:" + raw
			}
			doc.Links = append(doc.Links, document.Link{Raw: raw, Kind: document.LinkExternal, URL: raw})
		case *markdown.Transclude:
			target, ok := tc.Corpus.Resolver().Resolve(v.Target, doc.Slug, c.strategy)
			raw := v.Target
			v.Target = string(target)
			v.URL = slug.Relative(doc.Slug, target)
			doc.Links = append(doc.Links, document.Link{
				Raw:      raw,
				Kind:     document.LinkInternal,
				Target:   target,
				Anchor:   v.Anchor,
				Resolved: ok,
				Embed:    true,
			})
		}
	}
	return nil
}

// classify resolves one destination and returns the rewritten href.
func (c *crawlLinks) classify(dest string, doc *document.Document, corpus *Corpus) (document.Link, string) {
	if isExternal(dest) {
		return document.Link{Raw: dest, Kind: document.LinkExternal, URL: dest}, dest
	}
	if strings.HasPrefix(dest, "#") {
		return document.Link{Raw: dest, Kind: document.LinkAnchor, Anchor: dest[1:]}, dest
	}

	target, anchor := dest, ""
	if i := strings.IndexByte(dest, '#'); i >= 0 {
		target, anchor = dest[:i], dest[i+1:]
	}
	if unescaped, err := url.PathUnescape(target); err == nil {
		target = unescaped
	}
	if i := strings.IndexByte(target, '?'); i >= 0 {
		target = target[:i]
	}

	resolved, ok := corpus.Resolver().Resolve(target, doc.Slug, c.strategy)
	href := slug.Relative(doc.Slug, resolved)
	if anchor != "" {
		href += "#" + anchor
	}
	return document.Link{
		Raw:      dest,
		Kind:     document.LinkInternal,
		Target:   resolved,
		Anchor:   anchor,
		Resolved: ok,
		Asset:    corpus.IsAsset(resolved),
	}, href
}

func (c *crawlLinks) decorate(v *ast.Link, link document.Link) {
	classes := []string{string(link.Kind)}
	switch link.Kind {
	case document.LinkExternal:
		if c.newTab {
			v.SetAttributeString("target", []byte("_blank"))
			v.SetAttributeString("rel", []byte("noopener noreferrer"))
		}
	case document.LinkAnchor:
		classes[0] = "internal"
	case document.LinkInternal:
		v.SetAttributeString("data-slug", []byte(link.Target))
		if link.IsBroken() {
			classes = append(classes, "broken")
		}
	}
	if existing, ok := v.AttributeString("class"); ok {
		if b, ok := existing.([]byte); ok && len(b) > 0 {
			classes = append([]string{string(b)}, classes...)
		}
	}
	v.SetAttributeString("class", []byte(strings.Join(classes, " ")))
}

var externalSchemes = map[string]bool{
	"http": true, "https": true, "mailto": true, "tel": true, "ftp": true,
	"data": true, "obsidian": true, "file": true,
}

func isExternal(dest string) bool {
	if strings.HasPrefix(dest, "//") || strings.Contains(dest, "://") {
		return true
	}
	scheme, _, ok := strings.Cut(dest, ":")
	return ok && externalSchemes[strings.ToLower(scheme)]
}
