package emitters

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/vaultsite/internal/discovery"
	"git.home.luguber.info/inful/vaultsite/internal/graph"
	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

var slugMarker = []byte(`data-slug="`)

func bodyContext() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
}

// linkTargets answers whether a link target still exists in the emitted site.
type linkTargets struct {
	graph  *graph.Graph
	assets map[slug.FullSlug]struct{}
}

func newLinkTargets(g *graph.Graph, assets []discovery.File) linkTargets {
	t := linkTargets{graph: g, assets: make(map[slug.FullSlug]struct{}, len(assets))}
	for _, f := range assets {
		t.assets[f.Slug()] = struct{}{}
	}
	return t
}

func (t linkTargets) live(s slug.FullSlug) bool {
	if _, ok := t.graph.Document(s); ok {
		return true
	}
	_, ok := t.assets[s]
	return ok
}

// resolveFragment finalizes the fragment of the page at from. Transclusion
// placeholders are replaced with the rendered content of the embedded page,
// one level deep. Placeholders of pages that are not in the graph, and
// internal links whose target is neither a page nor an asset, are marked
// broken.
func resolveFragment(fragment []byte, from slug.FullSlug, targets linkTargets) ([]byte, error) {
	if !bytes.Contains(fragment, slugMarker) {
		return fragment, nil
	}
	nodes, err := html.ParseFragment(bytes.NewReader(fragment), bodyContext())
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", from, err)
	}

	var placeholders []*html.Node
	for _, n := range nodes {
		collect(n, func(el *html.Node) bool {
			return el.DataAtom == atom.Blockquote && hasClass(el, "transclude")
		}, &placeholders)
	}
	for _, bq := range placeholders {
		target := slug.FullSlug(attr(bq, "data-slug"))
		if target == from {
			continue
		}
		doc, ok := targets.graph.Document(target)
		if !ok {
			markUnresolved(bq)
			continue
		}
		if len(doc.HTML) == 0 {
			continue
		}
		embedded, err := html.ParseFragment(bytes.NewReader(doc.HTML), bodyContext())
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", target, err)
		}
		embedded = selectBlock(embedded, strings.TrimPrefix(attr(bq, "data-block"), "#"))
		if len(embedded) == 0 {
			continue
		}
		for c := bq.FirstChild; c != nil; c = bq.FirstChild {
			bq.RemoveChild(c)
		}
		for _, n := range embedded {
			rebase(n, target, from)
			if n.Parent != nil {
				n.Parent.RemoveChild(n)
			}
			bq.AppendChild(n)
		}
	}

	var links []*html.Node
	for _, n := range nodes {
		collect(n, func(el *html.Node) bool {
			return el.DataAtom == atom.A && attr(el, "data-slug") != ""
		}, &links)
	}
	for _, a := range links {
		if !targets.live(slug.FullSlug(attr(a, "data-slug"))) {
			addClass(a, "broken")
		}
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return nil, fmt.Errorf("render %s: %w", from, err)
		}
	}
	return buf.Bytes(), nil
}

// markUnresolved turns a transclusion placeholder into a broken internal
// link to its target.
func markUnresolved(bq *html.Node) {
	addClass(bq, "broken")
	for c := bq.FirstChild; c != nil; c = c.NextSibling {
		if c.DataAtom == atom.A && hasClass(c, "transclude-inner") {
			addClass(c, "internal")
			addClass(c, "broken")
			setAttr(c, "data-slug", attr(bq, "data-slug"))
		}
	}
}

// selectBlock narrows embedded content to one section. A heading id selects
// the heading and everything up to the next heading of the same or a higher
// level; any other id selects that element. An empty id selects everything.
func selectBlock(nodes []*html.Node, id string) []*html.Node {
	if id == "" {
		return nodes
	}
	for i, n := range nodes {
		if n.Type != html.ElementNode {
			continue
		}
		if attr(n, "id") == id {
			level := headingLevel(n)
			if level == 0 {
				return []*html.Node{n}
			}
			out := []*html.Node{n}
			for _, next := range nodes[i+1:] {
				if l := headingLevel(next); l > 0 && l <= level {
					break
				}
				out = append(out, next)
			}
			return out
		}
		var found []*html.Node
		collect(n, func(el *html.Node) bool { return attr(el, "id") == id }, &found)
		if len(found) > 0 {
			return found[:1]
		}
	}
	return nil
}

func headingLevel(n *html.Node) int {
	switch n.DataAtom {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

// rebase rewrites relative URLs written for the page at from so they resolve
// from the page at to.
func rebase(n *html.Node, from, to slug.FullSlug) {
	if n.Type == html.ElementNode {
		for i, a := range n.Attr {
			switch a.Key {
			case "href", "src", "data-url":
				n.Attr[i].Val = slug.Rebase(a.Val, from, to)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rebase(c, from, to)
	}
}

func collect(n *html.Node, match func(*html.Node) bool, out *[]*html.Node) {
	if n.Type == html.ElementNode && match(n) {
		*out = append(*out, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, match, out)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func addClass(n *html.Node, class string) {
	if hasClass(n, class) {
		return
	}
	setAttr(n, "class", strings.TrimSpace(attr(n, "class")+" "+class))
}

// textContent returns the whitespace-collapsed text of an HTML fragment.
func textContent(fragment []byte) (string, error) {
	nodes, err := html.ParseFragment(bytes.NewReader(fragment), bodyContext())
	if err != nil {
		return "", err
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
		case n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(b.String()), " "), nil
}
