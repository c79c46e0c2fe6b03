package graph

import (
	"sort"

	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

// Node is a document in a neighborhood.
type Node struct {
	Slug  slug.FullSlug `json:"slug"`
	Title string        `json:"title"`
	Tags  []string      `json:"tags,omitempty"`
}

// Edge is a forward link between two documents.
type Edge struct {
	Source slug.FullSlug `json:"source"`
	Target slug.FullSlug `json:"target"`
}

// Neighborhood is the part of the graph within some link distance of a page.
type Neighborhood struct {
	Center slug.FullSlug `json:"center"`
	Nodes  []Node        `json:"nodes"`
	Links  []Edge        `json:"links"`
}

// Neighborhood collects documents reachable from s within depth hops,
// following links in either direction. A negative depth means the whole graph.
// Nodes and Links are never nil so they encode as JSON arrays.
func (g *Graph) Neighborhood(s slug.FullSlug, depth int) Neighborhood {
	n := Neighborhood{Center: s, Nodes: []Node{}, Links: []Edge{}}
	if _, ok := g.docs[s]; !ok {
		return n
	}

	seen := set{s: {}}
	frontier := []slug.FullSlug{s}
	for hop := 0; len(frontier) > 0 && (depth < 0 || hop < depth); hop++ {
		var next []slug.FullSlug
		for _, cur := range frontier {
			for _, nb := range append(g.ForwardLinks(cur), g.Backlinks(cur)...) {
				if _, ok := seen[nb]; ok {
					continue
				}
				seen[nb] = struct{}{}
				next = append(next, nb)
			}
		}
		frontier = next
	}

	for _, member := range seen.sorted() {
		d := g.docs[member]
		n.Nodes = append(n.Nodes, Node{Slug: member, Title: d.Title, Tags: d.Tags})
		for _, target := range g.ForwardLinks(member) {
			if _, ok := seen[target]; ok {
				n.Links = append(n.Links, Edge{Source: member, Target: target})
			}
		}
	}
	sort.Slice(n.Links, func(i, j int) bool {
		if n.Links[i].Source != n.Links[j].Source {
			return n.Links[i].Source < n.Links[j].Source
		}
		return n.Links[i].Target < n.Links[j].Target
	})
	return n
}
