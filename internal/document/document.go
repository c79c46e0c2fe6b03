// Package document defines the in-memory representation of one vault file as it
// moves through parsing, transformation and graph construction.
package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

// Document is a single markdown source file and everything derived from it.
//
// Per-document transformers mutate a Document in place. Once the graph builder
// has indexed it, the Document is shared read-only with filters and emitters.
type Document struct {
	Slug         slug.FullSlug
	RelativePath string // vault-relative, forward slashes
	FilePath     string // absolute path on disk
	ModTime      time.Time

	Raw              []byte // file bytes as read
	Body             []byte // markdown after front matter; AST segments index into it
	AST              ast.Node
	FrontMatter      map[string]any
	HadFrontMatter   bool
	FrontMatterError error

	Title       string
	Tags        []string
	Aliases     []string
	Draft       bool
	Publish     *bool
	Permalink   string
	CSSClasses  []string
	Dates       Dates
	Description string
	TOC         []TOCEntry
	Links       []Link

	// HTML is the rendered body fragment, set after the corpus phase.
	HTML []byte

	Warnings []string
}

// Source returns the bytes the AST segments refer to.
func (d *Document) Source() []byte {
	return d.Body
}

// Warnf records a non-fatal problem with the document.
func (d *Document) Warnf(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

// HasTag reports whether the document carries tag exactly.
func (d *Document) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag appends tag unless already present.
func (d *Document) AddTag(tag string) {
	if tag == "" || d.HasTag(tag) {
		return
	}
	d.Tags = append(d.Tags, tag)
}

// Dates holds resolved dates. A nil field means the date is unknown.
type Dates struct {
	Created   *time.Time `json:"created,omitempty"`
	Modified  *time.Time `json:"modified,omitempty"`
	Published *time.Time `json:"published,omitempty"`
}

// Get returns the date named by kind ("created", "modified" or "published").
func (d Dates) Get(kind string) *time.Time {
	switch kind {
	case "created":
		return d.Created
	case "published":
		return d.Published
	default:
		return d.Modified
	}
}

// TOCEntry is one heading in a document's table of contents.
type TOCEntry struct {
	Depth int    `json:"depth"`
	Text  string `json:"text"`
	ID    string `json:"id"`
}

// LinkKind classifies an outbound link.
type LinkKind string

const (
	LinkInternal LinkKind = "internal"
	LinkExternal LinkKind = "external"
	LinkAnchor   LinkKind = "anchor"
)

// Link is one outbound reference found in a document body.
type Link struct {
	Raw    string        `json:"raw"`
	Kind   LinkKind      `json:"kind"`
	Target slug.FullSlug `json:"target,omitempty"` // internal links only
	URL    string        `json:"url,omitempty"`    // external links only
	Anchor string        `json:"anchor,omitempty"`
	// Resolved is false for internal links whose target matched no known slug.
	Resolved bool `json:"resolved"`
	// Asset marks internal links that point at a non-markdown vault file.
	Asset bool `json:"asset,omitempty"`
	Embed bool `json:"embed,omitempty"`
}

// IsBroken reports whether the link is an unresolved internal reference.
func (l Link) IsBroken() bool {
	return l.Kind == LinkInternal && !l.Resolved
}

// Truthy interprets a front matter flag. Booleans are taken as is; the strings
// true, yes and on count as set regardless of case.
func Truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "on":
			return true
		}
	}
	return false
}
