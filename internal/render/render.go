// Package render turns a page context record into a complete HTML document.
//
// The pipeline hands every page to a Layout. The default layout is a small
// html/template set embedded in the binary; callers can supply their own.
package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"time"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
	"git.home.luguber.info/inful/vaultsite/internal/graph"
	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

// PageKind distinguishes authored pages from synthetic listings.
type PageKind string

const (
	KindContent  PageKind = "content"
	KindFolder   PageKind = "folder"
	KindTag      PageKind = "tag"
	KindTagIndex PageKind = "tag-index"
	KindNotFound PageKind = "404"
)

// Ref is a link from the current page to another one.
type Ref struct {
	Slug  slug.FullSlug
	Title string
	URL   string
	Date  *time.Time
	Count int // listing size for folder and tag references
}

// Page is the context record a layout arranges into presentational regions.
type Page struct {
	Kind        PageKind
	Site        config.SiteConfig
	Slug        slug.FullSlug
	Title       string
	Description string
	Content     template.HTML
	Dates       document.Dates
	DateType    config.DateType
	Tags        []Ref
	Backlinks   []Ref
	TOC         []document.TOCEntry
	CSSClasses  []string

	// Listing holds member pages of folder and tag pages.
	Listing    []Ref
	Subfolders []Ref

	// Neighborhood is the local link graph around the page.
	Neighborhood *graph.Neighborhood

	Stylesheets []string
	Scripts     []string
	PathToRoot  string
}

// Layout renders a page.
type Layout interface {
	Render(w io.Writer, p *Page) error
}

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// DefaultLayout is the embedded template layout.
type DefaultLayout struct {
	tpl *template.Template
}

// NewDefaultLayout parses the embedded templates.
func NewDefaultLayout() (*DefaultLayout, error) {
	tpl, err := template.New("page.html.tmpl").Funcs(template.FuncMap{
		"date":      formatDate,
		"graphJSON": graphJSON,
		"join":      joinClasses,
	}).ParseFS(embeddedTemplates, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse layout templates: %w", err)
	}
	return &DefaultLayout{tpl: tpl}, nil
}

// Render implements Layout.
func (l *DefaultLayout) Render(w io.Writer, p *Page) error {
	if err := l.tpl.ExecuteTemplate(w, "page.html.tmpl", p); err != nil {
		return fmt.Errorf("render %s: %w", p.Slug, err)
	}
	return nil
}

// Bytes renders p with layout into a byte slice.
func Bytes(layout Layout, p *Page) ([]byte, error) {
	var buf bytes.Buffer
	if err := layout.Render(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("Jan 02, 2006")
}

// graphJSON serializes the neighborhood for the graph view script.
func graphJSON(n *graph.Neighborhood) (template.JS, error) {
	if n == nil {
		return "null", nil
	}
	b, err := json.Marshal(n)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil //nolint:gosec // json.Marshal escapes <, > and &
}

func joinClasses(base string, extra []string) string {
	out := base
	for _, c := range extra {
		if c != "" {
			out += " " + c
		}
	}
	return out
}
