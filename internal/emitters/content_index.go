package emitters

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

const (
	sitemapPath      = "sitemap.xml"
	feedPath         = "index.xml"
	contentIndexPath = "static/contentIndex.json"
	defaultRSSLimit  = 10
)

type contentIndex struct {
	sitemap  bool
	rss      bool
	rssLimit int
}

func newContentIndex(opts config.Options) (Emitter, error) {
	return &contentIndex{
		sitemap:  opts.Bool("enable_sitemap", true),
		rss:      opts.Bool("enable_rss", true),
		rssLimit: opts.Int("rss_limit", defaultRSSLimit),
	}, nil
}

func (*contentIndex) Name() string { return string(KindContentIndex) }

// Emit writes the sitemap, the RSS feed of the newest documents and the JSON
// content index consumed by search and graph scripts.
func (c *contentIndex) Emit(ctx context.Context, in *Input) ([]Artifact, error) {
	docs := in.Graph.Documents()
	var out []Artifact
	if c.sitemap {
		b, err := sitemap(in, docs)
		if err != nil {
			return nil, err
		}
		out = append(out, Artifact{Path: sitemapPath, Content: b})
	}
	if c.rss {
		b, err := feed(in, docs, c.rssLimit)
		if err != nil {
			return nil, err
		}
		out = append(out, Artifact{Path: feedPath, Content: b})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := index(in, docs)
	if err != nil {
		return nil, err
	}
	return append(out, Artifact{Path: contentIndexPath, Content: b}), nil
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func sitemap(in *Input, docs []*document.Document) ([]byte, error) {
	set := urlSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, d := range docs {
		u := sitemapURL{Loc: absoluteURL(in.Site.BaseURL, d.Slug)}
		if t := d.Dates.Get(string(in.Site.DefaultDateType)); t != nil {
			u.LastMod = t.UTC().Format("2006-01-02")
		}
		set.URLs = append(set.URLs, u)
	}
	return marshalXML(set)
}

type rss struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Generator   string    `xml:"generator"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate,omitempty"`
}

// feed lists the newest documents first. A negative limit lists all of them.
func feed(in *Input, docs []*document.Document, limit int) ([]byte, error) {
	sorted := append([]*document.Document(nil), docs...)
	sortByDate(sorted, in.Site.DefaultDateType)
	if limit >= 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	ch := rssChannel{
		Title:       in.Site.Title,
		Link:        siteURL(in.Site.BaseURL),
		Description: fmt.Sprintf("Last %d notes on %s", len(sorted), in.Site.Title),
		Generator:   "vaultsite",
	}
	for _, d := range sorted {
		u := absoluteURL(in.Site.BaseURL, d.Slug)
		item := rssItem{Title: d.Title, Link: u, GUID: u, Description: d.Description}
		if t := d.Dates.Get(string(in.Site.DefaultDateType)); t != nil {
			item.PubDate = rfc822(*t)
		}
		ch.Items = append(ch.Items, item)
	}
	return marshalXML(rss{Version: "2.0", Channel: ch})
}

func marshalXML(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// indexEntry is one document in contentIndex.json.
type indexEntry struct {
	Slug        slug.FullSlug   `json:"slug"`
	FilePath    string          `json:"filePath"`
	Title       string          `json:"title"`
	Links       []slug.FullSlug `json:"links"`
	Tags        []string        `json:"tags"`
	Content     string          `json:"content"`
	Description string          `json:"description,omitempty"`
	Date        string          `json:"date,omitempty"`
}

func index(in *Input, docs []*document.Document) ([]byte, error) {
	entries := make(map[slug.FullSlug]indexEntry, len(docs))
	for _, d := range docs {
		text, err := textContent(d.HTML)
		if err != nil {
			return nil, fmt.Errorf("extract text from %s: %w", d.RelativePath, err)
		}
		e := indexEntry{
			Slug:        d.Slug,
			FilePath:    d.RelativePath,
			Title:       d.Title,
			Links:       in.Graph.ForwardLinks(d.Slug),
			Tags:        append([]string{}, d.Tags...),
			Content:     text,
			Description: d.Description,
		}
		if t := d.Dates.Get(string(in.Site.DefaultDateType)); t != nil {
			e.Date = t.UTC().Format("2006-01-02T15:04:05Z07:00")
		}
		entries[d.Slug] = e
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode content index: %w", err)
	}
	return b, nil
}
