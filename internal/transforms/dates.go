package transforms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
)

// DateSourceKind names one of the places a date can come from.
type DateSourceKind string

const (
	SourceFrontMatter DateSourceKind = "frontmatter"
	SourceGit         DateSourceKind = "git"
	SourceFilesystem  DateSourceKind = "filesystem"
)

// DefaultDatePriority is used when no priority option is configured.
var DefaultDatePriority = []DateSourceKind{SourceFrontMatter, SourceGit, SourceFilesystem}

var (
	createdKeys   = []string{"created", "date"}
	modifiedKeys  = []string{"modified", "lastmod", "updated", "last-modified"}
	publishedKeys = []string{"published", "publishDate", "date"}
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"02 Jan 2006",
}

type dates struct {
	priority []DateSourceKind
	vcs      DateSource
}

func newDates(opts config.Options, env Env) (Transformer, error) {
	d := &dates{vcs: env.Dates}
	for _, s := range opts.StringSlice("priority", nil) {
		kind := DateSourceKind(strings.ToLower(strings.TrimSpace(s)))
		switch kind {
		case SourceFrontMatter, SourceGit, SourceFilesystem:
			d.priority = append(d.priority, kind)
		default:
			return nil, fmt.Errorf("%s: unknown date source %q", KindDates, s)
		}
	}
	if len(d.priority) == 0 {
		d.priority = DefaultDatePriority
	}
	return d, nil
}

func (*dates) Name() string { return string(KindDates) }
func (*dates) Stage() Stage { return StageEnrich }
func (*dates) Dependencies() Dependencies {
	return Dependencies{MustRunAfter: []string{string(KindFrontMatter)}}
}

// candidate is what one source offers; nil fields offer nothing.
type candidate struct {
	created, modified, published *time.Time
}

func (d *dates) Transform(_ context.Context, doc *document.Document, _ *Context) error {
	for _, source := range d.priority {
		c := d.fromSource(source, doc)
		if doc.Dates.Created == nil {
			doc.Dates.Created = c.created
		}
		if doc.Dates.Modified == nil {
			doc.Dates.Modified = c.modified
		}
		if doc.Dates.Published == nil {
			doc.Dates.Published = c.published
		}
	}
	return nil
}

func (d *dates) fromSource(source DateSourceKind, doc *document.Document) candidate {
	switch source {
	case SourceFrontMatter:
		return candidate{
			created:   frontMatterDate(doc, createdKeys),
			modified:  frontMatterDate(doc, modifiedKeys),
			published: frontMatterDate(doc, publishedKeys),
		}
	case SourceGit:
		if d.vcs == nil || doc.FilePath == "" {
			return candidate{}
		}
		fd, ok, err := d.vcs.Dates(doc.FilePath)
		if err != nil {
			doc.Warnf("git dates unavailable: %v", err)
			return candidate{}
		}
		if !ok {
			return candidate{}
		}
		created, modified := fd.Created, fd.Modified
		return candidate{created: &created, modified: &modified}
	case SourceFilesystem:
		if doc.ModTime.IsZero() {
			return candidate{}
		}
		mod := doc.ModTime
		return candidate{created: &mod, modified: &mod}
	}
	return candidate{}
}

// frontMatterDate returns the first key holding a usable date. Empty values
// count as absent so the next key, then the next source, is consulted.
func frontMatterDate(doc *document.Document, keys []string) *time.Time {
	for _, k := range keys {
		v, ok := doc.FrontMatter[k]
		if !ok || v == nil {
			continue
		}
		t, ok := parseDate(v)
		if !ok {
			if s := scalarString(v); s != "" {
				doc.Warnf("front matter %s: unparseable date %q", k, s)
			}
			continue
		}
		return &t
	}
	return nil
}

func parseDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
	case int:
		return time.Unix(int64(t), 0).UTC(), t > 0
	}
	return time.Time{}, false
}
