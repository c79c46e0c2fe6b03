package emitters

import (
	"context"
	"net/url"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
	"git.home.luguber.info/inful/vaultsite/internal/render"
	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

// newPage fills the fields every layout page shares.
func newPage(in *Input, kind render.PageKind, s slug.FullSlug, title string) *render.Page {
	p := &render.Page{
		Kind:       kind,
		Site:       in.Site,
		Slug:       s,
		Title:      title,
		DateType:   in.Site.DefaultDateType,
		PathToRoot: slug.PathToRoot(s),
	}
	for _, css := range in.Resources.Stylesheets {
		p.Stylesheets = append(p.Stylesheets, slug.RelativeFile(s, css))
	}
	for _, js := range in.Resources.Scripts {
		p.Scripts = append(p.Scripts, slug.RelativeFile(s, js))
	}
	return p
}

// documentRef links from the page at from to d.
func documentRef(from slug.FullSlug, d *document.Document, dateType config.DateType) render.Ref {
	return render.Ref{
		Slug:  d.Slug,
		Title: d.Title,
		URL:   slug.Relative(from, d.Slug),
		Date:  d.Dates.Get(string(dateType)),
	}
}

// sortByDate orders documents newest first, then by title and slug. Documents
// without the selected date sort last.
func sortByDate(docs []*document.Document, dateType config.DateType) {
	sort.SliceStable(docs, func(i, j int) bool {
		di, dj := docs[i].Dates.Get(string(dateType)), docs[j].Dates.Get(string(dateType))
		switch {
		case di != nil && dj != nil && !di.Equal(*dj):
			return di.After(*dj)
		case di != nil && dj == nil:
			return true
		case di == nil && dj != nil:
			return false
		}
		ti, tj := strings.ToLower(docs[i].Title), strings.ToLower(docs[j].Title)
		if ti != tj {
			return ti < tj
		}
		return docs[i].Slug < docs[j].Slug
	})
}

// displayTitle turns a path segment such as "daily-notes" into "Daily Notes".
func displayTitle(segment, locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return cases.Title(tag).String(strings.ReplaceAll(segment, "-", " "))
}

// siteURL returns the absolute URL of the site root with a trailing slash.
func siteURL(baseURL string) string {
	base := strings.TrimSuffix(baseURL, "/")
	if base == "" {
		return "/"
	}
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return base + "/"
}

// basePath is the path component of the base URL, for pages served at
// arbitrary depths such as 404.html.
func basePath(baseURL string) string {
	u, err := url.Parse(siteURL(baseURL))
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

// absoluteURL returns the canonical URL of s.
func absoluteURL(baseURL string, s slug.FullSlug) string {
	simple := string(s.Simplify())
	if simple == "/" {
		simple = ""
	}
	return siteURL(baseURL) + simple
}

// forEachDocument renders one artifact per document in parallel and returns
// them in input order.
func forEachDocument(ctx context.Context, workers int, docs []*document.Document, fn func(*document.Document) (Artifact, error)) ([]Artifact, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]Artifact, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, d := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a, err := fn(d)
			if err != nil {
				return err
			}
			out[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func rfc822(t time.Time) string { return t.UTC().Format(time.RFC1123Z) }
