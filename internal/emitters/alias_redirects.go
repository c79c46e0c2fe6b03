package emitters

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"
	"sort"
	"strings"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/logfields"
	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

var redirectTemplate = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html lang="{{ .Locale }}">
<head>
<title>{{ .Title }}</title>
<link rel="canonical" href="{{ .URL }}">
<meta name="robots" content="noindex">
<meta charset="utf-8">
<meta http-equiv="refresh" content="0; url={{ .URL }}">
</head>
</html>
`))

type redirect struct {
	from, to slug.FullSlug
	title    string
}

type aliasRedirects struct{}

func newAliasRedirects(config.Options) (Emitter, error) { return aliasRedirects{}, nil }

func (aliasRedirects) Name() string { return string(KindAliasRedirects) }

// Emit writes a meta-refresh stub for every front matter alias and
// permalink, and for each configured site redirect. A stub never replaces a
// real document.
func (aliasRedirects) Emit(ctx context.Context, in *Input) ([]Artifact, error) {
	var redirects []redirect
	for _, d := range in.Graph.Documents() {
		for _, alias := range append(append([]string{}, d.Aliases...), d.Permalink) {
			if strings.TrimSpace(alias) == "" {
				continue
			}
			redirects = append(redirects, redirect{from: slug.FromPath(alias), to: d.Slug, title: d.Title})
		}
	}
	from := make([]string, 0, len(in.Site.Redirects))
	for k := range in.Site.Redirects {
		from = append(from, k)
	}
	sort.Strings(from)
	for _, k := range from {
		to := slug.FromPath(in.Site.Redirects[k])
		title := string(to)
		if d, ok := in.Graph.Document(to); ok {
			title = d.Title
		}
		redirects = append(redirects, redirect{from: slug.FromPath(k), to: to, title: title})
	}

	out := make([]Artifact, 0, len(redirects))
	written := make(map[slug.FullSlug]bool, len(redirects))
	for _, r := range redirects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, exists := in.Graph.Document(r.from); exists || r.from == r.to {
			slog.Warn("Skipping redirect that shadows a page", logfields.Slug(string(r.from)), logfields.Target(string(r.to)))
			continue
		}
		if written[r.from] {
			slog.Warn("Duplicate redirect source", logfields.Slug(string(r.from)), logfields.Target(string(r.to)))
			continue
		}
		written[r.from] = true

		var buf bytes.Buffer
		err := redirectTemplate.Execute(&buf, map[string]string{
			"Locale": in.Site.Locale,
			"Title":  r.title,
			"URL":    slug.Relative(r.from, r.to),
		})
		if err != nil {
			return nil, err
		}
		out = append(out, Artifact{Path: r.from.OutputPath(), Content: buf.Bytes()})
	}
	return out, nil
}
