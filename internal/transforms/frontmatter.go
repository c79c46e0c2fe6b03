package transforms

import (
	"context"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

// frontMatter copies recognized front matter keys onto the document's
// canonical fields. The map itself is left untouched so layouts can read
// keys this transformer does not know about.
type frontMatter struct{}

func newFrontMatter(config.Options, Env) (Transformer, error) { return frontMatter{}, nil }

func (frontMatter) Name() string               { return string(KindFrontMatter) }
func (frontMatter) Stage() Stage               { return StageParse }
func (frontMatter) Dependencies() Dependencies { return Dependencies{} }

func (frontMatter) Transform(_ context.Context, doc *document.Document, _ *Context) error {
	fm := doc.FrontMatter
	if len(fm) == 0 {
		return nil
	}

	if title := scalarString(fm["title"]); title != "" {
		doc.Title = title
	}
	for _, tag := range stringList(first(fm, "tags", "tag")) {
		doc.AddTag(slug.Tag(tag))
	}
	for _, alias := range stringList(first(fm, "aliases", "alias")) {
		doc.Aliases = appendUnique(doc.Aliases, alias)
	}
	if v, ok := fm["draft"]; ok {
		doc.Draft = document.Truthy(v)
	}
	if v, ok := fm["publish"]; ok && v != nil {
		p := document.Truthy(v)
		doc.Publish = &p
	}
	if d := scalarString(fm["description"]); d != "" {
		doc.Description = d
	}
	if p := scalarString(fm["permalink"]); p != "" {
		doc.Permalink = p
	}
	doc.CSSClasses = stringList(first(fm, "cssclasses", "cssclass"))
	return nil
}

func first(fm map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := fm[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// stringList accepts a YAML sequence or a comma separated string.
func stringList(v any) []string {
	var raw []string
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		for _, item := range t {
			if s := scalarString(item); s != "" {
				raw = append(raw, s)
			}
		}
	case []string:
		raw = t
	case string:
		raw = strings.Split(t, ",")
	default:
		raw = []string{fmt.Sprint(t)}
	}
	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = appendUnique(out, s)
		}
	}
	return out
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any, map[string]any:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
