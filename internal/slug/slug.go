// Package slug derives URL-safe document identities from vault paths and
// computes the relative URLs pages use to reference each other.
//
// A FullSlug never has a leading or trailing slash and never carries a .md
// extension ("notes/daily/2024-01-01", "notes/index"). A SimpleSlug is the
// URL form with trailing "index" removed ("notes/", "/").
package slug

import (
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// FullSlug is the canonical identity of a document or asset.
type FullSlug string

// SimpleSlug is a FullSlug with its trailing index segment removed.
type SimpleSlug string

// Index is the slug of the vault root page.
const Index FullSlug = "index"

var replacer = strings.NewReplacer(
	"&", "-and-",
	"%", "-percent",
	"?", "",
	"#", "",
)

// Sluggify rewrites every path segment of s into URL-safe form. Case is preserved.
func Sluggify(s string) string {
	s = norm.NFC.String(s)
	segments := strings.Split(s, "/")
	for i, seg := range segments {
		seg = strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return '-'
			}
			return r
		}, seg)
		segments[i] = replacer.Replace(seg)
	}
	return strings.TrimSuffix(strings.Join(segments, "/"), "/")
}

// FromPath derives the slug for a vault-relative file path. Markdown and HTML
// extensions are dropped; other extensions are kept so assets stay addressable.
func FromPath(rel string) FullSlug {
	rel = strings.Trim(strings.ReplaceAll(rel, "\\", "/"), "/")
	ext := path.Ext(rel)
	base := strings.TrimSuffix(rel, ext)
	switch strings.ToLower(ext) {
	case ".md", ".markdown", ".html", "":
		ext = ""
	}

	s := Sluggify(base)
	if s == "_index" || strings.HasSuffix(s, "/_index") {
		s = strings.TrimSuffix(s, "_index") + "index"
	}
	if s == "" {
		s = string(Index)
	}
	return FullSlug(s + ext)
}

// Join builds a FullSlug from segments, sluggifying each one.
func Join(segments ...string) FullSlug {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.Trim(s, "/"); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return Index
	}
	return FullSlug(Sluggify(strings.Join(parts, "/")))
}

// Name returns the last path segment.
func (s FullSlug) Name() string {
	return path.Base(string(s))
}

// Dir returns the folder containing the slug ("" at the vault root).
func (s FullSlug) Dir() string {
	d := path.Dir(string(s))
	if d == "." {
		return ""
	}
	return d
}

// IsFolderIndex reports whether the slug names a folder's index page.
func (s FullSlug) IsFolderIndex() bool {
	return s.Name() == "index"
}

// Folder returns the folder a page lists or lives in. For a folder index that
// is the folder itself; for a regular page it is its parent directory.
func (s FullSlug) Folder() string {
	return s.Dir()
}

// Simplify removes the trailing index segment.
func (s FullSlug) Simplify() SimpleSlug {
	str := string(s)
	switch {
	case str == string(Index):
		return "/"
	case strings.HasSuffix(str, "/index"):
		return SimpleSlug(strings.TrimSuffix(str, "index"))
	}
	return SimpleSlug(str)
}

// OutputPath is the artifact path for a page slug.
func (s FullSlug) OutputPath() string {
	if path.Ext(string(s)) != "" && !strings.HasSuffix(string(s), ".html") {
		return string(s)
	}
	return string(s) + ".html"
}

// FolderIndex returns the index slug of folder ("" is the root).
func FolderIndex(folder string) FullSlug {
	if folder == "" {
		return Index
	}
	return FullSlug(strings.Trim(folder, "/") + "/index")
}

// PathToRoot returns the relative prefix leading from the page at s back to the
// site root, for example ".." for "notes/a" and "." for "a".
func PathToRoot(s FullSlug) string {
	depth := strings.Count(string(s), "/")
	if depth == 0 {
		return "."
	}
	return strings.TrimSuffix(strings.Repeat("../", depth), "/")
}

// Relative returns the URL the page at from uses to reach to.
func Relative(from, to FullSlug) string {
	target := string(to.Simplify())
	if target == "/" {
		target = ""
	}
	return joinURL(PathToRoot(from), target)
}

// RelativeFile returns a URL from the page at from to an artifact path such as
// "index.css" or "static/contentIndex.json".
func RelativeFile(from FullSlug, artifact string) string {
	return joinURL(PathToRoot(from), strings.TrimPrefix(artifact, "/"))
}

func joinURL(root, target string) string {
	if target == "" {
		return root + "/"
	}
	return root + "/" + target
}

// Rebase rewrites a relative URL written for the page at from so that it
// resolves identically when embedded in the page at to. Absolute URLs and
// fragment-only references are returned unchanged.
func Rebase(href string, from, to FullSlug) string {
	if href == "" || strings.HasPrefix(href, "#") || strings.Contains(href, "://") ||
		strings.HasPrefix(href, "/") || strings.HasPrefix(href, "mailto:") {
		return href
	}
	frag := ""
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href, frag = href[:i], href[i:]
	}
	trailing := strings.HasSuffix(href, "/")
	abs := path.Join(from.Dir(), href)
	if abs == "." {
		abs = ""
	}
	out := joinURL(PathToRoot(to), abs)
	if trailing && !strings.HasSuffix(out, "/") {
		out += "/"
	}
	return out + frag
}

// Tag normalizes a tag for use in URLs and the tag index. Hierarchy is kept.
func Tag(tag string) string {
	tag = strings.Trim(strings.TrimPrefix(strings.TrimSpace(tag), "#"), "/")
	return Sluggify(tag)
}

// TagAncestors expands "a/b/c" into "a", "a/b" and "a/b/c".
func TagAncestors(tag string) []string {
	parts := strings.Split(tag, "/")
	out := make([]string, 0, len(parts))
	for i := range parts {
		out = append(out, strings.Join(parts[:i+1], "/"))
	}
	return out
}
