package slug

import (
	"path"
	"sort"
	"strings"
)

// Strategy selects how a bare link target maps onto a slug.
type Strategy string

const (
	// Shortest resolves a bare file name anywhere in the vault when it is unambiguous.
	Shortest Strategy = "shortest"
	// RelativeStrategy resolves targets against the linking page's folder.
	RelativeStrategy Strategy = "relative"
	// Absolute resolves targets from the vault root.
	Absolute Strategy = "absolute"
)

// ParseStrategy maps a config value onto a Strategy, defaulting to Shortest.
func ParseStrategy(s string) Strategy {
	switch Strategy(strings.ToLower(s)) {
	case RelativeStrategy:
		return RelativeStrategy
	case Absolute:
		return Absolute
	default:
		return Shortest
	}
}

// Resolver resolves link targets against the set of known slugs.
type Resolver struct {
	known  map[FullSlug]struct{}
	folded map[string]FullSlug
	byName map[string][]FullSlug
}

// NewResolver indexes the given slugs. The input order does not matter.
func NewResolver(slugs []FullSlug) *Resolver {
	r := &Resolver{
		known:  make(map[FullSlug]struct{}, len(slugs)),
		folded: make(map[string]FullSlug, len(slugs)),
		byName: make(map[string][]FullSlug),
	}
	sorted := append([]FullSlug(nil), slugs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for _, s := range sorted {
		if _, dup := r.known[s]; dup {
			continue
		}
		r.known[s] = struct{}{}
		if _, taken := r.folded[strings.ToLower(string(s))]; !taken {
			r.folded[strings.ToLower(string(s))] = s
		}
		name := strings.ToLower(s.Name())
		if s.IsFolderIndex() && s.Dir() != "" {
			name = strings.ToLower(path.Base(s.Dir()))
		}
		r.byName[name] = append(r.byName[name], s)
	}
	return r
}

// Has reports whether s is a known slug.
func (r *Resolver) Has(s FullSlug) bool {
	_, ok := r.known[s]
	return ok
}

// Resolve maps target (a link destination without anchor) as written in the
// page at from. On failure it still returns the slug the target would have had,
// so callers can record what was broken.
func (r *Resolver) Resolve(target string, from FullSlug, strategy Strategy) (FullSlug, bool) {
	target = strings.TrimSpace(target)
	if target == "" {
		return from, true
	}
	rooted := strings.HasPrefix(target, "/")
	target = strings.TrimPrefix(target, "/")
	explicitRelative := strings.HasPrefix(target, "./") || strings.HasPrefix(target, "../")

	absolute := FromPath(cleanTarget(target))
	relative := FromPath(cleanTarget(path.Join(from.Dir(), target)))

	var order []FullSlug
	switch {
	case rooted:
		order = []FullSlug{absolute}
	case explicitRelative || strategy == RelativeStrategy:
		order = []FullSlug{relative, absolute}
	case strategy == Absolute:
		order = []FullSlug{absolute}
	default:
		if !strings.Contains(target, "/") {
			if candidates := r.byName[strings.ToLower(absolute.Name())]; len(candidates) == 1 {
				return candidates[0], true
			}
		}
		order = []FullSlug{absolute, relative}
	}

	for _, candidate := range order {
		if s, ok := r.lookup(candidate); ok {
			return s, true
		}
	}
	return order[0], false
}

func (r *Resolver) lookup(s FullSlug) (FullSlug, bool) {
	for _, c := range []FullSlug{s, FolderIndex(string(s))} {
		if _, ok := r.known[c]; ok {
			return c, true
		}
		if folded, ok := r.folded[strings.ToLower(string(c))]; ok {
			return folded, true
		}
	}
	return s, false
}

func cleanTarget(target string) string {
	cleaned := path.Clean(target)
	if cleaned == "." {
		return ""
	}
	return strings.TrimPrefix(cleaned, "../")
}
