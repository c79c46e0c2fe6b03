package discovery

import (
	"path"
	"strings"
)

// MatchIgnore reports whether rel matches pattern. Supported forms:
//
//	private          a file or directory named private at any depth
//	notes/private    that path and everything below it
//	*.excalidraw     any file name matching the glob
//	**/drafts/**     "**" spans any number of path segments
//
// Malformed patterns never match.
func MatchIgnore(pattern, rel string) bool {
	pattern = strings.Trim(strings.ReplaceAll(pattern, "\\", "/"), "/")
	rel = strings.Trim(rel, "/")
	if pattern == "" || rel == "" {
		return false
	}

	if strings.Contains(pattern, "**") {
		return matchDoubleStar(strings.Split(pattern, "/"), strings.Split(rel, "/"))
	}

	segments := strings.Split(rel, "/")
	if !strings.Contains(pattern, "/") {
		for _, seg := range segments {
			if ok, err := path.Match(pattern, seg); err == nil && ok {
				return true
			}
		}
		return false
	}

	depth := strings.Count(pattern, "/") + 1
	if depth > len(segments) {
		return false
	}
	prefix := strings.Join(segments[:depth], "/")
	ok, err := path.Match(pattern, prefix)
	return err == nil && ok
}

func matchDoubleStar(pattern, segments []string) bool {
	if len(pattern) == 0 {
		return len(segments) == 0
	}
	if pattern[0] == "**" {
		for i := 0; i <= len(segments); i++ {
			if matchDoubleStar(pattern[1:], segments[i:]) {
				return true
			}
		}
		return false
	}
	if len(segments) == 0 {
		return false
	}
	ok, err := path.Match(pattern[0], segments[0])
	if err != nil || !ok {
		return false
	}
	return matchDoubleStar(pattern[1:], segments[1:])
}
