package graph

import (
	"path"
	"sort"

	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

// Folder is one directory of the vault.
type Folder struct {
	Path string // "" for the vault root
	// Index is the authored index document, when present.
	Index slug.FullSlug
	// Documents holds the pages directly inside the folder, excluding Index.
	Documents  []slug.FullSlug
	Subfolders []string
}

// Name is the last path segment, or "" for the root.
func (f *Folder) Name() string {
	if f.Path == "" {
		return ""
	}
	return path.Base(f.Path)
}

// HasIndex reports whether an authored index document exists.
func (f *Folder) HasIndex() bool { return f.Index != "" }

func buildFolders(slugs []slug.FullSlug) map[string]*Folder {
	folders := map[string]*Folder{"": {Path: ""}}
	ensure := func(p string) *Folder {
		if f, ok := folders[p]; ok {
			return f
		}
		f := &Folder{Path: p}
		folders[p] = f
		return f
	}
	for _, s := range slugs {
		dir := s.Dir()
		f := ensure(dir)
		if s.IsFolderIndex() {
			f.Index = s
		} else {
			f.Documents = append(f.Documents, s)
		}
		for child := dir; child != ""; {
			parent := path.Dir(child)
			if parent == "." {
				parent = ""
			}
			ensure(child)
			ensure(parent).addSubfolder(child)
			child = parent
		}
	}
	for _, f := range folders {
		sort.Strings(f.Subfolders)
	}
	return folders
}

func (f *Folder) addSubfolder(p string) {
	for _, existing := range f.Subfolders {
		if existing == p {
			return
		}
	}
	f.Subfolders = append(f.Subfolders, p)
}

// Folder returns the folder at p ("" is the root).
func (g *Graph) Folder(p string) (*Folder, bool) {
	f, ok := g.folders[p]
	return f, ok
}

// Folders returns every folder path, sorted. The root is "".
func (g *Graph) Folders() []string {
	out := make([]string, 0, len(g.folders))
	for p := range g.folders {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// FolderChildren returns the documents and subfolders directly under p.
func (g *Graph) FolderChildren(p string) (docs []slug.FullSlug, subfolders []string) {
	f, ok := g.folders[p]
	if !ok {
		return nil, nil
	}
	return append([]slug.FullSlug(nil), f.Documents...), append([]string(nil), f.Subfolders...)
}
