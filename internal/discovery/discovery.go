// Package discovery walks a vault and classifies its files into markdown
// documents and assets, applying the configured ignore patterns first.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/vaultsite/internal/logfields"
	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

// ErrContentDirMissing is returned when the vault root does not exist.
var ErrContentDirMissing = errors.New("content directory not found")

// File is a discovered vault file.
type File struct {
	Path         string // absolute path on disk
	RelativePath string // vault-relative, forward slashes
	Name         string // file name without extension
	Extension    string
	ModTime      time.Time
	Size         int64
	IsAsset      bool
}

// Slug returns the slug the file is published under.
func (f File) Slug() slug.FullSlug {
	return slug.FromPath(f.RelativePath)
}

// LoadContent reads the file from disk.
func (f File) LoadContent() ([]byte, error) {
	content, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.RelativePath, err)
	}
	return content, nil
}

// Result is the classified content of a vault.
type Result struct {
	Markdown []File
	Assets   []File
	Ignored  []string
}

// Discovery walks a vault root.
type Discovery struct {
	root    string
	ignores []string
}

// New creates a Discovery for root with the given ignore patterns.
func New(root string, ignorePatterns []string) *Discovery {
	return &Discovery{root: root, ignores: ignorePatterns}
}

// Discover walks the vault. Results are sorted by relative path so builds are
// deterministic regardless of directory iteration order.
func (d *Discovery) Discover() (*Result, error) {
	info, err := os.Stat(d.root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrContentDirMissing, d.root)
	}

	res := &Result{}
	err = filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == d.root {
			return nil
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", p, err)
		}
		rel = filepath.ToSlash(rel)

		if strings.HasPrefix(entry.Name(), ".") || d.Ignored(rel) {
			res.Ignored = append(res.Ignored, rel)
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}

		fi, err := entry.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", rel, err)
		}
		ext := path.Ext(rel)
		file := File{
			Path:         p,
			RelativePath: rel,
			Name:         strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			Extension:    ext,
			ModTime:      fi.ModTime(),
			Size:         fi.Size(),
			IsAsset:      !IsMarkdown(rel),
		}
		if file.IsAsset {
			res.Assets = append(res.Assets, file)
		} else {
			res.Markdown = append(res.Markdown, file)
		}
		slog.Debug("Discovered file", logfields.Path(rel), slog.Bool("asset", file.IsAsset))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", d.root, err)
	}

	sort.Slice(res.Markdown, func(i, j int) bool { return res.Markdown[i].RelativePath < res.Markdown[j].RelativePath })
	sort.Slice(res.Assets, func(i, j int) bool { return res.Assets[i].RelativePath < res.Assets[j].RelativePath })
	return res, nil
}

// Ignored reports whether a vault-relative path matches an ignore pattern.
func (d *Discovery) Ignored(rel string) bool {
	for _, pattern := range d.ignores {
		if MatchIgnore(pattern, rel) {
			return true
		}
	}
	return false
}

// IsMarkdown reports whether a file name has a markdown extension.
func IsMarkdown(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown", ".mdown", ".mkd":
		return true
	}
	return false
}
