package git

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNotRepository is returned when the content directory is not inside a git
// work tree.
var ErrNotRepository = errors.New("content directory is not inside a git repository")

// FileDates holds the first and latest commit times for a file.
type FileDates struct {
	Created  time.Time
	Modified time.Time
}

// DateCache persists lookups between builds.
type DateCache interface {
	GetDates(head, path string) (FileDates, bool)
	PutDates(head, path string, dates FileDates)
}

// DateSource answers commit-date lookups for files in one repository.
// It is safe for concurrent use.
type DateSource struct {
	mu    sync.Mutex
	repo  *git.Repository
	root  string
	head  string
	cache map[string]*FileDates
	store DateCache
}

// OpenDateSource opens the repository containing dir, searching parent
// directories for .git.
func OpenDateSource(dir string) (*DateSource, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNotRepository
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("worktree: %w", err)
	}
	src := &DateSource{
		repo:  repo,
		root:  wt.Filesystem.Root(),
		cache: make(map[string]*FileDates),
	}
	if ref, herr := repo.Head(); herr == nil {
		src.head = ref.Hash().String()
	}
	return src, nil
}

// WithCache attaches a persistent cache.
func (s *DateSource) WithCache(c DateCache) *DateSource {
	s.store = c
	return s
}

// Head returns the HEAD commit hash, or "" for a repository without commits.
func (s *DateSource) Head() string { return s.head }

// Root returns the work tree root.
func (s *DateSource) Root() string { return s.root }

// Dates returns the commit dates for the file at absPath. The boolean is false
// when the file has no committed history.
func (s *DateSource) Dates(absPath string) (FileDates, bool, error) {
	rel, err := s.relative(absPath)
	if err != nil {
		return FileDates{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.cache[rel]; ok {
		if d == nil {
			return FileDates{}, false, nil
		}
		return *d, true, nil
	}
	if s.head == "" {
		return FileDates{}, false, nil
	}
	if s.store != nil {
		if d, ok := s.store.GetDates(s.head, rel); ok {
			s.cache[rel] = &d
			return d, true, nil
		}
	}

	d, found, err := s.lookup(rel)
	if err != nil {
		return FileDates{}, false, err
	}
	if !found {
		s.cache[rel] = nil
		return FileDates{}, false, nil
	}
	s.cache[rel] = &d
	if s.store != nil {
		s.store.PutDates(s.head, rel, d)
	}
	return d, true, nil
}

func (s *DateSource) lookup(rel string) (FileDates, bool, error) {
	iter, err := s.repo.Log(&git.LogOptions{FileName: &rel})
	if err != nil {
		return FileDates{}, false, fmt.Errorf("log %s: %w", rel, err)
	}
	defer iter.Close()

	var (
		dates FileDates
		found bool
	)
	err = iter.ForEach(func(c *object.Commit) error {
		when := c.Author.When
		if !found {
			dates.Modified = when
			dates.Created = when
			found = true
			return nil
		}
		if when.After(dates.Modified) {
			dates.Modified = when
		}
		if when.Before(dates.Created) {
			dates.Created = when
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return FileDates{}, false, fmt.Errorf("walk history for %s: %w", rel, err)
	}
	return dates, found, nil
}

func (s *DateSource) relative(absPath string) (string, error) {
	abs, err := filepath.Abs(absPath)
	if err != nil {
		return "", err
	}
	root, err := filepath.EvalSymlinks(s.root)
	if err != nil {
		root = s.root
	}
	if resolved, rerr := filepath.EvalSymlinks(abs); rerr == nil {
		abs = resolved
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", fmt.Errorf("%s is outside repository %s: %w", absPath, s.root, err)
	}
	return filepath.ToSlash(rel), nil
}
