package emitters

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"git.home.luguber.info/inful/vaultsite/internal/config"
)

type assets struct{}

func newAssets(config.Options) (Emitter, error) { return assets{}, nil }

func (assets) Name() string { return string(KindAssets) }

// Emit copies every non-markdown vault file to its slug path.
func (assets) Emit(ctx context.Context, in *Input) ([]Artifact, error) {
	out := make([]Artifact, 0, len(in.Assets))
	for _, f := range in.Assets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := f.LoadContent()
		if err != nil {
			return nil, err
		}
		out = append(out, Artifact{Path: string(f.Slug()), Content: b})
	}
	return out, nil
}

type static struct{}

func newStatic(config.Options) (Emitter, error) { return static{}, nil }

func (static) Name() string { return string(KindStatic) }

// Emit copies the static directory to static/. A missing directory emits nothing.
func (static) Emit(ctx context.Context, in *Input) ([]Artifact, error) {
	if in.StaticDir == "" {
		return nil, nil
	}
	if _, err := os.Stat(in.StaticDir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	var out []Artifact
	err := filepath.WalkDir(in.StaticDir, func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(in.StaticDir, p)
		if err != nil {
			return err
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read static file: %w", err)
		}
		out = append(out, Artifact{Path: path.Join("static", filepath.ToSlash(rel)), Content: b})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("copy static directory: %w", err)
	}
	return out, nil
}

type favicon struct {
	source string
}

func newFavicon(opts config.Options) (Emitter, error) {
	return &favicon{source: opts.String("source", "icon.png")}, nil
}

func (*favicon) Name() string { return string(KindFavicon) }

// Emit copies <static>/icon.png to favicon.ico when it exists.
func (f *favicon) Emit(_ context.Context, in *Input) ([]Artifact, error) {
	if in.StaticDir == "" {
		return nil, nil
	}
	b, err := os.ReadFile(filepath.Join(in.StaticDir, filepath.FromSlash(f.source)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read favicon source: %w", err)
	}
	return []Artifact{{Path: "favicon.ico", Content: b}}, nil
}
