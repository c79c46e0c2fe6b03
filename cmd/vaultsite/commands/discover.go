package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/discovery"
	ferrors "git.home.luguber.info/inful/vaultsite/internal/foundation/errors"
)

// DiscoverCmd implements the 'discover' command.
type DiscoverCmd struct {
	JSON bool `help:"Print the result as JSON"`
}

func (d *DiscoverCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadConfig(root)
	if err != nil {
		return err
	}
	return RunDiscover(cfg, d.JSON, os.Stdout)
}

type discoveredFile struct {
	Path string `json:"path"`
	Slug string `json:"slug"`
}

type discoverOutput struct {
	Markdown []discoveredFile `json:"markdown"`
	Assets   []discoveredFile `json:"assets"`
	Ignored  []string         `json:"ignored"`
}

// RunDiscover walks the vault and prints every file with the slug it would
// be published under.
func RunDiscover(cfg *config.Config, asJSON bool, out io.Writer) error {
	slog.Info("Starting vault discovery", slog.String("content", cfg.Paths.Content))

	res, err := discovery.New(cfg.Paths.Content, cfg.Site.IgnorePatterns).Discover()
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "discovery failed").
			WithContext("content", cfg.Paths.Content).
			Build()
	}

	result := discoverOutput{
		Markdown: toDiscovered(res.Markdown),
		Assets:   toDiscovered(res.Assets),
		Ignored:  res.Ignored,
	}
	if result.Ignored == nil {
		result.Ignored = []string{}
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	_, _ = fmt.Fprintf(out, "Markdown (%d):\n", len(result.Markdown))
	for _, f := range result.Markdown {
		_, _ = fmt.Fprintf(out, "  %-40s -> %s\n", f.Path, f.Slug)
	}
	_, _ = fmt.Fprintf(out, "Assets (%d):\n", len(result.Assets))
	for _, f := range result.Assets {
		_, _ = fmt.Fprintf(out, "  %-40s -> %s\n", f.Path, f.Slug)
	}
	_, _ = fmt.Fprintf(out, "Ignored (%d):\n", len(result.Ignored))
	for _, p := range result.Ignored {
		_, _ = fmt.Fprintf(out, "  %s\n", p)
	}

	slog.Info("Discovery completed",
		slog.Int("markdown", len(result.Markdown)),
		slog.Int("assets", len(result.Assets)),
		slog.Int("ignored", len(result.Ignored)))
	return nil
}

func toDiscovered(files []discovery.File) []discoveredFile {
	out := make([]discoveredFile, 0, len(files))
	for _, f := range files {
		out = append(out, discoveredFile{Path: f.RelativePath, Slug: string(f.Slug())})
	}
	return out
}
