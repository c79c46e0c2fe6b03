package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/vaultsite/internal/build"
	"git.home.luguber.info/inful/vaultsite/internal/config"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output string `short:"o" help:"Output directory (overrides paths.output)"`
	Report string `help:"Write the JSON build report to this file (overrides build.report_file)"`
	Force  bool   `help:"Rebuild even when no input changed since the last build"`
	Clean  bool   `help:"Remove the output directory before writing"`
}

// Run executes the build command.
func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadConfig(root)
	if err != nil {
		return err
	}
	if err := b.applyOverrides(cfg); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	_, err = RunBuild(ctx, cfg, build.BuildOptions{Force: b.Force, Clean: b.Clean}, os.Stdout)
	return err
}

func (b *BuildCmd) applyOverrides(cfg *config.Config) error {
	if b.Output != "" {
		abs, err := filepath.Abs(b.Output)
		if err != nil {
			return fmt.Errorf("resolve output directory: %w", err)
		}
		cfg.Paths.Output = abs
	}
	if b.Report != "" {
		abs, err := filepath.Abs(b.Report)
		if err != nil {
			return fmt.Errorf("resolve report path: %w", err)
		}
		cfg.Build.ReportFile = abs
	}
	return nil
}

// RunBuild performs one build and prints its report to out.
func RunBuild(ctx context.Context, cfg *config.Config, opts build.BuildOptions, out io.Writer) (*build.Report, error) {
	builder := NewBuilder(cfg)
	defer builder.Close()

	report, err := builder.Run(ctx, cfg, opts)
	if report != nil {
		if werr := report.WriteText(out); werr != nil {
			return report, fmt.Errorf("print build report: %w", werr)
		}
	}
	return report, err
}
