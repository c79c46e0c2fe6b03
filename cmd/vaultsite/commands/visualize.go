package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	ferrors "git.home.luguber.info/inful/vaultsite/internal/foundation/errors"
	"git.home.luguber.info/inful/vaultsite/internal/transforms"
)

var formatDescriptions = []struct {
	format transforms.VisualizationFormat
	desc   string
}{
	{transforms.FormatText, "Indented list of stages and transformers"},
	{transforms.FormatMermaid, "Mermaid flowchart for markdown documentation"},
	{transforms.FormatDOT, "Graphviz DOT graph"},
	{transforms.FormatJSON, "Machine readable chain description"},
}

// VisualizeCmd implements the 'visualize' command.
type VisualizeCmd struct {
	Format string `short:"f" help:"Output format: text, mermaid, dot, json" default:"text" enum:"text,mermaid,dot,json"`
	Output string `short:"o" help:"Output file path (optional, prints to stdout if not specified)"`
	List   bool   `short:"l" help:"List available formats and exit"`
}

// Run executes the visualize command. Without a configuration file the
// default transformer chain is shown.
func (cmd *VisualizeCmd) Run(_ *Global, root *CLI) error {
	if cmd.List {
		fmt.Println("Available visualization formats:")
		fmt.Println()
		for _, f := range formatDescriptions {
			fmt.Printf("  %-10s %s\n", f.format, f.desc)
		}
		fmt.Println()
		fmt.Println("Usage examples:")
		fmt.Println("  vaultsite visualize                    # Text format to stdout")
		fmt.Println("  vaultsite visualize -f mermaid         # Mermaid diagram to stdout")
		fmt.Println("  vaultsite visualize -f dot -o pipe.dot # DOT format to file")
		return nil
	}

	cfg := config.Default()
	if _, err := os.Stat(root.Config); err == nil {
		if cfg, err = LoadConfig(root); err != nil {
			return err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read configuration").Build()
	}

	output, err := Visualize(cfg, transforms.VisualizationFormat(cmd.Format))
	if err != nil {
		return err
	}

	if cmd.Output != "" {
		if err := os.WriteFile(cmd.Output, []byte(output), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		slog.Info("Chain visualization written", "file", cmd.Output, "format", cmd.Format)
		return nil
	}
	fmt.Print(output)
	return nil
}

// Visualize resolves the configured transformer chain and renders it.
func Visualize(cfg *config.Config, format transforms.VisualizationFormat) (string, error) {
	chain, err := transforms.NewChain(cfg.Transformers, transforms.Env{Site: cfg.Site},
		transforms.ChainOptions{Strict: cfg.Build.StrictTransformerOrder})
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryConfig, "invalid transformer chain").Build()
	}
	for _, w := range chain.Warnings() {
		slog.Warn("Transformer chain reordered", slog.String("warning", w))
	}
	output, err := chain.Visualize(format)
	if err != nil {
		return "", fmt.Errorf("failed to visualize chain: %w", err)
	}
	return output, nil
}
