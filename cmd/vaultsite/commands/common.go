package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/vaultsite/internal/build"
	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/events"
	ferrors "git.home.luguber.info/inful/vaultsite/internal/foundation/errors"
	"git.home.luguber.info/inful/vaultsite/internal/logfields"
	"git.home.luguber.info/inful/vaultsite/internal/metrics"
	"git.home.luguber.info/inful/vaultsite/internal/observability"
)

// LogLevelEnv overrides the configured log level.
const LogLevelEnv = "VAULTSITE_LOG_LEVEL"

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"vaultsite.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build     BuildCmd     `cmd:"" help:"Compile the vault into a static site"`
	Watch     WatchCmd     `cmd:"" help:"Rebuild the site whenever the vault changes"`
	Discover  DiscoverCmd  `cmd:"" help:"List vault files and their slugs without building"`
	Init      InitCmd      `cmd:"" help:"Initialize a new configuration file"`
	Visualize VisualizeCmd `cmd:"" help:"Visualize the transformer chain (text, mermaid, dot, json)"`
}

// AfterApply runs after flag parsing; sets up logging until a config is loaded.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(observability.NewLogger(c.logLevel("info"), "text", os.Stderr))
	return nil
}

// logLevel resolves the effective level: -v beats the environment, which
// beats the configuration.
func (c *CLI) logLevel(configured string) string {
	if c.Verbose {
		return "debug"
	}
	if env := os.Getenv(LogLevelEnv); env != "" {
		return env
	}
	return configured
}

// LoadConfig loads the configuration named by --config and applies its
// logging settings.
func LoadConfig(root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to load configuration").
			WithContext("path", root.Config).
			Build()
	}
	slog.SetDefault(observability.NewLogger(root.logLevel(cfg.Logging.Level), cfg.Logging.Format, os.Stderr))
	return cfg, nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Builder runs builds with the metrics and event sinks named in the configuration.
type Builder struct {
	service   *build.DefaultBuildService
	publisher events.Publisher
	exporter  *metrics.PrometheusRecorder
	textfile  string
}

// NewBuilder wires a build service for cfg. Event publishing is best effort:
// an unreachable NATS server only disables it.
func NewBuilder(cfg *config.Config) *Builder {
	b := &Builder{publisher: events.NoopPublisher{}}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled {
		b.exporter = metrics.NewPrometheusRecorder(prom.NewRegistry())
		b.textfile = cfg.Metrics.Textfile
		recorder = b.exporter
	}

	if pub, err := events.New(cfg.Events); err != nil {
		slog.Warn("Build events disabled", logfields.Error(err))
	} else {
		b.publisher = pub
	}

	b.service = build.NewBuildService().WithRecorder(recorder).WithPublisher(b.publisher)
	return b
}

// Run executes one build and exports metrics when a textfile is configured.
func (b *Builder) Run(ctx context.Context, cfg *config.Config, opts build.BuildOptions) (*build.Report, error) {
	report, err := b.service.Run(ctx, build.BuildRequest{Config: cfg, Options: opts})
	if b.exporter != nil && b.textfile != "" {
		if werr := b.exporter.WriteTextfile(b.textfile); werr != nil {
			slog.Warn("Failed to write metrics textfile", logfields.Path(b.textfile), logfields.Error(werr))
		}
	}
	return report, err
}

// Close releases the event publisher.
func (b *Builder) Close() {
	b.publisher.Close()
}
