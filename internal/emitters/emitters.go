// Package emitters turns the published corpus graph into output artifacts.
//
// Emitters are independent of each other: each one reads the graph and the
// site configuration and returns the artifacts it produces. The only shared
// state is the ResourceRegistry, which collects the stylesheets and scripts
// every page references before any emitter runs.
package emitters

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/discovery"
	"git.home.luguber.info/inful/vaultsite/internal/graph"
	"git.home.luguber.info/inful/vaultsite/internal/logfields"
	"git.home.luguber.info/inful/vaultsite/internal/markdown"
	"git.home.luguber.info/inful/vaultsite/internal/render"
)

// Kind names an emitter variant. The values are the config keys.
type Kind string

const (
	KindComponentResources Kind = "component_resources"
	KindContentPage        Kind = "content_page"
	KindFolderPage         Kind = "folder_page"
	KindTagPage            Kind = "tag_page"
	KindContentIndex       Kind = "content_index"
	KindAliasRedirects     Kind = "alias_redirects"
	KindNotFoundPage       Kind = "not_found_page"
	KindAssets             Kind = "assets"
	KindStatic             Kind = "static"
	KindFavicon            Kind = "favicon"
)

// Artifact is one output file, relative to the output directory.
type Artifact struct {
	Path    string
	Content []byte
}

// Input is everything an emitter may read. Nothing in it may be mutated.
type Input struct {
	Graph     *graph.Graph
	Site      config.SiteConfig
	StaticDir string
	Assets    []discovery.File
	Layout    render.Layout
	Resources Resources
	// Highlighter is nil when syntax highlighting is disabled.
	Highlighter *markdown.Highlighter
	// Workers bounds per-document parallelism inside an emitter.
	Workers int
}

// Emitter produces one category of output artifacts.
type Emitter interface {
	Name() string
	Emit(ctx context.Context, in *Input) ([]Artifact, error)
}

// ResourceDeclarer is implemented by emitters that contribute shared page
// resources. Declarations are collected before emission starts.
type ResourceDeclarer interface {
	Resources() []Resource
}

// Failure is an emitter that could not produce its artifacts.
type Failure struct {
	Emitter string
	Err     error
}

func (f *Failure) Error() string { return fmt.Sprintf("emitter %s: %v", f.Emitter, f.Err) }

func (f *Failure) Unwrap() error { return f.Err }

type factory func(opts config.Options) (Emitter, error)

var registry = map[Kind]factory{
	KindComponentResources: newComponentResources,
	KindContentPage:        newContentPage,
	KindFolderPage:         newFolderPage,
	KindTagPage:            newTagPage,
	KindContentIndex:       newContentIndex,
	KindAliasRedirects:     newAliasRedirects,
	KindNotFoundPage:       newNotFoundPage,
	KindAssets:             newAssets,
	KindStatic:             newStatic,
	KindFavicon:            newFavicon,
}

// Kinds returns every registered emitter name, sorted.
func Kinds() []Kind {
	out := make([]Kind, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// New constructs the configured emitters in order.
func New(cfgs []config.PluginConfig) ([]Emitter, error) {
	out := make([]Emitter, 0, len(cfgs))
	seen := make(map[string]bool, len(cfgs))
	for _, cfg := range cfgs {
		f, ok := registry[Kind(cfg.Name)]
		if !ok {
			return nil, fmt.Errorf("unknown emitter %q", cfg.Name)
		}
		if seen[cfg.Name] {
			return nil, fmt.Errorf("emitter %q configured twice", cfg.Name)
		}
		seen[cfg.Name] = true
		e, err := f(cfg.Options)
		if err != nil {
			return nil, fmt.Errorf("emitter %s: %w", cfg.Name, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// CollectResources registers the declarations of every emitter and returns
// the reconciled set.
func CollectResources(emitters []Emitter) Resources {
	reg := NewResourceRegistry()
	var g errgroup.Group
	for _, e := range emitters {
		if d, ok := e.(ResourceDeclarer); ok {
			g.Go(func() error {
				reg.Register(d.Resources()...)
				return nil
			})
		}
	}
	_ = g.Wait()
	return reg.Reconcile()
}

// Output is the result of one emitter.
type Output struct {
	Emitter   string
	Artifacts []Artifact
	Duration  time.Duration
	Err       *Failure
}

// Run executes emitters in parallel. A failing or panicking emitter yields a
// Failure in its Output and never stops the others. Outputs are returned in
// configured order.
func Run(ctx context.Context, emitters []Emitter, in *Input) []Output {
	outputs := make([]Output, len(emitters))
	var g errgroup.Group
	for i, e := range emitters {
		g.Go(func() error {
			outputs[i] = runOne(ctx, e, in)
			return nil
		})
	}
	_ = g.Wait()
	return outputs
}

func runOne(ctx context.Context, e Emitter, in *Input) (out Output) {
	out.Emitter = e.Name()
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Emitter panicked", logfields.Emitter(e.Name()), slog.Any("panic", rec), slog.String("stack", string(debug.Stack())))
			out.Artifacts = nil
			out.Err = &Failure{Emitter: e.Name(), Err: fmt.Errorf("panic: %v", rec)}
		}
		out.Duration = time.Since(start)
	}()
	if err := ctx.Err(); err != nil {
		out.Err = &Failure{Emitter: e.Name(), Err: err}
		return out
	}
	artifacts, err := e.Emit(ctx, in)
	if err != nil {
		out.Err = &Failure{Emitter: e.Name(), Err: err}
		return out
	}
	out.Artifacts = artifacts
	return out
}
