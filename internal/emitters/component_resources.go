package emitters

import (
	"bytes"
	"context"
	"embed"
	"fmt"

	"git.home.luguber.info/inful/vaultsite/internal/config"
)

const (
	stylesheetPath = "index.css"
	scriptPath     = "postscript.js"
)

//go:embed assets/*
var componentAssets embed.FS

type componentResources struct{}

func newComponentResources(config.Options) (Emitter, error) { return componentResources{}, nil }

func (componentResources) Name() string { return string(KindComponentResources) }

func (componentResources) Resources() []Resource {
	return []Resource{{Kind: Stylesheet, Path: stylesheetPath}, {Kind: Script, Path: scriptPath}}
}

// Emit bundles the base and callout styles with the code palettes into
// index.css and writes the page script.
func (componentResources) Emit(_ context.Context, in *Input) ([]Artifact, error) {
	var css bytes.Buffer
	for _, name := range []string{"assets/base.css", "assets/callouts.css"} {
		b, err := componentAssets.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		css.Write(b)
		css.WriteByte('\n')
	}
	if in.Highlighter != nil {
		code, err := in.Highlighter.CSS()
		if err != nil {
			return nil, fmt.Errorf("highlight stylesheet: %w", err)
		}
		css.WriteString(code)
	}

	js, err := componentAssets.ReadFile("assets/postscript.js")
	if err != nil {
		return nil, fmt.Errorf("read postscript: %w", err)
	}
	return []Artifact{
		{Path: stylesheetPath, Content: css.Bytes()},
		{Path: scriptPath, Content: js},
	}, nil
}
