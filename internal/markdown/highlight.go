package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Default palettes for code blocks.
const (
	DefaultLightTheme = "github"
	DefaultDarkTheme  = "github-dark"
)

// Highlighter renders code with chroma once per palette. Each palette gets its
// own class prefix so both renderings can share a page and a stylesheet.
type Highlighter struct {
	light, dark       *chroma.Style
	lightFmt, darkFmt *chromahtml.Formatter
}

// NewHighlighter resolves the named chroma styles. Unknown names are an error.
func NewHighlighter(light, dark string) (*Highlighter, error) {
	if light == "" {
		light = DefaultLightTheme
	}
	if dark == "" {
		dark = DefaultDarkTheme
	}
	ls, ok := styles.Registry[light]
	if !ok {
		return nil, fmt.Errorf("unknown highlight theme %q", light)
	}
	ds, ok := styles.Registry[dark]
	if !ok {
		return nil, fmt.Errorf("unknown highlight theme %q", dark)
	}
	return &Highlighter{
		light:    ls,
		dark:     ds,
		lightFmt: chromahtml.New(chromahtml.WithClasses(true), chromahtml.ClassPrefix("hl-light-"), chromahtml.TabWidth(2)),
		darkFmt:  chromahtml.New(chromahtml.WithClasses(true), chromahtml.ClassPrefix("hl-dark-"), chromahtml.TabWidth(2)),
	}, nil
}

// Supports reports whether chroma knows the language identifier.
func (h *Highlighter) Supports(language string) bool {
	return language != "" && lexers.Get(language) != nil
}

// Highlight returns the light and dark renderings of code.
func (h *Highlighter) Highlight(language, code string) (light, dark string, err error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		return "", "", fmt.Errorf("no lexer for %q", language)
	}
	lexer = chroma.Coalesce(lexer)

	render := func(f *chromahtml.Formatter, style *chroma.Style) (string, error) {
		it, err := lexer.Tokenise(nil, code)
		if err != nil {
			return "", err
		}
		var buf bytes.Buffer
		if err := f.Format(&buf, style, it); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
	if light, err = render(h.lightFmt, h.light); err != nil {
		return "", "", fmt.Errorf("highlight %s: %w", language, err)
	}
	if dark, err = render(h.darkFmt, h.dark); err != nil {
		return "", "", fmt.Errorf("highlight %s: %w", language, err)
	}
	return light, dark, nil
}

// CSS returns the stylesheet for both palettes.
func (h *Highlighter) CSS() (string, error) {
	var b strings.Builder
	if err := h.lightFmt.WriteCSS(&b, h.light); err != nil {
		return "", err
	}
	if err := h.darkFmt.WriteCSS(&b, h.dark); err != nil {
		return "", err
	}
	return b.String(), nil
}
