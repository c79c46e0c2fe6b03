package transforms

import (
	"context"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/document"
	"git.home.luguber.info/inful/vaultsite/internal/markdown"
)

// latex converts TeX to MathML. Expressions that cannot be converted are kept
// as visible TeX with the error attached; the document never fails.
type latex struct{}

func newLatex(config.Options, Env) (Transformer, error) { return latex{}, nil }

func (latex) Name() string { return string(KindLatex) }
func (latex) Stage() Stage { return StageMarkup }
func (latex) Dependencies() Dependencies {
	return Dependencies{MustRunAfter: []string{string(KindObsidian)}}
}

func (latex) Transform(_ context.Context, doc *document.Document, _ *Context) error {
	if doc.AST == nil {
		return nil
	}
	src := doc.Source()
	for _, n := range markdown.Collect(doc.AST, markdown.OfKind(markdown.KindRawMath)) {
		raw := n.(*markdown.RawMath)
		out := &markdown.Math{TeX: raw.TeX, Display: raw.Display}
		if mathML, err := markdown.TeXToMathML(raw.TeX, raw.Display); err != nil {
			out.Err = err.Error()
		} else {
			out.MathML = mathML
		}
		markdown.Replace(raw, out)
	}
	for _, n := range markdown.Collect(doc.AST, markdown.OfKind(markdown.KindRawMathBlock)) {
		raw := n.(*markdown.RawMathBlock)
		tex := raw.TeX(src)
		out := &markdown.MathBlock{TeX: tex}
		if mathML, err := markdown.TeXToMathML(tex, true); err != nil {
			out.Err = err.Error()
		} else {
			out.MathML = mathML
		}
		markdown.Replace(raw, out)
	}
	return nil
}
