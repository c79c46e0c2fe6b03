// Package parser turns one raw vault file into a document.Document: front
// matter is split off and decoded (softly), and the body is parsed into a
// goldmark AST containing the raw vault dialect nodes.
package parser

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/vaultsite/internal/document"
	ferrors "git.home.luguber.info/inful/vaultsite/internal/foundation/errors"
	"git.home.luguber.info/inful/vaultsite/internal/markdown"
	"git.home.luguber.info/inful/vaultsite/internal/slug"
)

// Parser is a pure function of (path, bytes). It holds no per-document state
// and is safe for concurrent use.
type Parser struct {
	md goldmark.Markdown
}

// New creates a Parser using the shared goldmark instance.
func New(md goldmark.Markdown) *Parser {
	if md == nil {
		md = markdown.New()
	}
	return &Parser{md: md}
}

// Markdown exposes the goldmark instance so rendering uses the same dialect.
func (p *Parser) Markdown() goldmark.Markdown { return p.md }

// Input describes one file handed to the parser.
type Input struct {
	RelativePath string
	FilePath     string
	ModTime      time.Time
	Content      []byte
}

// Parse builds a Document. Malformed front matter never fails the parse: it is
// recorded on the document and the body is parsed anyway. Only a failure of the
// markdown parser itself returns an error.
func (p *Parser) Parse(in Input) (*document.Document, error) {
	doc := &document.Document{
		Slug:         slug.FromPath(in.RelativePath),
		RelativePath: in.RelativePath,
		FilePath:     in.FilePath,
		ModTime:      in.ModTime,
		Raw:          in.Content,
		FrontMatter:  map[string]any{},
	}

	fmRaw, body, had, err := SplitFrontMatter(in.Content)
	doc.Body = body
	doc.HadFrontMatter = had
	switch {
	case err != nil:
		doc.FrontMatterError = err
		doc.Warnf("front matter ignored: %v", err)
	case had:
		fields, perr := ParseFrontMatter(fmRaw)
		if perr != nil {
			doc.FrontMatterError = fmt.Errorf("invalid front matter: %w", perr)
			doc.Warnf("front matter ignored: %v", perr)
		} else {
			doc.FrontMatter = fields
		}
	}

	root, err := markdown.Parse(p.md, doc.Body)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryParse, "markdown parse failed").
			WithContext("path", in.RelativePath).
			Build()
	}
	doc.AST = root
	doc.Title = defaultTitle(in.RelativePath)
	return doc, nil
}

// defaultTitle is the file name without extension; folder index files take
// the folder name.
func defaultTitle(rel string) string {
	base := path.Base(rel)
	name := strings.TrimSuffix(base, path.Ext(base))
	if (name == "index" || name == "_index") && path.Dir(rel) != "." {
		return path.Base(path.Dir(rel))
	}
	return name
}
