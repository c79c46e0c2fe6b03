package markdown

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

type wikiLinkParser struct{}

func (wikiLinkParser) Trigger() []byte { return []byte{'!', '['} }

func (wikiLinkParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	line, _ := block.PeekLine()
	var open int
	switch {
	case bytes.HasPrefix(line, []byte("![[")):
		open = 3
	case bytes.HasPrefix(line, []byte("[[")):
		open = 2
	default:
		return nil
	}
	end := bytes.Index(line[open:], []byte("]]"))
	if end < 0 {
		return nil
	}
	inner := line[open : open+end]
	if len(bytes.TrimSpace(inner)) == 0 || bytes.ContainsAny(inner, "[]\n") {
		return nil
	}

	node := ParseWikiLink(string(inner))
	node.Embed = open == 3
	node.Literal = append([]byte(nil), line[:open+end+2]...)
	block.Advance(open + end + 2)
	return node
}

// ParseWikiLink splits the inside of [[...]] into target, anchor and alias.
// Escaped pipes (as required inside tables) are accepted.
func ParseWikiLink(inner string) *RawWikiLink {
	inner = strings.ReplaceAll(inner, `\|`, "|")
	n := &RawWikiLink{}
	if i := strings.IndexByte(inner, '|'); i >= 0 {
		n.Alias = strings.TrimSpace(inner[i+1:])
		inner = inner[:i]
	}
	if i := strings.IndexByte(inner, '#'); i >= 0 {
		n.Anchor = strings.TrimSpace(inner[i+1:])
		inner = inner[:i]
	}
	n.Target = strings.TrimSpace(inner)
	return n
}

type tagParser struct{}

func (tagParser) Trigger() []byte { return []byte{'#'} }

func (tagParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	prev := block.PrecendingCharacter()
	if !unicode.IsSpace(prev) && prev != '(' && prev != '[' {
		return nil
	}
	line, _ := block.PeekLine()
	tag := scanTag(line[1:])
	if tag == "" {
		return nil
	}
	block.Advance(1 + len(tag))
	return &RawTag{Tag: tag}
}

// scanTag returns the longest valid tag prefix of b. Tags consist of letters,
// digits, '_', '-' and '/', and may not be purely numeric.
func scanTag(b []byte) string {
	n := 0
	hasNonDigit := false
scan:
	for n < len(b) {
		r, size := utf8.DecodeRune(b[n:])
		switch {
		case unicode.IsLetter(r), r == '_', r == '-', r == '/', unicode.Is(unicode.So, r):
			hasNonDigit = true
		case unicode.IsDigit(r):
		default:
			break scan
		}
		n += size
	}
	tag := strings.TrimRight(string(b[:n]), "/")
	if !hasNonDigit || tag == "" {
		return ""
	}
	return tag
}

type mathInlineParser struct{}

func (mathInlineParser) Trigger() []byte { return []byte{'$'} }

func (mathInlineParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	line, _ := block.PeekLine()
	if len(line) > 2 && line[1] == '$' {
		end := bytes.Index(line[2:], []byte("$$"))
		if end <= 0 {
			return nil
		}
		tex := strings.TrimSpace(string(line[2 : 2+end]))
		if tex == "" {
			return nil
		}
		block.Advance(end + 4)
		return &RawMath{TeX: tex, Display: true}
	}

	if len(line) < 3 || line[1] == ' ' || line[1] == '\t' || line[1] == '$' {
		return nil
	}
	for j := 2; j < len(line); j++ {
		if line[j] != '$' {
			continue
		}
		if line[j-1] == ' ' || line[j-1] == '\t' || line[j-1] == '\\' || line[j-1] == '$' {
			continue
		}
		if j+1 < len(line) && line[j+1] == '$' {
			continue
		}
		if j+1 < len(line) && line[j+1] >= '0' && line[j+1] <= '9' {
			continue
		}
		block.Advance(j + 1)
		return &RawMath{TeX: string(line[1:j])}
	}
	return nil
}

type mathBlockParser struct{}

func (mathBlockParser) Trigger() []byte { return []byte{'$'} }

func (mathBlockParser) Open(_ ast.Node, reader text.Reader, _ parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	trimmed := bytes.TrimSpace(line)
	if !bytes.HasPrefix(trimmed, []byte("$$")) {
		return nil, parser.NoChildren
	}
	lead := bytes.Index(line, []byte("$$"))
	node := &RawMathBlock{}
	rest := bytes.TrimSpace(trimmed[2:])

	if closing := bytes.LastIndex(rest, []byte("$$")); closing >= 0 && len(rest) >= 2 {
		// Single-line $$ ... $$ block.
		if len(bytes.TrimSpace(rest[:closing])) == 0 {
			return nil, parser.NoChildren
		}
		start := segment.Start + lead + 2
		stop := segment.Start + bytes.LastIndex(line, []byte("$$"))
		node.Lines().Append(text.NewSegment(start, stop))
		reader.Advance(segment.Len() - 1)
		return node, parser.Close
	}
	if len(rest) > 0 {
		node.Lines().Append(text.NewSegment(segment.Start+lead+2, segment.Stop))
	}
	reader.Advance(segment.Len() - 1)
	return node, parser.NoChildren
}

func (mathBlockParser) Continue(node ast.Node, reader text.Reader, _ parser.Context) parser.State {
	line, segment := reader.PeekLine()
	if line == nil {
		return parser.Close
	}
	if i := bytes.Index(line, []byte("$$")); i >= 0 {
		if len(bytes.TrimSpace(line[:i])) > 0 {
			node.Lines().Append(text.NewSegment(segment.Start, segment.Start+i))
		}
		reader.Advance(segment.Len() - 1)
		return parser.Close
	}
	node.Lines().Append(segment)
	reader.Advance(segment.Len() - 1)
	return parser.Continue | parser.NoChildren
}

func (mathBlockParser) Close(ast.Node, text.Reader, parser.Context) {}

func (mathBlockParser) CanInterruptParagraph() bool { return true }

func (mathBlockParser) CanAcceptIndentedLine() bool { return false }
