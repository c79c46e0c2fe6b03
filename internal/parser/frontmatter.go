package parser

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document opened a front matter block
// but never closed it.
var ErrMissingClosingDelimiter = errors.New("front matter start delimiter found but closing delimiter is missing")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SplitFrontMatter separates a leading `---` delimited YAML block from the body.
// The closing delimiter may be `---` or `...` and may end the file. When the
// block is never closed the whole input is returned as body together with
// ErrMissingClosingDelimiter.
func SplitFrontMatter(content []byte) (frontMatter, body []byte, had bool, err error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	nl := detectNewline(content)

	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	rest := content[len(open):]
	offset := 0
	for offset <= len(rest) {
		lineEnd := bytes.Index(rest[offset:], []byte(nl))
		var line []byte
		next := len(rest)
		if lineEnd < 0 {
			line = rest[offset:]
		} else {
			line = rest[offset : offset+lineEnd]
			next = offset + lineEnd + len(nl)
		}
		trimmed := bytes.TrimRight(line, " \t")
		if bytes.Equal(trimmed, []byte("---")) || bytes.Equal(trimmed, []byte("...")) {
			return rest[:offset], rest[next:], true, nil
		}
		if lineEnd < 0 {
			break
		}
		offset = next
	}
	return nil, content, false, ErrMissingClosingDelimiter
}

// ParseFrontMatter decodes a YAML block into a map. An empty block yields an
// empty map; anything that is not a mapping is an error.
func ParseFrontMatter(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return map[string]any{}, nil
	}
	if node.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("front matter must be a mapping, got %s", kindName(node.Content[0].Kind))
	}
	fields := map[string]any{}
	if err := node.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
