package markdown

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode"
)

// ErrUnsupportedTeX is returned for TeX the converter cannot express.
var ErrUnsupportedTeX = errors.New("unsupported TeX")

// TeXToMathML converts a practical subset of TeX math into presentation MathML.
// Anything outside the subset returns an error wrapping ErrUnsupportedTeX.
func TeXToMathML(tex string, display bool) (string, error) {
	p := &texParser{src: []rune(tex)}
	body, err := p.parseExpr(0)
	if err != nil {
		return "", err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return "", fmt.Errorf("%w: unexpected %q at offset %d", ErrUnsupportedTeX, string(p.src[p.pos]), p.pos)
	}
	mode := "inline"
	if display {
		mode = "block"
	}
	return `<math xmlns="http://www.w3.org/1998/Math/MathML" display="` + mode + `"><mrow>` + body + `</mrow></math>`, nil
}

var texIdentifiers = map[string]string{
	"alpha": "α", "beta": "β", "gamma": "γ", "delta": "δ", "epsilon": "ϵ", "varepsilon": "ε",
	"zeta": "ζ", "eta": "η", "theta": "θ", "vartheta": "ϑ", "iota": "ι", "kappa": "κ",
	"lambda": "λ", "mu": "μ", "nu": "ν", "xi": "ξ", "pi": "π", "varpi": "ϖ", "rho": "ρ",
	"sigma": "σ", "tau": "τ", "upsilon": "υ", "phi": "ϕ", "varphi": "φ", "chi": "χ",
	"psi": "ψ", "omega": "ω", "Gamma": "Γ", "Delta": "Δ", "Theta": "Θ", "Lambda": "Λ",
	"Xi": "Ξ", "Pi": "Π", "Sigma": "Σ", "Upsilon": "Υ", "Phi": "Φ", "Psi": "Ψ", "Omega": "Ω",
	"infty": "∞", "partial": "∂", "nabla": "∇", "emptyset": "∅", "ell": "ℓ", "hbar": "ℏ",
}

var texOperators = map[string]string{
	"cdot": "⋅", "times": "×", "div": "÷", "pm": "±", "mp": "∓", "ast": "∗", "circ": "∘",
	"leq": "≤", "le": "≤", "geq": "≥", "ge": "≥", "neq": "≠", "ne": "≠", "approx": "≈",
	"equiv": "≡", "sim": "∼", "simeq": "≃", "propto": "∝", "ll": "≪", "gg": "≫",
	"to": "→", "rightarrow": "→", "leftarrow": "←", "Rightarrow": "⇒", "Leftarrow": "⇐",
	"leftrightarrow": "↔", "Leftrightarrow": "⇔", "iff": "⟺", "implies": "⟹", "mapsto": "↦",
	"in": "∈", "notin": "∉", "ni": "∋", "subset": "⊂", "subseteq": "⊆", "supset": "⊃",
	"supseteq": "⊇", "cup": "∪", "cap": "∩", "setminus": "∖", "forall": "∀", "exists": "∃",
	"neg": "¬", "land": "∧", "wedge": "∧", "lor": "∨", "vee": "∨", "oplus": "⊕", "otimes": "⊗",
	"sum": "∑", "prod": "∏", "int": "∫", "iint": "∬", "oint": "∮", "bigcup": "⋃", "bigcap": "⋂",
	"ldots": "…", "cdots": "⋯", "vdots": "⋮", "ddots": "⋱", "dots": "…",
	"langle": "⟨", "rangle": "⟩", "lfloor": "⌊", "rfloor": "⌋", "lceil": "⌈", "rceil": "⌉",
	"mid": "∣", "parallel": "∥", "perp": "⊥", "angle": "∠", "prime": "′",
	"{": "{", "}": "}", "|": "‖", "lbrace": "{", "rbrace": "}", "%": "%", "$": "$", "#": "#", "&": "&", "_": "_",
}

var texFunctions = map[string]bool{
	"sin": true, "cos": true, "tan": true, "cot": true, "sec": true, "csc": true,
	"arcsin": true, "arccos": true, "arctan": true, "sinh": true, "cosh": true, "tanh": true,
	"log": true, "ln": true, "lg": true, "exp": true, "lim": true, "max": true, "min": true,
	"sup": true, "inf": true, "det": true, "dim": true, "gcd": true, "deg": true, "arg": true, "ker": true,
}

var texSpaces = map[string]string{
	",": "0.167em", ":": "0.222em", ";": "0.278em", " ": "0.333em", "quad": "1em", "qquad": "2em", "!": "-0.167em",
}

var texAccents = map[string]string{
	"hat": "^", "widehat": "^", "bar": "¯", "overline": "¯", "vec": "→", "dot": "˙", "ddot": "¨", "tilde": "~", "widetilde": "~",
}

var texVariants = map[string]string{
	"mathbf": "bold", "mathit": "italic", "mathrm": "normal", "mathbb": "double-struck",
	"mathcal": "script", "mathfrak": "fraktur", "mathsf": "sans-serif", "mathtt": "monospace",
	"boldsymbol": "bold", "operatorname": "normal",
}

var texEnvironments = map[string][2]string{
	"matrix": {"", ""}, "pmatrix": {"(", ")"}, "bmatrix": {"[", "]"}, "Bmatrix": {"{", "}"},
	"vmatrix": {"|", "|"}, "Vmatrix": {"‖", "‖"}, "cases": {"{", ""}, "aligned": {"", ""},
	"align": {"", ""}, "align*": {"", ""}, "array": {"", ""},
}

type texParser struct {
	src []rune
	pos int
}

// Stop conditions for parseExpr.
const (
	stopBrace = 1 << iota
	stopBracket
	stopCell
)

func (p *texParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *texParser) peek() rune {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *texParser) parseExpr(stop int) (string, error) {
	var b strings.Builder
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			if stop&stopBrace != 0 {
				return "", fmt.Errorf("%w: missing closing brace", ErrUnsupportedTeX)
			}
			return b.String(), nil
		}
		c := p.peek()
		switch {
		case c == '}' && stop&stopBrace != 0:
			p.pos++
			return b.String(), nil
		case c == '}':
			return "", fmt.Errorf("%w: unbalanced closing brace", ErrUnsupportedTeX)
		case c == ']' && stop&stopBracket != 0:
			p.pos++
			return b.String(), nil
		case c == '&' && stop&stopCell != 0:
			return b.String(), nil
		case c == '\\' && stop&stopCell != 0 && p.atCommand("end", "\\"):
			return b.String(), nil
		}

		term, err := p.parseTerm()
		if err != nil {
			return "", err
		}
		b.WriteString(term)
	}
}

// atCommand reports whether the input continues with a backslash command named
// by one of names, without consuming it.
func (p *texParser) atCommand(names ...string) bool {
	if p.peek() != '\\' {
		return false
	}
	save := p.pos
	p.pos++
	name := p.readCommandName()
	p.pos = save
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func (p *texParser) parseTerm() (string, error) {
	base, err := p.parseAtom()
	if err != nil {
		return "", err
	}
	var sub, sup string
	for {
		p.skipSpace()
		c := p.peek()
		if c != '^' && c != '_' && c != '\'' {
			break
		}
		p.pos++
		if c == '\'' {
			sup += "<mo>′</mo>"
			continue
		}
		arg, err := p.parseAtom()
		if err != nil {
			return "", err
		}
		if c == '^' {
			sup += arg
		} else {
			sub += arg
		}
	}
	switch {
	case sub != "" && sup != "":
		return "<msubsup>" + base + wrapRow(sub) + wrapRow(sup) + "</msubsup>", nil
	case sub != "":
		return "<msub>" + base + wrapRow(sub) + "</msub>", nil
	case sup != "":
		return "<msup>" + base + wrapRow(sup) + "</msup>", nil
	}
	return base, nil
}

func wrapRow(s string) string {
	if strings.Count(s, "<m") > 1 && !strings.HasPrefix(s, "<mrow>") {
		return "<mrow>" + s + "</mrow>"
	}
	return s
}

func (p *texParser) parseAtom() (string, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return "", fmt.Errorf("%w: missing argument", ErrUnsupportedTeX)
	}
	c := p.src[p.pos]
	switch {
	case c == '{':
		p.pos++
		inner, err := p.parseExpr(stopBrace)
		if err != nil {
			return "", err
		}
		return "<mrow>" + inner + "</mrow>", nil
	case c == '\\':
		p.pos++
		return p.parseCommand()
	case unicode.IsDigit(c) || c == '.':
		start := p.pos
		for p.pos < len(p.src) && (unicode.IsDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
			p.pos++
		}
		return "<mn>" + esc(string(p.src[start:p.pos])) + "</mn>", nil
	case unicode.IsLetter(c):
		p.pos++
		return "<mi>" + esc(string(c)) + "</mi>", nil
	case strings.ContainsRune("+-=<>()[]|,;:!/*?", c):
		p.pos++
		op := string(c)
		if c == '-' {
			op = "−"
		}
		return "<mo>" + esc(op) + "</mo>", nil
	}
	return "", fmt.Errorf("%w: unexpected %q", ErrUnsupportedTeX, string(c))
}

func (p *texParser) readCommandName() string {
	if p.pos >= len(p.src) {
		return ""
	}
	start := p.pos
	if !unicode.IsLetter(p.src[p.pos]) {
		p.pos++
		return string(p.src[start:p.pos])
	}
	for p.pos < len(p.src) && unicode.IsLetter(p.src[p.pos]) {
		p.pos++
	}
	if p.pos < len(p.src) && p.src[p.pos] == '*' {
		p.pos++
	}
	return string(p.src[start:p.pos])
}

func (p *texParser) parseCommand() (string, error) {
	name := p.readCommandName()
	if v, ok := texIdentifiers[name]; ok {
		return "<mi>" + v + "</mi>", nil
	}
	if v, ok := texOperators[name]; ok {
		return "<mo>" + esc(v) + "</mo>", nil
	}
	if texFunctions[name] {
		return "<mi>" + name + "</mi><mo>⁡</mo>", nil
	}
	if width, ok := texSpaces[name]; ok {
		return `<mspace width="` + width + `"/>`, nil
	}
	if accent, ok := texAccents[name]; ok {
		arg, err := p.parseAtom()
		if err != nil {
			return "", err
		}
		return `<mover accent="true">` + arg + "<mo>" + esc(accent) + "</mo></mover>", nil
	}
	if variant, ok := texVariants[name]; ok {
		arg, err := p.parseGroupText()
		if err != nil {
			return "", err
		}
		return `<mi mathvariant="` + variant + `">` + esc(arg) + "</mi>", nil
	}

	switch name {
	case "frac", "dfrac", "tfrac":
		num, err := p.parseAtom()
		if err != nil {
			return "", err
		}
		den, err := p.parseAtom()
		if err != nil {
			return "", err
		}
		return "<mfrac>" + num + den + "</mfrac>", nil
	case "sqrt":
		p.skipSpace()
		if p.peek() == '[' {
			p.pos++
			index, err := p.parseExpr(stopBracket)
			if err != nil {
				return "", err
			}
			arg, err := p.parseAtom()
			if err != nil {
				return "", err
			}
			return "<mroot>" + arg + "<mrow>" + index + "</mrow></mroot>", nil
		}
		arg, err := p.parseAtom()
		if err != nil {
			return "", err
		}
		return "<msqrt>" + arg + "</msqrt>", nil
	case "text", "textrm", "mbox":
		s, err := p.parseGroupText()
		if err != nil {
			return "", err
		}
		return "<mtext>" + esc(s) + "</mtext>", nil
	case "left", "right", "big", "Big", "bigg", "Bigg":
		return p.parseDelimiter()
	case "begin":
		return p.parseEnvironment()
	case "\\":
		return "", fmt.Errorf("%w: line break outside environment", ErrUnsupportedTeX)
	}
	return "", fmt.Errorf("%w: unknown command \\%s", ErrUnsupportedTeX, name)
}

func (p *texParser) parseDelimiter() (string, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return "", fmt.Errorf("%w: missing delimiter", ErrUnsupportedTeX)
	}
	c := p.src[p.pos]
	if c == '.' {
		p.pos++
		return "", nil
	}
	if c == '\\' {
		p.pos++
		name := p.readCommandName()
		if v, ok := texOperators[name]; ok {
			return `<mo stretchy="true">` + esc(v) + "</mo>", nil
		}
		return "", fmt.Errorf("%w: unknown delimiter \\%s", ErrUnsupportedTeX, name)
	}
	p.pos++
	return `<mo stretchy="true">` + esc(string(c)) + "</mo>", nil
}

// parseGroupText reads a brace group verbatim (used by \text and font commands).
func (p *texParser) parseGroupText() (string, error) {
	p.skipSpace()
	if p.peek() != '{' {
		if p.pos < len(p.src) {
			p.pos++
			return string(p.src[p.pos-1]), nil
		}
		return "", fmt.Errorf("%w: missing argument", ErrUnsupportedTeX)
	}
	p.pos++
	depth := 1
	start := p.pos
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				s := string(p.src[start:p.pos])
				p.pos++
				return s, nil
			}
		}
		p.pos++
	}
	return "", fmt.Errorf("%w: missing closing brace", ErrUnsupportedTeX)
}

func (p *texParser) parseEnvironment() (string, error) {
	env, err := p.parseGroupText()
	if err != nil {
		return "", err
	}
	fences, ok := texEnvironments[env]
	if !ok {
		return "", fmt.Errorf("%w: unknown environment %s", ErrUnsupportedTeX, env)
	}
	if env == "array" {
		if _, err := p.parseGroupText(); err != nil {
			return "", err
		}
	}

	var rows []string
	var cells []string
	for {
		cell, err := p.parseExpr(stopCell)
		if err != nil {
			return "", err
		}
		cells = append(cells, "<mtd>"+cell+"</mtd>")
		p.skipSpace()
		if p.pos >= len(p.src) {
			return "", fmt.Errorf("%w: unterminated environment %s", ErrUnsupportedTeX, env)
		}
		if p.peek() == '&' {
			p.pos++
			continue
		}
		p.pos++ // backslash
		cmd := p.readCommandName()
		switch cmd {
		case "\\":
			rows = append(rows, "<mtr>"+strings.Join(cells, "")+"</mtr>")
			cells = nil
		case "end":
			closing, err := p.parseGroupText()
			if err != nil {
				return "", err
			}
			if closing != env {
				return "", fmt.Errorf("%w: \\begin{%s} closed by \\end{%s}", ErrUnsupportedTeX, env, closing)
			}
			rows = append(rows, "<mtr>"+strings.Join(cells, "")+"</mtr>")
			table := "<mtable>" + strings.Join(rows, "") + "</mtable>"
			if fences[0] != "" {
				table = `<mo stretchy="true">` + esc(fences[0]) + "</mo>" + table
			}
			if fences[1] != "" {
				table += `<mo stretchy="true">` + esc(fences[1]) + "</mo>"
			}
			return "<mrow>" + table + "</mrow>", nil
		default:
			return "", fmt.Errorf("%w: unexpected \\%s in %s", ErrUnsupportedTeX, cmd, env)
		}
	}
}

func esc(s string) string {
	return html.EscapeString(s)
}
