package egg

import (
	"math"
	"strconv"
	"strings"
)

// FindBlockEnd returns the index of the line holding the '}' that closes the first '{'
// opened at or after line start, or -1 when the block is never closed.
func FindBlockEnd(lines []string, start int) int {
	end, _ := findBlockEnd(lines, start, 0)
	return end
}

func findBlockEnd(lines []string, start, col int) (int, int) {
	if start < 0 || start >= len(lines) {
		return -1, -1
	}
	depth := 0
	opened := false
	for i := start; i < len(lines); i++ {
		line := lines[i]
		c := 0
		if i == start {
			c = col
		}
		inString := false
		for ; c < len(line); c++ {
			ch := line[c]
			if inString {
				if ch == '\\' {
					c++
				} else if ch == '"' {
					inString = false
				}
				continue
			}
			switch ch {
			case '"':
				inString = true
			case '/':
				if c+1 < len(line) && line[c+1] == '/' {
					c = len(line)
				}
			case '{':
				depth++
				opened = true
			case '}':
				depth--
				if opened && depth == 0 {
					return i, c
				}
				if depth < 0 {
					// stray closing brace before the block opened
					depth = 0
				}
			}
		}
	}
	return -1, -1
}

type tokenType int

const (
	tokTag tokenType = iota
	tokWord
	tokString
	tokOpen
	tokClose
	tokComment
)

type token struct {
	typ  tokenType
	text string
	line int
}

// lexRange splits lines[start:end+1] into tokens, beginning at column col of the first line
// and stopping after column endCol of the last line.
func lexRange(lines []string, start, col, end, endCol int) []token {
	var tokens []token
	for i := start; i <= end && i < len(lines); i++ {
		line := lines[i]
		c := 0
		if i == start {
			c = col
		}
		limit := len(line)
		if i == end && endCol >= 0 && endCol+1 < limit {
			limit = endCol + 1
		}
		for c < limit {
			ch := line[c]
			switch {
			case ch == ' ' || ch == '\t' || ch == '\r':
				c++
			case ch == '{':
				tokens = append(tokens, token{tokOpen, "{", i})
				c++
			case ch == '}':
				tokens = append(tokens, token{tokClose, "}", i})
				c++
			case ch == '/' && c+1 < limit && line[c+1] == '/':
				tokens = append(tokens, token{tokComment, strings.TrimSpace(line[c+2 : limit]), i})
				c = limit
			case ch == '"':
				s := c + 1
				var sb strings.Builder
				for c = s; c < limit && line[c] != '"'; c++ {
					if line[c] == '\\' && c+1 < limit {
						c++
					}
					sb.WriteByte(line[c])
				}
				tokens = append(tokens, token{tokString, sb.String(), i})
				c++
			case ch == '<':
				e := strings.IndexByte(line[c:limit], '>')
				if e < 0 {
					tokens = append(tokens, token{tokWord, line[c:limit], i})
					c = limit
					continue
				}
				tokens = append(tokens, token{tokTag, line[c+1 : c+e], i})
				c += e + 1
			default:
				s := c
				for c < limit && !strings.ContainsRune(" \t\r{}\"", rune(line[c])) {
					c++
				}
				tokens = append(tokens, token{tokWord, line[s:c], i})
			}
		}
	}
	return tokens
}

// Element is one tagged block: `<Tag> name { values... <Child> {...} }`.
type Element struct {
	Tag      string
	Name     string
	Values   []string
	Comments []string
	Children []*Element
	Line     int // 0-based index of the line holding the tag
	EndLine  int
}

// Is reports whether the element tag equals tag, ignoring case.
func (e *Element) Is(tag string) bool {
	return strings.EqualFold(e.Tag, tag)
}

// Child returns the first direct child with the tag.
func (e *Element) Child(tag string) *Element {
	for _, c := range e.Children {
		if c.Is(tag) {
			return c
		}
	}
	return nil
}

// ChildrenByTag returns all direct children with the tag.
func (e *Element) ChildrenByTag(tag string) []*Element {
	var r []*Element
	for _, c := range e.Children {
		if c.Is(tag) {
			r = append(r, c)
		}
	}
	return r
}

// Contains reports whether any descendant has the tag.
func (e *Element) Contains(tag string) bool {
	for _, c := range e.Children {
		if c.Is(tag) || c.Contains(tag) {
			return true
		}
	}
	return false
}

// Scalar returns the value of a `<Scalar> name { value }` child.
func (e *Element) Scalar(name string) (string, bool) {
	for _, c := range e.ChildrenByTag("Scalar") {
		if strings.EqualFold(c.Name, name) && len(c.Values) > 0 {
			return c.Values[0], true
		}
	}
	return "", false
}

// Floats parses every value as a float.
func (e *Element) Floats() ([]float32, error) {
	r := make([]float32, len(e.Values))
	for i, v := range e.Values {
		f, err := parseFloat(v)
		if err != nil {
			return nil, &ParseError{Line: e.Line + 1, Tag: e.Tag, Text: v, Err: err}
		}
		r[i] = f
	}
	return r, nil
}

// FloatsN parses exactly n leading values as floats.
func (e *Element) FloatsN(n int) ([]float32, error) {
	if len(e.Values) < n {
		return nil, &ParseError{Line: e.Line + 1, Tag: e.Tag, Text: strings.Join(e.Values, " "), Err: errTooFewValues}
	}
	r := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := parseFloat(e.Values[i])
		if err != nil {
			return nil, &ParseError{Line: e.Line + 1, Tag: e.Tag, Text: e.Values[i], Err: err}
		}
		r[i] = f
	}
	return r, nil
}

// Ints parses every value as an integer.
func (e *Element) Ints() ([]int, error) {
	r := make([]int, len(e.Values))
	for i, v := range e.Values {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, &ParseError{Line: e.Line + 1, Tag: e.Tag, Text: v, Err: err}
		}
		r[i] = n
	}
	return r, nil
}

// parseFloat rejects nan and inf, which strconv accepts.
func parseFloat(s string) (float32, error) {
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotFinite
	}
	return float32(f), nil
}

type elementParser struct {
	tokens []token
	pos    int
}

func (p *elementParser) parseElement() *Element {
	t := p.tokens[p.pos]
	p.pos++
	el := &Element{Tag: t.text, Line: t.line, EndLine: t.line}
	var name []string
	for p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		if t.typ == tokWord || t.typ == tokString {
			name = append(name, t.text)
			p.pos++
			continue
		}
		break
	}
	el.Name = strings.Join(name, " ")
	if p.pos >= len(p.tokens) || p.tokens[p.pos].typ != tokOpen {
		return el
	}
	p.pos++
	for p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		switch t.typ {
		case tokClose:
			p.pos++
			el.EndLine = t.line
			return el
		case tokTag:
			el.Children = append(el.Children, p.parseElement())
		case tokComment:
			el.Comments = append(el.Comments, t.text)
			p.pos++
		case tokOpen:
			// anonymous block: keep its values flat
			p.pos++
		default:
			el.Values = append(el.Values, t.text)
			p.pos++
		}
	}
	return el
}

// ParseLines builds the element tree of an EGG file. Blocks whose braces never close are
// reported as structure errors and skipped one line at a time, so the blocks nested inside
// them are still visited.
func ParseLines(lines []string) ([]*Element, []*StructureError) {
	var elements []*Element
	var errs []*StructureError
	for i := 0; i < len(lines); i++ {
		col := strings.IndexByte(lines[i], '<')
		if col < 0 || strings.TrimSpace(lines[i][:col]) != "" {
			continue
		}
		end, endCol := findBlockEnd(lines, i, col)
		if end < 0 {
			errs = append(errs, &StructureError{Line: i + 1, Msg: "unmatched brace: " + strings.TrimSpace(lines[i])})
			continue
		}
		p := &elementParser{tokens: lexRange(lines, i, col, end, endCol)}
		for p.pos < len(p.tokens) {
			if p.tokens[p.pos].typ != tokTag {
				p.pos++
				continue
			}
			elements = append(elements, p.parseElement())
		}
		i = end
	}
	return elements, errs
}

// walkElements calls fn for every element in depth-first order. Children are not visited when fn returns false.
func walkElements(elements []*Element, fn func(e *Element) bool) {
	for _, e := range elements {
		if fn(e) {
			walkElements(e.Children, fn)
		}
	}
}
