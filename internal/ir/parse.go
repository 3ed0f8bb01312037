package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse reads the textual form produced by Print and rebuilds the
// graph. It returns the root node, detached, inside a fresh graph
// bound to ctx. Value references must be defined before use; block
// references may be forward within their region. Line comments start
// with "//".
func Parse(ctx *Context, src string) (*Graph, *Node, error) {
	toks, err := scan(src)
	if err != nil {
		return nil, nil, err
	}
	p := &parser{
		g:      NewGraph(ctx),
		toks:   toks,
		values: make(map[string]ValueID),
	}
	p.skipNewlines()
	root, err := p.parseNode(nil)
	if err != nil {
		return nil, nil, err
	}
	p.skipNewlines()
	if p.peek().kind != tokEOF {
		t := p.peek()
		return nil, nil, p.errf(t, "expected end of input, found %q", t.text)
	}
	return p.g, root, nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNewline
	tokIdent
	tokValueRef
	tokBlockRef
	tokInt
	tokFloat
	tokString
	tokLBrace
	tokRBrace
	tokLParen
	tokRParen
	tokComma
	tokColon
	tokAssign
)

type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

func scan(src string) ([]token, error) {
	var toks []token
	line, col := 1, 1
	i := 0
	emit := func(kind tokenKind, text string, startCol int) {
		toks = append(toks, token{kind: kind, text: text, line: line, col: startCol})
	}
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			if len(toks) == 0 || toks[len(toks)-1].kind != tokNewline {
				emit(tokNewline, "\n", col)
			}
			line++
			col = 1
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
			col++
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
				col++
			}
		case c == '{':
			emit(tokLBrace, "{", col)
			i++
			col++
		case c == '}':
			emit(tokRBrace, "}", col)
			i++
			col++
		case c == '(':
			emit(tokLParen, "(", col)
			i++
			col++
		case c == ')':
			emit(tokRParen, ")", col)
			i++
			col++
		case c == ',':
			emit(tokComma, ",", col)
			i++
			col++
		case c == ':':
			emit(tokColon, ":", col)
			i++
			col++
		case c == '=':
			emit(tokAssign, "=", col)
			i++
			col++
		case c == '%' || c == '^':
			start := i
			startCol := col
			i++
			col++
			for i < len(src) && isNameByte(src[i]) {
				i++
				col++
			}
			if i == start+1 {
				return nil, &ParseError{Line: line, Column: startCol, Msg: fmt.Sprintf("dangling %q", c)}
			}
			kind := tokValueRef
			if c == '^' {
				kind = tokBlockRef
			}
			emit(kind, src[start+1:i], startCol)
		case c == '"':
			startCol := col
			j := i + 1
			for j < len(src) && src[j] != '"' {
				if src[j] == '\\' && j+1 < len(src) {
					j++
				}
				if src[j] == '\n' {
					return nil, &ParseError{Line: line, Column: startCol, Msg: "unterminated string"}
				}
				j++
			}
			if j >= len(src) {
				return nil, &ParseError{Line: line, Column: startCol, Msg: "unterminated string"}
			}
			raw := src[i : j+1]
			unquoted, err := strconv.Unquote(raw)
			if err != nil {
				return nil, &ParseError{Line: line, Column: startCol, Msg: "malformed string literal"}
			}
			emit(tokString, unquoted, startCol)
			col += j + 1 - i
			i = j + 1
		case c >= '0' && c <= '9' || c == '-':
			start := i
			startCol := col
			i++
			col++
			isFloat := false
			for i < len(src) {
				ch := src[i]
				if ch >= '0' && ch <= '9' {
					i++
					col++
					continue
				}
				if ch == '.' || ch == 'e' || ch == 'E' {
					isFloat = true
					i++
					col++
					continue
				}
				if (ch == '+' || ch == '-') && isFloat {
					i++
					col++
					continue
				}
				break
			}
			if i == start+1 && src[start] == '-' {
				return nil, &ParseError{Line: line, Column: startCol, Msg: "dangling minus sign"}
			}
			kind := tokInt
			if isFloat {
				kind = tokFloat
			}
			emit(kind, src[start:i], startCol)
		case isNameStartByte(c):
			start := i
			startCol := col
			for i < len(src) && (isNameByte(src[i]) || src[i] == '.') {
				i++
				col++
			}
			emit(tokIdent, src[start:i], startCol)
		default:
			return nil, &ParseError{Line: line, Column: col, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	toks = append(toks, token{kind: tokEOF, line: line, col: col})
	return toks, nil
}

func isNameStartByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isNameByte(c byte) bool {
	return isNameStartByte(c) || c >= '0' && c <= '9'
}

type parser struct {
	g      *Graph
	toks   []token
	pos    int
	values map[string]ValueID
}

func (p *parser) peek() token  { return p.toks[p.pos] }
func (p *parser) peekAt(k int) token {
	if p.pos+k >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+k]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) skipNewlines() {
	for p.peek().kind == tokNewline {
		p.next()
	}
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, p.errf(t, "expected %s, found %q", what, t.text)
	}
	return t, nil
}

func (p *parser) errf(t token, format string, args ...any) error {
	return &ParseError{Line: t.line, Column: t.col, Msg: fmt.Sprintf(format, args...)}
}

// blockScope tracks label resolution inside one region. Referenced
// but not yet defined labels hold shell blocks.
type blockScope struct {
	region  *Region
	byName  map[string]*Block
	defined map[string]bool
}

// resolveBlock returns the block for a label, creating a shell on
// first reference.
func (p *parser) resolveBlock(scope *blockScope, name string) *Block {
	if b, ok := scope.byName[name]; ok {
		return b
	}
	b := p.g.addBlockShell(scope.region)
	scope.byName[name] = b
	return b
}

// parseNode parses one node statement. scope is the enclosing
// region's label scope, nil at the root. The node is appended to
// block when non-nil, else left detached.
func (p *parser) parseNode(at *parseSite) (*Node, error) {
	var resultNames []string
	if p.peek().kind == tokValueRef {
		for {
			t, err := p.expect(tokValueRef, "value name")
			if err != nil {
				return nil, err
			}
			if _, exists := p.values[t.text]; exists {
				return nil, p.errf(t, "value %%%s is defined twice", t.text)
			}
			resultNames = append(resultNames, t.text)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
		if _, err := p.expect(tokAssign, "'='"); err != nil {
			return nil, err
		}
	}

	opTok, err := p.expect(tokIdent, "op name")
	if err != nil {
		return nil, err
	}
	op := OpName(opTok.text)
	spec := p.g.ctx.Spec(op)
	if spec == nil {
		return nil, p.errf(opTok, "unknown op %q", opTok.text)
	}

	def := NodeDef{Op: op}
	for p.peek().kind == tokValueRef || p.peek().kind == tokBlockRef {
		if p.peek().kind == tokValueRef {
			t := p.next()
			if len(def.Successors) > 0 {
				return nil, p.errf(t, "operand after successor list")
			}
			v, ok := p.values[t.text]
			if !ok {
				return nil, p.errf(t, "use of undefined value %%%s", t.text)
			}
			def.Operands = append(def.Operands, v)
		} else {
			t := p.next()
			if at == nil {
				return nil, p.errf(t, "successor outside a region")
			}
			succ := SuccessorDef{Block: p.resolveBlock(at.scope, t.text).id}
			if p.peek().kind == tokLParen {
				p.next()
				for p.peek().kind != tokRParen {
					vt, err := p.expect(tokValueRef, "successor argument")
					if err != nil {
						return nil, err
					}
					v, ok := p.values[vt.text]
					if !ok {
						return nil, p.errf(vt, "use of undefined value %%%s", vt.text)
					}
					succ.Args = append(succ.Args, v)
					if p.peek().kind == tokComma {
						p.next()
					}
				}
				p.next()
			}
			def.Successors = append(def.Successors, succ)
		}
		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}

	if p.peek().kind == tokLBrace && p.peekAt(1).kind == tokIdent && p.peekAt(2).kind == tokAssign {
		attrs, err := p.parseAttrs()
		if err != nil {
			return nil, err
		}
		def.Attrs = attrs
	}

	n, err := p.g.NewNode(def)
	if err != nil {
		return nil, p.errf(opTok, "%v", err)
	}

	for i := 0; i < spec.NumRegions; i++ {
		if _, err := p.expect(tokLBrace, "region"); err != nil {
			return nil, err
		}
		if err := p.parseRegion(n.Region(i)); err != nil {
			return nil, err
		}
	}

	if len(resultNames) > 0 {
		if _, err := p.expect(tokColon, "result types"); err != nil {
			return nil, err
		}
		var types []Type
		for {
			tt, err := p.expect(tokIdent, "type")
			if err != nil {
				return nil, err
			}
			typ, terr := ParseType(tt.text)
			if terr != nil {
				return nil, p.errf(tt, "%v", terr)
			}
			types = append(types, typ)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
		if len(types) != len(resultNames) {
			return nil, p.errf(opTok, "%d result names but %d types", len(resultNames), len(types))
		}
		p.g.addResults(n, types)
		for i, name := range resultNames {
			p.values[name] = n.Result(i)
		}
	}

	if at != nil {
		if err := p.g.InsertNodeAtEnd(n.id, at.block.id); err != nil {
			return nil, p.errf(opTok, "%v", err)
		}
	}
	if t := p.peek(); t.kind != tokNewline && t.kind != tokEOF && t.kind != tokRBrace {
		return nil, p.errf(t, "trailing %q after node", t.text)
	}
	return n, nil
}

// parseSite is where statements currently land: a block plus its
// region's label scope.
type parseSite struct {
	scope *blockScope
	block *Block
}

// parseRegion parses block statements until the closing brace. The
// opening brace is already consumed.
func (p *parser) parseRegion(r *Region) error {
	scope := &blockScope{
		region:  r,
		byName:  make(map[string]*Block),
		defined: make(map[string]bool),
	}
	p.skipNewlines()

	var cur *parseSite
	for {
		switch p.peek().kind {
		case tokRBrace:
			closing := p.next()
			for name := range scope.byName {
				if !scope.defined[name] {
					return p.errf(closing, "undefined block ^%s", name)
				}
			}
			return nil
		case tokEOF:
			return p.errf(p.peek(), "unterminated region")
		case tokBlockRef:
			t := p.next()
			b := p.resolveBlock(scope, t.text)
			if scope.defined[t.text] {
				return p.errf(t, "block ^%s is defined twice", t.text)
			}
			scope.defined[t.text] = true
			if err := p.parseBlockHeader(b); err != nil {
				return err
			}
			cur = &parseSite{scope: scope, block: b}
		default:
			if cur == nil {
				// Implicit entry block without parameters.
				b := p.g.addBlockShell(r)
				cur = &parseSite{scope: scope, block: b}
			}
			if _, err := p.parseNode(cur); err != nil {
				return err
			}
		}
		p.skipNewlines()
	}
}

// parseBlockHeader parses the optional parameter list and trailing
// colon of a labeled block.
func (p *parser) parseBlockHeader(b *Block) error {
	var types []Type
	var names []string
	if p.peek().kind == tokLParen {
		p.next()
		for p.peek().kind != tokRParen {
			nt, err := p.expect(tokValueRef, "parameter name")
			if err != nil {
				return err
			}
			if _, exists := p.values[nt.text]; exists {
				return p.errf(nt, "value %%%s is defined twice", nt.text)
			}
			if _, err := p.expect(tokColon, "parameter type"); err != nil {
				return err
			}
			tt, err := p.expect(tokIdent, "type")
			if err != nil {
				return err
			}
			typ, terr := ParseType(tt.text)
			if terr != nil {
				return p.errf(tt, "%v", terr)
			}
			names = append(names, nt.text)
			types = append(types, typ)
			if p.peek().kind == tokComma {
				p.next()
			}
		}
		p.next()
	}
	if _, err := p.expect(tokColon, "':' after block header"); err != nil {
		return err
	}
	if err := p.g.setBlockParams(b, types); err != nil {
		return &ParseError{Msg: err.Error()}
	}
	for i, name := range names {
		p.values[name] = b.Param(i)
	}
	return nil
}

// parseAttrs parses an attribute dictionary. The caller has checked
// that the braces hold key = value pairs.
func (p *parser) parseAttrs() (AttrMap, error) {
	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return nil, err
	}
	attrs := make(AttrMap)
	for {
		kt, err := p.expect(tokIdent, "attribute name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokAssign, "'='"); err != nil {
			return nil, err
		}
		a, err := p.parseAttrValue()
		if err != nil {
			return nil, err
		}
		attrs[kt.text] = a
		if p.peek().kind == tokComma {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(tokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return attrs, nil
}

func (p *parser) parseAttrValue() (Attr, error) {
	t := p.next()
	switch t.kind {
	case tokInt:
		v, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, p.errf(t, "integer out of range")
		}
		typ := I64
		if p.peek().kind == tokColon {
			p.next()
			tt, err := p.expect(tokIdent, "type")
			if err != nil {
				return nil, err
			}
			typ, err = ParseType(tt.text)
			if err != nil {
				return nil, p.errf(tt, "%v", err)
			}
		}
		return IntAttr{Value: v, Type: typ}, nil
	case tokFloat:
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errf(t, "malformed float")
		}
		typ := F64
		if p.peek().kind == tokColon {
			p.next()
			tt, err := p.expect(tokIdent, "type")
			if err != nil {
				return nil, err
			}
			typ, err = ParseType(tt.text)
			if err != nil {
				return nil, p.errf(tt, "%v", err)
			}
		}
		return FloatAttr{Value: v, Type: typ}, nil
	case tokString:
		return StringAttr(t.text), nil
	case tokIdent:
		switch t.text {
		case "true":
			return BoolAttr(true), nil
		case "false":
			return BoolAttr(false), nil
		}
		return nil, p.errf(t, "unknown attribute value %q", t.text)
	default:
		return nil, p.errf(t, "expected attribute value, found %q", t.text)
	}
}

// MustParse parses src and panics on error. Test helper.
func MustParse(ctx *Context, src string) (*Graph, *Node) {
	g, root, err := Parse(ctx, src)
	if err != nil {
		panic(fmt.Sprintf("ir.MustParse: %v\n%s", err, strings.TrimSpace(src)))
	}
	return g, root
}
