package php

import (
	"bytes"
	"regexp"
	"strings"
)

// DeclKind is the kind of a class-like declaration.
type DeclKind uint8

// Declaration kinds.
const (
	KindClass DeclKind = iota
	KindTrait
	KindInterface
	KindEnum
)

// String returns the PHP keyword of the kind.
func (k DeclKind) String() string {
	switch k {
	case KindTrait:
		return "trait"
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	}
	return "class"
}

// File is the class structure found in one PHP source file.
type File struct {
	Path  string
	Decls []*Decl
}

// Decl finds the declaration of a fully qualified name. PHP class names
// are case-insensitive.
func (f *File) Decl(name string) *Decl {
	for _, d := range f.Decls {
		if strings.EqualFold(d.Name, name) {
			return d
		}
	}
	return nil
}

// Decl is a class, trait, interface or enum declaration. Names are fully
// qualified without a leading separator.
type Decl struct {
	Kind       DeclKind
	Name       string
	Abstract   bool
	Parent     string
	Traits     []string
	Properties []Property
	Methods    []string
}

// Property is a property declared in a class body or promoted by the
// constructor.
type Property struct {
	Name string
	// Annotations holds the fully qualified names of the attributes and
	// docblock annotations of the property.
	Annotations []string
}

// Property returns the declared property name, or nil.
func (d *Decl) Property(name string) *Property {
	for i := range d.Properties {
		if d.Properties[i].Name == name {
			return &d.Properties[i]
		}
	}
	return nil
}

type tokKind uint8

const (
	tokIdent tokKind = iota
	tokVar
	tokString
	tokNumber
	tokPunct
	tokDoc
	tokAttr
)

type token struct {
	kind tokKind
	text string
}

func (t token) is(words ...string) bool {
	if t.kind != tokIdent && t.kind != tokPunct {
		return false
	}
	for _, w := range words {
		if strings.EqualFold(t.text, w) {
			return true
		}
	}
	return false
}

// lex splits PHP source into the tokens the scanner needs. Comments are
// dropped except docblocks, and text outside PHP tags is ignored.
func lex(src []byte) []token {
	var (
		toks []token
		i    int
		n    = len(src)
	)
	openTag := func(from int) int {
		j := bytes.Index(src[from:], []byte("<?"))
		if j < 0 {
			return n
		}
		j += from + 2
		switch {
		case bytes.HasPrefix(src[j:], []byte("php")):
			j += 3
		case bytes.HasPrefix(src[j:], []byte("=")):
			j++
		}
		return j
	}
	i = openTag(0)
	for i < n {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '?' && i+1 < n && src[i+1] == '>':
			i = openTag(i + 2)
		case c == '#' && i+1 < n && src[i+1] == '[':
			toks = append(toks, token{tokAttr, "#["})
			i += 2
		case c == '#' || (c == '/' && i+1 < n && src[i+1] == '/'):
			for i < n && src[i] != '\n' {
				if src[i] == '?' && i+1 < n && src[i+1] == '>' {
					break
				}
				i++
			}
		case c == '/' && i+1 < n && src[i+1] == '*':
			end := bytes.Index(src[i+2:], []byte("*/"))
			if end < 0 {
				end = n - i - 2
			}
			text := string(src[i : i+2+end])
			if strings.HasPrefix(text, "/**") {
				toks = append(toks, token{tokDoc, text})
			}
			i += 2 + end + 2
		case c == '\'' || c == '"' || c == '`':
			j := i + 1
			for j < n && src[j] != c {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			toks = append(toks, token{tokString, ""})
			i = j + 1
		case c == '<' && bytes.HasPrefix(src[i:], []byte("<<<")):
			i = skipHeredoc(src, i+3)
			toks = append(toks, token{tokString, ""})
		case c == '$' && i+1 < n && isIdentStart(src[i+1]):
			j := i + 1
			for j < n && isIdentPart(src[j]) {
				j++
			}
			toks = append(toks, token{tokVar, string(src[i:j])})
			i = j
		case isIdentStart(c) || c == '\\':
			j := i
			for j < n && (isIdentPart(src[j]) || src[j] == '\\') {
				j++
			}
			toks = append(toks, token{tokIdent, string(src[i:j])})
			i = j
		case c >= '0' && c <= '9':
			j := i
			for j < n && (isIdentPart(src[j]) || src[j] == '.') {
				j++
			}
			toks = append(toks, token{tokNumber, string(src[i:j])})
			i = j
		default:
			toks = append(toks, token{tokPunct, string(c)})
			i++
		}
	}
	return toks
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// skipHeredoc returns the offset after the closing label of a heredoc or
// nowdoc whose opening label starts at i.
func skipHeredoc(src []byte, i int) int {
	n := len(src)
	for i < n && (src[i] == ' ' || src[i] == '\t') {
		i++
	}
	quoted := i < n && (src[i] == '\'' || src[i] == '"')
	if quoted {
		i++
	}
	j := i
	for j < n && isIdentPart(src[j]) {
		j++
	}
	label := src[i:j]
	if len(label) == 0 {
		return j
	}
	if quoted {
		j++
	}
	for j < n {
		nl := bytes.IndexByte(src[j:], '\n')
		if nl < 0 {
			return n
		}
		j += nl + 1
		line := bytes.TrimLeft(src[j:], " \t")
		if bytes.HasPrefix(line, label) {
			end := len(src) - len(line) + len(label)
			if end >= n || !isIdentPart(src[end]) {
				return end
			}
		}
	}
	return n
}

// Scan extracts the class-like declarations of PHP source. It recognizes
// namespaces, imports, class headers, used traits, properties, promoted
// constructor properties and method names. Function bodies are skipped.
func Scan(path string, src []byte) *File {
	p := &parser{toks: lex(src), uses: make(map[string]string)}
	f := &File{Path: path}
	for !p.eof() {
		t := p.next()
		switch {
		case t.is("namespace"):
			p.namespace()
		case t.is("use") && !p.notDeclaration():
			p.imports()
		case t.is("function"):
			p.function()
		case t.is("abstract"):
			p.abstract = true
		case t.is("class", "trait", "interface", "enum"):
			if p.notDeclaration() || p.peek().kind != tokIdent {
				continue
			}
			f.Decls = append(f.Decls, p.decl(t.text))
		case t.is(";", "}"):
			p.abstract = false
		}
	}
	return f
}

type parser struct {
	toks     []token
	i        int
	ns       string
	uses     map[string]string
	abstract bool
}

func (p *parser) eof() bool { return p.i >= len(p.toks) }

func (p *parser) next() token {
	if p.eof() {
		return token{kind: tokPunct}
	}
	t := p.toks[p.i]
	p.i++
	return t
}

func (p *parser) peek() token {
	if p.eof() {
		return token{kind: tokPunct}
	}
	return p.toks[p.i]
}

// notDeclaration reports a keyword used as an expression, as in
// Foo::class, new class {} or $query->use().
func (p *parser) notDeclaration() bool {
	if p.i < 2 {
		return false
	}
	prev := p.toks[p.i-2]
	return prev.is("new", ":", ">")
}

func (p *parser) namespace() {
	name := ""
	if p.peek().kind == tokIdent {
		name = p.next().text
	}
	p.ns = strings.Trim(name, `\`)
	p.uses = make(map[string]string)
	if p.peek().is("{", ";") {
		p.next()
	}
}

// imports reads a top-level use statement, including group imports.
func (p *parser) imports() {
	if p.peek().is("function", "const") {
		p.skipStatement()
		return
	}
	for !p.eof() {
		t := p.next()
		if t.kind != tokIdent {
			if t.is(";") {
				return
			}
			continue
		}
		name := strings.Trim(t.text, `\`)
		if p.peek().is("{") {
			p.next()
			p.group(name)
			continue
		}
		p.alias(name)
	}
}

func (p *parser) group(prefix string) {
	for !p.eof() {
		t := p.next()
		switch {
		case t.is("}"):
			return
		case t.kind == tokIdent:
			p.alias(prefix + `\` + strings.Trim(t.text, `\`))
		}
	}
}

func (p *parser) alias(name string) {
	alias := name[strings.LastIndex(name, `\`)+1:]
	if p.peek().is("as") {
		p.next()
		alias = p.next().text
	}
	p.uses[strings.ToLower(alias)] = name
}

// resolve qualifies a class name against the current namespace and imports.
func (p *parser) resolve(name string) string {
	if strings.HasPrefix(name, `\`) {
		return strings.TrimPrefix(name, `\`)
	}
	first, rest, qualified := strings.Cut(name, `\`)
	switch lower := strings.ToLower(first); {
	case lower == "namespace" && qualified:
		return p.qualify(rest)
	case lower == "self" || lower == "static" || lower == "parent":
		return name
	default:
		if imported, ok := p.uses[lower]; ok {
			if qualified {
				return imported + `\` + rest
			}
			return imported
		}
	}
	return p.qualify(name)
}

func (p *parser) qualify(name string) string {
	if p.ns == "" {
		return name
	}
	return p.ns + `\` + name
}

func (p *parser) decl(keyword string) *Decl {
	d := &Decl{Name: p.qualify(p.next().text), Abstract: p.abstract}
	p.abstract = false
	switch strings.ToLower(keyword) {
	case "trait":
		d.Kind = KindTrait
	case "interface":
		d.Kind = KindInterface
	case "enum":
		d.Kind = KindEnum
	}
	for !p.eof() {
		t := p.next()
		if t.is("{") {
			break
		}
		if t.is("extends") && d.Kind == KindClass && p.peek().kind == tokIdent {
			d.Parent = p.resolve(p.next().text)
		}
	}
	p.body(d)
	return d
}

// body reads a class body up to its closing brace.
func (p *parser) body(d *Decl) {
	var (
		doc   string
		attrs []string
	)
	reset := func() { doc, attrs = "", nil }
	for !p.eof() {
		t := p.next()
		switch {
		case t.is("}"):
			return
		case t.kind == tokDoc:
			doc = t.text
		case t.kind == tokAttr:
			attrs = append(attrs, p.attribute()...)
		case t.is("use"):
			p.traits(d)
			reset()
		case t.is("const", "case"):
			p.skipStatement()
			reset()
		case t.is("function"):
			if p.peek().is("&") {
				p.next()
			}
			name := p.next().text
			d.Methods = append(d.Methods, name)
			if p.peek().is("(") {
				p.next()
				p.params(d, strings.EqualFold(name, "__construct"))
			}
			p.skipMember()
			reset()
		case t.kind == tokVar:
			annotations := p.annotations(doc, attrs)
			d.Properties = append(d.Properties, Property{Name: t.text[1:], Annotations: annotations})
			for p.skipValue() {
				if v := p.peek(); v.kind == tokVar {
					p.next()
					d.Properties = append(d.Properties, Property{Name: v.text[1:], Annotations: annotations})
				}
			}
			reset()
		case t.is("{"):
			p.skipBlock()
		}
	}
}

func (p *parser) traits(d *Decl) {
	for !p.eof() {
		t := p.next()
		switch {
		case t.is(";"):
			return
		case t.is("{"):
			p.skipBlock()
			return
		case t.kind == tokIdent:
			d.Traits = append(d.Traits, p.resolve(t.text))
		}
	}
}

// params reads a parameter list after its opening parenthesis, recording
// constructor-promoted properties.
func (p *parser) params(d *Decl, ctor bool) {
	var (
		depth    = 1
		promoted bool
		attrs    []string
	)
	for !p.eof() {
		t := p.next()
		switch {
		case t.is("(", "["):
			depth++
		case t.is(")", "]"):
			depth--
			if depth == 0 {
				return
			}
		case t.kind == tokAttr:
			attrs = append(attrs, p.attribute()...)
		case depth != 1:
		case t.is("public", "protected", "private", "readonly"):
			promoted = true
		case t.kind == tokVar && ctor && promoted:
			d.Properties = append(d.Properties, Property{Name: t.text[1:], Annotations: attrs})
		case t.is(","):
			promoted, attrs = false, nil
		}
	}
}

// attribute reads an attribute group after "#[" and returns the resolved
// attribute names.
func (p *parser) attribute() []string {
	var (
		names  []string
		depth  int
		expect = true
	)
	for !p.eof() {
		t := p.next()
		switch {
		case t.is("(", "[", "{"):
			depth++
		case t.is(")", "}"):
			depth--
		case t.is("]"):
			if depth == 0 {
				return names
			}
			depth--
		case depth == 0 && t.is(","):
			expect = true
		case depth == 0 && expect && t.kind == tokIdent:
			names = append(names, p.resolve(t.text))
			expect = false
		}
	}
	return names
}

var docTag = regexp.MustCompile(`@(\\?[A-Z][A-Za-z0-9_]*(?:\\[A-Za-z_][A-Za-z0-9_]*)*)`)

func (p *parser) annotations(doc string, attrs []string) []string {
	names := append([]string(nil), attrs...)
	for _, m := range docTag.FindAllStringSubmatch(doc, -1) {
		names = append(names, p.resolve(m[1]))
	}
	return names
}

// skipValue skips a property default or hook. It reports whether another
// declaration of the same statement follows.
func (p *parser) skipValue() bool {
	depth := 0
	for !p.eof() {
		t := p.next()
		switch {
		case t.is("(", "["):
			depth++
		case t.is(")", "]"):
			depth--
		case t.is("{") && depth == 0:
			p.skipBlock()
			return false
		case t.is(",") && depth == 0:
			return true
		case t.is(";") && depth == 0:
			return false
		}
	}
	return false
}

// skipMember skips a method signature tail and body.
func (p *parser) skipMember() {
	depth := 0
	for !p.eof() {
		t := p.next()
		switch {
		case t.is("(", "["):
			depth++
		case t.is(")", "]"):
			depth--
		case t.is(";") && depth == 0:
			return
		case t.is("{") && depth == 0:
			p.skipBlock()
			return
		}
	}
}

// function skips a top-level function or closure.
func (p *parser) function() {
	p.skipMember()
}

func (p *parser) skipStatement() {
	depth := 0
	for !p.eof() {
		t := p.next()
		switch {
		case t.is("(", "[", "{"):
			depth++
		case t.is(")", "]", "}"):
			depth--
		case t.is(";") && depth <= 0:
			return
		}
	}
}

// skipBlock skips to the brace closing an already consumed opening one.
func (p *parser) skipBlock() {
	depth := 1
	for !p.eof() {
		t := p.next()
		switch {
		case t.is("{"):
			depth++
		case t.is("}"):
			depth--
			if depth == 0 {
				return
			}
		}
	}
}
