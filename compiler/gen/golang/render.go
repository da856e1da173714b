package golang

import (
	"bytes"
	"fmt"
	"go/token"
	"strings"
	"unicode"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/traitgen/compiler/gen"
)

// HeaderComment opens every companion file.
const HeaderComment = "Code generated by traitgen. DO NOT EDIT."

// args reads template parameters, keeping the first missing key.
type args struct {
	id     gen.TemplateID
	params gen.Params
	err    error
}

func (a *args) str(key string) string {
	v, ok := a.params[key]
	if !ok {
		a.missing(key)
		return ""
	}
	s, _ := v.(string)
	return s
}

func (a *args) flag(key string) bool {
	b, _ := a.params[key].(bool)
	return b
}

func (a *args) collections() []gen.Collection {
	c, ok := a.params["collections"].([]gen.Collection)
	if !ok {
		a.missing("collections")
	}
	return c
}

func (a *args) missing(key string) {
	if a.err == nil {
		a.err = fmt.Errorf("golang: template %s: missing parameter %q", a.id, key)
	}
}

// receiver returns the receiver name of a type: its lower-cased initial.
func receiver(short string) string {
	for _, r := range short {
		return string(unicode.ToLower(r))
	}
	return "e"
}

// argument returns a parameter name that is neither a keyword nor the
// receiver.
func argument(name, recv string) string {
	if name == "" || name == recv || token.IsKeyword(name) {
		return "v"
	}
	return name
}

type renderFunc func(a *args) jen.Code

var renderers = map[gen.TemplateID]renderFunc{
	gen.TemplateFieldGetter:       getter,
	gen.TemplateFieldSetter:       setter,
	gen.TemplateOneGet:            getter,
	gen.TemplateOneSet:            setter,
	gen.TemplateOneToManyGet:      getter,
	gen.TemplateOneToManyAdd:      adder,
	gen.TemplateOneToManyRemove:   oneToManyRemover,
	gen.TemplateManyToManyGet:     getter,
	gen.TemplateManyToManyAdd:     adder,
	gen.TemplateManyToManyRemove:  manyToManyRemover,
	gen.TemplateDoctrineConstruct: initializer,
	gen.TemplateConstruct:         constructor,
}

// render builds the code of id and renders it as formatted source.
func render(id gen.TemplateID, params gen.Params) (string, error) {
	a := &args{id: id, params: params}
	switch id {
	case gen.TemplateTop:
		return header(a)
	case gen.TemplateBottom:
		return "", nil
	}
	fn, ok := renderers[id]
	if !ok {
		return "", fmt.Errorf("golang: unknown template %q", id)
	}
	code := fn(a)
	if a.err != nil {
		return "", a.err
	}
	var b bytes.Buffer
	if err := jen.Add(code).Render(&b); err != nil {
		return "", fmt.Errorf("golang: rendering %s: %w", id, err)
	}
	return b.String(), nil
}

// header renders the generated-code comment and the package clause. The
// package name is derived from the namespace and corrected on finalization.
func header(a *args) (string, error) {
	ns := a.str("traitNamespace")
	if a.err != nil {
		return "", a.err
	}
	f := jen.NewFile(packageName(ns))
	f.HeaderComment(HeaderComment)
	var b bytes.Buffer
	if err := f.Render(&b); err != nil {
		return "", fmt.Errorf("golang: rendering %s: %w", a.id, err)
	}
	return b.String(), nil
}

// packageName returns the last namespace segment as a package name.
func packageName(ns string) string {
	if i := strings.LastIndex(ns, `\`); i >= 0 {
		ns = ns[i+1:]
	}
	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return unicode.ToLower(r)
		}
		return -1
	}, ns)
	if name == "" || !token.IsIdentifier(name) {
		return "main"
	}
	return name
}

// methodDecl starts a method declaration on a pointer receiver.
func methodDecl(a *args) (*jen.Statement, string) {
	short := a.str("shortName")
	recv := receiver(short)
	name := a.str("method")
	return jen.Func().Params(jen.Id(recv).Op("*").Id(short)).Id(name), recv
}

func getter(a *args) jen.Code {
	fn, recv := methodDecl(a)
	field, name := a.str("fieldName"), a.str("method")
	return jen.Commentf("%s returns the %s field.", name, field).Line().
		Add(fn).Params().Id(a.str("type")).Block(
		jen.Return(jen.Id(recv).Dot(field)),
	)
}

func setter(a *args) jen.Code {
	fn, recv := methodDecl(a)
	field, name := a.str("fieldName"), a.str("method")
	return jen.Commentf("%s sets the %s field.", name, field).Line().
		Add(fn).Params(jen.Id("v").Id(a.str("type"))).Op("*").Id(a.str("shortName")).Block(
		jen.Id(recv).Dot(field).Op("=").Id("v"),
		jen.Return(jen.Id(recv)),
	)
}

// adder appends an element once and links the inverse side.
func adder(a *args) jen.Code {
	fn, recv := methodDecl(a)
	field, name := a.str("fieldName"), a.str("method")
	arg := argument(a.str("argName"), recv)
	body := []jen.Code{
		jen.If(jen.Qual("slices", "Contains").Call(jen.Id(recv).Dot(field), jen.Id(arg))).Block(
			jen.Return(jen.Id(recv)),
		),
		jen.Id(recv).Dot(field).Op("=").Append(jen.Id(recv).Dot(field), jen.Id(arg)),
	}
	if a.str("mappedBy") != "" {
		inverse := a.str("inverseSetter")
		if a.id == gen.TemplateManyToManyAdd {
			inverse = a.str("inverseAdder")
		}
		body = append(body, jen.Id(arg).Dot(inverse).Call(jen.Id(recv)))
	}
	body = append(body, jen.Return(jen.Id(recv)))
	return jen.Commentf("%s adds an element to the %s field.", name, field).Line().
		Add(fn).Params(jen.Id(arg).Id(a.str("type"))).Op("*").Id(a.str("shortName")).Block(body...)
}

// removal deletes an element and reports through the statements of then
// when it was present.
func removal(a *args, then ...jen.Code) jen.Code {
	fn, recv := methodDecl(a)
	field, name := a.str("fieldName"), a.str("method")
	arg := argument(a.str("argName"), recv)
	body := []jen.Code{
		jen.List(jen.Id("i")).Op(":=").Qual("slices", "Index").Call(jen.Id(recv).Dot(field), jen.Id(arg)),
		jen.If(jen.Id("i").Op("<").Lit(0)).Block(jen.Return(jen.Id(recv))),
		jen.Id(recv).Dot(field).Op("=").Qual("slices", "Delete").Call(jen.Id(recv).Dot(field), jen.Id("i"), jen.Id("i").Op("+").Lit(1)),
	}
	body = append(body, then...)
	body = append(body, jen.Return(jen.Id(recv)))
	return jen.Commentf("%s removes an element from the %s field.", name, field).Line().
		Add(fn).Params(jen.Id(arg).Id(a.str("type"))).Op("*").Id(a.str("shortName")).Block(body...)
}

func oneToManyRemover(a *args) jen.Code {
	if a.str("mappedBy") == "" {
		return removal(a)
	}
	recv := receiver(a.str("shortName"))
	arg := argument(a.str("argName"), recv)
	return removal(a,
		jen.If(jen.Id(arg).Dot(a.str("inverseGetter")).Call().Op("==").Id(recv)).Block(
			jen.Id(arg).Dot(a.str("inverseSetter")).Call(jen.Nil()),
		),
	)
}

func manyToManyRemover(a *args) jen.Code {
	if a.str("mappedBy") == "" {
		return removal(a)
	}
	recv := receiver(a.str("shortName"))
	arg := argument(a.str("argName"), recv)
	return removal(a, jen.Id(arg).Dot(a.str("inverseRemover")).Call(jen.Id(recv)))
}

// initializer resets every collection field to an empty slice.
func initializer(a *args) jen.Code {
	fn, recv := methodDecl(a)
	var body []jen.Code
	for _, c := range a.collections() {
		body = append(body, jen.Id(recv).Dot(c.Field).Op("=").Id(c.Type).Values())
	}
	return jen.Add(fn).Params().Block(body...)
}

func constructor(a *args) jen.Code {
	short, name := a.str("shortName"), a.str("method")
	recv := receiver(short)
	return jen.Commentf("%s returns a %s with initialized collections.", name, short).Line().
		Func().Id(name).Params().Op("*").Id(short).Block(
		jen.Id(recv).Op(":=").Op("&").Id(short).Values(),
		jen.Id(recv).Dot(a.str("initializer")).Call(),
		jen.Return(jen.Id(recv)),
	)
}
