package gen

// TemplateID names a dialect template.
type TemplateID string

// Template identifiers. Association templates are shared by relation kinds
// with the same accessor set.
const (
	TemplateTop               TemplateID = "top"
	TemplateBottom            TemplateID = "bottom"
	TemplateFieldGetter       TemplateID = "field/getter"
	TemplateFieldSetter       TemplateID = "field/setter"
	TemplateOneGet            TemplateID = "association/manyToOne/get"
	TemplateOneSet            TemplateID = "association/manyToOne/set"
	TemplateOneToManyGet      TemplateID = "association/oneToMany/get"
	TemplateOneToManyAdd      TemplateID = "association/oneToMany/add"
	TemplateOneToManyRemove   TemplateID = "association/oneToMany/remove"
	TemplateManyToManyGet     TemplateID = "association/manyToMany/get"
	TemplateManyToManyAdd     TemplateID = "association/manyToMany/add"
	TemplateManyToManyRemove  TemplateID = "association/manyToMany/remove"
	TemplateDoctrineConstruct TemplateID = "doctrineConstruct"
	TemplateConstruct         TemplateID = "construct"
)

// TemplateIDs lists every template a dialect must provide.
var TemplateIDs = []TemplateID{
	TemplateTop,
	TemplateBottom,
	TemplateFieldGetter,
	TemplateFieldSetter,
	TemplateOneGet,
	TemplateOneSet,
	TemplateOneToManyGet,
	TemplateOneToManyAdd,
	TemplateOneToManyRemove,
	TemplateManyToManyGet,
	TemplateManyToManyAdd,
	TemplateManyToManyRemove,
	TemplateDoctrineConstruct,
	TemplateConstruct,
}

// Params is the flat parameter map handed to a template.
//
// Keys set by the generator:
//
//	namespace, className, shortName, traitName   every template
//	visibility, method, fieldName                 accessors
//	type, optional                                typed accessors
//	targetEntity, targetShortName                 associations
//	collectionType                                collection getters
//	fieldNameSingular, argName                    add/remove
//	mappedBy, mappedBySingular                    add/remove
//	collections, hasParent                        constructors
type Params map[string]any

// Collection is a collection-valued field listed in the initializer.
type Collection struct {
	Field  string
	Target string
	Type   string
}

// merge returns a copy of p with the entries of o.
func (p Params) merge(o Params) Params {
	m := make(Params, len(p)+len(o))
	for k, v := range p {
		m[k] = v
	}
	for k, v := range o {
		m[k] = v
	}
	return m
}
