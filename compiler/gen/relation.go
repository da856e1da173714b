package gen

import (
	"github.com/syssam/traitgen/schema/edge"
	"github.com/syssam/traitgen/schema/field"
)

// Verb is the prefix of an accessor name.
type Verb string

// Accessor verbs.
const (
	VerbGet    Verb = "get"
	VerbSet    Verb = "set"
	VerbAdd    Verb = "add"
	VerbRemove Verb = "remove"
)

// Role is the part a generated method plays.
type Role uint8

// Method roles.
const (
	RoleGetter Role = iota
	RoleSetter
	RoleAdder
	RoleRemover
	RoleInitializer
	RoleConstructor
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleGetter:
		return "getter"
	case RoleSetter:
		return "setter"
	case RoleAdder:
		return "adder"
	case RoleRemover:
		return "remover"
	case RoleInitializer:
		return "initializer"
	case RoleConstructor:
		return "constructor"
	}
	return "unknown"
}

// MethodCandidate is a method the generator may emit.
type MethodCandidate struct {
	Name     string
	Role     Role
	Type     string
	Optional bool
	Template TemplateID
	Params   Params
}

// fieldCandidates returns the getter and setter of a scalar field.
func (p *classPass) fieldCandidates(f *field.Descriptor) ([]MethodCandidate, error) {
	get, err := p.res.getter(f)
	if err != nil {
		return nil, err
	}
	set, err := p.res.field(f)
	if err != nil {
		return nil, err
	}
	d := p.g.dialect
	candidate := func(verb Verb, role Role, id TemplateID, r Resolution) MethodCandidate {
		typ := d.FieldType(r.Type, r.Optional)
		name := d.MethodName(verb, f.Name)
		return MethodCandidate{
			Name:     name,
			Role:     role,
			Type:     typ,
			Optional: r.Optional,
			Template: id,
			Params: Params{
				"method":       name,
				"fieldName":    f.Name,
				"type":         typ,
				"optional":     r.Optional,
				"declaredType": r.Type.String(),
			},
		}
	}
	return []MethodCandidate{
		candidate(VerbGet, RoleGetter, TemplateFieldGetter, get),
		candidate(VerbSet, RoleSetter, TemplateFieldSetter, set),
	}, nil
}

// relationCandidates returns the accessors of an association in emission
// order: get, then set or add, then remove.
func (p *classPass) relationCandidates(a *edge.Descriptor) ([]MethodCandidate, error) {
	switch a.Kind {
	case edge.O2O, edge.M2O:
		return p.singular(a), nil
	case edge.O2M:
		return p.plural(a, TemplateOneToManyGet, TemplateOneToManyAdd, TemplateOneToManyRemove), nil
	case edge.M2M:
		return p.plural(a, TemplateManyToManyGet, TemplateManyToManyAdd, TemplateManyToManyRemove), nil
	}
	return nil, NewRelationshipError(p.class.Name, a.Name, a.Kind)
}

func (p *classPass) singular(a *edge.Descriptor) []MethodCandidate {
	d := p.g.dialect
	optional := p.res.relation(a.Name, a.JoinIsNullable())
	typ := d.ClassType(a.Target, optional)
	params := Params{
		"fieldName":       a.Name,
		"targetEntity":    d.ClassType(a.Target, false),
		"targetShortName": a.TargetShortName(),
		"type":            typ,
		"optional":        optional,
	}
	get := d.MethodName(VerbGet, a.Name)
	set := d.MethodName(VerbSet, a.Name)
	return []MethodCandidate{
		{Name: get, Role: RoleGetter, Type: typ, Optional: optional, Template: TemplateOneGet, Params: params.merge(Params{"method": get})},
		{Name: set, Role: RoleSetter, Type: typ, Optional: optional, Template: TemplateOneSet, Params: params.merge(Params{"method": set})},
	}
}

func (p *classPass) plural(a *edge.Descriptor, getID, addID, removeID TemplateID) []MethodCandidate {
	d := p.g.dialect
	singular := p.g.cfg.Singularize(a.Name)
	var inverseSingular string
	if a.Inverse != "" {
		inverseSingular = p.g.cfg.Singularize(a.Inverse)
	}
	target := d.ClassType(a.Target, false)
	collection := d.CollectionType(a.Target)
	p.collections = append(p.collections, Collection{Field: a.Name, Target: target, Type: collection})

	argName := singular
	if argName == "" {
		argName = "element"
	}
	params := Params{
		"fieldName":         a.Name,
		"targetEntity":      target,
		"targetShortName":   a.TargetShortName(),
		"collectionType":    collection,
		"fieldNameSingular": singular,
		"argName":           argName,
		"mappedBy":          a.Inverse,
		"mappedBySingular":  inverseSingular,
		"owning":            a.Owning,
	}
	if a.Inverse != "" {
		params["inverseGetter"] = d.MethodName(VerbGet, a.Inverse)
		params["inverseSetter"] = d.MethodName(VerbSet, a.Inverse)
		params["inverseAdder"] = d.MethodName(VerbAdd, inverseSingular)
		params["inverseRemover"] = d.MethodName(VerbRemove, inverseSingular)
	}
	get := d.MethodName(VerbGet, a.Name)
	add := d.MethodName(VerbAdd, singular)
	remove := d.MethodName(VerbRemove, singular)
	return []MethodCandidate{
		{Name: get, Role: RoleGetter, Type: collection, Template: getID, Params: params.merge(Params{"method": get, "type": collection})},
		{Name: add, Role: RoleAdder, Type: target, Template: addID, Params: params.merge(Params{"method": add, "type": target})},
		{Name: remove, Role: RoleRemover, Type: target, Template: removeID, Params: params.merge(Params{"method": remove, "type": target})},
	}
}
