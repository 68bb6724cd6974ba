package schema

import (
	"fmt"

	language "github.com/michael-watson/federation/internal/language"
	"github.com/vektah/gqlparser/v2/ast"
)

// BuildFromSDL parses an SDL document and builds a Schema from it. The SDL is
// expected to be composed already; no validation beyond structural checks is
// performed here.
func BuildFromSDL(name, sdl string) (*Schema, error) {
	doc, err := language.ParseSchema(name, sdl)
	if err != nil {
		return nil, fmt.Errorf("parse schema %q: %w", name, err)
	}
	return BuildFromDocument(doc)
}

// BuildFromDocument builds a Schema from a parsed SDL document.
func BuildFromDocument(doc *language.SchemaDocument) (*Schema, error) {
	s := &Schema{
		Types:      make(map[string]*Type),
		Directives: make(map[string]*Directive),
	}
	addBuiltinTypes(s)

	// Document order decides the order of fields, union members and
	// possible types throughout.
	var order []string
	for _, def := range doc.Definitions {
		t, err := buildType(def)
		if err != nil {
			return nil, err
		}
		s.Types[t.Name] = t
		order = append(order, t.Name)
	}
	for _, ext := range doc.Extensions {
		base := s.Types[ext.Name]
		if base == nil {
			t, err := buildType(ext)
			if err != nil {
				return nil, err
			}
			s.Types[t.Name] = t
			order = append(order, t.Name)
			continue
		}
		if err := extendType(base, ext); err != nil {
			return nil, err
		}
	}
	for _, dd := range doc.Directives {
		s.Directives[dd.Name] = buildDirective(dd)
	}

	applyRootTypes(s, doc)
	computePossibleTypes(s, order)
	return s, nil
}

func applyRootTypes(s *Schema, doc *language.SchemaDocument) {
	// Explicit schema { query: ... } declarations win over the default names.
	decls := append(append([]*ast.SchemaDefinition{}, doc.Schema...), doc.SchemaExtension...)
	for _, sd := range decls {
		if sd.Description != "" {
			s.Description = sd.Description
		}
		for _, ot := range sd.OperationTypes {
			switch ot.Operation {
			case ast.Query:
				s.QueryType = ot.Type
			case ast.Mutation:
				s.MutationType = ot.Type
			case ast.Subscription:
				s.SubscriptionType = ot.Type
			}
		}
	}
	if s.QueryType == "" && s.Types["Query"] != nil {
		s.QueryType = "Query"
	}
	if s.MutationType == "" && s.Types["Mutation"] != nil {
		s.MutationType = "Mutation"
	}
	if s.SubscriptionType == "" && s.Types["Subscription"] != nil {
		s.SubscriptionType = "Subscription"
	}
}

func computePossibleTypes(s *Schema, order []string) {
	for _, name := range order {
		t := s.Types[name]
		if t == nil || t.Kind != TypeKindObject {
			continue
		}
		for _, ifaceName := range t.Interfaces {
			iface := s.Types[ifaceName]
			if iface == nil {
				continue
			}
			iface.PossibleTypes = append(iface.PossibleTypes, t.Name)
		}
	}
}

func buildType(def *language.Definition) (*Type, error) {
	t := &Type{Name: def.Name, Description: def.Description}
	switch def.Kind {
	case language.Scalar:
		t.Kind = TypeKindScalar
		if d := def.Directives.ForName("specifiedBy"); d != nil {
			if arg := d.Arguments.ForName("url"); arg != nil && arg.Value != nil {
				url := arg.Value.Raw
				t.SpecifiedByURL = &url
			}
		}
	case language.Object:
		t.Kind = TypeKindObject
	case language.Interface:
		t.Kind = TypeKindInterface
	case language.Union:
		t.Kind = TypeKindUnion
		t.PossibleTypes = append(t.PossibleTypes, def.Types...)
	case language.Enum:
		t.Kind = TypeKindEnum
		for _, ev := range def.EnumValues {
			value := &EnumValue{Name: ev.Name, Description: ev.Description}
			value.IsDeprecated, value.DeprecationReason = deprecation(ev.Directives)
			t.EnumValues = append(t.EnumValues, value)
		}
	case language.InputObject:
		t.Kind = TypeKindInputObject
		for _, f := range def.Fields {
			t.InputFields = append(t.InputFields, buildInputValue(f.Name, f.Description, f.Type, f.DefaultValue, f.Directives))
		}
		if def.Directives.ForName("oneOf") != nil {
			t.OneOf = true
		}
	default:
		return nil, fmt.Errorf("unsupported definition kind %q for type %q", def.Kind, def.Name)
	}

	if t.Kind == TypeKindObject || t.Kind == TypeKindInterface {
		t.Interfaces = append(t.Interfaces, def.Interfaces...)
		for _, f := range def.Fields {
			t.Fields = append(t.Fields, buildField(f))
		}
	}
	return t, nil
}

func extendType(base *Type, ext *language.Definition) error {
	extT, err := buildType(ext)
	if err != nil {
		return err
	}
	if extT.Kind != base.Kind {
		return fmt.Errorf("extension of %q changes kind from %s to %s", base.Name, base.Kind, extT.Kind)
	}
	base.Fields = append(base.Fields, extT.Fields...)
	base.Interfaces = append(base.Interfaces, extT.Interfaces...)
	base.PossibleTypes = append(base.PossibleTypes, extT.PossibleTypes...)
	base.EnumValues = append(base.EnumValues, extT.EnumValues...)
	base.InputFields = append(base.InputFields, extT.InputFields...)
	return nil
}

func buildField(f *ast.FieldDefinition) *Field {
	field := &Field{
		Name:        f.Name,
		Description: f.Description,
		Type:        typeRefFromAST(f.Type),
	}
	for _, arg := range f.Arguments {
		field.Arguments = append(field.Arguments, buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives))
	}
	field.IsDeprecated, field.DeprecationReason = deprecation(f.Directives)
	return field
}

func buildInputValue(name, description string, typ *language.Type, defaultValue *language.Value, directives language.DirectiveList) *InputValue {
	iv := &InputValue{Name: name, Description: description, Type: typeRefFromAST(typ)}
	if defaultValue != nil {
		v := defaultValue.String()
		iv.DefaultValue = &v
	}
	iv.IsDeprecated, iv.DeprecationReason = deprecation(directives)
	return iv
}

func buildDirective(dd *ast.DirectiveDefinition) *Directive {
	d := &Directive{
		Name:         dd.Name,
		Description:  dd.Description,
		IsRepeatable: dd.IsRepeatable,
	}
	for _, loc := range dd.Locations {
		d.Locations = append(d.Locations, string(loc))
	}
	for _, arg := range dd.Arguments {
		d.Arguments = append(d.Arguments, buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, nil))
	}
	return d
}

func deprecation(directives language.DirectiveList) (bool, string) {
	d := directives.ForName("deprecated")
	if d == nil {
		return false, ""
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return true, arg.Value.Raw
	}
	return true, "No longer supported"
}

func typeRefFromAST(t *language.Type) *TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		return NonNullType(typeRefFromAST(&language.Type{NamedType: t.NamedType, Elem: t.Elem}))
	}
	if t.NamedType != "" {
		return NamedType(t.NamedType)
	}
	return ListType(typeRefFromAST(t.Elem))
}
