// Package introspection resolves __schema and __type selections against the
// API schema. The executor's post-processor delegates here; the executor
// itself never evaluates introspection.
package introspection

import (
	"context"
	"fmt"

	executor "github.com/michael-watson/federation/internal/executor"
	language "github.com/michael-watson/federation/internal/language"
	schema "github.com/michael-watson/federation/internal/schema"
)

// NewHandler builds an executor.IntrospectionHandler over the given API
// schema.
func NewHandler(sch *schema.Schema) executor.IntrospectionHandler {
	return func(_ context.Context, field *language.Field, fragments language.FragmentDefinitionList, variables map[string]any) (any, error) {
		r := &resolver{schema: sch, fragments: fragments, variables: variables}
		switch field.Name {
		case "__schema":
			return r.resolveSchema(field.SelectionSet)
		case "__type":
			name, _ := r.argumentValue(field.Arguments, "name").(string)
			if name == "" {
				return nil, fmt.Errorf(`__type requires a "name" argument`)
			}
			t := r.schema.Types[name]
			if t == nil {
				return nil, nil
			}
			return r.resolveType(t, field.SelectionSet)
		default:
			return nil, fmt.Errorf("unsupported introspection field %q", field.Name)
		}
	}
}

type resolver struct {
	schema    *schema.Schema
	fragments language.FragmentDefinitionList
	variables map[string]any
}

// fieldResolver resolves one field of an introspection object.
type fieldResolver func(f *language.Field) (any, error)

// collect walks a selection set, expanding fragments, and resolves each
// field through resolve. typeName is the introspection type being resolved,
// used to match fragment type conditions.
func (r *resolver) collect(sels language.SelectionSet, typeName string, resolve fieldResolver) (map[string]any, error) {
	out := make(map[string]any)
	if err := r.collectInto(out, sels, typeName, resolve); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *resolver) collectInto(out map[string]any, sels language.SelectionSet, typeName string, resolve fieldResolver) error {
	for _, sel := range sels {
		switch s := sel.(type) {
		case *language.Field:
			responseName := language.ResponseName(s)
			if s.Name == "__typename" {
				out[responseName] = typeName
				continue
			}
			value, err := resolve(s)
			if err != nil {
				return err
			}
			out[responseName] = value
		case *language.InlineFragment:
			if s.TypeCondition != "" && s.TypeCondition != typeName {
				continue
			}
			if err := r.collectInto(out, s.SelectionSet, typeName, resolve); err != nil {
				return err
			}
		case *language.FragmentSpread:
			frag := r.fragments.ForName(s.Name)
			if frag == nil {
				return fmt.Errorf("unknown fragment %q", s.Name)
			}
			if frag.TypeCondition != "" && frag.TypeCondition != typeName {
				continue
			}
			if err := r.collectInto(out, frag.SelectionSet, typeName, resolve); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *resolver) resolveSchema(sels language.SelectionSet) (any, error) {
	return r.collect(sels, "__Schema", func(f *language.Field) (any, error) {
		switch f.Name {
		case "description":
			return stringOrNil(r.schema.Description), nil
		case "queryType":
			return r.resolveNamed(r.schema.QueryType, f.SelectionSet)
		case "mutationType":
			return r.resolveNamed(r.schema.MutationType, f.SelectionSet)
		case "subscriptionType":
			return r.resolveNamed(r.schema.SubscriptionType, f.SelectionSet)
		case "types":
			names := sortedTypeNames(r.schema)
			out := make([]any, 0, len(names))
			for _, name := range names {
				v, err := r.resolveType(r.schema.Types[name], f.SelectionSet)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			return out, nil
		case "directives":
			names := sortedDirectiveNames(r.schema)
			out := make([]any, 0, len(names))
			for _, name := range names {
				v, err := r.resolveDirective(r.schema.Directives[name], f.SelectionSet)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			return out, nil
		default:
			return nil, fmt.Errorf("cannot query field %q on type __Schema", f.Name)
		}
	})
}

func (r *resolver) resolveNamed(name string, sels language.SelectionSet) (any, error) {
	if name == "" {
		return nil, nil
	}
	t := r.schema.Types[name]
	if t == nil {
		return nil, nil
	}
	return r.resolveType(t, sels)
}

// resolveType resolves a __Type value for a named type.
func (r *resolver) resolveType(t *schema.Type, sels language.SelectionSet) (any, error) {
	return r.collect(sels, "__Type", func(f *language.Field) (any, error) {
		switch f.Name {
		case "kind":
			return string(t.Kind), nil
		case "name":
			return t.Name, nil
		case "description":
			return stringOrNil(t.Description), nil
		case "specifiedByURL":
			if t.SpecifiedByURL == nil {
				return nil, nil
			}
			return *t.SpecifiedByURL, nil
		case "isOneOf":
			if t.Kind != schema.TypeKindInputObject {
				return nil, nil
			}
			return t.OneOf, nil
		case "ofType":
			return nil, nil
		case "fields":
			if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
				return nil, nil
			}
			includeDeprecated, _ := r.argumentValue(f.Arguments, "includeDeprecated").(bool)
			out := make([]any, 0, len(t.Fields))
			for _, fd := range t.Fields {
				if fd.IsDeprecated && !includeDeprecated {
					continue
				}
				v, err := r.resolveField(fd, f.SelectionSet)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			return out, nil
		case "interfaces":
			if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
				return nil, nil
			}
			out := make([]any, 0, len(t.Interfaces))
			for _, name := range t.Interfaces {
				v, err := r.resolveNamed(name, f.SelectionSet)
				if err != nil {
					return nil, err
				}
				if v != nil {
					out = append(out, v)
				}
			}
			return out, nil
		case "possibleTypes":
			if t.Kind != schema.TypeKindInterface && t.Kind != schema.TypeKindUnion {
				return nil, nil
			}
			out := make([]any, 0, len(t.PossibleTypes))
			for _, name := range t.PossibleTypes {
				v, err := r.resolveNamed(name, f.SelectionSet)
				if err != nil {
					return nil, err
				}
				if v != nil {
					out = append(out, v)
				}
			}
			return out, nil
		case "enumValues":
			if t.Kind != schema.TypeKindEnum {
				return nil, nil
			}
			includeDeprecated, _ := r.argumentValue(f.Arguments, "includeDeprecated").(bool)
			out := make([]any, 0, len(t.EnumValues))
			for _, ev := range t.EnumValues {
				if ev.IsDeprecated && !includeDeprecated {
					continue
				}
				v, err := r.resolveEnumValue(ev, f.SelectionSet)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			return out, nil
		case "inputFields":
			if t.Kind != schema.TypeKindInputObject {
				return nil, nil
			}
			includeDeprecated, _ := r.argumentValue(f.Arguments, "includeDeprecated").(bool)
			out := make([]any, 0, len(t.InputFields))
			for _, iv := range t.InputFields {
				if iv.IsDeprecated && !includeDeprecated {
					continue
				}
				v, err := r.resolveInputValue(iv, f.SelectionSet)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			return out, nil
		default:
			return nil, fmt.Errorf("cannot query field %q on type __Type", f.Name)
		}
	})
}

// resolveTypeRef resolves a __Type value for a (possibly wrapped) type
// reference. NON_NULL and LIST wrappers expose kind and ofType only; a named
// reference resolves the underlying type.
func (r *resolver) resolveTypeRef(ref *schema.TypeRef, sels language.SelectionSet) (any, error) {
	if ref == nil {
		return nil, nil
	}
	if ref.Kind == schema.TypeRefKindNamed {
		return r.resolveNamed(ref.Named, sels)
	}
	return r.collect(sels, "__Type", func(f *language.Field) (any, error) {
		switch f.Name {
		case "kind":
			return string(ref.Kind), nil
		case "ofType":
			return r.resolveTypeRef(ref.OfType, f.SelectionSet)
		case "name", "description", "specifiedByURL", "isOneOf",
			"fields", "interfaces", "possibleTypes", "enumValues", "inputFields":
			return nil, nil
		default:
			return nil, fmt.Errorf("cannot query field %q on type __Type", f.Name)
		}
	})
}

func (r *resolver) resolveField(fd *schema.Field, sels language.SelectionSet) (any, error) {
	return r.collect(sels, "__Field", func(f *language.Field) (any, error) {
		switch f.Name {
		case "name":
			return fd.Name, nil
		case "description":
			return stringOrNil(fd.Description), nil
		case "args":
			includeDeprecated, _ := r.argumentValue(f.Arguments, "includeDeprecated").(bool)
			out := make([]any, 0, len(fd.Arguments))
			for _, arg := range fd.Arguments {
				if arg.IsDeprecated && !includeDeprecated {
					continue
				}
				v, err := r.resolveInputValue(arg, f.SelectionSet)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			return out, nil
		case "type":
			return r.resolveTypeRef(fd.Type, f.SelectionSet)
		case "isDeprecated":
			return fd.IsDeprecated, nil
		case "deprecationReason":
			return stringOrNil(fd.DeprecationReason), nil
		default:
			return nil, fmt.Errorf("cannot query field %q on type __Field", f.Name)
		}
	})
}

func (r *resolver) resolveInputValue(iv *schema.InputValue, sels language.SelectionSet) (any, error) {
	return r.collect(sels, "__InputValue", func(f *language.Field) (any, error) {
		switch f.Name {
		case "name":
			return iv.Name, nil
		case "description":
			return stringOrNil(iv.Description), nil
		case "type":
			return r.resolveTypeRef(iv.Type, f.SelectionSet)
		case "defaultValue":
			if iv.DefaultValue == nil {
				return nil, nil
			}
			return *iv.DefaultValue, nil
		case "isDeprecated":
			return iv.IsDeprecated, nil
		case "deprecationReason":
			return stringOrNil(iv.DeprecationReason), nil
		default:
			return nil, fmt.Errorf("cannot query field %q on type __InputValue", f.Name)
		}
	})
}

func (r *resolver) resolveEnumValue(ev *schema.EnumValue, sels language.SelectionSet) (any, error) {
	return r.collect(sels, "__EnumValue", func(f *language.Field) (any, error) {
		switch f.Name {
		case "name":
			return ev.Name, nil
		case "description":
			return stringOrNil(ev.Description), nil
		case "isDeprecated":
			return ev.IsDeprecated, nil
		case "deprecationReason":
			return stringOrNil(ev.DeprecationReason), nil
		default:
			return nil, fmt.Errorf("cannot query field %q on type __EnumValue", f.Name)
		}
	})
}

func (r *resolver) resolveDirective(d *schema.Directive, sels language.SelectionSet) (any, error) {
	return r.collect(sels, "__Directive", func(f *language.Field) (any, error) {
		switch f.Name {
		case "name":
			return d.Name, nil
		case "description":
			return stringOrNil(d.Description), nil
		case "locations":
			out := make([]any, 0, len(d.Locations))
			for _, loc := range d.Locations {
				out = append(out, loc)
			}
			return out, nil
		case "args":
			out := make([]any, 0, len(d.Arguments))
			for _, arg := range d.Arguments {
				v, err := r.resolveInputValue(arg, f.SelectionSet)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			return out, nil
		case "isRepeatable":
			return d.IsRepeatable, nil
		default:
			return nil, fmt.Errorf("cannot query field %q on type __Directive", f.Name)
		}
	})
}

// argumentValue evaluates one field argument, resolving variables.
func (r *resolver) argumentValue(args language.ArgumentList, name string) any {
	arg := args.ForName(name)
	if arg == nil || arg.Value == nil {
		return nil
	}
	switch arg.Value.Kind {
	case language.Variable:
		return r.variables[arg.Value.Raw]
	case language.BooleanValue:
		return arg.Value.Raw == "true"
	default:
		return arg.Value.Raw
	}
}

func stringOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
