package executor

import (
	"context"
	"fmt"

	language "github.com/michael-watson/federation/internal/language"
	schema "github.com/michael-watson/federation/internal/schema"
)

// IntrospectionHandler resolves an introspection field (__schema, __type)
// against the API schema. The executor never resolves introspection itself.
// Fragments from the operation document are passed through so that
// fragment-heavy introspection queries resolve.
type IntrospectionHandler func(ctx context.Context, field *language.Field, fragments language.FragmentDefinitionList, variables map[string]any) (any, error)

// shaper walks the client operation over the merged unfiltered tree,
// producing the user-visible data. It records its own error list; the
// orchestrator decides whether those errors survive.
type shaper struct {
	ctx           context.Context
	opCtx         *OperationContext
	schema        *schema.Schema
	variables     map[string]any
	introspection IntrospectionHandler
	errors        []GraphQLError
}

func (s *shaper) addError(message string, path Path) {
	s.errors = append(s.errors, GraphQLError{Message: message, Path: path})
}

func (s *shaper) shapeSelectionSet(selections language.SelectionSet, typeName string, source any, path Path) map[string]any {
	if source == nil {
		return nil
	}
	src, ok := source.(map[string]any)
	if !ok {
		s.addError(fmt.Sprintf("expected an object for type %q", typeName), path)
		return nil
	}
	out := make(map[string]any)
	s.collectInto(out, selections, typeName, src, path)
	return out
}

func (s *shaper) collectInto(out map[string]any, selections language.SelectionSet, typeName string, src map[string]any, path Path) {
	for _, sel := range selections {
		switch f := sel.(type) {
		case *language.Field:
			if !s.includeByDirectives(f.Directives) {
				continue
			}
			s.shapeField(out, f, typeName, src, path)

		case *language.InlineFragment:
			if !s.includeByDirectives(f.Directives) {
				continue
			}
			if f.TypeCondition == "" {
				s.collectInto(out, f.SelectionSet, typeName, src, path)
				continue
			}
			if s.fragmentMatches(f.TypeCondition, typeName, src) {
				s.collectInto(out, f.SelectionSet, f.TypeCondition, src, path)
			}

		case *language.FragmentSpread:
			if !s.includeByDirectives(f.Directives) {
				continue
			}
			frag := s.opCtx.Fragment(f.Name)
			if frag == nil {
				s.addError(fmt.Sprintf("unknown fragment %q", f.Name), path)
				continue
			}
			if frag.TypeCondition == "" {
				s.collectInto(out, frag.SelectionSet, typeName, src, path)
				continue
			}
			if s.fragmentMatches(frag.TypeCondition, typeName, src) {
				s.collectInto(out, frag.SelectionSet, frag.TypeCondition, src, path)
			}
		}
	}
}

func (s *shaper) shapeField(out map[string]any, f *language.Field, typeName string, src map[string]any, path Path) {
	responseName := language.ResponseName(f)
	fieldPath := path.Append(responseName)

	if f.Name == typenameField {
		out[responseName] = s.concreteTypeName(typeName, src)
		return
	}
	if typeName == s.schema.QueryType && (f.Name == "__schema" || f.Name == "__type") {
		s.resolveIntrospection(out, responseName, f, fieldPath)
		return
	}

	typeDef := s.schema.Types[typeName]
	var fieldDef *schema.Field
	if typeDef != nil {
		fieldDef = typeDef.GetField(f.Name)
	}
	if fieldDef == nil {
		s.addError(fmt.Sprintf("cannot query field %q on type %q", f.Name, typeName), fieldPath)
		return
	}

	value, present := src[responseName]
	if !present {
		s.addError(fmt.Sprintf("field %q on type %q is missing from the merged response", responseName, typeName), fieldPath)
		out[responseName] = nil
		return
	}
	out[responseName] = s.shapeValue(value, f.SelectionSet, fieldDef.Type.GetNamedType(), fieldPath)
}

func (s *shaper) shapeValue(value any, selections language.SelectionSet, typeName string, path Path) any {
	if value == nil {
		return nil
	}
	if arr, ok := value.([]any); ok {
		shaped := make([]any, len(arr))
		for i, elem := range arr {
			shaped[i] = s.shapeValue(elem, selections, typeName, path.Append(i))
		}
		return shaped
	}
	if len(selections) == 0 {
		return value
	}
	node, ok := value.(map[string]any)
	if !ok {
		s.addError(fmt.Sprintf("expected an object for type %q", typeName), path)
		return nil
	}
	runtime := typeName
	if tn, ok := node[typenameField].(string); ok && tn != "" && s.schema.IsAbstract(typeName) {
		runtime = tn
	}
	out := make(map[string]any)
	s.collectInto(out, selections, runtime, node, path)
	return out
}

func (s *shaper) resolveIntrospection(out map[string]any, responseName string, f *language.Field, path Path) {
	if s.introspection == nil {
		s.addError("introspection is not enabled", path)
		out[responseName] = nil
		return
	}
	var fragments language.FragmentDefinitionList
	if s.opCtx.Document != nil {
		fragments = s.opCtx.Document.Fragments
	}
	value, err := s.introspection(s.ctx, f, fragments, s.variables)
	if err != nil {
		s.addError(err.Error(), path)
		out[responseName] = nil
		return
	}
	out[responseName] = value
}

// fragmentMatches decides whether a type condition applies to the value being
// shaped. The runtime type comes from __typename when the merged tree has
// one; otherwise the static parent type stands in.
func (s *shaper) fragmentMatches(condition, typeName string, src map[string]any) bool {
	runtime := typeName
	if tn, ok := src[typenameField].(string); ok && tn != "" {
		runtime = tn
	}
	if condition == runtime || condition == typeName {
		return true
	}
	if s.schema.IsAbstract(condition) {
		return s.schema.IsPossibleType(condition, runtime)
	}
	return false
}

func (s *shaper) concreteTypeName(typeName string, src map[string]any) string {
	if tn, ok := src[typenameField].(string); ok && tn != "" {
		return tn
	}
	return typeName
}

// includeByDirectives evaluates @skip and @include against the operation
// variables.
func (s *shaper) includeByDirectives(directives language.DirectiveList) bool {
	if skip := directives.ForName("skip"); skip != nil {
		if v, ok := s.directiveIfValue(skip); ok && v {
			return false
		}
	}
	if include := directives.ForName("include"); include != nil {
		if v, ok := s.directiveIfValue(include); ok && !v {
			return false
		}
	}
	return true
}

func (s *shaper) directiveIfValue(d *language.Directive) (bool, bool) {
	arg := d.Arguments.ForName("if")
	if arg == nil || arg.Value == nil {
		return false, false
	}
	switch arg.Value.Kind {
	case language.BooleanValue:
		return arg.Value.Raw == "true", true
	case language.Variable:
		if v, ok := s.variables[arg.Value.Raw].(bool); ok {
			return v, true
		}
	}
	return false, false
}
