package executor

import (
	plan "github.com/michael-watson/federation/internal/plan"
	schema "github.com/michael-watson/federation/internal/schema"
)

const typenameField = "__typename"

// executeSelectionSet builds the representation object for one entity from
// the response tree. It returns nil when the entity cannot be used: the
// source is null, or a selected field is absent because an earlier fetch
// nullified it. Such entities are dropped from the request silently; the
// error that nullified them was already recorded.
func executeSelectionSet(sch *schema.Schema, source any, selections []plan.Selection, rewrites []plan.InputRewrite) map[string]any {
	if source == nil {
		return nil
	}
	src, ok := source.(map[string]any)
	if !ok {
		return nil
	}

	result := make(map[string]any)
	for _, sel := range selections {
		switch s := sel.(type) {
		case *plan.Field:
			responseName := s.ResponseName()
			value, present := src[responseName]
			if !present {
				return nil
			}
			remaining, complete := updateInputRewrites(rewrites, responseName)
			if complete != nil {
				result[responseName] = complete.SetValueTo
				continue
			}
			switch {
			case len(s.Selections) == 0:
				result[responseName] = value
			case value == nil:
				result[responseName] = nil
			default:
				if arr, ok := value.([]any); ok {
					mapped := make([]any, len(arr))
					for i, elem := range arr {
						if sub := executeSelectionSet(sch, elem, s.Selections, remaining); sub != nil {
							mapped[i] = sub
						}
					}
					result[responseName] = mapped
				} else if sub := executeSelectionSet(sch, value, s.Selections, remaining); sub != nil {
					result[responseName] = sub
				} else {
					result[responseName] = nil
				}
			}

		case *plan.InlineFragment:
			if s.TypeCondition == "" {
				continue
			}
			typename, _ := src[typenameField].(string)
			if typename == "" {
				continue
			}
			if !typeConditionMatches(sch, s.TypeCondition, typename) {
				continue
			}
			remaining, _ := updateInputRewrites(rewrites, plan.FragmentStep(s.TypeCondition))
			sub := executeSelectionSet(sch, src, s.Selections, remaining)
			if sub == nil {
				return nil
			}
			deepMerge(result, sub)
		}
	}
	return result
}

// typeConditionMatches applies the representation-extraction matching rule:
// exact name equality, or — when the condition names an abstract type — the
// runtime type is one of its object or interface subtypes per the supergraph
// schema. Non-abstract conditions never match subtypes.
func typeConditionMatches(sch *schema.Schema, condition, typename string) bool {
	if condition == typename {
		return true
	}
	if sch == nil || !sch.IsAbstract(condition) {
		return false
	}
	return sch.IsPossibleType(condition, typename)
}
