package executor

import (
	plan "github.com/michael-watson/federation/internal/plan"
)

// updateInputRewrites advances the active input rewrites past one step of the
// selection-set walk (a field response-name or a "... on T" fragment step).
// It returns the rewrites that continue below this step, plus the rewrite
// that terminates exactly here, if any (a complete rewrite: the field value
// is replaced wholesale).
func updateInputRewrites(rewrites []plan.InputRewrite, step string) (remaining []plan.InputRewrite, complete *plan.InputRewrite) {
	for _, rw := range rewrites {
		if len(rw.Path) == 0 || rw.Path[0] != step {
			continue
		}
		rest := rw.Path[1:]
		if len(rest) == 0 {
			done := rw
			complete = &done
			continue
		}
		remaining = append(remaining, plan.InputRewrite{Path: rest, SetValueTo: rw.SetValueTo})
	}
	return remaining, complete
}

// applyOutputRewrites walks every rewrite path through data and moves the
// terminal key to its new name. "... on T" steps filter to nodes whose
// __typename matches; field steps descend through mappings and map across
// arrays.
func applyOutputRewrites(data map[string]any, rewrites []plan.OutputRewrite) {
	for _, rw := range rewrites {
		applyKeyRename(data, rw.Path, rw.RenameKeyTo)
	}
}

func applyKeyRename(value any, path []string, renameTo string) {
	if len(path) == 0 || value == nil {
		return
	}
	switch v := value.(type) {
	case []any:
		for _, elem := range v {
			applyKeyRename(elem, path, renameTo)
		}
	case map[string]any:
		step := path[0]
		if condition, ok := plan.TypeConditionFromStep(step); ok {
			typename, _ := v[typenameField].(string)
			if typename == condition && len(path) > 1 {
				applyKeyRename(v, path[1:], renameTo)
			}
			// A type-conditional step selects every matching node in the
			// subtree, not only the node it starts from.
			for _, child := range v {
				applyKeyRename(child, path, renameTo)
			}
			return
		}
		if len(path) == 1 {
			if moved, ok := v[step]; ok {
				v[renameTo] = moved
				delete(v, step)
			}
			return
		}
		applyKeyRename(v[step], path[1:], renameTo)
	}
}

// filterOutputRewritesForType scopes output rewrites to one returned entity:
// a leading "... on T" step must match the representation's typename and is
// stripped; non-matching rewrites are dropped. Rewrites without a leading
// fragment step apply to every entity.
func filterOutputRewritesForType(rewrites []plan.OutputRewrite, typename string) []plan.OutputRewrite {
	if len(rewrites) == 0 {
		return nil
	}
	out := make([]plan.OutputRewrite, 0, len(rewrites))
	for _, rw := range rewrites {
		if len(rw.Path) == 0 {
			continue
		}
		condition, ok := plan.TypeConditionFromStep(rw.Path[0])
		if !ok {
			out = append(out, rw)
			continue
		}
		if condition != typename || len(rw.Path) == 1 {
			continue
		}
		out = append(out, plan.OutputRewrite{Path: rw.Path[1:], RenameKeyTo: rw.RenameKeyTo})
	}
	return out
}
