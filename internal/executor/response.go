package executor

// deepMerge merges source into target in place. Rules:
//
//  1. mappings combine key-recursively;
//  2. arrays of equal length combine element-wise by index;
//  3. for scalars the later value wins;
//  4. null fills an absent key but never overwrites a non-null value.
//
// The merge is not commutative; Sequence ordering decides which fetch is
// "later".
func deepMerge(target, source map[string]any) {
	for key, sv := range source {
		tv, exists := target[key]
		if !exists {
			target[key] = sv
			continue
		}
		if sv == nil {
			continue
		}
		if tv == nil {
			target[key] = sv
			continue
		}
		switch s := sv.(type) {
		case map[string]any:
			if t, ok := tv.(map[string]any); ok {
				deepMerge(t, s)
				continue
			}
		case []any:
			if t, ok := tv.([]any); ok && len(t) == len(s) {
				mergeLists(t, s)
				continue
			}
		}
		target[key] = sv
	}
}

func mergeLists(target, source []any) {
	for i, sv := range source {
		if sv == nil {
			continue
		}
		tv := target[i]
		if tv == nil {
			target[i] = sv
			continue
		}
		switch s := sv.(type) {
		case map[string]any:
			if t, ok := tv.(map[string]any); ok {
				deepMerge(t, s)
				continue
			}
		case []any:
			if t, ok := tv.([]any); ok && len(t) == len(s) {
				mergeLists(t, s)
				continue
			}
		}
		target[i] = sv
	}
}
