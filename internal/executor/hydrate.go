package executor

import (
	plan "github.com/michael-watson/federation/internal/plan"
)

// errorPathHydrator translates subgraph error paths into concrete response
// paths. Entity fetches return errors addressed as [_entities, i, ...]; i
// indexes the representations that were sent, so the hydrator reconstructs
// the concrete tree path of each representation's source entity.
//
// Construction is cheap; the concrete-path enumeration over the response
// tree only happens when a fetch actually returned an error.
type errorPathHydrator struct {
	root     map[string]any
	planPath plan.ResponsePath
	basePath Path
	// repToEntity maps representation index to entity index for fetches
	// that went through the _entities protocol; nil for root fetches.
	repToEntity []int

	computed    bool
	entityPaths []Path
}

func newErrorPathHydrator(c cursor) *errorPathHydrator {
	return &errorPathHydrator{
		root:     c.root,
		planPath: c.planPath,
		basePath: c.path(),
	}
}

// hydrate maps one subgraph error path. An empty input produces no path at
// all; an [_entities, i, ...rest] input produces the i-th representation's
// source path concatenated with rest; anything else is anchored under the
// cursor.
func (h *errorPathHydrator) hydrate(errPath []any) Path {
	if len(errPath) == 0 {
		return nil
	}
	if len(errPath) >= 2 && errPath[0] == "_entities" {
		if i, ok := plan.PathIndex(errPath[1]); ok {
			return h.hydrateEntityPath(i, errPath[2:])
		}
	}
	return h.basePath.Concat(errPath)
}

func (h *errorPathHydrator) hydrateEntityPath(repIndex int, rest []any) Path {
	h.ensureEntityPaths()
	if repIndex < 0 || repIndex >= len(h.repToEntity) {
		return nil
	}
	entityIndex := h.repToEntity[repIndex]
	if entityIndex < 0 || entityIndex >= len(h.entityPaths) {
		return nil
	}
	return h.entityPaths[entityIndex].Concat(rest)
}

// ensureEntityPaths enumerates the concrete path of every entity under the
// plan path, expanding each "@" across the array elements actually present
// in the response tree. The enumeration mirrors cursor flattening exactly, so
// its indices line up with collectEntities.
func (h *errorPathHydrator) ensureEntityPaths() {
	if h.computed {
		return
	}
	h.computed = true
	var entries []pathValue
	expandConcretePaths(h.root, h.planPath, nil, &entries)
	for _, entry := range entries {
		if _, ok := isObject(entry.value); ok {
			h.entityPaths = append(h.entityPaths, entry.path)
		}
	}
}

type pathValue struct {
	path  Path
	value any
}

// expandConcretePaths walks the tree along a plan path, emitting one entry
// per position a cursor view would hold. Dead branches emit a single nil
// entry to keep positions aligned with the flattened view.
func expandConcretePaths(value any, rel plan.ResponsePath, prefix Path, out *[]pathValue) {
	if len(rel) == 0 {
		if arr, ok := value.([]any); ok {
			for i, elem := range arr {
				*out = append(*out, pathValue{path: prefix.Append(i), value: elem})
			}
			return
		}
		*out = append(*out, pathValue{path: prefix, value: value})
		return
	}
	if value == nil {
		*out = append(*out, pathValue{value: nil})
		return
	}
	head, rest := rel[0], rel[1:]
	if head == plan.FlattenElement {
		arr, ok := value.([]any)
		if !ok {
			*out = append(*out, pathValue{value: nil})
			return
		}
		for i, elem := range arr {
			expandConcretePaths(elem, rest, prefix.Append(i), out)
		}
		return
	}
	key, ok := head.(string)
	if !ok {
		*out = append(*out, pathValue{value: nil})
		return
	}
	node, ok := value.(map[string]any)
	if !ok {
		*out = append(*out, pathValue{value: nil})
		return
	}
	expandConcretePaths(node[key], rest, prefix.Append(key), out)
}
