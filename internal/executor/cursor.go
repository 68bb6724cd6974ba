package executor

import (
	plan "github.com/michael-watson/federation/internal/plan"
)

// cursor positions plan interpretation within the shared response tree.
// planPath is the plan-level path from the root and may contain "@"; view is
// the node at that path, or the flattened ordered list of all nodes reachable
// through "@" elements. Cursors are values: moving one yields a new cursor
// and never mutates the tree.
type cursor struct {
	planPath plan.ResponsePath
	view     any
	root     map[string]any
}

func newRootCursor(root map[string]any) cursor {
	return cursor{view: root, root: root}
}

// move walks rel downward from c. ok is false when the path dead-ends in
// null or an absent key; the caller must then skip the subtree entirely.
func (c cursor) move(rel plan.ResponsePath) (cursor, bool) {
	view := flattenViewAtPath(c.view, rel)
	if view == nil {
		return cursor{}, false
	}
	return cursor{
		planPath: c.planPath.Concat(rel),
		view:     view,
		root:     c.root,
	}, true
}

// path returns the concrete prefix used for non-entity error paths: the plan
// path with "@" elements dropped.
func (c cursor) path() Path {
	return c.planPath.WithoutFlatten()
}

// flattenViewAtPath resolves a plan path against a subtree. At "@" the value
// must be an array and each element is resolved against the rest of the path;
// array results are spliced so the final view is a flat list. A null or
// absent value anywhere yields nil.
func flattenViewAtPath(value any, path plan.ResponsePath) any {
	if len(path) == 0 {
		return value
	}
	if value == nil {
		return nil
	}
	head, rest := path[0], path[1:]
	if head == plan.FlattenElement {
		arr, ok := value.([]any)
		if !ok {
			return nil
		}
		out := make([]any, 0, len(arr))
		for _, elem := range arr {
			sub := flattenViewAtPath(elem, rest)
			if spliced, ok := sub.([]any); ok {
				out = append(out, spliced...)
			} else {
				out = append(out, sub)
			}
		}
		return out
	}
	key, ok := head.(string)
	if !ok {
		return nil
	}
	node, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	return flattenViewAtPath(node[key], rest)
}

// isObject filters cursor-view elements down to mergeable entity nodes.
func isObject(value any) (map[string]any, bool) {
	m, ok := value.(map[string]any)
	return m, ok
}

// collectEntities lists the entity nodes under the cursor: the elements of a
// flattened view, or the single node itself. Null and non-object values are
// dropped; their positions never receive merged data.
func (c cursor) collectEntities() []map[string]any {
	if arr, ok := c.view.([]any); ok {
		entities := make([]map[string]any, 0, len(arr))
		for _, elem := range arr {
			if m, ok := isObject(elem); ok {
				entities = append(entities, m)
			}
		}
		return entities
	}
	if m, ok := isObject(c.view); ok {
		return []map[string]any{m}
	}
	return nil
}
