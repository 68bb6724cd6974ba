package plan

import (
	"encoding/json"
	"fmt"
)

// Selection is one element of a plan selection set: a Field or an
// InlineFragment. Plan selection sets describe the `requires` key fields a
// fetch needs to build entity representations; they are simpler than full
// operation selection sets (no named fragments, no directives).
type Selection interface {
	isSelection()
}

// Field selects a field by response name, optionally with sub-selections.
type Field struct {
	Alias      string
	Name       string
	Selections []Selection
}

// InlineFragment selects fields conditionally on the runtime type.
type InlineFragment struct {
	TypeCondition string
	Selections    []Selection
}

func (*Field) isSelection()          {}
func (*InlineFragment) isSelection() {}

// ResponseName returns the key under which the field appears in a source
// object.
func (f *Field) ResponseName() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

type selectionJSON struct {
	Kind          string            `json:"kind"`
	Name          string            `json:"name"`
	Alias         string            `json:"alias"`
	TypeCondition string            `json:"typeCondition"`
	Selections    []json.RawMessage `json:"selections"`
}

func decodeSelections(raw []json.RawMessage) ([]Selection, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]Selection, 0, len(raw))
	for _, r := range raw {
		var sel selectionJSON
		if err := json.Unmarshal(r, &sel); err != nil {
			return nil, err
		}
		sub, err := decodeSelections(sel.Selections)
		if err != nil {
			return nil, err
		}
		switch sel.Kind {
		case "Field":
			if sel.Name == "" {
				return nil, fmt.Errorf("plan field selection without a name")
			}
			out = append(out, &Field{Alias: sel.Alias, Name: sel.Name, Selections: sub})
		case "InlineFragment":
			out = append(out, &InlineFragment{TypeCondition: sel.TypeCondition, Selections: sub})
		default:
			return nil, fmt.Errorf("unsupported selection kind %q", sel.Kind)
		}
	}
	return out, nil
}
