package plan

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Rewrite kinds as they appear in serialized plans.
const (
	rewriteKindValueSetter = "ValueSetter"
	rewriteKindKeyRenamer  = "KeyRenamer"
)

const fragmentStepPrefix = "... on "

// FragmentStep renders the rewrite-path element for a type condition.
func FragmentStep(typeCondition string) string {
	return fragmentStepPrefix + typeCondition
}

// TypeConditionFromStep extracts the type condition from a rewrite-path
// element of the form "... on T". ok is false for plain field steps.
func TypeConditionFromStep(step string) (string, bool) {
	return strings.CutPrefix(step, fragmentStepPrefix)
}

// InputRewrite replaces the value at the end of Path with SetValueTo while a
// representation is being extracted. Path elements starting with "... on "
// are type-conditional and only advance through matching inline fragments.
type InputRewrite struct {
	Path       []string
	SetValueTo any
}

// OutputRewrite renames the key at the end of Path to RenameKeyTo after a
// fetch response is received. Type-conditional steps behave as for
// InputRewrite.
type OutputRewrite struct {
	Path        []string
	RenameKeyTo string
}

type rewriteJSON struct {
	Kind        string   `json:"kind"`
	Path        []string `json:"path"`
	SetValueTo  any      `json:"setValueTo"`
	RenameKeyTo string   `json:"renameKeyTo"`
}

func decodeInputRewrites(raw []json.RawMessage) ([]InputRewrite, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]InputRewrite, 0, len(raw))
	for _, r := range raw {
		var rw rewriteJSON
		if err := json.Unmarshal(r, &rw); err != nil {
			return nil, err
		}
		if rw.Kind != "" && rw.Kind != rewriteKindValueSetter {
			return nil, fmt.Errorf("unsupported input rewrite kind %q", rw.Kind)
		}
		if len(rw.Path) == 0 {
			return nil, fmt.Errorf("input rewrite with empty path")
		}
		out = append(out, InputRewrite{Path: rw.Path, SetValueTo: rw.SetValueTo})
	}
	return out, nil
}

func decodeOutputRewrites(raw []json.RawMessage) ([]OutputRewrite, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]OutputRewrite, 0, len(raw))
	for _, r := range raw {
		var rw rewriteJSON
		if err := json.Unmarshal(r, &rw); err != nil {
			return nil, err
		}
		if rw.Kind != "" && rw.Kind != rewriteKindKeyRenamer {
			return nil, fmt.Errorf("unsupported output rewrite kind %q", rw.Kind)
		}
		if len(rw.Path) == 0 || rw.RenameKeyTo == "" {
			return nil, fmt.Errorf("output rewrite with empty path or target key")
		}
		out = append(out, OutputRewrite{Path: rw.Path, RenameKeyTo: rw.RenameKeyTo})
	}
	return out, nil
}
