package executor

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	plan "github.com/michael-watson/federation/internal/plan"
)

const abstractSDL = `
type Query { nodes: [Node] }

interface Node { id: ID }

type User implements Node {
  id: ID
  name: String
}

union Account = User | Service

type Service implements Node {
  id: ID
  host: String
}
`

func userRequires() []plan.Selection {
	return []plan.Selection{
		&plan.InlineFragment{TypeCondition: "User", Selections: []plan.Selection{
			&plan.Field{Name: "__typename"},
			&plan.Field{Name: "id"},
		}},
	}
}

func TestExecuteSelectionSet(t *testing.T) {
	sch := mustBuildSchema(t, abstractSDL)

	t.Run("NullSource", func(t *testing.T) {
		if got := executeSelectionSet(sch, nil, userRequires(), nil); got != nil {
			t.Fatalf("expected nil for null source, got %v", got)
		}
	})

	t.Run("BuildsRepresentation", func(t *testing.T) {
		source := map[string]any{"__typename": "User", "id": "1", "name": "Ada"}
		got := executeSelectionSet(sch, source, userRequires(), nil)
		want := map[string]any{"__typename": "User", "id": "1"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("representation mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("MissingFieldDropsEntity", func(t *testing.T) {
		source := map[string]any{"__typename": "User"}
		if got := executeSelectionSet(sch, source, userRequires(), nil); got != nil {
			t.Fatalf("expected nil for missing input, got %v", got)
		}
	})

	t.Run("MissingTypenameSkipsFragment", func(t *testing.T) {
		source := map[string]any{"id": "1"}
		got := executeSelectionSet(sch, source, userRequires(), nil)
		// The fragment never matched, so the result is empty (and the
		// caller will drop it for lacking __typename).
		if len(got) != 0 {
			t.Fatalf("expected empty representation, got %v", got)
		}
	})

	t.Run("NonMatchingConditionSkips", func(t *testing.T) {
		source := map[string]any{"__typename": "Service", "id": "s1"}
		got := executeSelectionSet(sch, source, userRequires(), nil)
		if len(got) != 0 {
			t.Fatalf("expected empty representation, got %v", got)
		}
	})

	t.Run("AbstractConditionMatchesSubtype", func(t *testing.T) {
		selections := []plan.Selection{
			&plan.InlineFragment{TypeCondition: "Node", Selections: []plan.Selection{
				&plan.Field{Name: "__typename"},
				&plan.Field{Name: "id"},
			}},
		}
		source := map[string]any{"__typename": "User", "id": "1"}
		got := executeSelectionSet(sch, source, selections, nil)
		want := map[string]any{"__typename": "User", "id": "1"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("representation mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("UnionConditionMatchesMember", func(t *testing.T) {
		selections := []plan.Selection{
			&plan.InlineFragment{TypeCondition: "Account", Selections: []plan.Selection{
				&plan.Field{Name: "__typename"},
			}},
		}
		source := map[string]any{"__typename": "User", "id": "1"}
		got := executeSelectionSet(sch, source, selections, nil)
		if got[typenameField] != "User" {
			t.Fatalf("union condition must match its member, got %v", got)
		}
	})

	t.Run("SubSelectionsMapOverArrays", func(t *testing.T) {
		selections := []plan.Selection{
			&plan.Field{Name: "__typename"},
			&plan.Field{Name: "friends", Selections: []plan.Selection{
				&plan.Field{Name: "id"},
			}},
		}
		source := map[string]any{
			"__typename": "User",
			"friends": []any{
				map[string]any{"id": "10", "extra": true},
				nil,
				map[string]any{"id": "11"},
			},
		}
		got := executeSelectionSet(sch, source, selections, nil)
		want := map[string]any{
			"__typename": "User",
			"friends": []any{
				map[string]any{"id": "10"},
				nil,
				map[string]any{"id": "11"},
			},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("representation mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("CompleteRewriteReplacesValue", func(t *testing.T) {
		selections := []plan.Selection{
			&plan.Field{Name: "__typename"},
			&plan.Field{Name: "id"},
		}
		rewrites := []plan.InputRewrite{{Path: []string{"__typename"}, SetValueTo: "Employee"}}
		source := map[string]any{"__typename": "User", "id": "1"}
		got := executeSelectionSet(sch, source, selections, rewrites)
		want := map[string]any{"__typename": "Employee", "id": "1"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("representation mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("AliasedFieldReadsResponseName", func(t *testing.T) {
		selections := []plan.Selection{
			&plan.Field{Name: "__typename"},
			&plan.Field{Alias: "userId", Name: "id"},
		}
		source := map[string]any{"__typename": "User", "userId": "1"}
		got := executeSelectionSet(sch, source, selections, nil)
		if got["userId"] != "1" {
			t.Fatalf("alias must be read as response name, got %v", got)
		}
	})
}
