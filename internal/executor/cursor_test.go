package executor

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	plan "github.com/michael-watson/federation/internal/plan"
)

func TestCursorMove(t *testing.T) {
	root := map[string]any{
		"users": []any{
			map[string]any{"id": "1", "friends": []any{
				map[string]any{"id": "10"},
				map[string]any{"id": "11"},
			}},
			nil,
			map[string]any{"id": "3", "friends": []any{
				map[string]any{"id": "30"},
			}},
		},
		"me": map[string]any{"id": "0"},
	}

	t.Run("FieldStep", func(t *testing.T) {
		c, ok := newRootCursor(root).move(plan.ResponsePath{"me"})
		if !ok {
			t.Fatal("expected a cursor")
		}
		if diff := cmp.Diff(map[string]any{"id": "0"}, c.view); diff != "" {
			t.Fatalf("view mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("FlattenKeepsNullElements", func(t *testing.T) {
		c, ok := newRootCursor(root).move(plan.ResponsePath{"users", "@"})
		if !ok {
			t.Fatal("expected a cursor")
		}
		view := c.view.([]any)
		if len(view) != 3 {
			t.Fatalf("expected 3 positions, got %d", len(view))
		}
		if view[1] != nil {
			t.Fatalf("null element must stay in place, got %v", view[1])
		}
	})

	t.Run("NestedFlattenSplices", func(t *testing.T) {
		c, ok := newRootCursor(root).move(plan.ResponsePath{"users", "@", "friends", "@"})
		if !ok {
			t.Fatal("expected a cursor")
		}
		view := c.view.([]any)
		// Two friends of user 1, the nil position for user at index 1, and
		// one friend of user 3.
		want := []any{
			map[string]any{"id": "10"},
			map[string]any{"id": "11"},
			nil,
			map[string]any{"id": "30"},
		}
		if diff := cmp.Diff(want, view); diff != "" {
			t.Fatalf("view mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("DeadPath", func(t *testing.T) {
		if _, ok := newRootCursor(root).move(plan.ResponsePath{"missing", "@"}); ok {
			t.Fatal("expected no cursor for an absent key")
		}
		if _, ok := newRootCursor(map[string]any{"me": nil}).move(plan.ResponsePath{"me"}); ok {
			t.Fatal("expected no cursor for a null value")
		}
	})

	t.Run("FlattenOnNonArray", func(t *testing.T) {
		if _, ok := newRootCursor(root).move(plan.ResponsePath{"me", "@"}); ok {
			t.Fatal("expected no cursor when @ hits a non-array")
		}
	})
}

func TestCursorCollectEntities(t *testing.T) {
	root := map[string]any{
		"users": []any{
			map[string]any{"id": "1"},
			nil,
			"stray",
			map[string]any{"id": "2"},
		},
	}
	c, ok := newRootCursor(root).move(plan.ResponsePath{"users", "@"})
	if !ok {
		t.Fatal("expected a cursor")
	}
	entities := c.collectEntities()
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(entities))
	}
	if entities[0]["id"] != "1" || entities[1]["id"] != "2" {
		t.Fatalf("wrong entities: %v", entities)
	}
}

func TestCursorPathStripsFlatten(t *testing.T) {
	c, ok := newRootCursor(map[string]any{
		"users": []any{map[string]any{"id": "1"}},
	}).move(plan.ResponsePath{"users", "@"})
	if !ok {
		t.Fatal("expected a cursor")
	}
	if diff := cmp.Diff(Path{"users"}, c.path()); diff != "" {
		t.Fatalf("path mismatch (-want +got):\n%s", diff)
	}
}
