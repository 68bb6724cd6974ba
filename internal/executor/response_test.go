package executor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDeepMerge(t *testing.T) {
	cases := []struct {
		name   string
		target map[string]any
		source map[string]any
		want   map[string]any
	}{
		{
			name:   "MappingsCombineRecursively",
			target: map[string]any{"user": map[string]any{"id": "1"}},
			source: map[string]any{"user": map[string]any{"name": "Ada"}},
			want:   map[string]any{"user": map[string]any{"id": "1", "name": "Ada"}},
		},
		{
			name:   "EqualLengthArraysCombineByIndex",
			target: map[string]any{"users": []any{map[string]any{"id": "1"}, map[string]any{"id": "2"}}},
			source: map[string]any{"users": []any{map[string]any{"name": "A"}, map[string]any{"name": "B"}}},
			want: map[string]any{"users": []any{
				map[string]any{"id": "1", "name": "A"},
				map[string]any{"id": "2", "name": "B"},
			}},
		},
		{
			name:   "LaterScalarWins",
			target: map[string]any{"count": 1.0},
			source: map[string]any{"count": 2.0},
			want:   map[string]any{"count": 2.0},
		},
		{
			name:   "NullFillsAbsentKey",
			target: map[string]any{},
			source: map[string]any{"name": nil},
			want:   map[string]any{"name": nil},
		},
		{
			name:   "NullDoesNotOverwrite",
			target: map[string]any{"name": "Ada"},
			source: map[string]any{"name": nil},
			want:   map[string]any{"name": "Ada"},
		},
		{
			name:   "ValueReplacesNull",
			target: map[string]any{"name": nil},
			source: map[string]any{"name": "Ada"},
			want:   map[string]any{"name": "Ada"},
		},
		{
			name:   "UnequalArraysReplaced",
			target: map[string]any{"users": []any{map[string]any{"id": "1"}}},
			source: map[string]any{"users": []any{map[string]any{"id": "2"}, map[string]any{"id": "3"}}},
			want:   map[string]any{"users": []any{map[string]any{"id": "2"}, map[string]any{"id": "3"}}},
		},
		{
			name:   "NullArrayElementPreservesTarget",
			target: map[string]any{"users": []any{map[string]any{"id": "1"}, map[string]any{"id": "2"}}},
			source: map[string]any{"users": []any{nil, map[string]any{"name": "B"}}},
			want: map[string]any{"users": []any{
				map[string]any{"id": "1"},
				map[string]any{"id": "2", "name": "B"},
			}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			deepMerge(tc.target, tc.source)
			if diff := cmp.Diff(tc.want, tc.target); diff != "" {
				t.Fatalf("merge mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// Merge order matters: the same two trees merged both ways differ on scalar
// conflicts.
func TestDeepMergeNotCommutative(t *testing.T) {
	a := map[string]any{"v": "a"}
	b := map[string]any{"v": "b"}

	left := map[string]any{}
	deepMerge(left, a)
	deepMerge(left, b)

	right := map[string]any{}
	deepMerge(right, b)
	deepMerge(right, a)

	if left["v"] == right["v"] {
		t.Fatalf("expected order-dependent result, got %v / %v", left, right)
	}
}
