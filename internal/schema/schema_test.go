package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const testSDL = `
schema {
  query: RootQuery
}

"The root."
type RootQuery {
  me: User
  search(term: String!, limit: Int = 10): [Node]
}

interface Node { id: ID! }

type User implements Node {
  id: ID!
  name: String @deprecated(reason: "use fullName")
  fullName: String
}

type Review implements Node {
  id: ID!
  body: String
}

union SearchResult = User | Review

enum Visibility {
  PUBLIC
  HIDDEN @deprecated
}

input Filter {
  term: String
}

extend type User {
  reviews: [Review]
}

directive @mine(arg: String) repeatable on FIELD
`

func TestBuildFromSDL(t *testing.T) {
	sch, err := BuildFromSDL("test.graphql", testSDL)
	if err != nil {
		t.Fatalf("BuildFromSDL: %v", err)
	}

	t.Run("RootTypes", func(t *testing.T) {
		if sch.QueryType != "RootQuery" {
			t.Fatalf("QueryType = %q", sch.QueryType)
		}
		if sch.GetQueryType() == nil || sch.GetMutationType() != nil {
			t.Fatal("root type resolution broken")
		}
		if got := sch.RootTypeName("query"); got != "RootQuery" {
			t.Fatalf("RootTypeName = %q", got)
		}
	})

	t.Run("BuiltinScalars", func(t *testing.T) {
		for _, name := range []string{"Int", "Float", "String", "Boolean", "ID"} {
			if typ := sch.Types[name]; typ == nil || typ.Kind != TypeKindScalar {
				t.Fatalf("missing builtin scalar %q", name)
			}
		}
	})

	t.Run("FieldsAndArguments", func(t *testing.T) {
		search := sch.Types["RootQuery"].GetField("search")
		if search == nil {
			t.Fatal("search field missing")
		}
		if got := search.Type.GetNamedType(); got != "Node" {
			t.Fatalf("search type = %q", got)
		}
		if len(search.Arguments) != 2 {
			t.Fatalf("expected 2 arguments, got %d", len(search.Arguments))
		}
		limit := search.Arguments[1]
		if limit.DefaultValue == nil || *limit.DefaultValue != "10" {
			t.Fatalf("limit default = %v", limit.DefaultValue)
		}
	})

	t.Run("Deprecation", func(t *testing.T) {
		name := sch.Types["User"].GetField("name")
		if !name.IsDeprecated || name.DeprecationReason != "use fullName" {
			t.Fatalf("deprecation lost: %+v", name)
		}
		hidden := sch.Types["Visibility"].EnumValues[1]
		if !hidden.IsDeprecated || hidden.DeprecationReason != "No longer supported" {
			t.Fatalf("enum deprecation default lost: %+v", hidden)
		}
	})

	t.Run("Extensions", func(t *testing.T) {
		if sch.Types["User"].GetField("reviews") == nil {
			t.Fatal("extension field not merged")
		}
	})

	t.Run("PossibleTypes", func(t *testing.T) {
		got := sch.Types["Node"].PossibleTypes
		want := []string{"User", "Review"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("interface possible types (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"User", "Review"}, sch.Types["SearchResult"].PossibleTypes); diff != "" {
			t.Fatalf("union members (-want +got):\n%s", diff)
		}
	})

	t.Run("AbstractChecks", func(t *testing.T) {
		if !sch.IsAbstract("Node") || !sch.IsAbstract("SearchResult") || sch.IsAbstract("User") {
			t.Fatal("IsAbstract misclassifies")
		}
		if !sch.IsPossibleType("Node", "User") {
			t.Fatal("User must be a possible type of Node")
		}
		if !sch.IsPossibleType("SearchResult", "Review") {
			t.Fatal("Review must be a possible type of SearchResult")
		}
		if sch.IsPossibleType("Node", "Ghost") {
			t.Fatal("unknown types are never possible types")
		}
	})

	t.Run("Directives", func(t *testing.T) {
		d := sch.Directives["mine"]
		if d == nil || !d.IsRepeatable || len(d.Arguments) != 1 {
			t.Fatalf("directive not built: %+v", d)
		}
		if diff := cmp.Diff([]string{"FIELD"}, d.Locations); diff != "" {
			t.Fatalf("locations (-want +got):\n%s", diff)
		}
	})

	t.Run("InputObject", func(t *testing.T) {
		f := sch.Types["Filter"]
		if f.Kind != TypeKindInputObject || len(f.InputFields) != 1 {
			t.Fatalf("input object not built: %+v", f)
		}
	})
}

func TestBuildFromSDLSyntaxError(t *testing.T) {
	if _, err := BuildFromSDL("bad.graphql", "type {"); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestTypeRefHelpers(t *testing.T) {
	ref := NonNullType(ListType(NonNullType(NamedType("User"))))
	if !ref.IsNonNull() {
		t.Fatal("IsNonNull")
	}
	if ref.GetNamedType() != "User" {
		t.Fatalf("GetNamedType = %q", ref.GetNamedType())
	}
	if ref.Unwrap().Kind != TypeRefKindList {
		t.Fatalf("Unwrap = %+v", ref.Unwrap())
	}
}
