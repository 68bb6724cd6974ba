package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	datasource "github.com/michael-watson/federation/internal/datasource"
	language "github.com/michael-watson/federation/internal/language"
)

const shapeSDL = `
type Query {
  me: User
  node: Node
}

interface Node { id: ID }

type User implements Node {
  id: ID
  name: String
  email: String
}

type Service implements Node {
  id: ID
  host: String
}
`

func runPostProcess(t *testing.T, query string, tree map[string]any, opts ...Option) (map[string]any, []GraphQLError) {
	t.Helper()
	sch := mustBuildSchema(t, shapeSDL)
	exec := NewExecutor(datasource.ServiceMap{}, sch, sch, opts...)
	return exec.postProcess(context.Background(), newTestOperation(t, query), &RequestContext{}, tree)
}

func TestPostProcess(t *testing.T) {
	t.Run("SelectsAndAliases", func(t *testing.T) {
		tree := map[string]any{"me": map[string]any{"userId": "1", "name": "Ada", "email": "a@x"}}
		data, errs := runPostProcess(t, "{ me { userId: id name } }", tree)
		want := map[string]any{"me": map[string]any{"userId": "1", "name": "Ada"}}
		if diff := cmp.Diff(want, data); diff != "" {
			t.Fatalf("data mismatch (-want +got):\n%s", diff)
		}
		if len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
	})

	t.Run("AliasReadsAliasedTreeKey", func(t *testing.T) {
		// The merged tree is keyed by response names, exactly as fetches
		// produced them.
		tree := map[string]any{"me": map[string]any{"userId": "1"}}
		data, errs := runPostProcess(t, "{ me { userId: id } }", tree)
		want := map[string]any{"me": map[string]any{"userId": "1"}}
		if diff := cmp.Diff(want, data); diff != "" {
			t.Fatalf("data mismatch (-want +got):\n%s", diff)
		}
		if len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
	})

	t.Run("TypenameFromTree", func(t *testing.T) {
		tree := map[string]any{"me": map[string]any{"__typename": "User", "id": "1"}}
		data, _ := runPostProcess(t, "{ me { __typename id } }", tree)
		want := map[string]any{"me": map[string]any{"__typename": "User", "id": "1"}}
		if diff := cmp.Diff(want, data); diff != "" {
			t.Fatalf("data mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("InlineFragmentOnRuntimeType", func(t *testing.T) {
		tree := map[string]any{"node": map[string]any{"__typename": "User", "id": "1", "name": "Ada"}}
		data, errs := runPostProcess(t, `{ node { id ... on User { name } ... on Service { host } } }`, tree)
		want := map[string]any{"node": map[string]any{"id": "1", "name": "Ada"}}
		if diff := cmp.Diff(want, data); diff != "" {
			t.Fatalf("data mismatch (-want +got):\n%s", diff)
		}
		if len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
	})

	t.Run("NamedFragment", func(t *testing.T) {
		tree := map[string]any{"me": map[string]any{"__typename": "User", "id": "1", "name": "Ada"}}
		data, errs := runPostProcess(t, `
			{ me { ...userFields } }
			fragment userFields on User { id name }
		`, tree)
		want := map[string]any{"me": map[string]any{"id": "1", "name": "Ada"}}
		if diff := cmp.Diff(want, data); diff != "" {
			t.Fatalf("data mismatch (-want +got):\n%s", diff)
		}
		if len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
	})

	t.Run("SkipAndInclude", func(t *testing.T) {
		sch := mustBuildSchema(t, shapeSDL)
		exec := NewExecutor(datasource.ServiceMap{}, sch, sch)
		tree := map[string]any{"me": map[string]any{"id": "1", "name": "Ada"}}
		opCtx := newTestOperation(t, `query($yes: Boolean!) { me { id @skip(if: $yes) name @include(if: $yes) } }`)
		reqCtx := &RequestContext{Variables: map[string]any{"yes": true}}
		data, errs := exec.postProcess(context.Background(), opCtx, reqCtx, tree)
		want := map[string]any{"me": map[string]any{"name": "Ada"}}
		if diff := cmp.Diff(want, data); diff != "" {
			t.Fatalf("data mismatch (-want +got):\n%s", diff)
		}
		if len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
	})

	t.Run("UnknownFieldErrors", func(t *testing.T) {
		tree := map[string]any{"me": map[string]any{"id": "1"}}
		_, errs := runPostProcess(t, "{ me { bogus } }", tree)
		if len(errs) != 1 {
			t.Fatalf("expected one error, got %v", errs)
		}
		if diff := cmp.Diff(Path{"me", "bogus"}, errs[0].Path); diff != "" {
			t.Fatalf("error path mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("MissingValueBecomesNullWithError", func(t *testing.T) {
		tree := map[string]any{"me": map[string]any{"id": "1"}}
		data, errs := runPostProcess(t, "{ me { id name } }", tree)
		want := map[string]any{"me": map[string]any{"id": "1", "name": nil}}
		if diff := cmp.Diff(want, data); diff != "" {
			t.Fatalf("data mismatch (-want +got):\n%s", diff)
		}
		if len(errs) != 1 {
			t.Fatalf("expected one error, got %v", errs)
		}
	})

	t.Run("IntrospectionDelegates", func(t *testing.T) {
		called := false
		handler := func(_ context.Context, field *language.Field, _ language.FragmentDefinitionList, _ map[string]any) (any, error) {
			called = true
			if field.Name != "__schema" {
				return nil, fmt.Errorf("unexpected field %q", field.Name)
			}
			return map[string]any{"queryType": map[string]any{"name": "Query"}}, nil
		}
		data, errs := runPostProcess(t, "{ __schema { queryType { name } } }", map[string]any{},
			WithIntrospectionHandler(handler))
		if !called {
			t.Fatal("introspection handler was not invoked")
		}
		if len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		want := map[string]any{"__schema": map[string]any{"queryType": map[string]any{"name": "Query"}}}
		if diff := cmp.Diff(want, data); diff != "" {
			t.Fatalf("data mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("IntrospectionDisabled", func(t *testing.T) {
		data, errs := runPostProcess(t, "{ __schema { queryType { name } } }", map[string]any{})
		if len(errs) != 1 {
			t.Fatalf("expected one error, got %v", errs)
		}
		if data["__schema"] != nil {
			t.Fatalf("expected null __schema, got %v", data)
		}
	})
}

// A panicking introspection handler becomes a single generic error; a
// GraphQLError panic keeps its message.
func TestPostProcessPanicContainment(t *testing.T) {
	t.Run("GenericPanic", func(t *testing.T) {
		handler := func(context.Context, *language.Field, language.FragmentDefinitionList, map[string]any) (any, error) {
			panic("kaboom")
		}
		data, errs := runPostProcess(t, "{ __schema { queryType { name } } }", map[string]any{},
			WithIntrospectionHandler(handler))
		if data != nil {
			t.Fatalf("expected no data after panic, got %v", data)
		}
		if len(errs) != 1 || errs[0].Message == "kaboom" {
			t.Fatalf("panic message must not leak: %v", errs)
		}
		if errs[0].ErrorCode() != CodeInternalError {
			t.Fatalf("expected internal error code, got %v", errs[0])
		}
	})

	t.Run("GraphQLErrorPanic", func(t *testing.T) {
		handler := func(context.Context, *language.Field, language.FragmentDefinitionList, map[string]any) (any, error) {
			panic(GraphQLError{Message: "structured failure"})
		}
		_, errs := runPostProcess(t, "{ __schema { queryType { name } } }", map[string]any{},
			WithIntrospectionHandler(handler))
		if len(errs) != 1 || errs[0].Message != "structured failure" {
			t.Fatalf("structured errors keep their message: %v", errs)
		}
	})
}
