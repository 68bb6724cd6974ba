package executor

import (
	"testing"

	language "github.com/michael-watson/federation/internal/language"
	schema "github.com/michael-watson/federation/internal/schema"
)

func mustParseQuery(t *testing.T, source string) *language.QueryDocument {
	t.Helper()
	doc, err := language.ParseQuery(source)
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	return doc
}

func mustBuildSchema(t *testing.T, sdl string) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL("test.graphql", sdl)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}
	return sch
}

func newTestOperation(t *testing.T, query string) *OperationContext {
	t.Helper()
	return NewOperationContext(mustParseQuery(t, query), "")
}
