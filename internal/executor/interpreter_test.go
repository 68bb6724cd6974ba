package executor

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	datasource "github.com/michael-watson/federation/internal/datasource"
	plan "github.com/michael-watson/federation/internal/plan"
)

func newTestExecutionContext(t *testing.T, services datasource.ServiceMap) *executionContext {
	t.Helper()
	return &executionContext{
		operationContext: newTestOperation(t, "{ users { id } }"),
		requestContext:   &RequestContext{},
		serviceMap:       services,
		supergraphSchema: mustBuildSchema(t, scenarioSDL),
		startTime:        time.Now(),
	}
}

// Writes of earlier Sequence children are visible to later ones.
func TestExecuteNode_SequenceOrdering(t *testing.T) {
	sourceA := NewMockDataSource(&datasource.Response{
		Data: map[string]any{"users": []any{map[string]any{"__typename": "User", "id": "1"}}},
	})
	sourceB := NewMockDataSource(&datasource.Response{
		Data: map[string]any{"_entities": []any{map[string]any{"email": "a@x"}}},
	})
	ec := newTestExecutionContext(t, datasource.ServiceMap{"A": sourceA, "B": sourceB})
	qp := mustDecodePlan(t, entityPlanJSON)

	tree := make(map[string]any)
	if _, err := ec.executeNode(context.Background(), qp.Root, newRootCursor(tree)); err != nil {
		t.Fatalf("executeNode: %v", err)
	}

	// B's representation was built from the tree state A produced.
	reps, _ := sourceB.SentVariables(0)["representations"].([]any)
	if len(reps) != 1 {
		t.Fatalf("expected 1 representation, got %v", reps)
	}
	if diff := cmp.Diff(map[string]any{"__typename": "User", "id": "1"}, reps[0]); diff != "" {
		t.Fatalf("representation mismatch (-want +got):\n%s", diff)
	}
}

// Parallel children write disjoint paths; child order does not affect the
// final tree.
func TestExecuteNode_ParallelIndependence(t *testing.T) {
	planVariants := []string{
		`{"kind":"Parallel","nodes":[
		  {"kind":"Fetch","serviceName":"A","operation":"{ a }"},
		  {"kind":"Fetch","serviceName":"B","operation":"{ b }"}
		]}`,
		`{"kind":"Parallel","nodes":[
		  {"kind":"Fetch","serviceName":"B","operation":"{ b }"},
		  {"kind":"Fetch","serviceName":"A","operation":"{ a }"}
		]}`,
	}
	want := map[string]any{"a": "from-a", "b": "from-b"}
	for _, src := range planVariants {
		sourceA := NewMockDataSource(&datasource.Response{Data: map[string]any{"a": "from-a"}})
		sourceB := NewMockDataSource(&datasource.Response{Data: map[string]any{"b": "from-b"}})
		ec := newTestExecutionContext(t, datasource.ServiceMap{"A": sourceA, "B": sourceB})

		tree := make(map[string]any)
		if _, err := ec.executeNode(context.Background(), mustDecodePlan(t, src).Root, newRootCursor(tree)); err != nil {
			t.Fatalf("executeNode: %v", err)
		}
		if diff := cmp.Diff(want, tree); diff != "" {
			t.Fatalf("tree mismatch (-want +got):\n%s", diff)
		}
	}
}

// A Flatten path that resolves to no data skips the child fetch but still
// returns a structurally complete trace.
func TestExecuteNode_FlattenShortCircuit(t *testing.T) {
	sourceB := NewMockDataSource()
	ec := newTestExecutionContext(t, datasource.ServiceMap{"B": sourceB})
	qp := mustDecodePlan(t, `{"kind":"Flatten","path":["users","@"],"node":
	  {"kind":"Fetch","serviceName":"B","operation":"{ x }"}}`)

	tree := make(map[string]any) // no "users" key: dead path
	traced, err := ec.executeNode(context.Background(), qp.Root, newRootCursor(tree))
	if err != nil {
		t.Fatalf("executeNode: %v", err)
	}

	if sourceB.CallCount() != 0 {
		t.Fatalf("no fetch must be issued for a dead path")
	}
	if traced.Flatten == nil || traced.Flatten.Node == nil || traced.Flatten.Node.Fetch == nil {
		t.Fatalf("trace must mirror the plan structure, got %+v", traced)
	}
	fetchTrace := traced.Flatten.Node.Fetch
	if fetchTrace.ServiceName != "B" || fetchTrace.SentTime != nil {
		t.Fatalf("skipped fetch must carry no timing, got %+v", fetchTrace)
	}
	if len(ec.collectedErrors()) != 0 {
		t.Fatalf("dead path must not produce errors: %v", ec.collectedErrors())
	}
}

// After cancellation no further plan nodes start; merged data is retained.
func TestExecuteNode_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sourceA := &MockDataSource{ProcessFunc: func(ctx context.Context, opts *datasource.ProcessOptions) (*datasource.Response, error) {
		cancel()
		return &datasource.Response{Data: map[string]any{"a": "from-a"}}, nil
	}}
	sourceB := NewMockDataSource()
	ec := newTestExecutionContext(t, datasource.ServiceMap{"A": sourceA, "B": sourceB})
	qp := mustDecodePlan(t, `{"kind":"Sequence","nodes":[
	  {"kind":"Fetch","serviceName":"A","operation":"{ a }"},
	  {"kind":"Fetch","serviceName":"B","operation":"{ b }"}
	]}`)

	tree := make(map[string]any)
	if _, err := ec.executeNode(ctx, qp.Root, newRootCursor(tree)); err != nil {
		t.Fatalf("executeNode: %v", err)
	}

	if sourceB.CallCount() != 0 {
		t.Fatalf("no plan node may start after cancellation")
	}
	if diff := cmp.Diff(map[string]any{"a": "from-a"}, tree); diff != "" {
		t.Fatalf("already-merged data must be retained (-want +got):\n%s", diff)
	}
}

// Condition nodes are as unsupported as Defer nodes.
func TestExecuteNode_UnsupportedCondition(t *testing.T) {
	ec := newTestExecutionContext(t, datasource.ServiceMap{})
	_, err := ec.executeNode(context.Background(), &plan.ConditionNode{}, newRootCursor(map[string]any{}))
	if err == nil {
		t.Fatal("expected an error for a Condition node")
	}
}
