package reqid

import (
	"context"
	"testing"
)

func TestNewContext(t *testing.T) {
	ctx, id := NewContext(context.Background())
	if id == "" {
		t.Fatal("expected a non-empty id")
	}
	got, ok := FromContext(ctx)
	if !ok || got != id {
		t.Fatalf("FromContext = %q, %v", got, ok)
	}
}

func TestWithID(t *testing.T) {
	ctx := WithID(context.Background(), "client-supplied")
	got, ok := FromContext(ctx)
	if !ok || got != "client-supplied" {
		t.Fatalf("FromContext = %q, %v", got, ok)
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("expected no id on a fresh context")
	}
}
