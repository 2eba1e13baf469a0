package services_test

import (
	"context"
	"testing"

	"mediarelay/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithOwnerID(ctx, 42)
	ctx = services.WithContentID(ctx, "ABC123")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.OwnerIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected owner id: %v %v", id, ok)
	}
	if cid, ok := services.ContentIDFromContext(ctx); !ok || cid != "ABC123" {
		t.Fatalf("unexpected content id: %v %v", cid, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithContentID(ctx, "")
	ctx = services.WithRequestID(ctx, "")
	if _, ok := services.ContentIDFromContext(ctx); ok {
		t.Fatal("expected no content id value")
	}
	if _, ok := services.RequestIDFromContext(ctx); ok {
		t.Fatal("expected no request id value")
	}
	if _, ok := services.OwnerIDFromContext(ctx); ok {
		t.Fatal("expected no owner id value")
	}
}
