package services_test

import (
	"context"
	"testing"

	"igclog/internal/services"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id on fresh context")
	}

	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithStage(ctx, "optimize")
	ctx = services.WithFile(ctx, "2024-05-01.igc")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("run id = %q, ok=%v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "optimize" {
		t.Fatalf("stage = %q, ok=%v", stage, ok)
	}
	if file, ok := services.FileFromContext(ctx); !ok || file != "2024-05-01.igc" {
		t.Fatalf("file = %q, ok=%v", file, ok)
	}
}

func TestEmptyValuesAreNotStored(t *testing.T) {
	ctx := services.WithStage(context.Background(), "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("empty stage should not be stored")
	}
}
