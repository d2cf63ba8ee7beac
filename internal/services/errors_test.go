package services_test

import (
	"errors"
	"strings"
	"testing"

	"igclog/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalService, "enrichment", "timezone", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"enrichment", "timezone", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "parse", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestIsFatal(t *testing.T) {
	fatal := services.Wrap(services.ErrFatal, "preflight", "stat", "directory missing", nil)
	if !services.IsFatal(fatal) {
		t.Fatalf("expected fatal classification for %v", fatal)
	}
	perFile := services.Wrap(services.ErrValidation, "parse", "decode", "bad record", nil)
	if services.IsFatal(perFile) {
		t.Fatalf("expected per-file classification for %v", perFile)
	}
}
