package context_test

import (
	"context"
	"strings"
	"testing"
	"time"

	rcontext "github.com/releasekit/releasectl/pkg/context"
)

func TestContextValuesAreIndependent(t *testing.T) {
	ctx := rcontext.WithInvocationID(context.Background(), "run_1")
	ctx = rcontext.WithOperation(ctx, "export")
	ctx = rcontext.WithStartTime(ctx, time.Now().Add(-time.Second))
	ctx = rcontext.WithChannel(ctx, "win-demo")

	if got := rcontext.GetInvocationID(ctx); got != "run_1" {
		t.Errorf("expected invocation id run_1, got %q", got)
	}
	if got := rcontext.GetOperation(ctx); got != "export" {
		t.Errorf("expected operation export, got %q", got)
	}
	if got := rcontext.GetChannel(ctx); got != "win-demo" {
		t.Errorf("expected channel win-demo, got %q", got)
	}
	if got := rcontext.GetDuration(ctx); got < time.Second {
		t.Errorf("expected at least 1s elapsed, got %s", got)
	}
}

func TestEmptyContext(t *testing.T) {
	ctx := context.Background()

	if rcontext.GetInvocationID(ctx) != "" || rcontext.GetOperation(ctx) != "" || rcontext.GetChannel(ctx) != "" {
		t.Error("expected empty values")
	}
	if rcontext.GetDuration(ctx) != 0 {
		t.Error("expected zero duration without a start time")
	}
}

func TestWithInvocationID_GeneratesWhenEmpty(t *testing.T) {
	ctx := rcontext.WithInvocationID(context.Background(), "")
	if id := rcontext.GetInvocationID(ctx); !strings.HasPrefix(id, "run_") {
		t.Errorf("expected generated id, got %q", id)
	}
}

func TestEnrichContext(t *testing.T) {
	ctx := rcontext.WithInvocationID(context.Background(), "run_keep")
	ctx = rcontext.WithOperation(ctx, "publish")
	ctx = rcontext.EnrichContext(ctx)

	if got := rcontext.GetInvocationID(ctx); got != "run_keep" {
		t.Errorf("existing id should be kept, got %q", got)
	}
	if got := rcontext.GetOperation(ctx); got != "publish" {
		t.Errorf("operation should survive, got %q", got)
	}

	time.Sleep(2 * time.Millisecond)
	if rcontext.GetDuration(ctx) <= 0 {
		t.Error("expected a start time to be recorded")
	}

	fresh := rcontext.EnrichContext(context.Background())
	if !strings.HasPrefix(rcontext.GetInvocationID(fresh), "run_") {
		t.Error("expected a generated id on a fresh context")
	}
}
