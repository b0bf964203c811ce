package process_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/releasekit/releasectl/pkg/process"
)

func TestManager_ContextEndRunsHandlersInReverse(t *testing.T) {
	m := process.NewManager(nil)

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	m.RegisterShutdownHandler(func() {
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
		close(done)
	})
	m.RegisterShutdownHandler(func() {
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	if !m.IsRunning() {
		t.Fatal("expected manager to be running")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown handlers did not run")
	}
	m.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("expected reverse order [2 1], got %v", order)
	}
	if m.Signal() != nil {
		t.Errorf("expected no signal, got %v", m.Signal())
	}
}

func TestManager_StopSkipsHandlers(t *testing.T) {
	m := process.NewManager(nil)

	called := false
	m.RegisterShutdownHandler(func() { called = true })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Start(ctx)
	m.Start(ctx)
	m.Stop()
	m.Stop()

	if called {
		t.Error("Stop must not run shutdown handlers")
	}
	if m.IsRunning() {
		t.Error("expected manager to be stopped")
	}
}
