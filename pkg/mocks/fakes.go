package mocks

import (
	"context"
	"slices"
	"sync"

	"github.com/releasekit/releasectl/pkg/tools"
	"github.com/releasekit/releasectl/pkg/types"
)

// RecordingRunner is a tools.Runner that records every invocation and
// fails on demand
type RecordingRunner struct {
	mu       sync.Mutex
	calls    []tools.Invocation
	failures []failure

	// Hook, when set, runs before the invocation is answered.
	Hook func(inv tools.Invocation)
}

type failure struct {
	tool types.ToolKind
	arg  string
	err  error
}

// NewRecordingRunner creates a runner that succeeds on every call
func NewRecordingRunner() *RecordingRunner {
	return &RecordingRunner{}
}

// FailOn makes invocations of tool fail with err. A non-empty arg limits
// the failure to invocations carrying that argument.
func (r *RecordingRunner) FailOn(tool types.ToolKind, arg string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, failure{tool: tool, arg: arg, err: err})
}

// Run implements tools.Runner
func (r *RecordingRunner) Run(ctx context.Context, inv tools.Invocation) (tools.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, inv)
	hook := r.Hook
	failures := slices.Clone(r.failures)
	r.mu.Unlock()

	if hook != nil {
		hook(inv)
	}

	for _, f := range failures {
		if f.tool != inv.Tool {
			continue
		}
		if f.arg == "" || slices.Contains(inv.Args, f.arg) {
			return tools.Result{Output: []byte("simulated failure")}, f.err
		}
	}

	if err := ctx.Err(); err != nil {
		return tools.Result{}, err
	}
	return tools.Result{}, nil
}

// Calls returns every recorded invocation in order
func (r *RecordingRunner) Calls() []tools.Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// CallsFor returns the recorded invocations of one tool
func (r *RecordingRunner) CallsFor(tool types.ToolKind) []tools.Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []tools.Invocation
	for _, inv := range r.calls {
		if inv.Tool == tool {
			out = append(out, inv)
		}
	}
	return out
}

// Reset forgets recorded invocations
func (r *RecordingRunner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
