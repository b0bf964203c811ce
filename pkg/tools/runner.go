// Package tools wraps the external collaborators: the export engine, the
// uploader and the version-control client.
package tools

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/releasekit/releasectl/pkg/logger"
	"github.com/releasekit/releasectl/pkg/types"
)

// Invocation describes one external process call
type Invocation struct {
	Tool types.ToolKind
	Path string
	Args []string
	Dir  string
	Env  []string
}

// String renders the invocation as a command line
func (inv Invocation) String() string {
	return strings.TrimSpace(inv.Path + " " + strings.Join(inv.Args, " "))
}

// Result is the outcome of a finished invocation
type Result struct {
	// Output holds the tail of the combined stdout/stderr stream.
	Output   []byte
	Duration time.Duration
}

// Runner executes external tools. Implementations run one invocation to
// completion before returning.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Result, error)
}

const outputTailSize = 4096

// ExecRunner runs invocations as child processes
type ExecRunner struct {
	Logger logger.Logger
	// Stdout and Stderr receive the tool's live output; nil discards it.
	Stdout io.Writer
	Stderr io.Writer
	// LogDir, when set, receives an appended <tool>.log per tool kind.
	LogDir string
}

// NewExecRunner creates a runner streaming tool output to the terminal
func NewExecRunner(log logger.Logger, logDir string) *ExecRunner {
	return &ExecRunner{
		Logger: log,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		LogDir: logDir,
	}
}

// Run implements Runner
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (Result, error) {
	startTime := time.Now()

	logFile := r.openLog(inv)
	if logFile != nil {
		defer logFile.Close()
		fmt.Fprintf(logFile, "\n=== %s at %s ===\n", inv.String(), startTime.Format("2006-01-02 15:04:05"))
	}

	cmd := exec.CommandContext(ctx, inv.Path, inv.Args...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}

	tail := &tailBuffer{limit: outputTailSize}
	cmd.Stdout = combine(tail, r.Stdout, logFile)
	cmd.Stderr = combine(tail, r.Stderr, logFile)

	if r.Logger != nil {
		r.Logger.Debug("Running tool",
			logger.WithField("tool", inv.Tool),
			logger.WithField("command", inv.String()),
			logger.WithField("dir", inv.Dir))
	}

	err := cmd.Run()
	result := Result{Output: tail.Bytes(), Duration: time.Since(startTime)}

	if logFile != nil {
		status := "OK"
		if err != nil {
			status = "FAILED: " + err.Error()
		}
		fmt.Fprintf(logFile, "=== %s after %s ===\n", status, result.Duration)
	}

	if err != nil {
		if ctx.Err() != nil {
			return result, fmt.Errorf("%s interrupted: %w", inv.String(), ctx.Err())
		}
		return result, fmt.Errorf("%s: %w", inv.String(), err)
	}

	if r.Logger != nil {
		r.Logger.Debug("Tool finished",
			logger.WithField("tool", inv.Tool),
			logger.WithField("duration", result.Duration))
	}

	return result, nil
}

func (r *ExecRunner) openLog(inv Invocation) *os.File {
	if r.LogDir == "" {
		return nil
	}
	if err := os.MkdirAll(r.LogDir, 0o755); err != nil {
		if r.Logger != nil {
			r.Logger.Warn("Failed to create log directory", logger.WithError(err))
		}
		return nil
	}
	name := string(inv.Tool)
	if name == "" {
		name = "tool"
	}
	f, err := os.OpenFile(filepath.Join(r.LogDir, name+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		if r.Logger != nil {
			r.Logger.Warn("Failed to open tool log", logger.WithError(err))
		}
		return nil
	}
	return f
}

func combine(writers ...io.Writer) io.Writer {
	var active []io.Writer
	for _, w := range writers {
		switch v := w.(type) {
		case nil:
			continue
		case *os.File:
			if v == nil {
				continue
			}
		}
		active = append(active, w)
	}
	return io.MultiWriter(active...)
}

// tailBuffer keeps the last limit bytes written to it
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) Bytes() []byte {
	out := make([]byte, len(t.buf))
	copy(out, t.buf)
	return out
}
