package tools

//go:generate mockgen -destination=../mocks/mock_runner.go -package=mocks github.com/releasekit/releasectl/pkg/tools Runner

import (
	"context"
	"fmt"

	"github.com/releasekit/releasectl/pkg/types"
)

// ProbeArgs returns the side-effect free arguments used to check a tool
func ProbeArgs(kind types.ToolKind) []string {
	if kind == types.ToolUploader {
		return []string{"version"}
	}
	return []string{"--version"}
}

// Probe runs the version probe of a tool
func Probe(ctx context.Context, runner Runner, h Handle) error {
	if _, err := runner.Run(ctx, h.Invocation("", ProbeArgs(h.Kind)...)); err != nil {
		return fmt.Errorf("%s probe failed: %w", h.Kind, err)
	}
	return nil
}

// Engine drives the export engine
type Engine struct {
	handle      Handle
	runner      Runner
	projectPath string
}

// NewEngine creates an engine client. projectPath, when set, is passed
// through --path.
func NewEngine(h Handle, runner Runner, projectPath string) *Engine {
	return &Engine{handle: h, runner: runner, projectPath: projectPath}
}

// Export renders the export preset named after the channel, running the
// engine from dir
func (e *Engine) Export(ctx context.Context, dir, channel string) (Result, error) {
	var args []string
	if e.projectPath != "" {
		args = append(args, "--path", e.projectPath)
	}
	args = append(args, "--headless", "--export-release", channel)
	return e.runner.Run(ctx, e.handle.Invocation(dir, args...))
}

// Uploader drives the distribution uploader
type Uploader struct {
	handle Handle
	runner Runner
}

// NewUploader creates an uploader client
func NewUploader(h Handle, runner Runner) *Uploader {
	return &Uploader{handle: h, runner: runner}
}

// Push uploads channelDir to target tagged with version, running from dir
func (u *Uploader) Push(ctx context.Context, dir, channelDir, target, version string) (Result, error) {
	return u.runner.Run(ctx, u.handle.Invocation(dir,
		"push", "--userversion="+version, channelDir, target))
}

// VCS drives the version-control client
type VCS struct {
	handle Handle
	runner Runner
}

// NewVCS creates a version-control client
func NewVCS(h Handle, runner Runner) *VCS {
	return &VCS{handle: h, runner: runner}
}

// Clean removes untracked and ignored files under channelDir except keep
func (v *VCS) Clean(ctx context.Context, dir, channelDir, keep string) (Result, error) {
	args := []string{"clean", "-d", "-x", "-f"}
	if keep != "" {
		args = append(args, "-e", keep)
	}
	args = append(args, "--", channelDir)
	return v.runner.Run(ctx, v.handle.Invocation(dir, args...))
}
