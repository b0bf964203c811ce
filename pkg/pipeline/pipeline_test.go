package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/releasekit/releasectl/pkg/builderr"
	"github.com/releasekit/releasectl/pkg/fsutil"
	"github.com/releasekit/releasectl/pkg/mocks"
	"github.com/releasekit/releasectl/pkg/pipeline"
	"github.com/releasekit/releasectl/pkg/state"
	"github.com/releasekit/releasectl/pkg/tools"
	"github.com/releasekit/releasectl/pkg/types"
)

type fixture struct {
	root   string
	cfg    *types.ProjectConfig
	runner *mocks.RecordingRunner
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	for _, tool := range []string{"godot", "butler", "git"} {
		writeFile(t, filepath.Join(root, "bin", tool), "")
	}
	writeFile(t, filepath.Join(root, "builds", "version.txt"), "0.7.0\n")
	writeFile(t, filepath.Join(root, "builds", "channels.txt"), "win-demo\nlinux-demo\n\nwin-demo\n")
	writeFile(t, filepath.Join(root, "builds", "eula.md"), "EULA text")
	writeFile(t, filepath.Join(root, "builds", "win-demo", ".itch"), "")
	writeFile(t, filepath.Join(root, "builds", "win-demo", "stale.exe"), "old build")
	writeFile(t, filepath.Join(root, "builds", "win-demo", "data", "stale.pck"), "old pack")

	return &fixture{
		root: root,
		cfg: &types.ProjectConfig{
			Project:       "studio/game",
			VersionFile:   "builds/version.txt",
			LockFile:      "builds/version.lock",
			ChannelsFile:  "builds/channels.txt",
			OutputDir:     "builds",
			Placeholder:   ".itch",
			License:       "builds/eula.md",
			LicenseTarget: "readme.md",
			EnginePath:    "../..",
			StateDir:      ".releasectl/state",
			Tools: types.ToolsConfig{
				Engine:   "bin/godot",
				Uploader: "bin/butler",
				VCS:      "bin/git",
			},
		},
		runner: mocks.NewRecordingRunner(),
	}
}

func (f *fixture) path(parts ...string) string {
	return filepath.Join(append([]string{f.root}, parts...)...)
}

func (f *fixture) orchestrator(t *testing.T, opts ...func(*pipeline.Options)) *pipeline.Orchestrator {
	t.Helper()
	o := pipeline.Options{Root: f.root, Config: f.cfg, Runner: f.runner}
	for _, apply := range opts {
		apply(&o)
	}
	orch, err := pipeline.New(o)
	if err != nil {
		t.Fatalf("failed to create orchestrator: %v", err)
	}
	return orch
}

func args(calls []tools.Invocation) [][]string {
	out := make([][]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Args)
	}
	return out
}

func pushes(calls []tools.Invocation) []tools.Invocation {
	var out []tools.Invocation
	for _, c := range calls {
		if len(c.Args) > 0 && c.Args[0] == "push" {
			out = append(out, c)
		}
	}
	return out
}

func TestNew_RequiresConfig(t *testing.T) {
	if _, err := pipeline.New(pipeline.Options{Root: t.TempDir()}); !errors.Is(err, builderr.ErrConfig) {
		t.Errorf("expected ConfigError, got %v", err)
	}
}

func TestChannels_RegistryOrder(t *testing.T) {
	f := newFixture(t)
	got, err := f.orchestrator(t).Channels(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(got, []string{"win-demo", "linux-demo"}) {
		t.Errorf("unexpected channels %v", got)
	}
}

func TestChannels_EmptyFile(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.path("builds", "channels.txt"), "\n  \n")

	if _, err := f.orchestrator(t).Channels(context.Background()); !errors.Is(err, builderr.ErrConfig) {
		t.Errorf("expected ConfigError, got %v", err)
	}
}

func TestDirectoryCorrect_RequiredPaths(t *testing.T) {
	f := newFixture(t)
	f.cfg.RequiredDirs = []string{"builds", "export_presets"}

	err := f.orchestrator(t).Clean(context.Background(), nil)
	if !errors.Is(err, builderr.ErrEnvironment) {
		t.Fatalf("expected EnvironmentError, got %v", err)
	}
	if !fsutil.Exists(f.path("builds", "win-demo", "stale.exe")) {
		t.Error("nothing may be deleted when the directory check fails")
	}
}

func TestClean_KeepsPlaceholderAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	orch := f.orchestrator(t)

	for i := 0; i < 2; i++ {
		if err := orch.Clean(context.Background(), nil); err != nil {
			t.Fatalf("clean %d failed: %v", i, err)
		}

		entries, err := os.ReadDir(f.path("builds", "win-demo"))
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || entries[0].Name() != ".itch" {
			t.Errorf("expected only the placeholder after clean %d, got %v", i, entries)
		}
	}

	if !fsutil.IsDir(f.path("builds", "linux-demo")) {
		t.Error("expected missing channel directory to be created")
	}
	if len(f.runner.Calls()) != 0 {
		t.Errorf("filesystem clean must not run tools, got %v", f.runner.Calls())
	}

	rec, err := state.NewManager(f.path(".releasectl", "state"), nil).Read("win-demo")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != types.ChannelStatusCleaned {
		t.Errorf("expected cleaned record, got %s", rec.Status)
	}
}

func TestClean_UnknownChannelDeletesNothing(t *testing.T) {
	f := newFixture(t)

	err := f.orchestrator(t).Clean(context.Background(), []string{"win-demo", "missing-channel"})
	if !errors.Is(err, builderr.ErrUnknownChannel) {
		t.Fatalf("expected UnknownChannel, got %v", err)
	}
	if !fsutil.Exists(f.path("builds", "win-demo", "stale.exe")) {
		t.Error("no channel may be cleaned when any requested channel is unknown")
	}
}

func TestClean_ExplicitChannelsOnly(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.path("builds", "linux-demo", "keep-me.bin"), "x")

	if err := f.orchestrator(t).Clean(context.Background(), []string{"win-demo"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fsutil.Exists(f.path("builds", "win-demo", "stale.exe")) {
		t.Error("expected win-demo to be cleaned")
	}
	if !fsutil.Exists(f.path("builds", "linux-demo", "keep-me.bin")) {
		t.Error("linux-demo was not requested and must be untouched")
	}
}

func TestClean_DepthExceeded(t *testing.T) {
	f := newFixture(t)
	deep := f.path("builds", "win-demo")
	for i := 0; i < 9; i++ {
		deep = filepath.Join(deep, "d")
	}
	writeFile(t, filepath.Join(deep, "f"), "")

	err := f.orchestrator(t).Clean(context.Background(), []string{"win-demo"})
	if !errors.Is(err, builderr.ErrCleanFailure) || !errors.Is(err, fsutil.ErrDepthExceeded) {
		t.Fatalf("expected depth exceeded clean failure, got %v", err)
	}
	if !fsutil.Exists(f.path("builds", "win-demo", "stale.exe")) {
		t.Error("a failed clean must not delete anything")
	}
}

func TestClean_UsingVCS(t *testing.T) {
	f := newFixture(t)
	f.cfg.Clean.UseVCS = true

	if err := f.orchestrator(t).Clean(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := [][]string{
		{"--version"},
		{"clean", "-d", "-x", "-f", "-e", ".itch", "--", "win-demo"},
		{"clean", "-d", "-x", "-f", "-e", ".itch", "--", "linux-demo"},
	}
	got := args(f.runner.CallsFor(types.ToolVCS))
	if !slices.EqualFunc(got, want, slices.Equal[[]string]) {
		t.Errorf("unexpected vcs calls %v", got)
	}
}

func TestExport_CleansBeforeEngine(t *testing.T) {
	f := newFixture(t)

	f.runner.Hook = func(inv tools.Invocation) {
		if inv.Tool != types.ToolEngine || inv.Args[0] == "--version" {
			return
		}
		channel := inv.Args[len(inv.Args)-1]
		entries, err := os.ReadDir(f.path("builds", channel))
		if err != nil {
			t.Errorf("channel dir missing at export time: %v", err)
			return
		}
		for _, e := range entries {
			if e.Name() != ".itch" {
				t.Errorf("channel %s not clean before export, found %s", channel, e.Name())
			}
		}
	}

	if err := f.orchestrator(t).Export(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := f.runner.Calls()
	want := [][]string{
		{"--version"},
		{"--path", "../..", "--headless", "--export-release", "win-demo"},
		{"--path", "../..", "--headless", "--export-release", "linux-demo"},
	}
	if !slices.EqualFunc(args(calls), want, slices.Equal[[]string]) {
		t.Errorf("unexpected engine calls %v", args(calls))
	}
	for _, c := range calls[1:] {
		if c.Dir != f.path("builds") {
			t.Errorf("engine must run from the output directory, got %s", c.Dir)
		}
	}

	for _, ch := range []string{"win-demo", "linux-demo"} {
		data, err := os.ReadFile(f.path("builds", ch, "readme.md"))
		if err != nil || string(data) != "EULA text" {
			t.Errorf("expected license in %s, got %q (%v)", ch, data, err)
		}
	}
}

func TestExport_EngineProbedOncePerInvocation(t *testing.T) {
	f := newFixture(t)
	orch := f.orchestrator(t)

	for i := 0; i < 3; i++ {
		if err := orch.Export(context.Background(), []string{"linux-demo"}); err != nil {
			t.Fatal(err)
		}
	}

	probes := 0
	for _, c := range f.runner.CallsFor(types.ToolEngine) {
		if c.Args[0] == "--version" {
			probes++
		}
	}
	if probes != 1 {
		t.Errorf("expected a single engine probe, got %d", probes)
	}
}

func TestExport_FailFast(t *testing.T) {
	f := newFixture(t)
	f.runner.FailOn(types.ToolEngine, "win-demo", errors.New("exit status 1"))

	err := f.orchestrator(t).Export(context.Background(), nil)
	if !errors.Is(err, builderr.ErrExportFailed) {
		t.Fatalf("expected ExportFailed, got %v", err)
	}

	for _, c := range f.runner.CallsFor(types.ToolEngine) {
		if slices.Contains(c.Args, "linux-demo") {
			t.Error("channels after a failure must not be exported")
		}
	}
	if fsutil.Exists(f.path("builds", "win-demo", "readme.md")) {
		t.Error("license must not be copied after a failed export")
	}

	rec, err := state.NewManager(f.path(".releasectl", "state"), nil).Read("win-demo")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != types.ChannelStatusFailed || rec.FailureCount != 1 {
		t.Errorf("expected failed record, got %+v", rec)
	}
}

func TestExport_ReadmeCopyFailed(t *testing.T) {
	f := newFixture(t)
	if err := os.Remove(f.path("builds", "eula.md")); err != nil {
		t.Fatal(err)
	}

	err := f.orchestrator(t).Export(context.Background(), nil)
	if !errors.Is(err, builderr.ErrReadmeCopyFailed) {
		t.Fatalf("expected ReadmeCopyFailed, got %v", err)
	}
	if n := len(f.runner.CallsFor(types.ToolEngine)); n != 2 {
		t.Errorf("expected probe and one export before aborting, got %d calls", n)
	}
}

func TestExport_EngineUnavailableDeletesNothing(t *testing.T) {
	f := newFixture(t)
	f.cfg.Tools.Engine = "bin/missing-godot"

	err := f.orchestrator(t).Export(context.Background(), nil)
	if !errors.Is(err, builderr.ErrToolUnavailable) {
		t.Fatalf("expected ToolUnavailable, got %v", err)
	}
	if !fsutil.Exists(f.path("builds", "win-demo", "stale.exe")) {
		t.Error("export must not clean when the engine is unavailable")
	}
}

func TestExport_ProbeFailure(t *testing.T) {
	f := newFixture(t)
	f.runner.FailOn(types.ToolEngine, "--version", errors.New("exit status 127"))

	err := f.orchestrator(t).Export(context.Background(), nil)
	if !errors.Is(err, builderr.ErrToolUnavailable) {
		t.Fatalf("expected ToolUnavailable, got %v", err)
	}
}

func TestExport_ChangeDirRestoresWorkingDirectory(t *testing.T) {
	f := newFixture(t)
	f.cfg.ChangeDir = true

	start, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	wantDir, _ := filepath.EvalSymlinks(f.path("builds"))
	f.runner.Hook = func(inv tools.Invocation) {
		if inv.Args[0] == "--version" {
			return
		}
		wd, _ := os.Getwd()
		wd, _ = filepath.EvalSymlinks(wd)
		if wd != wantDir {
			t.Errorf("expected tools to run inside %s, got %s", wantDir, wd)
		}
	}
	f.runner.FailOn(types.ToolEngine, "linux-demo", errors.New("crash"))

	if err := f.orchestrator(t).Export(context.Background(), nil); !errors.Is(err, builderr.ErrExportFailed) {
		t.Fatalf("expected ExportFailed, got %v", err)
	}

	now, _ := os.Getwd()
	if now != start {
		t.Errorf("working directory not restored: %s", now)
	}
}
