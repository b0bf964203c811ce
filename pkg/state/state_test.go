package state_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/releasekit/releasectl/pkg/state"
	"github.com/releasekit/releasectl/pkg/types"
)

func TestManager_ReadUnknownChannelIsIdle(t *testing.T) {
	sm := state.NewManager(t.TempDir(), nil)

	st, err := sm.Read("win-demo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Status != types.ChannelStatusIdle {
		t.Errorf("expected idle, got %s", st.Status)
	}
	if st.Channel != "win-demo" {
		t.Errorf("expected channel name, got %s", st.Channel)
	}
}

func TestManager_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	sm := state.NewManager(dir, nil)

	if err := sm.MarkCleaned("linux-demo", "run_1"); err != nil {
		t.Fatal(err)
	}
	if err := sm.MarkExported("linux-demo", "run_1", 3*time.Second); err != nil {
		t.Fatal(err)
	}
	if err := sm.MarkPublished("linux-demo", "run_1", "0.7.0", time.Second); err != nil {
		t.Fatal(err)
	}

	// A fresh manager must see the persisted record
	st, err := state.NewManager(dir, nil).Read("linux-demo")
	if err != nil {
		t.Fatal(err)
	}

	if st.Status != types.ChannelStatusPublished {
		t.Errorf("expected published, got %s", st.Status)
	}
	if st.PublishedVersion != "0.7.0" {
		t.Errorf("expected version 0.7.0, got %s", st.PublishedVersion)
	}
	if st.ExportCount != 1 || st.PublishCount != 1 {
		t.Errorf("unexpected counters: %+v", st)
	}
	if st.InvocationID != "run_1" {
		t.Errorf("expected invocation id, got %s", st.InvocationID)
	}
	if st.LastCleaned.IsZero() || st.LastExported.IsZero() || st.LastPublished.IsZero() {
		t.Error("expected timestamps to be recorded")
	}
}

func TestManager_MarkFailed(t *testing.T) {
	sm := state.NewManager(t.TempDir(), nil)

	if err := sm.MarkFailed("mac-demo", "run_2", errors.New("engine crashed")); err != nil {
		t.Fatal(err)
	}
	if err := sm.MarkFailed("mac-demo", "run_3", errors.New("engine crashed again")); err != nil {
		t.Fatal(err)
	}

	st, _ := sm.Read("mac-demo")
	if st.Status != types.ChannelStatusFailed {
		t.Errorf("expected failed, got %s", st.Status)
	}
	if st.FailureCount != 2 {
		t.Errorf("expected 2 failures, got %d", st.FailureCount)
	}
	if st.LastError != "engine crashed again" {
		t.Errorf("unexpected last error %q", st.LastError)
	}

	if err := sm.MarkCleaned("mac-demo", "run_4"); err != nil {
		t.Fatal(err)
	}
	st, _ = sm.Read("mac-demo")
	if st.LastError != "" {
		t.Error("a successful step clears the last error")
	}
}

func TestManager_Discover(t *testing.T) {
	dir := t.TempDir()
	sm := state.NewManager(dir, nil)

	sm.MarkCleaned("win-demo", "run")
	sm.MarkCleaned("linux-demo", "run")

	// Broken and unrelated files are skipped
	os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore"), 0o644)

	states, err := state.NewManager(dir, nil).Discover()
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 2 {
		t.Fatalf("expected 2 states, got %d", len(states))
	}
	if states[0].Channel != "linux-demo" || states[1].Channel != "win-demo" {
		t.Errorf("expected sorted channels, got %s, %s", states[0].Channel, states[1].Channel)
	}
}

func TestManager_DiscoverMissingDir(t *testing.T) {
	sm := state.NewManager(filepath.Join(t.TempDir(), "absent"), nil)

	states, err := sm.Discover()
	if err != nil {
		t.Fatalf("missing state dir should not be an error: %v", err)
	}
	if len(states) != 0 {
		t.Errorf("expected no states, got %d", len(states))
	}
}

func TestManager_ReplacesCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "win-demo.json"), []byte("garbage"), 0o644)

	sm := state.NewManager(dir, nil)
	if err := sm.MarkExported("win-demo", "run", time.Second); err != nil {
		t.Fatalf("expected corrupt record to be replaced: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "win-demo.json"))
	if err != nil {
		t.Fatal(err)
	}
	var st state.ChannelState
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatalf("record is not valid JSON: %v", err)
	}
	if st.Status != types.ChannelStatusExported {
		t.Errorf("expected exported, got %s", st.Status)
	}
}

func TestManager_Remove(t *testing.T) {
	dir := t.TempDir()
	sm := state.NewManager(dir, nil)
	sm.MarkCleaned("win-demo", "run")

	if err := sm.Remove("win-demo"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "win-demo.json")); !os.IsNotExist(err) {
		t.Error("expected state file to be removed")
	}
	if err := sm.Remove("win-demo"); err != nil {
		t.Errorf("removing twice should be fine: %v", err)
	}
}
