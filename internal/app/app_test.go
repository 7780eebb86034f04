package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/venvtrack/internal/apperr"
	"github.com/blackwell-systems/venvtrack/internal/deps"
	"github.com/blackwell-systems/venvtrack/internal/history"
	"github.com/blackwell-systems/venvtrack/internal/lock"
	"github.com/blackwell-systems/venvtrack/internal/pip"
	"github.com/blackwell-systems/venvtrack/internal/snapshot"
	"github.com/blackwell-systems/venvtrack/internal/store"
)

// setupTestRoot builds an initialized environment root with a fake venv:
// the python and pip files exist so requireVenv passes, but no command
// in these tests ever executes them.
func setupTestRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	binDir := filepath.Join(root, "venv", "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"python", "pip"} {
		if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	st, err := store.New(filepath.Join(root, "venvtrack.db"))
	if err != nil {
		t.Fatalf("store.New() failed: %v", err)
	}
	if err := st.CreateSchema(); err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}
	st.Close()

	origRoot := flagRoot
	flagRoot = root
	t.Cleanup(func() { flagRoot = origRoot })

	// Commands only get a context from cobra's Execute; give the run
	// functions one when tests call them directly.
	for _, c := range []*cobra.Command{statusCmd, undoCmd, redoCmd, historyCmd, doctorCmd} {
		c.SetContext(context.Background())
	}
	return root
}

// captureStdout runs fn with os.Stdout redirected to a buffer.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
	os.Stdout = orig
	return buf.String()
}

func TestExitCode_MapsTaxonomy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"generic", errors.New("boom"), 1},
		{"env unavailable", apperr.ErrEnvUnavailable, 2},
		{"drift", apperr.ErrDrift, 3},
		{"invalid name", apperr.ErrInvalidName, 4},
		{"not found", apperr.ErrNotFound, 5},
		{"manifest parse", apperr.ErrManifestParse, 6},
		{"locked", lock.ErrLocked, 7},
		{"wrapped drift", errors.Join(errors.New("ctx"), apperr.ErrDrift), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestSplitRequirement(t *testing.T) {
	tests := []struct {
		spec    string
		name    string
		version string
	}{
		{"requests", "requests", ""},
		{"six==1.16.0", "six", "1.16.0"},
		{" flask == 2.0.0 ", "flask", "2.0.0"},
	}
	for _, tt := range tests {
		name, version := splitRequirement(tt.spec)
		if name != tt.name || version != tt.version {
			t.Errorf("splitRequirement(%q) = (%q, %q), want (%q, %q)",
				tt.spec, name, version, tt.name, tt.version)
		}
	}
}

func TestSnapshotCommand_RejectsInvalidName(t *testing.T) {
	err := runSnapshot(snapshotCmd, []string{"bad/name"})
	if !errors.Is(err, apperr.ErrInvalidName) {
		t.Fatalf("runSnapshot() = %v, want ErrInvalidName", err)
	}
	if code := ExitCode(err); code == 0 {
		t.Error("invalid name must exit non-zero")
	}
}

func TestRestoreCommand_RejectsInvalidName(t *testing.T) {
	if err := runRestore(restoreCmd, []string{"../escape"}); !errors.Is(err, apperr.ErrInvalidName) {
		t.Fatalf("runRestore() = %v, want ErrInvalidName", err)
	}
}

func TestUndo_EmptyHistoryIsNoOp(t *testing.T) {
	setupTestRoot(t)

	var err error
	out := captureStdout(t, func() {
		err = runUndo(undoCmd, nil)
	})
	if err != nil {
		t.Fatalf("undo on an empty ledger should succeed, got %v", err)
	}
	if !strings.Contains(out, "Nothing to undo") {
		t.Errorf("output = %q, want a nothing-to-undo notice", out)
	}
}

func TestRedo_EmptyStackIsNoOp(t *testing.T) {
	setupTestRoot(t)

	var err error
	out := captureStdout(t, func() {
		err = runRedo(redoCmd, nil)
	})
	if err != nil {
		t.Fatalf("redo with an empty stack should succeed, got %v", err)
	}
	if !strings.Contains(out, "Nothing to redo") {
		t.Errorf("output = %q, want a nothing-to-redo notice", out)
	}
}

func TestUndo_RejectsBadCount(t *testing.T) {
	setupTestRoot(t)
	for _, arg := range []string{"0", "-1", "many"} {
		if err := runUndo(undoCmd, []string{arg}); err == nil {
			t.Errorf("undo %q should fail", arg)
		}
	}
}

func TestHistory_UninitializedIndexFails(t *testing.T) {
	root := t.TempDir()
	origRoot := flagRoot
	flagRoot = root
	t.Cleanup(func() { flagRoot = origRoot })

	// The db file gets created on open, but no schema exists yet.
	err := runHistory(historyCmd, nil)
	if !errors.Is(err, store.ErrNotInitialized) {
		t.Fatalf("runHistory() = %v, want ErrNotInitialized", err)
	}
}

func TestCheckDowngrades(t *testing.T) {
	before := &snapshot.Snapshot{Packages: []pip.Package{
		{Name: "six", Version: "1.16.0"},
		{Name: "requests", Version: "2.31.0"},
	}}

	t.Run("no pins is fine", func(t *testing.T) {
		if !checkDowngrades(before, []string{"flask"}, false) {
			t.Error("unpinned install should pass without prompting")
		}
	})

	t.Run("upgrade pin is fine", func(t *testing.T) {
		if !checkDowngrades(before, []string{"requests==2.32.0"}, false) {
			t.Error("forward pin should pass without prompting")
		}
	})

	t.Run("downgrade with yes proceeds", func(t *testing.T) {
		out := captureStdout(t, func() {
			if !checkDowngrades(before, []string{"six==1.15.0"}, true) {
				t.Error("--yes should carry the downgrade through")
			}
		})
		if !strings.Contains(out, "downgrades") {
			t.Errorf("downgrade warning missing from %q", out)
		}
	})

	t.Run("not installed is fine", func(t *testing.T) {
		if !checkDowngrades(before, []string{"flask==0.1"}, false) {
			t.Error("pin for an uninstalled package should pass")
		}
	})
}

func TestMutate_InterruptedRunStillRecorded(t *testing.T) {
	root := setupTestRoot(t)

	// This pip reports whatever freeze.txt holds, so the test can change
	// the environment mid-operation the way a killed install does.
	pipScript := "#!/bin/sh\nif [ \"$1\" = \"freeze\" ]; then cat " + root + "/freeze.txt 2>/dev/null; fi\nexit 0\n"
	if err := os.WriteFile(filepath.Join(root, "venv", "bin", "pip"), []byte(pipScript), 0o755); err != nil {
		t.Fatal(err)
	}

	env, err := openEnv()
	if err != nil {
		t.Fatalf("openEnv() failed: %v", err)
	}
	defer env.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := errors.New("signal: interrupt")
	id, err := env.mutate(ctx, history.KindInstall, []string{"six"}, func(runCtx context.Context, _ *snapshot.Snapshot) error {
		// Half the install landed before the signal arrived.
		if werr := os.WriteFile(filepath.Join(root, "freeze.txt"), []byte("six==1.16.0\n"), 0o644); werr != nil {
			t.Fatal(werr)
		}
		cancel()
		if runCtx.Err() == nil {
			t.Error("run context should be cancelled once the parent is")
		}
		return runErr
	})
	if !errors.Is(err, runErr) {
		t.Fatalf("mutate() error = %v, want the run error surfaced", err)
	}
	if id == 0 {
		t.Fatal("an interrupted mutation that changed state must be recorded")
	}

	entry, err := env.ledger.Get(id)
	if err != nil {
		t.Fatalf("ledger.Get(%d) failed: %v", id, err)
	}
	if len(entry.After.Packages) != 1 || entry.After.Packages[0].Name != "six" {
		t.Errorf("recorded after-state = %+v, want the partial install", entry.After.Packages)
	}
}

func TestOrphanReport_NamesFormerDependents(t *testing.T) {
	edges := map[string][]string{
		"requests": {"urllib3", "idna"},
		"flask":    {"idna"},
	}
	got := orphanReport([]string{"idna", "urllib3"}, deps.Dependents(edges))
	want := []string{
		"idna (was needed by flask, requests)",
		"urllib3 (was needed by requests)",
	}
	if len(got) != len(want) {
		t.Fatalf("orphanReport() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}

	// No recorded dependents renders the bare name.
	if got := orphanReport([]string{"left-pad"}, nil); got[0] != "left-pad" {
		t.Errorf("orphanReport() without graph = %v, want bare name", got)
	}
}

func TestDoctor_HealthyEnvironmentPasses(t *testing.T) {
	setupTestRoot(t)

	var err error
	out := captureStdout(t, func() {
		err = runDoctor(doctorCmd, nil)
	})
	if err != nil {
		t.Fatalf("runDoctor() failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "All checks passed.") {
		t.Errorf("doctor output missing pass notice:\n%s", out)
	}
}

func TestDoctor_WarnsOnUnregisteredSnapshot(t *testing.T) {
	root := setupTestRoot(t)

	snapDir := filepath.Join(root, "snapshots")
	if err := os.MkdirAll(snapDir, 0o755); err != nil {
		t.Fatal(err)
	}
	// A snapshot file with no registry row, as left behind by a crash
	// between the file write and the index upsert.
	if err := os.WriteFile(filepath.Join(snapDir, "ghost.txt"), []byte("six==1.16.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var err error
	out := captureStdout(t, func() {
		err = runDoctor(doctorCmd, nil)
	})
	if !errors.Is(err, errDoctorWarnings) {
		t.Fatalf("runDoctor() = %v, want errDoctorWarnings", err)
	}
	if code := ExitCode(err); code != 2 {
		t.Errorf("ExitCode() = %d, want 2 for warning-only diagnostics", code)
	}
	if !strings.Contains(out, `"ghost"`) {
		t.Errorf("doctor output does not name the unregistered snapshot:\n%s", out)
	}
}

func TestStatus_ReportsEnvironment(t *testing.T) {
	setupTestRoot(t)

	// status capture shells out to the fake pip, which exits 0 with no
	// output; an empty freeze parses to zero packages.
	var err error
	out := captureStdout(t, func() {
		err = runStatus(statusCmd, nil)
	})
	if err != nil {
		t.Fatalf("runStatus() failed: %v", err)
	}
	for _, want := range []string{"Environment:", "Packages:", "History:     empty"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}
